// Package specfile reads and writes spec descriptions stored as JSON,
// YAML or TOML files, and finds specs by name in a list of directories.
package specfile
