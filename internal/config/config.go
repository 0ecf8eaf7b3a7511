package config

import (
	"fmt"
	"path/filepath"
	"slices"
	"time"

	"github.com/adrg/xdg"
	"github.com/kelseyhightower/envconfig"

	"github.com/nao1215/piculet/internal/document"
)

// Default configuration values.
const (
	// DefaultBatchSize of 8 concurrent scrapes keeps all cores of a typical
	// machine busy. Parsing dominates the cost of a scrape, so higher values
	// rarely help.
	DefaultBatchSize = 8

	// DefaultMaxDocumentSize limits how much of a document is read.
	// 20MB covers the largest pages seen in practice while preventing memory
	// exhaustion from a mistaken input such as a video file.
	DefaultMaxDocumentSize = 20 * 1024 * 1024 // 20MB

	// DefaultSpecDir is the directory, relative to the working directory,
	// searched for specs before the XDG config directory.
	DefaultSpecDir = "specs"

	// AppName is the application name used for XDG directory paths.
	AppName = "piculet"

	// EnvPrefix is the prefix of the environment variables read by
	// ApplyEnv, for example PICULET_SPEC_DIRS.
	EnvPrefix = "PICULET"
)

// Config holds all configuration options for a piculet run.
// This struct is populated from CLI flags, the environment and the
// configuration file, and passed through the application via dependency
// injection rather than global state.
//
// Design decision: We use a single flat struct instead of nested structs
// for simplicity. The number of options is manageable, and nesting would
// add complexity without significant benefit.
type Config struct {
	// Inputs are the documents to scrape. "-" stands for stdin.
	// Glob patterns are expanded by the CLI before they reach here.
	Inputs []string

	// SpecName names the spec to scrape with. It is a file path, a name
	// searched in SpecDirs, or an alias from the configuration file.
	// When empty, the spec of each input is chosen by the configuration
	// file patterns.
	SpecName string

	// SpecDirs are searched, in order, for specs given by name.
	SpecDirs []string

	// DocType overrides the document type declared by the spec.
	// Empty means use the spec's type, or detect it from the content.
	DocType document.DocType

	// Timeout bounds a whole scrape run. Zero means no timeout.
	Timeout time.Duration

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// LogFile, when set, receives the log output instead of stderr.
	// The file is rotated when it grows large.
	LogFile string

	// LogJSON switches the log output to JSON lines.
	LogJSON bool

	// BatchSize is the number of documents scraped concurrently.
	BatchSize int

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches for .piculet in the current directory
	// and then in the user's home directory.
	ConfigFilePath string

	// File holds the settings loaded from the configuration file.
	// It is nil when no configuration file was found.
	File *File

	// JSONReport enables JSON report output instead of human-readable format.
	// Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport enables Markdown report output instead of human-readable format.
	// Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the report.
	// When set, the report is written to this file instead of stdout.
	ReportFile string

	// DBDir is the directory path for storing the SQLite database.
	// Defaults to XDG data directory (~/.local/share/piculet on Linux).
	DBDir string

	// SaveToDB indicates whether to save scrape results to the database
	// for the history command.
	SaveToDB bool

	// MetricsFile, when set, receives the run's metrics in the Prometheus
	// text format, suitable for the node exporter textfile collector.
	MetricsFile string

	// MaxDocumentSize is the maximum number of bytes read from a document.
	// Set to 0 to use the default.
	MaxDocumentSize int64
}

// NewConfig creates a new Config with default values.
//
// Design decision: We use a constructor function instead of relying on
// zero values because several defaults are non-zero. This also serves as
// documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		SpecDirs:        DefaultSpecDirs(),
		BatchSize:       DefaultBatchSize,
		MaxDocumentSize: DefaultMaxDocumentSize,
		DBDir:           XDGDataDir(),
	}
}

// DefaultSpecDirs returns the directories searched for specs when none are
// configured: ./specs, then the specs directory under the XDG config home.
func DefaultSpecDirs() []string {
	return []string{DefaultSpecDir, filepath.Join(XDGConfigDir(), "specs")}
}

// XDGDataDir returns the XDG data directory for piculet.
// On Linux: ~/.local/share/piculet
// On macOS: ~/Library/Application Support/piculet
// On Windows: %LOCALAPPDATA%\piculet
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for piculet.
// On Linux: ~/.config/piculet
// On macOS: ~/Library/Application Support/piculet
// On Windows: %APPDATA%\piculet
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGStateDir returns the XDG state directory for piculet, where log
// files go by default.
// On Linux: ~/.local/state/piculet
func XDGStateDir() string {
	return filepath.Join(xdg.StateHome, AppName)
}

// Env holds the settings that can be given as environment variables.
// Zero values leave the configuration unchanged.
type Env struct {
	SpecDirs    []string `envconfig:"SPEC_DIRS"`
	DBDir       string   `envconfig:"DB_DIR"`
	BatchSize   int      `envconfig:"BATCH_SIZE"`
	LogFile     string   `envconfig:"LOG_FILE"`
	MetricsFile string   `envconfig:"METRICS_FILE"`
}

// ApplyEnv reads the PICULET_* environment variables and applies the ones
// that are set. Spec directories from the environment are searched before
// the configured ones.
//
// Design decision: Environment variables sit between the configuration
// file and CLI flags. The CLI applies them before parsing its flags, so an
// explicit flag still wins.
func (c *Config) ApplyEnv() error {
	var env Env
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return fmt.Errorf("failed to read environment: %w", err)
	}
	if len(env.SpecDirs) > 0 {
		c.SpecDirs = append(slices.Clone(env.SpecDirs), c.SpecDirs...)
	}
	if env.DBDir != "" {
		c.DBDir = env.DBDir
	}
	if env.BatchSize != 0 {
		c.BatchSize = env.BatchSize
	}
	if env.LogFile != "" {
		c.LogFile = env.LogFile
	}
	if env.MetricsFile != "" {
		c.MetricsFile = env.MetricsFile
	}
	return nil
}

// SearchDirs returns the directories searched for specs: the configured
// ones followed by those of the configuration file, without duplicates.
func (c *Config) SearchDirs() []string {
	dirs := slices.Clone(c.SpecDirs)
	if c.File != nil {
		dirs = append(dirs, c.File.SpecDirs...)
	}
	out := make([]string, 0, len(dirs))
	for _, dir := range dirs {
		if dir != "" && !slices.Contains(out, dir) {
			out = append(out, dir)
		}
	}
	return out
}

// Validate checks if the configuration is valid.
// It returns a specific error describing what is invalid.
//
// Design decision: We validate at the config level rather than at each
// point of use to fail fast and provide clear error messages upfront.
// We return the first error found because fixing one error often makes
// others irrelevant.
func (c *Config) Validate() error {
	if len(c.Inputs) == 0 {
		return ErrNoInput
	}

	// Without a spec name every input needs a pattern match
	if c.SpecName == "" && (c.File == nil || !c.File.HasPatterns()) {
		return ErrNoSpec
	}

	if c.Timeout < 0 {
		return ErrInvalidTimeout
	}

	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	if c.DocType != "" && !c.DocType.Valid() {
		return ErrInvalidDocType
	}

	if c.MaxDocumentSize < 0 {
		return ErrInvalidMaxDocumentSize
	}

	return nil
}
