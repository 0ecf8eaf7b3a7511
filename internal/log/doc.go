// Package log provides compact structured logging built on top of the
// standard slog package.
//
// Scraping logs tend to carry whole documents and extracted values as
// attributes. The CompactHandler keeps such records readable:
//   - Document attributes (document, body, markup) are replaced by their size
//   - Other long string values are truncated
//   - Log levels follow the verbose flag
//
// # Usage
//
//	logger := log.NewLogger(os.Stderr, true, false) // verbose, text output
//	logger.Debug("parsed document", "source", path, "document", content)
//	slog.SetDefault(logger)
//
// Log files are rotated with lumberjack:
//
//	w := log.NewFileWriter("/var/log/piculet.log")
//	defer w.Close()
//	logger := log.NewLogger(w, false, true)
package log
