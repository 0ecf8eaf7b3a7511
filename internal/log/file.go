package log

import (
	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation settings for log files.
const (
	// MaxFileSizeMB is the size in megabytes at which a log file is rotated.
	MaxFileSizeMB = 50

	// MaxBackups is the number of rotated files kept.
	MaxBackups = 5

	// MaxAgeDays is the number of days rotated files are kept.
	MaxAgeDays = 28
)

// NewFileWriter returns a writer that appends to the log file at path
// and rotates it when it grows past MaxFileSizeMB. Rotated files are
// compressed. The caller must Close the writer.
func NewFileWriter(path string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    MaxFileSizeMB,
		MaxBackups: MaxBackups,
		MaxAge:     MaxAgeDays,
		LocalTime:  true,
		Compress:   true,
	}
}
