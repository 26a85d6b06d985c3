package log

import (
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// RotatingFile returns an io.Writer that rotates path once it exceeds
// maxSizeMB, keeping at most maxBackups old files — wired in for
// deployments that log to disk rather than stderr, the way a long-running
// ingest/writer/broadcaster process is expected to run.
func RotatingFile(path string, maxSizeMB, maxBackups int) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		Compress:   true,
	}
}
