package daemon

import (
	"log"

	"gopkg.in/natefinch/lumberjack.v2"
)

// RotatingLogger returns a logger that writes to a size-rotated file. The
// daemon runs unattended for weeks at a time, so its log must not grow
// without bound.
func RotatingLogger(path string) *log.Logger {
	return log.New(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     30, // days
	}, "[daemon] ", log.LstdFlags)
}
