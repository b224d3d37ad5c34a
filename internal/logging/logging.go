// Package logging builds the process logger.
package logging

import (
	"io"
	"log"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// New returns a logger writing to stderr. When path is non-empty, output is
// additionally mirrored into a size-rotated file so sync warnings (nulled
// references, JSON substitutions) survive for audit.
func New(path string) *log.Logger {
	var w io.Writer = os.Stderr
	if path != "" {
		w = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   path,
			MaxSize:    10, // MB
			MaxBackups: 5,
			MaxAge:     30, // days
			Compress:   true,
		})
	}
	return log.New(w, "[crmsync] ", log.LstdFlags)
}
