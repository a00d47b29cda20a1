package main

import (
	"io"
	"log"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/steveyegge/metis/internal/config"
)

// newLogger builds the process-wide *log.Logger. When cfg.Log.File is
// set, output is routed through lumberjack for size-based rotation;
// otherwise it goes to stderr. The watch, sync and cache commands all
// build their logger here, so log.file applies to each of them.
func newLogger(prefix string, cfg config.Config) *log.Logger {
	var out io.Writer = os.Stderr
	if cfg.Log.File != "" {
		out = &lumberjack.Logger{
			Filename:   cfg.Log.File,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		}
	}
	return log.New(out, prefix, log.LstdFlags)
}
