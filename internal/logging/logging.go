// Package logging builds the process logger.
package logging

import (
	"io"
	"os"

	"github.com/phuslu/log"

	"lorerag/internal/config"
)

// New returns a logger writing to w (stderr when nil) at the configured
// level. Format "json" emits one JSON object per line; anything else uses
// the console writer, coloured when w is a terminal.
func New(cfg config.LoggingConfig, w io.Writer) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	logger := &log.Logger{
		Level: log.ParseLevel(cfg.Level),
	}
	if cfg.Format == "json" {
		logger.Writer = &log.IOWriter{Writer: w}
		return logger
	}
	color := false
	if f, ok := w.(*os.File); ok {
		color = log.IsTerminal(f.Fd())
	}
	logger.Writer = &log.ConsoleWriter{
		Writer:         w,
		ColorOutput:    color,
		QuoteString:    true,
		EndWithMessage: true,
	}
	return logger
}
