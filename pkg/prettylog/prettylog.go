// Package prettylog installs a charmbracelet/log handler as the default slog
// logger.
package prettylog

import (
	"io"
	"log/slog"

	"github.com/charmbracelet/log"
)

// Options tunes SetupPrettyLogger.
type Options struct {
	Debug  bool
	Prefix string
}

func SetupPrettyLogger(writerForLogger io.Writer, opts Options) *log.Logger {
	level := log.InfoLevel
	if opts.Debug {
		level = log.DebugLevel
	}
	logHandler := log.NewWithOptions(
		writerForLogger,
		log.Options{
			// Callers can use SetLevel on the returned handler to change.
			Level:           level,
			Prefix:          opts.Prefix,
			ReportTimestamp: true,
			ReportCaller:    opts.Debug,
		},
	)
	logger := slog.New(logHandler)
	slog.SetDefault(logger)

	return logHandler
}
