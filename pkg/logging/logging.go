package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

type Options struct {
	Level  string
	Format string // "text" or "json"
	Output io.Writer
}

// New builds the process logger. Unknown levels fall back to info.
func New(opts Options) *log.Logger {
	if opts.Output == nil {
		opts.Output = os.Stderr
	}

	level, err := log.ParseLevel(strings.ToLower(opts.Level))
	if err != nil {
		level = log.InfoLevel
	}

	formatter := log.TextFormatter
	if strings.EqualFold(opts.Format, "json") {
		formatter = log.JSONFormatter
	}

	return log.NewWithOptions(opts.Output, log.Options{
		Level:           level,
		Formatter:       formatter,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
	})
}

// Component returns logger scoped to a component, or the default logger scoped if logger is nil.
func Component(logger *log.Logger, name string) *log.Logger {
	if logger == nil {
		logger = log.Default()
	}
	return logger.With("component", name)
}
