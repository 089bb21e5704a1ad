// Package logging provides component loggers built on logrus.
package logging

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

// EnvLogLevel overrides the configured level when set.
const EnvLogLevel = "GAMEDECK_LOG_LEVEL"

// Options controls the shared logger. Zero values mean defaults.
type Options struct {
	// Level is a logrus level name. Ignored when EnvLogLevel is set.
	Level string
	// Format is "text" or "json".
	Format string
	// Verbose forces debug, Quiet forces error. Verbose wins.
	Verbose bool
	Quiet   bool
	// Output defaults to stderr.
	Output io.Writer
}

var (
	base      = newBase()
	loggers   = make(map[string]*logrus.Entry)
	loggersMu sync.Mutex
)

func newBase() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(resolveLevel(""))
	logger.SetFormatter(textFormatter(os.Stderr))
	return logger
}

// NewLogger returns the logger for a component.
// Loggers are cached per component and share one underlying logrus.Logger,
// so Configure affects loggers handed out before it was called.
func NewLogger(component string) *logrus.Entry {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	if logger, exists := loggers[component]; exists {
		return logger
	}

	entry := base.WithField("component", component)
	loggers[component] = entry
	return entry
}

// Configure applies level, format and output to the shared logger.
func Configure(opts Options) {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	base.SetOutput(out)

	level := resolveLevel(opts.Level)
	switch {
	case opts.Verbose:
		level = logrus.DebugLevel
	case opts.Quiet:
		level = logrus.ErrorLevel
	}
	base.SetLevel(level)

	switch strings.ToLower(opts.Format) {
	case "json":
		base.SetFormatter(&logrus.JSONFormatter{})
	default:
		base.SetFormatter(textFormatter(out))
	}
}

// Level reports the level of the shared logger.
func Level() logrus.Level {
	return base.GetLevel()
}

func resolveLevel(configured string) logrus.Level {
	levelStr := "info"
	if env := os.Getenv(EnvLogLevel); env != "" {
		levelStr = env
	} else if configured != "" {
		levelStr = configured
	}
	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}

func textFormatter(out io.Writer) *logrus.TextFormatter {
	colors := false
	if f, ok := out.(*os.File); ok {
		colors = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &logrus.TextFormatter{
		DisableColors:    !colors,
		FullTimestamp:    true,
		QuoteEmptyFields: true,
	}
}
