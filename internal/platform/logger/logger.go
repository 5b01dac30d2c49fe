// Package logger provides the process-wide zerolog logger. Logs go to
// stderr so they never mix with command output on stdout.
package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

// EnvLevel names the environment variable that sets the log level.
const EnvLevel = "AUTOCI_LOG_LEVEL"

// Options configures the logger.
type Options struct {
	Level     string
	Format    string // "console" or "json"; empty picks by terminal
	Component string
	Writer    io.Writer
}

// FromEnv builds Options from the environment.
func FromEnv() Options {
	return Options{Level: os.Getenv(EnvLevel)}
}

var (
	once   sync.Once
	root   atomic.Pointer[zerolog.Logger]
	inited atomic.Bool
)

// Logger is the project-wide logging type.
type Logger = zerolog.Logger

// Get returns the root logger, initializing it from the environment on
// first use.
func Get() *Logger {
	if !inited.Load() {
		Init(FromEnv())
	}
	return root.Load()
}

// Init builds the root logger. Only the first call has an effect.
func Init(opt Options) {
	once.Do(func() {
		zerolog.TimeFieldFormat = time.RFC3339Nano

		var w io.Writer = os.Stderr
		if opt.Writer != nil {
			w = opt.Writer
		}
		format := strings.ToLower(opt.Format)
		if format == "" {
			format = "json"
			if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
				format = "console"
			}
		}
		if format == "console" {
			w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
		}

		ctx := zerolog.New(w).Level(parseLevel(opt.Level)).With().Timestamp()
		if opt.Component != "" {
			ctx = ctx.Str("component", opt.Component)
		}
		log := ctx.Logger()

		root.Store(&log)
		inited.Store(true)
	})
}

// parseLevel maps a level name onto zerolog; anything unknown is warn.
func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "error":
		return zerolog.ErrorLevel
	case "off", "disabled":
		return zerolog.Disabled
	default:
		return zerolog.WarnLevel
	}
}

// Named returns a child logger with a component field.
func Named(component string) *Logger {
	if component == "" {
		return Get()
	}
	l := Get().With().Str("component", component).Logger()
	return &l
}
