package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// HandlerName is the instrumentation scope used by the otelslog bridge
const HandlerName = "mapkit"

// stdout is swapped in tests
var stdout io.Writer = os.Stdout

// Options configures Setup.
type Options struct {
	// File receives a text copy of every record. Console output is used when nil.
	File     io.Writer
	Level    string
	Provider *sdklog.LoggerProvider
	// Context is evaluated per record, e.g. to stamp the current zoom level
	Context ContextProvider
}

// SlogManager owns the process logger and the OTel log provider backing it.
type SlogManager struct {
	logger      *slog.Logger
	level       slog.Level
	logProvider *sdklog.LoggerProvider
}

func NewSlogManager() *SlogManager {
	return &SlogManager{}
}

func parseLevel(level string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func handlerOptions(lvl slog.Level) *slog.HandlerOptions {
	return &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.UTC().Format(time.RFC3339))
				}
			}
			return a
		},
	}
}

// Setup replaces the managed logger. The file handler and the console handler
// are exclusive; the OTel bridge is added whenever a provider is given.
func (m *SlogManager) Setup(opts Options) *slog.Logger {
	m.level = parseLevel(opts.Level)
	m.logProvider = opts.Provider

	out := opts.File
	if out == nil {
		out = stdout
	}
	handlers := []slog.Handler{slog.NewTextHandler(out, handlerOptions(m.level))}
	if opts.Provider != nil {
		handlers = append(handlers, otelslog.NewHandler(HandlerName, otelslog.WithLoggerProvider(opts.Provider)))
	}

	var h slog.Handler = NewMultiHandler(handlers...)
	if opts.Context != nil {
		h = NewContextHandler(h, opts.Context)
	}

	m.logger = slog.New(h)
	m.logger.Debug("logging initialized", "level", m.level.String())
	return m.logger
}

// Logger returns the configured logger, or slog.Default before Setup.
func (m *SlogManager) Logger() *slog.Logger {
	if m.logger == nil {
		return slog.Default()
	}
	return m.logger
}

// Level reports the level Setup was called with.
func (m *SlogManager) Level() slog.Level {
	return m.level
}

// Component returns a child logger tagged with a component attribute.
func (m *SlogManager) Component(name string) *slog.Logger {
	return m.Logger().With("component", name)
}

// Flush forces a flush of OTel logs if available.
func (m *SlogManager) Flush(ctx context.Context) error {
	if m.logProvider != nil {
		return m.logProvider.ForceFlush(ctx)
	}
	return nil
}
