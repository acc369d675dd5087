package logging

import (
	"context"
	"log/slog"

	"github.com/rs/zerolog"
)

// ZerologEvents adapts a zerolog.Logger to the events.Logger interface.
type ZerologEvents struct {
	logger zerolog.Logger
}

func NewZerologEvents(logger zerolog.Logger) *ZerologEvents {
	return &ZerologEvents{logger: logger}
}

func (l *ZerologEvents) Debug(msg string, keysAndValues ...any) {
	l.logger.Debug().Fields(toFields(keysAndValues)).Msg(msg)
}

func (l *ZerologEvents) Info(msg string, keysAndValues ...any) {
	l.logger.Info().Fields(toFields(keysAndValues)).Msg(msg)
}

func (l *ZerologEvents) Error(msg string, keysAndValues ...any) {
	l.logger.Error().Fields(toFields(keysAndValues)).Msg(msg)
}

// toFields drops pairs whose key is not a string, and a trailing odd value.
func toFields(keysAndValues []any) map[string]any {
	fields := make(map[string]any, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		if key, ok := keysAndValues[i].(string); ok {
			fields[key] = keysAndValues[i+1]
		}
	}
	return fields
}

// SlogEvents adapts a *slog.Logger to the events.Logger interface.
type SlogEvents struct {
	logger *slog.Logger
}

// NewSlogEvents falls back to slog.Default for a nil logger.
func NewSlogEvents(logger *slog.Logger) *SlogEvents {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogEvents{logger: logger.With("component", "events")}
}

func (l *SlogEvents) Debug(msg string, keysAndValues ...any) {
	l.logger.Log(context.Background(), slog.LevelDebug, msg, keysAndValues...)
}

func (l *SlogEvents) Info(msg string, keysAndValues ...any) {
	l.logger.Log(context.Background(), slog.LevelInfo, msg, keysAndValues...)
}

func (l *SlogEvents) Error(msg string, keysAndValues ...any) {
	l.logger.Log(context.Background(), slog.LevelError, msg, keysAndValues...)
}
