package events

import (
	"context"
	"log/slog"
)

// LogSink writes events to a structured logger. Amplitude and countdown
// events are logged at debug level, the rest at info.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a LogSink. A nil logger uses slog.Default().
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

// Publish logs e.
func (s *LogSink) Publish(ctx context.Context, e Event) error {
	attrs := []slog.Attr{slog.String("type", string(e.Type))}
	level := slog.LevelInfo

	switch e.Type {
	case TypeAmplitude:
		level = slog.LevelDebug
		if e.Level != nil {
			attrs = append(attrs, slog.Int("level", *e.Level))
		}
	case TypeCountdown:
		level = slog.LevelDebug
		if e.Remaining != nil {
			attrs = append(attrs, slog.Int("remaining", *e.Remaining))
		}
	case TypeSend:
		attrs = append(attrs,
			slog.String("file", e.File),
			slog.Int("duration", e.Duration),
		)
	}

	s.logger.LogAttrs(ctx, level, "voice input event", attrs...)
	return nil
}
