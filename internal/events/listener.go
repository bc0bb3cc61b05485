package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/maauso/pushtotalk/internal/voiceinput"
)

// DefaultPublishTimeout bounds each sink publish.
const DefaultPublishTimeout = 2 * time.Second

var _ voiceinput.EventListener = (*Listener)(nil)

// Listener implements voiceinput.EventListener by publishing an Event to
// every sink. Sink failures are logged and never reach the caller.
type Listener struct {
	sinks   []Sink
	logger  *slog.Logger
	now     func() time.Time
	timeout time.Duration
}

// ListenerOption configures a Listener.
type ListenerOption func(*Listener)

// WithClock sets the time source for Event.At.
func WithClock(now func() time.Time) ListenerOption {
	return func(l *Listener) {
		if now != nil {
			l.now = now
		}
	}
}

// WithPublishTimeout bounds each sink publish.
func WithPublishTimeout(d time.Duration) ListenerOption {
	return func(l *Listener) {
		if d > 0 {
			l.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ListenerOption {
	return func(l *Listener) {
		l.logger = logger
	}
}

// NewListener creates a Listener publishing to sinks in order.
func NewListener(sinks []Sink, opts ...ListenerOption) *Listener {
	l := &Listener{
		sinks:   sinks,
		now:     time.Now,
		timeout: DefaultPublishTimeout,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	return l
}

func (l *Listener) OnPreparing() { l.publish(Event{Type: TypePreparing}) }
func (l *Listener) OnPrepared()  { l.publish(Event{Type: TypePrepared}) }
func (l *Listener) OnStopped()   { l.publish(Event{Type: TypeStopped}) }

// OnSend publishes the finished take synchronously.
func (l *Listener) OnSend(file string, durationSeconds int) {
	l.publish(Event{Type: TypeSend, File: file, Duration: durationSeconds})
}

func (l *Listener) OnAmplitudeChanged(level int) {
	l.publish(Event{Type: TypeAmplitude, Level: &level})
}

func (l *Listener) OnExpireCountdown(secondsRemaining int) {
	l.publish(Event{Type: TypeCountdown, Remaining: &secondsRemaining})
}

func (l *Listener) publish(e Event) {
	e.At = l.now()
	for _, sink := range l.sinks {
		ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
		err := sink.Publish(ctx, e)
		cancel()
		if err != nil {
			l.logger.Warn("failed to publish event",
				slog.String("type", string(e.Type)),
				slog.String("error", err.Error()),
			)
		}
	}
}
