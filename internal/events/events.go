// Package events turns voice input callbacks into Event values and fans
// them out to sinks such as the log, Redis pub/sub and websocket clients.
package events

import (
	"context"
	"time"
)

// Type identifies a lifecycle event.
type Type string

// Event types, one per listener callback.
const (
	TypePreparing Type = "preparing"
	TypePrepared  Type = "prepared"
	TypeStopped   Type = "stopped"
	TypeSend      Type = "send"
	TypeAmplitude Type = "amplitude"
	TypeCountdown Type = "countdown"
)

// Event is the wire form of a lifecycle notification.
type Event struct {
	Type Type `json:"type"`
	// Level is set for amplitude events.
	Level *int `json:"level,omitempty"`
	// Remaining is set for countdown events.
	Remaining *int `json:"remaining,omitempty"`
	// File and Duration are set for send events.
	File     string    `json:"file,omitempty"`
	Duration int       `json:"duration,omitempty"`
	At       time.Time `json:"at"`
}

// Sink receives published events.
type Sink interface {
	Publish(ctx context.Context, e Event) error
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(ctx context.Context, e Event) error

// Publish calls f.
func (f SinkFunc) Publish(ctx context.Context, e Event) error {
	return f(ctx, e)
}
