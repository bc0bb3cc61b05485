// Package recorder provides AudioRecorder implementations that capture
// 16-bit mono PCM from a Source into WAV takes.
package recorder

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Static errors for recorder operations.
var (
	// ErrNotPrepared is returned by StartRecord without a successful PrepareRecord.
	ErrNotPrepared = errors.New("recorder: not prepared")
	// ErrAlreadyStarted is returned by StartRecord while capture is running.
	ErrAlreadyStarted = errors.New("recorder: already started")
	// ErrUnsupportedFormat is returned for formats other than PCM in WAV.
	ErrUnsupportedFormat = errors.New("recorder: unsupported output format")
	// ErrNoOutputFile is returned when RecordOptions.OutputFile is empty.
	ErrNoOutputFile = errors.New("recorder: output file is required")
)

// DefaultFrameSize is the number of samples read from a Source per call.
const DefaultFrameSize = 800

// Source produces mono 16-bit PCM samples. Read fills buf with samples at
// sampleRate and returns how many were written. It returns ctx.Err() once
// ctx is cancelled.
type Source interface {
	Read(ctx context.Context, buf []int, sampleRate int) (int, error)
}

// Option configures a WAVRecorder.
type Option func(*WAVRecorder)

// WithClock sets the time source used for progress and take length.
func WithClock(now func() time.Time) Option {
	return func(r *WAVRecorder) {
		if now != nil {
			r.now = now
		}
	}
}

// WithFrameSize sets how many samples are read from the Source at a time.
func WithFrameSize(n int) Option {
	return func(r *WAVRecorder) {
		if n > 0 {
			r.frameSize = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *WAVRecorder) {
		r.logger = logger
	}
}
