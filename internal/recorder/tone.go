package recorder

import (
	"context"
	"math"
	"sync"
	"time"
)

// DefaultToneLevel is the tone amplitude as a fraction of full scale.
const DefaultToneLevel = 0.5

const fullScale = math.MaxInt16

// ToneSource generates a sine tone paced in real time, standing in for a
// capture device where none is available.
type ToneSource struct {
	freq     float64
	level    float64
	realtime bool

	mu    sync.Mutex
	phase float64
}

// ToneOption configures a ToneSource.
type ToneOption func(*ToneSource)

// WithToneLevel sets the amplitude as a fraction of full scale, clamped to [0, 1].
func WithToneLevel(level float64) ToneOption {
	return func(s *ToneSource) {
		s.level = min(max(level, 0), 1)
	}
}

// WithoutPacing makes Read return immediately instead of waiting for the
// samples' playback duration.
func WithoutPacing() ToneOption {
	return func(s *ToneSource) {
		s.realtime = false
	}
}

// NewToneSource creates a ToneSource at freqHz.
func NewToneSource(freqHz float64, opts ...ToneOption) *ToneSource {
	s := &ToneSource{
		freq:     freqHz,
		level:    DefaultToneLevel,
		realtime: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Read fills buf with the next len(buf) samples of the tone.
func (s *ToneSource) Read(ctx context.Context, buf []int, sampleRate int) (int, error) {
	if sampleRate <= 0 || len(buf) == 0 {
		return 0, ctx.Err()
	}

	if s.realtime {
		timer := time.NewTimer(time.Duration(len(buf)) * time.Second / time.Duration(sampleRate))
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	step := 2 * math.Pi * s.freq / float64(sampleRate)
	amp := s.level * fullScale
	for i := range buf {
		buf[i] = int(amp * math.Sin(s.phase))
		s.phase = math.Mod(s.phase+step, 2*math.Pi)
	}
	return len(buf), nil
}
