package recorder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/maauso/pushtotalk/internal/voiceinput"
)

const (
	bitDepth    = 16
	numChannels = 1
	pcmFormat   = 1
)

var _ voiceinput.AudioRecorder = (*WAVRecorder)(nil)

// WAVRecorder captures samples from a Source into a WAV file. One take is
// active at a time; PrepareRecord releases any previous take first.
type WAVRecorder struct {
	source    Source
	logger    *slog.Logger
	now       func() time.Time
	frameSize int

	mu      sync.Mutex
	take    *take
	peak    atomic.Int64
	started atomic.Int64
}

// take holds the resources of one prepared recording.
type take struct {
	file       *os.File
	enc        *wav.Encoder
	sampleRate int
	startedAt  time.Time

	cancel  context.CancelFunc
	done    chan struct{}
	samples atomic.Int64
}

// NewWAVRecorder creates a recorder reading from source.
func NewWAVRecorder(source Source, opts ...Option) *WAVRecorder {
	r := &WAVRecorder{
		source:    source,
		now:       time.Now,
		frameSize: DefaultFrameSize,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// PrepareRecord creates opts.OutputFile and readies a WAV encoder for it.
func (r *WAVRecorder) PrepareRecord(ctx context.Context, opts voiceinput.RecordOptions) error {
	if opts.Format != voiceinput.FormatWAV || (opts.Encoder != "" && opts.Encoder != voiceinput.EncoderPCM) {
		return fmt.Errorf("%w: %s/%s", ErrUnsupportedFormat, opts.Format, opts.Encoder)
	}
	if opts.OutputFile == "" {
		return ErrNoOutputFile
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.releaseLocked()

	sampleRate := opts.SampleRate
	if sampleRate <= 0 {
		sampleRate = voiceinput.DefaultSampleRate
	}

	f, err := os.Create(opts.OutputFile) // #nosec G304 - path comes from the take store
	if err != nil {
		return fmt.Errorf("create take file: %w", err)
	}

	r.take = &take{
		file:       f,
		enc:        wav.NewEncoder(f, sampleRate, bitDepth, numChannels, pcmFormat),
		sampleRate: sampleRate,
	}
	r.peak.Store(0)
	return nil
}

// StartRecord begins capturing from the Source on a background goroutine.
func (r *WAVRecorder) StartRecord(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t := r.take
	if t == nil {
		return ErrNotPrepared
	}
	if t.done != nil {
		return ErrAlreadyStarted
	}

	// Capture outlives the caller's context; only StopRecord ends it.
	cctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	t.cancel = cancel
	t.done = make(chan struct{})
	t.startedAt = r.now()
	r.started.Store(t.startedAt.UnixNano())

	go r.capture(cctx, t)
	return nil
}

func (r *WAVRecorder) capture(ctx context.Context, t *take) {
	defer close(t.done)

	buf := make([]int, r.frameSize)
	for {
		n, err := r.source.Read(ctx, buf, t.sampleRate)
		if n > 0 {
			r.trackPeak(buf[:n])
			werr := t.enc.Write(&audio.IntBuffer{
				Format: &audio.Format{
					NumChannels: numChannels,
					SampleRate:  t.sampleRate,
				},
				Data:           buf[:n],
				SourceBitDepth: bitDepth,
			})
			if werr != nil {
				r.logger.Error("failed to write samples",
					slog.String("file", t.file.Name()),
					slog.String("error", werr.Error()),
				)
				return
			}
			t.samples.Add(int64(n))
		}
		if err != nil {
			if ctx.Err() == nil {
				r.logger.Warn("audio source failed",
					slog.String("error", err.Error()),
				)
			}
			return
		}
	}
}

func (r *WAVRecorder) trackPeak(samples []int) {
	var peak int64
	for _, s := range samples {
		v := int64(s)
		if v < 0 {
			v = -v
		}
		if v > peak {
			peak = v
		}
	}
	for {
		cur := r.peak.Load()
		if peak <= cur || r.peak.CompareAndSwap(cur, peak) {
			return
		}
	}
}

// StopRecord ends capture, finalizes the WAV header and returns the take
// length in whole seconds, or voiceinput.NoAudio if no samples were captured.
func (r *WAVRecorder) StopRecord(_ context.Context) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.releaseLocked()
}

func (r *WAVRecorder) releaseLocked() int {
	t := r.take
	if t == nil {
		return voiceinput.NoAudio
	}
	r.take = nil
	r.started.Store(0)

	seconds := voiceinput.NoAudio
	if t.done != nil {
		t.cancel()
		<-t.done
		if t.samples.Load() > 0 {
			seconds = int(r.now().Sub(t.startedAt) / time.Second)
		}
	}

	if err := t.enc.Close(); err != nil {
		r.logger.Warn("failed to finalize take",
			slog.String("file", t.file.Name()),
			slog.String("error", err.Error()),
		)
	}
	if err := t.file.Close(); err != nil {
		r.logger.Warn("failed to close take",
			slog.String("file", t.file.Name()),
			slog.String("error", err.Error()),
		)
	}
	return seconds
}

// Progress returns whole seconds since StartRecord, or 0 when not recording.
func (r *WAVRecorder) Progress() int {
	started := r.started.Load()
	if started == 0 {
		return 0
	}
	return int(r.now().Sub(time.Unix(0, started)) / time.Second)
}

// MaxAmplitude returns the peak absolute sample since the previous call.
func (r *WAVRecorder) MaxAmplitude() int {
	return int(r.peak.Swap(0))
}

// Close releases the current take, if any.
func (r *WAVRecorder) Close() error {
	r.StopRecord(context.Background())
	return nil
}
