package voiceinput

import "context"

// NoAudio is returned by AudioRecorder.StopRecord when nothing was recorded.
const NoAudio = -1

// AudioSource selects the capture device.
type AudioSource int

const (
	// SourceDefault lets the recorder pick its default input.
	SourceDefault AudioSource = iota
	// SourceMic captures from the microphone.
	SourceMic
)

// OutputFormat selects the container written by the recorder.
type OutputFormat string

const (
	// FormatWAV writes a RIFF/WAVE file.
	FormatWAV OutputFormat = "wav"
	// FormatMPEG4 writes an MPEG-4 audio file.
	FormatMPEG4 OutputFormat = "m4a"
)

// Extension returns the file extension for the format, including the dot.
func (f OutputFormat) Extension() string {
	if f == "" {
		return ""
	}
	return "." + string(f)
}

// AudioEncoder selects the codec used by the recorder.
type AudioEncoder string

const (
	// EncoderPCM stores uncompressed 16-bit PCM.
	EncoderPCM AudioEncoder = "pcm"
	// EncoderAAC compresses with AAC.
	EncoderAAC AudioEncoder = "aac"
)

// Recording defaults.
const (
	DefaultSampleRate = 8000
	DefaultBitRate    = 16000
)

// RecordOptions configures one take.
type RecordOptions struct {
	Source     AudioSource
	Format     OutputFormat
	Encoder    AudioEncoder
	SampleRate int
	BitRate    int
	// OutputFile is filled in by the Manager for every take.
	OutputFile string
}

// DefaultRecordOptions returns mono microphone capture to 16-bit PCM WAV at 8kHz.
func DefaultRecordOptions() RecordOptions {
	return RecordOptions{
		Source:     SourceMic,
		Format:     FormatWAV,
		Encoder:    EncoderPCM,
		SampleRate: DefaultSampleRate,
		BitRate:    DefaultBitRate,
	}
}

// AudioRecorder is the recording capability driven by the Manager.
// Implementations must be safe for concurrent use: amplitude and progress
// are sampled from a different goroutine than prepare/start/stop.
type AudioRecorder interface {
	// PrepareRecord readies the device to write opts.OutputFile.
	PrepareRecord(ctx context.Context, opts RecordOptions) error
	// StartRecord begins capture. It requires a prior successful PrepareRecord.
	StartRecord(ctx context.Context) error
	// StopRecord ends capture and returns the take length in whole seconds,
	// or NoAudio when nothing was recorded.
	StopRecord(ctx context.Context) int
	// Progress returns whole seconds elapsed since StartRecord, 0 when idle.
	Progress() int
	// MaxAmplitude returns the raw peak amplitude since the previous call.
	MaxAmplitude() int
}

// EventListener receives lifecycle notifications. All methods are called
// from background goroutines, never from the goroutine calling ToggleOn or
// ToggleOff.
type EventListener interface {
	OnPreparing()
	OnPrepared()
	OnStopped()
	// OnSend hands over a finished take. The Manager waits for it to return
	// before resolving a pending press, so it should deliver the take
	// synchronously. It must not fail: there is no recovery path, and a call
	// that never returns stalls the controller until Reset.
	OnSend(file string, durationSeconds int)
	// OnAmplitudeChanged reports a volume level in [0, AmplitudeMaxLevel].
	OnAmplitudeChanged(level int)
	// OnExpireCountdown reports the seconds left before the maximum length.
	OnExpireCountdown(secondsRemaining int)
}

// TakeStore allocates take files and removes dropped ones.
type TakeStore interface {
	NewTakePath(ext string) (string, error)
	Discard(ctx context.Context, paths ...string) error
}

// NopListener ignores every event.
type NopListener struct{}

func (NopListener) OnPreparing()           {}
func (NopListener) OnPrepared()            {}
func (NopListener) OnStopped()             {}
func (NopListener) OnSend(string, int)     {}
func (NopListener) OnAmplitudeChanged(int) {}
func (NopListener) OnExpireCountdown(int)  {}
