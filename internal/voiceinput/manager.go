package voiceinput

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// Static errors for Manager construction.
var (
	// ErrRecorderRequired is returned when no AudioRecorder is supplied.
	ErrRecorderRequired = errors.New("voiceinput: audio recorder is required")
	// ErrStoreRequired is returned when no TakeStore is supplied.
	ErrStoreRequired = errors.New("voiceinput: take store is required")
	// ErrInvalidLength is returned when the length limits are inconsistent.
	ErrInvalidLength = errors.New("voiceinput: max length must exceed a non-negative min length")
)

// Defaults for recording policy.
const (
	DefaultMinLength       = 2
	DefaultMaxLength       = 15
	DefaultCountdownWindow = 3
	DefaultSampleInterval  = 200 * time.Millisecond
)

// Option configures a Manager.
type Option func(*Manager)

// WithMinLength sets the minimum take length in seconds. Shorter takes are
// discarded instead of sent.
func WithMinLength(seconds int) Option {
	return func(m *Manager) {
		m.minLength = seconds
	}
}

// WithMaxLength sets the maximum take length in seconds. Recording stops
// on its own once it is reached.
func WithMaxLength(seconds int) Option {
	return func(m *Manager) {
		m.maxLength = seconds
	}
}

// WithCountdownWindow sets how many seconds before the maximum length the
// listener starts receiving OnExpireCountdown.
func WithCountdownWindow(seconds int) Option {
	return func(m *Manager) {
		if seconds >= 0 {
			m.countdownWindow = seconds
		}
	}
}

// WithSampleInterval sets the amplitude/progress sampling period.
func WithSampleInterval(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.sampleInterval = d
		}
	}
}

// WithRecordOptions sets the options passed to PrepareRecord. OutputFile is
// ignored; every take gets a fresh path from the TakeStore.
func WithRecordOptions(opts RecordOptions) Option {
	return func(m *Manager) {
		m.recordOpts = opts
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// Manager is the push-to-talk controller. It owns one live State, turns
// press/release signals into recorder work on background goroutines and
// reports every phase change to the EventListener.
//
// mu is the single guard for the phase; it is never held across recorder or
// listener calls. Recorder sequences (prepare/start and stop/send) are
// serialized by seq.
type Manager struct {
	logger          *slog.Logger
	store           TakeStore
	recordOpts      RecordOptions
	minLength       int
	maxLength       int
	countdownWindow int
	sampleInterval  time.Duration

	collabMu sync.RWMutex
	recorder AudioRecorder
	listener EventListener

	mu       sync.Mutex
	state    State
	epoch    uint64
	take     string
	tasks    *taskGroup
	sampler  *sampler
	teardown chan struct{}

	seq *semaphore.Weighted
}

type sampler struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a Manager in the Idle phase. A nil listener discards events.
func New(recorder AudioRecorder, store TakeStore, listener EventListener, opts ...Option) (*Manager, error) {
	if recorder == nil {
		return nil, ErrRecorderRequired
	}
	if store == nil {
		return nil, ErrStoreRequired
	}
	if listener == nil {
		listener = NopListener{}
	}

	m := &Manager{
		store:           store,
		recordOpts:      DefaultRecordOptions(),
		minLength:       DefaultMinLength,
		maxLength:       DefaultMaxLength,
		countdownWindow: DefaultCountdownWindow,
		sampleInterval:  DefaultSampleInterval,
		recorder:        recorder,
		listener:        listener,
		state:           Idle(),
		tasks:           newTaskGroup(),
		seq:             semaphore.NewWeighted(1),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	if m.minLength < 0 || m.maxLength <= m.minLength {
		return nil, fmt.Errorf("%w: min=%d max=%d", ErrInvalidLength, m.minLength, m.maxLength)
	}

	return m, nil
}

// Reconfigure swaps the recorder and listener. Nil arguments keep the
// current value. The phase and any running timers are left untouched.
func (m *Manager) Reconfigure(recorder AudioRecorder, listener EventListener) {
	m.collabMu.Lock()
	defer m.collabMu.Unlock()
	if recorder != nil {
		m.recorder = recorder
	}
	if listener != nil {
		m.listener = listener
	}
}

// State returns a snapshot of the current state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Phase returns the current phase.
func (m *Manager) Phase() Phase {
	return m.State().Phase()
}

// ToggleOn handles a press of the talk button. The press is applied to the
// phase before returning so that press/release order is preserved; recorder
// work runs in the background.
func (m *Manager) ToggleOn() {
	from, to, epoch := m.transition(SignalPressed)
	if from == PhaseIdle && to == PhasePreparing {
		m.spawn(func(ctx context.Context) error {
			return m.startRecordingSequence(ctx, epoch)
		})
	}
}

// ToggleOff handles a release of the talk button. A release while
// recording stops the take in the background. A release while preparing
// returns to Idle at once; the in-flight start sequence then releases the
// recorder and reports OnStopped. A release from Idle emits nothing.
func (m *Manager) ToggleOff() {
	from, to, epoch := m.transition(SignalReleased)
	if from == PhaseRecording && to == PhaseStopping {
		m.spawn(func(ctx context.Context) error {
			return m.stopRecordingSequence(ctx, epoch)
		})
	}
}

// Reset cancels all outstanding background work and timers and forces the
// phase to Idle without running a transition. A take that is recording or
// waiting to be stopped is stopped and discarded in the background, and the
// next press waits for that to finish. Calls already inside the recorder or
// listener are not interrupted, but their results are ignored.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetLocked()
}

// Close resets the manager and waits for background work to return.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	old := m.resetLocked()
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		_ = old.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("voiceinput: close: %w", ctx.Err())
	}
}

func (m *Manager) resetLocked() *taskGroup {
	old := m.tasks
	old.Cancel()
	if m.sampler != nil {
		m.sampler.cancel()
		m.sampler = nil
	}
	if m.take != "" && (m.state.Phase() == PhaseRecording || m.state.Phase() == PhaseStopping) {
		m.teardownLocked(old, m.take)
	}
	m.tasks = newTaskGroup()
	m.epoch++
	m.take = ""

	m.logger.Debug("phase reset", slog.String("before", m.state.String()))
	m.state = Idle()
	return old
}

// teardownLocked stops the recorder and discards file on old, which Close
// waits for. Takes still preparing are released by their own start sequence.
func (m *Manager) teardownLocked(old *taskGroup, file string) {
	done := make(chan struct{})
	m.teardown = done
	old.Go(func(ctx context.Context) error {
		defer close(done)
		recorder, _ := m.collaborators()
		seconds := recorder.StopRecord(context.WithoutCancel(ctx))
		m.discard(file)
		m.logger.Info("take dropped by reset",
			slog.String("file", file),
			slog.Int("seconds", seconds),
		)
		return nil
	})
}

// awaitTeardown blocks until the recorder is released by the latest reset.
func (m *Manager) awaitTeardown(ctx context.Context) error {
	m.mu.Lock()
	done := m.teardown
	m.mu.Unlock()
	if done == nil {
		return nil
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) collaborators() (AudioRecorder, EventListener) {
	m.collabMu.RLock()
	defer m.collabMu.RUnlock()
	return m.recorder, m.listener
}

// transition applies sig unconditionally. epoch identifies the session
// started by the most recent entry into Preparing.
func (m *Manager) transition(sig Signal) (from, to Phase, epoch uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transitionLocked(sig)
}

// transitionAt applies sig only while ctx is live and epoch is still the
// current session, so work superseded by Reset or a newer press never
// mutates the phase.
func (m *Manager) transitionAt(ctx context.Context, epoch uint64, sig Signal) (from, to Phase, next uint64, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ctx.Err() != nil || m.epoch != epoch {
		return m.state.Phase(), m.state.Phase(), m.epoch, false
	}
	from, to, next = m.transitionLocked(sig)
	return from, to, next, true
}

func (m *Manager) transitionLocked(sig Signal) (Phase, Phase, uint64) {
	before := m.state
	m.state = before.Apply(sig)
	if m.state.Phase() == PhasePreparing && before.Phase() != PhasePreparing {
		m.epoch++
	}

	m.logger.Debug("phase transition",
		slog.String("signal", sig.String()),
		slog.String("before", before.String()),
		slog.String("after", m.state.String()),
	)
	return before.Phase(), m.state.Phase(), m.epoch
}

func (m *Manager) inPhase(ctx context.Context, epoch uint64, p Phase) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return ctx.Err() == nil && m.epoch == epoch && m.state.Phase() == p
}

// spawn runs fn in the current task group.
func (m *Manager) spawn(fn func(ctx context.Context) error) {
	m.mu.Lock()
	tasks := m.tasks
	m.mu.Unlock()
	tasks.Go(fn)
}

// spawnIn runs fn in the task group that owns ctx, or not at all if that
// group has been cancelled.
func (m *Manager) spawnIn(ctx context.Context, fn func(ctx context.Context) error) {
	m.mu.Lock()
	if ctx.Err() != nil {
		m.mu.Unlock()
		return
	}
	tasks := m.tasks
	m.mu.Unlock()
	tasks.Go(fn)
}

func (m *Manager) setTake(epoch uint64, file string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.epoch == epoch {
		m.take = file
	}
}

// claimTake hands the take of a session in Stopping to the stop sequence.
// Once claimed, Reset no longer tears it down.
func (m *Manager) claimTake(ctx context.Context, epoch uint64) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ctx.Err() != nil || m.epoch != epoch || m.state.Phase() != PhaseStopping {
		return "", false
	}
	file := m.take
	m.take = ""
	return file, true
}

// startRecordingSequence prepares and starts the recorder for the session
// identified by epoch, then starts amplitude sampling.
func (m *Manager) startRecordingSequence(ctx context.Context, epoch uint64) error {
	if err := m.awaitTeardown(ctx); err != nil {
		return nil
	}
	if err := m.seq.Acquire(ctx, 1); err != nil {
		return nil
	}
	defer m.seq.Release(1)

	if !m.inPhase(ctx, epoch, PhasePreparing) {
		return nil
	}
	recorder, listener := m.collaborators()
	listener.OnPreparing()

	file, err := m.store.NewTakePath(m.recordOpts.Format.Extension())
	if err != nil {
		m.fail(ctx, epoch, "allocate take", err, "")
		return nil
	}
	m.setTake(epoch, file)

	opts := m.recordOpts
	opts.OutputFile = file
	if err := recorder.PrepareRecord(ctx, opts); err != nil {
		m.fail(ctx, epoch, "prepare record", err, file)
		return nil
	}
	if !m.inPhase(ctx, epoch, PhasePreparing) {
		m.abandon(ctx, recorder, listener, file)
		return nil
	}

	listener.OnPrepared()
	if err := recorder.StartRecord(ctx); err != nil {
		recorder.StopRecord(context.WithoutCancel(ctx))
		m.fail(ctx, epoch, "start record", err, file)
		return nil
	}

	_, to, _, ok := m.transitionAt(ctx, epoch, SignalElapsed)
	if !ok || to != PhaseRecording {
		m.abandon(ctx, recorder, listener, file)
		return nil
	}

	m.logger.Info("recording started", slog.String("file", file))
	m.startSampling(ctx, epoch)
	return nil
}

// fail handles a recorder setup failure. The take is dropped and the phase
// is forced back to Idle, unless the session was already superseded.
func (m *Manager) fail(ctx context.Context, epoch uint64, op string, err error, file string) {
	m.logger.Warn("recording setup failed",
		slog.String("op", op),
		slog.String("error", err.Error()),
	)
	if file != "" {
		m.discard(file)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if ctx.Err() == nil && m.epoch == epoch {
		m.resetLocked()
	}
}

// abandon releases a take whose press was withdrawn before recording
// began, balancing the earlier OnPreparing with OnStopped.
func (m *Manager) abandon(ctx context.Context, recorder AudioRecorder, listener EventListener, file string) {
	recorder.StopRecord(context.WithoutCancel(ctx))
	m.discard(file)
	m.logger.Info("take abandoned before recording", slog.String("file", file))
	if ctx.Err() == nil {
		listener.OnStopped()
	}
}

func (m *Manager) discard(file string) {
	if file == "" {
		return
	}
	if err := m.store.Discard(context.Background(), file); err != nil {
		m.logger.Warn("failed to discard take",
			slog.String("file", file),
			slog.String("error", err.Error()),
		)
	}
}

func (m *Manager) startSampling(ctx context.Context, epoch uint64) {
	sctx, cancel := context.WithCancel(ctx)
	s := &sampler{cancel: cancel, done: make(chan struct{})}

	m.mu.Lock()
	if ctx.Err() != nil || m.epoch != epoch {
		m.mu.Unlock()
		cancel()
		return
	}
	m.sampler = s
	tasks := m.tasks
	m.mu.Unlock()

	tasks.Go(func(context.Context) error {
		return m.sample(sctx, ctx, epoch, s)
	})
}

// sample polls amplitude and progress every sample interval until it is
// cancelled or the maximum length is reached. parent is the session
// context used to launch the stop sequence on timeout.
func (m *Manager) sample(ctx, parent context.Context, epoch uint64, s *sampler) error {
	defer close(s.done)

	ticker := time.NewTicker(m.sampleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		recorder, listener := m.collaborators()
		listener.OnAmplitudeChanged(Level(recorder.MaxAmplitude()))

		progress := recorder.Progress()
		if progress < m.maxLength-m.countdownWindow {
			continue
		}
		listener.OnExpireCountdown(max(m.maxLength-progress, 0))
		if progress < m.maxLength {
			continue
		}

		from, to, _, ok := m.transitionAt(parent, epoch, SignalTimeout)
		if ok && from == PhaseRecording && to == PhaseStopping {
			m.logger.Info("maximum recording length reached",
				slog.Int("max_length", m.maxLength),
			)
			m.spawnIn(parent, func(ctx context.Context) error {
				return m.stopRecordingSequence(ctx, epoch)
			})
		}
		return nil
	}
}

// stopSampling cancels the sampling loop and waits for it to exit, so no
// amplitude event can follow OnStopped.
func (m *Manager) stopSampling() {
	m.mu.Lock()
	s := m.sampler
	m.sampler = nil
	m.mu.Unlock()

	if s == nil {
		return
	}
	s.cancel()
	<-s.done
}

// stopRecordingSequence stops the recorder, sends or discards the take,
// and replays a press that arrived while sending.
func (m *Manager) stopRecordingSequence(ctx context.Context, epoch uint64) error {
	if err := m.seq.Acquire(ctx, 1); err != nil {
		return nil
	}
	replay, next := m.finishTake(ctx, epoch)
	m.seq.Release(1)

	if replay {
		return m.startRecordingSequence(ctx, next)
	}
	return nil
}

func (m *Manager) finishTake(ctx context.Context, epoch uint64) (replay bool, next uint64) {
	file, ok := m.claimTake(ctx, epoch)
	if !ok {
		return false, 0
	}
	m.stopSampling()

	recorder, listener := m.collaborators()
	seconds := recorder.StopRecord(context.WithoutCancel(ctx))
	listener.OnStopped()

	if seconds < m.minLength {
		m.transitionAt(ctx, epoch, SignalQuickReleased)
		m.logger.Info("take shorter than minimum length, discarded",
			slog.String("file", file),
			slog.Int("seconds", seconds),
			slog.Int("min_length", m.minLength),
		)
		m.discard(file)
		return false, 0
	}

	if _, to, _, ok := m.transitionAt(ctx, epoch, SignalElapsed); !ok || to != PhaseSending {
		m.discard(file)
		return false, 0
	}
	m.logger.Info("sending take",
		slog.String("file", file),
		slog.Int("seconds", seconds),
	)
	listener.OnSend(file, seconds)

	_, to, next, ok := m.transitionAt(ctx, epoch, SignalElapsed)
	return ok && to == PhasePreparing, next
}
