package voiceinput

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = 2 * time.Second
	tick    = 2 * time.Millisecond
)

// fakeRecorder implements AudioRecorder. Progress and amplitude are driven
// by the test through atomics since the sampler polls them continuously.
type fakeRecorder struct {
	mock.Mock
	progress  atomic.Int64
	amplitude atomic.Int64
}

func (r *fakeRecorder) PrepareRecord(ctx context.Context, opts RecordOptions) error {
	return r.Called(ctx, opts).Error(0)
}

func (r *fakeRecorder) StartRecord(ctx context.Context) error {
	return r.Called(ctx).Error(0)
}

func (r *fakeRecorder) StopRecord(ctx context.Context) int {
	return r.Called(ctx).Int(0)
}

func (r *fakeRecorder) Progress() int     { return int(r.progress.Load()) }
func (r *fakeRecorder) MaxAmplitude() int { return int(r.amplitude.Load()) }

type sentTake struct {
	file    string
	seconds int
}

// fakeListener records lifecycle events in order. OnSend blocks on gate
// when one is installed.
type fakeListener struct {
	mu         sync.Mutex
	events     []string
	levels     []int
	countdowns []int
	sent       []sentTake

	gate    chan struct{}
	entered chan struct{}
}

func newFakeListener() *fakeListener {
	return &fakeListener{entered: make(chan struct{}, 8)}
}

func (l *fakeListener) blockSend() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.gate = make(chan struct{})
}

func (l *fakeListener) unblockSend() {
	l.mu.Lock()
	gate := l.gate
	l.gate = nil
	l.mu.Unlock()
	if gate != nil {
		close(gate)
	}
}

func (l *fakeListener) record(event string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
}

func (l *fakeListener) OnPreparing() { l.record("preparing") }
func (l *fakeListener) OnPrepared()  { l.record("prepared") }
func (l *fakeListener) OnStopped()   { l.record("stopped") }

func (l *fakeListener) OnSend(file string, seconds int) {
	l.mu.Lock()
	l.events = append(l.events, "send")
	l.sent = append(l.sent, sentTake{file: file, seconds: seconds})
	gate := l.gate
	l.mu.Unlock()

	l.entered <- struct{}{}
	if gate != nil {
		<-gate
	}
}

func (l *fakeListener) OnAmplitudeChanged(level int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.levels = append(l.levels, level)
}

func (l *fakeListener) OnExpireCountdown(seconds int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.countdowns = append(l.countdowns, seconds)
}

func (l *fakeListener) Events() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.events)
}

func (l *fakeListener) Sent() []sentTake {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.sent)
}

func (l *fakeListener) Levels() []int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.levels)
}

func (l *fakeListener) Countdowns() []int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.countdowns)
}

// fakeStore implements TakeStore with predictable paths.
type fakeStore struct {
	dir string
	err error

	mu        sync.Mutex
	n         int
	discarded []string
}

func (s *fakeStore) NewTakePath(ext string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return filepath.Join(s.dir, fmt.Sprintf("take-%d%s", s.n, ext)), nil
}

func (s *fakeStore) Discard(_ context.Context, paths ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.discarded = append(s.discarded, paths...)
	return nil
}

func (s *fakeStore) Discarded() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.discarded)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestManager(t *testing.T, rec *fakeRecorder, lis *fakeListener, opts ...Option) (*Manager, *fakeStore) {
	t.Helper()
	store := &fakeStore{dir: t.TempDir()}
	opts = append([]Option{
		WithSampleInterval(5 * time.Millisecond),
		WithLogger(testLogger()),
	}, opts...)

	m, err := New(rec, store, lis, opts...)
	require.NoError(t, err)

	t.Cleanup(func() {
		lis.unblockSend()
		ctx, cancel := context.WithTimeout(context.Background(), waitFor)
		defer cancel()
		assert.NoError(t, m.Close(ctx))
	})
	return m, store
}

func waitPhase(t *testing.T, m *Manager, want Phase) {
	t.Helper()
	require.Eventually(t, func() bool {
		return m.Phase() == want
	}, waitFor, tick, "phase never reached %s, last %s", want, m.State())
}

func waitSendEntered(t *testing.T, lis *fakeListener) {
	t.Helper()
	select {
	case <-lis.entered:
	case <-time.After(waitFor):
		t.Fatal("OnSend was never called")
	}
}

func TestNew(t *testing.T) {
	store := &fakeStore{dir: t.TempDir()}

	t.Run("requires recorder", func(t *testing.T) {
		_, err := New(nil, store, nil)
		assert.ErrorIs(t, err, ErrRecorderRequired)
	})

	t.Run("requires store", func(t *testing.T) {
		_, err := New(&fakeRecorder{}, nil, nil)
		assert.ErrorIs(t, err, ErrStoreRequired)
	})

	t.Run("rejects max not above min", func(t *testing.T) {
		_, err := New(&fakeRecorder{}, store, nil, WithMinLength(5), WithMaxLength(5))
		assert.ErrorIs(t, err, ErrInvalidLength)
	})

	t.Run("rejects negative min", func(t *testing.T) {
		_, err := New(&fakeRecorder{}, store, nil, WithMinLength(-1))
		assert.ErrorIs(t, err, ErrInvalidLength)
	})

	t.Run("defaults", func(t *testing.T) {
		m, err := New(&fakeRecorder{}, store, nil)
		require.NoError(t, err)

		assert.Equal(t, PhaseIdle, m.Phase())
		assert.Equal(t, DefaultMinLength, m.minLength)
		assert.Equal(t, DefaultMaxLength, m.maxLength)
		assert.Equal(t, DefaultSampleInterval, m.sampleInterval)
		assert.Equal(t, DefaultRecordOptions(), m.recordOpts)
		assert.IsType(t, NopListener{}, m.listener)
		assert.NotNil(t, m.logger)
	})

	t.Run("ignores non-positive sample interval", func(t *testing.T) {
		m, err := New(&fakeRecorder{}, store, nil, WithSampleInterval(0))
		require.NoError(t, err)
		assert.Equal(t, DefaultSampleInterval, m.sampleInterval)
	})
}

func TestManager_NormalTake(t *testing.T) {
	rec := &fakeRecorder{}
	rec.On("PrepareRecord", mock.Anything, mock.Anything).Return(nil)
	rec.On("StartRecord", mock.Anything).Return(nil)
	rec.On("StopRecord", mock.Anything).Return(5)
	lis := newFakeListener()
	m, store := newTestManager(t, rec, lis)

	rec.amplitude.Store(8192)
	m.ToggleOn()
	assert.Equal(t, PhasePreparing, m.Phase())

	waitPhase(t, m, PhaseRecording)
	require.Eventually(t, func() bool { return len(lis.Levels()) > 0 }, waitFor, tick)

	m.ToggleOff()
	waitSendEntered(t, lis)
	waitPhase(t, m, PhaseIdle)

	assert.Equal(t, []string{"preparing", "prepared", "stopped", "send"}, lis.Events())
	require.Len(t, lis.Sent(), 1)
	assert.Equal(t, filepath.Join(store.dir, "take-1.wav"), lis.Sent()[0].file)
	assert.Equal(t, 5, lis.Sent()[0].seconds)
	assert.Contains(t, lis.Levels(), 4)
	assert.Empty(t, lis.Countdowns())
	assert.Empty(t, store.Discarded())

	rec.AssertNumberOfCalls(t, "PrepareRecord", 1)
	rec.AssertNumberOfCalls(t, "StopRecord", 1)
	opts := rec.Calls[0].Arguments.Get(1).(RecordOptions)
	assert.Equal(t, FormatWAV, opts.Format)
	assert.Equal(t, lis.Sent()[0].file, opts.OutputFile)
}

func TestManager_ExpireCountdown(t *testing.T) {
	rec := &fakeRecorder{}
	rec.On("PrepareRecord", mock.Anything, mock.Anything).Return(nil)
	rec.On("StartRecord", mock.Anything).Return(nil)
	rec.On("StopRecord", mock.Anything).Return(14)
	lis := newFakeListener()
	m, _ := newTestManager(t, rec, lis)

	m.ToggleOn()
	waitPhase(t, m, PhaseRecording)

	rec.progress.Store(14)
	require.Eventually(t, func() bool {
		return slices.Contains(lis.Countdowns(), 1)
	}, waitFor, tick)
	assert.Equal(t, PhaseRecording, m.Phase())

	m.ToggleOff()
	waitSendEntered(t, lis)
	waitPhase(t, m, PhaseIdle)
	assert.Equal(t, 14, lis.Sent()[0].seconds)
}

func TestManager_Timeout(t *testing.T) {
	rec := &fakeRecorder{}
	rec.On("PrepareRecord", mock.Anything, mock.Anything).Return(nil)
	rec.On("StartRecord", mock.Anything).Return(nil)
	rec.On("StopRecord", mock.Anything).Return(15)
	lis := newFakeListener()
	m, _ := newTestManager(t, rec, lis)

	m.ToggleOn()
	waitPhase(t, m, PhaseRecording)

	rec.progress.Store(15)
	waitSendEntered(t, lis)
	waitPhase(t, m, PhaseIdle)

	assert.Equal(t, []string{"preparing", "prepared", "stopped", "send"}, lis.Events())
	assert.Equal(t, 15, lis.Sent()[0].seconds)
	assert.Contains(t, lis.Countdowns(), 0)

	// The button is still held; the release after timeout is a no-op.
	m.ToggleOff()
	assert.Equal(t, PhaseIdle, m.Phase())
	rec.AssertNumberOfCalls(t, "StopRecord", 1)
}

func TestManager_QuickRelease(t *testing.T) {
	rec := &fakeRecorder{}
	rec.On("PrepareRecord", mock.Anything, mock.Anything).Return(nil)
	rec.On("StartRecord", mock.Anything).Return(nil)
	rec.On("StopRecord", mock.Anything).Return(1)
	lis := newFakeListener()
	m, store := newTestManager(t, rec, lis)

	m.ToggleOn()
	waitPhase(t, m, PhaseRecording)
	m.ToggleOff()

	require.Eventually(t, func() bool {
		return slices.Contains(lis.Events(), "stopped")
	}, waitFor, tick)
	waitPhase(t, m, PhaseIdle)

	assert.Equal(t, []string{"preparing", "prepared", "stopped"}, lis.Events())
	assert.Empty(t, lis.Sent())
	assert.Equal(t, []string{filepath.Join(store.dir, "take-1.wav")}, store.Discarded())
}

func TestManager_NothingRecorded(t *testing.T) {
	rec := &fakeRecorder{}
	rec.On("PrepareRecord", mock.Anything, mock.Anything).Return(nil)
	rec.On("StartRecord", mock.Anything).Return(nil)
	rec.On("StopRecord", mock.Anything).Return(NoAudio)
	lis := newFakeListener()
	m, _ := newTestManager(t, rec, lis, WithMinLength(0))

	m.ToggleOn()
	waitPhase(t, m, PhaseRecording)
	m.ToggleOff()

	require.Eventually(t, func() bool {
		return slices.Contains(lis.Events(), "stopped")
	}, waitFor, tick)
	waitPhase(t, m, PhaseIdle)
	assert.Empty(t, lis.Sent())
}

func TestManager_PressWhileSendingReplays(t *testing.T) {
	rec := &fakeRecorder{}
	rec.On("PrepareRecord", mock.Anything, mock.Anything).Return(nil)
	rec.On("StartRecord", mock.Anything).Return(nil)
	rec.On("StopRecord", mock.Anything).Return(5)
	lis := newFakeListener()
	m, store := newTestManager(t, rec, lis)

	lis.blockSend()
	m.ToggleOn()
	waitPhase(t, m, PhaseRecording)
	m.ToggleOff()
	waitSendEntered(t, lis)

	m.ToggleOn()
	pending, ok := m.State().Pending()
	require.True(t, ok)
	assert.Equal(t, PhaseSending, m.Phase())
	assert.Equal(t, PhasePreparing, pending)

	lis.unblockSend()
	waitPhase(t, m, PhaseRecording)

	assert.Equal(t, []string{"preparing", "prepared", "stopped", "send", "preparing", "prepared"}, lis.Events())
	rec.AssertNumberOfCalls(t, "PrepareRecord", 2)
	second := rec.Calls[len(rec.Calls)-2].Arguments.Get(1).(RecordOptions)
	assert.Equal(t, filepath.Join(store.dir, "take-2.wav"), second.OutputFile)
}

func TestManager_PressThenReleaseWhileSending(t *testing.T) {
	rec := &fakeRecorder{}
	rec.On("PrepareRecord", mock.Anything, mock.Anything).Return(nil)
	rec.On("StartRecord", mock.Anything).Return(nil)
	rec.On("StopRecord", mock.Anything).Return(5)
	lis := newFakeListener()
	m, _ := newTestManager(t, rec, lis)

	lis.blockSend()
	m.ToggleOn()
	waitPhase(t, m, PhaseRecording)
	m.ToggleOff()
	waitSendEntered(t, lis)

	m.ToggleOn()
	m.ToggleOff()
	assert.Equal(t, "Sending[pending=Idle]", m.State().String())

	lis.unblockSend()
	waitPhase(t, m, PhaseIdle)

	// Give a stray replay the chance to show up.
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, PhaseIdle, m.Phase())
	assert.Equal(t, []string{"preparing", "prepared", "stopped", "send"}, lis.Events())
	rec.AssertNumberOfCalls(t, "PrepareRecord", 1)
}

func TestManager_PressWhileStoppingReplays(t *testing.T) {
	stopEntered := make(chan struct{}, 1)
	stopGate := make(chan struct{})
	rec := &fakeRecorder{}
	rec.On("PrepareRecord", mock.Anything, mock.Anything).Return(nil)
	rec.On("StartRecord", mock.Anything).Return(nil)
	rec.On("StopRecord", mock.Anything).Return(5).Run(func(mock.Arguments) {
		stopEntered <- struct{}{}
		<-stopGate
	}).Once()
	rec.On("StopRecord", mock.Anything).Return(5)
	lis := newFakeListener()
	m, _ := newTestManager(t, rec, lis)

	m.ToggleOn()
	waitPhase(t, m, PhaseRecording)
	m.ToggleOff()
	select {
	case <-stopEntered:
	case <-time.After(waitFor):
		t.Fatal("StopRecord was never called")
	}

	m.ToggleOn()
	assert.Equal(t, "Stopping[pending=Preparing]", m.State().String())

	close(stopGate)
	waitSendEntered(t, lis)
	waitPhase(t, m, PhaseRecording)
	rec.AssertNumberOfCalls(t, "PrepareRecord", 2)
}

func TestManager_ReleaseWhilePreparing(t *testing.T) {
	prepareGate := make(chan struct{})
	rec := &fakeRecorder{}
	rec.On("PrepareRecord", mock.Anything, mock.Anything).Return(nil).Run(func(mock.Arguments) { <-prepareGate })
	rec.On("StopRecord", mock.Anything).Return(NoAudio)
	lis := newFakeListener()
	m, store := newTestManager(t, rec, lis)

	m.ToggleOn()
	require.Eventually(t, func() bool {
		return slices.Contains(lis.Events(), "preparing")
	}, waitFor, tick)

	m.ToggleOff()
	assert.Equal(t, PhaseIdle, m.Phase())

	close(prepareGate)
	require.Eventually(t, func() bool {
		return slices.Contains(lis.Events(), "stopped")
	}, waitFor, tick)

	assert.Equal(t, []string{"preparing", "stopped"}, lis.Events())
	assert.Equal(t, PhaseIdle, m.Phase())
	assert.Len(t, store.Discarded(), 1)
	rec.AssertNotCalled(t, "StartRecord", mock.Anything)
	rec.AssertNumberOfCalls(t, "StopRecord", 1)
}

func TestManager_ReleaseThenPressWhilePreparing(t *testing.T) {
	prepareGate := make(chan struct{})
	rec := &fakeRecorder{}
	rec.On("PrepareRecord", mock.Anything, mock.Anything).Return(nil).Run(func(mock.Arguments) { <-prepareGate }).Once()
	rec.On("PrepareRecord", mock.Anything, mock.Anything).Return(nil)
	rec.On("StartRecord", mock.Anything).Return(nil)
	rec.On("StopRecord", mock.Anything).Return(NoAudio)
	lis := newFakeListener()
	m, _ := newTestManager(t, rec, lis)

	m.ToggleOn()
	require.Eventually(t, func() bool {
		return slices.Contains(lis.Events(), "preparing")
	}, waitFor, tick)
	m.ToggleOff()
	m.ToggleOn()
	assert.Equal(t, PhasePreparing, m.Phase())

	close(prepareGate)
	waitPhase(t, m, PhaseRecording)

	assert.Equal(t, []string{"preparing", "stopped", "preparing", "prepared"}, lis.Events())
	rec.AssertNumberOfCalls(t, "StartRecord", 1)
}

func TestManager_PrepareFailure(t *testing.T) {
	rec := &fakeRecorder{}
	rec.On("PrepareRecord", mock.Anything, mock.Anything).Return(errors.New("device busy"))
	lis := newFakeListener()
	m, store := newTestManager(t, rec, lis)

	m.ToggleOn()
	require.Eventually(t, func() bool {
		return len(store.Discarded()) == 1
	}, waitFor, tick)
	waitPhase(t, m, PhaseIdle)

	assert.Equal(t, []string{"preparing"}, lis.Events())
	rec.AssertNotCalled(t, "StartRecord", mock.Anything)
}

func TestManager_StartFailure(t *testing.T) {
	rec := &fakeRecorder{}
	rec.On("PrepareRecord", mock.Anything, mock.Anything).Return(nil)
	rec.On("StartRecord", mock.Anything).Return(errors.New("no input"))
	rec.On("StopRecord", mock.Anything).Return(NoAudio)
	lis := newFakeListener()
	m, store := newTestManager(t, rec, lis)

	m.ToggleOn()
	require.Eventually(t, func() bool {
		return len(store.Discarded()) == 1
	}, waitFor, tick)
	waitPhase(t, m, PhaseIdle)

	assert.Equal(t, []string{"preparing", "prepared"}, lis.Events())
	// The half-prepared take is released before its file is removed.
	rec.AssertNumberOfCalls(t, "StopRecord", 1)

	// The controller accepts a new press afterwards.
	rec.ExpectedCalls = nil
	rec.On("PrepareRecord", mock.Anything, mock.Anything).Return(nil)
	rec.On("StartRecord", mock.Anything).Return(nil)
	rec.On("StopRecord", mock.Anything).Return(NoAudio)
	m.ToggleOn()
	waitPhase(t, m, PhaseRecording)
}

func TestManager_StoreFailure(t *testing.T) {
	rec := &fakeRecorder{}
	lis := newFakeListener()
	store := &fakeStore{dir: t.TempDir(), err: errors.New("disk full")}
	m, err := New(rec, store, lis, WithLogger(testLogger()))
	require.NoError(t, err)

	m.ToggleOn()
	waitPhase(t, m, PhaseIdle)
	rec.AssertNotCalled(t, "PrepareRecord", mock.Anything, mock.Anything)
}

func TestManager_ResetWhileRecording(t *testing.T) {
	rec := &fakeRecorder{}
	rec.On("PrepareRecord", mock.Anything, mock.Anything).Return(nil)
	rec.On("StartRecord", mock.Anything).Return(nil)
	rec.On("StopRecord", mock.Anything).Return(5)
	lis := newFakeListener()
	m, store := newTestManager(t, rec, lis)

	m.ToggleOn()
	waitPhase(t, m, PhaseRecording)
	require.Eventually(t, func() bool { return len(lis.Levels()) > 0 }, waitFor, tick)

	m.Reset()
	assert.Equal(t, PhaseIdle, m.Phase())

	// The recorder is released and the take dropped.
	require.Eventually(t, func() bool {
		return len(store.Discarded()) == 1
	}, waitFor, tick)
	assert.Equal(t, []string{filepath.Join(store.dir, "take-1.wav")}, store.Discarded())
	rec.AssertNumberOfCalls(t, "StopRecord", 1)

	// Sampling stops with the reset.
	time.Sleep(20 * time.Millisecond)
	n := len(lis.Levels())
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, n, len(lis.Levels()))

	m.ToggleOff()
	assert.Equal(t, PhaseIdle, m.Phase())
	rec.AssertNumberOfCalls(t, "StopRecord", 1)
	assert.NotContains(t, lis.Events(), "send")

	m.ToggleOn()
	waitPhase(t, m, PhaseRecording)
	rec.AssertNumberOfCalls(t, "PrepareRecord", 2)
}

func TestManager_ResetWhileStoppingDiscardsTake(t *testing.T) {
	stopEntered := make(chan struct{}, 1)
	stopGate := make(chan struct{})
	rec := &fakeRecorder{}
	rec.On("PrepareRecord", mock.Anything, mock.Anything).Return(nil)
	rec.On("StartRecord", mock.Anything).Return(nil)
	rec.On("StopRecord", mock.Anything).Return(5).Run(func(mock.Arguments) {
		stopEntered <- struct{}{}
		<-stopGate
	}).Once()
	lis := newFakeListener()
	m, store := newTestManager(t, rec, lis)

	m.ToggleOn()
	waitPhase(t, m, PhaseRecording)
	m.ToggleOff()
	select {
	case <-stopEntered:
	case <-time.After(waitFor):
		t.Fatal("StopRecord was never called")
	}

	m.Reset()
	close(stopGate)

	require.Eventually(t, func() bool {
		return len(store.Discarded()) == 1
	}, waitFor, tick)
	assert.Equal(t, PhaseIdle, m.Phase())
	assert.Empty(t, lis.Sent())
	rec.AssertNumberOfCalls(t, "StopRecord", 1)
}

func TestManager_ResetWhileSendingDropsPendingPress(t *testing.T) {
	rec := &fakeRecorder{}
	rec.On("PrepareRecord", mock.Anything, mock.Anything).Return(nil)
	rec.On("StartRecord", mock.Anything).Return(nil)
	rec.On("StopRecord", mock.Anything).Return(5)
	lis := newFakeListener()
	m, _ := newTestManager(t, rec, lis)

	lis.blockSend()
	m.ToggleOn()
	waitPhase(t, m, PhaseRecording)
	m.ToggleOff()
	waitSendEntered(t, lis)
	m.ToggleOn()

	m.Reset()
	assert.Equal(t, PhaseIdle, m.Phase())

	lis.unblockSend()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, PhaseIdle, m.Phase())
	rec.AssertNumberOfCalls(t, "PrepareRecord", 1)
}

func TestManager_Reconfigure(t *testing.T) {
	rec := &fakeRecorder{}
	lis := newFakeListener()
	m, _ := newTestManager(t, rec, lis)

	next := &fakeRecorder{}
	next.On("PrepareRecord", mock.Anything, mock.Anything).Return(nil)
	next.On("StartRecord", mock.Anything).Return(nil)
	next.On("StopRecord", mock.Anything).Return(3)
	nextLis := newFakeListener()

	m.Reconfigure(next, nextLis)
	m.Reconfigure(nil, nil)

	m.ToggleOn()
	waitPhase(t, m, PhaseRecording)
	m.ToggleOff()
	waitSendEntered(t, nextLis)
	waitPhase(t, m, PhaseIdle)

	assert.Empty(t, lis.Events())
	assert.Empty(t, rec.Calls)
	assert.Equal(t, []string{"preparing", "prepared", "stopped", "send"}, nextLis.Events())
}

func TestManager_IgnoresRedundantSignals(t *testing.T) {
	rec := &fakeRecorder{}
	rec.On("PrepareRecord", mock.Anything, mock.Anything).Return(nil)
	rec.On("StartRecord", mock.Anything).Return(nil)
	rec.On("StopRecord", mock.Anything).Return(5)
	lis := newFakeListener()
	m, _ := newTestManager(t, rec, lis)

	m.ToggleOff()
	assert.Equal(t, PhaseIdle, m.Phase())
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, lis.Events())

	m.ToggleOn()
	m.ToggleOn()
	waitPhase(t, m, PhaseRecording)
	m.ToggleOn()
	assert.Equal(t, PhaseRecording, m.Phase())

	m.ToggleOff()
	waitSendEntered(t, lis)
	waitPhase(t, m, PhaseIdle)

	rec.AssertNumberOfCalls(t, "PrepareRecord", 1)
	rec.AssertNumberOfCalls(t, "StopRecord", 1)
}

func TestManager_CloseTimesOutOnStuckSend(t *testing.T) {
	rec := &fakeRecorder{}
	rec.On("PrepareRecord", mock.Anything, mock.Anything).Return(nil)
	rec.On("StartRecord", mock.Anything).Return(nil)
	rec.On("StopRecord", mock.Anything).Return(5)
	lis := newFakeListener()
	m, _ := newTestManager(t, rec, lis)

	lis.blockSend()
	m.ToggleOn()
	waitPhase(t, m, PhaseRecording)
	m.ToggleOff()
	waitSendEntered(t, lis)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := m.Close(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, PhaseIdle, m.Phase())
}
