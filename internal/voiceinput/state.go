// Package voiceinput implements the push-to-talk recording lifecycle.
// It contains the pure phase machine (State) and the Manager that drives an
// AudioRecorder through it while reporting progress to an EventListener.
package voiceinput

import "fmt"

// Phase is one of the five lifecycle phases of a voice input session.
type Phase int

const (
	// PhaseIdle is the initial and resting phase.
	PhaseIdle Phase = iota
	// PhasePreparing indicates the recorder is being prepared after a press.
	PhasePreparing
	// PhaseRecording indicates audio is being captured.
	PhaseRecording
	// PhaseStopping indicates the recorder is being stopped.
	PhaseStopping
	// PhaseSending indicates the finished take is being handed to the listener.
	PhaseSending
)

// String returns the human-readable name of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "Idle"
	case PhasePreparing:
		return "Preparing"
	case PhaseRecording:
		return "Recording"
	case PhaseStopping:
		return "Stopping"
	case PhaseSending:
		return "Sending"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// Signal is an input that drives the phase machine.
type Signal int

const (
	// SignalPressed is raised when the user presses the talk button.
	SignalPressed Signal = iota + 1
	// SignalReleased is raised when the user releases the talk button.
	SignalReleased
	// SignalElapsed is raised when the in-flight operation of a phase completes.
	SignalElapsed
	// SignalTimeout is raised when the maximum recording length is reached.
	SignalTimeout
	// SignalQuickReleased is raised when a take is shorter than the minimum length.
	SignalQuickReleased
)

// String returns the human-readable name of the signal.
func (s Signal) String() string {
	switch s {
	case SignalPressed:
		return "pressed"
	case SignalReleased:
		return "released"
	case SignalElapsed:
		return "elapsed"
	case SignalTimeout:
		return "timeout"
	case SignalQuickReleased:
		return "quickReleased"
	default:
		return fmt.Sprintf("Signal(%d)", int(s))
	}
}

// State is an immutable phase value. Transition methods return a new State
// and never modify the receiver, so a State can be shared freely.
//
// Only Stopping and Sending carry a pending phase: the last press or release
// seen while the stop/send operation was in flight.
type State struct {
	phase      Phase
	pending    Phase
	hasPending bool
}

// Idle returns the initial state.
func Idle() State {
	return State{phase: PhaseIdle}
}

// Phase returns the lifecycle phase.
func (s State) Phase() Phase {
	return s.phase
}

// Pending returns the deferred phase recorded during Stopping or Sending.
// ok is false in every other phase or when nothing was recorded.
func (s State) Pending() (p Phase, ok bool) {
	if s.phase != PhaseStopping && s.phase != PhaseSending {
		return PhaseIdle, false
	}
	return s.pending, s.hasPending
}

// String renders the state for logs, e.g. "Sending[pending=Preparing]".
func (s State) String() string {
	if p, ok := s.Pending(); ok {
		return fmt.Sprintf("%s[pending=%s]", s.phase, p)
	}
	return s.phase.String()
}

func (s State) withPending(p Phase) State {
	return State{phase: s.phase, pending: p, hasPending: true}
}

func sending(pending Phase) State {
	return State{phase: PhaseSending, pending: pending, hasPending: true}
}

// Apply dispatches sig to the matching transition. Unknown signals leave
// the state unchanged.
func (s State) Apply(sig Signal) State {
	switch sig {
	case SignalPressed:
		return s.Pressed()
	case SignalReleased:
		return s.Released()
	case SignalElapsed:
		return s.Elapsed()
	case SignalTimeout:
		return s.Timeout()
	case SignalQuickReleased:
		return s.QuickReleased()
	default:
		return s
	}
}

// Pressed handles a press of the talk button.
func (s State) Pressed() State {
	switch s.phase {
	case PhaseIdle:
		return State{phase: PhasePreparing}
	case PhaseStopping, PhaseSending:
		return s.withPending(PhasePreparing)
	default:
		return s
	}
}

// Released handles a release of the talk button.
func (s State) Released() State {
	switch s.phase {
	case PhasePreparing:
		return Idle()
	case PhaseRecording:
		return State{phase: PhaseStopping}
	case PhaseStopping, PhaseSending:
		return s.withPending(PhaseIdle)
	default:
		return s
	}
}

// Elapsed handles completion of the current phase's operation.
func (s State) Elapsed() State {
	switch s.phase {
	case PhasePreparing:
		return State{phase: PhaseRecording}
	case PhaseStopping:
		if s.hasPending {
			return sending(s.pending)
		}
		return sending(PhaseIdle)
	case PhaseSending:
		if s.pending == PhasePreparing {
			return State{phase: PhasePreparing}
		}
		return Idle()
	default:
		return s
	}
}

// Timeout handles the maximum recording length being reached.
func (s State) Timeout() State {
	if s.phase == PhaseRecording {
		return State{phase: PhaseStopping}
	}
	return s
}

// QuickReleased handles a take that ended below the minimum length.
// The take and any pending press are dropped.
func (s State) QuickReleased() State {
	if s.phase == PhaseStopping {
		return Idle()
	}
	return s
}
