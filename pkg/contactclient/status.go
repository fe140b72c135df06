package contactclient

import (
	"fmt"
	"sync"
	"time"
)

// State is the single status value of a contact form
type State int

const (
	StateIdle State = iota
	StateComposing
	StateSending
	StateSuccess
	StateError
)

const (
	DefaultSuccessDismiss = 3 * time.Second
	DefaultErrorDismiss   = 5 * time.Second
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateComposing:
		return "composing"
	case StateSending:
		return "sending"
	case StateSuccess:
		return "success"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var transitions = map[State][]State{
	StateIdle:      {StateComposing, StateSending},
	StateComposing: {StateSending, StateIdle},
	StateSending:   {StateSuccess, StateError},
	StateSuccess:   {StateIdle},
	StateError:     {StateComposing, StateIdle},
}

// CanTransition reports whether from -> to is allowed
func CanTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Status is the form's status machine. Success dismisses to Idle and Error
// dismisses to Composing after their delays; the form content is untouched.
type Status struct {
	mu             sync.Mutex
	state          State
	successDismiss time.Duration
	errorDismiss   time.Duration
	timer          *time.Timer
	generation     uint64
	listener       func(from, to State)
}

type StatusOption func(*Status)

// WithDismissDelays overrides the auto-dismiss delays. A zero delay disables
// auto-dismiss for that state.
func WithDismissDelays(success, failure time.Duration) StatusOption {
	return func(s *Status) {
		s.successDismiss = success
		s.errorDismiss = failure
	}
}

// WithStateListener is called after every transition, outside the lock
func WithStateListener(fn func(from, to State)) StatusOption {
	return func(s *Status) { s.listener = fn }
}

func NewStatus(opts ...StatusOption) *Status {
	s := &Status{
		state:          StateIdle,
		successDismiss: DefaultSuccessDismiss,
		errorDismiss:   DefaultErrorDismiss,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Status) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Transition moves to the given state or returns ErrInvalidTransition
func (s *Status) Transition(to State) error {
	s.mu.Lock()
	from := s.state
	if !CanTransition(from, to) {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	s.set(to)
	s.mu.Unlock()

	s.emit(from, to)
	return nil
}

// Dismiss leaves a terminal state early. It reports whether anything changed.
func (s *Status) Dismiss() bool {
	s.mu.Lock()
	from := s.state
	to, ok := dismissTarget(from)
	if !ok {
		s.mu.Unlock()
		return false
	}
	s.set(to)
	s.mu.Unlock()

	s.emit(from, to)
	return true
}

// begin enters Sending, dismissing a terminal state first
func (s *Status) begin() error {
	s.Dismiss()
	return s.Transition(StateSending)
}

// Stop cancels a pending auto-dismiss
func (s *Status) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelTimer()
}

// set must be called with mu held
func (s *Status) set(to State) {
	s.cancelTimer()
	s.state = to

	var delay time.Duration
	switch to {
	case StateSuccess:
		delay = s.successDismiss
	case StateError:
		delay = s.errorDismiss
	}
	if delay <= 0 {
		return
	}

	gen := s.generation
	s.timer = time.AfterFunc(delay, func() { s.autoDismiss(gen) })
}

func (s *Status) cancelTimer() {
	s.generation++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Status) autoDismiss(gen uint64) {
	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return
	}
	from := s.state
	to, ok := dismissTarget(from)
	if !ok {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.set(to)
	s.mu.Unlock()

	s.emit(from, to)
}

func (s *Status) emit(from, to State) {
	if s.listener != nil {
		s.listener(from, to)
	}
}

func dismissTarget(from State) (State, bool) {
	switch from {
	case StateSuccess:
		return StateIdle, true
	case StateError:
		return StateComposing, true
	default:
		return from, false
	}
}
