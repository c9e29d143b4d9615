// Package viewstate models the lifecycle of a screen's data:
// Init, then Loading, then Success with a payload or Error with a reason.
package viewstate

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Kind is the phase of a State
type Kind int

const (
	Init Kind = iota
	Loading
	Success
	Error
)

func (k Kind) String() string {
	switch k {
	case Init:
		return "init"
	case Loading:
		return "loading"
	case Success:
		return "success"
	case Error:
		return "error"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// State holds a payload only in Success and a reason only in Error
type State[T any] struct {
	Kind   Kind
	Data   T
	Reason string
}

// NewInit returns the Init state
func NewInit[T any]() State[T] { return State[T]{Kind: Init} }

// NewLoading returns the Loading state
func NewLoading[T any]() State[T] { return State[T]{Kind: Loading} }

// NewSuccess returns a Success state carrying data
func NewSuccess[T any](data T) State[T] { return State[T]{Kind: Success, Data: data} }

// NewError returns an Error state carrying err's message
func NewError[T any](err error) State[T] {
	reason := "unknown error"
	if err != nil {
		reason = err.Error()
	}
	return State[T]{Kind: Error, Reason: reason}
}

type wireState struct {
	State string `json:"state"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

// MarshalJSON encodes {"state":"success","data":...} or {"state":"error","error":...}
func (s State[T]) MarshalJSON() ([]byte, error) {
	w := wireState{State: s.Kind.String()}
	switch s.Kind {
	case Success:
		w.Data = s.Data
	case Error:
		w.Error = s.Reason
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes the form written by MarshalJSON
func (s *State[T]) UnmarshalJSON(b []byte) error {
	var w struct {
		State string          `json:"state"`
		Data  json.RawMessage `json:"data"`
		Error string          `json:"error"`
	}
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}

	*s = State[T]{}
	switch w.State {
	case "init":
		s.Kind = Init
	case "loading":
		s.Kind = Loading
	case "success":
		s.Kind = Success
		if len(w.Data) > 0 {
			if err := json.Unmarshal(w.Data, &s.Data); err != nil {
				return err
			}
		}
	case "error":
		s.Kind = Error
		s.Reason = w.Error
	default:
		return fmt.Errorf("unknown state %q", w.State)
	}
	return nil
}

// Tracker drives a State through Init, Loading and a terminal state.
// A failed load stays in Error until Run is called again.
type Tracker[T any] struct {
	mu       sync.Mutex
	state    State[T]
	onChange func(State[T])
}

// NewTracker creates a tracker in Init. onChange, when non-nil, observes every transition.
func NewTracker[T any](onChange func(State[T])) *Tracker[T] {
	return &Tracker[T]{state: NewInit[T](), onChange: onChange}
}

// State returns the current state
func (t *Tracker[T]) State() State[T] {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Set replaces the current state
func (t *Tracker[T]) Set(s State[T]) {
	t.mu.Lock()
	t.state = s
	onChange := t.onChange
	t.mu.Unlock()

	if onChange != nil {
		onChange(s)
	}
}

// Run moves to Loading, calls load and records Success or Error
func (t *Tracker[T]) Run(ctx context.Context, load func(context.Context) (T, error)) State[T] {
	t.Set(NewLoading[T]())

	data, err := load(ctx)
	final := NewSuccess(data)
	if err != nil {
		final = NewError[T](err)
	}
	t.Set(final)
	return final
}
