package transaction

import "sync"

// State is the outcome of an attempt to acquire the value held by a Slot
type State int

const (
	// StateFilled means the caller acquired the value
	StateFilled State = iota

	// StateEmpty means the value was already removed
	StateEmpty

	// StateLocked means another owner holds the slot
	StateLocked
)

func (s State) String() string {
	switch s {
	case StateFilled:
		return "Filled"
	case StateEmpty:
		return "Empty"
	case StateLocked:
		return "Locked"
	default:
		return "Unknown"
	}
}

// Slot is a single-extraction cell. The mutex is only held for the
// duration of Take or Steal and never across I/O.
type Slot[T any] struct {
	mu    sync.Mutex
	value *T
	held  bool
}

// NewSlot returns a slot filled with v
func NewSlot[T any](v T) *Slot[T] {
	return &Slot[T]{value: &v}
}

// Take acquires the value for a single logical owner. The value stays in
// the slot so the finalizer can still Steal it, but every later Take
// reports StateLocked.
func (s *Slot[T]) Take() (T, State) {
	var zero T
	if !s.mu.TryLock() {
		return zero, StateLocked
	}
	defer s.mu.Unlock()

	if s.held {
		return zero, StateLocked
	}
	if s.value == nil {
		return zero, StateEmpty
	}
	s.held = true
	return *s.value, StateFilled
}

// Steal removes the value regardless of whether an owner has taken it.
// Contention on the guard is reported as StateLocked and is never retried.
func (s *Slot[T]) Steal() (T, State) {
	var zero T
	if !s.mu.TryLock() {
		return zero, StateLocked
	}
	defer s.mu.Unlock()

	if s.value == nil {
		return zero, StateEmpty
	}
	v := *s.value
	s.value = nil
	return v, StateFilled
}
