package app

import "fmt"

// PersistPolicy decides what happens to an optimistic carga edit when the
// backend rejects it.
type PersistPolicy int

const (
	// KeepOptimistic leaves the edited value on screen; the next reload shows
	// the backend's copy.
	KeepOptimistic PersistPolicy = iota
	// Rollback restores the value from before the edit.
	Rollback
)

// ParsePersistPolicy maps the config values "keep" and "rollback".
func ParsePersistPolicy(s string) (PersistPolicy, error) {
	switch s {
	case "", "keep":
		return KeepOptimistic, nil
	case "rollback":
		return Rollback, nil
	default:
		return 0, fmt.Errorf("unknown persist policy %q (want keep or rollback)", s)
	}
}

func (p PersistPolicy) String() string {
	if p == Rollback {
		return "rollback"
	}
	return "keep"
}
