package view

import (
	"errors"
	"fmt"

	"github.com/meltforce/treinos/internal/models"
)

var (
	// ErrNotEditing is returned by Save when no cell is being edited.
	ErrNotEditing = errors.New("no cell is being edited")
	// ErrCellOutOfRange is returned when the edited cell does not exist.
	ErrCellOutOfRange = errors.New("cell out of range")
)

// Cell addresses one exercise within a workout.
type Cell struct {
	Group string
	Index int
}

// PersistFunc receives the full updated treinos mapping after a save.
type PersistFunc func(models.Groups) error

// Editor is the inline carga edit state machine. The zero value is Idle.
// At most one cell is in the Editing state.
type Editor struct {
	active  *Cell
	pending string
}

// Begin starts editing cell (group, index) with its current carga.
// An edit already in progress is discarded.
func (e *Editor) Begin(group string, index int, current string) {
	e.active = &Cell{Group: group, Index: index}
	e.pending = current
}

// Change replaces the pending value. It is a no-op when Idle.
func (e *Editor) Change(text string) {
	if e.active == nil {
		return
	}
	e.pending = text
}

// Cancel discards the pending value and returns to Idle.
func (e *Editor) Cancel() {
	e.active = nil
	e.pending = ""
}

// Editing returns the active cell, if any.
func (e *Editor) Editing() (Cell, bool) {
	if e.active == nil {
		return Cell{}, false
	}
	return *e.active, true
}

// IsEditing reports whether the given cell is the active one.
func (e *Editor) IsEditing(group string, index int) bool {
	return e.active != nil && e.active.Group == group && e.active.Index == index
}

// Pending returns the value being typed.
func (e *Editor) Pending() string {
	return e.pending
}

// Save writes the pending value into the carga of the active cell on a deep
// copy of treinos, hands the copy to persist (when non-nil) and returns to
// Idle whatever the outcome. The copy is returned even if persist fails.
func (e *Editor) Save(treinos models.Groups, persist PersistFunc) (models.Groups, error) {
	if e.active == nil {
		return nil, ErrNotEditing
	}
	cell, value := *e.active, e.pending
	e.Cancel()

	exercises, ok := treinos[cell.Group]
	if !ok || cell.Index < 0 || cell.Index >= len(exercises) {
		return nil, fmt.Errorf("%w: %s[%d]", ErrCellOutOfRange, cell.Group, cell.Index)
	}

	updated := treinos.Clone()
	updated[cell.Group][cell.Index].Carga = value

	if persist == nil {
		return updated, nil
	}
	if err := persist(updated); err != nil {
		return updated, fmt.Errorf("persisting %s[%d]: %w", cell.Group, cell.Index, err)
	}
	return updated, nil
}
