// Package app is the single state container behind every front end. State
// changes only through App methods; readers take a Snapshot.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/meltforce/treinos/internal/models"
	"github.com/meltforce/treinos/internal/store"
	"github.com/meltforce/treinos/internal/upload"
	"github.com/meltforce/treinos/internal/view"
)

// Notification texts.
const (
	MsgLoadFailed  = "Erro ao carregar treinos"
	MsgSaveFailed  = "Erro ao salvar carga"
	MsgSaved       = "Carga atualizada"
	MsgRolledBack  = "Erro ao salvar carga, alteração desfeita"
	MsgSaveRunning = "Aguarde o salvamento em andamento"
	MsgEditLost    = "Edição cancelada, carga não salva"
)

var (
	// ErrNoSelection is returned by edit operations when no workout is open.
	ErrNoSelection = errors.New("no workout selected")
	// ErrSaveInFlight is returned when a save is already pending.
	ErrSaveInFlight = errors.New("save already in progress")
)

// Store is the part of the remote workout store the app needs.
type Store interface {
	ListWorkouts(ctx context.Context) ([]models.Workout, error)
	UpdateWorkout(ctx context.Context, id string, treinos models.Groups, order []string) error
}

// Severity classifies a notification.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
)

// Notification is a transient message for the user.
type Notification struct {
	Message  string
	Severity Severity
}

// State is a read-only copy of the app state for rendering.
type State struct {
	DarkMode bool
	Loaded   bool
	Workouts []models.Workout
	Selected *models.Workout

	Editing    *view.Cell
	Pending    string
	Saving     bool
	Uploading  bool
	UploadName string
	Preview    *models.Workout

	Notification *Notification
}

// App holds the client state: theme, workout list, the open workout with its
// edit buffer, the upload form and the last notification.
type App struct {
	store  Store
	flow   *upload.Flow
	policy PersistPolicy
	log    *slog.Logger

	mu         sync.Mutex
	darkMode   bool
	loaded     bool
	workouts   []models.Workout
	selected   *models.Workout
	editor     view.Editor
	saving     bool
	uploadName string
	preview    *models.Workout
	note       *Notification
}

// New creates an App in dark mode with an empty list.
func New(s Store, flow *upload.Flow, policy PersistPolicy, log *slog.Logger) *App {
	return &App{
		store:    s,
		flow:     flow,
		policy:   policy,
		log:      log,
		darkMode: true,
	}
}

// Snapshot returns a copy of the current state.
func (a *App) Snapshot() State {
	a.mu.Lock()
	defer a.mu.Unlock()

	st := State{
		DarkMode:   a.darkMode,
		Loaded:     a.loaded,
		Workouts:   cloneWorkouts(a.workouts),
		Selected:   cloneWorkout(a.selected),
		Pending:    a.editor.Pending(),
		Saving:     a.saving,
		Uploading:  a.flow != nil && a.flow.Busy(),
		UploadName: a.uploadName,
		Preview:    cloneWorkout(a.preview),
	}
	if cell, ok := a.editor.Editing(); ok {
		st.Editing = &cell
	}
	if a.note != nil {
		n := *a.note
		st.Notification = &n
	}
	return st
}

// ToggleTheme flips between dark and light mode.
func (a *App) ToggleTheme() {
	a.mu.Lock()
	a.darkMode = !a.darkMode
	a.mu.Unlock()
}

// DismissNotification clears the current notification.
func (a *App) DismissNotification() {
	a.mu.Lock()
	a.note = nil
	a.mu.Unlock()
}

// Notify replaces the current notification.
func (a *App) Notify(msg string, sev Severity) {
	a.mu.Lock()
	a.notify(msg, sev)
	a.mu.Unlock()
}

// Refresh reloads the workout list. On failure the previous list is kept and
// an error notification is raised.
func (a *App) Refresh(ctx context.Context) error {
	workouts, err := a.store.ListWorkouts(ctx)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.loaded = true
	if err != nil {
		a.log.Error("listing workouts", "error", err)
		a.notify(MsgLoadFailed, SeverityError)
		return fmt.Errorf("refreshing workouts: %w", err)
	}
	a.workouts = view.NewestFirst(workouts)
	a.syncSelected()
	return nil
}

// Select opens workout id from the current list. The open workout is a copy
// that serves as the edit buffer.
func (a *App) Select(id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i := range a.workouts {
		if a.workouts[i].ID == id {
			a.selected = cloneWorkout(&a.workouts[i])
			a.editor.Cancel()
			return nil
		}
	}
	return fmt.Errorf("select %q: %w", id, store.ErrNotFound)
}

// Back closes the open workout and drops any edit in progress.
func (a *App) Back() {
	a.mu.Lock()
	a.selected = nil
	a.editor.Cancel()
	a.mu.Unlock()
}

// BeginEdit starts editing the carga of (group, index) of the open workout.
func (a *App) BeginEdit(group string, index int) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.selected == nil {
		return ErrNoSelection
	}
	exercises, ok := a.selected.Treinos[group]
	if !ok || index < 0 || index >= len(exercises) {
		return fmt.Errorf("%w: %s[%d]", view.ErrCellOutOfRange, group, index)
	}
	a.editor.Begin(group, index, exercises[index].Carga)
	return nil
}

// ChangeEdit updates the pending carga.
func (a *App) ChangeEdit(text string) {
	a.mu.Lock()
	a.editor.Change(text)
	a.mu.Unlock()
}

// CancelEdit discards the pending carga.
func (a *App) CancelEdit() {
	a.mu.Lock()
	a.editor.Cancel()
	a.mu.Unlock()
}

// SaveEdit applies the pending carga to the open workout, persists the full
// treinos mapping and, on success, reloads the list. On failure the policy
// decides whether the optimistic change stays; the failure is always
// reported through a notification and the returned error.
func (a *App) SaveEdit(ctx context.Context) error {
	a.mu.Lock()
	if a.selected == nil {
		a.editor.Cancel()
		a.notify(MsgEditLost, SeverityError)
		a.mu.Unlock()
		return ErrNoSelection
	}
	if a.saving {
		a.notify(MsgSaveRunning, SeverityError)
		a.mu.Unlock()
		return ErrSaveInFlight
	}
	id := a.selected.ID
	order := append([]string(nil), a.selected.GroupOrder...)
	before := a.selected.Treinos
	updated, err := a.editor.Save(before, nil)
	if err != nil {
		// The edit was closed elsewhere or its cell no longer exists.
		a.notify(MsgEditLost, SeverityError)
		a.mu.Unlock()
		return err
	}
	a.selected.Treinos = updated
	a.saving = true
	a.mu.Unlock()

	persistErr := a.store.UpdateWorkout(ctx, id, updated, order)

	a.mu.Lock()
	a.saving = false
	if persistErr != nil {
		a.log.Error("persisting carga", "workout", id, "policy", a.policy.String(), "error", persistErr)
		msg := MsgSaveFailed
		if a.policy == Rollback {
			a.rollback(id, updated, before)
			msg = MsgRolledBack
		}
		a.notify(store.UserMessage(persistErr, msg), SeverityError)
		a.mu.Unlock()
		return fmt.Errorf("saving carga: %w", persistErr)
	}
	a.notify(MsgSaved, SeveritySuccess)
	a.mu.Unlock()

	if err := a.Refresh(ctx); err != nil {
		return err
	}
	return nil
}

// SetUploadName stores the name typed in the upload form.
func (a *App) SetUploadName(name string) {
	a.mu.Lock()
	a.uploadName = name
	a.mu.Unlock()
}

// Upload submits file through the upload flow. name overrides the stored
// form name when non-empty. The result becomes the preview on success.
func (a *App) Upload(ctx context.Context, file upload.File, name string) (upload.Result, error) {
	a.mu.Lock()
	if name == "" {
		name = a.uploadName
	}
	a.mu.Unlock()

	res, err := a.flow.Submit(ctx, file, name)

	a.mu.Lock()
	defer a.mu.Unlock()
	if res.Name != "" {
		a.uploadName = res.Name
	}
	if err != nil {
		a.notify(res.Message, SeverityError)
		return res, err
	}
	a.preview = res.Workout
	a.notify(res.Message, SeveritySuccess)
	return res, nil
}

// rollback restores before on the open workout, provided it is still the
// one that was edited and nobody changed it since.
func (a *App) rollback(id string, updated, before models.Groups) {
	if a.selected == nil || a.selected.ID != id || !a.selected.Treinos.Equal(updated) {
		return
	}
	a.selected.Treinos = before
}

// syncSelected refreshes the open workout from the list, keeping it open.
func (a *App) syncSelected() {
	if a.selected == nil {
		return
	}
	for i := range a.workouts {
		if a.workouts[i].ID == a.selected.ID {
			a.selected = cloneWorkout(&a.workouts[i])
			return
		}
	}
}

func (a *App) notify(msg string, sev Severity) {
	a.note = &Notification{Message: msg, Severity: sev}
}

func cloneWorkout(w *models.Workout) *models.Workout {
	if w == nil {
		return nil
	}
	c := *w
	c.Treinos = w.Treinos.Clone()
	c.GroupOrder = append([]string(nil), w.GroupOrder...)
	return &c
}

func cloneWorkouts(ws []models.Workout) []models.Workout {
	if ws == nil {
		return nil
	}
	out := make([]models.Workout, len(ws))
	for i := range ws {
		out[i] = *cloneWorkout(&ws[i])
	}
	return out
}
