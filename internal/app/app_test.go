package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/meltforce/treinos/internal/models"
	"github.com/meltforce/treinos/internal/store"
	"github.com/meltforce/treinos/internal/upload"
	"github.com/meltforce/treinos/internal/view"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// fakeStore serves a fixed list and records updates. The backend copy is
// only changed when updateErr is nil.
type fakeStore struct {
	mu        sync.Mutex
	workouts  []models.Workout
	listErr   error
	updateErr error
	updates   []models.Groups
	updatedID string
	order     []string
}

func (f *fakeStore) ListWorkouts(context.Context) ([]models.Workout, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]models.Workout, len(f.workouts))
	for i, w := range f.workouts {
		w.Treinos = w.Treinos.Clone()
		out[i] = w
	}
	return out, nil
}

func (f *fakeStore) UpdateWorkout(_ context.Context, id string, treinos models.Groups, order []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updatedID = id
	f.order = order
	f.updates = append(f.updates, treinos.Clone())
	if f.updateErr != nil {
		return f.updateErr
	}
	for i := range f.workouts {
		if f.workouts[i].ID == id {
			f.workouts[i].Treinos = treinos.Clone()
		}
	}
	return nil
}

func (f *fakeStore) UploadWorkout(_ context.Context, _ string, _ []byte, name string) (*models.WorkoutResponse, error) {
	return &models.WorkoutResponse{Workout: models.Workout{ID: "up1", WorkoutName: name, Treinos: models.Groups{}}}, nil
}

func treinosFixture() models.Groups {
	return models.Groups{
		"A": {{Exercicio: "Agachamento", Series: "4x8", Carga: "80kg", Intervalo: "90s"}},
		"B": {{Exercicio: "Supino", Series: "3x10", Carga: "40kg", Intervalo: "60s"}},
	}
}

func newFixture(policy PersistPolicy) (*App, *fakeStore) {
	fs := &fakeStore{workouts: []models.Workout{
		{ID: "w1", WorkoutName: "Antigo", Treinos: treinosFixture(), CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
		{ID: "w2", WorkoutName: "Novo", Treinos: treinosFixture(), CreatedAt: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)},
	}}
	return New(fs, upload.NewFlow(fs, nil, discard), policy, discard), fs
}

// TestRefreshSortsNewestFirst verifies the list is loaded newest first.
func TestRefreshSortsNewestFirst(t *testing.T) {
	a, _ := newFixture(KeepOptimistic)
	if err := a.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	st := a.Snapshot()
	if !st.Loaded || len(st.Workouts) != 2 || st.Workouts[0].ID != "w2" {
		t.Errorf("workouts = %+v", st.Workouts)
	}
	if !st.DarkMode {
		t.Error("dark mode should be the default")
	}
}

// TestRefreshFailureKeepsPreviousList verifies a failed list leaves the
// previous value (or empty) in place and surfaces an error.
func TestRefreshFailureKeepsPreviousList(t *testing.T) {
	a, fs := newFixture(KeepOptimistic)

	fs.listErr = &store.ServerError{Op: "list workouts", Status: 500}
	err := a.Refresh(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	st := a.Snapshot()
	if len(st.Workouts) != 0 {
		t.Errorf("first load failure should leave list empty, got %d", len(st.Workouts))
	}
	if st.Notification == nil || st.Notification.Severity != SeverityError {
		t.Errorf("notification = %+v", st.Notification)
	}

	fs.listErr = nil
	if err := a.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	fs.listErr = &store.NetworkError{Op: "list workouts", Err: errors.New("down")}
	if err := a.Refresh(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if got := len(a.Snapshot().Workouts); got != 2 {
		t.Errorf("list after failed refresh has %d workouts, want 2", got)
	}
}

// TestSelectAndBack verifies opening a workout copies it and Back closes it.
func TestSelectAndBack(t *testing.T) {
	a, _ := newFixture(KeepOptimistic)
	_ = a.Refresh(context.Background())

	if err := a.Select("missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("select missing: %v", err)
	}
	if err := a.Select("w1"); err != nil {
		t.Fatal(err)
	}
	if st := a.Snapshot(); st.Selected == nil || st.Selected.ID != "w1" {
		t.Fatalf("selected = %+v", st.Selected)
	}
	a.Back()
	if a.Snapshot().Selected != nil {
		t.Error("Back should clear the selection")
	}
}

// TestSaveEditPersistsFullMapping verifies a save sends the complete treinos
// with only the edited carga changed, then reloads the list.
func TestSaveEditPersistsFullMapping(t *testing.T) {
	a, fs := newFixture(KeepOptimistic)
	_ = a.Refresh(context.Background())
	_ = a.Select("w1")

	if err := a.BeginEdit("A", 0); err != nil {
		t.Fatal(err)
	}
	if st := a.Snapshot(); st.Editing == nil || st.Pending != "80kg" {
		t.Fatalf("editing = %+v pending = %q", st.Editing, st.Pending)
	}
	a.ChangeEdit("50kg")
	if err := a.SaveEdit(context.Background()); err != nil {
		t.Fatal(err)
	}

	want := treinosFixture()
	want["A"][0].Carga = "50kg"
	if fs.updatedID != "w1" || len(fs.updates) != 1 {
		t.Fatalf("updates = %d to %q", len(fs.updates), fs.updatedID)
	}
	if diff := cmp.Diff(want, fs.updates[0]); diff != "" {
		t.Errorf("persisted mapping mismatch (-want +got):\n%s", diff)
	}

	st := a.Snapshot()
	if st.Editing != nil {
		t.Error("editor should be idle")
	}
	if diff := cmp.Diff(want, st.Selected.Treinos); diff != "" {
		t.Errorf("selected mismatch (-want +got):\n%s", diff)
	}
	for _, w := range st.Workouts {
		if w.ID == "w1" && w.Treinos["A"][0].Carga != "50kg" {
			t.Error("list not reloaded after save")
		}
	}
	if st.Notification == nil || st.Notification.Severity != SeveritySuccess {
		t.Errorf("notification = %+v", st.Notification)
	}
}

// TestSaveEditSendsGroupOrder verifies the open workout's key order goes out
// with the update.
func TestSaveEditSendsGroupOrder(t *testing.T) {
	a, fs := newFixture(KeepOptimistic)
	fs.workouts[0].GroupOrder = []string{"B", "A"}
	_ = a.Refresh(context.Background())
	_ = a.Select("w1")

	_ = a.BeginEdit("A", 0)
	a.ChangeEdit("50kg")
	if err := a.SaveEdit(context.Background()); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"B", "A"}, fs.order); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

// TestCancelEditLeavesSelectionUnchanged verifies cancel keeps the buffer.
func TestCancelEditLeavesSelectionUnchanged(t *testing.T) {
	a, fs := newFixture(KeepOptimistic)
	_ = a.Refresh(context.Background())
	_ = a.Select("w1")

	_ = a.BeginEdit("B", 0)
	a.ChangeEdit("999kg")
	a.CancelEdit()

	if diff := cmp.Diff(treinosFixture(), a.Snapshot().Selected.Treinos); diff != "" {
		t.Errorf("treinos changed (-want +got):\n%s", diff)
	}
	if len(fs.updates) != 0 {
		t.Error("cancel must not persist")
	}
}

// TestSaveEditFailureKeepOptimistic verifies the default policy keeps the
// edited value and still reports the failure.
func TestSaveEditFailureKeepOptimistic(t *testing.T) {
	a, fs := newFixture(KeepOptimistic)
	_ = a.Refresh(context.Background())
	_ = a.Select("w1")
	fs.updateErr = &store.ServerError{Op: "update workout", Status: 500}

	_ = a.BeginEdit("A", 0)
	a.ChangeEdit("50kg")
	if err := a.SaveEdit(context.Background()); err == nil {
		t.Fatal("expected error")
	}

	st := a.Snapshot()
	if got := st.Selected.Treinos["A"][0].Carga; got != "50kg" {
		t.Errorf("carga = %q, want optimistic 50kg", got)
	}
	if st.Notification == nil || st.Notification.Message != MsgSaveFailed {
		t.Errorf("notification = %+v", st.Notification)
	}
	if st.Saving || st.Editing != nil {
		t.Error("save should be finished and editor idle")
	}
}

// TestSaveEditFailureRollback verifies the rollback policy restores the
// previous value and reports the failure.
func TestSaveEditFailureRollback(t *testing.T) {
	a, fs := newFixture(Rollback)
	_ = a.Refresh(context.Background())
	_ = a.Select("w1")
	fs.updateErr = &store.NetworkError{Op: "update workout", Err: errors.New("reset")}

	_ = a.BeginEdit("A", 0)
	a.ChangeEdit("50kg")
	if err := a.SaveEdit(context.Background()); !store.IsNetwork(err) {
		t.Fatalf("error = %v, want network error", err)
	}

	st := a.Snapshot()
	if diff := cmp.Diff(treinosFixture(), st.Selected.Treinos); diff != "" {
		t.Errorf("treinos not rolled back (-want +got):\n%s", diff)
	}
	if st.Notification == nil || st.Notification.Message != MsgRolledBack {
		t.Errorf("notification = %+v", st.Notification)
	}
}

// TestEditRequiresSelection verifies edit operations without an open workout.
func TestEditRequiresSelection(t *testing.T) {
	a, _ := newFixture(KeepOptimistic)
	if err := a.BeginEdit("A", 0); !errors.Is(err, ErrNoSelection) {
		t.Errorf("BeginEdit error = %v", err)
	}
	if err := a.SaveEdit(context.Background()); !errors.Is(err, ErrNoSelection) {
		t.Errorf("SaveEdit error = %v", err)
	}
}

// TestSaveEditAfterBackNotifies verifies a save whose edit was closed by
// another action reports the lost carga and writes nothing.
func TestSaveEditAfterBackNotifies(t *testing.T) {
	a, fs := newFixture(KeepOptimistic)
	_ = a.Refresh(context.Background())
	_ = a.Select("w1")
	_ = a.BeginEdit("A", 0)

	a.Back()
	_ = a.Select("w1")
	a.ChangeEdit("50kg")
	if err := a.SaveEdit(context.Background()); !errors.Is(err, view.ErrNotEditing) {
		t.Fatalf("SaveEdit error = %v, want ErrNotEditing", err)
	}
	if len(fs.updates) != 0 {
		t.Errorf("updates = %v, want none", fs.updates)
	}
	st := a.Snapshot()
	if st.Notification == nil || st.Notification.Message != MsgEditLost || st.Notification.Severity != SeverityError {
		t.Errorf("notification = %+v", st.Notification)
	}
}

// TestUploadSetsPreview verifies a successful upload becomes the preview and
// the form name is kept.
func TestUploadSetsPreview(t *testing.T) {
	a, _ := newFixture(KeepOptimistic)
	a.SetUploadName("Hipertrofia")

	res, err := a.Upload(context.Background(), upload.File{Name: "leg-day.csv"}, "")
	if err != nil {
		t.Fatal(err)
	}
	if res.Name != "Hipertrofia" {
		t.Errorf("name = %q, want Hipertrofia", res.Name)
	}
	st := a.Snapshot()
	if st.Preview == nil || st.Preview.WorkoutName != "Hipertrofia" {
		t.Errorf("preview = %+v", st.Preview)
	}
	if st.UploadName != "Hipertrofia" {
		t.Errorf("upload name = %q", st.UploadName)
	}
}

// TestUploadRejectedFile verifies an unsupported file raises an error
// notification and leaves no preview.
func TestUploadRejectedFile(t *testing.T) {
	a, _ := newFixture(KeepOptimistic)
	if _, err := a.Upload(context.Background(), upload.File{Name: "plano.xlsx"}, ""); !errors.Is(err, upload.ErrUnsupportedFile) {
		t.Fatalf("error = %v", err)
	}
	st := a.Snapshot()
	if st.Preview != nil {
		t.Error("no preview expected")
	}
	if st.Notification == nil || st.Notification.Severity != SeverityError {
		t.Errorf("notification = %+v", st.Notification)
	}
}

// TestToggleThemeAndDismiss covers the small state updates.
func TestToggleThemeAndDismiss(t *testing.T) {
	a, fs := newFixture(KeepOptimistic)
	a.ToggleTheme()
	if a.Snapshot().DarkMode {
		t.Error("expected light mode after toggle")
	}
	fs.listErr = errors.New("x")
	_ = a.Refresh(context.Background())
	a.DismissNotification()
	if a.Snapshot().Notification != nil {
		t.Error("notification not dismissed")
	}
}

// TestParsePersistPolicy verifies config values map to policies.
func TestParsePersistPolicy(t *testing.T) {
	for in, want := range map[string]PersistPolicy{"": KeepOptimistic, "keep": KeepOptimistic, "rollback": Rollback} {
		got, err := ParsePersistPolicy(in)
		if err != nil || got != want {
			t.Errorf("ParsePersistPolicy(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParsePersistPolicy("merge"); err == nil {
		t.Error("expected error for unknown policy")
	}
}
