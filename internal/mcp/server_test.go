package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/meltforce/treinos/internal/models"
	"github.com/meltforce/treinos/internal/store"
	"github.com/meltforce/treinos/internal/upload"
)

type fakeSource struct {
	workouts  []models.Workout
	listErr   error
	updateErr error
	updated   map[string]models.Groups
	orders    map[string][]string
}

func (f *fakeSource) ListWorkouts(ctx context.Context) ([]models.Workout, error) {
	return f.workouts, f.listErr
}

func (f *fakeSource) GetWorkout(ctx context.Context, id string) (*models.Workout, error) {
	for i := range f.workouts {
		if f.workouts[i].ID == id {
			w := f.workouts[i]
			w.Treinos = w.Treinos.Clone()
			return &w, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeSource) UpdateWorkout(ctx context.Context, id string, treinos models.Groups, order []string) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	if f.updated == nil {
		f.updated = make(map[string]models.Groups)
		f.orders = make(map[string][]string)
	}
	f.updated[id] = treinos
	f.orders[id] = order
	return nil
}

type fakeUploader struct {
	gotName string
}

func (f *fakeUploader) UploadWorkout(ctx context.Context, filename string, content []byte, workoutName string) (*models.WorkoutResponse, error) {
	f.gotName = workoutName
	return &models.WorkoutResponse{Workout: models.Workout{
		ID:          "new",
		WorkoutName: workoutName,
		Treinos:     models.Groups{"A": {{Exercicio: "Supino", Series: "4x10", Carga: "40kg", Intervalo: "60s"}}},
	}}, nil
}

func testHandlers(src *fakeSource) (*handlers, *fakeUploader) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	up := &fakeUploader{}
	return &handlers{ds: src, uploads: upload.NewFlow(up, nil, log), log: log}, up
}

func sample() []models.Workout {
	return []models.Workout{
		{
			ID:          "old",
			WorkoutName: "Antigo",
			CreatedAt:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			Treinos: models.Groups{
				"Extra": {{Exercicio: "Prancha", Series: "3x30s", Carga: "-", Intervalo: "30s"}},
				"B":     {{Exercicio: "Remada", Series: "3x12", Carga: "30kg", Intervalo: "60s"}},
				"A": {
					{Exercicio: "Supino", Series: "4x10", Carga: "40kg", Intervalo: "90s"},
					{Exercicio: "Crucifixo", Series: "3x12", Carga: "12kg", Intervalo: "60s"},
				},
			},
			GroupOrder: []string{"Extra", "B", "A"},
		},
		{
			ID:          "new",
			WorkoutName: "Novo",
			CreatedAt:   time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
			Treinos:     models.Groups{"C": {{Exercicio: "Agachamento", Series: "5x5", Carga: "80kg", Intervalo: "120s"}}},
		},
	}
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	for _, c := range res.Content {
		switch tc := c.(type) {
		case mcp.TextContent:
			return tc.Text
		case *mcp.TextContent:
			return tc.Text
		}
	}
	t.Fatal("no text content in result")
	return ""
}

// TestListWorkoutsNewestFirst verifies ordering, group keys and the limit.
func TestListWorkoutsNewestFirst(t *testing.T) {
	h, _ := testHandlers(&fakeSource{workouts: sample()})

	res, err := h.listWorkouts(context.Background(), callRequest(nil))
	if err != nil || res.IsError {
		t.Fatalf("unexpected failure: %v %+v", err, res)
	}
	var got []workoutSummary
	if err := json.Unmarshal([]byte(resultText(t, res)), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := []workoutSummary{
		{ID: "new", WorkoutName: "Novo", CreatedAt: "2024-06-01T00:00:00Z", Groups: []string{"C"}},
		{ID: "old", WorkoutName: "Antigo", CreatedAt: "2024-01-01T00:00:00Z", Groups: []string{"A", "B", "Extra"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("summaries mismatch (-want +got):\n%s", diff)
	}

	res, _ = h.listWorkouts(context.Background(), callRequest(map[string]any{"limit": float64(1)}))
	if err := json.Unmarshal([]byte(resultText(t, res)), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 1 || got[0].ID != "new" {
		t.Errorf("limited list = %+v", got)
	}
}

// TestListWorkoutsError verifies a store failure is a tool error, not a
// protocol error.
func TestListWorkoutsError(t *testing.T) {
	h, _ := testHandlers(&fakeSource{listErr: errors.New("down")})

	res, err := h.listWorkouts(context.Background(), callRequest(nil))
	if err != nil {
		t.Fatalf("unexpected protocol error: %v", err)
	}
	if !res.IsError {
		t.Error("expected IsError")
	}
}

// TestGetWorkoutDisplayOrder verifies groups come back A–D first.
func TestGetWorkoutDisplayOrder(t *testing.T) {
	h, _ := testHandlers(&fakeSource{workouts: sample()})

	res, err := h.getWorkout(context.Background(), callRequest(map[string]any{"id": "old"}))
	if err != nil || res.IsError {
		t.Fatalf("unexpected failure: %v %+v", err, res)
	}
	var got workoutDetail
	if err := json.Unmarshal([]byte(resultText(t, res)), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	var keys []string
	for _, g := range got.Groups {
		keys = append(keys, g.Key)
	}
	if diff := cmp.Diff([]string{"A", "B", "Extra"}, keys); diff != "" {
		t.Errorf("group order mismatch (-want +got):\n%s", diff)
	}
	if got.Groups[0].Label != "Treino A" || len(got.Groups[0].Exercises) != 2 {
		t.Errorf("group A = %+v", got.Groups[0])
	}
}

// TestGetWorkoutNotFound verifies an unknown id is reported as a tool error.
func TestGetWorkoutNotFound(t *testing.T) {
	h, _ := testHandlers(&fakeSource{workouts: sample()})

	res, _ := h.getWorkout(context.Background(), callRequest(map[string]any{"id": "nope"}))
	if !res.IsError || !strings.Contains(resultText(t, res), "not found") {
		t.Errorf("expected not found error, got %+v", res)
	}
	res, _ = h.getWorkout(context.Background(), callRequest(nil))
	if !res.IsError {
		t.Error("expected error for missing id")
	}
}

// TestUpdateCargaSendsFullMapping verifies only the target carga changes and
// every group is sent.
func TestUpdateCargaSendsFullMapping(t *testing.T) {
	src := &fakeSource{workouts: sample()}
	h, _ := testHandlers(src)

	res, err := h.updateCarga(context.Background(), callRequest(map[string]any{
		"id": "old", "group": "A", "index": float64(1), "carga": "14kg",
	}))
	if err != nil || res.IsError {
		t.Fatalf("unexpected failure: %v %+v", err, res)
	}

	want := sample()[0].Treinos.Clone()
	want["A"][1].Carga = "14kg"
	if diff := cmp.Diff(want, src.updated["old"]); diff != "" {
		t.Errorf("persisted mapping mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Extra", "B", "A"}, src.orders["old"]); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
	if sample()[0].Treinos["A"][1].Carga != "12kg" {
		t.Error("sample data mutated")
	}
}

// TestUpdateCargaOutOfRange verifies a bad cell is rejected without a write.
func TestUpdateCargaOutOfRange(t *testing.T) {
	src := &fakeSource{workouts: sample()}
	h, _ := testHandlers(src)

	for _, args := range []map[string]any{
		{"id": "old", "group": "A", "index": float64(5), "carga": "1kg"},
		{"id": "old", "group": "D", "index": float64(0), "carga": "1kg"},
		{"id": "old", "group": "A", "index": float64(-1), "carga": "1kg"},
	} {
		res, _ := h.updateCarga(context.Background(), callRequest(args))
		if !res.IsError {
			t.Errorf("args %v: expected error", args)
		}
	}
	if len(src.updated) != 0 {
		t.Errorf("unexpected writes: %v", src.updated)
	}
}

// TestUpdateCargaStoreMessage verifies the backend's message is surfaced.
func TestUpdateCargaStoreMessage(t *testing.T) {
	src := &fakeSource{
		workouts:  sample(),
		updateErr: &store.ValidationError{Op: "update", Status: 400, Message: "Carga inválida"},
	}
	h, _ := testHandlers(src)

	res, _ := h.updateCarga(context.Background(), callRequest(map[string]any{
		"id": "old", "group": "B", "index": float64(0), "carga": "??",
	}))
	if !res.IsError || resultText(t, res) != "Carga inválida" {
		t.Errorf("expected backend message, got %+v", res)
	}
}

// TestUploadWorkout verifies a local file goes through the upload flow with
// the derived name.
func TestUploadWorkout(t *testing.T) {
	h, up := testHandlers(&fakeSource{})
	path := filepath.Join(t.TempDir(), "semana1.txt")
	if err := os.WriteFile(path, []byte("A;Supino;4x10;40kg;60s\n"), 0644); err != nil {
		t.Fatal(err)
	}

	res, err := h.uploadWorkout(context.Background(), callRequest(map[string]any{"path": path}))
	if err != nil || res.IsError {
		t.Fatalf("unexpected failure: %v %+v", err, res)
	}
	if up.gotName != "semana1" {
		t.Errorf("uploaded name = %q, want semana1", up.gotName)
	}
	if !strings.Contains(resultText(t, res), upload.MsgSuccess) {
		t.Errorf("result missing success message")
	}
}

// TestUploadWorkoutRejectsExtension verifies the allowlist applies to MCP uploads.
func TestUploadWorkoutRejectsExtension(t *testing.T) {
	h, up := testHandlers(&fakeSource{})
	path := filepath.Join(t.TempDir(), "foto.png")
	if err := os.WriteFile(path, []byte{0x89, 'P', 'N', 'G'}, 0644); err != nil {
		t.Fatal(err)
	}

	res, _ := h.uploadWorkout(context.Background(), callRequest(map[string]any{"path": path, "name": "x"}))
	if !res.IsError {
		t.Error("expected error for .png")
	}
	if up.gotName != "" {
		t.Error("upload reached the backend")
	}
}

// TestWorkoutsResource verifies the resource lists summaries as JSON.
func TestWorkoutsResource(t *testing.T) {
	h, _ := testHandlers(&fakeSource{workouts: sample()})

	var req mcp.ReadResourceRequest
	req.Params.URI = "treinos://workouts"
	contents, err := h.workoutsResource(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(contents) != 1 {
		t.Fatalf("contents = %d, want 1", len(contents))
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("content type = %T", contents[0])
	}
	var got []workoutSummary
	if err := json.Unmarshal([]byte(tc.Text), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 2 || got[0].ID != "new" {
		t.Errorf("resource = %+v", got)
	}
}

// TestNewRegistersTools verifies the server builds with its handlers.
func TestNewRegistersTools(t *testing.T) {
	src := &fakeSource{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	if s := New(src, upload.NewFlow(&fakeUploader{}, nil, log), "test", log); s == nil {
		t.Fatal("New returned nil")
	}
}
