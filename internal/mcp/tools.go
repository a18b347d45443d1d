package mcp

import (
	"context"
	"errors"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/meltforce/treinos/internal/app"
	"github.com/meltforce/treinos/internal/models"
	"github.com/meltforce/treinos/internal/store"
	"github.com/meltforce/treinos/internal/upload"
	"github.com/meltforce/treinos/internal/view"
)

type workoutSummary struct {
	ID          string   `json:"id"`
	WorkoutName string   `json:"workoutName"`
	CreatedAt   string   `json:"createdAt,omitempty"`
	Groups      []string `json:"groups"`
}

type groupDetail struct {
	Key       string            `json:"key"`
	Label     string            `json:"label"`
	Exercises []models.Exercise `json:"exercises"`
}

type workoutDetail struct {
	ID          string        `json:"id"`
	WorkoutName string        `json:"workoutName"`
	CreatedAt   string        `json:"createdAt,omitempty"`
	Groups      []groupDetail `json:"groups"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func summarize(workouts []models.Workout) []workoutSummary {
	out := make([]workoutSummary, len(workouts))
	for i, w := range workouts {
		keys := make([]string, 0, len(w.Treinos))
		for _, g := range view.OrderGroups(w.Treinos, w.GroupOrder) {
			keys = append(keys, g.Key)
		}
		out[i] = workoutSummary{
			ID:          w.ID,
			WorkoutName: w.WorkoutName,
			CreatedAt:   formatTime(w.CreatedAt),
			Groups:      keys,
		}
	}
	return out
}

func detail(w *models.Workout) workoutDetail {
	d := workoutDetail{
		ID:          w.ID,
		WorkoutName: w.WorkoutName,
		CreatedAt:   formatTime(w.CreatedAt),
		Groups:      []groupDetail{},
	}
	for _, g := range view.OrderGroups(w.Treinos, w.GroupOrder) {
		d.Groups = append(d.Groups, groupDetail{Key: g.Key, Label: view.GroupLabel(g.Key), Exercises: g.Exercises})
	}
	return d
}

// --- Tool definitions ---

var toolListWorkouts = mcp.NewTool("list_workouts",
	mcp.WithDescription("List workouts, newest first. Each entry has the id, name, creation date and the group keys it contains."),
	mcp.WithNumber("limit", mcp.Description("Maximum number of workouts to return. Defaults to all.")),
)

var toolGetWorkout = mcp.NewTool("get_workout",
	mcp.WithDescription("Get one workout with its groups in display order (Treino A, B, C, D, then any others). Each exercise has exercicio, series, carga and intervalo."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Workout id")),
)

var toolUpdateCarga = mcp.NewTool("update_carga",
	mcp.WithDescription("Set the carga (load) of one exercise. The whole treinos mapping of the workout is sent back to the store with only that value changed."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Workout id")),
	mcp.WithString("group", mcp.Required(), mcp.Description("Group key, e.g. 'A'")),
	mcp.WithNumber("index", mcp.Required(), mcp.Description("Zero-based exercise position within the group")),
	mcp.WithString("carga", mcp.Required(), mcp.Description("New carga text, e.g. '42kg'")),
)

var toolUploadWorkout = mcp.NewTool("upload_workout",
	mcp.WithDescription("Upload a local workout file (.txt or .csv) for the backend to parse into a new workout."),
	mcp.WithString("path", mcp.Required(), mcp.Description("Path of the file on this machine")),
	mcp.WithString("name", mcp.Description("Workout name. Defaults to the file name without extension.")),
)

// --- Tool handlers ---

func (h *handlers) listWorkouts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	workouts, err := h.ds.ListWorkouts(ctx)
	if err != nil {
		h.log.Error("mcp list_workouts", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	workouts = view.NewestFirst(workouts)
	if limit := req.GetInt("limit", 0); limit > 0 && limit < len(workouts) {
		workouts = workouts[:limit]
	}

	result, err := mcp.NewToolResultJSON(summarize(workouts))
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getWorkout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("id parameter is required"), nil
	}

	w, err := h.ds.GetWorkout(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return mcp.NewToolResultError("workout not found: " + id), nil
	}
	if err != nil {
		h.log.Error("mcp get_workout", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(detail(w))
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) updateCarga(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("id parameter is required"), nil
	}
	group, err := req.RequireString("group")
	if err != nil {
		return mcp.NewToolResultError("group parameter is required"), nil
	}
	index, err := req.RequireInt("index")
	if err != nil {
		return mcp.NewToolResultError("index parameter is required"), nil
	}
	carga, err := req.RequireString("carga")
	if err != nil {
		return mcp.NewToolResultError("carga parameter is required"), nil
	}

	w, err := h.ds.GetWorkout(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return mcp.NewToolResultError("workout not found: " + id), nil
	}
	if err != nil {
		h.log.Error("mcp update_carga", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	var ed view.Editor
	current := ""
	if exercises := w.Treinos[group]; index >= 0 && index < len(exercises) {
		current = exercises[index].Carga
	}
	ed.Begin(group, index, current)
	ed.Change(carga)

	updated, err := ed.Save(w.Treinos, func(treinos models.Groups) error {
		return h.ds.UpdateWorkout(ctx, w.ID, treinos, w.GroupOrder)
	})
	if errors.Is(err, view.ErrCellOutOfRange) {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err != nil {
		h.log.Error("mcp update_carga", "workout", id, "error", err)
		return mcp.NewToolResultError(store.UserMessage(err, app.MsgSaveFailed)), nil
	}
	h.log.Info("carga updated", "workout", id, "group", group, "index", index)

	w.Treinos = updated
	result, err := mcp.NewToolResultJSON(detail(w))
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) uploadWorkout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError("path parameter is required"), nil
	}

	file, err := upload.ReadFile(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	res, err := h.uploads.Submit(ctx, file, req.GetString("name", ""))
	if err != nil {
		return mcp.NewToolResultError(res.Message), nil
	}

	out := map[string]any{
		"name":    res.Name,
		"message": res.Message,
	}
	if res.Workout != nil {
		out["workout"] = detail(res.Workout)
	}
	result, err := mcp.NewToolResultJSON(out)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}
