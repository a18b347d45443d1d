package mcp

import (
	"context"

	"github.com/meltforce/treinos/internal/models"
	"github.com/meltforce/treinos/internal/store"
	"github.com/meltforce/treinos/internal/upload"
)

// DataSource is the workout store the MCP tools read and write.
type DataSource interface {
	ListWorkouts(ctx context.Context) ([]models.Workout, error)
	GetWorkout(ctx context.Context, id string) (*models.Workout, error)
	UpdateWorkout(ctx context.Context, id string, treinos models.Groups, order []string) error
}

// Submitter sends a workout file through the upload flow.
type Submitter interface {
	Submit(ctx context.Context, file upload.File, workoutName string) (upload.Result, error)
}

// Compile-time checks.
var (
	_ DataSource = (*store.Client)(nil)
	_ Submitter  = (*upload.Flow)(nil)
)
