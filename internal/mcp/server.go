package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// New creates an MCP server with all tools and resources registered.
func New(ds DataSource, uploads Submitter, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("Treinos", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("Treinos workout server. List workouts, read a workout's groups (Treino A to D) and exercises, update the carga of a single exercise, and upload workout files. Names and messages are in Brazilian Portuguese."),
	)

	h := &handlers{ds: ds, uploads: uploads, log: log}

	// Tools
	s.AddTools(
		server.ServerTool{Tool: toolListWorkouts, Handler: h.listWorkouts},
		server.ServerTool{Tool: toolGetWorkout, Handler: h.getWorkout},
		server.ServerTool{Tool: toolUpdateCarga, Handler: h.updateCarga},
		server.ServerTool{Tool: toolUploadWorkout, Handler: h.uploadWorkout},
	)

	// Resources
	s.AddResources(
		server.ServerResource{Resource: resWorkouts, Handler: h.workoutsResource},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	ds      DataSource
	uploads Submitter
	log     *slog.Logger
}

// --- Resource definitions ---

var resWorkouts = mcp.NewResource(
	"treinos://workouts",
	"Workouts",
	mcp.WithResourceDescription("All workouts, newest first, with the groups each one contains"),
	mcp.WithMIMEType("application/json"),
)
