package server

import (
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/meltforce/treinos/internal/app"
	"github.com/meltforce/treinos/internal/models"
	"github.com/meltforce/treinos/internal/view"
)

//go:embed templates/*.html
var templateFS embed.FS

// maxUploadBytes bounds the multipart form of an upload.
const maxUploadBytes = 10 << 20

// Server renders the workout pages and turns form posts into App updates.
type Server struct {
	sessions *sessions
	accept   string
	log      *slog.Logger
	router   chi.Router
	pages    map[string]*template.Template
}

// New creates a new Server with all routes configured. newApp builds the state
// of each browser session. accepted is the upload extension allowlist, used
// for the file input's accept attribute.
func New(newApp func() *app.App, accepted []string, log *slog.Logger) (*Server, error) {
	pages, err := parsePages("list.html", "detail.html", "upload.html")
	if err != nil {
		return nil, err
	}
	s := &Server{
		sessions: newSessions(newApp),
		accept:   strings.Join(accepted, ","),
		log:      log,
		router:   chi.NewRouter(),
		pages:    pages,
	}
	s.routes()
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))

	s.router.Get("/healthz", s.handleHealth)
	s.router.Get("/", s.handleList)
	s.router.Route("/workouts/{id}", func(r chi.Router) {
		r.Get("/", s.handleDetail)
		r.Post("/edit", s.handleBeginEdit)
		r.Post("/save", s.handleSaveEdit)
		r.Post("/cancel", s.handleCancelEdit)
	})
	s.router.Get("/upload", s.handleUploadPage)
	s.router.Post("/upload", s.handleUpload)
	s.router.Post("/theme", s.handleToggleTheme)
	s.router.Post("/notification/dismiss", s.handleDismiss)
}

var templateFuncs = template.FuncMap{
	"formatDate":  view.FormatCreated,
	"groupLabel":  view.GroupLabel,
	"previewJSON": previewJSON,
}

// previewJSON renders an uploaded workout the way the backend returned it.
func previewJSON(w *models.Workout) string {
	data, err := json.MarshalIndent(w, "", "  ")
	if err != nil {
		return err.Error()
	}
	return string(data)
}

func parsePages(names ...string) (map[string]*template.Template, error) {
	pages := make(map[string]*template.Template, len(names))
	for _, name := range names {
		t, err := template.New("layout.html").Funcs(templateFuncs).ParseFS(templateFS, "templates/layout.html", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		pages[name] = t
	}
	return pages, nil
}
