package backend

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/meltforce/treinos/internal/models"
	"github.com/meltforce/treinos/internal/server"
	"github.com/meltforce/treinos/internal/store"
	"github.com/meltforce/treinos/internal/upload"
)

// MsgCreated is the message returned with a successful upload.
const MsgCreated = "Treino criado com sucesso"

const maxUploadBytes = 10 << 20

// Server exposes the workout API over a DB.
type Server struct {
	db     *DB
	log    *slog.Logger
	router chi.Router
}

// NewServer creates a Server with all routes configured.
func NewServer(db *DB, log *slog.Logger) *Server {
	s := &Server{
		db:     db,
		log:    log,
		router: chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(server.RequestLogging(s.log))
	s.router.Use(server.CORS)

	s.router.Route("/api/workouts", func(r chi.Router) {
		r.Get("/", s.handleList)
		r.Post("/upload", s.handleUpload)
		r.Put("/{id}", s.handleUpdate)
	})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	workouts, err := s.db.ListWorkouts(r.Context())
	if err != nil {
		s.log.Error("list workouts", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Erro ao listar treinos")
		return
	}
	writeJSON(w, http.StatusOK, workouts)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeMessage(w, http.StatusBadRequest, "Formulário inválido")
		return
	}

	f, hdr, err := r.FormFile("file")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Nenhum arquivo enviado")
		return
	}
	defer f.Close()

	groups, order, err := ParseFixture(f)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	name := upload.ChooseName(r.FormValue("workoutName"), hdr.Filename)
	workout := models.Workout{
		WorkoutName: name,
		Treinos:     groups,
		GroupOrder:  order,
	}
	if err := s.db.InsertWorkout(r.Context(), &workout); err != nil {
		s.log.Error("insert workout", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Erro ao salvar treino")
		return
	}

	s.log.Info("workout created", "id", workout.ID, "name", name, "groups", len(order))
	writeJSON(w, http.StatusOK, models.WorkoutResponse{Workout: workout, Message: MsgCreated})
}

type updateRequest struct {
	Treinos json.RawMessage `json:"treinos"`
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req updateRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxUploadBytes)).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "JSON inválido")
		return
	}
	treinos, order, err := models.DecodeGroups(req.Treinos)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	if treinos == nil {
		writeMessage(w, http.StatusBadRequest, "treinos é obrigatório")
		return
	}

	err = s.db.UpdateTreinos(r.Context(), id, treinos, order)
	if errors.Is(err, store.ErrNotFound) {
		writeMessage(w, http.StatusNotFound, "Treino não encontrado")
		return
	}
	if err != nil {
		s.log.Error("update workout", "id", id, "error", err)
		writeMessage(w, http.StatusInternalServerError, "Erro ao atualizar treino")
		return
	}
	writeMessage(w, http.StatusOK, "Treino atualizado")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}
