package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/meltforce/treinos/internal/app"
	"github.com/meltforce/treinos/internal/models"
	"github.com/meltforce/treinos/internal/store"
	"github.com/meltforce/treinos/internal/upload"
	"github.com/meltforce/treinos/internal/view"
)

// MsgNoFile is shown when the upload form is posted without a file.
const MsgNoFile = "Selecione um arquivo"

// pageData is what every page template receives.
type pageData struct {
	Title  string
	State  app.State
	Cards  []workoutCard
	Groups []groupRows
	Accept string
}

type workoutCard struct {
	ID      string
	Name    string
	Created string
	Chips   []string
}

type groupRows struct {
	Key  string
	Rows []exerciseRow
}

type exerciseRow struct {
	Index int
	models.Exercise
	Editing bool
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	a := s.sessions.get(w, r)
	a.Back()
	// A failed refresh keeps the previous list and raises a notification.
	_ = a.Refresh(r.Context())

	st := a.Snapshot()
	cards := make([]workoutCard, 0, len(st.Workouts))
	for _, wk := range st.Workouts {
		cards = append(cards, workoutCard{
			ID:      wk.ID,
			Name:    wk.WorkoutName,
			Created: view.FormatCreated(wk.CreatedAt),
			Chips:   view.KnownGroups(wk.Treinos),
		})
	}
	s.render(w, http.StatusOK, "list.html", pageData{Title: "Meus Treinos", State: st, Cards: cards})
}

func (s *Server) handleDetail(w http.ResponseWriter, r *http.Request) {
	a := s.sessions.get(w, r)
	id := chi.URLParam(r, "id")
	if err := s.open(r, a, id); err != nil {
		s.renderNotFound(w, id, err)
		return
	}

	st := a.Snapshot()
	wk := st.Selected
	if wk == nil || wk.ID != id {
		// Closed by a concurrent request in the same session; open it again.
		http.Redirect(w, r, workoutPath(id), http.StatusSeeOther)
		return
	}
	var groups []groupRows
	for _, g := range view.OrderGroups(wk.Treinos, wk.GroupOrder) {
		rows := make([]exerciseRow, len(g.Exercises))
		for i, ex := range g.Exercises {
			rows[i] = exerciseRow{
				Index:    i,
				Exercise: ex,
				Editing:  st.Editing != nil && st.Editing.Group == g.Key && st.Editing.Index == i,
			}
		}
		groups = append(groups, groupRows{Key: g.Key, Rows: rows})
	}
	s.render(w, http.StatusOK, "detail.html", pageData{Title: wk.WorkoutName, State: st, Groups: groups})
}

func (s *Server) handleBeginEdit(w http.ResponseWriter, r *http.Request) {
	a := s.sessions.get(w, r)
	id := chi.URLParam(r, "id")
	if err := s.open(r, a, id); err != nil {
		s.renderNotFound(w, id, err)
		return
	}

	index, err := strconv.Atoi(r.FormValue("index"))
	if err != nil {
		http.Error(w, "invalid exercise index", http.StatusBadRequest)
		return
	}
	if err := a.BeginEdit(r.FormValue("group"), index); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	http.Redirect(w, r, workoutPath(id), http.StatusSeeOther)
}

func (s *Server) handleSaveEdit(w http.ResponseWriter, r *http.Request) {
	a := s.sessions.get(w, r)
	id := chi.URLParam(r, "id")
	if err := s.open(r, a, id); err != nil {
		s.renderNotFound(w, id, err)
		return
	}

	a.ChangeEdit(r.FormValue("carga"))
	if err := a.SaveEdit(r.Context()); err != nil {
		// The app already notified the user; the page shows it after redirect.
		s.log.Warn("save edit", "workout", id, "error", err)
	}
	http.Redirect(w, r, workoutPath(id), http.StatusSeeOther)
}

func (s *Server) handleCancelEdit(w http.ResponseWriter, r *http.Request) {
	s.sessions.get(w, r).CancelEdit()
	http.Redirect(w, r, workoutPath(chi.URLParam(r, "id")), http.StatusSeeOther)
}

func (s *Server) handleUploadPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "upload.html", pageData{Title: "Enviar treino", State: s.sessions.get(w, r).Snapshot(), Accept: s.accept})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	a := s.sessions.get(w, r)
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "invalid upload form: "+err.Error(), http.StatusBadRequest)
		return
	}

	name := r.FormValue("workoutName")
	a.SetUploadName(name)

	f, hdr, err := r.FormFile("file")
	if err != nil {
		a.Notify(MsgNoFile, app.SeverityError)
		http.Redirect(w, r, "/upload", http.StatusSeeOther)
		return
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		http.Error(w, "reading upload: "+err.Error(), http.StatusBadRequest)
		return
	}

	if _, err := a.Upload(r.Context(), upload.File{Name: hdr.Filename, Content: content}, name); err != nil {
		s.log.Warn("upload", "file", hdr.Filename, "error", err)
	}
	http.Redirect(w, r, "/upload", http.StatusSeeOther)
}

func (s *Server) handleToggleTheme(w http.ResponseWriter, r *http.Request) {
	s.sessions.get(w, r).ToggleTheme()
	http.Redirect(w, r, backTo(r), http.StatusSeeOther)
}

func (s *Server) handleDismiss(w http.ResponseWriter, r *http.Request) {
	s.sessions.get(w, r).DismissNotification()
	http.Redirect(w, r, backTo(r), http.StatusSeeOther)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// open makes id the open workout, reloading the list once if it is unknown.
// An already open workout is kept so its edit state survives.
func (s *Server) open(r *http.Request, a *app.App, id string) error {
	if sel := a.Snapshot().Selected; sel != nil && sel.ID == id {
		return nil
	}
	if err := a.Select(id); err == nil {
		return nil
	}
	if err := a.Refresh(r.Context()); err != nil {
		return err
	}
	return a.Select(id)
}

func (s *Server) render(w http.ResponseWriter, status int, page string, data pageData) {
	t, ok := s.pages[page]
	if !ok {
		http.Error(w, "unknown page "+page, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := t.ExecuteTemplate(w, "layout.html", data); err != nil {
		s.log.Error("render", "page", page, "error", err)
	}
}

func (s *Server) renderNotFound(w http.ResponseWriter, id string, err error) {
	if !errors.Is(err, store.ErrNotFound) {
		s.log.Error("opening workout", "workout", id, "error", err)
		http.Error(w, app.MsgLoadFailed, http.StatusBadGateway)
		return
	}
	http.Error(w, fmt.Sprintf("workout %q not found", id), http.StatusNotFound)
}

func workoutPath(id string) string {
	return "/workouts/" + url.PathEscape(id)
}

// backTo returns the path of the referring page, or "/" when there is none.
func backTo(r *http.Request) string {
	ref, err := url.Parse(r.Referer())
	if err != nil || ref.Path == "" {
		return "/"
	}
	if ref.RawQuery != "" {
		return ref.Path + "?" + ref.RawQuery
	}
	return ref.Path
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
