package upload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/meltforce/treinos/internal/models"
	"github.com/meltforce/treinos/internal/store"
)

// Notification texts shown to the user after a submit.
const (
	MsgSuccess = "Arquivo processado com sucesso!"
	MsgFailure = "Erro ao processar arquivo"
)

var (
	// ErrUnsupportedFile is returned for files outside the accepted extensions.
	ErrUnsupportedFile = errors.New("unsupported file type")
	// ErrUploadInFlight is returned when a submit is already pending on the Flow.
	ErrUploadInFlight = errors.New("upload already in progress")
)

// DefaultAcceptedExtensions are the plain-text formats the backend parses.
var DefaultAcceptedExtensions = []string{".txt", ".csv"}

// Uploader submits a raw file to the backend.
type Uploader interface {
	UploadWorkout(ctx context.Context, filename string, content []byte, workoutName string) (*models.WorkoutResponse, error)
}

// File is a locally selected file.
type File struct {
	Name    string
	Content []byte
}

// Result is the outcome of a submit. Message is always set and is meant to be
// shown to the user verbatim.
type Result struct {
	Name    string
	Workout *models.Workout
	Message string
}

// Flow validates a file, picks the workout name and submits it. A Flow allows
// one upload in flight at a time.
type Flow struct {
	client   Uploader
	accepted []string
	log      *slog.Logger

	mu       sync.Mutex
	inFlight bool
}

// NewFlow creates a Flow. An empty accepted list means DefaultAcceptedExtensions.
func NewFlow(client Uploader, accepted []string, log *slog.Logger) *Flow {
	if len(accepted) == 0 {
		accepted = DefaultAcceptedExtensions
	}
	normalized := make([]string, len(accepted))
	for i, ext := range accepted {
		normalized[i] = strings.ToLower(ext)
	}
	return &Flow{client: client, accepted: normalized, log: log}
}

// DefaultName strips the final extension from a file name. A leading dot
// (".csv") is not treated as an extension.
func DefaultName(filename string) string {
	if i := strings.LastIndex(filename, "."); i > 0 {
		return filename[:i]
	}
	return filename
}

// ChooseName prefers a non-blank caller-supplied name over the file's default.
func ChooseName(supplied, filename string) string {
	if s := strings.TrimSpace(supplied); s != "" {
		return s
	}
	return DefaultName(filename)
}

// Accepts reports whether filename has one of the accepted extensions.
func (f *Flow) Accepts(filename string) bool {
	if DefaultName(filename) == filename {
		return false
	}
	ext := strings.ToLower(filepath.Ext(filename))
	for _, a := range f.accepted {
		if ext == a {
			return true
		}
	}
	return false
}

// AcceptedExtensions returns the allowlist, e.g. for an input accept attribute.
func (f *Flow) AcceptedExtensions() []string {
	return append([]string(nil), f.accepted...)
}

// Busy reports whether an upload is in flight.
func (f *Flow) Busy() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inFlight
}

// Submit uploads file under the chosen name. On failure the returned Result
// still carries the message to show: the backend's text when it sent one,
// MsgFailure otherwise.
func (f *Flow) Submit(ctx context.Context, file File, workoutName string) (Result, error) {
	name := ChooseName(workoutName, file.Name)
	res := Result{Name: name}

	if !f.Accepts(file.Name) {
		res.Message = fmt.Sprintf("Tipo de arquivo não suportado. Use %s", strings.Join(f.accepted, ", "))
		return res, fmt.Errorf("%w: %q", ErrUnsupportedFile, file.Name)
	}

	if !f.claim() {
		res.Message = "Já existe um envio em andamento"
		return res, ErrUploadInFlight
	}
	defer f.release()

	f.log.Info("uploading workout file", "file", file.Name, "name", name, "bytes", len(file.Content))

	resp, err := f.client.UploadWorkout(ctx, file.Name, file.Content, name)
	if err != nil {
		f.log.Error("upload failed", "file", file.Name, "error", err)
		res.Message = store.UserMessage(err, MsgFailure)
		return res, fmt.Errorf("uploading %s: %w", file.Name, err)
	}

	res.Workout = &resp.Workout
	res.Message = MsgSuccess
	f.log.Info("workout created", "id", resp.Workout.ID, "groups", len(resp.Workout.Treinos))
	return res, nil
}

func (f *Flow) claim() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.inFlight {
		return false
	}
	f.inFlight = true
	return true
}

func (f *Flow) release() {
	f.mu.Lock()
	f.inFlight = false
	f.mu.Unlock()
}

// ReadFile loads a local file for Submit.
func ReadFile(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("reading %s: %w", path, err)
	}
	return File{Name: filepath.Base(path), Content: data}, nil
}
