package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/meltforce/treinos/internal/models"
)

// RequestIDHeader carries a per-request id so client and backend logs line up.
const RequestIDHeader = "X-Request-ID"

// Client talks to the workout backend over HTTP. Every call is a single
// request/response: no caching, no retries.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Client for the backend at baseURL (scheme included).
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// ListWorkouts fetches every stored workout.
func (c *Client) ListWorkouts(ctx context.Context) ([]models.Workout, error) {
	const op = "list workouts"

	status, body, err := c.send(ctx, op, http.MethodGet, "/api/workouts", "", nil)
	if err != nil {
		return nil, err
	}
	if !isSuccess(status) {
		return nil, &ServerError{Op: op, Status: status, Message: messageFrom(body)}
	}

	var workouts []models.Workout
	if err := json.Unmarshal(body, &workouts); err != nil {
		return nil, &MalformedResponse{Op: op, Status: status, Err: err}
	}
	return workouts, nil
}

// GetWorkout resolves a single workout by id from the list endpoint.
func (c *Client) GetWorkout(ctx context.Context, id string) (*models.Workout, error) {
	workouts, err := c.ListWorkouts(ctx)
	if err != nil {
		return nil, err
	}
	for i := range workouts {
		if workouts[i].ID == id {
			return &workouts[i], nil
		}
	}
	return nil, fmt.Errorf("store: get workout %q: %w", id, ErrNotFound)
}

// UploadWorkout posts the raw file and the chosen workout name as a
// multipart form. The backend parses the file and creates the workout.
func (c *Client) UploadWorkout(ctx context.Context, filename string, content []byte, workoutName string) (*models.WorkoutResponse, error) {
	const op = "upload workout"

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("store: %s: creating form file: %w", op, err)
	}
	if _, err := part.Write(content); err != nil {
		return nil, fmt.Errorf("store: %s: writing form file: %w", op, err)
	}
	if err := mw.WriteField("workoutName", workoutName); err != nil {
		return nil, fmt.Errorf("store: %s: writing workoutName: %w", op, err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("store: %s: closing form: %w", op, err)
	}

	status, body, err := c.send(ctx, op, http.MethodPost, "/api/workouts/upload", mw.FormDataContentType(), &buf)
	if err != nil {
		return nil, err
	}
	if !isSuccess(status) {
		if msg := messageFrom(body); msg != "" {
			return nil, &ValidationError{Op: op, Status: status, Message: msg}
		}
		return nil, &ServerError{Op: op, Status: status}
	}

	var resp models.WorkoutResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &MalformedResponse{Op: op, Status: status, Err: err}
	}
	return &resp, nil
}

// UpdateWorkout replaces the whole treinos mapping of workout id. The caller
// sends the complete current state; the backend does not merge. Keys are
// written in order first, so the stored group order survives the round trip.
func (c *Client) UpdateWorkout(ctx context.Context, id string, treinos models.Groups, order []string) error {
	const op = "update workout"

	if id == "" {
		return fmt.Errorf("store: %s: empty id", op)
	}
	if treinos == nil {
		return fmt.Errorf("store: %s: treinos is required", op)
	}

	groups, err := treinos.MarshalOrdered(order)
	if err != nil {
		return fmt.Errorf("store: %s: encoding treinos: %w", op, err)
	}
	data, err := json.Marshal(struct {
		Treinos json.RawMessage `json:"treinos"`
	}{groups})
	if err != nil {
		return fmt.Errorf("store: %s: encoding body: %w", op, err)
	}

	status, body, err := c.send(ctx, op, http.MethodPut, "/api/workouts/"+url.PathEscape(id), "application/json", bytes.NewReader(data))
	if err != nil {
		return err
	}
	if status == http.StatusNotFound {
		return fmt.Errorf("store: %s %q: %w", op, id, ErrNotFound)
	}
	if !isSuccess(status) {
		return &ServerError{Op: op, Status: status, Message: messageFrom(body)}
	}
	return nil
}

func (c *Client) send(ctx context.Context, op, method, path, contentType string, body io.Reader) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, nil, fmt.Errorf("store: %s: create request: %w", op, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, &NetworkError{Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, &NetworkError{Op: op, Err: fmt.Errorf("read body: %w", err)}
	}
	return resp.StatusCode, data, nil
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

// messageFrom extracts {"message": "..."} from an error body, if present.
func messageFrom(body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return strings.TrimSpace(payload.Message)
}

// IsNetwork reports whether err is a transport failure.
func IsNetwork(err error) bool {
	var nerr *NetworkError
	return errors.As(err, &nerr)
}
