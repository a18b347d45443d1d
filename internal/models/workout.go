package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"
)

// ErrInvalidWorkout is returned by Validate for structurally invalid workouts.
var ErrInvalidWorkout = errors.New("invalid workout")

// Exercise is one row of a workout group. Carga is the only field edited in place.
type Exercise struct {
	Exercicio string `json:"exercicio"`
	Series    string `json:"series"`
	Carga     string `json:"carga"`
	Intervalo string `json:"intervalo"`
}

// Groups maps a group label ("A", "B", ...) to its exercises.
// Exercise order within a group is display-significant.
type Groups map[string][]Exercise

// Workout is a named collection of exercise groups created by one upload.
type Workout struct {
	ID          string
	UserID      string
	WorkoutName string
	Treinos     Groups
	CreatedAt   time.Time

	// GroupOrder is the order treinos keys appeared in on the wire.
	// It is empty for workouts built in memory.
	GroupOrder []string
}

// WorkoutResponse is the envelope returned by the upload endpoint.
type WorkoutResponse struct {
	Workout Workout `json:"workout"`
	Message string  `json:"message,omitempty"`
}

// Validate checks the structural contract: non-empty id and a treinos mapping.
func (w Workout) Validate() error {
	if w.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidWorkout)
	}
	if w.Treinos == nil {
		return fmt.Errorf("%w: missing treinos", ErrInvalidWorkout)
	}
	return nil
}

// Clone returns a deep copy. Nil groups stay nil and nil exercise slices stay nil.
func (g Groups) Clone() Groups {
	if g == nil {
		return nil
	}
	out := make(Groups, len(g))
	for k, v := range g {
		if v == nil {
			out[k] = nil
			continue
		}
		c := make([]Exercise, len(v))
		copy(c, v)
		out[k] = c
	}
	return out
}

// Equal reports structural equality. A nil and an empty exercise slice are equal.
func (g Groups) Equal(other Groups) bool {
	if len(g) != len(other) {
		return false
	}
	for k, v := range g {
		o, ok := other[k]
		if !ok || len(v) != len(o) {
			return false
		}
		for i := range v {
			if v[i] != o[i] {
				return false
			}
		}
	}
	return true
}

// Keys returns the group keys following order first (skipping keys not in g
// and duplicates), then any remaining keys sorted lexically.
func (g Groups) Keys(order []string) []string {
	keys := make([]string, 0, len(g))
	seen := make(map[string]bool, len(g))
	for _, k := range order {
		if _, ok := g[k]; ok && !seen[k] {
			keys = append(keys, k)
			seen[k] = true
		}
	}
	var rest []string
	for k := range g {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}

// MarshalOrdered encodes g as a JSON object whose keys follow Keys(order).
func (g Groups) MarshalOrdered(order []string) ([]byte, error) {
	if g == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range g.Keys(order) {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(g[k])
		if err != nil {
			return nil, fmt.Errorf("encoding group %q: %w", k, err)
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// workoutWire is the backend's JSON shape (Mongo-style "_id").
type workoutWire struct {
	ID          string          `json:"_id"`
	UserID      string          `json:"userId,omitempty"`
	WorkoutName string          `json:"workoutName"`
	Treinos     json.RawMessage `json:"treinos"`
	CreatedAt   string          `json:"createdAt"`
}

// MarshalJSON writes the backend shape, keeping treinos in GroupOrder.
func (w Workout) MarshalJSON() ([]byte, error) {
	treinos, err := w.Treinos.MarshalOrdered(w.GroupOrder)
	if err != nil {
		return nil, err
	}
	wire := workoutWire{
		ID:          w.ID,
		UserID:      w.UserID,
		WorkoutName: w.WorkoutName,
		Treinos:     treinos,
	}
	if !w.CreatedAt.IsZero() {
		wire.CreatedAt = w.CreatedAt.Format(time.RFC3339Nano)
	}
	return json.Marshal(wire)
}

// UnmarshalJSON reads the backend shape and records the treinos key order.
func (w *Workout) UnmarshalJSON(data []byte) error {
	var wire workoutWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	createdAt, err := ParseCreatedAt(wire.CreatedAt)
	if err != nil {
		return err
	}

	treinos, order, err := DecodeGroups(wire.Treinos)
	if err != nil {
		return err
	}

	*w = Workout{
		ID:          wire.ID,
		UserID:      wire.UserID,
		WorkoutName: wire.WorkoutName,
		Treinos:     treinos,
		CreatedAt:   createdAt,
		GroupOrder:  order,
	}
	return nil
}

// DecodeGroups decodes a treinos object and the order its keys appear in.
// Empty input and JSON null decode to nil groups.
func DecodeGroups(raw []byte) (Groups, []string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil, nil
	}
	var treinos Groups
	if err := json.Unmarshal(raw, &treinos); err != nil {
		return nil, nil, fmt.Errorf("decoding treinos: %w", err)
	}
	order, err := objectKeys(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("reading treinos keys: %w", err)
	}
	return treinos, order, nil
}

// ParseCreatedAt accepts RFC 3339 (fractional seconds optional) or a plain
// YYYY-MM-DD date. An empty string yields the zero time.
func ParseCreatedAt(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid createdAt %q", s)
	}
	return t, nil
}

// objectKeys returns the top-level keys of a JSON object in document order.
func objectKeys(raw json.RawMessage) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected object, got %v", tok)
	}

	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected key token %v", tok)
		}
		keys = append(keys, key)

		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, err
		}
	}
	return keys, nil
}
