package server

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/meltforce/treinos/internal/app"
)

// TestSessionsPruneIdle verifies idle sessions are dropped when a new one
// starts, and active ones are kept.
func TestSessionsPruneIdle(t *testing.T) {
	ss := newSessions(func() *app.App { return &app.App{} })
	now := time.Now()
	ss.byID["old"] = &session{app: &app.App{}, seen: now.Add(-sessionIdle - time.Minute)}
	ss.byID["recent"] = &session{app: &app.App{}, seen: now.Add(-time.Minute)}

	rec := httptest.NewRecorder()
	ss.get(rec, httptest.NewRequest("GET", "/", nil))

	if _, ok := ss.byID["old"]; ok {
		t.Error("idle session not pruned")
	}
	if _, ok := ss.byID["recent"]; !ok {
		t.Error("active session pruned")
	}
	if len(ss.byID) != 2 {
		t.Errorf("sessions = %d, want 2", len(ss.byID))
	}
	if len(rec.Result().Cookies()) != 1 {
		t.Errorf("cookies = %v, want one session cookie", rec.Result().Cookies())
	}
}
