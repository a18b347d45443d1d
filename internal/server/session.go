package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/meltforce/treinos/internal/app"
)

const (
	sessionCookie = "treinos_session"
	sessionIdle   = 12 * time.Hour
)

type session struct {
	app  *app.App
	seen time.Time
}

// sessions gives every browser its own App, so one tab going back to the list
// does not close the edit open in another browser.
type sessions struct {
	newApp func() *app.App

	mu   sync.Mutex
	byID map[string]*session
}

func newSessions(newApp func() *app.App) *sessions {
	return &sessions{newApp: newApp, byID: make(map[string]*session)}
}

// get returns the App for the request's session cookie, starting a new
// session and setting the cookie when there is none or it is unknown.
func (ss *sessions) get(w http.ResponseWriter, r *http.Request) *app.App {
	now := time.Now()

	ss.mu.Lock()
	defer ss.mu.Unlock()

	if c, err := r.Cookie(sessionCookie); err == nil {
		if sess, ok := ss.byID[c.Value]; ok {
			sess.seen = now
			return sess.app
		}
	}

	ss.prune(now)
	id := uuid.NewString()
	sess := &session{app: ss.newApp(), seen: now}
	ss.byID[id] = sess
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return sess.app
}

// prune drops sessions idle for longer than sessionIdle. Callers hold mu.
func (ss *sessions) prune(now time.Time) {
	for id, sess := range ss.byID {
		if now.Sub(sess.seen) > sessionIdle {
			delete(ss.byID, id)
		}
	}
}
