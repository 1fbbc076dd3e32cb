package web

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/meur/gearforge/internal/models"
)

const (
	sessionCookie = "gearforge_session"
	// idle results are dropped after this long
	sessionTTL = 12 * time.Hour
)

// currentBuild is the last successful configure result and the request that
// produced it. Saving a build sends both back to the backend.
type currentBuild struct {
	Config    models.BuildConfigure
	Result    []byte
	Formatted string
	Source    string // saved build name when loaded from the list
}

type sessionEntry struct {
	build   *currentBuild
	touched time.Time
}

// buildState holds one transient result per browser session. A session's
// result is replaced, never merged.
type buildState struct {
	mu       sync.Mutex
	sessions map[string]sessionEntry
	now      func() time.Time
}

func newBuildState() *buildState {
	return &buildState{sessions: make(map[string]sessionEntry), now: time.Now}
}

func (b *buildState) get(session string) *currentBuild {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.sessions[session]
	if !ok {
		return nil
	}
	e.touched = b.now()
	b.sessions[session] = e

	c := *e.build
	return &c
}

func (b *buildState) set(session string, c *currentBuild) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	for id, e := range b.sessions {
		if now.Sub(e.touched) > sessionTTL {
			delete(b.sessions, id)
		}
	}
	if c == nil {
		delete(b.sessions, session)
		return
	}
	b.sessions[session] = sessionEntry{build: c, touched: now}
}

func (b *buildState) clear(session string) {
	b.set(session, nil)
}

type sessionKey struct{}

// withSession makes sure every request carries a session id cookie
func withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id string
		if c, err := r.Cookie(sessionCookie); err == nil {
			if _, err := uuid.Parse(c.Value); err == nil {
				id = c.Value
			}
		}
		if id == "" {
			id = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     sessionCookie,
				Value:    id,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, id)))
	})
}

func sessionID(r *http.Request) string {
	id, _ := r.Context().Value(sessionKey{}).(string)
	return id
}
