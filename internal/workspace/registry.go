package workspace

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/yungbote/dossier-backend/internal/platform/logger"
	"github.com/yungbote/dossier-backend/internal/realtime"
	"github.com/yungbote/dossier-backend/internal/services"
	"github.com/yungbote/dossier-backend/internal/session"
)

// Entry is the application context of one signed-in session.
type Entry struct {
	Session   *session.Manager
	Workspace *Workspace
}

// Registry owns one Entry per session id. Entries are dropped as soon as
// their session becomes unauthenticated.
type Registry struct {
	mu           sync.Mutex
	log          *logger.Logger
	auth         services.AuthService
	hub          *realtime.SSEHub
	newWorkspace func() *Workspace
	entries      map[uuid.UUID]*Entry
}

func NewRegistry(log *logger.Logger, auth services.AuthService, hub *realtime.SSEHub, newWorkspace func() *Workspace) *Registry {
	return &Registry{
		log:          log.With("service", "WorkspaceRegistry"),
		auth:         auth,
		hub:          hub,
		newWorkspace: newWorkspace,
		entries:      make(map[uuid.UUID]*Entry),
	}
}

// Open returns the session's entry, starting a session manager and an empty
// workspace the first time a session is seen.
func (r *Registry) Open(ctx context.Context, sessionID uuid.UUID, accessToken string) (*Entry, error) {
	if e, ok := r.Get(sessionID); ok {
		e.Session.SetAccessToken(accessToken)
		return e, nil
	}

	m := session.NewManager(r.log, r.auth, r.hub)
	ws := r.newWorkspace()
	m.Subscribe(ws.SessionChanged)
	if _, err := m.Start(ctx, accessToken); err != nil {
		m.Close()
		return nil, err
	}

	r.mu.Lock()
	if e, ok := r.entries[sessionID]; ok {
		r.mu.Unlock()
		m.Close()
		e.Session.SetAccessToken(accessToken)
		return e, nil
	}
	e := &Entry{Session: m, Workspace: ws}
	r.entries[sessionID] = e
	r.mu.Unlock()

	m.Subscribe(func(st session.State) {
		if !st.Authenticated() {
			r.Drop(sessionID)
		}
	})
	if !m.State().Authenticated() {
		r.Drop(sessionID)
	}
	r.log.Debug("Workspace opened", "session_id", sessionID)
	return e, nil
}

func (r *Registry) Get(sessionID uuid.UUID) (*Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[sessionID]
	return e, ok
}

func (r *Registry) Drop(sessionID uuid.UUID) {
	r.mu.Lock()
	e, ok := r.entries[sessionID]
	delete(r.entries, sessionID)
	r.mu.Unlock()
	if ok {
		e.Session.Close()
		r.log.Debug("Workspace dropped", "session_id", sessionID)
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *Registry) Close() {
	r.mu.Lock()
	entries := r.entries
	r.entries = make(map[uuid.UUID]*Entry)
	r.mu.Unlock()
	for _, e := range entries {
		e.Session.Close()
	}
}
