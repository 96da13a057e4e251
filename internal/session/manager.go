package session

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/yungbote/dossier-backend/internal/platform/logger"
	"github.com/yungbote/dossier-backend/internal/realtime"
	"github.com/yungbote/dossier-backend/internal/services"
)

type Kind string

const (
	Unauthenticated Kind = "unauthenticated"
	Authenticated   Kind = "authenticated"
)

// State is either Unauthenticated or Authenticated with an Identity.
// Loading is true until Start has resolved the identity once.
type State struct {
	Kind     Kind               `json:"kind"`
	Identity *services.Identity `json:"identity,omitempty"`
	Loading  bool               `json:"loading"`
}

func (s State) Authenticated() bool { return s.Kind == Authenticated && s.Identity != nil }

// Manager tracks the identity of one client session and fans state changes out
// to subscribers. Subscribers are called without the manager lock held.
type Manager struct {
	mu          sync.Mutex
	log         *logger.Logger
	auth        services.AuthService
	hub         *realtime.SSEHub
	state       State
	accessToken string
	subs        map[uint64]func(State)
	nextSub     uint64
	stopListen  func()
	closed      bool
}

func NewManager(log *logger.Logger, auth services.AuthService, hub *realtime.SSEHub) *Manager {
	return &Manager{
		log:   log.With("service", "SessionManager"),
		auth:  auth,
		hub:   hub,
		state: State{Kind: Unauthenticated, Loading: true},
		subs:  make(map[uint64]func(State)),
	}
}

// Start resolves the identity behind accessToken and begins listening for
// auth changes on that session's channel.
func (m *Manager) Start(ctx context.Context, accessToken string) (State, error) {
	id, err := m.auth.ResolveIdentity(ctx, accessToken)
	if err != nil {
		m.setState(State{Kind: Unauthenticated})
		return m.State(), err
	}

	m.mu.Lock()
	m.accessToken = accessToken
	if m.stopListen == nil && m.hub != nil && !m.closed {
		m.stopListen = m.hub.Listen(realtime.SessionChannel(id.SessionID), m.handle)
	}
	m.mu.Unlock()

	m.setState(State{Kind: Authenticated, Identity: id})
	return m.State(), nil
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// SetAccessToken records the latest token the client presented.
func (m *Manager) SetAccessToken(token string) {
	m.mu.Lock()
	m.accessToken = token
	m.mu.Unlock()
}

func (m *Manager) Subscribe(fn func(State)) func() {
	if fn == nil {
		return func() {}
	}
	m.mu.Lock()
	m.nextSub++
	id := m.nextSub
	m.subs[id] = fn
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, id)
			m.mu.Unlock()
		})
	}
}

func (m *Manager) RequestSignIn(ctx context.Context, email, redirectTo string) error {
	return m.auth.RequestSignIn(ctx, email, redirectTo)
}

// SignOut invalidates the session server-side. Local state becomes
// Unauthenticated even when the auth service call fails.
func (m *Manager) SignOut(ctx context.Context) error {
	m.mu.Lock()
	token := m.accessToken
	m.mu.Unlock()

	err := m.auth.SignOut(ctx, token)
	if err != nil {
		m.log.Warn("Sign-out failed", "error", err)
	}
	m.setState(State{Kind: Unauthenticated})
	return err
}

func (m *Manager) Close() {
	m.mu.Lock()
	stop := m.stopListen
	m.stopListen = nil
	m.closed = true
	m.subs = make(map[uint64]func(State))
	m.mu.Unlock()
	if stop != nil {
		stop()
	}
}

func (m *Manager) handle(msg realtime.SSEMessage) {
	switch msg.Event {
	case realtime.SSEEventSignedOut:
		m.setState(State{Kind: Unauthenticated})
	case realtime.SSEEventSignedIn, realtime.SSEEventTokenRefreshed:
		id, ok := decodeIdentity(msg.Data)
		if !ok {
			m.log.Warn("Auth event without identity", "event", msg.Event)
			return
		}
		m.setState(State{Kind: Authenticated, Identity: id})
	}
}

func (m *Manager) setState(next State) {
	m.mu.Lock()
	prev := m.state
	m.state = next
	if !changed(prev, next) {
		m.mu.Unlock()
		return
	}
	fns := make([]func(State), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	m.log.Debug("Session state changed", "from", prev.Kind, "to", next.Kind)
	for _, fn := range fns {
		fn(next)
	}
}

func changed(prev, next State) bool {
	if prev.Kind != next.Kind || prev.Loading != next.Loading {
		return true
	}
	if prev.Identity == nil || next.Identity == nil {
		return prev.Identity != next.Identity
	}
	return *prev.Identity != *next.Identity
}

// decodeIdentity accepts the in-process struct or its JSON form from the bus.
func decodeIdentity(data any) (*services.Identity, bool) {
	switch v := data.(type) {
	case services.Identity:
		return &v, true
	case *services.Identity:
		return v, v != nil
	case nil:
		return nil, false
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, false
	}
	var id services.Identity
	if err := json.Unmarshal(raw, &id); err != nil {
		return nil, false
	}
	return &id, true
}
