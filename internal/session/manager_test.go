package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/dossier-backend/internal/platform/logger"
	"github.com/yungbote/dossier-backend/internal/realtime"
	"github.com/yungbote/dossier-backend/internal/services"
)

type fakeAuth struct {
	identities map[string]*services.Identity
	signedOut  []string
	signOutErr error
	requested  []string
}

func (f *fakeAuth) RequestSignIn(_ context.Context, email, _ string) error {
	f.requested = append(f.requested, email)
	return nil
}

func (f *fakeAuth) CompleteSignIn(context.Context, string) (*services.SessionTokens, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeAuth) Refresh(context.Context, string) (*services.SessionTokens, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeAuth) SignOut(_ context.Context, token string) error {
	f.signedOut = append(f.signedOut, token)
	return f.signOutErr
}

func (f *fakeAuth) ResolveIdentity(_ context.Context, token string) (*services.Identity, error) {
	if id, ok := f.identities[token]; ok {
		cp := *id
		return &cp, nil
	}
	return nil, &services.AuthRequestError{Reason: services.AuthReasonInvalidToken}
}

func (f *fakeAuth) GetAccessTTL() time.Duration { return time.Hour }

func newFixture(t *testing.T) (*Manager, *fakeAuth, *realtime.SSEHub, *services.Identity) {
	t.Helper()
	id := &services.Identity{UserID: uuid.New(), SessionID: uuid.New(), Email: "a@example.com"}
	auth := &fakeAuth{identities: map[string]*services.Identity{"tok": id}}
	hub := realtime.NewSSEHub(logger.Nop())
	m := NewManager(logger.Nop(), auth, hub)
	t.Cleanup(m.Close)
	return m, auth, hub, id
}

func TestManagerStartsLoading(t *testing.T) {
	m, _, _, _ := newFixture(t)
	st := m.State()
	if !st.Loading || st.Kind != Unauthenticated {
		t.Fatalf("initial state: got=%+v", st)
	}
}

func TestManagerStartResolvesIdentity(t *testing.T) {
	m, _, _, id := newFixture(t)
	var seen []State
	m.Subscribe(func(s State) { seen = append(seen, s) })

	st, err := m.Start(context.Background(), "tok")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !st.Authenticated() || st.Loading {
		t.Fatalf("state: got=%+v", st)
	}
	if st.Identity.UserID != id.UserID {
		t.Fatalf("user: want=%s got=%s", id.UserID, st.Identity.UserID)
	}
	if len(seen) != 1 || seen[0].Kind != Authenticated {
		t.Fatalf("notifications: got=%+v", seen)
	}
}

func TestManagerStartWithBadToken(t *testing.T) {
	m, _, _, _ := newFixture(t)
	st, err := m.Start(context.Background(), "nope")
	if err == nil {
		t.Fatalf("expected error")
	}
	if st.Kind != Unauthenticated || st.Loading {
		t.Fatalf("state: got=%+v", st)
	}
}

func TestManagerFollowsSignedOutEvent(t *testing.T) {
	m, _, hub, id := newFixture(t)
	if _, err := m.Start(context.Background(), "tok"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	var last State
	m.Subscribe(func(s State) { last = s })

	// other sessions do not affect this one
	hub.Broadcast(realtime.SSEMessage{Channel: realtime.SessionChannel(uuid.New()), Event: realtime.SSEEventSignedOut})
	if !m.State().Authenticated() {
		t.Fatalf("foreign sign-out changed state")
	}

	hub.Broadcast(realtime.SSEMessage{Channel: realtime.SessionChannel(id.SessionID), Event: realtime.SSEEventSignedOut})
	if m.State().Kind != Unauthenticated || last.Kind != Unauthenticated {
		t.Fatalf("state after sign-out: got=%+v notified=%+v", m.State(), last)
	}
}

func TestManagerDecodesBusIdentity(t *testing.T) {
	m, _, hub, id := newFixture(t)
	if _, err := m.Start(context.Background(), "tok"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	moved := map[string]any{
		"user_id":    id.UserID.String(),
		"session_id": id.SessionID.String(),
		"email":      "b@example.com",
	}
	hub.Broadcast(realtime.SSEMessage{Channel: realtime.SessionChannel(id.SessionID), Event: realtime.SSEEventTokenRefreshed, Data: moved})
	if got := m.State().Identity.Email; got != "b@example.com" {
		t.Fatalf("email: want=%q got=%q", "b@example.com", got)
	}
}

func TestManagerSignOut(t *testing.T) {
	m, auth, _, _ := newFixture(t)
	if _, err := m.Start(context.Background(), "tok"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	m.SetAccessToken("tok")
	if err := m.SignOut(context.Background()); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	if len(auth.signedOut) != 1 || auth.signedOut[0] != "tok" {
		t.Fatalf("signed out tokens: got=%v", auth.signedOut)
	}
	if m.State().Kind != Unauthenticated {
		t.Fatalf("state: got=%+v", m.State())
	}

	auth.signOutErr = errors.New("down")
	if err := m.SignOut(context.Background()); err == nil {
		t.Fatalf("expected sign-out error")
	}
	if m.State().Kind != Unauthenticated {
		t.Fatalf("state after failed sign-out: got=%+v", m.State())
	}
}

func TestManagerCloseStopsListening(t *testing.T) {
	m, _, hub, id := newFixture(t)
	if _, err := m.Start(context.Background(), "tok"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	m.Close()
	hub.Broadcast(realtime.SSEMessage{Channel: realtime.SessionChannel(id.SessionID), Event: realtime.SSEEventSignedOut})
	if !m.State().Authenticated() {
		t.Fatalf("closed manager should ignore events")
	}
}

func TestManagerUnsubscribe(t *testing.T) {
	m, _, _, _ := newFixture(t)
	calls := 0
	cancel := m.Subscribe(func(State) { calls++ })
	cancel()
	if _, err := m.Start(context.Background(), "tok"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if calls != 0 {
		t.Fatalf("calls: want=0 got=%d", calls)
	}
}
