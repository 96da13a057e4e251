package services

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/yungbote/dossier-backend/internal/data/repos"
	"github.com/yungbote/dossier-backend/internal/data/repos/testutil"
	"github.com/yungbote/dossier-backend/internal/realtime"
)

type fakeMailer struct {
	mu    sync.Mutex
	links map[string]string
	err   error
}

func (m *fakeMailer) SendSignInLink(_ context.Context, email, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.links == nil {
		m.links = map[string]string{}
	}
	m.links[email] = link
	return nil
}

func (m *fakeMailer) token(t *testing.T, email string) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	link, ok := m.links[email]
	if !ok {
		t.Fatalf("no link sent to %s", email)
	}
	u, err := url.Parse(link)
	if err != nil {
		t.Fatalf("parse link: %v", err)
	}
	return u.Query().Get("token")
}

type recordingEmitter struct {
	mu   sync.Mutex
	msgs []realtime.SSEMessage
}

func (e *recordingEmitter) Emit(_ context.Context, msg realtime.SSEMessage) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.msgs = append(e.msgs, msg)
}

func (e *recordingEmitter) events() []realtime.SSEEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]realtime.SSEEvent, 0, len(e.msgs))
	for _, m := range e.msgs {
		out = append(out, m.Event)
	}
	return out
}

func newTestAuth(t *testing.T) (*authService, *fakeMailer, *recordingEmitter) {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	r := repos.New(db, log)
	mailer := &fakeMailer{}
	emitter := &recordingEmitter{}
	svc := NewAuthService(db, log, r.User, r.UserToken, r.MagicLink, mailer, emitter, nil, AuthConfig{
		JWTSecretKey: "test-secret",
		AccessTTL:    time.Hour,
		RefreshTTL:   24 * time.Hour,
		MagicLinkTTL: 15 * time.Minute,
		CallbackURL:  "http://localhost:8080/api/auth/callback",
	})
	return svc.(*authService), mailer, emitter
}

func wantReason(t *testing.T, err error, want AuthReason) {
	t.Helper()
	got, ok := AuthReasonOf(err)
	if !ok {
		t.Fatalf("expected AuthRequestError(%s), got %v", want, err)
	}
	if got != want {
		t.Fatalf("reason: want=%q got=%q", want, got)
	}
}

func TestRequestSignInRejectsInvalidEmail(t *testing.T) {
	svc, _, _ := newTestAuth(t)
	for _, email := range []string{"", "not-an-email", "Name <a@b.com>"} {
		wantReason(t, svc.RequestSignIn(context.Background(), email, ""), AuthReasonInvalidEmail)
	}
}

func TestRequestSignInMailerFailures(t *testing.T) {
	svc, mailer, _ := newTestAuth(t)

	mailer.err = ErrAddressRejected
	wantReason(t, svc.RequestSignIn(context.Background(), "a@example.com", ""), AuthReasonRejected)

	mailer.err = errors.New("connection refused")
	wantReason(t, svc.RequestSignIn(context.Background(), "a@example.com", ""), AuthReasonUnavailable)
}

func TestSignInFlow(t *testing.T) {
	ctx := context.Background()
	svc, mailer, emitter := newTestAuth(t)

	if err := svc.RequestSignIn(ctx, "Chemist@Example.com", "/dossiers"); err != nil {
		t.Fatalf("RequestSignIn: %v", err)
	}
	token := mailer.token(t, "chemist@example.com")

	sess, err := svc.CompleteSignIn(ctx, token)
	if err != nil {
		t.Fatalf("CompleteSignIn: %v", err)
	}
	if sess.Identity.Email != "chemist@example.com" {
		t.Fatalf("email: want=%q got=%q", "chemist@example.com", sess.Identity.Email)
	}
	if sess.RedirectTo != "/dossiers" {
		t.Fatalf("redirect: want=%q got=%q", "/dossiers", sess.RedirectTo)
	}

	id, err := svc.ResolveIdentity(ctx, sess.AccessToken)
	if err != nil {
		t.Fatalf("ResolveIdentity: %v", err)
	}
	if id.UserID != sess.Identity.UserID || id.SessionID != sess.Identity.SessionID {
		t.Fatalf("identity: want=%+v got=%+v", sess.Identity, *id)
	}

	// links are single use
	_, err = svc.CompleteSignIn(ctx, token)
	wantReason(t, err, AuthReasonExpiredLink)

	// a second sign-in for the same address reuses the user
	if err := svc.RequestSignIn(ctx, "chemist@example.com", ""); err != nil {
		t.Fatalf("RequestSignIn again: %v", err)
	}
	again, err := svc.CompleteSignIn(ctx, mailer.token(t, "chemist@example.com"))
	if err != nil {
		t.Fatalf("CompleteSignIn again: %v", err)
	}
	if again.Identity.UserID != sess.Identity.UserID {
		t.Fatalf("user reuse: want=%s got=%s", sess.Identity.UserID, again.Identity.UserID)
	}
	if again.Identity.SessionID == sess.Identity.SessionID {
		t.Fatalf("expected a new session id")
	}

	if got := emitter.events(); len(got) != 2 || got[0] != realtime.SSEEventSignedIn {
		t.Fatalf("events: got=%v", got)
	}
}

func TestCompleteSignInRejectsBadTokens(t *testing.T) {
	ctx := context.Background()
	svc, mailer, _ := newTestAuth(t)

	_, err := svc.CompleteSignIn(ctx, "garbage")
	wantReason(t, err, AuthReasonInvalidLink)

	if err := svc.RequestSignIn(ctx, "a@example.com", ""); err != nil {
		t.Fatalf("RequestSignIn: %v", err)
	}
	token := mailer.token(t, "a@example.com")

	_, err = svc.CompleteSignIn(ctx, token+"x")
	wantReason(t, err, AuthReasonInvalidLink)

	svc.now = func() time.Time { return time.Now().UTC().Add(time.Hour) }
	_, err = svc.CompleteSignIn(ctx, token)
	wantReason(t, err, AuthReasonExpiredLink)
}

func TestRefreshRotatesTokens(t *testing.T) {
	ctx := context.Background()
	svc, mailer, emitter := newTestAuth(t)
	if err := svc.RequestSignIn(ctx, "a@example.com", ""); err != nil {
		t.Fatalf("RequestSignIn: %v", err)
	}
	sess, err := svc.CompleteSignIn(ctx, mailer.token(t, "a@example.com"))
	if err != nil {
		t.Fatalf("CompleteSignIn: %v", err)
	}

	next, err := svc.Refresh(ctx, sess.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if next.Identity.SessionID != sess.Identity.SessionID {
		t.Fatalf("session id: want=%s got=%s", sess.Identity.SessionID, next.Identity.SessionID)
	}
	if next.RefreshToken == sess.RefreshToken || next.AccessToken == sess.AccessToken {
		t.Fatalf("expected rotated tokens")
	}

	_, err = svc.Refresh(ctx, sess.RefreshToken)
	wantReason(t, err, AuthReasonInvalidToken)

	_, err = svc.ResolveIdentity(ctx, sess.AccessToken)
	wantReason(t, err, AuthReasonInvalidToken)

	if _, err := svc.ResolveIdentity(ctx, next.AccessToken); err != nil {
		t.Fatalf("ResolveIdentity rotated: %v", err)
	}

	got := emitter.events()
	if got[len(got)-1] != realtime.SSEEventTokenRefreshed {
		t.Fatalf("last event: want=%s got=%s", realtime.SSEEventTokenRefreshed, got[len(got)-1])
	}
}

func TestSignOutInvalidatesSession(t *testing.T) {
	ctx := context.Background()
	svc, mailer, emitter := newTestAuth(t)
	if err := svc.RequestSignIn(ctx, "a@example.com", ""); err != nil {
		t.Fatalf("RequestSignIn: %v", err)
	}
	sess, err := svc.CompleteSignIn(ctx, mailer.token(t, "a@example.com"))
	if err != nil {
		t.Fatalf("CompleteSignIn: %v", err)
	}

	if err := svc.SignOut(ctx, sess.AccessToken); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	_, err = svc.ResolveIdentity(ctx, sess.AccessToken)
	wantReason(t, err, AuthReasonInvalidToken)
	_, err = svc.Refresh(ctx, sess.RefreshToken)
	wantReason(t, err, AuthReasonInvalidToken)

	msgs := emitter.msgs
	last := msgs[len(msgs)-1]
	if last.Event != realtime.SSEEventSignedOut || last.Channel != realtime.SessionChannel(sess.Identity.SessionID) {
		t.Fatalf("last message: got=%+v", last)
	}
}
