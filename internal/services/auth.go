package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/yungbote/dossier-backend/internal/data/repos"
	"github.com/yungbote/dossier-backend/internal/data/repos/auth"
	userrepo "github.com/yungbote/dossier-backend/internal/data/repos/user"
	types "github.com/yungbote/dossier-backend/internal/domain"
	"github.com/yungbote/dossier-backend/internal/observability"
	"github.com/yungbote/dossier-backend/internal/platform/dbctx"
	"github.com/yungbote/dossier-backend/internal/platform/logger"
	"github.com/yungbote/dossier-backend/internal/realtime"
)

// Identity is the signed-in user behind one session.
type Identity struct {
	UserID    uuid.UUID `json:"user_id"`
	SessionID uuid.UUID `json:"session_id"`
	Email     string    `json:"email"`
}

// SessionTokens is what a client keeps to stay signed in.
type SessionTokens struct {
	Identity     Identity  `json:"identity"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	RedirectTo   string    `json:"redirect_to,omitempty"`
}

type JWTClaims struct {
	SessionID string `json:"sid"`
	Email     string `json:"email"`
	jwt.RegisteredClaims
}

type AuthService interface {
	RequestSignIn(ctx context.Context, email, redirectTo string) error
	CompleteSignIn(ctx context.Context, token string) (*SessionTokens, error)
	Refresh(ctx context.Context, refreshToken string) (*SessionTokens, error)
	SignOut(ctx context.Context, accessToken string) error
	ResolveIdentity(ctx context.Context, accessToken string) (*Identity, error)
	GetAccessTTL() time.Duration
}

type AuthConfig struct {
	JWTSecretKey string
	AccessTTL    time.Duration
	RefreshTTL   time.Duration
	MagicLinkTTL time.Duration
	// CallbackURL is the public URL the emailed link points at; the token is
	// appended as the "token" query parameter.
	CallbackURL string
}

type authService struct {
	db            *gorm.DB
	log           *logger.Logger
	userRepo      repos.UserRepo
	userTokenRepo repos.UserTokenRepo
	magicLinkRepo repos.MagicLinkRepo
	mailer        Mailer
	emitter       SSEEmitter
	metrics       *observability.Metrics
	cfg           AuthConfig
	now           func() time.Time
}

func NewAuthService(
	db *gorm.DB,
	log *logger.Logger,
	userRepo repos.UserRepo,
	userTokenRepo repos.UserTokenRepo,
	magicLinkRepo repos.MagicLinkRepo,
	mailer Mailer,
	emitter SSEEmitter,
	metrics *observability.Metrics,
	cfg AuthConfig,
) AuthService {
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = time.Hour
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 30 * 24 * time.Hour
	}
	if cfg.MagicLinkTTL <= 0 {
		cfg.MagicLinkTTL = 15 * time.Minute
	}
	return &authService{
		db:            db,
		log:           log.With("service", "AuthService"),
		userRepo:      userRepo,
		userTokenRepo: userTokenRepo,
		magicLinkRepo: magicLinkRepo,
		mailer:        mailer,
		emitter:       emitter,
		metrics:       metrics,
		cfg:           cfg,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (as *authService) GetAccessTTL() time.Duration { return as.cfg.AccessTTL }

func (as *authService) RequestSignIn(ctx context.Context, email, redirectTo string) error {
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil || addr.Address != strings.TrimSpace(email) {
		return authErr(AuthReasonInvalidEmail, fmt.Errorf("invalid email address"))
	}
	normalized := userrepo.NormalizeEmail(addr.Address)

	secret, err := randomSecret()
	if err != nil {
		return authErr(AuthReasonUnavailable, err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return authErr(AuthReasonUnavailable, fmt.Errorf("hash link secret: %w", err))
	}

	now := as.now()
	link, err := as.magicLinkRepo.Create(dbctx.New(ctx), &types.MagicLink{
		ID:         uuid.New(),
		Email:      normalized,
		SecretHash: string(hash),
		RedirectTo: strings.TrimSpace(redirectTo),
		ExpiresAt:  now.Add(as.cfg.MagicLinkTTL),
		CreatedAt:  now,
	})
	if err != nil {
		as.log.Warn("Create magic link failed", "error", err)
		return authErr(AuthReasonUnavailable, fmt.Errorf("create magic link: %w", err))
	}

	if err := as.mailer.SendSignInLink(ctx, normalized, as.callbackLink(link.ID.String()+"."+secret)); err != nil {
		as.log.Warn("Send sign-in link failed", "email", normalized, "error", err)
		if errors.Is(err, ErrAddressRejected) {
			return authErr(AuthReasonRejected, err)
		}
		return authErr(AuthReasonUnavailable, err)
	}
	as.metrics.ObserveAuthEvent("link_sent")
	return nil
}

func (as *authService) callbackLink(token string) string {
	u, err := url.Parse(as.cfg.CallbackURL)
	if err != nil || as.cfg.CallbackURL == "" {
		return "?token=" + url.QueryEscape(token)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String()
}

func (as *authService) CompleteSignIn(ctx context.Context, token string) (*SessionTokens, error) {
	idPart, secret, ok := strings.Cut(strings.TrimSpace(token), ".")
	if !ok || secret == "" {
		return nil, authErr(AuthReasonInvalidLink, fmt.Errorf("malformed token"))
	}
	linkID, err := uuid.Parse(idPart)
	if err != nil {
		return nil, authErr(AuthReasonInvalidLink, fmt.Errorf("malformed token"))
	}

	var out *SessionTokens
	err = as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		link, err := as.magicLinkRepo.GetByID(dbc, linkID)
		if errors.Is(err, auth.ErrMagicLinkNotFound) {
			return authErr(AuthReasonInvalidLink, err)
		}
		if err != nil {
			return fmt.Errorf("load magic link: %w", err)
		}
		if bcrypt.CompareHashAndPassword([]byte(link.SecretHash), []byte(secret)) != nil {
			return authErr(AuthReasonInvalidLink, fmt.Errorf("secret mismatch"))
		}
		now := as.now()
		if !link.Usable(now) {
			return authErr(AuthReasonExpiredLink, fmt.Errorf("link expired or already used"))
		}
		if err := as.magicLinkRepo.Consume(dbc, link.ID, now); err != nil {
			if errors.Is(err, auth.ErrMagicLinkConsumed) {
				return authErr(AuthReasonExpiredLink, err)
			}
			return fmt.Errorf("consume magic link: %w", err)
		}

		user, err := as.userRepo.FirstOrCreateByEmail(dbc, link.Email)
		if err != nil {
			return fmt.Errorf("find or create user: %w", err)
		}

		sessionID := uuid.New()
		identity := Identity{UserID: user.ID, SessionID: sessionID, Email: user.Email}
		access, err := as.generateAccessToken(identity)
		if err != nil {
			return fmt.Errorf("generate access token: %w", err)
		}
		refresh := uuid.NewString()
		expiresAt := now.Add(as.cfg.RefreshTTL)
		if _, err := as.userTokenRepo.Create(dbc, []*types.UserToken{{
			ID:           sessionID,
			UserID:       user.ID,
			AccessToken:  access,
			RefreshToken: refresh,
			ExpiresAt:    expiresAt,
		}}); err != nil {
			return fmt.Errorf("create user token: %w", err)
		}
		out = &SessionTokens{
			Identity:     identity,
			AccessToken:  access,
			RefreshToken: refresh,
			ExpiresAt:    expiresAt,
			RedirectTo:   link.RedirectTo,
		}
		return nil
	})
	if err != nil {
		as.log.Warn("Complete sign-in failed", "error", err)
		return nil, err
	}

	as.metrics.ObserveAuthEvent("signed_in")
	as.emit(ctx, out.Identity.SessionID, realtime.SSEEventSignedIn, out.Identity)
	return out, nil
}

func (as *authService) Refresh(ctx context.Context, refreshToken string) (*SessionTokens, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil, authErr(AuthReasonInvalidToken, fmt.Errorf("missing refresh token"))
	}

	var out *SessionTokens
	err := as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		found, err := as.userTokenRepo.GetByRefreshTokens(dbc, []string{refreshToken})
		if err != nil {
			return fmt.Errorf("load refresh token: %w", err)
		}
		if len(found) == 0 {
			return authErr(AuthReasonInvalidToken, fmt.Errorf("unknown refresh token"))
		}
		existing := found[0]
		now := as.now()
		if !existing.ExpiresAt.After(now) {
			if err := as.userTokenRepo.FullDeleteByIDs(dbc, []uuid.UUID{existing.ID}); err != nil {
				return fmt.Errorf("delete expired session: %w", err)
			}
			return authErr(AuthReasonSessionExpired, fmt.Errorf("refresh token expired"))
		}

		users, err := as.userRepo.GetByIDs(dbc, []uuid.UUID{existing.UserID})
		if err != nil {
			return fmt.Errorf("load user: %w", err)
		}
		if len(users) == 0 {
			return authErr(AuthReasonInvalidToken, fmt.Errorf("user no longer exists"))
		}

		identity := Identity{UserID: users[0].ID, SessionID: existing.ID, Email: users[0].Email}
		access, err := as.generateAccessToken(identity)
		if err != nil {
			return fmt.Errorf("generate access token: %w", err)
		}
		refresh := uuid.NewString()
		expiresAt := now.Add(as.cfg.RefreshTTL)
		if err := as.userTokenRepo.Rotate(dbc, existing.ID, access, refresh, expiresAt); err != nil {
			return fmt.Errorf("rotate session tokens: %w", err)
		}
		out = &SessionTokens{Identity: identity, AccessToken: access, RefreshToken: refresh, ExpiresAt: expiresAt}
		return nil
	})
	if err != nil {
		as.log.Warn("Refresh failed", "error", err)
		return nil, err
	}

	as.metrics.ObserveAuthEvent("token_refreshed")
	as.emit(ctx, out.Identity.SessionID, realtime.SSEEventTokenRefreshed, out.Identity)
	return out, nil
}

func (as *authService) SignOut(ctx context.Context, accessToken string) error {
	identity, err := as.ResolveIdentity(ctx, accessToken)
	if err != nil {
		return err
	}
	if err := as.userTokenRepo.FullDeleteByIDs(dbctx.New(ctx), []uuid.UUID{identity.SessionID}); err != nil {
		as.log.Warn("Delete user token failed", "session_id", identity.SessionID, "error", err)
		return fmt.Errorf("delete user token: %w", err)
	}
	as.metrics.ObserveAuthEvent("signed_out")
	as.emit(ctx, identity.SessionID, realtime.SSEEventSignedOut, nil)
	return nil
}

// ResolveIdentity validates the JWT and requires its session row to still exist.
func (as *authService) ResolveIdentity(ctx context.Context, accessToken string) (*Identity, error) {
	accessToken = strings.TrimSpace(accessToken)
	if accessToken == "" {
		return nil, authErr(AuthReasonInvalidToken, fmt.Errorf("missing access token"))
	}
	parsed, err := jwt.ParseWithClaims(accessToken, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(as.cfg.JWTSecretKey), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(as.now))
	if err != nil {
		return nil, authErr(AuthReasonInvalidToken, fmt.Errorf("parse token: %w", err))
	}
	claims, ok := parsed.Claims.(*JWTClaims)
	if !ok || !parsed.Valid {
		return nil, authErr(AuthReasonInvalidToken, fmt.Errorf("invalid or expired token"))
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, authErr(AuthReasonInvalidToken, fmt.Errorf("invalid user id in token: %w", err))
	}
	sessionID, err := uuid.Parse(claims.SessionID)
	if err != nil {
		return nil, authErr(AuthReasonInvalidToken, fmt.Errorf("invalid session id in token: %w", err))
	}

	found, err := as.userTokenRepo.GetByAccessTokens(dbctx.New(ctx), []string{accessToken})
	if err != nil {
		return nil, fmt.Errorf("load user token: %w", err)
	}
	if len(found) == 0 || found[0].ID != sessionID {
		return nil, authErr(AuthReasonInvalidToken, fmt.Errorf("session not found"))
	}
	return &Identity{UserID: userID, SessionID: sessionID, Email: claims.Email}, nil
}

func (as *authService) generateAccessToken(id Identity) (string, error) {
	now := as.now()
	claims := JWTClaims{
		SessionID: id.SessionID.String(),
		Email:     id.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   id.UserID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(as.cfg.AccessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(as.cfg.JWTSecretKey))
}

func (as *authService) emit(ctx context.Context, sessionID uuid.UUID, event realtime.SSEEvent, data any) {
	if as.emitter == nil {
		return
	}
	as.emitter.Emit(ctx, realtime.SSEMessage{Channel: realtime.SessionChannel(sessionID), Event: event, Data: data})
}

func randomSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate link secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
