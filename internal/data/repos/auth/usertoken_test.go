package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/dossier-backend/internal/data/repos/testutil"
	types "github.com/yungbote/dossier-backend/internal/domain"
	"github.com/yungbote/dossier-backend/internal/platform/dbctx"
)

func TestUserTokenRepo(t *testing.T) {
	db := testutil.DB(t)
	dbc := dbctx.New(context.Background())
	repo := NewUserTokenRepo(db, testutil.Logger(t))

	u := &types.User{ID: uuid.New(), Email: uuid.NewString() + "@example.com", CreatedAt: time.Now(), UpdatedAt: time.Now()}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}

	suffix := uuid.NewString()
	t1 := &types.UserToken{
		UserID:       u.ID,
		AccessToken:  "access-1-" + suffix,
		RefreshToken: "refresh-1-" + suffix,
		ExpiresAt:    time.Now().Add(time.Hour),
	}
	if _, err := repo.Create(dbc, []*types.UserToken{t1}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if rows, err := repo.GetByIDs(dbc, []uuid.UUID{t1.ID}); err != nil || len(rows) != 1 {
		t.Fatalf("GetByIDs: err=%v len=%d", err, len(rows))
	}
	if rows, err := repo.GetByAccessTokens(dbc, []string{t1.AccessToken}); err != nil || len(rows) != 1 {
		t.Fatalf("GetByAccessTokens: err=%v len=%d", err, len(rows))
	}

	if err := repo.Rotate(dbc, t1.ID, "access-2-"+suffix, "refresh-2-"+suffix, time.Now().Add(2*time.Hour)); err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	if rows, err := repo.GetByRefreshTokens(dbc, []string{t1.RefreshToken}); err != nil || len(rows) != 0 {
		t.Fatalf("old refresh token still resolves: err=%v len=%d", err, len(rows))
	}
	if rows, err := repo.GetByRefreshTokens(dbc, []string{"refresh-2-" + suffix}); err != nil || len(rows) != 1 {
		t.Fatalf("GetByRefreshTokens: err=%v len=%d", err, len(rows))
	}

	if err := repo.SoftDeleteByIDs(dbc, []uuid.UUID{t1.ID}); err != nil {
		t.Fatalf("SoftDeleteByIDs: %v", err)
	}
	if rows, err := repo.GetByIDs(dbc, []uuid.UUID{t1.ID}); err != nil || len(rows) != 0 {
		t.Fatalf("GetByIDs after soft delete: err=%v len=%d", err, len(rows))
	}
	if err := repo.FullDeleteByIDs(dbc, []uuid.UUID{t1.ID}); err != nil {
		t.Fatalf("FullDeleteByIDs: %v", err)
	}
	if err := repo.Rotate(dbc, t1.ID, "a", "b", time.Now()); err == nil {
		t.Fatalf("Rotate deleted token: expected error")
	}
}

func TestMagicLinkRepoConsumeOnce(t *testing.T) {
	db := testutil.DB(t)
	dbc := dbctx.New(context.Background())
	repo := NewMagicLinkRepo(db, testutil.Logger(t))

	link, err := repo.Create(dbc, &types.MagicLink{
		Email:      "chemist@example.com",
		SecretHash: "hash",
		ExpiresAt:  time.Now().Add(15 * time.Minute),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, err := repo.GetByID(dbc, link.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !got.Usable(time.Now()) {
		t.Fatalf("fresh link should be usable")
	}

	if err := repo.Consume(dbc, link.ID, time.Now()); err != nil {
		t.Fatalf("Consume: %v", err)
	}
	if err := repo.Consume(dbc, link.ID, time.Now()); !errors.Is(err, ErrMagicLinkConsumed) {
		t.Fatalf("second Consume: want ErrMagicLinkConsumed got %v", err)
	}
	if _, err := repo.GetByID(dbc, uuid.New()); !errors.Is(err, ErrMagicLinkNotFound) {
		t.Fatalf("GetByID missing: want ErrMagicLinkNotFound got %v", err)
	}
}
