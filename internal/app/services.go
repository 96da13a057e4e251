package app

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/dossier-backend/internal/attachment"
	"github.com/yungbote/dossier-backend/internal/data/repos"
	"github.com/yungbote/dossier-backend/internal/observability"
	"github.com/yungbote/dossier-backend/internal/platform/dbctx"
	"github.com/yungbote/dossier-backend/internal/platform/logger"
	"github.com/yungbote/dossier-backend/internal/realtime"
	"github.com/yungbote/dossier-backend/internal/services"
	"github.com/yungbote/dossier-backend/internal/storage"
	"github.com/yungbote/dossier-backend/internal/workspace"
)

type Services struct {
	Storage  *storage.Client
	Uploader *attachment.Uploader
	Emitter  services.SSEEmitter
	Auth     services.AuthService
	Registry *workspace.Registry
	// LinkSweeper removes expired sign-in links in the background.
	LinkSweeper *linkSweeper
}

func wireServices(
	db *gorm.DB,
	log *logger.Logger,
	cfg Config,
	reposet repos.Repos,
	clients Clients,
	hub *realtime.SSEHub,
	metrics *observability.Metrics,
) Services {
	log.Info("Wiring services...")

	storageClient := storage.NewClient(log, reposet.Dossier, clients.Blobs, metrics)
	uploader := attachment.NewUploader(log, storageClient)
	emitter := &services.BusEmitter{Bus: clients.Bus, Log: log}

	authService := services.NewAuthService(
		db,
		log,
		reposet.User,
		reposet.UserToken,
		reposet.MagicLink,
		clients.Mailer,
		emitter,
		metrics,
		services.AuthConfig{
			JWTSecretKey: cfg.JWTSecretKey,
			AccessTTL:    cfg.AccessTTL,
			RefreshTTL:   cfg.RefreshTTL,
			MagicLinkTTL: cfg.MagicLinkTTL,
			CallbackURL:  cfg.CallbackURL,
		},
	)

	registry := workspace.NewRegistry(log, authService, hub, func() *workspace.Workspace {
		return workspace.New(log, storageClient, uploader, emitter, cfg.OrgID)
	})

	return Services{
		Storage:     storageClient,
		Uploader:    uploader,
		Emitter:     emitter,
		Auth:        authService,
		Registry:    registry,
		LinkSweeper: &linkSweeper{log: log.With("service", "LinkSweeper"), repo: reposet.MagicLink, every: cfg.LinkSweep},
	}
}

type linkSweeper struct {
	log   *logger.Logger
	repo  repos.MagicLinkRepo
	every time.Duration
}

// Start deletes expired links every interval until ctx is done.
func (s *linkSweeper) Start(ctx context.Context) {
	if s == nil || s.every <= 0 {
		return
	}
	go func() {
		t := time.NewTicker(s.every)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.sweep(ctx)
			}
		}
	}()
}

func (s *linkSweeper) sweep(ctx context.Context) {
	n, err := s.repo.DeleteExpired(dbctx.New(ctx), time.Now().UTC())
	if err != nil {
		s.log.Warn("Expired link sweep failed", "error", err)
		return
	}
	if n > 0 {
		s.log.Debug("Expired links removed", "count", n)
	}
}
