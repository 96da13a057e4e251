package app

import (
	"context"
	"fmt"

	"github.com/yungbote/dossier-backend/internal/observability"
	"github.com/yungbote/dossier-backend/internal/platform/logger"
	"github.com/yungbote/dossier-backend/internal/platform/objectstore"
	"github.com/yungbote/dossier-backend/internal/platform/sendgrid"
	"github.com/yungbote/dossier-backend/internal/realtime/bus"
	"github.com/yungbote/dossier-backend/internal/services"
)

type Clients struct {
	Blobs  objectstore.Store
	Bus    bus.Bus
	Mailer services.Mailer
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config, metrics *observability.Metrics) (Clients, error) {
	log.Info("Wiring clients...")

	blobs, err := resolveObjectStore(ctx, log, cfg.ObjectStorage, cfg.ObjectStorageErr, metrics)
	if err != nil {
		return Clients{}, err
	}

	// Redis fans events out across instances; a single instance can stay local.
	var b bus.Bus
	if cfg.Redis.Addr != "" {
		b, err = bus.NewRedisBus(ctx, log, cfg.Redis)
		if err != nil {
			return Clients{}, fmt.Errorf("init redis SSE bus: %w", err)
		}
	} else {
		log.Info("REDIS_ADDR not set; realtime events stay in-process")
		b = bus.NewLocal()
	}

	var mailer services.Mailer
	if cfg.SendGrid.Configured() {
		sg, err := sendgrid.New(log, cfg.SendGrid)
		if err != nil {
			_ = b.Close()
			return Clients{}, fmt.Errorf("init sendgrid client: %w", err)
		}
		mailer = services.NewSendGridMailer(sg, cfg.SendGrid.DefaultFromEmail, cfg.SendGrid.DefaultFromName)
	} else {
		log.Warn("SENDGRID_API_KEY not set; sign-in links are written to the log")
		mailer = services.NewLogMailer(log)
	}

	return Clients{
		Blobs:  blobs,
		Bus:    b,
		Mailer: mailer,
	}, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Bus != nil {
		_ = c.Bus.Close()
	}
	if closer, ok := c.Blobs.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
}
