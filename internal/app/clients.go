package app

import (
	"fmt"

	"github.com/yungbote/actionsummary-backend/internal/platform/analysisworker"
	"github.com/yungbote/actionsummary-backend/internal/platform/gcp"
	"github.com/yungbote/actionsummary-backend/internal/platform/logger"
	"github.com/yungbote/actionsummary-backend/internal/platform/pinecone"
	"github.com/yungbote/actionsummary-backend/internal/realtime/bus"
)

type Clients struct {
	// Bucket and Search are nil when the deployment has them disabled.
	Bucket gcp.BucketService
	Search pinecone.SearchIndex
	Worker *analysisworker.Client
	Bus    bus.Bus
}

func wireClients(log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")

	bucket, err := resolveBucketService(log, cfg)
	if err != nil {
		return Clients{}, fmt.Errorf("init bucket client: %w", err)
	}

	search, err := resolveSearchIndex(log, cfg)
	if err != nil {
		closeBucket(log, bucket)
		return Clients{}, fmt.Errorf("init search index: %w", err)
	}

	worker, err := analysisworker.New(log, cfg.Worker)
	if err != nil {
		closeBucket(log, bucket)
		return Clients{}, fmt.Errorf("init analysis worker client: %w", err)
	}

	b, err := bus.NewFromEnv(log)
	if err != nil {
		closeBucket(log, bucket)
		return Clients{}, fmt.Errorf("init realtime bus: %w", err)
	}

	return Clients{
		Bucket: bucket,
		Search: search,
		Worker: worker,
		Bus:    b,
	}, nil
}

func (c Clients) Close(log *logger.Logger) {
	if c.Bus != nil {
		if err := c.Bus.Close(); err != nil {
			log.Warn("realtime bus close failed", "error", err)
		}
	}
	closeBucket(log, c.Bucket)
}

func closeBucket(log *logger.Logger, bucket gcp.BucketService) {
	if bucket == nil {
		return
	}
	if err := bucket.Close(); err != nil {
		log.Warn("bucket client close failed", "error", err)
	}
}
