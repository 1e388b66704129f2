package services

import (
	"context"
	"time"

	domain "github.com/yungbote/actionsummary-backend/internal/domain/actionsummary"
	types "github.com/yungbote/actionsummary-backend/internal/domain/media"
	"github.com/yungbote/actionsummary-backend/internal/platform/logger"
	"github.com/yungbote/actionsummary-backend/internal/realtime"
	"github.com/yungbote/actionsummary-backend/internal/realtime/bus"
)

type ActionSummaryNotifier interface {
	StatusChanged(ctx context.Context, item *types.ContentItem, meta *domain.Meta)
}

type actionSummaryNotifier struct {
	log *logger.Logger
	bus bus.Bus
}

func NewActionSummaryNotifier(log *logger.Logger, b bus.Bus) ActionSummaryNotifier {
	if b == nil {
		b = bus.NewNopBus()
	}
	return &actionSummaryNotifier{log: log.With("service", "ActionSummaryNotifier"), bus: b}
}

// StatusChanged publishes on the item's organization channel. Failures are
// logged only.
func (n *actionSummaryNotifier) StatusChanged(ctx context.Context, item *types.ContentItem, meta *domain.Meta) {
	if item == nil || meta == nil {
		return
	}
	data := map[string]any{
		"contentId":   item.ID.String(),
		"status":      meta.Status,
		"activeRunId": meta.ActiveRunID,
		"lastRunAt":   meta.LastRunAt,
		"requestedAt": meta.RequestedAt,
		"runCount":    len(meta.Runs),
	}
	if meta.Error != "" {
		data["error"] = meta.Error
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	err := n.bus.Publish(pubCtx, realtime.Event{
		Channel: item.OrganizationID.String(),
		Event:   realtime.EventActionSummaryStatus,
		Data:    data,
	})
	if err != nil {
		n.log.Warn("publish action summary status failed", "content_id", item.ID, "status", meta.Status, "error", err)
	}
}
