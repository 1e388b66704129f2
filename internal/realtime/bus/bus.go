package bus

import (
	"context"

	"github.com/yungbote/actionsummary-backend/internal/realtime"
)

type Bus interface {
	Publish(ctx context.Context, msg realtime.Event) error
	Close() error
}

type nopBus struct{}

// NewNopBus drops every event. It stands in when REDIS_ADDR is unset.
func NewNopBus() Bus { return nopBus{} }

func (nopBus) Publish(context.Context, realtime.Event) error { return nil }

func (nopBus) Close() error { return nil }
