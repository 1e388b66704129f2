package bus

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/actionsummary-backend/internal/platform/logger"
	"github.com/yungbote/actionsummary-backend/internal/realtime"
)

func TestChannelName(t *testing.T) {
	if got := channelName("action_summary", " org-1 "); got != "action_summary:org-1" {
		t.Fatalf("channelName: want=%q got=%q", "action_summary:org-1", got)
	}
	if got := channelName("action_summary", ""); got != "action_summary" {
		t.Fatalf("channelName: want=%q got=%q", "action_summary", got)
	}
}

func TestNewFromEnvWithoutRedis(t *testing.T) {
	t.Setenv("REDIS_ADDR", "")
	b, err := NewFromEnv(logger.Nop())
	if err != nil {
		t.Fatalf("NewFromEnv: %v", err)
	}
	if err := b.Publish(context.Background(), realtime.Event{Event: realtime.EventActionSummaryStatus}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
}

func TestRedisBusPublish(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("set TEST_REDIS_ADDR to run redis bus integration tests")
	}
	t.Setenv("REDIS_ADDR", addr)
	t.Setenv("REDIS_CHANNEL", "action_summary_test")

	b, err := NewRedisBus(logger.Nop())
	if err != nil {
		t.Fatalf("NewRedisBus: %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	sub := goredis.NewClient(&goredis.Options{Addr: addr}).Subscribe(ctx, "action_summary_test:org-1")
	t.Cleanup(func() { _ = sub.Close() })
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	want := realtime.Event{Channel: "org-1", Event: realtime.EventActionSummaryStatus, Data: map[string]any{"status": "PROCESSING"}}
	if err := b.Publish(ctx, want); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	msg, err := sub.ReceiveMessage(ctx)
	if err != nil {
		t.Fatalf("ReceiveMessage: %v", err)
	}
	var got realtime.Event
	if err := json.Unmarshal([]byte(msg.Payload), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Event != want.Event || got.Channel != want.Channel {
		t.Fatalf("event: want=%+v got=%+v", want, got)
	}
}
