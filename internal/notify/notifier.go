// Package notify pushes newly created alerts and completed analyses to any
// connected listener. Delivery is best-effort: publish failures are logged
// and never surface to the producing pipeline.
package notify

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/trendsentry/service/pkg/models"
)

const (
	ChannelAlerts   = "trendsentry:alerts"
	ChannelAnalyses = "trendsentry:analyses"
)

// Notifier is the fire-and-forget notification contract.
type Notifier interface {
	AlertCreated(ctx context.Context, alert *models.Alert)
	AnalysisCompleted(ctx context.Context, analysis *models.Analysis)
}

// RedisNotifier publishes notifications on Redis pub/sub channels.
type RedisNotifier struct {
	client *redis.Client
}

// NewRedisNotifier creates a notifier over an existing Redis client.
func NewRedisNotifier(client *redis.Client) *RedisNotifier {
	return &RedisNotifier{client: client}
}

func (n *RedisNotifier) AlertCreated(ctx context.Context, alert *models.Alert) {
	n.publish(ctx, ChannelAlerts, alert)
}

func (n *RedisNotifier) AnalysisCompleted(ctx context.Context, analysis *models.Analysis) {
	n.publish(ctx, ChannelAnalyses, analysis)
}

func (n *RedisNotifier) publish(ctx context.Context, channel string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		slog.Warn("notify marshal failed", "channel", channel, "error", err)
		return
	}
	if err := n.client.Publish(ctx, channel, raw).Err(); err != nil {
		slog.Warn("notify publish failed", "channel", channel, "error", err)
	}
}

// NoopNotifier discards all notifications, used in tests and when Redis is
// unavailable.
type NoopNotifier struct{}

func (NoopNotifier) AlertCreated(context.Context, *models.Alert)          {}
func (NoopNotifier) AnalysisCompleted(context.Context, *models.Analysis) {}

var (
	_ Notifier = (*RedisNotifier)(nil)
	_ Notifier = NoopNotifier{}
)
