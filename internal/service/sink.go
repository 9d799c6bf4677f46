package service

import (
	"context"

	"vitalia/internal/models"
)

// EventSink 监护数据的外部出口（由 cache.CacheManager 实现）
type EventSink interface {
	UpdateRealtime(ctx context.Context, snapshot *models.RealtimeSnapshot) error
	PublishEscalation(ctx context.Context, event *models.EscalationEvent) (string, error)
}

// NopSink 未启用 Redis 时使用
type NopSink struct{}

func (NopSink) UpdateRealtime(context.Context, *models.RealtimeSnapshot) error { return nil }

func (NopSink) PublishEscalation(context.Context, *models.EscalationEvent) (string, error) {
	return "", nil
}
