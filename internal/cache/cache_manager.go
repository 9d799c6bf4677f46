// Package cache 把监护数据写入 Redis：最新快照（带 TTL 的实时缓存）和升级事件 Stream。
package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"vitalia/internal/config"
	"vitalia/internal/models"

	"go.uber.org/zap"
)

// CacheManager Redis 缓存管理器（用于监护服务）
type CacheManager struct {
	config  *config.Config
	kv      KVStore
	streams StreamWriter
	logger  *zap.Logger
}

// NewCacheManager 创建缓存管理器
func NewCacheManager(
	cfg *config.Config,
	kv KVStore,
	streams StreamWriter,
	logger *zap.Logger,
) *CacheManager {
	return &CacheManager{
		config:  cfg,
		kv:      kv,
		streams: streams,
		logger:  logger,
	}
}

// RealtimeKey 构建实时数据缓存键
func (c *CacheManager) RealtimeKey(patientID string) string {
	return fmt.Sprintf("%s%s%s",
		c.config.Cache.RealtimeKeyPrefix,
		patientID,
		c.config.Cache.RealtimeSuffix,
	)
}

// UpdateRealtime 更新实时数据缓存
func (c *CacheManager) UpdateRealtime(ctx context.Context, snapshot *models.RealtimeSnapshot) error {
	key := c.RealtimeKey(snapshot.PatientID)

	jsonData, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal realtime snapshot: %w", err)
	}

	if err := c.kv.Set(ctx, key, string(jsonData), c.config.RealtimeTTL()); err != nil {
		return fmt.Errorf("failed to set cache: %w", err)
	}

	c.logger.Debug("Updated realtime cache",
		zap.String("patient_id", snapshot.PatientID),
		zap.String("key", key),
	)

	return nil
}

// GetRealtime 从 Redis 读取实时数据
func (c *CacheManager) GetRealtime(ctx context.Context, patientID string) (*models.RealtimeSnapshot, error) {
	val, err := c.kv.Get(ctx, c.RealtimeKey(patientID))
	if err != nil {
		return nil, err
	}

	var snapshot models.RealtimeSnapshot
	if err := json.Unmarshal([]byte(val), &snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal realtime snapshot: %w", err)
	}

	return &snapshot, nil
}

// PublishEscalation 发布升级事件到 Redis Stream
func (c *CacheManager) PublishEscalation(ctx context.Context, event *models.EscalationEvent) (string, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return "", fmt.Errorf("failed to marshal escalation event: %w", err)
	}

	id, err := c.streams.Append(ctx, c.config.Cache.EscalationStream, c.config.Cache.StreamMaxLen, map[string]interface{}{
		"event_id":   event.EventID,
		"event_type": event.EventType,
		"patient_id": event.PatientID,
		"phase":      string(event.Phase),
		"data":       string(data),
		"timestamp":  event.OccurredAt.Unix(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to publish escalation event: %w", err)
	}

	c.logger.Debug("Published escalation event",
		zap.String("event_type", event.EventType),
		zap.String("event_id", event.EventID),
		zap.String("stream_id", id),
	)

	return id, nil
}
