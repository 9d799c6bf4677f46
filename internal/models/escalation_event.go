package models

import (
	"time"
)

// 升级事件类型
const (
	EventAbnormalDetected   = "abnormal_detected"
	EventAnalysisCompleted  = "analysis_completed"
	EventNotificationSent   = "notification_sent"
	EventNotificationFailed = "notification_failed"
	EventRecovered          = "recovered"
)

// EscalationEvent 升级事件（写入 Redis Stream，供外部订阅）
type EscalationEvent struct {
	EventID       string               `json:"event_id"`
	PatientID     string               `json:"patient_id"`
	EventType     string               `json:"event_type"`
	Phase         Phase                `json:"phase"`
	OccurredAt    time.Time            `json:"occurred_at"`
	Abnormalities []string             `json:"abnormalities,omitempty"`
	Sample        *VitalsSample        `json:"sample,omitempty"`
	Analysis      *AnalysisResult      `json:"analysis,omitempty"`
	Notification  *NotificationOutcome `json:"notification,omitempty"`
}

// RealtimeSnapshot 最新一次 tick 的快照（写入实时缓存）
type RealtimeSnapshot struct {
	PatientID      string               `json:"patient_id"`
	Sample         VitalsSample         `json:"sample"`
	Classification ClassificationResult `json:"classification"`
	Phase          Phase                `json:"phase"`
	Timestamp      int64                `json:"timestamp"` // Unix 时间戳
}
