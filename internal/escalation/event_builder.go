package escalation

import (
	"vitalia/internal/clock"
	"vitalia/internal/models"

	"github.com/google/uuid"
)

// EventBuilder 升级事件构建器
type EventBuilder struct {
	patientID string
	clock     clock.Clock
}

// NewEventBuilder 创建升级事件构建器
func NewEventBuilder(patientID string, clk clock.Clock) *EventBuilder {
	return &EventBuilder{
		patientID: patientID,
		clock:     clk,
	}
}

// Build 构建升级事件
func (b *EventBuilder) Build(
	eventType string,
	phase models.Phase,
	sample models.VitalsSample,
	classification models.ClassificationResult,
	analysis *models.AnalysisResult,
	notification *models.NotificationOutcome,
) *models.EscalationEvent {
	event := &models.EscalationEvent{
		EventID:    uuid.New().String(),
		PatientID:  b.patientID,
		EventType:  eventType,
		Phase:      phase,
		OccurredAt: b.clock.Now(),
		Sample:     &sample,
	}

	if len(classification.Abnormalities) > 0 {
		event.Abnormalities = append([]string(nil), classification.Abnormalities...)
	}

	// 只在对应事件上附带分析/通知结果
	switch eventType {
	case models.EventAnalysisCompleted:
		event.Analysis = analysis
	case models.EventNotificationSent, models.EventNotificationFailed:
		event.Notification = notification
	}

	return event
}

// BuildAll 根据一次 tick 的结果构建全部事件
func (b *EventBuilder) BuildAll(outcome Outcome, sample models.VitalsSample, classification models.ClassificationResult) []*models.EscalationEvent {
	events := make([]*models.EscalationEvent, 0, len(outcome.Events))
	for _, eventType := range outcome.Events {
		events = append(events, b.Build(eventType, outcome.Phase, sample, classification, outcome.Analysis, outcome.Notification))
	}
	return events
}
