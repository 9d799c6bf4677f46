// Package service 整合模拟器、分类器和升级控制器，驱动固定周期的 tick 循环，
// 并为 HTTP 层提供手动操作（开始/停止监护、模拟开关、症状分析、发送报告）。
package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"vitalia/internal/escalation"
	"vitalia/internal/models"
	"vitalia/internal/monitor"

	"go.uber.org/zap"
)

var (
	// ErrMonitoringStopped 监护未启动
	ErrMonitoringStopped = errors.New("monitoring is not running, start monitoring first")
	// ErrNoVitals 还没有任何样本
	ErrNoVitals = errors.New("no vitals data yet")
	// ErrNoAnalysis 还没有可发送的分析结果
	ErrNoAnalysis = errors.New("no analysis available to send")
)

// VitalsSource 样本来源（由 simulator.Simulator 实现）
type VitalsSource interface {
	Generate(forced models.ForcedFlags) models.VitalsSample
}

// Options 监护服务选项
type Options struct {
	PatientID    string
	TickInterval time.Duration
	HistorySize  int
	Monitoring   bool // 启动时是否已开启监护
}

// Status 当前状态视图
type Status struct {
	PatientID        string                       `json:"patient_id"`
	Monitoring       bool                         `json:"monitoring"`
	Forced           models.ForcedFlags           `json:"forced"`
	AutoNotify       bool                         `json:"auto_notify"`
	DoctorConfigured bool                         `json:"doctor_configured"`
	Latest           *models.VitalsSample         `json:"latest,omitempty"`
	Classification   *models.ClassificationResult `json:"classification,omitempty"`
	Phase            models.Phase                 `json:"phase"`
	Escalation       models.EscalationState       `json:"escalation"`
	Analysis         *models.AnalysisResult       `json:"analysis,omitempty"`
	Notification     *models.NotificationOutcome  `json:"notification,omitempty"`
	History          []models.VitalsSample        `json:"history"`
}

// MonitorService 监护服务
type MonitorService struct {
	opts       Options
	source     VitalsSource
	controller *escalation.Controller
	events     *escalation.EventBuilder
	sink       EventSink
	logger     *zap.Logger

	monitoring atomic.Bool

	mu             sync.RWMutex
	forced         models.ForcedFlags
	latest         *models.VitalsSample
	classification *models.ClassificationResult
	history        *History
}

// NewMonitorService 创建监护服务；sink 为 nil 时不写外部缓存
func NewMonitorService(
	opts Options,
	source VitalsSource,
	controller *escalation.Controller,
	events *escalation.EventBuilder,
	sink EventSink,
	logger *zap.Logger,
) *MonitorService {
	if opts.TickInterval <= 0 {
		opts.TickInterval = time.Second
	}
	if sink == nil {
		sink = NopSink{}
	}
	s := &MonitorService{
		opts:       opts,
		source:     source,
		controller: controller,
		events:     events,
		sink:       sink,
		logger:     logger.With(zap.String("patient_id", opts.PatientID)),
		history:    NewHistory(opts.HistorySize),
	}
	s.monitoring.Store(opts.Monitoring)
	return s
}

// Run 按固定周期驱动 tick，直到 ctx 取消
// 单个 tick 执行完才会处理下一个，错过的 tick 直接丢弃
func (s *MonitorService) Run(ctx context.Context) error {
	s.logger.Info("Monitor loop started",
		zap.Duration("tick_interval", s.opts.TickInterval),
		zap.Bool("monitoring", s.monitoring.Load()),
	)

	ticker := time.NewTicker(s.opts.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Monitor loop stopped")
			return nil
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick 执行一次完整的采样、分类、升级处理；监护关闭时跳过并返回 false
func (s *MonitorService) Tick(ctx context.Context) bool {
	if !s.monitoring.Load() {
		return false
	}

	s.mu.RLock()
	forced := s.forced
	s.mu.RUnlock()

	sample := s.source.Generate(forced)
	result := monitor.Classify(sample)

	s.mu.Lock()
	s.latest = &sample
	s.classification = &result
	s.history.Add(sample)
	s.mu.Unlock()

	if result.IsAbnormal() {
		s.logger.Debug("Abnormal sample",
			zap.String("time", sample.Timestamp),
			zap.Strings("abnormalities", result.Abnormalities),
		)
	}

	outcome := s.controller.Process(ctx, sample, result)

	s.updateRealtime(ctx, sample, result)
	for _, event := range s.events.BuildAll(outcome, sample, result) {
		s.publish(ctx, event)
	}

	return true
}

// StartMonitoring 开启监护
func (s *MonitorService) StartMonitoring() {
	if !s.monitoring.Swap(true) {
		s.logger.Info("Monitoring started")
	}
}

// StopMonitoring 关闭监护（保留历史和升级状态）
func (s *MonitorService) StopMonitoring() {
	if s.monitoring.Swap(false) {
		s.logger.Info("Monitoring stopped")
	}
}

// Monitoring 是否正在监护
func (s *MonitorService) Monitoring() bool {
	return s.monitoring.Load()
}

// SetForced 设置各指标的模拟异常开关，下一个 tick 生效
func (s *MonitorService) SetForced(forced models.ForcedFlags) {
	s.mu.Lock()
	s.forced = forced
	s.mu.Unlock()

	s.logger.Info("Simulation flags updated",
		zap.Bool("heart_rate", forced.HeartRate),
		zap.Bool("spo2", forced.SpO2),
		zap.Bool("bp", forced.BP),
		zap.Bool("temperature", forced.Temperature),
	)
}

// Forced 当前模拟开关
func (s *MonitorService) Forced() models.ForcedFlags {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.forced
}

// SetAutoNotify 开关紧急情况自动通知
func (s *MonitorService) SetAutoNotify(enabled bool) {
	s.controller.SetAutoNotify(enabled)
	s.logger.Info("Auto notify updated", zap.Bool("enabled", enabled))
}

// SubmitSymptoms 用户描述症状后，基于最新样本立即分析
func (s *MonitorService) SubmitSymptoms(ctx context.Context, symptoms string) (models.AnalysisResult, error) {
	if !s.monitoring.Load() {
		return models.AnalysisResult{}, ErrMonitoringStopped
	}

	s.mu.RLock()
	latest, classification := s.latest, s.classification
	s.mu.RUnlock()
	if latest == nil {
		return models.AnalysisResult{}, ErrNoVitals
	}

	result := s.controller.ManualAnalysis(ctx, *latest, symptoms)

	s.publish(ctx, s.events.Build(
		models.EventAnalysisCompleted, s.controller.Phase(), *latest, *classification, &result, nil,
	))

	return result, nil
}

// SendReport 把最近一次分析的医生报告发送给医生
func (s *MonitorService) SendReport(ctx context.Context) (models.NotificationOutcome, error) {
	analysis := s.controller.LatestAnalysis()
	if analysis == nil {
		return models.NotificationOutcome{}, ErrNoAnalysis
	}

	outcome := s.controller.SendReport(ctx, analysis.DoctorReport)

	s.mu.RLock()
	latest, classification := s.latest, s.classification
	s.mu.RUnlock()
	if latest != nil {
		eventType := models.EventNotificationSent
		if !outcome.Success {
			eventType = models.EventNotificationFailed
		}
		s.publish(ctx, s.events.Build(
			eventType, s.controller.Phase(), *latest, *classification, nil, &outcome,
		))
	}

	return outcome, nil
}

// History 历史窗口副本（最旧在前）
func (s *MonitorService) History() []models.VitalsSample {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.history.Items()
}

// Snapshot 当前状态视图
func (s *MonitorService) Snapshot() Status {
	status := Status{
		PatientID:        s.opts.PatientID,
		Monitoring:       s.monitoring.Load(),
		AutoNotify:       s.controller.AutoNotify(),
		DoctorConfigured: s.controller.DoctorAddress() != "",
		Phase:            s.controller.Phase(),
		Escalation:       s.controller.State(),
		Analysis:         s.controller.LatestAnalysis(),
		Notification:     s.controller.LastNotification(),
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	status.Forced = s.forced
	if s.latest != nil {
		sample := *s.latest
		status.Latest = &sample
	}
	if s.classification != nil {
		result := *s.classification
		status.Classification = &result
	}
	status.History = s.history.Items()

	return status
}

// updateRealtime 写实时缓存；失败只记录日志
func (s *MonitorService) updateRealtime(ctx context.Context, sample models.VitalsSample, result models.ClassificationResult) {
	snapshot := &models.RealtimeSnapshot{
		PatientID:      s.opts.PatientID,
		Sample:         sample,
		Classification: result,
		Phase:          s.controller.Phase(),
		Timestamp:      sample.RecordedAt.Unix(),
	}
	if err := s.sink.UpdateRealtime(ctx, snapshot); err != nil {
		s.logger.Error("Failed to update realtime cache", zap.Error(err))
	}
}

// publish 发布升级事件；失败只记录日志
func (s *MonitorService) publish(ctx context.Context, event *models.EscalationEvent) {
	if _, err := s.sink.PublishEscalation(ctx, event); err != nil {
		s.logger.Error("Failed to publish escalation event",
			zap.String("event_type", event.EventType),
			zap.Error(err),
		)
	}
}
