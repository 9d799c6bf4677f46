// Package escalation 实现持续异常的定时升级：冷却计时、AI 分析、可选的医生通知。
//
// 状态机：
//
//	IDLE      --ABNORMAL-->                   WAITING（abnormal_since = last_analysis_at = now）
//	WAITING   --ABNORMAL, now-last <= cooldown--> WAITING
//	WAITING   --ABNORMAL, now-last >  cooldown--> ANALYZING --> WAITING（last_analysis_at = now）
//	任意状态  --NORMAL-->                     IDLE（清空两个时间戳）
//
// 手动分析（ManualAnalysis）随时可用，不读取也不重置冷却计时。
package escalation

import (
	"context"
	"sync"
	"time"

	"vitalia/internal/agent"
	"vitalia/internal/clock"
	"vitalia/internal/models"
	"vitalia/internal/notifier"

	"go.uber.org/zap"
)

// DefaultCooldown 两次自动分析之间的最小间隔
const DefaultCooldown = 10 * time.Second

// Config 升级控制器配置
type Config struct {
	Cooldown        time.Duration
	AutoNotify      bool   // 紧急情况下是否自动通知医生
	DoctorAddress   string // 为空时不自动通知
	AnalysisTimeout time.Duration
	NotifyTimeout   time.Duration
}

// Outcome 一次 tick 的处理结果
type Outcome struct {
	Phase        models.Phase
	Events       []string // models.Event* 常量，按发生顺序
	Analysis     *models.AnalysisResult
	Notification *models.NotificationOutcome
}

// Controller 升级控制器（EscalationState 的唯一所有者）
type Controller struct {
	provider agent.Provider
	channel  notifier.Channel
	clock    clock.Clock
	logger   *zap.Logger

	mu               sync.Mutex
	cfg              Config
	state            models.EscalationState
	latest           *models.AnalysisResult
	lastNotification *models.NotificationOutcome

	// 同一会话内分析调用串行化（自动和手动路径共用）
	providerMu sync.Mutex
}

// NewController 创建升级控制器
func NewController(cfg Config, provider agent.Provider, channel notifier.Channel, clk clock.Clock, logger *zap.Logger) *Controller {
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultCooldown
	}
	if cfg.AnalysisTimeout <= 0 {
		cfg.AnalysisTimeout = 30 * time.Second
	}
	if cfg.NotifyTimeout <= 0 {
		cfg.NotifyTimeout = 15 * time.Second
	}
	return &Controller{
		cfg:      cfg,
		provider: provider,
		channel:  channel,
		clock:    clk,
		logger:   logger,
	}
}

// Process 处理一次分类结果，按需触发分析和通知
// 只应由 tick 所在的 goroutine 调用
func (c *Controller) Process(ctx context.Context, sample models.VitalsSample, result models.ClassificationResult) Outcome {
	now := c.clock.Now()

	c.mu.Lock()
	if !result.IsAbnormal() {
		wasActive := !c.state.Idle()
		c.state = models.EscalationState{}
		c.mu.Unlock()

		outcome := Outcome{Phase: models.PhaseIdle}
		if wasActive {
			c.logger.Info("Vitals back to normal, escalation reset")
			outcome.Events = append(outcome.Events, models.EventRecovered)
		}
		return outcome
	}

	if c.state.Idle() {
		// 以异常开始时间作为冷却起点：首次分析在满一个冷却周期后进行
		since := now
		last := now
		c.state = models.EscalationState{AbnormalSince: &since, LastAnalysisAt: &last}
		c.mu.Unlock()

		c.logger.Warn("Abnormal vitals detected",
			zap.Strings("abnormalities", result.Abnormalities),
			zap.Duration("cooldown", c.cfg.Cooldown),
		)
		return Outcome{Phase: models.PhaseWaiting, Events: []string{models.EventAbnormalDetected}}
	}

	if now.Sub(*c.state.LastAnalysisAt) <= c.cfg.Cooldown {
		c.mu.Unlock()
		return Outcome{Phase: models.PhaseWaiting}
	}

	// 无论分析成功与否，本次调用都视为完成，冷却计时从现在重新开始
	last := now
	c.state.LastAnalysisAt = &last
	cfg := c.cfg
	abnormalFor := now.Sub(*c.state.AbnormalSince)
	c.mu.Unlock()

	c.logger.Info("Starting automatic analysis",
		zap.Duration("abnormal_for", abnormalFor),
	)

	analysis := c.analyze(ctx, sample, agent.AutoDetectedSymptoms)
	outcome := Outcome{
		Phase:    models.PhaseAnalyzing,
		Events:   []string{models.EventAnalysisCompleted},
		Analysis: &analysis,
	}

	if analysis.Emergency && cfg.AutoNotify && cfg.DoctorAddress != "" {
		notification := c.send(ctx, analysis.DoctorReport, cfg.DoctorAddress)
		outcome.Notification = &notification
		if notification.Success {
			outcome.Events = append(outcome.Events, models.EventNotificationSent)
		} else {
			outcome.Events = append(outcome.Events, models.EventNotificationFailed)
		}
	}

	return outcome
}

// ManualAnalysis 用户提交症状后立即分析（不影响冷却计时）
func (c *Controller) ManualAnalysis(ctx context.Context, sample models.VitalsSample, symptoms string) models.AnalysisResult {
	c.logger.Info("Starting manual analysis",
		zap.Int("symptoms_length", len(symptoms)),
	)
	return c.analyze(ctx, sample, symptoms)
}

// SendReport 手动把医生报告发送给已配置的医生
func (c *Controller) SendReport(ctx context.Context, report string) models.NotificationOutcome {
	c.mu.Lock()
	address := c.cfg.DoctorAddress
	c.mu.Unlock()

	if address == "" {
		outcome := models.NotificationOutcome{Success: false, Message: "No doctor phone number configured"}
		c.recordNotification(outcome)
		return outcome
	}
	return c.send(ctx, report, address)
}

// SetAutoNotify 开关自动通知
func (c *Controller) SetAutoNotify(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg.AutoNotify = enabled
}

// AutoNotify 是否开启自动通知
func (c *Controller) AutoNotify() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg.AutoNotify
}

// DoctorAddress 已配置的医生号码
func (c *Controller) DoctorAddress() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg.DoctorAddress
}

// State 返回升级状态的副本
func (c *Controller) State() models.EscalationState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return copyState(c.state)
}

// Phase 当前阶段（ANALYZING 是瞬时状态，对外只会看到 IDLE 或 WAITING）
func (c *Controller) Phase() models.Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Idle() {
		return models.PhaseIdle
	}
	return models.PhaseWaiting
}

// LatestAnalysis 最近一次分析结果（自动或手动）
func (c *Controller) LatestAnalysis() *models.AnalysisResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.latest == nil {
		return nil
	}
	r := *c.latest
	return &r
}

// LastNotification 最近一次通知结果
func (c *Controller) LastNotification() *models.NotificationOutcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastNotification == nil {
		return nil
	}
	n := *c.lastNotification
	return &n
}

// analyze 调用分析服务；失败时返回降级结果，不向上抛错
func (c *Controller) analyze(ctx context.Context, sample models.VitalsSample, symptoms string) models.AnalysisResult {
	c.providerMu.Lock()
	defer c.providerMu.Unlock()

	callCtx, cancel := context.WithTimeout(ctx, c.cfg.AnalysisTimeout)
	defer cancel()

	result, err := c.provider.Analyze(callCtx, sample, symptoms)
	if err != nil {
		c.logger.Error("Analysis failed, using degraded result",
			zap.Error(err),
		)
		result = agent.Degraded(err)
	} else {
		c.logger.Info("Analysis completed",
			zap.Bool("emergency", result.Emergency),
		)
	}

	c.mu.Lock()
	c.latest = &result
	c.mu.Unlock()

	return result
}

// send 附加免责说明后发送；失败只记录，不重试
func (c *Controller) send(ctx context.Context, report, address string) models.NotificationOutcome {
	callCtx, cancel := context.WithTimeout(ctx, c.cfg.NotifyTimeout)
	defer cancel()

	outcome := c.channel.Send(callCtx, notifier.WithDisclaimer(report), address)
	if outcome.Success {
		c.logger.Info("Doctor notified",
			zap.String("channel", c.channel.Name()),
			zap.String("message", outcome.Message),
		)
	} else {
		c.logger.Warn("Doctor notification failed",
			zap.String("channel", c.channel.Name()),
			zap.String("reason", outcome.Message),
		)
	}

	c.recordNotification(outcome)
	return outcome
}

func (c *Controller) recordNotification(outcome models.NotificationOutcome) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastNotification = &outcome
}

func copyState(s models.EscalationState) models.EscalationState {
	var out models.EscalationState
	if s.AbnormalSince != nil {
		t := *s.AbnormalSince
		out.AbnormalSince = &t
	}
	if s.LastAnalysisAt != nil {
		t := *s.LastAnalysisAt
		out.LastAnalysisAt = &t
	}
	return out
}
