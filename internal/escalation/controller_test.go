package escalation

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"vitalia/internal/agent"
	"vitalia/internal/clock"
	"vitalia/internal/models"
	"vitalia/internal/notifier"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeProvider struct {
	mu       sync.Mutex
	calls    []time.Time
	symptoms []string
	result   models.AnalysisResult
	err      error
	clock    clock.Clock
	delay    time.Duration

	inFlight    int32
	maxInFlight int32
}

func (f *fakeProvider) Analyze(ctx context.Context, sample models.VitalsSample, symptoms string) (models.AnalysisResult, error) {
	n := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		max := atomic.LoadInt32(&f.maxInFlight)
		if n <= max || atomic.CompareAndSwapInt32(&f.maxInFlight, max, n) {
			break
		}
	}

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return models.AnalysisResult{}, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, f.clock.Now())
	f.symptoms = append(f.symptoms, symptoms)
	return f.result, f.err
}

func (f *fakeProvider) callTimes() []time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Time(nil), f.calls...)
}

type fakeChannel struct {
	mu      sync.Mutex
	bodies  []string
	to      []string
	outcome models.NotificationOutcome
}

func (f *fakeChannel) Send(ctx context.Context, body, to string) models.NotificationOutcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bodies = append(f.bodies, body)
	f.to = append(f.to, to)
	return f.outcome
}

func (f *fakeChannel) Name() string { return "fake" }

func (f *fakeChannel) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.bodies)
}

var (
	abnormal = models.ClassificationResult{
		Status:        models.StatusAbnormal,
		Abnormalities: []string{"Heart Rate: 140 bpm (Normal: 60-100)"},
		Details: models.Details{
			HeartRate:   models.StatusAbnormal,
			SpO2:        models.StatusNormal,
			BP:          models.StatusNormal,
			Temperature: models.StatusNormal,
		},
	}
	normal = models.ClassificationResult{
		Status:        models.StatusNormal,
		Abnormalities: []string{},
		Details: models.Details{
			HeartRate:   models.StatusNormal,
			SpO2:        models.StatusNormal,
			BP:          models.StatusNormal,
			Temperature: models.StatusNormal,
		},
	}
	sample = models.VitalsSample{Timestamp: "12:00:00", HeartRate: 140, SpO2: 98, SysBP: 120, DiaBP: 80, Temperature: 37.0}
)

type fixture struct {
	clock    *clock.Fake
	provider *fakeProvider
	channel  *fakeChannel
	ctrl     *Controller
}

func newFixture(cfg Config) *fixture {
	clk := clock.NewFake(t0)
	provider := &fakeProvider{
		clock:  clk,
		result: models.AnalysisResult{PatientAdvice: "rest", DoctorReport: "HR 140", Emergency: true},
	}
	channel := &fakeChannel{outcome: models.NotificationOutcome{Success: true, Message: "sent"}}
	if cfg.Cooldown == 0 {
		cfg.Cooldown = 10 * time.Second
	}
	return &fixture{
		clock:    clk,
		provider: provider,
		channel:  channel,
		ctrl:     NewController(cfg, provider, channel, clk, zap.NewNop()),
	}
}

// tickAt 把时钟设到 t0+sec 秒并处理一次
func (f *fixture) tickAt(sec int, result models.ClassificationResult) Outcome {
	f.clock.Set(t0.Add(time.Duration(sec) * time.Second))
	return f.ctrl.Process(context.Background(), sample, result)
}

func secondsSinceT0(times []time.Time) []int {
	out := make([]int, 0, len(times))
	for _, tm := range times {
		out = append(out, int(tm.Sub(t0)/time.Second))
	}
	return out
}

func TestProcess_CooldownWindow(t *testing.T) {
	f := newFixture(Config{})

	for sec := 0; sec <= 20; sec++ {
		f.tickAt(sec, abnormal)
		if sec <= 10 {
			assert.Empty(t, f.provider.callTimes(), "no analysis before the cooldown elapses (t=%d)", sec)
		}
	}

	// 第一次分析在 t=11（严格大于冷却），下一次最早在 t=22
	assert.Equal(t, []int{11}, secondsSinceT0(f.provider.callTimes()))

	for sec := 21; sec <= 40; sec++ {
		f.tickAt(sec, abnormal)
	}
	assert.Equal(t, []int{11, 22, 33}, secondsSinceT0(f.provider.callTimes()))
	assert.Equal(t, agent.AutoDetectedSymptoms, f.provider.symptoms[0])
}

func TestProcess_FirstAbnormalSeedsState(t *testing.T) {
	f := newFixture(Config{})

	out := f.tickAt(0, abnormal)

	assert.Equal(t, models.PhaseWaiting, out.Phase)
	assert.Equal(t, []string{models.EventAbnormalDetected}, out.Events)
	assert.Nil(t, out.Analysis)

	state := f.ctrl.State()
	require.NotNil(t, state.AbnormalSince)
	require.NotNil(t, state.LastAnalysisAt)
	assert.Equal(t, t0, *state.AbnormalSince)
	assert.Equal(t, t0, *state.LastAnalysisAt)
	assert.Equal(t, models.PhaseWaiting, f.ctrl.Phase())
}

func TestProcess_ExactlyCooldownDoesNotTrigger(t *testing.T) {
	f := newFixture(Config{})

	f.tickAt(0, abnormal)
	out := f.tickAt(10, abnormal)

	assert.Equal(t, models.PhaseWaiting, out.Phase)
	assert.Empty(t, f.provider.callTimes())

	out = f.tickAt(11, abnormal)
	assert.Equal(t, models.PhaseAnalyzing, out.Phase)
	require.NotNil(t, out.Analysis)
	assert.Equal(t, "rest", out.Analysis.PatientAdvice)
}

func TestProcess_NormalResetsWindow(t *testing.T) {
	f := newFixture(Config{})

	for sec := 0; sec <= 5; sec++ {
		f.tickAt(sec, abnormal)
	}
	out := f.tickAt(6, normal)

	assert.Equal(t, models.PhaseIdle, out.Phase)
	assert.Equal(t, []string{models.EventRecovered}, out.Events)
	state := f.ctrl.State()
	assert.Nil(t, state.AbnormalSince)
	assert.Nil(t, state.LastAnalysisAt)

	// 重新异常后需要完整等待一个冷却周期
	for sec := 7; sec <= 17; sec++ {
		f.tickAt(sec, abnormal)
	}
	assert.Empty(t, f.provider.callTimes())

	f.tickAt(18, abnormal)
	assert.Equal(t, []int{18}, secondsSinceT0(f.provider.callTimes()))
}

func TestProcess_NormalWhileIdleHasNoEvents(t *testing.T) {
	f := newFixture(Config{})

	out := f.tickAt(0, normal)

	assert.Equal(t, models.PhaseIdle, out.Phase)
	assert.Empty(t, out.Events)
}

func TestProcess_ProviderFailureStillResetsCooldown(t *testing.T) {
	f := newFixture(Config{})
	f.provider.err = errors.New("upstream 503")

	f.tickAt(0, abnormal)
	out := f.tickAt(11, abnormal)

	require.NotNil(t, out.Analysis)
	assert.Equal(t, "Error communicating with AI: upstream 503", out.Analysis.PatientAdvice)
	assert.Empty(t, out.Analysis.DoctorReport)
	assert.False(t, out.Analysis.Emergency)
	assert.Nil(t, out.Notification)

	state := f.ctrl.State()
	require.NotNil(t, state.LastAnalysisAt)
	assert.Equal(t, t0.Add(11*time.Second), *state.LastAnalysisAt)

	for sec := 12; sec <= 21; sec++ {
		f.tickAt(sec, abnormal)
	}
	assert.Len(t, f.provider.callTimes(), 1)
	f.tickAt(22, abnormal)
	assert.Len(t, f.provider.callTimes(), 2)
}

func TestProcess_ProviderUnavailable(t *testing.T) {
	f := newFixture(Config{})
	f.provider.err = agent.ErrProviderUnavailable

	f.tickAt(0, abnormal)
	out := f.tickAt(11, abnormal)

	require.NotNil(t, out.Analysis)
	assert.Equal(t, "AI Module not initialized (Missing API Key).", out.Analysis.PatientAdvice)
	assert.False(t, out.Analysis.Emergency)
}

func TestProcess_AutoNotifyOnEmergency(t *testing.T) {
	f := newFixture(Config{AutoNotify: true, DoctorAddress: "+15550001111"})

	f.tickAt(0, abnormal)
	out := f.tickAt(11, abnormal)

	require.NotNil(t, out.Notification)
	assert.True(t, out.Notification.Success)
	assert.Equal(t, []string{models.EventAnalysisCompleted, models.EventNotificationSent}, out.Events)
	require.Equal(t, 1, f.channel.count())
	assert.Equal(t, "+15550001111", f.channel.to[0])
	assert.Equal(t, notifier.WithDisclaimer("HR 140"), f.channel.bodies[0])

	last := f.ctrl.LastNotification()
	require.NotNil(t, last)
	assert.True(t, last.Success)
}

func TestProcess_NoAutoNotifyCases(t *testing.T) {
	cases := []struct {
		name      string
		cfg       Config
		emergency bool
	}{
		{"auto send disabled", Config{AutoNotify: false, DoctorAddress: "+1555"}, true},
		{"no address", Config{AutoNotify: true}, true},
		{"not an emergency", Config{AutoNotify: true, DoctorAddress: "+1555"}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(tc.cfg)
			f.provider.result.Emergency = tc.emergency

			f.tickAt(0, abnormal)
			out := f.tickAt(11, abnormal)

			require.NotNil(t, out.Analysis)
			assert.Nil(t, out.Notification)
			assert.Equal(t, 0, f.channel.count())
		})
	}
}

func TestProcess_NotificationFailureDoesNotAlterState(t *testing.T) {
	f := newFixture(Config{AutoNotify: true, DoctorAddress: "+1555"})
	f.channel.outcome = models.NotificationOutcome{Success: false, Message: "Twilio down"}

	f.tickAt(0, abnormal)
	out := f.tickAt(11, abnormal)

	require.NotNil(t, out.Notification)
	assert.False(t, out.Notification.Success)
	assert.Equal(t, []string{models.EventAnalysisCompleted, models.EventNotificationFailed}, out.Events)

	state := f.ctrl.State()
	require.NotNil(t, state.AbnormalSince)
	assert.Equal(t, t0, *state.AbnormalSince)
	assert.Equal(t, t0.Add(11*time.Second), *state.LastAnalysisAt)

	// 之后的 tick 正常进行，且不会重试发送
	for sec := 12; sec <= 22; sec++ {
		f.tickAt(sec, abnormal)
	}
	assert.Len(t, f.provider.callTimes(), 2)
	assert.Equal(t, 2, f.channel.count())
}

func TestManualAnalysis_DoesNotTouchCooldown(t *testing.T) {
	f := newFixture(Config{})

	f.tickAt(0, abnormal)
	f.clock.Set(t0.Add(5 * time.Second))
	result := f.ctrl.ManualAnalysis(context.Background(), sample, "dizzy and short of breath")

	assert.Equal(t, "rest", result.PatientAdvice)
	assert.Equal(t, "dizzy and short of breath", f.provider.symptoms[0])
	assert.Equal(t, t0, *f.ctrl.State().LastAnalysisAt)

	// 自动分析仍然在 t=11 触发
	f.tickAt(10, abnormal)
	assert.Len(t, f.provider.callTimes(), 1)
	f.tickAt(11, abnormal)
	assert.Len(t, f.provider.callTimes(), 2)
}

func TestManualAnalysis_WhileIdle(t *testing.T) {
	f := newFixture(Config{})

	f.ctrl.ManualAnalysis(context.Background(), sample, "headache")

	assert.True(t, f.ctrl.State().Idle())
	latest := f.ctrl.LatestAnalysis()
	require.NotNil(t, latest)
	assert.Equal(t, "HR 140", latest.DoctorReport)
}

func TestAnalysisCallsAreSerialized(t *testing.T) {
	f := newFixture(Config{})
	f.provider.delay = 5 * time.Millisecond

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.ctrl.ManualAnalysis(context.Background(), sample, "manual")
		}()
	}
	f.tickAt(0, abnormal)
	f.tickAt(11, abnormal)
	wg.Wait()

	assert.Len(t, f.provider.callTimes(), 9)
	assert.Equal(t, int32(1), atomic.LoadInt32(&f.provider.maxInFlight))
}

func TestAnalysisTimeout(t *testing.T) {
	f := newFixture(Config{AnalysisTimeout: 20 * time.Millisecond})
	f.provider.delay = time.Second

	result := f.ctrl.ManualAnalysis(context.Background(), sample, "x")

	assert.Contains(t, result.PatientAdvice, "Error communicating with AI")
	assert.Contains(t, result.PatientAdvice, context.DeadlineExceeded.Error())
	assert.False(t, result.Emergency)
}

func TestSendReport(t *testing.T) {
	f := newFixture(Config{DoctorAddress: "+1555"})

	outcome := f.ctrl.SendReport(context.Background(), "report body")

	assert.True(t, outcome.Success)
	assert.Equal(t, notifier.WithDisclaimer("report body"), f.channel.bodies[0])

	noAddress := newFixture(Config{})
	outcome = noAddress.ctrl.SendReport(context.Background(), "report body")
	assert.False(t, outcome.Success)
	assert.Equal(t, 0, noAddress.channel.count())
	require.NotNil(t, noAddress.ctrl.LastNotification())
}

func TestSetAutoNotify(t *testing.T) {
	f := newFixture(Config{DoctorAddress: "+1555"})
	assert.False(t, f.ctrl.AutoNotify())

	f.ctrl.SetAutoNotify(true)
	f.tickAt(0, abnormal)
	f.tickAt(11, abnormal)

	assert.True(t, f.ctrl.AutoNotify())
	assert.Equal(t, 1, f.channel.count())
}
