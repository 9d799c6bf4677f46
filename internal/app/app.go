// Package app 把配置、Redis、MQTT、分析服务、通知渠道、监护服务和 HTTP 层组装成一个可运行的服务。
package app

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"vitalia/internal/agent"
	"vitalia/internal/cache"
	"vitalia/internal/clock"
	"vitalia/internal/config"
	"vitalia/internal/escalation"
	httpapi "vitalia/internal/http"
	"vitalia/internal/mqtt"
	"vitalia/internal/notifier"
	"vitalia/internal/service"
	"vitalia/internal/simulator"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// App 监护服务（整合各层）
type App struct {
	config      *config.Config
	logger      *zap.Logger
	redisClient *redis.Client // 未启用 Redis 时为 nil
	mqttClient  *mqtt.Client  // 未配置 MQTT 时为 nil

	Monitor *service.MonitorService
	router  *httpapi.Router
	server  *Server
}

// NewApp 创建监护服务
func NewApp(cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{
		config: cfg,
		logger: logger,
	}
	health := httpapi.NewHealthHandler(logger)

	// 1. 连接 Redis（可选）
	var sink service.EventSink = service.NopSink{}
	if cfg.Redis.Enabled {
		a.redisClient = cache.NewRedisClient(&cfg.Redis)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := cache.Ping(ctx, a.redisClient)
		cancel()
		if err != nil {
			_ = a.redisClient.Close()
			return nil, fmt.Errorf("failed to ping redis: %w", err)
		}

		store := cache.NewRedisStore(a.redisClient)
		sink = cache.NewCacheManager(cfg, store, store, logger)
		health.AddCheck("redis", func(ctx context.Context) error {
			return cache.Ping(ctx, a.redisClient)
		})
		logger.Info("Redis connected", zap.String("addr", cfg.Redis.Addr))
	}

	// 2. 连接 MQTT（可选）
	var publisher notifier.Publisher
	if cfg.MQTT.Broker != "" {
		client, err := mqtt.NewClient(&cfg.MQTT, logger)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.mqttClient = client
		publisher = client
		health.AddCheck("mqtt", func(context.Context) error {
			if !client.IsConnected() {
				return fmt.Errorf("not connected")
			}
			return nil
		})
	}

	// 3. 分析服务和通知渠道
	provider := agent.NewGemini(agent.GeminiConfig{
		APIKey:  cfg.Gemini.APIKey,
		Model:   cfg.Gemini.Model,
		BaseURL: cfg.Gemini.BaseURL,
		Timeout: cfg.AnalysisTimeout(),
	}, logger)

	channel, err := notifier.FromConfig(notifier.Config{
		Backends: cfg.Notify.Backends,
		Twilio: notifier.TwilioConfig{
			AccountSID: cfg.Notify.Twilio.AccountSID,
			AuthToken:  cfg.Notify.Twilio.AuthToken,
			FromNumber: cfg.Notify.Twilio.FromNumber,
			BaseURL:    cfg.Notify.Twilio.BaseURL,
			Timeout:    cfg.NotifyTimeout(),
		},
		MQTTTopicPrefix: cfg.MQTT.TopicPrefix,
		MQTTQoS:         cfg.MQTT.QoS,
	}, publisher, logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create notifier: %w", err)
	}

	// 4. 升级控制器和监护服务
	clk := clock.Real{}
	controller := escalation.NewController(escalation.Config{
		Cooldown:        cfg.Cooldown(),
		AutoNotify:      cfg.Escalation.AutoSend,
		DoctorAddress:   cfg.Escalation.DoctorPhone,
		AnalysisTimeout: cfg.AnalysisTimeout(),
		NotifyTimeout:   cfg.NotifyTimeout(),
	}, provider, channel, clk, logger)

	seed := cfg.Monitor.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	sim := simulator.NewSimulator(rand.New(rand.NewSource(seed)), clk)

	a.Monitor = service.NewMonitorService(service.Options{
		PatientID:    cfg.PatientID,
		TickInterval: cfg.TickInterval(),
		HistorySize:  cfg.Monitor.HistorySize,
		Monitoring:   cfg.Monitor.Enabled,
	}, sim, controller, escalation.NewEventBuilder(cfg.PatientID, clk), sink, logger)

	// 5. HTTP 层
	a.router = httpapi.NewRouter(logger)
	a.router.RegisterMonitorRoutes(httpapi.NewMonitorHandler(a.Monitor, logger))
	a.router.RegisterHealthRoutes(health)
	a.server = NewServer(cfg.HTTP.Addr, a.router, logger)

	logger.Info("Vitalia service created",
		zap.String("patient_id", cfg.PatientID),
		zap.String("notifier", channel.Name()),
		zap.Bool("redis", a.redisClient != nil),
		zap.Bool("mqtt", a.mqttClient != nil),
		zap.Bool("auto_send", cfg.Escalation.AutoSend),
	)

	return a, nil
}

// Handler HTTP 处理器
func (a *App) Handler() http.Handler {
	return a.router
}

// Start 启动 tick 循环和 HTTP 服务，直到 ctx 取消或 HTTP 服务出错
func (a *App) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		_ = a.Monitor.Run(ctx)
	}()

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- a.server.Start()
	}()

	var err error
	select {
	case <-ctx.Done():
	case err = <-serverErr:
		if err != nil {
			err = fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = a.server.Stop(shutdownCtx)

	cancel()
	<-loopDone
	return err
}

// Close 释放外部连接
func (a *App) Close() {
	if a.mqttClient != nil {
		a.mqttClient.Disconnect()
	}
	if a.redisClient != nil {
		_ = a.redisClient.Close()
	}
}
