package notifier

import (
	"context"
	"fmt"
	"time"

	"vitalia/internal/models"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// DefaultTwilioBaseURL Twilio REST 服务地址
const DefaultTwilioBaseURL = "https://api.twilio.com"

// TwilioConfig Twilio 配置
type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	FromNumber string
	BaseURL    string
	Timeout    time.Duration
}

// Configured 凭据是否齐全
func (c TwilioConfig) Configured() bool {
	return c.AccountSID != "" && c.AuthToken != "" && c.FromNumber != ""
}

// twilioMessage Messages.json 成功响应
type twilioMessage struct {
	SID    string `json:"sid"`
	Status string `json:"status"`
}

// twilioError Twilio 错误响应
type twilioError struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	MoreInfo string `json:"more_info"`
	Status   int    `json:"status"`
}

// Twilio 通过 Twilio WhatsApp 发送消息
type Twilio struct {
	httpClient *resty.Client
	cfg        TwilioConfig
	logger     *zap.Logger
}

// NewTwilio 创建 Twilio 渠道；凭据缺失时每次发送都返回失败结果
func NewTwilio(cfg TwilioConfig, logger *zap.Logger) *Twilio {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultTwilioBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	if !cfg.Configured() {
		logger.Warn("Twilio credentials missing, WhatsApp notifications disabled")
	}

	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetBasicAuth(cfg.AccountSID, cfg.AuthToken).
		SetHeader("Accept", "application/json")

	return &Twilio{
		httpClient: client,
		cfg:        cfg,
		logger:     logger,
	}
}

// Name 渠道名称
func (t *Twilio) Name() string {
	return "twilio"
}

// Send 发送 WhatsApp 消息
func (t *Twilio) Send(ctx context.Context, body, to string) models.NotificationOutcome {
	if !t.cfg.Configured() {
		return failed("Twilio client not initialized. Check credentials.")
	}

	var message twilioMessage
	var apiErr twilioError
	resp, err := t.httpClient.R().
		SetContext(ctx).
		SetPathParam("account", t.cfg.AccountSID).
		SetFormData(map[string]string{
			"Body": body,
			"From": "whatsapp:" + t.cfg.FromNumber,
			"To":   "whatsapp:" + to,
		}).
		SetResult(&message).
		SetError(&apiErr).
		Post("/2010-04-01/Accounts/{account}/Messages.json")

	if err != nil {
		t.logger.Error("Twilio API call failed",
			zap.String("to", to),
			zap.Error(err),
		)
		return failed(fmt.Sprintf("Failed to send message: %v", err))
	}

	if resp.IsError() {
		t.logger.Error("Twilio API returned error",
			zap.String("to", to),
			zap.Int("status_code", resp.StatusCode()),
			zap.Int("code", apiErr.Code),
			zap.String("msg", apiErr.Message),
		)
		if apiErr.Message != "" {
			return failed(fmt.Sprintf("Failed to send message: %s (code: %d)", apiErr.Message, apiErr.Code))
		}
		return failed(fmt.Sprintf("Failed to send message: status %d", resp.StatusCode()))
	}

	t.logger.Info("WhatsApp message sent",
		zap.String("to", to),
		zap.String("sid", message.SID),
		zap.String("status", message.Status),
	)

	return succeeded("Message sent! SID: " + message.SID)
}
