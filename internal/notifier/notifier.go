// Package notifier 通知医生的渠道实现（WhatsApp / MQTT），尽力而为，不重试、不排队。
package notifier

import (
	"context"

	"vitalia/internal/models"
)

// Disclaimer 每条转发消息末尾附加的免责说明
const Disclaimer = "This is an automated message from the system, no reply expected"

// Channel 通知渠道
type Channel interface {
	// Send 向 to 发送 body，结果只表示本次尝试是否成功
	Send(ctx context.Context, body, to string) models.NotificationOutcome

	// Name 渠道名称（用于日志）
	Name() string
}

// WithDisclaimer 在消息正文后附加免责说明
func WithDisclaimer(body string) string {
	return body + "\n\n" + Disclaimer
}

func failed(message string) models.NotificationOutcome {
	return models.NotificationOutcome{Success: false, Message: message}
}

func succeeded(message string) models.NotificationOutcome {
	return models.NotificationOutcome{Success: true, Message: message}
}
