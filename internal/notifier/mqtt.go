package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"vitalia/internal/models"

	"go.uber.org/zap"
)

// Publisher MQTT 发布接口（由 internal/mqtt.Client 实现）
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
}

// mqttMessage 发布到 MQTT 的通知消息
type mqttMessage struct {
	To     string `json:"to"`
	Body   string `json:"body"`
	SentAt int64  `json:"sent_at"`
}

// MQTT 将通知发布到 <topicPrefix><号码> 主题，由下游网关负责投递
type MQTT struct {
	publisher   Publisher
	topicPrefix string
	qos         byte
	logger      *zap.Logger
}

// NewMQTT 创建 MQTT 渠道；publisher 为 nil 时每次发送都返回失败结果
func NewMQTT(publisher Publisher, topicPrefix string, qos byte, logger *zap.Logger) *MQTT {
	return &MQTT{
		publisher:   publisher,
		topicPrefix: topicPrefix,
		qos:         qos,
		logger:      logger,
	}
}

// Name 渠道名称
func (m *MQTT) Name() string {
	return "mqtt"
}

// Send 发布通知消息
func (m *MQTT) Send(ctx context.Context, body, to string) models.NotificationOutcome {
	if m.publisher == nil {
		return failed("MQTT client not initialized. Check broker configuration.")
	}
	if err := ctx.Err(); err != nil {
		return failed(fmt.Sprintf("Failed to publish message: %v", err))
	}

	payload, err := json.Marshal(mqttMessage{To: to, Body: body, SentAt: time.Now().Unix()})
	if err != nil {
		return failed(fmt.Sprintf("Failed to encode message: %v", err))
	}

	topic := m.topicPrefix + topicSegment(to)
	if err := m.publisher.Publish(topic, m.qos, false, payload); err != nil {
		m.logger.Error("MQTT notification publish failed",
			zap.String("topic", topic),
			zap.Error(err),
		)
		return failed(fmt.Sprintf("Failed to publish message: %v", err))
	}

	m.logger.Info("MQTT notification published",
		zap.String("topic", topic),
	)
	return succeeded("Message published to " + topic)
}

// topicSegment 号码转为合法主题段（去掉 + 和空白，通配符替换为 _）
func topicSegment(to string) string {
	r := strings.NewReplacer("+", "", " ", "", "#", "_", "/", "_")
	return r.Replace(to)
}
