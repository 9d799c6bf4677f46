package notifier

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Config 通知渠道配置
type Config struct {
	Backends        []string
	Twilio          TwilioConfig
	MQTTTopicPrefix string
	MQTTQoS         byte
}

// FromConfig 根据配置创建通知渠道
// 未配置 backend 时默认使用 twilio；多个 backend 时使用 Multi
func FromConfig(cfg Config, publisher Publisher, logger *zap.Logger) (Channel, error) {
	var channels []Channel

	backends := cfg.Backends
	if len(backends) == 0 {
		backends = []string{"twilio"}
	}

	for _, backend := range backends {
		switch strings.TrimSpace(strings.ToLower(backend)) {
		case "twilio":
			channels = append(channels, NewTwilio(cfg.Twilio, logger))
		case "mqtt":
			if publisher == nil {
				return nil, fmt.Errorf("mqtt backend requires a connected MQTT client")
			}
			channels = append(channels, NewMQTT(publisher, cfg.MQTTTopicPrefix, cfg.MQTTQoS, logger))
		case "":
			continue
		default:
			return nil, fmt.Errorf("unknown notification backend: %s", backend)
		}
	}

	if len(channels) == 0 {
		return NewTwilio(cfg.Twilio, logger), nil
	}

	if len(channels) == 1 {
		return channels[0], nil
	}

	return NewMulti(channels...), nil
}
