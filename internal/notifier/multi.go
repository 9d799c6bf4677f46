package notifier

import (
	"context"
	"strings"
	"sync"

	"vitalia/internal/models"
)

// Multi 同时向多个渠道发送
type Multi struct {
	channels []Channel
}

// NewMulti 创建 Multi 渠道
func NewMulti(channels ...Channel) *Multi {
	return &Multi{channels: channels}
}

// Name 渠道名称
func (m *Multi) Name() string {
	return "multi"
}

// Send 并发发送到所有渠道；全部成功才算成功，消息按渠道顺序以 "; " 拼接
func (m *Multi) Send(ctx context.Context, body, to string) models.NotificationOutcome {
	if len(m.channels) == 0 {
		return failed("No notification channel configured")
	}

	outcomes := make([]models.NotificationOutcome, len(m.channels))
	var wg sync.WaitGroup
	for i, ch := range m.channels {
		wg.Add(1)
		go func(i int, ch Channel) {
			defer wg.Done()
			outcomes[i] = ch.Send(ctx, body, to)
		}(i, ch)
	}
	wg.Wait()

	success := true
	messages := make([]string, 0, len(outcomes))
	for i, o := range outcomes {
		success = success && o.Success
		messages = append(messages, m.channels[i].Name()+": "+o.Message)
	}

	return models.NotificationOutcome{
		Success: success,
		Message: strings.Join(messages, "; "),
	}
}
