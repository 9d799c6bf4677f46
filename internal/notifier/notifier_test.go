package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"vitalia/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestWithDisclaimer(t *testing.T) {
	assert.Equal(t,
		"report\n\nThis is an automated message from the system, no reply expected",
		WithDisclaimer("report"))
}

func testTwilioConfig(baseURL string) TwilioConfig {
	return TwilioConfig{
		AccountSID: "AC123",
		AuthToken:  "secret",
		FromNumber: "+15550001111",
		BaseURL:    baseURL,
		Timeout:    5 * time.Second,
	}
}

func TestTwilio_Send_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2010-04-01/Accounts/AC123/Messages.json", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "AC123", user)
		assert.Equal(t, "secret", pass)

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "hello doctor", r.PostForm.Get("Body"))
		assert.Equal(t, "whatsapp:+15550001111", r.PostForm.Get("From"))
		assert.Equal(t, "whatsapp:+15552223333", r.PostForm.Get("To"))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"sid":"SM42","status":"queued"}`))
	}))
	defer srv.Close()

	outcome := NewTwilio(testTwilioConfig(srv.URL), zap.NewNop()).
		Send(context.Background(), "hello doctor", "+15552223333")

	assert.True(t, outcome.Success)
	assert.Equal(t, "Message sent! SID: SM42", outcome.Message)
}

func TestTwilio_Send_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":21211,"message":"Invalid 'To' Phone Number","status":400}`))
	}))
	defer srv.Close()

	outcome := NewTwilio(testTwilioConfig(srv.URL), zap.NewNop()).
		Send(context.Background(), "body", "bad")

	assert.False(t, outcome.Success)
	assert.Contains(t, outcome.Message, "Invalid 'To' Phone Number")
	assert.Contains(t, outcome.Message, "21211")
}

func TestTwilio_Send_MissingCredentials(t *testing.T) {
	cfg := testTwilioConfig("http://127.0.0.1:1")
	cfg.AuthToken = ""

	outcome := NewTwilio(cfg, zap.NewNop()).Send(context.Background(), "body", "+1555")

	assert.False(t, outcome.Success)
	assert.Equal(t, "Twilio client not initialized. Check credentials.", outcome.Message)
}

func TestTwilio_Send_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	outcome := NewTwilio(testTwilioConfig(url), zap.NewNop()).Send(context.Background(), "body", "+1555")

	assert.False(t, outcome.Success)
	assert.Contains(t, outcome.Message, "Failed to send message")
}

type fakePublisher struct {
	mu       sync.Mutex
	topics   []string
	payloads [][]byte
	err      error
}

func (f *fakePublisher) Publish(topic string, qos byte, retained bool, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.topics = append(f.topics, topic)
	f.payloads = append(f.payloads, payload)
	return nil
}

func TestMQTT_Send_Success(t *testing.T) {
	pub := &fakePublisher{}
	ch := NewMQTT(pub, "vitalia/notify/", 1, zap.NewNop())

	outcome := ch.Send(context.Background(), "report", "+1 555 000")

	assert.True(t, outcome.Success)
	assert.Equal(t, "Message published to vitalia/notify/1555000", outcome.Message)
	require.Len(t, pub.payloads, 1)

	var msg mqttMessage
	require.NoError(t, json.Unmarshal(pub.payloads[0], &msg))
	assert.Equal(t, "+1 555 000", msg.To)
	assert.Equal(t, "report", msg.Body)
}

func TestMQTT_Send_PublishError(t *testing.T) {
	ch := NewMQTT(&fakePublisher{err: errors.New("not connected")}, "p/", 0, zap.NewNop())

	outcome := ch.Send(context.Background(), "report", "+1555")

	assert.False(t, outcome.Success)
	assert.Contains(t, outcome.Message, "not connected")
}

func TestMQTT_Send_NilPublisher(t *testing.T) {
	outcome := NewMQTT(nil, "p/", 0, zap.NewNop()).Send(context.Background(), "report", "+1555")

	assert.False(t, outcome.Success)
}

type staticChannel struct {
	name    string
	outcome models.NotificationOutcome
}

func (s staticChannel) Send(ctx context.Context, body, to string) models.NotificationOutcome {
	return s.outcome
}

func (s staticChannel) Name() string { return s.name }

func TestMulti_Send(t *testing.T) {
	ok := staticChannel{name: "a", outcome: models.NotificationOutcome{Success: true, Message: "sent"}}
	bad := staticChannel{name: "b", outcome: models.NotificationOutcome{Success: false, Message: "down"}}

	all := NewMulti(ok, ok).Send(context.Background(), "x", "y")
	assert.True(t, all.Success)
	assert.Equal(t, "a: sent; a: sent", all.Message)

	mixed := NewMulti(ok, bad).Send(context.Background(), "x", "y")
	assert.False(t, mixed.Success)
	assert.Equal(t, "a: sent; b: down", mixed.Message)

	empty := NewMulti().Send(context.Background(), "x", "y")
	assert.False(t, empty.Success)
}

func TestFromConfig(t *testing.T) {
	logger := zap.NewNop()

	ch, err := FromConfig(Config{}, nil, logger)
	require.NoError(t, err)
	assert.Equal(t, "twilio", ch.Name())

	ch, err = FromConfig(Config{Backends: []string{"mqtt"}}, &fakePublisher{}, logger)
	require.NoError(t, err)
	assert.Equal(t, "mqtt", ch.Name())

	ch, err = FromConfig(Config{Backends: []string{"twilio", " MQTT "}}, &fakePublisher{}, logger)
	require.NoError(t, err)
	assert.Equal(t, "multi", ch.Name())

	_, err = FromConfig(Config{Backends: []string{"mqtt"}}, nil, logger)
	assert.Error(t, err)

	_, err = FromConfig(Config{Backends: []string{"pager"}}, nil, logger)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown notification backend")
}
