package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"mashup/internal/config"
)

const userAgent = "mashup/0.1.0"

// Event identifies a request milestone.
type Event string

const (
	EventRequestAccepted  Event = "request_accepted"
	EventMashupDelivered  Event = "mashup_delivered"
	EventMashupRejected   Event = "mashup_rejected"
	EventError            Event = "error"
	EventTestNotification Event = "test"
)

// Payload carries event fields keyed by name.
type Payload map[string]any

// Service publishes events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds an ntfy-backed service, or a no-op when the topic is empty.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}
	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	msg, ok := format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func format(event Event, payload Payload) (message, bool) {
	switch event {
	case EventMashupDelivered:
		singer := payload.text("singer")
		clips := payload.intValue("clips")
		body := fmt.Sprintf("🎵 Mashup delivered: %s (%d clips)", singer, clips)
		if size := payload.text("size"); size != "" {
			body = fmt.Sprintf("%s, %s", body, size)
		}
		return message{
			title: "Mashup - Delivered",
			body:  body,
			tags:  []string{"mashup", "delivered"},
		}, true
	case EventMashupRejected:
		return message{
			title: "Mashup - Rejected",
			body:  fmt.Sprintf("Mashup for %s rejected: %s", payload.text("singer"), payload.text("reason")),
			tags:  []string{"mashup", "rejected"},
		}, true
	case EventError:
		var b strings.Builder
		b.WriteString("❌ Error")
		if stage := payload.text("stage"); stage != "" {
			b.WriteString(" during ")
			b.WriteString(stage)
		}
		b.WriteString(": ")
		if detail := payload.text("error"); detail != "" {
			b.WriteString(detail)
		} else {
			b.WriteString("unknown")
		}
		return message{
			title:    "Mashup - Error",
			body:     b.String(),
			tags:     []string{"mashup", "error", "alert"},
			priority: "high",
		}, true
	case EventTestNotification:
		return message{
			title:    "Mashup - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"mashup", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	if n == nil || n.client == nil {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" && msg.priority != "default" {
		req.Header.Set("Priority", msg.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (p Payload) text(key string) string {
	if p == nil {
		return ""
	}
	switch v := p[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case error:
		return strings.TrimSpace(v.Error())
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func (p Payload) intValue(key string) int {
	if p == nil {
		return 0
	}
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	default:
		return 0
	}
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
