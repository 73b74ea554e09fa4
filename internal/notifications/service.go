package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

const userAgent = "docent/1.0"

// Notifier defines the alerts raised by the resolution service and daemon.
type Notifier interface {
	NotifyVisionQuota(ctx context.Context, kind string, cause error) error
	NotifyRegistrySyncFailed(ctx context.Context, cause error) error
	TestNotification(ctx context.Context) error
}

// Options configures the ntfy notifier.
type Options struct {
	// Topic is the full ntfy topic URL, e.g. https://ntfy.sh/museum-docent.
	Topic    string
	Timeout  time.Duration
	Cooldown time.Duration
	// Now overrides the clock used for throttling.
	Now func() time.Time
}

// New builds an ntfy notifier, or a no-op one when opts.Topic is empty.
func New(opts Options) Notifier {
	topic := strings.TrimSpace(opts.Topic)
	if topic == "" {
		return noopService{}
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		cooldown: opts.Cooldown,
		now:      now,
		lastSent: make(map[string]time.Time),
	}
}

type payload struct {
	key      string
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	cooldown time.Duration
	now      func() time.Time

	mu       sync.Mutex
	lastSent map[string]time.Time
}

func (n *ntfyService) NotifyVisionQuota(ctx context.Context, kind string, cause error) error {
	data := payload{
		key:      "vision_" + kind,
		tags:     []string{"docent", "vision", kind},
		priority: "high",
	}
	switch kind {
	case "credits":
		data.title = "Docent - AI credits depleted"
		data.message = "The vision provider rejected a visitor photo because the account is out of credits. Add funds to restore identification."
	case "rate_limited":
		data.title = "Docent - Rate limited"
		data.message = "The vision provider is rate limiting visitor photos. Identification will resume once the limit resets."
		data.priority = "default"
	default:
		data.title = "Docent - Vision failure"
		data.message = "The vision provider failed to identify a visitor photo."
	}
	if cause != nil {
		data.message += "\n" + strings.TrimSpace(cause.Error())
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyRegistrySyncFailed(ctx context.Context, cause error) error {
	message := "Registry sync from the published sheet failed; the previous registry is still served."
	if cause != nil {
		message += "\n" + strings.TrimSpace(cause.Error())
	}
	return n.send(ctx, payload{
		key:     "registry_sync",
		title:   "Docent - Registry sync failed",
		message: message,
		tags:    []string{"docent", "registry", "sync"},
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "Docent - Test",
		message:  "Notification system test",
		tags:     []string{"docent", "test"},
		priority: "low",
	})
}

// reserve claims the cooldown slot for key and reports whether the alert may
// be sent now. Keyless alerts are never throttled.
func (n *ntfyService) reserve(key string) (time.Time, bool) {
	if key == "" || n.cooldown <= 0 {
		return time.Time{}, true
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	now := n.now()
	if last, ok := n.lastSent[key]; ok && now.Sub(last) < n.cooldown {
		return time.Time{}, false
	}
	n.lastSent[key] = now
	return now, true
}

// release drops a reservation after a failed send so the next alert for key
// goes out instead of waiting for the cooldown.
func (n *ntfyService) release(key string, stamp time.Time) {
	if key == "" || stamp.IsZero() {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.lastSent[key].Equal(stamp) {
		delete(n.lastSent, key)
	}
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}
	stamp, ok := n.reserve(data.key)
	if !ok {
		return nil
	}
	if err := n.post(ctx, data); err != nil {
		n.release(data.key, stamp)
		return err
	}
	return nil
}

func (n *ntfyService) post(ctx context.Context, data payload) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
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

type noopService struct{}

func (noopService) NotifyVisionQuota(context.Context, string, error) error { return nil }
func (noopService) NotifyRegistrySyncFailed(context.Context, error) error  { return nil }
func (noopService) TestNotification(context.Context) error                { return nil }
