package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// LogSurface writes messages to the structured log.
type LogSurface struct {
	logger *slog.Logger
}

// NewLogSurface creates a log-backed surface.
func NewLogSurface(logger *slog.Logger) *LogSurface {
	return &LogSurface{logger: logger.With(slog.String("component", "notify"))}
}

// Publish logs the message.
func (s *LogSurface) Publish(ctx context.Context, message string) {
	s.logger.InfoContext(ctx, "price alert", slog.String("message", message))
}

// MultiSurface fans a message out to several surfaces in order.
type MultiSurface []Surface

// Publish sends message to every surface.
func (m MultiSurface) Publish(ctx context.Context, message string) {
	for _, s := range m {
		s.Publish(ctx, message)
	}
}

// WebhookSurface posts messages to a Discord-compatible webhook.
type WebhookSurface struct {
	url      string
	username string
	client   *http.Client
	logger   *slog.Logger
	wg       sync.WaitGroup
}

type webhookPayload struct {
	Username string `json:"username,omitempty"`
	Content  string `json:"content"`
}

// NewWebhookSurface creates a webhook surface. Each message is sent from its
// own goroutine.
func NewWebhookSurface(url string, logger *slog.Logger) *WebhookSurface {
	return &WebhookSurface{
		url:      url,
		username: "PriceNotifier",
		client:   &http.Client{Timeout: 10 * time.Second},
		logger:   logger.With(slog.String("component", "webhook")),
	}
}

// Publish queues message for delivery and returns immediately.
func (s *WebhookSurface) Publish(_ context.Context, message string) {
	if s.url == "" {
		return
	}
	body, err := json.Marshal(webhookPayload{Username: s.username, Content: message})
	if err != nil {
		s.logger.Error("marshal webhook payload", slog.String("error", err.Error()))
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		resp, err := s.client.Post(s.url, "application/json", bytes.NewReader(body))
		if err != nil {
			s.logger.Warn("webhook send failed", slog.String("error", err.Error()))
			return
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 300 {
			s.logger.Warn("webhook rejected message", slog.Int("status", resp.StatusCode))
		}
	}()
}

// Close waits for in-flight deliveries.
func (s *WebhookSurface) Close() error {
	s.wg.Wait()
	return nil
}

// RedisSurface publishes messages on a Redis channel and keeps a capped list
// of recent alerts for the detail view.
type RedisSurface struct {
	client  *redis.Client
	channel string
	listKey string
	maxLen  int64
	logger  *slog.Logger
}

// RedisSurfaceConfig configures a RedisSurface.
type RedisSurfaceConfig struct {
	Channel string
	ListKey string
	MaxLen  int64
}

// NewRedisSurface creates a Redis-backed surface.
func NewRedisSurface(client *redis.Client, cfg RedisSurfaceConfig, logger *slog.Logger) *RedisSurface {
	if cfg.Channel == "" {
		cfg.Channel = "pricenotifier:alerts"
	}
	if cfg.ListKey == "" {
		cfg.ListKey = cfg.Channel + ":recent"
	}
	if cfg.MaxLen <= 0 {
		cfg.MaxLen = 100
	}
	return &RedisSurface{
		client:  client,
		channel: cfg.Channel,
		listKey: cfg.ListKey,
		maxLen:  cfg.MaxLen,
		logger:  logger.With(slog.String("component", "redis_surface")),
	}
}

// Publish sends message to subscribers and prepends it to the recent list.
func (s *RedisSurface) Publish(ctx context.Context, message string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	pipe := s.client.Pipeline()
	pipe.Publish(ctx, s.channel, message)
	pipe.LPush(ctx, s.listKey, message)
	pipe.LTrim(ctx, s.listKey, 0, s.maxLen-1)
	if _, err := pipe.Exec(ctx); err != nil {
		s.logger.Warn("redis publish failed", slog.String("error", err.Error()))
	}
}

// Recent returns up to limit of the newest messages.
func (s *RedisSurface) Recent(ctx context.Context, limit int64) ([]string, error) {
	if limit <= 0 || limit > s.maxLen {
		limit = s.maxLen
	}
	return s.client.LRange(ctx, s.listKey, 0, limit-1).Result()
}
