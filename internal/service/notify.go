package service

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/sirliboyev-uz/ai-blog-agent/internal/config"
	"github.com/sirliboyev-uz/ai-blog-agent/internal/service/publisher"
)

// NotifyService posts events to a webhook. It is strictly fire-and-forget:
// delivery problems are logged and otherwise ignored, so a broken sink can
// never change a publish outcome.
type NotifyService struct {
	webhookURL string
	client     *http.Client
	logger     *zap.Logger
}

func NewNotifyService(cfg *config.NotifyConfig, logger *zap.Logger) *NotifyService {
	timeout, err := time.ParseDuration(cfg.Timeout)
	if err != nil || timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &NotifyService{
		webhookURL: cfg.WebhookURL,
		client: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

func (n *NotifyService) Notify(ctx context.Context, event publisher.Event) {
	if n.webhookURL == "" {
		return
	}

	jsonBody, err := json.Marshal(event)
	if err != nil {
		n.logger.Warn("Failed to marshal notification event", zap.Error(err))
		return
	}

	req, err := http.NewRequestWithContext(ctx, "POST", n.webhookURL, bytes.NewBuffer(jsonBody))
	if err != nil {
		n.logger.Warn("Failed to create notification request", zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		n.logger.Warn("Failed to deliver notification",
			zap.String("type", event.Type),
			zap.Error(err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		n.logger.Warn("Notification sink returned non-success status",
			zap.String("type", event.Type),
			zap.Int("status", resp.StatusCode))
		return
	}

	n.logger.Debug("Notification delivered", zap.String("type", event.Type))
}
