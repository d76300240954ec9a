package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Durgaprasad40/mira-nearby/internal/config"
	"github.com/Durgaprasad40/mira-nearby/internal/storage"
	"github.com/Durgaprasad40/mira-nearby/pkg/logger"
)

// Worker drains the notification queue and posts each item to the push
// gateway. Deliveries are signed so the gateway can verify origin.
type Worker struct {
	redis      storage.RedisClient
	httpClient *http.Client
	cfg        config.PushConfig
	logger     logger.Logger
}

func NewWorker(redisClient storage.RedisClient, cfg config.PushConfig, log logger.Logger) *Worker {
	return &Worker{
		redis:      redisClient,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cfg:        cfg,
		logger:     log,
	}
}

// Run blocks until ctx is cancelled, popping one notification at a time.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("notification worker started", "gateway", w.cfg.GatewayURL)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("notification worker stopped")
			return
		default:
		}

		values, err := w.redis.BRPop(ctx, 5*time.Second, queueKey)
		if err != nil {
			if ctx.Err() != nil {
				w.logger.Info("notification worker stopped")
				return
			}
			w.logger.Error("failed to pop notification", "error", err)
			time.Sleep(time.Second)
			continue
		}
		if len(values) < 2 {
			continue
		}

		var n Notification
		if err := json.Unmarshal([]byte(values[1]), &n); err != nil {
			w.logger.Error("dropping malformed notification", "error", err)
			continue
		}

		if err := w.deliver(ctx, &n); err != nil {
			w.logger.Error("failed to deliver notification",
				"notification_id", n.ID, "error", err)
		}
	}
}

// deliver posts the notification, retrying with exponential backoff.
func (w *Worker) deliver(ctx context.Context, n *Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= w.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * time.Second
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		lastErr = w.post(ctx, body)
		if lastErr == nil {
			return nil
		}
	}

	return fmt.Errorf("delivery failed after %d attempts: %w", w.cfg.MaxRetries+1, lastErr)
}

func (w *Worker) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.cfg.GatewayURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Signature", Sign(body, w.cfg.Secret))

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}
	return nil
}

// Sign computes the hex HMAC-SHA256 signature the gateway verifies.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
