package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Durgaprasad40/mira-nearby/internal/storage"
)

const queueKey = "notify:queue"

// Notification is a queued push for a single user. For crossed-paths events
// the payload is empty: the recipient must never learn which counterpart
// triggered the alert.
type Notification struct {
	ID       string            `json:"id"`
	UserID   string            `json:"user_id"`
	Title    string            `json:"title"`
	Body     string            `json:"body"`
	Payload  map[string]string `json:"payload"`
	QueuedAt time.Time         `json:"queued_at"`
}

// Publisher enqueues notifications for asynchronous delivery.
type Publisher struct {
	redis storage.RedisClient
}

func NewPublisher(redisClient storage.RedisClient) *Publisher {
	return &Publisher{redis: redisClient}
}

// Notify is fire-and-forget from the caller's point of view: success means
// the notification is queued, not delivered.
func (p *Publisher) Notify(ctx context.Context, userID, title, body string, payload map[string]string) error {
	n := Notification{
		ID:       uuid.New().String(),
		UserID:   userID,
		Title:    title,
		Body:     body,
		Payload:  payload,
		QueuedAt: time.Now(),
	}

	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	if err := p.redis.LPush(ctx, queueKey, data); err != nil {
		return fmt.Errorf("failed to enqueue notification: %w", err)
	}

	return nil
}
