package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Durgaprasad40/mira-nearby/internal/storage"
	apperrors "github.com/Durgaprasad40/mira-nearby/pkg/errors"
)

type SessionService interface {
	Create(ctx context.Context, userID, ipAddress string) (*Session, error)
	Get(ctx context.Context, sessionID string) (*Session, error)
	Touch(ctx context.Context, sessionID string) error
	Delete(ctx context.Context, sessionID string) error
	Exists(ctx context.Context, sessionID string) (bool, error)
}

type Service struct {
	redis storage.RedisClient
	ttl   time.Duration
}

// Session is one viewing session. Salt stays fixed for the whole session so
// the map a viewer sees is stable, and changes across sessions so noise
// cannot be averaged out over time.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Salt      string    `json:"salt"`
	CreatedAt time.Time `json:"created_at"`
	LastSeen  time.Time `json:"last_seen"`
	IPAddress string    `json:"ip_address"`
}

func NewService(redisClient storage.RedisClient, ttl time.Duration) *Service {
	return &Service{
		redis: redisClient,
		ttl:   ttl,
	}
}

func (s *Service) Create(ctx context.Context, userID, ipAddress string) (*Session, error) {
	session := &Session{
		ID:        uuid.New().String(),
		UserID:    userID,
		Salt:      uuid.New().String(),
		CreatedAt: time.Now(),
		LastSeen:  time.Now(),
		IPAddress: ipAddress,
	}

	if err := s.save(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

func (s *Service) Get(ctx context.Context, sessionID string) (*Session, error) {
	data, err := s.redis.Get(ctx, s.sessionKey(sessionID))
	if err != nil {
		if err == redis.Nil {
			return nil, apperrors.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var session Session
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	return &session, nil
}

// Touch extends the session's lifetime. The salt is deliberately untouched.
func (s *Service) Touch(ctx context.Context, sessionID string) error {
	session, err := s.Get(ctx, sessionID)
	if err != nil {
		return err
	}

	session.LastSeen = time.Now()
	return s.save(ctx, session)
}

func (s *Service) Delete(ctx context.Context, sessionID string) error {
	return s.redis.Del(ctx, s.sessionKey(sessionID))
}

func (s *Service) Exists(ctx context.Context, sessionID string) (bool, error) {
	count, err := s.redis.Exists(ctx, s.sessionKey(sessionID))
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Service) save(ctx context.Context, session *Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	return s.redis.Set(ctx, s.sessionKey(session.ID), data, s.ttl)
}

func (s *Service) sessionKey(sessionID string) string {
	return fmt.Sprintf("session:%s", sessionID)
}
