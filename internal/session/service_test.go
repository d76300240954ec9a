package session

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Durgaprasad40/mira-nearby/internal/storage"
	apperrors "github.com/Durgaprasad40/mira-nearby/pkg/errors"
)

type fakeRedis struct {
	storage.RedisClient
	values map[string]string
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{values: make(map[string]string)}
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	switch v := value.(type) {
	case []byte:
		f.values[key] = string(v)
	case string:
		f.values[key] = v
	}
	return nil
}

func (f *fakeRedis) Get(ctx context.Context, key string) (string, error) {
	value, ok := f.values[key]
	if !ok {
		return "", redis.Nil
	}
	return value, nil
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.values, key)
	}
	return nil
}

func (f *fakeRedis) Exists(ctx context.Context, keys ...string) (int64, error) {
	var count int64
	for _, key := range keys {
		if _, ok := f.values[key]; ok {
			count++
		}
	}
	return count, nil
}

func TestCreate_MintsUniqueSalts(t *testing.T) {
	svc := NewService(newFakeRedis(), 30*time.Minute)

	first, err := svc.Create(context.Background(), "user-1", "10.0.0.1")
	require.NoError(t, err)
	second, err := svc.Create(context.Background(), "user-1", "10.0.0.1")
	require.NoError(t, err)

	assert.NotEmpty(t, first.Salt)
	assert.NotEqual(t, first.ID, second.ID)
	assert.NotEqual(t, first.Salt, second.Salt, "each session gets its own salt")
}

func TestGet_RoundTrips(t *testing.T) {
	svc := NewService(newFakeRedis(), 30*time.Minute)

	created, err := svc.Create(context.Background(), "user-1", "10.0.0.1")
	require.NoError(t, err)

	loaded, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, loaded.ID)
	assert.Equal(t, "user-1", loaded.UserID)
	assert.Equal(t, created.Salt, loaded.Salt)
}

func TestGet_UnknownSession(t *testing.T) {
	svc := NewService(newFakeRedis(), 30*time.Minute)

	_, err := svc.Get(context.Background(), "no-such-session")
	assert.ErrorIs(t, err, apperrors.ErrSessionNotFound)
}

func TestTouch_KeepsSalt(t *testing.T) {
	svc := NewService(newFakeRedis(), 30*time.Minute)

	created, err := svc.Create(context.Background(), "user-1", "10.0.0.1")
	require.NoError(t, err)

	require.NoError(t, svc.Touch(context.Background(), created.ID))

	loaded, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Salt, loaded.Salt)
}

func TestDelete(t *testing.T) {
	svc := NewService(newFakeRedis(), 30*time.Minute)

	created, err := svc.Create(context.Background(), "user-1", "10.0.0.1")
	require.NoError(t, err)

	exists, err := svc.Exists(context.Background(), created.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, svc.Delete(context.Background(), created.ID))

	exists, err = svc.Exists(context.Background(), created.ID)
	require.NoError(t, err)
	assert.False(t, exists)
}
