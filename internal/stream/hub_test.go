package stream

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Durgaprasad40/mira-nearby/internal/nearby"
	"github.com/Durgaprasad40/mira-nearby/pkg/logger"
)

type fakeNearby struct {
	users []nearby.User
}

func (f *fakeNearby) Query(ctx context.Context, viewerID string, lat, lon float64, sessionSalt string, zoomBucket int, now time.Time) ([]nearby.User, error) {
	return f.users, nil
}

type fakeAreas struct{}

func (f *fakeAreas) AreaChannel(lat, lon float64) string { return "area:test" }

func newTestHub(ctx context.Context) *Hub {
	return NewHub(ctx, nil, &fakeNearby{}, &fakeAreas{}, logger.NewLogger("test"))
}

func TestHub_RegisterAndUnregister(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := newTestHub(ctx)
	go hub.Run()

	client := NewClient(hub, nil, "sess-1", "user-1", "salt-1")
	hub.register <- client
	hub.unregister <- client

	// The hub closes the send channel when it lets go of the client.
	select {
	case _, ok := <-client.send:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("send channel was not closed")
	}
}

func TestHub_UnregisterAfterShutdownDoesNotBlock(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := newTestHub(ctx)

	done := make(chan struct{})
	go func() {
		hub.Run()
		close(done)
	}()

	client := NewClient(hub, nil, "sess-1", "user-1", "salt-1")
	hub.register <- client

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("hub did not shut down")
	}

	// A read pump tearing down after shutdown must not hang on the hub.
	returned := make(chan struct{})
	go func() {
		client.signalUnregister()
		close(returned)
	}()

	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("signalUnregister blocked after hub shutdown")
	}
}

func TestHub_ShutdownClosesClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := newTestHub(ctx)

	done := make(chan struct{})
	go func() {
		hub.Run()
		close(done)
	}()

	client := NewClient(hub, nil, "sess-1", "user-1", "salt-1")
	hub.register <- client
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("hub did not shut down")
	}

	_, ok := <-client.send
	require.False(t, ok)
}
