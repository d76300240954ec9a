package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Durgaprasad40/mira-nearby/internal/config"
	"github.com/Durgaprasad40/mira-nearby/pkg/logger"
)

func testWorker(gatewayURL string, maxRetries int) *Worker {
	return NewWorker(nil, config.PushConfig{
		GatewayURL: gatewayURL,
		Secret:     "test-secret",
		Timeout:    2 * time.Second,
		MaxRetries: maxRetries,
	}, logger.NewLogger("test"))
}

func TestDeliver_SignsPayload(t *testing.T) {
	var gotSignature string
	var gotBody []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSignature = r.Header.Get("X-Signature")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	w := testWorker(srv.URL, 0)
	n := &Notification{
		ID:      "n-1",
		UserID:  "user-1",
		Title:   "Crossed paths",
		Body:    "Someone crossed your path recently",
		Payload: map[string]string{},
	}

	require.NoError(t, w.deliver(context.Background(), n))
	assert.Equal(t, Sign(gotBody, "test-secret"), gotSignature)

	var decoded Notification
	require.NoError(t, json.Unmarshal(gotBody, &decoded))
	assert.Equal(t, "user-1", decoded.UserID)
	assert.Empty(t, decoded.Payload)
}

func TestDeliver_RetriesOnFailure(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	w := testWorker(srv.URL, 3)
	err := w.deliver(context.Background(), &Notification{ID: "n-2", UserID: "user-1"})
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestDeliver_GivesUpAfterMaxRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	w := testWorker(srv.URL, 1)
	err := w.deliver(context.Background(), &Notification{ID: "n-3", UserID: "user-1"})
	assert.Error(t, err)
}
