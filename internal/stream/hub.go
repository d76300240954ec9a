package stream

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Durgaprasad40/mira-nearby/internal/nearby"
	"github.com/Durgaprasad40/mira-nearby/internal/privacy"
	"github.com/Durgaprasad40/mira-nearby/internal/storage"
	"github.com/Durgaprasad40/mira-nearby/pkg/logger"
)

// NearbyQuerier produces a viewer's current nearby snapshot.
type NearbyQuerier interface {
	Query(ctx context.Context, viewerID string, lat, lon float64, sessionSalt string, zoomBucket int, now time.Time) ([]nearby.User, error)
}

// AreaResolver maps a coordinate to its pub/sub channel.
type AreaResolver interface {
	AreaChannel(lat, lon float64) string
}

type viewportUpdate struct {
	client *Client
	msg    IncomingMessage
}

// Hub tracks live connections and pushes a fresh nearby snapshot to every
// viewer in an area when someone publishes there. Area fan-out rides the
// same Redis channels the location service publishes to, so multiple server
// instances stay in sync.
type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	viewport   chan viewportUpdate
	refresh    chan string

	redis  storage.RedisClient
	nearby NearbyQuerier
	areas  AreaResolver
	logger logger.Logger

	subs map[string]*areaSub
	mu   sync.RWMutex
	ctx  context.Context
}

type areaSub struct {
	pubsub *redis.PubSub
	count  int
}

func NewHub(ctx context.Context, redisClient storage.RedisClient, nearbyService NearbyQuerier, areas AreaResolver, log logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		viewport:   make(chan viewportUpdate, 64),
		refresh:    make(chan string, 64),
		redis:      redisClient,
		nearby:     nearbyService,
		areas:      areas,
		logger:     log,
		subs:       make(map[string]*areaSub),
		ctx:        ctx,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)
		case client := <-h.unregister:
			h.unregisterClient(client)
		case update := <-h.viewport:
			h.handleViewport(update)
		case area := <-h.refresh:
			h.refreshArea(area)
		case <-h.ctx.Done():
			h.shutdown()
			return
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.sessionID] = client
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.sessionID]; ok {
		delete(h.clients, client.sessionID)
		close(client.send)
		h.leaveAreaLocked(client.area)
	}
}

// handleViewport moves the client to a new viewport, adjusting its area
// subscription, and answers with an immediate snapshot.
func (h *Hub) handleViewport(update viewportUpdate) {
	client := update.client
	msg := update.msg

	newArea := h.areas.AreaChannel(msg.Latitude, msg.Longitude)

	h.mu.Lock()
	if client.area != newArea {
		h.leaveAreaLocked(client.area)
		h.joinAreaLocked(newArea)
		client.area = newArea
	}
	client.latitude = msg.Latitude
	client.longitude = msg.Longitude
	client.zoomBucket = privacy.ZoomBucket(msg.Span)
	h.mu.Unlock()

	h.pushSnapshot(client)
}

// refreshArea pushes fresh snapshots to every client watching an area.
func (h *Hub) refreshArea(area string) {
	h.mu.RLock()
	targets := make([]*Client, 0, 4)
	for _, client := range h.clients {
		if client.area == area {
			targets = append(targets, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range targets {
		h.pushSnapshot(client)
	}
}

func (h *Hub) pushSnapshot(client *Client) {
	users, err := h.nearby.Query(h.ctx, client.userID, client.latitude, client.longitude, client.salt, client.zoomBucket, time.Now())
	if err != nil {
		h.logger.Error("failed to build nearby snapshot", "session_id", client.sessionID, "error", err)
		client.SendError("Failed to load nearby users", "INTERNAL_ERROR")
		return
	}

	select {
	case client.send <- NewNearbyMessage(users):
	default:
		// Slow consumer. Drop the snapshot, the next refresh catches up.
	}
}

// joinAreaLocked subscribes to an area channel on first interest.
func (h *Hub) joinAreaLocked(area string) {
	if area == "" {
		return
	}
	if sub, ok := h.subs[area]; ok {
		sub.count++
		return
	}

	pubsub := h.redis.Subscribe(h.ctx, area)
	h.subs[area] = &areaSub{pubsub: pubsub, count: 1}

	go func() {
		ch := pubsub.Channel()
		for {
			select {
			case <-h.ctx.Done():
				return
			case m, ok := <-ch:
				if !ok {
					return
				}
				select {
				case h.refresh <- m.Channel:
				default:
				}
			}
		}
	}()
}

// leaveAreaLocked drops an area subscription when the last client leaves.
func (h *Hub) leaveAreaLocked(area string) {
	if area == "" {
		return
	}
	sub, ok := h.subs[area]
	if !ok {
		return
	}
	sub.count--
	if sub.count <= 0 {
		sub.pubsub.Close()
		delete(h.subs, area)
	}
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.clients {
		close(client.send)
	}
	h.clients = make(map[string]*Client)

	for area, sub := range h.subs {
		sub.pubsub.Close()
		delete(h.subs, area)
	}
}
