package stream

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Hub fans out vehicle events to websocket clients. With redis configured
// every broadcast is mirrored to other instances through pub/sub.
type Hub struct {
	redis   *redis.Client
	origin  string
	clients map[string]map[*Client]struct{}
	mu      sync.RWMutex
	cancel  context.CancelFunc
}

type Client struct {
	VehicleID string
	Send      chan []byte
}

type envelope struct {
	Origin  string `json:"origin"`
	Payload []byte `json:"payload"`
}

func NewHub(redisClient *redis.Client) *Hub {
	h := &Hub{
		redis:   redisClient,
		origin:  uuid.NewString(),
		clients: map[string]map[*Client]struct{}{},
		cancel:  func() {},
	}

	if redisClient != nil {
		ctx, cancel := context.WithCancel(context.Background())
		h.cancel = cancel
		pubsub := redisClient.PSubscribe(ctx, redisChannel("*"))
		go h.forward(ctx, pubsub)
	}
	return h
}

// Close stops the redis subscription.
func (h *Hub) Close() {
	h.cancel()
}

func (h *Hub) Register(vehicleID string) *Client {
	client := &Client{
		VehicleID: vehicleID,
		Send:      make(chan []byte, 64),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[vehicleID] == nil {
		h.clients[vehicleID] = map[*Client]struct{}{}
	}
	h.clients[vehicleID][client] = struct{}{}
	return client
}

// Unregister removes the client and closes its Send channel. Calling it
// twice is a no-op.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	vehicleClients := h.clients[client.VehicleID]
	if _, ok := vehicleClients[client]; !ok {
		return
	}
	delete(vehicleClients, client)
	if len(vehicleClients) == 0 {
		delete(h.clients, client.VehicleID)
	}
	close(client.Send)
}

func (h *Hub) Broadcast(vehicleID string, payload []byte) {
	h.deliver(vehicleID, payload)

	if h.redis != nil {
		msg, _ := json.Marshal(envelope{Origin: h.origin, Payload: payload})
		err := h.redis.Publish(context.Background(), redisChannel(vehicleID), msg).Err()
		if err != nil {
			log.Printf("redis publish error: %v", err)
		}
	}
}

// deliver drops the payload for clients whose buffer is full.
func (h *Hub) deliver(vehicleID string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients[vehicleID] {
		select {
		case client.Send <- payload:
		default:
		}
	}
}

func (h *Hub) forward(ctx context.Context, pubsub *redis.PubSub) {
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				log.Printf("redis message on %s: %v", msg.Channel, err)
				continue
			}
			if env.Origin == h.origin {
				continue
			}
			h.deliver(vehicleIDFromChannel(msg.Channel), env.Payload)
		}
	}
}

func redisChannel(vehicleID string) string {
	return "tracking:" + vehicleID + ":broadcast"
}

func vehicleIDFromChannel(ch string) string {
	// tracking:{vehicle}:broadcast
	const prefix = "tracking:"
	const suffix = ":broadcast"
	if len(ch) <= len(prefix)+len(suffix) || !strings.HasPrefix(ch, prefix) || !strings.HasSuffix(ch, suffix) {
		return ""
	}
	return ch[len(prefix) : len(ch)-len(suffix)]
}
