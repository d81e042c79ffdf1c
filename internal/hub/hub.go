package hub

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	EventPendingCountChanged = "pending_count_changed"
	EventFriendAccepted      = "friend_accepted"
)

// ErrUnauthorized is returned by Open for an invalid or expired token.
var ErrUnauthorized = errors.New("hub: invalid or expired subscription token")

// Event represents a real-time event to be sent to clients.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// PendingCountPayload is the payload of a pending_count_changed event.
type PendingCountPayload struct {
	Count int64 `json:"count"`
}

// FriendSummary is the public profile of the counterpart in a relationship.
type FriendSummary struct {
	ID     uint   `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

// FriendAcceptedPayload is the payload of a friend_accepted event.
type FriendAcceptedPayload struct {
	RelationshipID string        `json:"relationship_id"`
	Friend         FriendSummary `json:"friend"`
}

// Subscription is one live client connection (a browser tab, a socket) of a user.
// Messages are delivered in the order Push was called.
type Subscription struct {
	ID     string
	UserID uint

	send chan []byte
}

// Messages returns the stream of encoded events. It is closed when the
// subscription is closed or dropped by the hub.
func (s *Subscription) Messages() <-chan []byte {
	return s.send
}

// Hub maps each user to their live subscriptions.
type Hub struct {
	mu      sync.Mutex
	users   map[uint]map[*Subscription]struct{}
	tokens  *TokenIssuer
	bufSize int
	logger  *zap.Logger
}

// NewHub creates a new Hub. bufSize is the per-subscription queue length.
func NewHub(tokens *TokenIssuer, bufSize int, logger *zap.Logger) *Hub {
	if bufSize <= 0 {
		bufSize = 16
	}
	return &Hub{
		users:   make(map[uint]map[*Subscription]struct{}),
		tokens:  tokens,
		bufSize: bufSize,
		logger:  logger,
	}
}

// Open redeems a subscription token and registers a new subscription for its user.
func (h *Hub) Open(token string) (*Subscription, error) {
	if h.tokens == nil {
		return nil, ErrUnauthorized
	}
	userID, err := h.tokens.Verify(token)
	if err != nil {
		return nil, ErrUnauthorized
	}
	return h.Subscribe(userID), nil
}

// Subscribe registers a subscription for an already authenticated user.
func (h *Hub) Subscribe(userID uint) *Subscription {
	sub := &Subscription{
		ID:     uuid.NewString(),
		UserID: userID,
		send:   make(chan []byte, h.bufSize),
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.users[userID]; !ok {
		h.users[userID] = make(map[*Subscription]struct{})
	}
	h.users[userID][sub] = struct{}{}
	return sub
}

// Close removes a subscription and closes its stream. Closing twice is a no-op.
func (h *Hub) Close(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(sub)
}

func (h *Hub) removeLocked(sub *Subscription) {
	subs, ok := h.users[sub.UserID]
	if !ok {
		return
	}
	if _, ok := subs[sub]; !ok {
		return
	}
	delete(subs, sub)
	close(sub.send)
	if len(subs) == 0 {
		delete(h.users, sub.UserID)
	}
}

// Push delivers event to every subscription of userID and returns how many
// received it. It never blocks: a subscription whose queue is full is dropped,
// and the client falls back to polling until it reconnects.
func (h *Hub) Push(userID uint, event Event) int {
	message, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("hub: encode event", zap.String("type", event.Type), zap.Error(err))
		return 0
	}
	return h.PushRaw(userID, message)
}

// PushRaw is Push for an already encoded event.
func (h *Hub) PushRaw(userID uint, message []byte) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	delivered := 0
	for sub := range h.users[userID] {
		select {
		case sub.send <- message:
			delivered++
		default:
			h.logger.Warn("hub: dropping slow subscription",
				zap.Uint("user_id", userID), zap.String("subscription_id", sub.ID))
			h.removeLocked(sub)
		}
	}
	return delivered
}

// Publish implements the aggregator's publisher on the local hub.
func (h *Hub) Publish(_ context.Context, userID uint, event Event) error {
	h.Push(userID, event)
	return nil
}

// Subscribers returns the number of live subscriptions for userID.
func (h *Hub) Subscribers(userID uint) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.users[userID])
}

// Shutdown closes every subscription.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, subs := range h.users {
		for sub := range subs {
			close(sub.send)
		}
	}
	h.users = make(map[uint]map[*Subscription]struct{})
}
