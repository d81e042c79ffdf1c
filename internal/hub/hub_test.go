package hub

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestHub(bufSize int) *Hub {
	return NewHub(NewTokenIssuer("test-secret", time.Minute), bufSize, zap.NewNop())
}

func decode(t *testing.T, raw []byte) (string, int64) {
	t.Helper()
	var msg struct {
		Type    string `json:"type"`
		Payload struct {
			Count int64 `json:"count"`
		} `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(raw, &msg))
	return msg.Type, msg.Payload.Count
}

func countEvent(n int64) Event {
	return Event{Type: EventPendingCountChanged, Payload: PendingCountPayload{Count: n}}
}

func TestPush_FIFOPerSubscription(t *testing.T) {
	h := newTestHub(8)
	sub := h.Subscribe(1)

	for i := int64(1); i <= 5; i++ {
		assert.Equal(t, 1, h.Push(1, countEvent(i)))
	}

	for i := int64(1); i <= 5; i++ {
		typ, count := decode(t, <-sub.Messages())
		assert.Equal(t, EventPendingCountChanged, typ)
		assert.Equal(t, i, count)
	}
}

func TestPush_AllSubscriptionsOfUser(t *testing.T) {
	h := newTestHub(4)
	tab1 := h.Subscribe(1)
	tab2 := h.Subscribe(1)
	other := h.Subscribe(2)

	assert.Equal(t, 2, h.Push(1, countEvent(3)))

	_, c1 := decode(t, <-tab1.Messages())
	_, c2 := decode(t, <-tab2.Messages())
	assert.EqualValues(t, 3, c1)
	assert.EqualValues(t, 3, c2)
	assert.Len(t, other.Messages(), 0)
}

func TestPush_NoSubscriptionDrops(t *testing.T) {
	h := newTestHub(4)
	assert.Equal(t, 0, h.Push(99, countEvent(1)))
}

func TestPush_FullSubscriptionIsDropped(t *testing.T) {
	h := newTestHub(1)
	slow := h.Subscribe(1)
	fast := h.Subscribe(1)

	assert.Equal(t, 2, h.Push(1, countEvent(1)))
	<-fast.Messages()

	// slow still holds the first message, so it is dropped rather than awaited.
	assert.Equal(t, 1, h.Push(1, countEvent(2)))
	assert.Equal(t, 1, h.Subscribers(1))

	_, first := decode(t, <-slow.Messages())
	assert.EqualValues(t, 1, first)
	_, open := <-slow.Messages()
	assert.False(t, open, "dropped subscription must be closed")
}

func TestClose_Idempotent(t *testing.T) {
	h := newTestHub(4)
	sub := h.Subscribe(1)

	h.Close(sub)
	h.Close(sub)

	_, open := <-sub.Messages()
	assert.False(t, open)
	assert.Equal(t, 0, h.Subscribers(1))
	assert.Equal(t, 0, h.Push(1, countEvent(1)))
}

func TestOpen_Tokens(t *testing.T) {
	h := newTestHub(4)

	token, expiresAt, err := h.tokens.Issue(5)
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	sub, err := h.Open(token)
	require.NoError(t, err)
	assert.EqualValues(t, 5, sub.UserID)
	assert.Equal(t, 1, h.Subscribers(5))

	_, err = h.Open("garbage")
	assert.ErrorIs(t, err, ErrUnauthorized)

	expired, _, err := NewTokenIssuer("test-secret", -time.Second).Issue(5)
	require.NoError(t, err)
	_, err = h.Open(expired)
	assert.ErrorIs(t, err, ErrUnauthorized)

	foreign, _, err := NewTokenIssuer("other-secret", time.Minute).Issue(5)
	require.NoError(t, err)
	_, err = h.Open(foreign)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestShutdown_ClosesEverything(t *testing.T) {
	h := newTestHub(4)
	a := h.Subscribe(1)
	b := h.Subscribe(2)

	h.Shutdown()

	_, openA := <-a.Messages()
	_, openB := <-b.Messages()
	assert.False(t, openA)
	assert.False(t, openB)
	h.Close(a)
}

func TestRelay_DeliverForwardsToLocalHub(t *testing.T) {
	h := newTestHub(4)
	sub := h.Subscribe(3)
	relay := NewRedisRelay(nil, h, zap.NewNop())

	payload, err := encodeEnvelope(3, countEvent(4))
	require.NoError(t, err)
	relay.deliver(payload)
	relay.deliver("{not json")
	relay.deliver(`{"user_id":0,"event":{}}`)

	typ, count := decode(t, <-sub.Messages())
	assert.Equal(t, EventPendingCountChanged, typ)
	assert.EqualValues(t, 4, count)
	assert.Len(t, sub.Messages(), 0)
}
