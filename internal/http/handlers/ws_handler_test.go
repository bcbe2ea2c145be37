package handlers

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/homelink/marketplace/internal/config"
	"github.com/homelink/marketplace/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeConn struct {
	mu   sync.Mutex
	msgs [][]byte
}

func (c *fakeConn) WriteMessage(_ int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, data)
	return nil
}

func (c *fakeConn) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.msgs)
}

// blockingConn holds every write until release is closed.
type blockingConn struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (c *blockingConn) WriteMessage(int, []byte) error {
	c.once.Do(func() { close(c.started) })
	<-c.release
	return nil
}

func TestWSHub_SlowClientDoesNotBlockRegistration(t *testing.T) {
	hub := NewWSHub(&config.Config{}, nil, zap.NewNop())
	slowUser := uuid.New()
	slow := &blockingConn{started: make(chan struct{}), release: make(chan struct{})}
	hub.register(slowUser, slow)
	defer close(slow.release)

	go hub.SendToUser(slowUser, events.Event{Type: events.EventDealCreated})

	select {
	case <-slow.started:
	case <-time.After(time.Second):
		t.Fatal("write to slow client never started")
	}

	done := make(chan struct{})
	go func() {
		other := &fakeConn{}
		hub.register(uuid.New(), other)
		hub.unregister(slowUser, slow)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("register/unregister blocked by an in-flight write")
	}
}

func TestWSHub_DispatchToParticipants(t *testing.T) {
	hub := NewWSHub(&config.Config{}, nil, zap.NewNop())

	buyer, seller, other := uuid.New(), uuid.New(), uuid.New()
	buyerConn, sellerConn, otherConn := &fakeConn{}, &fakeConn{}, &fakeConn{}
	hub.register(buyer, buyerConn)
	hub.register(seller, sellerConn)
	hub.register(other, otherConn)

	event := events.Event{
		Type: events.EventDealCreated,
		Payload: map[string]any{
			"deal_id":   uuid.NewString(),
			"buyer_id":  buyer.String(),
			"seller_id": seller.String(),
		},
	}
	hub.dispatch(event)

	assert.Equal(t, 1, buyerConn.count())
	assert.Equal(t, 1, sellerConn.count())
	assert.Equal(t, 0, otherConn.count())

	var got events.Event
	require.NoError(t, json.Unmarshal(buyerConn.msgs[0], &got))
	assert.Equal(t, events.EventDealCreated, got.Type)
	assert.Equal(t, event.Payload["deal_id"], got.Payload["deal_id"])
}

func TestWSHub_Unregister(t *testing.T) {
	hub := NewWSHub(&config.Config{}, nil, zap.NewNop())
	user := uuid.New()
	first, second := &fakeConn{}, &fakeConn{}
	hub.register(user, first)
	hub.register(user, second)

	hub.unregister(user, first)
	hub.SendToUser(user, events.Event{Type: events.EventDealCreated})
	assert.Equal(t, 0, first.count())
	assert.Equal(t, 1, second.count())

	hub.unregister(user, second)
	hub.mu.RLock()
	_, ok := hub.connections[user]
	hub.mu.RUnlock()
	assert.False(t, ok, "user entry should be dropped with its last connection")
}

func TestWSHub_IgnoresMalformedParticipants(t *testing.T) {
	hub := NewWSHub(&config.Config{}, nil, zap.NewNop())
	user := uuid.New()
	conn := &fakeConn{}
	hub.register(user, conn)

	hub.dispatch(events.Event{Type: events.EventDealCreated, Payload: map[string]any{
		"buyer_id":  "not-a-uuid",
		"seller_id": user.String(),
	}})
	hub.dispatch(events.Event{Type: events.EventDealCreated, Payload: map[string]any{
		"buyer_id":  user.String(),
		"seller_id": user.String(),
	}})

	assert.Equal(t, 2, conn.count(), "one message per event even when buyer equals seller")
}
