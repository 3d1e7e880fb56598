package realtime

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// receive pops one queued payload from the client without blocking.
func receive(t *testing.T, client *Client) Event {
	t.Helper()
	select {
	case payload := <-client.send:
		var event Event
		require.NoError(t, json.Unmarshal(payload, &event))
		return event
	default:
		t.Fatal("no event queued")
		return Event{}
	}
}

func TestRegisterAndPushToUser(t *testing.T) {
	hub := NewHub()
	client := NewClient(hub, 1, nil)

	assert.False(t, hub.PushToUser(1, NewErrorEvent("nobody home")))

	hub.Register(client, nil)
	assert.True(t, hub.IsOnline(1))
	assert.True(t, hub.PushToUser(1, NewConversationUpdatedEvent(uuid.New())))

	event := receive(t, client)
	assert.Equal(t, EventConversationUpdated, event.Event)
}

func TestRegisterLastConnectWins(t *testing.T) {
	hub := NewHub()
	conversationID := uuid.New()

	first := NewClient(hub, 1, nil)
	hub.Register(first, []uuid.UUID{conversationID})

	second := NewClient(hub, 1, nil)
	hub.Register(second, []uuid.UUID{conversationID})

	// The displaced connection is torn down and stops accepting events.
	select {
	case <-first.done:
	default:
		t.Fatal("displaced connection was not closed")
	}
	assert.False(t, first.trySend([]byte("{}")))

	hub.PushToConversation(conversationID, NewConversationUpdatedEvent(conversationID))
	assert.Len(t, second.send, 1)
	assert.Empty(t, first.send)

	// The stale connection's own teardown must not evict the newer one.
	hub.Unregister(first)
	assert.True(t, hub.IsOnline(1))
	assert.True(t, hub.PushToUser(1, NewErrorEvent("still here")))

	hub.Unregister(second)
	assert.False(t, hub.IsOnline(1))
}

func TestConversationChannels(t *testing.T) {
	hub := NewHub()
	conversationID := uuid.New()

	member := NewClient(hub, 1, nil)
	other := NewClient(hub, 2, nil)
	hub.Register(member, []uuid.UUID{conversationID})
	hub.Register(other, nil)

	hub.PushToConversation(conversationID, NewConversationUpdatedEvent(conversationID))
	assert.Len(t, member.send, 1)
	assert.Empty(t, other.send)

	// Subscribing an online user joins them to the channel.
	hub.Subscribe(conversationID, 2)
	hub.PushToConversation(conversationID, NewConversationUpdatedEvent(conversationID))
	assert.Len(t, member.send, 2)
	assert.Len(t, other.send, 1)

	hub.Unsubscribe(conversationID, 1)
	hub.PushToConversation(conversationID, NewConversationUpdatedEvent(conversationID))
	assert.Len(t, member.send, 2)
	assert.Len(t, other.send, 2)

	// Subscribing someone with no live connection is a no-op.
	hub.Subscribe(conversationID, 3)
	hub.PushToConversation(conversationID, NewConversationUpdatedEvent(conversationID))
	assert.Len(t, other.send, 3)
}

func TestUnregisterClearsSubscriptions(t *testing.T) {
	hub := NewHub()
	conversationID := uuid.New()

	client := NewClient(hub, 1, nil)
	hub.Register(client, []uuid.UUID{conversationID})
	hub.Unregister(client)

	assert.False(t, hub.IsOnline(1))
	hub.PushToConversation(conversationID, NewConversationUpdatedEvent(conversationID))
	assert.Empty(t, client.send)
	assert.Empty(t, hub.channels)
}

func TestPushToUserDropsWhenBufferFull(t *testing.T) {
	hub := NewHub()
	client := NewClient(hub, 1, nil)
	hub.Register(client, nil)

	event := NewErrorEvent("flood")
	for i := 0; i < sendBufferSize; i++ {
		require.True(t, hub.PushToUser(1, event))
	}
	assert.False(t, hub.PushToUser(1, event))
	assert.Len(t, client.send, sendBufferSize)
}

// Pushes can hold a client snapshot after the hub lock is released, so a
// reconnect-driven teardown must never leave them sending into a closed
// channel.
func TestConcurrentPushesDuringReconnect(t *testing.T) {
	hub := NewHub()
	conversationID := uuid.New()
	event := NewConversationUpdatedEvent(conversationID)

	stop := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					hub.PushToConversation(conversationID, event)
					hub.PushToUser(1, event)
				}
			}
		}()
	}

	for i := 0; i < 200; i++ {
		client := NewClient(hub, 1, nil)
		hub.Register(client, []uuid.UUID{conversationID})
		hub.Unregister(client)
	}

	close(stop)
	wg.Wait()
	assert.False(t, hub.IsOnline(1))
}

func TestOnlineUserIDsSorted(t *testing.T) {
	hub := NewHub()
	for _, id := range []uint{5, 1, 3} {
		hub.Register(NewClient(hub, id, nil), nil)
	}
	assert.Equal(t, []uint{1, 3, 5}, hub.OnlineUserIDs())
}
