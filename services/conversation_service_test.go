package services

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apiError "github.com/mercatohq/mercato/errors"
	"github.com/mercatohq/mercato/models"
	"github.com/mercatohq/mercato/realtime"
)

func apiStatus(t *testing.T, err error) int {
	t.Helper()
	var e *apiError.Error
	require.ErrorAs(t, err, &e)
	return e.Status
}

func TestCreateConversationDirectIsIdempotent(t *testing.T) {
	h := newHarness()
	h.store.addUser(1, "alice")
	h.store.addUser(2, "bob")

	first, err := h.conversations.CreateConversation(1, &models.CreateConversationRequest{
		ParticipantIDs: []uint{2},
	})
	require.NoError(t, err)
	require.Len(t, first.Memberships, 2)

	// Same pair, opposite direction: must resolve to the existing conversation.
	second, err := h.conversations.CreateConversation(2, &models.CreateConversationRequest{
		ParticipantIDs: []uint{1},
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, h.store.conversations, 1)
}

func TestCreateConversationDirectRequiresExactlyTwoMembers(t *testing.T) {
	h := newHarness()
	h.store.addUser(1, "alice")
	h.store.addUser(2, "bob")
	h.store.addUser(3, "carol")

	_, err := h.conversations.CreateConversation(1, &models.CreateConversationRequest{
		ParticipantIDs: []uint{2, 3},
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, apiStatus(t, err))

	// Creator listed as their own participant collapses to a single member.
	_, err = h.conversations.CreateConversation(1, &models.CreateConversationRequest{
		ParticipantIDs: []uint{1},
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, apiStatus(t, err))
}

func TestCreateConversationUnknownParticipant(t *testing.T) {
	h := newHarness()
	h.store.addUser(1, "alice")

	_, err := h.conversations.CreateConversation(1, &models.CreateConversationRequest{
		ParticipantIDs: []uint{42},
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, apiStatus(t, err))
}

func TestCreateConversationGroup(t *testing.T) {
	h := newHarness()
	h.store.addUser(1, "alice")
	h.store.addUser(2, "bob")
	h.store.addUser(3, "carol")

	title := "weekend plans"
	conversation, err := h.conversations.CreateConversation(1, &models.CreateConversationRequest{
		ParticipantIDs: []uint{2, 3, 2},
		IsGroup:        true,
		Title:          &title,
	})
	require.NoError(t, err)
	assert.True(t, conversation.IsGroup)
	require.NotNil(t, conversation.Title)
	assert.Equal(t, title, *conversation.Title)
	assert.Len(t, conversation.Memberships, 3)

	// A second identical group is a new conversation, dedup is direct-only.
	again, err := h.conversations.CreateConversation(1, &models.CreateConversationRequest{
		ParticipantIDs: []uint{2, 3},
		IsGroup:        true,
		Title:          &title,
	})
	require.NoError(t, err)
	assert.NotEqual(t, conversation.ID, again.ID)
}

func TestCreateConversationSubscribesMembers(t *testing.T) {
	h := newHarness()
	h.store.addUser(1, "alice")
	h.store.addUser(2, "bob")
	h.store.addUser(3, "carol")

	direct, err := h.conversations.CreateConversation(1, &models.CreateConversationRequest{
		ParticipantIDs: []uint{2},
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{1, 2}, h.pusher.subscriptions[direct.ID])

	// Resolving to the existing conversation does not re-subscribe.
	_, err = h.conversations.CreateConversation(2, &models.CreateConversationRequest{
		ParticipantIDs: []uint{1},
	})
	require.NoError(t, err)
	assert.Len(t, h.pusher.subscriptions[direct.ID], 2)

	group, err := h.conversations.CreateConversation(1, &models.CreateConversationRequest{
		ParticipantIDs: []uint{2, 3},
		IsGroup:        true,
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{1, 2, 3}, h.pusher.subscriptions[group.ID])
}

func TestJoinConversationIdempotent(t *testing.T) {
	h := newHarness()
	h.store.addUser(1, "alice")
	h.store.addUser(2, "bob")
	h.store.addUser(3, "carol")

	conversation, err := h.conversations.CreateConversation(1, &models.CreateConversationRequest{
		ParticipantIDs: []uint{2},
		IsGroup:        true,
	})
	require.NoError(t, err)

	membership, err := h.conversations.JoinConversation(conversation.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, uint(3), membership.UserID)
	assert.Equal(t, []uint{3}, h.pusher.subscriptions[conversation.ID])

	events := h.pusher.conversationEvents[conversation.ID]
	require.Len(t, events, 1)
	assert.Equal(t, realtime.EventUserJoinedConversation, events[0].Event)

	again, err := h.conversations.JoinConversation(conversation.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, membership.JoinedAt, again.JoinedAt)
	// No second join announcement.
	assert.Len(t, h.pusher.conversationEvents[conversation.ID], 1)
}

func TestJoinConversationNotFound(t *testing.T) {
	h := newHarness()
	h.store.addUser(1, "alice")

	_, err := h.conversations.JoinConversation(uuid.New(), 1)
	require.ErrorIs(t, err, apiError.ErrNotFound)
}

func TestGetConversationMembershipGate(t *testing.T) {
	h := newHarness()
	h.store.addUser(1, "alice")
	h.store.addUser(2, "bob")
	h.store.addUser(3, "carol")

	conversation, err := h.conversations.CreateConversation(1, &models.CreateConversationRequest{
		ParticipantIDs: []uint{2},
	})
	require.NoError(t, err)

	_, err = h.conversations.GetConversation(conversation.ID, 3)
	require.ErrorIs(t, err, apiError.ErrForbidden)

	_, err = h.conversations.GetConversation(uuid.New(), 1)
	require.ErrorIs(t, err, apiError.ErrNotFound)

	view, err := h.conversations.GetConversation(conversation.ID, 2)
	require.NoError(t, err)
	assert.Len(t, view.Participants, 2)
	assert.Nil(t, view.LastMessage)
	assert.Zero(t, view.UnreadCount)
}

func TestListUserConversationsRecentFirstWithUnread(t *testing.T) {
	h := newHarness()
	h.store.addUser(1, "alice")
	h.store.addUser(2, "bob")
	h.store.addUser(3, "carol")

	withBob, err := h.conversations.CreateConversation(1, &models.CreateConversationRequest{
		ParticipantIDs: []uint{2},
	})
	require.NoError(t, err)
	withCarol, err := h.conversations.CreateConversation(1, &models.CreateConversationRequest{
		ParticipantIDs: []uint{3},
	})
	require.NoError(t, err)

	_, err = h.messages.SendMessage(withCarol.ID, 3, "first", models.MessageTypeText, nil)
	require.NoError(t, err)
	// Bob's later message bumps that conversation to the top.
	_, err = h.messages.SendMessage(withBob.ID, 2, "hello", models.MessageTypeText, nil)
	require.NoError(t, err)
	_, err = h.messages.SendMessage(withBob.ID, 2, "anyone there", models.MessageTypeText, nil)
	require.NoError(t, err)

	views, err := h.conversations.ListUserConversations(1)
	require.NoError(t, err)
	require.Len(t, views, 2)

	assert.Equal(t, withBob.ID, views[0].ID)
	assert.Equal(t, int64(2), views[0].UnreadCount)
	require.NotNil(t, views[0].LastMessage)
	assert.Equal(t, "anyone there", views[0].LastMessage.Content)
	assert.False(t, views[0].LastMessage.IsRead)

	assert.Equal(t, withCarol.ID, views[1].ID)
	assert.Equal(t, int64(1), views[1].UnreadCount)
}
