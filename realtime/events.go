package realtime

import (
	"github.com/google/uuid"
	"github.com/mercatohq/mercato/models"
)

// Event names pushed to connected clients.
const (
	EventReceiveMessage         = "receiveMessage"
	EventConversationUpdated    = "conversationUpdated"
	EventUserJoinedConversation = "userJoinedConversation"
	EventMessageRead            = "messageRead"
	EventNotification           = "notification"
	EventError                  = "error"
)

// Event is the single tagged-variant envelope for everything pushed over a
// live connection.
type Event struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"payload"`
}

// ConversationUpdatedPayload is intentionally light: subscribers resort
// their conversation list without re-fetching bodies.
type ConversationUpdatedPayload struct {
	ConversationID uuid.UUID `json:"conversation_id"`
}

type UserJoinedPayload struct {
	ConversationID uuid.UUID          `json:"conversation_id"`
	User           models.UserPreview `json:"user"`
}

type MessageReadPayload struct {
	MessageID uuid.UUID `json:"message_id"`
	UserID    uint      `json:"user_id"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

func NewMessageEvent(message models.MessageView) Event {
	return Event{Event: EventReceiveMessage, Payload: message}
}

func NewConversationUpdatedEvent(conversationID uuid.UUID) Event {
	return Event{Event: EventConversationUpdated, Payload: ConversationUpdatedPayload{ConversationID: conversationID}}
}

func NewUserJoinedEvent(conversationID uuid.UUID, user models.UserPreview) Event {
	return Event{Event: EventUserJoinedConversation, Payload: UserJoinedPayload{ConversationID: conversationID, User: user}}
}

func NewMessageReadEvent(messageID uuid.UUID, userID uint) Event {
	return Event{Event: EventMessageRead, Payload: MessageReadPayload{MessageID: messageID, UserID: userID}}
}

func NewNotificationEvent(notification models.NotificationView) Event {
	return Event{Event: EventNotification, Payload: notification}
}

func NewErrorEvent(message string) Event {
	return Event{Event: EventError, Payload: ErrorPayload{Message: message}}
}
