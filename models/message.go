package models

import (
	"time"

	"github.com/google/uuid"
)

// MessageType enumerates the kinds of message content.
type MessageType string

const (
	MessageTypeText     MessageType = "text"
	MessageTypeImage    MessageType = "image"
	MessageTypeFile     MessageType = "file"
	MessageTypeAudio    MessageType = "audio"
	MessageTypeVideo    MessageType = "video"
	MessageTypeLocation MessageType = "location"
	MessageTypeSystem   MessageType = "system"
)

// Valid reports whether t is one of the supported message types.
func (t MessageType) Valid() bool {
	switch t {
	case MessageTypeText, MessageTypeImage, MessageTypeFile, MessageTypeAudio,
		MessageTypeVideo, MessageTypeLocation, MessageTypeSystem:
		return true
	}
	return false
}

// Message is immutable after creation except for the read receipts attached
// to it. ReplyToMessageID must reference a message in the same conversation.
type Message struct {
	ID               uuid.UUID     `json:"id" gorm:"type:uuid;primaryKey"`
	ConversationID   uuid.UUID     `json:"conversation_id" gorm:"type:uuid;not null;index:idx_messages_conversation_sent,priority:1"`
	SenderID         uint          `json:"sender_id" gorm:"not null"`
	Sender           User          `json:"sender,omitempty" gorm:"foreignKey:SenderID"`
	Content          string        `json:"content" gorm:"type:text"`
	Type             MessageType   `json:"type" gorm:"type:varchar(20);default:'text'"`
	Attachment       *string       `json:"attachment,omitempty"`
	ReplyToMessageID *uuid.UUID    `json:"reply_to_message_id,omitempty" gorm:"type:uuid"`
	ReplyTo          *Message      `json:"reply_to,omitempty" gorm:"foreignKey:ReplyToMessageID"`
	SentAt           time.Time     `json:"sent_at" gorm:"index:idx_messages_conversation_sent,priority:2,sort:desc"`
	ReadReceipts     []ReadReceipt `json:"read_receipts,omitempty" gorm:"foreignKey:MessageID"`
}

// ReadReceipt marks that a viewer has seen a message. The composite primary
// key keeps the (message, user) pair unique.
type ReadReceipt struct {
	MessageID uuid.UUID `json:"message_id" gorm:"type:uuid;primaryKey"`
	UserID    uint      `json:"user_id" gorm:"primaryKey;index:idx_read_receipts_user"`
	ReadAt    time.Time `json:"read_at"`
	User      User      `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

// IsReadBy applies the derived read rule: a message is read by a viewer iff
// the viewer authored it or a receipt exists for (message, viewer).
func (m *Message) IsReadBy(userID uint) bool {
	if m.SenderID == userID {
		return true
	}
	for _, r := range m.ReadReceipts {
		if r.UserID == userID {
			return true
		}
	}
	return false
}

// SendMessageRequest is the payload for sending or replying to a message.
type SendMessageRequest struct {
	Content          string      `json:"content" binding:"required"`
	Type             MessageType `json:"type"`
	Attachment       *string     `json:"attachment,omitempty"`
	ReplyToMessageID *uuid.UUID  `json:"reply_to_message_id,omitempty"`
}

// ReplyPreview is the one-level, non-recursive projection of a replied-to
// message.
type ReplyPreview struct {
	ID      uuid.UUID   `json:"id"`
	Sender  UserPreview `json:"sender"`
	Content string      `json:"content"`
	Type    MessageType `json:"type"`
	SentAt  time.Time   `json:"sent_at"`
}

// MessageView is a message hydrated for the requesting viewer.
type MessageView struct {
	ID             uuid.UUID     `json:"id"`
	ConversationID uuid.UUID     `json:"conversation_id"`
	Sender         UserPreview   `json:"sender"`
	Content        string        `json:"content"`
	Type           MessageType   `json:"type"`
	Attachment     *string       `json:"attachment,omitempty"`
	SentAt         time.Time     `json:"sent_at"`
	ReplyTo        *ReplyPreview `json:"reply_to,omitempty"`
	ReadBy         []UserPreview `json:"read_by"`
	IsRead         bool          `json:"is_read"`
}

// UnreadSummary is the cross-conversation unread report for one user.
type UnreadSummary struct {
	Count    int           `json:"count"`
	Messages []MessageView `json:"messages"`
}
