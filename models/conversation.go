package models

import (
	"time"

	"github.com/google/uuid"
)

// Conversation is a thread of messages among a fixed, growable set of
// members. Title and GroupPicture are only meaningful for groups.
// UpdatedAt is bumped on every new message and drives list ordering.
type Conversation struct {
	ID           uuid.UUID    `json:"id" gorm:"type:uuid;primaryKey"`
	Title        *string      `json:"title,omitempty"`
	IsGroup      bool         `json:"is_group" gorm:"default:false"`
	GroupPicture *string      `json:"group_picture,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at" gorm:"index:idx_conversations_updated,sort:desc"`
	Memberships  []Membership `json:"memberships,omitempty" gorm:"foreignKey:ConversationID"`
}

// Membership is the join record authorizing a user to read and write in a
// conversation. The composite primary key makes the pair unique.
type Membership struct {
	ConversationID uuid.UUID `json:"conversation_id" gorm:"type:uuid;primaryKey"`
	UserID         uint      `json:"user_id" gorm:"primaryKey;index:idx_memberships_user"`
	JoinedAt       time.Time `json:"joined_at"`
	User           User      `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

// CreateConversationRequest is the payload for POST /conversations.
type CreateConversationRequest struct {
	ParticipantIDs []uint  `json:"participant_ids" binding:"required,min=1"`
	IsGroup        bool    `json:"is_group"`
	Title          *string `json:"title,omitempty"`
	GroupPicture   *string `json:"group_picture,omitempty"`
}

// ConversationView is a conversation hydrated for the requesting viewer.
type ConversationView struct {
	ID           uuid.UUID     `json:"id"`
	Title        *string       `json:"title,omitempty"`
	IsGroup      bool          `json:"is_group"`
	GroupPicture *string       `json:"group_picture,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
	Participants []UserPreview `json:"participants"`
	LastMessage  *MessageView  `json:"last_message,omitempty"`
	UnreadCount  int64         `json:"unread_count"`
}
