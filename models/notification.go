package models

import (
	"time"

	"github.com/google/uuid"
)

// NotificationType tags the domain event a notification describes.
type NotificationType string

const (
	NotificationFollow         NotificationType = "follow"
	NotificationArticleLike    NotificationType = "article_like"
	NotificationArticleComment NotificationType = "article_comment"
	NotificationRepost         NotificationType = "repost"
)

// Notification is a single-recipient, single-read-flag record describing a
// domain event. Unlike messages, read state is one boolean: a notification
// has exactly one recipient.
type Notification struct {
	Model
	RecipientID uint             `json:"recipient_id" gorm:"not null;index"`
	ActorID     uint             `json:"actor_id" gorm:"not null"`
	Actor       User             `json:"actor,omitempty" gorm:"foreignKey:ActorID"`
	Type        NotificationType `json:"type" gorm:"type:varchar(30);not null"`
	Message     string           `json:"message" gorm:"type:text"`
	IsRead      bool             `json:"is_read" gorm:"default:false;index"`
	ArticleID   *uuid.UUID       `json:"article_id,omitempty" gorm:"type:uuid"`
	CommentID   *uuid.UUID       `json:"comment_id,omitempty" gorm:"type:uuid"`
}

// NotificationEventRequest is the intake payload posted by the out-of-scope
// CRUD collaborators when a domain event fires. RecipientID is a pointer:
// an absent recipient is a no-op, never stored.
type NotificationEventRequest struct {
	RecipientID *uint      `json:"recipient_id"`
	ArticleID   *uuid.UUID `json:"article_id,omitempty"`
	CommentID   *uuid.UUID `json:"comment_id,omitempty"`
}

// NotificationView is a notification hydrated with its actor preview.
type NotificationView struct {
	ID        uint             `json:"id"`
	Actor     UserPreview      `json:"actor"`
	Type      NotificationType `json:"type"`
	Message   string           `json:"message"`
	IsRead    bool             `json:"is_read"`
	CreatedAt time.Time        `json:"created_at"`
	ArticleID *uuid.UUID       `json:"article_id,omitempty"`
	CommentID *uuid.UUID       `json:"comment_id,omitempty"`
}

// NotificationStats is the aggregate unread/total report for one recipient.
type NotificationStats struct {
	Unread int64 `json:"unread"`
	Total  int64 `json:"total"`
}
