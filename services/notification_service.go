package services

import (
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/mercatohq/mercato/config"
	"github.com/mercatohq/mercato/db"
	apiError "github.com/mercatohq/mercato/errors"
	"github.com/mercatohq/mercato/models"
	"github.com/mercatohq/mercato/realtime"
	"gorm.io/gorm"
)

// Default pagination for notification pages.
const (
	DefaultNotificationPage     = 1
	DefaultNotificationPageSize = 10
)

// NotificationService creates and reads notification records for domain
// events and pushes them to connected recipients. A nil recipient and a
// self-directed event are both no-ops: nothing is stored, no error raised.
type NotificationService interface {
	CreateFollowNotification(actorID uint, recipientID *uint) (*models.Notification, error)
	CreateArticleLikeNotification(actorID uint, recipientID *uint, articleID *uuid.UUID) (*models.Notification, error)
	CreateArticleCommentNotification(actorID uint, recipientID *uint, articleID, commentID *uuid.UUID) (*models.Notification, error)
	CreateRepostNotification(actorID uint, recipientID *uint, articleID *uuid.UUID) (*models.Notification, error)
	GetUnreadNotifications(userID uint, page, pageSize int) ([]models.NotificationView, error)
	Stats(userID uint) (*models.NotificationStats, error)
	MarkRead(notificationID uint, userID uint) error
	MarkAllRead(userID uint) error
}

type notificationService struct {
	Config           *config.Config
	notificationRepo db.NotificationRepository
	authRepo         db.AuthRepository
	pusher           LivePusher
}

func NewNotificationService(
	notificationRepo db.NotificationRepository,
	authRepo db.AuthRepository,
	pusher LivePusher,
	conf *config.Config,
) NotificationService {
	return &notificationService{
		Config:           conf,
		notificationRepo: notificationRepo,
		authRepo:         authRepo,
		pusher:           pusher,
	}
}

func (s *notificationService) CreateFollowNotification(actorID uint, recipientID *uint) (*models.Notification, error) {
	return s.create(models.NotificationFollow, actorID, recipientID, nil, nil)
}

func (s *notificationService) CreateArticleLikeNotification(actorID uint, recipientID *uint, articleID *uuid.UUID) (*models.Notification, error) {
	return s.create(models.NotificationArticleLike, actorID, recipientID, articleID, nil)
}

func (s *notificationService) CreateArticleCommentNotification(actorID uint, recipientID *uint, articleID, commentID *uuid.UUID) (*models.Notification, error) {
	return s.create(models.NotificationArticleComment, actorID, recipientID, articleID, commentID)
}

func (s *notificationService) CreateRepostNotification(actorID uint, recipientID *uint, articleID *uuid.UUID) (*models.Notification, error) {
	return s.create(models.NotificationRepost, actorID, recipientID, articleID, nil)
}

// create is the shared hydration step: the actor preview is resolved once,
// only the message text and referenced-entity ids branch on the kind.
func (s *notificationService) create(kind models.NotificationType, actorID uint, recipientID *uint, articleID, commentID *uuid.UUID) (*models.Notification, error) {
	if recipientID == nil {
		return nil, nil
	}
	if *recipientID == actorID {
		// Liking your own article produces nothing.
		return nil, nil
	}

	actor, err := s.authRepo.FindUserByID(actorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apiError.ErrNotFound
		}
		log.Printf("create notification: actor lookup failed: %v", err)
		return nil, apiError.ErrInternalServerError
	}

	exists, err := s.authRepo.UserExists(*recipientID)
	if err != nil {
		log.Printf("create notification: recipient lookup failed: %v", err)
		return nil, apiError.ErrInternalServerError
	}
	if !exists {
		return nil, apiError.ErrNotFound
	}

	notification := &models.Notification{
		RecipientID: *recipientID,
		ActorID:     actorID,
		Type:        kind,
		Message:     notificationMessage(kind, actor.Username),
		ArticleID:   articleID,
		CommentID:   commentID,
	}
	if err := s.notificationRepo.CreateNotification(notification); err != nil {
		log.Printf("create notification: %v", err)
		return nil, apiError.ErrInternalServerError
	}
	notification.Actor = *actor

	s.pusher.PushToUser(*recipientID, realtime.NewNotificationEvent(notificationView(notification)))

	return notification, nil
}

func notificationMessage(kind models.NotificationType, actorUsername string) string {
	switch kind {
	case models.NotificationFollow:
		return fmt.Sprintf("%s started following you", actorUsername)
	case models.NotificationArticleLike:
		return fmt.Sprintf("%s liked your article", actorUsername)
	case models.NotificationArticleComment:
		return fmt.Sprintf("%s commented on your article", actorUsername)
	case models.NotificationRepost:
		return fmt.Sprintf("%s reposted your article", actorUsername)
	}
	return ""
}

func notificationView(n *models.Notification) models.NotificationView {
	return models.NotificationView{
		ID:        n.ID,
		Actor:     n.Actor.Preview(),
		Type:      n.Type,
		Message:   n.Message,
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt,
		ArticleID: n.ArticleID,
		CommentID: n.CommentID,
	}
}

func (s *notificationService) GetUnreadNotifications(userID uint, page, pageSize int) ([]models.NotificationView, error) {
	if page < 1 {
		page = DefaultNotificationPage
	}
	if pageSize < 1 {
		pageSize = DefaultNotificationPageSize
	}

	notifications, err := s.notificationRepo.GetUnreadNotifications(userID, (page-1)*pageSize, pageSize)
	if err != nil {
		log.Printf("GetUnreadNotifications: %v", err)
		return nil, apiError.ErrInternalServerError
	}

	views := make([]models.NotificationView, 0, len(notifications))
	for i := range notifications {
		views = append(views, notificationView(&notifications[i]))
	}
	return views, nil
}

func (s *notificationService) Stats(userID uint) (*models.NotificationStats, error) {
	stats, err := s.notificationRepo.NotificationStats(userID)
	if err != nil {
		log.Printf("NotificationStats: %v", err)
		return nil, apiError.ErrInternalServerError
	}
	return stats, nil
}

// MarkRead flips the single read flag. Marking an already-read notification
// is an idempotent no-op.
func (s *notificationService) MarkRead(notificationID uint, userID uint) error {
	notification, err := s.notificationRepo.FindNotificationByID(notificationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apiError.ErrNotFound
		}
		log.Printf("MarkRead: %v", err)
		return apiError.ErrInternalServerError
	}
	if notification.RecipientID != userID {
		return apiError.ErrForbidden
	}
	if notification.IsRead {
		return nil
	}
	if err := s.notificationRepo.MarkNotificationRead(notificationID); err != nil {
		log.Printf("MarkRead: %v", err)
		return apiError.ErrInternalServerError
	}
	return nil
}

func (s *notificationService) MarkAllRead(userID uint) error {
	if err := s.notificationRepo.MarkAllNotificationsRead(userID); err != nil {
		log.Printf("MarkAllRead: %v", err)
		return apiError.ErrInternalServerError
	}
	return nil
}
