package services

import (
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/mercatohq/mercato/config"
	"github.com/mercatohq/mercato/db"
	apiError "github.com/mercatohq/mercato/errors"
	"github.com/mercatohq/mercato/models"
	"github.com/mercatohq/mercato/realtime"
	"gorm.io/gorm"
)

// ReceiptService tracks per-recipient read state over messages. Read state
// is always per viewer: a message is read by X iff X authored it or a
// receipt exists for (message, X).
type ReceiptService interface {
	MarkMessageRead(messageID uuid.UUID, userID uint) error
	MarkAllRead(conversationID uuid.UUID, userID uint) error
	GetUnreadForUser(userID uint) (*models.UnreadSummary, error)
}

type receiptService struct {
	Config      *config.Config
	receiptRepo db.ReadReceiptRepository
	messageRepo db.MessageRepository
	convRepo    db.ConversationRepository
	pusher      LivePusher
}

func NewReceiptService(
	receiptRepo db.ReadReceiptRepository,
	messageRepo db.MessageRepository,
	convRepo db.ConversationRepository,
	pusher LivePusher,
	conf *config.Config,
) ReceiptService {
	return &receiptService{
		Config:      conf,
		receiptRepo: receiptRepo,
		messageRepo: messageRepo,
		convRepo:    convRepo,
		pusher:      pusher,
	}
}

// MarkMessageRead creates one receipt. Non-membership, authorship and an
// existing receipt are all idempotent no-ops, not errors.
func (s *receiptService) MarkMessageRead(messageID uuid.UUID, userID uint) error {
	message, err := s.messageRepo.FindMessageByID(messageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apiError.ErrNotFound
		}
		log.Printf("MarkMessageRead: %v", err)
		return apiError.ErrInternalServerError
	}

	if message.SenderID == userID {
		return nil
	}

	member, err := s.convRepo.IsMember(message.ConversationID, userID)
	if err != nil {
		log.Printf("MarkMessageRead: membership check failed: %v", err)
		return apiError.ErrInternalServerError
	}
	if !member {
		return nil
	}

	exists, err := s.receiptRepo.HasReceipt(messageID, userID)
	if err != nil {
		log.Printf("MarkMessageRead: receipt lookup failed: %v", err)
		return apiError.ErrInternalServerError
	}
	if exists {
		return nil
	}

	receipt := &models.ReadReceipt{
		MessageID: messageID,
		UserID:    userID,
		ReadAt:    time.Now(),
	}
	if err := s.receiptRepo.CreateReceipt(receipt); err != nil {
		log.Printf("MarkMessageRead: %v", err)
		return apiError.ErrInternalServerError
	}

	// Read acknowledgements go straight to the author; offline just misses it.
	s.pusher.PushToUser(message.SenderID, realtime.NewMessageReadEvent(messageID, userID))

	return nil
}

// MarkAllRead creates one receipt per unread foreign-authored message in the
// conversation, in a single batch. Used when a user opens a conversation.
func (s *receiptService) MarkAllRead(conversationID uuid.UUID, userID uint) error {
	member, err := s.convRepo.IsMember(conversationID, userID)
	if err != nil {
		log.Printf("MarkAllRead: membership check failed: %v", err)
		return apiError.ErrInternalServerError
	}
	if !member {
		return apiError.ErrForbidden
	}

	unread, err := s.receiptRepo.UnreadMessagesInConversation(conversationID, userID)
	if err != nil {
		log.Printf("MarkAllRead: %v", err)
		return apiError.ErrInternalServerError
	}
	if len(unread) == 0 {
		return nil
	}

	now := time.Now()
	receipts := make([]models.ReadReceipt, 0, len(unread))
	for _, message := range unread {
		receipts = append(receipts, models.ReadReceipt{
			MessageID: message.ID,
			UserID:    userID,
			ReadAt:    now,
		})
	}
	if err := s.receiptRepo.CreateReceipts(receipts); err != nil {
		log.Printf("MarkAllRead: %v", err)
		return apiError.ErrInternalServerError
	}
	return nil
}

// GetUnreadForUser reports, across every conversation the user belongs to,
// the messages authored by someone else with no receipt for this user,
// newest first.
func (s *receiptService) GetUnreadForUser(userID uint) (*models.UnreadSummary, error) {
	unread, err := s.receiptRepo.UnreadMessages(userID)
	if err != nil {
		log.Printf("GetUnreadForUser: %v", err)
		return nil, apiError.ErrInternalServerError
	}

	summary := &models.UnreadSummary{
		Count:    len(unread),
		Messages: make([]models.MessageView, 0, len(unread)),
	}
	for i := range unread {
		summary.Messages = append(summary.Messages, hydrateMessage(&unread[i], userID))
	}
	return summary, nil
}
