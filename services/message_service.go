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

// Default pagination for message pages.
const (
	DefaultMessagePage     = 1
	DefaultMessagePageSize = 20
)

// MessageService validates membership, persists messages and replies, bumps
// conversation activity and hands the stored record to the broadcast router.
type MessageService interface {
	SendMessage(conversationID uuid.UUID, senderID uint, content string, messageType models.MessageType, attachment *string) (*models.MessageView, error)
	ReplyToMessage(conversationID uuid.UUID, senderID uint, content string, messageType models.MessageType, attachment *string, replyToMessageID uuid.UUID) (*models.MessageView, error)
	GetMessages(conversationID uuid.UUID, userID uint, page, pageSize int) ([]models.MessageView, error)
}

type messageService struct {
	Config      *config.Config
	messageRepo db.MessageRepository
	convRepo    db.ConversationRepository
	pusher      LivePusher
}

func NewMessageService(
	messageRepo db.MessageRepository,
	convRepo db.ConversationRepository,
	pusher LivePusher,
	conf *config.Config,
) MessageService {
	return &messageService{
		Config:      conf,
		messageRepo: messageRepo,
		convRepo:    convRepo,
		pusher:      pusher,
	}
}

func (s *messageService) SendMessage(conversationID uuid.UUID, senderID uint, content string, messageType models.MessageType, attachment *string) (*models.MessageView, error) {
	return s.persistAndBroadcast(conversationID, senderID, content, messageType, attachment, nil)
}

// ReplyToMessage additionally resolves the reply target, which must be a
// message in the same conversation.
func (s *messageService) ReplyToMessage(conversationID uuid.UUID, senderID uint, content string, messageType models.MessageType, attachment *string, replyToMessageID uuid.UUID) (*models.MessageView, error) {
	target, err := s.messageRepo.FindMessageByID(replyToMessageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apiError.ErrNotFound
		}
		log.Printf("ReplyToMessage: target lookup failed: %v", err)
		return nil, apiError.ErrInternalServerError
	}
	if target.ConversationID != conversationID {
		return nil, apiError.ErrInvalidReference
	}
	return s.persistAndBroadcast(conversationID, senderID, content, messageType, attachment, &replyToMessageID)
}

func (s *messageService) persistAndBroadcast(conversationID uuid.UUID, senderID uint, content string, messageType models.MessageType, attachment *string, replyToMessageID *uuid.UUID) (*models.MessageView, error) {
	member, err := s.convRepo.IsMember(conversationID, senderID)
	if err != nil {
		log.Printf("SendMessage: membership check failed: %v", err)
		return nil, apiError.ErrInternalServerError
	}
	if !member {
		return nil, apiError.ErrForbidden
	}

	if messageType == "" {
		messageType = models.MessageTypeText
	}
	if !messageType.Valid() {
		return nil, apiError.ErrBadRequest
	}

	message := &models.Message{
		ID:               uuid.New(),
		ConversationID:   conversationID,
		SenderID:         senderID,
		Content:          content,
		Type:             messageType,
		Attachment:       attachment,
		ReplyToMessageID: replyToMessageID,
		SentAt:           time.Now(),
	}
	if err := s.messageRepo.SaveMessage(message); err != nil {
		log.Printf("SendMessage: %v", err)
		return nil, apiError.ErrInternalServerError
	}

	stored, err := s.messageRepo.FindMessageHydrated(message.ID)
	if err != nil {
		log.Printf("SendMessage: reload failed: %v", err)
		return nil, apiError.ErrInternalServerError
	}

	// The channel copy goes out unread with an empty read-by set; whoever
	// missed it reconciles from the store.
	wireView := hydrateMessage(stored, 0)
	s.pusher.PushToConversation(conversationID, realtime.NewMessageEvent(wireView))
	s.pusher.PushToConversation(conversationID, realtime.NewConversationUpdatedEvent(conversationID))

	view := hydrateMessage(stored, senderID)
	return &view, nil
}

// GetMessages returns one membership-gated page, newest first, each message
// hydrated for the requesting viewer.
func (s *messageService) GetMessages(conversationID uuid.UUID, userID uint, page, pageSize int) ([]models.MessageView, error) {
	member, err := s.convRepo.IsMember(conversationID, userID)
	if err != nil {
		log.Printf("GetMessages: membership check failed: %v", err)
		return nil, apiError.ErrInternalServerError
	}
	if !member {
		return nil, apiError.ErrForbidden
	}

	if page < 1 {
		page = DefaultMessagePage
	}
	if pageSize < 1 {
		pageSize = DefaultMessagePageSize
	}

	messages, err := s.messageRepo.GetConversationMessages(conversationID, (page-1)*pageSize, pageSize)
	if err != nil {
		log.Printf("GetMessages: %v", err)
		return nil, apiError.ErrInternalServerError
	}

	views := make([]models.MessageView, 0, len(messages))
	for i := range messages {
		views = append(views, hydrateMessage(&messages[i], userID))
	}
	return views, nil
}

// hydrateMessage projects a stored message into the per-viewer wire shape:
// sender preview, readers, a one-level reply preview, and the derived read
// rule (author or receipt) applied relative to the viewer.
func hydrateMessage(message *models.Message, viewerID uint) models.MessageView {
	view := models.MessageView{
		ID:             message.ID,
		ConversationID: message.ConversationID,
		Sender:         message.Sender.Preview(),
		Content:        message.Content,
		Type:           message.Type,
		Attachment:     message.Attachment,
		SentAt:         message.SentAt,
		ReadBy:         make([]models.UserPreview, 0, len(message.ReadReceipts)),
	}
	for _, receipt := range message.ReadReceipts {
		view.ReadBy = append(view.ReadBy, receipt.User.Preview())
	}
	if message.ReplyTo != nil {
		view.ReplyTo = &models.ReplyPreview{
			ID:      message.ReplyTo.ID,
			Sender:  message.ReplyTo.Sender.Preview(),
			Content: message.ReplyTo.Content,
			Type:    message.ReplyTo.Type,
			SentAt:  message.ReplyTo.SentAt,
		}
	}
	if viewerID != 0 {
		view.IsRead = message.IsReadBy(viewerID)
	}
	return view
}
