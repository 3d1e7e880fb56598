package db

import (
	"github.com/google/uuid"
	"github.com/mercatohq/mercato/models"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type MessageRepository interface {
	SaveMessage(message *models.Message) error
	FindMessageByID(id uuid.UUID) (*models.Message, error)
	FindMessageHydrated(id uuid.UUID) (*models.Message, error)
	GetConversationMessages(conversationID uuid.UUID, offset, limit int) ([]models.Message, error)
	LastMessage(conversationID uuid.UUID) (*models.Message, error)
}

type messageRepo struct {
	DB *gorm.DB
}

func NewMessageRepo(db *GormDB) MessageRepository {
	return &messageRepo{db.DB}
}

// SaveMessage persists the message and bumps the conversation's updated_at
// in one transaction so list ordering can never observe one without the
// other.
func (r *messageRepo) SaveMessage(message *models.Message) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(message).Error; err != nil {
			return errors.Wrap(err, "could not save message")
		}
		err := tx.Model(&models.Conversation{}).
			Where("id = ?", message.ConversationID).
			Update("updated_at", message.SentAt).Error
		if err != nil {
			return errors.Wrap(err, "could not bump conversation")
		}
		return nil
	})
}

func (r *messageRepo) FindMessageByID(id uuid.UUID) (*models.Message, error) {
	var message models.Message
	if err := r.DB.First(&message, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &message, nil
}

// FindMessageHydrated loads a message with its sender, receipts and a
// one-level reply preview.
func (r *messageRepo) FindMessageHydrated(id uuid.UUID) (*models.Message, error) {
	var message models.Message
	err := r.DB.
		Preload("Sender").
		Preload("ReadReceipts.User").
		Preload("ReplyTo.Sender").
		First(&message, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &message, nil
}

// GetConversationMessages returns one page ordered by sent_at descending.
// The id tiebreak only keeps equal timestamps in a stable order across
// pages; ids are random uuids, so it carries no insertion order.
func (r *messageRepo) GetConversationMessages(conversationID uuid.UUID, offset, limit int) ([]models.Message, error) {
	var messages []models.Message
	err := r.DB.
		Where("conversation_id = ?", conversationID).
		Order("sent_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Preload("Sender").
		Preload("ReadReceipts.User").
		Preload("ReplyTo.Sender").
		Find(&messages).Error
	if err != nil {
		return nil, errors.Wrap(err, "could not fetch messages")
	}
	return messages, nil
}

func (r *messageRepo) LastMessage(conversationID uuid.UUID) (*models.Message, error) {
	var message models.Message
	err := r.DB.
		Where("conversation_id = ?", conversationID).
		Order("sent_at DESC, id DESC").
		Preload("Sender").
		Preload("ReadReceipts.User").
		First(&message).Error
	if err != nil {
		return nil, err
	}
	return &message, nil
}
