package db

import (
	"github.com/google/uuid"
	"github.com/mercatohq/mercato/models"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ReadReceiptRepository interface {
	CreateReceipt(receipt *models.ReadReceipt) error
	HasReceipt(messageID uuid.UUID, userID uint) (bool, error)
	CreateReceipts(receipts []models.ReadReceipt) error
	UnreadMessages(userID uint) ([]models.Message, error)
	UnreadMessagesInConversation(conversationID uuid.UUID, userID uint) ([]models.Message, error)
	UnreadCount(conversationID uuid.UUID, userID uint) (int64, error)
}

type receiptRepo struct {
	DB *gorm.DB
}

func NewReadReceiptRepo(db *GormDB) ReadReceiptRepository {
	return &receiptRepo{db.DB}
}

// CreateReceipt inserts the receipt; a concurrent duplicate for the same
// (message, user) pair is swallowed so marking read stays idempotent under
// racing callers.
func (r *receiptRepo) CreateReceipt(receipt *models.ReadReceipt) error {
	err := r.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(receipt).Error
	if err != nil {
		return errors.Wrap(err, "could not create read receipt")
	}
	return nil
}

func (r *receiptRepo) HasReceipt(messageID uuid.UUID, userID uint) (bool, error) {
	var count int64
	err := r.DB.Model(&models.ReadReceipt{}).
		Where("message_id = ? AND user_id = ?", messageID, userID).
		Count(&count).Error
	if err != nil {
		return false, errors.Wrap(err, "gorm.count error")
	}
	return count > 0, nil
}

// CreateReceipts inserts the batch in a single transaction, skipping pairs
// another caller receipted in the meantime.
func (r *receiptRepo) CreateReceipts(receipts []models.ReadReceipt) error {
	if len(receipts) == 0 {
		return nil
	}
	return r.DB.Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(receipts, 200).Error
		if err != nil {
			return errors.Wrap(err, "could not create read receipts")
		}
		return nil
	})
}

// unreadScope selects messages authored by someone else, in conversations the
// user belongs to, with no receipt for that user.
func (r *receiptRepo) unreadScope(userID uint) *gorm.DB {
	return r.DB.Model(&models.Message{}).
		Where("sender_id <> ?", userID).
		Where("conversation_id IN (?)", r.DB.Model(&models.Membership{}).
			Select("conversation_id").
			Where("user_id = ?", userID)).
		Where("NOT EXISTS (SELECT 1 FROM read_receipts rr WHERE rr.message_id = messages.id AND rr.user_id = ?)", userID)
}

func (r *receiptRepo) UnreadMessages(userID uint) ([]models.Message, error) {
	var messages []models.Message
	err := r.unreadScope(userID).
		Order("sent_at DESC, id DESC").
		Preload("Sender").
		Find(&messages).Error
	if err != nil {
		return nil, errors.Wrap(err, "could not fetch unread messages")
	}
	return messages, nil
}

func (r *receiptRepo) UnreadMessagesInConversation(conversationID uuid.UUID, userID uint) ([]models.Message, error) {
	var messages []models.Message
	err := r.unreadScope(userID).
		Where("conversation_id = ?", conversationID).
		Find(&messages).Error
	if err != nil {
		return nil, errors.Wrap(err, "could not fetch unread messages")
	}
	return messages, nil
}

func (r *receiptRepo) UnreadCount(conversationID uuid.UUID, userID uint) (int64, error) {
	var count int64
	err := r.unreadScope(userID).
		Where("conversation_id = ?", conversationID).
		Count(&count).Error
	if err != nil {
		return 0, errors.Wrap(err, "gorm.count error")
	}
	return count, nil
}
