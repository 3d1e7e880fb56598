package db

import (
	"time"

	"github.com/google/uuid"
	"github.com/mercatohq/mercato/models"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type ConversationRepository interface {
	CreateConversation(conversation *models.Conversation, memberIDs []uint) error
	FindConversationByID(id uuid.UUID) (*models.Conversation, error)
	FindDirectConversation(userA, userB uint) (*models.Conversation, error)
	CreateMembership(membership *models.Membership) error
	GetMembership(conversationID uuid.UUID, userID uint) (*models.Membership, error)
	IsMember(conversationID uuid.UUID, userID uint) (bool, error)
	MemberIDs(conversationID uuid.UUID) ([]uint, error)
	ListUserConversations(userID uint) ([]models.Conversation, error)
	UserConversationIDs(userID uint) ([]uuid.UUID, error)
}

type conversationRepo struct {
	DB *gorm.DB
}

func NewConversationRepo(db *GormDB) ConversationRepository {
	return &conversationRepo{db.DB}
}

// CreateConversation persists the conversation and one membership row per
// member in a single transaction.
func (r *conversationRepo) CreateConversation(conversation *models.Conversation, memberIDs []uint) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(conversation).Error; err != nil {
			return errors.Wrap(err, "could not create conversation")
		}
		now := time.Now()
		for _, userID := range memberIDs {
			membership := models.Membership{
				ConversationID: conversation.ID,
				UserID:         userID,
				JoinedAt:       now,
			}
			if err := tx.Create(&membership).Error; err != nil {
				return errors.Wrap(err, "could not create membership")
			}
		}
		return nil
	})
}

func (r *conversationRepo) FindConversationByID(id uuid.UUID) (*models.Conversation, error) {
	var conversation models.Conversation
	if err := r.DB.Preload("Memberships.User").First(&conversation, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &conversation, nil
}

// FindDirectConversation looks for an existing non-group conversation with
// exactly two memberships containing both users. The lookup runs before the
// insert it guards, so two concurrent first creations for the same pair can
// still produce duplicate rows.
func (r *conversationRepo) FindDirectConversation(userA, userB uint) (*models.Conversation, error) {
	var conversation models.Conversation
	err := r.DB.
		Where("is_group = ?", false).
		Where("id IN (?)", r.DB.Model(&models.Membership{}).
			Select("conversation_id").
			Where("user_id IN ?", []uint{userA, userB}).
			Group("conversation_id").
			Having("COUNT(DISTINCT user_id) = 2")).
		Where("(SELECT COUNT(*) FROM memberships m WHERE m.conversation_id = conversations.id) = 2").
		Preload("Memberships.User").
		First(&conversation).Error
	if err != nil {
		return nil, err
	}
	return &conversation, nil
}

func (r *conversationRepo) CreateMembership(membership *models.Membership) error {
	if err := r.DB.Create(membership).Error; err != nil {
		return errors.Wrap(err, "could not create membership")
	}
	return nil
}

func (r *conversationRepo) GetMembership(conversationID uuid.UUID, userID uint) (*models.Membership, error) {
	var membership models.Membership
	err := r.DB.Where("conversation_id = ? AND user_id = ?", conversationID, userID).First(&membership).Error
	if err != nil {
		return nil, err
	}
	return &membership, nil
}

func (r *conversationRepo) IsMember(conversationID uuid.UUID, userID uint) (bool, error) {
	var count int64
	err := r.DB.Model(&models.Membership{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Count(&count).Error
	if err != nil {
		return false, errors.Wrap(err, "gorm.count error")
	}
	return count > 0, nil
}

func (r *conversationRepo) MemberIDs(conversationID uuid.UUID) ([]uint, error) {
	var ids []uint
	err := r.DB.Model(&models.Membership{}).
		Where("conversation_id = ?", conversationID).
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, errors.Wrap(err, "could not list member ids")
	}
	return ids, nil
}

func (r *conversationRepo) ListUserConversations(userID uint) ([]models.Conversation, error) {
	var conversations []models.Conversation
	err := r.DB.
		Where("id IN (?)", r.DB.Model(&models.Membership{}).
			Select("conversation_id").
			Where("user_id = ?", userID)).
		Order("updated_at DESC").
		Preload("Memberships.User").
		Find(&conversations).Error
	if err != nil {
		return nil, errors.Wrap(err, "could not list conversations")
	}
	return conversations, nil
}

func (r *conversationRepo) UserConversationIDs(userID uint) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.DB.Model(&models.Membership{}).
		Where("user_id = ?", userID).
		Pluck("conversation_id", &ids).Error
	if err != nil {
		return nil, errors.Wrap(err, "could not list conversation ids")
	}
	return ids, nil
}
