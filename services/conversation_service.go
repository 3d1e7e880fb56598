package services

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/mercatohq/mercato/config"
	"github.com/mercatohq/mercato/db"
	apiError "github.com/mercatohq/mercato/errors"
	"github.com/mercatohq/mercato/models"
	"github.com/mercatohq/mercato/realtime"
	"gorm.io/gorm"
)

// ConversationService manages conversations and the memberships that gate
// every conversation-scoped operation.
type ConversationService interface {
	CreateConversation(creatorID uint, request *models.CreateConversationRequest) (*models.Conversation, error)
	JoinConversation(conversationID uuid.UUID, userID uint) (*models.Membership, error)
	GetConversation(conversationID uuid.UUID, userID uint) (*models.ConversationView, error)
	ListUserConversations(userID uint) ([]models.ConversationView, error)
	UserConversationIDs(userID uint) ([]uuid.UUID, error)
}

type conversationService struct {
	Config      *config.Config
	convRepo    db.ConversationRepository
	messageRepo db.MessageRepository
	receiptRepo db.ReadReceiptRepository
	authRepo    db.AuthRepository
	pusher      LivePusher
}

func NewConversationService(
	convRepo db.ConversationRepository,
	messageRepo db.MessageRepository,
	receiptRepo db.ReadReceiptRepository,
	authRepo db.AuthRepository,
	pusher LivePusher,
	conf *config.Config,
) ConversationService {
	return &conversationService{
		Config:      conf,
		convRepo:    convRepo,
		messageRepo: messageRepo,
		receiptRepo: receiptRepo,
		authRepo:    authRepo,
		pusher:      pusher,
	}
}

// CreateConversation creates a conversation plus one membership per distinct
// participant. Creating a direct conversation between the same two users
// twice returns the existing one instead of a duplicate.
func (s *conversationService) CreateConversation(creatorID uint, request *models.CreateConversationRequest) (*models.Conversation, error) {
	memberIDs := dedupeMemberIDs(creatorID, request.ParticipantIDs)

	for _, id := range memberIDs {
		exists, err := s.authRepo.UserExists(id)
		if err != nil {
			log.Printf("CreateConversation: user lookup failed: %v", err)
			return nil, apiError.ErrInternalServerError
		}
		if !exists {
			return nil, apiError.New("participant does not exist", http.StatusNotFound)
		}
	}

	if !request.IsGroup {
		if len(memberIDs) != 2 {
			return nil, apiError.New("a direct conversation requires exactly one other participant", http.StatusBadRequest)
		}
		existing, err := s.convRepo.FindDirectConversation(memberIDs[0], memberIDs[1])
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("CreateConversation: direct lookup failed: %v", err)
			return nil, apiError.ErrInternalServerError
		}
	}

	conversation := &models.Conversation{
		ID:      uuid.New(),
		IsGroup: request.IsGroup,
	}
	if request.IsGroup {
		conversation.Title = request.Title
		conversation.GroupPicture = request.GroupPicture
	}

	if err := s.convRepo.CreateConversation(conversation, memberIDs); err != nil {
		log.Printf("CreateConversation: %v", err)
		return nil, apiError.ErrInternalServerError
	}

	created, err := s.convRepo.FindConversationByID(conversation.ID)
	if err != nil {
		log.Printf("CreateConversation: reload failed: %v", err)
		return nil, apiError.ErrInternalServerError
	}

	// Attach every member's live connection to the new channel so the first
	// message already reaches whoever is connected; offline members are a
	// no-op and pick the channel up when they reconnect.
	for _, id := range memberIDs {
		s.pusher.Subscribe(conversation.ID, id)
	}

	return created, nil
}

// JoinConversation adds the user to the conversation. Joining twice returns
// the existing membership unchanged.
func (s *conversationService) JoinConversation(conversationID uuid.UUID, userID uint) (*models.Membership, error) {
	if _, err := s.convRepo.FindConversationByID(conversationID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apiError.ErrNotFound
		}
		log.Printf("JoinConversation: %v", err)
		return nil, apiError.ErrInternalServerError
	}

	if existing, err := s.convRepo.GetMembership(conversationID, userID); err == nil {
		return existing, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("JoinConversation: membership lookup failed: %v", err)
		return nil, apiError.ErrInternalServerError
	}

	membership := &models.Membership{
		ConversationID: conversationID,
		UserID:         userID,
		JoinedAt:       time.Now(),
	}
	if err := s.convRepo.CreateMembership(membership); err != nil {
		log.Printf("JoinConversation: %v", err)
		return nil, apiError.ErrInternalServerError
	}

	// Attach the joiner's live connection, if any, then tell the channel.
	s.pusher.Subscribe(conversationID, userID)
	if user, err := s.authRepo.FindUserByID(userID); err == nil {
		s.pusher.PushToConversation(conversationID, realtime.NewUserJoinedEvent(conversationID, user.Preview()))
	}

	return membership, nil
}

func (s *conversationService) GetConversation(conversationID uuid.UUID, userID uint) (*models.ConversationView, error) {
	conversation, err := s.convRepo.FindConversationByID(conversationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apiError.ErrNotFound
		}
		log.Printf("GetConversation: %v", err)
		return nil, apiError.ErrInternalServerError
	}

	member, err := s.convRepo.IsMember(conversationID, userID)
	if err != nil {
		log.Printf("GetConversation: membership check failed: %v", err)
		return nil, apiError.ErrInternalServerError
	}
	if !member {
		return nil, apiError.ErrForbidden
	}

	view := s.buildConversationView(conversation, userID)
	return &view, nil
}

func (s *conversationService) ListUserConversations(userID uint) ([]models.ConversationView, error) {
	conversations, err := s.convRepo.ListUserConversations(userID)
	if err != nil {
		log.Printf("ListUserConversations: %v", err)
		return nil, apiError.ErrInternalServerError
	}

	views := make([]models.ConversationView, 0, len(conversations))
	for i := range conversations {
		views = append(views, s.buildConversationView(&conversations[i], userID))
	}
	return views, nil
}

func (s *conversationService) UserConversationIDs(userID uint) ([]uuid.UUID, error) {
	ids, err := s.convRepo.UserConversationIDs(userID)
	if err != nil {
		log.Printf("UserConversationIDs: %v", err)
		return nil, apiError.ErrInternalServerError
	}
	return ids, nil
}

func (s *conversationService) buildConversationView(conversation *models.Conversation, viewerID uint) models.ConversationView {
	view := models.ConversationView{
		ID:           conversation.ID,
		Title:        conversation.Title,
		IsGroup:      conversation.IsGroup,
		GroupPicture: conversation.GroupPicture,
		CreatedAt:    conversation.CreatedAt,
		UpdatedAt:    conversation.UpdatedAt,
		Participants: make([]models.UserPreview, 0, len(conversation.Memberships)),
	}
	for _, membership := range conversation.Memberships {
		view.Participants = append(view.Participants, membership.User.Preview())
	}

	if last, err := s.messageRepo.LastMessage(conversation.ID); err == nil {
		lastView := hydrateMessage(last, viewerID)
		view.LastMessage = &lastView
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("buildConversationView: last message lookup failed: %v", err)
	}

	if count, err := s.receiptRepo.UnreadCount(conversation.ID, viewerID); err == nil {
		view.UnreadCount = count
	} else {
		log.Printf("buildConversationView: unread count failed: %v", err)
	}

	return view
}

// dedupeMemberIDs returns the creator plus participants with duplicates
// removed, creator first.
func dedupeMemberIDs(creatorID uint, participantIDs []uint) []uint {
	seen := map[uint]bool{creatorID: true}
	ids := []uint{creatorID}
	for _, id := range participantIDs {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}
