package services

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/mercatohq/mercato/models"
	"github.com/mercatohq/mercato/realtime"
	"gorm.io/gorm"
)

// memStore is the in-memory backing shared by the fake repositories, so a
// test can wire several services over one consistent data set.
type memStore struct {
	users         map[uint]*models.User
	conversations map[uuid.UUID]*models.Conversation
	memberships   map[uuid.UUID]map[uint]models.Membership
	messages      map[uuid.UUID]*models.Message
	messageSeq    map[uuid.UUID]int
	seq           int
	receipts      map[uuid.UUID]map[uint]models.ReadReceipt
	notifications map[uint]*models.Notification
	nextNotifID   uint
}

func newMemStore() *memStore {
	return &memStore{
		users:         make(map[uint]*models.User),
		conversations: make(map[uuid.UUID]*models.Conversation),
		memberships:   make(map[uuid.UUID]map[uint]models.Membership),
		messages:      make(map[uuid.UUID]*models.Message),
		messageSeq:    make(map[uuid.UUID]int),
		receipts:      make(map[uuid.UUID]map[uint]models.ReadReceipt),
		notifications: make(map[uint]*models.Notification),
	}
}

func (m *memStore) addUser(id uint, username string) *models.User {
	user := &models.User{
		Username: username,
		Fullname: username,
		Email:    username + "@example.com",
		IsActive: true,
	}
	user.ID = id
	m.users[id] = user
	return user
}

func (m *memStore) memberIDs(conversationID uuid.UUID) []uint {
	var ids []uint
	for id := range m.memberships[conversationID] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// hydrate returns a copy of the message with sender, receipts and the
// one-level reply preview resolved, the way the gorm preloads would.
func (m *memStore) hydrate(message *models.Message) *models.Message {
	clone := *message
	if sender, ok := m.users[clone.SenderID]; ok {
		clone.Sender = *sender
	}
	clone.ReadReceipts = nil
	for _, receipt := range m.receipts[clone.ID] {
		r := receipt
		if user, ok := m.users[r.UserID]; ok {
			r.User = *user
		}
		clone.ReadReceipts = append(clone.ReadReceipts, r)
	}
	if clone.ReplyToMessageID != nil {
		if target, ok := m.messages[*clone.ReplyToMessageID]; ok {
			targetClone := *target
			if sender, ok := m.users[targetClone.SenderID]; ok {
				targetClone.Sender = *sender
			}
			clone.ReplyTo = &targetClone
		}
	}
	return &clone
}

func (m *memStore) conversationWithMembers(conversationID uuid.UUID) *models.Conversation {
	conversation, ok := m.conversations[conversationID]
	if !ok {
		return nil
	}
	clone := *conversation
	clone.Memberships = nil
	for _, id := range m.memberIDs(conversationID) {
		membership := m.memberships[conversationID][id]
		if user, ok := m.users[id]; ok {
			membership.User = *user
		}
		clone.Memberships = append(clone.Memberships, membership)
	}
	return &clone
}

func (m *memStore) sortedMessages(filter func(*models.Message) bool) []models.Message {
	var out []*models.Message
	for _, message := range m.messages {
		if filter(message) {
			out = append(out, message)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SentAt.Equal(out[j].SentAt) {
			return m.messageSeq[out[i].ID] > m.messageSeq[out[j].ID]
		}
		return out[i].SentAt.After(out[j].SentAt)
	})
	hydrated := make([]models.Message, 0, len(out))
	for _, message := range out {
		hydrated = append(hydrated, *m.hydrate(message))
	}
	return hydrated
}

func (m *memStore) isUnreadFor(message *models.Message, userID uint) bool {
	if message.SenderID == userID {
		return false
	}
	if _, member := m.memberships[message.ConversationID][userID]; !member {
		return false
	}
	_, read := m.receipts[message.ID][userID]
	return !read
}

// fakeAuthRepo

type fakeAuthRepo struct{ store *memStore }

func (f *fakeAuthRepo) CreateUser(user *models.User) (*models.User, error) {
	user.ID = uint(len(f.store.users) + 1)
	f.store.users[user.ID] = user
	return user, nil
}

func (f *fakeAuthRepo) IsEmailExist(email string) error          { return nil }
func (f *fakeAuthRepo) IsUsernameExist(name string) error        { return nil }
func (f *fakeAuthRepo) AddToBlackList(b *models.Blacklist) error { return nil }
func (f *fakeAuthRepo) IsTokenInBlacklist(token string) bool     { return false }

func (f *fakeAuthRepo) FindUserByEmail(email string) (*models.User, error) {
	for _, user := range f.store.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeAuthRepo) FindUserByID(id uint) (*models.User, error) {
	user, ok := f.store.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (f *fakeAuthRepo) FindUsersByIDs(ids []uint) ([]models.User, error) {
	var users []models.User
	for _, id := range ids {
		if user, ok := f.store.users[id]; ok {
			users = append(users, *user)
		}
	}
	return users, nil
}

func (f *fakeAuthRepo) UserExists(id uint) (bool, error) {
	_, ok := f.store.users[id]
	return ok, nil
}

// fakeConversationRepo

type fakeConversationRepo struct{ store *memStore }

func (f *fakeConversationRepo) CreateConversation(conversation *models.Conversation, memberIDs []uint) error {
	now := time.Now()
	conversation.CreatedAt = now
	conversation.UpdatedAt = now
	f.store.conversations[conversation.ID] = conversation
	f.store.memberships[conversation.ID] = make(map[uint]models.Membership)
	for _, userID := range memberIDs {
		f.store.memberships[conversation.ID][userID] = models.Membership{
			ConversationID: conversation.ID,
			UserID:         userID,
			JoinedAt:       now,
		}
	}
	return nil
}

func (f *fakeConversationRepo) FindConversationByID(id uuid.UUID) (*models.Conversation, error) {
	conversation := f.store.conversationWithMembers(id)
	if conversation == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return conversation, nil
}

func (f *fakeConversationRepo) FindDirectConversation(userA, userB uint) (*models.Conversation, error) {
	for id, conversation := range f.store.conversations {
		if conversation.IsGroup {
			continue
		}
		members := f.store.memberIDs(id)
		if len(members) != 2 {
			continue
		}
		if (members[0] == userA && members[1] == userB) || (members[0] == userB && members[1] == userA) {
			return f.store.conversationWithMembers(id), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeConversationRepo) CreateMembership(membership *models.Membership) error {
	if f.store.memberships[membership.ConversationID] == nil {
		f.store.memberships[membership.ConversationID] = make(map[uint]models.Membership)
	}
	f.store.memberships[membership.ConversationID][membership.UserID] = *membership
	return nil
}

func (f *fakeConversationRepo) GetMembership(conversationID uuid.UUID, userID uint) (*models.Membership, error) {
	membership, ok := f.store.memberships[conversationID][userID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &membership, nil
}

func (f *fakeConversationRepo) IsMember(conversationID uuid.UUID, userID uint) (bool, error) {
	_, ok := f.store.memberships[conversationID][userID]
	return ok, nil
}

func (f *fakeConversationRepo) MemberIDs(conversationID uuid.UUID) ([]uint, error) {
	return f.store.memberIDs(conversationID), nil
}

func (f *fakeConversationRepo) ListUserConversations(userID uint) ([]models.Conversation, error) {
	var conversations []models.Conversation
	for id := range f.store.conversations {
		if _, ok := f.store.memberships[id][userID]; ok {
			conversations = append(conversations, *f.store.conversationWithMembers(id))
		}
	}
	sort.Slice(conversations, func(i, j int) bool {
		return conversations[i].UpdatedAt.After(conversations[j].UpdatedAt)
	})
	return conversations, nil
}

func (f *fakeConversationRepo) UserConversationIDs(userID uint) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for id := range f.store.conversations {
		if _, ok := f.store.memberships[id][userID]; ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// fakeMessageRepo

type fakeMessageRepo struct{ store *memStore }

func (f *fakeMessageRepo) SaveMessage(message *models.Message) error {
	f.store.seq++
	f.store.messageSeq[message.ID] = f.store.seq
	f.store.messages[message.ID] = message
	if conversation, ok := f.store.conversations[message.ConversationID]; ok {
		conversation.UpdatedAt = message.SentAt
	}
	return nil
}

func (f *fakeMessageRepo) FindMessageByID(id uuid.UUID) (*models.Message, error) {
	message, ok := f.store.messages[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return message, nil
}

func (f *fakeMessageRepo) FindMessageHydrated(id uuid.UUID) (*models.Message, error) {
	message, ok := f.store.messages[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return f.store.hydrate(message), nil
}

func (f *fakeMessageRepo) GetConversationMessages(conversationID uuid.UUID, offset, limit int) ([]models.Message, error) {
	messages := f.store.sortedMessages(func(m *models.Message) bool {
		return m.ConversationID == conversationID
	})
	if offset >= len(messages) {
		return nil, nil
	}
	end := offset + limit
	if end > len(messages) {
		end = len(messages)
	}
	return messages[offset:end], nil
}

func (f *fakeMessageRepo) LastMessage(conversationID uuid.UUID) (*models.Message, error) {
	messages := f.store.sortedMessages(func(m *models.Message) bool {
		return m.ConversationID == conversationID
	})
	if len(messages) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &messages[0], nil
}

// fakeReceiptRepo

type fakeReceiptRepo struct{ store *memStore }

// CreateReceipt mirrors the on-conflict-do-nothing insert: a duplicate
// (message, user) pair keeps the first receipt and reports no error.
func (f *fakeReceiptRepo) CreateReceipt(receipt *models.ReadReceipt) error {
	if f.store.receipts[receipt.MessageID] == nil {
		f.store.receipts[receipt.MessageID] = make(map[uint]models.ReadReceipt)
	}
	if _, ok := f.store.receipts[receipt.MessageID][receipt.UserID]; ok {
		return nil
	}
	f.store.receipts[receipt.MessageID][receipt.UserID] = *receipt
	return nil
}

func (f *fakeReceiptRepo) HasReceipt(messageID uuid.UUID, userID uint) (bool, error) {
	_, ok := f.store.receipts[messageID][userID]
	return ok, nil
}

func (f *fakeReceiptRepo) CreateReceipts(receipts []models.ReadReceipt) error {
	for i := range receipts {
		if err := f.CreateReceipt(&receipts[i]); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeReceiptRepo) UnreadMessages(userID uint) ([]models.Message, error) {
	return f.store.sortedMessages(func(m *models.Message) bool {
		return f.store.isUnreadFor(m, userID)
	}), nil
}

func (f *fakeReceiptRepo) UnreadMessagesInConversation(conversationID uuid.UUID, userID uint) ([]models.Message, error) {
	return f.store.sortedMessages(func(m *models.Message) bool {
		return m.ConversationID == conversationID && f.store.isUnreadFor(m, userID)
	}), nil
}

func (f *fakeReceiptRepo) UnreadCount(conversationID uuid.UUID, userID uint) (int64, error) {
	messages, _ := f.UnreadMessagesInConversation(conversationID, userID)
	return int64(len(messages)), nil
}

// fakeNotificationRepo

type fakeNotificationRepo struct{ store *memStore }

func (f *fakeNotificationRepo) CreateNotification(notification *models.Notification) error {
	f.store.nextNotifID++
	notification.ID = f.store.nextNotifID
	notification.CreatedAt = time.Now()
	f.store.notifications[notification.ID] = notification
	return nil
}

func (f *fakeNotificationRepo) FindNotificationByID(id uint) (*models.Notification, error) {
	notification, ok := f.store.notifications[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *notification
	if actor, ok := f.store.users[clone.ActorID]; ok {
		clone.Actor = *actor
	}
	return &clone, nil
}

func (f *fakeNotificationRepo) GetUnreadNotifications(recipientID uint, offset, limit int) ([]models.Notification, error) {
	var out []models.Notification
	for _, notification := range f.store.notifications {
		if notification.RecipientID == recipientID && !notification.IsRead {
			clone := *notification
			if actor, ok := f.store.users[clone.ActorID]; ok {
				clone.Actor = *actor
			}
			out = append(out, clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if offset >= len(out) {
		return nil, nil
	}
	end := offset + limit
	if end > len(out) {
		end = len(out)
	}
	return out[offset:end], nil
}

func (f *fakeNotificationRepo) MarkNotificationRead(id uint) error {
	if notification, ok := f.store.notifications[id]; ok {
		notification.IsRead = true
	}
	return nil
}

func (f *fakeNotificationRepo) MarkAllNotificationsRead(recipientID uint) error {
	for _, notification := range f.store.notifications {
		if notification.RecipientID == recipientID {
			notification.IsRead = true
		}
	}
	return nil
}

func (f *fakeNotificationRepo) NotificationStats(recipientID uint) (*models.NotificationStats, error) {
	stats := &models.NotificationStats{}
	for _, notification := range f.store.notifications {
		if notification.RecipientID != recipientID {
			continue
		}
		stats.Total++
		if !notification.IsRead {
			stats.Unread++
		}
	}
	return stats, nil
}

// fakePusher records live pushes instead of delivering them.

type fakePusher struct {
	conversationEvents map[uuid.UUID][]realtime.Event
	userEvents         map[uint][]realtime.Event
	subscriptions      map[uuid.UUID][]uint
}

func newFakePusher() *fakePusher {
	return &fakePusher{
		conversationEvents: make(map[uuid.UUID][]realtime.Event),
		userEvents:         make(map[uint][]realtime.Event),
		subscriptions:      make(map[uuid.UUID][]uint),
	}
}

func (f *fakePusher) PushToConversation(conversationID uuid.UUID, event realtime.Event) {
	f.conversationEvents[conversationID] = append(f.conversationEvents[conversationID], event)
}

func (f *fakePusher) PushToUser(userID uint, event realtime.Event) bool {
	f.userEvents[userID] = append(f.userEvents[userID], event)
	return true
}

func (f *fakePusher) Subscribe(conversationID uuid.UUID, userID uint) {
	f.subscriptions[conversationID] = append(f.subscriptions[conversationID], userID)
}

// harness wires every service over one memStore.
type harness struct {
	store  *memStore
	pusher *fakePusher

	conversations ConversationService
	messages      MessageService
	receipts      ReceiptService
	notifications NotificationService
}

func newHarness() *harness {
	store := newMemStore()
	pusher := newFakePusher()

	authRepo := &fakeAuthRepo{store: store}
	convRepo := &fakeConversationRepo{store: store}
	messageRepo := &fakeMessageRepo{store: store}
	receiptRepo := &fakeReceiptRepo{store: store}
	notificationRepo := &fakeNotificationRepo{store: store}

	return &harness{
		store:         store,
		pusher:        pusher,
		conversations: NewConversationService(convRepo, messageRepo, receiptRepo, authRepo, pusher, nil),
		messages:      NewMessageService(messageRepo, convRepo, pusher, nil),
		receipts:      NewReceiptService(receiptRepo, messageRepo, convRepo, pusher, nil),
		notifications: NewNotificationService(notificationRepo, authRepo, pusher, nil),
	}
}
