package services

import (
	"github.com/google/uuid"
	"github.com/mercatohq/mercato/realtime"
)

// LivePusher is the live-delivery seam the services publish through. The
// realtime hub satisfies it; tests substitute a recorder. Delivery is
// best-effort and at-most-once: the persisted row is the durable record,
// nothing depends on a push landing.
type LivePusher interface {
	PushToConversation(conversationID uuid.UUID, event realtime.Event)
	PushToUser(userID uint, event realtime.Event) bool
	Subscribe(conversationID uuid.UUID, userID uint)
}
