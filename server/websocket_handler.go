package server

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mercatohq/mercato/models"
	"github.com/mercatohq/mercato/realtime"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Client frame actions.
const (
	actionSendMessage       = "sendMessage"
	actionReplyToMessage    = "replyToMessage"
	actionJoinConversation  = "joinConversation"
	actionLeaveConversation = "leaveConversation"
	actionMarkAsRead        = "markAsRead"
)

// inboundFrame is the single envelope for every client-to-server action.
type inboundFrame struct {
	Action           string             `json:"action"`
	ConversationID   uuid.UUID          `json:"conversation_id,omitempty"`
	MessageID        uuid.UUID          `json:"message_id,omitempty"`
	Content          string             `json:"content,omitempty"`
	Type             models.MessageType `json:"type,omitempty"`
	Attachment       *string            `json:"attachment,omitempty"`
	ReplyToMessageID *uuid.UUID         `json:"reply_to_message_id,omitempty"`
}

// handleWebSocket upgrades the connection, registers presence and subscribes
// the new connection to the broadcast channel of every conversation the user
// currently belongs to.
func (s *Server) handleWebSocket() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		conversationIDs, err := s.ConversationService.UserConversationIDs(userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load conversations"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("websocket upgrade failed for user %d: %v", userID, err)
			return
		}

		client := realtime.NewClient(s.Hub, userID, conn)
		s.Hub.Register(client, conversationIDs)

		go client.WritePump()
		client.ReadPump(func(data []byte) {
			s.dispatchFrame(client, data)
		})
	}
}

// dispatchFrame routes one client frame to the matching service call.
// Failures are pushed back on the same connection only; the durable write
// path reports its own errors.
func (s *Server) dispatchFrame(client *realtime.Client, data []byte) {
	var frame inboundFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		s.Hub.PushToUser(client.UserID, realtime.NewErrorEvent("malformed frame"))
		return
	}

	switch frame.Action {
	case actionSendMessage:
		_, err := s.MessageService.SendMessage(frame.ConversationID, client.UserID, frame.Content, frame.Type, frame.Attachment)
		if err != nil {
			s.Hub.PushToUser(client.UserID, realtime.NewErrorEvent(err.Error()))
		}

	case actionReplyToMessage:
		if frame.ReplyToMessageID == nil {
			s.Hub.PushToUser(client.UserID, realtime.NewErrorEvent("reply_to_message_id is required"))
			return
		}
		_, err := s.MessageService.ReplyToMessage(frame.ConversationID, client.UserID, frame.Content, frame.Type, frame.Attachment, *frame.ReplyToMessageID)
		if err != nil {
			s.Hub.PushToUser(client.UserID, realtime.NewErrorEvent(err.Error()))
		}

	case actionJoinConversation:
		if _, err := s.ConversationService.JoinConversation(frame.ConversationID, client.UserID); err != nil {
			s.Hub.PushToUser(client.UserID, realtime.NewErrorEvent(err.Error()))
		}

	case actionLeaveConversation:
		// Channel subscription only; membership rows are untouched.
		s.Hub.Unsubscribe(frame.ConversationID, client.UserID)

	case actionMarkAsRead:
		if err := s.ReceiptService.MarkMessageRead(frame.MessageID, client.UserID); err != nil {
			s.Hub.PushToUser(client.UserID, realtime.NewErrorEvent(err.Error()))
		}

	default:
		s.Hub.PushToUser(client.UserID, realtime.NewErrorEvent("unknown action"))
	}
}
