package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	errs "github.com/mercatohq/mercato/errors"
	"github.com/mercatohq/mercato/models"
	"github.com/mercatohq/mercato/server/response"
	"github.com/mercatohq/mercato/services"
)

// handleSendMessage persists a message in the conversation; when
// reply_to_message_id is set it becomes a reply and the target must live in
// the same conversation.
func (s *Server) handleSendMessage() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			response.JSON(c, "", http.StatusUnauthorized, nil, errs.ErrUnauthorized)
			return
		}

		conversationID, err := uuid.Parse(c.Param("conversationID"))
		if err != nil {
			response.JSON(c, "invalid conversation id", http.StatusBadRequest, nil, err)
			return
		}

		var request models.SendMessageRequest
		if err := c.ShouldBindJSON(&request); err != nil {
			response.JSON(c, bindingErrorMessage(err), http.StatusBadRequest, nil, errs.ErrBadRequest)
			return
		}

		var message *models.MessageView
		if request.ReplyToMessageID != nil {
			message, err = s.MessageService.ReplyToMessage(conversationID, userID, request.Content, request.Type, request.Attachment, *request.ReplyToMessageID)
		} else {
			message, err = s.MessageService.SendMessage(conversationID, userID, request.Content, request.Type, request.Attachment)
		}
		if err != nil {
			response.HandleErrors(c, err)
			return
		}
		response.JSON(c, "message sent", http.StatusCreated, message, nil)
	}
}

func (s *Server) handleGetMessages() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			response.JSON(c, "", http.StatusUnauthorized, nil, errs.ErrUnauthorized)
			return
		}

		conversationID, err := uuid.Parse(c.Param("conversationID"))
		if err != nil {
			response.JSON(c, "invalid conversation id", http.StatusBadRequest, nil, err)
			return
		}

		page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
		pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(services.DefaultMessagePageSize)))

		messages, err := s.MessageService.GetMessages(conversationID, userID, page, pageSize)
		if err != nil {
			response.HandleErrors(c, err)
			return
		}
		response.JSON(c, "messages retrieved", http.StatusOK, messages, nil)
	}
}

func (s *Server) handleMarkMessageRead() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			response.JSON(c, "", http.StatusUnauthorized, nil, errs.ErrUnauthorized)
			return
		}

		messageID, err := uuid.Parse(c.Param("messageID"))
		if err != nil {
			response.JSON(c, "invalid message id", http.StatusBadRequest, nil, err)
			return
		}

		if err := s.ReceiptService.MarkMessageRead(messageID, userID); err != nil {
			response.HandleErrors(c, err)
			return
		}
		response.JSON(c, "message marked read", http.StatusOK, nil, nil)
	}
}

func (s *Server) handleMarkAllRead() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			response.JSON(c, "", http.StatusUnauthorized, nil, errs.ErrUnauthorized)
			return
		}

		conversationID, err := uuid.Parse(c.Param("conversationID"))
		if err != nil {
			response.JSON(c, "invalid conversation id", http.StatusBadRequest, nil, err)
			return
		}

		if err := s.ReceiptService.MarkAllRead(conversationID, userID); err != nil {
			response.HandleErrors(c, err)
			return
		}
		response.JSON(c, "conversation marked read", http.StatusOK, nil, nil)
	}
}

func (s *Server) handleGetUnreadMessages() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			response.JSON(c, "", http.StatusUnauthorized, nil, errs.ErrUnauthorized)
			return
		}

		summary, err := s.ReceiptService.GetUnreadForUser(userID)
		if err != nil {
			response.HandleErrors(c, err)
			return
		}
		response.JSON(c, "unread messages retrieved", http.StatusOK, summary, nil)
	}
}
