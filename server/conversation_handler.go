package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	errs "github.com/mercatohq/mercato/errors"
	"github.com/mercatohq/mercato/models"
	"github.com/mercatohq/mercato/server/response"
)

func (s *Server) handleCreateConversation() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			response.JSON(c, "", http.StatusUnauthorized, nil, errs.ErrUnauthorized)
			return
		}

		var request models.CreateConversationRequest
		if err := c.ShouldBindJSON(&request); err != nil {
			response.JSON(c, bindingErrorMessage(err), http.StatusBadRequest, nil, errs.ErrBadRequest)
			return
		}

		conversation, err := s.ConversationService.CreateConversation(userID, &request)
		if err != nil {
			response.HandleErrors(c, err)
			return
		}
		response.JSON(c, "conversation created", http.StatusCreated, conversation, nil)
	}
}

func (s *Server) handleListConversations() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			response.JSON(c, "", http.StatusUnauthorized, nil, errs.ErrUnauthorized)
			return
		}

		conversations, err := s.ConversationService.ListUserConversations(userID)
		if err != nil {
			response.HandleErrors(c, err)
			return
		}
		response.JSON(c, "conversations retrieved", http.StatusOK, conversations, nil)
	}
}

func (s *Server) handleGetConversation() gin.HandlerFunc {
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

		conversation, err := s.ConversationService.GetConversation(conversationID, userID)
		if err != nil {
			response.HandleErrors(c, err)
			return
		}
		response.JSON(c, "conversation retrieved", http.StatusOK, conversation, nil)
	}
}

func (s *Server) handleJoinConversation() gin.HandlerFunc {
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

		membership, err := s.ConversationService.JoinConversation(conversationID, userID)
		if err != nil {
			response.HandleErrors(c, err)
			return
		}
		response.JSON(c, "joined conversation", http.StatusOK, membership, nil)
	}
}
