package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	errs "github.com/mercatohq/mercato/errors"
	"github.com/mercatohq/mercato/models"
	"github.com/mercatohq/mercato/server/response"
	"github.com/mercatohq/mercato/services"
)

// notificationCreator is the shared shape of the per-kind creation methods.
type notificationCreator func(actorID uint, request *models.NotificationEventRequest) (*models.Notification, error)

// handleNotificationEvent is the common intake for the domain-event
// endpoints. A no-op (absent or self recipient) responds 200 with no data.
func (s *Server) handleNotificationEvent(create notificationCreator) gin.HandlerFunc {
	return func(c *gin.Context) {
		actorID, ok := currentUserID(c)
		if !ok {
			response.JSON(c, "", http.StatusUnauthorized, nil, errs.ErrUnauthorized)
			return
		}

		var request models.NotificationEventRequest
		if err := c.ShouldBindJSON(&request); err != nil {
			response.JSON(c, bindingErrorMessage(err), http.StatusBadRequest, nil, errs.ErrBadRequest)
			return
		}

		notification, err := create(actorID, &request)
		if err != nil {
			response.HandleErrors(c, err)
			return
		}
		if notification == nil {
			response.JSON(c, "notification not created", http.StatusOK, nil, nil)
			return
		}
		response.JSON(c, "notification created", http.StatusCreated, notification, nil)
	}
}

func (s *Server) handleFollowEvent() gin.HandlerFunc {
	return s.handleNotificationEvent(func(actorID uint, request *models.NotificationEventRequest) (*models.Notification, error) {
		return s.NotificationService.CreateFollowNotification(actorID, request.RecipientID)
	})
}

func (s *Server) handleArticleLikeEvent() gin.HandlerFunc {
	return s.handleNotificationEvent(func(actorID uint, request *models.NotificationEventRequest) (*models.Notification, error) {
		return s.NotificationService.CreateArticleLikeNotification(actorID, request.RecipientID, request.ArticleID)
	})
}

func (s *Server) handleArticleCommentEvent() gin.HandlerFunc {
	return s.handleNotificationEvent(func(actorID uint, request *models.NotificationEventRequest) (*models.Notification, error) {
		return s.NotificationService.CreateArticleCommentNotification(actorID, request.RecipientID, request.ArticleID, request.CommentID)
	})
}

func (s *Server) handleRepostEvent() gin.HandlerFunc {
	return s.handleNotificationEvent(func(actorID uint, request *models.NotificationEventRequest) (*models.Notification, error) {
		return s.NotificationService.CreateRepostNotification(actorID, request.RecipientID, request.ArticleID)
	})
}

func (s *Server) handleGetNotifications() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			response.JSON(c, "", http.StatusUnauthorized, nil, errs.ErrUnauthorized)
			return
		}

		page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
		pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(services.DefaultNotificationPageSize)))

		notifications, err := s.NotificationService.GetUnreadNotifications(userID, page, pageSize)
		if err != nil {
			response.HandleErrors(c, err)
			return
		}
		response.JSON(c, "notifications retrieved", http.StatusOK, notifications, nil)
	}
}

func (s *Server) handleGetNotificationStats() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			response.JSON(c, "", http.StatusUnauthorized, nil, errs.ErrUnauthorized)
			return
		}

		stats, err := s.NotificationService.Stats(userID)
		if err != nil {
			response.HandleErrors(c, err)
			return
		}
		response.JSON(c, "notification stats retrieved", http.StatusOK, stats, nil)
	}
}

func (s *Server) handleMarkNotificationRead() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			response.JSON(c, "", http.StatusUnauthorized, nil, errs.ErrUnauthorized)
			return
		}

		notificationID, err := strconv.ParseUint(c.Param("notificationID"), 10, 64)
		if err != nil {
			response.JSON(c, "invalid notification id", http.StatusBadRequest, nil, err)
			return
		}

		if err := s.NotificationService.MarkRead(uint(notificationID), userID); err != nil {
			response.HandleErrors(c, err)
			return
		}
		response.JSON(c, "notification marked read", http.StatusOK, nil, nil)
	}
}

func (s *Server) handleMarkAllNotificationsRead() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			response.JSON(c, "", http.StatusUnauthorized, nil, errs.ErrUnauthorized)
			return
		}

		if err := s.NotificationService.MarkAllRead(userID); err != nil {
			response.HandleErrors(c, err)
			return
		}
		response.JSON(c, "notifications marked read", http.StatusOK, nil, nil)
	}
}
