package server

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	errs "github.com/mercatohq/mercato/errors"
	"github.com/mercatohq/mercato/models"
	"github.com/mercatohq/mercato/server/response"
)

func (s *Server) handleSignup() gin.HandlerFunc {
	return func(c *gin.Context) {
		var user models.User
		if err := c.ShouldBindJSON(&user); err != nil {
			response.JSON(c, bindingErrorMessage(err), http.StatusBadRequest, nil, errs.ErrBadRequest)
			return
		}

		createdUser, err := s.AuthService.SignupUser(&user)
		if err != nil {
			response.HandleErrors(c, err)
			return
		}

		responseData := models.UserResponse{
			ID:           createdUser.ID,
			Fullname:     createdUser.Fullname,
			Username:     createdUser.Username,
			Email:        createdUser.Email,
			ThumbNailURL: createdUser.ThumbNailURL,
		}
		response.JSON(c, "signup successful", http.StatusCreated, responseData, nil)
	}
}

func (s *Server) handleLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		var loginRequest models.LoginRequest
		if err := c.ShouldBindJSON(&loginRequest); err != nil {
			response.JSON(c, bindingErrorMessage(err), errs.ErrBadRequest.Status, nil, errs.ErrBadRequest)
			return
		}
		userResponse, err := s.AuthService.LoginUser(&loginRequest)
		if err != nil {
			response.JSON(c, "", err.Status, nil, err)
			return
		}
		response.JSON(c, "login successful", http.StatusOK, userResponse, nil)
	}
}

func (s *Server) handleLogout() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, exists := c.Get("access_token")
		if !exists {
			respondAndAbort(c, "access token not found in context", http.StatusInternalServerError, nil, errs.ErrInternalServerError)
			return
		}
		accessToken, ok := token.(string)
		if !ok {
			respondAndAbort(c, "access token is not a string", http.StatusInternalServerError, nil, errs.ErrInternalServerError)
			return
		}

		blackListEntry := &models.Blacklist{
			Token: accessToken,
		}
		if err := s.AuthRepository.AddToBlackList(blackListEntry); err != nil {
			log.Printf("error adding access token to blacklist: %v", err)
			respondAndAbort(c, "logout failed", http.StatusInternalServerError, nil, errs.ErrInternalServerError)
			return
		}

		response.JSON(c, "logout successful", http.StatusOK, nil, nil)
	}
}

func (s *Server) handleShowProfile() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			response.JSON(c, "", http.StatusUnauthorized, nil, errs.ErrUnauthorized)
			return
		}

		user, err := s.AuthService.GetUserProfile(userID)
		if err != nil {
			response.HandleErrors(c, err)
			return
		}

		responseData := gin.H{
			"email":        user.Email,
			"name":         user.Fullname,
			"profileImage": user.ThumbNailURL,
			"username":     user.Username,
		}
		response.JSON(c, "user profile retrieved successfully", http.StatusOK, responseData, nil)
	}
}

// handleGetOnlineUsers reports users with a live connection in the registry.
func (s *Server) handleGetOnlineUsers() gin.HandlerFunc {
	return func(c *gin.Context) {
		ids := s.Hub.OnlineUserIDs()
		users, err := s.AuthRepository.FindUsersByIDs(ids)
		if err != nil {
			response.JSON(c, "error fetching online users", http.StatusInternalServerError, nil, err)
			return
		}

		previews := make([]models.UserPreview, 0, len(users))
		for i := range users {
			previews = append(previews, users[i].Preview())
		}
		response.JSON(c, "successfully fetched online users", http.StatusOK, previews, nil)
	}
}
