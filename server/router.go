package server

import (
	"fmt"
	"os"
	"time"

	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func (s *Server) setupRouter() *gin.Engine {
	ginMode := os.Getenv("GIN_MODE")
	if ginMode == "test" {
		r := gin.New()
		s.defineRoutes(r)
		return r
	}

	r := gin.New()
	r.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
			param.ClientIP,
			param.TimeStamp.Format(time.RFC1123),
			param.Method,
			param.Path,
			param.Request.Proto,
			param.StatusCode,
			param.Latency,
			param.Request.UserAgent(),
			param.ErrorMessage,
		)
	}))
	r.Use(gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	s.defineRoutes(r)

	return r
}

func (s *Server) defineRoutes(router *gin.Engine) {
	store := ratelimit.InMemoryStore(&ratelimit.InMemoryOptions{Rate: time.Minute, Limit: 10})
	limitAuthRate := limitRateForAuth(store)

	apirouter := router.Group("/api/v1")
	apirouter.POST("/auth/signup", limitAuthRate, s.handleSignup())
	apirouter.POST("/auth/login", limitAuthRate, s.handleLogin())

	authorized := apirouter.Group("/")
	authorized.Use(s.Authorize())
	authorized.GET("/logout", s.handleLogout())
	authorized.GET("/me", s.handleShowProfile())
	authorized.GET("/users/online", s.handleGetOnlineUsers())

	authorized.POST("/conversations", s.handleCreateConversation())
	authorized.GET("/conversations", s.handleListConversations())
	authorized.GET("/conversations/:conversationID", s.handleGetConversation())
	authorized.POST("/conversations/:conversationID/join", s.handleJoinConversation())
	authorized.GET("/conversations/:conversationID/messages", s.handleGetMessages())
	authorized.POST("/conversations/:conversationID/messages", s.handleSendMessage())
	authorized.PUT("/conversations/:conversationID/read", s.handleMarkAllRead())
	authorized.PUT("/messages/:messageID/read", s.handleMarkMessageRead())
	authorized.GET("/messages/unread", s.handleGetUnreadMessages())

	authorized.GET("/notifications", s.handleGetNotifications())
	authorized.GET("/notifications/stats", s.handleGetNotificationStats())
	authorized.PUT("/notifications/read", s.handleMarkAllNotificationsRead())
	authorized.PUT("/notifications/:notificationID/read", s.handleMarkNotificationRead())
	authorized.POST("/notifications/follow", s.handleFollowEvent())
	authorized.POST("/notifications/article-like", s.handleArticleLikeEvent())
	authorized.POST("/notifications/article-comment", s.handleArticleCommentEvent())
	authorized.POST("/notifications/repost", s.handleRepostEvent())

	authorized.GET("/ws", s.handleWebSocket())
}
