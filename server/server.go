package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mercatohq/mercato/config"
	"github.com/mercatohq/mercato/db"
	"github.com/mercatohq/mercato/realtime"
	"github.com/mercatohq/mercato/services"
)

type Server struct {
	Config *config.Config

	AuthRepository         db.AuthRepository
	ConversationRepository db.ConversationRepository

	AuthService         services.AuthService
	ConversationService services.ConversationService
	MessageService      services.MessageService
	ReceiptService      services.ReceiptService
	NotificationService services.NotificationService

	Hub *realtime.Hub
}

// Start runs the HTTP server until SIGINT/SIGTERM, then drains in-flight
// requests.
func (s *Server) Start() {
	r := s.setupRouter()

	port := s.Config.Port
	if port == 0 {
		port = 8080
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: r,
	}

	go func() {
		log.Printf("server listening on :%d", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}
	log.Println("server exited")
}
