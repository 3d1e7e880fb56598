package main

import (
	"log"

	"github.com/mercatohq/mercato/config"
	"github.com/mercatohq/mercato/db"
	"github.com/mercatohq/mercato/realtime"
	"github.com/mercatohq/mercato/server"
	"github.com/mercatohq/mercato/services"
)

func main() {
	conf, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	gormDB := db.GetDB(conf)

	authRepo := db.NewAuthRepo(gormDB)
	conversationRepo := db.NewConversationRepo(gormDB)
	messageRepo := db.NewMessageRepo(gormDB)
	receiptRepo := db.NewReadReceiptRepo(gormDB)
	notificationRepo := db.NewNotificationRepo(gormDB)

	hub := realtime.NewHub()

	authService := services.NewAuthService(authRepo, conf)
	conversationService := services.NewConversationService(conversationRepo, messageRepo, receiptRepo, authRepo, hub, conf)
	messageService := services.NewMessageService(messageRepo, conversationRepo, hub, conf)
	receiptService := services.NewReceiptService(receiptRepo, messageRepo, conversationRepo, hub, conf)
	notificationService := services.NewNotificationService(notificationRepo, authRepo, hub, conf)

	s := &server.Server{
		Config:                 conf,
		AuthRepository:         authRepo,
		ConversationRepository: conversationRepo,
		AuthService:            authService,
		ConversationService:    conversationService,
		MessageService:         messageService,
		ReceiptService:         receiptService,
		NotificationService:    notificationService,
		Hub:                    hub,
	}

	s.Start()
}
