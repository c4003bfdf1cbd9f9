package main

import (
	"database/sql"
	"log"

	"firebase.google.com/go/messaging"
	"github.com/redis/go-redis/v9"

	"qurylysBack/internal/config"
	"qurylysBack/internal/handlers"
	"qurylysBack/internal/repositories"
	"qurylysBack/internal/services"
	"qurylysBack/utils"
)

type application struct {
	errorLog *log.Logger
	infoLog  *log.Logger
	db       *sql.DB
	cfg      config.Config

	userRepo *repositories.UserRepository
	eventHub *EventHub

	userHandler   *handlers.UserHandler
	quoteHandler  *handlers.QuoteHandler
	escrowHandler *handlers.EscrowHandler
	reportHandler *handlers.ReportHandler
	notifyHandler *handlers.NotifyHandler
	uploadHandler *handlers.UploadHandler
}

func initializeApp(db *sql.DB, cfg config.Config, fcmClient *messaging.Client, redisClient *redis.Client, errorLog, infoLog *log.Logger) *application {
	// Repositories
	userRepo := repositories.UserRepository{DB: db}
	quoteRepo := repositories.QuoteRepository{DB: db}
	historyRepo := repositories.QuoteHistoryRepository{DB: db}
	milestoneRepo := repositories.MilestoneRepository{DB: db, Users: &userRepo}
	reportRepo := repositories.WorkerReportRepository{DB: db}
	chatRepo := repositories.ChatRepository{DB: db}
	otpLimiter := repositories.NewOtpLimiter(redisClient)

	// Services
	tokenManager, err := utils.NewManager(cfg.JWT.SigningKey)
	if err != nil {
		errorLog.Fatal(err)
	}
	notificationService := &services.NotificationService{Client: fcmClient, DB: db}
	chatService := &services.ChatService{ChatRepo: &chatRepo}
	userService := &services.UserService{
		UserRepo:     &userRepo,
		TokenManager: tokenManager,
		SigningKey:   cfg.JWT.SigningKey,
	}
	quoteService := &services.QuoteService{
		QuoteRepo:   &quoteRepo,
		HistoryRepo: &historyRepo,
		UserRepo:    &userRepo,
		Chat:        chatService,
		OtpLimiter:  otpLimiter,
		Notifier:    notificationService,
	}
	escrowService := &services.EscrowService{
		Milestones: &milestoneRepo,
		Notifier:   notificationService,
	}
	reportService := &services.ReportService{
		ReportRepo: &reportRepo,
		Milestones: &milestoneRepo,
		Notifier:   notificationService,
	}

	eventHub := NewEventHub()

	return &application{
		errorLog: errorLog,
		infoLog:  infoLog,
		db:       db,
		cfg:      cfg,
		userRepo: &userRepo,
		eventHub: eventHub,

		userHandler:   &handlers.UserHandler{Service: userService},
		quoteHandler:  &handlers.QuoteHandler{Service: quoteService, Events: eventHub},
		escrowHandler: &handlers.EscrowHandler{Service: escrowService},
		reportHandler: &handlers.ReportHandler{Service: reportService},
		notifyHandler: &handlers.NotifyHandler{Service: notificationService},
		uploadHandler: &handlers.UploadHandler{},
	}
}
