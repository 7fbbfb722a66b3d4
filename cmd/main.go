package main

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/Jacoblal12/booknest-backend/internal/config"
	"github.com/Jacoblal12/booknest-backend/internal/handlers"
	"github.com/Jacoblal12/booknest-backend/internal/repositories"
	"github.com/Jacoblal12/booknest-backend/internal/services"
)

func main() {
	cfg := config.Load()
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET environment variable is required")
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("failed to get generic DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(time.Hour)

	userRepo := repositories.NewUserRepository(db)
	bookRepo := repositories.NewBookRepository(db)
	requestRepo := repositories.NewRequestRepository(db)
	transactionRepo := repositories.NewTransactionRepository(db)
	wishlistRepo := repositories.NewWishlistRepository(db)
	notificationRepo := repositories.NewNotificationRepository(db)
	feedbackRepo := repositories.NewFeedbackRepository(db)
	reportRepo := repositories.NewReportRepository(db)
	announcementRepo := repositories.NewAnnouncementRepository(db)

	registry := services.NewBookRegistry(db, userRepo, bookRepo, requestRepo, transactionRepo)
	engine := services.NewTransactionEngine(db, registry, bookRepo, transactionRepo, wishlistRepo, notificationRepo)
	ledger := services.NewRequestLedger(db, engine, userRepo, bookRepo, requestRepo)
	wishlist := services.NewWishlistIndex(db, bookRepo, wishlistRepo)
	notifications := services.NewNotificationSink(db, notificationRepo)
	community := services.NewCommunityService(db, bookRepo, feedbackRepo, reportRepo, announcementRepo)

	router := gin.Default()

	handlers.RegisterRoutes(router, cfg.JWTSecret, handlers.Services{
		Registry:      registry,
		Ledger:        ledger,
		Engine:        engine,
		Wishlist:      wishlist,
		Notifications: notifications,
		Community:     community,
	})

	srv := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	log.Printf("Starting server on %s", cfg.ServerAddr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}
