package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/sparrowhealth/clinic-platform/pkg/common/config"
	"github.com/sparrowhealth/clinic-platform/pkg/common/database"
	"github.com/sparrowhealth/clinic-platform/pkg/common/kafka"
	"github.com/sparrowhealth/clinic-platform/pkg/common/logger"
	"github.com/sparrowhealth/clinic-platform/pkg/intake"
	"github.com/sparrowhealth/clinic-platform/pkg/longterm"
	"github.com/sparrowhealth/clinic-platform/pkg/preload"
	"github.com/sparrowhealth/clinic-platform/pkg/review"
	"github.com/sparrowhealth/clinic-platform/pkg/storage"
)

func main() {
	logger.Init()
	cfg := config.Load()

	db, err := database.NewPostgres(cfg)
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to connect to postgres")
	}
	redisClient := database.NewRedis(cfg)

	intakeRepo := intake.NewRepository(db)
	if err := intakeRepo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("failed to migrate intake tables")
	}

	preloadCache := preload.NewCache(db, redisClient)
	if err := preloadCache.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("failed to migrate preload tables")
	}

	longTermRepo := longterm.NewRepository(db)
	if err := longTermRepo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("failed to migrate long-term tables")
	}

	store, err := storage.NewFromConfig(context.Background(), cfg.StorageBackend, cfg)
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to initialize object storage")
	}

	producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.SubmissionTopic)
	defer producer.Close()

	intakeService := intake.NewService(intakeRepo, producer, cfg.SubmissionEventType)
	reviewCache := review.NewCache(redisClient, cfg.ReviewRequestTTL)

	router := mux.NewRouter()
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	}).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	intake.NewHandler(intakeService, preloadCache).Register(api)
	longterm.NewHandler(longTermRepo, cfg.DefaultSchema).Register(api)
	preload.NewHandler(preloadCache).Register(api)
	review.NewHandler(reviewCache).Register(api)
	storage.NewHandler(store).Register(api)

	address := fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort)
	server := &http.Server{
		Addr:         address,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.Log.WithField("addr", address).Info("Clinic API listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("failed to start clinic api")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down clinic API...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Log.WithError(err).Error("Clinic API forced to shutdown")
	}
	if err := database.ClosePostgres(db); err != nil {
		logger.Log.WithError(err).Error("failed to close postgres")
	}
	if err := database.CloseRedis(redisClient); err != nil {
		logger.Log.WithError(err).Error("failed to close redis")
	}
	logger.Log.Info("Clinic API stopped")
}
