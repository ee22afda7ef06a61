package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sparrowhealth/clinic-platform/pkg/bodyspots"
	"github.com/sparrowhealth/clinic-platform/pkg/common/config"
	"github.com/sparrowhealth/clinic-platform/pkg/common/database"
	"github.com/sparrowhealth/clinic-platform/pkg/common/kafka"
	"github.com/sparrowhealth/clinic-platform/pkg/common/logger"
	"github.com/sparrowhealth/clinic-platform/pkg/intake"
	"github.com/sparrowhealth/clinic-platform/pkg/longterm"
	"github.com/sparrowhealth/clinic-platform/pkg/migration"
	"github.com/sparrowhealth/clinic-platform/pkg/storage"
)

func main() {
	logger.Init()
	cfg := config.Load()

	db, err := database.NewPostgres(cfg)
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to connect to postgres")
	}

	longTermRepo := longterm.NewRepository(db)
	if err := longTermRepo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("failed to migrate long-term tables")
	}
	encodingRepo := longterm.NewEncodingRepository(db)
	if err := encodingRepo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("failed to migrate encoding tables")
	}
	intakeRepo := intake.NewRepository(db)

	store, err := storage.NewFromConfig(context.Background(), cfg.StorageBackend, cfg)
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to initialize object storage")
	}

	catalog, err := bodyspots.Load(cfg.BodySpotCatalogPath)
	if err != nil {
		logger.Log.WithError(err).WithField("path", cfg.BodySpotCatalogPath).
			Warn("failed to load body spot catalog, using built-in")
	}

	resolver := migration.NewResolver(store, encodingRepo, cfg.LongTermRoot)
	syncer := migration.NewSyncer(intakeRepo, longTermRepo, resolver, catalog, cfg.DefaultSchema)
	accepter := migration.NewAutoAccept(longTermRepo, encodingRepo, catalog)
	migrator := migration.NewMigrator(syncer, accepter, cfg.DefaultSchema)

	consumer := kafka.NewConsumer(cfg.KafkaBrokers, cfg.SubmissionTopic, cfg.MigrationWorkerGroup)
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)
		logger.Log.WithFields(map[string]interface{}{
			"topic": cfg.SubmissionTopic,
			"group": cfg.MigrationWorkerGroup,
		}).Info("Migration worker consuming")
		if err := consumer.Consume(ctx, migrator.HandleEvent); err != nil && ctx.Err() == nil {
			logger.Log.WithError(err).Fatal("migration worker consume loop failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down migration worker...")
	cancel()
	<-done
	if err := database.ClosePostgres(db); err != nil {
		logger.Log.WithError(err).Error("failed to close postgres")
	}
	logger.Log.Info("Migration worker stopped")
}
