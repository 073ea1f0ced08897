package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/sha-claims-fraud-engine/internal/api"
	"github.com/sha-claims-fraud-engine/internal/audit"
	"github.com/sha-claims-fraud-engine/internal/config"
	"github.com/sha-claims-fraud-engine/internal/database"
	"github.com/sha-claims-fraud-engine/internal/detect"
	"github.com/sha-claims-fraud-engine/internal/domain"
	"github.com/sha-claims-fraud-engine/internal/extractor"
	"github.com/sha-claims-fraud-engine/internal/repository"
	"github.com/sha-claims-fraud-engine/internal/service"
	"github.com/sha-claims-fraud-engine/internal/validator"
	"github.com/sha-claims-fraud-engine/pkg/external"
)

func main() {
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}
	cfg := configManager.GetConfig()

	logger := newLogger(cfg.Logging)
	logger.WithFields(logrus.Fields{
		"host": cfg.Server.Host,
		"port": cfg.Server.Port,
	}).Info("Starting SHA claims fraud engine")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Schema first, then the pool
	runner, err := database.NewMigrationRunner(configManager.GetDatabaseURL(), "migrations", logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create migration runner")
	}
	if err := runner.Up(); err != nil {
		logger.WithError(err).Fatal("Failed to run migrations")
	}
	runner.Close()

	db, err := database.NewConnection(ctx, cfg.Database, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	claimRepo := repository.NewClaimRepository(db.Pool, logger)
	providerRepo := repository.NewProviderRepository(db.Pool, logger)
	modelRepo := repository.NewModelRepository(db.Pool, logger)

	auditStore, err := newAuditStore(cfg, configManager)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create audit store")
	}
	defer auditStore.Close()

	registry := newRegistryClient(cfg, logger)

	vocab := detect.DefaultVocabulary()
	orchestrator := detect.NewOrchestrator(
		detect.NewMLRiskScorer(claimRepo, providerRepo, modelRepo, vocab, logger),
		detect.NewPhantomDetector(claimRepo, providerRepo, registry, vocab, logger),
		detect.NewUpcodingDetector(vocab, logger),
		detect.NewDuplicateDetector(claimRepo, logger),
		detect.NewProviderRiskDetector(claimRepo, providerRepo, vocab, logger),
		claimRepo,
		auditStore,
		cfg.Detection,
		logger,
	)

	intake := service.NewIntake(extractor.New(logger), validator.New(), claimRepo, providerRepo, logger)

	server := api.NewServer(intake, orchestrator, claimRepo, claimRepo, cfg.Logging, logger)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down")
		cancel()
	}()

	if err := server.Start(ctx, cfg.Server); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}

	logger.Info("Server stopped")
}

func newLogger(cfg domain.LoggingConfig) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return logger
}

func newAuditStore(cfg *domain.Config, manager *config.Manager) (domain.AuditLogger, error) {
	if cfg.Audit.Backend == "sqlite" {
		return audit.NewSQLiteStore(cfg.Audit.SQLitePath)
	}
	return audit.NewPostgresStoreFromURL(manager.GetDatabaseURL())
}

func newRegistryClient(cfg *domain.Config, logger *logrus.Logger) domain.RegistryClient {
	apiClient := external.NewRegistryAPIClient(cfg.Registry, logger)

	var shared *external.MemberCache
	if cfg.Cache.Enabled {
		cache, err := external.NewMemberCache(cfg.Cache)
		if err != nil {
			logger.WithError(err).Warn("Shared member cache unavailable, continuing without it")
		} else {
			shared = cache
		}
	}

	return external.NewResilientRegistryClient(apiClient, cfg.Registry, shared, logger)
}
