package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bountyhive/bountyhive-backend/internal/marketplace/api"
	"github.com/bountyhive/bountyhive-backend/internal/marketplace/api/handlers"
	"github.com/bountyhive/bountyhive-backend/internal/marketplace/cache"
	"github.com/bountyhive/bountyhive-backend/internal/marketplace/clients/escrow"
	"github.com/bountyhive/bountyhive-backend/internal/marketplace/clients/identity"
	"github.com/bountyhive/bountyhive-backend/internal/marketplace/clients/oracle"
	"github.com/bountyhive/bountyhive-backend/internal/marketplace/config"
	"github.com/bountyhive/bountyhive-backend/internal/marketplace/dispute"
	"github.com/bountyhive/bountyhive-backend/internal/marketplace/lifecycle"
	"github.com/bountyhive/bountyhive-backend/internal/marketplace/repository"
	"github.com/bountyhive/bountyhive-backend/internal/marketplace/scheduler"
	"github.com/bountyhive/bountyhive-backend/internal/marketplace/settlement"
	"github.com/bountyhive/bountyhive-backend/internal/marketplace/submission"
	"github.com/bountyhive/bountyhive-backend/internal/marketplace/tasklock"
	"github.com/bountyhive/bountyhive-backend/internal/marketplace/trust"
	"github.com/bountyhive/bountyhive-backend/pkg/database"
	"github.com/bountyhive/bountyhive-backend/pkg/logging"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := config.Init(); err != nil {
		panic(fmt.Sprintf("Failed to initialize config: %v", err))
	}

	logConfig := logging.NewDefaultConfig(logging.MarketplaceProcess)
	if !config.IsDevMode() {
		logConfig.Environment = logging.Production
		logConfig.UseColors = false
	}
	if err := logging.InitServiceLogger(logConfig); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logging.Shutdown()
	logger := logging.GetServiceLogger()

	logger.Info("Starting marketplace service...",
		"mode", config.IsDevMode(),
		"port", config.GetAPIPort(),
		"db_host", config.GetDatabaseHostAddress(),
	)

	dbConfig := database.NewConfig(config.GetDatabaseHostAddress(), config.GetDatabaseHostPort())
	db, err := database.NewConnection(dbConfig, logger)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := repository.InitSchema(db); err != nil {
		logger.Fatalf("Failed to initialize schema: %v", err)
	}

	taskRepo := repository.NewTaskRepository(db)
	subRepo := repository.NewSubmissionRepository(db)
	challengeRepo := repository.NewChallengeRepository(db)
	ballotRepo := repository.NewBallotRepository(db)
	trustRepo := repository.NewTrustRepository(db)
	settlementRepo := repository.NewSettlementRepository(db)

	escrowClient, err := escrow.NewClient(escrow.Config{
		BaseURL: config.GetEscrowRPCURL(),
		APIKey:  config.GetEscrowAPIKey(),
	}, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize escrow client: %v", err)
	}
	oracleClient, err := oracle.NewClient(oracle.Config{
		BaseURL: config.GetOracleRPCURL(),
		APIKey:  config.GetOracleAPIKey(),
	}, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize oracle client: %v", err)
	}
	identityClient, err := identity.NewClient(identity.Config{
		BaseURL: config.GetIdentityRPCURL(),
		APIKey:  config.GetIdentityAPIKey(),
	}, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize identity client: %v", err)
	}

	projectionCache, err := cache.NewCache(cache.Config{
		Addr:     config.GetRedisAddr(),
		Password: config.GetRedisPassword(),
		DB:       config.GetRedisDB(),
		TTL:      config.GetCacheTTL(),
	}, logger)
	if err != nil {
		logger.Warnf("Projection cache disabled: %v", err)
		projectionCache = nil
	} else {
		defer func() {
			if err := projectionCache.Close(); err != nil {
				logger.Warnf("Failed to close cache: %v", err)
			}
		}()
	}

	locks := tasklock.NewRegistry()
	ledger := trust.NewLedger(trustRepo, logger)
	tracker := submission.NewTracker(taskRepo, subRepo, locks, oracleClient, logger)
	settler := settlement.NewEngine(settlementRepo, challengeRepo, subRepo, ledger, escrowClient, logger)
	disputes := dispute.NewEngine(taskRepo, subRepo, challengeRepo, ballotRepo, locks, escrowClient, identityClient, ledger, logger)
	machine := lifecycle.NewMachine(taskRepo, subRepo, locks, escrowClient, settler, disputes, ledger, logger)

	// Cross-package callbacks, wired once before traffic starts.
	tracker.SetScoreListener(machine.OnSubmissionScored)
	disputes.SetResolutionListener(machine.ApplyArbitrationOutcome)

	sweep := scheduler.NewScheduler(taskRepo, machine, disputes, tracker, config.GetSweepInterval(), logger)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := sweep.Start(ctx); err != nil {
		logger.Fatalf("Failed to start scheduler: %v", err)
	}

	server := api.NewServer(handlers.Dependencies{
		Machine:  machine,
		Tracker:  tracker,
		Disputes: disputes,
		Settler:  settler,
		Trust:    ledger,
		Tasks:    taskRepo,
		Cache:    projectionCache,
		Logger:   logger,
	}, logger)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil {
			logger.Error("Server error received", "error", err)
		}
	case sig := <-shutdown:
		logger.Info("Received shutdown signal", "signal", sig.String())
	}

	sweep.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Stop(shutdownCtx); err != nil {
		logger.Errorf("Graceful shutdown failed: %v", err)
	}
	logger.Info("Marketplace service stopped")
}
