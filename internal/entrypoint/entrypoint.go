package entrypoint

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mrlokans/circulation/internal/audit"
	"github.com/mrlokans/circulation/internal/config"
	"github.com/mrlokans/circulation/internal/database"
	auditrepo "github.com/mrlokans/circulation/internal/database/audit"
	"github.com/mrlokans/circulation/internal/database/catalog"
	"github.com/mrlokans/circulation/internal/database/ledger"
	"github.com/mrlokans/circulation/internal/database/members"
	"github.com/mrlokans/circulation/internal/lending"
	"github.com/mrlokans/circulation/internal/scheduler"
	"github.com/mrlokans/circulation/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

// Run wires the circulation daemon: database, lending engine, audit trail,
// task workers and the overdue sweep scheduler. It blocks until SIGINT or
// SIGTERM, then shuts everything down within the configured timeout.
func Run(cfg *config.Config, version string) {
	log.Printf("Starting Circulation v%s", version)

	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	catalogRepo := catalog.NewRepository(db.DB)
	membersRepo := members.NewRepository(db.DB)
	ledgerRepo := ledger.NewRepository(db.DB)
	eventsRepo := auditrepo.NewRepository(db.DB)

	// A typed nil *audit.Service would still be a non-nil Auditor interface,
	// so only assign when the trail is on.
	var auditor lending.Auditor
	if cfg.Audit.Enabled {
		auditor = audit.NewService(eventsRepo)
	} else {
		log.Printf("Audit trail disabled")
	}

	policy := lending.Policy{
		LoanPeriodDays:     cfg.Lending.LoanPeriodDays,
		FinePerDayCents:    cfg.Lending.FinePerDayCents,
		MaxRenewals:        cfg.Lending.MaxRenewals,
		PersistenceTimeout: cfg.Lending.PersistenceTimeout,
	}

	engine := lending.NewService(catalogRepo, membersRepo, ledgerRepo, db, policy, nil, auditor)

	// Initialize task queue if enabled
	var taskClient *tasks.Client
	var taskCtxCancel context.CancelFunc
	if cfg.Tasks.Enabled {
		taskCfg := tasks.Config{
			Workers:           cfg.Tasks.Workers,
			MaxRetries:        cfg.Tasks.MaxRetries,
			RetryDelay:        cfg.Tasks.RetryDelay,
			TaskTimeout:       cfg.Tasks.TaskTimeout,
			ReleaseAfter:      cfg.Tasks.ReleaseAfter,
			CleanupInterval:   cfg.Tasks.CleanupInterval,
			RetentionDuration: cfg.Tasks.RetentionDuration,
		}

		taskClient, err = tasks.NewClient(cfg.Database.Path, taskCfg)
		if err != nil {
			log.Fatalf("Failed to initialize task queue: %v", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				log.Printf("Error closing task client: %v", err)
			}
		}()

		taskClient.Register(
			tasks.NewReconcileOverdueQueue(engine),
			tasks.NewCleanupCirculationEventsQueue(eventsRepo),
		)

		var taskCtx context.Context
		taskCtx, taskCtxCancel = context.WithCancel(context.Background())
		go taskClient.Start(taskCtx)
	}

	sweep := scheduler.NewOverdueSweepScheduler(engine, taskClient, cfg)
	if err := sweep.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start overdue sweep scheduler: %v", err)
	}

	// Graceful shutdown on SIGINT / SIGTERM
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second
	log.Printf("Shutting down, waiting up to %v for in-flight work\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	sweep.Stop()
	if taskClient != nil && taskCtxCancel != nil {
		taskClient.Stop(ctx)
		taskCtxCancel()
	}

	log.Println("Circulation daemon exiting")
}
