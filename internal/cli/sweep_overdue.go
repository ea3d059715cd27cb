package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mrlokans/circulation/internal/config"
	"github.com/mrlokans/circulation/internal/database"
	"github.com/mrlokans/circulation/internal/database/catalog"
	"github.com/mrlokans/circulation/internal/database/ledger"
	"github.com/mrlokans/circulation/internal/database/members"
	"github.com/mrlokans/circulation/internal/lending"
)

// SweepOverdueCommand runs a single synchronous overdue sweep against the
// ledger: every open loan past its due date is flipped to Overdue and its
// advisory fine is persisted. Useful for cron-less deployments and for
// catching up after daemon downtime.
type SweepOverdueCommand struct {
	DatabasePath string
	Verbose      bool
	DryRun       bool
}

func NewSweepOverdueCommand() *SweepOverdueCommand {
	return &SweepOverdueCommand{}
}

func (cmd *SweepOverdueCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("sweep-overdue", flag.ExitOnError)

	fs.StringVar(&cmd.DatabasePath, "db", config.DefaultDatabasePath, "Path to the circulation database file")
	fs.BoolVar(&cmd.Verbose, "verbose", false, "Enable verbose logging")
	fs.BoolVar(&cmd.DryRun, "dry-run", false, "List overdue loans without materializing anything")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s sweep-overdue [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Materialize overdue status for every open loan past its due date.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  # Sweep the default database:\n")
		fmt.Fprintf(os.Stderr, "  %s sweep-overdue\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  # Preview which loans would be flagged:\n")
		fmt.Fprintf(os.Stderr, "  %s sweep-overdue -dry-run -verbose\n", os.Args[0])
	}

	return fs.Parse(args)
}

func (cmd *SweepOverdueCommand) Run() error {
	fmt.Println("Overdue Sweep")
	fmt.Println("=============")

	if cmd.DryRun {
		fmt.Println("DRY RUN MODE - No changes will be made")
		fmt.Println()
	}

	absDBPath, err := filepath.Abs(cmd.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to get absolute path for database: %w", err)
	}
	cmd.DatabasePath = absDBPath

	if _, err := os.Stat(cmd.DatabasePath); os.IsNotExist(err) {
		return fmt.Errorf("database not found: %s", cmd.DatabasePath)
	}

	fmt.Printf("Database: %s\n", cmd.DatabasePath)

	db, err := database.NewDatabase(cmd.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	cfg := config.NewConfig()
	policy := lending.Policy{
		LoanPeriodDays:     cfg.Lending.LoanPeriodDays,
		FinePerDayCents:    cfg.Lending.FinePerDayCents,
		MaxRenewals:        cfg.Lending.MaxRenewals,
		PersistenceTimeout: cfg.Lending.PersistenceTimeout,
	}

	engine := lending.NewService(
		catalog.NewRepository(db.DB),
		members.NewRepository(db.DB),
		ledger.NewRepository(db.DB),
		db,
		policy,
		nil,
		nil,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	overdue, err := engine.ListOverdue(ctx)
	if err != nil {
		return fmt.Errorf("failed to list overdue loans: %w", err)
	}

	if len(overdue) == 0 {
		fmt.Println("\nNo overdue loans found")
		return nil
	}

	fmt.Printf("\nFound %d overdue loans\n", len(overdue))

	if cmd.Verbose {
		fmt.Println("\n=== Overdue Loans ===")
		for i, b := range overdue {
			fmt.Printf("%d. borrowing %d (book %d, member %d) due %s\n",
				i+1, b.ID, b.BookID, b.MemberID, b.DueDate.Format("2006-01-02"))
		}
	}

	if cmd.DryRun {
		fmt.Println("\nDry run complete. Use without -dry-run to materialize.")
		return nil
	}

	fmt.Println("\nMaterializing overdue status...")

	var reconciled int
	var sweepErrors []string
	for _, b := range overdue {
		rec, err := engine.Reconcile(ctx, b.ID)
		if err != nil {
			sweepErrors = append(sweepErrors, fmt.Sprintf("borrowing %d: %v", b.ID, err))
			if cmd.Verbose {
				fmt.Printf("  [ERROR] borrowing %d: %v\n", b.ID, err)
			}
			continue
		}
		reconciled++
		if cmd.Verbose {
			fmt.Printf("  [OK] borrowing %d overdue, advisory fine %d cents\n", rec.ID, rec.FineCents)
		}
	}

	fmt.Println("\n=== Sweep Summary ===")
	fmt.Printf("Loans reconciled: %d/%d\n", reconciled, len(overdue))

	if len(sweepErrors) > 0 {
		fmt.Printf("\n%d errors occurred:\n", len(sweepErrors))
		for _, errMsg := range sweepErrors {
			fmt.Printf("  [ERROR] %s\n", errMsg)
		}
	}

	fmt.Println("\nSweep complete!")
	return nil
}
