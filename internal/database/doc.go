// Package database provides the data access layer for the circulation
// system.
//
// # Architecture
//
// The database layer is organized into domain-specific sub-packages:
//
//	database/
//	├── database.go      # Connection setup, migrations, transactions
//	├── catalog/         # Book records and copy-availability counters
//	├── members/         # Member records, quotas and fines
//	├── ledger/          # Borrowing records and their lifecycle
//	├── categories/      # Category tree with cycle prevention
//	└── audit/           # Circulation event trail
//
// # Using Sub-packages
//
// Each sub-package provides a Repository type with domain-specific operations:
//
//	// Initialize database connection
//	db, err := database.NewDatabase("./circulation.db")
//
//	// Create domain-specific repositories
//	catalogRepo := catalog.NewRepository(db.DB)
//	ledgerRepo := ledger.NewRepository(db.DB)
//
//	// Use repositories
//	book, err := catalogRepo.GetBook(ctx, 123)
//
// # Transactions
//
// Database.Transaction runs a function inside one gorm transaction and
// injects the transactional handle into the context. Repository methods pick
// it up transparently, so the same repository works inside and outside a
// unit of work:
//
//	err := db.Transaction(ctx, func(ctx context.Context) error {
//	    if err := ledgerRepo.CreateBorrowing(ctx, rec); err != nil {
//	        return err // rolls back
//	    }
//	    _, _, err := catalogRepo.AdjustAvailableCopies(ctx, rec.BookID, -1)
//	    return err
//	})
//
// The lending engine uses this to apply its ledger, catalog and membership
// mutations as a single atomic unit.
package database
