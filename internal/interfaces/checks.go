package interfaces

// This file contains compile-time interface implementation checks.
// These ensure that concrete types satisfy their interfaces at compile time,
// catching missing methods before runtime.
//
// To verify all checks pass: go build ./internal/interfaces/...

import (
	"github.com/mrlokans/circulation/internal/audit"
	"github.com/mrlokans/circulation/internal/database"
	auditrepo "github.com/mrlokans/circulation/internal/database/audit"
	"github.com/mrlokans/circulation/internal/database/catalog"
	"github.com/mrlokans/circulation/internal/database/ledger"
	"github.com/mrlokans/circulation/internal/database/members"
	"github.com/mrlokans/circulation/internal/lending"
	"github.com/mrlokans/circulation/internal/scheduler"
	"github.com/mrlokans/circulation/internal/tasks"
)

// =============================================================================
// Lending Engine Stores
// =============================================================================

// CatalogStore implementations
var _ lending.CatalogStore = (*catalog.Repository)(nil)

// MembershipStore implementations
var _ lending.MembershipStore = (*members.Repository)(nil)

// LedgerStore implementations
var _ lending.LedgerStore = (*ledger.Repository)(nil)

// TxRunner implementations
var _ lending.TxRunner = (*database.Database)(nil)

// =============================================================================
// Audit Trail
// =============================================================================

// Auditor implementations
var _ lending.Auditor = (*audit.Service)(nil)

// CirculationEventCleaner implementations
var _ tasks.CirculationEventCleaner = (*auditrepo.Repository)(nil)

// =============================================================================
// Background Work
// =============================================================================

// BorrowingReconciler implementations
var _ tasks.BorrowingReconciler = (*lending.Service)(nil)

// CirculationEngine implementations
var _ scheduler.CirculationEngine = (*lending.Service)(nil)
