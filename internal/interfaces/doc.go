// Package interfaces documents the core abstractions used throughout the application.
//
// This package consolidates interface documentation to help readers understand
// extension points and how to implement new functionality.
//
// # Interface Categories
//
// The application uses several categories of interfaces:
//
// ## Lending Engine Stores
//
//   - CatalogStore: Books and copy-availability counters (internal/lending/interfaces.go)
//   - MembershipStore: Members, quotas and fines (internal/lending/interfaces.go)
//   - LedgerStore: Borrowing records (internal/lending/interfaces.go)
//   - TxRunner: Unit-of-work boundary (internal/lending/interfaces.go)
//
// ## Audit Trail
//
//   - Auditor: Post-commit circulation event logging (internal/lending/interfaces.go)
//   - CirculationEventCleaner: Retention cleanup (internal/tasks/cleanup_events.go)
//
// ## Background Work
//
//   - BorrowingReconciler: Overdue materialization (internal/tasks/reconcile_overdue.go)
//   - CirculationEngine: What the sweep needs from the engine (internal/scheduler/overdue_sweep.go)
//
// # Swapping the Storage Backend
//
// The lending engine never touches gorm directly; it is written against the
// store contracts above. To back the engine with a different store:
//
//  1. Create sub-package: internal/database/<area>/
//
//  2. Define repository:
//
//     type Repository struct { db *gorm.DB }
//
//     func NewRepository(db *gorm.DB) *Repository
//
//  3. Translate missing-row conditions into the lending sentinels
//     (lending.ErrBookNotFound and friends) so errors.Is works for callers
//     regardless of the backend
//
//  4. Add a compile-time check:
//
//     var _ lending.CatalogStore = (*Repository)(nil)
//
// # Adding a New Background Task
//
// To add a new task type processed by the backlite queue:
//
//  1. Define the task and its queue configuration in internal/tasks/
//
//     type NotifyMemberTask struct {
//         MemberID uint `json:"member_id"`
//     }
//
//     func (t NotifyMemberTask) Config() backlite.QueueConfig
//
//  2. Write the processor against a narrow interface, not a concrete service
//
//  3. Register the queue in entrypoint.Run via taskClient.Register
//
// # Compile-Time Interface Checks
//
// All implementations should include compile-time checks to ensure they satisfy
// their interfaces. This catches missing methods at compile time rather than runtime:
//
//	var _ SomeInterface = (*MyImplementation)(nil)
//
// This pattern is used throughout the codebase. See checks.go for examples.
package interfaces
