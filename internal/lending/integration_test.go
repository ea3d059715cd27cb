package lending_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/circulation/internal/database"
	"github.com/mrlokans/circulation/internal/database/catalog"
	"github.com/mrlokans/circulation/internal/database/ledger"
	"github.com/mrlokans/circulation/internal/database/members"
	"github.com/mrlokans/circulation/internal/entities"
	"github.com/mrlokans/circulation/internal/lending"
)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func setupIntegration(t *testing.T) (*lending.Service, *database.Database, *testClock) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "circulation-test.db")
	db, err := database.NewDatabase(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	clock := &testClock{now: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)}
	svc := lending.NewService(
		catalog.NewRepository(db.DB),
		members.NewRepository(db.DB),
		ledger.NewRepository(db.DB),
		db,
		lending.DefaultPolicy(),
		clock,
		nil,
	)
	return svc, db, clock
}

func seedBookAndMember(t *testing.T, db *database.Database, copies int) (uint, uint) {
	t.Helper()
	ctx := context.Background()

	book := &entities.Book{Title: "Dune", ISBN: "978-0441172719", TotalCopies: copies}
	require.NoError(t, catalog.NewRepository(db.DB).CreateBook(ctx, book))

	member := &entities.Member{FirstName: "Ada", Email: "ada@example.com"}
	require.NoError(t, members.NewRepository(db.DB).CreateMember(ctx, member))

	return book.ID, member.ID
}

func TestBorrowReturnRoundTrip(t *testing.T) {
	svc, db, clock := setupIntegration(t)
	bookID, memberID := seedBookAndMember(t, db, 1)
	ctx := context.Background()

	rec, err := svc.Borrow(ctx, lending.BorrowRequest{BookID: bookID, MemberID: memberID})
	require.NoError(t, err)

	book, err := catalog.NewRepository(db.DB).GetBook(ctx, bookID)
	require.NoError(t, err)
	assert.Equal(t, 0, book.AvailableCopies)
	assert.Equal(t, entities.BookStatusBorrowed, book.Status)

	member, err := members.NewRepository(db.DB).GetMember(ctx, memberID)
	require.NoError(t, err)
	assert.Equal(t, 1, member.CurrentBooksCount)

	// Five days overdue at $0.50/day
	clock.now = clock.now.AddDate(0, 0, 19)

	receipt, err := svc.Return(ctx, rec.ID, "Alice")
	require.NoError(t, err)
	assert.Equal(t, int64(250), receipt.FineCents)

	book, err = catalog.NewRepository(db.DB).GetBook(ctx, bookID)
	require.NoError(t, err)
	assert.Equal(t, 1, book.AvailableCopies)
	assert.Equal(t, entities.BookStatusAvailable, book.Status)

	member, err = members.NewRepository(db.DB).GetMember(ctx, memberID)
	require.NoError(t, err)
	assert.Equal(t, 0, member.CurrentBooksCount)
	assert.Equal(t, int64(250), member.FineCents)

	// The unpaid fine now blocks further borrowing
	_, err = svc.Borrow(ctx, lending.BorrowRequest{BookID: bookID, MemberID: memberID})
	assert.ErrorIs(t, err, lending.ErrOutstandingFines)
}

func TestBorrowExhaustsCopies(t *testing.T) {
	svc, db, _ := setupIntegration(t)
	bookID, _ := seedBookAndMember(t, db, 2)
	ctx := context.Background()

	membersRepo := members.NewRepository(db.DB)
	var memberIDs []uint
	for _, email := range []string{"b@example.com", "c@example.com"} {
		m := &entities.Member{FirstName: "M", Email: email}
		require.NoError(t, membersRepo.CreateMember(ctx, m))
		memberIDs = append(memberIDs, m.ID)
	}

	_, err := svc.Borrow(ctx, lending.BorrowRequest{BookID: bookID, MemberID: memberIDs[0]})
	require.NoError(t, err)
	_, err = svc.Borrow(ctx, lending.BorrowRequest{BookID: bookID, MemberID: memberIDs[1]})
	require.NoError(t, err)

	// No copies left for the third borrower, and the failed attempt leaves
	// no ledger entry behind
	m := &entities.Member{FirstName: "M", Email: "d@example.com"}
	require.NoError(t, membersRepo.CreateMember(ctx, m))
	_, err = svc.Borrow(ctx, lending.BorrowRequest{BookID: bookID, MemberID: m.ID})
	assert.ErrorIs(t, err, lending.ErrBookUnavailable)

	open, err := ledger.NewRepository(db.DB).CountOpenForMember(ctx, m.ID)
	require.NoError(t, err)
	assert.Zero(t, open)

	member, err := membersRepo.GetMember(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, member.CurrentBooksCount)
}

func TestRenewThenSweepMaterializes(t *testing.T) {
	svc, db, clock := setupIntegration(t)
	bookID, memberID := seedBookAndMember(t, db, 1)
	ctx := context.Background()

	rec, err := svc.Borrow(ctx, lending.BorrowRequest{BookID: bookID, MemberID: memberID})
	require.NoError(t, err)
	originalDue := rec.DueDate

	clock.now = clock.now.AddDate(0, 0, 7)
	receipt, err := svc.Renew(ctx, rec.ID, "Alice")
	require.NoError(t, err)
	assert.Equal(t, originalDue.AddDate(0, 0, 14).Unix(), receipt.DueDate.Unix())

	// Past the extended due date the loan shows up in the sweep
	clock.now = clock.now.AddDate(0, 0, 25)

	overdue, err := svc.ListOverdue(ctx)
	require.NoError(t, err)
	require.Len(t, overdue, 1)

	got, err := svc.Reconcile(ctx, overdue[0].ID)
	require.NoError(t, err)
	assert.Equal(t, entities.BorrowingOverdue, got.Status)
	assert.Positive(t, got.FineCents)
}
