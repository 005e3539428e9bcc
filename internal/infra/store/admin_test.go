package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"saas-starter/internal/domain/billing"
	"saas-starter/internal/domain/plans"
	"saas-starter/internal/testutils"
)

func TestPlanCounts(t *testing.T) {
	db, mock := testutils.SetupTestDB(t)
	s := New(db)

	mock.ExpectQuery(`SELECT plan, COUNT\(\*\) AS count FROM "profiles" GROUP BY "plan"`).
		WillReturnRows(sqlmock.NewRows([]string{"plan", "count"}).
			AddRow("free", 7).
			AddRow("pro", 3))

	counts, err := s.PlanCounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[plans.Key]int64{plans.Free: 7, plans.Pro: 3}, counts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRevenueSince(t *testing.T) {
	db, mock := testutils.SetupTestDB(t)
	s := New(db)
	since := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT currency, COALESCE\(SUM\(amount_cents\), 0\) AS amount_cents FROM "invoices" WHERE status = \$1 AND created_at >= \$2 GROUP BY "currency" ORDER BY currency`).
		WithArgs(billing.InvoicePaid, since).
		WillReturnRows(sqlmock.NewRows([]string{"currency", "amount_cents"}).
			AddRow("eur", 9900).
			AddRow("usd", 5800))

	rev, err := s.RevenueSince(context.Background(), since)
	require.NoError(t, err)
	assert.Equal(t, []billing.Revenue{{Currency: "eur", AmountCents: 9900}, {Currency: "usd", AmountCents: 5800}}, rev)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecentEventsClampsLimit(t *testing.T) {
	db, mock := testutils.SetupTestDB(t)
	s := New(db)

	mock.ExpectQuery(`SELECT \* FROM "stripe_events" ORDER BY processed_at DESC LIMIT`).
		WillReturnRows(sqlmock.NewRows([]string{"event_id", "type"}).AddRow("evt_1", "invoice.payment_succeeded"))

	events, err := s.RecentEvents(context.Background(), 10_000)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "evt_1", events[0].EventID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
