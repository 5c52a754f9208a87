package audit

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"coffee-backoffice/internal/auth"
	"coffee-backoffice/internal/wallet"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_AppendRequiresType(t *testing.T) {
	svc := NewService(NewMemoryRepo())

	if err := svc.Append(context.Background(), Event{WalletID: "w"}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestService_AppendWithoutRepository(t *testing.T) {
	svc := NewService(nil)
	if err := svc.Append(context.Background(), Event{Type: EventTypeLedgerDiscrepancy}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestService_LogLedgerDiscrepancy(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)
	svc.clock = func() time.Time { return time.Date(2025, 3, 1, 10, 0, 0, 0, time.FixedZone("x", 3600)) }

	check := wallet.LedgerCheck{
		Consistent:         false,
		Entries:            3,
		DiscrepancyCredits: 15,
		Breaks:             []wallet.ChainBreak{},
	}
	actor := auth.Identity{UserID: "owner-1", Role: "owner"}
	require.NoError(t, svc.LogLedgerDiscrepancy(context.Background(), actor, "wallet-1", check))

	evs := repo.Events()
	require.Len(t, evs, 1)
	ev := evs[0]
	assert.Equal(t, EventTypeLedgerDiscrepancy, ev.Type)
	assert.Equal(t, "owner-1", ev.ActorUserID)
	assert.Equal(t, "owner", ev.ActorRole)
	assert.Equal(t, "wallet-1", ev.WalletID)
	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, time.UTC, ev.CreatedAt.Location())
	assert.Equal(t, "ledger off by 15 credits, 0 broken links", ev.Message)

	var meta map[string]any
	require.NoError(t, json.Unmarshal([]byte(ev.Metadata), &meta))
	assert.Equal(t, float64(15), meta["discrepancy_credits"])

	assert.Len(t, repo.ForWallet("wallet-1"), 1)
	assert.Empty(t, repo.ForWallet("wallet-2"))
}

func TestService_PropagatesRepositoryFailure(t *testing.T) {
	repo := NewMemoryRepo()
	repo.Err = errors.New("disk full")
	svc := NewService(repo)

	err := svc.LogLedgerDiscrepancy(context.Background(), auth.Identity{UserID: "u", Role: "owner"}, "wallet-1", wallet.LedgerCheck{})
	require.EqualError(t, err, "disk full")
	assert.Empty(t, repo.Events())
}

func TestService_LogLedgerDiscrepancyRequiresWallet(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	err := svc.LogLedgerDiscrepancy(context.Background(), auth.Identity{}, "", wallet.LedgerCheck{})
	assert.ErrorIs(t, err, ErrInvalidEvent)
}

func TestPostgresRepo_Append(t *testing.T) {
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	db := sqlx.NewDb(raw, "sqlmock")
	t.Cleanup(func() { _ = db.Close() })

	at := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_events")).
		WithArgs("ev-1", EventTypeLedgerDiscrepancy, "owner-1", "owner", "wallet-1", "m", "{}", at).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewPostgresRepo(db)
	err = repo.Append(context.Background(), Event{
		ID:          "ev-1",
		Type:        EventTypeLedgerDiscrepancy,
		ActorUserID: "owner-1",
		ActorRole:   "owner",
		WalletID:    "wallet-1",
		Message:     "m",
		Metadata:    "{}",
		CreatedAt:   at,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
