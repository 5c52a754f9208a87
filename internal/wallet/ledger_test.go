package wallet

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ledgerFixture() []Transaction {
	t0 := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	// Deliberately out of order; VerifyLedger sorts by created_at.
	return []Transaction{
		{ID: "t3", Amount: 10, Type: TransactionTypeRefund, BalanceBefore: 70, BalanceAfter: 80, CreatedAt: t0.Add(2 * time.Hour)},
		{ID: "t1", Amount: 100, Type: TransactionTypeTopUp, BalanceBefore: 0, BalanceAfter: 100, CreatedAt: t0},
		{ID: "t2", Amount: -30, Type: TransactionTypePayment, BalanceBefore: 100, BalanceAfter: 70, CreatedAt: t0.Add(time.Hour)},
	}
}

func TestVerifyLedger_ConsistentChain(t *testing.T) {
	txs := ledgerFixture()
	got := VerifyLedger(80, txs)

	require.True(t, got.Consistent)
	assert.Equal(t, 3, got.Entries)
	assert.Equal(t, int64(80), got.LedgerDeltaCredits)
	assert.Equal(t, int64(80), got.ExpectedBalanceCredits)
	assert.Equal(t, int64(0), got.DiscrepancyCredits)
	assert.Empty(t, got.Breaks)
	assert.Equal(t, "t3", txs[0].ID, "input must not be reordered")
}

func TestVerifyLedger_DetectsBrokenLink(t *testing.T) {
	txs := ledgerFixture()
	txs[2].BalanceBefore = 90
	txs[2].BalanceAfter = 60

	got := VerifyLedger(80, txs)

	require.False(t, got.Consistent)
	require.Len(t, got.Breaks, 2)
	assert.Equal(t, "t2", got.Breaks[0].TransactionID)
	assert.Equal(t, BreakReasonLink, got.Breaks[0].Reason)
	assert.Equal(t, int64(100), got.Breaks[0].Expected)
	assert.Equal(t, BreakReasonLink, got.Breaks[1].Reason)
	assert.Equal(t, "t3", got.Breaks[1].TransactionID)
}

func TestVerifyLedger_DetectsArithmeticError(t *testing.T) {
	txs := ledgerFixture()
	txs[1].BalanceAfter = 101
	txs[2].BalanceBefore = 101
	txs[2].BalanceAfter = 71
	txs[0].BalanceBefore = 71
	txs[0].BalanceAfter = 81

	got := VerifyLedger(81, txs)

	require.False(t, got.Consistent)
	require.Len(t, got.Breaks, 1)
	assert.Equal(t, "t1", got.Breaks[0].TransactionID)
	assert.Equal(t, BreakReasonArithmetic, got.Breaks[0].Reason)
}

func TestVerifyLedger_BalanceDiscrepancy(t *testing.T) {
	got := VerifyLedger(95, ledgerFixture())

	assert.False(t, got.Consistent)
	assert.Empty(t, got.Breaks)
	assert.Equal(t, int64(15), got.DiscrepancyCredits)
}

func TestVerifyLedger_Empty(t *testing.T) {
	assert.True(t, VerifyLedger(0, nil).Consistent)
	assert.False(t, VerifyLedger(5, nil).Consistent)
}
