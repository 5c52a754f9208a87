package wallet

import (
	"sort"
)

// ChainBreak describes one ledger entry that does not follow from its predecessor.
type ChainBreak struct {
	TransactionID string `json:"transaction_id"`
	// Position is the zero-based index in creation order.
	Position int    `json:"position"`
	Reason   string `json:"reason"`
	Expected int64  `json:"expected"`
	Actual   int64  `json:"actual"`
}

const (
	BreakReasonLink       = "balance_before does not match previous balance_after"
	BreakReasonArithmetic = "balance_before + amount does not equal balance_after"
)

// LedgerCheck is the result of replaying a wallet's ledger against its balance.
type LedgerCheck struct {
	Consistent bool `json:"consistent"`
	Entries    int  `json:"entries"`

	OpeningBalanceCredits  int64 `json:"opening_balance_credits"`
	LedgerDeltaCredits     int64 `json:"ledger_delta_credits"`
	ExpectedBalanceCredits int64 `json:"expected_balance_credits"`
	BalanceCredits         int64 `json:"balance_credits"`
	DiscrepancyCredits     int64 `json:"discrepancy_credits"`

	Breaks []ChainBreak `json:"breaks"`
}

// VerifyLedger replays txs in creation order and checks:
//   - each balance_before equals the previous balance_after
//   - balance_before + amount = balance_after for every entry
//   - the final balance_after equals balance
//
// An empty ledger is consistent only with a zero balance.
// txs is not modified.
func VerifyLedger(balance int64, txs []Transaction) LedgerCheck {
	ordered := make([]Transaction, len(txs))
	copy(ordered, txs)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].CreatedAt.Equal(ordered[j].CreatedAt) {
			return ordered[i].ID < ordered[j].ID
		}
		return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
	})

	out := LedgerCheck{
		Entries:        len(ordered),
		BalanceCredits: balance,
		Breaks:         []ChainBreak{},
	}

	for i, t := range ordered {
		out.LedgerDeltaCredits += t.Amount
		if i > 0 && t.BalanceBefore != ordered[i-1].BalanceAfter {
			out.Breaks = append(out.Breaks, ChainBreak{
				TransactionID: t.ID,
				Position:      i,
				Reason:        BreakReasonLink,
				Expected:      ordered[i-1].BalanceAfter,
				Actual:        t.BalanceBefore,
			})
		}
		if t.BalanceBefore+t.Amount != t.BalanceAfter {
			out.Breaks = append(out.Breaks, ChainBreak{
				TransactionID: t.ID,
				Position:      i,
				Reason:        BreakReasonArithmetic,
				Expected:      t.BalanceBefore + t.Amount,
				Actual:        t.BalanceAfter,
			})
		}
	}

	if len(ordered) > 0 {
		out.OpeningBalanceCredits = ordered[0].BalanceBefore
		out.ExpectedBalanceCredits = ordered[len(ordered)-1].BalanceAfter
	}
	out.DiscrepancyCredits = balance - out.ExpectedBalanceCredits
	out.Consistent = len(out.Breaks) == 0 && out.DiscrepancyCredits == 0
	return out
}
