package ownerwallets

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"coffee-backoffice/internal/wallet"
)

// activityOf folds one wallet's history. Input order does not matter.
func activityOf(txs []wallet.Transaction, pays []wallet.Payment, orders []wallet.Order) Activity {
	var a Activity
	for _, t := range txs {
		a.TotalTransactions++
		a.NetWalletChangeCredits += t.Amount
		switch t.Type {
		case wallet.TransactionTypeTopUp:
			a.TotalTopupCredits += abs(t.Amount)
		case wallet.TransactionTypePayment:
			a.TotalPaymentCredits += abs(t.Amount)
		case wallet.TransactionTypeRefund:
			a.TotalRefundCredits += abs(t.Amount)
		}
		a.LastTransactionAt = later(a.LastTransactionAt, t.CreatedAt)
	}
	for _, p := range pays {
		a.TotalPayments++
		a.LastPaymentAt = later(a.LastPaymentAt, p.CreatedAt)
	}
	for _, o := range orders {
		a.TotalOrders++
		a.TotalOrdersPaidCredits += o.PaidCredits
		a.LastOrderAt = later(a.LastOrderAt, o.CreatedAt)
	}
	a.LastActivityAt = latest(a.LastTransactionAt, a.LastPaymentAt, a.LastOrderAt)
	return a
}

// lookups holds the joined reference rows for a set of wallets.
type lookups struct {
	profiles map[string]wallet.Profile
	cafes    map[string]wallet.Cafe
	networks map[string]wallet.Network
}

func buildSummary(w wallet.Wallet, refs lookups, a Activity) WalletSummary {
	s := WalletSummary{
		WalletID:             w.ID,
		UserID:               w.UserID,
		WalletType:           w.Type,
		BalanceCredits:       w.BalanceCredits,
		LifetimeTopUpCredits: w.LifetimeTopUpCredits,
		CreatedAt:            w.CreatedAt,
		CafeID:               w.CafeID,
		NetworkID:            w.NetworkID,
		Activity:             a,
	}
	if p, ok := refs.profiles[w.UserID]; ok {
		s.UserEmail = p.Email
		s.UserPhone = p.Phone
		s.UserFullName = p.FullName
	}
	if w.CafeID != nil {
		if c, ok := refs.cafes[*w.CafeID]; ok {
			s.CafeName = c.Name
		}
	}
	if w.NetworkID != nil {
		if n, ok := refs.networks[*w.NetworkID]; ok {
			s.NetworkName = n.Name
		}
	}
	return s
}

func buildOverview(w wallet.Wallet, refs lookups, txs []wallet.Transaction, pays []wallet.Payment, orders []wallet.Order) Overview {
	a := activityOf(txs, pays, orders)
	ov := Overview{
		WalletSummary:           buildSummary(w, refs, a),
		UpdatedAt:               w.UpdatedAt,
		CompletedOrders:         completedOrders(orders),
		AverageOrderPaidCredits: averageOrderPaid(a.TotalOrdersPaidCredits, a.TotalOrders),
	}
	if p, ok := refs.profiles[w.UserID]; ok && !p.CreatedAt.IsZero() {
		t := p.CreatedAt
		ov.UserRegisteredAt = &t
	}
	if w.CafeID != nil {
		if c, ok := refs.cafes[*w.CafeID]; ok {
			ov.CafeAddress = c.Address
		}
	}
	return ov
}

func completedOrders(orders []wallet.Order) int64 {
	var n int64
	for _, o := range orders {
		if o.Completed() {
			n++
		}
	}
	return n
}

// averageOrderPaid is round(total/count), half away from zero. Zero orders yield 0.
func averageOrderPaid(total, count int64) int64 {
	if count <= 0 {
		return 0
	}
	if total < 0 {
		return -((-total*2 + count) / (count * 2))
	}
	return (total*2 + count) / (count * 2)
}

func foldStats(rows []WalletSummary) Stats {
	var s Stats
	for _, r := range rows {
		s.TotalWallets++
		s.TotalBalanceCredits += r.BalanceCredits
		s.TotalTopupsCredits += r.TotalTopupCredits
		s.TotalPaymentsCredits += r.TotalPaymentCredits
		s.NetChangeCredits += r.NetWalletChangeCredits
	}
	return s
}

// matchesSearch is a case-insensitive substring match over email, phone,
// full name and cafe name.
func matchesSearch(s WalletSummary, term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	parts := make([]string, 0, 4)
	for _, p := range []*string{s.UserEmail, s.UserPhone, s.UserFullName, s.CafeName} {
		if p != nil {
			parts = append(parts, *p)
		}
	}
	return strings.Contains(strings.ToLower(strings.Join(parts, " ")), term)
}

func filterSearch(rows []WalletSummary, term string) []WalletSummary {
	if strings.TrimSpace(term) == "" {
		return rows
	}
	out := make([]WalletSummary, 0, len(rows))
	for _, r := range rows {
		if matchesSearch(r, term) {
			out = append(out, r)
		}
	}
	return out
}

// sortSummaries orders rows in place. Ties break on wallet id so pages are stable.
func sortSummaries(rows []WalletSummary, by SortField, order SortOrder) {
	desc := order != SortAsc
	slices.SortStableFunc(rows, func(a, b WalletSummary) int {
		c := compareBy(a, b, by)
		if c == 0 {
			c = strings.Compare(a.WalletID, b.WalletID)
		}
		if desc {
			return -c
		}
		return c
	})
}

func compareBy(a, b WalletSummary, by SortField) int {
	switch by {
	case SortByBalance:
		return cmp.Compare(a.BalanceCredits, b.BalanceCredits)
	case SortByLifetime:
		return cmp.Compare(a.LifetimeTopUpCredits, b.LifetimeTopUpCredits)
	case SortByLastActivity:
		return compareTimePtr(a.LastActivityAt, b.LastActivityAt)
	default:
		return a.CreatedAt.Compare(b.CreatedAt)
	}
}

// compareTimePtr treats nil as older than any timestamp.
func compareTimePtr(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	return a.Compare(*b)
}

func paginate[T any](rows []T, offset, limit int) []T {
	if offset >= len(rows) {
		return []T{}
	}
	end := len(rows)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return rows[offset:end]
}

func groupBy[T any](rows []T, key func(T) string) map[string][]T {
	out := make(map[string][]T)
	for _, r := range rows {
		k := key(r)
		if k == "" {
			continue
		}
		out[k] = append(out[k], r)
	}
	return out
}

func indexBy[T any](rows []T, key func(T) string) map[string]T {
	out := make(map[string]T, len(rows))
	for _, r := range rows {
		out[key(r)] = r
	}
	return out
}

// distinct returns the non-empty ids once each, in first-seen order.
func distinct(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func later(cur *time.Time, t time.Time) *time.Time {
	if t.IsZero() {
		return cur
	}
	if cur == nil || t.After(*cur) {
		return &t
	}
	return cur
}

func latest(ts ...*time.Time) *time.Time {
	var out *time.Time
	for _, t := range ts {
		if t != nil {
			out = later(out, *t)
		}
	}
	return out
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
