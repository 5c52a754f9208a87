package ownerwallets

import (
	"fmt"
	"time"

	"coffee-backoffice/internal/auth"
	"coffee-backoffice/internal/wallet"
)

var (
	owner    = auth.Identity{UserID: "owner-1", Role: "owner"}
	stranger = auth.Identity{UserID: "owner-2", Role: "owner"}
	base     = time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
)

func wid(n int) string { return fmt.Sprintf("00000000-0000-4000-8000-%012d", n) }

func sp(s string) *string { return &s }

func tp(t time.Time) *time.Time { return &t }

// seedW1 builds two owned cafe wallets (W1 with a full history, W2 empty)
// and one wallet in a cafe owner-1 does not administer.
func seedW1() *MemorySource {
	src := NewMemorySource()
	src.Cafes = []wallet.Cafe{
		{ID: "cafe-a", Name: sp("Bean There"), Address: sp("1 Main St")},
		{ID: "cafe-b", Name: sp("Other Roasters")},
	}
	src.Owners["owner-1"] = []string{"cafe-a"}
	src.Owners["owner-2"] = []string{"cafe-b"}
	src.Profiles = []wallet.Profile{
		{ID: "u1", Email: sp("anna@example.com"), Phone: sp("+100"), FullName: sp("Anna Smirnova"), CreatedAt: base.Add(-24 * time.Hour)},
		{ID: "u2", Email: sp("boris@example.com"), CreatedAt: base},
		{ID: "u3", FullName: sp("Carl"), CreatedAt: base},
	}
	src.Wallets = []wallet.Wallet{
		{ID: wid(1), UserID: "u1", Type: wallet.WalletTypeCafe, BalanceCredits: 80, LifetimeTopUpCredits: 100, CafeID: sp("cafe-a"), CreatedAt: base, UpdatedAt: base.Add(3 * time.Hour)},
		{ID: wid(2), UserID: "u2", Type: wallet.WalletTypeCafe, CafeID: sp("cafe-a"), CreatedAt: base.Add(time.Hour), UpdatedAt: base.Add(time.Hour)},
		{ID: wid(3), UserID: "u3", Type: wallet.WalletTypeCafe, BalanceCredits: 50, CafeID: sp("cafe-b"), CreatedAt: base, UpdatedAt: base},
		{ID: wid(4), UserID: "u1", Type: wallet.WalletTypeCityPass, BalanceCredits: 500, CreatedAt: base, UpdatedAt: base},
	}
	src.Transactions = []wallet.Transaction{
		{ID: "t1", WalletID: wid(1), Amount: 100, Type: wallet.TransactionTypeTopUp, BalanceBefore: 0, BalanceAfter: 100, CreatedAt: base.Add(time.Hour)},
		{ID: "t2", WalletID: wid(1), Amount: -30, Type: wallet.TransactionTypePayment, OrderID: sp("o1"), ActorUserID: sp("u1"), BalanceBefore: 100, BalanceAfter: 70, CreatedAt: base.Add(2 * time.Hour)},
		{ID: "t3", WalletID: wid(1), Amount: 10, Type: wallet.TransactionTypeRefund, BalanceBefore: 70, BalanceAfter: 80, CreatedAt: base.Add(3 * time.Hour)},
		{ID: "t9", WalletID: wid(3), Amount: 50, Type: wallet.TransactionTypeTopUp, BalanceBefore: 0, BalanceAfter: 50, CreatedAt: base.Add(time.Hour)},
	}
	src.Payments = []wallet.Payment{
		{ID: "p1", WalletID: wid(1), OrderID: sp("o1"), AmountCredits: 30, CommissionCredits: 3, Status: wallet.PaymentStatusCompleted, CreatedAt: base.Add(2 * time.Hour), CompletedAt: tp(base.Add(2 * time.Hour))},
	}
	src.Orders = []wallet.Order{
		{ID: "o1", OrderNumber: sp("A-001"), CafeID: "cafe-a", WalletID: sp(wid(1)), Status: wallet.OrderStatusIssued, SubtotalCredits: 30, PaidCredits: 30, CreatedAt: base.Add(2 * time.Hour)},
	}
	src.Items = []wallet.OrderItem{
		{ID: "i1", OrderID: "o1", ItemName: "Latte", Qty: 1, UnitPriceCredits: 30, LineTotalCredits: 30, Modifiers: sp(`{"milk":"oat"}`)},
	}
	return src
}

func ownerWithoutCafes() auth.Identity {
	return auth.Identity{UserID: "owner-9", Role: "owner"}
}

func newTestService(src *MemorySource) *Service {
	return NewService(src, src, Options{FallbackEnabled: true, MaxPage: 500})
}

func ownerWithoutRole() auth.Identity { return auth.Identity{UserID: "owner-1"} }
