package ownerwallets

import (
	"context"

	"coffee-backoffice/internal/auth"
	"coffee-backoffice/internal/wallet"
)

// Procedures is the privileged procedure surface. Implementations call as the
// caller and return rows untouched; ownership is enforced inside the database.
type Procedures interface {
	Call(ctx context.Context, id auth.Identity, name string, args ...wallet.Arg) ([]wallet.Row, error)
	OwnedCafes(ctx context.Context, id auth.Identity) ([]wallet.Cafe, error)
}

// Tables is raw row-level-secured table access for the local aggregation path.
// Batch reads take id sets and must return an empty slice for an empty set.
type Tables interface {
	CafeWalletsByCafes(ctx context.Context, id auth.Identity, cafeIDs []string) ([]wallet.Wallet, error)
	FindCafeWallet(ctx context.Context, id auth.Identity, walletID string) (wallet.Wallet, bool, error)

	ProfilesByIDs(ctx context.Context, id auth.Identity, ids []string) ([]wallet.Profile, error)
	CafesByIDs(ctx context.Context, id auth.Identity, ids []string) ([]wallet.Cafe, error)
	NetworksByIDs(ctx context.Context, id auth.Identity, ids []string) ([]wallet.Network, error)

	TransactionsByWallets(ctx context.Context, id auth.Identity, walletIDs []string) ([]wallet.Transaction, error)
	PaymentsByWallets(ctx context.Context, id auth.Identity, walletIDs []string) ([]wallet.Payment, error)
	OrdersByWallets(ctx context.Context, id auth.Identity, walletIDs []string) ([]wallet.Order, error)

	OrdersByIDs(ctx context.Context, id auth.Identity, orderIDs []string) ([]wallet.Order, error)
	OrderItemsByOrders(ctx context.Context, id auth.Identity, orderIDs []string) ([]wallet.OrderItem, error)

	TransactionsPage(ctx context.Context, id auth.Identity, walletID string, limit, offset int) ([]wallet.Transaction, error)
	PaymentsPage(ctx context.Context, id auth.Identity, walletID string, limit, offset int) ([]wallet.Payment, error)
	OrdersPage(ctx context.Context, id auth.Identity, walletID string, limit, offset int) ([]wallet.Order, error)
}

// Strategy computes every owner wallet read one way.
type Strategy interface {
	ListWallets(ctx context.Context, id auth.Identity, opts ListOptions) ([]WalletSummary, error)
	Stats(ctx context.Context, id auth.Identity, cafeID string) (Stats, error)
	Overview(ctx context.Context, id auth.Identity, walletID string) (Overview, error)
	Transactions(ctx context.Context, id auth.Identity, walletID string, page PageOptions) ([]TransactionEntry, error)
	Payments(ctx context.Context, id auth.Identity, walletID string, page PageOptions) ([]PaymentEntry, error)
	Orders(ctx context.Context, id auth.Identity, walletID string, page PageOptions) ([]OrderEntry, error)
}

var (
	_ Procedures = (*wallet.Procedures)(nil)
	_ Tables     = (*wallet.Repository)(nil)
)
