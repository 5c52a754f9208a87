package ownerwallets

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"coffee-backoffice/internal/auth"
	"coffee-backoffice/internal/wallet"
)

// MemorySource is an in-memory Procedures and Tables pair for tests and
// local development. A procedure with no entry in ProcRows fails the way
// Postgres does when the function is not deployed.
type MemorySource struct {
	mu sync.Mutex

	Wallets      []wallet.Wallet
	Profiles     []wallet.Profile
	Cafes        []wallet.Cafe
	Networks     []wallet.Network
	Transactions []wallet.Transaction
	Payments     []wallet.Payment
	Orders       []wallet.Order
	Items        []wallet.OrderItem

	// Owners maps a user id to the cafe ids they administer.
	Owners map[string][]string

	ProcRows map[string][]wallet.Row
	ProcErr  map[string]error
	// TableErr fails reads of one table, keyed by table name.
	TableErr map[string]error

	ProcCalls []string
	// ProcArgs holds the arguments of the latest call per procedure.
	ProcArgs   map[string][]wallet.Arg
	TableReads int
}

func NewMemorySource() *MemorySource {
	return &MemorySource{
		Owners:   map[string][]string{},
		ProcRows: map[string][]wallet.Row{},
		ProcErr:  map[string]error{},
		TableErr: map[string]error{},
		ProcArgs: map[string][]wallet.Arg{},
	}
}

func (m *MemorySource) Call(ctx context.Context, id auth.Identity, name string, args ...wallet.Arg) ([]wallet.Row, error) {
	if !id.Valid() {
		return nil, errors.New("caller identity required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ProcCalls = append(m.ProcCalls, name)
	if m.ProcArgs != nil {
		m.ProcArgs[name] = slices.Clone(args)
	}
	if err := m.ProcErr[name]; err != nil {
		return nil, err
	}
	rows, ok := m.ProcRows[name]
	if !ok {
		return nil, fmt.Errorf("function public.%s does not exist", name)
	}
	return slices.Clone(rows), nil
}

func (m *MemorySource) OwnedCafes(ctx context.Context, id auth.Identity) ([]wallet.Cafe, error) {
	if !id.Valid() {
		return nil, errors.New("caller identity required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ProcErr["get_owner_cafes"]; err != nil {
		return nil, err
	}
	out := make([]wallet.Cafe, 0)
	for _, cid := range m.Owners[id.UserID] {
		c := wallet.Cafe{ID: cid}
		for _, known := range m.Cafes {
			if known.ID == cid {
				c = known
				break
			}
		}
		out = append(out, c)
	}
	return out, nil
}

// read counts a table read and returns the forced error for table, if any.
// Callers hold m.mu.
func (m *MemorySource) read(id auth.Identity, table string) error {
	if !id.Valid() {
		return errors.New("caller identity required")
	}
	m.TableReads++
	return m.TableErr[table]
}

func (m *MemorySource) CafeWalletsByCafes(ctx context.Context, id auth.Identity, cafeIDs []string) ([]wallet.Wallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.read(id, "wallets"); err != nil {
		return nil, err
	}
	out := make([]wallet.Wallet, 0)
	for _, w := range m.Wallets {
		if w.Type == wallet.WalletTypeCafe && w.CafeID != nil && slices.Contains(cafeIDs, *w.CafeID) {
			out = append(out, w)
		}
	}
	slices.SortStableFunc(out, func(a, b wallet.Wallet) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return out, nil
}

func (m *MemorySource) FindCafeWallet(ctx context.Context, id auth.Identity, walletID string) (wallet.Wallet, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.read(id, "wallets"); err != nil {
		return wallet.Wallet{}, false, err
	}
	for _, w := range m.Wallets {
		if w.ID == walletID && w.Type == wallet.WalletTypeCafe {
			return w, true, nil
		}
	}
	return wallet.Wallet{}, false, nil
}

func (m *MemorySource) ProfilesByIDs(ctx context.Context, id auth.Identity, ids []string) ([]wallet.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.read(id, "profiles"); err != nil {
		return nil, err
	}
	return filter(m.Profiles, func(p wallet.Profile) bool { return slices.Contains(ids, p.ID) }), nil
}

func (m *MemorySource) CafesByIDs(ctx context.Context, id auth.Identity, ids []string) ([]wallet.Cafe, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.read(id, "cafes"); err != nil {
		return nil, err
	}
	return filter(m.Cafes, func(c wallet.Cafe) bool { return slices.Contains(ids, c.ID) }), nil
}

func (m *MemorySource) NetworksByIDs(ctx context.Context, id auth.Identity, ids []string) ([]wallet.Network, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.read(id, "wallet_networks"); err != nil {
		return nil, err
	}
	return filter(m.Networks, func(n wallet.Network) bool { return slices.Contains(ids, n.ID) }), nil
}

func (m *MemorySource) TransactionsByWallets(ctx context.Context, id auth.Identity, walletIDs []string) ([]wallet.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.read(id, "wallet_transactions"); err != nil {
		return nil, err
	}
	return filter(m.Transactions, func(t wallet.Transaction) bool { return slices.Contains(walletIDs, t.WalletID) }), nil
}

func (m *MemorySource) PaymentsByWallets(ctx context.Context, id auth.Identity, walletIDs []string) ([]wallet.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.read(id, "payment_transactions"); err != nil {
		return nil, err
	}
	return filter(m.Payments, func(p wallet.Payment) bool { return slices.Contains(walletIDs, p.WalletID) }), nil
}

func (m *MemorySource) OrdersByWallets(ctx context.Context, id auth.Identity, walletIDs []string) ([]wallet.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.read(id, "orders"); err != nil {
		return nil, err
	}
	return filter(m.Orders, func(o wallet.Order) bool { return o.WalletID != nil && slices.Contains(walletIDs, *o.WalletID) }), nil
}

func (m *MemorySource) OrdersByIDs(ctx context.Context, id auth.Identity, orderIDs []string) ([]wallet.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.read(id, "orders"); err != nil {
		return nil, err
	}
	return filter(m.Orders, func(o wallet.Order) bool { return slices.Contains(orderIDs, o.ID) }), nil
}

func (m *MemorySource) OrderItemsByOrders(ctx context.Context, id auth.Identity, orderIDs []string) ([]wallet.OrderItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.read(id, "order_items"); err != nil {
		return nil, err
	}
	return filter(m.Items, func(it wallet.OrderItem) bool { return slices.Contains(orderIDs, it.OrderID) }), nil
}

func (m *MemorySource) TransactionsPage(ctx context.Context, id auth.Identity, walletID string, limit, offset int) ([]wallet.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.read(id, "wallet_transactions"); err != nil {
		return nil, err
	}
	rows := filter(m.Transactions, func(t wallet.Transaction) bool { return t.WalletID == walletID })
	slices.SortStableFunc(rows, func(a, b wallet.Transaction) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return paginate(rows, offset, limit), nil
}

func (m *MemorySource) PaymentsPage(ctx context.Context, id auth.Identity, walletID string, limit, offset int) ([]wallet.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.read(id, "payment_transactions"); err != nil {
		return nil, err
	}
	rows := filter(m.Payments, func(p wallet.Payment) bool { return p.WalletID == walletID })
	slices.SortStableFunc(rows, func(a, b wallet.Payment) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return paginate(rows, offset, limit), nil
}

func (m *MemorySource) OrdersPage(ctx context.Context, id auth.Identity, walletID string, limit, offset int) ([]wallet.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.read(id, "orders"); err != nil {
		return nil, err
	}
	rows := filter(m.Orders, func(o wallet.Order) bool { return o.WalletID != nil && *o.WalletID == walletID })
	slices.SortStableFunc(rows, func(a, b wallet.Order) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return paginate(rows, offset, limit), nil
}

func filter[T any](rows []T, keep func(T) bool) []T {
	out := make([]T, 0)
	for _, r := range rows {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

var (
	_ Procedures = (*MemorySource)(nil)
	_ Tables     = (*MemorySource)(nil)
)
