package wallet

import (
	"context"
	"database/sql"
	"errors"

	"coffee-backoffice/internal/auth"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// NOTE: This repository assumes the following tables exist (see migrations/):
// - wallets, profiles, cafes, wallet_networks
// - wallet_transactions (immutable ledger)
// - payment_transactions
// - orders, order_items
//
// Every read is batched by id set (= ANY($1)) so callers can bound round trips
// regardless of how many wallets or rows they aggregate.

const walletColumns = `
id, user_id, wallet_type,
COALESCE(balance_credits, 0) AS balance_credits,
COALESCE(lifetime_top_up_credits, 0) AS lifetime_top_up_credits,
cafe_id, network_id, created_at,
COALESCE(updated_at, created_at) AS updated_at`

const transactionColumns = `
id, wallet_id, COALESCE(amount, 0) AS amount, type, description, order_id, actor_user_id,
COALESCE(balance_before, 0) AS balance_before,
COALESCE(balance_after, 0) AS balance_after,
created_at`

const paymentColumns = `
id, wallet_id, order_id,
COALESCE(amount_credits, 0) AS amount_credits,
COALESCE(commission_credits, 0) AS commission_credits,
transaction_type, payment_method, status, provider_transaction_id,
created_at, completed_at`

const orderColumns = `
id, order_number, cafe_id, wallet_id, status,
COALESCE(subtotal_credits, 0) AS subtotal_credits,
COALESCE(bonus_used, 0) AS bonus_used,
COALESCE(paid_credits, 0) AS paid_credits,
payment_method, payment_status, customer_name, customer_phone, created_at`

// Repository reads raw ledger tables on behalf of a caller.
type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// CafeWalletsByCafes returns cafe-type wallets belonging to any of cafeIDs, newest first.
func (r *Repository) CafeWalletsByCafes(ctx context.Context, id auth.Identity, cafeIDs []string) ([]Wallet, error) {
	if len(cafeIDs) == 0 {
		return []Wallet{}, nil
	}
	out := []Wallet{}
	err := readAs(ctx, r.db, id, func(ctx context.Context, tx *sqlx.Tx) error {
		return tx.SelectContext(ctx, &out, `
SELECT `+walletColumns+`
FROM wallets
WHERE wallet_type = 'cafe_wallet' AND cafe_id = ANY($1)
ORDER BY created_at DESC`, pq.Array(cafeIDs))
	})
	return out, err
}

// FindCafeWallet loads one wallet restricted to wallet_type = cafe_wallet.
func (r *Repository) FindCafeWallet(ctx context.Context, id auth.Identity, walletID string) (Wallet, bool, error) {
	var w Wallet
	err := readAs(ctx, r.db, id, func(ctx context.Context, tx *sqlx.Tx) error {
		return tx.GetContext(ctx, &w, `
SELECT `+walletColumns+`
FROM wallets
WHERE id = $1 AND wallet_type = 'cafe_wallet'`, walletID)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Wallet{}, false, nil
		}
		return Wallet{}, false, err
	}
	return w, true, nil
}

func (r *Repository) ProfilesByIDs(ctx context.Context, id auth.Identity, ids []string) ([]Profile, error) {
	if len(ids) == 0 {
		return []Profile{}, nil
	}
	out := []Profile{}
	err := readAs(ctx, r.db, id, func(ctx context.Context, tx *sqlx.Tx) error {
		return tx.SelectContext(ctx, &out, `
SELECT id, email, phone, full_name, created_at
FROM profiles
WHERE id = ANY($1)`, pq.Array(ids))
	})
	return out, err
}

func (r *Repository) CafesByIDs(ctx context.Context, id auth.Identity, ids []string) ([]Cafe, error) {
	if len(ids) == 0 {
		return []Cafe{}, nil
	}
	out := []Cafe{}
	err := readAs(ctx, r.db, id, func(ctx context.Context, tx *sqlx.Tx) error {
		return tx.SelectContext(ctx, &out, `
SELECT id, name, address
FROM cafes
WHERE id = ANY($1)`, pq.Array(ids))
	})
	return out, err
}

func (r *Repository) NetworksByIDs(ctx context.Context, id auth.Identity, ids []string) ([]Network, error) {
	if len(ids) == 0 {
		return []Network{}, nil
	}
	out := []Network{}
	err := readAs(ctx, r.db, id, func(ctx context.Context, tx *sqlx.Tx) error {
		return tx.SelectContext(ctx, &out, `
SELECT id, name
FROM wallet_networks
WHERE id = ANY($1)`, pq.Array(ids))
	})
	return out, err
}

func (r *Repository) TransactionsByWallets(ctx context.Context, id auth.Identity, walletIDs []string) ([]Transaction, error) {
	if len(walletIDs) == 0 {
		return []Transaction{}, nil
	}
	out := []Transaction{}
	err := readAs(ctx, r.db, id, func(ctx context.Context, tx *sqlx.Tx) error {
		return tx.SelectContext(ctx, &out, `
SELECT `+transactionColumns+`
FROM wallet_transactions
WHERE wallet_id = ANY($1)
ORDER BY created_at DESC`, pq.Array(walletIDs))
	})
	return out, err
}

func (r *Repository) PaymentsByWallets(ctx context.Context, id auth.Identity, walletIDs []string) ([]Payment, error) {
	if len(walletIDs) == 0 {
		return []Payment{}, nil
	}
	out := []Payment{}
	err := readAs(ctx, r.db, id, func(ctx context.Context, tx *sqlx.Tx) error {
		return tx.SelectContext(ctx, &out, `
SELECT `+paymentColumns+`
FROM payment_transactions
WHERE wallet_id = ANY($1)
ORDER BY created_at DESC`, pq.Array(walletIDs))
	})
	return out, err
}

func (r *Repository) OrdersByWallets(ctx context.Context, id auth.Identity, walletIDs []string) ([]Order, error) {
	if len(walletIDs) == 0 {
		return []Order{}, nil
	}
	out := []Order{}
	err := readAs(ctx, r.db, id, func(ctx context.Context, tx *sqlx.Tx) error {
		return tx.SelectContext(ctx, &out, `
SELECT `+orderColumns+`
FROM orders
WHERE wallet_id = ANY($1)
ORDER BY created_at DESC`, pq.Array(walletIDs))
	})
	return out, err
}

func (r *Repository) OrdersByIDs(ctx context.Context, id auth.Identity, orderIDs []string) ([]Order, error) {
	if len(orderIDs) == 0 {
		return []Order{}, nil
	}
	out := []Order{}
	err := readAs(ctx, r.db, id, func(ctx context.Context, tx *sqlx.Tx) error {
		return tx.SelectContext(ctx, &out, `
SELECT `+orderColumns+`
FROM orders
WHERE id = ANY($1)`, pq.Array(orderIDs))
	})
	return out, err
}

func (r *Repository) OrderItemsByOrders(ctx context.Context, id auth.Identity, orderIDs []string) ([]OrderItem, error) {
	if len(orderIDs) == 0 {
		return []OrderItem{}, nil
	}
	out := []OrderItem{}
	err := readAs(ctx, r.db, id, func(ctx context.Context, tx *sqlx.Tx) error {
		return tx.SelectContext(ctx, &out, `
SELECT id, order_id, COALESCE(item_name, '') AS item_name,
       COALESCE(qty, 0) AS qty,
       COALESCE(unit_price_credits, 0) AS unit_price_credits,
       COALESCE(line_total_credits, 0) AS line_total_credits,
       modifiers::text AS modifiers
FROM order_items
WHERE order_id = ANY($1)
ORDER BY order_id, id`, pq.Array(orderIDs))
	})
	return out, err
}

// TransactionsPage returns one page of a wallet's ledger, newest first.
func (r *Repository) TransactionsPage(ctx context.Context, id auth.Identity, walletID string, limit, offset int) ([]Transaction, error) {
	out := []Transaction{}
	err := readAs(ctx, r.db, id, func(ctx context.Context, tx *sqlx.Tx) error {
		return tx.SelectContext(ctx, &out, `
SELECT `+transactionColumns+`
FROM wallet_transactions
WHERE wallet_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`, walletID, limit, offset)
	})
	return out, err
}

func (r *Repository) PaymentsPage(ctx context.Context, id auth.Identity, walletID string, limit, offset int) ([]Payment, error) {
	out := []Payment{}
	err := readAs(ctx, r.db, id, func(ctx context.Context, tx *sqlx.Tx) error {
		return tx.SelectContext(ctx, &out, `
SELECT `+paymentColumns+`
FROM payment_transactions
WHERE wallet_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`, walletID, limit, offset)
	})
	return out, err
}

func (r *Repository) OrdersPage(ctx context.Context, id auth.Identity, walletID string, limit, offset int) ([]Order, error) {
	out := []Order{}
	err := readAs(ctx, r.db, id, func(ctx context.Context, tx *sqlx.Tx) error {
		return tx.SelectContext(ctx, &out, `
SELECT `+orderColumns+`
FROM orders
WHERE wallet_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`, walletID, limit, offset)
	})
	return out, err
}
