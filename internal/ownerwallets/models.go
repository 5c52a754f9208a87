package ownerwallets

import (
	"encoding/json"
	"time"

	"coffee-backoffice/internal/wallet"
)

// Activity is the per-wallet aggregate over transactions, payments and orders.
// Credit sums are magnitudes: a -30 payment adds 30 to TotalPaymentCredits.
type Activity struct {
	TotalTransactions int64 `json:"total_transactions"`
	TotalPayments     int64 `json:"total_payments"`
	TotalOrders       int64 `json:"total_orders"`

	TotalTopupCredits      int64 `json:"total_topup_credits"`
	TotalPaymentCredits    int64 `json:"total_payment_credits"`
	TotalRefundCredits     int64 `json:"total_refund_credits"`
	NetWalletChangeCredits int64 `json:"net_wallet_change_credits"`
	TotalOrdersPaidCredits int64 `json:"total_orders_paid_credits"`

	LastTransactionAt *time.Time `json:"last_transaction_at"`
	LastPaymentAt     *time.Time `json:"last_payment_at"`
	LastOrderAt       *time.Time `json:"last_order_at"`
	LastActivityAt    *time.Time `json:"last_activity_at"`
}

// WalletSummary is one row of the owner wallet list.
type WalletSummary struct {
	WalletID             string            `json:"wallet_id"`
	UserID               string            `json:"user_id"`
	WalletType           wallet.WalletType `json:"wallet_type"`
	BalanceCredits       int64             `json:"balance_credits"`
	LifetimeTopUpCredits int64             `json:"lifetime_top_up_credits"`
	CreatedAt            time.Time         `json:"created_at"`

	UserEmail    *string `json:"user_email"`
	UserPhone    *string `json:"user_phone"`
	UserFullName *string `json:"user_full_name"`

	CafeID      *string `json:"cafe_id"`
	CafeName    *string `json:"cafe_name"`
	NetworkID   *string `json:"network_id"`
	NetworkName *string `json:"network_name"`

	Activity
}

// Overview is the single-wallet card. It is recomputed on every read.
type Overview struct {
	WalletSummary

	UpdatedAt        time.Time  `json:"updated_at"`
	CafeAddress      *string    `json:"cafe_address"`
	UserRegisteredAt *time.Time `json:"user_registered_at"`

	CompletedOrders         int64 `json:"completed_orders"`
	AverageOrderPaidCredits int64 `json:"average_order_paid_credits"`
}

type Stats struct {
	TotalWallets         int64 `json:"total_wallets"`
	TotalBalanceCredits  int64 `json:"total_balance_credits"`
	TotalTopupsCredits   int64 `json:"total_topups_credits"`
	TotalPaymentsCredits int64 `json:"total_payments_credits"`
	NetChangeCredits     int64 `json:"net_change_credits"`
}

type TransactionEntry struct {
	TransactionID string                 `json:"transaction_id"`
	WalletID      string                 `json:"wallet_id"`
	Amount        int64                  `json:"amount"`
	Type          wallet.TransactionType `json:"type"`
	Description   *string                `json:"description"`

	OrderID     *string `json:"order_id"`
	OrderNumber *string `json:"order_number"`

	ActorUserID   *string `json:"actor_user_id"`
	ActorEmail    *string `json:"actor_email"`
	ActorFullName *string `json:"actor_full_name"`

	BalanceBefore int64     `json:"balance_before"`
	BalanceAfter  int64     `json:"balance_after"`
	CreatedAt     time.Time `json:"created_at"`
}

type PaymentEntry struct {
	PaymentID         string `json:"payment_id"`
	WalletID          string `json:"wallet_id"`
	AmountCredits     int64  `json:"amount_credits"`
	CommissionCredits int64  `json:"commission_credits"`
	NetAmount         int64  `json:"net_amount"`

	OrderID     *string `json:"order_id"`
	OrderNumber *string `json:"order_number"`

	Status                wallet.PaymentStatus `json:"status"`
	TransactionType       *string              `json:"transaction_type"`
	PaymentMethod         *string              `json:"payment_method"`
	ProviderTransactionID *string              `json:"provider_transaction_id"`

	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at"`
}

type OrderEntry struct {
	OrderID     string             `json:"order_id"`
	OrderNumber *string            `json:"order_number"`
	CafeID      *string            `json:"cafe_id"`
	CafeName    *string            `json:"cafe_name"`
	Status      wallet.OrderStatus `json:"status"`

	SubtotalCredits int64 `json:"subtotal_credits"`
	BonusUsed       int64 `json:"bonus_used"`
	PaidCredits     int64 `json:"paid_credits"`

	PaymentMethod *string `json:"payment_method"`
	PaymentStatus *string `json:"payment_status"`
	CustomerName  *string `json:"customer_name"`
	CustomerPhone *string `json:"customer_phone"`

	CreatedAt time.Time   `json:"created_at"`
	Items     []OrderLine `json:"items"`
}

type OrderLine struct {
	ItemName         string          `json:"item_name"`
	Qty              int64           `json:"qty"`
	UnitPriceCredits int64           `json:"unit_price_credits"`
	LineTotalCredits int64           `json:"line_total_credits"`
	Modifiers        json.RawMessage `json:"modifiers"`
}

type SortField string

const (
	SortByCreatedAt    SortField = "created_at"
	SortByBalance      SortField = "balance"
	SortByLifetime     SortField = "lifetime"
	SortByLastActivity SortField = "last_activity"
)

func (f SortField) Valid() bool {
	switch f {
	case "", SortByCreatedAt, SortByBalance, SortByLifetime, SortByLastActivity:
		return true
	}
	return false
}

type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

func (o SortOrder) Valid() bool {
	return o == "" || o == SortAsc || o == SortDesc
}

// ListOptions drives ListWallets. Empty CafeID means every owned cafe.
// Empty SortBy means created_at; empty SortOrder means desc. On the procedure
// path an empty SortBy leaves ordering to owner_get_wallets; an explicit
// created_at is always computed locally.
type ListOptions struct {
	CafeID    string
	Limit     int
	Offset    int
	Search    string
	SortBy    SortField
	SortOrder SortOrder
}

type PageOptions struct {
	Limit  int
	Offset int
}

// Reconciliation is the ledger chain check for one wallet.
type Reconciliation struct {
	WalletID string `json:"wallet_id"`
	wallet.LedgerCheck
}
