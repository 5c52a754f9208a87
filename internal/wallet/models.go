package wallet

import "time"

// Wallet is a per-user balance bucket.
// Invariant: BalanceCredits equals the balance_after of the latest ledger entry.
// This package never mutates wallets; all writes happen in database-side flows.
type Wallet struct {
	ID     string `json:"id" db:"id"`
	UserID string `json:"user_id" db:"user_id"`

	Type WalletType `json:"wallet_type" db:"wallet_type"`

	BalanceCredits       int64 `json:"balance_credits" db:"balance_credits"`
	LifetimeTopUpCredits int64 `json:"lifetime_top_up_credits" db:"lifetime_top_up_credits"`

	CafeID    *string `json:"cafe_id" db:"cafe_id"`
	NetworkID *string `json:"network_id" db:"network_id"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type WalletType string

const (
	WalletTypeCityPass WalletType = "citypass"
	WalletTypeCafe     WalletType = "cafe_wallet"
)

type Profile struct {
	ID        string    `json:"id" db:"id"`
	Email     *string   `json:"email" db:"email"`
	Phone     *string   `json:"phone" db:"phone"`
	FullName  *string   `json:"full_name" db:"full_name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type Cafe struct {
	ID      string  `json:"id" db:"id"`
	Name    *string `json:"name" db:"name"`
	Address *string `json:"address" db:"address"`
}

type Network struct {
	ID   string  `json:"id" db:"id"`
	Name *string `json:"name" db:"name"`
}

// Transaction is one immutable wallet ledger entry.
// Amount is signed: credits positive, debits negative.
type Transaction struct {
	ID       string          `json:"id" db:"id"`
	WalletID string          `json:"wallet_id" db:"wallet_id"`
	Amount   int64           `json:"amount" db:"amount"`
	Type     TransactionType `json:"type" db:"type"`

	Description *string `json:"description" db:"description"`
	OrderID     *string `json:"order_id" db:"order_id"`
	ActorUserID *string `json:"actor_user_id" db:"actor_user_id"`

	BalanceBefore int64 `json:"balance_before" db:"balance_before"`
	BalanceAfter  int64 `json:"balance_after" db:"balance_after"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type TransactionType string

const (
	TransactionTypeTopUp       TransactionType = "topup"
	TransactionTypePayment     TransactionType = "payment"
	TransactionTypeRefund      TransactionType = "refund"
	TransactionTypeAdminCredit TransactionType = "admin_credit"
	TransactionTypeAdminDebit  TransactionType = "admin_debit"
	TransactionTypeBonus       TransactionType = "bonus"
)

// Payment is a captured (or attempted) payment against a wallet.
type Payment struct {
	ID       string  `json:"id" db:"id"`
	WalletID string  `json:"wallet_id" db:"wallet_id"`
	OrderID  *string `json:"order_id" db:"order_id"`

	AmountCredits     int64 `json:"amount_credits" db:"amount_credits"`
	CommissionCredits int64 `json:"commission_credits" db:"commission_credits"`

	TransactionType       *string       `json:"transaction_type" db:"transaction_type"`
	PaymentMethod         *string       `json:"payment_method" db:"payment_method"`
	Status                PaymentStatus `json:"status" db:"status"`
	ProviderTransactionID *string       `json:"provider_transaction_id" db:"provider_transaction_id"`

	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	CompletedAt *time.Time `json:"completed_at" db:"completed_at"`
}

// NetAmount is the gross amount less platform commission.
func (p Payment) NetAmount() int64 { return p.AmountCredits - p.CommissionCredits }

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusCancelled PaymentStatus = "cancelled"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

type Order struct {
	ID          string  `json:"id" db:"id"`
	OrderNumber *string `json:"order_number" db:"order_number"`
	CafeID      string  `json:"cafe_id" db:"cafe_id"`
	WalletID    *string `json:"wallet_id" db:"wallet_id"`

	Status OrderStatus `json:"status" db:"status"`

	SubtotalCredits int64 `json:"subtotal_credits" db:"subtotal_credits"`
	BonusUsed       int64 `json:"bonus_used" db:"bonus_used"`
	PaidCredits     int64 `json:"paid_credits" db:"paid_credits"`

	PaymentMethod *string `json:"payment_method" db:"payment_method"`
	PaymentStatus *string `json:"payment_status" db:"payment_status"`
	CustomerName  *string `json:"customer_name" db:"customer_name"`
	CustomerPhone *string `json:"customer_phone" db:"customer_phone"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type OrderStatus string

const (
	OrderStatusCreated   OrderStatus = "created"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusReady     OrderStatus = "ready"
	OrderStatusIssued    OrderStatus = "issued"
	OrderStatusPickedUp  OrderStatus = "picked_up"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Completed reports whether the order reached the customer.
func (o Order) Completed() bool {
	return o.Status == OrderStatusIssued || o.Status == OrderStatusPickedUp
}

type OrderItem struct {
	ID      string `json:"id" db:"id"`
	OrderID string `json:"order_id" db:"order_id"`

	ItemName         string `json:"item_name" db:"item_name"`
	Qty              int64  `json:"qty" db:"qty"`
	UnitPriceCredits int64  `json:"unit_price_credits" db:"unit_price_credits"`
	LineTotalCredits int64  `json:"line_total_credits" db:"line_total_credits"`

	// Modifiers is the raw jsonb text, nil when the column is NULL.
	Modifiers *string `json:"modifiers" db:"modifiers"`
}
