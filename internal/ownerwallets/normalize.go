package ownerwallets

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"coffee-backoffice/internal/wallet"

	"github.com/google/uuid"
)

// Procedure rows are loosely typed. Every shape goes through exactly one
// function below; nullable numbers become 0 and nullable text becomes nil.

func summaryFromRow(r wallet.Row) WalletSummary {
	return WalletSummary{
		WalletID:             str(first(r, "wallet_id", "id")),
		UserID:               str(r["user_id"]),
		WalletType:           wallet.WalletType(str(r["wallet_type"])),
		BalanceCredits:       toInt64(r["balance_credits"]),
		LifetimeTopUpCredits: toInt64(r["lifetime_top_up_credits"]),
		CreatedAt:            toTime(r["created_at"]),
		UserEmail:            strPtr(r["user_email"]),
		UserPhone:            strPtr(r["user_phone"]),
		UserFullName:         strPtr(r["user_full_name"]),
		CafeID:               strPtr(r["cafe_id"]),
		CafeName:             strPtr(r["cafe_name"]),
		NetworkID:            strPtr(r["network_id"]),
		NetworkName:          strPtr(r["network_name"]),
		Activity:             activityFromRow(r),
	}
}

func activityFromRow(r wallet.Row) Activity {
	a := Activity{
		TotalTransactions:      toInt64(r["total_transactions"]),
		TotalPayments:          toInt64(r["total_payments"]),
		TotalOrders:            toInt64(r["total_orders"]),
		TotalTopupCredits:      toInt64(first(r, "total_topup_credits", "total_topups_credits")),
		TotalPaymentCredits:    toInt64(first(r, "total_payment_credits", "total_payments_credits", "total_spent_credits")),
		TotalRefundCredits:     toInt64(first(r, "total_refund_credits", "total_refunds_credits")),
		NetWalletChangeCredits: toInt64(first(r, "net_wallet_change_credits", "net_change_credits")),
		TotalOrdersPaidCredits: toInt64(first(r, "total_orders_paid_credits", "total_paid_credits")),
		LastTransactionAt:      timePtr(r["last_transaction_at"]),
		LastPaymentAt:          timePtr(r["last_payment_at"]),
		LastOrderAt:            timePtr(r["last_order_at"]),
	}
	a.LastActivityAt = timePtr(r["last_activity_at"])
	if a.LastActivityAt == nil {
		a.LastActivityAt = latest(a.LastTransactionAt, a.LastPaymentAt, a.LastOrderAt)
	}
	return a
}

func overviewFromRow(r wallet.Row) Overview {
	ov := Overview{
		WalletSummary:           summaryFromRow(r),
		UpdatedAt:               toTime(r["updated_at"]),
		CafeAddress:             strPtr(r["cafe_address"]),
		UserRegisteredAt:        timePtr(r["user_registered_at"]),
		CompletedOrders:         toInt64(r["completed_orders"]),
		AverageOrderPaidCredits: toInt64(r["average_order_paid_credits"]),
	}
	if ov.UpdatedAt.IsZero() {
		ov.UpdatedAt = ov.CreatedAt
	}
	return ov
}

func statsFromRow(r wallet.Row) Stats {
	return Stats{
		TotalWallets:         toInt64(r["total_wallets"]),
		TotalBalanceCredits:  toInt64(r["total_balance_credits"]),
		TotalTopupsCredits:   toInt64(r["total_topups_credits"]),
		TotalPaymentsCredits: toInt64(r["total_payments_credits"]),
		NetChangeCredits:     toInt64(r["net_change_credits"]),
	}
}

func transactionFromRow(r wallet.Row) TransactionEntry {
	return TransactionEntry{
		TransactionID: str(first(r, "transaction_id", "id")),
		WalletID:      str(r["wallet_id"]),
		Amount:        toInt64(r["amount"]),
		Type:          wallet.TransactionType(str(r["type"])),
		Description:   strPtr(r["description"]),
		OrderID:       strPtr(r["order_id"]),
		OrderNumber:   strPtr(r["order_number"]),
		ActorUserID:   strPtr(r["actor_user_id"]),
		ActorEmail:    strPtr(r["actor_email"]),
		ActorFullName: strPtr(r["actor_full_name"]),
		BalanceBefore: toInt64(r["balance_before"]),
		BalanceAfter:  toInt64(r["balance_after"]),
		CreatedAt:     toTime(r["created_at"]),
	}
}

func paymentFromRow(r wallet.Row) PaymentEntry {
	p := PaymentEntry{
		PaymentID:             str(first(r, "payment_id", "id")),
		WalletID:              str(r["wallet_id"]),
		AmountCredits:         toInt64(r["amount_credits"]),
		CommissionCredits:     toInt64(r["commission_credits"]),
		OrderID:               strPtr(r["order_id"]),
		OrderNumber:           strPtr(r["order_number"]),
		Status:                wallet.PaymentStatus(str(r["status"])),
		TransactionType:       strPtr(r["transaction_type"]),
		PaymentMethod:         strPtr(r["payment_method"]),
		ProviderTransactionID: strPtr(r["provider_transaction_id"]),
		CreatedAt:             toTime(r["created_at"]),
		CompletedAt:           timePtr(r["completed_at"]),
	}
	if v, ok := r["net_amount"]; ok && v != nil {
		p.NetAmount = toInt64(v)
	} else {
		p.NetAmount = p.AmountCredits - p.CommissionCredits
	}
	return p
}

// orderFromRow fails only when items is present but not decodable.
func orderFromRow(r wallet.Row) (OrderEntry, error) {
	o := OrderEntry{
		OrderID:         str(first(r, "order_id", "id")),
		OrderNumber:     strPtr(r["order_number"]),
		CafeID:          strPtr(r["cafe_id"]),
		CafeName:        strPtr(r["cafe_name"]),
		Status:          wallet.OrderStatus(str(r["status"])),
		SubtotalCredits: toInt64(r["subtotal_credits"]),
		BonusUsed:       toInt64(r["bonus_used"]),
		PaidCredits:     toInt64(r["paid_credits"]),
		PaymentMethod:   strPtr(r["payment_method"]),
		PaymentStatus:   strPtr(r["payment_status"]),
		CustomerName:    strPtr(r["customer_name"]),
		CustomerPhone:   strPtr(r["customer_phone"]),
		CreatedAt:       toTime(r["created_at"]),
	}
	items, err := linesFromValue(r["items"])
	if err != nil {
		return OrderEntry{}, fmt.Errorf("order %s items: %w", o.OrderID, err)
	}
	o.Items = items
	return o, nil
}

// linesFromValue accepts items as decoded JSON or as json/jsonb text.
func linesFromValue(v any) ([]OrderLine, error) {
	var raw []map[string]any
	switch t := v.(type) {
	case nil:
		return []OrderLine{}, nil
	case string:
		if err := json.Unmarshal([]byte(t), &raw); err != nil {
			return nil, err
		}
	case []byte:
		if err := json.Unmarshal(t, &raw); err != nil {
			return nil, err
		}
	case []map[string]any:
		raw = t
	case []any:
		for i, e := range t {
			m, ok := e.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("item %d is %T, want object", i, e)
			}
			raw = append(raw, m)
		}
	default:
		return nil, fmt.Errorf("unsupported items type %T", v)
	}
	out := make([]OrderLine, 0, len(raw))
	for _, m := range raw {
		out = append(out, OrderLine{
			ItemName:         str(m["item_name"]),
			Qty:              toInt64(m["qty"]),
			UnitPriceCredits: toInt64(m["unit_price_credits"]),
			LineTotalCredits: toInt64(m["line_total_credits"]),
			Modifiers:        modifiersJSON(m["modifiers"]),
		})
	}
	return out, nil
}

func lineFromItem(it wallet.OrderItem) OrderLine {
	var mods any
	if it.Modifiers != nil {
		mods = *it.Modifiers
	}
	return OrderLine{
		ItemName:         it.ItemName,
		Qty:              it.Qty,
		UnitPriceCredits: it.UnitPriceCredits,
		LineTotalCredits: it.LineTotalCredits,
		Modifiers:        modifiersJSON(mods),
	}
}

// modifiersJSON keeps valid JSON text as-is, re-encodes decoded values and
// quotes anything else. nil stays nil (encodes as null).
func modifiersJSON(v any) json.RawMessage {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		if json.Valid([]byte(t)) {
			return json.RawMessage(t)
		}
		b, _ := json.Marshal(t)
		return b
	case []byte:
		if json.Valid(t) {
			return json.RawMessage(t)
		}
		b, _ := json.Marshal(string(t))
		return b
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return nil
		}
		return b
	}
}

func first(r wallet.Row, keys ...string) any {
	for _, k := range keys {
		if v, ok := r[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func toInt64(v any) int64 {
	switch t := v.(type) {
	case nil:
		return 0
	case int64:
		return t
	case int32:
		return int64(t)
	case int:
		return int64(t)
	case int16:
		return int64(t)
	case float64:
		return roundFloat(t)
	case float32:
		return roundFloat(float64(t))
	case json.Number:
		return parseInt(t.String())
	case string:
		return parseInt(t)
	case []byte:
		return parseInt(string(t))
	case bool:
		if t {
			return 1
		}
		return 0
	default:
		return parseInt(fmt.Sprint(t))
	}
}

func parseInt(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return roundFloat(f)
}

func roundFloat(f float64) int64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int64(math.Round(f))
}

func str(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case [16]byte:
		return uuid.UUID(t).String()
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

func strPtr(v any) *string {
	if v == nil {
		return nil
	}
	s := str(v)
	return &s
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999-07",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
}

func toTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t.UTC()
	case *time.Time:
		if t != nil {
			return t.UTC()
		}
	case string:
		return parseTime(t)
	case []byte:
		return parseTime(string(t))
	}
	return time.Time{}
}

func parseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC()
		}
	}
	return time.Time{}
}

func timePtr(v any) *time.Time {
	t := toTime(v)
	if t.IsZero() {
		return nil
	}
	return &t
}
