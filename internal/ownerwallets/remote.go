package ownerwallets

import (
	"context"
	"errors"

	"coffee-backoffice/internal/auth"
	"coffee-backoffice/internal/wallet"
)

const (
	procListWallets  = "owner_get_wallets"
	procStats        = "owner_get_wallets_stats"
	procOverview     = "owner_get_wallet_overview"
	procTransactions = "owner_get_wallet_transactions"
	procPayments     = "owner_get_wallet_payments"
	procOrders       = "owner_get_wallet_orders"
)

// RemoteProcedureStrategy reads through the privileged owner_* procedures.
type RemoteProcedureStrategy struct {
	procs Procedures
}

func NewRemoteProcedureStrategy(procs Procedures) *RemoteProcedureStrategy {
	return &RemoteProcedureStrategy{procs: procs}
}

func (s *RemoteProcedureStrategy) call(ctx context.Context, id auth.Identity, name string, args ...wallet.Arg) ([]wallet.Row, error) {
	rows, err := s.procs.Call(ctx, id, name, args...)
	if err != nil {
		return nil, classify(name, err)
	}
	return rows, nil
}

// owner_get_wallets orders by balance, lifetime or last_activity only.
var errCreatedAtOrder = errors.New("owner_get_wallets cannot order by created_at")

func (s *RemoteProcedureStrategy) ListWallets(ctx context.Context, id auth.Identity, opts ListOptions) ([]WalletSummary, error) {
	if opts.SortBy == SortByCreatedAt {
		return nil, &upstreamError{proc: procListWallets, err: errCreatedAtOrder}
	}
	rows, err := s.call(ctx, id, procListWallets,
		wallet.Arg{Name: "p_limit", Value: opts.Limit},
		wallet.Arg{Name: "p_offset", Value: opts.Offset},
		wallet.Arg{Name: "p_search", Value: nullable(opts.Search)},
		wallet.Arg{Name: "p_cafe_id", Value: nullable(opts.CafeID)},
		wallet.Arg{Name: "p_sort_by", Value: nullable(string(opts.SortBy))},
		wallet.Arg{Name: "p_sort_order", Value: nullable(string(opts.SortOrder))},
	)
	if err != nil {
		return nil, err
	}
	out := make([]WalletSummary, 0, len(rows))
	for _, r := range rows {
		out = append(out, summaryFromRow(r))
	}
	return out, nil
}

// Stats takes the first row; an empty result is all zeros.
func (s *RemoteProcedureStrategy) Stats(ctx context.Context, id auth.Identity, cafeID string) (Stats, error) {
	var args []wallet.Arg
	if cafeID != "" {
		args = append(args, wallet.Arg{Name: "p_cafe_id", Value: cafeID})
	}
	rows, err := s.call(ctx, id, procStats, args...)
	if err != nil {
		return Stats{}, err
	}
	if len(rows) == 0 {
		return Stats{}, nil
	}
	return statsFromRow(rows[0]), nil
}

func (s *RemoteProcedureStrategy) Overview(ctx context.Context, id auth.Identity, walletID string) (Overview, error) {
	rows, err := s.call(ctx, id, procOverview, wallet.Arg{Name: "p_wallet_id", Value: walletID})
	if err != nil {
		return Overview{}, err
	}
	if len(rows) == 0 {
		return Overview{}, ErrNotFound
	}
	return overviewFromRow(rows[0]), nil
}

func (s *RemoteProcedureStrategy) Transactions(ctx context.Context, id auth.Identity, walletID string, page PageOptions) ([]TransactionEntry, error) {
	rows, err := s.call(ctx, id, procTransactions, pageArgs(walletID, page)...)
	if err != nil {
		return nil, err
	}
	out := make([]TransactionEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, transactionFromRow(r))
	}
	return out, nil
}

func (s *RemoteProcedureStrategy) Payments(ctx context.Context, id auth.Identity, walletID string, page PageOptions) ([]PaymentEntry, error) {
	rows, err := s.call(ctx, id, procPayments, pageArgs(walletID, page)...)
	if err != nil {
		return nil, err
	}
	out := make([]PaymentEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, paymentFromRow(r))
	}
	return out, nil
}

func (s *RemoteProcedureStrategy) Orders(ctx context.Context, id auth.Identity, walletID string, page PageOptions) ([]OrderEntry, error) {
	rows, err := s.call(ctx, id, procOrders, pageArgs(walletID, page)...)
	if err != nil {
		return nil, err
	}
	out := make([]OrderEntry, 0, len(rows))
	for _, r := range rows {
		o, err := orderFromRow(r)
		if err != nil {
			return nil, &DataAccessError{Op: procOrders, Err: err}
		}
		out = append(out, o)
	}
	return out, nil
}

func pageArgs(walletID string, page PageOptions) []wallet.Arg {
	return []wallet.Arg{
		{Name: "p_wallet_id", Value: walletID},
		{Name: "p_limit", Value: page.Limit},
		{Name: "p_offset", Value: page.Offset},
	}
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

var _ Strategy = (*RemoteProcedureStrategy)(nil)
