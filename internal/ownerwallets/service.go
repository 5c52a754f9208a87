package ownerwallets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"coffee-backoffice/internal/auth"
	"coffee-backoffice/internal/metrics"
	"coffee-backoffice/internal/wallet"
	"coffee-backoffice/pkg/logger"
)

const (
	DefaultPageLimit = 50
	DefaultMaxPage   = 500
)

type Options struct {
	// FallbackEnabled lets the local aggregation path answer when a procedure is missing.
	FallbackEnabled bool
	MaxPage         int
	// Auditor, when set, records every inconsistent ledger Reconcile finds.
	Auditor Auditor
}

// Auditor is the best-effort sink for ledger discrepancies.
type Auditor interface {
	LogLedgerDiscrepancy(ctx context.Context, actor auth.Identity, walletID string, check wallet.LedgerCheck) error
}

// Service is the owner wallet query facade. Every read tries the procedure
// path first and falls back to local aggregation only on ErrUpstreamUnavailable.
type Service struct {
	remote Strategy
	local  Strategy

	tables Tables
	guard  *Guard

	fallback bool
	maxPage  int
	auditor  Auditor
}

func NewService(procs Procedures, tables Tables, opts Options) *Service {
	guard := NewGuard(procs, tables)
	return NewServiceWithStrategies(
		NewRemoteProcedureStrategy(procs),
		NewLocalAggregationStrategy(procs, tables, guard),
		tables,
		guard,
		opts,
	)
}

// NewServiceWithStrategies wires explicit strategies; tables and guard back Reconcile.
func NewServiceWithStrategies(remote, local Strategy, tables Tables, guard *Guard, opts Options) *Service {
	if opts.MaxPage <= 0 {
		opts.MaxPage = DefaultMaxPage
	}
	return &Service{
		remote:   remote,
		local:    local,
		tables:   tables,
		guard:    guard,
		fallback: opts.FallbackEnabled,
		maxPage:  opts.MaxPage,
		auditor:  opts.Auditor,
	}
}

func (s *Service) ListWallets(ctx context.Context, id auth.Identity, opts ListOptions) ([]WalletSummary, error) {
	if err := checkIdentity(id); err != nil {
		return nil, err
	}
	if !opts.SortBy.Valid() {
		return nil, fmt.Errorf("%w: sort_by must be one of created_at, balance, lifetime, last_activity", ErrInvalidArgument)
	}
	if !opts.SortOrder.Valid() {
		return nil, fmt.Errorf("%w: sort_order must be asc or desc", ErrInvalidArgument)
	}
	page := s.page(PageOptions{Limit: opts.Limit, Offset: opts.Offset})
	opts.Limit, opts.Offset = page.Limit, page.Offset
	opts.Search = strings.TrimSpace(opts.Search)
	opts.CafeID = strings.TrimSpace(opts.CafeID)

	return dispatch(ctx, s, "list_wallets", func(st Strategy) ([]WalletSummary, error) {
		return st.ListWallets(ctx, id, opts)
	})
}

func (s *Service) Stats(ctx context.Context, id auth.Identity, cafeID string) (Stats, error) {
	if err := checkIdentity(id); err != nil {
		return Stats{}, err
	}
	cafeID = strings.TrimSpace(cafeID)
	return dispatch(ctx, s, "stats", func(st Strategy) (Stats, error) {
		return st.Stats(ctx, id, cafeID)
	})
}

func (s *Service) Overview(ctx context.Context, id auth.Identity, walletID string) (Overview, error) {
	if err := checkIdentity(id); err != nil {
		return Overview{}, err
	}
	if err := checkWalletID(walletID); err != nil {
		return Overview{}, err
	}
	return dispatch(ctx, s, "overview", func(st Strategy) (Overview, error) {
		return st.Overview(ctx, id, walletID)
	})
}

func (s *Service) Transactions(ctx context.Context, id auth.Identity, walletID string, page PageOptions) ([]TransactionEntry, error) {
	if err := checkIdentity(id); err != nil {
		return nil, err
	}
	if err := checkWalletID(walletID); err != nil {
		return nil, err
	}
	page = s.page(page)
	return dispatch(ctx, s, "transactions", func(st Strategy) ([]TransactionEntry, error) {
		return st.Transactions(ctx, id, walletID, page)
	})
}

func (s *Service) Payments(ctx context.Context, id auth.Identity, walletID string, page PageOptions) ([]PaymentEntry, error) {
	if err := checkIdentity(id); err != nil {
		return nil, err
	}
	if err := checkWalletID(walletID); err != nil {
		return nil, err
	}
	page = s.page(page)
	return dispatch(ctx, s, "payments", func(st Strategy) ([]PaymentEntry, error) {
		return st.Payments(ctx, id, walletID, page)
	})
}

func (s *Service) Orders(ctx context.Context, id auth.Identity, walletID string, page PageOptions) ([]OrderEntry, error) {
	if err := checkIdentity(id); err != nil {
		return nil, err
	}
	if err := checkWalletID(walletID); err != nil {
		return nil, err
	}
	page = s.page(page)
	return dispatch(ctx, s, "orders", func(st Strategy) ([]OrderEntry, error) {
		return st.Orders(ctx, id, walletID, page)
	})
}

// Reconcile verifies the wallet's ledger chain against its balance.
// It always reads raw tables; no procedure computes it.
func (s *Service) Reconcile(ctx context.Context, id auth.Identity, walletID string) (Reconciliation, error) {
	if err := checkIdentity(id); err != nil {
		return Reconciliation{}, err
	}
	if err := checkWalletID(walletID); err != nil {
		return Reconciliation{}, err
	}
	start := time.Now()
	w, err := s.guard.Authorize(ctx, id, walletID)
	if err != nil {
		metrics.RecordWalletQuery("reconcile", metrics.PathFallback, outcome(err), time.Since(start).Seconds())
		return Reconciliation{}, err
	}
	txs, err := s.tables.TransactionsByWallets(ctx, id, []string{w.ID})
	if err != nil {
		err = dataAccess("transactions", err)
		metrics.RecordWalletQuery("reconcile", metrics.PathFallback, outcome(err), time.Since(start).Seconds())
		return Reconciliation{}, err
	}
	check := wallet.VerifyLedger(w.BalanceCredits, txs)
	metrics.RecordWalletQuery("reconcile", metrics.PathFallback, "ok", time.Since(start).Seconds())
	if !check.Consistent {
		metrics.RecordLedgerDiscrepancy()
		logger.From(ctx).Warn("wallet ledger inconsistent",
			"wallet_id", w.ID,
			"breaks", len(check.Breaks),
			"discrepancy_credits", check.DiscrepancyCredits,
		)
		if s.auditor != nil {
			if err := s.auditor.LogLedgerDiscrepancy(ctx, id, w.ID, check); err != nil {
				logger.From(ctx).Warn("audit append failed", "wallet_id", w.ID, "error", err.Error())
			}
		}
	}
	return Reconciliation{WalletID: w.ID, LedgerCheck: check}, nil
}

// dispatch runs op on the remote strategy and, when its procedure is missing
// and the fallback is enabled, once more on the local strategy.
func dispatch[T any](ctx context.Context, s *Service, op string, run func(Strategy) (T, error)) (T, error) {
	var zero T
	log := logger.From(ctx)

	start := time.Now()
	out, err := run(s.remote)
	metrics.RecordWalletQuery(op, metrics.PathRemote, outcome(err), time.Since(start).Seconds())
	if err == nil {
		return out, nil
	}
	if !errors.Is(err, ErrUpstreamUnavailable) {
		return zero, err
	}
	if !s.fallback {
		log.Error("owner wallet procedure unavailable and fallback disabled", "op", op, "error", err.Error())
		return zero, err
	}

	log.Warn("owner wallet procedure unavailable, using local aggregation", "op", op, "error", err.Error())
	start = time.Now()
	out, err = run(s.local)
	metrics.RecordWalletQuery(op, metrics.PathFallback, outcome(err), time.Since(start).Seconds())
	if err != nil {
		return zero, err
	}
	return out, nil
}

// page applies the default limit, the MaxPage cap and a zero floor on offset.
func (s *Service) page(p PageOptions) PageOptions {
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > s.maxPage {
		p.Limit = s.maxPage
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

func checkIdentity(id auth.Identity) error {
	if !id.Valid() {
		return fmt.Errorf("%w: caller identity is required", ErrInvalidArgument)
	}
	return nil
}

func checkWalletID(walletID string) error {
	if !validWalletID(walletID) {
		return fmt.Errorf("%w: wallet_id must be a uuid", ErrInvalidArgument)
	}
	return nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrUpstreamUnavailable):
		return "upstream_unavailable"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrPermissionDenied):
		return "permission_denied"
	case errors.Is(err, ErrInvalidArgument):
		return "invalid_argument"
	default:
		return "data_access"
	}
}
