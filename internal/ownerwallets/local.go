package ownerwallets

import (
	"context"
	"fmt"
	"slices"

	"coffee-backoffice/internal/auth"
	"coffee-backoffice/internal/wallet"
	"coffee-backoffice/pkg/logger"

	"golang.org/x/sync/errgroup"
)

// LocalAggregationStrategy recomputes every owner read from raw tables.
// Sub-queries fan out in parallel and each runs in its own read transaction,
// so the joined result is not a single snapshot.
type LocalAggregationStrategy struct {
	procs  Procedures
	tables Tables
	guard  *Guard
}

func NewLocalAggregationStrategy(procs Procedures, tables Tables, guard *Guard) *LocalAggregationStrategy {
	return &LocalAggregationStrategy{procs: procs, tables: tables, guard: guard}
}

func (s *LocalAggregationStrategy) ListWallets(ctx context.Context, id auth.Identity, opts ListOptions) ([]WalletSummary, error) {
	rows, err := s.summaries(ctx, id, opts.CafeID)
	if err != nil {
		return nil, err
	}
	rows = filterSearch(rows, opts.Search)
	sortSummaries(rows, opts.SortBy, opts.SortOrder)
	return paginate(rows, opts.Offset, opts.Limit), nil
}

func (s *LocalAggregationStrategy) Stats(ctx context.Context, id auth.Identity, cafeID string) (Stats, error) {
	rows, err := s.summaries(ctx, id, cafeID)
	if err != nil {
		return Stats{}, err
	}
	return foldStats(rows), nil
}

// summaries aggregates every cafe wallet in scope. Scope is the owned cafes,
// or cafeID alone when it is set and owned.
func (s *LocalAggregationStrategy) summaries(ctx context.Context, id auth.Identity, cafeID string) ([]WalletSummary, error) {
	owned, err := s.procs.OwnedCafes(ctx, id)
	if err != nil {
		return nil, dataAccess("owned_cafes", err)
	}
	scope := make([]string, 0, len(owned))
	for _, c := range owned {
		scope = append(scope, c.ID)
	}
	if cafeID != "" {
		if !slices.Contains(scope, cafeID) {
			return nil, fmt.Errorf("%w: cafe %s is not owned by caller", ErrPermissionDenied, cafeID)
		}
		scope = []string{cafeID}
	}
	scope = distinct(scope)
	if len(scope) == 0 {
		return []WalletSummary{}, nil
	}

	wallets, err := s.tables.CafeWalletsByCafes(ctx, id, scope)
	if err != nil {
		return nil, dataAccess("wallets", err)
	}
	if len(wallets) == 0 {
		return []WalletSummary{}, nil
	}

	walletIDs := make([]string, 0, len(wallets))
	userIDs := make([]string, 0, len(wallets))
	cafeIDs := make([]string, 0, len(wallets))
	networkIDs := make([]string, 0, len(wallets))
	for _, w := range wallets {
		walletIDs = append(walletIDs, w.ID)
		userIDs = append(userIDs, w.UserID)
		cafeIDs = append(cafeIDs, deref(w.CafeID))
		networkIDs = append(networkIDs, deref(w.NetworkID))
	}

	logger.From(ctx).Debug("owner wallets fan-out", "op", "summaries", "wallets", len(wallets))

	h, err := s.fetchHistory(ctx, id, walletIDs, distinct(userIDs), distinct(cafeIDs), distinct(networkIDs))
	if err != nil {
		return nil, err
	}

	txByWallet := groupBy(h.txs, func(t wallet.Transaction) string { return t.WalletID })
	payByWallet := groupBy(h.pays, func(p wallet.Payment) string { return p.WalletID })
	orderByWallet := groupBy(h.orders, func(o wallet.Order) string { return deref(o.WalletID) })

	out := make([]WalletSummary, 0, len(wallets))
	for _, w := range wallets {
		a := activityOf(txByWallet[w.ID], payByWallet[w.ID], orderByWallet[w.ID])
		out = append(out, buildSummary(w, h.refs, a))
	}
	return out, nil
}

func (s *LocalAggregationStrategy) Overview(ctx context.Context, id auth.Identity, walletID string) (Overview, error) {
	w, err := s.guard.Authorize(ctx, id, walletID)
	if err != nil {
		return Overview{}, err
	}

	logger.From(ctx).Debug("owner wallets fan-out", "op", "overview", "wallet_id", w.ID)

	h, err := s.fetchHistory(ctx, id,
		[]string{w.ID},
		distinct([]string{w.UserID}),
		distinct([]string{deref(w.CafeID)}),
		distinct([]string{deref(w.NetworkID)}),
	)
	if err != nil {
		return Overview{}, err
	}
	return buildOverview(w, h.refs, h.txs, h.pays, h.orders), nil
}

type history struct {
	refs   lookups
	txs    []wallet.Transaction
	pays   []wallet.Payment
	orders []wallet.Order
}

// fetchHistory runs the six batch reads concurrently. The first failure
// cancels the rest and is returned.
func (s *LocalAggregationStrategy) fetchHistory(ctx context.Context, id auth.Identity, walletIDs, userIDs, cafeIDs, networkIDs []string) (history, error) {
	var (
		h        history
		profiles []wallet.Profile
		cafes    []wallet.Cafe
		networks []wallet.Network
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		profiles, err = s.tables.ProfilesByIDs(gctx, id, userIDs)
		return dataAccess("profiles", err)
	})
	g.Go(func() error {
		var err error
		cafes, err = s.tables.CafesByIDs(gctx, id, cafeIDs)
		return dataAccess("cafes", err)
	})
	g.Go(func() error {
		var err error
		networks, err = s.tables.NetworksByIDs(gctx, id, networkIDs)
		return dataAccess("networks", err)
	})
	g.Go(func() error {
		var err error
		h.txs, err = s.tables.TransactionsByWallets(gctx, id, walletIDs)
		return dataAccess("transactions", err)
	})
	g.Go(func() error {
		var err error
		h.pays, err = s.tables.PaymentsByWallets(gctx, id, walletIDs)
		return dataAccess("payments", err)
	})
	g.Go(func() error {
		var err error
		h.orders, err = s.tables.OrdersByWallets(gctx, id, walletIDs)
		return dataAccess("orders", err)
	})
	if err := g.Wait(); err != nil {
		return history{}, err
	}

	h.refs = lookups{
		profiles: indexBy(profiles, func(p wallet.Profile) string { return p.ID }),
		cafes:    indexBy(cafes, func(c wallet.Cafe) string { return c.ID }),
		networks: indexBy(networks, func(n wallet.Network) string { return n.ID }),
	}
	return h, nil
}

func (s *LocalAggregationStrategy) Transactions(ctx context.Context, id auth.Identity, walletID string, page PageOptions) ([]TransactionEntry, error) {
	w, err := s.guard.Authorize(ctx, id, walletID)
	if err != nil {
		return nil, err
	}
	txs, err := s.tables.TransactionsPage(ctx, id, w.ID, page.Limit, page.Offset)
	if err != nil {
		return nil, dataAccess("transactions_page", err)
	}

	orderIDs := make([]string, 0, len(txs))
	actorIDs := make([]string, 0, len(txs))
	for _, t := range txs {
		orderIDs = append(orderIDs, deref(t.OrderID))
		actorIDs = append(actorIDs, deref(t.ActorUserID))
	}

	var (
		orders []wallet.Order
		actors []wallet.Profile
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		orders, err = s.tables.OrdersByIDs(gctx, id, distinct(orderIDs))
		return dataAccess("orders", err)
	})
	g.Go(func() error {
		var err error
		actors, err = s.tables.ProfilesByIDs(gctx, id, distinct(actorIDs))
		return dataAccess("profiles", err)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	orderByID := indexBy(orders, func(o wallet.Order) string { return o.ID })
	actorByID := indexBy(actors, func(p wallet.Profile) string { return p.ID })

	out := make([]TransactionEntry, 0, len(txs))
	for _, t := range txs {
		e := TransactionEntry{
			TransactionID: t.ID,
			WalletID:      t.WalletID,
			Amount:        t.Amount,
			Type:          t.Type,
			Description:   t.Description,
			OrderID:       t.OrderID,
			ActorUserID:   t.ActorUserID,
			BalanceBefore: t.BalanceBefore,
			BalanceAfter:  t.BalanceAfter,
			CreatedAt:     t.CreatedAt,
		}
		if o, ok := orderByID[deref(t.OrderID)]; ok {
			e.OrderNumber = o.OrderNumber
		}
		if p, ok := actorByID[deref(t.ActorUserID)]; ok {
			e.ActorEmail = p.Email
			e.ActorFullName = p.FullName
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *LocalAggregationStrategy) Payments(ctx context.Context, id auth.Identity, walletID string, page PageOptions) ([]PaymentEntry, error) {
	w, err := s.guard.Authorize(ctx, id, walletID)
	if err != nil {
		return nil, err
	}
	pays, err := s.tables.PaymentsPage(ctx, id, w.ID, page.Limit, page.Offset)
	if err != nil {
		return nil, dataAccess("payments_page", err)
	}

	orderIDs := make([]string, 0, len(pays))
	for _, p := range pays {
		orderIDs = append(orderIDs, deref(p.OrderID))
	}
	orders, err := s.tables.OrdersByIDs(ctx, id, distinct(orderIDs))
	if err != nil {
		return nil, dataAccess("orders", err)
	}
	orderByID := indexBy(orders, func(o wallet.Order) string { return o.ID })

	out := make([]PaymentEntry, 0, len(pays))
	for _, p := range pays {
		e := PaymentEntry{
			PaymentID:             p.ID,
			WalletID:              p.WalletID,
			AmountCredits:         p.AmountCredits,
			CommissionCredits:     p.CommissionCredits,
			NetAmount:             p.NetAmount(),
			OrderID:               p.OrderID,
			Status:                p.Status,
			TransactionType:       p.TransactionType,
			PaymentMethod:         p.PaymentMethod,
			ProviderTransactionID: p.ProviderTransactionID,
			CreatedAt:             p.CreatedAt,
			CompletedAt:           p.CompletedAt,
		}
		if o, ok := orderByID[deref(p.OrderID)]; ok {
			e.OrderNumber = o.OrderNumber
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *LocalAggregationStrategy) Orders(ctx context.Context, id auth.Identity, walletID string, page PageOptions) ([]OrderEntry, error) {
	w, err := s.guard.Authorize(ctx, id, walletID)
	if err != nil {
		return nil, err
	}
	orders, err := s.tables.OrdersPage(ctx, id, w.ID, page.Limit, page.Offset)
	if err != nil {
		return nil, dataAccess("orders_page", err)
	}

	orderIDs := make([]string, 0, len(orders))
	cafeIDs := make([]string, 0, len(orders))
	for _, o := range orders {
		orderIDs = append(orderIDs, o.ID)
		cafeIDs = append(cafeIDs, o.CafeID)
	}

	var (
		cafes []wallet.Cafe
		items []wallet.OrderItem
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		cafes, err = s.tables.CafesByIDs(gctx, id, distinct(cafeIDs))
		return dataAccess("cafes", err)
	})
	g.Go(func() error {
		var err error
		items, err = s.tables.OrderItemsByOrders(gctx, id, distinct(orderIDs))
		return dataAccess("order_items", err)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	cafeByID := indexBy(cafes, func(c wallet.Cafe) string { return c.ID })
	itemsByOrder := groupBy(items, func(it wallet.OrderItem) string { return it.OrderID })

	out := make([]OrderEntry, 0, len(orders))
	for _, o := range orders {
		e := OrderEntry{
			OrderID:         o.ID,
			OrderNumber:     o.OrderNumber,
			Status:          o.Status,
			SubtotalCredits: o.SubtotalCredits,
			BonusUsed:       o.BonusUsed,
			PaidCredits:     o.PaidCredits,
			PaymentMethod:   o.PaymentMethod,
			PaymentStatus:   o.PaymentStatus,
			CustomerName:    o.CustomerName,
			CustomerPhone:   o.CustomerPhone,
			CreatedAt:       o.CreatedAt,
			Items:           make([]OrderLine, 0, len(itemsByOrder[o.ID])),
		}
		if o.CafeID != "" {
			cid := o.CafeID
			e.CafeID = &cid
		}
		if c, ok := cafeByID[o.CafeID]; ok {
			e.CafeName = c.Name
		}
		for _, it := range itemsByOrder[o.ID] {
			e.Items = append(e.Items, lineFromItem(it))
		}
		out = append(out, e)
	}
	return out, nil
}

var _ Strategy = (*LocalAggregationStrategy)(nil)
