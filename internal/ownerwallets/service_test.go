package ownerwallets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"coffee-backoffice/internal/auth"
	"coffee-backoffice/internal/wallet"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOverview_W1Scenario(t *testing.T) {
	src := seedW1()
	svc := newTestService(src)

	ov, err := svc.Overview(context.Background(), owner, wid(1))
	require.NoError(t, err)

	assert.Equal(t, int64(100), ov.TotalTopupCredits)
	assert.Equal(t, int64(30), ov.TotalPaymentCredits)
	assert.Equal(t, int64(10), ov.TotalRefundCredits)
	assert.Equal(t, int64(80), ov.NetWalletChangeCredits)
	assert.Equal(t, int64(80), ov.BalanceCredits)
	assert.Equal(t, int64(1), ov.CompletedOrders)
	assert.Equal(t, int64(30), ov.AverageOrderPaidCredits)
	assert.Equal(t, "Anna Smirnova", *ov.UserFullName)
	assert.Equal(t, "Bean There", *ov.CafeName)
	assert.Equal(t, "1 Main St", *ov.CafeAddress)
	assert.Equal(t, []string{procOverview}, src.ProcCalls)
}

func TestOverview_ZeroOrdersAverageIsZero(t *testing.T) {
	svc := newTestService(seedW1())

	ov, err := svc.Overview(context.Background(), owner, wid(2))
	require.NoError(t, err)
	assert.Equal(t, int64(0), ov.TotalOrders)
	assert.Equal(t, int64(0), ov.AverageOrderPaidCredits)
	assert.Nil(t, ov.LastActivityAt)
}

func TestReconcile_W1ChainIsConsistent(t *testing.T) {
	svc := newTestService(seedW1())

	rec, err := svc.Reconcile(context.Background(), owner, wid(1))
	require.NoError(t, err)
	assert.True(t, rec.Consistent)
	assert.Equal(t, int64(80), rec.ExpectedBalanceCredits)
	assert.Equal(t, int64(0), rec.DiscrepancyCredits)
}

func TestReconcile_ReportsDiscrepancy(t *testing.T) {
	src := seedW1()
	src.Wallets[0].BalanceCredits = 95
	svc := newTestService(src)

	rec, err := svc.Reconcile(context.Background(), owner, wid(1))
	require.NoError(t, err)
	assert.False(t, rec.Consistent)
	assert.Equal(t, int64(15), rec.DiscrepancyCredits)

	_, err = svc.Reconcile(context.Background(), owner, wid(3))
	require.ErrorIs(t, err, ErrPermissionDenied)
}

type recordingAuditor struct {
	wallets []string
	checks  []wallet.LedgerCheck
	err     error
}

func (r *recordingAuditor) LogLedgerDiscrepancy(ctx context.Context, actor auth.Identity, walletID string, check wallet.LedgerCheck) error {
	r.wallets = append(r.wallets, walletID)
	r.checks = append(r.checks, check)
	return r.err
}

func TestReconcile_AuditsOnlyDiscrepancies(t *testing.T) {
	src := seedW1()
	aud := &recordingAuditor{}
	svc := NewService(src, src, Options{FallbackEnabled: true, Auditor: aud})

	_, err := svc.Reconcile(context.Background(), owner, wid(1))
	require.NoError(t, err)
	assert.Empty(t, aud.wallets)

	src.Wallets[0].BalanceCredits = 95
	aud.err = errors.New("audit store down")
	rec, err := svc.Reconcile(context.Background(), owner, wid(1))
	require.NoError(t, err, "audit failures never fail the read")
	assert.False(t, rec.Consistent)
	assert.Equal(t, []string{wid(1)}, aud.wallets)
	assert.Equal(t, int64(15), aud.checks[0].DiscrepancyCredits)
}

// The procedure row is the JSON rendering of the expected result, which is
// how a deployed owner_* procedure hands it back: loosely typed.
func rowsFromJSON(t *testing.T, v any) []wallet.Row {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	var rows []wallet.Row
	require.NoError(t, json.Unmarshal(b, &rows))
	return rows
}

func TestFallbackEquivalence_Overview(t *testing.T) {
	src := seedW1()
	svc := newTestService(src)
	ctx := context.Background()

	local, err := svc.Overview(ctx, owner, wid(1))
	require.NoError(t, err)

	oracle := Overview{
		WalletSummary: WalletSummary{
			WalletID:             wid(1),
			UserID:               "u1",
			WalletType:           wallet.WalletTypeCafe,
			BalanceCredits:       80,
			LifetimeTopUpCredits: 100,
			CreatedAt:            base,
			UserEmail:            sp("anna@example.com"),
			UserPhone:            sp("+100"),
			UserFullName:         sp("Anna Smirnova"),
			CafeID:               sp("cafe-a"),
			CafeName:             sp("Bean There"),
			Activity: Activity{
				TotalTransactions:      3,
				TotalPayments:          1,
				TotalOrders:            1,
				TotalTopupCredits:      100,
				TotalPaymentCredits:    30,
				TotalRefundCredits:     10,
				NetWalletChangeCredits: 80,
				TotalOrdersPaidCredits: 30,
				LastTransactionAt:      tp(base.Add(3 * time.Hour)),
				LastPaymentAt:          tp(base.Add(2 * time.Hour)),
				LastOrderAt:            tp(base.Add(2 * time.Hour)),
				LastActivityAt:         tp(base.Add(3 * time.Hour)),
			},
		},
		UpdatedAt:               base.Add(3 * time.Hour),
		CafeAddress:             sp("1 Main St"),
		UserRegisteredAt:        tp(base.Add(-24 * time.Hour)),
		CompletedOrders:         1,
		AverageOrderPaidCredits: 30,
	}
	assert.Equal(t, oracle, local)

	src.ProcRows[procOverview] = rowsFromJSON(t, []Overview{oracle})
	reads := src.TableReads
	remote, err := svc.Overview(ctx, owner, wid(1))
	require.NoError(t, err)
	assert.Equal(t, reads, src.TableReads, "procedure path must not touch tables")
	assert.Equal(t, local, remote)
}

func TestFallbackEquivalence_ListAndStats(t *testing.T) {
	src := seedW1()
	svc := newTestService(src)
	ctx := context.Background()

	local, err := svc.ListWallets(ctx, owner, ListOptions{})
	require.NoError(t, err)
	require.Len(t, local, 2)
	assert.Equal(t, wid(2), local[0].WalletID)
	assert.Equal(t, wid(1), local[1].WalletID)

	src.ProcRows[procListWallets] = rowsFromJSON(t, local)
	remote, err := svc.ListWallets(ctx, owner, ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, local, remote)

	stats, err := svc.Stats(ctx, owner, "")
	require.NoError(t, err)
	assert.Equal(t, Stats{
		TotalWallets:         2,
		TotalBalanceCredits:  80,
		TotalTopupsCredits:   100,
		TotalPaymentsCredits: 30,
		NetChangeCredits:     80,
	}, stats)

	src.ProcRows[procStats] = rowsFromJSON(t, []Stats{stats})
	remoteStats, err := svc.Stats(ctx, owner, "")
	require.NoError(t, err)
	assert.Equal(t, stats, remoteStats)
}

func TestRemoteStats_EmptyResultIsZero(t *testing.T) {
	src := seedW1()
	src.ProcRows[procStats] = []wallet.Row{}
	svc := newTestService(src)

	stats, err := svc.Stats(context.Background(), owner, "")
	require.NoError(t, err)
	assert.Equal(t, Stats{}, stats)
	assert.Equal(t, 0, src.TableReads)
}

func TestTriggerPrecision_OtherErrorsSkipFallback(t *testing.T) {
	for _, cause := range []error{
		errors.New("permission denied for function owner_get_wallet_overview"),
		errors.New(`syntax error at or near "FROM"`),
		errors.New(`relation "wallets" does not exist`),
	} {
		t.Run(cause.Error(), func(t *testing.T) {
			src := seedW1()
			src.ProcErr[procOverview] = cause
			svc := newTestService(src)

			_, err := svc.Overview(context.Background(), owner, wid(1))
			require.Error(t, err)
			assert.Equal(t, cause.Error(), err.Error())
			var dae *DataAccessError
			require.ErrorAs(t, err, &dae)
			assert.Equal(t, 0, src.TableReads)
		})
	}
}

func TestFallbackDisabled_SurfacesUpstreamUnavailable(t *testing.T) {
	src := seedW1()
	svc := NewService(src, src, Options{FallbackEnabled: false})

	_, err := svc.ListWallets(context.Background(), owner, ListOptions{})
	require.ErrorIs(t, err, ErrUpstreamUnavailable)
	assert.Equal(t, 0, src.TableReads)
}

func TestOwnershipEnforcedOnEverySingleWalletRead(t *testing.T) {
	src := seedW1()
	svc := newTestService(src)
	ctx := context.Background()
	page := PageOptions{Limit: 10}

	_, err := svc.Overview(ctx, owner, wid(3))
	assert.ErrorIs(t, err, ErrPermissionDenied)
	_, err = svc.Transactions(ctx, owner, wid(3), page)
	assert.ErrorIs(t, err, ErrPermissionDenied)
	_, err = svc.Payments(ctx, owner, wid(3), page)
	assert.ErrorIs(t, err, ErrPermissionDenied)
	_, err = svc.Orders(ctx, owner, wid(3), page)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	// and the rightful owner gets through
	_, err = svc.Transactions(ctx, stranger, wid(3), page)
	assert.NoError(t, err)
}

func TestUnknownWalletIsNotFound(t *testing.T) {
	svc := newTestService(seedW1())

	_, err := svc.Orders(context.Background(), owner, wid(77), PageOptions{})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMalformedWalletIDIsInvalidArgument(t *testing.T) {
	src := seedW1()
	svc := newTestService(src)

	for _, id := range []string{
		"w1",
		"urn:uuid:" + wid(1),
		"{" + wid(1) + "}",
		strings.ReplaceAll(wid(1), "-", ""),
	} {
		_, err := svc.Overview(context.Background(), owner, id)
		require.ErrorIs(t, err, ErrInvalidArgument, id)
		_, err = svc.Reconcile(context.Background(), owner, id)
		require.ErrorIs(t, err, ErrInvalidArgument, id)
	}
	assert.Empty(t, src.ProcCalls)
	assert.Equal(t, 0, src.TableReads)
}

func TestTransactionsPage_ResolvesReferences(t *testing.T) {
	svc := newTestService(seedW1())
	ctx := context.Background()

	page, err := svc.Transactions(ctx, owner, wid(1), PageOptions{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "t3", page[0].TransactionID)
	assert.Equal(t, "t2", page[1].TransactionID)
	assert.Equal(t, "A-001", *page[1].OrderNumber)
	assert.Equal(t, "anna@example.com", *page[1].ActorEmail)
	assert.Nil(t, page[0].OrderNumber)

	rest, err := svc.Transactions(ctx, owner, wid(1), PageOptions{Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "t1", rest[0].TransactionID)
}

func TestPaymentsPage_NetAmountAndOrderNumber(t *testing.T) {
	svc := newTestService(seedW1())

	page, err := svc.Payments(context.Background(), owner, wid(1), PageOptions{})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, int64(27), page[0].NetAmount)
	assert.Equal(t, "A-001", *page[0].OrderNumber)
}

func TestOrdersPage_ItemsAndCafe(t *testing.T) {
	svc := newTestService(seedW1())

	page, err := svc.Orders(context.Background(), owner, wid(1), PageOptions{})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "Bean There", *page[0].CafeName)
	require.Len(t, page[0].Items, 1)
	assert.Equal(t, "Latte", page[0].Items[0].ItemName)
	assert.JSONEq(t, `{"milk":"oat"}`, string(page[0].Items[0].Modifiers))

	empty, err := svc.Orders(context.Background(), owner, wid(2), PageOptions{})
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestFanOutFailureFailsWholeRead(t *testing.T) {
	src := seedW1()
	src.TableErr["payment_transactions"] = errors.New("canceling statement due to statement timeout")
	svc := newTestService(src)

	_, err := svc.Overview(context.Background(), owner, wid(1))
	var dae *DataAccessError
	require.ErrorAs(t, err, &dae)
	assert.Equal(t, "payments", dae.Op)
	assert.Equal(t, "canceling statement due to statement timeout", err.Error())

	_, err = svc.ListWallets(context.Background(), owner, ListOptions{})
	require.ErrorAs(t, err, &dae)
}

func TestListWallets_PaginatesFilteredResult(t *testing.T) {
	src := NewMemorySource()
	src.Cafes = []wallet.Cafe{{ID: "cafe-a", Name: sp("Bean There")}}
	src.Owners["owner-1"] = []string{"cafe-a"}
	for i := 0; i < 120; i++ {
		uid := fmt.Sprintf("fan-%d", i)
		src.Profiles = append(src.Profiles, wallet.Profile{ID: uid, FullName: sp(fmt.Sprintf("Latte Lover %03d", i))})
		src.Wallets = append(src.Wallets, wallet.Wallet{
			ID: wid(1000 + i), UserID: uid, Type: wallet.WalletTypeCafe, CafeID: sp("cafe-a"),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}
	// newer wallets that do not match the search must not shift the page
	for i := 0; i < 7; i++ {
		uid := fmt.Sprintf("other-%d", i)
		src.Profiles = append(src.Profiles, wallet.Profile{ID: uid, FullName: sp("Tea Drinker")})
		src.Wallets = append(src.Wallets, wallet.Wallet{
			ID: wid(5000 + i), UserID: uid, Type: wallet.WalletTypeCafe, CafeID: sp("cafe-a"),
			CreatedAt: base.Add(time.Duration(200+i) * time.Minute),
		})
	}
	svc := newTestService(src)

	page, err := svc.ListWallets(context.Background(), owner, ListOptions{Search: "lover", Limit: 50, Offset: 50})
	require.NoError(t, err)
	require.Len(t, page, 50)
	// ranks 51..100 of 120 matches, newest first: indexes 69 down to 20
	assert.Equal(t, wid(1000+69), page[0].WalletID)
	assert.Equal(t, wid(1000+20), page[49].WalletID)
	for i := 1; i < len(page); i++ {
		assert.True(t, page[i-1].CreatedAt.After(page[i].CreatedAt))
	}
}

func TestListWallets_SearchIvan(t *testing.T) {
	src := NewMemorySource()
	src.Cafes = []wallet.Cafe{{ID: "cafe-a", Name: sp("Bean There")}}
	src.Owners["owner-1"] = []string{"cafe-a"}
	names := []string{"Ivan Petrov", "Maria Sokolova", "Olga", "Pavel", "Anna", "Sergei", "Nina", "Oleg", "Dmitry", "Elena"}
	for i, name := range names {
		uid := fmt.Sprintf("u-%d", i)
		src.Profiles = append(src.Profiles, wallet.Profile{ID: uid, FullName: sp(name), Email: sp(fmt.Sprintf("user%d@example.com", i))})
		src.Wallets = append(src.Wallets, wallet.Wallet{
			ID: wid(i + 1), UserID: uid, Type: wallet.WalletTypeCafe, CafeID: sp("cafe-a"), CreatedAt: base.Add(time.Duration(i) * time.Hour),
		})
	}
	svc := newTestService(src)

	out, err := svc.ListWallets(context.Background(), owner, ListOptions{Search: "ivan"})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Ivan Petrov", *out[0].UserFullName)
}

func TestListWallets_Scoping(t *testing.T) {
	src := seedW1()
	svc := newTestService(src)
	ctx := context.Background()

	_, err := svc.ListWallets(ctx, owner, ListOptions{CafeID: "cafe-b"})
	require.ErrorIs(t, err, ErrPermissionDenied)

	out, err := svc.ListWallets(ctx, ownerWithoutCafes(), ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, out)

	stats, err := svc.Stats(ctx, ownerWithoutCafes(), "")
	require.NoError(t, err)
	assert.Equal(t, Stats{}, stats)
}

func TestListWallets_Validation(t *testing.T) {
	svc := newTestService(seedW1())
	ctx := context.Background()

	_, err := svc.ListWallets(ctx, owner, ListOptions{SortBy: "name"})
	require.ErrorIs(t, err, ErrInvalidArgument)
	_, err = svc.ListWallets(ctx, owner, ListOptions{SortOrder: "up"})
	require.ErrorIs(t, err, ErrInvalidArgument)
	_, err = svc.ListWallets(ctx, ownerWithoutRole(), ListOptions{})
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestPage_DefaultsAndCap(t *testing.T) {
	svc := NewService(nil, nil, Options{MaxPage: 30})

	assert.Equal(t, PageOptions{Limit: 30, Offset: 0}, svc.page(PageOptions{Offset: -4}))
	assert.Equal(t, PageOptions{Limit: 30, Offset: 5}, svc.page(PageOptions{Limit: 100, Offset: 5}))
	assert.Equal(t, PageOptions{Limit: 10}, svc.page(PageOptions{Limit: 10}))
}

func TestRemoteOrders_MalformedItemsIsDataAccessError(t *testing.T) {
	src := seedW1()
	src.ProcRows[procOrders] = []wallet.Row{{
		"order_id": "o1",
		"status":   "issued",
		"items":    `[{"item_name":"Latte"}, oops]`,
	}}
	svc := newTestService(src)

	_, err := svc.Orders(context.Background(), owner, wid(1), PageOptions{})
	var dae *DataAccessError
	require.ErrorAs(t, err, &dae)
	assert.Equal(t, procOrders, dae.Op)
	assert.NotErrorIs(t, err, ErrUpstreamUnavailable)
	assert.Equal(t, 0, src.TableReads, "decode failures must not trigger the fallback")
}

func argValue(args []wallet.Arg, name string) any {
	for _, a := range args {
		if a.Name == name {
			return a.Value
		}
	}
	return nil
}

func TestListWallets_RemoteReceivesRequestedOrdering(t *testing.T) {
	src := seedW1()
	src.ProcRows[procListWallets] = []wallet.Row{}
	svc := newTestService(src)
	ctx := context.Background()

	_, err := svc.ListWallets(ctx, owner, ListOptions{})
	require.NoError(t, err)
	args := src.ProcArgs[procListWallets]
	assert.Nil(t, argValue(args, "p_sort_by"))
	assert.Nil(t, argValue(args, "p_sort_order"))

	_, err = svc.ListWallets(ctx, owner, ListOptions{SortBy: SortByBalance, SortOrder: SortAsc})
	require.NoError(t, err)
	args = src.ProcArgs[procListWallets]
	assert.Equal(t, "balance", argValue(args, "p_sort_by"))
	assert.Equal(t, "asc", argValue(args, "p_sort_order"))
	assert.Equal(t, 0, src.TableReads)
}

func TestListWallets_CreatedAtOrderIsComputedLocally(t *testing.T) {
	src := seedW1()
	// a deployed procedure returning the wrong order must not be used
	src.ProcRows[procListWallets] = rowsFromJSON(t, []WalletSummary{{WalletID: wid(1)}, {WalletID: wid(2)}})
	svc := newTestService(src)
	ctx := context.Background()

	calls := len(src.ProcCalls)
	out, err := svc.ListWallets(ctx, owner, ListOptions{SortBy: SortByCreatedAt, SortOrder: SortAsc})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.True(t, !out[0].CreatedAt.After(out[1].CreatedAt))
	assert.NotContains(t, src.ProcCalls[calls:], procListWallets)
	assert.Positive(t, src.TableReads)

	strict := NewService(src, src, Options{FallbackEnabled: false})
	_, err = strict.ListWallets(ctx, owner, ListOptions{SortBy: SortByCreatedAt})
	require.ErrorIs(t, err, ErrUpstreamUnavailable)
	assert.Contains(t, err.Error(), "created_at")
}
