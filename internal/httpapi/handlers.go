package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"coffee-backoffice/internal/auth"
	"coffee-backoffice/internal/ownerwallets"
	"coffee-backoffice/internal/rbac"
	"coffee-backoffice/pkg/logger"

	"github.com/gin-gonic/gin"
)

// WalletReader is the owner wallet query surface the handlers need.
type WalletReader interface {
	ListWallets(ctx context.Context, id auth.Identity, opts ownerwallets.ListOptions) ([]ownerwallets.WalletSummary, error)
	Stats(ctx context.Context, id auth.Identity, cafeID string) (ownerwallets.Stats, error)
	Overview(ctx context.Context, id auth.Identity, walletID string) (ownerwallets.Overview, error)
	Transactions(ctx context.Context, id auth.Identity, walletID string, page ownerwallets.PageOptions) ([]ownerwallets.TransactionEntry, error)
	Payments(ctx context.Context, id auth.Identity, walletID string, page ownerwallets.PageOptions) ([]ownerwallets.PaymentEntry, error)
	Orders(ctx context.Context, id auth.Identity, walletID string, page ownerwallets.PageOptions) ([]ownerwallets.OrderEntry, error)
	Reconcile(ctx context.Context, id auth.Identity, walletID string) (ownerwallets.Reconciliation, error)
}

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return the envelope.
type Handlers struct {
	Auth    *auth.Manager
	Wallets WalletReader
}

// Every response is {"data": ..., "error": null} or {"data": null, "error": "..."}.

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"data": data, "error": nil})
}

func abort(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"data": nil, "error": msg})
}

// fail maps a service error to a status and passes its message through.
func fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
		logger.FromGin(c).Error("owner wallet read failed", "status", status, "error", err.Error())
	}
	abort(c, status, err.Error())
}

func statusFor(err error) int {
	var dae *ownerwallets.DataAccessError
	switch {
	case errors.Is(err, ownerwallets.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ownerwallets.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, ownerwallets.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, ownerwallets.ErrUpstreamUnavailable):
		return http.StatusServiceUnavailable
	case errors.As(err, &dae):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func identity(c *gin.Context) (auth.Identity, bool) {
	id, err := auth.IdentityFrom(c.Request.Context())
	if err != nil {
		abort(c, http.StatusUnauthorized, "authentication required")
		return auth.Identity{}, false
	}
	return id, true
}

func (h Handlers) ready(c *gin.Context) bool {
	if h.Wallets == nil {
		abort(c, http.StatusInternalServerError, "wallets not configured")
		return false
	}
	return true
}

// --- Auth ---

type loginRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// Login issues an access token.
//
// NOTE: Development only. It is routed in local/dev and never validates credentials.
func (h Handlers) Login(c *gin.Context) {
	if h.Auth == nil {
		abort(c, http.StatusInternalServerError, "auth not configured")
		return
	}
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, "invalid json")
		return
	}
	if req.UserID == "" || req.Role == "" {
		abort(c, http.StatusBadRequest, "user_id, role required")
		return
	}
	if !rbac.Known(req.Role) {
		abort(c, http.StatusBadRequest, "unknown role")
		return
	}
	token, err := h.Auth.IssueAccess(time.Now(), req.UserID, req.Role)
	if err != nil {
		abort(c, http.StatusInternalServerError, "token issuance failed")
		return
	}
	ok(c, gin.H{"access_token": token})
}

// --- Owner wallets ---

type listQuery struct {
	CafeID    string `form:"cafe_id"`
	Limit     int    `form:"limit"`
	Offset    int    `form:"offset"`
	Search    string `form:"search"`
	SortBy    string `form:"sort_by"`
	SortOrder string `form:"sort_order"`
}

type pageQuery struct {
	Limit  int `form:"limit"`
	Offset int `form:"offset"`
}

// ListWallets serves GET /v1/owner/wallets.
//
// sort_by is one of created_at, balance, lifetime, last_activity; sort_order is
// asc or desc (default desc). Without sort_by the fallback path orders by
// created_at while owner_get_wallets applies its own default (last_activity).
// An explicit sort_by=created_at is always honored exactly.
func (h Handlers) ListWallets(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	id, okID := identity(c)
	if !okID {
		return
	}
	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		abort(c, http.StatusBadRequest, "limit and offset must be integers")
		return
	}
	rows, err := h.Wallets.ListWallets(c.Request.Context(), id, ownerwallets.ListOptions{
		CafeID:    q.CafeID,
		Limit:     q.Limit,
		Offset:    q.Offset,
		Search:    q.Search,
		SortBy:    ownerwallets.SortField(q.SortBy),
		SortOrder: ownerwallets.SortOrder(q.SortOrder),
	})
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, rows)
}

func (h Handlers) WalletStats(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	id, okID := identity(c)
	if !okID {
		return
	}
	stats, err := h.Wallets.Stats(c.Request.Context(), id, c.Query("cafe_id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, stats)
}

func (h Handlers) WalletOverview(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	id, okID := identity(c)
	if !okID {
		return
	}
	ov, err := h.Wallets.Overview(c.Request.Context(), id, c.Param("wallet_id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, ov)
}

func (h Handlers) WalletTransactions(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	pagedRead(c, h.Wallets.Transactions)
}

func (h Handlers) WalletPayments(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	pagedRead(c, h.Wallets.Payments)
}

func (h Handlers) WalletOrders(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	pagedRead(c, h.Wallets.Orders)
}

func (h Handlers) WalletReconciliation(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	id, okID := identity(c)
	if !okID {
		return
	}
	rec, err := h.Wallets.Reconcile(c.Request.Context(), id, c.Param("wallet_id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, rec)
}

func pagedRead[T any](c *gin.Context, read func(context.Context, auth.Identity, string, ownerwallets.PageOptions) ([]T, error)) {
	id, okID := identity(c)
	if !okID {
		return
	}
	var q pageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		abort(c, http.StatusBadRequest, "limit and offset must be integers")
		return
	}
	rows, err := read(c.Request.Context(), id, c.Param("wallet_id"), ownerwallets.PageOptions{Limit: q.Limit, Offset: q.Offset})
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, rows)
}
