package main

import (
	"net/http"
	"time"

	"coffee-backoffice/internal/config"
	"coffee-backoffice/internal/httpapi"
	"coffee-backoffice/internal/rbac"
	"coffee-backoffice/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type routeDeps struct {
	cfg      config.Config
	db       *sqlx.DB
	handlers httpapi.Handlers
	authMW   gin.HandlerFunc
	limiter  *httpapi.RateLimiter
	slots    httpapi.Slots
}

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, d routeDeps) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		if err := utils.HealthCheck(c.Request.Context(), d.db, 2*time.Second); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "postgres": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/v1")
	v1.Use(httpapi.RateLimitMiddleware(d.limiter))

	// Token issuance without credentials; never routed in staging/production.
	if d.cfg.App.Env == "local" || d.cfg.App.Env == "dev" {
		v1.POST("/auth/login", d.handlers.Login)
	}

	owner := v1.Group("/owner")
	owner.Use(d.authMW)
	owner.Use(rbac.RequireAnyRole(rbac.RoleOwner))
	owner.Use(httpapi.ConcurrencyCap(d.slots))
	{
		owner.GET("/wallets", d.handlers.ListWallets)
		owner.GET("/stats/wallets", d.handlers.WalletStats)
		owner.GET("/wallets/:wallet_id", d.handlers.WalletOverview)
		owner.GET("/wallets/:wallet_id/transactions", d.handlers.WalletTransactions)
		owner.GET("/wallets/:wallet_id/payments", d.handlers.WalletPayments)
		owner.GET("/wallets/:wallet_id/orders", d.handlers.WalletOrders)
		owner.GET("/wallets/:wallet_id/reconciliation", d.handlers.WalletReconciliation)
	}
}
