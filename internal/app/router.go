package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/odyssey-erp/bizdesk/internal/audit"
	"github.com/odyssey-erp/bizdesk/internal/auth"
	"github.com/odyssey-erp/bizdesk/internal/customers"
	"github.com/odyssey-erp/bizdesk/internal/expenses"
	"github.com/odyssey-erp/bizdesk/internal/inventory"
	"github.com/odyssey-erp/bizdesk/internal/observability"
	"github.com/odyssey-erp/bizdesk/internal/platform/httpx"
	"github.com/odyssey-erp/bizdesk/internal/profile"
	"github.com/odyssey-erp/bizdesk/internal/sales"
	"github.com/odyssey-erp/bizdesk/internal/tax"
	"github.com/odyssey-erp/bizdesk/jobs"
	"github.com/odyssey-erp/bizdesk/report"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger   *slog.Logger
	Config   *Config
	Sessions PrincipalLoader
	Metrics  *observability.Metrics

	AuthHandler      *auth.Handler
	AuditHandler     *audit.Handler
	ProfileHandler   *profile.Handler
	InventoryHandler *inventory.Handler
	CustomerHandler  *customers.Handler
	ExpenseHandler   *expenses.Handler
	SalesHandler     *sales.Handler
	TaxHandler       *tax.Handler
	ReportHandler    *report.Handler
	JobHandler       *jobs.Handler
}

// NewRouter constructs the chi.Router with bizdesk defaults.
func NewRouter(params RouterParams) http.Handler {
	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	if params.AuthHandler != nil {
		r.Route("/auth", params.AuthHandler.MountRoutes)
	}

	r.Group(func(r chi.Router) {
		r.Use(RequirePrincipal(params.Sessions, logger))

		if params.ProfileHandler != nil {
			r.Route("/profile", params.ProfileHandler.MountRoutes)
		}
		if params.InventoryHandler != nil {
			r.Route("/inventory", params.InventoryHandler.MountRoutes)
		}
		if params.CustomerHandler != nil {
			r.Route("/customers", params.CustomerHandler.MountRoutes)
		}
		if params.ExpenseHandler != nil {
			r.Route("/expenses", params.ExpenseHandler.MountRoutes)
		}
		if params.SalesHandler != nil {
			r.Route("/sales", params.SalesHandler.MountRoutes)
			r.Get("/dashboard", params.SalesHandler.Dashboard)
		}
		if params.TaxHandler != nil {
			r.Route("/tax", params.TaxHandler.MountRoutes)
		}
		if params.AuditHandler != nil {
			r.Route("/audit", params.AuditHandler.MountRoutes)
		}
		if params.ReportHandler != nil {
			r.Route("/reports", params.ReportHandler.MountRoutes)
		}
		if params.JobHandler != nil {
			r.Route("/jobs", params.JobHandler.MountRoutes)
		}
	})

	return r
}
