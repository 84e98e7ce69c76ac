package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ledgerline/backend/api/controllers"
	"github.com/ledgerline/backend/api/controllers/webhooks"
	"github.com/ledgerline/backend/api/middleware"
	"github.com/ledgerline/backend/internal/auth"
	"github.com/ledgerline/backend/internal/customers"
	"github.com/ledgerline/backend/internal/invoices"
	"github.com/ledgerline/backend/internal/settings"
	stripewebhook "github.com/ledgerline/backend/internal/webhooks/stripe"
	"github.com/ledgerline/backend/pkg/config"
	"github.com/ledgerline/backend/pkg/db"
	"github.com/ledgerline/backend/pkg/logger"
	"github.com/ledgerline/backend/pkg/metrics"
	"github.com/ledgerline/backend/pkg/redis"
)

// Dependencies carries everything the router mounts.
type Dependencies struct {
	Config        *config.Config
	Logger        *logger.Logger
	Auth          auth.Service
	Customers     customers.Service
	Invoices      invoices.Service
	Settings      settings.Service
	StripeWebhook stripewebhook.Service
	Metrics       *metrics.WorkflowMetrics
	DB            *db.Client
	Redis         *redis.Client
}

// New assembles the HTTP router: public health/auth/webhook surface plus
// the authenticated API group.
func New(deps Dependencies) chi.Router {
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(middleware.Recoverer(logg))
	r.Use(middleware.RequestID(logg))
	r.Use(middleware.Logging(logg))
	r.Use(middleware.CORS())

	r.Get("/health/live", controllers.Live())
	r.Get("/health/ready", controllers.Ready(logg,
		controllers.ReadinessCheck{Name: "database", Check: func(req *http.Request) error {
			return deps.DB.Ping(req.Context())
		}},
		controllers.ReadinessCheck{Name: "redis", Check: func(req *http.Request) error {
			return deps.Redis.Ping(req.Context())
		}},
	))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/register", controllers.Register(deps.Auth, logg))
		r.Post("/auth/login", controllers.Login(deps.Auth, logg))

		r.Post("/webhooks/stripe", webhooks.Stripe(deps.StripeWebhook, deps.Config.Stripe, deps.Metrics, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(deps.Config.JWT, logg))

			r.Route("/customers", func(r chi.Router) {
				r.Get("/", controllers.ListCustomers(deps.Customers, logg))
				r.Post("/", controllers.CreateCustomer(deps.Customers, logg))
				r.Get("/{customerId}", controllers.GetCustomer(deps.Customers, logg))
				r.Patch("/{customerId}", controllers.UpdateCustomer(deps.Customers, logg))
				r.Delete("/{customerId}", controllers.DeleteCustomer(deps.Customers, logg))
			})

			r.Route("/invoices", func(r chi.Router) {
				r.Get("/", controllers.ListInvoices(deps.Invoices, logg))
				r.Post("/", controllers.CreateInvoice(deps.Invoices, logg))
				r.Get("/{invoiceId}", controllers.GetInvoice(deps.Invoices, logg))
				r.Patch("/{invoiceId}", controllers.UpdateInvoice(deps.Invoices, logg))
				r.Delete("/{invoiceId}", controllers.DeleteInvoice(deps.Invoices, logg))
				r.Post("/{invoiceId}/resend", controllers.ResendInvoice(deps.Invoices, logg))
				r.Delete("/{invoiceId}/payment-link", controllers.RemoveInvoicePaymentLink(deps.Invoices, logg))
			})

			r.Route("/settings", func(r chi.Router) {
				r.Get("/", controllers.GetSettings(deps.Settings, logg))
				r.Put("/", controllers.UpdateSettings(deps.Settings, logg))
			})
		})
	})

	return r
}
