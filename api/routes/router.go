package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/beverage-pos/api/controllers"
	"github.com/angelmondragon/beverage-pos/api/middleware"
	"github.com/angelmondragon/beverage-pos/pkg/config"
	"github.com/angelmondragon/beverage-pos/pkg/logger"
	"github.com/angelmondragon/beverage-pos/pkg/redis"
)

// Deps are the collaborators served by the router.
type Deps struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          controllers.Pinger
	Redis       controllers.Pinger
	Idempotency redis.IdempotencyStore
	Sessions    controllers.Sessions
	Journal     controllers.Journal
	Jobs        controllers.JobRunner
	Snapshots   controllers.SnapshotInfo
	Gatherer    prometheus.Gatherer
}

func NewRouter(deps Deps) http.Handler {
	logg := deps.Logger
	cfg := deps.Config

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, deps.Redis, deps.Snapshots))
	})

	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/sessions", controllers.SessionOpen(deps.Sessions, logg))
		r.Route("/sessions/{sessionId}", func(r chi.Router) {
			r.Delete("/", controllers.SessionClose(deps.Sessions, logg))
			r.Get("/availability/{productId}", controllers.Availability(deps.Sessions, logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.CartView(deps.Sessions, logg))
				r.Delete("/", controllers.CartClear(deps.Sessions, logg))
				r.Post("/items", controllers.CartAddItem(deps.Sessions, logg))
				r.Patch("/items", controllers.CartSetQuantity(deps.Sessions, logg))
				r.Delete("/items", controllers.CartRemoveItem(deps.Sessions, logg))
				r.Post("/pricing-mode", controllers.CartChangePricingMode(deps.Sessions, logg))
				r.Post("/commit-mode", controllers.CartSetCommitMode(deps.Sessions, logg))
				r.Patch("/packaging/{productId}", controllers.CartSetPackaging(deps.Sessions, logg))
			})

			r.With(middleware.Idempotency(deps.Idempotency, logg)).
				Post("/checkout", controllers.Checkout(deps.Sessions, logg))
		})

		r.Route("/journal", func(r chi.Router) {
			r.Get("/unreconciled", controllers.JournalUnreconciled(deps.Journal, logg))
			r.Post("/{entryId}/reconcile", controllers.JournalReconcile(deps.Journal, logg))
		})

		r.Post("/snapshots/refresh", controllers.SnapshotRefresh(deps.Jobs, deps.Snapshots, logg))
	})

	return r
}
