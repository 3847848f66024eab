package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/beverage-pos/api/responses"
	"github.com/angelmondragon/beverage-pos/pkg/config"
	pkgerrors "github.com/angelmondragon/beverage-pos/pkg/errors"
	"github.com/angelmondragon/beverage-pos/pkg/logger"
)

const envHeader = "X-BevPOS-Env"

// Pinger is a dependency with a health check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SnapshotStatus reports whether stock snapshots have been loaded.
type SnapshotStatus interface {
	Len() int
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports ready once the journal database and redis answer and
// at least one stock snapshot is loaded.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP Pinger, redisP Pinger, snapshots SnapshotStatus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		checks := map[string]string{}
		ready := true

		check := func(name string, p Pinger) {
			if p == nil {
				checks[name] = "skipped"
				return
			}
			if err := p.Ping(r.Context()); err != nil {
				ready = false
				checks[name] = "down"
				if logg != nil {
					logg.Warn(logg.WithField(r.Context(), "dependency", name), "readiness check failed")
				}
				return
			}
			checks[name] = "ok"
		}
		check("database", dbP)
		check("redis", redisP)

		if snapshots != nil && snapshots.Len() == 0 {
			ready = false
			checks["snapshots"] = "loading"
		} else {
			checks["snapshots"] = "ok"
		}

		if !ready {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "not ready").WithDetails(checks))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
