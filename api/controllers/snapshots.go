package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/beverage-pos/api/responses"
	"github.com/angelmondragon/beverage-pos/internal/snapshot"
	pkgerrors "github.com/angelmondragon/beverage-pos/pkg/errors"
	"github.com/angelmondragon/beverage-pos/pkg/logger"
)

// JobRunner runs a registered periodic job on demand.
type JobRunner interface {
	RunOnce(ctx context.Context, name string) error
}

// SnapshotInfo describes the loaded snapshot set.
type SnapshotInfo interface {
	Len() int
	FetchedAt() time.Time
}

// SnapshotRefresh refreshes every product's stock snapshot right away.
func SnapshotRefresh(jobs JobRunner, info SnapshotInfo, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := jobs.RunOnce(r.Context(), snapshot.RefreshJobName); err != nil {
			if pkgerrors.As(err) == nil {
				err = pkgerrors.Wrap(pkgerrors.CodeDependency, err, "snapshot refresh failed")
			}
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"products":   info.Len(),
			"fetched_at": info.FetchedAt(),
		})
	}
}
