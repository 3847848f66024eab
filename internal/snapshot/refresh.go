package snapshot

import (
	"context"
	"sync"
	"time"

	"github.com/angelmondragon/beverage-pos/pkg/logger"
)

const RefreshJobName = "snapshot-refresh"

// RefreshJob refreshes every catalog product on each run.
type RefreshJob struct {
	store *Store
	ids   func() []int64
}

// NewRefreshJob builds the periodic refresh job. ids yields the product ids
// to refresh at run time.
func NewRefreshJob(store *Store, ids func() []int64) *RefreshJob {
	return &RefreshJob{store: store, ids: ids}
}

func (j *RefreshJob) Name() string { return RefreshJobName }

func (j *RefreshJob) Run(ctx context.Context) error {
	return j.store.Refresh(ctx, j.ids())
}

// Refresher runs one-shot refreshes shortly after a sale was committed.
// Requests arriving while one is pending collapse into it.
type Refresher struct {
	job   *RefreshJob
	delay time.Duration
	logg  *logger.Logger
	base  context.Context

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
	wg      sync.WaitGroup
}

// NewRefresher builds a refresher whose refreshes run under base.
func NewRefresher(base context.Context, job *RefreshJob, delay time.Duration, logg *logger.Logger) *Refresher {
	if logg == nil {
		logg = logger.Nop()
	}
	if base == nil {
		base = context.Background()
	}
	return &Refresher{job: job, delay: delay, logg: logg, base: base}
}

// Schedule queues a refresh after the configured delay.
func (r *Refresher) Schedule() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped || r.timer != nil {
		return
	}
	r.wg.Add(1)
	r.timer = time.AfterFunc(r.delay, func() {
		defer r.wg.Done()
		r.mu.Lock()
		r.timer = nil
		r.mu.Unlock()

		ctx := r.logg.WithField(r.base, "event", "snapshot.post_commit_refresh")
		if err := r.job.Run(ctx); err != nil {
			r.logg.Error(ctx, "post-commit snapshot refresh failed", err)
		}
	})
}

// Stop cancels a pending refresh and waits for a running one to finish.
func (r *Refresher) Stop() {
	r.mu.Lock()
	r.stopped = true
	if r.timer != nil && r.timer.Stop() {
		r.timer = nil
		r.wg.Done()
	}
	r.mu.Unlock()
	r.wg.Wait()
}
