// Package terminal tracks the open point-of-sale sessions. Each session owns
// exactly one cart ledger and the workflow guarding it.
package terminal

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/beverage-pos/internal/availability"
	"github.com/angelmondragon/beverage-pos/internal/cart"
	"github.com/angelmondragon/beverage-pos/internal/sales"
	"github.com/angelmondragon/beverage-pos/pkg/enums"
	pkgerrors "github.com/angelmondragon/beverage-pos/pkg/errors"
	"github.com/angelmondragon/beverage-pos/pkg/logger"
	"github.com/angelmondragon/beverage-pos/pkg/metrics"
)

const SweepJobName = "terminal-session-sweep"

// RegistryParams configure the session registry.
type RegistryParams struct {
	Catalog               cart.ProductLookup
	Snapshots             availability.SnapshotReader
	Committer             sales.Committer
	Journal               sales.Recorder
	Refresher             sales.RefreshScheduler
	Sequencer             sales.Sequencer
	Logger                *logger.Logger
	Metrics               *metrics.POSMetrics
	DefaultCommitMode     enums.CommitMode
	PartialDueDays        int
	RequireCustomerOnHold bool
	IdleTimeout           time.Duration
	Now                   func() time.Time
}

// Session is one terminal's sale in progress.
type Session struct {
	ID       string    `json:"id"`
	OpenedAt time.Time `json:"opened_at"`

	workflow *sales.Workflow
	mu       sync.Mutex
	lastSeen time.Time
}

// Workflow returns the session's sale workflow.
func (s *Session) Workflow() *sales.Workflow { return s.workflow }

// LastSeen returns when the session was last used.
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

func (s *Session) touch(at time.Time) {
	s.mu.Lock()
	s.lastSeen = at
	s.mu.Unlock()
}

// Registry holds the open sessions.
type Registry struct {
	params RegistryParams
	logg   *logger.Logger
	now    func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry builds an empty registry.
func NewRegistry(params RegistryParams) (*Registry, error) {
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog required")
	}
	if params.Snapshots == nil {
		return nil, fmt.Errorf("snapshot reader required")
	}
	if params.Committer == nil {
		return nil, fmt.Errorf("committer required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	if !params.DefaultCommitMode.IsValid() {
		params.DefaultCommitMode = enums.CommitModeComplete
	}
	return &Registry{
		params:   params,
		logg:     logg,
		now:      now,
		sessions: make(map[string]*Session),
	}, nil
}

// Open starts a session with an empty ledger in the default commit mode.
func (r *Registry) Open(ctx context.Context) (*Session, error) {
	id := uuid.NewString()
	ledger := cart.New(r.params.Catalog, r.params.Snapshots, r.params.DefaultCommitMode)
	workflow, err := sales.NewWorkflow(sales.WorkflowParams{
		SessionID:             id,
		Ledger:                ledger,
		Committer:             r.params.Committer,
		Journal:               r.params.Journal,
		Refresher:             r.params.Refresher,
		Sequencer:             r.params.Sequencer,
		Logger:                r.logg,
		Metrics:               r.params.Metrics,
		PartialDueDays:        r.params.PartialDueDays,
		RequireCustomerOnHold: r.params.RequireCustomerOnHold,
		Now:                   r.params.Now,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "open terminal session")
	}
	now := r.now()
	session := &Session{ID: id, OpenedAt: now, workflow: workflow, lastSeen: now}

	r.mu.Lock()
	r.sessions[id] = session
	open := len(r.sessions)
	r.mu.Unlock()

	r.params.Metrics.SetOpenSessions(open)
	r.logg.Info(r.logg.WithSessionID(ctx, id), "terminal session opened")
	return session, nil
}

// Get returns an open session and marks it as used.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	session, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "terminal session not found").
			WithDetails(map[string]any{"session_id": id})
	}
	session.touch(r.now())
	return session, nil
}

// Close discards a session and its ledger. A session that is submitting a
// sale cannot be closed.
func (r *Registry) Close(ctx context.Context, id string) error {
	r.mu.Lock()
	session, ok := r.sessions[id]
	if !ok {
		r.mu.Unlock()
		return pkgerrors.New(pkgerrors.CodeNotFound, "terminal session not found").
			WithDetails(map[string]any{"session_id": id})
	}
	if state := session.workflow.State(); state == enums.SaleStateSubmitting {
		r.mu.Unlock()
		return pkgerrors.New(pkgerrors.CodeStateConflict, "sale is being submitted").
			WithDetails(map[string]any{"session_id": id, "state": string(state)})
	}
	delete(r.sessions, id)
	open := len(r.sessions)
	r.mu.Unlock()

	r.params.Metrics.SetOpenSessions(open)
	r.logg.Info(r.logg.WithSessionID(ctx, id), "terminal session closed")
	return nil
}

// Len returns the number of open sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sweep closes sessions idle for longer than the idle timeout and returns
// how many were closed. Sessions that are submitting are kept.
func (r *Registry) Sweep(ctx context.Context) int {
	if r.params.IdleTimeout <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.params.IdleTimeout)

	r.mu.Lock()
	closed := 0
	for id, session := range r.sessions {
		if session.LastSeen().After(cutoff) {
			continue
		}
		if session.workflow.State() == enums.SaleStateSubmitting {
			continue
		}
		delete(r.sessions, id)
		closed++
	}
	open := len(r.sessions)
	r.mu.Unlock()

	if closed > 0 {
		r.params.Metrics.SetOpenSessions(open)
		r.logg.Info(r.logg.WithField(ctx, "closed", closed), "idle terminal sessions closed")
	}
	return closed
}

// SweepJob runs Sweep on the job scheduler.
type SweepJob struct {
	registry *Registry
}

// NewSweepJob wraps registry for periodic sweeping.
func NewSweepJob(registry *Registry) *SweepJob {
	return &SweepJob{registry: registry}
}

func (j *SweepJob) Name() string { return SweepJobName }

func (j *SweepJob) Run(ctx context.Context) error {
	j.registry.Sweep(ctx)
	return nil
}
