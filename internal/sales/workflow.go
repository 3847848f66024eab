// Package sales drives the finalization of the sale held in a cart ledger:
// validation, the creation call, the optional completion call, and the
// cleanup that follows.
package sales

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/beverage-pos/internal/availability"
	"github.com/angelmondragon/beverage-pos/internal/cart"
	"github.com/angelmondragon/beverage-pos/pkg/db/models"
	"github.com/angelmondragon/beverage-pos/pkg/enums"
	pkgerrors "github.com/angelmondragon/beverage-pos/pkg/errors"
	"github.com/angelmondragon/beverage-pos/pkg/logger"
	"github.com/angelmondragon/beverage-pos/pkg/metrics"
	"github.com/angelmondragon/beverage-pos/pkg/money"
)

// ErrCommitUnconfirmed marks a creation the server acknowledged without
// identifying the sale. The sale may exist remotely.
var ErrCommitUnconfirmed = errors.New("sale creation unconfirmed")

const (
	defaultPartialDueDays = 30
	saleSequenceName      = "sale"
)

// Committer is the remote sale-commit service.
type Committer interface {
	CreateSale(ctx context.Context, req SaleRequest) (SaleReceipt, error)
	CompleteSale(ctx context.Context, saleID int64) error
}

// Recorder journals submitted sales.
type Recorder interface {
	Record(ctx context.Context, entry *models.SaleJournalEntry) error
}

// RefreshScheduler queues a stock snapshot refresh.
type RefreshScheduler interface {
	Schedule()
}

// Sequencer numbers sales locally when the server does not.
type Sequencer interface {
	NextSequence(ctx context.Context, name string, day time.Time) (int64, error)
}

// WorkflowParams configure a Workflow.
type WorkflowParams struct {
	SessionID             string
	Ledger                *cart.Ledger
	Committer             Committer
	Journal               Recorder
	Refresher             RefreshScheduler
	Sequencer             Sequencer
	Logger                *logger.Logger
	Metrics               *metrics.POSMetrics
	PartialDueDays        int
	RequireCustomerOnHold bool
	Now                   func() time.Time
	NewKey                func() string
}

// Workflow owns one ledger and guards it with the sale state machine:
// mutations are only accepted while the sale is being built.
type Workflow struct {
	sessionID     string
	committer     Committer
	journal       Recorder
	refresher     RefreshScheduler
	sequencer     Sequencer
	logg          *logger.Logger
	metrics       *metrics.POSMetrics
	dueDays       int
	requireOnHold bool
	now           func() time.Time
	newKey        func() string

	mu     sync.Mutex
	ledger *cart.Ledger
	state  enums.SaleState
}

// NewWorkflow builds a workflow in the Building state.
func NewWorkflow(params WorkflowParams) (*Workflow, error) {
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger required")
	}
	if params.Committer == nil {
		return nil, fmt.Errorf("committer required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	dueDays := params.PartialDueDays
	if dueDays <= 0 {
		dueDays = defaultPartialDueDays
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	newKey := params.NewKey
	if newKey == nil {
		newKey = uuid.NewString
	}
	return &Workflow{
		sessionID:     params.SessionID,
		committer:     params.Committer,
		journal:       params.Journal,
		refresher:     params.Refresher,
		sequencer:     params.Sequencer,
		logg:          logg,
		metrics:       params.Metrics,
		dueDays:       dueDays,
		requireOnHold: params.RequireCustomerOnHold,
		now:           now,
		newKey:        newKey,
		ledger:        params.Ledger,
		state:         enums.SaleStateBuilding,
	}, nil
}

// State returns the current sale state.
func (w *Workflow) State() enums.SaleState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// CartView is a consistent read of the ledger.
type CartView struct {
	State      enums.SaleState      `json:"state"`
	CommitMode enums.CommitMode     `json:"commit_mode"`
	Lines      []cart.Line          `json:"lines"`
	Packaging  []cart.PackagingLine `json:"packaging"`
	Totals     cart.Totals          `json:"totals"`
}

// View returns the ledger contents. Reads are allowed in every state.
func (w *Workflow) View() CartView {
	w.mu.Lock()
	defer w.mu.Unlock()
	return CartView{
		State:      w.state,
		CommitMode: w.ledger.CommitMode(),
		Lines:      w.ledger.Lines(),
		Packaging:  w.ledger.Packaging(),
		Totals:     w.ledger.Totals(),
	}
}

// Availability reports live availability of productID under this cart.
func (w *Workflow) Availability(productID int64) (availability.Result, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ledger.Availability(productID)
}

// Add reserves one more unit of productID.
func (w *Workflow) Add(ctx context.Context, productID, unitID int64, mode enums.PricingMode) (cart.Line, error) {
	var line cart.Line
	err := w.mutate(ctx, func(l *cart.Ledger) error {
		var err error
		line, err = l.Add(productID, unitID, mode)
		return err
	})
	return line, err
}

// SetQuantity replaces the quantity of a line.
func (w *Workflow) SetQuantity(ctx context.Context, key cart.Key, quantity int) error {
	return w.mutate(ctx, func(l *cart.Ledger) error {
		return l.SetQuantity(key, quantity)
	})
}

// Remove deletes a line.
func (w *Workflow) Remove(ctx context.Context, key cart.Key) error {
	return w.mutate(ctx, func(l *cart.Ledger) error {
		l.Remove(key)
		return nil
	})
}

// Clear abandons the sale being built.
func (w *Workflow) Clear(ctx context.Context) error {
	return w.mutate(ctx, func(l *cart.Ledger) error {
		l.Clear()
		return nil
	})
}

// ChangePricingMode moves a line to another price ladder.
func (w *Workflow) ChangePricingMode(ctx context.Context, key cart.Key, mode enums.PricingMode) (cart.Line, error) {
	var line cart.Line
	err := w.mutate(ctx, func(l *cart.Ledger) error {
		var err error
		line, err = l.ChangePricingMode(key, mode)
		return err
	})
	return line, err
}

// SetCommitMode chooses how the next sale is committed.
func (w *Workflow) SetCommitMode(ctx context.Context, mode enums.CommitMode) error {
	return w.mutate(ctx, func(l *cart.Ledger) error {
		return l.SetCommitMode(mode)
	})
}

// SetPackaging overrides a packaging line.
func (w *Workflow) SetPackaging(ctx context.Context, productID int64, quantity decimal.Decimal, status enums.PackagingStatus) (cart.PackagingLine, error) {
	var line cart.PackagingLine
	err := w.mutate(ctx, func(l *cart.Ledger) error {
		var err error
		line, err = l.SetPackaging(productID, quantity, status)
		return err
	})
	return line, err
}

func (w *Workflow) mutate(ctx context.Context, fn func(*cart.Ledger) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != enums.SaleStateBuilding {
		return stateConflict(w.state)
	}
	err := fn(w.ledger)
	switch {
	case err == nil:
	case pkgerrors.HasCode(err, pkgerrors.CodeReservationExceeded):
		w.metrics.IncRejection("reservation_exceeded")
		w.logg.Warn(w.logg.WithFields(ctx, map[string]any{"event": "cart.rejected", "details": pkgerrors.As(err).Details()}), "reservation exceeds available stock")
	case pkgerrors.HasCode(err, pkgerrors.CodeStaleSnapshot):
		w.metrics.IncRejection("stale_snapshot")
	}
	return err
}

// Submit finalizes the sale. Validation and creation failures leave the
// ledger untouched. Once the sale exists on the server the ledger is cleared
// and a snapshot refresh is scheduled, even if completion failed; that case
// is reported through Result.Warning with a nil error.
func (w *Workflow) Submit(ctx context.Context, checkout Checkout) (Result, error) {
	ctx = w.logg.WithSessionID(ctx, w.sessionID)

	w.mu.Lock()
	if w.state != enums.SaleStateBuilding {
		state := w.state
		w.mu.Unlock()
		return Result{}, stateConflict(state)
	}
	prepared, err := w.prepare(checkout)
	if err != nil {
		w.mu.Unlock()
		w.metrics.IncSubmission(metrics.OutcomeRejected)
		w.logg.Warn(w.logg.WithField(ctx, "event", "sale.rejected"), err.Error())
		return Result{}, err
	}
	w.state = enums.SaleStateSubmitting
	w.mu.Unlock()

	w.logg.Info(w.logg.WithFields(ctx, map[string]any{
		"event":       "sale.submitted",
		"commit_mode": string(prepared.mode),
		"total":       prepared.total.String(),
		"items":       len(prepared.request.Items),
	}), "submitting sale")

	receipt, err := w.committer.CreateSale(ctx, prepared.request)
	if err != nil {
		w.setState(enums.SaleStateBuilding)
		w.metrics.IncSubmission(metrics.OutcomeCommitFailed)
		if errors.Is(err, ErrCommitUnconfirmed) {
			// the cart is kept; resubmitting with the logged key is safe
			w.logg.Error(w.logg.WithFields(ctx, map[string]any{
				"event":           "sale.commit_unconfirmed",
				"idempotency_key": prepared.request.IdempotencyKey,
			}), "sale creation unconfirmed", err)
			return Result{}, commitUnconfirmed(err)
		}
		w.logg.Error(w.logg.WithField(ctx, "event", "sale.commit_failed"), "sale creation failed", err)
		return Result{}, commitFailed(err)
	}
	saleNumber := w.saleNumber(ctx, receipt)
	ctx = w.logg.WithSaleID(ctx, saleNumber)

	result := Result{
		State:         enums.SaleStateCommitted,
		SaleID:        receipt.ID,
		SaleNumber:    saleNumber,
		CommitMode:    prepared.mode,
		Total:         prepared.total,
		Paid:          prepared.paid,
		Remaining:     prepared.total.Sub(prepared.paid),
		PaymentStatus: paymentStatus(prepared.total, prepared.paid),
	}
	if result.Remaining.IsPositive() {
		due := w.now().AddDate(0, 0, w.dueDays)
		result.DueDate = &due
	}

	journalStatus := enums.JournalStatusPending
	outcome := metrics.OutcomePending
	if prepared.mode == enums.CommitModeComplete {
		journalStatus = enums.JournalStatusCompleted
		outcome = metrics.OutcomeCommitted
		if err := w.committer.CompleteSale(ctx, receipt.ID); err != nil {
			journalStatus = enums.JournalStatusCompletionFailed
			outcome = metrics.OutcomeCompletionFailed
			result.Warning = completionFailed(saleNumber, receipt.ID, err)
			w.logg.Warn(w.logg.WithField(ctx, "event", "sale.completion_failed"), result.Warning.Error())
		} else {
			w.logg.Info(w.logg.WithField(ctx, "event", "sale.completed"), "sale completed")
		}
	}

	w.mu.Lock()
	w.ledger.Clear()
	w.state = enums.SaleStateBuilding
	w.mu.Unlock()

	if w.refresher != nil {
		w.refresher.Schedule()
	}
	w.metrics.IncSubmission(outcome)
	total, _ := prepared.total.Float64()
	w.metrics.ObserveSaleTotal(total)
	w.record(ctx, prepared, result, journalStatus)
	return result, nil
}

type preparedSale struct {
	mode    enums.CommitMode
	total   decimal.Decimal
	paid    decimal.Decimal
	items   int
	request SaleRequest
}

// prepare validates the checkout against the ledger. Callers hold w.mu.
func (w *Workflow) prepare(checkout Checkout) (preparedSale, error) {
	if w.ledger.IsEmpty() {
		return preparedSale{}, validation("cart is empty", nil)
	}
	paymentType := checkout.PaymentType
	if paymentType == "" {
		paymentType = enums.PaymentTypeFull
	}
	if !paymentType.IsValid() {
		return preparedSale{}, validation("invalid payment type", map[string]any{"payment_type": string(paymentType)})
	}
	method := checkout.PaymentMethod
	if method == "" {
		method = enums.PaymentMethodCash
	}
	if !method.IsValid() {
		return preparedSale{}, validation("invalid payment method", map[string]any{"payment_method": string(method)})
	}

	mode := w.ledger.CommitMode()
	if mode == enums.CommitModeComplete {
		// the snapshot may have dropped below the reservations since they were made
		if err := w.ledger.VerifyStock(); err != nil {
			return preparedSale{}, err
		}
	}
	customer := checkout.Customer.normalized()
	if customer.Name == "" {
		if paymentType == enums.PaymentTypePartial {
			return preparedSale{}, validation("customer name is required for partial payments", map[string]any{"field": "customer.name"})
		}
		if mode == enums.CommitModePending && w.requireOnHold {
			return preparedSale{}, validation("customer name is required for pending sales", map[string]any{"field": "customer.name"})
		}
	}

	totals := w.ledger.Totals()
	total := totals.Subtotal
	paid := money.Round(checkout.PaidAmount)
	if paymentType == enums.PaymentTypeFull {
		paid = total
	}
	if paid.IsNegative() {
		return preparedSale{}, validation("paid amount cannot be negative", map[string]any{"paid_amount": paid.String()})
	}
	if paid.GreaterThan(total) {
		return preparedSale{}, validation("paid amount cannot exceed the total amount", map[string]any{
			"paid_amount": paid.String(),
			"total":       total.String(),
		})
	}

	key := strings.TrimSpace(checkout.IdempotencyKey)
	if key == "" {
		key = w.newKey()
	}

	return preparedSale{
		mode:    mode,
		total:   total,
		paid:    paid,
		items:   totals.Items,
		request: buildRequest(key, customer, method, paid, w.ledger.Lines(), w.ledger.Packaging()),
	}, nil
}

func (w *Workflow) setState(state enums.SaleState) {
	w.mu.Lock()
	w.state = state
	w.mu.Unlock()
}

func (w *Workflow) saleNumber(ctx context.Context, receipt SaleReceipt) string {
	if receipt.SaleNumber != "" {
		return receipt.SaleNumber
	}
	day := w.now()
	if w.sequencer != nil {
		seq, err := w.sequencer.NextSequence(ctx, saleSequenceName, day)
		if err == nil {
			return fmt.Sprintf("POS-%s-%04d", day.UTC().Format("20060102"), seq)
		}
		w.logg.Error(ctx, "sale sequence unavailable", err)
	}
	return fmt.Sprintf("#%d", receipt.ID)
}

func (w *Workflow) record(ctx context.Context, prepared preparedSale, result Result, status enums.JournalStatus) {
	if w.journal == nil {
		return
	}
	entry := &models.SaleJournalEntry{
		SessionID:     w.sessionID,
		SaleID:        result.SaleID,
		SaleNumber:    result.SaleNumber,
		CommitMode:    prepared.mode,
		Status:        status,
		PaymentStatus: result.PaymentStatus,
		Total:         result.Total,
		Paid:          result.Paid,
		ItemCount:     prepared.items,
	}
	if result.Warning != nil {
		msg := result.Warning.Error()
		entry.Warning = &msg
	}
	if err := w.journal.Record(ctx, entry); err != nil {
		w.logg.Error(ctx, "failed to journal sale", err)
	}
}

func validation(msg string, details map[string]any) error {
	err := pkgerrors.New(pkgerrors.CodeValidation, msg)
	if details != nil {
		err = err.WithDetails(details)
	}
	return err
}

func stateConflict(state enums.SaleState) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, "sale is being submitted").
		WithDetails(map[string]any{"state": string(state)})
}

func commitFailed(err error) error {
	details := map[string]any{}
	if typed := pkgerrors.As(err); typed != nil {
		details["reason"] = typed.Message()
		if typed.Details() != nil {
			details["upstream"] = typed.Details()
		}
	} else {
		details["reason"] = err.Error()
	}
	return pkgerrors.Wrap(pkgerrors.CodeCommitFailed, err, "sale could not be created").WithDetails(details)
}

func commitUnconfirmed(err error) error {
	if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeDependency {
		return typed
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sale creation unconfirmed")
}

func completionFailed(saleNumber string, saleID int64, err error) error {
	return pkgerrors.Wrap(pkgerrors.CodeCompletionFailed, err,
		fmt.Sprintf("sale created (%s) but completion failed", saleNumber)).
		WithDetails(map[string]any{"sale_id": saleID, "sale_number": saleNumber})
}
