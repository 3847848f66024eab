package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/beverage-pos/api/responses"
	"github.com/angelmondragon/beverage-pos/api/validators"
	"github.com/angelmondragon/beverage-pos/internal/journal"
	"github.com/angelmondragon/beverage-pos/pkg/db/models"
	"github.com/angelmondragon/beverage-pos/pkg/enums"
	"github.com/angelmondragon/beverage-pos/pkg/logger"
	"github.com/angelmondragon/beverage-pos/pkg/pagination"
)

// Journal is the local record of submitted sales.
type Journal interface {
	ListUnreconciled(ctx context.Context, params pagination.Params) (journal.Page, error)
	MarkReconciled(ctx context.Context, id int64) (*models.SaleJournalEntry, error)
}

type journalEntry struct {
	ID            int64               `json:"id"`
	SessionID     string              `json:"session_id"`
	SaleID        int64               `json:"sale_id"`
	SaleNumber    string              `json:"sale_number"`
	CommitMode    enums.CommitMode    `json:"commit_mode"`
	Status        enums.JournalStatus `json:"status"`
	PaymentStatus enums.PaymentStatus `json:"payment_status"`
	Total         decimal.Decimal     `json:"total"`
	Paid          decimal.Decimal     `json:"paid"`
	ItemCount     int                 `json:"item_count"`
	Warning       *string             `json:"warning,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	ReconciledAt  *time.Time          `json:"reconciled_at,omitempty"`
}

func newJournalEntry(m models.SaleJournalEntry) journalEntry {
	return journalEntry{
		ID:            m.ID,
		SessionID:     m.SessionID,
		SaleID:        m.SaleID,
		SaleNumber:    m.SaleNumber,
		CommitMode:    m.CommitMode,
		Status:        m.Status,
		PaymentStatus: m.PaymentStatus,
		Total:         m.Total,
		Paid:          m.Paid,
		ItemCount:     m.ItemCount,
		Warning:       m.Warning,
		CreatedAt:     m.CreatedAt,
		ReconciledAt:  m.ReconciledAt,
	}
}

type journalPage struct {
	Entries    []journalEntry `json:"entries"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// JournalUnreconciled lists sales that were created but never completed.
func JournalUnreconciled(entries Journal, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.QueryLimit(r, pagination.DefaultLimit, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := entries.ListUnreconciled(r.Context(), pagination.Params{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := journalPage{Entries: make([]journalEntry, 0, len(page.Entries)), NextCursor: page.NextCursor}
		for _, entry := range page.Entries {
			out.Entries = append(out.Entries, newJournalEntry(entry))
		}
		responses.WriteSuccess(w, out)
	}
}

// JournalReconcile marks a journal entry as settled by an operator.
func JournalReconcile(entries Journal, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathID(r, "entryId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		entry, err := entries.MarkReconciled(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newJournalEntry(*entry))
	}
}
