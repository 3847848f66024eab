// Package journal keeps the terminal's local record of submitted sales so
// that sales whose completion call failed can be reconciled later.
package journal

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/beverage-pos/pkg/db"
	"github.com/angelmondragon/beverage-pos/pkg/db/models"
	"github.com/angelmondragon/beverage-pos/pkg/enums"
	pkgerrors "github.com/angelmondragon/beverage-pos/pkg/errors"
	"github.com/angelmondragon/beverage-pos/pkg/pagination"
)

// Page is one page of unreconciled entries. NextCursor is empty on the last page.
type Page struct {
	Entries    []models.SaleJournalEntry
	NextCursor string
}

// Repository persists journal entries.
type Repository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewRepository builds a journal repository bound to the provided DB.
func NewRepository(conn *gorm.DB) *Repository {
	return &Repository{db: conn, now: time.Now}
}

// AutoMigrate creates the journal table through gorm. Used with the sqlite
// driver, where the goose migrations (postgres dialect) do not apply.
func (r *Repository) AutoMigrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&models.SaleJournalEntry{})
}

// Record stores entry. A sale that is already journaled is not an error.
func (r *Repository) Record(ctx context.Context, entry *models.SaleJournalEntry) error {
	if entry == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "journal entry required")
	}
	if entry.SaleID <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "sale id required").
			WithDetails(map[string]any{"sale_id": entry.SaleID})
	}
	if !entry.Status.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid journal status").
			WithDetails(map[string]any{"status": string(entry.Status)})
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = r.now().UTC().Truncate(time.Microsecond)
	}
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record sale journal entry")
	}
	return nil
}

// FindBySaleID returns the entry of one sale.
func (r *Repository) FindBySaleID(ctx context.Context, saleID int64) (*models.SaleJournalEntry, error) {
	var entry models.SaleJournalEntry
	err := r.db.WithContext(ctx).Where("sale_id = ?", saleID).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "journal entry not found").
			WithDetails(map[string]any{"sale_id": saleID})
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sale journal entry")
	}
	return &entry, nil
}

// ListUnreconciled returns the sales whose completion failed and that no one
// has reconciled yet, oldest first.
func (r *Repository) ListUnreconciled(ctx context.Context, params pagination.Params) (Page, error) {
	after, err := params.After()
	if err != nil {
		return Page{}, err
	}
	size := params.PageSize()

	query := r.db.WithContext(ctx).
		Where("status = ? AND reconciled_at IS NULL", enums.JournalStatusCompletionFailed)
	if after != nil {
		query = query.Where("(created_at > ?) OR (created_at = ? AND id > ?)",
			after.CreatedAt, after.CreatedAt, after.ID)
	}

	var entries []models.SaleJournalEntry
	err = query.
		Order("created_at ASC, id ASC").
		Limit(size + 1).
		Find(&entries).Error
	if err != nil {
		return Page{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list unreconciled sales")
	}

	var page Page
	page.Entries, page.NextCursor = pagination.Page(entries, size, func(e models.SaleJournalEntry) pagination.Cursor {
		return pagination.Cursor{CreatedAt: e.CreatedAt, ID: e.ID}
	})
	return page, nil
}

// MarkReconciled closes an entry. Reconciling twice is a state conflict.
func (r *Repository) MarkReconciled(ctx context.Context, id int64) (*models.SaleJournalEntry, error) {
	var entry models.SaleJournalEntry
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&entry).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "journal entry not found").
					WithDetails(map[string]any{"id": id})
			}
			return err
		}
		if entry.ReconciledAt != nil {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "journal entry already reconciled").
				WithDetails(map[string]any{"id": id})
		}
		now := r.now().UTC()
		if err := tx.Model(&entry).Update("reconciled_at", now).Error; err != nil {
			return err
		}
		entry.ReconciledAt = &now
		return nil
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reconcile sale journal entry")
	}
	return &entry, nil
}
