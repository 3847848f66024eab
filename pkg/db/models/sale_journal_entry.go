package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/beverage-pos/pkg/enums"
)

// SaleJournalEntry is the terminal's local record of a sale handed to the
// sale-commit service. Entries with status completion_failed stay open until
// an operator reconciles them against the server.
type SaleJournalEntry struct {
	ID            int64               `gorm:"column:id;primaryKey;autoIncrement"`
	SessionID     string              `gorm:"column:session_id;type:varchar(64);not null"`
	SaleID        int64               `gorm:"column:sale_id;not null;uniqueIndex:sale_journal_sale_id_key"`
	SaleNumber    string              `gorm:"column:sale_number;type:varchar(64);not null"`
	CommitMode    enums.CommitMode    `gorm:"column:commit_mode;type:varchar(16);not null"`
	Status        enums.JournalStatus `gorm:"column:status;type:varchar(32);not null"`
	PaymentStatus enums.PaymentStatus `gorm:"column:payment_status;type:varchar(16);not null"`
	Total         decimal.Decimal     `gorm:"column:total;type:numeric(14,2);not null"`
	Paid          decimal.Decimal     `gorm:"column:paid;type:numeric(14,2);not null"`
	ItemCount     int                 `gorm:"column:item_count;not null;default:0"`
	Warning       *string             `gorm:"column:warning;type:text"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	ReconciledAt  *time.Time          `gorm:"column:reconciled_at"`
}

// TableName pins the table created by the journal migration.
func (SaleJournalEntry) TableName() string {
	return "sale_journal"
}
