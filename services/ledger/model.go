package ledger

import (
	"time"

	"gorm.io/datatypes"
)

// Transaction sources. Balances are derived from rows, never stored as
// mutable state.
const (
	SourceRule   = "RULE"
	SourceManual = "MANUAL"
	SourceSystem = "SYSTEM"
	SourceSeason = "SEASON"
)

// XPTransaction is an append-only experience posting for one track.
type XPTransaction struct {
	ID        string         `gorm:"column:id;primaryKey"`
	AppID     string         `gorm:"column:app_id;index:xp_tx_app_user_idx"`
	UserID    string         `gorm:"column:user_id;index:xp_tx_app_user_idx"`
	EventID   string         `gorm:"column:event_id"`
	Track     string         `gorm:"column:track"`
	Amount    int64          `gorm:"column:amount"`
	Source    string         `gorm:"column:source"`
	Reason    string         `gorm:"column:reason"`
	Metadata  datatypes.JSON `gorm:"column:metadata"`
	CreatedAt time.Time      `gorm:"column:created_at"`
}

// TableName sets the table name for the XPTransaction model.
func (XPTransaction) TableName() string { return "xp_transactions" }

// CurrencyTransaction is an append-only virtual-currency posting. BalanceAfter
// is a convenience snapshot of the running sum at write time.
type CurrencyTransaction struct {
	ID           string         `gorm:"column:id;primaryKey"`
	AppID        string         `gorm:"column:app_id;index:currency_tx_app_user_idx"`
	UserID       string         `gorm:"column:user_id;index:currency_tx_app_user_idx"`
	EventID      string         `gorm:"column:event_id"`
	Currency     string         `gorm:"column:currency"`
	Amount       int64          `gorm:"column:amount"`
	BalanceAfter int64          `gorm:"column:balance_after"`
	Source       string         `gorm:"column:source"`
	Reason       string         `gorm:"column:reason"`
	Metadata     datatypes.JSON `gorm:"column:metadata"`
	CreatedAt    time.Time      `gorm:"column:created_at"`
}

// TableName sets the table name for the CurrencyTransaction model.
func (CurrencyTransaction) TableName() string { return "currency_transactions" }

// TrackTotal is the aggregate XP for one track.
type TrackTotal struct {
	Track string `gorm:"column:track"`
	Total int64  `gorm:"column:total"`
}

// CurrencyBalance is the derived balance for one currency.
type CurrencyBalance struct {
	Currency string `gorm:"column:currency"`
	Balance  int64  `gorm:"column:balance"`
}
