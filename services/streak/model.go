package streak

import "time"

const (
	ModeDaily  = "DAILY"
	ModeWeekly = "WEEKLY"
)

// periodSeconds returns the qualification period for a mode. Unknown modes
// fall back to daily.
func periodSeconds(mode string) int64 {
	if mode == ModeWeekly {
		return 7 * 24 * 60 * 60
	}
	return 24 * 60 * 60
}

// Streak holds one counter per (app, user, mode). It is mutated at most once
// per qualifying check; concurrent qualifications resolve last-write-wins.
type Streak struct {
	ID              string     `gorm:"column:id;primaryKey"`
	AppID           string     `gorm:"column:app_id;uniqueIndex:streaks_app_user_mode_uidx"`
	UserID          string     `gorm:"column:user_id;uniqueIndex:streaks_app_user_mode_uidx"`
	Mode            string     `gorm:"column:mode;uniqueIndex:streaks_app_user_mode_uidx"`
	CurrentCount    int64      `gorm:"column:current_count"`
	BestCount       int64      `gorm:"column:best_count"`
	LastQualifiedAt *time.Time `gorm:"column:last_qualified_at"`
	GraceSeconds    int64      `gorm:"column:grace_seconds"`
	FreezeCount     int64      `gorm:"column:freeze_count"`
	CreatedAt       time.Time  `gorm:"column:created_at"`
	UpdatedAt       time.Time  `gorm:"column:updated_at"`
}

// TableName sets the table name for the Streak model.
func (Streak) TableName() string { return "streaks" }
