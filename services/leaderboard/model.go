package leaderboard

import "time"

// Leaderboard scopes.
const (
	ScopeGlobal = "GLOBAL"
	ScopeApp    = "APP"
	ScopeLeague = "LEAGUE"
)

// Entry is the durable snapshot of one member's live score. The sorted-set
// cache is authoritative; this row mirrors its last returned value.
type Entry struct {
	ID        string    `gorm:"column:id;primaryKey"`
	AppID     string    `gorm:"column:app_id;index:lb_entries_lookup_idx"`
	UserID    string    `gorm:"column:user_id"`
	Scope     string    `gorm:"column:scope;index:lb_entries_lookup_idx"`
	Metric    string    `gorm:"column:metric;index:lb_entries_lookup_idx"`
	PeriodKey string    `gorm:"column:period_key;index:lb_entries_lookup_idx"`
	LeagueID  string    `gorm:"column:league_id"`
	Score     int64     `gorm:"column:score"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

// TableName sets the table name for the Entry model.
func (Entry) TableName() string { return "leaderboard_entries" }

// RankedEntry is one row of a leaderboard read, ranks dense from 1.
type RankedEntry struct {
	UserID string `json:"userId"`
	Score  int64  `json:"score"`
	Rank   int    `json:"rank"`
}
