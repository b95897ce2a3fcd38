package rule

import (
	"time"

	"gorm.io/datatypes"
)

// RewardRule is a tenant-scoped reward definition. Conditions and the bonus
// configs are stored as JSON documents and decoded leniently at evaluation
// time: a malformed sub-config disables that feature instead of failing the
// rule.
type RewardRule struct {
	ID                string         `gorm:"column:id;primaryKey"`
	AppID             string         `gorm:"column:app_id;index:reward_rules_lookup_idx"`
	Name              string         `gorm:"column:name"`
	Description       string         `gorm:"column:description"`
	EventType         string         `gorm:"column:event_type;index:reward_rules_lookup_idx"`
	IsActive          bool           `gorm:"column:is_active;index:reward_rules_lookup_idx"`
	Priority          int            `gorm:"column:priority;default:100"`
	Conditions        datatypes.JSON `gorm:"column:conditions"`
	XPAwards          datatypes.JSON `gorm:"column:xp_awards"`
	CurrencyAwards    datatypes.JSON `gorm:"column:currency_awards"`
	MultiplierConfig  datatypes.JSON `gorm:"column:multiplier_config"`
	TimeBonusConfig   datatypes.JSON `gorm:"column:time_bonus_config"`
	StreakBonusConfig datatypes.JSON `gorm:"column:streak_bonus_config"`
	CreatedAt         time.Time      `gorm:"column:created_at"`
	UpdatedAt         time.Time      `gorm:"column:updated_at"`
}

// TableName sets the table name for the RewardRule model.
func (RewardRule) TableName() string { return "reward_rules" }

// Grant is the computed set of awards produced by one evaluation pass.
// Matched rule ids are kept in evaluation order for the audit log.
type Grant struct {
	TrackAwards    map[string]int64
	CurrencyAwards map[string]int64
	MatchedRuleIDs []string
}

// TotalXP sums all track awards in the grant.
func (g Grant) TotalXP() int64 {
	var total int64
	for _, amount := range g.TrackAwards {
		total += amount
	}
	return total
}
