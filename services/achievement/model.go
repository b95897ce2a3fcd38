package achievement

import (
	"time"

	"gorm.io/datatypes"
)

// Achievement kinds.
const (
	KindMilestone   = "MILESTONE"
	KindConditional = "CONDITIONAL"
)

// Achievement is a tenant-scoped unlock definition. MILESTONE conditions
// carry a numeric "target"; CONDITIONAL conditions carry "field"/"equals".
type Achievement struct {
	ID          string            `gorm:"column:id;primaryKey"`
	AppID       string            `gorm:"column:app_id;index"`
	Code        string            `gorm:"column:code"`
	Name        string            `gorm:"column:name"`
	Description string            `gorm:"column:description"`
	Kind        string            `gorm:"column:kind"`
	Tier        string            `gorm:"column:tier"`
	Hidden      bool              `gorm:"column:hidden"`
	Repeatable  bool              `gorm:"column:repeatable"`
	Conditions  datatypes.JSONMap `gorm:"column:conditions"`
	CreatedAt   time.Time         `gorm:"column:created_at"`
}

// TableName sets the table name for the Achievement model.
func (Achievement) TableName() string { return "achievements" }

// UserAchievement tracks one user's progress against one achievement.
// Non-repeatable achievements freeze once UnlockedAt is set; repeatable ones
// re-unlock after each claim cycle.
type UserAchievement struct {
	ID            string     `gorm:"column:id;primaryKey"`
	AppID         string     `gorm:"column:app_id"`
	UserID        string     `gorm:"column:user_id;index:user_achievements_user_idx"`
	AchievementID string     `gorm:"column:achievement_id;index:user_achievements_user_idx"`
	Progress      float64    `gorm:"column:progress"`
	UnlockedAt    *time.Time `gorm:"column:unlocked_at"`
	ClaimCount    int64      `gorm:"column:claim_count"`
	LastClaimedAt *time.Time `gorm:"column:last_claimed_at"`
	CreatedAt     time.Time  `gorm:"column:created_at"`
	UpdatedAt     time.Time  `gorm:"column:updated_at"`
}

// TableName sets the table name for the UserAchievement model.
func (UserAchievement) TableName() string { return "user_achievements" }

// Unlocked is one unlocked achievement in a profile read.
type Unlocked struct {
	Code       string     `json:"code"`
	Name       string     `json:"name"`
	Tier       string     `json:"tier,omitempty"`
	UnlockedAt *time.Time `json:"unlockedAt"`
}
