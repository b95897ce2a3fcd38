package app

import (
	"time"

	"gorm.io/datatypes"
)

// App is a tenant application. Settings carries per-app engine configuration,
// including the per-track XP growth factors under "xpCurve".
type App struct {
	ID              string            `gorm:"column:id;primaryKey"`
	Name            string            `gorm:"column:name"`
	IsActive        bool              `gorm:"column:is_active;index"`
	DefaultTimezone string            `gorm:"column:default_timezone"`
	Settings        datatypes.JSONMap `gorm:"column:settings"`
	CreatedAt       time.Time         `gorm:"column:created_at"`
	UpdatedAt       time.Time         `gorm:"column:updated_at"`
}

// TableName sets the table name for the App model.
func (App) TableName() string { return "apps" }

// XPCurve returns the per-track growth factors from the settings document.
// Tracks without an entry use the caller's default.
func (a *App) XPCurve() map[string]float64 {
	curve := map[string]float64{}
	raw, _ := a.Settings["xpCurve"].(map[string]any)
	for track, value := range raw {
		if factor, ok := value.(float64); ok && factor > 0 {
			curve[track] = factor
		}
	}
	return curve
}
