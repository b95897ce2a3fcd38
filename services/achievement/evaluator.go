package achievement

import (
	"context"
	"math"
	"reflect"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Context is the evaluation input assembled by the pipeline: eventType, the
// total XP granted by the triggering event, and the event metadata.
type Context map[string]any

// Evaluator computes progress and detects unlocks for every achievement
// defined for an app.
type Evaluator struct {
	db   *gorm.DB
	node *snowflake.Node
}

// NewEvaluator returns an achievement Evaluator.
func NewEvaluator(db *gorm.DB, node *snowflake.Node) *Evaluator {
	return &Evaluator{db: db, node: node}
}

// Check evaluates all achievements for (app, user) against the context and
// returns the codes unlocked by this pass.
func (e *Evaluator) Check(ctx context.Context, appID, userID string, evalCtx Context) ([]string, error) {
	var achievements []Achievement
	if err := e.db.WithContext(ctx).
		Where("app_id = ?", appID).
		Find(&achievements).Error; err != nil {
		return nil, err
	}

	unlocked := []string{}
	now := time.Now().UTC()

	for _, a := range achievements {
		progress := resolveProgress(a.Kind, a.Conditions, evalCtx)

		var existing UserAchievement
		err := e.db.WithContext(ctx).
			Where("user_id = ? AND achievement_id = ?", userID, a.ID).
			First(&existing).Error

		if err == gorm.ErrRecordNotFound {
			row := UserAchievement{
				ID:            e.node.Generate().String(),
				AppID:         appID,
				UserID:        userID,
				AchievementID: a.ID,
				Progress:      progress,
				CreatedAt:     now,
				UpdatedAt:     now,
			}
			if progress >= 1 {
				row.UnlockedAt = &now
				row.ClaimCount = 1
				row.LastClaimedAt = &now
			}
			if err := e.db.WithContext(ctx).Create(&row).Error; err != nil {
				return nil, err
			}
			if progress >= 1 {
				unlocked = append(unlocked, a.Code)
			}
			continue
		}
		if err != nil {
			return nil, err
		}

		if !a.Repeatable && existing.UnlockedAt != nil {
			continue
		}

		updates := map[string]any{
			"progress":   progress,
			"updated_at": now,
		}
		if progress >= 1 {
			updates["unlocked_at"] = now
			updates["claim_count"] = existing.ClaimCount + 1
			updates["last_claimed_at"] = now
		}
		if err := e.db.WithContext(ctx).Model(&UserAchievement{}).
			Where("id = ?", existing.ID).
			Updates(updates).Error; err != nil {
			return nil, err
		}

		if progress >= 1 {
			unlocked = append(unlocked, a.Code)
		}
	}

	return unlocked, nil
}

// ListUnlocked returns the non-hidden achievements a user has unlocked.
func (e *Evaluator) ListUnlocked(ctx context.Context, appID, userID string) ([]Unlocked, error) {
	var rows []struct {
		Code       string
		Name       string
		Tier       string
		Hidden     bool
		UnlockedAt *time.Time
	}

	err := e.db.WithContext(ctx).Model(&UserAchievement{}).
		Select("achievements.code, achievements.name, achievements.tier, achievements.hidden, user_achievements.unlocked_at").
		Joins("JOIN achievements ON achievements.id = user_achievements.achievement_id").
		Where("user_achievements.app_id = ? AND user_achievements.user_id = ? AND user_achievements.unlocked_at IS NOT NULL", appID, userID).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	unlocked := make([]Unlocked, 0, len(rows))
	for _, row := range rows {
		if row.Hidden {
			continue
		}
		unlocked = append(unlocked, Unlocked{
			Code:       row.Code,
			Name:       row.Name,
			Tier:       row.Tier,
			UnlockedAt: row.UnlockedAt,
		})
	}
	return unlocked, nil
}

// resolveProgress maps a condition document to progress in [0,1].
func resolveProgress(kind string, condition map[string]any, evalCtx Context) float64 {
	if kind == KindMilestone {
		target := asNumber(condition["target"], 1)
		if target < 1 {
			target = 1
		}
		current := asNumber(evalCtx["total"], 0)
		return math.Min(1, current/target)
	}

	field, _ := condition["field"].(string)
	if looseEqual(evalCtx[field], condition["equals"]) {
		return 1
	}
	return 0
}

func asNumber(value any, fallback float64) float64 {
	switch v := value.(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return fallback
	}
}

func looseEqual(left, right any) bool {
	ln, lok := left.(float64)
	rn, rok := right.(float64)
	if lok && rok {
		return ln == rn
	}
	return reflect.DeepEqual(left, right)
}
