package achievement

import (
	"context"
	"testing"

	"forge-engine/services/testutil"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func newTestEvaluator(t *testing.T) (*Evaluator, *gorm.DB) {
	db := testutil.NewTestDB(t, &Achievement{}, &UserAchievement{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return NewEvaluator(db, node), db
}

func seedAchievement(t *testing.T, db *gorm.DB, a Achievement) {
	t.Helper()
	require.NoError(t, db.Create(&a).Error)
}

func TestCheckMilestoneProgressAndUnlock(t *testing.T) {
	evaluator, db := newTestEvaluator(t)
	ctx := context.Background()

	seedAchievement(t, db, Achievement{
		ID: "a1", AppID: "app", Code: "first-100", Name: "First 100", Kind: KindMilestone,
		Conditions: datatypes.JSONMap{"target": float64(100)},
	})

	unlocked, err := evaluator.Check(ctx, "app", "u1", Context{"total": float64(40)})
	require.NoError(t, err)
	require.Empty(t, unlocked)

	var row UserAchievement
	require.NoError(t, db.Where("user_id = ? AND achievement_id = ?", "u1", "a1").First(&row).Error)
	require.InDelta(t, 0.4, row.Progress, 1e-9)
	require.Nil(t, row.UnlockedAt)

	unlocked, err = evaluator.Check(ctx, "app", "u1", Context{"total": float64(120)})
	require.NoError(t, err)
	require.Equal(t, []string{"first-100"}, unlocked)

	require.NoError(t, db.Where("user_id = ? AND achievement_id = ?", "u1", "a1").First(&row).Error)
	require.Equal(t, float64(1), row.Progress)
	require.NotNil(t, row.UnlockedAt)
	require.Equal(t, int64(1), row.ClaimCount)
}

func TestCheckNonRepeatableFreezesAfterUnlock(t *testing.T) {
	evaluator, db := newTestEvaluator(t)
	ctx := context.Background()

	seedAchievement(t, db, Achievement{
		ID: "a1", AppID: "app", Code: "win", Name: "Winner", Kind: KindConditional,
		Conditions: datatypes.JSONMap{"field": "eventType", "equals": "match.won"},
	})

	unlocked, err := evaluator.Check(ctx, "app", "u1", Context{"eventType": "match.won"})
	require.NoError(t, err)
	require.Equal(t, []string{"win"}, unlocked)

	// A second qualifying pass must not re-unlock or bump the claim count.
	unlocked, err = evaluator.Check(ctx, "app", "u1", Context{"eventType": "match.won"})
	require.NoError(t, err)
	require.Empty(t, unlocked)

	var row UserAchievement
	require.NoError(t, db.Where("user_id = ?", "u1").First(&row).Error)
	require.Equal(t, int64(1), row.ClaimCount)
}

func TestCheckRepeatableUnlocksAgain(t *testing.T) {
	evaluator, db := newTestEvaluator(t)
	ctx := context.Background()

	seedAchievement(t, db, Achievement{
		ID: "a1", AppID: "app", Code: "daily", Name: "Daily", Kind: KindConditional, Repeatable: true,
		Conditions: datatypes.JSONMap{"field": "eventType", "equals": "login"},
	})

	unlocked, err := evaluator.Check(ctx, "app", "u1", Context{"eventType": "login"})
	require.NoError(t, err)
	require.Equal(t, []string{"daily"}, unlocked)

	unlocked, err = evaluator.Check(ctx, "app", "u1", Context{"eventType": "login"})
	require.NoError(t, err)
	require.Equal(t, []string{"daily"}, unlocked)

	var row UserAchievement
	require.NoError(t, db.Where("user_id = ?", "u1").First(&row).Error)
	require.Equal(t, int64(2), row.ClaimCount)
}

func TestCheckConditionalMismatchKeepsZeroProgress(t *testing.T) {
	evaluator, db := newTestEvaluator(t)
	ctx := context.Background()

	seedAchievement(t, db, Achievement{
		ID: "a1", AppID: "app", Code: "win", Name: "Winner", Kind: KindConditional,
		Conditions: datatypes.JSONMap{"field": "eventType", "equals": "match.won"},
	})

	unlocked, err := evaluator.Check(ctx, "app", "u1", Context{"eventType": "match.lost"})
	require.NoError(t, err)
	require.Empty(t, unlocked)

	var row UserAchievement
	require.NoError(t, db.Where("user_id = ?", "u1").First(&row).Error)
	require.Equal(t, float64(0), row.Progress)
	require.Nil(t, row.UnlockedAt)
}

func TestListUnlockedFiltersHidden(t *testing.T) {
	evaluator, db := newTestEvaluator(t)
	ctx := context.Background()

	seedAchievement(t, db, Achievement{
		ID: "a1", AppID: "app", Code: "visible", Name: "Visible", Kind: KindConditional,
		Conditions: datatypes.JSONMap{"field": "eventType", "equals": "login"},
	})
	seedAchievement(t, db, Achievement{
		ID: "a2", AppID: "app", Code: "secret", Name: "Secret", Kind: KindConditional, Hidden: true,
		Conditions: datatypes.JSONMap{"field": "eventType", "equals": "login"},
	})

	_, err := evaluator.Check(ctx, "app", "u1", Context{"eventType": "login"})
	require.NoError(t, err)

	unlocked, err := evaluator.ListUnlocked(ctx, "app", "u1")
	require.NoError(t, err)
	require.Len(t, unlocked, 1)
	require.Equal(t, "visible", unlocked[0].Code)
}
