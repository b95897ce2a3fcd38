package profile

import (
	"context"
	"testing"
	"time"

	"forge-engine/pkg/errutil"
	"forge-engine/services/achievement"
	"forge-engine/services/app"
	"forge-engine/services/ledger"
	"forge-engine/services/streak"
	"forge-engine/services/testutil"
	"forge-engine/services/user"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type markerMock struct{}

func (markerMock) SetEx(ctx context.Context, key, value string, ttl time.Duration) error {
	return nil
}

func newTestService(t *testing.T) (*Service, *gorm.DB, *snowflake.Node) {
	db := testutil.NewTestDB(t,
		&app.App{},
		&user.User{},
		&streak.Streak{},
		&ledger.XPTransaction{},
		&ledger.CurrencyTransaction{},
		&achievement.Achievement{},
		&achievement.UserAchievement{},
	)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := NewService(ServiceParams{
		Users:        user.NewRepository(db, node),
		Apps:         app.NewRepository(db),
		Ledger:       ledger.NewService(db, node),
		Streaks:      streak.NewTracker(db, node, markerMock{}),
		Achievements: achievement.NewEvaluator(db, node),
	})
	return svc, db, node
}

func TestGetUnknownUser(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Get(context.Background(), "app", "nobody")
	require.Error(t, err)
	require.True(t, errutil.IsTerminal(err))
}

func TestGetAggregatesProfile(t *testing.T) {
	svc, db, node := newTestService(t)
	ctx := context.Background()

	users := user.NewRepository(db, node)
	appUser, err := users.Upsert(ctx, "app", "player-1", map[string]any{"name": "Alex"})
	require.NoError(t, err)

	posts := ledger.NewService(db, node)
	// 400 XP at the default growth factor 100: level floor(sqrt(4))+1 = 3.
	_, err = posts.PostXP(ctx, ledger.PostParams{AppID: "app", UserID: appUser.ID, Track: "main", Amount: 400, Source: ledger.SourceRule})
	require.NoError(t, err)
	_, err = posts.PostCurrency(ctx, ledger.PostParams{AppID: "app", UserID: appUser.ID, Currency: "gems", Amount: 25, Source: ledger.SourceRule})
	require.NoError(t, err)

	tracker := streak.NewTracker(db, node, markerMock{})
	_, err = tracker.Update(ctx, "app", appUser.ID, streak.ModeDaily, 3600)
	require.NoError(t, err)

	result, err := svc.Get(ctx, "app", "player-1")
	require.NoError(t, err)
	require.Equal(t, appUser.ID, result.User.ID)

	require.Len(t, result.Levels, 1)
	require.Equal(t, "main", result.Levels[0].Track)
	require.Equal(t, int64(400), result.Levels[0].TotalXP)
	require.Equal(t, int64(3), result.Levels[0].Level)
	require.Equal(t, int64(900), result.Levels[0].NextLevelXP)

	require.Len(t, result.Streaks, 1)
	require.Equal(t, int64(1), result.Streaks[0].CurrentCount)

	require.Len(t, result.Currencies, 1)
	require.Equal(t, int64(25), result.Currencies[0].Balance)
}

func TestGetUsesAppGrowthFactor(t *testing.T) {
	svc, db, node := newTestService(t)
	ctx := context.Background()

	require.NoError(t, db.Create(&app.App{
		ID: "app", Name: "Test", IsActive: true,
		Settings: datatypes.JSONMap{"xpCurve": map[string]any{"main": float64(400)}},
	}).Error)

	users := user.NewRepository(db, node)
	appUser, err := users.Upsert(ctx, "app", "player-1", nil)
	require.NoError(t, err)

	posts := ledger.NewService(db, node)
	_, err = posts.PostXP(ctx, ledger.PostParams{AppID: "app", UserID: appUser.ID, Track: "main", Amount: 400, Source: ledger.SourceRule})
	require.NoError(t, err)

	result, err := svc.Get(ctx, "app", "player-1")
	require.NoError(t, err)

	// Growth 400: floor(sqrt(400/400))+1 = 2, next threshold 4*400.
	require.Equal(t, int64(2), result.Levels[0].Level)
	require.Equal(t, int64(1600), result.Levels[0].NextLevelXP)
}
