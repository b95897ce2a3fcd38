package ledger

import (
	"context"
	"testing"

	"forge-engine/services/testutil"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func newTestService(t *testing.T) *Service {
	db := testutil.NewTestDB(t, &XPTransaction{}, &CurrencyTransaction{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return NewService(db, node)
}

func TestPostXPAndTrackTotals(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.PostXP(ctx, PostParams{AppID: "app", UserID: "u1", Track: "main", Amount: 10, Source: SourceRule})
	require.NoError(t, err)
	_, err = svc.PostXP(ctx, PostParams{AppID: "app", UserID: "u1", Track: "main", Amount: 5, Source: SourceRule})
	require.NoError(t, err)
	_, err = svc.PostXP(ctx, PostParams{AppID: "app", UserID: "u1", Track: "combat", Amount: 7, Source: SourceManual})
	require.NoError(t, err)

	// Other users must not leak into the aggregate.
	_, err = svc.PostXP(ctx, PostParams{AppID: "app", UserID: "u2", Track: "main", Amount: 100, Source: SourceRule})
	require.NoError(t, err)

	totals, err := svc.TrackTotals(ctx, "app", "u1")
	require.NoError(t, err)

	byTrack := map[string]int64{}
	for _, total := range totals {
		byTrack[total.Track] = total.Total
	}
	require.Equal(t, int64(15), byTrack["main"])
	require.Equal(t, int64(7), byTrack["combat"])
}

func TestPostCurrencyDerivesBalance(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	first, err := svc.PostCurrency(ctx, PostParams{AppID: "app", UserID: "u1", Currency: "gems", Amount: 50, Source: SourceRule})
	require.NoError(t, err)
	require.Equal(t, int64(50), first.BalanceAfter)

	second, err := svc.PostCurrency(ctx, PostParams{AppID: "app", UserID: "u1", Currency: "gems", Amount: -20, Source: SourceManual})
	require.NoError(t, err)
	require.Equal(t, int64(30), second.BalanceAfter)

	balance, err := svc.Balance(ctx, "app", "u1", "gems")
	require.NoError(t, err)
	require.Equal(t, int64(30), balance)
}

func TestPostCurrencyRejectsOverdraft(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.PostCurrency(ctx, PostParams{AppID: "app", UserID: "u1", Currency: "gems", Amount: 10, Source: SourceRule})
	require.NoError(t, err)

	_, err = svc.PostCurrency(ctx, PostParams{AppID: "app", UserID: "u1", Currency: "gems", Amount: -11, Source: SourceManual})
	require.Error(t, err)

	// The rejected spend must leave no row behind.
	balance, err := svc.Balance(ctx, "app", "u1", "gems")
	require.NoError(t, err)
	require.Equal(t, int64(10), balance)

	var count int64
	require.NoError(t, svc.db.Model(&CurrencyTransaction{}).Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestCurrencyBalancesPerCurrency(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.PostCurrency(ctx, PostParams{AppID: "app", UserID: "u1", Currency: "gems", Amount: 5, Source: SourceRule})
	require.NoError(t, err)
	_, err = svc.PostCurrency(ctx, PostParams{AppID: "app", UserID: "u1", Currency: "coins", Amount: 100, Source: SourceRule})
	require.NoError(t, err)

	balances, err := svc.CurrencyBalances(ctx, "app", "u1")
	require.NoError(t, err)

	byCurrency := map[string]int64{}
	for _, balance := range balances {
		byCurrency[balance.Currency] = balance.Balance
	}
	require.Equal(t, int64(5), byCurrency["gems"])
	require.Equal(t, int64(100), byCurrency["coins"])
}
