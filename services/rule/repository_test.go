package rule

import (
	"context"
	"testing"

	"forge-engine/services/testutil"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func newTestRepository(t *testing.T) Repository {
	return NewRepository(testutil.NewTestDB(t, &RewardRule{}))
}

func TestListActiveByEventOrdersByPriority(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	seed := []RewardRule{
		{ID: "b", AppID: "app", EventType: "match.won", IsActive: true, Priority: 200},
		{ID: "a", AppID: "app", EventType: "match.won", IsActive: true, Priority: 100},
		{ID: "c", AppID: "app", EventType: "match.won", IsActive: false, Priority: 1},
		{ID: "d", AppID: "app", EventType: "match.lost", IsActive: true, Priority: 1},
		{ID: "e", AppID: "other", EventType: "match.won", IsActive: true, Priority: 1},
	}
	for i := range seed {
		require.NoError(t, repo.Create(ctx, &seed[i]))
	}

	rules, err := repo.ListActiveByEvent(ctx, "app", "match.won")
	require.NoError(t, err)
	require.Len(t, rules, 2)
	require.Equal(t, "a", rules[0].ID)
	require.Equal(t, "b", rules[1].ID)
}

func TestGetByID(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &RewardRule{
		ID: "r1", AppID: "app", EventType: "login", IsActive: true,
		XPAwards: datatypes.JSON(`{"main": 1}`),
	}))

	found, err := repo.GetByID(ctx, "app", "r1")
	require.NoError(t, err)
	require.Equal(t, "login", found.EventType)

	_, err = repo.GetByID(ctx, "other", "r1")
	require.Error(t, err)
}
