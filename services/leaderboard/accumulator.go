package leaderboard

import (
	"context"
	"time"

	"forge-engine/pkg/rediskey"

	"github.com/bwmarrin/snowflake"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// MemberScore is one member of a sorted score set.
type MemberScore struct {
	Member string
	Score  int64
}

// ScoreCache is the low-latency sorted-score store keyed by the composite
// leaderboard key. It holds the authoritative live score.
type ScoreCache interface {
	IncrBy(ctx context.Context, key, member string, delta int64) (int64, error)
	TopN(ctx context.Context, key string, limit int64) ([]MemberScore, error)
}

type redisScoreCache struct {
	rdb *redis.Client
}

// NewRedisScoreCache wraps a redis client as a ScoreCache over sorted sets.
func NewRedisScoreCache(rdb *redis.Client) ScoreCache {
	return &redisScoreCache{rdb: rdb}
}

func (c *redisScoreCache) IncrBy(ctx context.Context, key, member string, delta int64) (int64, error) {
	score, err := c.rdb.ZIncrBy(ctx, key, float64(delta), member).Result()
	if err != nil {
		return 0, err
	}
	return int64(score), nil
}

func (c *redisScoreCache) TopN(ctx context.Context, key string, limit int64) ([]MemberScore, error) {
	rows, err := c.rdb.ZRevRangeWithScores(ctx, key, 0, limit-1).Result()
	if err != nil {
		return nil, err
	}

	members := make([]MemberScore, 0, len(rows))
	for _, row := range rows {
		member, _ := row.Member.(string)
		members = append(members, MemberScore{Member: member, Score: int64(row.Score)})
	}
	return members, nil
}

// Accumulator applies score deltas to the cache and mirrors the result into
// the durable snapshot rows.
type Accumulator struct {
	cache ScoreCache
	db    *gorm.DB
	node  *snowflake.Node
}

// NewAccumulator returns a leaderboard Accumulator.
func NewAccumulator(cache ScoreCache, db *gorm.DB, node *snowflake.Node) *Accumulator {
	return &Accumulator{cache: cache, db: db, node: node}
}

// AddScore atomically increments the live score and write-throughs the
// returned value into the snapshot row. The snapshot is never computed
// independently of the cache read-back.
func (a *Accumulator) AddScore(ctx context.Context, appID, userID, metric string, delta int64, periodKey, scope, leagueID string) (int64, error) {
	key := rediskey.BuildLeaderboardKey(appID, scope, metric, periodKey, leagueID)

	score, err := a.cache.IncrBy(ctx, key, userID, delta)
	if err != nil {
		return 0, err
	}

	if err := a.upsertSnapshot(ctx, appID, userID, metric, periodKey, scope, leagueID, score); err != nil {
		return 0, err
	}

	return score, nil
}

func (a *Accumulator) upsertSnapshot(ctx context.Context, appID, userID, metric, periodKey, scope, leagueID string, score int64) error {
	now := time.Now().UTC()

	res := a.db.WithContext(ctx).Model(&Entry{}).
		Where("app_id = ? AND user_id = ? AND scope = ? AND metric = ? AND period_key = ? AND league_id = ?",
			appID, userID, scope, metric, periodKey, leagueID).
		Updates(map[string]any{"score": score, "updated_at": now})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	return a.db.WithContext(ctx).Create(&Entry{
		ID:        a.node.Generate().String(),
		AppID:     appID,
		UserID:    userID,
		Scope:     scope,
		Metric:    metric,
		PeriodKey: periodKey,
		LeagueID:  leagueID,
		Score:     score,
		CreatedAt: now,
		UpdatedAt: now,
	}).Error
}

// Top reads the top-N descending from the cache and assigns dense ranks 1..N
// by position.
func (a *Accumulator) Top(ctx context.Context, appID, metric, periodKey, scope string, limit int, leagueID string) ([]RankedEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	key := rediskey.BuildLeaderboardKey(appID, scope, metric, periodKey, leagueID)
	members, err := a.cache.TopN(ctx, key, int64(limit))
	if err != nil {
		return nil, err
	}

	ranked := make([]RankedEntry, 0, len(members))
	for i, member := range members {
		ranked = append(ranked, RankedEntry{
			UserID: member.Member,
			Score:  member.Score,
			Rank:   i + 1,
		})
	}
	return ranked, nil
}
