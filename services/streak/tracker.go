package streak

import (
	"context"
	"time"

	"forge-engine/pkg/rediskey"

	"github.com/bwmarrin/snowflake"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Marker is the fast existence check kept alongside the durable row. It is
// not the source of truth; losing it only loses the shortcut.
type Marker interface {
	SetEx(ctx context.Context, key string, value string, ttl time.Duration) error
}

type redisMarker struct {
	rdb *redis.Client
}

// NewRedisMarker wraps a redis client as a streak Marker.
func NewRedisMarker(rdb *redis.Client) Marker {
	return &redisMarker{rdb: rdb}
}

func (m *redisMarker) SetEx(ctx context.Context, key, value string, ttl time.Duration) error {
	return m.rdb.SetEx(ctx, key, value, ttl).Err()
}

// Tracker owns the streak state machine.
type Tracker struct {
	db     *gorm.DB
	node   *snowflake.Node
	marker Marker

	now func() time.Time
}

// NewTracker returns a Tracker backed by the given database and marker cache.
func NewTracker(db *gorm.DB, node *snowflake.Node, marker Marker) *Tracker {
	return &Tracker{
		db:     db,
		node:   node,
		marker: marker,
		now:    time.Now,
	}
}

// Update registers one qualifying check for (app, user, mode) and returns the
// resulting current count.
//
// State machine:
//   - no prior qualification            -> count = 1
//   - elapsed <= period + grace         -> increment only once past the
//     half-period; a duplicate within the same half-period leaves the count
//     unchanged
//   - elapsed beyond grace, freeze > 0  -> consume one freeze, keep the count
//     with a floor of 1
//   - otherwise                         -> reset to 1
func (t *Tracker) Update(ctx context.Context, appID, userID, mode string, graceSeconds int64) (int64, error) {
	row := Streak{
		ID:           t.node.Generate().String(),
		AppID:        appID,
		UserID:       userID,
		Mode:         mode,
		GraceSeconds: graceSeconds,
	}
	if err := t.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row).Error; err != nil {
		return 0, err
	}

	var current Streak
	if err := t.db.WithContext(ctx).
		Where("app_id = ? AND user_id = ? AND mode = ?", appID, userID, mode).
		First(&current).Error; err != nil {
		return 0, err
	}

	now := t.now().UTC()
	period := periodSeconds(mode)
	count := current.CurrentCount
	freeze := current.FreezeCount

	switch {
	case current.LastQualifiedAt == nil:
		count = 1
	default:
		elapsed := int64(now.Sub(*current.LastQualifiedAt) / time.Second)
		switch {
		case elapsed <= period+current.GraceSeconds:
			if elapsed >= period/2 {
				count++
			}
		case freeze > 0:
			freeze--
			if count < 1 {
				count = 1
			}
		default:
			count = 1
		}
	}

	best := current.BestCount
	if count > best {
		best = count
	}

	if err := t.db.WithContext(ctx).Model(&Streak{}).
		Where("id = ?", current.ID).
		Updates(map[string]any{
			"current_count":     count,
			"best_count":        best,
			"freeze_count":      freeze,
			"last_qualified_at": now,
			"grace_seconds":     graceSeconds,
			"updated_at":        now,
		}).Error; err != nil {
		return 0, err
	}

	ttl := time.Duration(period+graceSeconds) * time.Second
	key := rediskey.BuildStreakTTLKey(appID, userID, mode)
	if err := t.marker.SetEx(ctx, key, now.Format(time.RFC3339), ttl); err != nil {
		// Marker loss is recoverable; the row already carries the truth.
		zap.L().Warn("failed to refresh streak marker", zap.String("key", key), zap.Error(err))
	}

	return count, nil
}

// List returns all streak rows for a user.
func (t *Tracker) List(ctx context.Context, appID, userID string) ([]Streak, error) {
	var rows []Streak
	err := t.db.WithContext(ctx).
		Where("app_id = ? AND user_id = ?", appID, userID).
		Find(&rows).Error
	return rows, err
}
