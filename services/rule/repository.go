package rule

import (
	"context"

	"gorm.io/gorm"
)

// Repository describes database operations available for reward rules. The
// pipeline only reads; Create exists for seeding and tests.
type Repository interface {
	Create(ctx context.Context, rule *RewardRule) error
	GetByID(ctx context.Context, appID, ruleID string) (*RewardRule, error)
	ListActiveByEvent(ctx context.Context, appID, eventType string) ([]RewardRule, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository returns a gorm backed Repository implementation.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Create(ctx context.Context, rule *RewardRule) error {
	if r == nil || r.db == nil {
		return gorm.ErrInvalidDB
	}
	return r.db.WithContext(ctx).Create(rule).Error
}

func (r *gormRepository) GetByID(ctx context.Context, appID, ruleID string) (*RewardRule, error) {
	if r == nil || r.db == nil {
		return nil, gorm.ErrInvalidDB
	}

	var rule RewardRule
	err := r.db.WithContext(ctx).
		Where("app_id = ? AND id = ?", appID, ruleID).
		First(&rule).Error
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

// ListActiveByEvent returns active rules for (app, event type) in ascending
// priority order. All matching rules apply; there is no short-circuit.
func (r *gormRepository) ListActiveByEvent(ctx context.Context, appID, eventType string) ([]RewardRule, error) {
	if r == nil || r.db == nil {
		return nil, gorm.ErrInvalidDB
	}

	query := r.db.WithContext(ctx).Model(&RewardRule{}).
		Where("app_id = ? AND event_type = ? AND is_active = ?", appID, eventType, true).
		Order("priority ASC").Order("id ASC")

	var rules []RewardRule
	if err := query.Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}
