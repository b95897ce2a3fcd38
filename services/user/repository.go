package user

import (
	"context"
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository describes database operations available for users.
type Repository interface {
	Upsert(ctx context.Context, appID, externalID string, attributes map[string]any) (*User, error)
	FindByExternalID(ctx context.Context, appID, externalID string) (*User, error)
}

type gormRepository struct {
	db   *gorm.DB
	node *snowflake.Node
}

// NewRepository returns a gorm backed Repository implementation.
func NewRepository(db *gorm.DB, node *snowflake.Node) Repository {
	return &gormRepository{db: db, node: node}
}

// Upsert registers a user, updating attributes on conflict with the
// (app, external id) unique pair.
func (r *gormRepository) Upsert(ctx context.Context, appID, externalID string, attributes map[string]any) (*User, error) {
	var attrs datatypes.JSON
	if attributes != nil {
		raw, err := json.Marshal(attributes)
		if err != nil {
			return nil, err
		}
		attrs = datatypes.JSON(raw)
	}

	now := time.Now().UTC()
	row := User{
		ID:         r.node.Generate().String(),
		AppID:      appID,
		ExternalID: externalID,
		Attributes: attrs,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "app_id"}, {Name: "external_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"attributes", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return nil, err
	}

	return r.FindByExternalID(ctx, appID, externalID)
}

func (r *gormRepository) FindByExternalID(ctx context.Context, appID, externalID string) (*User, error) {
	var row User
	err := r.db.WithContext(ctx).
		Where("app_id = ? AND external_id = ?", appID, externalID).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}
