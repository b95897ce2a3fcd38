package app

import (
	"context"

	"gorm.io/gorm"
)

// Repository describes read access to app configuration. The engine never
// mutates apps; provisioning owns writes.
type Repository interface {
	Get(ctx context.Context, appID string) (*App, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository returns a gorm backed Repository implementation.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Get(ctx context.Context, appID string) (*App, error) {
	var row App
	err := r.db.WithContext(ctx).Where("id = ?", appID).First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}
