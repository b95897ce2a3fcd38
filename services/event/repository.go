package event

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository describes the durable state owned by the pipeline: idempotency
// records, event rows and evaluation logs.
type Repository interface {
	// FindProcessed returns the idempotency record, or nil when admission
	// never completed a row (treated as already-handled by the pipeline).
	FindProcessed(ctx context.Context, appID, idempotencyKey string) (*ProcessedEvent, error)
	// CreateProcessedIfAbsent inserts a RECEIVED record, ignoring the
	// conflict when one already exists for (app, key).
	CreateProcessedIfAbsent(ctx context.Context, record *ProcessedEvent) error
	// MarkProcessing attempts the RECEIVED/FAILED -> PROCESSING transition
	// and increments attempts. It reports false when another invocation owns
	// the record.
	MarkProcessing(ctx context.Context, recordID string) (bool, error)
	MarkProcessed(ctx context.Context, recordID, eventID string) error
	MarkFailed(ctx context.Context, recordID, lastError string) error

	// FindEventByKey supports the resume-after-partial-failure path: an
	// event row may already exist for a key whose record never reached a
	// terminal status.
	FindEventByKey(ctx context.Context, appID, idempotencyKey string) (*Event, error)
	CreateEvent(ctx context.Context, row *Event) error

	CreateEvaluationLog(ctx context.Context, row *EvaluationLog) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository returns a gorm backed Repository implementation.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) FindProcessed(ctx context.Context, appID, idempotencyKey string) (*ProcessedEvent, error) {
	var row ProcessedEvent
	err := r.db.WithContext(ctx).
		Where("app_id = ? AND idempotency_key = ?", appID, idempotencyKey).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *gormRepository) CreateProcessedIfAbsent(ctx context.Context, record *ProcessedEvent) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(record).Error
}

func (r *gormRepository) MarkProcessing(ctx context.Context, recordID string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&ProcessedEvent{}).
		Where("id = ? AND status IN ?", recordID, []string{StatusReceived, StatusFailed}).
		Updates(map[string]any{
			"status":     StatusProcessing,
			"attempts":   gorm.Expr("attempts + 1"),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *gormRepository) MarkProcessed(ctx context.Context, recordID, eventID string) error {
	return r.db.WithContext(ctx).Model(&ProcessedEvent{}).
		Where("id = ?", recordID).
		Updates(map[string]any{
			"status":     StatusProcessed,
			"event_id":   eventID,
			"last_error": "",
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *gormRepository) MarkFailed(ctx context.Context, recordID, lastError string) error {
	return r.db.WithContext(ctx).Model(&ProcessedEvent{}).
		Where("id = ?", recordID).
		Updates(map[string]any{
			"status":     StatusFailed,
			"last_error": lastError,
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *gormRepository) FindEventByKey(ctx context.Context, appID, idempotencyKey string) (*Event, error) {
	var row Event
	err := r.db.WithContext(ctx).
		Where("app_id = ? AND idempotency_key = ?", appID, idempotencyKey).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *gormRepository) CreateEvent(ctx context.Context, row *Event) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *gormRepository) CreateEvaluationLog(ctx context.Context, row *EvaluationLog) error {
	return r.db.WithContext(ctx).Create(row).Error
}
