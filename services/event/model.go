package event

import (
	"time"

	"gorm.io/datatypes"
)

// Processed-event statuses. Transitions are RECEIVED -> PROCESSING ->
// {PROCESSED, FAILED}; FAILED may re-enter PROCESSING on retry; PROCESSED is
// terminal.
const (
	StatusReceived   = "RECEIVED"
	StatusProcessing = "PROCESSING"
	StatusProcessed  = "PROCESSED"
	StatusFailed     = "FAILED"
)

// Envelope is the transient queue message describing one admitted event. It
// is never mutated after creation.
type Envelope struct {
	AppID          string         `json:"appId"`
	UserID         string         `json:"userId"`
	EventType      string         `json:"eventType"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	OccurredAt     string         `json:"occurredAt,omitempty"`
	IdempotencyKey string         `json:"idempotencyKey"`
	PayloadHash    string         `json:"payloadHash"`
}

// ProcessedEvent is the idempotency record for one (app, idempotency key)
// pair. It is the single serialization point per key: whichever invocation
// wins the transition to PROCESSING proceeds, everything else no-ops.
type ProcessedEvent struct {
	ID             string    `gorm:"column:id;primaryKey"`
	AppID          string    `gorm:"column:app_id;uniqueIndex:processed_events_app_key_uidx"`
	IdempotencyKey string    `gorm:"column:idempotency_key;uniqueIndex:processed_events_app_key_uidx"`
	Status         string    `gorm:"column:status"`
	EventID        string    `gorm:"column:event_id"`
	Attempts       int64     `gorm:"column:attempts"`
	LastError      string    `gorm:"column:last_error"`
	CreatedAt      time.Time `gorm:"column:created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at"`
}

// TableName sets the table name for the ProcessedEvent model.
func (ProcessedEvent) TableName() string { return "processed_events" }

// Event is the immutable persisted fact derived 1:1 from an admitted
// envelope.
type Event struct {
	ID             string         `gorm:"column:id;primaryKey"`
	AppID          string         `gorm:"column:app_id;uniqueIndex:events_app_key_uidx"`
	UserID         string         `gorm:"column:user_id;index"`
	EventType      string         `gorm:"column:event_type"`
	Metadata       datatypes.JSON `gorm:"column:metadata"`
	OccurredAt     time.Time      `gorm:"column:occurred_at"`
	ReceivedAt     time.Time      `gorm:"column:received_at"`
	IdempotencyKey string         `gorm:"column:idempotency_key;uniqueIndex:events_app_key_uidx"`
	PayloadHash    string         `gorm:"column:payload_hash"`
}

// TableName sets the table name for the Event model.
func (Event) TableName() string { return "events" }

// EvaluationLog is the per-matched-rule audit row written after each
// pipeline pass.
type EvaluationLog struct {
	ID              string         `gorm:"column:id;primaryKey"`
	AppID           string         `gorm:"column:app_id;index"`
	EventID         string         `gorm:"column:event_id"`
	RuleID          string         `gorm:"column:rule_id"`
	Matched         bool           `gorm:"column:matched"`
	XPAwarded       int64          `gorm:"column:xp_awarded"`
	CurrencyAwarded datatypes.JSON `gorm:"column:currency_awarded"`
	Metadata        datatypes.JSON `gorm:"column:metadata"`
	CreatedAt       time.Time      `gorm:"column:created_at"`
}

// TableName sets the table name for the EvaluationLog model.
func (EvaluationLog) TableName() string { return "rule_evaluation_logs" }
