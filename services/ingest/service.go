package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"forge-engine/pkg/config"
	"forge-engine/pkg/errutil"
	"forge-engine/services/event"

	"github.com/bwmarrin/snowflake"
	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Enqueuer is the queue-producer surface the gateway needs. *asynq.Client
// satisfies it.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Service admits events: it derives the idempotency key when the caller
// omitted one, writes the RECEIVED idempotency record, and enqueues the
// envelope under a deterministic job identity so duplicate admissions
// collapse to one queued unit of work.
type Service struct {
	repo  event.Repository
	queue Enqueuer
	node  *snowflake.Node
	cfg   *config.Config
}

type ServiceParams struct {
	fx.In

	Repo   event.Repository
	Queue  Enqueuer
	Node   *snowflake.Node
	Config *config.Config
}

func NewService(p ServiceParams) *Service {
	return &Service{
		repo:  p.Repo,
		queue: p.Queue,
		node:  p.Node,
		cfg:   p.Config,
	}
}

// AdmitRequest is the validated ingestion payload.
type AdmitRequest struct {
	AppID          string         `json:"appId" binding:"required"`
	UserID         string         `json:"userId" binding:"required"`
	EventType      string         `json:"eventType" binding:"required"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	OccurredAt     string         `json:"occurredAt,omitempty"`
	IdempotencyKey string         `json:"idempotencyKey,omitempty"`
	// RawBody, when set by the transport layer, is hashed as the payload
	// fingerprint; otherwise the canonical JSON of the request is used.
	RawBody []byte `json:"-"`
}

// AdmitResult reports acceptance. Asynchronous processing failures are not
// visible to the caller; they surface through status and metrics.
type AdmitResult struct {
	IdempotencyKey string `json:"idempotencyKey"`
	Status         string `json:"status"`
}

// Admit validates and admits one event.
func (s *Service) Admit(ctx context.Context, req AdmitRequest) (*AdmitResult, error) {
	if req.AppID == "" || req.UserID == "" || req.EventType == "" {
		return nil, errutil.ValidationFailed("appId, userId and eventType are required")
	}
	if req.OccurredAt != "" {
		if _, err := time.Parse(time.RFC3339, req.OccurredAt); err != nil {
			return nil, errutil.ValidationFailed("occurredAt must be RFC3339", errutil.WithErr(err))
		}
	}

	key := req.IdempotencyKey
	if key == "" {
		key = deriveIdempotencyKey(req)
	}

	if err := s.repo.CreateProcessedIfAbsent(ctx, &event.ProcessedEvent{
		ID:             s.node.Generate().String(),
		AppID:          req.AppID,
		IdempotencyKey: key,
		Status:         event.StatusReceived,
		CreatedAt:      time.Now().UTC(),
		UpdatedAt:      time.Now().UTC(),
	}); err != nil {
		return nil, err
	}

	envelope := event.Envelope{
		AppID:          req.AppID,
		UserID:         req.UserID,
		EventType:      req.EventType,
		Metadata:       req.Metadata,
		OccurredAt:     req.OccurredAt,
		IdempotencyKey: key,
		PayloadHash:    payloadHash(req),
	}
	payload, err := json.Marshal(envelope)
	if err != nil {
		return nil, err
	}

	task := asynq.NewTask(event.TypeProcessEvent, payload)
	_, err = s.queue.EnqueueContext(ctx, task,
		asynq.TaskID(fmt.Sprintf("%s-%s", req.AppID, key)),
		asynq.MaxRetry(s.cfg.MaxRetry()),
		asynq.Queue("default"),
	)
	if err != nil {
		if !errors.Is(err, asynq.ErrTaskIDConflict) {
			return nil, err
		}
		zap.L().Info("duplicate admission collapsed",
			zap.String("app_id", req.AppID), zap.String("idempotency_key", key))
	}

	return &AdmitResult{IdempotencyKey: key, Status: "accepted"}, nil
}

// deriveIdempotencyKey hashes (appId, userId, eventType, metadata) so that
// caller-omitted keys still collapse logical duplicates.
func deriveIdempotencyKey(req AdmitRequest) string {
	metadata := req.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	rawMeta, _ := json.Marshal(metadata)

	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%s:%s:%s", req.AppID, req.UserID, req.EventType, rawMeta)))
	return hex.EncodeToString(sum[:])
}

func payloadHash(req AdmitRequest) string {
	body := req.RawBody
	if len(body) == 0 {
		body, _ = json.Marshal(req)
	}
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}
