package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"forge-engine/pkg/config"
	"forge-engine/pkg/errutil"
	"forge-engine/pkg/timeutil"
	"forge-engine/services/achievement"
	"forge-engine/services/leaderboard"
	"forge-engine/services/ledger"
	"forge-engine/services/rule"
	"forge-engine/services/streak"
	"forge-engine/services/user"

	"github.com/bwmarrin/snowflake"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Pipeline orchestrates the ingestion-to-reward steps for one admitted
// event. Each step is an independent datastore operation; partial application
// is an expected outcome recovered through the idempotency record and retry.
type Pipeline struct {
	repo         Repository
	rules        rule.Repository
	users        user.Repository
	engine       *rule.Engine
	streaks      *streak.Tracker
	ledger       *ledger.Service
	boards       *leaderboard.Accumulator
	achievements *achievement.Evaluator
	node         *snowflake.Node

	graceSeconds int64
	now          func() time.Time
}

type PipelineParams struct {
	fx.In

	Repo         Repository
	Rules        rule.Repository
	Users        user.Repository
	Engine       *rule.Engine
	Streaks      *streak.Tracker
	Ledger       *ledger.Service
	Boards       *leaderboard.Accumulator
	Achievements *achievement.Evaluator
	Node         *snowflake.Node
	Config       *config.Config
}

func NewPipeline(p PipelineParams) *Pipeline {
	return &Pipeline{
		repo:         p.Repo,
		rules:        p.Rules,
		users:        p.Users,
		engine:       p.Engine,
		streaks:      p.Streaks,
		ledger:       p.Ledger,
		boards:       p.Boards,
		achievements: p.Achievements,
		node:         p.Node,
		graceSeconds: int64(p.Config.DefaultGraceSeconds()),
		now:          time.Now,
	}
}

// Process applies one envelope, idempotent with respect to
// (appID, idempotencyKey). An absent idempotency record and a record already
// PROCESSED (or owned by a concurrent invocation) are both no-ops.
func (p *Pipeline) Process(ctx context.Context, env Envelope) error {
	timer := prometheus.NewTimer(processDuration.WithLabelValues(env.AppID, env.EventType))
	defer timer.ObserveDuration()

	span := trace.SpanFromContext(ctx)
	zapLog := zap.L().With(
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.String("app_id", env.AppID),
		zap.String("event_type", env.EventType),
		zap.String("idempotency_key", env.IdempotencyKey),
	)

	record, err := p.repo.FindProcessed(ctx, env.AppID, env.IdempotencyKey)
	if err != nil {
		return err
	}
	if record == nil || record.Status == StatusProcessed {
		return nil
	}

	claimed, err := p.repo.MarkProcessing(ctx, record.ID)
	if err != nil {
		return err
	}
	if !claimed {
		zapLog.Info("idempotency record owned by concurrent invocation, skipping")
		return nil
	}

	if err := p.run(ctx, env, record); err != nil {
		zapLog.Error("event processing failed", zap.Error(err))
		if markErr := p.repo.MarkFailed(ctx, record.ID, err.Error()); markErr != nil {
			zapLog.Error("failed to mark record FAILED", zap.Error(markErr))
		}
		processedCounter.WithLabelValues(env.AppID, "failed").Inc()
		return err
	}

	processedCounter.WithLabelValues(env.AppID, "processed").Inc()
	return nil
}

func (p *Pipeline) run(ctx context.Context, env Envelope, record *ProcessedEvent) error {
	appUser, err := p.users.FindByExternalID(ctx, env.AppID, env.UserID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			// Data error, not infrastructure: retrying cannot help.
			return errutil.NotFound("user not found for app", errutil.WithErr(err))
		}
		return err
	}

	eventRow, err := p.ensureEvent(ctx, env, appUser.ID)
	if err != nil {
		return err
	}

	rules, err := p.rules.ListActiveByEvent(ctx, env.AppID, env.EventType)
	if err != nil {
		return err
	}

	// Streak first: the fresh count feeds the streak-bonus multiplier.
	streakCount, err := p.streaks.Update(ctx, env.AppID, appUser.ID, streak.ModeDaily, p.graceSeconds)
	if err != nil {
		return err
	}

	now := p.now()
	grant := p.engine.Evaluate(rules, env.Metadata, streakCount, now)
	periodKey := timeutil.PeriodKey(now)
	auditMeta := map[string]any{"ruleIds": grant.MatchedRuleIDs}

	for track, amount := range grant.TrackAwards {
		if amount == 0 {
			continue
		}

		if _, err := p.ledger.PostXP(ctx, ledger.PostParams{
			AppID:    env.AppID,
			UserID:   appUser.ID,
			EventID:  eventRow.ID,
			Track:    track,
			Amount:   amount,
			Source:   ledger.SourceRule,
			Reason:   "rule-award:" + env.EventType,
			Metadata: auditMeta,
		}); err != nil {
			return err
		}

		if _, err := p.boards.AddScore(ctx, env.AppID, appUser.ID, track, amount, periodKey, leaderboard.ScopeApp, ""); err != nil {
			return err
		}
	}

	for currency, amount := range grant.CurrencyAwards {
		if amount == 0 {
			continue
		}

		if _, err := p.ledger.PostCurrency(ctx, ledger.PostParams{
			AppID:    env.AppID,
			UserID:   appUser.ID,
			EventID:  eventRow.ID,
			Currency: currency,
			Amount:   amount,
			Source:   ledger.SourceRule,
			Reason:   "rule-award:" + env.EventType,
			Metadata: auditMeta,
		}); err != nil {
			return err
		}
	}

	evalCtx := achievement.Context{
		"eventType": env.EventType,
		"total":     grant.TotalXP(),
	}
	for key, value := range env.Metadata {
		evalCtx[key] = value
	}

	unlocked, err := p.achievements.Check(ctx, env.AppID, appUser.ID, evalCtx)
	if err != nil {
		return err
	}

	if err := p.writeEvaluationLogs(ctx, env.AppID, eventRow.ID, grant, unlocked); err != nil {
		return err
	}

	return p.repo.MarkProcessed(ctx, record.ID, eventRow.ID)
}

// ensureEvent persists the immutable event row, resuming with an existing row
// when a prior attempt crashed between the insert and the terminal status
// update.
func (p *Pipeline) ensureEvent(ctx context.Context, env Envelope, userID string) (*Event, error) {
	existing, err := p.repo.FindEventByKey(ctx, env.AppID, env.IdempotencyKey)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	occurredAt := p.now().UTC()
	if env.OccurredAt != "" {
		if parsed, err := time.Parse(time.RFC3339, env.OccurredAt); err == nil {
			occurredAt = parsed.UTC()
		}
	}

	metadata := env.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	rawMeta, err := json.Marshal(metadata)
	if err != nil {
		return nil, err
	}

	row := &Event{
		ID:             p.node.Generate().String(),
		AppID:          env.AppID,
		UserID:         userID,
		EventType:      env.EventType,
		Metadata:       datatypes.JSON(rawMeta),
		OccurredAt:     occurredAt,
		ReceivedAt:     p.now().UTC(),
		IdempotencyKey: env.IdempotencyKey,
		PayloadHash:    env.PayloadHash,
	}
	if err := p.repo.CreateEvent(ctx, row); err != nil {
		return nil, fmt.Errorf("failed to persist event: %w", err)
	}
	return row, nil
}

func (p *Pipeline) writeEvaluationLogs(ctx context.Context, appID, eventID string, grant rule.Grant, unlocked []string) error {
	currencyAwarded, err := json.Marshal(grant.CurrencyAwards)
	if err != nil {
		return err
	}
	logMeta, err := json.Marshal(map[string]any{"unlockedAchievements": unlocked})
	if err != nil {
		return err
	}

	for _, ruleID := range grant.MatchedRuleIDs {
		ruleEvalCounter.WithLabelValues(appID, "true").Inc()

		if err := p.repo.CreateEvaluationLog(ctx, &EvaluationLog{
			ID:              p.node.Generate().String(),
			AppID:           appID,
			EventID:         eventID,
			RuleID:          ruleID,
			Matched:         true,
			XPAwarded:       grant.TotalXP(),
			CurrencyAwarded: datatypes.JSON(currencyAwarded),
			Metadata:        datatypes.JSON(logMeta),
			CreatedAt:       p.now().UTC(),
		}); err != nil {
			return err
		}
	}
	return nil
}
