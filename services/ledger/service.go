package ledger

import (
	"context"
	"encoding/json"
	"time"

	"forge-engine/pkg/errutil"

	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Service posts experience and currency transactions. Rows are append-only;
// every balance read recomputes the signed sum.
type Service struct {
	db   *gorm.DB
	node *snowflake.Node
}

// NewService returns a ledger Service.
func NewService(db *gorm.DB, node *snowflake.Node) *Service {
	return &Service{db: db, node: node}
}

// PostParams describes one posting. Metadata is marshalled to the row's JSON
// column; nil means no metadata.
type PostParams struct {
	AppID   string
	UserID  string
	EventID string
	// Track for XP postings, Currency for currency postings.
	Track    string
	Currency string
	Amount   int64
	Source   string
	Reason   string
	Metadata map[string]any
}

// PostXP appends one experience transaction.
func (s *Service) PostXP(ctx context.Context, p PostParams) (*XPTransaction, error) {
	tx := &XPTransaction{
		ID:        s.node.Generate().String(),
		AppID:     p.AppID,
		UserID:    p.UserID,
		EventID:   p.EventID,
		Track:     p.Track,
		Amount:    p.Amount,
		Source:    p.Source,
		Reason:    p.Reason,
		Metadata:  marshalMetadata(p.Metadata),
		CreatedAt: time.Now().UTC(),
	}

	if err := s.db.WithContext(ctx).Create(tx).Error; err != nil {
		zap.L().Error("failed to post xp transaction",
			zap.String("app_id", p.AppID), zap.String("track", p.Track), zap.Error(err))
		return nil, err
	}

	return tx, nil
}

// PostCurrency appends one currency transaction. The balance check and the
// insert run inside one database transaction so a spend that would drive the
// running sum negative is rejected before any row exists.
func (s *Service) PostCurrency(ctx context.Context, p PostParams) (*CurrencyTransaction, error) {
	span := trace.SpanFromContext(ctx)
	zapLog := zap.L().With(
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.String("app_id", p.AppID),
		zap.String("currency", p.Currency),
	)

	row := &CurrencyTransaction{
		ID:        s.node.Generate().String(),
		AppID:     p.AppID,
		UserID:    p.UserID,
		EventID:   p.EventID,
		Currency:  p.Currency,
		Amount:    p.Amount,
		Source:    p.Source,
		Reason:    p.Reason,
		Metadata:  marshalMetadata(p.Metadata),
		CreatedAt: time.Now().UTC(),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		balance, err := sumCurrency(tx, p.AppID, p.UserID, p.Currency)
		if err != nil {
			return err
		}

		if balance+p.Amount < 0 {
			zapLog.Warn("currency spend rejected",
				zap.Int64("balance", balance), zap.Int64("amount", p.Amount))
			return errutil.UnprocessableEntity("insufficient balance")
		}

		row.BalanceAfter = balance + p.Amount
		return tx.Create(row).Error
	})
	if err != nil {
		if !errutil.IsTerminal(err) {
			zapLog.Error("failed to post currency transaction", zap.Error(err))
		}
		return nil, err
	}

	return row, nil
}

// Balance returns the derived balance for (app, user, currency).
func (s *Service) Balance(ctx context.Context, appID, userID, currency string) (int64, error) {
	return sumCurrency(s.db.WithContext(ctx), appID, userID, currency)
}

// TrackTotals returns the aggregate XP per track for a user.
func (s *Service) TrackTotals(ctx context.Context, appID, userID string) ([]TrackTotal, error) {
	var totals []TrackTotal
	err := s.db.WithContext(ctx).Model(&XPTransaction{}).
		Select("track, COALESCE(SUM(amount), 0) AS total").
		Where("app_id = ? AND user_id = ?", appID, userID).
		Group("track").
		Scan(&totals).Error
	return totals, err
}

// CurrencyBalances returns the derived balance per currency for a user.
func (s *Service) CurrencyBalances(ctx context.Context, appID, userID string) ([]CurrencyBalance, error) {
	var balances []CurrencyBalance
	err := s.db.WithContext(ctx).Model(&CurrencyTransaction{}).
		Select("currency, COALESCE(SUM(amount), 0) AS balance").
		Where("app_id = ? AND user_id = ?", appID, userID).
		Group("currency").
		Scan(&balances).Error
	return balances, err
}

func sumCurrency(tx *gorm.DB, appID, userID, currency string) (int64, error) {
	var balance int64
	err := tx.Model(&CurrencyTransaction{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("app_id = ? AND user_id = ? AND currency = ?", appID, userID, currency).
		Scan(&balance).Error
	return balance, err
}

func marshalMetadata(metadata map[string]any) datatypes.JSON {
	if metadata == nil {
		return nil
	}
	raw, err := json.Marshal(metadata)
	if err != nil {
		return nil
	}
	return datatypes.JSON(raw)
}
