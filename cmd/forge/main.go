package main

import (
	"log"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"forge-engine/internal/httpapi"
	asynqfx "forge-engine/pkg/asynq"
	"forge-engine/pkg/config"
	"forge-engine/pkg/db"
	"forge-engine/pkg/health"
	"forge-engine/pkg/logger"
	"forge-engine/pkg/redis"
	"forge-engine/services/achievement"
	"forge-engine/services/app"
	"forge-engine/services/event"
	"forge-engine/services/ingest"
	"forge-engine/services/leaderboard"
	"forge-engine/services/ledger"
	"forge-engine/services/profile"
	"forge-engine/services/rule"
	"forge-engine/services/streak"
	"forge-engine/services/user"
)

func main() {
	opts := []fx.Option{
		config.Module,
		logger.Module,
		db.Module,
		redis.Module,
		asynqfx.Client,
		asynqfx.Server,
		health.Module,
		fx.Provide(provideSnowflakeNode),
		app.Module,
		user.Module,
		rule.Module,
		streak.Module,
		ledger.Module,
		leaderboard.Module,
		achievement.Module,
		event.Module,
		ingest.Module,
		profile.Module,
		httpapi.Module,
		fx.Invoke(migrate),
		fxLogger,
	}

	if err := fx.ValidateApp(opts...); err != nil {
		log.Fatalf("fx validation failed: %v", err)
	}

	fx.New(opts...).Run()
}

var fxLogger = fx.WithLogger(func(cfg *config.Config, logger *zap.Logger) fxevent.Logger {
	return fxevent.NopLogger
})

func provideSnowflakeNode() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}

func migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&app.App{},
		&user.User{},
		&rule.RewardRule{},
		&event.ProcessedEvent{},
		&event.Event{},
		&event.EvaluationLog{},
		&streak.Streak{},
		&ledger.XPTransaction{},
		&ledger.CurrencyTransaction{},
		&leaderboard.Entry{},
		&achievement.Achievement{},
		&achievement.UserAchievement{},
	)
}
