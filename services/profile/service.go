package profile

import (
	"context"
	"math"

	"forge-engine/pkg/errutil"
	"forge-engine/services/achievement"
	"forge-engine/services/app"
	"forge-engine/services/ledger"
	"forge-engine/services/streak"
	"forge-engine/services/user"

	"go.uber.org/fx"
	"gorm.io/gorm"
)

const defaultGrowthFactor = 100

// LevelProgress is the derived level state for one XP track.
type LevelProgress struct {
	Track       string `json:"track"`
	TotalXP     int64  `json:"totalXp"`
	Level       int64  `json:"level"`
	NextLevelXP int64  `json:"nextLevelXp"`
}

// Profile is the aggregated player state, assembled on demand.
type Profile struct {
	User         *user.User               `json:"user"`
	Levels       []LevelProgress          `json:"levels"`
	Streaks      []streak.Streak          `json:"streaks"`
	Currencies   []ledger.CurrencyBalance `json:"currencies"`
	Achievements []achievement.Unlocked   `json:"achievements"`
}

// Service assembles profiles from the ledger, streak and achievement
// subsystems. It performs no writes.
type Service struct {
	users        user.Repository
	apps         app.Repository
	ledger       *ledger.Service
	streaks      *streak.Tracker
	achievements *achievement.Evaluator
}

type ServiceParams struct {
	fx.In

	Users        user.Repository
	Apps         app.Repository
	Ledger       *ledger.Service
	Streaks      *streak.Tracker
	Achievements *achievement.Evaluator
}

func NewService(p ServiceParams) *Service {
	return &Service{
		users:        p.Users,
		apps:         p.Apps,
		ledger:       p.Ledger,
		streaks:      p.Streaks,
		achievements: p.Achievements,
	}
}

// Get aggregates the profile for a tenant's external user id.
func (s *Service) Get(ctx context.Context, appID, externalID string) (*Profile, error) {
	appUser, err := s.users.FindByExternalID(ctx, appID, externalID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errutil.NotFound("user not found")
		}
		return nil, err
	}

	levels, err := s.levels(ctx, appID, appUser.ID)
	if err != nil {
		return nil, err
	}

	streaks, err := s.streaks.List(ctx, appID, appUser.ID)
	if err != nil {
		return nil, err
	}

	currencies, err := s.ledger.CurrencyBalances(ctx, appID, appUser.ID)
	if err != nil {
		return nil, err
	}

	unlocked, err := s.achievements.ListUnlocked(ctx, appID, appUser.ID)
	if err != nil {
		return nil, err
	}

	return &Profile{
		User:         appUser,
		Levels:       levels,
		Streaks:      streaks,
		Currencies:   currencies,
		Achievements: unlocked,
	}, nil
}

// levels derives per-track levels from total XP through the app's
// growth-factor curve: level = floor(sqrt(total/growth)) + 1.
func (s *Service) levels(ctx context.Context, appID, userID string) ([]LevelProgress, error) {
	totals, err := s.ledger.TrackTotals(ctx, appID, userID)
	if err != nil {
		return nil, err
	}

	curve := map[string]float64{}
	if tenant, err := s.apps.Get(ctx, appID); err == nil {
		curve = tenant.XPCurve()
	}

	levels := make([]LevelProgress, 0, len(totals))
	for _, total := range totals {
		growth, ok := curve[total.Track]
		if !ok {
			growth = defaultGrowthFactor
		}

		level := int64(math.Floor(math.Sqrt(float64(total.Total)/growth))) + 1
		if level < 1 {
			level = 1
		}

		levels = append(levels, LevelProgress{
			Track:       total.Track,
			TotalXP:     total.Total,
			Level:       level,
			NextLevelXP: int64(float64(level*level) * growth),
		})
	}
	return levels, nil
}
