package rule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func evalAt(hour int) time.Time {
	return time.Date(2026, 3, 14, hour, 30, 0, 0, time.UTC)
}

func TestEvaluateEmptyConditionsMatches(t *testing.T) {
	engine := NewEngine()

	rules := []RewardRule{
		{ID: "r1", XPAwards: datatypes.JSON(`{"main": 10}`)},
		{ID: "r2", Conditions: datatypes.JSON(`{}`), XPAwards: datatypes.JSON(`{"main": 5}`)},
		{ID: "r3", Conditions: datatypes.JSON(`not json`), XPAwards: datatypes.JSON(`{"main": 2}`)},
	}

	grant := engine.Evaluate(rules, nil, 0, evalAt(12))
	require.Equal(t, int64(17), grant.TrackAwards["main"])
	require.Equal(t, []string{"r1", "r2", "r3"}, grant.MatchedRuleIDs)
}

func TestEvaluateConditionOperators(t *testing.T) {
	engine := NewEngine()
	metadata := map[string]any{
		"score": float64(87),
		"mode":  "ranked",
		"match": map[string]any{"region": "eu"},
	}

	rules := []RewardRule{
		{
			ID:         "gte-pass",
			Conditions: datatypes.JSON(`{"all":[{"field":"score","op":"gte","value":80}]}`),
			XPAwards:   datatypes.JSON(`{"main": 10}`),
		},
		{
			ID:         "nested-eq-pass",
			Conditions: datatypes.JSON(`{"all":[{"field":"match.region","op":"eq","value":"eu"}]}`),
			XPAwards:   datatypes.JSON(`{"main": 3}`),
		},
		{
			ID:         "in-pass",
			Conditions: datatypes.JSON(`{"all":[{"field":"mode","op":"in","value":["casual","ranked"]}]}`),
			XPAwards:   datatypes.JSON(`{"main": 1}`),
		},
		{
			ID:         "lt-fail",
			Conditions: datatypes.JSON(`{"all":[{"field":"score","op":"lt","value":50}]}`),
			XPAwards:   datatypes.JSON(`{"main": 100}`),
		},
		{
			ID:         "missing-path-fail",
			Conditions: datatypes.JSON(`{"all":[{"field":"match.season","op":"eq","value":"s1"}]}`),
			XPAwards:   datatypes.JSON(`{"main": 100}`),
		},
	}

	grant := engine.Evaluate(rules, metadata, 0, evalAt(12))
	require.Equal(t, int64(14), grant.TrackAwards["main"])
	require.Equal(t, []string{"gte-pass", "nested-eq-pass", "in-pass"}, grant.MatchedRuleIDs)
}

func TestEvaluateUnknownOperatorNeverMatches(t *testing.T) {
	engine := NewEngine()

	rules := []RewardRule{{
		ID:         "r1",
		Conditions: datatypes.JSON(`{"all":[{"field":"score","op":"between","value":10}]}`),
		XPAwards:   datatypes.JSON(`{"main": 10}`),
	}}

	grant := engine.Evaluate(rules, map[string]any{"score": float64(15)}, 0, evalAt(12))
	require.Empty(t, grant.MatchedRuleIDs)
	require.Zero(t, grant.TrackAwards["main"])
}

func TestEvaluateInRequiresSequence(t *testing.T) {
	engine := NewEngine()

	rules := []RewardRule{{
		ID:         "r1",
		Conditions: datatypes.JSON(`{"all":[{"field":"mode","op":"in","value":"ranked"}]}`),
		XPAwards:   datatypes.JSON(`{"main": 10}`),
	}}

	grant := engine.Evaluate(rules, map[string]any{"mode": "ranked"}, 0, evalAt(12))
	require.Empty(t, grant.MatchedRuleIDs)
}

func TestEvaluateNumericCoercionAcrossTypes(t *testing.T) {
	engine := NewEngine()

	rules := []RewardRule{{
		ID:         "r1",
		Conditions: datatypes.JSON(`{"all":[{"field":"count","op":"eq","value":3}]}`),
		XPAwards:   datatypes.JSON(`{"main": 1}`),
	}}

	// Callers may hand the engine native ints while stored values decode to
	// float64.
	grant := engine.Evaluate(rules, map[string]any{"count": int64(3)}, 0, evalAt(12))
	require.Equal(t, []string{"r1"}, grant.MatchedRuleIDs)
}

func TestEvaluateMultiplierComposition(t *testing.T) {
	engine := NewEngine()

	rules := []RewardRule{{
		ID:                "r1",
		XPAwards:          datatypes.JSON(`{"main": 10}`),
		MultiplierConfig:  datatypes.JSON(`{"field":"tier","map":{"gold":1.5,"silver":1.2}}`),
		StreakBonusConfig: datatypes.JSON(`{"every":7,"bonusMultiplier":2}`),
	}}

	// streak 14 hits the every-7 bonus: round(10 * 1.5 * 2) = 30.
	grant := engine.Evaluate(rules, map[string]any{"tier": "gold"}, 14, evalAt(12))
	require.Equal(t, int64(30), grant.TrackAwards["main"])

	// streak 13 misses the bonus: round(10 * 1.5) = 15.
	grant = engine.Evaluate(rules, map[string]any{"tier": "gold"}, 13, evalAt(12))
	require.Equal(t, int64(15), grant.TrackAwards["main"])

	// unmapped tier leaves the multiplier at 1.
	grant = engine.Evaluate(rules, map[string]any{"tier": "bronze"}, 13, evalAt(12))
	require.Equal(t, int64(10), grant.TrackAwards["main"])
}

func TestEvaluateTimeBonusWindow(t *testing.T) {
	engine := NewEngine()

	rules := []RewardRule{{
		ID:              "r1",
		XPAwards:        datatypes.JSON(`{"main": 10}`),
		TimeBonusConfig: datatypes.JSON(`{"fromHour":18,"toHour":22,"multiplier":1.5}`),
	}}

	grant := engine.Evaluate(rules, nil, 0, evalAt(19))
	require.Equal(t, int64(15), grant.TrackAwards["main"])

	// toHour is exclusive.
	grant = engine.Evaluate(rules, nil, 0, evalAt(22))
	require.Equal(t, int64(10), grant.TrackAwards["main"])
}

func TestEvaluateMalformedBonusConfigsDisableFeature(t *testing.T) {
	engine := NewEngine()

	rules := []RewardRule{{
		ID:                "r1",
		XPAwards:          datatypes.JSON(`{"main": 10}`),
		MultiplierConfig:  datatypes.JSON(`"not an object"`),
		StreakBonusConfig: datatypes.JSON(`{"every":"often"}`),
		TimeBonusConfig:   datatypes.JSON(`{"fromHour":18}`),
	}}

	grant := engine.Evaluate(rules, map[string]any{"tier": "gold"}, 14, evalAt(19))
	require.Equal(t, int64(10), grant.TrackAwards["main"])
}

func TestEvaluateAccumulatesAcrossRules(t *testing.T) {
	engine := NewEngine()

	rules := []RewardRule{
		{ID: "r1", XPAwards: datatypes.JSON(`{"main": 10, "combat": 5}`), CurrencyAwards: datatypes.JSON(`{"gems": 2}`)},
		{ID: "r2", XPAwards: datatypes.JSON(`{"main": 4}`), CurrencyAwards: datatypes.JSON(`{"gems": 1, "coins": 50}`)},
	}

	grant := engine.Evaluate(rules, nil, 0, evalAt(12))
	require.Equal(t, int64(14), grant.TrackAwards["main"])
	require.Equal(t, int64(5), grant.TrackAwards["combat"])
	require.Equal(t, int64(3), grant.CurrencyAwards["gems"])
	require.Equal(t, int64(50), grant.CurrencyAwards["coins"])
	require.Equal(t, int64(19), grant.TotalXP())
}
