package rule

import (
	"encoding/json"
	"math"
	"reflect"
	"strings"
	"time"

	"gorm.io/datatypes"
)

// Engine evaluates reward rules against event metadata. It is pure: no I/O,
// no clock reads (the evaluation instant is a parameter), no mutation of the
// rules it is given.
type Engine struct{}

// NewEngine creates a new Engine instance.
func NewEngine() *Engine {
	return &Engine{}
}

// Evaluate applies every matching rule in the given order and accumulates the
// awards. A rule matches iff every predicate of its condition conjunction is
// satisfied; an absent or malformed conjunction means "no predicates", which
// matches unconditionally.
func (e *Engine) Evaluate(rules []RewardRule, metadata map[string]any, streakCount int64, now time.Time) Grant {
	grant := Grant{
		TrackAwards:    map[string]int64{},
		CurrencyAwards: map[string]int64{},
		MatchedRuleIDs: []string{},
	}

	for _, rule := range rules {
		if !e.matches(rule, metadata) {
			continue
		}

		multiplier := e.computeMultiplier(rule, metadata, streakCount, now)

		for track, amount := range decodeAwards(rule.XPAwards) {
			grant.TrackAwards[track] += int64(math.Round(amount * multiplier))
		}
		for currency, amount := range decodeAwards(rule.CurrencyAwards) {
			grant.CurrencyAwards[currency] += int64(math.Round(amount * multiplier))
		}

		grant.MatchedRuleIDs = append(grant.MatchedRuleIDs, rule.ID)
	}

	return grant
}

func (e *Engine) matches(rule RewardRule, metadata map[string]any) bool {
	doc := decodeObject(rule.Conditions)
	predicates, _ := doc["all"].([]any)

	for _, raw := range predicates {
		predicate, ok := raw.(map[string]any)
		if !ok {
			return false
		}

		field, _ := predicate["field"].(string)
		op, ok := predicate["op"].(string)
		if !ok || op == "" {
			op = "eq"
		}

		left, _ := readPath(metadata, field)
		if !compare(left, op, predicate["value"]) {
			return false
		}
	}

	return true
}

// computeMultiplier composes the three optional bonuses multiplicatively in a
// fixed order: metadata lookup, streak bonus, time-of-day. Each defaults to 1
// when its config is absent or malformed.
func (e *Engine) computeMultiplier(rule RewardRule, metadata map[string]any, streakCount int64, now time.Time) float64 {
	multiplier := 1.0

	if cfg := decodeObject(rule.MultiplierConfig); cfg != nil {
		field, _ := cfg["field"].(string)
		valueMap, _ := cfg["map"].(map[string]any)

		if field != "" && valueMap != nil {
			value, _ := readPath(metadata, field)
			multiplier *= asNumber(valueMap[asString(value)], 1)
		}
	}

	if cfg := decodeObject(rule.StreakBonusConfig); cfg != nil {
		every := int64(asNumber(cfg["every"], 0))
		bonus := asNumber(cfg["bonusMultiplier"], 1)
		if every > 0 && streakCount > 0 && streakCount%every == 0 {
			multiplier *= bonus
		}
	}

	if cfg := decodeObject(rule.TimeBonusConfig); cfg != nil {
		hour := float64(now.UTC().Hour())
		from := asNumber(cfg["fromHour"], -1)
		to := asNumber(cfg["toHour"], -1)
		if from >= 0 && to >= 0 && hour >= from && hour < to {
			multiplier *= asNumber(cfg["multiplier"], 1)
		}
	}

	return multiplier
}

// readPath traverses metadata along a dot-separated path. Missing
// intermediate keys or non-object hops resolve to (nil, false) rather than
// erroring.
func readPath(metadata map[string]any, path string) (any, bool) {
	if path == "" {
		return nil, false
	}

	var current any = metadata
	for _, part := range strings.Split(path, ".") {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = obj[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

func compare(left any, op string, right any) bool {
	switch op {
	case "eq":
		return looseEqual(left, right)
	case "neq":
		return !looseEqual(left, right)
	case "gt":
		return asNumber(left, 0) > asNumber(right, 0)
	case "gte":
		return asNumber(left, 0) >= asNumber(right, 0)
	case "lt":
		return asNumber(left, 0) < asNumber(right, 0)
	case "lte":
		return asNumber(left, 0) <= asNumber(right, 0)
	case "in":
		seq, ok := right.([]any)
		if !ok {
			return false
		}
		for _, candidate := range seq {
			if looseEqual(left, candidate) {
				return true
			}
		}
		return false
	default:
		// Unrecognized operators never match and never error.
		return false
	}
}

// looseEqual compares JSON values: numbers by numeric value regardless of the
// decoded Go type, everything else structurally.
func looseEqual(left, right any) bool {
	ln, lok := toNumber(left)
	rn, rok := toNumber(right)
	if lok && rok {
		return ln == rn
	}
	if lok != rok {
		return false
	}
	return reflect.DeepEqual(left, right)
}

// asNumber coerces a JSON value to float64. Non-numeric and non-finite
// operands coerce to the fallback; numeric comparisons pass fallback 0.
func asNumber(value any, fallback float64) float64 {
	n, ok := toNumber(value)
	if !ok || math.IsNaN(n) || math.IsInf(n, 0) {
		return fallback
	}
	return n
}

func toNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func asString(value any) string {
	if value == nil {
		return ""
	}
	if s, ok := value.(string); ok {
		return s
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return ""
	}
	return strings.Trim(string(raw), `"`)
}

func decodeObject(raw datatypes.JSON) map[string]any {
	if len(raw) == 0 {
		return nil
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil
	}
	return doc
}

func decodeAwards(raw datatypes.JSON) map[string]float64 {
	awards := map[string]float64{}
	for key, value := range decodeObject(raw) {
		awards[key] = asNumber(value, 0)
	}
	return awards
}
