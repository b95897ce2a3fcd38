package rediskey

import "fmt"

// Key namespaces shared between the engine services. The leaderboard sorted
// sets are the authoritative live scores; the streak keys are fast existence
// markers only.
const (
	LeaderboardPrefix = "forge:lb"
	StreakTTLPrefix   = "forge:streak:ttl"
)

// BuildLeaderboardKey returns "forge:lb:{appID}:{scope}:{metric}:{periodKey}"
// with an optional ":{leagueID}" suffix.
func BuildLeaderboardKey(appID, scope, metric, periodKey, leagueID string) string {
	key := fmt.Sprintf("%s:%s:%s:%s:%s", LeaderboardPrefix, appID, scope, metric, periodKey)
	if leagueID != "" {
		key += ":" + leagueID
	}
	return key
}

// BuildStreakTTLKey returns "forge:streak:ttl:{appID}:{userID}:{mode}".
func BuildStreakTTLKey(appID, userID, mode string) string {
	return fmt.Sprintf("%s:%s:%s:%s", StreakTTLPrefix, appID, userID, mode)
}
