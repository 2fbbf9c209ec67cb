package cache

const (
	teamPrefix    = "teams:get_team:"
	reviewsPrefix = "users:get_reviews:"
	StatsPrefix   = "stats:"
)

func TeamKey(teamName string) string {
	return teamPrefix + teamName
}

func ReviewsKey(userID string) string {
	return reviewsPrefix + userID
}

func StatsKey() string {
	return StatsPrefix + "get_stats"
}

func TeamStatsKey(teamName string) string {
	return StatsPrefix + "get_team_stats:" + teamName
}
