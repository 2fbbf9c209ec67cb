package apidto

import (
	"reviewassigner/pkg/pullrequest"
	"reviewassigner/pkg/team"
)

type Team struct {
	TeamName string       `json:"team_name"`
	Members  []TeamMember `json:"members"`
}

type TeamMember struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	IsActive bool   `json:"is_active"`
}

func FromTeam(t *team.Team) Team {
	if t == nil {
		return Team{}
	}
	members := make([]TeamMember, 0, len(t.Members))
	for _, m := range t.Members {
		members = append(members, TeamMember{
			UserID:   m.UserID,
			Username: m.Username,
			IsActive: m.IsActive,
		})
	}
	return Team{
		TeamName: t.TeamName,
		Members:  members,
	}
}

type UserStats struct {
	OpenCount   int `json:"open_count"`
	MergedCount int `json:"merged_count"`
}

func FromUserStatsSliceToMap(users []*pullrequest.UserStats) map[string]UserStats {
	memberStats := make(map[string]UserStats, len(users))
	for _, usr := range users {
		memberStats[usr.UserID] = FromUserStats(usr)
	}
	return memberStats
}

func FromUserStats(us *pullrequest.UserStats) UserStats {
	return UserStats{
		OpenCount:   us.OpenCount,
		MergedCount: us.MergedCount,
	}
}
