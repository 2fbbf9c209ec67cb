package apidto

import (
	"reviewassigner/pkg/pullrequest"
	"reviewassigner/pkg/service"
)

type UserReviewStats struct {
	UserID        string `json:"user_id"`
	Username      string `json:"username"`
	TotalReviews  int    `json:"total_reviews"`
	OpenReviews   int    `json:"open_reviews"`
	MergedReviews int    `json:"merged_reviews"`
}

type PRStats struct {
	TotalPRs          int `json:"total_prs"`
	OpenPRs           int `json:"open_prs"`
	MergedPRs         int `json:"merged_prs"`
	PRsWith0Reviewers int `json:"prs_with_0_reviewers"`
	PRsWith1Reviewer  int `json:"prs_with_1_reviewer"`
	PRsWith2Reviewers int `json:"prs_with_2_reviewers"`
}

type Stats struct {
	Users        []UserReviewStats `json:"users"`
	PullRequests PRStats           `json:"pull_requests"`
}

func FromUserReviewStats(us *pullrequest.UserStats) UserReviewStats {
	return UserReviewStats{
		UserID:        us.UserID,
		Username:      us.Username,
		TotalReviews:  us.TotalCount,
		OpenReviews:   us.OpenCount,
		MergedReviews: us.MergedCount,
	}
}

func FromStats(s *service.Stats) Stats {
	if s == nil {
		return Stats{Users: []UserReviewStats{}}
	}

	users := make([]UserReviewStats, 0, len(s.Users))
	for _, us := range s.Users {
		users = append(users, FromUserReviewStats(us))
	}

	return Stats{
		Users: users,
		PullRequests: PRStats{
			TotalPRs:          s.PullRequests.Total,
			OpenPRs:           s.PullRequests.Open,
			MergedPRs:         s.PullRequests.Merged,
			PRsWith0Reviewers: s.PullRequests.WithZeroReviewers,
			PRsWith1Reviewer:  s.PullRequests.WithOneReviewer,
			PRsWith2Reviewers: s.PullRequests.WithTwoReviewers,
		},
	}
}
