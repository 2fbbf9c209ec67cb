package pullrequest

import "reviewassigner/pkg/user"

func findReviewer(reviewers []*user.User, userID string) (*user.User, bool) {
	for _, reviewer := range reviewers {
		if reviewer != nil && reviewer.UserID == userID {
			return reviewer, true
		}
	}
	return nil, false
}

// FindReviewer - публичная обертка, нужна движку назначения
func FindReviewer(pr *PullRequest, userID string) (*user.User, bool) {
	return findReviewer(pr.AssignedReviewers, userID)
}
