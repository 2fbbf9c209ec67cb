package memory

import (
	"context"
	"math/rand"
	"sort"
	"time"

	"reviewassigner/pkg/pullrequest"
	"reviewassigner/pkg/team"
	"reviewassigner/pkg/user"
)

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func sortUsers(users []*user.User) {
	sort.Slice(users, func(i, j int) bool { return users[i].UserID < users[j].UserID })
}

type usersRepo struct{ tx *memTx }

func (r *usersRepo) GetByID(_ context.Context, userID string) (*user.User, error) {
	u, ok := r.tx.st.users[userID]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	return copyUser(u), nil
}

func (r *usersRepo) ListByIDs(_ context.Context, userIDs []string) ([]*user.User, error) {
	out := []*user.User{}
	for id := range toSet(userIDs) {
		if u, ok := r.tx.st.users[id]; ok {
			out = append(out, copyUser(u))
		}
	}
	sortUsers(out)
	return out, nil
}

func (r *usersRepo) ListByTeam(_ context.Context, teamName string) ([]*user.User, error) {
	out := []*user.User{}
	for _, u := range r.tx.st.users {
		if u.TeamName == teamName {
			out = append(out, copyUser(u))
		}
	}
	sortUsers(out)
	return out, nil
}

func (r *usersRepo) listActive(match func(*user.User) bool, excludeIDs []string, limit int) []*user.User {
	excluded := toSet(excludeIDs)
	out := []*user.User{}
	for _, u := range r.tx.st.users {
		if !u.IsActive || !match(u) {
			continue
		}
		if _, skip := excluded[u.UserID]; skip {
			continue
		}
		out = append(out, copyUser(u))
	}
	sortUsers(out)
	if limit > 0 && len(out) > limit {
		// как ORDER BY RANDOM() LIMIT в Postgres
		rand.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
		out = out[:limit]
		sortUsers(out)
	}
	return out
}

func (r *usersRepo) ListActiveByTeamExcept(_ context.Context, teamName string, excludeIDs []string, limit int) ([]*user.User, error) {
	return r.listActive(func(u *user.User) bool { return u.TeamName == teamName }, excludeIDs, limit), nil
}

// ListActiveExcept - без лимита отдает всех по id, с лимитом случайную выборку
func (r *usersRepo) ListActiveExcept(_ context.Context, excludeIDs []string, limit int) ([]*user.User, error) {
	return r.listActive(func(*user.User) bool { return true }, excludeIDs, limit), nil
}

func (r *usersRepo) Insert(_ context.Context, users []*user.User) error {
	now := r.tx.now()
	for _, u := range users {
		if _, ok := r.tx.st.users[u.UserID]; ok {
			return errDuplicate
		}
		if _, ok := r.tx.st.teams[u.TeamName]; !ok {
			return errForeignKey
		}
		cp := copyUser(u)
		cp.CreatedAt, cp.UpdatedAt = now, now
		r.tx.st.users[u.UserID] = cp
	}
	return nil
}

func (r *usersRepo) Update(_ context.Context, users []*user.User) error {
	now := r.tx.now()
	for _, u := range users {
		cur, ok := r.tx.st.users[u.UserID]
		if !ok {
			return user.ErrUserNotFound
		}
		if _, ok := r.tx.st.teams[u.TeamName]; !ok {
			return errForeignKey
		}
		cur.Username = u.Username
		cur.TeamName = u.TeamName
		cur.IsActive = u.IsActive
		cur.UpdatedAt = now
	}
	return nil
}

func (r *usersRepo) SetIsActive(_ context.Context, userID string, isActive bool) (*user.User, error) {
	u, ok := r.tx.st.users[userID]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	u.IsActive = isActive
	u.UpdatedAt = r.tx.now()
	return copyUser(u), nil
}

func (r *usersRepo) DeactivateActive(_ context.Context, userIDs []string) (int64, error) {
	var n int64
	for id := range toSet(userIDs) {
		if u, ok := r.tx.st.users[id]; ok && u.IsActive {
			u.IsActive = false
			u.UpdatedAt = r.tx.now()
			n++
		}
	}
	return n, nil
}

type teamsRepo struct{ tx *memTx }

func (r *teamsRepo) Create(_ context.Context, teamName string) (*team.Team, error) {
	if _, ok := r.tx.st.teams[teamName]; ok {
		return nil, team.ErrTeamExists
	}
	now := r.tx.now()
	t := &team.Team{TeamName: teamName, CreatedAt: now, UpdatedAt: now}
	r.tx.st.teams[teamName] = t
	cp := *t
	return &cp, nil
}

func (r *teamsRepo) Exists(_ context.Context, teamName string) (bool, error) {
	_, ok := r.tx.st.teams[teamName]
	return ok, nil
}

func (r *teamsRepo) Get(ctx context.Context, teamName string) (*team.Team, error) {
	t, ok := r.tx.st.teams[teamName]
	if !ok {
		return nil, team.ErrTeamNotFound
	}
	cp := *t
	members, err := (&usersRepo{r.tx}).ListByTeam(ctx, teamName)
	if err != nil {
		return nil, err
	}
	cp.Members = members
	return &cp, nil
}

type prsRepo struct{ tx *memTx }

func (r *prsRepo) withReviewers(pr *pullrequest.PullRequest) *pullrequest.PullRequest {
	cp := copyPR(pr)
	cp.AssignedReviewers = []*user.User{}
	for id := range r.tx.st.links[pr.PullRequestID] {
		if u, ok := r.tx.st.users[id]; ok {
			cp.AssignedReviewers = append(cp.AssignedReviewers, copyUser(u))
		}
	}
	sortUsers(cp.AssignedReviewers)
	return cp
}

func (r *prsRepo) Exists(_ context.Context, prID string) (bool, error) {
	_, ok := r.tx.st.prs[prID]
	return ok, nil
}

func (r *prsRepo) Create(_ context.Context, pr *pullrequest.PullRequest) error {
	if _, ok := r.tx.st.prs[pr.PullRequestID]; ok {
		return pullrequest.ErrPRExists
	}
	if _, ok := r.tx.st.users[pr.AuthorID]; !ok {
		return errForeignKey
	}
	cp := copyPR(pr)
	now := r.tx.now()
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = now
	}
	cp.UpdatedAt = now
	r.tx.st.prs[pr.PullRequestID] = cp
	r.tx.st.links[pr.PullRequestID] = map[string]struct{}{}

	pr.CreatedAt, pr.UpdatedAt = cp.CreatedAt, cp.UpdatedAt
	return nil
}

func (r *prsRepo) GetByID(_ context.Context, prID string, _ bool) (*pullrequest.PullRequest, error) {
	pr, ok := r.tx.st.prs[prID]
	if !ok {
		return nil, pullrequest.ErrPRNotFound
	}
	return r.withReviewers(pr), nil
}

func (r *prsRepo) SetMerged(_ context.Context, prID string, mergedAt time.Time) error {
	pr, ok := r.tx.st.prs[prID]
	if !ok {
		return pullrequest.ErrPRNotFound
	}
	at := mergedAt
	pr.Status = pullrequest.StatusMerged
	pr.MergedAt = &at
	pr.UpdatedAt = mergedAt
	return nil
}

func (r *prsRepo) AddReviewers(_ context.Context, prID string, reviewerIDs []string) error {
	set, ok := r.tx.st.links[prID]
	if !ok {
		return errForeignKey
	}
	for _, id := range reviewerIDs {
		if _, ok := r.tx.st.users[id]; !ok {
			return errForeignKey
		}
		if _, dup := set[id]; dup {
			return errDuplicate
		}
		set[id] = struct{}{}
	}
	return nil
}

func (r *prsRepo) ReplaceReviewer(ctx context.Context, prID, oldUserID, newUserID string) error {
	if err := r.RemoveReviewer(ctx, prID, oldUserID); err != nil {
		return err
	}
	return r.AddReviewers(ctx, prID, []string{newUserID})
}

func (r *prsRepo) RemoveReviewer(_ context.Context, prID, userID string) error {
	set := r.tx.st.links[prID]
	if _, ok := set[userID]; !ok {
		return pullrequest.ErrNotAssigned
	}
	delete(set, userID)
	return nil
}

func (r *prsRepo) ListByReviewer(_ context.Context, userID string) ([]*pullrequest.PullRequest, error) {
	out := []*pullrequest.PullRequest{}
	for prID, set := range r.tx.st.links {
		if _, ok := set[userID]; ok {
			out = append(out, copyPR(r.tx.st.prs[prID]))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].PullRequestID > out[j].PullRequestID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *prsRepo) ListOpenByReviewers(_ context.Context, userIDs []string) ([]*pullrequest.PullRequest, error) {
	wanted := toSet(userIDs)
	out := []*pullrequest.PullRequest{}
	for prID, pr := range r.tx.st.prs {
		if pr.Status != pullrequest.StatusOpen {
			continue
		}
		for id := range r.tx.st.links[prID] {
			if _, ok := wanted[id]; ok {
				out = append(out, r.withReviewers(pr))
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].PullRequestID < out[j].PullRequestID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *prsRepo) StatusCounts(_ context.Context) (pullrequest.StatusCounts, error) {
	var c pullrequest.StatusCounts
	for _, pr := range r.tx.st.prs {
		c.Total++
		switch pr.Status {
		case pullrequest.StatusOpen:
			c.Open++
		case pullrequest.StatusMerged:
			c.Merged++
		}
	}
	return c, nil
}

func (r *prsRepo) ReviewerBuckets(_ context.Context) (pullrequest.ReviewerBuckets, error) {
	var b pullrequest.ReviewerBuckets
	for prID := range r.tx.st.prs {
		switch n := len(r.tx.st.links[prID]); {
		case n == 0:
			b.Zero++
		case n == 1:
			b.One++
		default:
			b.TwoOrMore++
		}
	}
	return b, nil
}

func (r *prsRepo) ReviewerStats(_ context.Context, teamName string) ([]*pullrequest.UserStats, error) {
	byUser := map[string]*pullrequest.UserStats{}
	for _, u := range r.tx.st.users {
		if teamName != "" && u.TeamName != teamName {
			continue
		}
		byUser[u.UserID] = &pullrequest.UserStats{UserID: u.UserID, Username: u.Username, TeamName: u.TeamName}
	}

	for prID, set := range r.tx.st.links {
		pr := r.tx.st.prs[prID]
		for id := range set {
			s, ok := byUser[id]
			if !ok {
				continue
			}
			s.TotalCount++
			switch pr.Status {
			case pullrequest.StatusOpen:
				s.OpenCount++
			case pullrequest.StatusMerged:
				s.MergedCount++
			}
		}
	}

	out := make([]*pullrequest.UserStats, 0, len(byUser))
	for _, s := range byUser {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}
