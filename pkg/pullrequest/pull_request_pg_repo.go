package pullrequest

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PullRequestsRepoPg struct {
	logger *zap.SugaredLogger
	db     *gorm.DB
}

func NewPullRequestsRepoPg(logger *zap.SugaredLogger, db *gorm.DB) *PullRequestsRepoPg {
	return &PullRequestsRepoPg{
		logger: logger,
		db:     db,
	}
}

func (repo *PullRequestsRepoPg) Exists(ctx context.Context, prID string) (bool, error) {
	repo.logger.Debugw("Exists()", "prID", prID)

	var count int64
	if err := repo.db.WithContext(ctx).
		Model(&PullRequest{}).
		Where("pull_request_id = ?", prID).
		Count(&count).Error; err != nil {
		repo.logger.Errorw("error checking PR", "prID", prID, "err", err)
		return false, err
	}

	return count > 0, nil
}

func (repo *PullRequestsRepoPg) Create(ctx context.Context, pr *PullRequest) error {
	repo.logger.Debugw("Create()", "prID", pr.PullRequestID, "authorID", pr.AuthorID)

	// ревьюверы пишутся отдельно через AddReviewers, ассоциации тут не нужны
	if err := repo.db.WithContext(ctx).Omit(clause.Associations).Create(pr).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "SQLSTATE 23505") {
			repo.logger.Warnw("PR already exists", "prID", pr.PullRequestID)
			return ErrPRExists
		}
		repo.logger.Errorw("Error creating PR", "prID", pr.PullRequestID, "err", err)
		return err
	}

	return nil
}

func (repo *PullRequestsRepoPg) GetByID(ctx context.Context, prID string, forUpdate bool) (*PullRequest, error) {
	repo.logger.Debugw("GetByID()", "prID", prID, "forUpdate", forUpdate)

	query := repo.db.WithContext(ctx)
	if forUpdate {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var pr PullRequest
	if err := query.
		Preload("AssignedReviewers", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("users.user_id ASC")
		}).
		First(&pr, "pull_request_id = ?", prID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			repo.logger.Warnw("PR does not exist", "prID", prID)
			return nil, ErrPRNotFound
		}

		repo.logger.Errorw("Error finding PR", "prID", prID, "err", err)
		return nil, err
	}

	repo.logger.Debugw("PR found", "prID", prID)
	return &pr, nil
}

func (repo *PullRequestsRepoPg) SetMerged(ctx context.Context, prID string, mergedAt time.Time) error {
	repo.logger.Debugw("SetMerged()", "prID", prID)

	tx := repo.db.WithContext(ctx).
		Model(&PullRequest{}).
		Where("pull_request_id = ?", prID).
		Updates(map[string]any{
			"status":     StatusMerged,
			"merged_at":  mergedAt,
			"updated_at": mergedAt,
		})

	if tx.Error != nil {
		repo.logger.Errorw("Error updating PR merged", "prID", prID, "err", tx.Error)
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrPRNotFound
	}

	return nil
}

func (repo *PullRequestsRepoPg) AddReviewers(ctx context.Context, prID string, reviewerIDs []string) error {
	repo.logger.Debugw("AddReviewers()", "prID", prID, "reviewers", reviewerIDs)

	if len(reviewerIDs) == 0 {
		return nil
	}

	links := make([]PRReviewer, 0, len(reviewerIDs))
	for _, id := range reviewerIDs {
		links = append(links, PRReviewer{PullRequestID: prID, UserID: id})
	}

	if err := repo.db.WithContext(ctx).Create(&links).Error; err != nil {
		repo.logger.Errorw("Error appending reviewers", "prID", prID, "err", err)
		return err
	}

	return nil
}

// ReplaceReviewer меняет одну связь на другую. Атомарность пары обеспечивает
// внешняя транзакция (storage.Store.Transaction).
func (repo *PullRequestsRepoPg) ReplaceReviewer(ctx context.Context, prID, oldUserID, newUserID string) error {
	repo.logger.Debugw("ReplaceReviewer()", "prID", prID, "oldUserID", oldUserID, "newUserID", newUserID)

	if err := repo.RemoveReviewer(ctx, prID, oldUserID); err != nil {
		return err
	}

	return repo.AddReviewers(ctx, prID, []string{newUserID})
}

func (repo *PullRequestsRepoPg) RemoveReviewer(ctx context.Context, prID, userID string) error {
	repo.logger.Debugw("RemoveReviewer()", "prID", prID, "userID", userID)

	tx := repo.db.WithContext(ctx).
		Where("pull_request_id = ? AND user_id = ?", prID, userID).
		Delete(&PRReviewer{})

	if tx.Error != nil {
		repo.logger.Errorw("error removing reviewer", "prID", prID, "userID", userID, "err", tx.Error)
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		repo.logger.Warnw("no reviewer link to remove", "prID", prID, "userID", userID)
		return ErrNotAssigned
	}

	return nil
}

func (repo *PullRequestsRepoPg) ListByReviewer(ctx context.Context, userID string) ([]*PullRequest, error) {
	repo.logger.Debugw("ListByReviewer()", "userID", userID)

	prs := []*PullRequest{}
	if err := repo.db.WithContext(ctx).
		Model(&PullRequest{}).
		Joins("JOIN pr_reviewers prr ON prr.pull_request_id = pull_requests.pull_request_id").
		Where("prr.user_id = ?", userID).
		Order("pull_requests.created_at DESC").
		Find(&prs).Error; err != nil {
		repo.logger.Errorw("error loading prs", "userID", userID, "err", err)
		return nil, err
	}

	repo.logger.Debugw("listed PRs by reviewer", "userID", userID, "count", len(prs))
	return prs, nil
}

func (repo *PullRequestsRepoPg) ListOpenByReviewers(ctx context.Context, userIDs []string) ([]*PullRequest, error) {
	repo.logger.Debugw("ListOpenByReviewers()", "count", len(userIDs))

	prs := []*PullRequest{}
	if len(userIDs) == 0 {
		return prs, nil
	}

	linked := repo.db.Model(&PRReviewer{}).
		Select("pull_request_id").
		Where("user_id IN ?", userIDs)

	if err := repo.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("AssignedReviewers", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("users.user_id ASC")
		}).
		Where("status = ? AND pull_request_id IN (?)", StatusOpen, linked).
		Order("created_at ASC").
		Find(&prs).Error; err != nil {
		repo.logger.Errorw("error loading open prs by reviewers", "err", err)
		return nil, err
	}

	return prs, nil
}

func (repo *PullRequestsRepoPg) StatusCounts(ctx context.Context) (StatusCounts, error) {
	repo.logger.Debugw("StatusCounts()")

	var row struct {
		Total  int
		Open   int
		Merged int
	}

	if err := repo.db.WithContext(ctx).Raw(`
		SELECT COUNT(*) AS total,
		       COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS open,
		       COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS merged
		FROM pull_requests`, StatusOpen, StatusMerged).
		Scan(&row).Error; err != nil {
		repo.logger.Errorw("error counting prs by status", "err", err)
		return StatusCounts{}, err
	}

	return StatusCounts(row), nil
}

func (repo *PullRequestsRepoPg) ReviewerBuckets(ctx context.Context) (ReviewerBuckets, error) {
	repo.logger.Debugw("ReviewerBuckets()")

	var row struct {
		Zero      int
		One       int
		TwoOrMore int
	}

	if err := repo.db.WithContext(ctx).Raw(`
		SELECT COALESCE(SUM(CASE WHEN c.cnt = 0 THEN 1 ELSE 0 END), 0) AS zero,
		       COALESCE(SUM(CASE WHEN c.cnt = 1 THEN 1 ELSE 0 END), 0) AS one,
		       COALESCE(SUM(CASE WHEN c.cnt >= 2 THEN 1 ELSE 0 END), 0) AS two_or_more
		FROM (
			SELECT pr.pull_request_id, COUNT(prr.user_id) AS cnt
			FROM pull_requests pr
			LEFT JOIN pr_reviewers prr ON prr.pull_request_id = pr.pull_request_id
			GROUP BY pr.pull_request_id
		) c`).
		Scan(&row).Error; err != nil {
		repo.logger.Errorw("error bucketing prs by reviewer count", "err", err)
		return ReviewerBuckets{}, err
	}

	return ReviewerBuckets(row), nil
}

func (repo *PullRequestsRepoPg) ReviewerStats(ctx context.Context, teamName string) ([]*UserStats, error) {
	repo.logger.Debugw("ReviewerStats()", "teamName", teamName)

	var rows []struct {
		UserID      string
		Username    string
		TeamName    string
		TotalCount  int
		OpenCount   int
		MergedCount int
	}

	query := repo.db.WithContext(ctx).
		Table("users").
		Select(`users.user_id, users.username, users.team_name,
			COUNT(pr.pull_request_id) AS total_count,
			COALESCE(SUM(CASE WHEN pr.status = ? THEN 1 ELSE 0 END), 0) AS open_count,
			COALESCE(SUM(CASE WHEN pr.status = ? THEN 1 ELSE 0 END), 0) AS merged_count`, StatusOpen, StatusMerged).
		Joins("LEFT JOIN pr_reviewers prr ON prr.user_id = users.user_id").
		Joins("LEFT JOIN pull_requests pr ON pr.pull_request_id = prr.pull_request_id")

	if teamName != "" {
		query = query.Where("users.team_name = ?", teamName)
	}

	if err := query.
		Group("users.user_id, users.username, users.team_name").
		Order("users.user_id ASC").
		Scan(&rows).Error; err != nil {
		repo.logger.Errorw("error collecting reviewer stats", "teamName", teamName, "err", err)
		return nil, err
	}

	stats := make([]*UserStats, 0, len(rows))
	for _, r := range rows {
		stats = append(stats, &UserStats{
			UserID:      r.UserID,
			Username:    r.Username,
			TeamName:    r.TeamName,
			TotalCount:  r.TotalCount,
			OpenCount:   r.OpenCount,
			MergedCount: r.MergedCount,
		})
	}

	return stats, nil
}
