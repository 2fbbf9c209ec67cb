package pullrequest

import (
	"context"
	"errors"
	"time"

	"reviewassigner/pkg/user"
)

const (
	StatusOpen   = "OPEN"
	StatusMerged = "MERGED"
)

var (
	ErrPRExists    = errors.New("PR_EXISTS")
	ErrPRMerged    = errors.New("PR_MERGED")
	ErrPRNotFound  = errors.New("PR_NOT_FOUND")
	ErrNotAssigned = errors.New("PR_NOT_ASSIGNED")
	ErrNoCandidate = errors.New("PR_NO_CANDIDATE")
)

type PullRequest struct {
	PullRequestID     string       `gorm:"primaryKey;type:varchar(64);column:pull_request_id"`
	PullRequestName   string       `gorm:"type:varchar(255);not null;column:pull_request_name"`
	AuthorID          string       `gorm:"type:varchar(64);index;not null;column:author_id"`
	Status            string       `gorm:"type:pull_request_status;not null;index"`
	AssignedReviewers []*user.User `gorm:"many2many:pr_reviewers;joinForeignKey:PullRequestID;joinReferences:UserID"`
	CreatedAt         time.Time    `gorm:"column:created_at"`
	UpdatedAt         time.Time    `gorm:"column:updated_at"`
	MergedAt          *time.Time   `gorm:"column:merged_at"`
}

func (pr *PullRequest) IsMerged() bool {
	return pr.Status == StatusMerged
}

func (pr *PullRequest) ReviewerIDs() []string {
	return user.IDs(pr.AssignedReviewers)
}

func (pr *PullRequest) HasReviewer(userID string) bool {
	_, ok := findReviewer(pr.AssignedReviewers, userID)
	return ok
}

// PRReviewer - строка таблицы связей PR <-> ревьювер
type PRReviewer struct {
	PullRequestID string `gorm:"primaryKey;column:pull_request_id"`
	UserID        string `gorm:"primaryKey;column:user_id"`
}

func (PRReviewer) TableName() string {
	return "pr_reviewers"
}

// UserStats - статистика ревью по пользователю
type UserStats struct {
	UserID      string
	Username    string
	TeamName    string
	TotalCount  int
	OpenCount   int
	MergedCount int
}

type StatusCounts struct {
	Total  int
	Open   int
	Merged int
}

// ReviewerBuckets - количество PR по числу ревьюверов. TwoOrMore на случай,
// если в базе когда-нибудь окажется больше двух ревьюверов - тогда сумма все равно сойдется с Total.
type ReviewerBuckets struct {
	Zero      int
	One       int
	TwoOrMore int
}

type PullRequestsRepo interface {
	Exists(ctx context.Context, prID string) (bool, error)
	Create(ctx context.Context, pr *PullRequest) error
	GetByID(ctx context.Context, prID string, forUpdate bool) (*PullRequest, error)
	SetMerged(ctx context.Context, prID string, mergedAt time.Time) error
	AddReviewers(ctx context.Context, prID string, reviewerIDs []string) error
	ReplaceReviewer(ctx context.Context, prID, oldUserID, newUserID string) error
	RemoveReviewer(ctx context.Context, prID, userID string) error
	ListByReviewer(ctx context.Context, userID string) ([]*PullRequest, error)
	ListOpenByReviewers(ctx context.Context, userIDs []string) ([]*PullRequest, error)
	StatusCounts(ctx context.Context) (StatusCounts, error)
	ReviewerBuckets(ctx context.Context) (ReviewerBuckets, error)
	// ReviewerStats - пустой teamName означает всех пользователей
	ReviewerStats(ctx context.Context, teamName string) ([]*UserStats, error)
}
