package service

import (
	"context"
	"time"

	"reviewassigner/internal/metrics"
	"reviewassigner/pkg/assignment"
	"reviewassigner/pkg/cache"
	"reviewassigner/pkg/pullrequest"
	"reviewassigner/pkg/storage"
	"reviewassigner/pkg/team"

	"go.uber.org/zap"
)

type PullRequestService struct {
	logger *zap.SugaredLogger
	store  storage.Store
	cache  *cache.Client
	engine *assignment.Engine
	now    func() time.Time
}

func NewPullRequestService(logger *zap.SugaredLogger, store storage.Store, cacheClient *cache.Client, engine *assignment.Engine) *PullRequestService {
	return &PullRequestService{
		logger: logger,
		store:  store,
		cache:  cacheClient,
		engine: engine,
		now:    utcNow,
	}
}

// WithClock подменяет часы (для тестов)
func (s *PullRequestService) WithClock(now func() time.Time) *PullRequestService {
	s.now = now
	return s
}

func (s *PullRequestService) Create(ctx context.Context, prID, prName, authorID string) (pr *pullrequest.PullRequest, err error) {
	start := time.Now()
	defer func() { metrics.ObservePROp("create", start, opErr(err)) }()

	s.logger.Debugw("Create()", "prID", prID, "authorID", authorID)

	err = s.store.Transaction(ctx, func(tx storage.Tx) error {
		exists, err := tx.PullRequests().Exists(ctx, prID)
		if err != nil {
			return err
		}
		if exists {
			s.logger.Warnw("PR already exists", "prID", prID)
			return pullrequest.ErrPRExists
		}

		author, err := tx.Users().GetByID(ctx, authorID)
		if err != nil {
			s.logger.Warnw("Author lookup failed", "prID", prID, "authorID", authorID, "err", err)
			return err
		}

		teamExists, err := tx.Teams().Exists(ctx, author.TeamName)
		if err != nil {
			return err
		}
		if !teamExists {
			s.logger.Warnw("Author team does not exist", "prID", prID, "teamName", author.TeamName)
			return team.ErrTeamNotFound
		}

		reviewerIDs, err := s.engine.AssignOnCreate(ctx, tx, author)
		if err != nil {
			return err
		}

		created := &pullrequest.PullRequest{
			PullRequestID:   prID,
			PullRequestName: prName,
			AuthorID:        authorID,
			Status:          pullrequest.StatusOpen,
			CreatedAt:       s.now(),
		}
		if err := tx.PullRequests().Create(ctx, created); err != nil {
			return err
		}

		if err := tx.PullRequests().AddReviewers(ctx, prID, reviewerIDs); err != nil {
			return err
		}

		pr, err = tx.PullRequests().GetByID(ctx, prID, false)
		return err
	})

	if err != nil {
		s.logger.Warnw("Error creating PR", "prID", prID, "authorID", authorID, "err", err)
		return nil, err
	}

	metrics.AddOpenPR(1)
	s.cache.Session(ctx).Apply(ctx, cache.OnPRCreated(pr.ReviewerIDs()))

	s.logger.Debugw("PR created", "prID", prID, "reviewers", pr.ReviewerIDs())
	return pr, nil
}

// Merge идемпотентен: повторный вызов возвращает PR как есть, mergedAt не меняется
func (s *PullRequestService) Merge(ctx context.Context, prID string) (pr *pullrequest.PullRequest, err error) {
	start := time.Now()
	defer func() { metrics.ObservePROp("merge", start, opErr(err)) }()

	s.logger.Debugw("Merge()", "prID", prID)

	var transitioned bool
	err = s.store.Transaction(ctx, func(tx storage.Tx) error {
		current, err := tx.PullRequests().GetByID(ctx, prID, true)
		if err != nil {
			return err
		}

		if current.IsMerged() {
			s.logger.Debugw("PR already merged", "prID", prID)
			pr = current
			return nil
		}

		if err := tx.PullRequests().SetMerged(ctx, prID, s.now()); err != nil {
			return err
		}

		transitioned = true
		pr, err = tx.PullRequests().GetByID(ctx, prID, false)
		return err
	})

	if err != nil {
		s.logger.Warnw("Error merging PR", "prID", prID, "err", err)
		return nil, err
	}

	if transitioned {
		metrics.AddOpenPR(-1)
		s.cache.Session(ctx).Apply(ctx, cache.OnPRMerged(pr.ReviewerIDs()))
	}

	s.logger.Debugw("Merged", "prID", prID, "transitioned", transitioned)
	return pr, nil
}

func (s *PullRequestService) Reassign(ctx context.Context, prID, oldUserID string) (pr *pullrequest.PullRequest, replacedBy string, err error) {
	start := time.Now()
	defer func() { metrics.ObservePROp("reassign", start, opErr(err)) }()

	s.logger.Debugw("Reassign()", "prID", prID, "oldUserID", oldUserID)

	err = s.store.Transaction(ctx, func(tx storage.Tx) error {
		current, err := tx.PullRequests().GetByID(ctx, prID, true)
		if err != nil {
			return err
		}

		if current.IsMerged() {
			s.logger.Warnw("PR already merged", "prID", prID)
			return pullrequest.ErrPRMerged
		}

		oldReviewer, ok := pullrequest.FindReviewer(current, oldUserID)
		if !ok {
			s.logger.Warnw("no reviewer to reassign", "prID", prID, "oldUserID", oldUserID)
			return pullrequest.ErrNotAssigned
		}

		replacedBy, err = s.engine.ReassignOne(ctx, tx, current, oldReviewer)
		if err != nil {
			return err
		}

		pr, err = tx.PullRequests().GetByID(ctx, prID, false)
		return err
	})

	if err != nil {
		s.logger.Warnw("Error reassigning PR", "prID", prID, "oldUserID", oldUserID, "err", err)
		return nil, "", err
	}

	metrics.ObserveSwap("reassign", false)
	s.cache.Session(ctx).Apply(ctx, cache.OnReviewerReassigned(oldUserID, replacedBy))

	s.logger.Debugw("Reassigned PR", "prID", prID, "oldUserID", oldUserID, "replacedBy", replacedBy)
	return pr, replacedBy, nil
}

func (s *PullRequestService) Get(ctx context.Context, prID string) (*pullrequest.PullRequest, error) {
	s.logger.Debugw("Get()", "prID", prID)

	var pr *pullrequest.PullRequest
	err := s.store.Transaction(ctx, func(tx storage.Tx) error {
		var err error
		pr, err = tx.PullRequests().GetByID(ctx, prID, false)
		return err
	})
	if err != nil {
		return nil, err
	}

	return pr, nil
}
