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
	"reviewassigner/pkg/user"

	"go.uber.org/zap"
)

type UserService struct {
	logger *zap.SugaredLogger
	store  storage.Store
	cache  *cache.Client
	engine *assignment.Engine
}

func NewUserService(logger *zap.SugaredLogger, store storage.Store, cacheClient *cache.Client, engine *assignment.Engine) *UserService {
	return &UserService{
		logger: logger,
		store:  store,
		cache:  cacheClient,
		engine: engine,
	}
}

type BulkDeactivateResult struct {
	DeactivatedCount   int
	ReassignedPRsCount int
	Swaps              []assignment.Swap
}

// SetIsActive только переключает флаг, переназначения не запускает
func (s *UserService) SetIsActive(ctx context.Context, userID string, isActive bool) (*user.User, error) {
	s.logger.Debugw("SetIsActive()", "userID", userID, "isActive", isActive)

	var updated *user.User
	err := s.store.Transaction(ctx, func(tx storage.Tx) error {
		var err error
		updated, err = tx.Users().SetIsActive(ctx, userID, isActive)
		return err
	})
	if err != nil {
		s.logger.Warnw("error setting is_active", "userID", userID, "err", err)
		return nil, err
	}

	s.cache.Session(ctx).Apply(ctx, cache.OnActiveChanged(updated.TeamName))
	return updated, nil
}

// GetReviewAssignments - PR любого статуса, где пользователь ревьювер, новые первыми
func (s *UserService) GetReviewAssignments(ctx context.Context, userID string) ([]*pullrequest.PullRequest, error) {
	s.logger.Debugw("GetReviewAssignments()", "userID", userID)

	sess := s.cache.Session(ctx)

	var cached []*pullrequest.PullRequest
	if sess.Get(ctx, cache.ReviewsKey(userID), &cached) {
		return cached, nil
	}

	var prs []*pullrequest.PullRequest
	err := s.store.Transaction(ctx, func(tx storage.Tx) error {
		if _, err := tx.Users().GetByID(ctx, userID); err != nil {
			return err
		}

		var err error
		prs, err = tx.PullRequests().ListByReviewer(ctx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}

	sess.Set(ctx, cache.ReviewsKey(userID), prs)
	return prs, nil
}

// BulkDeactivate выключает пользователей и переназначает их открытые ревью.
// Пустой вход - ничего не делаем.
func (s *UserService) BulkDeactivate(ctx context.Context, userIDs []string) (*BulkDeactivateResult, error) {
	if len(userIDs) == 0 {
		return &BulkDeactivateResult{Swaps: []assignment.Swap{}}, nil
	}

	return s.bulkDeactivate(ctx, "bulk_deactivate", func(context.Context, storage.Tx) ([]string, error) {
		return userIDs, nil
	})
}

// DeactivateTeam - то же самое для всех участников команды
func (s *UserService) DeactivateTeam(ctx context.Context, teamName string) (*BulkDeactivateResult, error) {
	return s.bulkDeactivate(ctx, "team_deactivate", func(ctx context.Context, tx storage.Tx) ([]string, error) {
		exists, err := tx.Teams().Exists(ctx, teamName)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, team.ErrTeamNotFound
		}

		members, err := tx.Users().ListByTeam(ctx, teamName)
		if err != nil {
			return nil, err
		}
		return user.IDs(members), nil
	})
}

type idsResolver func(ctx context.Context, tx storage.Tx) ([]string, error)

func (s *UserService) bulkDeactivate(ctx context.Context, op string, resolve idsResolver) (res *BulkDeactivateResult, err error) {
	start := time.Now()
	defer func() { metrics.ObservePROp(op, start, opErr(err)) }()

	var (
		userIDs  []string
		snapshot []*user.User
		affected int64
		swaps    []assignment.Swap
	)

	err = s.store.Transaction(ctx, func(tx storage.Tx) error {
		var err error
		userIDs, err = resolve(ctx, tx)
		if err != nil {
			return err
		}
		if len(userIDs) == 0 {
			return nil
		}

		// до переключения флага, чтобы знать команды
		snapshot, err = tx.Users().ListByIDs(ctx, userIDs)
		if err != nil {
			return err
		}

		affected, err = tx.Users().DeactivateActive(ctx, userIDs)
		if err != nil {
			return err
		}

		swaps, err = s.engine.ReassignForDeactivated(ctx, tx, userIDs)
		return err
	})

	if err != nil {
		s.logger.Warnw("bulk deactivation failed", "op", op, "err", err)
		return nil, err
	}

	if swaps == nil {
		swaps = []assignment.Swap{}
	}

	teams := make([]string, 0, len(snapshot))
	for _, u := range snapshot {
		teams = append(teams, u.TeamName)
	}

	touched := make([]string, 0, len(swaps))
	for _, sw := range swaps {
		metrics.ObserveSwap("deactivation", sw.Dropped())
		if !sw.Dropped() {
			touched = append(touched, sw.NewUserID)
		}
	}

	if len(userIDs) > 0 {
		s.cache.Session(ctx).Apply(ctx, cache.OnBulkDeactivated(userIDs, teams, touched))
	}

	res = &BulkDeactivateResult{
		DeactivatedCount:   int(affected),
		ReassignedPRsCount: assignment.CountReplaced(swaps),
		Swaps:              swaps,
	}

	s.logger.Infow("users deactivated", "op", op, "requested", len(userIDs),
		"deactivated", res.DeactivatedCount, "reassigned", res.ReassignedPRsCount, "changes", len(swaps))
	return res, nil
}
