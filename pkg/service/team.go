package service

import (
	"context"
	"time"

	"reviewassigner/internal/metrics"
	"reviewassigner/pkg/cache"
	"reviewassigner/pkg/pullrequest"
	"reviewassigner/pkg/storage"
	"reviewassigner/pkg/team"
	"reviewassigner/pkg/user"

	"go.uber.org/zap"
)

type TeamService struct {
	logger *zap.SugaredLogger
	store  storage.Store
	cache  *cache.Client
}

func NewTeamService(logger *zap.SugaredLogger, store storage.Store, cacheClient *cache.Client) *TeamService {
	return &TeamService{
		logger: logger,
		store:  store,
		cache:  cacheClient,
	}
}

// CreateTeam создает команду и апсертит участников по id: существующие пользователи
// переезжают в новую команду с перезаписью username/is_active.
func (s *TeamService) CreateTeam(ctx context.Context, teamName string, members []*user.User) (created *team.Team, err error) {
	start := time.Now()
	defer func() { metrics.ObservePROp("team_create", start, opErr(err)) }()

	s.logger.Debugw("CreateTeam()", "teamName", teamName, "membersCount", len(members))

	var plan team.Plan
	err = s.store.Transaction(ctx, func(tx storage.Tx) error {
		exists, err := tx.Teams().Exists(ctx, teamName)
		if err != nil {
			return err
		}
		if exists {
			s.logger.Warnw("couldnt create team - already exists", "teamName", teamName)
			return team.ErrTeamExists
		}

		if _, err := tx.Teams().Create(ctx, teamName); err != nil {
			return err
		}

		existing, err := tx.Users().ListByIDs(ctx, user.IDs(members))
		if err != nil {
			return err
		}

		plan = team.Reconcile(teamName, existing, members)
		s.logger.Debugw("team members reconciled", "teamName", teamName,
			"inserts", len(plan.Inserts), "updates", len(plan.Updates), "previousTeams", plan.PreviousTeams)

		if err := tx.Users().Update(ctx, plan.Updates); err != nil {
			return err
		}
		if err := tx.Users().Insert(ctx, plan.Inserts); err != nil {
			return err
		}

		created, err = tx.Teams().Get(ctx, teamName)
		return err
	})

	if err != nil {
		s.logger.Warnw("failed to create team", "teamName", teamName, "err", err)
		return nil, err
	}

	sess := s.cache.Session(ctx)
	sess.Apply(ctx, cache.OnTeamCreated(teamName, plan.MemberIDs(), plan.PreviousTeams))
	sess.Set(ctx, cache.TeamKey(teamName), created)

	s.logger.Debugw("created team", "teamName", teamName, "membersCount", len(created.Members))
	return created, nil
}

func (s *TeamService) GetTeam(ctx context.Context, teamName string) (*team.Team, error) {
	s.logger.Debugw("GetTeam()", "teamName", teamName)

	sess := s.cache.Session(ctx)

	var cached team.Team
	if sess.Get(ctx, cache.TeamKey(teamName), &cached) {
		return &cached, nil
	}

	var found *team.Team
	err := s.store.Transaction(ctx, func(tx storage.Tx) error {
		var err error
		found, err = tx.Teams().Get(ctx, teamName)
		return err
	})
	if err != nil {
		return nil, err
	}

	sess.Set(ctx, cache.TeamKey(teamName), found)
	return found, nil
}

// TeamReviewStats - сколько открытых и смерженных PR на ревью у каждого участника команды
func (s *TeamService) TeamReviewStats(ctx context.Context, teamName string) ([]*pullrequest.UserStats, error) {
	s.logger.Debugw("TeamReviewStats()", "teamName", teamName)

	sess := s.cache.Session(ctx)

	var cached []*pullrequest.UserStats
	if sess.Get(ctx, cache.TeamStatsKey(teamName), &cached) {
		return cached, nil
	}

	var stats []*pullrequest.UserStats
	err := s.store.Transaction(ctx, func(tx storage.Tx) error {
		exists, err := tx.Teams().Exists(ctx, teamName)
		if err != nil {
			return err
		}
		if !exists {
			return team.ErrTeamNotFound
		}

		stats, err = tx.PullRequests().ReviewerStats(ctx, teamName)
		return err
	})
	if err != nil {
		return nil, err
	}

	sess.Set(ctx, cache.TeamStatsKey(teamName), stats)
	return stats, nil
}
