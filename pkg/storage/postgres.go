package storage

import (
	"context"

	"reviewassigner/pkg/pullrequest"
	"reviewassigner/pkg/team"
	"reviewassigner/pkg/user"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type PostgresStore struct {
	logger *zap.SugaredLogger
	db     *gorm.DB
}

func NewPostgresStore(logger *zap.SugaredLogger, db *gorm.DB) *PostgresStore {
	return &PostgresStore{
		logger: logger,
		db:     db,
	}
}

type pgTx struct {
	users *user.UsersRepoPg
	teams *team.TeamsRepoPg
	prs   *pullrequest.PullRequestsRepoPg
}

func (t *pgTx) Users() user.UsersRepo                     { return t.users }
func (t *pgTx) Teams() team.TeamsRepo                     { return t.teams }
func (t *pgTx) PullRequests() pullrequest.PullRequestsRepo { return t.prs }

func (s *PostgresStore) Transaction(ctx context.Context, fn func(tx Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(gtx *gorm.DB) error {
		return fn(&pgTx{
			users: user.NewUsersRepoPg(s.logger, gtx),
			teams: team.NewTeamsRepoPg(s.logger, gtx),
			prs:   pullrequest.NewPullRequestsRepoPg(s.logger, gtx),
		})
	})
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
