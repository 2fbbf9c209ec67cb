package team

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type TeamsRepoPg struct {
	logger *zap.SugaredLogger
	db     *gorm.DB
}

func NewTeamsRepoPg(logger *zap.SugaredLogger, db *gorm.DB) *TeamsRepoPg {
	return &TeamsRepoPg{
		logger: logger,
		db:     db,
	}
}

func (repo *TeamsRepoPg) Create(ctx context.Context, teamName string) (*Team, error) {
	repo.logger.Debugw("Create()", "teamName", teamName)

	team := Team{
		TeamName: teamName,
	}
	if err := repo.db.WithContext(ctx).Create(&team).Error; err != nil {
		// На сложных операциях, (как пример, транзакция), gorm не всегда отлавливает и оборачивает ошибки,
		// возвращая просто ошибку бд, которую приходится проверять вручную
		if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "SQLSTATE 23505") {
			repo.logger.Warnw("couldnt create team - already exists", "teamName", teamName)
			return nil, ErrTeamExists
		}
		repo.logger.Errorw("error creating team", "teamName", teamName, "err", err)
		return nil, err
	}

	repo.logger.Debugw("team created", "teamName", teamName)
	return &team, nil
}

func (repo *TeamsRepoPg) Exists(ctx context.Context, teamName string) (bool, error) {
	repo.logger.Debugw("Exists()", "teamName", teamName)

	var count int64
	if err := repo.db.WithContext(ctx).
		Model(&Team{}).
		Where("team_name = ?", teamName).
		Count(&count).Error; err != nil {
		repo.logger.Errorw("failed to check team", "teamName", teamName, "err", err)
		return false, err
	}

	return count > 0, nil
}

func (repo *TeamsRepoPg) Get(ctx context.Context, teamName string) (*Team, error) {
	repo.logger.Debugw("Get()", "teamName", teamName)

	var team Team
	if err := repo.db.WithContext(ctx).
		Preload("Members", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("users.user_id ASC")
		}).
		First(&team, "team_name = ?", teamName).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			repo.logger.Warnw("team not found", "teamName", teamName)
			return nil, ErrTeamNotFound
		}
		repo.logger.Errorw("failed to query team", "teamName", teamName, "err", err)
		return nil, err
	}

	repo.logger.Debugw("Team found", "teamName", teamName)
	return &team, nil
}
