package user

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UsersRepoPg struct {
	logger *zap.SugaredLogger
	db     *gorm.DB
}

func NewUsersRepoPg(logger *zap.SugaredLogger, db *gorm.DB) *UsersRepoPg {
	return &UsersRepoPg{
		logger: logger,
		db:     db,
	}
}

func (repo *UsersRepoPg) GetByID(ctx context.Context, userID string) (*User, error) {
	repo.logger.Debugw("GetByID()", "userID", userID)

	var user User
	if err := repo.db.WithContext(ctx).First(&user, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			repo.logger.Warnw("user does not exist", "userID", userID)
			return nil, ErrUserNotFound
		}
		repo.logger.Errorw("error finding user", "userID", userID, "err", err)
		return nil, err
	}

	return &user, nil
}

func (repo *UsersRepoPg) ListByIDs(ctx context.Context, userIDs []string) ([]*User, error) {
	repo.logger.Debugw("ListByIDs()", "count", len(userIDs))

	users := []*User{}
	if len(userIDs) == 0 {
		return users, nil
	}

	if err := repo.db.WithContext(ctx).
		Where("user_id IN ?", userIDs).
		Order("user_id ASC").
		Find(&users).Error; err != nil {
		repo.logger.Errorw("error listing users by ids", "err", err)
		return nil, err
	}

	return users, nil
}

func (repo *UsersRepoPg) ListByTeam(ctx context.Context, teamName string) ([]*User, error) {
	repo.logger.Debugw("ListByTeam()", "teamName", teamName)

	users := []*User{}
	if err := repo.db.WithContext(ctx).
		Where("team_name = ?", teamName).
		Order("user_id ASC").
		Find(&users).Error; err != nil {
		repo.logger.Errorw("error listing team users", "teamName", teamName, "err", err)
		return nil, err
	}

	return users, nil
}

func (repo *UsersRepoPg) ListActiveByTeamExcept(ctx context.Context, teamName string, excludeIDs []string, limit int) ([]*User, error) {
	repo.logger.Debugw("ListActiveByTeamExcept()", "teamName", teamName, "excluded", len(excludeIDs), "limit", limit)

	query := repo.db.WithContext(ctx).
		Where("team_name = ? AND is_active = ?", teamName, true)

	if len(excludeIDs) > 0 {
		query = query.Where("user_id NOT IN ?", excludeIDs)
	}
	// с лимитом берем случайную выборку, иначе хвост по user_id никогда не попадет в кандидаты
	if limit > 0 {
		query = query.Order("RANDOM()").Limit(limit)
	} else {
		query = query.Order("user_id ASC")
	}

	users := []*User{}
	if err := query.Find(&users).Error; err != nil {
		repo.logger.Errorw("error listing active team users", "teamName", teamName, "err", err)
		return nil, err
	}

	return users, nil
}

func (repo *UsersRepoPg) ListActiveExcept(ctx context.Context, excludeIDs []string, limit int) ([]*User, error) {
	repo.logger.Debugw("ListActiveExcept()", "excluded", len(excludeIDs), "limit", limit)

	query := repo.db.WithContext(ctx).Where("is_active = ?", true)

	if len(excludeIDs) > 0 {
		query = query.Where("user_id NOT IN ?", excludeIDs)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	users := []*User{}
	if err := query.Order("RANDOM()").Find(&users).Error; err != nil {
		repo.logger.Errorw("error sampling active users", "err", err)
		return nil, err
	}

	return users, nil
}

func (repo *UsersRepoPg) Insert(ctx context.Context, users []*User) error {
	repo.logger.Debugw("Insert()", "count", len(users))

	if len(users) == 0 {
		return nil
	}

	if err := repo.db.WithContext(ctx).Create(&users).Error; err != nil {
		repo.logger.Errorw("error inserting users", "err", err)
		return err
	}

	return nil
}

// Update перезаписывает имя, команду и флаг активности. Через map, потому что
// gorm пропускает нулевые значения в Updates со структурой, а is_active=false нам важен.
func (repo *UsersRepoPg) Update(ctx context.Context, users []*User) error {
	repo.logger.Debugw("Update()", "count", len(users))

	for _, u := range users {
		tx := repo.db.WithContext(ctx).
			Model(&User{}).
			Where("user_id = ?", u.UserID).
			Updates(map[string]any{
				"username":  u.Username,
				"team_name": u.TeamName,
				"is_active": u.IsActive,
			})

		if tx.Error != nil {
			repo.logger.Errorw("error updating user", "userID", u.UserID, "err", tx.Error)
			return tx.Error
		}
		if tx.RowsAffected == 0 {
			repo.logger.Warnw("user vanished before update", "userID", u.UserID)
			return ErrUserNotFound
		}
	}

	return nil
}

func (repo *UsersRepoPg) SetIsActive(ctx context.Context, userID string, isActive bool) (*User, error) {
	repo.logger.Debugw("SetIsActive()", "userID", userID, "isActive", isActive)

	var user User
	tx := repo.db.WithContext(ctx).
		Model(&user).
		Where("user_id = ?", userID).
		Clauses(clause.Returning{}).
		Update("is_active", isActive)

	if tx.Error != nil {
		repo.logger.Errorw("error setting is_active", "userID", userID, "err", tx.Error)
		return nil, tx.Error
	}

	if tx.RowsAffected == 0 {
		repo.logger.Warnw("error setting is_active - no user found with this id", "userID", userID)
		return nil, ErrUserNotFound
	}

	repo.logger.Debugw("is_active set", "userID", userID)
	return &user, nil
}

func (repo *UsersRepoPg) DeactivateActive(ctx context.Context, userIDs []string) (int64, error) {
	repo.logger.Debugw("DeactivateActive()", "count", len(userIDs))

	if len(userIDs) == 0 {
		return 0, nil
	}

	tx := repo.db.WithContext(ctx).
		Model(&User{}).
		Where("user_id IN ? AND is_active = ?", userIDs, true).
		Update("is_active", false)

	if tx.Error != nil {
		repo.logger.Errorw("error deactivating users", "err", tx.Error)
		return 0, tx.Error
	}

	repo.logger.Debugw("users deactivated", "affected", tx.RowsAffected)
	return tx.RowsAffected, nil
}
