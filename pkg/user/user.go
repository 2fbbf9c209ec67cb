package user

import (
	"context"
	"errors"
	"time"
)

var (
	ErrUserNotFound = errors.New("USER_NOT_FOUND")
)

type User struct {
	UserID    string    `gorm:"primaryKey;type:varchar(64);column:user_id" json:"user_id"`
	Username  string    `gorm:"type:varchar(255);not null;column:username" json:"username"`
	TeamName  string    `gorm:"type:varchar(64);index;not null;column:team_name" json:"team_name"`
	IsActive  bool      `gorm:"not null;column:is_active" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UsersRepo - часть контракта хранилища, которая касается пользователей.
// Реализации не открывают своих транзакций: транзакцией управляет storage.Store,
// поэтому все методы безопасно вызывать внутри единицы работы.
type UsersRepo interface {
	GetByID(ctx context.Context, userID string) (*User, error)
	ListByIDs(ctx context.Context, userIDs []string) ([]*User, error)
	ListByTeam(ctx context.Context, teamName string) ([]*User, error)
	// ListActiveByTeamExcept - limit <= 0 означает без ограничения
	ListActiveByTeamExcept(ctx context.Context, teamName string, excludeIDs []string, limit int) ([]*User, error)
	// ListActiveExcept - случайная выборка активных пользователей по всей системе
	ListActiveExcept(ctx context.Context, excludeIDs []string, limit int) ([]*User, error)
	Insert(ctx context.Context, users []*User) error
	Update(ctx context.Context, users []*User) error
	SetIsActive(ctx context.Context, userID string, isActive bool) (*User, error)
	DeactivateActive(ctx context.Context, userIDs []string) (int64, error)
}

// IDs - вспомогательная штука, чтобы не писать один и тот же цикл в каждом сервисе
func IDs(users []*User) []string {
	out := make([]string, 0, len(users))
	for _, u := range users {
		if u != nil {
			out = append(out, u.UserID)
		}
	}
	return out
}
