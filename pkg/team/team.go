package team

import (
	"context"
	"errors"
	"time"

	"reviewassigner/pkg/user"
)

var (
	ErrTeamExists   = errors.New("TEAM_EXISTS")
	ErrTeamNotFound = errors.New("TEAM_NOT_FOUND")
)

type Team struct {
	TeamName  string `gorm:"primaryKey;type:varchar(64);column:team_name"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Members []*user.User `gorm:"foreignKey:TeamName;references:TeamName;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

type TeamsRepo interface {
	Create(ctx context.Context, teamName string) (*Team, error)
	Exists(ctx context.Context, teamName string) (bool, error)
	Get(ctx context.Context, teamName string) (*Team, error)
}
