package apidto

import (
	"reviewassigner/pkg/service"
	"reviewassigner/pkg/user"
)

type User struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	TeamName string `json:"team_name"`
	IsActive bool   `json:"is_active"`
}

func FromUser(u *user.User) User {
	if u == nil {
		return User{}
	}
	return User{
		UserID:   u.UserID,
		Username: u.Username,
		TeamName: u.TeamName,
		IsActive: u.IsActive,
	}
}

type Deactivation struct {
	DeactivatedCount   int `json:"deactivated_count"`
	ReassignedPRsCount int `json:"reassigned_prs_count"`
}

func FromDeactivation(res *service.BulkDeactivateResult) Deactivation {
	if res == nil {
		return Deactivation{}
	}
	return Deactivation{
		DeactivatedCount:   res.DeactivatedCount,
		ReassignedPRsCount: res.ReassignedPRsCount,
	}
}
