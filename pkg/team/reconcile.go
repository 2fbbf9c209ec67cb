package team

import (
	"sort"

	"reviewassigner/pkg/user"
)

// Plan - результат сверки входящих участников с уже существующими пользователями.
// Updates переносят пользователя в новую команду и перезаписывают username/is_active,
// Inserts создают новых. PreviousTeams - команды, из которых пользователей забрали
// (нужны для инвалидации кеша).
type Plan struct {
	Inserts       []*user.User
	Updates       []*user.User
	PreviousTeams []string
}

// Reconcile строит план апсерта по id. Если id встречается во входе несколько раз,
// побеждает последнее вхождение.
func Reconcile(teamName string, existing, incoming []*user.User) Plan {
	byID := make(map[string]*user.User, len(existing))
	for _, u := range existing {
		byID[u.UserID] = u
	}

	last := make(map[string]int, len(incoming))
	for i, m := range incoming {
		last[m.UserID] = i
	}

	prevTeams := make(map[string]struct{})
	plan := Plan{
		Inserts: []*user.User{},
		Updates: []*user.User{},
	}

	for i, m := range incoming {
		if last[m.UserID] != i {
			continue
		}

		target := &user.User{
			UserID:   m.UserID,
			Username: m.Username,
			TeamName: teamName,
			IsActive: m.IsActive,
		}

		old, ok := byID[m.UserID]
		if !ok {
			plan.Inserts = append(plan.Inserts, target)
			continue
		}

		if old.TeamName != "" && old.TeamName != teamName {
			prevTeams[old.TeamName] = struct{}{}
		}
		target.CreatedAt = old.CreatedAt
		plan.Updates = append(plan.Updates, target)
	}

	plan.PreviousTeams = make([]string, 0, len(prevTeams))
	for name := range prevTeams {
		plan.PreviousTeams = append(plan.PreviousTeams, name)
	}
	sort.Strings(plan.PreviousTeams)

	return plan
}

// MemberIDs - id всех участников плана: сначала новые, потом перенесенные.
func (p Plan) MemberIDs() []string {
	return append(user.IDs(p.Inserts), user.IDs(p.Updates)...)
}
