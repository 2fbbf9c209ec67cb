package cache

import "sort"

// Invalidation - набор ключей и префиксов, которые нужно вычистить после коммита мутации.
// Правило одно: после закоммиченной мутации в кеше не должно остаться значения,
// которое она изменила.
type Invalidation struct {
	keys     map[string]struct{}
	prefixes map[string]struct{}
}

func NewInvalidation() Invalidation {
	return Invalidation{
		keys:     map[string]struct{}{},
		prefixes: map[string]struct{}{},
	}
}

func (inv Invalidation) Key(keys ...string) Invalidation {
	for _, k := range keys {
		inv.keys[k] = struct{}{}
	}
	return inv
}

func (inv Invalidation) Prefix(prefixes ...string) Invalidation {
	for _, p := range prefixes {
		inv.prefixes[p] = struct{}{}
	}
	return inv
}

func (inv Invalidation) Teams(teamNames ...string) Invalidation {
	for _, name := range teamNames {
		if name != "" {
			inv.keys[TeamKey(name)] = struct{}{}
		}
	}
	return inv
}

func (inv Invalidation) Reviews(userIDs ...string) Invalidation {
	for _, id := range userIDs {
		if id != "" {
			inv.keys[ReviewsKey(id)] = struct{}{}
		}
	}
	return inv
}

// Stats - вся статистика (общая и по командам) живет под одним префиксом
func (inv Invalidation) Stats() Invalidation {
	inv.prefixes[StatsPrefix] = struct{}{}
	return inv
}

func (inv Invalidation) Empty() bool {
	return len(inv.keys) == 0 && len(inv.prefixes) == 0
}

func (inv Invalidation) Keys() []string {
	return sortedKeys(inv.keys)
}

func (inv Invalidation) Prefixes() []string {
	return sortedKeys(inv.prefixes)
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Политика: какая мутация что трогает.

// OnTeamCreated - новая команда, ее участники (у перенесенных меняется команда в ответах),
// команды, из которых участников забрали, и статистика (там username и team_name).
func OnTeamCreated(teamName string, memberIDs, previousTeams []string) Invalidation {
	return NewInvalidation().
		Teams(teamName).
		Teams(previousTeams...).
		Reviews(memberIDs...).
		Stats()
}

// OnActiveChanged - флаг активности виден только в составе команды
func OnActiveChanged(teamName string) Invalidation {
	return NewInvalidation().Teams(teamName)
}

// OnPRCreated - списки ревью назначенных и статистика
func OnPRCreated(reviewerIDs []string) Invalidation {
	return NewInvalidation().Reviews(reviewerIDs...).Stats()
}

// OnPRMerged - статус PR виден в списках ревью всех его ревьюверов
func OnPRMerged(reviewerIDs []string) Invalidation {
	return NewInvalidation().Reviews(reviewerIDs...).Stats()
}

func OnReviewerReassigned(oldUserID, newUserID string) Invalidation {
	return NewInvalidation().Reviews(oldUserID, newUserID).Stats()
}

// OnBulkDeactivated - команды затронутых пользователей, их списки ревью,
// списки ревью тех, кто получил PR при замене, и статистика.
func OnBulkDeactivated(userIDs, teamNames, touchedReviewerIDs []string) Invalidation {
	return NewInvalidation().
		Teams(teamNames...).
		Reviews(userIDs...).
		Reviews(touchedReviewerIDs...).
		Stats()
}
