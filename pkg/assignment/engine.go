// Package assignment - выбор ревьюверов. Политика простая и намеренно такой остается:
// равновероятный случайный выбор среди подходящих, максимум два ревьювера на PR,
// автор и неактивные пользователи не назначаются, один человек не назначается дважды.
package assignment

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"reviewassigner/pkg/pullrequest"
	"reviewassigner/pkg/storage"
	"reviewassigner/pkg/user"

	"go.uber.org/zap"
)

// MaxReviewers - константа политики, а не настройка. Выносить в конфиг смысла не вижу.
const MaxReviewers = 2

const (
	// TeamCandidateLimit - сколько кандидатов из команды смотрим при переназначении
	TeamCandidateLimit = 100
	// WideCandidateLimit - сколько активных пользователей по всей системе смотрим при массовой деактивации
	WideCandidateLimit = 100
)

// Swap - одна замена (или удаление, если NewUserID пустой) ревьювера в PR
type Swap struct {
	PullRequestID string
	OldUserID     string
	NewUserID     string
}

func (s Swap) Dropped() bool {
	return s.NewUserID == ""
}

type Engine struct {
	logger *zap.SugaredLogger

	mu  sync.Mutex
	rnd *rand.Rand
}

// New - src можно зафиксировать в тестах, тогда выбор детерминирован
func New(logger *zap.SugaredLogger, src rand.Source) *Engine {
	if src == nil {
		src = rand.NewSource(time.Now().UnixNano())
	}
	return &Engine{
		logger: logger,
		rnd:    rand.New(src),
	}
}

// Sample выбирает до n различных пользователей равновероятно без возвращения.
// Если пул не больше n - возвращается весь пул.
func (e *Engine) Sample(pool []*user.User, n int) []*user.User {
	if n <= 0 {
		return []*user.User{}
	}

	out := make([]*user.User, len(pool))
	copy(out, pool)
	if len(out) <= n {
		return out
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	// частичный Фишер-Йетс: первые n позиций - случайная выборка
	for i := 0; i < n; i++ {
		j := i + e.rnd.Intn(len(out)-i)
		out[i], out[j] = out[j], out[i]
	}
	return out[:n]
}

// PickOne - один равновероятный кандидат; false, если пул пуст
func (e *Engine) PickOne(pool []*user.User) (*user.User, bool) {
	if len(pool) == 0 {
		return nil, false
	}

	e.mu.Lock()
	idx := e.rnd.Intn(len(pool))
	e.mu.Unlock()

	return pool[idx], true
}

// eligible убирает автора, дубликаты и неактивных - хранилище уже фильтрует,
// но гарантии политики проверяем на своей стороне.
func eligible(pool []*user.User, exclude map[string]struct{}) []*user.User {
	seen := make(map[string]struct{}, len(pool))
	out := make([]*user.User, 0, len(pool))
	for _, u := range pool {
		if u == nil || !u.IsActive {
			continue
		}
		if _, skip := exclude[u.UserID]; skip {
			continue
		}
		if _, dup := seen[u.UserID]; dup {
			continue
		}
		seen[u.UserID] = struct{}{}
		out = append(out, u)
	}
	return out
}

func excludeSet(ids ...[]string) map[string]struct{} {
	set := map[string]struct{}{}
	for _, group := range ids {
		for _, id := range group {
			if id != "" {
				set[id] = struct{}{}
			}
		}
	}
	return set
}

// AssignOnCreate - ревьюверы для нового PR из команды автора. Ничего не пишет.
func (e *Engine) AssignOnCreate(ctx context.Context, tx storage.Tx, author *user.User) ([]string, error) {
	e.logger.Debugw("AssignOnCreate()", "authorID", author.UserID, "teamName", author.TeamName)

	// весь пул без лимита, иначе выбор перестает быть равновероятным
	pool, err := tx.Users().ListActiveByTeamExcept(ctx, author.TeamName, []string{author.UserID}, 0)
	if err != nil {
		return nil, fmt.Errorf("list team candidates: %w", err)
	}

	picked := e.Sample(eligible(pool, excludeSet([]string{author.UserID})), MaxReviewers)
	return user.IDs(picked), nil
}

// ReassignOne меняет oldReviewer на случайного активного участника его команды.
// Проверки статуса PR и того, что oldReviewer назначен, делает вызывающий.
func (e *Engine) ReassignOne(ctx context.Context, tx storage.Tx, pr *pullrequest.PullRequest, oldReviewer *user.User) (string, error) {
	e.logger.Debugw("ReassignOne()", "prID", pr.PullRequestID, "oldUserID", oldReviewer.UserID, "teamName", oldReviewer.TeamName)

	exclude := excludeSet([]string{oldReviewer.UserID, pr.AuthorID}, pr.ReviewerIDs())
	excludeIDs := make([]string, 0, len(exclude))
	for id := range exclude {
		excludeIDs = append(excludeIDs, id)
	}

	pool, err := tx.Users().ListActiveByTeamExcept(ctx, oldReviewer.TeamName, excludeIDs, TeamCandidateLimit)
	if err != nil {
		return "", fmt.Errorf("list reassign candidates: %w", err)
	}

	candidate, ok := e.PickOne(eligible(pool, exclude))
	if !ok {
		e.logger.Warnw("no candidates for reassign", "prID", pr.PullRequestID, "oldUserID", oldReviewer.UserID)
		return "", pullrequest.ErrNoCandidate
	}

	if err := tx.PullRequests().ReplaceReviewer(ctx, pr.PullRequestID, oldReviewer.UserID, candidate.UserID); err != nil {
		return "", fmt.Errorf("replace reviewer: %w", err)
	}

	e.logger.Debugw("reviewer reassigned", "prID", pr.PullRequestID, "oldUserID", oldReviewer.UserID, "newUserID", candidate.UserID)
	return candidate.UserID, nil
}

// ReassignForDeactivated проходит по открытым PR, где среди ревьюверов есть кто-то из userIDs,
// и заменяет тех из них, кто на момент просмотра неактивен, на случайного активного пользователя
// из всей системы. Если замены нет - связь просто удаляется. Возвращает все замены и удаления.
func (e *Engine) ReassignForDeactivated(ctx context.Context, tx storage.Tx, userIDs []string) ([]Swap, error) {
	e.logger.Debugw("ReassignForDeactivated()", "count", len(userIDs))

	swaps := []Swap{}
	if len(userIDs) == 0 {
		return swaps, nil
	}

	prs, err := tx.PullRequests().ListOpenByReviewers(ctx, userIDs)
	if err != nil {
		return nil, fmt.Errorf("list affected prs: %w", err)
	}

	targets := excludeSet(userIDs)
	for _, pr := range prs {
		current := pr.ReviewerIDs()

		for _, reviewer := range pr.AssignedReviewers {
			if _, ok := targets[reviewer.UserID]; !ok || reviewer.IsActive {
				continue
			}

			exclude := excludeSet([]string{reviewer.UserID, pr.AuthorID}, current)
			excludeIDs := make([]string, 0, len(exclude))
			for id := range exclude {
				excludeIDs = append(excludeIDs, id)
			}

			pool, err := tx.Users().ListActiveExcept(ctx, excludeIDs, WideCandidateLimit)
			if err != nil {
				return nil, fmt.Errorf("list wide candidates: %w", err)
			}

			candidate, ok := e.PickOne(eligible(pool, exclude))
			if !ok {
				if err := tx.PullRequests().RemoveReviewer(ctx, pr.PullRequestID, reviewer.UserID); err != nil {
					return nil, fmt.Errorf("drop reviewer: %w", err)
				}
				current = without(current, reviewer.UserID)
				swaps = append(swaps, Swap{PullRequestID: pr.PullRequestID, OldUserID: reviewer.UserID})
				e.logger.Debugw("reviewer dropped, no candidate", "prID", pr.PullRequestID, "userID", reviewer.UserID)
				continue
			}

			if err := tx.PullRequests().ReplaceReviewer(ctx, pr.PullRequestID, reviewer.UserID, candidate.UserID); err != nil {
				return nil, fmt.Errorf("replace reviewer: %w", err)
			}
			current = append(without(current, reviewer.UserID), candidate.UserID)
			swaps = append(swaps, Swap{PullRequestID: pr.PullRequestID, OldUserID: reviewer.UserID, NewUserID: candidate.UserID})
		}
	}

	return swaps, nil
}

// CountReplaced - число реальных замен, удаления не считаются
func CountReplaced(swaps []Swap) int {
	n := 0
	for _, s := range swaps {
		if !s.Dropped() {
			n++
		}
	}
	return n
}

func without(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
