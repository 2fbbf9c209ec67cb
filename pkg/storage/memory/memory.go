// Package memory - хранилище в памяти процесса. Используется для локального запуска
// без Postgres (STORAGE_DRIVER=memory) и в тестах сервисов/хендлеров.
//
// Транзакция работает на копии состояния: при успехе копия подменяет текущее состояние,
// при ошибке просто выбрасывается. Транзакции сериализуются мьютексом.
package memory

import (
	"context"
	"sync"
	"time"

	"reviewassigner/pkg/pullrequest"
	"reviewassigner/pkg/storage"
	"reviewassigner/pkg/team"
	"reviewassigner/pkg/user"

	"go.uber.org/zap"
)

type state struct {
	teams map[string]*team.Team
	users map[string]*user.User
	prs   map[string]*pullrequest.PullRequest
	// links[prID][userID]
	links map[string]map[string]struct{}
}

func newState() *state {
	return &state{
		teams: map[string]*team.Team{},
		users: map[string]*user.User{},
		prs:   map[string]*pullrequest.PullRequest{},
		links: map[string]map[string]struct{}{},
	}
}

func (s *state) clone() *state {
	out := newState()
	for k, v := range s.teams {
		t := *v
		t.Members = nil
		out.teams[k] = &t
	}
	for k, v := range s.users {
		u := *v
		out.users[k] = &u
	}
	for k, v := range s.prs {
		out.prs[k] = copyPR(v)
	}
	for pr, set := range s.links {
		cp := make(map[string]struct{}, len(set))
		for id := range set {
			cp[id] = struct{}{}
		}
		out.links[pr] = cp
	}
	return out
}

type Store struct {
	mu     sync.Mutex
	st     *state
	logger *zap.SugaredLogger
	now    func() time.Time
}

func New(logger *zap.SugaredLogger) *Store {
	return &Store{
		st:     newState(),
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

var _ storage.Store = (*Store)(nil)

func (s *Store) Transaction(ctx context.Context, fn func(tx storage.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.st.clone()
	if err := fn(&memTx{st: work, now: s.now}); err != nil {
		s.logger.Debugw("memory transaction rolled back", "err", err)
		return err
	}

	s.st = work
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

type memTx struct {
	st  *state
	now func() time.Time
}

func (t *memTx) Users() user.UsersRepo                     { return &usersRepo{t} }
func (t *memTx) Teams() team.TeamsRepo                     { return &teamsRepo{t} }
func (t *memTx) PullRequests() pullrequest.PullRequestsRepo { return &prsRepo{t} }

func copyUser(u *user.User) *user.User {
	cp := *u
	return &cp
}

func copyPR(pr *pullrequest.PullRequest) *pullrequest.PullRequest {
	cp := *pr
	cp.AssignedReviewers = nil
	if pr.MergedAt != nil {
		at := *pr.MergedAt
		cp.MergedAt = &at
	}
	return &cp
}
