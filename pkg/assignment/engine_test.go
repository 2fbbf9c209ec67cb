package assignment_test

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"reviewassigner/pkg/assignment"
	"reviewassigner/pkg/pullrequest"
	"reviewassigner/pkg/storage"
	"reviewassigner/pkg/storage/memory"
	"reviewassigner/pkg/user"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var ctx = context.Background()

func member(id, teamName string, active bool) *user.User {
	return &user.User{UserID: id, Username: "name-" + id, TeamName: teamName, IsActive: active}
}

func newStore(t *testing.T, members ...*user.User) *memory.Store {
	t.Helper()

	store := memory.New(zap.NewNop().Sugar())
	err := store.Transaction(ctx, func(tx storage.Tx) error {
		seen := map[string]bool{}
		for _, m := range members {
			if !seen[m.TeamName] {
				seen[m.TeamName] = true
				if _, err := tx.Teams().Create(ctx, m.TeamName); err != nil {
					return err
				}
			}
		}
		return tx.Users().Insert(ctx, members)
	})
	require.NoError(t, err)
	return store
}

func addPR(t *testing.T, store *memory.Store, prID, authorID string, merged bool, reviewers ...string) {
	t.Helper()

	err := store.Transaction(ctx, func(tx storage.Tx) error {
		pr := &pullrequest.PullRequest{
			PullRequestID:   prID,
			PullRequestName: "name-" + prID,
			AuthorID:        authorID,
			Status:          pullrequest.StatusOpen,
		}
		if err := tx.PullRequests().Create(ctx, pr); err != nil {
			return err
		}
		if err := tx.PullRequests().AddReviewers(ctx, prID, reviewers); err != nil {
			return err
		}
		if merged {
			return tx.PullRequests().SetMerged(ctx, prID, time.Now().UTC())
		}
		return nil
	})
	require.NoError(t, err)
}

func getPR(t *testing.T, store *memory.Store, prID string) *pullrequest.PullRequest {
	t.Helper()

	var pr *pullrequest.PullRequest
	err := store.Transaction(ctx, func(tx storage.Tx) error {
		var err error
		pr, err = tx.PullRequests().GetByID(ctx, prID, false)
		return err
	})
	require.NoError(t, err)
	return pr
}

func newEngine(seed int64) *assignment.Engine {
	return assignment.New(zap.NewNop().Sugar(), rand.NewSource(seed))
}

func TestEngine_Sample(t *testing.T) {
	engine := newEngine(1)
	pool := []*user.User{
		member("u1", "t", true), member("u2", "t", true), member("u3", "t", true),
		member("u4", "t", true), member("u5", "t", true),
	}

	picked := engine.Sample(pool, 2)
	require.Len(t, picked, 2)
	require.NotEqual(t, picked[0].UserID, picked[1].UserID)
	require.Subset(t, user.IDs(pool), user.IDs(picked))

	require.Equal(t, []string{"u1"}, user.IDs(engine.Sample(pool[:1], 2)))
	require.Empty(t, engine.Sample(pool, 0))
	require.Empty(t, engine.Sample(nil, 2))

	// исходный пул не перемешивается
	require.Equal(t, []string{"u1", "u2", "u3", "u4", "u5"}, user.IDs(pool))
}

func TestEngine_UniformChoice(t *testing.T) {
	engine := newEngine(42)
	pool := []*user.User{member("a", "t", true), member("b", "t", true), member("c", "t", true)}

	const rounds = 3000

	single := map[string]int{}
	pairs := map[string]int{}
	for i := 0; i < rounds; i++ {
		one, ok := engine.PickOne(pool)
		require.True(t, ok)
		single[one.UserID]++

		for _, u := range engine.Sample(pool, 2) {
			pairs[u.UserID]++
		}
	}

	for _, id := range []string{"a", "b", "c"} {
		require.InDelta(t, rounds/3, single[id], 150, "PickOne bias for %s", id)
		require.InDelta(t, rounds*2/3, pairs[id], 150, "Sample bias for %s", id)
	}

	_, ok := engine.PickOne(nil)
	require.False(t, ok)
}

func TestEngine_AssignOnCreate(t *testing.T) {
	t.Run("two distinct active teammates, never the author", func(t *testing.T) {
		store := newStore(t,
			member("a", "backend", true),
			member("b", "backend", true),
			member("c", "backend", true),
			member("f", "backend", true),
			member("d", "backend", false),
			member("x", "frontend", true),
		)
		author := member("a", "backend", true)

		for seed := int64(0); seed < 50; seed++ {
			engine := newEngine(seed)
			err := store.Transaction(ctx, func(tx storage.Tx) error {
				ids, err := engine.AssignOnCreate(ctx, tx, author)
				require.NoError(t, err)
				require.Len(t, ids, assignment.MaxReviewers)
				require.NotEqual(t, ids[0], ids[1])
				require.Subset(t, []string{"b", "c", "f"}, ids)
				return nil
			})
			require.NoError(t, err)
		}
	})

	t.Run("single candidate", func(t *testing.T) {
		store := newStore(t, member("a", "backend", true), member("b", "backend", true), member("d", "backend", false))

		err := store.Transaction(ctx, func(tx storage.Tx) error {
			ids, err := newEngine(1).AssignOnCreate(ctx, tx, member("a", "backend", true))
			require.NoError(t, err)
			require.Equal(t, []string{"b"}, ids)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("author alone", func(t *testing.T) {
		store := newStore(t, member("a", "backend", true), member("x", "frontend", true))

		err := store.Transaction(ctx, func(tx storage.Tx) error {
			ids, err := newEngine(1).AssignOnCreate(ctx, tx, member("a", "backend", true))
			require.NoError(t, err)
			require.Empty(t, ids)
			return nil
		})
		require.NoError(t, err)
	})
}

func TestEngine_ReassignOne(t *testing.T) {
	t.Run("replaces with the only eligible teammate", func(t *testing.T) {
		store := newStore(t,
			member("a", "backend", true),
			member("b", "backend", true),
			member("c", "backend", true),
			member("f", "backend", true),
			member("g", "backend", false),
			member("x", "frontend", true),
		)
		addPR(t, store, "pr-1", "a", false, "b", "c")

		err := store.Transaction(ctx, func(tx storage.Tx) error {
			pr, err := tx.PullRequests().GetByID(ctx, "pr-1", true)
			require.NoError(t, err)
			old, ok := pullrequest.FindReviewer(pr, "b")
			require.True(t, ok)

			newID, err := newEngine(7).ReassignOne(ctx, tx, pr, old)
			require.NoError(t, err)
			require.Equal(t, "f", newID)
			return nil
		})
		require.NoError(t, err)

		require.Equal(t, []string{"c", "f"}, getPR(t, store, "pr-1").ReviewerIDs())
	})

	t.Run("uses the old reviewer's team", func(t *testing.T) {
		store := newStore(t,
			member("a", "backend", true),
			member("b", "backend", true),
			member("x", "frontend", true),
			member("y", "frontend", true),
		)
		addPR(t, store, "pr-1", "a", false, "b", "x")

		// x из frontend, поэтому замена ищется только там
		err := store.Transaction(ctx, func(tx storage.Tx) error {
			pr, err := tx.PullRequests().GetByID(ctx, "pr-1", true)
			require.NoError(t, err)
			old, _ := pullrequest.FindReviewer(pr, "x")

			newID, err := newEngine(3).ReassignOne(ctx, tx, pr, old)
			require.NoError(t, err)
			require.Equal(t, "y", newID)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("no candidate", func(t *testing.T) {
		store := newStore(t,
			member("a", "backend", true),
			member("b", "backend", true),
			member("c", "backend", true),
			member("d", "backend", false),
		)
		addPR(t, store, "pr-1", "a", false, "b", "c")

		err := store.Transaction(ctx, func(tx storage.Tx) error {
			pr, err := tx.PullRequests().GetByID(ctx, "pr-1", true)
			require.NoError(t, err)
			old, _ := pullrequest.FindReviewer(pr, "b")

			_, err = newEngine(1).ReassignOne(ctx, tx, pr, old)
			return err
		})
		require.ErrorIs(t, err, pullrequest.ErrNoCandidate)

		require.Equal(t, []string{"b", "c"}, getPR(t, store, "pr-1").ReviewerIDs())
	})
}

func TestEngine_ReassignForDeactivated(t *testing.T) {
	deactivate := func(t *testing.T, store *memory.Store, ids ...string) []assignment.Swap {
		t.Helper()

		var swaps []assignment.Swap
		err := store.Transaction(ctx, func(tx storage.Tx) error {
			if _, err := tx.Users().DeactivateActive(ctx, ids); err != nil {
				return err
			}
			var err error
			swaps, err = newEngine(11).ReassignForDeactivated(ctx, tx, ids)
			return err
		})
		require.NoError(t, err)
		return swaps
	}

	t.Run("swaps with active users from any team", func(t *testing.T) {
		store := newStore(t,
			member("a", "backend", true),
			member("b", "backend", true),
			member("c", "backend", true),
			member("x", "frontend", true),
			member("y", "frontend", true),
		)
		addPR(t, store, "pr-open", "a", false, "b", "c")
		addPR(t, store, "pr-merged", "a", true, "b")

		swaps := deactivate(t, store, "b", "c")
		require.Len(t, swaps, 2)
		require.Equal(t, 2, assignment.CountReplaced(swaps))

		reviewers := getPR(t, store, "pr-open").ReviewerIDs()
		require.ElementsMatch(t, []string{"x", "y"}, reviewers)

		require.Equal(t, []string{"b"}, getPR(t, store, "pr-merged").ReviewerIDs())
	})

	t.Run("drops reviewer when nobody is left", func(t *testing.T) {
		store := newStore(t,
			member("a", "backend", true),
			member("b", "backend", true),
		)
		addPR(t, store, "pr-1", "a", false, "b")

		swaps := deactivate(t, store, "b")
		require.Len(t, swaps, 1)
		require.True(t, swaps[0].Dropped())
		require.Equal(t, 0, assignment.CountReplaced(swaps))

		require.Empty(t, getPR(t, store, "pr-1").ReviewerIDs())
	})

	t.Run("still active users are left alone", func(t *testing.T) {
		store := newStore(t,
			member("a", "backend", true),
			member("b", "backend", true),
			member("x", "frontend", true),
		)
		addPR(t, store, "pr-1", "a", false, "b")

		var swaps []assignment.Swap
		err := store.Transaction(ctx, func(tx storage.Tx) error {
			var err error
			swaps, err = newEngine(1).ReassignForDeactivated(ctx, tx, []string{"b"})
			return err
		})
		require.NoError(t, err)
		require.Empty(t, swaps)
		require.Equal(t, []string{"b"}, getPR(t, store, "pr-1").ReviewerIDs())
	})
}
