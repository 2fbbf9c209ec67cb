package initializers

import (
	"bytes"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"

	"reviewassigner/internal/handlers/mdlwr"
	"reviewassigner/pkg/assignment"
	"reviewassigner/pkg/cache"
	"reviewassigner/pkg/handlers/apierr"
	"reviewassigner/pkg/storage/memory"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()

	gin.SetMode(gin.TestMode)

	logger := zap.NewNop()
	sugar := logger.Sugar()
	store := memory.New(sugar)
	engine := assignment.New(sugar, rand.NewSource(1))

	return NewRouter(logger, NewHandlers(sugar, store, cache.Disabled(sugar), engine))
}

func do(t *testing.T, router *gin.Engine, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

type prBody struct {
	PullRequestID     string   `json:"pull_request_id"`
	AuthorID          string   `json:"author_id"`
	Status            string   `json:"status"`
	AssignedReviewers []string `json:"assigned_reviewers"`
	MergedAt          *string  `json:"mergedAt"`
}

type prEnvelope struct {
	PR         prBody `json:"pr"`
	ReplacedBy string `json:"replaced_by"`
}

func addTeam(t *testing.T, router *gin.Engine, name string, members ...map[string]any) {
	t.Helper()

	w := do(t, router, http.MethodPost, "/team/add", map[string]any{
		"team_name": name,
		"members":   members,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func member(id, name string, active bool) map[string]any {
	return map[string]any{"user_id": id, "username": name, "is_active": active}
}

func TestRouter_TeamFlow(t *testing.T) {
	router := newTestRouter(t)

	addTeam(t, router, "backend", member("u1", "Alice", true), member("u2", "Bob", true), member("u3", "Carol", false))

	w := do(t, router, http.MethodPost, "/team/add", map[string]any{
		"team_name": "backend",
		"members":   []map[string]any{member("u9", "Zed", true)},
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "TEAM_EXISTS", decode[apierr.ErrResponse](t, w).Error.Code)

	w = do(t, router, http.MethodGet, "/team/get?team_name=backend", nil)
	require.Equal(t, http.StatusOK, w.Code)

	type teamBody struct {
		TeamName string `json:"team_name"`
		Members  []struct {
			UserID   string `json:"user_id"`
			IsActive bool   `json:"is_active"`
		} `json:"members"`
	}
	got := decode[teamBody](t, w)
	require.Equal(t, "backend", got.TeamName)
	require.Len(t, got.Members, 3)
	require.False(t, got.Members[2].IsActive)

	w = do(t, router, http.MethodGet, "/team/get?team_name=nope", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "NOT_FOUND", decode[apierr.ErrResponse](t, w).Error.Code)

	w = do(t, router, http.MethodPost, "/users/setIsActive", map[string]any{"user_id": "u3", "is_active": true})
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"is_active":true`)

	w = do(t, router, http.MethodPost, "/users/setIsActive", map[string]any{"user_id": "ghost", "is_active": true})
	require.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, router, http.MethodPost, "/team/deactivate", map[string]any{"team_name": "backend"})
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"deactivated_count":3,"reassigned_prs_count":0}`, w.Body.String())
}

func TestRouter_PullRequestFlow(t *testing.T) {
	router := newTestRouter(t)

	addTeam(t, router, "backend",
		member("u1", "Alice", true), member("u2", "Bob", true), member("u3", "Carol", true), member("u4", "Dan", true))

	w := do(t, router, http.MethodPost, "/pullRequest/create", map[string]any{
		"pull_request_id":   "pr-1",
		"pull_request_name": "Add search",
		"author_id":         "u1",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[prEnvelope](t, w).PR
	require.Equal(t, "OPEN", created.Status)
	require.Len(t, created.AssignedReviewers, 2)
	require.NotContains(t, created.AssignedReviewers, "u1")
	require.Nil(t, created.MergedAt)

	w = do(t, router, http.MethodPost, "/pullRequest/create", map[string]any{
		"pull_request_id":   "pr-1",
		"pull_request_name": "Again",
		"author_id":         "u1",
	})
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, "PR_EXISTS", decode[apierr.ErrResponse](t, w).Error.Code)

	w = do(t, router, http.MethodPost, "/pullRequest/create", map[string]any{
		"pull_request_id":   "pr-2",
		"pull_request_name": "Ghost",
		"author_id":         "ghost",
	})
	require.Equal(t, http.StatusNotFound, w.Code)

	old := created.AssignedReviewers[0]
	w = do(t, router, http.MethodPost, "/pullRequest/reassign", map[string]any{
		"pull_request_id": "pr-1",
		"old_user_id":     old,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	reassigned := decode[prEnvelope](t, w)
	require.NotEmpty(t, reassigned.ReplacedBy)
	require.NotContains(t, reassigned.PR.AssignedReviewers, old)
	require.Contains(t, reassigned.PR.AssignedReviewers, reassigned.ReplacedBy)

	w = do(t, router, http.MethodPost, "/pullRequest/reassign", map[string]any{
		"pull_request_id": "pr-1",
		"old_user_id":     "u1",
	})
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, "NOT_ASSIGNED", decode[apierr.ErrResponse](t, w).Error.Code)

	w = do(t, router, http.MethodGet, "/users/getReview?user_id="+reassigned.ReplacedBy, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"pull_request_id":"pr-1"`)

	w = do(t, router, http.MethodPost, "/pullRequest/merge", map[string]any{"pull_request_id": "pr-1"})
	require.Equal(t, http.StatusOK, w.Code)
	merged := decode[prEnvelope](t, w).PR
	require.Equal(t, "MERGED", merged.Status)
	require.NotNil(t, merged.MergedAt)

	w = do(t, router, http.MethodPost, "/pullRequest/merge", map[string]any{"pull_request_id": "pr-1"})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, *merged.MergedAt, *decode[prEnvelope](t, w).PR.MergedAt)

	w = do(t, router, http.MethodPost, "/pullRequest/reassign", map[string]any{
		"pull_request_id": "pr-1",
		"old_user_id":     reassigned.ReplacedBy,
	})
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, "PR_MERGED", decode[apierr.ErrResponse](t, w).Error.Code)

	w = do(t, router, http.MethodGet, "/pullRequest/get?pull_request_id=pr-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "MERGED", decode[prEnvelope](t, w).PR.Status)

	w = do(t, router, http.MethodGet, "/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"total_prs":1`)
	require.Contains(t, w.Body.String(), `"prs_with_2_reviewers":1`)

	w = do(t, router, http.MethodGet, "/team/stats?team_name=backend", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"team_name":"backend"`)

	w = do(t, router, http.MethodPost, "/users/bulkDeactivate", map[string]any{"user_ids": []string{"u2", "u3"}})
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"deactivated_count":2`)
}

func TestRouter_Validation(t *testing.T) {
	router := newTestRouter(t)

	tests := []struct {
		name    string
		method  string
		target  string
		body    any
		details []apierr.FieldError
	}{
		{
			name:    "missing fields",
			method:  http.MethodPost,
			target:  "/pullRequest/create",
			body:    map[string]any{"pull_request_id": "pr-1"},
			details: []apierr.FieldError{{Field: "pull_request_name", Reason: "required"}, {Field: "author_id", Reason: "required"}},
		},
		{
			name:    "false is a valid is_active",
			method:  http.MethodPost,
			target:  "/users/setIsActive",
			body:    map[string]any{"is_active": false},
			details: []apierr.FieldError{{Field: "user_id", Reason: "required"}},
		},
		{
			name:    "nested member",
			method:  http.MethodPost,
			target:  "/team/add",
			body:    map[string]any{"team_name": "t", "members": []map[string]any{{"user_id": "u1", "username": "A"}}},
			details: []apierr.FieldError{{Field: "members[0].is_active", Reason: "required"}},
		},
		{
			name:    "wrong type",
			method:  http.MethodPost,
			target:  "/pullRequest/merge",
			body:    `{"pull_request_id": 5}`,
			details: []apierr.FieldError{{Field: "pull_request_id", Reason: "expected string"}},
		},
		{
			name:    "malformed",
			method:  http.MethodPost,
			target:  "/pullRequest/merge",
			body:    `{"pull_request_id":`,
			details: []apierr.FieldError{{Field: "body", Reason: "malformed JSON"}},
		},
		{
			name:    "empty body",
			method:  http.MethodPost,
			target:  "/users/bulkDeactivate",
			body:    nil,
			details: []apierr.FieldError{{Field: "body", Reason: "empty body"}},
		},
		{
			name:    "missing query",
			method:  http.MethodGet,
			target:  "/team/get",
			details: []apierr.FieldError{{Field: "team_name", Reason: "required"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, router, tt.method, tt.target, tt.body)
			require.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())

			resp := decode[apierr.ErrResponse](t, w)
			require.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
			require.Equal(t, tt.details, resp.Error.Details)
		})
	}
}

func TestRouter_ServiceRoutes(t *testing.T) {
	router := newTestRouter(t)

	w := do(t, router, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"status":"ok","cache":"disabled"}`, w.Body.String())
	require.NotEmpty(t, w.Header().Get(mdlwr.RequestIDHeader))

	w = do(t, router, http.MethodGet, "/nope", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "NOT_FOUND", decode[apierr.ErrResponse](t, w).Error.Code)

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	req.Header.Set(mdlwr.RequestIDHeader, "req-42")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "req-42", rec.Header().Get(mdlwr.RequestIDHeader))
	require.JSONEq(t, `{"users":[],"pull_requests":{"total_prs":0,"open_prs":0,"merged_prs":0,"prs_with_0_reviewers":0,"prs_with_1_reviewer":0,"prs_with_2_reviewers":0}}`, rec.Body.String())
}
