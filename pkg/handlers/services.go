package handlers

import (
	"context"
	"net/http"

	"reviewassigner/internal/handlers/mdlwr"
	"reviewassigner/pkg/handlers/apierr"
	"reviewassigner/pkg/pullrequest"
	"reviewassigner/pkg/service"
	"reviewassigner/pkg/team"
	"reviewassigner/pkg/user"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type TeamService interface {
	CreateTeam(ctx context.Context, teamName string, members []*user.User) (*team.Team, error)
	GetTeam(ctx context.Context, teamName string) (*team.Team, error)
	TeamReviewStats(ctx context.Context, teamName string) ([]*pullrequest.UserStats, error)
}

type UserService interface {
	SetIsActive(ctx context.Context, userID string, isActive bool) (*user.User, error)
	GetReviewAssignments(ctx context.Context, userID string) ([]*pullrequest.PullRequest, error)
	BulkDeactivate(ctx context.Context, userIDs []string) (*service.BulkDeactivateResult, error)
	DeactivateTeam(ctx context.Context, teamName string) (*service.BulkDeactivateResult, error)
}

type PullRequestService interface {
	Create(ctx context.Context, prID, prName, authorID string) (*pullrequest.PullRequest, error)
	Merge(ctx context.Context, prID string) (*pullrequest.PullRequest, error)
	Reassign(ctx context.Context, prID, oldUserID string) (*pullrequest.PullRequest, string, error)
	Get(ctx context.Context, prID string) (*pullrequest.PullRequest, error)
}

type StatsService interface {
	Get(ctx context.Context) (*service.Stats, error)
}

// bindJSON пишет 422 сам, вызывающему остается только выйти
func bindJSON(c *gin.Context, logger *zap.SugaredLogger, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		logger.Warnw("error parsing request", "requestID", mdlwr.GetRequestID(c), "error", err)
		apierr.WriteValidationErr(c, apierr.FromBindError(err)...)
		return false
	}
	return true
}

func requiredQuery(c *gin.Context, logger *zap.SugaredLogger, name string) (string, bool) {
	value := c.Query(name)
	if value == "" {
		logger.Warnw("no query param provided", "requestID", mdlwr.GetRequestID(c), "param", name)
		apierr.WriteValidationErr(c, apierr.Missing(name))
		return "", false
	}
	return value, true
}

func writeErr(c *gin.Context, logger *zap.SugaredLogger, msg string, err error) {
	if apierr.Handle(c, err) {
		logger.Warnw(msg, "requestID", mdlwr.GetRequestID(c), "error", err)
		return
	}

	logger.Errorw(msg+", couldnt map the error", "requestID", mdlwr.GetRequestID(c), "err", err)
	apierr.WriteApiErrJSON(c, http.StatusInternalServerError, apierr.InternalServerError)
}
