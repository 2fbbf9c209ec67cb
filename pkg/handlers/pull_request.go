package handlers

import (
	"net/http"

	"reviewassigner/pkg/handlers/apidto"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type PullRequestHandler struct {
	prs    PullRequestService
	logger *zap.SugaredLogger
}

func NewPullRequestHandler(logger *zap.SugaredLogger, prs PullRequestService) *PullRequestHandler {
	return &PullRequestHandler{
		prs:    prs,
		logger: logger,
	}
}

type createPRReq struct {
	PullRequestID   string `json:"pull_request_id" binding:"required"`
	PullRequestName string `json:"pull_request_name" binding:"required"`
	AuthorID        string `json:"author_id" binding:"required"`
}

type prResp struct {
	PR apidto.PullRequest `json:"pr"`
}

func (h *PullRequestHandler) CreatePR(c *gin.Context) {
	var req createPRReq
	if !bindJSON(c, h.logger, &req) {
		return
	}

	pr, err := h.prs.Create(c.Request.Context(), req.PullRequestID, req.PullRequestName, req.AuthorID)
	if err != nil {
		writeErr(c, h.logger, "error creating pull request", err)
		return
	}

	c.JSON(http.StatusCreated, prResp{
		PR: apidto.FromPR(pr),
	})
}

type mergePRReq struct {
	PullRequestID string `json:"pull_request_id" binding:"required"`
}

func (h *PullRequestHandler) Merge(c *gin.Context) {
	var req mergePRReq
	if !bindJSON(c, h.logger, &req) {
		return
	}

	pr, err := h.prs.Merge(c.Request.Context(), req.PullRequestID)
	if err != nil {
		writeErr(c, h.logger, "error merging pull request", err)
		return
	}

	c.JSON(http.StatusOK, prResp{
		PR: apidto.FromPR(pr),
	})
}

type reassignPRReq struct {
	PullRequestID string `json:"pull_request_id" binding:"required"`
	OldUserID     string `json:"old_user_id" binding:"required"`
}

type reassignPRResp struct {
	PR         apidto.PullRequest `json:"pr"`
	ReplacedBy string             `json:"replaced_by"`
}

func (h *PullRequestHandler) ReassignPR(c *gin.Context) {
	var req reassignPRReq
	if !bindJSON(c, h.logger, &req) {
		return
	}

	pr, replacedBy, err := h.prs.Reassign(c.Request.Context(), req.PullRequestID, req.OldUserID)
	if err != nil {
		writeErr(c, h.logger, "error reassigning pull request", err)
		return
	}

	c.JSON(http.StatusOK, reassignPRResp{
		PR:         apidto.FromPR(pr),
		ReplacedBy: replacedBy,
	})
}

func (h *PullRequestHandler) GetPR(c *gin.Context) {
	prID, ok := requiredQuery(c, h.logger, "pull_request_id")
	if !ok {
		return
	}

	pr, err := h.prs.Get(c.Request.Context(), prID)
	if err != nil {
		writeErr(c, h.logger, "error getting pull request", err)
		return
	}

	c.JSON(http.StatusOK, prResp{
		PR: apidto.FromPR(pr),
	})
}
