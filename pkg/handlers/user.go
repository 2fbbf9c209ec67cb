package handlers

import (
	"net/http"

	"reviewassigner/pkg/handlers/apidto"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type UserHandler struct {
	users  UserService
	logger *zap.SugaredLogger
}

func NewUserHandler(logger *zap.SugaredLogger, users UserService) *UserHandler {
	return &UserHandler{
		users:  users,
		logger: logger,
	}
}

type setActiveReq struct {
	UserID   string `json:"user_id" binding:"required"`
	IsActive *bool  `json:"is_active" binding:"required"`
}

type userResp struct {
	User apidto.User `json:"user"`
}

func (h *UserHandler) SetIsActive(c *gin.Context) {
	var req setActiveReq
	if !bindJSON(c, h.logger, &req) {
		return
	}

	usr, err := h.users.SetIsActive(c.Request.Context(), req.UserID, *req.IsActive)
	if err != nil {
		writeErr(c, h.logger, "error setting user", err)
		return
	}

	c.JSON(http.StatusOK, userResp{
		User: apidto.FromUser(usr),
	})
}

type getPRResp struct {
	UserID       string           `json:"user_id"`
	PullRequests []apidto.PRShort `json:"pull_requests"`
}

func (h *UserHandler) GetUserReviews(c *gin.Context) {
	userID, ok := requiredQuery(c, h.logger, "user_id")
	if !ok {
		return
	}

	prs, err := h.users.GetReviewAssignments(c.Request.Context(), userID)
	if err != nil {
		writeErr(c, h.logger, "error listing user reviews", err)
		return
	}

	c.JSON(http.StatusOK, getPRResp{
		UserID:       userID,
		PullRequests: apidto.FromPRsToShort(prs),
	})
}

type bulkDeactivateReq struct {
	UserIDs []string `json:"user_ids" binding:"required"`
}

func (h *UserHandler) BulkDeactivate(c *gin.Context) {
	var req bulkDeactivateReq
	if !bindJSON(c, h.logger, &req) {
		return
	}

	res, err := h.users.BulkDeactivate(c.Request.Context(), req.UserIDs)
	if err != nil {
		writeErr(c, h.logger, "error deactivating users", err)
		return
	}

	c.JSON(http.StatusOK, apidto.FromDeactivation(res))
}
