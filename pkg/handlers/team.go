package handlers

import (
	"net/http"

	"reviewassigner/pkg/handlers/apidto"
	"reviewassigner/pkg/user"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type TeamHandler struct {
	teams  TeamService
	users  UserService
	logger *zap.SugaredLogger
}

func NewTeamHandler(logger *zap.SugaredLogger, teams TeamService, users UserService) *TeamHandler {
	return &TeamHandler{
		teams:  teams,
		users:  users,
		logger: logger,
	}
}

// is_active указателем, иначе required не пропустит false
type teamMemberReq struct {
	UserID   string `json:"user_id" binding:"required"`
	Username string `json:"username" binding:"required"`
	IsActive *bool  `json:"is_active" binding:"required"`
}

type addTeamReq struct {
	TeamName string          `json:"team_name" binding:"required"`
	Members  []teamMemberReq `json:"members" binding:"required,dive"`
}

type addTeamResp struct {
	Team apidto.Team `json:"team"`
}

func toDomainUsers(teamName string, members []teamMemberReq) []*user.User {
	out := make([]*user.User, 0, len(members))
	for _, m := range members {
		out = append(out, &user.User{
			UserID:   m.UserID,
			Username: m.Username,
			TeamName: teamName,
			IsActive: *m.IsActive,
		})
	}
	return out
}

func (h *TeamHandler) AddTeam(c *gin.Context) {
	var req addTeamReq
	if !bindJSON(c, h.logger, &req) {
		return
	}

	created, err := h.teams.CreateTeam(c.Request.Context(), req.TeamName, toDomainUsers(req.TeamName, req.Members))
	if err != nil {
		writeErr(c, h.logger, "error creating team", err)
		return
	}

	c.JSON(http.StatusCreated, addTeamResp{
		Team: apidto.FromTeam(created),
	})
}

func (h *TeamHandler) GetTeam(c *gin.Context) {
	teamName, ok := requiredQuery(c, h.logger, "team_name")
	if !ok {
		return
	}

	found, err := h.teams.GetTeam(c.Request.Context(), teamName)
	if err != nil {
		writeErr(c, h.logger, "error getting team", err)
		return
	}

	c.JSON(http.StatusOK, apidto.FromTeam(found))
}

type teamStatsResp struct {
	TeamName string                      `json:"team_name"`
	Members  map[string]apidto.UserStats `json:"members"`
}

func (h *TeamHandler) GetTeamStats(c *gin.Context) {
	teamName, ok := requiredQuery(c, h.logger, "team_name")
	if !ok {
		return
	}

	stats, err := h.teams.TeamReviewStats(c.Request.Context(), teamName)
	if err != nil {
		writeErr(c, h.logger, "error getting team stats", err)
		return
	}

	c.JSON(http.StatusOK, teamStatsResp{
		TeamName: teamName,
		Members:  apidto.FromUserStatsSliceToMap(stats),
	})
}

type deactivateTeamReq struct {
	TeamName string `json:"team_name" binding:"required"`
}

func (h *TeamHandler) DeactivateTeam(c *gin.Context) {
	var req deactivateTeamReq
	if !bindJSON(c, h.logger, &req) {
		return
	}

	res, err := h.users.DeactivateTeam(c.Request.Context(), req.TeamName)
	if err != nil {
		writeErr(c, h.logger, "error deactivating team", err)
		return
	}

	c.JSON(http.StatusOK, apidto.FromDeactivation(res))
}
