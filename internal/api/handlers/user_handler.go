package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/deepinterview/deepinterview/internal/services"
	"github.com/deepinterview/deepinterview/internal/utils"
)

type UserHandler struct {
	users    services.UserService
	sessions services.SessionService
}

func NewUserHandler(users services.UserService, sessions services.SessionService) *UserHandler {
	return &UserHandler{users: users, sessions: sessions}
}

func (h *UserHandler) GetProfile(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}

	u, err := h.users.GetProfile(c.Request.Context(), owner)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *UserHandler) UpdateProfile(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}

	var req services.ProfileUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "UserHandler.UpdateProfile", "invalid request body", err))
		return
	}

	u, err := h.users.UpdateProfile(c.Request.Context(), owner, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *UserHandler) UpdatePreferences(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}

	var req services.Preferences
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "UserHandler.UpdatePreferences", "invalid request body", err))
		return
	}

	u, err := h.users.UpdatePreferences(c.Request.Context(), owner, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *UserHandler) History(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	out, err := h.sessions.ListByOwner(c.Request.Context(), owner, page, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *UserHandler) Statistics(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}

	stats, err := h.sessions.Statistics(c.Request.Context(), owner)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
