package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/deepinterview/deepinterview/internal/api/middleware"
	"github.com/deepinterview/deepinterview/internal/models"
	"github.com/deepinterview/deepinterview/internal/services"
	"github.com/deepinterview/deepinterview/internal/utils"
)

type InterviewHandler struct {
	svc services.SessionService
}

func NewInterviewHandler(svc services.SessionService) *InterviewHandler {
	return &InterviewHandler{svc: svc}
}

type CreateSessionRequest struct {
	JobPosition   string `json:"jobPosition" binding:"required"`
	InterviewType string `json:"interviewType" binding:"required"`
	SkillLevel    string `json:"skillLevel" binding:"required"`
	ResumeID      string `json:"resumeId"`
}

func (h *InterviewHandler) Create(c *gin.Context) {
	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "InterviewHandler.Create", "invalid request body", err))
		return
	}

	sess, err := h.svc.Create(c.Request.Context(), middleware.OwnerID(c),
		req.JobPosition, req.InterviewType, req.SkillLevel, req.ResumeID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, sess)
}

func (h *InterviewHandler) Get(c *gin.Context) {
	sess, err := h.svc.Get(c.Request.Context(), c.Param("sessionId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (h *InterviewHandler) List(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	out, err := h.svc.ListByOwner(c.Request.Context(), owner, page, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

type GenerateQuestionsRequest struct {
	SessionID         string   `json:"sessionId" binding:"required"`
	PreviousQuestions []string `json:"previousQuestions"`
}

func (h *InterviewHandler) GenerateQuestions(c *gin.Context) {
	var req GenerateQuestionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "InterviewHandler.GenerateQuestions", "invalid request body", err))
		return
	}

	questions, source, err := h.svc.GenerateNextQuestions(c.Request.Context(), req.SessionID, req.PreviousQuestions)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"questions": questions,
		"source":    source,
	})
}

type SubmitResponseRequest struct {
	SessionID     string `json:"sessionId" binding:"required"`
	QuestionIndex *int   `json:"questionIndex" binding:"required"`
	Response      string `json:"response"`
}

func (h *InterviewHandler) SubmitResponse(c *gin.Context) {
	var req SubmitResponseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "InterviewHandler.SubmitResponse", "invalid request body", err))
		return
	}

	record, needsQuestions, err := h.svc.SubmitResponse(c.Request.Context(), req.SessionID, *req.QuestionIndex, req.Response)
	if err != nil {
		writeError(c, err)
		return
	}
	if needsQuestions {
		c.JSON(http.StatusOK, gin.H{
			"needsQuestions": true,
			"message":        "no questions in session, request question generation first",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"question": record,
	})
}

type EvaluateRequest struct {
	SessionID     string `json:"sessionId" binding:"required"`
	QuestionIndex *int   `json:"questionIndex" binding:"required"`
}

func (h *InterviewHandler) Evaluate(c *gin.Context) {
	var req EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "InterviewHandler.Evaluate", "invalid request body", err))
		return
	}

	ev, err := h.svc.EvaluateResponse(c.Request.Context(), req.SessionID, *req.QuestionIndex)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"evaluation": ev})
}

func (h *InterviewHandler) Finalize(c *gin.Context) {
	fb, err := h.svc.Finalize(c.Request.Context(), c.Param("sessionId"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"feedback": fb})
}

type SetStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *InterviewHandler) SetStatus(c *gin.Context) {
	var req SetStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "InterviewHandler.SetStatus", "invalid request body", err))
		return
	}

	sess, err := h.svc.SetStatus(c.Request.Context(), c.Param("sessionId"), models.SessionStatus(req.Status))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, sess)
}

func (h *InterviewHandler) Positions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"positions": services.PopularPositions()})
}

func requireOwner(c *gin.Context) (string, bool) {
	owner := middleware.OwnerID(c)
	if owner == "" {
		writeError(c, utils.E(utils.CodeUnauthorized, "Auth", "authentication required", nil))
		return "", false
	}
	return owner, true
}
