package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/deepinterview/deepinterview/internal/services"
	"github.com/deepinterview/deepinterview/internal/utils"
)

type ResumeHandler struct {
	svc services.ResumeService
}

func NewResumeHandler(svc services.ResumeService) *ResumeHandler {
	return &ResumeHandler{svc: svc}
}

type UploadResumeRequest struct {
	Title    string `json:"title"`
	Filename string `json:"filename"`
	FileType string `json:"fileType" binding:"required"`
	Content  string `json:"content" binding:"required"`
}

func (h *ResumeHandler) Upload(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}

	var req UploadResumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "ResumeHandler.Upload", "invalid request body", err))
		return
	}

	r, err := h.svc.Create(c.Request.Context(), owner, req.Title, req.Filename, req.FileType, req.Content)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

func (h *ResumeHandler) Get(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}

	r, err := h.svc.Get(c.Request.Context(), owner, c.Param("resumeId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

func (h *ResumeHandler) List(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}

	list, err := h.svc.ListByUser(c.Request.Context(), owner)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"resumes": list, "count": len(list)})
}

type RenameResumeRequest struct {
	Title string `json:"title" binding:"required"`
}

func (h *ResumeHandler) Rename(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}

	var req RenameResumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "ResumeHandler.Rename", "invalid request body", err))
		return
	}

	r, err := h.svc.Rename(c.Request.Context(), owner, c.Param("resumeId"), req.Title)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

func (h *ResumeHandler) SetDefault(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}

	if err := h.svc.SetDefault(c.Request.Context(), owner, c.Param("resumeId")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type AnalyzeResumeRequest struct {
	ResumeID    string `json:"resumeId" binding:"required"`
	JobPosition string `json:"jobPosition"`
}

func (h *ResumeHandler) Analyze(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}

	var req AnalyzeResumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "ResumeHandler.Analyze", "invalid request body", err))
		return
	}

	analysis, err := h.svc.Analyze(c.Request.Context(), owner, req.ResumeID, req.JobPosition)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"analysis": analysis})
}

func (h *ResumeHandler) Delete(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), owner, c.Param("resumeId")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
