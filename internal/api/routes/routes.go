package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/deepinterview/deepinterview/internal/api/handlers"
	"github.com/deepinterview/deepinterview/internal/api/middleware"
)

type Deps struct {
	Interview *handlers.InterviewHandler
	User      *handlers.UserHandler
	Resume    *handlers.ResumeHandler
	Health    *handlers.HealthHandler
	WS        *handlers.WSHandler
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	api := r.Group("/api")
	api.Use(middleware.OptionalAuth())

	interview := api.Group("/interview")
	interview.POST("/sessions", d.Interview.Create)
	interview.GET("/sessions", d.Interview.List)
	interview.GET("/sessions/:sessionId", d.Interview.Get)
	interview.PATCH("/sessions/:sessionId/status", d.Interview.SetStatus)
	interview.POST("/sessions/:sessionId/feedback", d.Interview.Finalize)
	interview.POST("/questions", d.Interview.GenerateQuestions)
	interview.POST("/response", d.Interview.SubmitResponse)
	interview.POST("/evaluate", d.Interview.Evaluate)
	interview.GET("/positions", d.Interview.Positions)

	user := api.Group("/user", middleware.RequireOwner())
	user.GET("/profile", d.User.GetProfile)
	user.PATCH("/profile", d.User.UpdateProfile)
	user.PATCH("/preferences", d.User.UpdatePreferences)
	user.GET("/history", d.User.History)
	user.GET("/statistics", d.User.Statistics)

	resume := api.Group("/resume", middleware.RequireOwner())
	resume.POST("", d.Resume.Upload)
	resume.GET("", d.Resume.List)
	resume.GET("/:resumeId", d.Resume.Get)
	resume.PATCH("/:resumeId", d.Resume.Rename)
	resume.DELETE("/:resumeId", d.Resume.Delete)
	resume.POST("/:resumeId/set-default", d.Resume.SetDefault)
	resume.POST("/analyze", d.Resume.Analyze)

	api.GET("/health", d.Health.Check)
	api.GET("/health/details", d.Health.Details)

	ws := r.Group("/ws", middleware.OptionalAuth())
	ws.GET("/interview/:sessionId", d.WS.InterviewWS)
}
