package handlers

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type HealthHandler struct {
	mongo         *mongo.Client
	llmConfigured bool
	startedAt     time.Time
}

func NewHealthHandler(mc *mongo.Client, llmConfigured bool) *HealthHandler {
	return &HealthHandler{mongo: mc, llmConfigured: llmConfigured, startedAt: time.Now()}
}

func (h *HealthHandler) dbConnected(ctx context.Context) bool {
	if h.mongo == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return h.mongo.Ping(ctx, readpref.Primary()) == nil
}

func (h *HealthHandler) Check(c *gin.Context) {
	connected := h.dbConnected(c.Request.Context())

	status := "ok"
	code := http.StatusOK
	if !connected {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":      status,
		"dbConnected": connected,
		"uptime":      int64(time.Since(h.startedAt).Seconds()),
	})
}

func (h *HealthHandler) Details(c *gin.Context) {
	connected := h.dbConnected(c.Request.Context())

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	dbState := "disconnected"
	if connected {
		dbState = "connected"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"environment":   env,
		"uptime":        int64(time.Since(h.startedAt).Seconds()),
		"dbState":       dbState,
		"llmConfigured": h.llmConfigured,
		"timestamp":     time.Now().UTC().Format(time.RFC3339),
	})
}
