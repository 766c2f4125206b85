package main

import (
	"context"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/deepinterview/deepinterview/config"
	"github.com/deepinterview/deepinterview/internal/api/handlers"
	"github.com/deepinterview/deepinterview/internal/api/middleware"
	"github.com/deepinterview/deepinterview/internal/api/routes"
	"github.com/deepinterview/deepinterview/internal/cache"
	"github.com/deepinterview/deepinterview/internal/generator"
	"github.com/deepinterview/deepinterview/internal/logger"
	"github.com/deepinterview/deepinterview/internal/models"
	"github.com/deepinterview/deepinterview/internal/providers/llm"
	mongorepo "github.com/deepinterview/deepinterview/internal/repositories/mongo"
	pgrepo "github.com/deepinterview/deepinterview/internal/repositories/postgres"
	"github.com/deepinterview/deepinterview/internal/services"
)

func main() {
	_ = godotenv.Load()
	log := logger.New()

	if err := config.InitMongo(); err != nil {
		log.WithError(err).Fatal("mongodb init failed")
	}
	log.Info("mongodb connected")

	if err := config.EnsureMongoIndexes(); err != nil {
		log.WithError(err).Fatal("mongodb index setup failed")
	}

	if err := config.InitPostgres(); err != nil {
		log.WithError(err).Fatal("postgresql init failed")
	}
	log.Info("postgresql connected")

	if err := config.PostgresDB.AutoMigrate(&models.User{}, &models.Resume{}); err != nil {
		log.WithError(err).Fatal("postgresql migration failed")
	}

	if err := config.InitRedis(); err != nil {
		log.WithError(err).Fatal("redis init failed")
	}
	log.Info("redis connected")

	// The LLM provider is optional. Without credentials every generator
	// call serves mock content instead of failing.
	var provider llm.Provider
	projectID := os.Getenv("VERTEX_PROJECT_ID")
	if projectID != "" {
		p, err := llm.NewVertexGemini(context.Background(), projectID,
			os.Getenv("VERTEX_LOCATION"), os.Getenv("VERTEX_MODEL"),
			os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
		if err != nil {
			log.WithError(err).Warn("vertex provider init failed, falling back to mock generation")
		} else {
			provider = p
			defer p.Close()
			log.Info("vertex provider ready")
		}
	} else {
		log.Warn("VERTEX_PROJECT_ID not set, generator will serve mock content")
	}

	gen := generator.New(provider, log)
	redisCache := cache.NewRedisCache(config.RedisClient)

	sessionRepo := mongorepo.NewSessionRepo(config.MongoDatabase())
	userRepo := pgrepo.NewUserRepo(config.PostgresDB)
	resumeRepo := pgrepo.NewResumeRepo(config.PostgresDB)

	sessionSvc := services.NewSessionService(sessionRepo, userRepo, gen, redisCache, log)
	userSvc := services.NewUserService(userRepo)
	resumeSvc := services.NewResumeService(resumeRepo, gen, log)

	if os.Getenv("APP_ENV") == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(log))

	routes.RegisterRoutes(r, routes.Deps{
		Interview: handlers.NewInterviewHandler(sessionSvc),
		User:      handlers.NewUserHandler(userSvc, sessionSvc),
		Resume:    handlers.NewResumeHandler(resumeSvc),
		Health:    handlers.NewHealthHandler(config.MongoClient, provider != nil),
		WS:        handlers.NewWSHandler(sessionSvc, config.RedisClient),
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.WithField("port", port).Info("starting api server")
	if err := r.Run(":" + port); err != nil {
		log.WithError(err).Fatal("server exited")
	}
}
