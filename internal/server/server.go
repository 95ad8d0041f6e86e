// Package server assembles the tutorial HTTP server.
package server

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/bhandras/stepwise/internal/config"
	"github.com/bhandras/stepwise/internal/server/api/handlers"
	"github.com/bhandras/stepwise/internal/server/api/middleware"
	"github.com/bhandras/stepwise/internal/server/crypto"
	"github.com/bhandras/stepwise/internal/server/database"
	"github.com/bhandras/stepwise/internal/server/generation"
)

// Deps are the collaborators of the router.
type Deps struct {
	Store          *database.Store
	JWT            *crypto.JWTManager
	Generator      generation.Generator
	AllowedOrigins []string
}

// NewRouter builds the gin engine with every route mounted.
func NewRouter(d Deps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	origins := d.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:  origins,
		AllowMethods:  []string{"GET", "OPTIONS"},
		AllowHeaders:  []string{"Authorization", "Accept", "Cache-Control"},
		ExposeHeaders: []string{"Content-Length"},
	}))
	router.Use(middleware.LoggingMiddleware())

	// Root endpoint - returns plain text for client validation
	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "Welcome to Stepwise Server!")
	})
	router.GET("/healthz", func(c *gin.Context) {
		if err := d.Store.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	tutorialHandler := handlers.NewTutorialHandler(d.Store, d.Generator)
	subscriptionHandler := handlers.NewSubscriptionHandler(d.Store)

	api := router.Group("/api")
	api.Use(middleware.AuthMiddleware(d.JWT))
	{
		api.GET("/tutorials/stream/", tutorialHandler.Stream)
		api.GET("/subscription/tier", subscriptionHandler.GetTier)
	}

	return router
}

// NewGenerator returns the generator selected by cfg.
func NewGenerator(cfg *config.Server) (generation.Generator, error) {
	if cfg.Generator == config.GeneratorOpenAI {
		return generation.NewOpenAI(generation.OpenAIConfig{
			APIKey: cfg.OpenAIKey,
			Model:  cfg.OpenAIModel,
		})
	}
	return &generation.Scripted{Steps: cfg.ScriptedSteps}, nil
}
