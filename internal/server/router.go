package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/runitlabs/prediction-backend/internal/http/handlers"
)

type RouterConfig struct {
	FeatureHandler    *handlers.FeatureHandler
	ModelHandler      *handlers.ModelHandler
	PredictionHandler *handlers.PredictionHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	// Cors
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:80",
			"http://localhost:3000",
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	api := router.Group("/api")
	{
		// Models
		api.GET("/models/info", cfg.ModelHandler.Info)
		api.POST("/models/:model_type/versions", cfg.ModelHandler.Register)
		api.POST("/models/:model_type/versions/:version/activate", cfg.ModelHandler.Activate)
		api.GET("/models/:model_type/active", cfg.ModelHandler.Active)

		// Features
		api.POST("/users/:id/features", cfg.FeatureHandler.Ingest)
		api.GET("/users/:id/features", cfg.FeatureHandler.Get)
		api.DELETE("/users/:id/features", cfg.FeatureHandler.Delete)

		// Predictions
		api.POST("/users/:id/predict/:model_type", cfg.PredictionHandler.Predict)
		api.GET("/users/:id/predictions/latest/:model_type", cfg.PredictionHandler.Latest)
		api.GET("/users/:id/predictions", cfg.PredictionHandler.History)
		api.GET("/predictions/:model_type/by-risk/:risk", cfg.PredictionHandler.ListByRisk)
		api.GET("/predictions/:model_type/risk-counts", cfg.PredictionHandler.RiskCounts)
		api.DELETE("/predictions/:id", cfg.PredictionHandler.Delete)
		api.POST("/predictions/:id/restore", cfg.PredictionHandler.Restore)
	}

	return router
}
