package main

import (
	"context"
	"fmt"
	"os"

	"github.com/runitlabs/prediction-backend/internal/audit"
	predcache "github.com/runitlabs/prediction-backend/internal/clients/redis"
	"github.com/runitlabs/prediction-backend/internal/data/db"
	"github.com/runitlabs/prediction-backend/internal/data/repos"
	types "github.com/runitlabs/prediction-backend/internal/domain"
	"github.com/runitlabs/prediction-backend/internal/http/handlers"
	"github.com/runitlabs/prediction-backend/internal/platform/envutil"
	"github.com/runitlabs/prediction-backend/internal/platform/logger"
	"github.com/runitlabs/prediction-backend/internal/server"
	"github.com/runitlabs/prediction-backend/internal/services"
)

func main() {
	// Logger
	logMode := envutil.String("LOG_MODE", "development")
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Fatal("Postgres init failed", "error", err)
	}
	thePG := postgresService.DB()
	if err := db.AutoMigrateAll(thePG); err != nil {
		log.Fatal("Postgres auto migration failed", "error", err)
	}

	// Audit + repos
	auditor := audit.NewCoordinator(log)
	repoSet := repos.New(thePG, log, auditor)

	// Services
	log.Info("Setting up services from main...")
	featureStore := services.NewFeatureStoreService(thePG, log, auditor, repoSet.FeatureSnapshots)
	registry := services.NewModelRegistryService(thePG, log, repoSet.ModelVersions)
	predictions := services.NewPredictionService(thePG, log, auditor, featureStore, registry, repoSet.Predictions, repoSet.Explanations)

	// Inference: heuristic scoring until an external runtime is attached.
	infer := func(ctx context.Context, v *types.ModelVersion, s *types.FeatureSnapshot) (services.InferenceResult, error) {
		return services.BaselineInfer(v.ModelType)(ctx, v, s)
	}

	// Redis cache (optional)
	var cache predcache.PredictionCache
	if envutil.String("REDIS_ADDR", "") != "" {
		cache, err = predcache.NewPredictionCache(log)
		if err != nil {
			log.Warn("Could not init prediction cache, serving uncached", "error", err)
			cache = nil
		} else {
			defer cache.Close()
		}
	}

	// Handlers
	featureHandler := handlers.NewFeatureHandler(featureStore)
	modelHandler := handlers.NewModelHandler(registry)
	predictionHandler := handlers.NewPredictionHandler(log, predictions, infer, cache)

	// Router
	router := server.NewRouter(server.RouterConfig{
		FeatureHandler:    featureHandler,
		ModelHandler:      modelHandler,
		PredictionHandler: predictionHandler,
	})

	port := envutil.String("SERVER_PORT", "8080")
	log.Info("Server listening", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Server failed", "error", err)
	}
}
