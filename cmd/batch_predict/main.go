package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/runitlabs/prediction-backend/internal/audit"
	"github.com/runitlabs/prediction-backend/internal/data/db"
	"github.com/runitlabs/prediction-backend/internal/data/repos"
	types "github.com/runitlabs/prediction-backend/internal/domain"
	"github.com/runitlabs/prediction-backend/internal/platform/envutil"
	"github.com/runitlabs/prediction-backend/internal/platform/logger"
	"github.com/runitlabs/prediction-backend/internal/services"
)

type idList []string

func (l *idList) String() string { return strings.Join(*l, ",") }
func (l *idList) Set(v string) error {
	v = strings.TrimSpace(v)
	if v != "" {
		*l = append(*l, v)
	}
	return nil
}

func main() {
	var users idList
	var modelTypeArg string
	var workers int
	flag.Var(&users, "user", "user_id to predict for (repeatable; default all active snapshots)")
	flag.StringVar(&modelTypeArg, "model-type", "CHURN", "model type to run (CHURN or LTV)")
	flag.IntVar(&workers, "workers", 8, "concurrent prediction workers")
	flag.Parse()

	modelType, err := types.ParseModelType(modelTypeArg)
	if err != nil {
		fmt.Printf("invalid -model-type: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(envutil.String("LOG_MODE", "production"))
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Fatal("Postgres init failed", "error", err)
	}
	thePG := postgresService.DB()

	auditor := audit.NewCoordinator(log)
	repoSet := repos.New(thePG, log, auditor)
	featureStore := services.NewFeatureStoreService(thePG, log, auditor, repoSet.FeatureSnapshots)
	registry := services.NewModelRegistryService(thePG, log, repoSet.ModelVersions)
	predictions := services.NewPredictionService(thePG, log, auditor, featureStore, registry, repoSet.Predictions, repoSet.Explanations)
	batch := services.NewBatchService(log, featureStore, predictions, workers)

	ctx := context.Background()
	infer := services.BaselineInfer(modelType)

	var result *services.BatchResult
	if len(users) > 0 {
		ids := make([]uuid.UUID, 0, len(users))
		for _, s := range users {
			id, err := uuid.Parse(strings.TrimSpace(s))
			if err != nil || id == uuid.Nil {
				fmt.Printf("skipping invalid user id %q\n", s)
				continue
			}
			ids = append(ids, id)
		}
		if len(ids) == 0 {
			fmt.Println("no valid user ids provided")
			return
		}
		result, err = batch.PredictUsers(ctx, ids, modelType, infer)
	} else {
		result, err = batch.PredictAll(ctx, modelType, infer)
	}
	if err != nil {
		log.Fatal("batch run aborted", "error", err)
	}

	fmt.Printf("predicted=%d failed=%d\n", len(result.Predicted), len(result.Failed))
	for userID, ferr := range result.Failed {
		fmt.Printf("  %s: %v\n", userID, ferr)
	}
	if len(result.Failed) > 0 {
		os.Exit(1)
	}
}
