package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	types "github.com/runitlabs/prediction-backend/internal/domain"
	"github.com/runitlabs/prediction-backend/internal/platform/logger"
)

// PredictionCache is a read-through cache for the latest prediction per
// user and model type. A miss is not an error; callers fall back to the
// database and call Set with what they read.
type PredictionCache interface {
	Get(ctx context.Context, userID uuid.UUID, modelType types.ModelType) (*types.Prediction, bool, error)
	Set(ctx context.Context, p *types.Prediction) error
	Invalidate(ctx context.Context, userID uuid.UUID, modelType types.ModelType) error
	Close() error
}

type predictionCache struct {
	log *logger.Logger
	rdb *goredis.Client
	ttl time.Duration
}

// NewPredictionCache is the preferred constructor (short name).
func NewPredictionCache(log *logger.Logger) (PredictionCache, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &predictionCache{
		log: log.With("service", "RedisPredictionCache"),
		rdb: rdb,
		ttl: 5 * time.Minute,
	}, nil
}

func cacheKey(userID uuid.UUID, modelType types.ModelType) string {
	return fmt.Sprintf("prediction:latest:%s:%s", userID, modelType)
}

func (c *predictionCache) Get(ctx context.Context, userID uuid.UUID, modelType types.ModelType) (*types.Prediction, bool, error) {
	raw, err := c.rdb.Get(ctx, cacheKey(userID, modelType)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	var p types.Prediction
	if err := json.Unmarshal(raw, &p); err != nil {
		// A corrupt entry behaves like a miss; the next Set overwrites it.
		c.log.Warn("cache entry unreadable", "user_id", userID, "model_type", modelType, "error", err)
		return nil, false, nil
	}
	return &p, true, nil
}

func (c *predictionCache) Set(ctx context.Context, p *types.Prediction) error {
	if p == nil {
		return fmt.Errorf("nil prediction")
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal prediction: %w", err)
	}
	if err := c.rdb.Set(ctx, cacheKey(p.UserID, p.ModelType), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (c *predictionCache) Invalidate(ctx context.Context, userID uuid.UUID, modelType types.ModelType) error {
	if err := c.rdb.Del(ctx, cacheKey(userID, modelType)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (c *predictionCache) Close() error {
	return c.rdb.Close()
}
