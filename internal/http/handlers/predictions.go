package handlers

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"

	predcache "github.com/runitlabs/prediction-backend/internal/clients/redis"
	types "github.com/runitlabs/prediction-backend/internal/domain"
	pkgerrors "github.com/runitlabs/prediction-backend/internal/pkg/errors"
	"github.com/runitlabs/prediction-backend/internal/platform/logger"
	"github.com/runitlabs/prediction-backend/internal/services"
)

type PredictionHandler struct {
	log         *logger.Logger
	predictions services.PredictionService
	infer       services.InferFn
	cache       predcache.PredictionCache
}

// NewPredictionHandler wires the ledger service, the inference function used
// for on-demand predictions, and an optional latest-prediction cache
// (nil disables caching).
func NewPredictionHandler(log *logger.Logger, predictions services.PredictionService, infer services.InferFn, cache predcache.PredictionCache) *PredictionHandler {
	return &PredictionHandler{
		log:         log.With("handler", "PredictionHandler"),
		predictions: predictions,
		infer:       infer,
		cache:       cache,
	}
}

func (ph *PredictionHandler) Predict(c *gin.Context) {
	userID, err := pathUUID(c, "id")
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	modelType, err := pathModelType(c)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	p, err := ph.predictions.Predict(c.Request.Context(), userID, modelType, ph.infer)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	if ph.cache != nil {
		if err := ph.cache.Set(c.Request.Context(), p); err != nil {
			ph.log.Warn("cache set failed", "user_id", userID, "error", err)
		}
	}
	RespondOK(c, gin.H{"prediction": p})
}

func (ph *PredictionHandler) Latest(c *gin.Context) {
	userID, err := pathUUID(c, "id")
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	modelType, err := pathModelType(c)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	if ph.cache != nil {
		if p, ok, err := ph.cache.Get(c.Request.Context(), userID, modelType); err != nil {
			ph.log.Warn("cache get failed", "user_id", userID, "error", err)
		} else if ok {
			RespondOK(c, gin.H{"prediction": p, "cached": true})
			return
		}
	}
	p, err := ph.predictions.Latest(c.Request.Context(), userID, modelType)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	if ph.cache != nil {
		if err := ph.cache.Set(c.Request.Context(), p); err != nil {
			ph.log.Warn("cache set failed", "user_id", userID, "error", err)
		}
	}
	RespondOK(c, gin.H{"prediction": p})
}

func (ph *PredictionHandler) History(c *gin.Context) {
	userID, err := pathUUID(c, "id")
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	page, pageSize := pagination(c)
	includeDeleted := c.Query("include_deleted") == "true"
	rows, total, err := ph.predictions.History(c.Request.Context(), userID, page, pageSize, includeDeleted)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"predictions": rows, "total": total, "page": page, "page_size": pageSize})
}

func (ph *PredictionHandler) ListByRisk(c *gin.Context) {
	modelType, err := pathModelType(c)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	risk, err := types.ParseRiskLevel(c.Param("risk"))
	if err != nil {
		RespondDomainError(c, fmt.Errorf("%w: %v", pkgerrors.ErrValidation, err))
		return
	}
	page, pageSize := pagination(c)
	rows, total, err := ph.predictions.ListByRisk(c.Request.Context(), modelType, risk, page, pageSize)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"predictions": rows, "total": total, "page": page, "page_size": pageSize})
}

func (ph *PredictionHandler) RiskCounts(c *gin.Context) {
	modelType, err := pathModelType(c)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	counts, err := ph.predictions.CountByRisk(c.Request.Context(), modelType)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"counts": counts})
}

func (ph *PredictionHandler) Delete(c *gin.Context) {
	predictionID, err := pathUUID(c, "id")
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	p, err := ph.predictions.Get(c.Request.Context(), predictionID, true)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	if err := ph.predictions.SoftDelete(c.Request.Context(), predictionID); err != nil {
		RespondDomainError(c, err)
		return
	}
	ph.invalidate(c, p)
	RespondOK(c, gin.H{"deleted": true})
}

func (ph *PredictionHandler) Restore(c *gin.Context) {
	predictionID, err := pathUUID(c, "id")
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	p, err := ph.predictions.Get(c.Request.Context(), predictionID, true)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	if err := ph.predictions.Restore(c.Request.Context(), predictionID); err != nil {
		RespondDomainError(c, err)
		return
	}
	ph.invalidate(c, p)
	RespondOK(c, gin.H{"restored": true})
}

func (ph *PredictionHandler) invalidate(c *gin.Context, p *types.Prediction) {
	if ph.cache == nil || p == nil {
		return
	}
	if err := ph.cache.Invalidate(c.Request.Context(), p.UserID, p.ModelType); err != nil {
		ph.log.Warn("cache invalidate failed", "prediction_id", p.ID, "error", err)
	}
}

func pagination(c *gin.Context) (page, pageSize int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))
	return page, pageSize
}
