package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/runitlabs/prediction-backend/internal/features"
	pkgerrors "github.com/runitlabs/prediction-backend/internal/pkg/errors"
	"github.com/runitlabs/prediction-backend/internal/services"
)

type FeatureHandler struct {
	featureStore services.FeatureStoreService
}

func NewFeatureHandler(featureStore services.FeatureStoreService) *FeatureHandler {
	return &FeatureHandler{featureStore: featureStore}
}

func (fh *FeatureHandler) Ingest(c *gin.Context) {
	userID, err := pathUUID(c, "id")
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	var raw features.RawFeatures
	if err := c.ShouldBindJSON(&raw); err != nil {
		RespondError(c, http.StatusBadRequest, "VALIDATION", err)
		return
	}
	snapshot, err := fh.featureStore.Upsert(c.Request.Context(), userID, raw)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"snapshot": snapshot})
}

func (fh *FeatureHandler) Get(c *gin.Context) {
	userID, err := pathUUID(c, "id")
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	includeDeleted := c.Query("include_deleted") == "true"
	snapshot, err := fh.featureStore.Get(c.Request.Context(), userID, includeDeleted)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"snapshot": snapshot})
}

func (fh *FeatureHandler) Delete(c *gin.Context) {
	userID, err := pathUUID(c, "id")
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	if err := fh.featureStore.SoftDelete(c.Request.Context(), userID); err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"deleted": true})
}

func pathUUID(c *gin.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid %s: %v", pkgerrors.ErrValidation, name, err)
	}
	return id, nil
}
