package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	types "github.com/runitlabs/prediction-backend/internal/domain"
	pkgerrors "github.com/runitlabs/prediction-backend/internal/pkg/errors"
	"github.com/runitlabs/prediction-backend/internal/services"
)

type ModelHandler struct {
	registry services.ModelRegistryService
}

func NewModelHandler(registry services.ModelRegistryService) *ModelHandler {
	return &ModelHandler{registry: registry}
}

type registerVersionRequest struct {
	VersionName     string                 `json:"version_name"`
	FilePath        string                 `json:"file_path"`
	TrainedAt       *time.Time             `json:"trained_at"`
	Metrics         types.Metrics          `json:"metrics"`
	Hyperparameters map[string]interface{} `json:"hyperparameters"`
}

// Info reports every registered version grouped by model type, with the
// active one flagged. Mirrors the legacy /models/info endpoint.
func (mh *ModelHandler) Info(c *gin.Context) {
	out := gin.H{}
	for _, mt := range []types.ModelType{types.ModelTypeChurn, types.ModelTypeLTV} {
		versions, err := mh.registry.ListVersions(c.Request.Context(), mt)
		if err != nil {
			RespondDomainError(c, err)
			return
		}
		out[string(mt)] = versions
	}
	RespondOK(c, gin.H{"models": out})
}

func (mh *ModelHandler) Register(c *gin.Context) {
	modelType, err := pathModelType(c)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	var req registerVersionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "VALIDATION", err)
		return
	}
	trainedAt := time.Now().UTC()
	if req.TrainedAt != nil {
		trainedAt = *req.TrainedAt
	}
	version, err := mh.registry.Register(c.Request.Context(), services.RegisterVersionInput{
		ModelType:       modelType,
		VersionName:     req.VersionName,
		FilePath:        req.FilePath,
		TrainedAt:       trainedAt,
		Metrics:         req.Metrics,
		Hyperparameters: req.Hyperparameters,
	})
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"version": version})
}

func (mh *ModelHandler) Activate(c *gin.Context) {
	modelType, err := pathModelType(c)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	version, err := mh.registry.Activate(c.Request.Context(), modelType, c.Param("version"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"version": version})
}

func (mh *ModelHandler) Active(c *gin.Context) {
	modelType, err := pathModelType(c)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	version, err := mh.registry.GetActive(c.Request.Context(), modelType)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"version": version})
}

func pathModelType(c *gin.Context) (types.ModelType, error) {
	mt, err := types.ParseModelType(c.Param("model_type"))
	if err != nil {
		return "", fmt.Errorf("%w: %v", pkgerrors.ErrValidation, err)
	}
	return mt, nil
}
