package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/runitlabs/prediction-backend/internal/platform/apierr"
	pkgerrors "github.com/runitlabs/prediction-backend/internal/pkg/errors"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// RespondDomainError maps the domain error taxonomy onto HTTP statuses.
func RespondDomainError(c *gin.Context, err error) {
	var ae *apierr.Error
	if errors.As(err, &ae) {
		RespondError(c, ae.Status, ae.Code, ae.Err)
		return
	}
	switch {
	case errors.Is(err, pkgerrors.ErrValidation):
		RespondError(c, http.StatusBadRequest, "VALIDATION", err)
	case errors.Is(err, pkgerrors.ErrNotFound):
		RespondError(c, http.StatusNotFound, "NOT_FOUND", err)
	case errors.Is(err, pkgerrors.ErrDuplicateVersion):
		RespondError(c, http.StatusConflict, "DUPLICATE_VERSION", err)
	case errors.Is(err, pkgerrors.ErrConflict):
		RespondError(c, http.StatusConflict, "CONFLICT", err)
	case errors.Is(err, pkgerrors.ErrConsistency):
		RespondError(c, http.StatusConflict, "CONSISTENCY", err)
	case errors.Is(err, pkgerrors.ErrInference):
		RespondError(c, http.StatusBadGateway, "INFERENCE", err)
	default:
		RespondError(c, http.StatusInternalServerError, "INTERNAL", err)
	}
}
