package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/chazu/gws/internal/catalog"
)

// ErrorResponse is the body of every error answer
type ErrorResponse struct {
	// Error is the error code, e.g. "not_found"
	Error string `json:"error"`

	// Message is a human-readable message
	Message string `json:"message"`

	// RequestID is the id assigned by RequestLogger
	RequestID string `json:"request_id,omitempty"`
}

var errInvalidID = errors.New("invalid resource id")

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, ErrorResponse{
		Error:     code,
		Message:   message,
		RequestID: c.GetString(keyRequestID),
	})
}

// fail answers with the status err maps to. Catalog misses and conflicts
// are client errors; everything else is logged and reported as a generic
// internal error.
func fail(c *gin.Context, err error) {
	_ = c.Error(err)

	switch {
	case errors.Is(err, errInvalidID):
		respondError(c, http.StatusBadRequest, "invalid_request", "Invalid resource id")
	case catalog.IsNotFound(err):
		respondError(c, http.StatusNotFound, "not_found", "Resource not found")
	case catalog.IsAlreadyExists(err):
		respondError(c, http.StatusConflict, "already_exists", "Resource already exists")
	default:
		log.FromContext(c.Request.Context()).Error(err, "Request failed")
		respondError(c, http.StatusInternalServerError, "internal_error", "Internal Server Error")
	}
}

// failValidation answers a request body that did not bind
func failValidation(c *gin.Context, err error) {
	_ = c.Error(err)
	respondError(c, http.StatusBadRequest, "validation_error", validationMessage(err))
}

// pathID parses the uuid path parameter name
func pathID(c *gin.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, errInvalidID
	}
	return id, nil
}
