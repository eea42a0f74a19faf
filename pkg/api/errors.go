package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/roundtable-run/roundtable/pkg/credential"
	"github.com/roundtable-run/roundtable/pkg/services"
)

// errorResponse is the JSON envelope for every non-2xx response.
type errorResponse struct {
	Error string `json:"error"`
}

// respondError maps a service-layer (or credential-layer) error to an
// HTTP status and writes the JSON error envelope. Centralized here so
// handlers never hand-roll a status code for a sentinel error.
func respondError(c *gin.Context, err error) {
	var validErr *services.ValidationError
	switch {
	case errors.As(err, &validErr):
		c.JSON(http.StatusBadRequest, errorResponse{Error: validErr.Error()})
	case errors.Is(err, services.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, errorResponse{Error: "resource not found"})
	case errors.Is(err, services.ErrAlreadyExists):
		c.JSON(http.StatusConflict, errorResponse{Error: "resource already exists"})
	case errors.Is(err, services.ErrStatePrecondition):
		c.JSON(http.StatusConflict, errorResponse{Error: "meeting is not in a state that accepts this operation"})
	case errors.Is(err, services.ErrUnauthorized), errors.Is(err, credential.ErrInvalidToken):
		c.JSON(http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
	case errors.Is(err, services.ErrForbidden), errors.Is(err, credential.ErrMissingScope):
		c.JSON(http.StatusForbidden, errorResponse{Error: "forbidden"})
	default:
		slog.Error("unexpected service error", "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}
