package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ironsheep/parkscan/internal/pipeline"
	"github.com/ironsheep/parkscan/internal/store"
)

// StatusClientClosedRequest is the nginx convention for a request abandoned
// by the client.
const StatusClientClosedRequest = 499

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func errorResponse(msg string) ErrorResponse {
	return ErrorResponse{Success: false, Error: msg}
}

// StatusFor maps an error to its HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUploadTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, pipeline.ErrInvalidImage):
		return http.StatusBadRequest
	case errors.Is(err, pipeline.ErrConfiguration):
		return http.StatusUnprocessableEntity
	case errors.Is(err, pipeline.ErrDetectorUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, pipeline.ErrCanceled):
		if errors.Is(err, context.DeadlineExceeded) {
			return http.StatusRequestTimeout
		}
		return StatusClientClosedRequest
	default:
		return http.StatusInternalServerError
	}
}

// fail logs err and writes the matching error response.
func (h *Handler) fail(c *gin.Context, err error) {
	status := StatusFor(err)
	event := h.log.Warn()
	if status >= http.StatusInternalServerError {
		event = h.log.Error()
	}
	event.Err(err).
		Int("status", status).
		Str("stage", string(pipeline.StageOf(err))).
		Str("path", c.FullPath()).
		Msg("request failed")

	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal server error"
	}
	c.JSON(status, errorResponse(msg))
}
