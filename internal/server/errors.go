package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"resume-rag/internal/models"
)

type errorResponse struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
}

// classify maps an error to its HTTP status and error code. Order matters:
// the more specific sentinels are checked first.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, models.ErrCollectionNotFound):
		return http.StatusNotFound, "collection_not_found"
	case errors.Is(err, models.ErrCollectionExists):
		return http.StatusConflict, "collection_exists"
	case errors.Is(err, models.ErrConfiguration):
		return http.StatusBadRequest, "configuration_error"
	case errors.Is(err, models.ErrGeneration):
		return http.StatusBadGateway, "generation_error"
	case errors.Is(err, models.ErrIndexing):
		return http.StatusInternalServerError, "indexing_error"
	case errors.Is(err, models.ErrProvider):
		return http.StatusBadGateway, "provider_error"
	case errors.Is(err, models.ErrStorage):
		return http.StatusInternalServerError, "storage_error"
	}
	return http.StatusInternalServerError, "internal_error"
}

func abortWithError(c *gin.Context, err error) {
	status, code := classify(err)
	ev := log.Warn()
	if status >= http.StatusInternalServerError {
		ev = log.Error()
	}
	ev.Err(err).Str("request_id", requestID(c)).Str("error_code", code).Msg("Request failed")
	c.AbortWithStatusJSON(status, errorResponse{ErrorCode: code, Message: err.Error()})
}

func abortBadRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{ErrorCode: "invalid_input", Message: msg})
}
