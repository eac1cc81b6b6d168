package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/mdocs/internal/middleware"
	appErr "github.com/xxxsen/mdocs/internal/pkg/errors"
	"github.com/xxxsen/mdocs/internal/pkg/response"
)

func getUserID(c *gin.Context) string {
	return c.GetString(middleware.ContextUserIDKey)
}

func queryInt(c *gin.Context, name string) int {
	value := c.Query(name)
	if value == "" {
		return 0
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 0 {
		return 0
	}
	return parsed
}

func badRequest(c *gin.Context, message string) {
	response.Error(c, http.StatusBadRequest, response.CodeInvalid, message)
}

// handleError maps service errors onto the response envelope. Not-found and
// not-owned share one response so callers cannot probe foreign ids.
func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	logger := logutil.GetLogger(c.Request.Context()).With(
		zap.String("request_id", c.GetString(middleware.ContextRequestIDKey)),
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.String("user_id", getUserID(c)),
		zap.Error(err),
	)
	switch {
	case errors.Is(err, appErr.ErrUnauthorized):
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "unauthorized")
	case errors.Is(err, appErr.ErrNotFound):
		response.Error(c, http.StatusNotFound, response.CodeNotFound, "not found")
	case errors.Is(err, appErr.ErrInvalid):
		response.Error(c, http.StatusBadRequest, response.CodeInvalid, "invalid request")
	case errors.Is(err, appErr.ErrConflict):
		logger.Warn("request conflict")
		response.Error(c, http.StatusConflict, response.CodeConflict, "conflict")
	case appErr.IsUnavailable(err):
		logger.Error("repository unavailable")
		response.Error(c, http.StatusServiceUnavailable, response.CodeUnavailable, "service unavailable")
	default:
		logger.Error("request failed")
		response.Error(c, http.StatusInternalServerError, response.CodeInternal, "internal error")
	}
}
