package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"oilmill/internal/core/apperror"
	"oilmill/internal/core/idempotency"
	"oilmill/internal/infrastructure/http/v1/handlers"
	"oilmill/pkg/logger"
)

// ErrorHandler middleware transforms errors into consistent JSON responses.
// Hides internal errors from clients while logging full details.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err

		// If response already written by handler, do not override it.
		if c.Writer.Written() {
			return
		}

		status, body := render(c, err)
		failIdempotency(c, status, body)
		c.JSON(status, body)
	}
}

func render(c *gin.Context, err error) (int, gin.H) {
	if appErr, ok := apperror.AsAppError(err); ok {
		if appErr.Err != nil || appErr.HTTPStatus >= http.StatusInternalServerError {
			logger.Error(c.Request.Context(), "request error",
				"code", appErr.Code,
				"cause", appErr.Err,
			)
		}
		return appErr.HTTPStatus, gin.H{
			"code":    appErr.Code,
			"message": appErr.Message,
			"details": appErr.Details,
		}
	}

	logger.Error(c.Request.Context(), "unhandled error", "error", err)
	return http.StatusInternalServerError, gin.H{
		"code":    apperror.CodeInternal,
		"message": "Internal server error",
		"details": map[string]any{
			"request_id": c.GetString("request_id"),
		},
	}
}

// failIdempotency stores the error response so a retry replays it.
func failIdempotency(c *gin.Context, status int, body gin.H) {
	key := c.GetString(handlers.CtxIdempotencyKey)
	if key == "" {
		return
	}
	store, ok := c.Value(handlers.CtxIdempotencyStore).(idempotency.Store)
	if !ok {
		return
	}
	if err := store.FailKey(c.Request.Context(), key, status, "application/json", body); err != nil {
		logger.Warn(c.Request.Context(), "failed to record idempotency failure", "key", key, "error", err)
	}
}
