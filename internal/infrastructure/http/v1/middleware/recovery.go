// Package middleware provides HTTP middleware components.
package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"oilmill/internal/core/apperror"
	appctx "oilmill/internal/core/context"
	"oilmill/pkg/logger"
)

// Recovery turns a panic in a handler or a later middleware into a 500
// INTERNAL_ERROR response. It runs outermost, so the panic has already
// unwound ErrorHandler and the response is rendered here.
//
// The request and trace ids come from the context Trace stored on the
// request, and a claimed idempotency key is closed with the failure so a
// retry with the same key replays it instead of waiting for the claim to
// expire.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			ctx := c.Request.Context()
			requestID, traceID := appctx.GetRequestID(ctx), ""
			if tc := appctx.GetTrace(ctx); tc != nil {
				traceID = tc.TraceID
			}
			logger.Error(ctx, "panic recovered",
				"panic", rec,
				"method", c.Request.Method,
				"route", c.FullPath(),
				"request_id", requestID,
				"trace_id", traceID,
				"user_id", appctx.GetUserID(ctx),
				"stack", string(debug.Stack()),
			)

			appErr := apperror.NewInternal(fmt.Errorf("panic: %v", rec)).
				WithDetail("request_id", requestID)
			_ = c.Error(appErr)

			body := gin.H{
				"code":    appErr.Code,
				"message": appErr.Message,
				"details": appErr.Details,
			}
			failIdempotency(c, appErr.HTTPStatus, body)
			if c.Writer.Written() {
				c.Abort()
				return
			}
			c.AbortWithStatusJSON(appErr.HTTPStatus, body)
		}()
		c.Next()
	}
}
