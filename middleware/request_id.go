package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/cppla/aiblog/utils"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

// RequestID reuses an incoming X-Request-ID or assigns a new one.
func RequestID() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		rid := ctx.GetHeader(RequestIDHeader)
		if rid == "" || len(rid) > 64 {
			rid = utils.NewRequestID()
		}
		ctx.Set(utils.RequestIDKey, rid)
		ctx.Header(RequestIDHeader, rid)
		ctx.Next()
	}
}
