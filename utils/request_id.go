package utils

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// RequestIDKey is the gin context key holding the request id.
const RequestIDKey = "request_id"

// NewRequestID returns a random identifier for requests and token ids.
func NewRequestID() string {
	return uuid.NewString()
}

// RequestIDFields adds the request id to access log lines.
func RequestIDFields(c *gin.Context) []zapcore.Field {
	rid := c.GetString(RequestIDKey)
	if rid == "" {
		return nil
	}
	return []zapcore.Field{zap.String("request_id", rid)}
}
