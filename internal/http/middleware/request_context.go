package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/fitlol-ingest/internal/platform/ctxutil"
)

// AttachRequestContext assigns trace/request ids to every request so log
// lines and job payloads can be correlated.
func AttachRequestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader("X-Trace-Id")
		if traceID == "" {
			traceID = uuid.NewString()
		}
		ctx := ctxutil.WithTraceData(c.Request.Context(), &ctxutil.TraceData{
			TraceID:   traceID,
			RequestID: uuid.NewString(),
		})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
