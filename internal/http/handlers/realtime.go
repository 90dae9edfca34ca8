package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/fitlol-ingest/internal/platform/ctxutil"
	"github.com/yungbote/fitlol-ingest/internal/platform/logger"
	"github.com/yungbote/fitlol-ingest/internal/realtime"
)

type RealtimeHandler struct {
	log *logger.Logger
	hub *realtime.SSEHub
}

func NewRealtimeHandler(log *logger.Logger, hub *realtime.SSEHub) *RealtimeHandler {
	return &RealtimeHandler{
		log: log.With("handler", "RealtimeHandler"),
		hub: hub,
	}
}

/*
SSEStream opens a server-sent-events stream. The client is subscribed to its
requester channel (when authenticated) plus any job channels named in the
"jobs" query parameter, e.g. /sse/stream?jobs=<id1>,<id2>. The connection is
torn down and unsubscribed when the client goes away.
*/
func (h *RealtimeHandler) SSEStream(c *gin.Context) {
	subject := "anonymous"
	if rd := ctxutil.GetRequestData(c.Request.Context()); rd != nil && rd.Subject != "" {
		subject = rd.Subject
	}

	client := h.hub.NewSSEClient(subject)
	if subject != "anonymous" {
		h.hub.AddChannel(client, realtime.RequesterChannel(subject))
	}
	for _, raw := range strings.Split(c.Query("jobs"), ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if id, err := uuid.Parse(raw); err == nil {
			h.hub.AddChannel(client, realtime.JobChannel(id.String()))
		}
	}

	h.log.Info("SSE stream open", "subject", subject, "client_id", client.ID)
	h.hub.ServeHTTP(c.Writer, c.Request, client)
	h.hub.CloseClient(client)
	h.log.Debug("SSE stream closed", "client_id", client.ID)
}
