package http

import (
	"net/http"
	"time"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const heartbeatPeriod = 15 * time.Second

func (h *handlers) listRooms(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"rooms": h.svc.Orch.Rooms.Snapshot()})
}

// roomEvents streams presence changes as server-sent events, starting with
// a snapshot of the live rooms.
func (h *handlers) roomEvents(c *gin.Context) {
	hub := h.svc.Orch.Presence
	if hub == nil {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}
	events, cancel := hub.Subscribe()
	defer cancel()

	w := c.Writer
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if err := sse.Encode(w, sse.Event{Event: "snapshot", Data: h.svc.Orch.Rooms.Snapshot()}); err != nil {
		return
	}
	w.Flush()

	heartbeat := time.NewTicker(heartbeatPeriod)
	defer heartbeat.Stop()
	done := c.Request.Context().Done()

	for {
		select {
		case <-done:
			log.Debug().Str("module", "adapters.http").Msg("sse client gone")
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := sse.Encode(w, sse.Event{Event: string(ev.Kind), Data: ev}); err != nil {
				log.Debug().Str("module", "adapters.http").Err(err).Msg("sse write")
				return
			}
			w.Flush()
		case <-heartbeat.C:
			if err := sse.Encode(w, sse.Event{Event: "keepalive", Data: time.Now().UTC().Format(time.RFC3339)}); err != nil {
				return
			}
			w.Flush()
		}
	}
}

