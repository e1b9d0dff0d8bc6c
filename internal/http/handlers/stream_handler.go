package handlers

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"

	"github.com/tbourn/realty-dashboard/internal/broadcast"
	"github.com/tbourn/realty-dashboard/internal/domain"
	"github.com/tbourn/realty-dashboard/internal/http/middleware"
)

// heartbeatFrame is an SSE comment; clients ignore it.
const heartbeatFrame = ": keep-alive\n\n"

// Stream godoc
// @ID          stream
// @Summary     Live apartment snapshots
// @Description Server-Sent Events stream. Each `apartment-update` event carries the full ordered apartment list; the first one is sent on connect.
// @Tags        Stream
// @Produce     text/event-stream
// @Success     200  {array}   domain.Apartment
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Failure     503  {object}  handlers.ErrorResponse  "Shutting down"
// @Router      /stream [get]
func (h *Handlers) Stream(c *gin.Context) {
	sub, err := h.hub.Subscribe()
	if err != nil {
		fail(c, http.StatusServiceUnavailable, ErrCodeUnavailable, "stream unavailable")
		return
	}
	defer h.hub.Unsubscribe(sub)

	ctx := c.Request.Context()
	lg := middleware.LoggerFrom(c).With().Str("subscriber", sub.ID).Logger()

	// Subscribe before reading so a write racing this connect is not lost:
	// it either lands in the initial snapshot or arrives as a later event.
	// A snapshot published after the read is newer, so the initial one only
	// fills an empty slot.
	initial, err := h.svc.Snapshot(ctx)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "failed to load apartments")
		return
	}
	if !h.hub.Offer(sub, initial) {
		lg.Debug().Msg("newer snapshot pending; initial snapshot skipped")
	}

	// The server's WriteTimeout would otherwise cut the stream off.
	if err := http.NewResponseController(c.Writer).SetWriteDeadline(time.Time{}); err != nil {
		lg.Debug().Err(err).Msg("write deadline not cleared; client will reconnect")
	}

	hdr := c.Writer.Header()
	hdr.Set("Content-Type", "text/event-stream")
	hdr.Set("Cache-Control", "no-cache")
	hdr.Set("Connection", "keep-alive")
	hdr.Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	lg.Info().Msg("stream client connected")
	defer lg.Info().Msg("stream client disconnected")

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.Done():
			return
		case snap := <-sub.C():
			if err := writeSnapshot(c.Writer, snap); err != nil {
				lg.Debug().Err(err).Msg("stream write failed")
				return
			}
			c.Writer.Flush()
		case <-ticker.C:
			if _, err := io.WriteString(c.Writer, heartbeatFrame); err != nil {
				return
			}
			c.Writer.Flush()
		}
	}
}

func writeSnapshot(w io.Writer, snap []domain.Apartment) error {
	if snap == nil {
		snap = []domain.Apartment{}
	}
	return sse.Encode(w, sse.Event{Event: broadcast.EventName, Data: snap})
}
