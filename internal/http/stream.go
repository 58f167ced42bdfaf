package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"walletsync/internal/events"
	"walletsync/internal/log"
)

// handleEvents streams change notifications as server-sent events until the
// client goes away. Each event is a "transaction_updated" message whose data
// is the JSON event. Idle streams get a comment every heartbeat.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if _, err := s.session.Current(); err != nil {
		writeError(w, r, err)
		return
	}
	ctx := r.Context()
	logger := log.FromContext(ctx)

	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		logger.DebugContext(ctx, "Write deadline not cleared", log.FieldError, err)
	}

	ch := make(chan events.Event, events.DefaultBufferSize)
	sub := s.bus.Subscribe("sse", func(_ context.Context, e events.Event) {
		select {
		case ch <- e:
		default:
		}
	})
	defer sub.Unsubscribe()

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if _, err := fmt.Fprint(w, ": connected\n\n"); err != nil {
		return
	}
	if err := rc.Flush(); err != nil {
		logger.WarnContext(ctx, "Streaming not supported", log.FieldError, err)
		return
	}

	ticker := time.NewTicker(s.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.DebugContext(ctx, "Event stream closed")
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
		case e := <-ch:
			data, err := json.Marshal(e)
			if err != nil {
				logger.ErrorContext(ctx, "Encode event", log.FieldError, err)
				continue
			}
			if _, err := fmt.Fprintf(w, "event: transaction_updated\ndata: %s\n\n", data); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}
