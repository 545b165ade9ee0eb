package router

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/DjordjeVuckovic/news-pulse/internal/apperr"
	"github.com/DjordjeVuckovic/news-pulse/internal/domain"
	"github.com/DjordjeVuckovic/news-pulse/internal/stream"
)

type StreamRouter struct {
	e   *echo.Echo
	bus *stream.Bus
}

func NewStreamRouter(e *echo.Echo, bus *stream.Bus) *StreamRouter {
	return &StreamRouter{e: e, bus: bus}
}

func (r *StreamRouter) Bind() {
	r.e.GET("/api/stream", r.streamHandler)
}

// streamHandler serves a feed slice as server-sent events. A reconnecting
// client resumes by sending the Last-Event-ID header (or ?from=) with the
// position of the last event it processed; if that position has aged out of
// the retained window the first frame is a "reset" event telling the client
// to refetch the feed before applying deltas.
func (r *StreamRouter) streamHandler(c echo.Context) error {
	q := domain.FeedQuery{
		Country:  c.QueryParam("country"),
		Category: c.QueryParam("category"),
		Mode:     domain.FeedMode(c.QueryParam("mode")),
	}
	if q.Category == "" {
		q.Category = "general"
	}
	if q.Mode == "" {
		q.Mode = domain.ModeTrending
	}
	if err := q.Validate(); err != nil {
		return apperr.NewValidationWrap("invalid stream query", err)
	}

	from, err := resumePosition(c)
	if err != nil {
		return err
	}

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set(echo.HeaderCacheControl, "no-cache")
	w.Header().Set(echo.HeaderConnection, "keep-alive")
	w.WriteHeader(http.StatusOK)

	ctx := c.Request().Context()
	sub := r.bus.Subscribe(ctx, q.Channel(), from)
	defer sub.Close()
	slog.Debug("Stream subscriber connected", "subscriber", sub.ID, "channel", q.Channel(), "from", from)

	if err := writeSSE(w, "connected", from, map[string]any{
		"channel": q.Channel(),
		"head":    r.bus.Head(q.Channel()),
	}); err != nil {
		return nil
	}

	if sub.ResetRequired {
		if err := writeSSE(w, "reset", r.bus.Head(q.Channel()), map[string]string{
			"reason": "resume position predates retained window",
		}); err != nil {
			return nil
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-sub.C:
			if !ok {
				// Dropped as a slow consumer; the client reconnects with
				// its last position.
				return nil
			}
			if err := writeSSE(w, event.Type, event.Position, event.Data); err != nil {
				return nil
			}
		}
	}
}

func writeSSE(w *echo.Response, eventType string, id uint64, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", id, eventType, payload); err != nil {
		return err
	}
	w.Flush()
	return nil
}

func resumePosition(c echo.Context) (uint64, error) {
	raw := c.Request().Header.Get("Last-Event-ID")
	if raw == "" {
		raw = c.QueryParam("from")
	}
	if raw == "" {
		return 0, nil
	}

	from, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, apperr.NewValidation("resume position must be a non-negative integer")
	}
	return from, nil
}
