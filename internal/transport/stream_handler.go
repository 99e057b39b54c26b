package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"stockboard/internal/subscription"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const defaultHeartbeat = 15 * time.Second

// StreamEvent is the payload of one server-sent event.
type StreamEvent[T any] struct {
	State subscription.State `json:"state"`
	Items []T                `json:"items"`
	Error string             `json:"error,omitempty"`
}

// StreamHandler pushes live product and order views as server-sent events.
// Every connection owns its own feed for as long as it stays open.
type StreamHandler struct {
	store     subscription.Subscriber
	logger    *zap.Logger
	heartbeat time.Duration
}

// NewStreamHandler creates a new StreamHandler
func NewStreamHandler(store subscription.Subscriber, logger *zap.Logger) *StreamHandler {
	return &StreamHandler{
		store:     store,
		logger:    logger,
		heartbeat: defaultHeartbeat,
	}
}

func (h *StreamHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/stream", func(r chi.Router) {
		r.Get("/products", h.Products)
		r.Get("/orders", h.Orders)
	})
}

func (h *StreamHandler) Products(w http.ResponseWriter, r *http.Request) {
	feed := subscription.NewProductFeed(h.store, h.logger)
	serveFeed(w, r, h, feed, newProductResponses)
}

func (h *StreamHandler) Orders(w http.ResponseWriter, r *http.Request) {
	feed := subscription.NewOrderFeed(h.store, h.logger)
	serveFeed(w, r, h, feed, newOrderResponses)
}

func serveFeed[T, R any](w http.ResponseWriter, r *http.Request, h *StreamHandler, feed *subscription.Feed[T], convert func([]T) []R) {
	rc := http.NewResponseController(w)
	// Streams outlive the server write timeout.
	if err := rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		h.logger.Warn("Failed to clear write deadline", zap.Error(err))
	}

	ctx := r.Context()
	if err := feed.Activate(ctx); err != nil {
		respondWithServiceError(w, h.logger, "Failed to open stream", err)
		return
	}
	defer feed.Deactivate()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	write := func(view subscription.View[T]) error {
		data, err := json.Marshal(StreamEvent[R]{
			State: view.State,
			Items: convert(view.Items),
			Error: view.Err,
		})
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", view.State, data); err != nil {
			return err
		}
		return rc.Flush()
	}

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	// Updates holds the newest view, starting with the one set by Activate.
	for {
		select {
		case <-ctx.Done():
			return
		case view := <-feed.Updates():
			if err := write(view); err != nil {
				h.logger.Debug("Stream closed", zap.Error(err))
				return
			}
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}

