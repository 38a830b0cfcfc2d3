package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"gymdesk/internal/adapters/http/middleware"
	"gymdesk/internal/domain/outbox"
)

// OutboxOps is the sync processor surface exposed to operators.
type OutboxOps interface {
	Pending(ctx context.Context, limit int) ([]outbox.Entry, error)
	Failed(ctx context.Context, limit int) ([]outbox.Entry, error)
	ProcessSingle(ctx context.Context, entryID string) error
	AbandonEntry(ctx context.Context, entryID string) error
}

// OpsConfig configures the ops server.
type OpsConfig struct {
	Metrics       http.Handler  // served at /metrics
	Outbox        OutboxOps     // nil disables the /outbox routes
	SlowRequest   time.Duration // threshold for slow_request warnings
	RatePerMinute int           // per-client request budget, 0 for 120
}

// NewOpsMux builds the handler served by `gymdesk sync --watch`.
// Routes: GET /healthz, GET /metrics, GET /outbox?status=failed|pending&limit=N,
// POST /outbox/{id}/retry, POST /outbox/{id}/abandon
func NewOpsMux(cfg OpsConfig) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", cfg.Metrics)
	}
	if cfg.Outbox != nil {
		h := outboxHandler{ops: cfg.Outbox}
		mux.HandleFunc("GET /outbox", h.list)
		mux.HandleFunc("POST /outbox/{id}/retry", h.retry)
		mux.HandleFunc("POST /outbox/{id}/abandon", h.abandon)
	}

	rate := cfg.RatePerMinute
	if rate <= 0 {
		rate = 120
	}
	return middleware.Chain(mux,
		middleware.NoSniff,
		middleware.RateLimit(middleware.NewRateLimiter(rate, time.Minute)),
		middleware.Timing(cfg.SlowRequest),
	)
}

type outboxHandler struct {
	ops OutboxOps
}

// list returns failed entries by default; status=pending lists the backlog.
func (h outboxHandler) list(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if n, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && n > 0 && n <= 100 {
		limit = n
	}

	var (
		entries []outbox.Entry
		err     error
	)
	switch r.URL.Query().Get("status") {
	case "", outbox.StatusFailed:
		entries, err = h.ops.Failed(r.Context(), limit)
	case outbox.StatusPending:
		entries, err = h.ops.Pending(r.Context(), limit)
	default:
		http.Error(w, "status must be failed or pending", http.StatusBadRequest)
		return
	}
	if err != nil {
		internalError(w, err)
		return
	}
	if entries == nil {
		entries = []outbox.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h outboxHandler) retry(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.ops.ProcessSingle(r.Context(), id); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	slog.Info("sync_event", "event", "manual_retry", "entry_id", id)
	writeJSON(w, http.StatusOK, map[string]string{"status": "retry triggered"})
}

func (h outboxHandler) abandon(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.ops.AbandonEntry(r.Context(), id); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "abandoned"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func internalError(w http.ResponseWriter, err error) {
	slog.Error("ops_request_failed", "error", err.Error())
	http.Error(w, "internal error", http.StatusInternalServerError)
}
