package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"filestore/internal/store"
)

const (
	defaultEventsLimit = 100
	maxEventsLimit     = 1000
)

// eventLister is implemented by recorders that can read events back.
type eventLister interface {
	Recent(ctx context.Context, limit int) ([]Event, error)
}

// reconcileHandler handles POST /admin/reconcile: rebuild the index from
// the files on disk and report what was repaired.
func (cfg Config) reconcileHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		report, err := cfg.reconcile(r.Context())
		if err != nil {
			cfg.Logger.Error("reconcile", zap.String("rid", RequestIDFromContext(r.Context())), zap.Error(err))
			http.Error(w, "ERROR: reconcile failed", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, report)
	})
}

// verifyHandler handles GET /admin/verify: list inconsistencies between the
// index and the files on disk without changing anything.
func (cfg Config) verifyHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		problems, err := cfg.Store.Verify()
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, store.ErrIndexCorrupt) {
				status = http.StatusConflict
			}
			http.Error(w, "ERROR: "+err.Error(), status)
			return
		}
		if problems == nil {
			problems = []store.Inconsistency{}
		}
		writeJSON(w, http.StatusOK, problems)
	})
}

// eventsHandler handles GET /admin/events?limit=N: the most recent audited
// store events, newest first.
func (cfg Config) eventsHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lister, ok := cfg.Recorder.(eventLister)
		if !ok {
			http.Error(w, "audit trail disabled", http.StatusNotFound)
			return
		}
		limit := parseEventsLimit(r.URL.Query().Get("limit"))
		events, err := lister.Recent(r.Context(), limit)
		if err != nil {
			cfg.Logger.Error("list events", zap.String("rid", RequestIDFromContext(r.Context())), zap.Error(err))
			http.Error(w, "ERROR: unable to read events", http.StatusInternalServerError)
			return
		}
		if events == nil {
			events = []Event{}
		}
		writeJSON(w, http.StatusOK, events)
	})
}

// parseEventsLimit reads the /admin/events limit. Missing or unparseable
// values give defaultEventsLimit; the result is clamped to [0, maxEventsLimit].
func parseEventsLimit(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return defaultEventsLimit
	}
	return min(max(n, 0), maxEventsLimit)
}
