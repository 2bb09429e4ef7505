package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"filestore/internal/analytics"
)

const noFilesMessage = "No files currently stored"

// wordCountHandler handles GET /wordcount. The default rendering is one
// "<name> wordcount = <n>" line per file; JSON is returned on request.
func (cfg Config) wordCountHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		counts, err := cfg.Analytics.WordCount(r.Context())
		if cfg.analyticsFailed(w, r, err) {
			return
		}
		if wantsJSON(r) {
			writeJSON(w, http.StatusOK, counts)
			return
		}
		lines := make([]string, 0, len(counts))
		for _, c := range counts {
			lines = append(lines, fmt.Sprintf("%s wordcount = %d", c.Name, c.Words))
		}
		writeText(w, http.StatusOK, strings.Join(lines, "\n"))
	})
}

// wordFrequencyHandler handles GET /wordfrequency?limit=N&orderBy=asc|desc
// and answers with a JSON array of [word, count] pairs.
func (cfg Config) wordFrequencyHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		orderBy := q.Get("orderBy")
		if orderBy == "" {
			orderBy = defaultOrderBy
		}
		rows, err := cfg.Analytics.WordFrequency(r.Context(), parseLimit(q.Get("limit")), analytics.ParseOrder(orderBy))
		if cfg.analyticsFailed(w, r, err) {
			return
		}
		if rows == nil {
			rows = []analytics.WordFreq{}
		}
		writeJSON(w, http.StatusOK, rows)
	})
}

// analyticsFailed writes the response for a failed analytics call and
// reports whether it did.
func (cfg Config) analyticsFailed(w http.ResponseWriter, r *http.Request, err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, analytics.ErrEmptyStore):
		writeText(w, http.StatusOK, noFilesMessage)
	default:
		if r.Context().Err() == nil {
			cfg.Logger.Error("analytics failed", zap.String("rid", RequestIDFromContext(r.Context())), zap.Error(err))
		}
		http.Error(w, "ERROR: Unable to read stored files", http.StatusInternalServerError)
	}
	return true
}
