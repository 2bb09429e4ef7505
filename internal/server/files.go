package server

import (
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"

	"go.uber.org/zap"

	"filestore/internal/store"
)

// listFilesHandler handles GET /files: the stored names as a sorted JSON
// array. A store directory that does not exist yet lists as empty.
func (cfg Config) listFilesHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		names, err := cfg.Store.List()
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				cfg.Logger.Error("list files", zap.String("rid", RequestIDFromContext(r.Context())), zap.Error(err))
				http.Error(w, "Error retrieving files", http.StatusInternalServerError)
				return
			}
			names = []string{}
		}
		writeJSON(w, http.StatusOK, names)
	})
}

// deleteFilesHandler handles DELETE /files with a body such as
// {"filenames":"a.txt,b.txt"}. Names that are not stored are ignored.
func (cfg Config) deleteFilesHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := RequestIDFromContext(r.Context())

		names, err := parseDeleteBody(r.Body)
		if err != nil {
			http.Error(w, "ERROR: "+err.Error(), http.StatusBadRequest)
			return
		}

		removed, err := cfg.Store.Remove(names)
		events := make([]Event, 0, len(removed))
		for _, name := range removed {
			events = append(events, Event{Kind: EventDelete, Name: name})
		}
		cfg.publish(r.Context(), events...)

		if err != nil {
			cfg.Logger.Warn("delete files", zap.String("rid", rid), zap.Strings("removed", removed), zap.Error(err))
			if errors.Is(err, store.ErrInvalidName) {
				http.Error(w, "ERROR: "+err.Error(), http.StatusBadRequest)
				return
			}
			http.Error(w, "ERROR: Unable to delete files", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeText(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(msg))
}
