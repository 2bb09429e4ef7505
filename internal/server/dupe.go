package server

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"filestore/internal/store"
)

// copyDupeHandler handles /copydupe and /checkdupe with parameters sha256
// and fileName, plus an optional overwrite=false. When other stored content
// has that checksum it is copied to fileName server side and the answer is
// {"dupeFound": true}, so the client need not upload the bytes.
func (cfg Config) copyDupeHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := RequestIDFromContext(r.Context())

		req, err := parseDupeReq(r)
		if err != nil {
			http.Error(w, "ERROR: "+err.Error(), http.StatusBadRequest)
			return
		}

		res, err := cfg.Store.ResolveDuplicate(req.Checksum, req.FileName, store.ResolveOptions{NoOverwrite: !req.Overwrite})
		if err != nil {
			if errors.Is(err, store.ErrInvalidChecksum) || errors.Is(err, store.ErrInvalidName) {
				http.Error(w, "ERROR: "+err.Error(), http.StatusBadRequest)
				return
			}
			cfg.Logger.Error("resolve duplicate", zap.String("rid", rid), zap.String("name", req.FileName), zap.Error(err))
			http.Error(w, "ERROR: Unable to check for duplicates", http.StatusInternalServerError)
			return
		}

		cfg.Metrics.RecordDedup(res.Duplicate)
		if res.Duplicate {
			cfg.publish(r.Context(), Event{
				Kind:     EventDedupCopy,
				Name:     res.Name,
				Checksum: res.Checksum,
				Size:     res.Size,
				Source:   res.Source,
			})
		}
		writeJSON(w, http.StatusOK, map[string]bool{"dupeFound": res.Duplicate})
	})
}
