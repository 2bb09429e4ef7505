package server

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"filestore/internal/store"
)

// maxMemoryMultipart is how much of a multipart upload is buffered in memory
// before spilling to a temporary file.
const maxMemoryMultipart = 32 << 20

// uploadHandler handles POST /files (add) and PUT /files (update). The form
// field "file" carries a zip archive whose entries become stored files.
// An add stops at the first entry whose name is already stored and answers
// 409; entries extracted before it are kept.
func (cfg Config) uploadHandler(update bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := RequestIDFromContext(r.Context())
		if cfg.MaxUploadBytes > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, cfg.MaxUploadBytes)
		}

		if err := r.ParseMultipartForm(maxMemoryMultipart); err != nil {
			var tooBig *http.MaxBytesError
			if errors.As(err, &tooBig) {
				http.Error(w, "ERROR: upload too large", http.StatusRequestEntityTooLarge)
				return
			}
			http.Error(w, "ERROR: bad multipart request", http.StatusBadRequest)
			return
		}
		defer func() { _ = r.MultipartForm.RemoveAll() }()

		file, header, err := r.FormFile("file")
		if err != nil {
			if errors.Is(err, http.ErrMissingFile) {
				http.Error(w, `ERROR: missing form field "file"`, http.StatusBadRequest)
				return
			}
			http.Error(w, "ERROR: bad multipart request", http.StatusBadRequest)
			return
		}
		defer func() { _ = file.Close() }()

		res, err := cfg.Store.Ingest(file, header.Size, update)
		cfg.publish(r.Context(), savedEvents(res.Saved, update)...)

		switch {
		case errors.Is(err, store.ErrBadArchive):
			cfg.Logger.Info("rejected archive", zap.String("rid", rid), zap.Error(err))
			http.Error(w, "ERROR: Unable to create ZipFile object", http.StatusInternalServerError)
		case err != nil:
			cfg.Logger.Error("ingest failed", zap.String("rid", rid), zap.Int("saved", len(res.Saved)), zap.Error(err))
			http.Error(w, "ERROR: Unable to extract files to save", http.StatusInternalServerError)
		case res.Conflicted():
			cfg.Metrics.RecordConflict()
			http.Error(w, "ERROR: "+res.Conflict+" already exists", http.StatusConflict)
		default:
			writeText(w, http.StatusOK, "File(s) Saved")
		}
	})
}

func savedEvents(saved []store.SavedFile, update bool) []Event {
	kind := EventUpload
	if update {
		kind = EventUpdate
	}
	events := make([]Event, 0, len(saved))
	for _, f := range saved {
		events = append(events, Event{Kind: kind, Name: f.Name, Checksum: f.Checksum, Size: f.Size})
	}
	return events
}
