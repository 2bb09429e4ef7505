package server

import (
	"context"
	"io"
	"io/fs"
	"time"

	"go.uber.org/zap"
)

// EventKind names a store mutation.
type EventKind string

const (
	EventUpload    EventKind = "upload"
	EventUpdate    EventKind = "update"
	EventDedupCopy EventKind = "dedup_copy"
	EventDelete    EventKind = "delete"
	EventReconcile EventKind = "reconcile"
)

// Event describes one change to the stored file set.
type Event struct {
	ID        string         `json:"id"`
	Time      time.Time      `json:"time"`
	Kind      EventKind      `json:"kind"`
	Name      string         `json:"name,omitempty"`
	Checksum  string         `json:"sha256,omitempty"`
	Size      int64          `json:"size_bytes,omitempty"`
	Source    string         `json:"source,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

// EventRecorder persists events, e.g. the Postgres Auditor.
type EventRecorder interface {
	Record(ctx context.Context, ev Event) error
}

// ObjectMirror copies stored files to a secondary object store.
type ObjectMirror interface {
	Put(ctx context.Context, name string, r io.Reader, size int64) error
	Remove(ctx context.Context, name string) error
}

// sideEffectTimeout bounds mirror and audit calls made on a request path.
const sideEffectTimeout = 30 * time.Second

// publish counts each event and forwards it to the recorder and mirror when
// they are configured. Failures are logged, never returned.
func (cfg Config) publish(ctx context.Context, events ...Event) {
	rid := RequestIDFromContext(ctx)
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()

	for _, ev := range events {
		if ev.RequestID == "" {
			ev.RequestID = rid
		}
		cfg.Metrics.RecordEvent(ev)
		cfg.mirror(ctx, ev)
		if cfg.Recorder == nil {
			continue
		}
		if err := cfg.Recorder.Record(ctx, ev); err != nil {
			cfg.Logger.Warn("audit record failed",
				zap.String("rid", rid), zap.String("kind", string(ev.Kind)), zap.String("name", ev.Name), zap.Error(err))
		}
	}
}

func (cfg Config) mirror(ctx context.Context, ev Event) {
	if cfg.Mirror == nil || ev.Name == "" {
		return
	}
	var err error
	switch ev.Kind {
	case EventUpload, EventUpdate, EventDedupCopy:
		err = cfg.mirrorPut(ctx, ev.Name)
	case EventDelete:
		err = cfg.Mirror.Remove(ctx, ev.Name)
	default:
		return
	}
	if err != nil {
		cfg.Metrics.mirrorErrors.Inc()
		cfg.Logger.Warn("mirror failed",
			zap.String("kind", string(ev.Kind)), zap.String("name", ev.Name), zap.Error(err))
	}
}

func (cfg Config) mirrorPut(ctx context.Context, name string) error {
	rc, err := cfg.Store.Open(name)
	if err != nil {
		return err
	}
	defer func() { _ = rc.Close() }()

	size := int64(-1)
	if st, ok := rc.(interface{ Stat() (fs.FileInfo, error) }); ok {
		if fi, err := st.Stat(); err == nil {
			size = fi.Size()
		}
	}
	return cfg.Mirror.Put(ctx, name, rc, size)
}
