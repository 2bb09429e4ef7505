package server

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestUpload_AddConflict(t *testing.T) {
	s, st := newTestServer(t)
	serve(s, uploadRequest(t, http.MethodPost, "file", zipOf(t, "a.txt", "one")))

	rr := serve(s, uploadRequest(t, http.MethodPost, "file", zipOf(t, "new.txt", "n", "a.txt", "two")))
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
	if got := strings.TrimSpace(rr.Body.String()); got != "ERROR: a.txt already exists" {
		t.Fatalf("body = %q", got)
	}

	b, err := os.ReadFile(filepath.Join(st.Dir(), "a.txt"))
	if err != nil || string(b) != "one" {
		t.Fatalf("a.txt changed: %q %v", b, err)
	}
	// Entries before the conflict stay.
	if got := listFiles(t, s); strings.Join(got, ",") != "a.txt,new.txt" {
		t.Fatalf("list = %v", got)
	}
}

func TestUpload_UpdateOverwrites(t *testing.T) {
	s, st := newTestServer(t)
	serve(s, uploadRequest(t, http.MethodPost, "file", zipOf(t, "a.txt", "one")))

	rr := serve(s, uploadRequest(t, http.MethodPut, "file", zipOf(t, "a.txt", "two")))
	if rr.Code != http.StatusOK {
		t.Fatalf("PUT /files: %d %s", rr.Code, rr.Body.String())
	}
	b, _ := os.ReadFile(filepath.Join(st.Dir(), "a.txt"))
	if string(b) != "two" {
		t.Fatalf("a.txt = %q, want two", b)
	}
	holders, err := st.Index().Lookup(sha("two"))
	if err != nil || len(holders) != 1 || holders[0] != "a.txt" {
		t.Fatalf("index holders = %v, %v", holders, err)
	}
}

func TestUpload_Errors(t *testing.T) {
	tests := []struct {
		name     string
		maxBytes int64
		req      func(t *testing.T) *http.Request
		want     int
		wantBody string
	}{
		{
			name: "not a zip",
			req: func(t *testing.T) *http.Request {
				return uploadRequest(t, http.MethodPost, "file", []byte("plain text"))
			},
			want:     http.StatusInternalServerError,
			wantBody: "ERROR: Unable to create ZipFile object",
		},
		{
			name: "unsafe entry name",
			req: func(t *testing.T) *http.Request {
				return uploadRequest(t, http.MethodPut, "file", zipOf(t, "../escape.txt", "x"))
			},
			want:     http.StatusInternalServerError,
			wantBody: "ERROR: Unable to create ZipFile object",
		},
		{
			name: "missing file field",
			req: func(t *testing.T) *http.Request {
				return uploadRequest(t, http.MethodPost, "other", zipOf(t, "a.txt", "x"))
			},
			want: http.StatusBadRequest,
		},
		{
			name: "not multipart",
			req: func(t *testing.T) *http.Request {
				return httptest.NewRequest(http.MethodPost, "/files", strings.NewReader("x"))
			},
			want: http.StatusBadRequest,
		},
		{
			name:     "too large",
			maxBytes: 64,
			req: func(t *testing.T) *http.Request {
				return uploadRequest(t, http.MethodPost, "file", zipOf(t, "a.txt", strings.Repeat("x", 512)))
			},
			want: http.StatusRequestEntityTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestServer(t, func(c *Config) { c.MaxUploadBytes = tt.maxBytes })
			rr := serve(s, tt.req(t))
			if rr.Code != tt.want {
				t.Fatalf("status = %d, want %d (%s)", rr.Code, tt.want, rr.Body.String())
			}
			if tt.wantBody != "" && strings.TrimSpace(rr.Body.String()) != tt.wantBody {
				t.Fatalf("body = %q, want %q", rr.Body.String(), tt.wantBody)
			}
			if got := listFiles(t, s); len(got) != 0 {
				t.Fatalf("nothing should be stored, got %v", got)
			}
		})
	}
}
