// validation.go - Request parameter parsing and validation helpers.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
)

const (
	defaultFreqLimit = 10
	defaultOrderBy   = "ASC"

	// maxDeleteBody bounds the JSON body of DELETE /files.
	maxDeleteBody = 1 << 20
)

// parseLimit reads the wordfrequency limit. Missing or unparseable values
// fall back to the default; negative values mean no rows.
func parseLimit(raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return defaultFreqLimit
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return defaultFreqLimit
	}
	return max(n, 0)
}

// deleteReq is the DELETE /files body: {"filenames": "a.txt,b.txt"}.
type deleteReq struct {
	Filenames *string `json:"filenames"`
}

// parseDeleteBody returns the comma-separated names in body, trimmed, with
// empty entries dropped.
func parseDeleteBody(body io.Reader) ([]string, error) {
	var req deleteReq
	dec := json.NewDecoder(io.LimitReader(body, maxDeleteBody))
	if err := dec.Decode(&req); err != nil {
		return nil, fmt.Errorf("bad request body: %w", err)
	}
	if req.Filenames == nil {
		return nil, errors.New(`bad request body: missing "filenames"`)
	}
	var names []string
	for _, n := range strings.Split(*req.Filenames, ",") {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	return names, nil
}

// dupeReq holds the /copydupe parameters, read from the query string or a
// form body.
type dupeReq struct {
	Checksum  string
	FileName  string
	Overwrite bool
}

func parseDupeReq(r *http.Request) (dupeReq, error) {
	req := dupeReq{
		Checksum:  strings.TrimSpace(r.FormValue("sha256")),
		FileName:  strings.TrimSpace(r.FormValue("fileName")),
		Overwrite: true,
	}
	if req.Checksum == "" || req.FileName == "" {
		return dupeReq{}, errors.New("sha256 and fileName are required")
	}
	if raw := r.FormValue("overwrite"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return dupeReq{}, fmt.Errorf("overwrite: %w", err)
		}
		req.Overwrite = v
	}
	return req, nil
}

// wantsJSON reports whether the client asked for a JSON rendering, either
// with ?format=json or an Accept header naming application/json.
func wantsJSON(r *http.Request) bool {
	if f := r.URL.Query().Get("format"); f != "" {
		return strings.EqualFold(f, "json")
	}
	for _, part := range strings.Split(r.Header.Get("Accept"), ",") {
		mt, _, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err == nil && mt == "application/json" {
			return true
		}
	}
	return false
}
