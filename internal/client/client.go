// Package client talks to a filestore server. Uploads are deduplicated per
// file: content the server already holds is copied server side and never
// sent.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"filestore/internal/analytics"
)

// DefaultHost is the server address used when none is configured.
const DefaultHost = "http://127.0.0.1:5000"

const (
	noFilesMessage = "No files currently stored"
	maxErrorBody   = 4 << 10
)

// Client is a filestore HTTP client.
type Client struct {
	base   *url.URL
	client *http.Client
	log    *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.client = hc
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// New returns a client for the server at host. A host without a scheme is
// treated as http.
func New(host string, opts ...Option) (*Client, error) {
	if host == "" {
		host = DefaultHost
	}
	if !strings.Contains(host, "://") {
		host = "http://" + host
	}
	base, err := url.Parse(strings.TrimRight(host, "/"))
	if err != nil {
		return nil, fmt.Errorf("client: bad host %q: %w", host, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("client: unsupported scheme %q", base.Scheme)
	}
	c := &Client{
		base: base,
		client: &http.Client{
			Timeout: 5 * time.Minute,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				IdleConnTimeout:     90 * time.Second,
				MaxIdleConnsPerHost: 10,
			},
		},
		log: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Host returns the server base URL.
func (c *Client) Host() string { return c.base.String() }

// PutResult summarizes an Add or Update.
type PutResult struct {
	// Deduplicated names were materialized server side from existing content.
	Deduplicated []string
	// Uploaded names travelled in the archive.
	Uploaded []string
	// BytesSent is the size of the uploaded archive, zero when every file
	// was deduplicated.
	BytesSent int64
	// Message is the server's reply to the upload, empty when nothing was
	// uploaded.
	Message string
}

// Add stores new files. A name that already exists fails the upload with a
// 409 StatusError; files earlier in the archive may already be saved.
func (c *Client) Add(ctx context.Context, paths []string) (PutResult, error) {
	return c.put(ctx, http.MethodPost, paths, false)
}

// Update stores files, replacing existing names.
func (c *Client) Update(ctx context.Context, paths []string) (PutResult, error) {
	return c.put(ctx, http.MethodPut, paths, true)
}

func (c *Client) put(ctx context.Context, method string, paths []string, overwrite bool) (PutResult, error) {
	var res PutResult
	files, err := inspect(paths)
	if err != nil {
		return res, err
	}

	var pending []LocalFile
	for _, lf := range files {
		found, err := c.CopyDuplicate(ctx, lf.Checksum, lf.Name, overwrite)
		if err != nil {
			return res, err
		}
		if found {
			c.log.Debug("deduplicated", zap.String("name", lf.Name), zap.String("sha256", lf.Checksum))
			res.Deduplicated = append(res.Deduplicated, lf.Name)
			continue
		}
		pending = append(pending, lf)
	}
	if len(pending) == 0 {
		return res, nil
	}

	archive, err := packArchive(pending)
	if err != nil {
		return res, err
	}
	body, contentType, err := multipartBody(archive)
	if err != nil {
		return res, err
	}
	res.BytesSent = int64(archive.Len())

	resp, err := c.do(ctx, method, "/files", nil, body, contentType)
	if err != nil {
		return res, err
	}
	msg, err := readText(resp, http.StatusOK)
	if err != nil {
		return res, err
	}
	for _, lf := range pending {
		res.Uploaded = append(res.Uploaded, lf.Name)
	}
	res.Message = msg
	return res, nil
}

func multipartBody(archive *bytes.Buffer) (*bytes.Buffer, string, error) {
	body := new(bytes.Buffer)
	mw := multipart.NewWriter(body)
	part, err := mw.CreateFormFile("file", "fs_files.zip")
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(archive.Bytes()); err != nil {
		return nil, "", err
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return body, mw.FormDataContentType(), nil
}

// CopyDuplicate asks the server to materialize name from stored content with
// the given sha256 and reports whether it did. With overwrite false an
// existing name is left alone.
func (c *Client) CopyDuplicate(ctx context.Context, checksum, name string, overwrite bool) (bool, error) {
	q := url.Values{
		"sha256":    {checksum},
		"fileName":  {name},
		"overwrite": {strconv.FormatBool(overwrite)},
	}
	resp, err := c.do(ctx, http.MethodGet, "/copydupe", q, nil, "")
	if err != nil {
		return false, err
	}
	var out struct {
		DupeFound bool `json:"dupeFound"`
	}
	if err := decodeJSON(resp, &out); err != nil {
		return false, err
	}
	return out.DupeFound, nil
}

// List returns the stored names in sorted order.
func (c *Client) List(ctx context.Context) ([]string, error) {
	resp, err := c.do(ctx, http.MethodGet, "/files", nil, nil, "")
	if err != nil {
		return nil, err
	}
	var names []string
	if err := decodeJSON(resp, &names); err != nil {
		return nil, err
	}
	return names, nil
}

// Remove deletes names from the store. Names that are not stored are ignored
// by the server.
func (c *Client) Remove(ctx context.Context, names []string) error {
	payload, err := json.Marshal(map[string]string{"filenames": strings.Join(names, ",")})
	if err != nil {
		return err
	}
	resp, err := c.do(ctx, http.MethodDelete, "/files", nil, bytes.NewReader(payload), "application/json")
	if err != nil {
		return err
	}
	_, err = readText(resp, http.StatusNoContent, http.StatusOK)
	return err
}

// WordCount returns the word count of every stored file.
func (c *Client) WordCount(ctx context.Context) ([]analytics.FileCount, error) {
	resp, err := c.do(ctx, http.MethodGet, "/wordcount", url.Values{"format": {"json"}}, nil, "")
	if err != nil {
		return nil, err
	}
	var counts []analytics.FileCount
	if err := decodeAnalytics(resp, &counts); err != nil {
		return nil, err
	}
	return counts, nil
}

// WordFrequency returns the limit most or least frequent words. order is
// passed through; the server reads "d..." as descending.
func (c *Client) WordFrequency(ctx context.Context, limit int, order string) ([]analytics.WordFreq, error) {
	q := url.Values{"limit": {strconv.Itoa(limit)}}
	if order != "" {
		q.Set("orderBy", order)
	}
	resp, err := c.do(ctx, http.MethodGet, "/wordfrequency", q, nil, "")
	if err != nil {
		return nil, err
	}
	var rows []analytics.WordFreq
	if err := decodeAnalytics(resp, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, body io.Reader, contentType string) (*http.Response, error) {
	u := c.base.JoinPath(path)
	if len(q) > 0 {
		u.RawQuery = q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json, text/plain;q=0.9")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	c.log.Debug("request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))
	return resp, nil
}

// readText drains resp and returns its body, or a StatusError when the
// status is not one of ok.
func readText(resp *http.Response, ok ...int) (string, error) {
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
	msg := strings.TrimSpace(string(data))
	for _, code := range ok {
		if resp.StatusCode == code {
			return msg, nil
		}
	}
	if len(msg) > maxErrorBody {
		msg = msg[:maxErrorBody]
	}
	return "", &StatusError{Code: resp.StatusCode, Message: msg}
}

func decodeJSON(resp *http.Response, v any) error {
	if resp.StatusCode != http.StatusOK {
		_, err := readText(resp, http.StatusOK)
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
	return nil
}

// decodeAnalytics decodes a JSON analytics answer. An empty store is
// reported as a 200 plain text message, surfaced as ErrNoFiles.
func decodeAnalytics(resp *http.Response, v any) error {
	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if resp.StatusCode == http.StatusOK && mediaType != "application/json" {
		msg, err := readText(resp, http.StatusOK)
		if err != nil {
			return err
		}
		if msg == noFilesMessage {
			return ErrNoFiles
		}
		return fmt.Errorf("%w: unexpected %q body", ErrInvalidResponse, mediaType)
	}
	return decodeJSON(resp, v)
}
