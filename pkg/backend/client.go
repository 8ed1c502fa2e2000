// Package backend talks to the prediction service that owns scan sessions.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/user/malscan-report/pkg/engine"
	"github.com/user/malscan-report/pkg/logging"
)

const (
	sessionPath  = "/datasets/scan-session/"
	sessionsPath = "/datasets/prediction-sessions"
	predictPath  = "/datasets/predict-file"

	// maxErrorBody bounds how much of a failed response is kept.
	maxErrorBody = 4 << 10
)

// Client calls the prediction service. It never retries.
type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

// NewClient returns a client with a 30 second timeout.
func NewClient(baseURL, token string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

// SessionSummary is one row of the session history listing.
type SessionSummary struct {
	engine.Session
	FileCount int `json:"file_count"`
}

// FileFailure is a file the service could not classify.
type FileFailure struct {
	Filename string `json:"filename"`
	Error    string `json:"error"`
}

// Submission is the outcome of a prediction request. Every uploaded file
// appears in exactly one of Results or Failures.
type Submission struct {
	SessionID engine.SessionID
	Results   []engine.FileResult
	Failures  []FileFailure
}

// GetSession fetches one session with its per-file results.
func (c *Client) GetSession(ctx context.Context, id engine.SessionID) (*engine.Session, error) {
	var s engine.Session
	if err := c.do(ctx, "get session", http.MethodGet, sessionPath+url.PathEscape(id.String()), nil, "", &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// ListSessions returns the caller's sessions, newest first.
func (c *Client) ListSessions(ctx context.Context) ([]SessionSummary, error) {
	var out []SessionSummary
	if err := c.do(ctx, "list sessions", http.MethodGet, sessionsPath, nil, "", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// PredictFiles uploads the files at paths for classification.
func (c *Client) PredictFiles(ctx context.Context, paths []string) (*Submission, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("predict: no files")
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, p := range paths {
		if err := addFile(mw, p); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	var raw struct {
		SessionID engine.SessionID `json:"session_id"`
		Results   []struct {
			engine.FileResult
			Error string `json:"error"`
		} `json:"results"`
	}
	if err := c.do(ctx, "predict", http.MethodPost, predictPath, &body, mw.FormDataContentType(), &raw); err != nil {
		return nil, err
	}

	sub := &Submission{SessionID: raw.SessionID, Results: []engine.FileResult{}}
	for _, r := range raw.Results {
		if r.Error != "" {
			sub.Failures = append(sub.Failures, FileFailure{Filename: r.Filename, Error: r.Error})
			continue
		}
		sub.Results = append(sub.Results, r.FileResult)
	}
	return sub, nil
}

func addFile(mw *multipart.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	part, err := mw.CreateFormFile("files", filepath.Base(path))
	if err != nil {
		return err
	}
	_, err = io.Copy(part, f)
	return err
}

func (c *Client) do(ctx context.Context, op, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	reqID := uuid.NewString()
	req.Header.Set("X-Request-ID", reqID)
	req.Header.Set("Accept", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	logging.Debugf("%s: %s %s (request %s)", op, method, path, reqID)
	resp, err := hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &UpstreamError{Op: op, Status: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}
