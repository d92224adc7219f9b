package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"nursery-tracker/internal/domain"
)

// TokenSource supplies the current session token. The session manager is the
// only writer; the client only ever reads. An empty token means the request
// goes out unauthenticated.
type TokenSource interface {
	Token() string
}

// TokenFunc adapts a plain function to a TokenSource.
type TokenFunc func() string

func (f TokenFunc) Token() string { return f() }

// Client talks to the nursery backend. Every authenticated request carries
// the session token as a bearer credential. There are no timeouts, retries
// or backoff: a failed call surfaces immediately to the caller.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	logger  *logrus.Logger
}

func NewClient(baseURL string, tokens TokenSource, logger *logrus.Logger) *Client {
	if logger == nil {
		logger = logrus.New()
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{},
		tokens:  tokens,
		logger:  logger,
	}
}

// Credentials is the payload returned by the auth endpoints.
type Credentials struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Username    string `json:"username"`
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login exchanges a username/password pair for a session token.
func (c *Client) Login(ctx context.Context, username, password string) (Credentials, error) {
	var creds Credentials
	err := c.do(ctx, http.MethodPost, "/api/auth/login", credentialsRequest{Username: username, Password: password}, &creds)
	return creds, err
}

// Register creates an account and returns a session token for it.
func (c *Client) Register(ctx context.Context, username, password string) (Credentials, error) {
	var creds Credentials
	err := c.do(ctx, http.MethodPost, "/api/auth/register", credentialsRequest{Username: username, Password: password}, &creds)
	return creds, err
}

// ListRecords fetches the full collection at the given entity path.
func (c *Client) ListRecords(ctx context.Context, path string) ([]domain.Record, error) {
	var records []domain.Record
	if err := c.do(ctx, http.MethodGet, path, nil, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// CreateRecord submits a new record and returns the backend's echo of it.
func (c *Client) CreateRecord(ctx context.Context, path string, body map[string]any) (domain.Record, error) {
	var record domain.Record
	err := c.do(ctx, http.MethodPost, path, body, &record)
	return record, err
}

// DeleteRecord removes a record by id.
func (c *Client) DeleteRecord(ctx context.Context, path, id string) error {
	return c.do(ctx, http.MethodDelete, path+"/"+id, nil, nil)
}

// DashboardStats fetches the backend-computed aggregate statistics.
func (c *Client) DashboardStats(ctx context.Context) (domain.DashboardStats, error) {
	var stats domain.DashboardStats
	err := c.do(ctx, http.MethodGet, "/api/dashboard/stats", nil, &stats)
	return stats, err
}

// ExportCSV downloads the full-data CSV export. The filename comes from the
// Content-Disposition header when the backend supplies one.
func (c *Client) ExportCSV(ctx context.Context) (domain.ExportFile, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/export/csv", nil)
	if err != nil {
		return domain.ExportFile{}, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.ExportFile{}, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.ExportFile{}, decodeError(resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.ExportFile{}, fmt.Errorf("read export body: %w", err)
	}

	return domain.ExportFile{
		Filename: exportFilename(resp.Header.Get("Content-Disposition")),
		Data:     data,
	}, nil
}

func exportFilename(disposition string) string {
	if disposition != "" {
		if _, params, err := mime.ParseMediaType(disposition); err == nil {
			if name := params["filename"]; name != "" {
				return name
			}
		}
	}
	return fmt.Sprintf("nursery_data_%s.csv", time.Now().Format("20060102"))
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	c.logger.WithFields(logrus.Fields{
		"method":     method,
		"path":       path,
		"request_id": requestID,
	}).Debug("api request")

	return req, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// decodeError extracts the structured message from a non-2xx response. The
// backend uses {"detail": ...}; proxies in front of it may answer with
// {"error": ...} instead, so both keys are accepted.
func decodeError(resp *http.Response) error {
	var payload struct {
		Detail string `json:"detail"`
		Err    string `json:"error"`
	}
	detail := ""
	if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil {
		detail = payload.Detail
		if detail == "" {
			detail = payload.Err
		}
	}
	return &Error{StatusCode: resp.StatusCode, Detail: detail}
}
