// Package api issues REST calls against a Google API base URL and returns
// the raw JSON payload.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"

	"gapi/internal/output"
)

// Request is one REST call. Path is relative to the base URL and is used
// verbatim; resource names already carry their own separators.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   json.RawMessage
}

// Client performs requests against one API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	log        *slog.Logger
}

// NewClient creates a client for the API rooted at baseURL. httpClient is
// expected to sign requests.
func NewClient(httpClient *http.Client, baseURL, userAgent string, log *slog.Logger) *Client {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  userAgent,
		log:        log,
	}
}

// URL returns the absolute URL of req
func (c *Client) URL(req Request) string {
	u := c.baseURL + "/" + strings.TrimLeft(req.Path, "/")
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}
	return u
}

// Do sends req and returns the response payload. Non-2xx responses become
// API errors carrying the status and decoded error body. An empty payload
// yields nil; a payload that is not JSON is returned as a JSON string.
func (c *Client) Do(ctx context.Context, req Request) (json.RawMessage, error) {
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	hreq, err := http.NewRequestWithContext(ctx, req.Method, c.URL(req), body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	hreq.Header.Set("Accept", "application/json")
	if req.Body != nil {
		hreq.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		hreq.Header.Set("User-Agent", c.userAgent)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(hreq)
	if err != nil {
		var rerr *oauth2.RetrieveError
		if errors.As(err, &rerr) {
			return nil, refreshError(rerr)
		}
		return nil, fmt.Errorf("request %s %s failed: %w", req.Method, req.Path, err)
	}
	defer resp.Body.Close()

	c.log.Debug("api call",
		"method", req.Method,
		"path", req.Path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	if err := googleapi.CheckResponse(resp); err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) {
			return nil, output.FromAPI(gerr)
		}
		return nil, err
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}
	if !json.Valid(data) {
		quoted, err := json.Marshal(string(data))
		if err != nil {
			return nil, err
		}
		return quoted, nil
	}
	return data, nil
}

// refreshError reports a failed access token renewal like any other remote
// error.
func refreshError(rerr *oauth2.RetrieveError) error {
	status := 0
	if rerr.Response != nil {
		status = rerr.Response.StatusCode
	}
	return output.FromAPI(&googleapi.Error{
		Code:    status,
		Message: "Access token refresh failed",
		Body:    string(rerr.Body),
	})
}
