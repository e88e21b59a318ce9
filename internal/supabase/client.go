// Package supabase holds the process-wide handle to the Supabase project
// backing QuickEx. The handle is built once at startup and is read-only
// afterwards, so it is safe to share between request goroutines.
package supabase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// restPrefix is where PostgREST is mounted on a Supabase project.
const restPrefix = "/rest/v1/"

var (
	ErrMissingURL     = errors.New("supabase: url is required")
	ErrMissingAnonKey = errors.New("supabase: anon key is required")
)

// Client is a thin PostgREST client authenticated with the project's
// anonymous key. It never stores a user session.
type Client struct {
	baseURL *url.URL
	anonKey string
	http    *http.Client
}

// New builds a Client for the project at rawURL. Missing or malformed
// configuration is an error; callers never receive a nil handle.
func New(rawURL, anonKey string) (*Client, error) {
	rawURL = strings.TrimSpace(rawURL)
	anonKey = strings.TrimSpace(anonKey)
	if rawURL == "" {
		return nil, ErrMissingURL
	}
	if anonKey == "" {
		return nil, ErrMissingAnonKey
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("supabase: parse url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("supabase: url must be absolute http(s), got %q", rawURL)
	}
	u.Path = strings.TrimRight(u.Path, "/")

	return &Client{
		baseURL: u,
		anonKey: anonKey,
		http: &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        100,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
			Timeout: 30 * time.Second,
		},
	}, nil
}

// URL returns a copy of the project URL.
func (c *Client) URL() *url.URL {
	u := *c.baseURL
	return &u
}

// PersistSession reports whether auth sessions are persisted. The backend
// acts only with the anonymous key, so this is always false.
func (c *Client) PersistSession() bool {
	return false
}

// NewRequest builds an authenticated PostgREST request for table.
func (c *Client) NewRequest(ctx context.Context, method, table string, body io.Reader) (*http.Request, error) {
	table = strings.Trim(table, "/")
	if table == "" {
		return nil, errors.New("supabase: table is required")
	}

	u := c.URL()
	u.Path = u.Path + restPrefix + table

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("supabase: build request: %w", err)
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Authorization", "Bearer "+c.anonKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// Do sends req and returns the response. Non-2xx statuses are returned as
// errors with the response body closed.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("supabase: %s %s: %w", req.Method, req.URL.Path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("supabase: %s %s: status %d: %s",
			req.Method, req.URL.Path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return resp, nil
}
