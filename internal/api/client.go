// Package api implements the HTTP side of the task server: discovering the
// auth endpoints and exchanging credentials for an API key.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultServerURL is used when the login form's server field is left
	// blank.
	DefaultServerURL = "http://localhost:8080/public/"

	// requestTimeout bounds each HTTP call.
	requestTimeout = 10 * time.Second

	// keyDuration is the fixed lifetime requested for new API keys,
	// in milliseconds: 7 days.
	keyDuration = 7 * 24 * 60 * 60 * 1000
)

// ServerInfo is the response of the server's info endpoint.
type ServerInfo struct {
	Service               string `json:"service"`
	VersionMajor          int    `json:"versionMajor"`
	VersionMinor          int    `json:"versionMinor"`
	VersionRev            int    `json:"versionRev"`
	AppPubOrigin          string `json:"appPubOrigin"`
	AuthPubAPIHref        string `json:"authPubApiHref"`
	AuthAuthenticatorHref string `json:"authAuthenticatorHref"`
}

// Client talks to the task server's public HTTP API.
type Client struct {
	httpClient *http.Client
}

// NewClient returns a Client with a sensible default timeout.
func NewClient() *Client {
	return &Client{httpClient: &http.Client{Timeout: requestTimeout}}
}

// NewClientWithHTTP returns a Client using the given http.Client (tests).
func NewClientWithHTTP(hc *http.Client) *Client {
	return &Client{httpClient: hc}
}

// FormatServerURL normalizes a user-entered server URL: blank input falls
// back to defaultURL, and the result always ends with a slash.
func FormatServerURL(raw, defaultURL string) string {
	if raw == "" {
		raw = defaultURL
	}
	if !strings.HasSuffix(raw, "/") {
		raw += "/"
	}
	return raw
}

// FetchServerInfo fetches and validates the server's info document.
// serverAPIURL must be slash-terminated (see FormatServerURL).
func (c *Client) FetchServerInfo(ctx context.Context, serverAPIURL string) (ServerInfo, error) {
	body, err := c.get(ctx, serverAPIURL+"info")
	if err != nil {
		return ServerInfo{}, err
	}

	var info ServerInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return ServerInfo{}, fmt.Errorf("invalid server info: %w", err)
	}
	if info.Service == "" {
		return ServerInfo{}, fmt.Errorf("invalid server info: missing service")
	}
	for key, href := range map[string]string{
		"appPubOrigin":          info.AppPubOrigin,
		"authPubApiHref":        info.AuthPubAPIHref,
		"authAuthenticatorHref": info.AuthAuthenticatorHref,
	} {
		if !validURL(href) {
			return ServerInfo{}, fmt.Errorf("invalid server info: bad %s", key)
		}
	}
	return info, nil
}

// CreateAPIKey exchanges email/password credentials for an API key with a
// fixed 7-day lifetime.
func (c *Client) CreateAPIKey(ctx context.Context, info ServerInfo, email, password string) (string, error) {
	payload, err := json.Marshal(map[string]any{
		"email":    email,
		"password": password,
		"duration": keyDuration,
	})
	if err != nil {
		return "", err
	}

	body, err := c.post(ctx, info.AuthPubAPIHref+"api_key/new_with_email", payload)
	if err != nil {
		return "", err
	}

	var resp struct {
		Key string `json:"key"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("invalid api key response: %w", err)
	}
	if resp.Key == "" {
		return "", fmt.Errorf("no api key returned")
	}
	return resp.Key, nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

func (c *Client) post(ctx context.Context, url string, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

// do runs one request and surfaces non-200 responses as a single error
// carrying the status and response body.
func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("network error: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("network error: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}

func validURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && u.Scheme != "" && u.Host != ""
}
