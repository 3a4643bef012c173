// ABOUTME: HTTP client for the upstream authority service
// ABOUTME: Forwards credentials for issuance and probes authority health

package resource

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Timeouts for calls to the authority. Issuance forwards get a longer
// budget than the pure health probe.
const (
	authCallTimeout    = 5 * time.Second
	healthProbeTimeout = 2 * time.Second
)

// Client call errors. A rejection by the authority and a failure to reach
// it are distinct conditions and map to distinct responses.
var (
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrUpstreamUnavailable  = errors.New("auth service unreachable")
)

// AuthorityClient calls the authority service over HTTPS. A single attempt
// per inbound request; failures surface immediately with no retry.
type AuthorityClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewAuthorityClient creates a client for the authority at baseURL.
// insecureSkipVerify disables certificate verification, needed when the
// authority serves a self-signed pair.
func NewAuthorityClient(baseURL string, insecureSkipVerify bool, logger *slog.Logger) *AuthorityClient {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{
		InsecureSkipVerify: insecureSkipVerify, //nolint:gosec // self-signed authority pair
	}
	return &AuthorityClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Transport: transport},
		logger:     logger.With("component", "authority-client"),
	}
}

// authorityResponse is the authority's POST /auth response body.
type authorityResponse struct {
	Authenticated bool   `json:"authenticated"`
	User          string `json:"user"`
	Error         string `json:"error"`
}

// Authenticate forwards credentials to the authority's issuance endpoint
// and returns the authenticated username. ErrAuthenticationFailed means
// the authority rejected the credentials; ErrUpstreamUnavailable means it
// could not be reached.
func (c *AuthorityClient) Authenticate(ctx context.Context, username, password string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, authCallTimeout)
	defer cancel()

	body, err := json.Marshal(map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return "", fmt.Errorf("encoding auth request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating auth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("error connecting to auth service", "error", err)
		return "", fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	var result authorityResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		c.logger.Error("malformed auth service response", "status", resp.StatusCode, "error", err)
		return "", fmt.Errorf("%w: decoding response: %v", ErrUpstreamUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK || !result.Authenticated {
		return "", ErrAuthenticationFailed
	}
	return result.User, nil
}

// CheckHealth probes the authority's health endpoint. Any transport
// failure or non-200 status is an error.
func (c *AuthorityClient) CheckHealth(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, healthProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("creating health request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: health status %d", ErrUpstreamUnavailable, resp.StatusCode)
	}
	return nil
}
