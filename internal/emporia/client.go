package emporia

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// defaultTimeout is the per-request HTTP timeout when none is configured.
const defaultTimeout = 15 * time.Second

// Client talks to the Emporia Vue cloud API.
//
// The client is not safe for concurrent use; the poll loop is
// single-threaded and owns exactly one client per session.
type Client struct {
	baseURL    string
	httpClient *http.Client
	authToken  string
}

// ClientOption is a function that configures a Client.
type ClientOption func(*Client)

// NewClient creates a new Emporia API client.
//
// Parameters:
//   - baseURL: API root (e.g. "https://api.emporiaenergy.com")
//   - opts: Optional configuration
//
// Returns:
//   - *Client: Client ready for Login
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithTimeout sets a custom timeout for the HTTP client.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// Login authenticates against the cloud and stores the bearer token for
// subsequent calls.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - email: Account email
//   - password: Account password
//
// Returns:
//   - error: ErrLoginFailed on rejected credentials, otherwise transport errors
func (c *Client) Login(ctx context.Context, email, password string) error {
	body, err := json.Marshal(loginRequest{Email: email, Password: password})
	if err != nil {
		return fmt.Errorf("marshalling login request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/login", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("login request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return ErrLoginFailed
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%w: login status %d", ErrRequestFailed, resp.StatusCode)
	}

	var loginResp loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&loginResp); err != nil {
		return fmt.Errorf("decoding login response: %w", err)
	}
	if loginResp.Token == "" {
		return fmt.Errorf("%w: empty token", ErrLoginFailed)
	}

	c.authToken = loginResp.Token
	return nil
}

// IsAuthenticated reports whether a Login has succeeded on this client.
func (c *Client) IsAuthenticated() bool {
	return c.authToken != ""
}

// Devices returns the metering units registered to the account.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//
// Returns:
//   - []Device: Registered devices, may be empty
//   - error: ErrNotAuthenticated before Login, otherwise request errors
func (c *Client) Devices(ctx context.Context) ([]Device, error) {
	var resp devicesResponse
	if err := c.get(ctx, "/customers/devices", &resp); err != nil {
		return nil, err
	}
	return resp.Devices, nil
}

// DeviceUsage returns the instantaneous per-channel usage snapshot for one
// device at one-second scale.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - deviceGID: Vendor device identifier (decimal string)
//
// Returns:
//   - []ChannelUsage: Channels in the snapshot
//   - error: ErrNoDeviceData when the response has no snapshot for the device
func (c *Client) DeviceUsage(ctx context.Context, deviceGID string) ([]ChannelUsage, error) {
	path := "/AppAPI?apiMethod=getDeviceListUsages&instant=true&scale=1S&deviceGids=" + url.QueryEscape(deviceGID)

	var resp usageResponse
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}

	if len(resp.DeviceListUsages.Devices) == 0 {
		return nil, ErrNoDeviceData
	}
	return resp.DeviceListUsages.Devices[0].ChannelUsages, nil
}

// get performs an authenticated GET and decodes the JSON response into out.
func (c *Client) get(ctx context.Context, path string, out any) error {
	if !c.IsAuthenticated() {
		return ErrNotAuthenticated
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("authtoken", c.authToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512)) //nolint:errcheck // Body is diagnostic only
		return fmt.Errorf("%w: status %d: %s", ErrRequestFailed, resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
