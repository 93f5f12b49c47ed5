package meraki

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/goccy/go-json"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the public Dashboard API root.
	DefaultBaseURL = "https://api.meraki.com/api/v1"

	apiKeyHeader = "X-Cisco-Meraki-API-Key"
	maxBodyBytes = 32 << 20
)

// HTTPClient implements Client against the Dashboard REST API.
type HTTPClient struct {
	cfg     Config
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewHTTPClient creates a Dashboard client. The API key is required.
func NewHTTPClient(cfg Config, logger *zap.Logger) (*HTTPClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("meraki api key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = 30
	}
	if cfg.PerPage <= 0 {
		cfg.PerPage = 1000
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.Throttle && cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	return &HTTPClient{
		cfg:     cfg,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
		limiter: limiter,
		logger:  logger,
	}, nil
}

// SetRateLimit replaces the token bucket settings. A disabled or non-positive
// rate removes client-side throttling.
func (c *HTTPClient) SetRateLimit(enabled bool, requestsPerSecond float64) {
	if !enabled || requestsPerSecond <= 0 {
		c.limiter.SetLimit(rate.Inf)
		return
	}
	c.limiter.SetLimit(rate.Limit(requestsPerSecond))
	if c.limiter.Burst() < 1 {
		c.limiter.SetBurst(1)
	}
}

// ListOrganizations returns every organization the API key can see.
func (c *HTTPClient) ListOrganizations(ctx context.Context) ([]Organization, error) {
	var out []Organization
	if err := c.getAll(ctx, "/organizations", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetOrganization returns a single organization.
func (c *HTTPClient) GetOrganization(ctx context.Context, orgID string) (*Organization, error) {
	var out Organization
	if err := c.get(ctx, "/organizations/"+url.PathEscape(orgID), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListNetworks returns the networks of an organization.
func (c *HTTPClient) ListNetworks(ctx context.Context, orgID string) ([]Network, error) {
	var out []Network
	if err := c.getAll(ctx, "/organizations/"+url.PathEscape(orgID)+"/networks", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListDevices returns the devices claimed into a network.
func (c *HTTPClient) ListDevices(ctx context.Context, networkID string) ([]Device, error) {
	var out []Device
	if err := c.get(ctx, "/networks/"+url.PathEscape(networkID)+"/devices", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetDeviceStatuses returns the status table of an organization.
func (c *HTTPClient) GetDeviceStatuses(ctx context.Context, orgID string) ([]DeviceStatus, error) {
	var out []DeviceStatus
	if err := c.getAll(ctx, "/organizations/"+url.PathEscape(orgID)+"/devices/statuses", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListVLANs returns the appliance VLANs, or nothing when VLANs are disabled.
func (c *HTTPClient) ListVLANs(ctx context.Context, networkID string) ([]VLAN, error) {
	var out []VLAN
	if err := c.getOptional(ctx, "/networks/"+url.PathEscape(networkID)+"/appliance/vlans", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListSubnets returns the VLANs of a network that carry a subnet.
func (c *HTTPClient) ListSubnets(ctx context.Context, networkID string) ([]Subnet, error) {
	vlans, err := c.ListVLANs(ctx, networkID)
	if err != nil {
		return nil, err
	}
	return SubnetsFromVLANs(vlans), nil
}

// ListSwitchPorts returns the ports of a switch.
func (c *HTTPClient) ListSwitchPorts(ctx context.Context, serial string) ([]SwitchPort, error) {
	var out []SwitchPort
	if err := c.getOptional(ctx, "/devices/"+url.PathEscape(serial)+"/switch/ports", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListSSIDs returns the wireless SSIDs of a network.
func (c *HTTPClient) ListSSIDs(ctx context.Context, networkID string) ([]SSID, error) {
	var out []SSID
	if err := c.getOptional(ctx, "/networks/"+url.PathEscape(networkID)+"/wireless/ssids", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetFirmwareInfo returns the firmware upgrade summary of a network.
func (c *HTTPClient) GetFirmwareInfo(ctx context.Context, networkID string) (*FirmwareInfo, error) {
	out := FirmwareInfo{}
	if err := c.getOptional(ctx, "/networks/"+url.PathEscape(networkID)+"/firmwareUpgrades", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListAppliancePorts returns the LAN ports of the network's appliance.
func (c *HTTPClient) ListAppliancePorts(ctx context.Context, networkID string) ([]AppliancePort, error) {
	var out []AppliancePort
	if err := c.getOptional(ctx, "/networks/"+url.PathEscape(networkID)+"/appliance/ports", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListInventoryDevices returns the organization inventory.
func (c *HTTPClient) ListInventoryDevices(ctx context.Context, orgID string) ([]InventoryDevice, error) {
	var out []InventoryDevice
	if err := c.getAll(ctx, "/organizations/"+url.PathEscape(orgID)+"/inventoryDevices", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// getOptional treats 404 as an empty result.
func (c *HTTPClient) getOptional(ctx context.Context, path string, out any) error {
	err := c.get(ctx, path, out)
	if errors.Is(err, ErrNotFound) {
		c.logger.Debug("Feature not configured", zap.String("path", path))
		return nil
	}
	return err
}

// getAll follows Link rel=next pages and appends every page into out,
// which must point to a slice.
func (c *HTTPClient) getAll(ctx context.Context, path string, out any) error {
	query := url.Values{}
	query.Set("perPage", strconv.Itoa(c.cfg.PerPage))

	var pages []json.RawMessage
	next := c.baseURL + path + "?" + query.Encode()
	for next != "" {
		var page json.RawMessage
		link, err := c.fetch(ctx, next, path, &page)
		if err != nil {
			return err
		}
		pages = append(pages, page)
		next = nextLink(link)
	}

	if len(pages) == 1 {
		return json.Unmarshal(pages[0], out)
	}

	// Merge pages into one JSON array before decoding into the typed slice
	merged := make([]json.RawMessage, 0)
	for _, page := range pages {
		var items []json.RawMessage
		if err := json.Unmarshal(page, &items); err != nil {
			return fmt.Errorf("failed to decode page of %s: %w", path, err)
		}
		merged = append(merged, items...)
	}
	data, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("failed to merge pages of %s: %w", path, err)
	}
	return json.Unmarshal(data, out)
}

func (c *HTTPClient) get(ctx context.Context, path string, out any) error {
	_, err := c.fetch(ctx, c.baseURL+path, path, out)
	return err
}

// fetch performs one logical GET with throttling and retries and decodes the body into out.
// It returns the Link header of the final response.
func (c *HTTPClient) fetch(ctx context.Context, target, path string, out any) (string, error) {
	bo := backoff.NewExponentialBackOff()
	if c.cfg.InitialBackoffMillis > 0 {
		bo.InitialInterval = time.Duration(c.cfg.InitialBackoffMillis) * time.Millisecond
	}
	maxBackoff := time.Duration(c.cfg.MaxBackoffSeconds) * time.Second
	if maxBackoff <= 0 {
		maxBackoff = 30 * time.Second
	}
	bo.MaxInterval = maxBackoff

	tries := uint(1)
	if c.cfg.MaxRetries > 0 {
		tries = uint(c.cfg.MaxRetries) + 1
	}

	operation := func() (response, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return response{}, backoff.Permanent(fmt.Errorf("rate limiter: %w", err))
		}
		resp, err := c.do(ctx, target, path, maxBackoff)
		if err != nil {
			var apiErr *APIError
			if errors.As(err, &apiErr) && !apiErr.Retryable() {
				return response{}, backoff.Permanent(err)
			}
			if ctx.Err() != nil {
				return response{}, backoff.Permanent(err)
			}
			return response{}, err
		}
		return resp, nil
	}

	resp, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(tries),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			c.logger.Warn("Retrying Meraki request",
				zap.String("path", path),
				zap.Duration("backoff", next),
				zap.Error(err),
			)
		}),
	)
	if err != nil {
		return "", err
	}

	if out != nil && len(resp.body) > 0 {
		if err := json.Unmarshal(resp.body, out); err != nil {
			return "", fmt.Errorf("failed to decode %s: %w", path, err)
		}
	}
	return resp.link, nil
}

type response struct {
	body []byte
	link string
}

func (c *HTTPClient) do(ctx context.Context, target, path string, maxBackoff time.Duration) (response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return response{}, backoff.Permanent(fmt.Errorf("failed to build request: %w", err))
	}
	req.Header.Set(apiKeyHeader, c.cfg.APIKey)
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return response{}, fmt.Errorf("request %s: %w", path, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
	if err != nil {
		return response{}, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if res.StatusCode >= 200 && res.StatusCode < 300 {
		return response{body: body, link: res.Header.Get("Link")}, nil
	}

	apiErr := &APIError{StatusCode: res.StatusCode, Path: path, Message: errorMessage(body)}
	if res.StatusCode == http.StatusTooManyRequests {
		if secs, ok := retryAfterSeconds(res.Header.Get("Retry-After"), maxBackoff); ok {
			apiErr.retryAfter = &backoff.RetryAfterError{Duration: time.Duration(secs) * time.Second}
		}
	}
	return response{}, apiErr
}

// errorMessage extracts {"errors": [...]} from a Dashboard error body.
func errorMessage(body []byte) string {
	var payload struct {
		Errors []string `json:"errors"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && len(payload.Errors) > 0 {
		return strings.Join(payload.Errors, "; ")
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}

func retryAfterSeconds(v string, ceiling time.Duration) (int, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, false
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0, false
	}
	if limit := int(ceiling / time.Second); secs > limit {
		secs = limit
	}
	return secs, true
}

// nextLink returns the rel=next URL of a Link header.
func nextLink(header string) string {
	for _, part := range strings.Split(header, ",") {
		segments := strings.Split(part, ";")
		if len(segments) < 2 {
			continue
		}
		for _, attr := range segments[1:] {
			attr = strings.ReplaceAll(strings.TrimSpace(attr), `"`, "")
			if attr == "rel=next" {
				return strings.Trim(strings.TrimSpace(segments[0]), "<>")
			}
		}
	}
	return ""
}
