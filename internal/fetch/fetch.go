package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"tourgate/internal/config"
	gwerrors "tourgate/internal/errors"
	"tourgate/internal/logging"
)

type originKeyType struct{}

// WithRequestOrigin records the inbound request's own origin on the context so
// a co-located deployment can call itself when no upstream override is set.
func WithRequestOrigin(ctx context.Context, origin string) context.Context {
	return context.WithValue(ctx, originKeyType{}, origin)
}

func requestOrigin(ctx context.Context) string {
	origin, _ := ctx.Value(originKeyType{}).(string)
	return origin
}

// OriginFromRequest reconstructs the origin of an inbound request. Every
// transport that can trigger upstream fetches seeds the context with this, so
// co-located deployments resolve the same way no matter which door was used.
func OriginFromRequest(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if forwarded := r.Header.Get("X-Forwarded-Proto"); forwarded != "" {
		scheme = forwarded
	}
	if r.Host == "" {
		return ""
	}
	return scheme + "://" + r.Host
}

// Client issues time-bounded JSON GETs against the internal dashboard data API.
type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	logger     logging.Logger
	cache      *expirable.LRU[string, []byte]
}

// NewClient builds a fetcher from upstream configuration.
func NewClient(cfg config.UpstreamConfig, logger logging.Logger) *Client {
	c := &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		timeout: cfg.Timeout(),
		httpClient: &http.Client{
			// No client-level timeout: cancellation comes from the per-call
			// context so callers keep control of the deadline.
			Transport: http.DefaultTransport,
		},
		logger: logging.OrNop(logger),
	}

	if cfg.CacheSize > 0 {
		c.cache = expirable.NewLRU[string, []byte](cfg.CacheSize, nil, cfg.CacheTTL())
	}

	return c
}

// BaseURL returns the configured upstream origin, empty when the fetcher is
// resolving against the inbound request origin.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ResolvedOrigin describes the upstream origin for operator-facing surfaces.
func (c *Client) ResolvedOrigin() string {
	if c.baseURL != "" {
		return c.baseURL
	}
	return "(request origin)"
}

// FetchJSON issues a GET against path with the given query and decodes the JSON
// response. Non-2xx responses become *gwerrors.UpstreamHTTPError; network
// failures and timeouts surface as plain errors.
func (c *Client) FetchJSON(ctx context.Context, path string, query url.Values) (any, error) {
	target, err := c.buildURL(ctx, path, query)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		if cached, ok := c.cache.Get(target); ok {
			c.logger.Debug("Cache hit for %s", target)
			return decodeJSON(cached)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("GET %s", target)
	started := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if gwerrors.IsTimeout(err) {
			return nil, fmt.Errorf("upstream request timed out after %s: %w", c.timeout, err)
		}
		return nil, fmt.Errorf("upstream request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read upstream response: %w", err)
	}

	c.logger.Debug("GET %s -> %d (%d bytes, %s)", target, resp.StatusCode, len(body), time.Since(started).Round(time.Millisecond))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, gwerrors.NewUpstreamHTTPError(resp.StatusCode, body)
	}

	if c.cache != nil {
		c.cache.Add(target, body)
	}

	return decodeJSON(body)
}

func (c *Client) buildURL(ctx context.Context, path string, query url.Values) (string, error) {
	origin := c.baseURL
	if origin == "" {
		origin = strings.TrimRight(strings.TrimSpace(requestOrigin(ctx)), "/")
	}
	if origin == "" {
		return "", fmt.Errorf("no upstream origin configured and no request origin available")
	}

	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	target := origin + path
	if encoded := encodeQuery(query); encoded != "" {
		target += "?" + encoded
	}
	return target, nil
}

// encodeQuery drops empty values so optional filters never reach upstream as
// bare keys.
func encodeQuery(query url.Values) string {
	if len(query) == 0 {
		return ""
	}
	cleaned := url.Values{}
	for key, values := range query {
		for _, value := range values {
			if strings.TrimSpace(value) == "" {
				continue
			}
			cleaned.Add(key, value)
		}
	}
	return cleaned.Encode()
}

func decodeJSON(body []byte) (any, error) {
	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode upstream JSON: %w", err)
	}
	return payload, nil
}
