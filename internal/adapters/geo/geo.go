// Package geo decides whether a client IP may use the pre-booking flow.
// Lookups go to an ip-api compatible endpoint and the check fails open.
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/okian/prebook/internal/domain/types"
	"github.com/okian/prebook/pkg/logger"
	"github.com/okian/prebook/pkg/metrics"
)

// Country codes reported by Check.
const (
	CountryIndia   = "IN"
	CountryUnknown = "UNKNOWN"
)

// Messages reported by Check.
const (
	MsgDevelopment = "Development mode - access granted"
	MsgLookupFail  = "Geolocation failed - access granted"
	MsgError       = "Error checking location - access granted"
	MsgGranted     = "Access granted"
	MsgRestricted  = "Access restricted to India only"
)

const (
	defaultBaseURL   = "http://ip-api.com"
	defaultTimeout   = 3 * time.Second
	defaultCacheSize = 1024
	defaultCacheTTL  = time.Hour
)

type lookupResponse struct {
	Status      string `json:"status"`
	Message     string `json:"message"`
	Country     string `json:"country"`
	CountryCode string `json:"countryCode"`
}

// Client checks client IPs against an allowed country.
type Client struct {
	baseURL string
	allowed string
	http    *http.Client
	cache   *expirable.LRU[string, types.LocationCheck]
	log     logger.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points lookups at another ip-api compatible server.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithAllowedCountry sets the ISO code that is granted access.
func WithAllowedCountry(code string) Option {
	return func(c *Client) {
		if code != "" {
			c.allowed = strings.ToUpper(code)
		}
	}
}

// WithTimeout bounds each lookup.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithCache sets the verdict cache size and lifetime. A size of zero disables caching.
func WithCache(size int, ttl time.Duration) Option {
	return func(c *Client) {
		if size <= 0 {
			c.cache = nil
			return
		}
		c.cache = expirable.NewLRU[string, types.LocationCheck](size, nil, ttl)
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// New returns a Client with the ip-api defaults.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL: defaultBaseURL,
		allowed: CountryIndia,
		http:    &http.Client{Timeout: defaultTimeout},
		cache:   expirable.NewLRU[string, types.LocationCheck](defaultCacheSize, nil, defaultCacheTTL),
		log:     logger.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ClientIP picks the caller address from X-Forwarded-For, X-Real-IP or
// CF-Connecting-IP, in that order, falling back to "unknown".
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if first := strings.TrimSpace(strings.Split(fwd, ",")[0]); first != "" {
			return first
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if ip := strings.TrimSpace(r.Header.Get("CF-Connecting-IP")); ip != "" {
		return ip
	}
	return "unknown"
}

// IsDevelopmentIP reports addresses that skip the lookup.
func IsDevelopmentIP(ip string) bool {
	switch ip {
	case "unknown", "::1", "127.0.0.1":
		return true
	}
	return strings.HasPrefix(ip, "192.168.") || strings.HasPrefix(ip, "10.")
}

// Check returns the access verdict for ip. Lookup failures grant access.
func (c *Client) Check(ctx context.Context, ip string) types.LocationCheck {
	if IsDevelopmentIP(ip) {
		return types.LocationCheck{Allowed: true, Country: CountryIndia, Message: MsgDevelopment, IP: ip}
	}
	if c.cache != nil {
		if v, ok := c.cache.Get(ip); ok {
			return v
		}
	}

	res, err := c.lookup(ctx, ip)
	if err != nil {
		metrics.RecordErrorByComponent("geo", "lookup_error")
		c.log.Warn(ctx, "geolocation check error", logger.String("ip", ip), logger.Error(err))
		return types.LocationCheck{Allowed: true, Country: CountryUnknown, Message: MsgError, IP: ip, Error: err.Error()}
	}

	var v types.LocationCheck
	if res.Status == "fail" {
		v = types.LocationCheck{Allowed: true, Country: CountryUnknown, Message: MsgLookupFail, IP: ip}
	} else {
		allowed := strings.EqualFold(res.CountryCode, c.allowed)
		msg := MsgRestricted
		if allowed {
			msg = MsgGranted
		}
		v = types.LocationCheck{Allowed: allowed, Country: res.CountryCode, CountryName: res.Country, Message: msg, IP: ip}
	}
	if c.cache != nil {
		c.cache.Add(ip, v)
	}
	return v
}

func (c *Client) lookup(ctx context.Context, ip string) (lookupResponse, error) {
	var out lookupResponse
	u := fmt.Sprintf("%s/json/%s?fields=status,message,country,countryCode", c.baseURL, url.PathEscape(ip))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return out, fmt.Errorf("%w: %w", ErrLookupFailed, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return out, fmt.Errorf("%w: %w", ErrLookupFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return out, fmt.Errorf("%w: %d", ErrBadStatus, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, fmt.Errorf("%w: decode: %w", ErrLookupFailed, err)
	}
	return out, nil
}
