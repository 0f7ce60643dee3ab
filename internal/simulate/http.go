package simulate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	service "github.com/okian/prebook/internal/app"
	"github.com/okian/prebook/internal/domain/model"
)

// outcome classifies a single submission.
type outcome int

const (
	outcomeCreated outcome = iota
	outcomeDuplicate
	outcomeRejected
	outcomeRateLimited
	outcomeFailed
)

type client struct {
	base string
	http *http.Client
}

func newClient(base string, timeout time.Duration) *client {
	return &client{base: base, http: &http.Client{Timeout: timeout}}
}

func (c *client) do(ctx context.Context, method, path string, body any, header http.Header) (*http.Response, error) {
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.http.Do(req)
}

func decode(resp *http.Response, v any) error {
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(v)
}

// health checks that /healthz answers 200.
func (c *client) health(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/healthz", nil, nil)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned %d", resp.StatusCode)
	}
	return nil
}

func (c *client) plans(ctx context.Context) ([]model.Plan, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/plans", nil, nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("list plans returned %d", resp.StatusCode)
	}
	var plans []model.Plan
	if err := decode(resp, &plans); err != nil {
		return nil, fmt.Errorf("decode plans: %w", err)
	}
	return plans, nil
}

// submit posts one order with a fresh Idempotency-Key.
func (c *client) submit(ctx context.Context, in service.OrderInput) (string, outcome) {
	h := http.Header{}
	h.Set("Idempotency-Key", uuid.NewString())
	resp, err := c.do(ctx, http.MethodPost, "/api/orders", in, h)
	if err != nil {
		return "", outcomeFailed
	}
	switch resp.StatusCode {
	case http.StatusCreated:
		var body struct {
			Order model.Order `json:"order"`
		}
		if err := decode(resp, &body); err != nil {
			return "", outcomeFailed
		}
		return body.Order.OrderNumber, outcomeCreated
	case http.StatusConflict:
		resp.Body.Close()
		return "", outcomeDuplicate
	case http.StatusTooManyRequests:
		resp.Body.Close()
		return "", outcomeRateLimited
	case http.StatusBadRequest:
		resp.Body.Close()
		return "", outcomeRejected
	default:
		resp.Body.Close()
		return "", outcomeFailed
	}
}

// lookup reports whether orderNumber is visible through the public lookup.
func (c *client) lookup(ctx context.Context, orderNumber string) (bool, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/orders?orderNumber="+url.QueryEscape(orderNumber), nil, nil)
	if err != nil {
		return false, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return false, fmt.Errorf("lookup returned %d", resp.StatusCode)
	}
	var body struct {
		Orders []model.Order `json:"orders"`
	}
	if err := decode(resp, &body); err != nil {
		return false, err
	}
	for _, o := range body.Orders {
		if o.OrderNumber == orderNumber {
			return true, nil
		}
	}
	return false, nil
}
