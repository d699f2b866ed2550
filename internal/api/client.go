// Package api is the thin REST client for the order backend: the startup
// snapshot and the status-update confirmation call. Everything realtime goes
// through the live channel instead.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"resto-dashboard/internal/domain"
)

type Client struct {
	base  string
	token string
	http  *http.Client
	log   *zap.Logger
}

func New(base, token string, timeout time.Duration, log *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		base:  strings.TrimSuffix(base, "/"),
		token: token,
		http:  &http.Client{Timeout: timeout},
		log:   log,
	}
}

type statusBody struct {
	Status domain.Status `json:"status"`
}

type orderEnvelope struct {
	Order domain.Order `json:"order"`
}

type ordersEnvelope struct {
	Orders []domain.Order `json:"orders"`
}

type problemBody struct {
	Detail string `json:"detail"`
}

// UpdateStatus asks the backend to confirm a status change. Non-2xx comes
// back as an error; the caller rolls its optimistic state back.
func (c *Client) UpdateStatus(ctx context.Context, orderID string, st domain.Status) (domain.Order, error) {
	body, err := json.Marshal(statusBody{Status: st})
	if err != nil {
		return domain.Order{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch,
		c.base+"/orders/"+orderID+"/status", bytes.NewReader(body))
	if err != nil {
		return domain.Order{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", uuid.NewString())
	c.auth(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.Order{}, fmt.Errorf("status update: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domain.Order{}, c.problem("status update", resp)
	}
	var env orderEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return domain.Order{}, fmt.Errorf("status update: decode response: %w", err)
	}
	return env.Order, nil
}

// ListOrders fetches the tenant's current orders for the startup snapshot.
// Entries that fail validation are skipped with a log line rather than
// failing the whole load.
func (c *Client) ListOrders(ctx context.Context, tenantID string) ([]domain.Order, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.base+"/orders?tenant_id="+tenantID, nil)
	if err != nil {
		return nil, err
	}
	c.auth(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.problem("list orders", resp)
	}
	var env ordersEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("list orders: decode response: %w", err)
	}
	out := env.Orders[:0]
	for _, o := range env.Orders {
		if err := o.Validate(); err != nil {
			c.log.Warn("snapshot_order_skipped", zap.String("order_id", o.ID), zap.Error(err))
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

func (c *Client) auth(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func (c *Client) problem(op string, resp *http.Response) error {
	var p problemBody
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if json.Unmarshal(raw, &p) == nil && p.Detail != "" {
		return fmt.Errorf("%s: %s (status %d)", op, p.Detail, resp.StatusCode)
	}
	return fmt.Errorf("%s: unexpected status %d", op, resp.StatusCode)
}
