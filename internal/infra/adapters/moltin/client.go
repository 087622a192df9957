// File: internal/infra/adapters/moltin/client.go
package moltin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"pizza-order-bot/internal/config"
	"pizza-order-bot/internal/domain"
	"pizza-order-bot/internal/domain/ports/adapter"
	"pizza-order-bot/internal/infra/metrics"
)

var _ adapter.CommerceGateway = (*Client)(nil)

// Client talks to the Moltin (Elastic Path) v2 REST API. One instance is
// shared by all workers; the access token is refreshed under a mutex.
type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	pizzeriaFlow string
	http         *http.Client
	now          func() time.Time
	logger       *zerolog.Logger

	mu    sync.Mutex
	creds credentials
}

func New(cfg *config.MoltinConfig, logger *zerolog.Logger) (*Client, error) {
	if cfg.ClientID == "" {
		return nil, errors.New("moltin client id empty")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid moltin base url: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	flow := cfg.PizzeriaFlow
	if flow == "" {
		flow = "pizzeria"
	}
	l := logger.With().Str("component", "MoltinClient").Logger()
	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		pizzeriaFlow: flow,
		http:         &http.Client{Timeout: timeout},
		now:          time.Now,
		logger:       &l,
	}, nil
}

// classifyStatus maps an HTTP status to a domain error; nil for 2xx.
func classifyStatus(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound:
		return domain.ErrNotFound
	case code == http.StatusTooManyRequests || code >= 500:
		return domain.ErrTransient
	default:
		return domain.ErrRemote
	}
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrTransient):
		return "transient"
	default:
		return "remote"
	}
}

// call performs an authorized JSON request and decodes the response into
// out when out is not nil. A 401 drops the cached token and retries once.
func (c *Client) call(ctx context.Context, op, method, path string, body, out any) (err error) {
	start := time.Now()
	defer func() {
		metrics.ObserveGatewayCall("moltin", op, resultLabel(err), time.Since(start))
	}()

	for attempt := 0; ; attempt++ {
		token, err := c.token(ctx)
		if err != nil {
			return err
		}
		status, err := c.send(ctx, method, path, token, body, out)
		if status == http.StatusUnauthorized && attempt == 0 {
			c.invalidate(token)
			continue
		}
		if err != nil {
			return fmt.Errorf("moltin %s: %w", op, err)
		}
		return nil
	}
}

func (c *Client) send(ctx context.Context, method, path, token string, body, out any) (int, error) {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrTransient, err)
	}
	defer resp.Body.Close()

	if cerr := classifyStatus(resp.StatusCode); cerr != nil {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return resp.StatusCode, fmt.Errorf("%w: status %d: %s", cerr, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("%w: decode: %v", domain.ErrRemote, err)
	}
	return resp.StatusCode, nil
}
