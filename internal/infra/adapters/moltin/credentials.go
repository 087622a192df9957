package moltin

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"pizza-order-bot/internal/domain"
)

// credentials is the cached client-credentials grant.
type credentials struct {
	token     string
	expiresAt time.Time
}

// tokenSkew renews a little before the server-side expiry.
const tokenSkew = 30 * time.Second

func (c credentials) valid(now time.Time) bool {
	return c.token != "" && now.Add(tokenSkew).Before(c.expiresAt)
}

// token returns a valid access token, fetching a new one when the cached
// one is missing or about to expire. Concurrent callers wait for a single
// refresh.
func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.creds.valid(c.now()) {
		return c.creds.token, nil
	}
	creds, err := c.fetchToken(ctx)
	if err != nil {
		return "", err
	}
	c.creds = creds
	c.logger.Debug().Time("expires_at", creds.expiresAt).Msg("access token refreshed")
	return creds.token, nil
}

func (c *Client) invalidate(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.creds.token == token {
		c.creds = credentials{}
	}
}

func (c *Client) fetchToken(ctx context.Context) (credentials, error) {
	form := url.Values{
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
		"grant_type":    {"client_credentials"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/oauth/access_token", strings.NewReader(form.Encode()))
	if err != nil {
		return credentials{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return credentials{}, fmt.Errorf("%w: moltin auth: %v", domain.ErrTransient, err)
	}
	defer resp.Body.Close()
	if cerr := classifyStatus(resp.StatusCode); cerr != nil {
		return credentials{}, fmt.Errorf("%w: moltin auth: status %d", cerr, resp.StatusCode)
	}

	var out struct {
		AccessToken string `json:"access_token"`
		Expires     int64  `json:"expires"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return credentials{}, fmt.Errorf("%w: moltin auth decode: %v", domain.ErrRemote, err)
	}
	if out.AccessToken == "" {
		return credentials{}, fmt.Errorf("%w: moltin auth: empty token", domain.ErrRemote)
	}

	// expires is an absolute unix timestamp; expires_in is the fallback.
	exp := time.Unix(out.Expires, 0)
	if out.Expires == 0 {
		exp = c.now().Add(time.Duration(out.ExpiresIn) * time.Second)
	}
	return credentials{token: out.AccessToken, expiresAt: exp}, nil
}
