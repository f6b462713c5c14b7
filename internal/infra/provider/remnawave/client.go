// Package remnawave implements the VPN panel client: authenticated CRUD with
// token caching, a bounded 401 re-auth path and transient-fault retries.
package remnawave

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"telegram-vpn-storefront/internal/config"
	"telegram-vpn-storefront/internal/domain/model"
	"telegram-vpn-storefront/internal/domain/ports/adapter"
	"telegram-vpn-storefront/internal/infra/metrics"
)

var _ adapter.ProviderClient = (*Client)(nil)

const (
	maxAttempts  = 3
	initialDelay = time.Second
	purgePage    = 100
)

type Client struct {
	baseURL      string
	username     string
	password     string
	defaultSquad string
	httpc        *http.Client
	log          *zerolog.Logger

	mu    sync.Mutex
	token string

	sleep func(time.Duration)
}

func NewClient(cfg *config.RemnawaveConfig, logger *zerolog.Logger) *Client {
	return &Client{
		baseURL:      strings.TrimRight(cfg.APIURL, "/"),
		username:     cfg.Username,
		password:     cfg.Password,
		defaultSquad: cfg.SquadUUID,
		httpc:        &http.Client{Timeout: 30 * time.Second},
		log:          logger,
		sleep:        time.Sleep,
	}
}

// ----- auth token lifecycle -----

func (c *Client) cachedToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

func (c *Client) clearToken() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}

// login acquires a fresh JWT from the panel and caches it.
func (c *Client) login(ctx context.Context) (string, error) {
	body, _ := json.Marshal(map[string]string{"username": c.username, "password": c.password})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/auth/login", bytes.NewReader(body))
	if err != nil {
		return "", &adapter.ProviderError{Message: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", &adapter.ProviderError{Transient: true, Message: err.Error()}
	}
	defer resp.Body.Close()

	data, err := decodeBody(resp)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", statusError(resp.StatusCode, "login failed")
	}
	tok := firstString(data, "accessToken", "access_token")
	if tok == "" {
		return "", &adapter.ProviderError{StatusCode: resp.StatusCode, Message: "no access token in login response"}
	}

	c.mu.Lock()
	c.token = tok
	c.mu.Unlock()
	return tok, nil
}

// getToken returns the cached token, logging in when absent.
func (c *Client) getToken(ctx context.Context) (string, error) {
	if tok := c.cachedToken(); tok != "" {
		return tok, nil
	}
	return c.login(ctx)
}

// ----- generic request plumbing -----

// request performs one logical API call. A 401 response clears the cached
// token and retries exactly once after re-login; a second 401 is a permanent
// failure, never an infinite refresh loop.
func (c *Client) request(ctx context.Context, method, path string, body any, params url.Values) (map[string]any, error) {
	resp, data, err := c.send(ctx, method, path, body, params)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		c.clearToken()
		metrics.IncProviderRelogin()
		c.log.Info().Str("path", path).Msg("panel returned 401, refreshing token")
		resp, data, err = c.send(ctx, method, path, body, params)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode == http.StatusUnauthorized {
			return nil, &adapter.ProviderError{StatusCode: resp.StatusCode, Message: "unauthorized after token refresh"}
		}
	}

	if resp.StatusCode >= 400 {
		return nil, statusError(resp.StatusCode, fmt.Sprintf("%s %s", method, path))
	}
	return data, nil
}

func (c *Client) send(ctx context.Context, method, path string, body any, params url.Values) (*http.Response, map[string]any, error) {
	tok, err := c.getToken(ctx)
	if err != nil {
		return nil, nil, err
	}

	var rd io.Reader
	if body != nil {
		b, merr := json.Marshal(body)
		if merr != nil {
			return nil, nil, &adapter.ProviderError{Message: merr.Error()}
		}
		rd = bytes.NewReader(b)
	}

	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return nil, nil, &adapter.ProviderError{Message: err.Error()}
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpc.Do(req)
	metrics.ObserveProviderRequest(method+" "+path, time.Since(start).Seconds())
	if err != nil {
		return nil, nil, &adapter.ProviderError{Transient: true, Message: err.Error()}
	}
	defer resp.Body.Close()

	data, derr := decodeBody(resp)
	if derr != nil && resp.StatusCode < 400 {
		return nil, nil, derr
	}
	return resp, data, nil
}

// withRetry retries transient faults up to maxAttempts with exponential
// backoff. 401 handling lives in request, not here.
func (c *Client) withRetry(ctx context.Context, op string, fn func() (map[string]any, error)) (map[string]any, error) {
	delay := initialDelay
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		data, err := fn()
		if err == nil {
			metrics.IncProviderRequest(op, "ok")
			return data, nil
		}
		lastErr = err
		if !isTransient(err) || attempt == maxAttempts {
			break
		}
		metrics.IncProviderRetry()
		c.log.Warn().Err(err).Str("op", op).Int("attempt", attempt).Msg("panel retry")
		c.sleep(delay)
		delay *= 2
	}
	metrics.IncProviderRequest(op, "error")
	return nil, lastErr
}

// ----- operations -----

// CreateAccount provisions a panel account for the plan. Expiration is always
// computed from the plan duration; purchases never extend an existing account.
func (c *Client) CreateAccount(ctx context.Context, username string, plan *model.Plan, telegramID int64) (*model.Account, error) {
	squad := plan.SquadUUID
	if squad == "" {
		squad = c.defaultSquad
	}
	squads := []string{}
	if squad != "" {
		squads = []string{squad}
	}

	payload := map[string]any{
		"username":             username,
		"dataLimit":            plan.DataLimitBytes(),
		"trafficResetStrategy": "no_reset",
		"expirationTime":       expirationStamp(time.Now().UTC().AddDate(0, 0, plan.DurationDays)),
		"internalSquadUuids":   squads,
	}
	if telegramID != 0 {
		payload["telegramId"] = fmt.Sprintf("%d", telegramID)
	}

	data, err := c.withRetry(ctx, "create_account", func() (map[string]any, error) {
		return c.request(ctx, http.MethodPost, "/api/users", payload, nil)
	})
	if err != nil {
		return nil, err
	}
	return model.ParseAccount(data), nil
}

// FindAccountsByTelegramID returns every panel account linked to the chat
// user. A 404 means "none", not an error.
func (c *Client) FindAccountsByTelegramID(ctx context.Context, telegramID int64) ([]*model.Account, error) {
	data, err := c.request(ctx, http.MethodGet, fmt.Sprintf("/api/users/by-telegram-id/%d", telegramID), nil, nil)
	if err != nil {
		if pe, ok := err.(*adapter.ProviderError); ok && pe.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	return model.ParseAccountList(data), nil
}

func (c *Client) getAccount(ctx context.Context, accountUUID string) (*model.Account, error) {
	data, err := c.request(ctx, http.MethodGet, "/api/users/"+accountUUID, nil, nil)
	if err != nil {
		return nil, err
	}
	return model.ParseAccount(data), nil
}

// ExtendAccount pushes the account expiration out by extraDays. A missing or
// unparseable current expiration counts from now. Referral payout only.
func (c *Client) ExtendAccount(ctx context.Context, accountUUID string, extraDays int) (*model.Account, error) {
	acc, err := c.getAccount(ctx, accountUUID)
	if err != nil {
		return nil, err
	}
	base := time.Now().UTC()
	if acc != nil && !acc.ExpiresAt.IsZero() {
		base = acc.ExpiresAt
	}
	payload := map[string]any{
		"uuid":           accountUUID,
		"expirationTime": expirationStamp(base.AddDate(0, 0, extraDays)),
	}

	data, err := c.withRetry(ctx, "extend_account", func() (map[string]any, error) {
		return c.request(ctx, http.MethodPatch, "/api/users", payload, nil)
	})
	if err != nil {
		return nil, err
	}
	return model.ParseAccount(data), nil
}

func (c *Client) ExtendByTelegramID(ctx context.Context, telegramID int64, extraDays int) (bool, error) {
	accounts, err := c.FindAccountsByTelegramID(ctx, telegramID)
	if err != nil {
		return false, err
	}
	if len(accounts) == 0 || accounts[0].UUID == "" {
		return false, nil
	}
	if _, err := c.ExtendAccount(ctx, accounts[0].UUID, extraDays); err != nil {
		return false, err
	}
	return true, nil
}

func (c *Client) DeleteAccount(ctx context.Context, accountUUID string) error {
	_, err := c.request(ctx, http.MethodDelete, "/api/users/"+accountUUID, nil, nil)
	return err
}

// RevokeByTelegramID deletes every account of the user. Each delete runs
// independently; one failure never stops the others.
func (c *Client) RevokeByTelegramID(ctx context.Context, telegramID int64) (int, []string, error) {
	accounts, err := c.FindAccountsByTelegramID(ctx, telegramID)
	if err != nil {
		return 0, nil, err
	}
	deleted := 0
	var handles []string
	for _, acc := range accounts {
		if acc.UUID == "" {
			continue
		}
		if err := c.DeleteAccount(ctx, acc.UUID); err != nil {
			c.log.Error().Err(err).Str("account", acc.UUID).Msg("revoke: delete failed")
			continue
		}
		deleted++
		handles = append(handles, acc.UUID)
	}
	return deleted, handles, nil
}

// ListSquads returns the panel's provisioning groups.
func (c *Client) ListSquads(ctx context.Context) ([]map[string]any, error) {
	data, err := c.request(ctx, http.MethodGet, "/api/internal-squads", nil, nil)
	if err != nil {
		return nil, err
	}
	raw, ok := data["squads"].([]any)
	if !ok {
		return nil, nil
	}
	out := make([]map[string]any, 0, len(raw))
	for _, item := range raw {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out, nil
}

// PurgeExpired pages through all panel accounts and deletes those expired
// more than olderThanDays ago. Accounts with missing or unparseable
// expirations are skipped, and an individual delete failure does not abort
// the batch; the returned count reflects confirmed deletions only.
func (c *Client) PurgeExpired(ctx context.Context, olderThanDays int) (int, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -olderThanDays)
	deleted := 0
	start := 0

	for {
		params := url.Values{}
		params.Set("size", fmt.Sprintf("%d", purgePage))
		params.Set("start", fmt.Sprintf("%d", start))
		data, err := c.request(ctx, http.MethodGet, "/api/users", nil, params)
		if err != nil {
			return deleted, err
		}

		rawUsers := rawUserList(data)
		if len(rawUsers) == 0 {
			break
		}
		for _, item := range rawUsers {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			acc := model.ParseAccount(m)
			if acc == nil || acc.UUID == "" || acc.ExpiresAt.IsZero() {
				continue // unknown expiration is never grounds for deletion
			}
			if !acc.ExpiresAt.Before(cutoff) {
				continue
			}
			if err := c.DeleteAccount(ctx, acc.UUID); err != nil {
				c.log.Warn().Err(err).Str("account", acc.UUID).Msg("purge: delete failed, continuing")
				continue
			}
			deleted++
		}
		if len(rawUsers) < purgePage {
			break
		}
		start += purgePage
	}
	return deleted, nil
}

// ----- helpers -----

// rawUserList digs the user array out of the paged response, whichever shape
// the panel chose ({"users": [...]}, {"data": {"users": [...]}} or a bare
// array under "data").
func rawUserList(data map[string]any) []any {
	if users, ok := data["users"].([]any); ok {
		return users
	}
	switch inner := data["data"].(type) {
	case []any:
		return inner
	case map[string]any:
		if users, ok := inner["users"].([]any); ok {
			return users
		}
	}
	return nil
}

func expirationStamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

func decodeBody(resp *http.Response) (map[string]any, error) {
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &adapter.ProviderError{Transient: true, Message: err.Error()}
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return map[string]any{}, nil
	}
	var data map[string]any
	if err := json.Unmarshal(b, &data); err != nil {
		return nil, &adapter.ProviderError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("panel response is not JSON: %.200s", string(b)),
		}
	}
	return data, nil
}

func statusError(code int, msg string) *adapter.ProviderError {
	return &adapter.ProviderError{
		StatusCode: code,
		Transient:  code == 500 || code == 502 || code == 503,
		Message:    msg,
	}
}

func isTransient(err error) bool {
	pe, ok := err.(*adapter.ProviderError)
	return ok && pe.Transient
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
