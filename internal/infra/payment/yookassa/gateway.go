// Package yookassa implements the hosted-checkout payment gateway.
package yookassa

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"telegram-vpn-storefront/internal/config"
	"telegram-vpn-storefront/internal/domain/ports/adapter"
	"telegram-vpn-storefront/internal/infra/metrics"
)

var _ adapter.PaymentGateway = (*Gateway)(nil)

const (
	apiBase     = "https://api.yookassa.ru/v3"
	maxAttempts = 3
)

// Gateway talks to the YooKassa v3 API with Basic auth. Transient faults
// (timeouts, 502, 503) are retried with linear backoff; a create carries one
// Idempotence-Key across all its attempts so a timed-out request that did
// reach the processor is not charged a second time by the retry.
type Gateway struct {
	baseURL  string
	shopID   string
	secret   string
	currency string
	httpc    *http.Client
	log      *zerolog.Logger

	sleep func(time.Duration)
}

func NewGateway(cfg *config.YookassaConfig, logger *zerolog.Logger) *Gateway {
	currency := cfg.Currency
	if currency == "" {
		currency = "RUB"
	}
	return &Gateway{
		baseURL:  apiBase,
		shopID:   cfg.ShopID,
		secret:   cfg.SecretKey,
		currency: currency,
		httpc:    &http.Client{Timeout: 30 * time.Second},
		log:      logger,
		sleep:    time.Sleep,
	}
}

func (g *Gateway) Name() string { return "yookassa" }

// CreatePayment submits a capture=true hosted-checkout request and returns
// the payment with its confirmation URL.
func (g *Gateway) CreatePayment(ctx context.Context, amountKopeks int64, description, returnURL string, metadata map[string]string) (*adapter.CreatedPayment, error) {
	body := map[string]any{
		"amount": map[string]string{
			"value":    FormatAmount(amountKopeks),
			"currency": g.currency,
		},
		"capture":     true,
		"description": description,
		"confirmation": map[string]string{
			"type":       "redirect",
			"return_url": returnURL,
		},
	}
	if len(metadata) > 0 {
		body["metadata"] = metadata
	}

	data, err := g.doRetry(ctx, "create_payment", http.MethodPost, "/payments", body)
	if err != nil {
		metrics.IncGatewayRequest("create_payment", "error")
		return nil, err
	}
	metrics.IncGatewayRequest("create_payment", "ok")
	return parsePayment(data)
}

// GetPayment fetches the current state of a payment by id.
func (g *Gateway) GetPayment(ctx context.Context, paymentID string) (*adapter.CreatedPayment, error) {
	data, err := g.doRetry(ctx, "get_payment", http.MethodGet, "/payments/"+paymentID, nil)
	if err != nil {
		metrics.IncGatewayRequest("get_payment", "error")
		return nil, err
	}
	metrics.IncGatewayRequest("get_payment", "ok")
	return parsePayment(data)
}

// doRetry performs the request with up to maxAttempts tries. Only timeouts
// and gateway-side 502/503 are retried; any other failure surfaces at once.
func (g *Gateway) doRetry(ctx context.Context, op, method, path string, body any) (map[string]any, error) {
	// One key for the whole call: retries of the same logical request must
	// dedupe on the processor side, not create a second payment.
	var idemKey string
	if method == http.MethodPost {
		idemKey = uuid.NewString()
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		data, retryable, err := g.do(ctx, method, path, body, idemKey)
		if err == nil {
			return data, nil
		}
		lastErr = err
		if !retryable || attempt == maxAttempts {
			break
		}
		g.log.Warn().Err(err).Str("op", op).Int("attempt", attempt).Msg("gateway retry")
		g.sleep(time.Duration(attempt) * time.Second)
	}
	return nil, lastErr
}

func (g *Gateway) do(ctx context.Context, method, path string, body any, idemKey string) (map[string]any, bool, error) {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, false, err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, rd)
	if err != nil {
		return nil, false, err
	}
	req.SetBasicAuth(g.shopID, g.secret)
	req.Header.Set("Content-Type", "application/json")
	if idemKey != "" {
		req.Header.Set("Idempotence-Key", idemKey)
	}

	resp, err := g.httpc.Do(req)
	if err != nil {
		return nil, isTimeout(err), err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, err
	}
	if resp.StatusCode >= 400 {
		retryable := resp.StatusCode == http.StatusBadGateway || resp.StatusCode == http.StatusServiceUnavailable
		return nil, retryable, fmt.Errorf("yookassa %s %s: status %d: %.200s", method, path, resp.StatusCode, string(raw))
	}

	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, false, fmt.Errorf("yookassa: response is not JSON: %w", err)
	}
	return data, false, nil
}

func parsePayment(data map[string]any) (*adapter.CreatedPayment, error) {
	id, _ := data["id"].(string)
	if id == "" {
		return nil, fmt.Errorf("yookassa: payment response has no id")
	}
	p := &adapter.CreatedPayment{ID: id}
	p.Status, _ = data["status"].(string)
	p.Paid, _ = data["paid"].(bool)

	if amount, ok := data["amount"].(map[string]any); ok {
		if value, ok := amount["value"].(string); ok {
			p.AmountKopeks = parseAmount(value)
		}
	}
	if conf, ok := data["confirmation"].(map[string]any); ok {
		p.ConfirmationURL, _ = conf["confirmation_url"].(string)
	}
	if md, ok := data["metadata"].(map[string]any); ok {
		p.Metadata = make(map[string]string, len(md))
		for k, v := range md {
			if s, ok := v.(string); ok {
				p.Metadata[k] = s
			}
		}
	}
	return p, nil
}

// FormatAmount renders kopeks as the decimal string the API expects,
// e.g. 19900 -> "199.00".
func FormatAmount(kopeks int64) string {
	return fmt.Sprintf("%d.%02d", kopeks/100, kopeks%100)
}

func parseAmount(value string) int64 {
	major, minor, found := strings.Cut(value, ".")
	var kopeks int64
	fmt.Sscanf(major, "%d", &kopeks)
	kopeks *= 100
	if found {
		var m int64
		if len(minor) > 2 {
			minor = minor[:2]
		}
		for len(minor) < 2 {
			minor += "0"
		}
		fmt.Sscanf(minor, "%d", &m)
		kopeks += m
	}
	return kopeks
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
