package quote

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"trade-journal/internal/logging"
)

// Provider fetches the current price of one instrument code. Implementations
// are stateless; ordering and fallback live in the cache layer.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, code string) (float64, error)
}

// inferExchange maps a bare 6-digit A-share code to its exchange-prefixed
// form: 60x/68x trade on Shanghai, 00x/30x on Shenzhen.
func inferExchange(code string) (string, error) {
	if len(code) != 6 {
		return "", fmt.Errorf("invalid stock code %q: want 6 digits", code)
	}
	switch {
	case strings.HasPrefix(code, "60"), strings.HasPrefix(code, "68"):
		return "sh" + code, nil
	case strings.HasPrefix(code, "00"), strings.HasPrefix(code, "30"):
		return "sz" + code, nil
	default:
		return "", fmt.Errorf("cannot infer exchange for stock code %q", code)
	}
}

// SinaProvider fetches A-share quotes from the Sina hq endpoint
type SinaProvider struct {
	client  *resty.Client
	baseURL string
	logger  *logging.Logger
}

// NewSinaProvider creates a Sina quote provider
func NewSinaProvider(baseURL string, timeout time.Duration) *SinaProvider {
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Referer", "https://finance.sina.com.cn")
	return &SinaProvider{
		client:  client,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		logger:  logging.WithComponent("quote.sina"),
	}
}

// Name returns the provider tag
func (p *SinaProvider) Name() string {
	return "sina"
}

// Fetch retrieves the last-trade price for a 6-digit A-share code.
// Response shape: var hq_str_sh600000="浦发银行,27.55,27.25,26.91,...";
func (p *SinaProvider) Fetch(ctx context.Context, code string) (float64, error) {
	prefixed, err := inferExchange(code)
	if err != nil {
		return 0, err
	}

	resp, err := p.client.R().
		SetContext(ctx).
		Get(p.baseURL + "/list=" + prefixed)
	if err != nil {
		return 0, fmt.Errorf("sina request failed: %w", err)
	}
	if resp.StatusCode() != 200 {
		return 0, fmt.Errorf("sina returned status %d", resp.StatusCode())
	}

	return parseSinaPayload(resp.String())
}

func parseSinaPayload(body string) (float64, error) {
	start := strings.Index(body, `"`)
	end := strings.LastIndex(body, `"`)
	if start < 0 || end <= start {
		return 0, fmt.Errorf("malformed sina payload")
	}

	fields := strings.Split(body[start+1:end], ",")
	// field 3 is the current price; 0 is name, 1 open, 2 prev close
	if len(fields) < 4 {
		return 0, fmt.Errorf("malformed sina payload: %d fields", len(fields))
	}

	price, err := strconv.ParseFloat(fields[3], 64)
	if err != nil {
		return 0, fmt.Errorf("malformed sina price %q: %w", fields[3], err)
	}
	if price <= 0 {
		return 0, fmt.Errorf("sina returned non-positive price %v", price)
	}
	return price, nil
}

// TencentProvider fetches A-share quotes from the Tencent qt endpoint
type TencentProvider struct {
	client  *resty.Client
	baseURL string
	logger  *logging.Logger
}

// NewTencentProvider creates a Tencent quote provider
func NewTencentProvider(baseURL string, timeout time.Duration) *TencentProvider {
	return &TencentProvider{
		client:  resty.New().SetTimeout(timeout).SetRetryCount(0),
		baseURL: strings.TrimSuffix(baseURL, "/"),
		logger:  logging.WithComponent("quote.tencent"),
	}
}

// Name returns the provider tag
func (p *TencentProvider) Name() string {
	return "tencent"
}

// Fetch retrieves the last-trade price for a 6-digit A-share code.
// Response shape: v_sh600000="1~浦发银行~600000~9.79~...";
func (p *TencentProvider) Fetch(ctx context.Context, code string) (float64, error) {
	prefixed, err := inferExchange(code)
	if err != nil {
		return 0, err
	}

	resp, err := p.client.R().
		SetContext(ctx).
		Get(p.baseURL + "/q=" + prefixed)
	if err != nil {
		return 0, fmt.Errorf("tencent request failed: %w", err)
	}
	if resp.StatusCode() != 200 {
		return 0, fmt.Errorf("tencent returned status %d", resp.StatusCode())
	}

	return parseTencentPayload(resp.String())
}

func parseTencentPayload(body string) (float64, error) {
	start := strings.Index(body, `"`)
	end := strings.LastIndex(body, `"`)
	if start < 0 || end <= start {
		return 0, fmt.Errorf("malformed tencent payload")
	}

	fields := strings.Split(body[start+1:end], "~")
	// field 3 is the current price; 1 is name, 2 the bare code
	if len(fields) < 4 {
		return 0, fmt.Errorf("malformed tencent payload: %d fields", len(fields))
	}

	price, err := strconv.ParseFloat(fields[3], 64)
	if err != nil {
		return 0, fmt.Errorf("malformed tencent price %q: %w", fields[3], err)
	}
	if price <= 0 {
		return 0, fmt.Errorf("tencent returned non-positive price %v", price)
	}
	return price, nil
}

// ForexProvider fetches currency-pair quotes from an exchange-rate endpoint
type ForexProvider struct {
	client  *resty.Client
	baseURL string
	logger  *logging.Logger
}

// NewForexProvider creates a forex quote provider
func NewForexProvider(baseURL string, timeout time.Duration) *ForexProvider {
	return &ForexProvider{
		client:  resty.New().SetTimeout(timeout).SetRetryCount(0),
		baseURL: strings.TrimSuffix(baseURL, "/"),
		logger:  logging.WithComponent("quote.forex"),
	}
}

// Name returns the provider tag
func (p *ForexProvider) Name() string {
	return "forex"
}

type forexResponse struct {
	Success bool               `json:"success"`
	Rates   map[string]float64 `json:"rates"`
}

// Fetch retrieves the mid rate for a symbol like EURUSD or XAUUSD
func (p *ForexProvider) Fetch(ctx context.Context, symbol string) (float64, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if len(symbol) != 6 {
		return 0, fmt.Errorf("invalid forex symbol %q: want 6 characters", symbol)
	}
	base, counter := symbol[:3], symbol[3:]

	var payload forexResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"base":    base,
			"symbols": counter,
		}).
		SetResult(&payload).
		Get(p.baseURL + "/latest")
	if err != nil {
		return 0, fmt.Errorf("forex request failed: %w", err)
	}
	if resp.StatusCode() != 200 {
		return 0, fmt.Errorf("forex endpoint returned status %d", resp.StatusCode())
	}

	rate, ok := payload.Rates[counter]
	if !ok || rate <= 0 {
		return 0, fmt.Errorf("forex endpoint returned no rate for %s", symbol)
	}
	return rate, nil
}
