// Package yahoo implements market.DataSource against the public Yahoo
// Finance quote API.
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rustyeddy/optionwatch/market"
	"github.com/rustyeddy/optionwatch/pricing"
)

// DefaultURL is the public Yahoo Finance query host.
const DefaultURL = "https://query1.finance.yahoo.com"

// rateSymbol is the 13-week T-bill yield index, quoted in percent.
const rateSymbol = "^IRX"

// Client is a Yahoo Finance API client.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Yahoo Finance client. An empty baseURL selects the
// public host; a zero timeout defaults to 10 seconds.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// quoteResponse is the /v7/finance/quote wire format. Prices are optional:
// halted or delisted symbols come back without regularMarketPrice.
type quoteResponse struct {
	QuoteResponse struct {
		Result []struct {
			Symbol             string   `json:"symbol"`
			RegularMarketPrice *float64 `json:"regularMarketPrice"`
		} `json:"result"`
	} `json:"quoteResponse"`
}

// chartResponse is the subset of /v8/finance/chart we read: the list of
// minute closes for the most recent session.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
	} `json:"chart"`
}

// optionsResponse is the subset of /v7/finance/options we read.
type optionsResponse struct {
	OptionChain struct {
		Result []struct {
			ExpirationDates []int64 `json:"expirationDates"`
			Options         []struct {
				Calls []apiContract `json:"calls"`
				Puts  []apiContract `json:"puts"`
			} `json:"options"`
		} `json:"result"`
	} `json:"optionChain"`
}

type apiContract struct {
	Strike            float64  `json:"strike"`
	ImpliedVolatility *float64 `json:"impliedVolatility"`
}

// RiskFreeRate fetches the ^IRX quote. Yahoo reports the yield in
// percent, so the result is divided by 100.
func (c *Client) RiskFreeRate(ctx context.Context) (float64, error) {
	pct, err := c.quote(ctx, rateSymbol)
	if err != nil {
		return 0, fmt.Errorf("risk-free rate: %w", err)
	}
	return pct / 100.0, nil
}

// SpotPrice fetches the current underlying price. It tries the quote
// endpoint first and falls back to the last minute close of the daily
// chart, mirroring the progressively-less-fresh source order. The first
// non-null price wins; market.ErrNoData means every tier came up empty.
func (c *Client) SpotPrice(ctx context.Context, symbol string) (float64, error) {
	price, err := c.quote(ctx, symbol)
	if err == nil {
		return price, nil
	}

	price, chartErr := c.lastChartClose(ctx, symbol)
	if chartErr == nil {
		return price, nil
	}

	return 0, fmt.Errorf("spot %s: %w", symbol, err)
}

// OptionChain fetches one side of the chain for the given expiration.
// An expiration the provider does not list returns market.ErrNoData.
func (c *Client) OptionChain(ctx context.Context, symbol string, expiry time.Time, kind pricing.Kind) ([]market.ChainEntry, error) {
	// Yahoo keys expirations by midnight UTC of the expiry date.
	day := time.Date(expiry.Year(), expiry.Month(), expiry.Day(), 0, 0, 0, 0, time.UTC)
	apiURL := fmt.Sprintf("%s/v7/finance/options/%s?date=%d",
		c.baseURL, url.PathEscape(symbol), day.Unix())

	var resp optionsResponse
	if err := c.getJSON(ctx, apiURL, &resp); err != nil {
		return nil, fmt.Errorf("option chain %s: %w", symbol, err)
	}

	if len(resp.OptionChain.Result) == 0 || len(resp.OptionChain.Result[0].Options) == 0 {
		return nil, fmt.Errorf("option chain %s %s: %w", symbol, day.Format("2006-01-02"), market.ErrNoData)
	}

	// Yahoo answers an unlisted ?date= with the nearest expiration's
	// chain instead of an error, so the offered dates must be checked
	// or a wrong-expiry vol would slip through.
	if !offersExpiry(resp.OptionChain.Result[0].ExpirationDates, day.Unix()) {
		return nil, fmt.Errorf("option chain %s %s: %w", symbol, day.Format("2006-01-02"), market.ErrNoData)
	}

	side := resp.OptionChain.Result[0].Options[0].Calls
	if kind == pricing.Put {
		side = resp.OptionChain.Result[0].Options[0].Puts
	}

	entries := make([]market.ChainEntry, 0, len(side))
	for _, ct := range side {
		entries = append(entries, market.ChainEntry{
			Strike:     ct.Strike,
			ImpliedVol: ct.ImpliedVolatility,
		})
	}
	return entries, nil
}

func offersExpiry(offered []int64, want int64) bool {
	for _, ts := range offered {
		if ts == want {
			return true
		}
	}
	return false
}

// quote returns regularMarketPrice for a symbol.
func (c *Client) quote(ctx context.Context, symbol string) (float64, error) {
	apiURL := fmt.Sprintf("%s/v7/finance/quote?symbols=%s", c.baseURL, url.QueryEscape(symbol))

	var resp quoteResponse
	if err := c.getJSON(ctx, apiURL, &resp); err != nil {
		return 0, err
	}

	for _, r := range resp.QuoteResponse.Result {
		if r.Symbol == symbol && r.RegularMarketPrice != nil {
			return *r.RegularMarketPrice, nil
		}
	}
	return 0, market.ErrNoData
}

// lastChartClose returns the most recent non-null minute close from the
// one-day chart.
func (c *Client) lastChartClose(ctx context.Context, symbol string) (float64, error) {
	apiURL := fmt.Sprintf("%s/v8/finance/chart/%s?range=1d&interval=1m",
		c.baseURL, url.PathEscape(symbol))

	var resp chartResponse
	if err := c.getJSON(ctx, apiURL, &resp); err != nil {
		return 0, err
	}

	if len(resp.Chart.Result) == 0 || len(resp.Chart.Result[0].Indicators.Quote) == 0 {
		return 0, market.ErrNoData
	}

	closes := resp.Chart.Result[0].Indicators.Quote[0].Close
	for i := len(closes) - 1; i >= 0; i-- {
		if closes[i] != nil {
			return *closes[i], nil
		}
	}
	return 0, market.ErrNoData
}

func (c *Client) getJSON(ctx context.Context, apiURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	// Yahoo rejects requests without a browser-ish user agent.
	req.Header.Set("User-Agent", "Mozilla/5.0 (optionwatch)")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
