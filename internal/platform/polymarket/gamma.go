package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/alanyoungcy/pmdata/internal/domain"
)

// GammaClient is the REST client for the Polymarket Gamma API, which
// provides market discovery and metadata.
type GammaClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewGammaClient creates a new Gamma API client.
//
// baseURL is the Gamma API root, e.g. "https://gamma-api.polymarket.com".
func NewGammaClient(baseURL string) *GammaClient {
	return &GammaClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// MarketFilter narrows GetMarkets results. Nil pointer fields are omitted
// from the query entirely, since the Gamma API distinguishes "unset" from
// "false".
type MarketFilter struct {
	Active    *bool
	Closed    *bool
	Order     string
	Ascending *bool
}

// GetMarkets returns one page of markets matching the filter.
func (g *GammaClient) GetMarkets(ctx context.Context, filter MarketFilter, limit, offset int) ([]domain.Market, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(offset))
	if filter.Active != nil {
		params.Set("active", strconv.FormatBool(*filter.Active))
	}
	if filter.Closed != nil {
		params.Set("closed", strconv.FormatBool(*filter.Closed))
	}
	if filter.Order != "" {
		params.Set("order", filter.Order)
	}
	if filter.Ascending != nil {
		params.Set("ascending", strconv.FormatBool(*filter.Ascending))
	}

	body, err := g.doGet(ctx, "/markets?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("polymarket/gamma: get markets: %w", err)
	}

	var apiMarkets []APIMarket
	if err := json.Unmarshal(body, &apiMarkets); err != nil {
		return nil, fmt.Errorf("polymarket/gamma: decode markets: %w", err)
	}

	markets := make([]domain.Market, 0, len(apiMarkets))
	for i := range apiMarkets {
		markets = append(markets, apiMarkets[i].ToDomainMarket())
	}
	return markets, nil
}

// GetAllMarkets pages through markets matching the filter until max rows
// are collected or the catalog is exhausted. max <= 0 means no cap; the
// Gamma catalog runs to tens of thousands of markets, so callers with a
// display limit should pass it here rather than truncating afterwards.
func (g *GammaClient) GetAllMarkets(ctx context.Context, filter MarketFilter, pageSize, max int) ([]domain.Market, error) {
	if pageSize <= 0 {
		pageSize = 100
	}
	var all []domain.Market
	for offset := 0; ; {
		want := pageSize
		if max > 0 && max-len(all) < want {
			want = max - len(all)
		}
		page, err := g.GetMarkets(ctx, filter, want, offset)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < want || (max > 0 && len(all) >= max) {
			return all, nil
		}
		offset += len(page)
	}
}

// GetMarket returns a single market by its Gamma ID.
func (g *GammaClient) GetMarket(ctx context.Context, id string) (domain.Market, error) {
	body, err := g.doGet(ctx, "/markets/"+url.PathEscape(id))
	if err != nil {
		return domain.Market{}, fmt.Errorf("polymarket/gamma: get market %s: %w", id, err)
	}

	var apiMarket APIMarket
	if err := json.Unmarshal(body, &apiMarket); err != nil {
		return domain.Market{}, fmt.Errorf("polymarket/gamma: decode market: %w", err)
	}
	return apiMarket.ToDomainMarket(), nil
}

// GetMarketBySlug returns a single market looked up by its URL slug.
func (g *GammaClient) GetMarketBySlug(ctx context.Context, slug string) (domain.Market, error) {
	params := url.Values{}
	params.Set("slug", slug)

	body, err := g.doGet(ctx, "/markets?"+params.Encode())
	if err != nil {
		return domain.Market{}, fmt.Errorf("polymarket/gamma: get market by slug %s: %w", slug, err)
	}

	var apiMarkets []APIMarket
	if err := json.Unmarshal(body, &apiMarkets); err != nil {
		return domain.Market{}, fmt.Errorf("polymarket/gamma: decode markets: %w", err)
	}
	if len(apiMarkets) == 0 {
		return domain.Market{}, fmt.Errorf("polymarket/gamma: %w: slug=%s", domain.ErrNotFound, slug)
	}
	return apiMarkets[0].ToDomainMarket(), nil
}

// doGet sends a GET request and returns the raw response body.
func (g *GammaClient) doGet(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if err := checkHTTPStatus(resp.StatusCode, body); err != nil {
		return nil, err
	}
	return body, nil
}
