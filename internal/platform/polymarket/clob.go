package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/pmdata/internal/domain"
)

const (
	// maxWindowSecs is the largest [start,end] span the /prices-history
	// endpoint accepts per request (the API enforces ~15 days; 14 keeps a
	// safety margin). Longer ranges are split into chunks.
	maxWindowSecs int64 = 14 * 86400

	// chunkConcurrency bounds how many history chunks are fetched at once.
	chunkConcurrency = 4
)

// ClobClient is the REST client for the read-only endpoints of the
// Polymarket CLOB (Central Limit Order Book) API: historical prices and
// live orderbooks.
type ClobClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewClobClient creates a new CLOB REST client.
//
// baseURL is the CLOB API root, e.g. "https://clob.polymarket.com".
func NewClobClient(baseURL string) *ClobClient {
	return &ClobClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// PricesHistory fetches raw price observations for a token over
// [startTs, endTs]. Ranges wider than the API's window limit are split into
// chunks fetched concurrently and re-joined in timestamp order. fidelity is
// the server-side sampling resolution in minutes; 1 returns every point.
func (c *ClobClient) PricesHistory(ctx context.Context, tokenID string, startTs, endTs int64, fidelity int) ([]domain.PricePoint, error) {
	if endTs < startTs {
		return nil, fmt.Errorf("polymarket/clob: %w: end %d before start %d", domain.ErrInvalidInput, endTs, startTs)
	}
	if endTs-startTs <= maxWindowSecs {
		return c.pricesHistoryWindow(ctx, tokenID, startTs, endTs, fidelity)
	}

	type span struct{ start, end int64 }
	var spans []span
	for s := startTs; s < endTs; s += maxWindowSecs {
		e := s + maxWindowSecs
		if e > endTs {
			e = endTs
		}
		spans = append(spans, span{s, e})
	}

	chunks := make([][]domain.PricePoint, len(spans))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(chunkConcurrency)
	for i, sp := range spans {
		i, sp := i, sp
		g.Go(func() error {
			pts, err := c.pricesHistoryWindow(gctx, tokenID, sp.start, sp.end, fidelity)
			if err != nil {
				return err
			}
			mu.Lock()
			chunks[i] = pts
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []domain.PricePoint
	for _, pts := range chunks {
		all = append(all, pts...)
	}
	// Chunk edges can overlap by one sample; keep the series strictly ordered.
	sort.Slice(all, func(i, j int) bool { return all[i].Timestamp < all[j].Timestamp })
	return dedupPoints(all), nil
}

// pricesHistoryWindow fetches a single /prices-history window.
func (c *ClobClient) pricesHistoryWindow(ctx context.Context, tokenID string, startTs, endTs int64, fidelity int) ([]domain.PricePoint, error) {
	params := url.Values{}
	params.Set("market", tokenID)
	params.Set("startTs", strconv.FormatInt(startTs, 10))
	params.Set("endTs", strconv.FormatInt(endTs, 10))
	if fidelity > 0 {
		params.Set("fidelity", strconv.Itoa(fidelity))
	}

	body, err := c.doGet(ctx, "/prices-history?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("polymarket/clob: prices history: %w", err)
	}

	var hist APIPriceHistory
	if err := json.Unmarshal(body, &hist); err != nil {
		return nil, fmt.Errorf("polymarket/clob: decode prices history: %w", err)
	}

	points := make([]domain.PricePoint, 0, len(hist.History))
	for _, p := range hist.History {
		points = append(points, domain.PricePoint{Timestamp: p.T, Price: p.P})
	}
	return points, nil
}

// Book fetches the current live orderbook for a token.
func (c *ClobClient) Book(ctx context.Context, tokenID string) (domain.Orderbook, error) {
	params := url.Values{}
	params.Set("token_id", tokenID)

	body, err := c.doGet(ctx, "/book?"+params.Encode())
	if err != nil {
		return domain.Orderbook{}, fmt.Errorf("polymarket/clob: get book %s: %w", tokenID, err)
	}

	var book APIBook
	if err := json.Unmarshal(body, &book); err != nil {
		return domain.Orderbook{}, fmt.Errorf("polymarket/clob: decode book: %w", err)
	}

	return book.ToDomainOrderbook(tokenID), nil
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

// doGet sends a GET request and returns the raw response body.
func (c *ClobClient) doGet(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
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

// checkHTTPStatus maps non-2xx status codes to appropriate domain errors.
func checkHTTPStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	bodyStr := string(body)
	switch statusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, bodyStr)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrUnauthorized, bodyStr)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, bodyStr)
	default:
		return fmt.Errorf("HTTP %d: %s", statusCode, bodyStr)
	}
}

// dedupPoints drops duplicate timestamps from an ascending series, keeping
// the first occurrence.
func dedupPoints(points []domain.PricePoint) []domain.PricePoint {
	if len(points) < 2 {
		return points
	}
	out := points[:1]
	for _, p := range points[1:] {
		if p.Timestamp != out[len(out)-1].Timestamp {
			out = append(out, p)
		}
	}
	return out
}
