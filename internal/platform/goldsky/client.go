// Package goldsky queries on-chain order fill events for Polymarket outcome
// tokens from the Goldsky subgraph indexer.
package goldsky

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/alanyoungcy/pmdata/internal/domain"
)

// usdcAssetID identifies the collateral leg of a fill. When the maker asset
// is the outcome token, the maker is selling tokens for USDC; otherwise the
// maker is buying.
const usdcAssetID = "0"

// pageSize is the subgraph page size; pages are walked with an id_gt cursor
// so no fill is skipped when many share one timestamp.
const pageSize = 1000

// Client is a GraphQL client for the Goldsky subgraph indexer.
type Client struct {
	graphqlURL string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a new Goldsky GraphQL client.
//
// graphqlURL is the Goldsky subgraph endpoint, e.g.
// "https://api.goldsky.com/api/public/.../subgraphs/orderbook-subgraph/gn".
func NewClient(graphqlURL, apiKey string) *Client {
	return &Client{
		graphqlURL: graphqlURL,
		apiKey:     strings.TrimSpace(apiKey),
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// graphqlRequest is the standard GraphQL request envelope.
type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

// graphqlResponse is the standard GraphQL response envelope.
type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

const fillsQuery = `
	query OrderFills($assetId: String!, $startTs: BigInt!, $endTs: BigInt!, $lastId: ID!, $first: Int!) {
		orderFilledEvents(
			first: $first
			orderBy: id
			orderDirection: asc
			where: {
				makerAssetId_in: [$assetId, "0"]
				takerAssetId_in: [$assetId, "0"]
				timestamp_gte: $startTs
				timestamp_lte: $endTs
				id_gt: $lastId
			}
		) {
			id
			timestamp
			makerAssetId
			makerAmountFilled
			takerAssetId
			takerAmountFilled
		}
	}
`

// OrderFills returns all fills touching the given token in [startTs, endTs],
// converted to domain trades. Fills that do not parse into a valid trade
// (zero amounts, price outside (0,1)) are skipped, matching how the exchange
// subgraph reports dust and self-wash entries.
func (c *Client) OrderFills(ctx context.Context, tokenID string, startTs, endTs int64) ([]domain.Trade, error) {
	var trades []domain.Trade
	lastID := ""

	for {
		fills, err := c.fillsPage(ctx, tokenID, startTs, endTs, lastID)
		if err != nil {
			return nil, err
		}
		for _, f := range fills {
			if trade, ok := fillToTrade(f, tokenID); ok {
				trades = append(trades, trade)
			}
		}
		if len(fills) < pageSize {
			return trades, nil
		}
		lastID = fills[len(fills)-1].ID
	}
}

// fillsPage fetches one cursor page of raw fills.
func (c *Client) fillsPage(ctx context.Context, tokenID string, startTs, endTs int64, lastID string) ([]domain.RawFill, error) {
	variables := map[string]any{
		"assetId": tokenID,
		"startTs": strconv.FormatInt(startTs, 10),
		"endTs":   strconv.FormatInt(endTs, 10),
		"lastId":  lastID,
		"first":   pageSize,
	}

	respData, err := c.doQuery(ctx, fillsQuery, variables)
	if err != nil {
		return nil, fmt.Errorf("goldsky: fetch order fills: %w", err)
	}

	var result struct {
		OrderFilledEvents []struct {
			ID                string `json:"id"`
			Timestamp         string `json:"timestamp"`
			MakerAssetID      string `json:"makerAssetId"`
			MakerAmountFilled string `json:"makerAmountFilled"`
			TakerAssetID      string `json:"takerAssetId"`
			TakerAmountFilled string `json:"takerAmountFilled"`
		} `json:"orderFilledEvents"`
	}
	if err := json.Unmarshal(respData, &result); err != nil {
		return nil, fmt.Errorf("goldsky: decode order fills: %w", err)
	}

	fills := make([]domain.RawFill, 0, len(result.OrderFilledEvents))
	for _, e := range result.OrderFilledEvents {
		ts, _ := strconv.ParseInt(e.Timestamp, 10, 64)
		makerAmt, _ := strconv.ParseInt(e.MakerAmountFilled, 10, 64)
		takerAmt, _ := strconv.ParseInt(e.TakerAmountFilled, 10, 64)

		fills = append(fills, domain.RawFill{
			ID:                e.ID,
			Timestamp:         ts,
			MakerAssetID:      e.MakerAssetID,
			MakerAmountFilled: makerAmt,
			TakerAssetID:      e.TakerAssetID,
			TakerAmountFilled: takerAmt,
		})
	}
	return fills, nil
}

// fillToTrade converts a raw fill into a trade from the taker's perspective
// on the outcome token. When the maker holds the token, the taker is buying
// USDC-for-token from the maker's point of view, i.e. the taker side is
// SELL on the token; otherwise BUY. Amounts are 6-decimal fixed point.
func fillToTrade(f domain.RawFill, tokenID string) (domain.Trade, bool) {
	if f.MakerAmountFilled <= 0 || f.TakerAmountFilled <= 0 {
		return domain.Trade{}, false
	}

	var price, size float64
	var side domain.TradeSide
	switch {
	case f.MakerAssetID == tokenID:
		price = float64(f.TakerAmountFilled) / float64(f.MakerAmountFilled)
		size = float64(f.MakerAmountFilled) / 1e6
		side = domain.TradeSell
	case f.TakerAssetID == tokenID:
		price = float64(f.MakerAmountFilled) / float64(f.TakerAmountFilled)
		size = float64(f.TakerAmountFilled) / 1e6
		side = domain.TradeBuy
	default:
		return domain.Trade{}, false
	}

	if price <= 0 || price >= 1 {
		return domain.Trade{}, false
	}

	return domain.Trade{
		Timestamp: f.Timestamp,
		Price:     price,
		Size:      size,
		Side:      side,
		OrderID:   f.ID,
		TokenID:   tokenID,
	}, true
}

// doQuery executes a GraphQL query against the Goldsky endpoint and returns
// the raw "data" field from the response.
func (c *Client) doQuery(ctx context.Context, query string, variables map[string]any) (json.RawMessage, error) {
	reqBody := graphqlRequest{
		Query:     query,
		Variables: variables,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal graphql request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.graphqlURL, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var gqlResp graphqlResponse
	if err := json.Unmarshal(body, &gqlResp); err != nil {
		return nil, fmt.Errorf("decode graphql response: %w", err)
	}
	if len(gqlResp.Errors) > 0 {
		return nil, fmt.Errorf("graphql error: %s", gqlResp.Errors[0].Message)
	}
	return gqlResp.Data, nil
}
