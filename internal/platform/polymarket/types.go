package polymarket

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/alanyoungcy/pmdata/internal/domain"
)

// flexBool unmarshals from JSON bool or string ("true"/"false") so Gamma API
// responses work whether "active" is sent as bool or string.
type flexBool bool

func (f *flexBool) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = flexBool(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = flexBool(strings.EqualFold(s, "true") || s == "1")
	return nil
}

// jsonStringList unmarshals either a JSON array of strings or a JSON string
// containing an encoded array. Gamma sends clobTokenIds and outcomes in the
// latter form, e.g. "[\"123\",\"456\"]".
type jsonStringList []string

func (l *jsonStringList) UnmarshalJSON(data []byte) error {
	var direct []string
	if err := json.Unmarshal(data, &direct); err == nil {
		*l = direct
		return nil
	}
	var encoded string
	if err := json.Unmarshal(data, &encoded); err != nil {
		return err
	}
	if encoded == "" {
		*l = nil
		return nil
	}
	var nested []string
	if err := json.Unmarshal([]byte(encoded), &nested); err != nil {
		return err
	}
	*l = nested
	return nil
}

// --------------------------------------------------------------------------
// CLOB API DTOs
// --------------------------------------------------------------------------

// APIPricePoint is one entry of the /prices-history response.
type APIPricePoint struct {
	T int64   `json:"t"`
	P float64 `json:"p"`
}

// APIPriceHistory is the envelope of the /prices-history response.
type APIPriceHistory struct {
	History []APIPricePoint `json:"history"`
}

// APIBookLevel is a single bid/ask level in the /book response. Prices and
// sizes arrive as decimal strings.
type APIBookLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// APIBook is the /book response.
type APIBook struct {
	Market    string         `json:"market"`
	AssetID   string         `json:"asset_id"`
	Timestamp string         `json:"timestamp"`
	Bids      []APIBookLevel `json:"bids"`
	Asks      []APIBookLevel `json:"asks"`
	Hash      string         `json:"hash"`
}

// ToDomainOrderbook converts an APIBook to a domain.Orderbook, tagged as
// observed rather than synthesized. Levels with unparsable numbers are
// skipped.
func (b *APIBook) ToDomainOrderbook(tokenID string) domain.Orderbook {
	ob := domain.Orderbook{
		Market:    b.Market,
		TokenID:   tokenID,
		Synthetic: false,
	}
	if ts, err := strconv.ParseInt(b.Timestamp, 10, 64); err == nil {
		// The CLOB reports milliseconds; the domain is Unix seconds.
		if ts > 1e12 {
			ts /= 1000
		}
		ob.Timestamp = ts
	}
	ob.Bids = toDomainLevels(b.Bids)
	ob.Asks = toDomainLevels(b.Asks)
	return ob
}

func toDomainLevels(levels []APIBookLevel) []domain.OrderbookLevel {
	out := make([]domain.OrderbookLevel, 0, len(levels))
	for _, lvl := range levels {
		price, err := strconv.ParseFloat(lvl.Price, 64)
		if err != nil {
			continue
		}
		size, err := strconv.ParseFloat(lvl.Size, 64)
		if err != nil {
			continue
		}
		out = append(out, domain.OrderbookLevel{Price: price, Size: size})
	}
	return out
}

// --------------------------------------------------------------------------
// Gamma API DTOs
// --------------------------------------------------------------------------

// APIMarket represents a market as returned by the Polymarket Gamma API.
type APIMarket struct {
	ID              string         `json:"id"`
	Question        string         `json:"question"`
	Slug            string         `json:"slug"`
	ConditionID     string         `json:"conditionId"`
	ClobTokenIDs    jsonStringList `json:"clobTokenIds"`
	Outcomes        jsonStringList `json:"outcomes"`
	Active          flexBool       `json:"active"`
	Closed          flexBool       `json:"closed"`
	Resolved        flexBool       `json:"resolved"`
	ResolvedOutcome string         `json:"resolvedOutcome"`
	EndDate         string         `json:"endDate"`
}

// ToDomainMarket converts an APIMarket to a domain.Market. Markets with more
// than two outcome tokens are truncated to the first two; this library only
// models binary markets.
func (m *APIMarket) ToDomainMarket() domain.Market {
	out := domain.Market{
		ID:              m.ID,
		Question:        m.Question,
		Slug:            m.Slug,
		ConditionID:     m.ConditionID,
		Active:          bool(m.Active),
		Closed:          bool(m.Closed),
		Resolved:        bool(m.Resolved),
		ResolvedOutcome: m.ResolvedOutcome,
		EndDate:         m.EndDate,
	}
	for i := 0; i < 2 && i < len(m.ClobTokenIDs); i++ {
		out.TokenIDs[i] = m.ClobTokenIDs[i]
	}
	for i := 0; i < 2 && i < len(m.Outcomes); i++ {
		out.Outcomes[i] = m.Outcomes[i]
	}
	return out
}
