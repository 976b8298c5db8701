package polymarket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/pmdata/internal/domain"
)

// wsTestServer upgrades the connection, waits for one subscribe command, then
// sends the given frames.
func wsTestServer(t *testing.T, frames ...string) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		var cmd wsCommand
		require.NoError(t, conn.ReadJSON(&cmd))
		assert.Equal(t, "subscribe", cmd.Type)

		for _, frame := range frames {
			require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(frame)))
		}
		// Keep the connection open until the client closes it.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestWSClientDispatchesBookSnapshots(t *testing.T) {
	bookFrame := `{
		"event_type": "book",
		"market": "0xabc",
		"asset_id": "111",
		"timestamp": "1700000000000",
		"bids": [{"price":"0.48","size":"100"}],
		"asks": [{"price":"0.52","size":"80"}]
	}`
	srv := wsTestServer(t, bookFrame)
	defer srv.Close()

	client := NewWSClient(wsURL(srv))
	defer client.Close()

	books := make(chan domain.Orderbook, 1)
	client.OnBook(func(ob domain.Orderbook) { books <- ob })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, client.Connect(ctx))
	require.NoError(t, client.Subscribe(ctx, []string{"book"}, []string{"111"}))

	select {
	case ob := <-books:
		assert.Equal(t, "111", ob.TokenID)
		assert.Equal(t, int64(1700000000), ob.Timestamp)
		assert.False(t, ob.Synthetic)
		assert.Equal(t, 0.48, ob.BestBid())
		assert.Equal(t, 0.52, ob.BestAsk())
	case <-ctx.Done():
		t.Fatal("timed out waiting for book snapshot")
	}
}

func TestWSClientDispatchesBatchedTrades(t *testing.T) {
	batchFrame := `[
		{"event_type":"last_trade_price","asset_id":"111","price":"0.55","size":"10","side":"SELL","timestamp":"1700000001000"},
		{"event_type":"last_trade_price","asset_id":"111","price":"1.5","size":"10","side":"BUY","timestamp":"1700000002000"}
	]`
	srv := wsTestServer(t, batchFrame)
	defer srv.Close()

	client := NewWSClient(wsURL(srv))
	defer client.Close()

	trades := make(chan domain.Trade, 2)
	client.OnLastTrade(func(tr domain.Trade) { trades <- tr })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, client.Connect(ctx))
	require.NoError(t, client.Subscribe(ctx, []string{"last_trade_price"}, []string{"111"}))

	select {
	case tr := <-trades:
		assert.Equal(t, domain.TradeSell, tr.Side)
		assert.InDelta(t, 0.55, tr.Price, 1e-9)
		assert.Equal(t, int64(1700000001), tr.Timestamp)
	case <-ctx.Done():
		t.Fatal("timed out waiting for trade")
	}

	// The second trade's price is outside (0,1) and must be dropped.
	select {
	case tr := <-trades:
		t.Fatalf("unexpected second trade: %+v", tr)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestLastTradeToDomain(t *testing.T) {
	cases := []struct {
		name string
		msg  lastTradeMessage
		ok   bool
	}{
		{"valid buy", lastTradeMessage{AssetID: "111", Price: "0.5", Size: "2", Side: "BUY", Timestamp: "1000"}, true},
		{"bad price", lastTradeMessage{AssetID: "111", Price: "abc", Timestamp: "1000"}, false},
		{"price at bound", lastTradeMessage{AssetID: "111", Price: "1", Timestamp: "1000"}, false},
		{"zero price", lastTradeMessage{AssetID: "111", Price: "0", Timestamp: "1000"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, ok := lastTradeToDomain(tc.msg)
			assert.Equal(t, tc.ok, ok)
		})
	}
}

func TestWSCommandWireFormat(t *testing.T) {
	data, err := json.Marshal(wsCommand{Type: "subscribe", Channel: "book", Assets: []string{"111"}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"subscribe","channel":"book","assets_ids":["111"]}`, string(data))
}
