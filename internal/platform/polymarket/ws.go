package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alanyoungcy/pmdata/internal/domain"
)

const (
	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// pongWait is the time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// pingPeriod sends pings to the peer at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
)

// BookHandler is called for every full orderbook snapshot received on the
// "book" channel.
type BookHandler func(domain.Orderbook)

// TradeHandler is called for every message on the "last_trade_price" channel.
type TradeHandler func(domain.Trade)

// WSClient is a WebSocket client for the Polymarket CLOB real-time market
// data feed. It manages the connection lifecycle and subscriptions, and
// dispatches incoming messages to registered handlers.
type WSClient struct {
	wsURL string
	conn  *websocket.Conn

	mu     sync.RWMutex
	closed bool

	// Subscriptions to restore on reconnect.
	subscriptions []wsCommand

	handlerMu     sync.RWMutex
	bookHandlers  []BookHandler
	tradeHandlers []TradeHandler

	done chan struct{}
}

// NewWSClient creates a WebSocket client for the given endpoint, e.g.
// "wss://ws-subscriptions-clob.polymarket.com/ws/market".
func NewWSClient(wsURL string) *WSClient {
	return &WSClient{
		wsURL: wsURL,
		done:  make(chan struct{}),
	}
}

// wsCommand is the subscribe/unsubscribe envelope the CLOB feed expects.
type wsCommand struct {
	Type    string   `json:"type"`
	Channel string   `json:"channel"`
	Assets  []string `json:"assets_ids"`
}

// Connect establishes the WebSocket connection and starts the read and ping
// loops. Previously registered subscriptions are replayed, so callers can
// reuse Connect after a disconnect.
func (w *WSClient) Connect(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("polymarket/ws: %w", domain.ErrWSDisconnect)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 15 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, w.wsURL, nil)
	if err != nil {
		return fmt.Errorf("polymarket/ws: connect: %w", err)
	}

	w.conn = conn

	w.conn.SetReadDeadline(time.Now().Add(pongWait))
	w.conn.SetPongHandler(func(string) error {
		w.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go w.readLoop(conn)
	go w.pingLoop(conn)

	for _, cmd := range w.subscriptions {
		if err := w.sendCommand(cmd); err != nil {
			return fmt.Errorf("polymarket/ws: restore subscription: %w", err)
		}
	}

	return nil
}

// Subscribe subscribes to the given channels for the specified token IDs.
// Valid channels are "book" and "last_trade_price".
func (w *WSClient) Subscribe(ctx context.Context, channels []string, tokenIDs []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.conn == nil {
		return fmt.Errorf("polymarket/ws: not connected")
	}

	for _, ch := range channels {
		cmd := wsCommand{
			Type:    "subscribe",
			Channel: ch,
			Assets:  tokenIDs,
		}
		if err := w.sendCommand(cmd); err != nil {
			return fmt.Errorf("polymarket/ws: subscribe to %s: %w", ch, err)
		}
		w.subscriptions = append(w.subscriptions, cmd)
	}

	return nil
}

// OnBook registers a handler for full orderbook snapshots.
func (w *WSClient) OnBook(handler BookHandler) {
	w.handlerMu.Lock()
	defer w.handlerMu.Unlock()
	w.bookHandlers = append(w.bookHandlers, handler)
}

// OnLastTrade registers a handler for last trade price messages.
func (w *WSClient) OnLastTrade(handler TradeHandler) {
	w.handlerMu.Lock()
	defer w.handlerMu.Unlock()
	w.tradeHandlers = append(w.tradeHandlers, handler)
}

// Err returns a channel that is closed when the connection drops or the
// client is closed.
func (w *WSClient) Err() <-chan struct{} {
	return w.done
}

// Close shuts down the WebSocket connection and stops the read loop.
func (w *WSClient) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	close(w.done)

	if w.conn != nil {
		_ = w.conn.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		)
		return w.conn.Close()
	}
	return nil
}

// sendCommand sends a JSON command. Caller must hold w.mu.
func (w *WSClient) sendCommand(cmd wsCommand) error {
	w.conn.SetWriteDeadline(time.Now().Add(writeWait))

	data, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("marshal command: %w", err)
	}
	return w.conn.WriteMessage(websocket.TextMessage, data)
}

// readLoop reads messages until the connection drops, then signals done so
// the owner can decide whether to reconnect.
func (w *WSClient) readLoop(conn *websocket.Conn) {
	defer conn.Close()

	for {
		select {
		case <-w.done:
			return
		default:
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			w.mu.Lock()
			if !w.closed {
				w.closed = true
				close(w.done)
			}
			w.mu.Unlock()
			return
		}

		w.handleMessage(message)
	}
}

// pingLoop keeps the connection alive with periodic pings.
func (w *WSClient) pingLoop(conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// lastTradeMessage is the "last_trade_price" channel payload.
type lastTradeMessage struct {
	AssetID   string `json:"asset_id"`
	Price     string `json:"price"`
	Size      string `json:"size"`
	Side      string `json:"side"`
	Timestamp string `json:"timestamp"`
}

// handleMessage routes a raw message to the registered handlers. The feed
// sometimes delivers arrays of events in one frame, so both shapes are tried.
func (w *WSClient) handleMessage(raw []byte) {
	if len(raw) > 0 && raw[0] == '[' {
		var batch []json.RawMessage
		if err := json.Unmarshal(raw, &batch); err != nil {
			return
		}
		for _, item := range batch {
			w.handleMessage(item)
		}
		return
	}

	var envelope struct {
		EventType string `json:"event_type"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return
	}

	switch envelope.EventType {
	case "book":
		var book APIBook
		if err := json.Unmarshal(raw, &book); err != nil {
			return
		}
		ob := book.ToDomainOrderbook(book.AssetID)

		w.handlerMu.RLock()
		handlers := w.bookHandlers
		w.handlerMu.RUnlock()
		for _, h := range handlers {
			h(ob)
		}

	case "last_trade_price":
		var msg lastTradeMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			return
		}
		trade, ok := lastTradeToDomain(msg)
		if !ok {
			return
		}

		w.handlerMu.RLock()
		handlers := w.tradeHandlers
		w.handlerMu.RUnlock()
		for _, h := range handlers {
			h(trade)
		}
	}
}

// lastTradeToDomain converts a last trade message, dropping ones with
// unparsable or out-of-range prices.
func lastTradeToDomain(msg lastTradeMessage) (domain.Trade, bool) {
	price, err := strconv.ParseFloat(msg.Price, 64)
	if err != nil || price <= 0 || price >= 1 {
		return domain.Trade{}, false
	}
	size, _ := strconv.ParseFloat(msg.Size, 64)

	ts, _ := strconv.ParseInt(msg.Timestamp, 10, 64)
	if ts > 1e12 {
		ts /= 1000
	}

	side := domain.TradeBuy
	if msg.Side == "SELL" || msg.Side == "sell" {
		side = domain.TradeSell
	}

	return domain.Trade{
		Timestamp: ts,
		Price:     price,
		Size:      size,
		Side:      side,
		TokenID:   msg.AssetID,
	}, true
}
