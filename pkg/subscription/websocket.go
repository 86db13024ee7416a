package subscription

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	methodAccountSubscribe     = "accountSubscribe"
	methodAccountUnsubscribe   = "accountUnsubscribe"
	methodSignatureSubscribe   = "signatureSubscribe"
	methodSignatureUnsubscribe = "signatureUnsubscribe"

	notificationAccount   = "accountNotification"
	notificationSignature = "signatureNotification"
)

// WebSocketClient manages WebSocket connection to Solana
type WebSocketClient struct {
	url            string
	conn           *websocket.Conn
	mu             sync.RWMutex
	writeMu        sync.Mutex
	subscriptions  map[uint64]*Subscription
	nextID         uint64
	reconnectDelay time.Duration
	ctx            context.Context
	cancel         context.CancelFunc
	connected      bool
	logger         *zap.Logger
}

// Subscription represents an account or signature subscription
type Subscription struct {
	ID     uint64
	Method string
	Target string
	Params []interface{}
	SubID  uint64 // Solana subscription ID

	onAccount   AccountUpdateHandler
	onSignature SignatureHandler
}

// AccountUpdateHandler is called with decoded account data on every update
type AccountUpdateHandler func(accountID string, data []byte, slot uint64)

// SignatureHandler is called once when a signature reaches the subscribed
// commitment. txErr is nil on success.
type SignatureHandler func(signature string, txErr interface{}, slot uint64)

// RPCRequest represents a JSON-RPC request
type RPCRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

// RPCResponse represents a JSON-RPC response
type RPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError represents a JSON-RPC error
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// NotificationMessage represents a subscription notification
type NotificationMessage struct {
	JSONRPC string             `json:"jsonrpc"`
	Method  string             `json:"method"`
	Params  NotificationParams `json:"params"`
}

// NotificationParams contains subscription notification data
type NotificationParams struct {
	Result       json.RawMessage `json:"result"`
	Subscription uint64          `json:"subscription"`
}

// AccountNotification contains account update data
type AccountNotification struct {
	Context Context      `json:"context"`
	Value   AccountValue `json:"value"`
}

// SignatureNotification contains the outcome of a signature
type SignatureNotification struct {
	Context Context `json:"context"`
	Value   struct {
		Err interface{} `json:"err"`
	} `json:"value"`
}

// Context contains slot information
type Context struct {
	Slot uint64 `json:"slot"`
}

// AccountValue contains account data
type AccountValue struct {
	Data       []string `json:"data"` // [base64_data, encoding]
	Executable bool     `json:"executable"`
	Lamports   uint64   `json:"lamports"`
	Owner      string   `json:"owner"`
	RentEpoch  uint64   `json:"rentEpoch"`
}

// NewWebSocketClient creates a new WebSocket client
func NewWebSocketClient(ctx context.Context, wsURL string, logger *zap.Logger) (*WebSocketClient, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	clientCtx, cancel := context.WithCancel(ctx)

	client := &WebSocketClient{
		url:            wsURL,
		subscriptions:  make(map[uint64]*Subscription),
		reconnectDelay: 5 * time.Second,
		ctx:            clientCtx,
		cancel:         cancel,
		nextID:         1,
		logger:         logger.With(zap.String("component", "websocket")),
	}

	if err := client.connect(); err != nil {
		cancel()
		return nil, err
	}

	go client.readMessages()
	go client.handleReconnection()

	return client, nil
}

// connect establishes WebSocket connection
func (c *WebSocketClient) connect() error {
	conn, _, err := websocket.DefaultDialer.DialContext(c.ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to WebSocket: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()
	c.logger.Info("connected", zap.String("url", c.url))

	return nil
}

// SubscribeAccount subscribes to account updates
func (c *WebSocketClient) SubscribeAccount(accountID string, commitment string, handler AccountUpdateHandler) (uint64, error) {
	return c.subscribe(&Subscription{
		Method: methodAccountSubscribe,
		Target: accountID,
		Params: []interface{}{
			accountID,
			map[string]interface{}{
				"encoding":   "base64",
				"commitment": commitment,
			},
		},
		onAccount: handler,
	})
}

// SubscribeSignature waits for a transaction signature to reach commitment.
// The node drops the subscription after the first notification.
func (c *WebSocketClient) SubscribeSignature(signature string, commitment string, handler SignatureHandler) (uint64, error) {
	return c.subscribe(&Subscription{
		Method: methodSignatureSubscribe,
		Target: signature,
		Params: []interface{}{
			signature,
			map[string]interface{}{
				"commitment": commitment,
			},
		},
		onSignature: handler,
	})
}

func (c *WebSocketClient) subscribe(sub *Subscription) (uint64, error) {
	c.mu.Lock()
	sub.ID = c.nextID
	c.nextID++
	c.subscriptions[sub.ID] = sub
	c.mu.Unlock()

	req := RPCRequest{
		JSONRPC: "2.0",
		ID:      sub.ID,
		Method:  sub.Method,
		Params:  sub.Params,
	}
	if err := c.sendRequest(req); err != nil {
		c.mu.Lock()
		delete(c.subscriptions, sub.ID)
		c.mu.Unlock()
		return 0, err
	}

	return sub.ID, nil
}

// Unsubscribe removes a subscription
func (c *WebSocketClient) Unsubscribe(id uint64) error {
	c.mu.Lock()
	sub, exists := c.subscriptions[id]
	if !exists {
		c.mu.Unlock()
		return nil
	}
	delete(c.subscriptions, id)
	solanaSubID := sub.SubID
	c.mu.Unlock()

	if solanaSubID == 0 {
		// not yet confirmed by the node
		return nil
	}

	method := methodAccountUnsubscribe
	if sub.Method == methodSignatureSubscribe {
		method = methodSignatureUnsubscribe
	}
	return c.sendRequest(RPCRequest{
		JSONRPC: "2.0",
		ID:      id,
		Method:  method,
		Params:  []interface{}{solanaSubID},
	})
}

// sendRequest sends a JSON-RPC request
func (c *WebSocketClient) sendRequest(req RPCRequest) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn == nil {
		return fmt.Errorf("not connected")
	}

	data, err := json.Marshal(req)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.WriteMessage(websocket.TextMessage, data)
}

// readMessages reads incoming messages
func (c *WebSocketClient) readMessages() {
	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		c.mu.RLock()
		conn := c.conn
		c.mu.RUnlock()

		if conn == nil {
			time.Sleep(100 * time.Millisecond)
			continue
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			if c.ctx.Err() != nil {
				return
			}
			c.logger.Warn("read failed", zap.Error(err))
			c.mu.Lock()
			if c.conn == conn {
				c.conn = nil
				c.connected = false
			}
			c.mu.Unlock()
			conn.Close()
			continue
		}

		c.handleMessage(message)
	}
}

// handleMessage processes incoming messages
func (c *WebSocketClient) handleMessage(data []byte) {
	var notification NotificationMessage
	if err := json.Unmarshal(data, &notification); err == nil && notification.Method != "" {
		c.handleNotification(notification)
		return
	}

	var response RPCResponse
	if err := json.Unmarshal(data, &response); err != nil {
		c.logger.Warn("failed to parse message", zap.Error(err))
		return
	}

	c.handleResponse(response)
}

// handleResponse records the node's subscription id
func (c *WebSocketClient) handleResponse(response RPCResponse) {
	if response.Error != nil {
		c.logger.Warn("rpc error", zap.Uint64("id", response.ID), zap.String("message", response.Error.Message))
		return
	}

	var subID uint64
	if err := json.Unmarshal(response.Result, &subID); err != nil {
		// unsubscribe acks carry a bool
		return
	}

	c.mu.Lock()
	if sub, exists := c.subscriptions[response.ID]; exists {
		sub.SubID = subID
	}
	c.mu.Unlock()
}

func (c *WebSocketClient) findBySubID(subID uint64) *Subscription {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, sub := range c.subscriptions {
		if sub.SubID == subID {
			return sub
		}
	}
	return nil
}

func (c *WebSocketClient) handleNotification(notification NotificationMessage) {
	sub := c.findBySubID(notification.Params.Subscription)
	if sub == nil {
		return
	}

	switch notification.Method {
	case notificationAccount:
		var n AccountNotification
		if err := json.Unmarshal(notification.Params.Result, &n); err != nil || len(n.Value.Data) < 1 {
			return
		}
		data, err := base64.StdEncoding.DecodeString(n.Value.Data[0])
		if err != nil {
			c.logger.Warn("bad account data", zap.String("account", sub.Target), zap.Error(err))
			return
		}
		if sub.onAccount != nil {
			sub.onAccount(sub.Target, data, n.Context.Slot)
		}

	case notificationSignature:
		var n SignatureNotification
		if err := json.Unmarshal(notification.Params.Result, &n); err != nil {
			return
		}
		c.mu.Lock()
		delete(c.subscriptions, sub.ID)
		c.mu.Unlock()
		if sub.onSignature != nil {
			sub.onSignature(sub.Target, n.Value.Err, n.Context.Slot)
		}
	}
}

// handleReconnection manages reconnection logic
func (c *WebSocketClient) handleReconnection() {
	ticker := time.NewTicker(c.reconnectDelay)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			if !c.IsConnected() {
				if err := c.reconnect(); err != nil {
					c.logger.Warn("reconnect failed", zap.Error(err))
				} else {
					c.logger.Info("reconnected")
				}
			}
		}
	}
}

// reconnect attempts to reconnect and resubscribe
func (c *WebSocketClient) reconnect() error {
	if err := c.connect(); err != nil {
		return err
	}

	c.mu.Lock()
	subs := make([]*Subscription, 0, len(c.subscriptions))
	for _, sub := range c.subscriptions {
		sub.SubID = 0
		subs = append(subs, sub)
	}
	c.mu.Unlock()

	for _, sub := range subs {
		req := RPCRequest{
			JSONRPC: "2.0",
			ID:      sub.ID,
			Method:  sub.Method,
			Params:  sub.Params,
		}
		if err := c.sendRequest(req); err != nil {
			c.logger.Warn("resubscribe failed", zap.String("target", sub.Target), zap.Error(err))
		}
	}

	return nil
}

// Close closes the WebSocket connection
func (c *WebSocketClient) Close() error {
	c.cancel()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.connected = false
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}

	return nil
}

// IsConnected returns whether the client is connected
func (c *WebSocketClient) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}
