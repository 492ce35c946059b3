package broadcast

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ddr4869/fabricsim/common/logger"
	"github.com/ddr4869/fabricsim/ledger"
)

// WebSocket protocol message types
const (
	MsgConnectionEstablished            = "CONNECTION_ESTABLISHED"
	MsgSubscribeChannel                 = "SUBSCRIBE_CHANNEL"
	MsgSubscriptionConfirmed            = "SUBSCRIPTION_CONFIRMED"
	MsgSubscribeBlocks                  = "SUBSCRIBE_BLOCKS"
	MsgBlockSubscriptionConfirmed       = "BLOCK_SUBSCRIPTION_CONFIRMED"
	MsgSubscribeTransactions            = "SUBSCRIBE_TRANSACTIONS"
	MsgTransactionSubscriptionConfirmed = "TRANSACTION_SUBSCRIPTION_CONFIRMED"
	MsgError                            = "ERROR"
	MsgBlockAdded                       = "BLOCK_ADDED"
	MsgTransactionUpdate                = "TRANSACTION_UPDATE"
	MsgSystemMessage                    = "SYSTEM_MESSAGE"
)

const writeTimeout = 5 * time.Second

// Message is the JSON envelope exchanged with subscribers. Every message
// carries a type and a timestamp; the remaining fields depend on the type.
type Message struct {
	Type        string `json:"type"`
	Message     string `json:"message,omitempty"`
	ChannelName string `json:"channelName,omitempty"`
	Block       any    `json:"block,omitempty"`
	Transaction any    `json:"transaction,omitempty"`
	Timestamp   int64  `json:"timestamp"`
}

func newMessage(msgType string) Message {
	return Message{Type: msgType, Timestamp: time.Now().UnixMilli()}
}

// client is one subscriber connection with its three subscription facets.
// The block and transaction flags are acknowledged but do not gate delivery;
// only the channel filter routes updates.
type client struct {
	conn *websocket.Conn

	mutex               sync.Mutex
	channelSubscription string
	blockSubscription   bool
	txSubscription      bool
}

// send marshals and writes one message. The client mutex serializes writes;
// a write deadline keeps a dead connection from blocking the sender.
func (c *client) send(msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *client) channel() string {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.channelSubscription
}

// WebSocketManager owns the live subscriber set and fans ledger commit
// events out to connections subscribed to the event's channel
type WebSocketManager struct {
	upgrader websocket.Upgrader

	mutex   sync.RWMutex
	clients map[*client]struct{}
}

// NewWebSocketManager creates a manager with an empty subscriber set
func NewWebSocketManager() *WebSocketManager {
	return &WebSocketManager{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The gateway serves browsers on arbitrary origins in demo
			// deployments
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
}

// HandleConnection upgrades an HTTP request to a WebSocket subscription and
// starts the read loop for client messages
func (m *WebSocketManager) HandleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Errorf("websocket upgrade failed: %v", err)
		return
	}

	c := &client{conn: conn}

	m.mutex.Lock()
	m.clients[c] = struct{}{}
	m.mutex.Unlock()

	logger.Info("🔌 New WebSocket connection established")

	greeting := newMessage(MsgConnectionEstablished)
	greeting.Message = "Connected to Fabric-inspired Blockchain"
	if err := c.send(greeting); err != nil {
		logger.Warnf("failed to greet websocket client: %v", err)
		m.remove(c)
		return
	}

	go m.readLoop(c)
}

// readLoop consumes client messages until the connection drops. Malformed
// messages and unknown types are answered with an ERROR message.
func (m *WebSocketManager) readLoop(c *client) {
	defer m.remove(c)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			logger.Debugf("websocket connection closed: %v", err)
			return
		}

		var inbound Message
		if err := json.Unmarshal(data, &inbound); err != nil {
			m.sendError(c, "Invalid message format")
			continue
		}

		m.handleMessage(c, inbound)
	}
}

func (m *WebSocketManager) handleMessage(c *client, inbound Message) {
	switch inbound.Type {
	case MsgSubscribeChannel:
		c.mutex.Lock()
		c.channelSubscription = inbound.ChannelName
		c.mutex.Unlock()

		confirmation := newMessage(MsgSubscriptionConfirmed)
		confirmation.ChannelName = inbound.ChannelName
		m.trySend(c, confirmation)

	case MsgSubscribeBlocks:
		c.mutex.Lock()
		c.blockSubscription = true
		c.mutex.Unlock()
		m.trySend(c, newMessage(MsgBlockSubscriptionConfirmed))

	case MsgSubscribeTransactions:
		c.mutex.Lock()
		c.txSubscription = true
		c.mutex.Unlock()
		m.trySend(c, newMessage(MsgTransactionSubscriptionConfirmed))

	default:
		m.sendError(c, "Unknown message type")
	}
}

func (m *WebSocketManager) sendError(c *client, text string) {
	msg := newMessage(MsgError)
	msg.Message = text
	m.trySend(c, msg)
}

// trySend delivers one message, dropping the client on write failure
func (m *WebSocketManager) trySend(c *client, msg Message) {
	if err := c.send(msg); err != nil {
		logger.Debugf("dropping websocket client after write error: %v", err)
		m.remove(c)
	}
}

func (m *WebSocketManager) remove(c *client) {
	m.mutex.Lock()
	_, present := m.clients[c]
	delete(m.clients, c)
	m.mutex.Unlock()

	if present {
		c.conn.Close()
		logger.Info("🔌 WebSocket connection closed")
	}
}

// Run consumes ledger commit events until the channel closes, fanning each
// one out as a BLOCK_ADDED and a TRANSACTION_UPDATE message. Intended to run
// on its own goroutine so slow subscribers never hold up commits.
func (m *WebSocketManager) Run(events <-chan ledger.CommitEvent) {
	for event := range events {
		m.BroadcastBlockUpdate(event.ChannelName, event.Block)
		m.BroadcastTransactionUpdate(event.ChannelName, event.Block.Transaction)
	}
}

// BroadcastBlockUpdate sends a BLOCK_ADDED message to subscribers of the
// channel
func (m *WebSocketManager) BroadcastBlockUpdate(channelName string, block any) {
	msg := newMessage(MsgBlockAdded)
	msg.ChannelName = channelName
	msg.Block = block
	m.broadcastToChannel(channelName, msg)
}

// BroadcastTransactionUpdate sends a TRANSACTION_UPDATE message to
// subscribers of the channel
func (m *WebSocketManager) BroadcastTransactionUpdate(channelName string, transaction any) {
	msg := newMessage(MsgTransactionUpdate)
	msg.ChannelName = channelName
	msg.Transaction = transaction
	m.broadcastToChannel(channelName, msg)
}

// BroadcastSystemMessage sends a SYSTEM_MESSAGE to every connected client
func (m *WebSocketManager) BroadcastSystemMessage(text string) {
	msg := newMessage(MsgSystemMessage)
	msg.Message = text

	for _, c := range m.snapshot() {
		m.trySend(c, msg)
	}
}

// broadcastToChannel delivers a message to every client whose channel filter
// equals channelName. Best-effort: failed writes drop the client.
func (m *WebSocketManager) broadcastToChannel(channelName string, msg Message) {
	for _, c := range m.snapshot() {
		if c.channel() == channelName {
			m.trySend(c, msg)
		}
	}
}

func (m *WebSocketManager) snapshot() []*client {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	clients := make([]*client, 0, len(m.clients))
	for c := range m.clients {
		clients = append(clients, c)
	}
	return clients
}

// ConnectedClients returns the size of the subscriber set
func (m *WebSocketManager) ConnectedClients() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.clients)
}

// ChannelSubscribers returns how many clients filter on the given channel
func (m *WebSocketManager) ChannelSubscribers(channelName string) int {
	count := 0
	for _, c := range m.snapshot() {
		if c.channel() == channelName {
			count++
		}
	}
	return count
}
