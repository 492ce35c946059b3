package broadcast_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ddr4869/fabricsim/broadcast"
	"github.com/ddr4869/fabricsim/ledger"
)

func dialManager(t *testing.T, m *broadcast.WebSocketManager) (*websocket.Conn, func()) {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(m.HandleConnection))
	url := "ws" + strings.TrimPrefix(server.URL, "http")

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		server.Close()
		t.Fatalf("Failed to dial websocket: %v", err)
	}

	return conn, func() {
		conn.Close()
		server.Close()
	}
}

func readMessage(t *testing.T, conn *websocket.Conn) broadcast.Message {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read websocket message: %v", err)
	}

	var msg broadcast.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("Failed to decode websocket message: %v", err)
	}
	return msg
}

func sendMessage(t *testing.T, conn *websocket.Conn, msg broadcast.Message) {
	t.Helper()

	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("Failed to write websocket message: %v", err)
	}
}

func TestConnectionGreeting(t *testing.T) {
	m := broadcast.NewWebSocketManager()
	conn, cleanup := dialManager(t, m)
	defer cleanup()

	greeting := readMessage(t, conn)
	if greeting.Type != broadcast.MsgConnectionEstablished {
		t.Fatalf("Expected CONNECTION_ESTABLISHED, got %s", greeting.Type)
	}
	if greeting.Timestamp == 0 {
		t.Error("Greeting should carry a timestamp")
	}

	t.Log("✅ Connection greeted")
}

func TestSubscriptionConfirmations(t *testing.T) {
	m := broadcast.NewWebSocketManager()
	conn, cleanup := dialManager(t, m)
	defer cleanup()

	readMessage(t, conn) // greeting

	sendMessage(t, conn, broadcast.Message{Type: broadcast.MsgSubscribeChannel, ChannelName: "mychannel"})
	confirmation := readMessage(t, conn)
	if confirmation.Type != broadcast.MsgSubscriptionConfirmed {
		t.Errorf("Expected SUBSCRIPTION_CONFIRMED, got %s", confirmation.Type)
	}
	if confirmation.ChannelName != "mychannel" {
		t.Errorf("Confirmation should echo the channel name, got %s", confirmation.ChannelName)
	}

	sendMessage(t, conn, broadcast.Message{Type: broadcast.MsgSubscribeBlocks})
	if msg := readMessage(t, conn); msg.Type != broadcast.MsgBlockSubscriptionConfirmed {
		t.Errorf("Expected BLOCK_SUBSCRIPTION_CONFIRMED, got %s", msg.Type)
	}

	sendMessage(t, conn, broadcast.Message{Type: broadcast.MsgSubscribeTransactions})
	if msg := readMessage(t, conn); msg.Type != broadcast.MsgTransactionSubscriptionConfirmed {
		t.Errorf("Expected TRANSACTION_SUBSCRIPTION_CONFIRMED, got %s", msg.Type)
	}

	if count := m.ChannelSubscribers("mychannel"); count != 1 {
		t.Errorf("Expected 1 subscriber on mychannel, got %d", count)
	}
}

func TestUnknownAndMalformedMessages(t *testing.T) {
	m := broadcast.NewWebSocketManager()
	conn, cleanup := dialManager(t, m)
	defer cleanup()

	readMessage(t, conn) // greeting

	sendMessage(t, conn, broadcast.Message{Type: "NO_SUCH_TYPE"})
	if msg := readMessage(t, conn); msg.Type != broadcast.MsgError {
		t.Errorf("Unknown message type should get ERROR, got %s", msg.Type)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("Failed to write raw message: %v", err)
	}
	if msg := readMessage(t, conn); msg.Type != broadcast.MsgError {
		t.Errorf("Malformed message should get ERROR, got %s", msg.Type)
	}
}

func TestCommitEventFanOut(t *testing.T) {
	t.Log("Testing channel-filtered fan-out of commit events")

	m := broadcast.NewWebSocketManager()

	subscribed, cleanupA := dialManager(t, m)
	defer cleanupA()
	other, cleanupB := dialManager(t, m)
	defer cleanupB()

	readMessage(t, subscribed) // greeting
	readMessage(t, other)      // greeting

	sendMessage(t, subscribed, broadcast.Message{Type: broadcast.MsgSubscribeChannel, ChannelName: "mychannel"})
	readMessage(t, subscribed) // confirmation
	sendMessage(t, other, broadcast.Message{Type: broadcast.MsgSubscribeChannel, ChannelName: "otherchannel"})
	readMessage(t, other) // confirmation

	events := make(chan ledger.CommitEvent, 1)
	go m.Run(events)
	defer close(events)

	events <- ledger.CommitEvent{
		ChannelName: "mychannel",
		Block: ledger.BlockSummary{
			Index:     1,
			Hash:      "00abc",
			Timestamp: time.Now().UnixMilli(),
			Transaction: &ledger.Transaction{
				TxID:   "tx-1",
				Status: ledger.TxSuccess,
			},
		},
	}

	blockMsg := readMessage(t, subscribed)
	if blockMsg.Type != broadcast.MsgBlockAdded {
		t.Errorf("Expected BLOCK_ADDED, got %s", blockMsg.Type)
	}
	if blockMsg.ChannelName != "mychannel" {
		t.Errorf("BLOCK_ADDED should carry the channel name, got %s", blockMsg.ChannelName)
	}

	txMsg := readMessage(t, subscribed)
	if txMsg.Type != broadcast.MsgTransactionUpdate {
		t.Errorf("Expected TRANSACTION_UPDATE, got %s", txMsg.Type)
	}

	// The connection filtered on another channel receives nothing
	other.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	if _, _, err := other.ReadMessage(); err == nil {
		t.Error("Subscriber of another channel should receive nothing for this event")
	}

	t.Log("✅ Commit event delivered only to matching channel subscribers")
}

func TestSystemBroadcastReachesAllClients(t *testing.T) {
	m := broadcast.NewWebSocketManager()

	first, cleanupA := dialManager(t, m)
	defer cleanupA()
	second, cleanupB := dialManager(t, m)
	defer cleanupB()

	readMessage(t, first)
	readMessage(t, second)

	if count := m.ConnectedClients(); count != 2 {
		t.Fatalf("Expected 2 connected clients, got %d", count)
	}

	m.BroadcastSystemMessage("maintenance window")

	for _, conn := range []*websocket.Conn{first, second} {
		msg := readMessage(t, conn)
		if msg.Type != broadcast.MsgSystemMessage {
			t.Errorf("Expected SYSTEM_MESSAGE, got %s", msg.Type)
		}
		if msg.Message != "maintenance window" {
			t.Errorf("Unexpected system message text: %s", msg.Message)
		}
	}
}
