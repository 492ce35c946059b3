package gateway_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ddr4869/fabricsim/broadcast"
	"github.com/ddr4869/fabricsim/common/netconfig"
	"github.com/ddr4869/fabricsim/gateway"
	"github.com/ddr4869/fabricsim/ledger"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	l := ledger.New(2, 16)
	l.Bootstrap(netconfig.DefaultProfile())

	server := gateway.NewServer(l, broadcast.NewWebSocketManager())
	ts := httptest.NewServer(server.Router())
	t.Cleanup(ts.Close)
	return ts
}

func doRequest(t *testing.T, ts *httptest.Server, method, path, username, password string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var payload *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal body: %v", err)
		}
		payload = bytes.NewBuffer(data)
	} else {
		payload = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, ts.URL+path, payload)
	if err != nil {
		t.Fatalf("Failed to build request: %v", err)
	}
	if username != "" {
		req.Header.Set("username", username)
		req.Header.Set("password", password)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return resp, decoded
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(t)

	resp, body := doRequest(t, ts, http.MethodGet, "/api/health", "", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	if body["success"] != true {
		t.Error("Health response should report success")
	}
	if body["blockchain"] == nil {
		t.Error("Health response should carry blockchain info")
	}
}

func TestAuthenticationRequired(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := doRequest(t, ts, http.MethodGet, "/api/documents", "", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Missing credentials should get 401, got %d", resp.StatusCode)
	}

	resp, _ = doRequest(t, ts, http.MethodGet, "/api/documents", "healthcare_user", "wrong", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Bad credentials should get 401, got %d", resp.StatusCode)
	}
}

func TestDocumentRegistrationFlow(t *testing.T) {
	t.Log("Testing document registration over the REST surface")

	ts := newTestServer(t)

	resp, body := doRequest(t, ts, http.MethodPost, "/api/documents/register",
		"healthcare_user", "health123",
		map[string]string{"docId": "doc1", "hash": "h1", "domain": "healthcare"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Registration should succeed, got %d: %v", resp.StatusCode, body)
	}
	if body["blockNumber"] != float64(1) {
		t.Errorf("First registration should commit block 1, got %v", body["blockNumber"])
	}
	if body["txId"] == "" {
		t.Error("Registration response should carry a txId")
	}

	// Duplicate registration maps Conflict to 409
	resp, _ = doRequest(t, ts, http.MethodPost, "/api/documents/register",
		"admin", "admin123",
		map[string]string{"docId": "doc1", "hash": "h2", "domain": "healthcare"})
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("Duplicate registration should get 409, got %d", resp.StatusCode)
	}

	// Missing fields map Validation to 400
	resp, _ = doRequest(t, ts, http.MethodPost, "/api/documents/register",
		"admin", "admin123",
		map[string]string{"docId": "doc2"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Missing fields should get 400, got %d", resp.StatusCode)
	}

	// Cross-organization read maps Authorization to 403
	resp, _ = doRequest(t, ts, http.MethodGet, "/api/documents/doc1",
		"agriculture_user", "agri123", nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("Cross-organization read should get 403, got %d", resp.StatusCode)
	}

	// Owner read succeeds
	resp, body = doRequest(t, ts, http.MethodGet, "/api/documents/doc1",
		"healthcare_user", "health123", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Owner read should succeed, got %d", resp.StatusCode)
	}
	if body["document"] == nil {
		t.Error("Owner read should return the document")
	}

	t.Log("✅ REST registration flow behaves and maps error kinds to status codes")
}

func TestCreateUserRequiresAdmin(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := doRequest(t, ts, http.MethodPost, "/api/users",
		"healthcare_user", "health123",
		map[string]any{"username": "u", "password": "p", "organization": "Org1"})
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("Non-admin user creation should get 403, got %d", resp.StatusCode)
	}

	resp, body := doRequest(t, ts, http.MethodPost, "/api/users",
		"admin", "admin123",
		map[string]any{"username": "u", "password": "p", "organization": "Org1", "roles": []string{"HEALTHCARE_ROLE"}})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Admin user creation should succeed, got %d", resp.StatusCode)
	}
	if body["userId"] == "" {
		t.Error("User creation should return the new user id")
	}
}

func TestBlockchainInfoEndpoints(t *testing.T) {
	ts := newTestServer(t)

	resp, body := doRequest(t, ts, http.MethodGet, "/api/blockchain/channels", "", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Channel list should succeed, got %d", resp.StatusCode)
	}
	channels, ok := body["channels"].([]any)
	if !ok || len(channels) != 1 || channels[0] != "mychannel" {
		t.Errorf("Expected channel list [mychannel], got %v", body["channels"])
	}

	resp, body = doRequest(t, ts, http.MethodGet, "/api/blockchain/channels/mychannel", "", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Channel info should succeed, got %d", resp.StatusCode)
	}
	channel := body["channel"].(map[string]any)
	if channel["chainLength"] != float64(1) {
		t.Errorf("Fresh channel chain length should be 1, got %v", channel["chainLength"])
	}
	if channel["isChainValid"] != true {
		t.Error("Fresh channel should be valid")
	}

	resp, _ = doRequest(t, ts, http.MethodGet, "/api/blockchain/channels/nochannel", "", "", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Unknown channel should get 404, got %d", resp.StatusCode)
	}

	resp, body = doRequest(t, ts, http.MethodGet, "/api/blockchain/channels/mychannel/blocks", "", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Channel blocks should succeed, got %d", resp.StatusCode)
	}
	blocks, ok := body["blocks"].([]any)
	if !ok || len(blocks) != 1 {
		t.Errorf("Expected 1 genesis block, got %v", body["blocks"])
	}

	resp, body = doRequest(t, ts, http.MethodGet, "/api/blockchain/organizations", "", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Organization list should succeed, got %d", resp.StatusCode)
	}
	orgs, ok := body["organizations"].([]any)
	if !ok || len(orgs) != 4 {
		t.Errorf("Expected 4 organizations, got %v", body["organizations"])
	}
}
