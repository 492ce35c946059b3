package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/ddr4869/fabricsim/common/logger"
	"github.com/ddr4869/fabricsim/ledger"
)

// Default invocation targets, matching the bootstrapped demo network
const (
	DefaultChannel   = "mychannel"
	DefaultChaincode = "document-registry-1.0"
)

type contextKey string

const identityKey contextKey = "identity"

type apiResponse map[string]any

func writeJSON(w http.ResponseWriter, status int, body apiResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Errorf("failed to encode response: %v", err)
	}
}

// writeError maps a ledger error kind to a transport status code
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch ledger.KindOf(err) {
	case ledger.ErrNotFound:
		status = http.StatusNotFound
	case ledger.ErrAuthorization:
		status = http.StatusForbidden
	case ledger.ErrValidation:
		status = http.StatusBadRequest
	case ledger.ErrConflict:
		status = http.StatusConflict
	}

	writeJSON(w, status, apiResponse{
		"success": false,
		"error":   err.Error(),
	})
}

// authenticate resolves the username/password headers to a ledger identity
// and stores it on the request context
func (s *Server) authenticate(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username := r.Header.Get("username")
		password := r.Header.Get("password")

		if username == "" || password == "" {
			writeJSON(w, http.StatusUnauthorized, apiResponse{
				"success": false,
				"error":   "Authentication required. Provide username and password in headers.",
			})
			return
		}

		identity := s.ledger.AuthenticateUser(username, password)
		if identity == nil {
			writeJSON(w, http.StatusUnauthorized, apiResponse{
				"success": false,
				"error":   "Invalid credentials",
			})
			return
		}

		ctx := context.WithValue(r.Context(), identityKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func callerIdentity(r *http.Request) *ledger.Identity {
	identity, _ := r.Context().Value(identityKey).(*ledger.Identity)
	return identity
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, apiResponse{
		"success":    true,
		"blockchain": s.ledger.Info(),
		"websocket": apiResponse{
			"connectedClients": s.ws.ConnectedClients(),
		},
		"timestamp": time.Now().UnixMilli(),
	})
}

type registerDocumentRequest struct {
	DocID     string `json:"docId"`
	Hash      string `json:"hash"`
	Domain    string `json:"domain"`
	Channel   string `json:"channel"`
	Chaincode string `json:"chaincodeId"`
}

func (s *Server) handleRegisterDocument(w http.ResponseWriter, r *http.Request) {
	var req registerDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, ledger.Validationf("invalid request body"))
		return
	}
	if req.DocID == "" || req.Hash == "" || req.Domain == "" {
		writeError(w, ledger.Validationf("Missing required fields: docId, hash, domain"))
		return
	}
	if req.Channel == "" {
		req.Channel = DefaultChannel
	}
	if req.Chaincode == "" {
		req.Chaincode = DefaultChaincode
	}

	identity := callerIdentity(r)
	logger.Infof("📝 Registering document %s for domain %s by user %s", req.DocID, req.Domain, identity.UserID)

	result, err := s.ledger.InvokeChaincode(r.Context(), req.Channel, req.Chaincode,
		ledger.FuncRegisterDocument, []string{req.DocID, req.Hash, req.Domain}, identity.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, apiResponse{
		"success":     true,
		"txId":        result.TxID,
		"blockNumber": result.BlockNumber,
		"result":      result.Result,
	})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	docID := mux.Vars(r)["docId"]
	identity := callerIdentity(r)

	result, err := s.ledger.InvokeChaincode(r.Context(), DefaultChannel, DefaultChaincode,
		ledger.FuncGetDocument, []string{docID}, identity.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, apiResponse{
		"success":  true,
		"document": result.Result,
	})
}

func (s *Server) handleGetAllDocuments(w http.ResponseWriter, r *http.Request) {
	identity := callerIdentity(r)

	result, err := s.ledger.InvokeChaincode(r.Context(), DefaultChannel, DefaultChaincode,
		ledger.FuncGetAllDocuments, []string{}, identity.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, apiResponse{
		"success":   true,
		"documents": result.Result,
	})
}

type createUserRequest struct {
	Username     string   `json:"username"`
	Password     string   `json:"password"`
	Organization string   `json:"organization"`
	Roles        []string `json:"roles"`
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	identity := callerIdentity(r)
	if !s.ledger.HasRole(identity.UserID, ledger.RoleAdmin) {
		writeError(w, ledger.Authorizationf("Only administrators can create users"))
		return
	}

	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, ledger.Validationf("invalid request body"))
		return
	}
	if req.Username == "" || req.Password == "" || req.Organization == "" {
		writeError(w, ledger.Validationf("Missing required fields: username, password, organization"))
		return
	}

	userID := s.ledger.CreateUser(req.Username, req.Password, req.Organization, req.Roles)
	writeJSON(w, http.StatusOK, apiResponse{
		"success": true,
		"userId":  userID,
		"message": "User created successfully",
	})
}

func (s *Server) handleBlockchainInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, apiResponse{
		"success": true,
		"info":    s.ledger.Info(),
	})
}

func (s *Server) handleChannels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, apiResponse{
		"success":  true,
		"channels": s.ledger.Info().Channels,
	})
}

func (s *Server) handleChannelInfo(w http.ResponseWriter, r *http.Request) {
	channelName := mux.Vars(r)["channelName"]

	channel, ok := s.ledger.Channel(channelName)
	if !ok {
		writeError(w, ledger.NotFoundf("Channel not found"))
		return
	}

	writeJSON(w, http.StatusOK, apiResponse{
		"success": true,
		"channel": apiResponse{
			"name":                channel.Name,
			"organizations":       channel.Organizations,
			"chainLength":         channel.Chain().Length(),
			"isChainValid":        channel.Chain().Validate(),
			"installedChaincodes": channel.ChaincodeIDs(),
		},
	})
}

func (s *Server) handleChannelBlocks(w http.ResponseWriter, r *http.Request) {
	channelName := mux.Vars(r)["channelName"]

	blocks, err := s.ledger.ChannelBlocks(channelName)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, apiResponse{
		"success":     true,
		"channelName": channelName,
		"blocks":      blocks,
	})
}

func (s *Server) handleOrganizations(w http.ResponseWriter, r *http.Request) {
	orgs := s.ledger.Organizations()

	summaries := make([]apiResponse, 0, len(orgs))
	for _, org := range orgs {
		summaries = append(summaries, apiResponse{
			"name":      org.Name,
			"domain":    org.Domain,
			"mspId":     org.MSPID,
			"userCount": len(org.Users),
		})
	}

	writeJSON(w, http.StatusOK, apiResponse{
		"success":       true,
		"organizations": summaries,
	})
}

func (s *Server) handleWebSocketStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, apiResponse{
		"success":          true,
		"connectedClients": s.ws.ConnectedClients(),
		"channelSubscribers": apiResponse{
			DefaultChannel: s.ws.ChannelSubscribers(DefaultChannel),
		},
	})
}
