package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/ddr4869/fabricsim/broadcast"
	"github.com/ddr4869/fabricsim/common/logger"
	"github.com/ddr4869/fabricsim/ledger"
)

// Server is the HTTP boundary of the simulator: the REST API plus the
// WebSocket subscription endpoint. It resolves credentials to ledger
// identities and maps ledger error kinds to status codes; all semantics live
// in the ledger package.
type Server struct {
	ledger     *ledger.Ledger
	ws         *broadcast.WebSocketManager
	router     *mux.Router
	httpServer *http.Server
}

// NewServer wires the routes for a ledger and its broadcaster
func NewServer(l *ledger.Ledger, ws *broadcast.WebSocketManager) *Server {
	s := &Server{
		ledger: l,
		ws:     ws,
		router: mux.NewRouter(),
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api.Handle("/documents/register", s.authenticate(s.handleRegisterDocument)).Methods(http.MethodPost)
	api.Handle("/documents/{docId}", s.authenticate(s.handleGetDocument)).Methods(http.MethodGet)
	api.Handle("/documents", s.authenticate(s.handleGetAllDocuments)).Methods(http.MethodGet)

	api.Handle("/users", s.authenticate(s.handleCreateUser)).Methods(http.MethodPost)

	api.HandleFunc("/blockchain/info", s.handleBlockchainInfo).Methods(http.MethodGet)
	api.HandleFunc("/blockchain/channels", s.handleChannels).Methods(http.MethodGet)
	api.HandleFunc("/blockchain/channels/{channelName}", s.handleChannelInfo).Methods(http.MethodGet)
	api.HandleFunc("/blockchain/channels/{channelName}/blocks", s.handleChannelBlocks).Methods(http.MethodGet)
	api.HandleFunc("/blockchain/organizations", s.handleOrganizations).Methods(http.MethodGet)

	api.HandleFunc("/websocket/status", s.handleWebSocketStatus).Methods(http.MethodGet)

	s.router.HandleFunc("/ws", s.ws.HandleConnection)
}

// Router exposes the handler tree, mainly for tests
func (s *Server) Router() http.Handler {
	return s.router
}

// Start serves the API until the listener fails or Shutdown is called
func (s *Server) Start(address string) error {
	s.httpServer = &http.Server{
		Addr:              address,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Infof("🚀 Fabric-inspired blockchain server listening on %s", address)
	logger.Infof("🔌 WebSocket endpoint available at ws://%s/ws", address)

	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops the HTTP server gracefully
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
