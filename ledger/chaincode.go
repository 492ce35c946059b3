package ledger

import (
	"fmt"
	"sync"
	"time"
)

// Well-known chaincode function names. Installation binds exactly this
// closed set into a chaincode's function table.
const (
	FuncRegisterDocument = "registerDocument"
	FuncGetDocument      = "getDocument"
	FuncGetAllDocuments  = "getAllDocuments"
	FuncCreateUser       = "createUser"
	FuncAuthenticateUser = "authenticateUser"
)

// ChaincodeFunc is a chaincode function handler. It receives the positional
// invocation args plus the resolved caller id and returns the invocation
// result or an error. Handlers must perform all validation before writing
// state so a failed invocation leaves no partial write behind.
type ChaincodeFunc func(args []string, callerID string) (any, error)

// Document is a record in the document-registry chaincode state
type Document struct {
	DocID        string `json:"docId,omitempty"`
	Hash         string `json:"hash"`
	Owner        string `json:"owner"`
	Domain       string `json:"domain"`
	Organization string `json:"organization"`
	Timestamp    int64  `json:"timestamp"`
}

// Chaincode is a named, versioned unit of invocable logic with its own
// key-value state. A single instance may be attached to several channels by
// reference; the state lock keeps cross-channel access safe.
type Chaincode struct {
	Name          string
	Version       string
	ID            string
	Organizations []string

	mutex     sync.RWMutex
	functions map[string]ChaincodeFunc
	state     map[string]*Document
}

// ChaincodeID derives the registry id of a chaincode from its name and version
func ChaincodeID(name, version string) string {
	return fmt.Sprintf("%s-%s", name, version)
}

func newChaincode(name, version string, orgNames []string) *Chaincode {
	return &Chaincode{
		Name:          name,
		Version:       version,
		ID:            ChaincodeID(name, version),
		Organizations: append([]string(nil), orgNames...),
		functions:     make(map[string]ChaincodeFunc),
		state:         make(map[string]*Document),
	}
}

func (cc *Chaincode) registerFunction(name string, handler ChaincodeFunc) {
	cc.mutex.Lock()
	defer cc.mutex.Unlock()
	cc.functions[name] = handler
}

func (cc *Chaincode) function(name string) (ChaincodeFunc, bool) {
	cc.mutex.RLock()
	defer cc.mutex.RUnlock()
	handler, ok := cc.functions[name]
	return handler, ok
}

// FunctionNames returns the names in the function table
func (cc *Chaincode) FunctionNames() []string {
	cc.mutex.RLock()
	defer cc.mutex.RUnlock()

	names := make([]string, 0, len(cc.functions))
	for name := range cc.functions {
		names = append(names, name)
	}
	return names
}

func (cc *Chaincode) getState(key string) (*Document, bool) {
	cc.mutex.RLock()
	defer cc.mutex.RUnlock()
	doc, ok := cc.state[key]
	return doc, ok
}

func (cc *Chaincode) putState(key string, doc *Document) {
	cc.mutex.Lock()
	defer cc.mutex.Unlock()
	cc.state[key] = doc
}

func (cc *Chaincode) stateSnapshot() map[string]*Document {
	cc.mutex.RLock()
	defer cc.mutex.RUnlock()

	snapshot := make(map[string]*Document, len(cc.state))
	for key, doc := range cc.state {
		snapshot[key] = doc
	}
	return snapshot
}

// StateSize returns the number of keys in the chaincode state
func (cc *Chaincode) StateSize() int {
	cc.mutex.RLock()
	defer cc.mutex.RUnlock()
	return len(cc.state)
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}
