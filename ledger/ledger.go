package ledger

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ddr4869/fabricsim/common/logger"
)

const (
	// DefaultDifficulty is the demo proof-of-work difficulty: two leading
	// zero characters, roughly 256 expected attempts per block
	DefaultDifficulty = 2

	// DefaultEventQueueSize bounds the commit event queue between the
	// ledger and the broadcaster
	DefaultEventQueueSize = 64
)

// ChannelConfig carries the informational batch limits of a channel. Nothing
// in the core acts on these values.
type ChannelConfig struct {
	BatchTimeout       time.Duration `json:"batchTimeout"`
	MaxMessageCount    int           `json:"maxMessageCount"`
	AbsoluteMaxBytes   int           `json:"absoluteMaxBytes"`
	PreferredMaxBytes  int           `json:"preferredMaxBytes"`
	MaxUniqueCertCount int           `json:"maxUniqueCertCount"`
}

func defaultChannelConfig() *ChannelConfig {
	return &ChannelConfig{
		BatchTimeout:       2 * time.Second,
		MaxMessageCount:    500,
		AbsoluteMaxBytes:   99 * 1024 * 1024,
		PreferredMaxBytes:  512 * 1024,
		MaxUniqueCertCount: 100,
	}
}

// Channel is an isolated ledger shared by a fixed set of organizations. The
// channel mutex linearizes invocations: handler execution, index assignment,
// mining and append for one channel never interleave.
type Channel struct {
	Name          string
	Organizations []string
	Config        *ChannelConfig

	mutex      sync.Mutex
	chain      *Chain
	chaincodes map[string]*Chaincode
}

// Chain returns the channel's block chain
func (ch *Channel) Chain() *Chain {
	return ch.chain
}

// ChaincodeIDs returns the ids of the chaincodes installed on the channel
func (ch *Channel) ChaincodeIDs() []string {
	ids := make([]string, 0, len(ch.chaincodes))
	for id := range ch.chaincodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Ledger is the aggregate owning every registry of the simulated network:
// organizations, channels, chaincodes, users and the role index. It is the
// single mutation entry point via InvokeChaincode.
type Ledger struct {
	mutex         sync.RWMutex
	organizations map[string]*Organization
	channels      map[string]*Channel
	chaincodes    map[string]*Chaincode
	users         map[string]*User
	roles         map[string]map[string]struct{}

	difficulty int
	events     chan CommitEvent
}

// New creates an empty ledger mining at the given difficulty with a bounded
// commit event queue
func New(difficulty, eventQueueSize int) *Ledger {
	if difficulty <= 0 {
		difficulty = DefaultDifficulty
	}
	if eventQueueSize <= 0 {
		eventQueueSize = DefaultEventQueueSize
	}

	return &Ledger{
		organizations: make(map[string]*Organization),
		channels:      make(map[string]*Channel),
		chaincodes:    make(map[string]*Chaincode),
		users:         make(map[string]*User),
		roles:         make(map[string]map[string]struct{}),
		difficulty:    difficulty,
		events:        make(chan CommitEvent, eventQueueSize),
	}
}

// Difficulty returns the proof-of-work difficulty blocks are mined at
func (l *Ledger) Difficulty() int {
	return l.difficulty
}

// CreateOrganization registers an organization and returns its id. Names are
// not checked for uniqueness: a duplicate name produces an independent
// organization with its own id.
func (l *Ledger) CreateOrganization(name, domain string) string {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	orgID := randomID()
	l.organizations[orgID] = &Organization{
		ID:     orgID,
		Name:   name,
		Domain: domain,
		MSPID:  fmt.Sprintf("%sMSP", name),
		Users:  []string{},
	}

	logger.Debugf("organization %s created (domain=%s, id=%s)", name, domain, orgID)
	return orgID
}

// CreateChannel builds a fresh channel with a genesis-only chain and
// registers it under its name. Registering a name twice replaces the prior
// channel outright, discarding its chain.
func (l *Ledger) CreateChannel(name string, orgNames []string) *Channel {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if _, exists := l.channels[name]; exists {
		logger.Warnf("channel %s already exists, replacing it and discarding its chain", name)
	}

	channel := &Channel{
		Name:          name,
		Organizations: append([]string(nil), orgNames...),
		Config:        defaultChannelConfig(),
		chain:         NewChain(),
		chaincodes:    make(map[string]*Chaincode),
	}
	l.channels[name] = channel

	logger.Infof("✅ Channel '%s' created with organizations: %s", name, strings.Join(orgNames, ", "))
	return channel
}

// InstallChaincode constructs a chaincode, binds the well-known function
// handlers and attaches the same instance by reference to every currently
// existing channel. Installing the same name and version again creates a new
// instance; channels installed earlier keep the old one.
func (l *Ledger) InstallChaincode(name, version string, orgNames []string) string {
	chaincode := newChaincode(name, version, orgNames)
	l.bindDocumentRegistry(chaincode)

	l.mutex.Lock()
	defer l.mutex.Unlock()

	l.chaincodes[chaincode.ID] = chaincode
	for _, channel := range l.channels {
		channel.chaincodes[chaincode.ID] = chaincode
	}

	logger.Infof("✅ Chaincode '%s' installed on organizations: %s", chaincode.ID, strings.Join(orgNames, ", "))
	return chaincode.ID
}

// CreateUser registers a user with a digested password, appends it to the
// named organization's member list and updates the role index. If no
// organization with that name exists the user is created without a
// membership entry.
func (l *Ledger) CreateUser(username, password, organization string, roles []string) string {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	userID := randomID()
	l.users[userID] = &User{
		ID:           userID,
		Username:     username,
		PasswordHash: hashPassword(password),
		Organization: organization,
		Roles:        append([]string(nil), roles...),
		MSPID:        fmt.Sprintf("%sMSP", organization),
	}

	attached := false
	for _, org := range l.organizations {
		if org.Name == organization {
			org.Users = append(org.Users, userID)
			attached = true
			break
		}
	}
	if !attached {
		logger.Warnf("user %s created with unknown organization %s", username, organization)
	}

	for _, role := range roles {
		if l.roles[role] == nil {
			l.roles[role] = make(map[string]struct{})
		}
		l.roles[role][userID] = struct{}{}
	}

	logger.Debugf("user %s created (org=%s, roles=%v)", username, organization, roles)
	return userID
}

// AuthenticateUser resolves a username and password to an identity assertion.
// It returns nil on any mismatch and never fails with an error.
func (l *Ledger) AuthenticateUser(username, password string) *Identity {
	digest := hashPassword(password)

	l.mutex.RLock()
	defer l.mutex.RUnlock()

	for userID, user := range l.users {
		if user.Username == username && user.PasswordHash == digest {
			return &Identity{
				UserID:       userID,
				Roles:        append([]string(nil), user.Roles...),
				Organization: user.Organization,
			}
		}
	}
	return nil
}

// HasRole reports whether the user holds the given role
func (l *Ledger) HasRole(userID, role string) bool {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	user, ok := l.users[userID]
	return ok && user.hasRole(role)
}

// RoleMembers returns the ids of all users granted a role, from the
// secondary role index
func (l *Ledger) RoleMembers(role string) []string {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	members := make([]string, 0, len(l.roles[role]))
	for userID := range l.roles[role] {
		members = append(members, userID)
	}
	sort.Strings(members)
	return members
}

// User returns a user by id
func (l *Ledger) User(userID string) (*User, bool) {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	user, ok := l.users[userID]
	return user, ok
}

// Channel returns a channel by name
func (l *Ledger) Channel(name string) (*Channel, bool) {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	channel, ok := l.channels[name]
	return channel, ok
}

// InvokeChaincode executes one chaincode function and, on success, seals the
// result into a new block on the channel's chain. This is the only mutation
// entry point of the ledger. A failed invocation leaves chain and chaincode
// state untouched and returns the handler's error.
func (l *Ledger) InvokeChaincode(ctx context.Context, channelName, chaincodeID, functionName string, args []string, callerID string) (*InvokeResult, error) {
	l.mutex.RLock()
	channel, ok := l.channels[channelName]
	if !ok {
		l.mutex.RUnlock()
		return nil, NotFoundf("channel '%s' not found", channelName)
	}
	chaincode, ok := channel.chaincodes[chaincodeID]
	l.mutex.RUnlock()
	if !ok {
		return nil, NotFoundf("chaincode '%s' not found on channel '%s'", chaincodeID, channelName)
	}

	handler, ok := chaincode.function(functionName)
	if !ok {
		return nil, NotFoundf("function '%s' not found in chaincode '%s'", functionName, chaincodeID)
	}

	tx := newTransaction(channelName, chaincodeID, functionName, args, callerID)

	// Linearize handler execution, index assignment, mining and append per
	// channel. Invocations on other channels proceed concurrently.
	channel.mutex.Lock()
	defer channel.mutex.Unlock()

	result, err := handler(args, callerID)
	if err != nil {
		tx.Status = TxFailed
		tx.Error = err.Error()
		logger.Debugf("invocation %s failed: %v", tx.TxID, err)
		return nil, err
	}

	tip := channel.chain.Tip()

	// Seal the committed form of the transaction. The embedded copy carries
	// its terminal status and block number so revalidating the chain later
	// recomputes the same hash.
	committed := tx.snapshot()
	committed.Status = TxSuccess
	committed.BlockNumber = tip.Index + 1

	block := NewBlock(tip.Index+1, time.Now().UnixMilli(), &BlockData{
		Type:        BlockTypeTransaction,
		Transaction: committed,
		Result:      result,
	}, tip.Hash)

	if err := block.Mine(ctx, l.difficulty); err != nil {
		tx.Status = TxFailed
		tx.Error = err.Error()
		return nil, err
	}

	if err := channel.chain.Append(block); err != nil {
		tx.Status = TxFailed
		tx.Error = err.Error()
		return nil, err
	}

	tx.Status = TxSuccess
	tx.BlockNumber = block.Index

	l.emit(CommitEvent{
		ChannelName: channelName,
		Block: BlockSummary{
			Index:       block.Index,
			Hash:        block.Hash,
			Timestamp:   block.Timestamp,
			Transaction: committed,
		},
	})

	logger.Infof("✅ Transaction %s committed to channel %s at block %d", tx.TxID, channelName, block.Index)

	return &InvokeResult{
		Success:     true,
		TxID:        tx.TxID,
		BlockNumber: block.Index,
		Result:      result,
	}, nil
}
