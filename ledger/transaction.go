package ledger

import (
	"time"

	"github.com/google/uuid"
)

// TxStatus is the lifecycle state of an invocation
type TxStatus string

const (
	TxPending TxStatus = "PENDING"
	TxSuccess TxStatus = "SUCCESS"
	TxFailed  TxStatus = "FAILED"
)

// Transaction tracks a single chaincode invocation. It is not persisted
// beyond the block that embeds it.
type Transaction struct {
	TxID        string   `json:"txId"`
	ChannelName string   `json:"channelName"`
	ChaincodeID string   `json:"chaincodeId"`
	Function    string   `json:"functionName"`
	Args        []string `json:"args"`
	CallerID    string   `json:"userId"`
	Timestamp   int64    `json:"timestamp"`
	Status      TxStatus `json:"status"`
	BlockNumber int      `json:"blockNumber,omitempty"`
	Error       string   `json:"error,omitempty"`
}

func newTransaction(channelName, chaincodeID, function string, args []string, callerID string) *Transaction {
	return &Transaction{
		TxID:        uuid.NewString(),
		ChannelName: channelName,
		ChaincodeID: chaincodeID,
		Function:    function,
		Args:        args,
		CallerID:    callerID,
		Timestamp:   time.Now().UnixMilli(),
		Status:      TxPending,
	}
}

// snapshot returns a copy of the transaction, used to freeze the form that
// gets sealed into a block
func (t *Transaction) snapshot() *Transaction {
	clone := *t
	clone.Args = append([]string(nil), t.Args...)
	return &clone
}

// InvokeResult is the envelope returned to callers of InvokeChaincode
type InvokeResult struct {
	Success     bool   `json:"success"`
	TxID        string `json:"txId"`
	BlockNumber int    `json:"blockNumber"`
	Result      any    `json:"result"`
}
