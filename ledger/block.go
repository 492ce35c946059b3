package ledger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Block payload types
const (
	BlockTypeConfig      = "CONFIG"
	BlockTypeTransaction = "TRANSACTION"
)

// BlockData is the payload of a block: either the CONFIG sentinel of a
// genesis block or a committed TRANSACTION with its result
type BlockData struct {
	Type          string       `json:"type"`
	ChannelConfig string       `json:"channelConfig,omitempty"`
	Transaction   *Transaction `json:"transaction,omitempty"`
	Result        any          `json:"result,omitempty"`
}

// Block is a single sealed record in a channel's chain. A block is mutable
// only between NewBlock and Mine; after it is appended it must not change.
type Block struct {
	Index        int        `json:"index"`
	Timestamp    int64      `json:"timestamp"`
	Data         *BlockData `json:"data"`
	PreviousHash string     `json:"previousHash"`
	Hash         string     `json:"hash"`
	Nonce        int        `json:"nonce"`
}

// NewBlock creates an unsealed block with its initial hash computed at nonce 0
func NewBlock(index int, timestamp int64, data *BlockData, previousHash string) *Block {
	block := &Block{
		Index:        index,
		Timestamp:    timestamp,
		Data:         data,
		PreviousHash: previousHash,
	}
	block.Hash = block.CalculateHash()
	return block
}

// CalculateHash computes the SHA-256 digest of the block contents as a hex
// string. The data payload is serialized to JSON so the digest covers a
// canonical form of the embedded transaction and result.
func (b *Block) CalculateHash() string {
	payload, err := json.Marshal(b.Data)
	if err != nil {
		// Fall back to the fmt rendering; payloads are always
		// JSON-marshalable in practice
		payload = []byte(fmt.Sprintf("%v", b.Data))
	}

	record := fmt.Sprintf("%d%d%s%s%d", b.Index, b.Timestamp, payload, b.PreviousHash, b.Nonce)
	digest := sha256.Sum256([]byte(record))
	return hex.EncodeToString(digest[:])
}

// Mine searches for a nonce whose hash satisfies the proof-of-work predicate:
// a leading run of zero characters of length difficulty. The search has no
// upper bound; ctx cancels it.
func (b *Block) Mine(ctx context.Context, difficulty int) error {
	if difficulty < 0 {
		return errors.Errorf("invalid mining difficulty %d", difficulty)
	}

	prefix := strings.Repeat("0", difficulty)
	for !strings.HasPrefix(b.Hash, prefix) {
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "mining cancelled")
		default:
		}
		b.Nonce++
		b.Hash = b.CalculateHash()
	}

	return nil
}

// HashValid reports whether the stored hash matches a recomputation of the
// block contents
func (b *Block) HashValid() bool {
	return b.Hash == b.CalculateHash()
}

// MeetsDifficulty reports whether the stored hash satisfies the proof-of-work
// predicate for the given difficulty
func (b *Block) MeetsDifficulty(difficulty int) bool {
	return strings.HasPrefix(b.Hash, strings.Repeat("0", difficulty))
}
