package ledger

import (
	"sync"
	"time"

	"github.com/pkg/errors"
)

// GenesisPreviousHash is the sentinel previous-hash of every genesis block
const GenesisPreviousHash = "0"

const genesisChannelConfig = "Genesis Block for Fabric-inspired Channel"

// Chain is the append-only, link-validated block sequence of one channel.
// Index assignment and appends are serialized by the owning channel; the
// chain's own lock makes reads safe against a concurrent append.
type Chain struct {
	mutex  sync.RWMutex
	blocks []*Block
}

// NewChain creates a chain holding only the genesis block (index 0,
// previous hash "0", CONFIG sentinel payload)
func NewChain() *Chain {
	genesis := NewBlock(0, time.Now().UnixMilli(), &BlockData{
		Type:          BlockTypeConfig,
		ChannelConfig: genesisChannelConfig,
	}, GenesisPreviousHash)

	return &Chain{blocks: []*Block{genesis}}
}

// Length returns the number of blocks including genesis
func (c *Chain) Length() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.blocks)
}

// Tip returns the most recently appended block
func (c *Chain) Tip() *Block {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.blocks[len(c.blocks)-1]
}

// Blocks returns a snapshot of the chain in order
func (c *Chain) Blocks() []*Block {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	blocks := make([]*Block, len(c.blocks))
	copy(blocks, c.blocks)
	return blocks
}

// Block returns the block at the given index
func (c *Chain) Block(index int) (*Block, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	if index < 0 || index >= len(c.blocks) {
		return nil, errors.Errorf("block %d not found", index)
	}
	return c.blocks[index], nil
}

// Append adds a sealed block to the chain after checking its linkage: the
// index must follow the tip without a gap, the previous hash must match the
// tip's hash, and the stored hash must recompute
func (c *Chain) Append(block *Block) error {
	if block == nil {
		return errors.New("block cannot be nil")
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	tip := c.blocks[len(c.blocks)-1]
	if block.Index != tip.Index+1 {
		return errors.Errorf("block index %d does not follow tip %d", block.Index, tip.Index)
	}
	if block.PreviousHash != tip.Hash {
		return errors.Errorf("block %d previous hash does not match tip hash", block.Index)
	}
	if !block.HashValid() {
		return errors.Errorf("block %d hash does not match its contents", block.Index)
	}

	c.blocks = append(c.blocks, block)
	return nil
}

// Validate walks the chain from index 1 and reports whether every block's
// hash recomputes and links to its predecessor
func (c *Chain) Validate() bool {
	_, valid := c.FirstInvalidIndex()
	return valid
}

// FirstInvalidIndex walks the chain from index 1 and returns the index of the
// first block that fails hash recomputation or previous-hash linkage. The
// boolean is true when the whole chain is valid.
func (c *Chain) FirstInvalidIndex() (int, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	for i := 1; i < len(c.blocks); i++ {
		current := c.blocks[i]
		previous := c.blocks[i-1]

		if current.Hash != current.CalculateHash() {
			return i, false
		}
		if current.PreviousHash != previous.Hash {
			return i, false
		}
	}

	return -1, true
}
