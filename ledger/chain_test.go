package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/ddr4869/fabricsim/ledger"
)

func TestChainGenesis(t *testing.T) {
	chain := ledger.NewChain()

	if chain.Length() != 1 {
		t.Fatalf("New chain should hold only genesis, got length %d", chain.Length())
	}

	genesis := chain.Tip()
	if genesis.Index != 0 {
		t.Errorf("Genesis index should be 0, got %d", genesis.Index)
	}
	if genesis.PreviousHash != ledger.GenesisPreviousHash {
		t.Errorf("Genesis previous hash should be %q, got %q", ledger.GenesisPreviousHash, genesis.PreviousHash)
	}
	if genesis.Data.Type != ledger.BlockTypeConfig {
		t.Errorf("Genesis payload should be CONFIG, got %s", genesis.Data.Type)
	}
}

func mineNextBlock(t *testing.T, chain *ledger.Chain) *ledger.Block {
	t.Helper()

	tip := chain.Tip()
	block := ledger.NewBlock(tip.Index+1, time.Now().UnixMilli(), &ledger.BlockData{
		Type: ledger.BlockTypeTransaction,
	}, tip.Hash)
	if err := block.Mine(context.Background(), 2); err != nil {
		t.Fatalf("Failed to mine block: %v", err)
	}
	return block
}

func TestChainAppendAndValidate(t *testing.T) {
	t.Log("Testing chain append with link validation")

	chain := ledger.NewChain()
	for i := 0; i < 3; i++ {
		block := mineNextBlock(t, chain)
		if err := chain.Append(block); err != nil {
			t.Fatalf("Failed to append block %d: %v", block.Index, err)
		}
	}

	if chain.Length() != 4 {
		t.Fatalf("Chain length should be 4, got %d", chain.Length())
	}
	if !chain.Validate() {
		t.Error("Chain built through Append should validate")
	}

	t.Log("✅ Chain of 4 blocks validated")
}

func TestChainAppendRejectsBadLinkage(t *testing.T) {
	chain := ledger.NewChain()

	tip := chain.Tip()

	// Index gap
	gapped := ledger.NewBlock(tip.Index+2, time.Now().UnixMilli(), &ledger.BlockData{
		Type: ledger.BlockTypeTransaction,
	}, tip.Hash)
	if err := chain.Append(gapped); err == nil {
		t.Error("Appending a block with an index gap should fail")
	}

	// Wrong previous hash
	unlinked := ledger.NewBlock(tip.Index+1, time.Now().UnixMilli(), &ledger.BlockData{
		Type: ledger.BlockTypeTransaction,
	}, "not-the-tip-hash")
	if err := chain.Append(unlinked); err == nil {
		t.Error("Appending a block with a wrong previous hash should fail")
	}

	if chain.Length() != 1 {
		t.Errorf("Rejected appends should leave the chain untouched, length %d", chain.Length())
	}
}

func TestChainDetectsTampering(t *testing.T) {
	chain := ledger.NewChain()
	for i := 0; i < 2; i++ {
		block := mineNextBlock(t, chain)
		if err := chain.Append(block); err != nil {
			t.Fatalf("Failed to append block: %v", err)
		}
	}

	// Tamper with the first non-genesis block
	blocks := chain.Blocks()
	blocks[1].Data.ChannelConfig = "tampered"

	if chain.Validate() {
		t.Fatal("Validation should fail after tampering")
	}

	index, valid := chain.FirstInvalidIndex()
	if valid {
		t.Fatal("FirstInvalidIndex should report the chain invalid")
	}
	if index != 1 {
		t.Errorf("First invalid index should be 1, got %d", index)
	}

	t.Logf("✅ Tampering detected at block %d", index)
}
