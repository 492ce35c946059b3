package ledger

import (
	"github.com/ddr4869/fabricsim/common/logger"
)

// BlockSummary is the slice of a block carried on a commit event
type BlockSummary struct {
	Index       int          `json:"index"`
	Hash        string       `json:"hash"`
	Timestamp   int64        `json:"timestamp"`
	Transaction *Transaction `json:"transaction"`
}

// CommitEvent is emitted once per successfully committed block
type CommitEvent struct {
	ChannelName string       `json:"channelName"`
	Block       BlockSummary `json:"block"`
}

// Events returns the commit event queue. A single consumer (the broadcaster)
// is expected to drain it.
func (l *Ledger) Events() <-chan CommitEvent {
	return l.events
}

// emit pushes a commit event onto the bounded queue. Delivery is best-effort:
// if the queue is full the event is dropped rather than blocking the commit
// path.
func (l *Ledger) emit(event CommitEvent) {
	select {
	case l.events <- event:
	default:
		logger.Warnf("event queue full, dropping commit event for channel %s block %d",
			event.ChannelName, event.Block.Index)
	}
}
