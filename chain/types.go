package chain

import (
	"fmt"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
)

// Event is anything a contract emits into the log.
type Event interface {
	EventName() string
}

// Log is one committed event.
type Log struct {
	Seq     uint64            // position in the env log, starting at 1
	TxHash  ethcommon.Hash    // transaction that emitted the event
	Index   uint              // position of the event inside its transaction
	Address ethcommon.Address // emitting contract
	Time    time.Time         // transaction time
	Event   Event
}

func (l *Log) String() string {
	return fmt.Sprintf("Log { Seq: %d, TxHash: %s, Index: %d, Address: %s, Event: %s %+v }",
		l.Seq, l.TxHash.String(), l.Index, l.Address.String(), l.Event.EventName(), l.Event)
}

// Receipt is returned by a successful transaction.
type Receipt struct {
	TxHash ethcommon.Hash
	Sender ethcommon.Address
	Logs   []*Log
}

// Find returns the events of the receipt with the given name.
func (r *Receipt) Find(name string) []Event {
	evs := []Event{}
	for _, l := range r.Logs {
		if l.Event.EventName() == name {
			evs = append(evs, l.Event)
		}
	}
	return evs
}
