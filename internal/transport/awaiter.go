package transport

import (
	"context"
	"sync"

	"github.com/openpldm/pldmd/internal/identifier"
	"github.com/openpldm/pldmd/internal/pldmerr"
	"github.com/openpldm/pldmd/internal/wire"
)

// awaiterTable is a bounded single-slot rendezvous per TID for
// device-initiated requests (spec §4.4 / §9): at most one caller may be
// waiting on a given device at a time, matching the single-threaded
// cooperative model this module is embedded in.
type awaiterTable struct {
	mu   sync.Mutex
	slot map[identifier.TID]chan wire.Message
}

func newAwaiterTable() awaiterTable {
	return awaiterTable{slot: make(map[identifier.TID]chan wire.Message)}
}

// AwaitRequest blocks until a device-initiated request matching want arrives
// from tid, ctx is cancelled, or another caller is already waiting on tid.
func (a *Adapter) AwaitRequest(ctx context.Context, tid identifier.TID, want func(wire.Header) bool) (wire.Message, error) {
	ch := make(chan wire.Message, 1)

	a.awaiters.mu.Lock()
	if _, busy := a.awaiters.slot[tid]; busy {
		a.awaiters.mu.Unlock()
		return wire.Message{}, pldmerr.ErrSessionRunning
	}
	a.awaiters.slot[tid] = ch
	a.awaiters.mu.Unlock()

	defer func() {
		a.awaiters.mu.Lock()
		if a.awaiters.slot[tid] == ch {
			delete(a.awaiters.slot, tid)
		}
		a.awaiters.mu.Unlock()
	}()

	for {
		select {
		case msg := <-ch:
			if want == nil || want(msg.Header) {
				return msg, nil
			}
			// Non-matching device-initiated request: drop and keep waiting.
		case <-ctx.Done():
			return wire.Message{}, ctx.Err()
		}
	}
}

// dispatchToAwaiter hands msg to the waiting caller for tid, if any. It
// returns false if nobody is waiting, in which case the caller should drop
// the packet.
func (a *Adapter) dispatchToAwaiter(tid identifier.TID, msg wire.Message) bool {
	a.awaiters.mu.Lock()
	ch, ok := a.awaiters.slot[tid]
	a.awaiters.mu.Unlock()
	if !ok {
		return false
	}
	select {
	case ch <- msg:
		return true
	default:
		return false
	}
}
