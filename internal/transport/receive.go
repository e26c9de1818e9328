package transport

import (
	"github.com/openpldm/pldmd/internal/identifier"
	"github.com/openpldm/pldmd/internal/wire"
)

// onReceive is the transport's single dispatch entry point for every
// inbound datagram (spec §4.1): frames with tagOwner=false, an unmapped
// EID, or a malformed header are dropped and logged, never surfaced as
// errors to a caller.
func (a *Adapter) onReceive(eid identifier.EID, messageTag uint8, tagOwner bool, payload []byte) {
	if !tagOwner {
		a.logDrop("tag_owner_clear", eid)
		return
	}
	tid, ok := a.idents.TIDFor(eid)
	if !ok {
		a.logDrop("unmapped_eid", eid)
		return
	}
	msg, err := wire.DecodeMessage(payload)
	if err != nil {
		a.logDrop("malformed_header", eid)
		return
	}

	if !msg.Header.Request {
		a.dispatchToPending(tid, msg)
		return
	}
	if !a.dispatchToAwaiter(tid, msg) {
		a.logDrop("no_awaiter", eid)
	}
}

// dispatchToPending routes a response to the in-flight SendRequest call
// for tid, discarding it if the instance id does not match (spec §8
// property 2 — mismatched replies are retried, not accepted).
func (a *Adapter) dispatchToPending(tid identifier.TID, msg wire.Message) {
	a.pending.mu.Lock()
	entry, ok := a.pending.byTID[tid]
	a.pending.mu.Unlock()
	if !ok {
		return
	}
	if msg.Header.InstanceID != entry.instanceID || msg.Header.Command != entry.command {
		return
	}
	select {
	case entry.replyCh <- msg:
	default:
	}
}
