// Package transport adapts the underlying packet transport (an external
// collaborator — send/receive/reserve/release and endpoint discovery live
// outside this module, spec §1) into the operations the core subsystems
// need: correlated request/response, fire-and-forget responses, exclusive
// bandwidth reservation, and dispatch of device-initiated requests.
package transport

import (
	"context"

	"github.com/openpldm/pldmd/internal/identifier"
	"github.com/rs/zerolog/log"
)

// ReceiveFunc is the shape the underlying packet transport invokes for every
// inbound datagram, solicited or not. tagOwner mirrors the MCTP tag-owner
// bit; the adapter drops anything with tagOwner=false (spec §4.1).
type ReceiveFunc func(eid identifier.EID, messageTag uint8, tagOwner bool, payload []byte)

// PacketTransport is the external send/receive primitive this module does
// not implement (spec §1 Out of scope). Production wiring plugs in a real
// MCTP-over-whatever transport; tests plug in an in-memory fake.
type PacketTransport interface {
	// Send emits payload to eid. The adapter has already added the
	// message-type prefix and PLDM header.
	Send(ctx context.Context, eid identifier.EID, messageTag uint8, tagOwner bool, payload []byte) error
	// SetReceiveCallback registers the adapter's dispatch entry point.
	SetReceiveCallback(cb ReceiveFunc)
}

// Adapter is the in-scope piece of the transport layer: instance-id
// correlation, retries, the reservation flag, and message-type framing.
type Adapter struct {
	transport  PacketTransport
	idents     *identifier.Service
	reservation reservationState
	pending    pendingRequests
	awaiters   awaiterTable
}

// New builds an Adapter over an external PacketTransport and the shared
// identifier service.
func New(pt PacketTransport, idents *identifier.Service) *Adapter {
	a := &Adapter{
		transport: pt,
		idents:    idents,
		pending:   newPendingRequests(),
		awaiters:  newAwaiterTable(),
	}
	pt.SetReceiveCallback(a.onReceive)
	return a
}

func (a *Adapter) logDrop(reason string, eid identifier.EID) {
	log.Debug().Str("reason", reason).Uint8("eid", uint8(eid)).Msg("transport: dropped packet")
}
