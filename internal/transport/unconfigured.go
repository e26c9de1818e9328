package transport

import (
	"context"
	"fmt"

	"github.com/openpldm/pldmd/internal/identifier"
)

// Unconfigured is the default PacketTransport wired by cmd/pldmd until an
// operator plugs in a real MCTP-over-whatever binding (spec.md §1: the
// packet transport is an external collaborator, out of scope for this
// module). It accepts the receive callback registration so the rest of
// the stack starts up cleanly, and fails every Send with a clear error
// instead of silently dropping it.
type Unconfigured struct {
	cb ReceiveFunc
}

func (u *Unconfigured) Send(ctx context.Context, eid identifier.EID, messageTag uint8, tagOwner bool, payload []byte) error {
	return fmt.Errorf("transport: no packet transport configured (eid=%d)", eid)
}

func (u *Unconfigured) SetReceiveCallback(cb ReceiveFunc) { u.cb = cb }
