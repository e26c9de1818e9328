package transport

import (
	"context"
	"fmt"

	"github.com/openpldm/pldmd/internal/identifier"
	"github.com/openpldm/pldmd/internal/pldmerr"
	"github.com/openpldm/pldmd/internal/wire"
)

// SendOneway emits a response to a device-initiated request, echoing the
// instance id the device used. There is no retry and no awaited reply:
// responses are fire-and-forget (spec §4.1).
func (a *Adapter) SendOneway(ctx context.Context, tid identifier.TID, inReplyTo wire.Header, pldmType, command uint8, payload []byte) error {
	eid, ok := a.idents.EIDFor(tid)
	if !ok {
		return fmt.Errorf("%w: tid=%d", pldmerr.ErrNoRoute, tid)
	}
	header := wire.Header{
		Request:    false,
		InstanceID: inReplyTo.InstanceID,
		PLDMType:   pldmType,
		Command:    command,
	}
	raw, err := wire.EncodeMessage(wire.Message{Header: header, Payload: payload})
	if err != nil {
		return fmt.Errorf("%w: %v", pldmerr.ErrMalformed, err)
	}
	if err := a.transport.Send(ctx, eid, 0, true, raw); err != nil {
		return fmt.Errorf("%w: %v", pldmerr.ErrTransport, err)
	}
	return nil
}
