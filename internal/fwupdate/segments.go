package fwupdate

import (
	"context"
	"fmt"

	"github.com/openpldm/pldmd/internal/codec"
	"github.com/openpldm/pldmd/internal/identifier"
	"github.com/openpldm/pldmd/internal/transport"
	"github.com/openpldm/pldmd/internal/wire"
)

// serveSegments implements the SendPackageData/SendMetaData algorithm
// shared by Phase B and Phase F (spec §4.4): respond to device-initiated
// requests for segments of data until the set of distinct received
// offsets covers every chunk, bounded by idleTimeout between requests. A
// GetFirstPart at any point restarts serving at offset 0 (spec §8
// property 5).
func serveSegments(ctx context.Context, t *transport.Adapter, tid identifier.TID, command uint8, data []byte, chunkSize uint32, idleTimeout func() context.Context) error {
	if len(data) == 0 {
		return nil
	}
	expected := (uint32(len(data)) + chunkSize - 1) / chunkSize
	seen := make(map[uint32]bool, expected)

	for uint32(len(seen)) < expected {
		reqCtx := idleTimeout()
		msg, err := t.AwaitRequest(reqCtx, tid, func(h wire.Header) bool { return h.Command == command })
		if err != nil {
			return fmt.Errorf("fwupdate: serve_segments idle wait: %w", err)
		}
		req, err := codec.DecodeGetPackageDataRequest(msg.Payload)
		if err != nil {
			continue
		}

		offset := req.DataTransferHandle
		if req.TransferOpFlag == codec.TransferOpGetFirstPart {
			offset = 0
		}
		if offset >= uint32(len(data)) {
			offset = 0
		}
		end := offset + chunkSize
		if end > uint32(len(data)) {
			end = uint32(len(data))
		}
		segment := data[offset:end]
		flag := codec.ComputeTransferFlag(offset, uint32(len(segment)), uint32(len(data)))
		nextHandle := end
		if end >= uint32(len(data)) {
			nextHandle = 0
		}

		respPayload, err := codec.EncodeGetPackageDataResponse(codec.GetPackageDataResponse{
			CompletionCode:         codec.CcSuccess,
			NextDataTransferHandle: nextHandle,
			TransferFlag:           flag,
			Data:                   segment,
		})
		if err != nil {
			return fmt.Errorf("fwupdate: encode segment response: %w", err)
		}
		if err := t.SendOneway(ctx, tid, msg.Header, codec.PldmTypeFirmwareUpdate, command, respPayload); err != nil {
			return fmt.Errorf("fwupdate: send segment response: %w", err)
		}
		seen[offset/chunkSize] = true
	}
	return nil
}
