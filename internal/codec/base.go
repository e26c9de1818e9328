package codec

import (
	"encoding/binary"
	"fmt"

	"github.com/openpldm/pldmd/internal/pldmerr"
)

// GetPLDMTypesResponse carries the 8-byte PLDM-type support bitmask (spec
// §3 CommandSupportTable is keyed by this).
type GetPLDMTypesResponse struct {
	CompletionCode uint8
	SupportedTypes uint64
}

// EncodeGetPLDMTypesRequest has no request body.
func EncodeGetPLDMTypesRequest() ([]byte, error) {
	return nil, nil
}

// DecodeGetPLDMTypesResponse parses an 8-byte little-endian bitmask
// following the completion code (spec §6: little-endian multi-byte
// fields).
func DecodeGetPLDMTypesResponse(payload []byte) (GetPLDMTypesResponse, error) {
	if len(payload) < 1+8 {
		return GetPLDMTypesResponse{}, fmt.Errorf("%w: get_pldm_types short payload", pldmerr.ErrDecodeFailed)
	}
	return GetPLDMTypesResponse{
		CompletionCode: payload[0],
		SupportedTypes: binary.LittleEndian.Uint64(payload[1:9]),
	}, nil
}

// GetPLDMCommandsRequest queries the 32-bit-per-version command support
// bitmap for one PLDM type (spec §3 CommandSupportTable).
type GetPLDMCommandsRequest struct {
	PLDMType uint8
	Version  [4]byte
}

func EncodeGetPLDMCommandsRequest(req GetPLDMCommandsRequest) ([]byte, error) {
	buf := make([]byte, 5)
	buf[0] = req.PLDMType
	copy(buf[1:5], req.Version[:])
	return buf, nil
}

// GetPLDMCommandsResponse carries a 32-byte (256-bit) support bitmap; the
// spec's SupportBitmap[32] is modeled as a fixed byte array so callers can
// test individual command bits without a heap allocation.
type GetPLDMCommandsResponse struct {
	CompletionCode uint8
	SupportBitmap  [32]byte
}

func DecodeGetPLDMCommandsResponse(payload []byte) (GetPLDMCommandsResponse, error) {
	if len(payload) < 1+32 {
		return GetPLDMCommandsResponse{}, fmt.Errorf("%w: get_pldm_commands short payload", pldmerr.ErrDecodeFailed)
	}
	var out GetPLDMCommandsResponse
	out.CompletionCode = payload[0]
	copy(out.SupportBitmap[:], payload[1:33])
	return out, nil
}

// CommandSupported reports whether bit for command is set in bitmap (spec
// §3: "Queried before issuing any command").
func CommandSupported(bitmap [32]byte, command uint8) bool {
	byteIdx := command / 8
	bitIdx := command % 8
	if int(byteIdx) >= len(bitmap) {
		return false
	}
	return bitmap[byteIdx]&(1<<bitIdx) != 0
}
