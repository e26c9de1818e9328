package codec

import (
	"encoding/binary"
	"fmt"

	"github.com/openpldm/pldmd/internal/pldmerr"
)

// GetPDRRepositoryInfoResponse mirrors spec §3 RepositoryInfo.
type GetPDRRepositoryInfoResponse struct {
	CompletionCode   uint8
	RepositoryState  uint8
	RecordCount      uint32
	RepositorySize   uint32
	LargestRecordSize uint32
}

func EncodeGetPDRRepositoryInfoRequest() ([]byte, error) {
	return nil, nil
}

func DecodeGetPDRRepositoryInfoResponse(payload []byte) (GetPDRRepositoryInfoResponse, error) {
	if len(payload) < 1+1+4+4+4 {
		return GetPDRRepositoryInfoResponse{}, fmt.Errorf("%w: get_pdr_repository_info short payload", pldmerr.ErrDecodeFailed)
	}
	return GetPDRRepositoryInfoResponse{
		CompletionCode:    payload[0],
		RepositoryState:   payload[1],
		RecordCount:       binary.LittleEndian.Uint32(payload[2:6]),
		RepositorySize:    binary.LittleEndian.Uint32(payload[6:10]),
		LargestRecordSize: binary.LittleEndian.Uint32(payload[10:14]),
	}, nil
}

// GetPDRRequest requests one segment of one record (spec §4.3: first
// segment uses GetFirstPart/handle 0/changeNumber 0; subsequent segments
// carry the previous response's nextDataTransferHandle).
type GetPDRRequest struct {
	RecordHandle       uint32
	DataTransferHandle uint32
	TransferOpFlag     uint8
	RequestCount       uint16
	RecordChangeNumber uint16
}

func EncodeGetPDRRequest(req GetPDRRequest) ([]byte, error) {
	buf := make([]byte, 13)
	binary.LittleEndian.PutUint32(buf[0:4], req.RecordHandle)
	binary.LittleEndian.PutUint32(buf[4:8], req.DataTransferHandle)
	buf[8] = req.TransferOpFlag
	binary.LittleEndian.PutUint16(buf[9:11], req.RequestCount)
	binary.LittleEndian.PutUint16(buf[11:13], req.RecordChangeNumber)
	return buf, nil
}

// GetPDRResponse is one segment of one PDR record. Data is the segment's
// payload; on TransferFlag=End, DecodeGetPDRResponse has already split the
// trailing CRC-8 byte off Data into Crc and set HasCrc (spec §4.3).
type GetPDRResponse struct {
	CompletionCode         uint8
	NextRecordHandle       uint32
	NextDataTransferHandle uint32
	TransferFlag           TransferFlag
	Data                   []byte
	Crc                    uint8
	HasCrc                 bool
}

// DecodeGetPDRResponse parses a GetPDR response. The trailing CRC byte is
// present only when TransferFlag = End (spec §4.3: "StartAndEnd skips
// CRC").
func DecodeGetPDRResponse(payload []byte) (GetPDRResponse, error) {
	const fixedLen = 1 + 4 + 4 + 1 + 2
	if len(payload) < fixedLen {
		return GetPDRResponse{}, fmt.Errorf("%w: get_pdr short payload", pldmerr.ErrDecodeFailed)
	}
	out := GetPDRResponse{
		CompletionCode:         payload[0],
		NextRecordHandle:       binary.LittleEndian.Uint32(payload[1:5]),
		NextDataTransferHandle: binary.LittleEndian.Uint32(payload[5:9]),
		TransferFlag:           TransferFlag(payload[9]),
	}
	respCount := binary.LittleEndian.Uint16(payload[10:12])
	rest := payload[12:]
	if int(respCount) > len(rest) {
		return GetPDRResponse{}, fmt.Errorf("%w: get_pdr response count exceeds payload", pldmerr.ErrDecodeFailed)
	}
	data := rest[:respCount]
	if out.TransferFlag == TransferFlagEnd {
		if len(data) == 0 {
			return GetPDRResponse{}, fmt.Errorf("%w: get_pdr end segment missing crc", pldmerr.ErrDecodeFailed)
		}
		out.Crc = data[len(data)-1]
		out.HasCrc = true
		data = data[:len(data)-1]
	}
	out.Data = append([]byte(nil), data...)
	return out, nil
}
