package codec

import (
	"encoding/binary"
	"fmt"

	"github.com/openpldm/pldmd/internal/pldmerr"
)

// RequestUpdateRequest carries Phase A's inputs (spec §4.4 Phase A).
type RequestUpdateRequest struct {
	MaxTransferSize          uint32
	NumberOfComponents       uint16
	MaxOutstandingTransferReq uint8
	PackageDataLength        uint16
	ComponentImageSetVersionStringType uint8
	ComponentImageSetVersionString     string
}

func EncodeRequestUpdateRequest(req RequestUpdateRequest) ([]byte, error) {
	vs := []byte(req.ComponentImageSetVersionString)
	if len(vs) > 255 {
		return nil, fmt.Errorf("%w: component image set version string too long", pldmerr.ErrEncodeFailed)
	}
	buf := make([]byte, 0, 4+2+1+2+1+1+len(vs))
	buf = appendU32(buf, req.MaxTransferSize)
	buf = appendU16(buf, req.NumberOfComponents)
	buf = append(buf, req.MaxOutstandingTransferReq)
	buf = appendU16(buf, req.PackageDataLength)
	buf = append(buf, req.ComponentImageSetVersionStringType)
	buf = append(buf, byte(len(vs)))
	buf = append(buf, vs...)
	return buf, nil
}

// RequestUpdateResponse yields fwDeviceMetaDataLen and whether the device
// wants package data (spec §4.4 Phase A).
type RequestUpdateResponse struct {
	CompletionCode       uint8
	FWDeviceMetaDataLen  uint16
	WillGetPackageData   bool
}

func DecodeRequestUpdateResponse(payload []byte) (RequestUpdateResponse, error) {
	if len(payload) == 1 {
		return RequestUpdateResponse{CompletionCode: payload[0]}, nil
	}
	if len(payload) < 4 {
		return RequestUpdateResponse{}, fmt.Errorf("%w: request_update short payload", pldmerr.ErrDecodeFailed)
	}
	return RequestUpdateResponse{
		CompletionCode:      payload[0],
		FWDeviceMetaDataLen: binary.LittleEndian.Uint16(payload[1:3]),
		WillGetPackageData:  payload[3] != 0,
	}, nil
}

// GetPackageDataRequest / GetMetaDataRequest share shape: the device asks
// the UA (acting as responder) for one segment (spec §4.4 Phase B, F).
type GetPackageDataRequest struct {
	TransferOpFlag     uint8
	DataTransferHandle uint32
}

func DecodeGetPackageDataRequest(payload []byte) (GetPackageDataRequest, error) {
	if len(payload) < 5 {
		return GetPackageDataRequest{}, fmt.Errorf("%w: get_package_data short payload", pldmerr.ErrDecodeFailed)
	}
	return GetPackageDataRequest{
		TransferOpFlag:     payload[0],
		DataTransferHandle: binary.LittleEndian.Uint32(payload[1:5]),
	}, nil
}

// GetPackageDataResponse carries one segment served back to the device.
type GetPackageDataResponse struct {
	CompletionCode         uint8
	NextDataTransferHandle uint32
	TransferFlag           TransferFlag
	Data                   []byte
}

func EncodeGetPackageDataResponse(resp GetPackageDataResponse) ([]byte, error) {
	buf := make([]byte, 0, 1+4+1+len(resp.Data))
	buf = append(buf, resp.CompletionCode)
	buf = appendU32(buf, resp.NextDataTransferHandle)
	buf = append(buf, byte(resp.TransferFlag))
	buf = append(buf, resp.Data...)
	return buf, nil
}

// GetDeviceMetaDataRequest is issued by the UA as requester, iterating
// GetFirstPart then GetNextPart (spec §4.4 Phase C).
type GetDeviceMetaDataRequest struct {
	DataTransferHandle uint32
	TransferOperationFlag uint8
}

func EncodeGetDeviceMetaDataRequest(req GetDeviceMetaDataRequest) ([]byte, error) {
	buf := make([]byte, 0, 5)
	buf = appendU32(buf, req.DataTransferHandle)
	buf = append(buf, req.TransferOperationFlag)
	return buf, nil
}

type GetDeviceMetaDataResponse struct {
	CompletionCode         uint8
	NextDataTransferHandle uint32
	TransferFlag           TransferFlag
	Data                   []byte
}

func DecodeGetDeviceMetaDataResponse(payload []byte) (GetDeviceMetaDataResponse, error) {
	if len(payload) < 6 {
		return GetDeviceMetaDataResponse{}, fmt.Errorf("%w: get_device_meta_data short payload", pldmerr.ErrDecodeFailed)
	}
	return GetDeviceMetaDataResponse{
		CompletionCode:         payload[0],
		NextDataTransferHandle: binary.LittleEndian.Uint32(payload[1:5]),
		TransferFlag:           TransferFlag(payload[5]),
		Data:                   append([]byte(nil), payload[6:]...),
	}, nil
}

// PassComponentTableRequest describes one applicable component (spec §4.4
// Phase D).
type PassComponentTableRequest struct {
	TransferFlag          TransferFlag
	ComponentClassification uint16
	ComponentIdentifier    uint16
	ComponentVersionString string
}

func EncodePassComponentTableRequest(req PassComponentTableRequest) ([]byte, error) {
	vs := []byte(req.ComponentVersionString)
	buf := make([]byte, 0, 1+2+2+1+len(vs))
	buf = append(buf, byte(req.TransferFlag))
	buf = appendU16(buf, req.ComponentClassification)
	buf = appendU16(buf, req.ComponentIdentifier)
	buf = append(buf, byte(len(vs)))
	buf = append(buf, vs...)
	return buf, nil
}

type PassComponentTableResponse struct {
	CompletionCode    uint8
	ComponentResponse uint8
}

func DecodePassComponentTableResponse(payload []byte) (PassComponentTableResponse, error) {
	if len(payload) < 2 {
		return PassComponentTableResponse{}, fmt.Errorf("%w: pass_component_table short payload", pldmerr.ErrDecodeFailed)
	}
	return PassComponentTableResponse{CompletionCode: payload[0], ComponentResponse: payload[1]}, nil
}

// UpdateComponentRequest starts a component's download (spec §4.4 Phase
// E step 1).
type UpdateComponentRequest struct {
	ComponentClassification uint16
	ComponentIdentifier     uint16
	ComponentSize           uint32
	ComponentVersionString  string
}

func EncodeUpdateComponentRequest(req UpdateComponentRequest) ([]byte, error) {
	vs := []byte(req.ComponentVersionString)
	buf := make([]byte, 0, 2+2+4+1+len(vs))
	buf = appendU16(buf, req.ComponentClassification)
	buf = appendU16(buf, req.ComponentIdentifier)
	buf = appendU32(buf, req.ComponentSize)
	buf = append(buf, byte(len(vs)))
	buf = append(buf, vs...)
	return buf, nil
}

type UpdateComponentResponse struct {
	CompletionCode       uint8
	ComponentCompatibility uint8
}

func DecodeUpdateComponentResponse(payload []byte) (UpdateComponentResponse, error) {
	if len(payload) < 2 {
		return UpdateComponentResponse{}, fmt.Errorf("%w: update_component short payload", pldmerr.ErrDecodeFailed)
	}
	return UpdateComponentResponse{CompletionCode: payload[0], ComponentCompatibility: payload[1]}, nil
}

// RequestFirmwareDataRequest is device-initiated (spec §4.4 Phase E step 3).
type RequestFirmwareDataRequest struct {
	Offset uint32
	Length uint32
}

func DecodeRequestFirmwareDataRequest(payload []byte) (RequestFirmwareDataRequest, error) {
	if len(payload) < 8 {
		return RequestFirmwareDataRequest{}, fmt.Errorf("%w: request_firmware_data short payload", pldmerr.ErrDecodeFailed)
	}
	return RequestFirmwareDataRequest{
		Offset: binary.LittleEndian.Uint32(payload[0:4]),
		Length: binary.LittleEndian.Uint32(payload[4:8]),
	}, nil
}

func EncodeRequestFirmwareDataResponse(completionCode uint8, data []byte) ([]byte, error) {
	buf := make([]byte, 0, 1+len(data))
	buf = append(buf, completionCode)
	buf = append(buf, data...)
	return buf, nil
}

// TransferComplete/VerifyComplete/ApplyComplete requests carry a single
// one-byte result code (spec §4.4 steps 4, 6, 8).
type ResultRequest struct {
	Result uint8
}

func DecodeTransferCompleteRequest(payload []byte) (ResultRequest, error) { return decodeResult(payload, "transfer_complete") }
func DecodeVerifyCompleteRequest(payload []byte) (ResultRequest, error)   { return decodeResult(payload, "verify_complete") }
func DecodeApplyCompleteRequest(payload []byte) (ResultRequest, error)    { return decodeResult(payload, "apply_complete") }

func decodeResult(payload []byte, which string) (ResultRequest, error) {
	if len(payload) < 1 {
		return ResultRequest{}, fmt.Errorf("%w: %s short payload", pldmerr.ErrDecodeFailed, which)
	}
	return ResultRequest{Result: payload[0]}, nil
}

func EncodeCompletionCodeOnlyResponse(completionCode uint8) ([]byte, error) {
	return []byte{completionCode}, nil
}

// ActivateFirmwareRequest requests self-contained activation (spec §4.4
// Phase G).
type ActivateFirmwareRequest struct {
	SelfContainedActivationRequest bool
}

func EncodeActivateFirmwareRequest(req ActivateFirmwareRequest) ([]byte, error) {
	v := byte(0)
	if req.SelfContainedActivationRequest {
		v = 1
	}
	return []byte{v}, nil
}

type ActivateFirmwareResponse struct {
	CompletionCode                  uint8
	EstimatedTimeForActivationSecs uint16
}

func DecodeActivateFirmwareResponse(payload []byte) (ActivateFirmwareResponse, error) {
	if len(payload) == 1 {
		return ActivateFirmwareResponse{CompletionCode: payload[0]}, nil
	}
	if len(payload) < 3 {
		return ActivateFirmwareResponse{}, fmt.Errorf("%w: activate_firmware short payload", pldmerr.ErrDecodeFailed)
	}
	return ActivateFirmwareResponse{
		CompletionCode:                  payload[0],
		EstimatedTimeForActivationSecs: binary.LittleEndian.Uint16(payload[1:3]),
	}, nil
}

func EncodeCancelUpdateComponentRequest() ([]byte, error) { return nil, nil }
func EncodeCancelUpdateRequest() ([]byte, error)          { return nil, nil }

type CancelUpdateResponse struct {
	CompletionCode              uint8
	NonFunctioningComponentBitmap uint64
}

func DecodeCancelUpdateResponse(payload []byte) (CancelUpdateResponse, error) {
	if len(payload) == 1 {
		return CancelUpdateResponse{CompletionCode: payload[0]}, nil
	}
	if len(payload) < 9 {
		return CancelUpdateResponse{}, fmt.Errorf("%w: cancel_update short payload", pldmerr.ErrDecodeFailed)
	}
	return CancelUpdateResponse{
		CompletionCode:               payload[0],
		NonFunctioningComponentBitmap: binary.LittleEndian.Uint64(payload[1:9]),
	}, nil
}

func appendU16(buf []byte, v uint16) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, v)
	return append(buf, b...)
}

func appendU32(buf []byte, v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return append(buf, b...)
}
