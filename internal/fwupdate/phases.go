package fwupdate

import (
	"context"
	"fmt"

	"github.com/openpldm/pldmd/internal/codec"
	"github.com/openpldm/pldmd/internal/pldmerr"
	"github.com/openpldm/pldmd/internal/transport"
)

// baselineTransferSize is the max transfer size the UA advertises in
// RequestUpdate and uses as the chunk size for every subsequent
// multi-part exchange (spec §4.4 Phase A: "max transfer size =
// baseline").
const baselineTransferSize = 32

// phaseARequestUpdate is Phase A (spec §4.4): requester role, with
// RetryRequestUpdate handling.
func (o *Orchestrator) phaseARequestUpdate(ctx context.Context, s *Session, image ImageAccessor) error {
	vsType, vs := image.ComponentImageSetVersionString()
	var numApplicable int
	for range s.ApplicableComponents {
		numApplicable++
	}

	reqPayload, err := codec.EncodeRequestUpdateRequest(codec.RequestUpdateRequest{
		MaxTransferSize:                    baselineTransferSize,
		NumberOfComponents:                  uint16(numApplicable),
		MaxOutstandingTransferReq:           1,
		PackageDataLength:                   image.PackageDataLength(),
		ComponentImageSetVersionStringType: vsType,
		ComponentImageSetVersionString:     vs,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", pldmerr.ErrEncodeFailed, err)
	}

	for attempt := 0; attempt <= MaxRequestUpdateRetries; attempt++ {
		resp, err := o.transport.SendRequest(ctx, s.TID, transport.Request{
			PLDMType: codec.PldmTypeFirmwareUpdate,
			Command:  codec.CmdRequestUpdate,
			Payload:  reqPayload,
		}, RequestTimeout, 1)
		if err != nil {
			return err
		}
		out, err := codec.DecodeRequestUpdateResponse(resp.Payload)
		if err != nil {
			return err
		}
		switch out.CompletionCode {
		case codec.CcSuccess:
			s.FWDeviceMetaDataLen = out.FWDeviceMetaDataLen
			return nil
		case codec.CcRetryRequestUpdate:
			if err := sleepOrDone(ctx, RetryRequestForUpdateDelay); err != nil {
				return err
			}
			continue
		default:
			return pldmerr.CompletionCodeError{Command: codec.CmdRequestUpdate, Code: out.CompletionCode}
		}
	}
	return pldmerr.RetryRequestUpdate{}
}

// phaseBSendPackageData is Phase B (spec §4.4): responder role, served
// only when package data exists to serve.
func (o *Orchestrator) phaseBSendPackageData(ctx context.Context, s *Session, image ImageAccessor) error {
	data, err := image.PackageData(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", pldmerr.ErrImageRead, err)
	}
	if len(data) == 0 {
		return nil
	}
	return serveSegments(ctx, o.transport, s.TID, codec.CmdGetPackageData, data, baselineTransferSize, func() context.Context {
		c, _ := context.WithTimeout(ctx, FDCmdTimeout)
		return c
	})
}

// phaseCGetDeviceMetaData is Phase C (spec §4.4): requester role,
// threading the data-transfer handle until the terminal transfer flag.
func (o *Orchestrator) phaseCGetDeviceMetaData(ctx context.Context, s *Session, image ImageAccessor) error {
	if s.FWDeviceMetaDataLen == 0 {
		return nil
	}
	const responseCeiling = 100
	var (
		handle  uint32
		opFlag  = codec.TransferOpGetFirstPart
		acc     []byte
	)
	for i := 0; i < responseCeiling; i++ {
		reqPayload, err := codec.EncodeGetDeviceMetaDataRequest(codec.GetDeviceMetaDataRequest{
			DataTransferHandle:    handle,
			TransferOperationFlag: opFlag,
		})
		if err != nil {
			return fmt.Errorf("%w: %v", pldmerr.ErrEncodeFailed, err)
		}
		resp, err := o.transport.SendRequest(ctx, s.TID, transport.Request{
			PLDMType: codec.PldmTypeFirmwareUpdate,
			Command:  codec.CmdGetDeviceMetaData,
			Payload:  reqPayload,
		}, RequestTimeout, 1)
		if err != nil {
			return err
		}
		out, err := codec.DecodeGetDeviceMetaDataResponse(resp.Payload)
		if err != nil {
			return err
		}
		if out.CompletionCode != codec.CcSuccess {
			return pldmerr.CompletionCodeError{Command: codec.CmdGetDeviceMetaData, Code: out.CompletionCode}
		}
		acc = append(acc, out.Data...)
		if out.TransferFlag == codec.TransferFlagEnd || out.TransferFlag == codec.TransferFlagStartAndEnd {
			s.DeviceMetaData = acc
			return nil
		}
		handle = out.NextDataTransferHandle
		opFlag = codec.TransferOpGetNextPart
	}
	return fmt.Errorf("%w: get_device_meta_data exceeded %d responses", pldmerr.ErrTooManyRetries, responseCeiling)
}

// phaseDPassComponentTable is Phase D (spec §4.4): requester role, one
// call per applicable component with the documented transfer-flag
// discipline.
func (o *Orchestrator) phaseDPassComponentTable(ctx context.Context, s *Session, image ImageAccessor) error {
	n := len(s.ApplicableComponents)
	if n == 0 {
		return fmt.Errorf("%w: no applicable components", pldmerr.ErrMalformed)
	}
	accepted := 0
	for i, comp := range s.ApplicableComponents {
		var flag codec.TransferFlag
		switch {
		case n == 1:
			flag = codec.TransferFlagStartAndEnd
		case i == 0:
			flag = codec.TransferFlagStart
		case i == n-1:
			flag = codec.TransferFlagEnd
		default:
			flag = codec.TransferFlagMiddle
		}

		reqPayload, err := codec.EncodePassComponentTableRequest(codec.PassComponentTableRequest{
			TransferFlag:            flag,
			ComponentClassification: comp.Classification,
			ComponentIdentifier:     comp.Identifier,
			ComponentVersionString:  comp.VersionString,
		})
		if err != nil {
			return fmt.Errorf("%w: %v", pldmerr.ErrEncodeFailed, err)
		}
		resp, err := o.transport.SendRequest(ctx, s.TID, transport.Request{
			PLDMType: codec.PldmTypeFirmwareUpdate,
			Command:  codec.CmdPassComponentTable,
			Payload:  reqPayload,
		}, RequestTimeout, 1)
		if err != nil {
			return err
		}
		out, err := codec.DecodePassComponentTableResponse(resp.Payload)
		if err != nil {
			return err
		}
		if out.CompletionCode == codec.CcSuccess {
			accepted++
		}

		if i < n-1 {
			if err := sleepOrDone(ctx, InterCommandDelay); err != nil {
				return err
			}
		}
	}
	if accepted == 0 {
		return fmt.Errorf("%w: no component accepted by pass_component_table", pldmerr.ErrMalformed)
	}
	return nil
}

// phaseFSendMetaData is Phase F (spec §4.4): mirrors Phase B over the
// buffer gathered in Phase C.
func (o *Orchestrator) phaseFSendMetaData(ctx context.Context, s *Session) error {
	if len(s.DeviceMetaData) == 0 {
		return nil
	}
	return serveSegments(ctx, o.transport, s.TID, codec.CmdGetMetaData, s.DeviceMetaData, baselineTransferSize, func() context.Context {
		c, _ := context.WithTimeout(ctx, FDCmdTimeout)
		return c
	})
}

// phaseGActivateFirmware is Phase G (spec §4.4): requester role, only
// from ReadyXfer.
func (o *Orchestrator) phaseGActivateFirmware(ctx context.Context, s *Session) error {
	if !s.transition(StateActivate) {
		return fmt.Errorf("%w: ReadyXfer->Activate", pldmerr.ErrMalformed)
	}
	reqPayload, err := codec.EncodeActivateFirmwareRequest(codec.ActivateFirmwareRequest{SelfContainedActivationRequest: true})
	if err != nil {
		return fmt.Errorf("%w: %v", pldmerr.ErrEncodeFailed, err)
	}
	resp, err := o.transport.SendRequest(ctx, s.TID, transport.Request{
		PLDMType: codec.PldmTypeFirmwareUpdate,
		Command:  codec.CmdActivateFirmware,
		Payload:  reqPayload,
	}, RequestTimeout, 1)
	if err != nil {
		return err
	}
	out, err := codec.DecodeActivateFirmwareResponse(resp.Payload)
	if err != nil {
		return err
	}
	if out.CompletionCode != codec.CcSuccess {
		return pldmerr.CompletionCodeError{Command: codec.CmdActivateFirmware, Code: out.CompletionCode}
	}
	s.EstimatedActivationSecs = out.EstimatedTimeForActivationSecs
	if o.pub != nil {
		o.pub.SetActivation(uint8(s.TID), true)
	}
	return nil
}
