package fwupdate

import (
	"context"
	"errors"
	"fmt"

	"github.com/openpldm/pldmd/internal/codec"
	"github.com/openpldm/pldmd/internal/pldmerr"
	"github.com/openpldm/pldmd/internal/transport"
	"github.com/openpldm/pldmd/internal/wire"
)

// runComponent drives one applicable component through
// UpdateComponent -> Download -> Verify -> Apply -> ReadyXfer (spec §4.4
// Phase E).
func (o *Orchestrator) runComponent(ctx context.Context, s *Session, image ImageAccessor, idx int) error {
	comp := s.ApplicableComponents[idx]

	compatible, err := o.updateComponent(ctx, s, comp)
	if err != nil {
		return err
	}
	if !compatible {
		return fmt.Errorf("%w: component %d not CanBeUpdated", pldmerr.ErrSessionAborted, idx)
	}

	if !s.transition(StateDownload) {
		return fmt.Errorf("%w: ReadyXfer->Download", pldmerr.ErrMalformed)
	}
	s.Cursor = ComponentCursor{CurrentCompIndex: idx, ComponentSize: comp.Size}
	s.ExpectedCmd = codec.CmdRequestFirmwareData

	if err := o.serveDownload(ctx, s, image, idx, comp); err != nil {
		if errors.Is(err, errIdleTimeout) {
			o.cancelComponent(ctx, s)
			return fmt.Errorf("%w: component %d idle timeout during download", pldmerr.ErrSessionAborted, idx)
		}
		return err
	}

	if !s.transition(StateVerify) {
		return fmt.Errorf("%w: Download->Verify", pldmerr.ErrMalformed)
	}
	s.ExpectedCmd = codec.CmdVerifyComplete
	if err := o.awaitVerifyComplete(ctx, s); err != nil {
		return err
	}

	if !s.transition(StateApply) {
		return fmt.Errorf("%w: Verify->Apply", pldmerr.ErrMalformed)
	}
	s.ExpectedCmd = codec.CmdApplyComplete
	if err := o.awaitApplyComplete(ctx, s); err != nil {
		return err
	}

	if !s.transition(StateReadyXfer) {
		return fmt.Errorf("%w: Apply->ReadyXfer", pldmerr.ErrMalformed)
	}
	return nil
}

func (o *Orchestrator) updateComponent(ctx context.Context, s *Session, comp ComponentDescriptor) (bool, error) {
	reqPayload, err := codec.EncodeUpdateComponentRequest(codec.UpdateComponentRequest{
		ComponentClassification: comp.Classification,
		ComponentIdentifier:     comp.Identifier,
		ComponentSize:           comp.Size,
		ComponentVersionString:  comp.VersionString,
	})
	if err != nil {
		return false, fmt.Errorf("%w: %v", pldmerr.ErrEncodeFailed, err)
	}
	resp, err := o.transport.SendRequest(ctx, s.TID, transport.Request{
		PLDMType: codec.PldmTypeFirmwareUpdate,
		Command:  codec.CmdUpdateComponent,
		Payload:  reqPayload,
	}, RequestTimeout, 1)
	if err != nil {
		return false, err
	}
	out, err := codec.DecodeUpdateComponentResponse(resp.Payload)
	if err != nil {
		return false, err
	}
	if out.CompletionCode != codec.CcSuccess {
		return false, pldmerr.CompletionCodeError{Command: codec.CmdUpdateComponent, Code: out.CompletionCode}
	}
	return out.ComponentCompatibility == codec.ComponentCanBeUpdated, nil
}

var errIdleTimeout = fmt.Errorf("fwupdate: idle wait exceeded")

// serveDownload answers device-initiated RequestFirmwareData requests
// until the device sends TransferComplete (spec §4.4 Phase E step 3-4).
func (o *Orchestrator) serveDownload(ctx context.Context, s *Session, image ImageAccessor, idx int, comp ComponentDescriptor) error {
	lastPercentReported := -1
	for {
		reqCtx, cancel := context.WithTimeout(ctx, RequestFirmwareDataIdleTimeout)
		msg, err := o.transport.AwaitRequest(reqCtx, s.TID, func(h wire.Header) bool {
			return h.Command == codec.CmdRequestFirmwareData || h.Command == codec.CmdTransferComplete
		})
		cancel()
		if err != nil {
			return errIdleTimeout
		}

		if msg.Header.Command == codec.CmdTransferComplete {
			return o.handleTransferComplete(ctx, s, msg)
		}

		req, err := codec.DecodeRequestFirmwareDataRequest(msg.Payload)
		if err != nil {
			continue
		}
		data, err := image.ReadComponentBytes(ctx, idx, req.Offset, req.Length)
		if err != nil {
			return fmt.Errorf("%w: %v", pldmerr.ErrImageRead, err)
		}
		respPayload, err := codec.EncodeRequestFirmwareDataResponse(codec.CcSuccess, data)
		if err != nil {
			return fmt.Errorf("%w: %v", pldmerr.ErrEncodeFailed, err)
		}
		if err := o.transport.SendOneway(ctx, s.TID, msg.Header, codec.PldmTypeFirmwareUpdate, codec.CmdRequestFirmwareData, respPayload); err != nil {
			return err
		}

		if comp.Size > 0 {
			percent := int(uint64(req.Offset+req.Length) * 100 / uint64(comp.Size))
			bucket := (percent / 25) * 25
			if bucket > lastPercentReported {
				lastPercentReported = bucket
				if o.pub != nil {
					o.pub.ReportProgress(uint8(s.TID), idx, bucket)
				}
			}
		}
	}
}

func (o *Orchestrator) handleTransferComplete(ctx context.Context, s *Session, msg wire.Message) error {
	req, err := codec.DecodeTransferCompleteRequest(msg.Payload)
	if err != nil {
		return err
	}
	completion := codec.CcSuccess
	if req.Result != codec.TransferResultSuccess {
		completion = codec.CcInvalidData
	}
	respPayload, _ := codec.EncodeCompletionCodeOnlyResponse(completion)
	if err := o.transport.SendOneway(ctx, s.TID, msg.Header, codec.PldmTypeFirmwareUpdate, codec.CmdTransferComplete, respPayload); err != nil {
		return err
	}
	if req.Result != codec.TransferResultSuccess {
		return pldmerr.TransferResultError{Result: req.Result}
	}
	if o.pub != nil {
		o.pub.ReportProgress(uint8(s.TID), s.Cursor.CurrentCompIndex, 100)
	}
	return nil
}

func (o *Orchestrator) awaitVerifyComplete(ctx context.Context, s *Session) error {
	reqCtx, cancel := context.WithTimeout(ctx, FDCmdTimeout)
	defer cancel()
	msg, err := o.transport.AwaitRequest(reqCtx, s.TID, func(h wire.Header) bool { return h.Command == codec.CmdVerifyComplete })
	if err != nil {
		return fmt.Errorf("%w: verify_complete idle wait: %v", errIdleTimeout, err)
	}
	req, err := codec.DecodeVerifyCompleteRequest(msg.Payload)
	if err != nil {
		return err
	}
	completion := codec.CcSuccess
	if req.Result != codec.VerifyResultSuccess {
		completion = codec.CcInvalidData
	}
	respPayload, _ := codec.EncodeCompletionCodeOnlyResponse(completion)
	if err := o.transport.SendOneway(ctx, s.TID, msg.Header, codec.PldmTypeFirmwareUpdate, codec.CmdVerifyComplete, respPayload); err != nil {
		return err
	}
	if req.Result != codec.VerifyResultSuccess {
		return pldmerr.VerifyResultError{Result: req.Result}
	}
	return nil
}

func (o *Orchestrator) awaitApplyComplete(ctx context.Context, s *Session) error {
	reqCtx, cancel := context.WithTimeout(ctx, FDCmdTimeout)
	defer cancel()
	msg, err := o.transport.AwaitRequest(reqCtx, s.TID, func(h wire.Header) bool { return h.Command == codec.CmdApplyComplete })
	if err != nil {
		return fmt.Errorf("%w: apply_complete idle wait: %v", errIdleTimeout, err)
	}
	req, err := codec.DecodeApplyCompleteRequest(msg.Payload)
	if err != nil {
		return err
	}
	ok := req.Result == codec.ApplyResultSuccess || req.Result == codec.ApplyResultSuccessWithActivationMethod
	completion := codec.CcSuccess
	if !ok {
		completion = codec.CcInvalidData
	}
	respPayload, _ := codec.EncodeCompletionCodeOnlyResponse(completion)
	if err := o.transport.SendOneway(ctx, s.TID, msg.Header, codec.PldmTypeFirmwareUpdate, codec.CmdApplyComplete, respPayload); err != nil {
		return err
	}
	if !ok {
		return pldmerr.ApplyResultError{Result: req.Result}
	}
	return nil
}

// cancelComponent issues CancelUpdateComponent and returns the session to
// ReadyXfer (spec §4.4 Phase E step 3: "abort the component and
// CancelUpdateComponent").
func (o *Orchestrator) cancelComponent(ctx context.Context, s *Session) {
	reqPayload, _ := codec.EncodeCancelUpdateComponentRequest()
	_, _ = o.transport.SendRequest(ctx, s.TID, transport.Request{
		PLDMType: codec.PldmTypeFirmwareUpdate,
		Command:  codec.CmdCancelUpdateComponent,
		Payload:  reqPayload,
	}, RequestTimeout, 1)
	if target, ok := CancelUpdateComponentTarget(s.currentState()); ok {
		s.setState(target)
	}
}
