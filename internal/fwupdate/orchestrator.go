package fwupdate

import (
	"context"
	"fmt"
	"time"

	"github.com/openpldm/pldmd/internal/codec"
	"github.com/openpldm/pldmd/internal/identifier"
	"github.com/openpldm/pldmd/internal/platform"
	"github.com/openpldm/pldmd/internal/pldmerr"
	"github.com/openpldm/pldmd/internal/transport"
	"github.com/rs/zerolog/log"
)

// Orchestrator drives one UpdateSession's full phase sequence against the
// transport and an ImageAccessor the caller supplies (spec §4.4).
type Orchestrator struct {
	transport *transport.Adapter
	pub       platform.PublicationSurface
}

// NewOrchestrator builds an Orchestrator over the shared transport and
// publication surface.
func NewOrchestrator(t *transport.Adapter, pub platform.PublicationSurface) *Orchestrator {
	return &Orchestrator{transport: t, pub: pub}
}

// Result summarizes one session's outcome for the session controller
// (spec §4.4 "Post-session").
type Result struct {
	TID                     identifier.TID
	Succeeded               bool
	EstimatedActivationSecs uint16
	AppliedComponents       int
}

// Run drives a session for tid from Idle through Activate (success) or
// back to Idle (failure), per spec §4.4.
func (o *Orchestrator) Run(ctx context.Context, tid identifier.TID, deviceRecordIdx int, image ImageAccessor) (Result, error) {
	s := NewSession(tid, deviceRecordIdx)
	s.ApplicableComponents = image.ApplicableComponents()

	if err := o.runLocked(ctx, s, image); err != nil {
		o.escalate(ctx, s, err)
		return Result{TID: tid, Succeeded: false}, err
	}

	return Result{
		TID:                     tid,
		Succeeded:               true,
		EstimatedActivationSecs: s.EstimatedActivationSecs,
		AppliedComponents:       s.AppliedCount,
	}, nil
}

func (o *Orchestrator) runLocked(ctx context.Context, s *Session, image ImageAccessor) error {
	s.setState(StateLearnComponents)
	if err := o.phaseARequestUpdate(ctx, s, image); err != nil {
		return err
	}

	if err := o.phaseBSendPackageData(ctx, s, image); err != nil {
		return err
	}
	if err := o.phaseCGetDeviceMetaData(ctx, s, image); err != nil {
		return err
	}
	if err := o.phaseDPassComponentTable(ctx, s, image); err != nil {
		return err
	}

	if !s.transition(StateReadyXfer) {
		return fmt.Errorf("%w: LearnComponents->ReadyXfer", pldmerr.ErrMalformed)
	}

	reservation, err := o.acquireBandwidth(s)
	if err != nil {
		return err
	}
	defer reservation.release(ctx)

	for i := range s.ApplicableComponents {
		if err := o.runComponent(ctx, s, image, i); err != nil {
			log.Warn().Uint8("tid", uint8(s.TID)).Int("component", i).Err(err).Msg("fwupdate: component failed, continuing")
			continue
		}
		s.AppliedCount++
	}
	if s.AppliedCount == 0 {
		return fmt.Errorf("%w: no component applied successfully", pldmerr.ErrSessionAborted)
	}

	if err := o.phaseFSendMetaData(ctx, s); err != nil {
		return err
	}
	if err := o.phaseGActivateFirmware(ctx, s); err != nil {
		return err
	}
	return nil
}

func (o *Orchestrator) acquireBandwidth(s *Session) (*reservationHandle, error) {
	var total uint32
	for _, c := range s.ApplicableComponents {
		total += c.Size
	}
	h, err := acquireReservation(o.transport, s.TID, total)
	if err != nil {
		return nil, err
	}
	s.reservation = h
	return h, nil
}

// escalate issues CancelUpdate (harmless outside {Idle,Activate}) and
// releases bandwidth on any unrecoverable error (spec §4.4 "Error
// escalation").
func (o *Orchestrator) escalate(ctx context.Context, s *Session, cause error) {
	if _, ok := CancelUpdateTarget(s.currentState()); ok {
		reqPayload, _ := codec.EncodeCancelUpdateRequest()
		_, _ = o.transport.SendRequest(ctx, s.TID, transport.Request{
			PLDMType: codec.PldmTypeFirmwareUpdate,
			Command:  codec.CmdCancelUpdate,
			Payload:  reqPayload,
		}, RequestTimeout, 1)
		s.setState(StateIdle)
	}
	if s.reservation != nil {
		s.reservation.release(ctx)
	}
	s.Failed = true
	s.FailureReason = cause
	if o.pub != nil {
		o.pub.SetActivation(uint8(s.TID), false)
	}
}

func sleepOrDone(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
