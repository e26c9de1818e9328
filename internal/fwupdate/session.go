package fwupdate

import (
	"sync"
	"time"

	"github.com/openpldm/pldmd/internal/identifier"
)

// Timing defaults named directly from spec §5 "Timeouts" and §4.4. They
// are vars, not consts, so cmd/pldmd can override them from
// internal/config's loaded Timeouts before the first session starts.
var (
	RequestTimeout                 = 100 * time.Millisecond
	FDCmdTimeout                   = 5 * time.Second
	RequestFirmwareDataIdleTimeout = 90 * time.Second
	RetryRequestForUpdateDelay     = 5 * time.Second
	InterCommandDelay              = 500 * time.Millisecond
	RenewalLeadTime                = 5 * time.Second
	MaxRequestUpdateRetries        = 5
)

// ComponentCursor advances across the per-component update loop (spec §3
// ComponentCursor).
type ComponentCursor struct {
	CurrentCompIndex int
	ComponentSize    uint32
	ComponentOffset  uint32
}

// Session is the live state for one device's update (spec §3
// UpdateSession; ownership: "the session controller uniquely owns the
// live UpdateSession").
type Session struct {
	mu sync.Mutex

	TID             identifier.TID
	DeviceRecordIdx int
	State           State
	ExpectedCmd     uint8

	Cursor ComponentCursor

	FWDeviceMetaDataLen uint16
	DeviceMetaData      []byte

	ApplicableComponents []ComponentDescriptor
	AppliedCount         int

	Failed             bool
	FailureReason      error
	EstimatedActivationSecs uint16

	reservation *reservationHandle
}

// ComponentDescriptor is one entry from the image's applicability
// bitfield, as supplied by the caller's ImageAccessor (spec §4.4 Phase
// A: "number of applicable components (popcount over the 64-bit
// applicability bitfield)").
type ComponentDescriptor struct {
	Index              int
	Classification     uint16
	Identifier         uint16
	Size               uint32
	VersionString      string
}

// NewSession creates an Idle session for tid against deviceRecordIdx.
func NewSession(tid identifier.TID, deviceRecordIdx int) *Session {
	return &Session{TID: tid, DeviceRecordIdx: deviceRecordIdx, State: StateIdle}
}

func (s *Session) setState(to State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.State = to
}

func (s *Session) currentState() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.State
}

// transition moves the session to `to` if legal and reports whether it did.
// An illegal transition leaves the state unchanged and returns false; no
// CommandNotExpected reply is sent to the device.
func (s *Session) transition(to State) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !CanTransition(s.State, to) {
		return false
	}
	s.State = to
	return true
}
