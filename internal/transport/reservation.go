package transport

import (
	"fmt"
	"sync"

	"github.com/openpldm/pldmd/internal/identifier"
	"github.com/openpldm/pldmd/internal/observability"
	"github.com/openpldm/pldmd/internal/pldmerr"
)

// reservationState tracks the single exclusive bandwidth holder (spec §3:
// BandwidthReservation — at most one holder at a time).
type reservationState struct {
	mu       sync.Mutex
	active   bool
	ownerTID identifier.TID
	ownerType uint8
}

// Reserve claims the adapter exclusively for (tid, pldmType). It is an
// error to reserve while a different holder is active; re-reserving the
// same holder (renewal) is a no-op success.
func (a *Adapter) Reserve(tid identifier.TID, pldmType uint8) error {
	a.reservation.mu.Lock()
	defer a.reservation.mu.Unlock()
	if a.reservation.active && (a.reservation.ownerTID != tid || a.reservation.ownerType != pldmType) {
		return fmt.Errorf("%w: held by tid=%d type=%d", pldmerr.ErrReservationHeld, a.reservation.ownerTID, a.reservation.ownerType)
	}
	a.reservation.active = true
	a.reservation.ownerTID = tid
	a.reservation.ownerType = pldmType
	observability.SetReservationHeld(uint8(tid), pldmType, true)
	return nil
}

// Release frees the reservation if held by (tid, pldmType); otherwise it is
// a no-op, matching the spec's "harmless outside an active hold" posture
// for the orchestrator's cleanup path.
func (a *Adapter) Release(tid identifier.TID, pldmType uint8) {
	a.reservation.mu.Lock()
	defer a.reservation.mu.Unlock()
	if !a.reservation.active {
		return
	}
	if a.reservation.ownerTID != tid || a.reservation.ownerType != pldmType {
		return
	}
	a.reservation.active = false
	observability.SetReservationHeld(uint8(tid), pldmType, false)
}

// checkReservation returns ErrReservationHeld if a different (tid,pldmType)
// currently holds the bandwidth reservation.
func (a *Adapter) checkReservation(tid identifier.TID, pldmType uint8) error {
	a.reservation.mu.Lock()
	defer a.reservation.mu.Unlock()
	if !a.reservation.active {
		return nil
	}
	if a.reservation.ownerTID == tid && a.reservation.ownerType == pldmType {
		return nil
	}
	return fmt.Errorf("%w: held by tid=%d type=%d", pldmerr.ErrReservationHeld, a.reservation.ownerTID, a.reservation.ownerType)
}
