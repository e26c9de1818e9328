package fwupdate

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/openpldm/pldmd/internal/codec"
	"github.com/openpldm/pldmd/internal/identifier"
	"github.com/openpldm/pldmd/internal/transport"
	"github.com/rs/zerolog/log"
)

// reservationHandle owns the renewal timer for one session's bandwidth
// hold (spec §4.4 "Bandwidth reservation", §8 property 6).
type reservationHandle struct {
	mu       sync.Mutex
	transport *transport.Adapter
	tid      identifier.TID
	timer    *time.Timer
	released bool
}

// holdSeconds computes ⌈3 × (1 + updatableImageSize / 2730)⌉ (spec §4.4).
func holdSeconds(updatableImageSize uint32) int {
	return int(math.Ceil(3 * (1 + float64(updatableImageSize)/2730)))
}

// acquireReservation claims the transport for (tid, firmware-update) and
// schedules a renewal at hold-5s, recursing on each renewal (spec §4.4).
func acquireReservation(t *transport.Adapter, tid identifier.TID, updatableImageSize uint32) (*reservationHandle, error) {
	hold := holdSeconds(updatableImageSize)
	if err := t.Reserve(tid, codec.PldmTypeFirmwareUpdate); err != nil {
		return nil, err
	}
	h := &reservationHandle{transport: t, tid: tid}
	h.scheduleRenewal(time.Duration(hold)*time.Second, updatableImageSize)
	return h, nil
}

func (h *reservationHandle) scheduleRenewal(hold time.Duration, updatableImageSize uint32) {
	lead := hold - RenewalLeadTime
	if lead < 0 {
		lead = 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return
	}
	h.timer = time.AfterFunc(lead, func() {
		h.mu.Lock()
		released := h.released
		h.mu.Unlock()
		if released {
			return
		}
		if err := h.transport.Reserve(h.tid, codec.PldmTypeFirmwareUpdate); err != nil {
			log.Warn().Uint8("tid", uint8(h.tid)).Err(err).Msg("fwupdate: reservation renewal failed")
			return
		}
		h.scheduleRenewal(holdDuration(updatableImageSize), updatableImageSize)
	})
}

func holdDuration(updatableImageSize uint32) time.Duration {
	return time.Duration(holdSeconds(updatableImageSize)) * time.Second
}

// release cancels the renewal timer and releases the reservation exactly
// once (spec §8 property 6: "release is invoked exactly once").
func (h *reservationHandle) release(_ context.Context) {
	h.mu.Lock()
	if h.released {
		h.mu.Unlock()
		return
	}
	h.released = true
	if h.timer != nil {
		h.timer.Stop()
	}
	h.mu.Unlock()
	h.transport.Release(h.tid, codec.PldmTypeFirmwareUpdate)
}
