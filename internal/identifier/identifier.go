// Package identifier allocates per-device rolling instance identifiers and
// maintains the bidirectional TID<->EID mapping (spec §2.2, §3).
package identifier

import (
	"fmt"
	"sync"
)

// TID is a logical device identifier. 0 and 0xFF are reserved and invalid.
type TID uint8

// EID is a transport-level endpoint identifier.
type EID uint8

const (
	minValidTID TID = 0x01
	maxValidTID TID = 0xFE
)

// ValidTID reports whether tid is usable as a live device identifier.
func ValidTID(tid TID) bool {
	return tid >= minValidTID && tid <= maxValidTID
}

// Service owns TID<->EID mapping and per-TID rolling instance-id counters.
// It is safe for concurrent use: the transport adapter's receive callback
// may run on a different goroutine than the session controller's main loop
// (spec §5).
type Service struct {
	mu        sync.Mutex
	tidToEID  map[TID]EID
	eidToTID  map[EID]TID
	instance  map[TID]uint8
}

// NewService returns an empty identifier service.
func NewService() *Service {
	return &Service{
		tidToEID: make(map[TID]EID),
		eidToTID: make(map[EID]TID),
		instance: make(map[TID]uint8),
	}
}

// Bind assigns tid to eid. It fails if either side is already bound to a
// different peer (spec §3: "At most one TID bound at a time").
func (s *Service) Bind(tid TID, eid EID) error {
	if !ValidTID(tid) {
		return fmt.Errorf("identifier: invalid tid %d", tid)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.eidToTID[eid]; ok && existing != tid {
		return fmt.Errorf("identifier: eid %d already bound to tid %d", eid, existing)
	}
	if existing, ok := s.tidToEID[tid]; ok && existing != eid {
		return fmt.Errorf("identifier: tid %d already bound to eid %d", tid, existing)
	}
	s.tidToEID[tid] = eid
	s.eidToTID[eid] = tid
	if _, ok := s.instance[tid]; !ok {
		s.instance[tid] = 0
	}
	return nil
}

// Unbind removes tid and its mapped eid, and frees its instance-id counter
// (spec §3: freed at device-remove).
func (s *Service) Unbind(tid TID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if eid, ok := s.tidToEID[tid]; ok {
		delete(s.eidToTID, eid)
	}
	delete(s.tidToEID, tid)
	delete(s.instance, tid)
}

// EIDFor resolves the transport endpoint bound to tid.
func (s *Service) EIDFor(tid TID) (EID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	eid, ok := s.tidToEID[tid]
	return eid, ok
}

// TIDFor resolves the logical device bound to eid. Used by the transport
// adapter to drop packets from endpoints with no mapped TID (spec §4.1).
func (s *Service) TIDFor(eid EID) (TID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tid, ok := s.eidToTID[eid]
	return tid, ok
}

// NextInstanceID returns the next instance id for tid and advances the
// 5-bit rolling counter (spec §8 property 1: wraps mod 32).
func (s *Service) NextInstanceID(tid TID) uint8 {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.instance[tid]
	s.instance[tid] = (cur + 1) % 32
	return cur
}
