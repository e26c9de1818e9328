package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/openpldm/pldmd/internal/identifier"
	"github.com/openpldm/pldmd/internal/observability"
	"github.com/openpldm/pldmd/internal/pldmerr"
	"github.com/openpldm/pldmd/internal/wire"
	"github.com/rs/zerolog/log"
)

// Request is one outgoing requester-role command.
type Request struct {
	PLDMType uint8
	Command  uint8
	Payload  []byte
}

// Response is a matched, validated reply to a Request.
type Response struct {
	Header  wire.Header
	Payload []byte
}

// MaxRetries is the hard cap on send_request retries (spec §4.1).
const MaxRetries = 5

type pendingEntry struct {
	instanceID uint8
	command    uint8
	replyCh    chan wire.Message
}

type pendingRequests struct {
	mu    sync.Mutex
	byTID map[identifier.TID]*pendingEntry
}

func newPendingRequests() pendingRequests {
	return pendingRequests{byTID: make(map[identifier.TID]*pendingEntry)}
}

// SendRequest sends a request to tid and awaits a correlated response,
// retrying on timeout/malformed/mismatched replies up to retries (capped at
// MaxRetries), per spec §4.1.
func (a *Adapter) SendRequest(ctx context.Context, tid identifier.TID, req Request, timeout time.Duration, retries int) (Response, error) {
	if retries > MaxRetries {
		retries = MaxRetries
	}
	if retries < 0 {
		retries = 0
	}
	if err := a.checkReservation(tid, req.PLDMType); err != nil {
		return Response{}, err
	}
	eid, ok := a.idents.EIDFor(tid)
	if !ok {
		return Response{}, fmt.Errorf("%w: tid=%d", pldmerr.ErrNoRoute, tid)
	}

	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		resp, err := a.sendOneAttempt(ctx, tid, eid, req, timeout)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		log.Debug().
			Uint8("tid", uint8(tid)).
			Int("attempt", attempt+1).
			Err(err).
			Msg("transport: send_request attempt failed")
		if attempt < retries {
			observability.RecordCommandRetry(uint8(tid), req.PLDMType, req.Command)
		}
	}
	return Response{}, fmt.Errorf("%w: tid=%d after %d attempts: %v", pldmerr.ErrTimeout, tid, retries+1, lastErr)
}

// isMatchingResponse reports whether resp correlates to a request sent with
// req's header: same instance id, same PLDM type and command, and the
// response bit set (spec §8 property 2 — mismatched instance ids are
// discarded, not treated as the awaited reply).
func isMatchingResponse(req, resp wire.Header) bool {
	if resp.Request {
		return false
	}
	return resp.InstanceID == req.InstanceID && resp.PLDMType == req.PLDMType && resp.Command == req.Command
}

func (a *Adapter) sendOneAttempt(ctx context.Context, tid identifier.TID, eid identifier.EID, req Request, timeout time.Duration) (Response, error) {
	instanceID := a.idents.NextInstanceID(tid)
	header := wire.Header{Request: true, InstanceID: instanceID, PLDMType: req.PLDMType, Command: req.Command}
	raw, err := wire.EncodeMessage(wire.Message{Header: header, Payload: req.Payload})
	if err != nil {
		return Response{}, fmt.Errorf("%w: %v", pldmerr.ErrMalformed, err)
	}

	entry := &pendingEntry{instanceID: instanceID, command: req.Command, replyCh: make(chan wire.Message, 1)}
	a.pending.mu.Lock()
	a.pending.byTID[tid] = entry
	a.pending.mu.Unlock()
	defer func() {
		a.pending.mu.Lock()
		if a.pending.byTID[tid] == entry {
			delete(a.pending.byTID, tid)
		}
		a.pending.mu.Unlock()
	}()

	sendCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := a.transport.Send(sendCtx, eid, 0, true, raw); err != nil {
		return Response{}, fmt.Errorf("%w: %v", pldmerr.ErrTransport, err)
	}

	select {
	case msg := <-entry.replyCh:
		if !isMatchingResponse(header, msg.Header) {
			return Response{}, pldmerr.ErrMalformed
		}
		return Response{Header: msg.Header, Payload: msg.Payload}, nil
	case <-sendCtx.Done():
		if errors.Is(sendCtx.Err(), context.DeadlineExceeded) {
			return Response{}, pldmerr.ErrTimeout
		}
		return Response{}, sendCtx.Err()
	}
}
