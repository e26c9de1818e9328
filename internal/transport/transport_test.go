package transport

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/openpldm/pldmd/internal/identifier"
	"github.com/openpldm/pldmd/internal/pldmerr"
	"github.com/openpldm/pldmd/internal/wire"
)

// fakeTransport is an in-memory PacketTransport for tests. onSend, if set,
// runs synchronously inside Send and can push bytes back in via deliver.
type fakeTransport struct {
	mu      sync.Mutex
	sent    [][]byte
	cb      ReceiveFunc
	sendErr error
	onSend  func(raw []byte)
}

func (f *fakeTransport) Send(ctx context.Context, eid identifier.EID, messageTag uint8, tagOwner bool, payload []byte) error {
	f.mu.Lock()
	f.sent = append(f.sent, payload)
	hook := f.onSend
	f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	if hook != nil {
		hook(payload)
	}
	return nil
}

func (f *fakeTransport) SetReceiveCallback(cb ReceiveFunc) {
	f.cb = cb
}

func (f *fakeTransport) deliver(eid identifier.EID, payload []byte) {
	f.cb(eid, 0, true, payload)
}

func newTestAdapter(t *testing.T) (*Adapter, *fakeTransport, identifier.TID) {
	t.Helper()
	idents := identifier.NewService()
	tid := identifier.TID(1)
	if err := idents.Bind(tid, identifier.EID(9)); err != nil {
		t.Fatalf("bind: %v", err)
	}
	ft := &fakeTransport{}
	a := New(ft, idents)
	return a, ft, tid
}

func encodeResponse(t *testing.T, h wire.Header, payload []byte) []byte {
	t.Helper()
	raw, err := wire.EncodeMessage(wire.Message{Header: h, Payload: payload})
	if err != nil {
		t.Fatalf("encode response: %v", err)
	}
	return raw
}

func TestSendRequestHappyPath(t *testing.T) {
	a, ft, tid := newTestAdapter(t)
	ft.onSend = func(raw []byte) {
		msg, err := wire.DecodeMessage(raw)
		if err != nil {
			t.Fatalf("decode sent: %v", err)
		}
		resp := wire.Header{Request: false, InstanceID: msg.Header.InstanceID, PLDMType: msg.Header.PLDMType, Command: msg.Header.Command}
		go ft.deliver(identifier.EID(9), encodeResponse(t, resp, []byte{0x00}))
	}

	resp, err := a.SendRequest(context.Background(), tid, Request{PLDMType: 2, Command: 1, Payload: nil}, 200*time.Millisecond, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Payload) != 1 || resp.Payload[0] != 0x00 {
		t.Fatalf("unexpected payload: %v", resp.Payload)
	}
}

func TestSendRequestRetriesOnInstanceIDMismatch(t *testing.T) {
	a, ft, tid := newTestAdapter(t)
	var attempts int
	ft.onSend = func(raw []byte) {
		attempts++
		msg, err := wire.DecodeMessage(raw)
		if err != nil {
			t.Fatalf("decode sent: %v", err)
		}
		if attempts == 1 {
			// Stale reply from an earlier exchange: wrong instance id.
			stale := wire.Header{Request: false, InstanceID: (msg.Header.InstanceID + 1) & 0x1F, PLDMType: msg.Header.PLDMType, Command: msg.Header.Command}
			go ft.deliver(identifier.EID(9), encodeResponse(t, stale, []byte{0xFF}))
			return
		}
		resp := wire.Header{Request: false, InstanceID: msg.Header.InstanceID, PLDMType: msg.Header.PLDMType, Command: msg.Header.Command}
		go ft.deliver(identifier.EID(9), encodeResponse(t, resp, []byte{0x00}))
	}

	resp, err := a.SendRequest(context.Background(), tid, Request{PLDMType: 2, Command: 1, Payload: nil}, 200*time.Millisecond, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts < 2 {
		t.Fatalf("expected at least 2 attempts, got %d", attempts)
	}
	if resp.Payload[0] != 0x00 {
		t.Fatalf("unexpected payload: %v", resp.Payload)
	}
}

func TestSendRequestTimesOutWithNoReply(t *testing.T) {
	a, _, tid := newTestAdapter(t)
	_, err := a.SendRequest(context.Background(), tid, Request{PLDMType: 2, Command: 1}, 20*time.Millisecond, 0)
	if !errors.Is(err, pldmerr.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestSendRequestRejectedByForeignReservation(t *testing.T) {
	a, _, tid := newTestAdapter(t)
	other := identifier.TID(2)
	if err := a.Reserve(other, 5); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	_, err := a.SendRequest(context.Background(), tid, Request{PLDMType: 5, Command: 1}, 20*time.Millisecond, 0)
	if !errors.Is(err, pldmerr.ErrReservationHeld) {
		t.Fatalf("expected ErrReservationHeld, got %v", err)
	}
}

func TestReserveRenewalBySameOwnerSucceeds(t *testing.T) {
	a, _, tid := newTestAdapter(t)
	if err := a.Reserve(tid, 5); err != nil {
		t.Fatalf("first reserve: %v", err)
	}
	if err := a.Reserve(tid, 5); err != nil {
		t.Fatalf("renewal should succeed: %v", err)
	}
}

func TestReleaseByNonOwnerIsNoop(t *testing.T) {
	a, _, tid := newTestAdapter(t)
	other := identifier.TID(2)
	if err := a.Reserve(tid, 5); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	a.Release(other, 5)
	if err := a.checkReservation(other, 5); err == nil {
		t.Fatalf("expected reservation still held after non-owner release")
	}
}

func TestDroppedPacketsDoNotPanic(t *testing.T) {
	a, ft, _ := newTestAdapter(t)
	ft.deliver(identifier.EID(200), []byte{0x01, 0x00, 0x00, 0x00, 0x00}) // unmapped eid
	ft.cb(identifier.EID(9), 0, false, []byte{0x01})                     // tagOwner clear
	ft.deliver(identifier.EID(9), []byte{0xFF})                          // malformed
	_ = a
}

func TestAwaitRequestReceivesDeviceInitiatedRequest(t *testing.T) {
	a, ft, tid := newTestAdapter(t)
	reqHeader := wire.Header{Request: true, InstanceID: 3, PLDMType: 6, Command: 9}
	raw := encodeResponse(t, reqHeader, []byte{0x01})

	go func() {
		time.Sleep(10 * time.Millisecond)
		ft.deliver(identifier.EID(9), raw)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	msg, err := a.AwaitRequest(ctx, tid, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.Header.Command != 9 {
		t.Fatalf("unexpected command: %d", msg.Header.Command)
	}
}

func TestAwaitRequestSecondCallerRejectedWhileBusy(t *testing.T) {
	a, _, tid := newTestAdapter(t)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	started := make(chan struct{})
	go func() {
		close(started)
		_, _ = a.AwaitRequest(ctx, tid, nil)
	}()
	<-started
	time.Sleep(10 * time.Millisecond)

	_, err := a.AwaitRequest(context.Background(), tid, nil)
	if !errors.Is(err, pldmerr.ErrSessionRunning) {
		t.Fatalf("expected ErrSessionRunning, got %v", err)
	}
}
