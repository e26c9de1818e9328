package control

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/openpldm/pldmd/internal/codec"
	"github.com/openpldm/pldmd/internal/identifier"
	"github.com/openpldm/pldmd/internal/transport"
	"github.com/openpldm/pldmd/internal/wire"
)

// fakeTransport answers GetPDRRepositoryInfo with RepoStateFailed so PDR
// retrieval fails fast without exhausting retry/backoff timeouts, letting
// these tests exercise only the controller's own queueing/teardown logic.
type fakeTransport struct {
	mu sync.Mutex
	cb transport.ReceiveFunc
}

func (f *fakeTransport) Send(ctx context.Context, eid identifier.EID, messageTag uint8, tagOwner bool, payload []byte) error {
	msg, err := wire.DecodeMessage(payload)
	if err != nil {
		return err
	}
	if msg.Header.Command != codec.CmdGetPDRRepositoryInfo {
		return nil
	}
	respPayload := make([]byte, 14)
	respPayload[0] = codec.CcSuccess
	respPayload[1] = codec.RepoStateFailed
	respHeader := wire.Header{Request: false, InstanceID: msg.Header.InstanceID, PLDMType: msg.Header.PLDMType, Command: msg.Header.Command}
	raw, _ := wire.EncodeMessage(wire.Message{Header: respHeader, Payload: respPayload})
	go func() { f.cb(eid, 0, true, raw) }()
	return nil
}

func (f *fakeTransport) SetReceiveCallback(cb transport.ReceiveFunc) { f.cb = cb }

type recordingPlatform struct {
	mu     sync.Mutex
	paused []uint8
	resumed []uint8
}

func (p *recordingPlatform) PausePolling(tid uint8) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paused = append(p.paused, tid)
}
func (p *recordingPlatform) ResumePolling(tid uint8) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resumed = append(p.resumed, tid)
}

type noopPublication struct{}

func (noopPublication) ReportProgress(tid uint8, componentIndex int, percent int) {}
func (noopPublication) SetActivation(tid uint8, active bool)                     {}

func newTestController() (*Controller, *recordingPlatform) {
	idents := identifier.NewService()
	ft := &fakeTransport{}
	adapter := transport.New(ft, idents)
	plat := &recordingPlatform{}
	return New(adapter, idents, plat, noopPublication{}), plat
}

// TestAddDeviceProcessesFIFO verifies devices are registered in the exact
// order their device-added events were enqueued (spec.md §4.5 "serve
// FIFO").
func TestAddDeviceProcessesFIFO(t *testing.T) {
	c, _ := newTestController()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.serve(ctx)

	c.AddDevice(identifier.TID(1), identifier.EID(10), "")
	c.AddDevice(identifier.TID(2), identifier.EID(20), "")
	c.AddDevice(identifier.TID(3), identifier.EID(30), "")

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		c.mu.Lock()
		n := len(c.order)
		c.mu.Unlock()
		if n == 3 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	c.mu.Lock()
	order := append([]identifier.TID(nil), c.order...)
	c.mu.Unlock()
	want := []identifier.TID{1, 2, 3}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

// TestTeardownAllReversesDiscoveryOrder verifies full shutdown tears
// devices down in the reverse of their discovery order.
func TestTeardownAllReversesDiscoveryOrder(t *testing.T) {
	c, plat := newTestController()
	c.mu.Lock()
	for _, tid := range []identifier.TID{1, 2, 3} {
		c.order = append(c.order, tid)
		c.devices[tid] = &deviceState{tid: tid}
	}
	c.mu.Unlock()

	c.teardownAll(context.Background())

	plat.mu.Lock()
	defer plat.mu.Unlock()
	want := []uint8{3, 2, 1}
	if len(plat.resumed) != len(want) {
		t.Fatalf("resumed = %v, want %v", plat.resumed, want)
	}
	for i := range want {
		if plat.resumed[i] != want[i] {
			t.Fatalf("resumed = %v, want %v", plat.resumed, want)
		}
	}
}

// TestStartUpdateRejectsConcurrentSession verifies at most one update
// session runs at a time across every device (spec.md §5).
func TestStartUpdateRejectsConcurrentSession(t *testing.T) {
	c, _ := newTestController()
	if !c.updateMu.TryLock() {
		t.Fatalf("expected to acquire the update lock")
	}
	defer c.updateMu.Unlock()

	_, err := c.StartUpdate(context.Background(), identifier.TID(1), nil)
	if err == nil {
		t.Fatalf("expected ErrSessionRunning while another session holds the lock")
	}
}
