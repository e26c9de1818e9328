package fwupdate

import (
	"context"
	"encoding/binary"
	"sync"
	"testing"
	"time"

	"github.com/openpldm/pldmd/internal/codec"
	"github.com/openpldm/pldmd/internal/identifier"
	"github.com/openpldm/pldmd/internal/transport"
	"github.com/openpldm/pldmd/internal/wire"
)

// fakePacketTransport is a local stand-in for transport.PacketTransport:
// Send invokes a test-scripted responder, and deliver feeds a raw frame
// back into the adapter as if it had arrived off the wire.
type fakePacketTransport struct {
	mu     sync.Mutex
	cb     transport.ReceiveFunc
	onSend func(raw []byte)
}

func (f *fakePacketTransport) Send(ctx context.Context, eid identifier.EID, messageTag uint8, tagOwner bool, payload []byte) error {
	f.mu.Lock()
	hook := f.onSend
	f.mu.Unlock()
	if hook != nil {
		hook(payload)
	}
	return nil
}

func (f *fakePacketTransport) SetReceiveCallback(cb transport.ReceiveFunc) { f.cb = cb }

func (f *fakePacketTransport) deliver(eid identifier.EID, payload []byte) {
	f.cb(eid, 0, true, payload)
}

func encodeTestMessage(t *testing.T, h wire.Header, payload []byte) []byte {
	t.Helper()
	raw, err := wire.EncodeMessage(wire.Message{Header: h, Payload: payload})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return raw
}

type fakeImage struct {
	versionString string
	componentSize uint32
	componentData []byte
}

func (f *fakeImage) PackageDataLength() uint16                       { return 0 }
func (f *fakeImage) PackageData(ctx context.Context) ([]byte, error) { return nil, nil }
func (f *fakeImage) ComponentImageSetVersionString() (uint8, string) { return 1, f.versionString }
func (f *fakeImage) ApplicableComponents() []ComponentDescriptor {
	return []ComponentDescriptor{{Index: 0, Classification: 10, Identifier: 1, Size: f.componentSize, VersionString: f.versionString}}
}
func (f *fakeImage) ReadComponentBytes(ctx context.Context, idx int, offset, length uint32) ([]byte, error) {
	end := offset + length
	if end > uint32(len(f.componentData)) {
		end = uint32(len(f.componentData))
	}
	return f.componentData[offset:end], nil
}

type fakePublication struct {
	mu         sync.Mutex
	progress   []int
	activation *bool
}

func (p *fakePublication) ReportProgress(tid uint8, componentIndex int, percent int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.progress = append(p.progress, percent)
}
func (p *fakePublication) SetActivation(tid uint8, active bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v := active
	p.activation = &v
}

// TestHappyPathSingleComponentReachesActivate drives one device through
// requester phases A and D, a two-segment download, and success
// completions for transfer/verify/apply/activate (spec §8 scenario S1).
func TestHappyPathSingleComponentReachesActivate(t *testing.T) {
	idents := identifier.NewService()
	tid := identifier.TID(4)
	if err := idents.Bind(tid, identifier.EID(40)); err != nil {
		t.Fatalf("bind: %v", err)
	}
	ft := &fakePacketTransport{}
	adapter := transport.New(ft, idents)

	ft.onSend = func(raw []byte) {
		msg, err := wire.DecodeMessage(raw)
		if err != nil {
			t.Errorf("decode sent: %v", err)
			return
		}
		if !msg.Header.Request {
			return // responder-role answers to device-initiated requests
		}
		respHeader := wire.Header{Request: false, InstanceID: msg.Header.InstanceID, PLDMType: msg.Header.PLDMType, Command: msg.Header.Command}

		var respPayload []byte
		switch msg.Header.Command {
		case codec.CmdRequestUpdate:
			respPayload = []byte{codec.CcSuccess, 0, 0, 0}
		case codec.CmdPassComponentTable:
			respPayload = []byte{codec.CcSuccess, 0x00}
		case codec.CmdUpdateComponent:
			respPayload = []byte{codec.CcSuccess, codec.ComponentCanBeUpdated}
		case codec.CmdCancelUpdateComponent, codec.CmdCancelUpdate:
			respPayload = []byte{codec.CcSuccess}
		case codec.CmdActivateFirmware:
			estimated := make([]byte, 2)
			binary.LittleEndian.PutUint16(estimated, 5)
			respPayload = append([]byte{codec.CcSuccess}, estimated...)
		default:
			t.Errorf("unexpected requester-role command sent: 0x%02x", msg.Header.Command)
			return
		}
		go ft.deliver(identifier.EID(40), encodeTestMessage(t, respHeader, respPayload))
	}

	image := &fakeImage{versionString: "1.0", componentSize: 64, componentData: make([]byte, 64)}
	pub := &fakePublication{}
	orch := NewOrchestrator(adapter, pub)

	go func() {
		time.Sleep(30 * time.Millisecond)
		ft.deliver(identifier.EID(40), encodeTestMessage(t,
			wire.Header{Request: true, PLDMType: codec.PldmTypeFirmwareUpdate, Command: codec.CmdRequestFirmwareData},
			encodeRequestFirmwareData(0, 32)))

		time.Sleep(20 * time.Millisecond)
		ft.deliver(identifier.EID(40), encodeTestMessage(t,
			wire.Header{Request: true, PLDMType: codec.PldmTypeFirmwareUpdate, Command: codec.CmdRequestFirmwareData},
			encodeRequestFirmwareData(32, 32)))

		time.Sleep(20 * time.Millisecond)
		ft.deliver(identifier.EID(40), encodeTestMessage(t,
			wire.Header{Request: true, PLDMType: codec.PldmTypeFirmwareUpdate, Command: codec.CmdTransferComplete},
			[]byte{codec.TransferResultSuccess}))

		time.Sleep(20 * time.Millisecond)
		ft.deliver(identifier.EID(40), encodeTestMessage(t,
			wire.Header{Request: true, PLDMType: codec.PldmTypeFirmwareUpdate, Command: codec.CmdVerifyComplete},
			[]byte{codec.VerifyResultSuccess}))

		time.Sleep(20 * time.Millisecond)
		ft.deliver(identifier.EID(40), encodeTestMessage(t,
			wire.Header{Request: true, PLDMType: codec.PldmTypeFirmwareUpdate, Command: codec.CmdApplyComplete},
			[]byte{codec.ApplyResultSuccess}))
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	result, err := orch.Run(ctx, tid, 0, image)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Succeeded {
		t.Fatalf("expected success")
	}
	if result.AppliedComponents != 1 {
		t.Fatalf("applied components = %d, want 1", result.AppliedComponents)
	}
	if result.EstimatedActivationSecs != 5 {
		t.Fatalf("estimated activation = %d, want 5", result.EstimatedActivationSecs)
	}
	if pub.activation == nil || !*pub.activation {
		t.Fatalf("expected activation published true")
	}
}

func encodeRequestFirmwareData(offset, length uint32) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint32(buf[0:4], offset)
	binary.LittleEndian.PutUint32(buf[4:8], length)
	return buf
}

// TestRequestUpdateRetriesThenSucceeds drives scenario S2: the device
// answers RequestUpdate with RetryRequestUpdate twice before Success, and
// phase A must wait out RetryRequestForUpdateDelay between attempts rather
// than surfacing an error.
func TestRequestUpdateRetriesThenSucceeds(t *testing.T) {
	idents := identifier.NewService()
	tid := identifier.TID(7)
	if err := idents.Bind(tid, identifier.EID(70)); err != nil {
		t.Fatalf("bind: %v", err)
	}
	ft := &fakePacketTransport{}
	adapter := transport.New(ft, idents)

	var mu sync.Mutex
	requestUpdateAttempts := 0

	ft.onSend = func(raw []byte) {
		msg, err := wire.DecodeMessage(raw)
		if err != nil {
			t.Errorf("decode sent: %v", err)
			return
		}
		if !msg.Header.Request {
			return // responder-role answers to device-initiated requests
		}
		respHeader := wire.Header{Request: false, InstanceID: msg.Header.InstanceID, PLDMType: msg.Header.PLDMType, Command: msg.Header.Command}

		var respPayload []byte
		switch msg.Header.Command {
		case codec.CmdRequestUpdate:
			mu.Lock()
			requestUpdateAttempts++
			attempt := requestUpdateAttempts
			mu.Unlock()
			if attempt <= 2 {
				respPayload = []byte{codec.CcRetryRequestUpdate}
			} else {
				respPayload = []byte{codec.CcSuccess, 0, 0, 0}
			}
		case codec.CmdPassComponentTable:
			respPayload = []byte{codec.CcSuccess, 0x00}
		case codec.CmdUpdateComponent:
			respPayload = []byte{codec.CcSuccess, codec.ComponentCanBeUpdated}
		case codec.CmdCancelUpdateComponent, codec.CmdCancelUpdate:
			respPayload = []byte{codec.CcSuccess}
		case codec.CmdActivateFirmware:
			estimated := make([]byte, 2)
			binary.LittleEndian.PutUint16(estimated, 1)
			respPayload = append([]byte{codec.CcSuccess}, estimated...)
		default:
			t.Errorf("unexpected requester-role command sent: 0x%02x", msg.Header.Command)
			return
		}
		go ft.deliver(identifier.EID(70), encodeTestMessage(t, respHeader, respPayload))
	}

	image := &fakeImage{versionString: "1.0", componentSize: 32, componentData: make([]byte, 32)}
	pub := &fakePublication{}
	orch := NewOrchestrator(adapter, pub)

	go func() {
		time.Sleep(2*RetryRequestForUpdateDelay + 30*time.Millisecond)
		ft.deliver(identifier.EID(70), encodeTestMessage(t,
			wire.Header{Request: true, PLDMType: codec.PldmTypeFirmwareUpdate, Command: codec.CmdRequestFirmwareData},
			encodeRequestFirmwareData(0, 32)))

		time.Sleep(20 * time.Millisecond)
		ft.deliver(identifier.EID(70), encodeTestMessage(t,
			wire.Header{Request: true, PLDMType: codec.PldmTypeFirmwareUpdate, Command: codec.CmdTransferComplete},
			[]byte{codec.TransferResultSuccess}))

		time.Sleep(20 * time.Millisecond)
		ft.deliver(identifier.EID(70), encodeTestMessage(t,
			wire.Header{Request: true, PLDMType: codec.PldmTypeFirmwareUpdate, Command: codec.CmdVerifyComplete},
			[]byte{codec.VerifyResultSuccess}))

		time.Sleep(20 * time.Millisecond)
		ft.deliver(identifier.EID(70), encodeTestMessage(t,
			wire.Header{Request: true, PLDMType: codec.PldmTypeFirmwareUpdate, Command: codec.CmdApplyComplete},
			[]byte{codec.ApplyResultSuccess}))
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*RetryRequestForUpdateDelay+5*time.Second)
	defer cancel()
	result, err := orch.Run(ctx, tid, 0, image)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Succeeded {
		t.Fatalf("expected success after retries")
	}
	mu.Lock()
	attempts := requestUpdateAttempts
	mu.Unlock()
	if attempts != 3 {
		t.Fatalf("request_update attempts = %d, want 3", attempts)
	}
}
