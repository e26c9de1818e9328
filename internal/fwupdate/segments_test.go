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

func deviceInitiatedHeader(command uint8) wire.Header {
	return wire.Header{Request: true, InstanceID: 0, PLDMType: codec.PldmTypeFirmwareUpdate, Command: command}
}

// encodeSegmentRequest builds the wire payload DecodeGetPackageDataRequest
// expects: [op-flag, little-endian handle] (internal/codec/fwupdate.go).
func encodeSegmentRequest(t *testing.T, flag uint8, handle uint32) []byte {
	t.Helper()
	buf := make([]byte, 5)
	buf[0] = flag
	binary.LittleEndian.PutUint32(buf[1:5], handle)
	return buf
}

type decodedSegmentResponse struct {
	completionCode uint8
	nextHandle     uint32
	transferFlag   codec.TransferFlag
	data           []byte
}

func decodeSegmentResponse(t *testing.T, raw []byte) decodedSegmentResponse {
	t.Helper()
	msg, err := wire.DecodeMessage(raw)
	if err != nil {
		t.Fatalf("decode response message: %v", err)
	}
	p := msg.Payload
	if len(p) < 6 {
		t.Fatalf("segment response too short: %d bytes", len(p))
	}
	return decodedSegmentResponse{
		completionCode: p[0],
		nextHandle:     binary.LittleEndian.Uint32(p[1:5]),
		transferFlag:   codec.TransferFlag(p[5]),
		data:           p[6:],
	}
}

// TestServeSegmentsDeliversEveryChunk drives serveSegments through a
// four-chunk package-data transfer and checks the final chunk carries
// TransferFlagEnd and the whole payload round-trips intact (spec §4.4
// Phase B, §8 property 5).
func TestServeSegmentsDeliversEveryChunk(t *testing.T) {
	idents := identifier.NewService()
	tid := identifier.TID(7)
	idents.Bind(tid, identifier.EID(70))
	ft := &fakePacketTransport{}
	adapter := transport.New(ft, idents)

	data := make([]byte, 100)
	for i := range data {
		data[i] = byte(i)
	}
	const chunkSize = 32

	var mu sync.Mutex
	var responses []decodedSegmentResponse
	ft.onSend = func(raw []byte) {
		mu.Lock()
		responses = append(responses, decodeSegmentResponse(t, raw))
		mu.Unlock()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- serveSegments(context.Background(), adapter, tid, codec.CmdGetPackageData, data, chunkSize, func() context.Context {
			c, _ := context.WithTimeout(context.Background(), 2*time.Second)
			return c
		})
	}()

	// Give serveSegments time to register its awaiter; a request delivered
	// before that is dropped by the adapter.
	time.Sleep(20 * time.Millisecond)
	offsets := []uint32{0, 32, 64, 96}
	for i, off := range offsets {
		flag := codec.TransferOpGetFirstPart
		handle := off
		if i > 0 {
			flag = codec.TransferOpGetNextPart // resume at the handle the prior response returned.
		}
		reqPayload := encodeSegmentRequest(t, flag, handle)
		ft.deliver(identifier.EID(70), encodeTestMessage(t, deviceInitiatedHeader(codec.CmdGetPackageData), reqPayload))
		time.Sleep(20 * time.Millisecond)
	}

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("serveSegments returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("serveSegments did not complete")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(responses) != len(offsets) {
		t.Fatalf("got %d responses, want %d", len(responses), len(offsets))
	}
	var reassembled []byte
	for _, r := range responses {
		reassembled = append(reassembled, r.data...)
	}
	if string(reassembled) != string(data) {
		t.Fatalf("reassembled data mismatch: got %d bytes, want %d", len(reassembled), len(data))
	}
	last := responses[len(responses)-1]
	if last.transferFlag != codec.TransferFlagEnd && last.transferFlag != codec.TransferFlagStartAndEnd {
		t.Fatalf("final segment transfer flag = %v, want End", last.transferFlag)
	}
	if last.nextHandle != 0 {
		t.Fatalf("final segment next handle = %d, want 0", last.nextHandle)
	}
}

// TestServeSegmentsRestartsOnGetFirstPart verifies a GetFirstPart
// delivered mid-stream restarts serving at offset 0 without breaking
// eventual completion once every chunk has genuinely been requested
// (spec §8 property 5: "a GetFirstPart at any point restarts at offset
// 0").
func TestServeSegmentsRestartsOnGetFirstPart(t *testing.T) {
	idents := identifier.NewService()
	tid := identifier.TID(8)
	idents.Bind(tid, identifier.EID(80))
	ft := &fakePacketTransport{}
	adapter := transport.New(ft, idents)

	data := make([]byte, 64)
	for i := range data {
		data[i] = byte(i + 1)
	}
	const chunkSize = 32

	var mu sync.Mutex
	var responses []decodedSegmentResponse
	ft.onSend = func(raw []byte) {
		mu.Lock()
		responses = append(responses, decodeSegmentResponse(t, raw))
		mu.Unlock()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- serveSegments(context.Background(), adapter, tid, codec.CmdGetPackageData, data, chunkSize, func() context.Context {
			c, _ := context.WithTimeout(context.Background(), 2*time.Second)
			return c
		})
	}()

	// First chunk, then a spurious GetFirstPart restart that is served the
	// first chunk again, then the second (final) chunk. The initial sleep
	// lets serveSegments register its awaiter before the first request.
	time.Sleep(20 * time.Millisecond)
	ft.deliver(identifier.EID(80), encodeTestMessage(t, deviceInitiatedHeader(codec.CmdGetPackageData), encodeSegmentRequest(t, codec.TransferOpGetFirstPart, 0)))
	time.Sleep(20 * time.Millisecond)
	ft.deliver(identifier.EID(80), encodeTestMessage(t, deviceInitiatedHeader(codec.CmdGetPackageData), encodeSegmentRequest(t, codec.TransferOpGetFirstPart, 0)))
	time.Sleep(20 * time.Millisecond)
	ft.deliver(identifier.EID(80), encodeTestMessage(t, deviceInitiatedHeader(codec.CmdGetPackageData), encodeSegmentRequest(t, codec.TransferOpGetNextPart, 32)))
	time.Sleep(20 * time.Millisecond)

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("serveSegments returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("serveSegments did not complete")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(responses) != 3 {
		t.Fatalf("got %d responses, want 3 (restart replays offset 0)", len(responses))
	}
	if string(responses[0].data) != string(responses[1].data) {
		t.Fatalf("restarted request did not replay the same first chunk")
	}
}
