package codec

import "testing"

func TestComputeTransferFlagMatchesSpecFunction(t *testing.T) {
	cases := []struct {
		offset, length, size uint32
		want                 TransferFlag
	}{
		{0, 10, 100, TransferFlagStart},
		{10, 10, 100, TransferFlagMiddle},
		{90, 10, 100, TransferFlagEnd},
		{0, 100, 100, TransferFlagStartAndEnd},
		{0, 0, 0, TransferFlagStartAndEnd},
	}
	for _, c := range cases {
		got := ComputeTransferFlag(c.offset, c.length, c.size)
		if got != c.want {
			t.Errorf("ComputeTransferFlag(%d,%d,%d)=%v want %v", c.offset, c.length, c.size, got, c.want)
		}
	}
}

func TestCRC8KnownVector(t *testing.T) {
	if got := CRC8(nil); got != 0 {
		t.Fatalf("CRC8(nil)=%d want 0", got)
	}
	a := CRC8([]byte("pldm"))
	b := CRC8([]byte("pldm"))
	if a != b {
		t.Fatalf("CRC8 not deterministic: %d vs %d", a, b)
	}
	c := CRC8([]byte("pldn"))
	if a == c {
		t.Fatalf("CRC8 collided on single-byte change")
	}
}

func TestGetPDRResponseSplitsTrailingCrcOnlyOnEnd(t *testing.T) {
	payload := make([]byte, 0, 32)
	payload = append(payload, CcSuccess)
	payload = appendU32(payload, 0)
	payload = appendU32(payload, 0)
	payload = append(payload, byte(TransferFlagEnd))
	data := []byte{0xAA, 0xBB, 0xCC}
	crc := CRC8(data)
	segment := append(append([]byte{}, data...), crc)
	payload = appendU16(payload, uint16(len(segment)))
	payload = append(payload, segment...)

	resp, err := DecodeGetPDRResponse(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.HasCrc || resp.Crc != crc {
		t.Fatalf("expected crc=%d, got hasCrc=%v crc=%d", crc, resp.HasCrc, resp.Crc)
	}
	if string(resp.Data) != string(data) {
		t.Fatalf("data mismatch: %v vs %v", resp.Data, data)
	}
}

func TestRequestUpdateRoundTripsVersionString(t *testing.T) {
	req := RequestUpdateRequest{
		MaxTransferSize:           32,
		NumberOfComponents:        1,
		MaxOutstandingTransferReq: 1,
		PackageDataLength:         0,
		ComponentImageSetVersionStringType: 1,
		ComponentImageSetVersionString:     "1.2.3",
	}
	raw, err := EncodeRequestUpdateRequest(req)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	wantLen := 4 + 2 + 1 + 2 + 1 + 1 + len(req.ComponentImageSetVersionString)
	if len(raw) != wantLen {
		t.Fatalf("encoded length=%d want=%d", len(raw), wantLen)
	}
}
