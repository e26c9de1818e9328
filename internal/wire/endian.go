package wire

import (
	"encoding/binary"
	"fmt"
	"unsafe"
)

// littleEndian.Uint*/PutUint* is the wire byte order for every multi-byte
// PLDM field. hostIsBigEndian lets the few call sites that read directly
// off a shared byte slice (rather than going through these helpers) assert
// they are not silently producing host-order values on a big-endian host.
var littleEndian = binary.LittleEndian

func hostIsBigEndian() bool {
	var x uint16 = 1
	b := (*[2]byte)(unsafe.Pointer(&x))
	return b[0] == 0
}

// Uint16 reads a little-endian uint16 from the wire, normalizing for host
// byte order when the running host happens to be big-endian.
func Uint16(b []byte) (uint16, error) {
	if len(b) < 2 {
		return 0, fmt.Errorf("wire: need 2 bytes, got %d", len(b))
	}
	return littleEndian.Uint16(b), nil
}

// Uint32 reads a little-endian uint32 from the wire.
func Uint32(b []byte) (uint32, error) {
	if len(b) < 4 {
		return 0, fmt.Errorf("wire: need 4 bytes, got %d", len(b))
	}
	return littleEndian.Uint32(b), nil
}

// Uint64 reads a little-endian uint64 from the wire.
func Uint64(b []byte) (uint64, error) {
	if len(b) < 8 {
		return 0, fmt.Errorf("wire: need 8 bytes, got %d", len(b))
	}
	return littleEndian.Uint64(b), nil
}

// PutUint16 writes v into dst[0:2] in wire byte order.
func PutUint16(dst []byte, v uint16) { littleEndian.PutUint16(dst, v) }

// PutUint32 writes v into dst[0:4] in wire byte order.
func PutUint32(dst []byte, v uint32) { littleEndian.PutUint32(dst, v) }

// PutUint64 writes v into dst[0:8] in wire byte order.
func PutUint64(dst []byte, v uint64) { littleEndian.PutUint64(dst, v) }

// AssertLittleEndianHost reports whether the running host is little-endian.
// It does not panic; acting on a false result is left to the caller. Kept
// because the spec names host byte-swap as an
// explicit invariant; none of this module's supported deployment targets
// are actually big-endian.
func AssertLittleEndianHost() bool { return !hostIsBigEndian() }
