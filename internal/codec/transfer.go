package codec

// ComputeTransferFlag implements the transfer-flag function from spec §8
// property 4: Start iff offset=0 and more data follows; Middle iff
// offset>0 and more data follows; End iff offset>0 and this segment
// reaches size; StartAndEnd iff offset=0 and this segment reaches size
// (including the size=0 degenerate case — spec §9 open question (a)).
func ComputeTransferFlag(offset, length, size uint32) TransferFlag {
	reachesEnd := offset+length >= size
	switch {
	case offset == 0 && !reachesEnd:
		return TransferFlagStart
	case offset > 0 && !reachesEnd:
		return TransferFlagMiddle
	case offset > 0 && reachesEnd:
		return TransferFlagEnd
	default:
		return TransferFlagStartAndEnd
	}
}

// crc8Table is the CRC-8/SMBUS table (polynomial 0x07), used for the
// one-byte checksum over multi-part PDR record payloads (spec §4.3).
var crc8Table = func() [256]byte {
	var table [256]byte
	for i := 0; i < 256; i++ {
		crc := byte(i)
		for bit := 0; bit < 8; bit++ {
			if crc&0x80 != 0 {
				crc = (crc << 1) ^ 0x07
			} else {
				crc <<= 1
			}
		}
		table[i] = crc
	}
	return table
}()

// CRC8 computes the CRC-8/SMBUS checksum over data, matching the one-byte
// CRC validated at the End segment of a multi-part PDR record transfer
// (spec §4.3, §8 property 3).
func CRC8(data []byte) uint8 {
	var crc byte
	for _, b := range data {
		crc = crc8Table[crc^b]
	}
	return crc
}
