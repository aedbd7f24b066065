package mavlink

// x25Init is the initial value of the MAVLink checksum (CRC-16/MCRF4XX).
const x25Init = 0xFFFF

// x25 accumulates data into the running CRC-16/MCRF4XX checksum.
func x25(data []byte, crc uint16) uint16 {
	for _, b := range data {
		tmp := b ^ uint8(crc&0xFF)
		tmp ^= tmp << 4
		crc = (crc >> 8) ^ (uint16(tmp) << 8) ^ (uint16(tmp) << 3) ^ (uint16(tmp) >> 4)
	}
	return crc
}
