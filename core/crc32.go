package core

import "hash/crc32"

// CRC32 computes the IEEE CRC32 of buf in one call. It exists
// alongside CRC32Incremental so both call paths spec §8's round-trip
// law ("GetCRC(vec) == GetCRC(buf, len)") are exercised: a battery
// file or ROM is frequently hashed in one shot, while a ROM streamed
// from a multi-part archive is hashed incrementally as each chunk
// arrives.
func CRC32(buf []byte) uint32 {
	return crc32.ChecksumIEEE(buf)
}

// CRC32Incremental folds buf into a running CRC32 value seeded by
// prev (pass 0 for the first chunk). CRC32Incremental(0, a) followed
// by CRC32Incremental(that, b) equals CRC32(append(a, b...)) for any
// split of the input.
func CRC32Incremental(prev uint32, buf []byte) uint32 {
	return crc32.Update(prev, crc32.IEEETable, buf)
}
