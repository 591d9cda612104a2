package storage

import "encoding/binary"

// Bytes packs cm into the 20-byte little-endian wire layout.
func (cm CompressedMetric) Bytes() [CompressedMetricSize]byte {
	var b [CompressedMetricSize]byte
	binary.LittleEndian.PutUint32(b[0:4], cm.TimestampOffset)
	binary.LittleEndian.PutUint16(b[4:6], cm.CPU)
	binary.LittleEndian.PutUint32(b[6:10], cm.MemMB)
	binary.LittleEndian.PutUint16(b[10:12], cm.Threads)
	binary.LittleEndian.PutUint32(b[12:16], cm.JobsDone)
	binary.LittleEndian.PutUint16(b[16:18], cm.QueueDepth)
	binary.LittleEndian.PutUint16(b[18:20], cm.LatencyMs)
	return b
}

// CompressedMetricFromBytes unpacks the 20-byte little-endian wire layout
// produced by Bytes. The caller must supply exactly CompressedMetricSize
// bytes.
func CompressedMetricFromBytes(b []byte) CompressedMetric {
	return CompressedMetric{
		TimestampOffset: binary.LittleEndian.Uint32(b[0:4]),
		CPU:             binary.LittleEndian.Uint16(b[4:6]),
		MemMB:           binary.LittleEndian.Uint32(b[6:10]),
		Threads:         binary.LittleEndian.Uint16(b[10:12]),
		JobsDone:        binary.LittleEndian.Uint32(b[12:16]),
		QueueDepth:      binary.LittleEndian.Uint16(b[16:18]),
		LatencyMs:       binary.LittleEndian.Uint16(b[18:20]),
	}
}
