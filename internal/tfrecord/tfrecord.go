// Package tfrecord reads and writes the TFRecord container format: a sequence
// of length-prefixed payloads, each guarded by masked CRC32-C checksums, with
// optional whole-stream gzip or zlib compression.
package tfrecord

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"strings"
)

// ErrCorrupt is returned for truncated records and checksum mismatches.
var ErrCorrupt = errors.New("tfrecord: corrupt record")

type Compression string

const (
	None Compression = "none"
	Gzip Compression = "gzip"
	Zlib Compression = "zlib"
)

// ParseCompression accepts the TFRecordDataset compression names in any case;
// the empty string means None.
func ParseCompression(s string) (Compression, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return None, nil
	case "gzip":
		return Gzip, nil
	case "zlib":
		return Zlib, nil
	}
	return "", fmt.Errorf("tfrecord: unsupported compression %q", s)
}

const (
	headerSize = 12
	footerSize = 4
	maskDelta  = 0xa282ead8
	maxRecord  = 1 << 31
)

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

func maskedCRC(b []byte) uint32 {
	c := crc32.Checksum(b, castagnoli)
	return ((c >> 15) | (c << 17)) + maskDelta
}

func putHeader(dst []byte, n int) {
	binary.LittleEndian.PutUint64(dst[:8], uint64(n))
	binary.LittleEndian.PutUint32(dst[8:12], maskedCRC(dst[:8]))
}
