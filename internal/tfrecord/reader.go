package tfrecord

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"iter"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
)

// Reader decodes records one at a time. It never holds more than one payload.
type Reader struct {
	r      *bufio.Reader
	dec    io.Closer
	header [headerSize]byte
	footer [footerSize]byte
	n      int
}

func NewReader(r io.Reader, c Compression) (*Reader, error) {
	rd := &Reader{}
	switch c {
	case None, "":
		rd.r = bufio.NewReader(r)
	case Gzip:
		zr, err := gzip.NewReader(bufio.NewReader(r))
		if err != nil {
			return nil, fmt.Errorf("tfrecord: gzip: %w", err)
		}
		rd.r, rd.dec = bufio.NewReader(zr), zr
	case Zlib:
		zr, err := zlib.NewReader(bufio.NewReader(r))
		if err != nil {
			return nil, fmt.Errorf("tfrecord: zlib: %w", err)
		}
		rd.r, rd.dec = bufio.NewReader(zr), zr
	default:
		return nil, fmt.Errorf("tfrecord: unsupported compression %q", c)
	}
	return rd, nil
}

// Next returns the next payload, or io.EOF after the last complete record.
func (r *Reader) Next() ([]byte, error) {
	if _, err := io.ReadFull(r.r, r.header[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, r.corrupt("truncated header: %v", err)
	}
	if binary.LittleEndian.Uint32(r.header[8:]) != maskedCRC(r.header[:8]) {
		return nil, r.corrupt("length checksum mismatch")
	}
	size := binary.LittleEndian.Uint64(r.header[:8])
	if size > maxRecord {
		return nil, r.corrupt("record length %d too large", size)
	}

	data := make([]byte, size)
	if _, err := io.ReadFull(r.r, data); err != nil {
		return nil, r.corrupt("truncated payload: %v", err)
	}
	if _, err := io.ReadFull(r.r, r.footer[:]); err != nil {
		return nil, r.corrupt("truncated footer: %v", err)
	}
	if binary.LittleEndian.Uint32(r.footer[:]) != maskedCRC(data) {
		return nil, r.corrupt("payload checksum mismatch")
	}
	r.n++
	return data, nil
}

// Records yields payloads until the end of the stream. Iteration stops after
// the first error, which is yielded with a nil payload.
func (r *Reader) Records() iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		for {
			data, err := r.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(data, err) || err != nil {
				return
			}
		}
	}
}

// Count is the number of records read so far.
func (r *Reader) Count() int { return r.n }

// Close releases the decompressor. The underlying reader is left open.
func (r *Reader) Close() error {
	if r.dec != nil {
		return r.dec.Close()
	}
	return nil
}

func (r *Reader) corrupt(format string, args ...any) error {
	return fmt.Errorf("%w: record %d: %s", ErrCorrupt, r.n, fmt.Sprintf(format, args...))
}
