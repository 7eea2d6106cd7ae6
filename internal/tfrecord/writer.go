package tfrecord

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
)

type Writer struct {
	w      *bufio.Writer
	enc    io.WriteCloser
	header [headerSize]byte
	footer [footerSize]byte
	n      int
	closed bool
}

func NewWriter(w io.Writer, c Compression) (*Writer, error) {
	wr := &Writer{}
	switch c {
	case None, "":
		wr.w = bufio.NewWriter(w)
	case Gzip:
		wr.enc = gzip.NewWriter(w)
		wr.w = bufio.NewWriter(wr.enc)
	case Zlib:
		wr.enc = zlib.NewWriter(w)
		wr.w = bufio.NewWriter(wr.enc)
	default:
		return nil, fmt.Errorf("tfrecord: unsupported compression %q", c)
	}
	return wr, nil
}

// Write frames one payload.
func (w *Writer) Write(data []byte) error {
	if w.closed {
		return errors.New("tfrecord: write on closed writer")
	}
	putHeader(w.header[:], len(data))
	binary.LittleEndian.PutUint32(w.footer[:], maskedCRC(data))
	if _, err := w.w.Write(w.header[:]); err != nil {
		return err
	}
	if _, err := w.w.Write(data); err != nil {
		return err
	}
	if _, err := w.w.Write(w.footer[:]); err != nil {
		return err
	}
	w.n++
	return nil
}

func (w *Writer) Count() int { return w.n }

// Close flushes buffered records and finishes the compressed stream. It is
// idempotent and does not close the underlying writer.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	err := w.w.Flush()
	if w.enc != nil {
		err = errors.Join(err, w.enc.Close())
	}
	return err
}
