// Package example models tf.Example records and their protobuf wire format.
package example

import (
	"bytes"
	"fmt"
	"slices"
)

type Kind int

const (
	KindNone Kind = iota
	KindBytes
	KindFloat
	KindInt64
)

func (k Kind) String() string {
	switch k {
	case KindBytes:
		return "bytes"
	case KindFloat:
		return "float"
	case KindInt64:
		return "int64"
	default:
		return "none"
	}
}

// Feature is an immutable list of values of a single kind. Constructors copy
// their input and accessors return copies, so a Feature can be shared freely
// between records.
type Feature struct {
	kind   Kind
	bytes  [][]byte
	floats []float32
	ints   []int64
}

func BytesFeature(v ...[]byte) Feature {
	cp := make([][]byte, len(v))
	for i, b := range v {
		cp[i] = bytes.Clone(b)
	}
	return Feature{kind: KindBytes, bytes: cp}
}

func StringFeature(v ...string) Feature {
	cp := make([][]byte, len(v))
	for i, s := range v {
		cp[i] = []byte(s)
	}
	return Feature{kind: KindBytes, bytes: cp}
}

func FloatFeature(v ...float32) Feature {
	return Feature{kind: KindFloat, floats: slices.Clone(v)}
}

func Int64Feature(v ...int64) Feature {
	return Feature{kind: KindInt64, ints: slices.Clone(v)}
}

func (f Feature) Kind() Kind { return f.kind }

func (f Feature) Len() int {
	switch f.kind {
	case KindBytes:
		return len(f.bytes)
	case KindFloat:
		return len(f.floats)
	case KindInt64:
		return len(f.ints)
	}
	return 0
}

func (f Feature) Bytes() [][]byte {
	out := make([][]byte, len(f.bytes))
	for i, b := range f.bytes {
		out[i] = bytes.Clone(b)
	}
	return out
}

func (f Feature) Floats() []float32 { return slices.Clone(f.floats) }
func (f Feature) Int64s() []int64   { return slices.Clone(f.ints) }

// Equal reports whether f and o hold the same kind and values.
func (f Feature) Equal(o Feature) bool {
	if f.kind != o.kind {
		return false
	}
	switch f.kind {
	case KindBytes:
		return slices.EqualFunc(f.bytes, o.bytes, bytes.Equal)
	case KindFloat:
		return slices.Equal(f.floats, o.floats)
	case KindInt64:
		return slices.Equal(f.ints, o.ints)
	}
	return true
}

func (f Feature) String() string {
	switch f.kind {
	case KindBytes:
		parts := make([]string, len(f.bytes))
		for i, b := range f.bytes {
			parts[i] = fmt.Sprintf("%q", b)
		}
		return fmt.Sprintf("bytes%v", parts)
	case KindFloat:
		return fmt.Sprintf("float%v", f.floats)
	case KindInt64:
		return fmt.Sprintf("int64%v", f.ints)
	}
	return "none[]"
}
