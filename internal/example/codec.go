package example

import (
	"errors"
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// ErrMalformed is returned when a payload is not a valid tf.Example message.
var ErrMalformed = errors.New("example: malformed message")

// Field numbers of tensorflow/core/example/{example,feature}.proto.
const (
	fieldExampleFeatures protowire.Number = 1
	fieldFeaturesMap     protowire.Number = 1
	fieldEntryKey        protowire.Number = 1
	fieldEntryValue      protowire.Number = 2
	fieldBytesList       protowire.Number = 1
	fieldFloatList       protowire.Number = 2
	fieldInt64List       protowire.Number = 3
	fieldListValue       protowire.Number = 1
)

// Marshal encodes e as a tf.Example. Map entries are written in sorted key
// order so output is deterministic.
func Marshal(e Example) []byte {
	var features []byte
	for _, name := range e.Names() {
		entry := protowire.AppendTag(nil, fieldEntryKey, protowire.BytesType)
		entry = protowire.AppendString(entry, name)
		entry = protowire.AppendTag(entry, fieldEntryValue, protowire.BytesType)
		entry = protowire.AppendBytes(entry, marshalFeature(e.features[name]))

		features = protowire.AppendTag(features, fieldFeaturesMap, protowire.BytesType)
		features = protowire.AppendBytes(features, entry)
	}
	out := protowire.AppendTag(nil, fieldExampleFeatures, protowire.BytesType)
	return protowire.AppendBytes(out, features)
}

func marshalFeature(f Feature) []byte {
	var list []byte
	var field protowire.Number
	switch f.kind {
	case KindBytes:
		field = fieldBytesList
		for _, b := range f.bytes {
			list = protowire.AppendTag(list, fieldListValue, protowire.BytesType)
			list = protowire.AppendBytes(list, b)
		}
	case KindFloat:
		field = fieldFloatList
		if len(f.floats) > 0 {
			packed := make([]byte, 0, 4*len(f.floats))
			for _, v := range f.floats {
				packed = protowire.AppendFixed32(packed, math.Float32bits(v))
			}
			list = protowire.AppendTag(list, fieldListValue, protowire.BytesType)
			list = protowire.AppendBytes(list, packed)
		}
	case KindInt64:
		field = fieldInt64List
		if len(f.ints) > 0 {
			var packed []byte
			for _, v := range f.ints {
				packed = protowire.AppendVarint(packed, uint64(v))
			}
			list = protowire.AppendTag(list, fieldListValue, protowire.BytesType)
			list = protowire.AppendBytes(list, packed)
		}
	default:
		return nil
	}
	out := protowire.AppendTag(nil, field, protowire.BytesType)
	return protowire.AppendBytes(out, list)
}

// Unmarshal decodes a tf.Example. Unknown fields are skipped; both packed and
// unpacked scalar lists are accepted.
func Unmarshal(b []byte) (Example, error) {
	features := make(map[string]Feature)
	err := walk(b, func(num protowire.Number, typ protowire.Type, v []byte) error {
		if num != fieldExampleFeatures || typ != protowire.BytesType {
			return nil
		}
		return walk(v, func(num protowire.Number, typ protowire.Type, v []byte) error {
			if num != fieldFeaturesMap || typ != protowire.BytesType {
				return nil
			}
			name, f, err := unmarshalEntry(v)
			if err != nil {
				return err
			}
			features[name] = f
			return nil
		})
	})
	if err != nil {
		return Example{}, err
	}
	return Example{features: features}, nil
}

func unmarshalEntry(b []byte) (string, Feature, error) {
	var (
		name string
		f    Feature
	)
	err := walk(b, func(num protowire.Number, typ protowire.Type, v []byte) error {
		if typ != protowire.BytesType {
			return nil
		}
		switch num {
		case fieldEntryKey:
			name = string(v)
		case fieldEntryValue:
			var err error
			if f, err = unmarshalFeature(v); err != nil {
				return fmt.Errorf("feature %q: %w", name, err)
			}
		}
		return nil
	})
	return name, f, err
}

func unmarshalFeature(b []byte) (Feature, error) {
	var f Feature
	err := walk(b, func(num protowire.Number, typ protowire.Type, v []byte) error {
		if typ != protowire.BytesType {
			return nil
		}
		var err error
		switch num {
		case fieldBytesList:
			f, err = unmarshalBytesList(v)
		case fieldFloatList:
			f, err = unmarshalFloatList(v)
		case fieldInt64List:
			f, err = unmarshalInt64List(v)
		}
		return err
	})
	return f, err
}

func unmarshalBytesList(b []byte) (Feature, error) {
	f := Feature{kind: KindBytes, bytes: [][]byte{}}
	err := walk(b, func(num protowire.Number, typ protowire.Type, v []byte) error {
		if num == fieldListValue && typ == protowire.BytesType {
			f.bytes = append(f.bytes, append([]byte(nil), v...))
		}
		return nil
	})
	return f, err
}

func unmarshalFloatList(b []byte) (Feature, error) {
	f := Feature{kind: KindFloat, floats: []float32{}}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return f, malformed(n)
		}
		b = b[n:]
		switch {
		case num == fieldListValue && typ == protowire.BytesType:
			packed, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return f, malformed(n)
			}
			b = b[n:]
			for len(packed) > 0 {
				v, m := protowire.ConsumeFixed32(packed)
				if m < 0 {
					return f, malformed(m)
				}
				packed = packed[m:]
				f.floats = append(f.floats, math.Float32frombits(v))
			}
		case num == fieldListValue && typ == protowire.Fixed32Type:
			v, n := protowire.ConsumeFixed32(b)
			if n < 0 {
				return f, malformed(n)
			}
			b = b[n:]
			f.floats = append(f.floats, math.Float32frombits(v))
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return f, malformed(n)
			}
			b = b[n:]
		}
	}
	return f, nil
}

func unmarshalInt64List(b []byte) (Feature, error) {
	f := Feature{kind: KindInt64, ints: []int64{}}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return f, malformed(n)
		}
		b = b[n:]
		switch {
		case num == fieldListValue && typ == protowire.BytesType:
			packed, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return f, malformed(n)
			}
			b = b[n:]
			for len(packed) > 0 {
				v, m := protowire.ConsumeVarint(packed)
				if m < 0 {
					return f, malformed(m)
				}
				packed = packed[m:]
				f.ints = append(f.ints, int64(v))
			}
		case num == fieldListValue && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return f, malformed(n)
			}
			b = b[n:]
			f.ints = append(f.ints, int64(v))
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return f, malformed(n)
			}
			b = b[n:]
		}
	}
	return f, nil
}

// walk visits every field of a message. Length-delimited values are passed as
// their payload; other values are skipped with a nil payload.
func walk(b []byte, fn func(protowire.Number, protowire.Type, []byte) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return malformed(n)
		}
		b = b[n:]
		if typ == protowire.BytesType {
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return malformed(n)
			}
			b = b[n:]
			if err := fn(num, typ, v); err != nil {
				return err
			}
			continue
		}
		n = protowire.ConsumeFieldValue(num, typ, b)
		if n < 0 {
			return malformed(n)
		}
		b = b[n:]
		if err := fn(num, typ, nil); err != nil {
			return err
		}
	}
	return nil
}

func malformed(n int) error {
	return fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
}
