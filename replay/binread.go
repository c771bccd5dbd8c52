package replay

import (
	"encoding/binary"
	"errors"
	"math"
)

// errTruncated marks a payload that ended before its structure did.
var errTruncated = errors.New("unexpected end of data")

var (
	errStringTooLong = errors.New("string too long")
	errInvalidUTF8   = errors.New("invalid utf-8")
)

// byteReader is a bounds-checked cursor over a replay payload. Reads past
// the end set a sticky failure flag and return zero values, so decoders can
// read a whole record group and check once.
type byteReader struct {
	data   []byte
	pos    int
	failed bool
}

func newByteReader(data []byte) *byteReader {
	return &byteReader{data: data}
}

func (r *byteReader) ok() bool {
	return !r.failed
}

func (r *byteReader) err() error {
	if r.failed {
		return errTruncated
	}
	return nil
}

func (r *byteReader) remaining() int {
	return len(r.data) - r.pos
}

func (r *byteReader) seek(pos int) {
	if pos < 0 || pos > len(r.data) {
		r.failed = true
		return
	}
	r.pos = pos
}

func (r *byteReader) skip(n int) {
	r.seek(r.pos + n)
}

func (r *byteReader) bytes(n int) []byte {
	if n < 0 || r.remaining() < n {
		r.failed = true
		return nil
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b
}

func (r *byteReader) u8() uint8 {
	b := r.bytes(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *byteReader) u16le() uint16 {
	b := r.bytes(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (r *byteReader) i16le() int16 {
	return int16(r.u16le())
}

func (r *byteReader) u32le() uint32 {
	b := r.bytes(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *byteReader) i32le() int32 {
	return int32(r.u32le())
}

func (r *byteReader) u32be() uint32 {
	b := r.bytes(4)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}

func (r *byteReader) u64le() uint64 {
	b := r.bytes(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (r *byteReader) f32le() float32 {
	return math.Float32frombits(r.u32le())
}

func (r *byteReader) f32be() float32 {
	return math.Float32frombits(r.u32be())
}

func (r *byteReader) f64le() float64 {
	return math.Float64frombits(r.u64le())
}

func (r *byteReader) f64be() float64 {
	b := r.bytes(8)
	if b == nil {
		return 0
	}
	return math.Float64frombits(binary.BigEndian.Uint64(b))
}

// uvarint reads a little-endian base-128 varint: 7 bits per byte, low
// groups first, high bit marks continuation. maxBits bounds the accepted
// value width; wider encodings fail the reader.
func (r *byteReader) uvarint(maxBits uint) uint64 {
	var v uint64
	var shift uint
	for {
		if shift >= maxBits {
			r.failed = true
			return 0
		}
		b := r.u8()
		if r.failed {
			return 0
		}
		v |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return v
		}
		shift += 7
	}
}

// uleb128 reads the string-length encoding used by osu! replays.
func (r *byteReader) uleb128() uint64 {
	return r.uvarint(64)
}
