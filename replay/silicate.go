package replay

import (
	"bytes"
	"math"
)

// Silicate wrote two binary generations. The first (.slc) packs hold and
// player into one state byte; the second (.slc2) splits them out and adds a
// platformer button field. Both store the tick rate as an f64.

const slcMagic = 0x21434C53 // "SLC!"

func parseSilicate(data []byte) (parseResult, error) {
	var res parseResult
	r := newByteReader(data)

	if magic := r.u32le(); magic != slcMagic {
		if !r.ok() {
			return res, formatErrorf(FormatSilicate, "%v", r.err())
		}
		return res, formatErrorf(FormatSilicate, "bad magic 0x%08x, want \"SLC!\"", magic)
	}
	tps := r.f64le()
	count := r.u32le()
	if !r.ok() {
		return res, formatErrorf(FormatSilicate, "header: %v", r.err())
	}
	if tps <= 0 || math.IsNaN(tps) {
		return res, formatErrorf(FormatSilicate, "invalid tps %g", tps)
	}

	res.fps = tps
	for i := uint32(0); i < count; i++ {
		frame := r.u32le()
		state := r.u8()
		if !r.ok() {
			return res, formatErrorf(FormatSilicate, "record %d: %v", i, r.err())
		}
		res.events = append(res.events, rawEvent{
			frame:   frame,
			down:    state&0b01 != 0,
			player2: state&0b10 != 0,
		})
	}
	return res, nil
}

func parseSilicate2(data []byte) (parseResult, error) {
	var res parseResult
	r := newByteReader(data)

	if !bytes.Equal(r.bytes(4), []byte("SLC2")) {
		if !r.ok() {
			return res, formatErrorf(FormatSilicate2, "%v", r.err())
		}
		return res, formatErrorf(FormatSilicate2, "bad magic, want \"SLC2\"")
	}
	tps := r.f64le()
	count := r.u32le()
	if !r.ok() {
		return res, formatErrorf(FormatSilicate2, "header: %v", r.err())
	}
	if tps <= 0 || math.IsNaN(tps) {
		return res, formatErrorf(FormatSilicate2, "invalid tps %g", tps)
	}

	res.fps = tps
	for i := uint32(0); i < count; i++ {
		frame := r.u32le()
		button := r.u8()
		down := r.u8()
		p2 := r.u8()
		if !r.ok() {
			return res, formatErrorf(FormatSilicate2, "record %d: %v", i, r.err())
		}
		res.events = append(res.events, rawEvent{
			frame:   frame,
			down:    down != 0,
			player2: p2 != 0,
			button:  Button(button),
		})
	}
	return res, nil
}
