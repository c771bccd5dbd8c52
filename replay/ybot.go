package replay

import "math"

// yBot wrote two generations of replays: the frame format (.ybf) with fixed
// 8-byte records, and the ybot2 container (.ybot) with a metadata region,
// length-prefixed blobs and a varint-packed action stream.

func parseYBotFrame(data []byte) (parseResult, error) {
	var res parseResult
	r := newByteReader(data)

	fps := float64(r.f32le())
	count := r.i32le()
	if !r.ok() {
		return res, formatErrorf(FormatYBotFrame, "%v", r.err())
	}
	if fps <= 0 || math.IsNaN(fps) {
		return res, formatErrorf(FormatYBotFrame, "invalid fps %g", fps)
	}
	if count < 0 {
		return res, formatErrorf(FormatYBotFrame, "negative action count %d", count)
	}

	res.fps = fps
	for i := int32(0); i < count; i++ {
		frame := r.u32le()
		what := r.u32le()
		if !r.ok() {
			return res, formatErrorf(FormatYBotFrame, "record %d: %v", i, r.err())
		}
		res.events = append(res.events, rawEvent{
			frame:   frame,
			down:    what&0b10 != 0,
			player2: what&0b01 != 0,
		})
	}
	return res, nil
}

const ybot2HeaderLen = 16

// ybot2 metadata field offsets inside the meta region.
const (
	ybot2MetaFPSOffset = 24
	ybot2MetaFPSSize   = 4
)

func parseYBot2(data []byte) (parseResult, error) {
	var res parseResult
	r := newByteReader(data)

	if string(r.bytes(4)) != "ybot" {
		if !r.ok() {
			return res, formatErrorf(FormatYBot2, "%v", r.err())
		}
		return res, formatErrorf(FormatYBot2, "bad magic, want \"ybot\"")
	}
	r.skip(4) // version
	metaLength := r.u32le()
	blobCount := r.u32le()
	if !r.ok() {
		return res, formatErrorf(FormatYBot2, "header: %v", r.err())
	}

	// fps lives in the meta region; fields beyond its length are absent
	fps := float64(0)
	if int(metaLength) >= ybot2MetaFPSOffset+ybot2MetaFPSSize {
		r.seek(ybot2HeaderLen + ybot2MetaFPSOffset)
		fps = float64(r.f32le())
	}

	// skip meta and blobs; the action stream is the remainder
	r.seek(ybot2HeaderLen + int(metaLength))
	for i := uint32(0); i < blobCount; i++ {
		blobLen := r.u32le()
		r.skip(int(blobLen))
	}
	if !r.ok() {
		return res, formatErrorf(FormatYBot2, "blob table: %v", r.err())
	}

	if math.IsNaN(fps) || fps < 0 {
		fps = 0
	}
	res.fps = fps

	// Actions are u64 varints: low four bits are flags, the rest a frame
	// delta. Flags with zero button bits announce an fps change and are
	// followed by a raw f32.
	var time float64
	haveFPS := fps > 0
	for r.remaining() > 0 {
		val := r.uvarint(64)
		if !r.ok() {
			return res, formatErrorf(FormatYBot2, "action stream: %v", r.err())
		}
		flags := val & 0b1111
		delta := val >> 4

		button := uint8(flags >> 2)
		if button == 0 {
			newFPS := float64(r.f32le())
			if !r.ok() {
				return res, formatErrorf(FormatYBot2, "fps change: %v", r.err())
			}
			if haveFPS {
				time += float64(delta) / fps
			}
			if newFPS > 0 && !math.IsNaN(newFPS) {
				fps = newFPS
				if !haveFPS {
					res.fps = fps
				}
				haveFPS = true
			}
			continue
		}
		if !haveFPS {
			return res, formatErrorf(FormatYBot2, "action before any fps value")
		}

		time += float64(delta) / fps
		res.events = append(res.events, rawEvent{
			byTime:  true,
			time:    time,
			frame:   uint32(math.Round(time * res.fps)),
			down:    flags&0b10 != 0,
			player2: flags&0b01 == 0,
			button:  Button(button),
		})
	}
	return res, nil
}
