package replay

import "math"

// KD-Bot (.kd): a bare f32 FPS header followed by fixed 6-byte records.

func parseKDBot(data []byte) (parseResult, error) {
	var res parseResult
	r := newByteReader(data)

	fps := float64(r.f32le())
	if !r.ok() {
		return res, formatErrorf(FormatKDBot, "%v", r.err())
	}
	if fps <= 0 || math.IsNaN(fps) {
		return res, formatErrorf(FormatKDBot, "invalid fps %g", fps)
	}

	res.fps = fps
	for r.remaining() >= 6 {
		frame := r.u32le()
		hold := r.u8()
		p2 := r.u8()
		res.events = append(res.events, rawEvent{
			frame:   frame,
			down:    hold != 0,
			player2: p2 != 0,
		})
	}
	return res, nil
}
