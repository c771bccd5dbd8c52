package replay

// Rush (.rsh): an i16 FPS header followed by 5-byte records with a packed
// state byte (bit 0 hold, bit 1 player 2).

func parseRush(data []byte) (parseResult, error) {
	var res parseResult
	r := newByteReader(data)

	fps := r.i16le()
	if !r.ok() {
		return res, formatErrorf(FormatRush, "%v", r.err())
	}
	if fps <= 0 {
		return res, formatErrorf(FormatRush, "invalid fps %d", fps)
	}

	res.fps = float64(fps)
	for r.remaining() >= 5 {
		frame := r.i32le()
		state := r.u8()
		if frame < 0 {
			return res, formatErrorf(FormatRush, "negative frame %d", frame)
		}
		res.events = append(res.events, rawEvent{
			frame:   uint32(frame),
			down:    state&0b01 != 0,
			player2: state&0b10 != 0,
		})
	}
	return res, nil
}
