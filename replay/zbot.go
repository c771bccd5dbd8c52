package replay

// zBot frame replays: two f32 header fields (frame delta and speedhack
// factor) followed by 6-byte records until end of file.

func parseZBot(data []byte) (parseResult, error) {
	var res parseResult
	r := newByteReader(data)

	delta := float64(r.f32le())
	speedhack := float64(r.f32le())
	if !r.ok() {
		return res, formatErrorf(FormatZBot, "%v", r.err())
	}
	if delta <= 0 {
		return res, formatErrorf(FormatZBot, "invalid frame delta %g", delta)
	}
	if speedhack == 0 {
		// a zeroed speedhack factor would make the fps infinite
		speedhack = 1
	}
	res.fps = 1 / delta / speedhack

	for r.remaining() > 0 {
		if r.remaining() < 6 {
			return res, formatErrorf(FormatZBot, "trailing partial record: %v", errTruncated)
		}
		frame := r.i32le()
		down := r.u8() == 0x31
		p1 := r.u8() == 0x31
		if frame < 0 {
			return res, formatErrorf(FormatZBot, "negative frame %d", frame)
		}
		res.events = append(res.events, rawEvent{
			frame:   uint32(frame),
			down:    down,
			player2: !p1,
		})
	}
	return res, nil
}
