package replay

// ReplayEngine went through three record layouts: single-player 5-byte
// records (.re), 18-byte records with physics and an explicit player byte
// (.re2), and two per-player record blocks (.re3).

func parseReplayEngine(data []byte) (parseResult, error) {
	var res parseResult
	r := newByteReader(data)

	fps := float64(r.f32le())
	count := r.u32le()
	if !r.ok() {
		return res, formatErrorf(FormatReplayEngine, "header: %v", r.err())
	}
	if fps <= 0 {
		return res, formatErrorf(FormatReplayEngine, "invalid fps %g", fps)
	}

	res.fps = fps
	for i := uint32(0); i < count; i++ {
		frame := r.u32le()
		hold := r.u8()
		if !r.ok() {
			return res, formatErrorf(FormatReplayEngine, "record %d: %v", i, r.err())
		}
		// the format records a single implicit player
		res.events = append(res.events, rawEvent{
			frame: frame,
			down:  hold != 0,
		})
	}
	return res, nil
}

func parseReplayEngine2(data []byte) (parseResult, error) {
	var res parseResult
	r := newByteReader(data)

	fps := float64(r.f32le())
	count := r.u32le()
	if !r.ok() {
		return res, formatErrorf(FormatReplayEngine2, "header: %v", r.err())
	}
	if fps <= 0 {
		return res, formatErrorf(FormatReplayEngine2, "invalid fps %g", fps)
	}

	res.fps = fps
	for i := uint32(0); i < count; i++ {
		frame := r.u32le()
		x := r.f32le()
		y := r.f32le()
		rot := r.f32le()
		hold := r.u8()
		p2 := r.u8()
		if !r.ok() {
			return res, formatErrorf(FormatReplayEngine2, "record %d: %v", i, r.err())
		}
		res.events = append(res.events, rawEvent{
			frame:   frame,
			down:    hold != 0,
			player2: p2 != 0,
			x:       float64(x),
			y:       float64(y),
			rot:     float64(rot),
		})
	}
	return res, nil
}

func parseReplayEngine3(data []byte) (parseResult, error) {
	var res parseResult
	r := newByteReader(data)

	fps := float64(r.f32le())
	if !r.ok() {
		return res, formatErrorf(FormatReplayEngine3, "header: %v", r.err())
	}
	if fps <= 0 {
		return res, formatErrorf(FormatReplayEngine3, "invalid fps %g", fps)
	}
	res.fps = fps

	for _, p2 := range []bool{false, true} {
		count := r.u32le()
		if !r.ok() {
			return res, formatErrorf(FormatReplayEngine3, "block header: %v", r.err())
		}
		for i := uint32(0); i < count; i++ {
			frame := r.u32le()
			hold := r.u8()
			if !r.ok() {
				return res, formatErrorf(FormatReplayEngine3, "record %d: %v", i, r.err())
			}
			res.events = append(res.events, rawEvent{
				frame:   frame,
				down:    hold != 0,
				player2: p2,
			})
		}
	}
	return res, nil
}
