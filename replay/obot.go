package replay

import "bytes"

// Three generations of bots share the .replay extension. ReplayBot carries
// an "RPLY" magic; oBot 2 serializes a tagged structure whose leading type
// tag can be validated; anything else is treated as oBot 3.

// oBot 2 click-type tags.
const (
	obot2ClickNone = iota
	obot2ClickFPSChange
	obot2ClickP1Down
	obot2ClickP1Up
	obot2ClickP2Down
	obot2ClickP2Up
)

// looksLikeOBot2 checks the fixed-width fields an oBot 2 payload starts
// with: a replay-type tag of 0 or 1 and a click count that fits the
// remaining bytes.
func looksLikeOBot2(data []byte) bool {
	const headerLen = 4 + 4 + 4 + 8 + 8 // fps, fps, type tag, click index, count
	if len(data) < headerLen {
		return false
	}
	r := newByteReader(data)
	r.skip(8)
	typeTag := r.u32le()
	r.skip(8)
	count := r.u64le()
	if typeTag > 1 {
		return false
	}
	// the smallest click record is 12 bytes
	return count <= uint64(r.remaining())/12
}

func parseOBot2(data []byte) (parseResult, error) {
	var res parseResult
	r := newByteReader(data)

	initialFPS := float64(r.f32le())
	r.skip(4) // current fps at save time
	typeTag := r.u32le()
	r.skip(8) // current click index
	count := r.u64le()
	if !r.ok() {
		return res, formatErrorf(FormatOBot2, "header: %v", r.err())
	}
	if typeTag == 0 {
		return res, formatErrorf(FormatOBot2, "x-position replays don't store frames")
	}
	if typeTag != 1 {
		return res, formatErrorf(FormatOBot2, "unknown replay type tag %d", typeTag)
	}
	if initialFPS <= 0 {
		return res, formatErrorf(FormatOBot2, "invalid fps %g", initialFPS)
	}

	res.fps = initialFPS
	fps := initialFPS
	for i := uint64(0); i < count; i++ {
		locTag := r.u32le()
		locValue := r.u32le()
		clickTag := r.u32le()
		if !r.ok() {
			return res, formatErrorf(FormatOBot2, "click %d: %v", i, r.err())
		}
		if locTag != 1 {
			// x-position click inside a frame replay; skip it
			continue
		}

		time := float64(locValue) / fps
		switch clickTag {
		case obot2ClickNone:
		case obot2ClickFPSChange:
			newFPS := float64(r.f32le())
			if !r.ok() {
				return res, formatErrorf(FormatOBot2, "click %d: %v", i, r.err())
			}
			if newFPS > 0 {
				fps = newFPS
			}
		case obot2ClickP1Down, obot2ClickP1Up:
			res.events = append(res.events, rawEvent{
				byTime: true,
				time:   time,
				frame:  locValue,
				down:   clickTag == obot2ClickP1Down,
			})
		case obot2ClickP2Down, obot2ClickP2Up:
			res.events = append(res.events, rawEvent{
				byTime:  true,
				time:    time,
				frame:   locValue,
				down:    clickTag == obot2ClickP2Down,
				player2: true,
			})
		default:
			return res, formatErrorf(FormatOBot2, "click %d: unknown click type tag %d", i, clickTag)
		}
	}
	return res, nil
}

// oBot 3 drops the location enum: every click is a raw frame plus a
// click-type tag, with the fps-change payload inline.
const (
	obot3ClickNone = iota
	obot3ClickP1Down
	obot3ClickP1Up
	obot3ClickP2Down
	obot3ClickP2Up
	obot3ClickFPSChange
)

func parseOBot3(data []byte) (parseResult, error) {
	var res parseResult
	r := newByteReader(data)

	initialFPS := float64(r.f32le())
	r.skip(4) // current fps at save time
	count := r.u64le()
	if !r.ok() {
		return res, formatErrorf(FormatOBot3, "header: %v", r.err())
	}
	if initialFPS <= 0 {
		return res, formatErrorf(FormatOBot3, "invalid fps %g", initialFPS)
	}

	res.fps = initialFPS
	fps := initialFPS
	for i := uint64(0); i < count; i++ {
		frame := r.u32le()
		clickTag := r.u32le()
		if !r.ok() {
			return res, formatErrorf(FormatOBot3, "click %d: %v", i, r.err())
		}

		time := float64(frame) / fps
		switch clickTag {
		case obot3ClickNone:
		case obot3ClickFPSChange:
			newFPS := float64(r.f32le())
			if !r.ok() {
				return res, formatErrorf(FormatOBot3, "click %d: %v", i, r.err())
			}
			if newFPS > 0 {
				fps = newFPS
			}
		case obot3ClickP1Down, obot3ClickP1Up:
			res.events = append(res.events, rawEvent{
				byTime: true,
				time:   time,
				frame:  frame,
				down:   clickTag == obot3ClickP1Down,
			})
		case obot3ClickP2Down, obot3ClickP2Up:
			res.events = append(res.events, rawEvent{
				byTime:  true,
				time:    time,
				frame:   frame,
				down:    clickTag == obot3ClickP2Down,
				player2: true,
			})
		default:
			return res, formatErrorf(FormatOBot3, "click %d: unknown click type tag %d", i, clickTag)
		}
	}
	return res, nil
}

// ReplayBot's v1 stored x-positions and can't be rendered; v2 stores frames.
func parseReplayBot(data []byte) (parseResult, error) {
	var res parseResult
	r := newByteReader(data)

	if !bytes.Equal(r.bytes(4), []byte("RPLY")) {
		if !r.ok() {
			return res, formatErrorf(FormatReplayBot, "%v", r.err())
		}
		return res, formatErrorf(FormatReplayBot, "bad magic, want \"RPLY\"")
	}
	version := r.u8()
	fps := float64(r.f32le())
	if !r.ok() {
		return res, formatErrorf(FormatReplayBot, "header: %v", r.err())
	}
	switch version {
	case 1:
		return res, formatErrorf(FormatReplayBot, "version 1 stores x-positions, not frames")
	case 2:
	default:
		return res, formatErrorf(FormatReplayBot, "unsupported version %d", version)
	}
	if fps <= 0 {
		return res, formatErrorf(FormatReplayBot, "invalid fps %g", fps)
	}

	res.fps = fps
	for r.remaining() > 0 {
		if r.remaining() < 5 {
			return res, formatErrorf(FormatReplayBot, "trailing partial record: %v", errTruncated)
		}
		frame := r.u32le()
		state := r.u8()
		res.events = append(res.events, rawEvent{
			frame:   frame,
			down:    state&0b01 != 0,
			player2: state&0b10 != 0,
		})
	}
	return res, nil
}
