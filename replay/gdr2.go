package replay

import (
	"bytes"
	"unicode/utf8"
)

// GDR 2 replaces the MessagePack container with a compact big-endian binary
// layout: varint-coded metadata, a skippable extension section, death frames
// and two delta-coded input streams (player 1 first, then player 2). An
// extension tag of "Phys" attaches a physics trailer to every input.

const gdr2Version = 2

func parseGDR2(data []byte) (parseResult, error) {
	var res parseResult
	r := newByteReader(data)

	if !bytes.Equal(r.bytes(3), []byte("GDR")) {
		if !r.ok() {
			return res, formatErrorf(FormatGDR2, "%v", r.err())
		}
		return res, formatErrorf(FormatGDR2, "bad magic, want \"GDR\"")
	}
	version := r.uvarint(32)
	if !r.ok() {
		return res, formatErrorf(FormatGDR2, "version: %v", r.err())
	}
	if version != gdr2Version {
		return res, formatErrorf(FormatGDR2, "unsupported version %d", version)
	}

	extTag, err := gdr2String(r)
	if err != nil {
		return res, formatErrorf(FormatGDR2, "extension tag: %v", err)
	}
	hasExt := extTag != ""
	physics := extTag == "Phys"

	// metadata: author, description, duration, game version, framerate,
	// seed, coins, ldm, platformer, bot, level
	if _, err := gdr2String(r); err != nil {
		return res, formatErrorf(FormatGDR2, "author: %v", err)
	}
	if _, err := gdr2String(r); err != nil {
		return res, formatErrorf(FormatGDR2, "description: %v", err)
	}
	r.f32be()       // duration
	r.uvarint(32)   // game version
	fps := r.f64be()
	r.uvarint(32)   // seed
	r.uvarint(32)   // coins
	r.u8()          // ldm
	platformer := r.u8() != 0
	if _, err := gdr2String(r); err != nil {
		return res, formatErrorf(FormatGDR2, "bot name: %v", err)
	}
	r.uvarint(32) // bot version
	r.uvarint(32) // level id
	if _, err := gdr2String(r); err != nil {
		return res, formatErrorf(FormatGDR2, "level name: %v", err)
	}

	extSize := r.uvarint(32)
	r.skip(int(extSize))

	deathCount := r.uvarint(32)
	var prevDeath uint64
	for i := uint64(0); i < deathCount && r.ok(); i++ {
		prevDeath += r.uvarint(32)
		res.deaths = append(res.deaths, uint32(prevDeath))
	}

	total := r.uvarint(32)
	p1Count := r.uvarint(32)
	if !r.ok() {
		return res, formatErrorf(FormatGDR2, "header: %v", r.err())
	}
	if fps <= 0 {
		return res, formatErrorf(FormatGDR2, "invalid framerate %g", fps)
	}
	if p1Count > total {
		return res, formatErrorf(FormatGDR2, "player 1 input count %d exceeds total %d", p1Count, total)
	}
	res.fps = fps

	readInputs := func(count uint64, player2 bool) error {
		var prev uint64
		for i := uint64(0); i < count; i++ {
			packed := r.uvarint(64)
			if !r.ok() {
				return r.err()
			}

			ev := rawEvent{player2: player2}
			if platformer {
				prev += packed >> 3
				ev.button = Button((packed >> 1) & 0b11)
				ev.down = packed&1 != 0
			} else {
				prev += packed >> 1
				ev.down = packed&1 != 0
			}
			ev.frame = uint32(prev)

			if hasExt {
				extLen := int(r.uvarint(32))
				if physics && extLen >= 28 {
					ev.x = float64(r.f32be())
					ev.y = float64(r.f32be())
					ev.rot = float64(r.f32be())
					r.f64be() // x velocity
					ev.yaccel = r.f64be()
					r.skip(extLen - 28)
				} else {
					r.skip(extLen)
				}
				if !r.ok() {
					return r.err()
				}
			}
			res.events = append(res.events, ev)
		}
		return nil
	}

	if err := readInputs(p1Count, false); err != nil {
		return res, formatErrorf(FormatGDR2, "player 1 inputs: %v", err)
	}
	if err := readInputs(total-p1Count, true); err != nil {
		return res, formatErrorf(FormatGDR2, "player 2 inputs: %v", err)
	}
	return res, nil
}

// gdr2String reads a varint-length-prefixed UTF-8 string. Lengths above
// 64 KiB mark a corrupt file.
func gdr2String(r *byteReader) (string, error) {
	n := r.uvarint(32)
	if !r.ok() {
		return "", r.err()
	}
	if n > 0xFFFF {
		return "", errStringTooLong
	}
	b := r.bytes(int(n))
	if !r.ok() {
		return "", r.err()
	}
	if !utf8.Valid(b) {
		return "", errInvalidUTF8
	}
	return string(b), nil
}
