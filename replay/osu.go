package replay

import (
	"bytes"
	"io"
	"strconv"
	"strings"

	"github.com/ulikunitz/xz/lzma"
)

// osu! replays (.osr) run at a fixed 1000 ticks per second. The header is a
// sequence of optional length-prefixed strings and fixed-width fields; the
// input stream itself is an LZMA-compressed comma-separated list of
// "delta|keys|x|y" frames with cumulative millisecond timing.

const osuFPS = 1000

// osu mod bits that change playback speed.
const (
	osuModDoubleTime = 1 << 6
	osuModHalfTime   = 1 << 8
)

// osu key bits. Mouse and keyboard keys map onto the two players.
const (
	osuKeyM1 = 1 << 0
	osuKeyM2 = 1 << 1
	osuKeyK1 = 1 << 2
	osuKeyK2 = 1 << 3
)

func parseOsu(data []byte) (parseResult, error) {
	res := parseResult{timeBased: true, fps: osuFPS}
	r := newByteReader(data)

	r.skip(5) // game mode + game version
	for range 3 {
		// beatmap hash, player name, replay hash
		osuSkipString(r)
	}
	r.skip(20) // hit counts and score
	mods := r.i32le()
	osuSkipString(r) // life graph
	r.skip(8)        // timestamp
	dataLen := r.u32le()
	if !r.ok() {
		return res, formatErrorf(FormatOsuReplay, "header: %v", r.err())
	}

	speed := 1.0
	if mods&osuModDoubleTime != 0 {
		speed = 1.5
	} else if mods&osuModHalfTime != 0 {
		speed = 0.75
	}

	compressed := r.bytes(int(dataLen))
	if !r.ok() {
		return res, formatErrorf(FormatOsuReplay, "input stream: %v", r.err())
	}
	stream, err := osuDecompress(compressed)
	if err != nil {
		return res, formatErrorf(FormatOsuReplay, "decompress input stream: %v", err)
	}

	var current int64
	for _, entry := range strings.Split(string(stream), ",") {
		if entry == "" {
			continue
		}
		fields := strings.Split(entry, "|")
		if len(fields) < 2 {
			return res, formatErrorf(FormatOsuReplay, "malformed input frame %q", entry)
		}
		delta, err := strconv.ParseInt(fields[0], 10, 64)
		if err != nil {
			return res, formatErrorf(FormatOsuReplay, "invalid frame delta %q", fields[0])
		}
		if delta == -12345 {
			// rng seed frame at the end of the stream
			continue
		}
		keys, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return res, formatErrorf(FormatOsuReplay, "invalid key state %q", fields[1])
		}

		current += delta
		if current < 0 {
			continue
		}
		time := float64(current) * speed / osuFPS
		res.events = append(res.events, rawEvent{
			byTime: true,
			time:   time,
			down:   keys&(osuKeyM1|osuKeyK1) != 0,
		})
		res.events = append(res.events, rawEvent{
			byTime:  true,
			time:    time,
			down:    keys&(osuKeyM2|osuKeyK2) != 0,
			player2: true,
		})
	}
	return res, nil
}

// osuSkipString skips one optional string: a 0x0b marker byte followed by a
// ULEB128 length and the payload; any other marker means the string is absent.
func osuSkipString(r *byteReader) {
	if r.u8() != 0x0b {
		return
	}
	n := r.uleb128()
	r.skip(int(n))
}

// osuDecompress tries the classic LZMA container first and falls back to
// LZMA2, matching the encoders seen in the wild.
func osuDecompress(data []byte) ([]byte, error) {
	if rd, err := lzma.NewReader(bytes.NewReader(data)); err == nil {
		if out, err := io.ReadAll(rd); err == nil {
			return out, nil
		}
	}
	rd, err := lzma.NewReader2(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return io.ReadAll(rd)
}
