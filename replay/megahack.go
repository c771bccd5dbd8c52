package replay

import (
	"bytes"
	"encoding/json"
)

// MegaHack replays come in a JSON flavor (.mhr.json) and a binary flavor
// (.mhr) with the "HACK" magic.

type mhrJSONFile struct {
	Meta struct {
		FPS float64 `json:"fps"`
	} `json:"meta"`
	Events []mhrJSONEvent `json:"events"`
}

type mhrJSONEvent struct {
	Frame uint32 `json:"frame"`
	Down  *bool  `json:"down"`
	P2    *bool  `json:"p2"`
}

func parseMHRJSON(data []byte) (parseResult, error) {
	var res parseResult
	var file mhrJSONFile
	if err := json.Unmarshal(data, &file); err != nil {
		return res, formatErrorf(FormatMHRJSON, "invalid json: %v", err)
	}
	if file.Meta.FPS <= 0 {
		return res, formatErrorf(FormatMHRJSON, "missing or invalid meta.fps %g", file.Meta.FPS)
	}

	res.fps = file.Meta.FPS
	// a "p2": true entry marks the next "down" entry as player 2
	nextP2 := false
	for _, ev := range file.Events {
		if ev.Down != nil {
			res.events = append(res.events, rawEvent{
				frame:   ev.Frame,
				down:    *ev.Down,
				player2: nextP2,
			})
			nextP2 = false
		}
		if ev.P2 != nil {
			nextP2 = *ev.P2
		}
	}
	return res, nil
}

const (
	mhrBinMagic      = 0x4841434B // "HACK"
	mhrBinFPSOffset  = 12
	mhrBinCountOff   = 28
	mhrBinRecordSize = 32
)

func parseMHRBin(data []byte) (parseResult, error) {
	var res parseResult
	r := newByteReader(data)

	if magic := r.u32be(); magic != mhrBinMagic {
		if !r.ok() {
			return res, formatErrorf(FormatMHRBin, "%v", r.err())
		}
		return res, formatErrorf(FormatMHRBin, "bad magic 0x%08X, want 0x%08X", magic, uint32(mhrBinMagic))
	}

	r.seek(mhrBinFPSOffset)
	fps := float64(r.u32le())
	r.seek(mhrBinCountOff)
	count := r.u32le()
	if !r.ok() {
		return res, formatErrorf(FormatMHRBin, "%v", r.err())
	}
	if fps <= 0 {
		return res, formatErrorf(FormatMHRBin, "invalid fps %g", fps)
	}

	res.fps = fps
	for i := uint32(0); i < count; i++ {
		r.skip(2)
		down := r.u8() == 1
		p1 := r.u8() == 0
		frame := r.u32le()
		r.skip(mhrBinRecordSize - 8)
		if !r.ok() {
			return res, formatErrorf(FormatMHRBin, "record %d: %v", i, r.err())
		}
		res.events = append(res.events, rawEvent{
			frame:   frame,
			down:    down,
			player2: !p1,
		})
	}
	return res, nil
}

// isJSONPayload reports whether the payload starts like a JSON document.
func isJSONPayload(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) > 0 && trimmed[0] == '{'
}
