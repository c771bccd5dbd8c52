package replay

import "encoding/json"

// GDMO stored its .macro files as raw binary with per-input physics until
// the 2.2 rewrite switched to JSON. The two are told apart by the leading
// byte at sniff time.

func parseGDMO(data []byte) (parseResult, error) {
	var res parseResult
	r := newByteReader(data)

	fps := float64(r.f32le())
	count := r.u32le()
	if !r.ok() {
		return res, formatErrorf(FormatGDMO, "header: %v", r.err())
	}
	if fps <= 0 {
		return res, formatErrorf(FormatGDMO, "invalid fps %g", fps)
	}

	res.fps = fps
	for i := uint32(0); i < count; i++ {
		frame := r.u32le()
		down := r.u8()
		p2 := r.u8()
		x := r.f32le()
		y := r.f32le()
		rot := r.f32le()
		if !r.ok() {
			return res, formatErrorf(FormatGDMO, "record %d: %v", i, r.err())
		}
		res.events = append(res.events, rawEvent{
			frame:   frame,
			down:    down != 0,
			player2: p2 != 0,
			x:       float64(x),
			y:       float64(y),
			rot:     float64(rot),
		})
	}
	return res, nil
}

type gdmoJSONReplay struct {
	FPS    float64 `json:"fps"`
	Inputs []struct {
		Frame   uint32 `json:"frame"`
		Button  int    `json:"btn"`
		Player2 bool   `json:"2p"`
		Down    bool   `json:"down"`
	} `json:"inputs"`
}

func parseGDMOJSON(data []byte) (parseResult, error) {
	var res parseResult
	var doc gdmoJSONReplay
	if err := json.Unmarshal(data, &doc); err != nil {
		return res, formatErrorf(FormatGDMOJSON, "invalid json: %v", err)
	}
	if doc.FPS <= 0 {
		return res, formatErrorf(FormatGDMOJSON, "invalid fps %g", doc.FPS)
	}

	res.fps = doc.FPS
	for _, in := range doc.Inputs {
		if in.Button != 0 && in.Button != int(ButtonJump) {
			continue
		}
		res.events = append(res.events, rawEvent{
			frame:   in.Frame,
			down:    in.Down,
			player2: in.Player2,
		})
	}
	return res, nil
}
