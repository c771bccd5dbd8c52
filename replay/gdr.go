package replay

import (
	"bytes"
	"encoding/json"

	"github.com/vmihailenco/msgpack/v5"
)

// GDR is the shared bot-interchange format: a MessagePack document (JSON in
// older exports) with replay metadata and a flat input list. Only jump
// inputs produce click audio; left/right are platformer steering taps.

type gdrReplay struct {
	Author      string     `msgpack:"author" json:"author"`
	Description string     `msgpack:"description" json:"description"`
	Duration    float64    `msgpack:"duration" json:"duration"`
	GameVersion float64    `msgpack:"gameVersion" json:"gameVersion"`
	Version     float64    `msgpack:"version" json:"version"`
	Framerate   float64    `msgpack:"framerate" json:"framerate"`
	Inputs      []gdrInput `msgpack:"inputs" json:"inputs"`
}

type gdrInput struct {
	Frame   uint32 `msgpack:"frame" json:"frame"`
	Button  int    `msgpack:"btn" json:"btn"`
	Player2 bool   `msgpack:"2p" json:"2p"`
	Down    bool   `msgpack:"down" json:"down"`
}

const gdrDefaultFPS = 240

func parseGDR(data []byte) (parseResult, error) {
	var res parseResult
	var doc gdrReplay

	if err := msgpack.Unmarshal(data, &doc); err != nil {
		// older exporters wrote the same schema as JSON
		if jerr := json.Unmarshal(bytes.TrimSpace(data), &doc); jerr != nil {
			return res, formatErrorf(FormatGDR, "neither messagepack (%v) nor json (%v)", err, jerr)
		}
	}

	res.fps = doc.Framerate
	if res.fps <= 0 {
		res.fps = gdrDefaultFPS
	}
	for _, in := range doc.Inputs {
		if in.Button != int(ButtonJump) && in.Button != 0 {
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
