package replay

import "encoding/json"

// DDHOR saves .ddhor files as plain JSON with frame-indexed inputs.

type ddhorReplay struct {
	FPS    float64 `json:"fps"`
	Inputs []struct {
		Frame   uint32 `json:"frame"`
		Holding bool   `json:"holding"`
		Player2 bool   `json:"player2"`
	} `json:"inputs"`
}

func parseDDHOR(data []byte) (parseResult, error) {
	var res parseResult
	var doc ddhorReplay
	if err := json.Unmarshal(data, &doc); err != nil {
		return res, formatErrorf(FormatDDHOR, "invalid json: %v", err)
	}
	if doc.FPS <= 0 {
		return res, formatErrorf(FormatDDHOR, "invalid fps %g", doc.FPS)
	}

	res.fps = doc.FPS
	for _, in := range doc.Inputs {
		res.events = append(res.events, rawEvent{
			frame:   in.Frame,
			down:    in.Holding,
			player2: in.Player2,
		})
	}
	return res, nil
}
