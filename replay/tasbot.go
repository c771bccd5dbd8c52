package replay

import "encoding/json"

// TASBOT replays are JSON snapshots of both players' click state per frame.

type tasbotFile struct {
	FPS   float64       `json:"fps"`
	Macro []tasbotEvent `json:"macro"`
}

type tasbotEvent struct {
	Frame   uint32      `json:"frame"`
	Player1 tasbotClick `json:"player_1"`
	Player2 tasbotClick `json:"player_2"`
}

type tasbotClick struct {
	Click int `json:"click"`
}

func parseTasbot(data []byte) (parseResult, error) {
	var res parseResult
	var file tasbotFile
	if err := json.Unmarshal(data, &file); err != nil {
		return res, formatErrorf(FormatTasbot, "invalid json: %v", err)
	}
	if file.FPS <= 0 {
		return res, formatErrorf(FormatTasbot, "missing or invalid fps %g", file.FPS)
	}

	res.fps = file.FPS
	for _, ev := range file.Macro {
		res.events = append(res.events,
			rawEvent{frame: ev.Frame, down: ev.Player1.Click != 0},
			rawEvent{frame: ev.Frame, down: ev.Player2.Click != 0, player2: true},
		)
	}
	return res, nil
}
