package replay

import (
	"bytes"
	"encoding/json"
)

// Echo shipped three incompatible encodings under the same .echo extension:
// a binary layout behind the "META" magic, an early JSON layout keyed
// "Echo Replay", and the current JSON layout keyed "inputs". parseEcho
// tells them apart by magic and key shape.

const (
	echoBinMagic   = 0x4D455441 // "META"
	echoBinDebug   = 0x44424700 // debug builds pad records to 24 bytes
	echoFPSOffset  = 24
	echoDataOffset = 48
)

func parseEcho(data []byte) (parseResult, error) {
	if len(data) >= 4 && bytes.Equal(data[:4], []byte("META")) {
		return parseEchoBin(data)
	}
	if !isJSONPayload(data) {
		return parseResult{}, formatErrorf(FormatEcho, "neither binary magic nor json payload")
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return parseResult{}, formatErrorf(FormatEcho, "invalid json: %v", err)
	}
	if _, ok := probe["Echo Replay"]; ok {
		return parseEchoJSONOld(data)
	}
	return parseEchoJSONNew(data)
}

func parseEchoBin(data []byte) (parseResult, error) {
	var res parseResult
	r := newByteReader(data)

	if magic := r.u32be(); magic != echoBinMagic {
		return res, formatErrorf(FormatEcho, "bad magic 0x%08X", magic)
	}
	recordSize := 6
	if r.u32be() == echoBinDebug {
		recordSize = 24
	}

	r.seek(echoFPSOffset)
	fps := float64(r.f32le())
	if !r.ok() {
		return res, formatErrorf(FormatEcho, "%v", r.err())
	}
	if fps <= 0 {
		return res, formatErrorf(FormatEcho, "invalid fps %g", fps)
	}
	res.fps = fps

	r.seek(echoDataOffset)
	for r.ok() && r.remaining() >= recordSize {
		frame := r.u32le()
		down := r.u8() == 1
		p1 := r.u8() == 0
		r.skip(recordSize - 6)
		res.events = append(res.events, rawEvent{
			frame:   frame,
			down:    down,
			player2: !p1,
		})
	}
	if !r.ok() {
		return res, formatErrorf(FormatEcho, "%v", r.err())
	}
	return res, nil
}

type echoJSONOldFile struct {
	FPS    float64 `json:"FPS"`
	Events []struct {
		Frame   uint32 `json:"Frame"`
		Hold    bool   `json:"Hold"`
		Player2 bool   `json:"Player 2"`
	} `json:"Echo Replay"`
}

func parseEchoJSONOld(data []byte) (parseResult, error) {
	var res parseResult
	var file echoJSONOldFile
	if err := json.Unmarshal(data, &file); err != nil {
		return res, formatErrorf(FormatEcho, "invalid json: %v", err)
	}
	if file.FPS <= 0 {
		return res, formatErrorf(FormatEcho, "missing or invalid FPS %g", file.FPS)
	}

	res.fps = file.FPS
	for _, ev := range file.Events {
		res.events = append(res.events, rawEvent{
			frame:   ev.Frame,
			down:    ev.Hold,
			player2: ev.Player2,
		})
	}
	return res, nil
}

type echoJSONNewFile struct {
	FPS    float64 `json:"fps"`
	Inputs []struct {
		Frame   uint32 `json:"frame"`
		Holding bool   `json:"holding"`
		Player2 bool   `json:"player_2"`
	} `json:"inputs"`
}

func parseEchoJSONNew(data []byte) (parseResult, error) {
	var res parseResult
	var file echoJSONNewFile
	if err := json.Unmarshal(data, &file); err != nil {
		return res, formatErrorf(FormatEcho, "invalid json: %v", err)
	}
	if file.FPS <= 0 {
		return res, formatErrorf(FormatEcho, "missing or invalid fps %g", file.FPS)
	}

	res.fps = file.FPS
	for _, ev := range file.Inputs {
		res.events = append(res.events, rawEvent{
			frame:   ev.Frame,
			down:    ev.Holding,
			player2: ev.Player2,
		})
	}
	return res, nil
}
