package replay

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Format tags one supported replay encoding.
type Format uint8

const (
	FormatUnknown Format = iota
	FormatPlainText
	FormatTasbot
	FormatMHRJSON
	FormatMHRBin
	FormatEcho
	FormatZBot
	FormatOBot2
	FormatOBot3
	FormatReplayBot
	FormatYBotFrame
	FormatYBot2
	FormatAmethyst
	FormatOsuReplay
	FormatGDR
	FormatGDR2
	FormatKDBot
	FormatRush
	FormatDDHOR
	FormatXBot
	FormatXDBot
	FormatSilicate
	FormatSilicate2
	FormatGDMO
	FormatGDMOJSON
	FormatReplayEngine
	FormatReplayEngine2
	FormatReplayEngine3
)

var formatNames = map[Format]string{
	FormatPlainText:     "plain text",
	FormatTasbot:        "tasbot",
	FormatMHRJSON:       "mhr json",
	FormatMHRBin:        "mhr binary",
	FormatEcho:          "echo",
	FormatZBot:          "zbot",
	FormatOBot2:         "obot2",
	FormatOBot3:         "obot3",
	FormatReplayBot:     "replaybot",
	FormatYBotFrame:     "ybot frame",
	FormatYBot2:         "ybot2",
	FormatAmethyst:      "amethyst",
	FormatOsuReplay:     "osu replay",
	FormatGDR:           "gdr",
	FormatGDR2:          "gdr2",
	FormatKDBot:         "kd-bot",
	FormatRush:          "rush",
	FormatDDHOR:         "ddhor",
	FormatXBot:          "xbot",
	FormatXDBot:         "xdbot",
	FormatSilicate:      "silicate",
	FormatSilicate2:     "silicate2",
	FormatGDMO:          "gdmo",
	FormatGDMOJSON:      "gdmo json",
	FormatReplayEngine:  "replayengine",
	FormatReplayEngine2: "replayengine2",
	FormatReplayEngine3: "replayengine3",
}

func (f Format) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return "unknown"
}

// ParseFormat resolves a format by its display name, ignoring case and
// spaces ("mhrjson" matches "mhr json").
func ParseFormat(s string) (Format, bool) {
	want := strings.ReplaceAll(strings.ToLower(s), " ", "")
	for f, name := range formatNames {
		if strings.ReplaceAll(name, " ", "") == want {
			return f, true
		}
	}
	return FormatUnknown, false
}

// SupportedExtensions lists the file extensions GuessFormat understands.
var SupportedExtensions = []string{
	"txt", "json", "mhr.json", "mhr", "echo", "zbf", "replay", "ybf", "ybot",
	"thyst", "osr", "gdr", "gdr2", "kd", "rsh", "ddhor", "xbot", "xd", "slc",
	"slc2", "macro", "re", "re2", "re3",
}

// ErrUnknownFormat is returned when no decoder claims a file.
var ErrUnknownFormat = errors.New("unknown replay format")

// FormatError reports a replay payload that doesn't match its declared
// format: bad magic, truncation, unsupported version, invalid JSON.
type FormatError struct {
	Format Format
	Err    error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("parse %s replay: %v", e.Format, e.Err)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

func formatErrorf(f Format, format string, args ...any) error {
	return &FormatError{Format: f, Err: fmt.Errorf(format, args...)}
}

// GuessFormat identifies the replay format from the file name and, for
// extensions shared by several formats, from the payload itself.
func GuessFormat(filename string, data []byte) (Format, error) {
	name := strings.ToLower(filepath.Base(filename))
	ext := strings.TrimPrefix(filepath.Ext(name), ".")

	switch ext {
	case "txt":
		return FormatPlainText, nil
	case "json":
		if strings.HasSuffix(name, ".mhr.json") {
			return FormatMHRJSON, nil
		}
		return guessJSON(data)
	case "mhr":
		return FormatMHRBin, nil
	case "echo":
		return FormatEcho, nil
	case "zbf":
		return FormatZBot, nil
	case "replay":
		return guessReplayExt(data), nil
	case "ybf":
		return FormatYBotFrame, nil
	case "ybot":
		return FormatYBot2, nil
	case "thyst":
		return FormatAmethyst, nil
	case "osr":
		return FormatOsuReplay, nil
	case "gdr":
		return FormatGDR, nil
	case "gdr2":
		return FormatGDR2, nil
	case "kd":
		return FormatKDBot, nil
	case "rsh":
		return FormatRush, nil
	case "ddhor":
		return FormatDDHOR, nil
	case "xbot":
		return FormatXBot, nil
	case "xd":
		return FormatXDBot, nil
	case "slc":
		return FormatSilicate, nil
	case "slc2":
		return FormatSilicate2, nil
	case "macro":
		if len(bytes.TrimSpace(data)) > 0 && bytes.TrimSpace(data)[0] == '{' {
			return FormatGDMOJSON, nil
		}
		return FormatGDMO, nil
	case "re":
		return FormatReplayEngine, nil
	case "re2":
		return FormatReplayEngine2, nil
	case "re3":
		return FormatReplayEngine3, nil
	}
	return FormatUnknown, fmt.Errorf("%w: extension %q", ErrUnknownFormat, ext)
}

// guessJSON tells the .json formats apart by their top-level keys.
func guessJSON(data []byte) (Format, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return FormatUnknown, fmt.Errorf("%w: invalid json: %v", ErrUnknownFormat, err)
	}
	if _, ok := probe["meta"]; ok {
		if _, ok := probe["events"]; ok {
			return FormatMHRJSON, nil
		}
	}
	if _, ok := probe["macro"]; ok {
		if _, ok := probe["fps"]; ok {
			return FormatTasbot, nil
		}
	}
	return FormatUnknown, fmt.Errorf("%w: unrecognized json keys", ErrUnknownFormat)
}

// guessReplayExt resolves the .replay extension shared by ReplayBot, oBot 2
// and oBot 3: ReplayBot carries a magic, oBot 2 a validatable type tag.
func guessReplayExt(data []byte) Format {
	if len(data) >= 4 && bytes.Equal(data[:4], []byte("RPLY")) {
		return FormatReplayBot
	}
	if looksLikeOBot2(data) {
		return FormatOBot2
	}
	return FormatOBot3
}

// Parse decodes and normalizes a replay.
func Parse(format Format, data []byte, opts Options) (*Replay, error) {
	var (
		res parseResult
		err error
	)
	switch format {
	case FormatPlainText:
		res, err = parsePlainText(data)
	case FormatTasbot:
		res, err = parseTasbot(data)
	case FormatMHRJSON:
		res, err = parseMHRJSON(data)
	case FormatMHRBin:
		res, err = parseMHRBin(data)
	case FormatEcho:
		res, err = parseEcho(data)
	case FormatZBot:
		res, err = parseZBot(data)
	case FormatOBot2:
		res, err = parseOBot2(data)
	case FormatOBot3:
		res, err = parseOBot3(data)
	case FormatReplayBot:
		res, err = parseReplayBot(data)
	case FormatYBotFrame:
		res, err = parseYBotFrame(data)
	case FormatYBot2:
		res, err = parseYBot2(data)
	case FormatAmethyst:
		res, err = parseAmethyst(data)
	case FormatOsuReplay:
		res, err = parseOsu(data)
	case FormatGDR:
		res, err = parseGDR(data)
	case FormatGDR2:
		res, err = parseGDR2(data)
	case FormatKDBot:
		res, err = parseKDBot(data)
	case FormatRush:
		res, err = parseRush(data)
	case FormatDDHOR:
		res, err = parseDDHOR(data)
	case FormatXBot:
		res, err = parseXBot(data)
	case FormatXDBot:
		res, err = parseXDBot(data)
	case FormatSilicate:
		res, err = parseSilicate(data)
	case FormatSilicate2:
		res, err = parseSilicate2(data)
	case FormatGDMO:
		res, err = parseGDMO(data)
	case FormatGDMOJSON:
		res, err = parseGDMOJSON(data)
	case FormatReplayEngine:
		res, err = parseReplayEngine(data)
	case FormatReplayEngine2:
		res, err = parseReplayEngine2(data)
	case FormatReplayEngine3:
		res, err = parseReplayEngine3(data)
	default:
		return nil, ErrUnknownFormat
	}
	if err != nil {
		return nil, err
	}
	return normalize(res, opts)
}

// ParseFile reads a replay file, sniffs its format and normalizes it.
func ParseFile(path string, opts Options) (*Replay, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	format, err := GuessFormat(path, data)
	if err != nil {
		return nil, err
	}
	return Parse(format, data, opts)
}
