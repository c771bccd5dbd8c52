package replay

import (
	"bufio"
	"strconv"
	"strings"
)

// xdBot (.xd): a text format with a bare FPS header line and
// semicolon-separated "frame;down;player2" records.

func parseXDBot(data []byte) (parseResult, error) {
	var res parseResult
	lineNo := 0
	sc := bufio.NewScanner(strings.NewReader(string(data)))
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		if res.fps == 0 {
			fps, err := strconv.ParseFloat(line, 64)
			if err != nil || fps <= 0 {
				return res, formatErrorf(FormatXDBot, "line %d: invalid fps %q", lineNo, line)
			}
			res.fps = fps
			continue
		}

		fields := strings.Split(line, ";")
		if len(fields) < 3 {
			return res, formatErrorf(FormatXDBot, "line %d: expected \"frame;down;player2\", got %q", lineNo, line)
		}
		frame, err := strconv.ParseUint(strings.TrimSpace(fields[0]), 10, 32)
		if err != nil {
			return res, formatErrorf(FormatXDBot, "line %d: invalid frame %q", lineNo, fields[0])
		}
		down, err := parseBit(strings.TrimSpace(fields[1]))
		if err != nil {
			return res, formatErrorf(FormatXDBot, "line %d: invalid down flag %q", lineNo, fields[1])
		}
		p2, err := parseBit(strings.TrimSpace(fields[2]))
		if err != nil {
			return res, formatErrorf(FormatXDBot, "line %d: invalid player2 flag %q", lineNo, fields[2])
		}
		res.events = append(res.events, rawEvent{
			frame:   uint32(frame),
			down:    down,
			player2: p2,
		})
	}
	if err := sc.Err(); err != nil {
		return res, formatErrorf(FormatXDBot, "read: %v", err)
	}
	if res.fps == 0 {
		return res, formatErrorf(FormatXDBot, "missing fps header")
	}
	return res, nil
}
