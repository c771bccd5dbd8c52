package replay

import (
	"bufio"
	"strconv"
	"strings"
)

// xBot (.xbot): a text format with an "fps: N" header and one action per
// line, the action named as push/release with a player suffix.

func parseXBot(data []byte) (parseResult, error) {
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
			value, ok := strings.CutPrefix(line, "fps:")
			if !ok {
				return res, formatErrorf(FormatXBot, "line %d: expected \"fps: N\" header, got %q", lineNo, line)
			}
			fps, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
			if err != nil || fps <= 0 {
				return res, formatErrorf(FormatXBot, "line %d: invalid fps %q", lineNo, value)
			}
			res.fps = fps
			continue
		}

		fields := strings.Fields(line)
		if len(fields) != 2 {
			return res, formatErrorf(FormatXBot, "line %d: expected \"frame action\", got %q", lineNo, line)
		}
		frame, err := strconv.ParseUint(fields[0], 10, 32)
		if err != nil {
			return res, formatErrorf(FormatXBot, "line %d: invalid frame %q", lineNo, fields[0])
		}

		var down, p2 bool
		switch fields[1] {
		case "push1":
			down = true
		case "release1":
		case "push2":
			down, p2 = true, true
		case "release2":
			p2 = true
		default:
			return res, formatErrorf(FormatXBot, "line %d: unknown action %q", lineNo, fields[1])
		}
		res.events = append(res.events, rawEvent{
			frame:   uint32(frame),
			down:    down,
			player2: p2,
		})
	}
	if err := sc.Err(); err != nil {
		return res, formatErrorf(FormatXBot, "read: %v", err)
	}
	if res.fps == 0 {
		return res, formatErrorf(FormatXBot, "missing fps header")
	}
	return res, nil
}
