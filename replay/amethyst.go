package replay

import (
	"bufio"
	"strconv"
	"strings"
)

// Amethyst stores four plain-text blocks in a fixed order: player 1 clicks,
// player 1 releases, player 2 clicks, player 2 releases. Each block is a
// count line followed by that many action times in seconds. The format is
// purely time-based, so there is no FPS to report.

func parseAmethyst(data []byte) (parseResult, error) {
	res := parseResult{timeBased: true}

	sc := bufio.NewScanner(strings.NewReader(string(data)))
	next := func() (string, bool) {
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line != "" {
				return line, true
			}
		}
		return "", false
	}

	blocks := []struct {
		player2 bool
		down    bool
	}{
		{false, true},
		{false, false},
		{true, true},
		{true, false},
	}
	for _, b := range blocks {
		head, ok := next()
		if !ok {
			return res, formatErrorf(FormatAmethyst, "missing block count: %v", errTruncated)
		}
		count, err := strconv.ParseUint(head, 10, 32)
		if err != nil {
			return res, formatErrorf(FormatAmethyst, "invalid action count %q", head)
		}
		for i := uint64(0); i < count; i++ {
			line, ok := next()
			if !ok {
				return res, formatErrorf(FormatAmethyst, "missing action time: %v", errTruncated)
			}
			time, err := strconv.ParseFloat(line, 64)
			if err != nil {
				return res, formatErrorf(FormatAmethyst, "invalid action time %q", line)
			}
			res.events = append(res.events, rawEvent{
				byTime:  true,
				time:    time,
				down:    b.down,
				player2: b.player2,
			})
		}
	}
	return res, nil
}
