package replay

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Plain text is the canonical write-back format: the first line holds the
// FPS, each further non-empty line one event as "frame down player2" with
// down and player2 written as 0 or 1.

func parsePlainText(data []byte) (parseResult, error) {
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
			if err != nil {
				return res, formatErrorf(FormatPlainText, "line %d: invalid fps %q", lineNo, line)
			}
			if fps <= 0 {
				return res, formatErrorf(FormatPlainText, "line %d: fps must be positive, got %g", lineNo, fps)
			}
			res.fps = fps
			continue
		}

		fields := strings.Fields(line)
		if len(fields) != 3 {
			return res, formatErrorf(FormatPlainText, "line %d: expected \"frame down player2\", got %q", lineNo, line)
		}
		frame, err := strconv.ParseUint(fields[0], 10, 32)
		if err != nil {
			return res, formatErrorf(FormatPlainText, "line %d: invalid frame %q", lineNo, fields[0])
		}
		down, err := parseBit(fields[1])
		if err != nil {
			return res, formatErrorf(FormatPlainText, "line %d: invalid down flag %q", lineNo, fields[1])
		}
		p2, err := parseBit(fields[2])
		if err != nil {
			return res, formatErrorf(FormatPlainText, "line %d: invalid player2 flag %q", lineNo, fields[2])
		}

		res.events = append(res.events, rawEvent{
			frame:   uint32(frame),
			down:    down,
			player2: p2,
		})
	}
	if err := sc.Err(); err != nil {
		return res, formatErrorf(FormatPlainText, "read: %v", err)
	}
	if res.fps == 0 {
		return res, formatErrorf(FormatPlainText, "missing fps header line")
	}
	return res, nil
}

func parseBit(s string) (bool, error) {
	switch s {
	case "0":
		return false, nil
	case "1":
		return true, nil
	}
	return false, fmt.Errorf("expected 0 or 1, got %q", s)
}

// WritePlainText writes the replay in the canonical text form. Parsing the
// output reproduces the same action list.
func WritePlainText(w io.Writer, r *Replay) error {
	bw := bufio.NewWriter(w)
	fps := r.FPS
	if fps <= 0 {
		// time-based sources have no frame grid; emit one fine enough
		// to keep sub-millisecond timing
		fps = 1000
	}
	if _, err := fmt.Fprintf(bw, "%g\n", fps); err != nil {
		return err
	}
	for i, a := range r.Actions {
		frame := r.Extended[i].Frame
		if r.FPS <= 0 {
			frame = uint32(a.Time*fps + 0.5)
		}
		down := 0
		if a.Kind == Press {
			down = 1
		}
		p2 := 0
		if a.Player == P2 {
			p2 = 1
		}
		if _, err := fmt.Fprintf(bw, "%d %d %d\n", frame, down, p2); err != nil {
			return err
		}
	}
	return bw.Flush()
}
