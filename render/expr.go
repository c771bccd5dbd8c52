package render

import (
	"fmt"
	"math/rand"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/zeozeozeo/zcb3/replay"
)

// volumeExpr is a compiled user volume expression. The expression is pure:
// it reads per-action variables and yields one float, which the renderer
// feeds into the configured variable.
type volumeExpr struct {
	program *vm.Program
	env     map[string]any
}

// compileExpr compiles the expression source once per render. Compile
// errors fail the render before any audio work; evaluation errors during
// the render degrade to zero instead.
func compileExpr(src string) (*volumeExpr, error) {
	env := map[string]any{
		"frame":      0.0,
		"fps":        0.0,
		"time":       0.0,
		"x":          0.0,
		"y":          0.0,
		"p":          0.0,
		"player2":    0.0,
		"rot":        0.0,
		"accel":      0.0,
		"down":       0.0,
		"frames":     0.0,
		"level_time": 0.0,
		"rand":       0.0,
	}
	program, err := expr.Compile(src, expr.Env(env))
	if err != nil {
		return nil, fmt.Errorf("compile expression: %w", err)
	}
	return &volumeExpr{program: program, env: env}, nil
}

// eval computes the expression for one action. rng feeds the per-call
// "rand" variable so renders stay reproducible under a fixed seed.
func (e *volumeExpr) eval(r *replay.Replay, i int, rng *rand.Rand) float64 {
	a := r.Actions[i]
	ext := r.Extended[i]
	lastFrame := r.LastFrame()
	fps := r.FPS

	e.env["frame"] = float64(ext.Frame)
	e.env["fps"] = fps
	e.env["time"] = a.Time
	e.env["x"] = ext.X
	e.env["y"] = ext.Y
	e.env["p"] = progress(float64(ext.Frame), float64(lastFrame))
	e.env["player2"] = boolVar(ext.Player2)
	e.env["rot"] = ext.Rot
	e.env["accel"] = ext.YAccel
	e.env["down"] = boolVar(ext.Down)
	e.env["frames"] = float64(lastFrame)
	e.env["level_time"] = levelTime(float64(lastFrame), fps)
	e.env["rand"] = rng.Float64()

	out, err := expr.Run(e.program, e.env)
	if err != nil {
		return 0
	}
	switch v := out.(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case bool:
		return boolVar(v)
	}
	return 0
}

func boolVar(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func progress(frame, frames float64) float64 {
	if frames <= 0 {
		return 0
	}
	return frame / frames
}

func levelTime(frames, fps float64) float64 {
	if fps <= 0 {
		return 0
	}
	return frames / fps
}
