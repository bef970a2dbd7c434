package whr

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// HandicapFunc computes the Elo-scale handicap for a single game. It must
// be side-effect-free and deterministic: Base calls it on every Newton
// sweep, never memoizing the result across calls.
type HandicapFunc func(g *Game) float64

// handicapEnv is the struct evaluated against a compiled handicap
// expression: fields tagged with `expr:"..."` become the variable names
// available to the expression text.
type handicapEnv struct {
	Day      int     `expr:"day"`
	Handicap float64 `expr:"handicap"`
	Black    string  `expr:"black"`
	White    string  `expr:"white"`
}

// ExprHandicap compiles src once and evaluates it as a HandicapFunc. src
// sees the game's day, its static handicap field, and the two player
// names, and must evaluate to a number.
//
// Example: ExprHandicap("handicap + day / 30.0") grows a nominal handicap
// by one point for every thirty days the game is played late.
func ExprHandicap(src string) (HandicapFunc, error) {
	program, err := expr.Compile(src, expr.Env(handicapEnv{}), expr.AsFloat64())
	if err != nil {
		return nil, fmt.Errorf("whr: invalid handicap expression %q: %w", src, err)
	}
	return func(g *Game) float64 {
		return runHandicapProgram(program, g)
	}, nil
}

func runHandicapProgram(program *vm.Program, g *Game) float64 {
	env := handicapEnv{
		Day:      g.Day,
		Handicap: g.Handicap,
		Black:    g.blackName,
		White:    g.whiteName,
	}
	out, err := expr.Run(program, env)
	if err != nil {
		return g.Handicap
	}
	v, ok := out.(float64)
	if !ok {
		return g.Handicap
	}
	return v
}
