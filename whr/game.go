package whr

import (
	"fmt"
	"math"
)

// Side identifies which color a player held in a Game.
type Side int

const (
	Black Side = iota
	White
)

// Winner identifies the outcome of a Game.
type Winner int

const (
	WinnerBlack Winner = iota
	WinnerWhite
	WinnerDraw
)

// ParseWinner maps the single-letter codes used by CreateGame/CreateGames
// ("B", "W", "D") to a Winner.
func ParseWinner(code string) (Winner, error) {
	switch code {
	case "B":
		return WinnerBlack, nil
	case "W":
		return WinnerWhite, nil
	case "D":
		return WinnerDraw, nil
	default:
		return 0, fmt.Errorf("whr: unrecognized winner code %q, want one of B, W, D", code)
	}
}

func (w Winner) String() string {
	switch w {
	case WinnerBlack:
		return "B"
	case WinnerWhite:
		return "W"
	case WinnerDraw:
		return "D"
	default:
		return "?"
	}
}

// gameRef ties a PlayerDay back to one of the games it participated in,
// tagged with the side the player held. Storing (game, side) pairs instead
// of a raw game pointer lets the Newton step read the opponent's side
// without re-deriving it from the PlayerDay pointers.
type gameRef struct {
	game *Game
	side Side
}

// Game is a single immutable outcome record linking the two PlayerDays
// that played it.
type Game struct {
	BlackPD *PlayerDay
	WhitePD *PlayerDay
	Winner  Winner
	Day     int

	// Handicap is the static Elo-scale advantage given to Black. Ignored
	// when HandicapProc is set.
	Handicap float64
	// HandicapProc, if non-nil, replaces Handicap for every evaluation of
	// this game's likelihood.
	HandicapProc HandicapFunc

	blackName string
	whiteName string
}

// handicapElo returns the Elo-scale handicap in effect for this game.
func (g *Game) handicapElo() float64 {
	if g.HandicapProc != nil {
		return g.HandicapProc(g)
	}
	return g.Handicap
}

// blackAdvantageR returns the handicap converted to the natural (r) scale.
func (g *Game) blackAdvantageR() float64 {
	return eloToNat(g.handicapElo())
}

// gammas returns (black gamma adjusted by handicap, white gamma).
func (g *Game) gammas() (blackGamma, whiteGamma float64) {
	blackGamma = math.Exp(g.BlackPD.R + g.blackAdvantageR())
	whiteGamma = math.Exp(g.WhitePD.R)
	return
}

// WhiteWinProbability is the Bradley-Terry win probability for White,
// exported for testing against the spec's closed-form scenarios.
func (g *Game) WhiteWinProbability() float64 {
	gb, gw := g.gammas()
	return gw / (gw + gb)
}

// BlackWinProbability is WhiteWinProbability's complement under a win/loss
// model; it ignores draws, matching the spec's "complement identity"
// testable property (#6) which is stated over the two-outcome win
// probabilities, not the three-outcome draw model.
func (g *Game) BlackWinProbability() float64 {
	gb, gw := g.gammas()
	return gb / (gw + gb)
}

// DrawProbability is the geometric-mean draw convention from spec 4.1.
func (g *Game) DrawProbability() float64 {
	gb, gw := g.gammas()
	return math.Sqrt(gw*gb) / (gw + gb)
}

// selfOpponentGamma returns (this side's adjusted gamma, the opponent's
// adjusted gamma) for the side a PlayerDay held in this game.
func (g *Game) selfOpponentGamma(side Side) (self, opp float64) {
	blackGamma, whiteGamma := g.gammas()
	if side == Black {
		return blackGamma, whiteGamma
	}
	return whiteGamma, blackGamma
}

// outcome classifies the game from the point of view of side.
type outcome int

const (
	outcomeWon outcome = iota
	outcomeLost
	outcomeDrawn
)

func (g *Game) outcomeFor(side Side) outcome {
	switch g.Winner {
	case WinnerDraw:
		return outcomeDrawn
	case WinnerBlack:
		if side == Black {
			return outcomeWon
		}
		return outcomeLost
	default: // WinnerWhite
		if side == White {
			return outcomeWon
		}
		return outcomeLost
	}
}

// logLikelihoodPartials returns the first and second derivative of this
// game's log-likelihood term with respect to the rating of the PlayerDay
// holding side, per spec 4.2's per-game partials (a draw is treated as
// half a win plus half a loss, which is algebraically identical to
// evaluating the geometric-mean draw probability directly).
func (g *Game) logLikelihoodPartials(side Side) (d1, d2 float64) {
	self, opp := g.selfOpponentGamma(side)
	d2 = -self * opp / ((self + opp) * (self + opp))
	switch g.outcomeFor(side) {
	case outcomeWon:
		d1 = opp / (self + opp)
	case outcomeLost:
		d1 = -self / (self + opp)
	case outcomeDrawn:
		d1 = 0.5 - self/(self+opp)
	}
	return
}

// logLikelihood returns the log of this game's outcome probability at the
// current ratings, used by Player.logLikelihood / Base.LogLikelihood.
func (g *Game) logLikelihood() float64 {
	switch g.Winner {
	case WinnerBlack:
		return math.Log(g.BlackWinProbability())
	case WinnerWhite:
		return math.Log(g.WhiteWinProbability())
	default:
		return math.Log(g.DrawProbability())
	}
}
