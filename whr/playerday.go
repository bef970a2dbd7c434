package whr

import "math"

// PlayerDay is one player's latent skill variable on one specific day: the
// optimization variable r (natural scale) plus the games that contribute
// likelihood terms to it.
type PlayerDay struct {
	Day         int
	R           float64
	Uncertainty float64 // Elo-scale posterior std dev; NaN until Iterate or IterateUntilConverge sets it.
	IsFirstDay  bool

	games []gameRef
}

func newPlayerDay(day int) *PlayerDay {
	return &PlayerDay{
		Day:         day,
		R:           0,
		Uncertainty: math.NaN(),
	}
}

func (pd *PlayerDay) addGame(g *Game, side Side) {
	pd.games = append(pd.games, gameRef{game: g, side: side})
}

// Elo is the point estimate on the human-readable scale.
func (pd *PlayerDay) Elo() float64 { return natToElo(pd.R) }

// gammaSelf returns this day's own gamma, ignoring any handicap: used only
// by the virtual-games anchor, which isn't tied to a color.
func (pd *PlayerDay) gammaSelf() float64 { return math.Exp(pd.R) }

// gradAndHessFromGames sums the per-game first/second derivative
// contributions to this day's Newton system (spec 4.2's "per-game
// partials").
func (pd *PlayerDay) gradAndHessFromGames() (d1, d2 float64) {
	for _, ref := range pd.games {
		g1, g2 := ref.game.logLikelihoodPartials(ref.side)
		d1 += g1
		d2 += g2
	}
	return
}

// virtualGameTerms returns the gradient/Hessian contribution of the
// first-day virtual draws against a gamma=1 anchor (spec 4.2).
func (pd *PlayerDay) virtualGameTerms(virtualGames int) (d1, d2 float64) {
	if !pd.IsFirstDay || virtualGames == 0 {
		return 0, 0
	}
	n := float64(virtualGames)
	self := pd.gammaSelf()
	d1 = n * (0.5 - self/(self+1))
	d2 = -n * self / ((self + 1) * (self + 1))
	return
}
