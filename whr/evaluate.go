package whr

import "math"

// Evaluate is a read-only snapshot view over a Base, used to query ratings
// at arbitrary days (interpolating between computed PlayerDays) and to
// score a held-out set of games against the fitted model.
type Evaluate struct {
	base *Base
}

// NewEvaluate wraps base for read-only querying. base should already have
// converged (via Iterate or IterateUntilConverge); Evaluate does not run
// any further Newton steps.
func NewEvaluate(base *Base) *Evaluate {
	return &Evaluate{base: base}
}

// GetRating returns the Elo rating of name on day, piecewise-linearly
// interpolated between the two bracketing PlayerDays the player actually
// has, and clamped to the nearest endpoint's rating outside that range
// (spec 4.4). If name is unknown to the underlying Base: when
// ignoreNullPlayers is true, it returns (0, false), a null rating the
// caller should skip; when false, an unknown player is substituted with a
// rating of 0 and reported as ok, so callers that want every name scored
// get a neutral gamma=1 strength instead of a gap.
func (e *Evaluate) GetRating(name string, day int, ignoreNullPlayers bool) (elo float64, ok bool) {
	p, exists := e.base.players[name]
	if !exists || len(p.days) == 0 {
		if ignoreNullPlayers {
			return 0, false
		}
		return 0, true
	}
	return interpolateElo(p.days, day), true
}

// interpolateElo implements the clamp-then-lerp rule described in spec
// 4.4: before the player's first day and after their last, the rating is
// held flat at that endpoint; between two known days it's a straight line
// in Elo space against calendar day.
func interpolateElo(days []*PlayerDay, day int) float64 {
	if day <= days[0].Day {
		return days[0].Elo()
	}
	last := days[len(days)-1]
	if day >= last.Day {
		return last.Elo()
	}
	lo, hi := 0, len(days)-1
	for lo+1 < hi {
		mid := (lo + hi) / 2
		if days[mid].Day <= day {
			lo = mid
		} else {
			hi = mid
		}
	}
	a, b := days[lo], days[hi]
	if a.Day == b.Day {
		return a.Elo()
	}
	frac := float64(day-a.Day) / float64(b.Day-a.Day)
	return a.Elo() + frac*(b.Elo()-a.Elo())
}

// HeldOutGame is one row of the held-out evaluation set accepted by
// EvaluateAveLogLikelihoodGames: an outcome whose probability is scored
// against interpolated ratings rather than fitted PlayerDay ratings
// directly, so it can include games on days the model never saw.
type HeldOutGame struct {
	Black        string
	White        string
	Winner       string // "B", "W", or "D"
	Day          int
	Handicap     float64
	HandicapProc HandicapFunc
}

// EvaluateAveLogLikelihoodGames scores games against the current snapshot
// and returns the average per-game log-likelihood. A game naming a player
// the Base never saw is skipped (counted as neither a hit nor a miss) when
// ignoreNullPlayers is true; otherwise the unknown player is scored at a
// neutral rating of 0 rather than excluded.
func (e *Evaluate) EvaluateAveLogLikelihoodGames(games []HeldOutGame, ignoreNullPlayers bool) (float64, error) {
	var sum float64
	var n int
	for _, hg := range games {
		ll, skip, err := e.scoreHeldOutGame(hg, ignoreNullPlayers)
		if err != nil {
			return 0, err
		}
		if skip {
			continue
		}
		sum += ll
		n++
	}
	if n == 0 {
		return 0, nil
	}
	return sum / float64(n), nil
}

func (e *Evaluate) scoreHeldOutGame(hg HeldOutGame, ignoreNullPlayers bool) (ll float64, skip bool, err error) {
	blackElo, blackOK := e.GetRating(hg.Black, hg.Day, ignoreNullPlayers)
	whiteElo, whiteOK := e.GetRating(hg.White, hg.Day, ignoreNullPlayers)
	if !blackOK || !whiteOK {
		return 0, true, nil
	}

	winner, err := ParseWinner(hg.Winner)
	if err != nil {
		return 0, false, err
	}
	handicapElo := hg.Handicap
	if hg.HandicapProc != nil {
		g := &syntheticGame{day: hg.Day, handicap: handicapElo, black: hg.Black, white: hg.White}
		handicapElo = hg.HandicapProc(g.asGame())
	}

	blackGamma := math.Exp(eloToNat(blackElo) + eloToNat(handicapElo))
	whiteGamma := math.Exp(eloToNat(whiteElo))
	switch winner {
	case WinnerBlack:
		ll = math.Log(blackGamma / (blackGamma + whiteGamma))
	case WinnerWhite:
		ll = math.Log(whiteGamma / (blackGamma + whiteGamma))
	default:
		ll = math.Log(math.Sqrt(blackGamma*whiteGamma) / (blackGamma + whiteGamma))
	}
	return ll, false, nil
}

// syntheticGame lets a HandicapProc callback run against a held-out row
// without a real Game's PlayerDay pointers; it carries just enough fields
// for the expr-based handicap programs (day, handicap, names) to resolve.
type syntheticGame struct {
	day      int
	handicap float64
	black    string
	white    string
}

func (s *syntheticGame) asGame() *Game {
	return &Game{Day: s.day, Handicap: s.handicap, blackName: s.black, whiteName: s.white}
}
