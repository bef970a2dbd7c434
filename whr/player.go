package whr

import (
	"math"
	"sort"
)

// Player is one competitor's ordered sequence of PlayerDays, plus the
// tridiagonal Newton machinery that updates them in a single pass.
type Player struct {
	Name string
	days []*PlayerDay // strictly ascending by Day
	cfg  Config
}

func newPlayer(name string, cfg Config) *Player {
	return &Player{Name: name, cfg: cfg}
}

// Days returns the player's PlayerDays in ascending day order. The slice is
// owned by Player; callers must not mutate it.
func (p *Player) Days() []*PlayerDay { return p.days }

// dayIndex returns the position of day within p.days, or where it would be
// inserted.
func (p *Player) dayIndex(day int) (idx int, found bool) {
	idx = sort.Search(len(p.days), func(i int) bool { return p.days[i].Day >= day })
	found = idx < len(p.days) && p.days[idx].Day == day
	return
}

// getOrCreateDay returns the PlayerDay for day, creating and inserting it
// in sorted position if this is the first game on that day for this
// player (spec 3's lifecycle: "PlayerDays are created on first insertion
// of a game on that day for that player").
func (p *Player) getOrCreateDay(day int) *PlayerDay {
	idx, found := p.dayIndex(day)
	if found {
		return p.days[idx]
	}
	pd := newPlayerDay(day)
	p.days = append(p.days, nil)
	copy(p.days[idx+1:], p.days[idx:])
	p.days[idx] = pd
	for i, d := range p.days {
		d.IsFirstDay = i == 0
	}
	return pd
}

// buildSystem assembles the tridiagonal Newton system for the player's
// current ratings: diag/off hold the true (negative-definite) Hessian of
// the per-player log posterior, grad its gradient. off[i] is the
// cross-term linking days i and i+1.
func (p *Player) buildSystem() (diag, off, grad []float64) {
	n := len(p.days)
	diag = make([]float64, n)
	grad = make([]float64, n)
	offLen := n - 1
	if offLen < 0 {
		offLen = 0
	}
	off = make([]float64, offLen)

	for i, pd := range p.days {
		d1g, d2g := pd.gradAndHessFromGames()
		d1v, d2v := pd.virtualGameTerms(p.cfg.VirtualGames)
		grad[i] = d1g + d1v
		diag[i] = d2g + d2v
	}
	w2nat := p.cfg.w2Nat()
	for i := 0; i < n-1; i++ {
		sigma2 := float64(p.days[i+1].Day-p.days[i].Day) * w2nat
		off[i] = 1.0 / sigma2
		diag[i] -= 1.0 / sigma2
		diag[i+1] -= 1.0 / sigma2
		dr := p.days[i+1].R - p.days[i].R
		grad[i] += dr / sigma2
		grad[i+1] -= dr / sigma2
	}
	return
}

// newtonStep performs a single Newton update across the player's whole
// time series: it solves H*delta = -grad for the tridiagonal H built by
// buildSystem and applies r += delta.
func (p *Player) newtonStep() error {
	n := len(p.days)
	if n == 0 {
		return nil
	}
	diag, off, grad := p.buildSystem()

	d, l, err := ldlFactorize(diag, off)
	if err != nil {
		return &UnstableRating{Player: p.Name, Reason: err.Error()}
	}
	rhs := make([]float64, n)
	for i, g := range grad {
		rhs[i] = -g
	}
	delta, err := ldlSolve(d, l, off, rhs)
	if err != nil {
		return &UnstableRating{Player: p.Name, Reason: err.Error()}
	}
	for _, dr := range delta {
		if math.IsNaN(dr) || math.IsInf(dr, 0) {
			return &UnstableRating{Player: p.Name, Reason: "non-finite Newton step"}
		}
	}
	for i := range p.days {
		p.days[i].R += delta[i]
	}
	return nil
}

// updateUncertainty extracts the diagonal of the inverse Hessian at the
// player's current ratings and populates each PlayerDay.Uncertainty on the
// Elo scale (spec 4.3).
func (p *Player) updateUncertainty() error {
	n := len(p.days)
	if n == 0 {
		return nil
	}
	diag, off, _ := p.buildSystem()
	d, l, err := ldlFactorize(diag, off)
	if err != nil {
		return &UnstableRating{Player: p.Name, Reason: err.Error()}
	}
	invDiag := ldlInverseDiagonal(d, l)
	for i, pd := range p.days {
		variance := -invDiag[i]
		if variance < 0 || math.IsNaN(variance) || math.IsInf(variance, 0) {
			return &UnstableRating{Player: p.Name, Reason: "non-positive posterior variance"}
		}
		pd.Uncertainty = natToElo(math.Sqrt(variance))
	}
	return nil
}

// logLikelihoodContribution is this player's share of Base.LogLikelihood:
// the log-likelihood of every game it played as Black (so that summing over
// players counts each game exactly once), its virtual-game anchor terms,
// and its Wiener prior terms, all evaluated at the current ratings.
func (p *Player) logLikelihoodContribution() float64 {
	var ll float64
	for _, pd := range p.days {
		for _, ref := range pd.games {
			if ref.side == Black {
				ll += ref.game.logLikelihood()
			}
		}
		if pd.IsFirstDay && p.cfg.VirtualGames > 0 {
			self := pd.gammaSelf()
			ll += float64(p.cfg.VirtualGames) * math.Log(math.Sqrt(self)/(self+1))
		}
	}
	w2nat := p.cfg.w2Nat()
	for i := 0; i+1 < len(p.days); i++ {
		sigma2 := float64(p.days[i+1].Day-p.days[i].Day) * w2nat
		dr := p.days[i+1].R - p.days[i].R
		ll -= (dr * dr) / (2 * sigma2)
	}
	return ll
}

// maxEloDeltaAgainst returns the largest absolute Elo change across a
// before/after rating snapshot, used by Base.IterateUntilConverge.
func (p *Player) maxEloDeltaAgainst(prev map[int]float64) float64 {
	var m float64
	for _, pd := range p.days {
		before, ok := prev[pd.Day]
		if !ok {
			continue
		}
		if d := math.Abs(natToElo(pd.R) - before); d > m {
			m = d
		}
	}
	return m
}

// eloSnapshot captures day->Elo for maxEloDeltaAgainst's next comparison.
func (p *Player) eloSnapshot() map[int]float64 {
	snap := make(map[int]float64, len(p.days))
	for _, pd := range p.days {
		snap[pd.Day] = natToElo(pd.R)
	}
	return snap
}
