package whr

import (
	"fmt"
	"math"
	"sort"
)

// GameRecord is the ordered tuple form accepted by CreateGames, mirroring
// spec 6's `[black, white, winner, day, handicap?]` input shape.
type GameRecord struct {
	Black    string
	White    string
	Winner   string // "B", "W", or "D"
	Day      int
	Handicap float64
	// HandicapProc, if set, takes precedence over Handicap for this game.
	HandicapProc HandicapFunc
}

// Base is the global registry of players and games and the engine that
// drives Newton iteration over them.
type Base struct {
	cfg Config

	players     map[string]*Player
	playerOrder []string // registration order, for deterministic sweeps
	games       []*Game
}

// NewBase constructs an empty rating database with the given
// configuration. cfg is validated immediately: a non-positive W2 or
// negative VirtualGames is a programmer error, not a runtime one, so
// NewBase panics rather than threading an error through every call site
// that wants a Base.
func NewBase(cfg Config) *Base {
	if err := cfg.validate(); err != nil {
		panic(err)
	}
	return &Base{
		cfg:     cfg,
		players: make(map[string]*Player),
	}
}

// NewDefaultBase is NewBase(DefaultConfig()).
func NewDefaultBase() *Base { return NewBase(DefaultConfig()) }

func (b *Base) getOrCreatePlayer(name string) *Player {
	p, ok := b.players[name]
	if !ok {
		p = newPlayer(name, b.cfg)
		b.players[name] = p
		b.playerOrder = append(b.playerOrder, name)
	}
	return p
}

// CreateGame inserts a single game, lazily materializing its players and
// PlayerDays. It fails with *InvalidGame if black == white.
func (b *Base) CreateGame(black, white, winner string, day int, handicap float64) (*Game, error) {
	return b.createGame(GameRecord{Black: black, White: white, Winner: winner, Day: day, Handicap: handicap})
}

// CreateGameWithHandicapProc is CreateGame with a dynamic handicap
// callback instead of a static Elo value.
func (b *Base) CreateGameWithHandicapProc(black, white, winner string, day int, proc HandicapFunc) (*Game, error) {
	return b.createGame(GameRecord{Black: black, White: white, Winner: winner, Day: day, HandicapProc: proc})
}

func (b *Base) createGame(rec GameRecord) (*Game, error) {
	if rec.Black == rec.White {
		return nil, &InvalidGame{Black: rec.Black, White: rec.White, Day: rec.Day, Msg: "black and white are the same player"}
	}
	winner, err := ParseWinner(rec.Winner)
	if err != nil {
		return nil, err
	}

	blackPlayer := b.getOrCreatePlayer(rec.Black)
	whitePlayer := b.getOrCreatePlayer(rec.White)
	blackPD := blackPlayer.getOrCreateDay(rec.Day)
	whitePD := whitePlayer.getOrCreateDay(rec.Day)

	g := &Game{
		BlackPD:      blackPD,
		WhitePD:      whitePD,
		Winner:       winner,
		Day:          rec.Day,
		Handicap:     rec.Handicap,
		HandicapProc: rec.HandicapProc,
		blackName:    rec.Black,
		whiteName:    rec.White,
	}
	b.games = append(b.games, g)
	blackPD.addGame(g, Black)
	whitePD.addGame(g, White)
	return g, nil
}

// CreateGames inserts a batch of games in order, matching
// create_games/create_game semantics for each record.
func (b *Base) CreateGames(records []GameRecord) error {
	for _, rec := range records {
		if _, err := b.createGame(rec); err != nil {
			return err
		}
	}
	return nil
}

// Iterate runs n full sweeps. Each sweep applies a single Newton step to
// every player, in registration order, then (on the final sweep only)
// refreshes every PlayerDay's uncertainty.
func (b *Base) Iterate(n int) error {
	for sweep := 0; sweep < n; sweep++ {
		if err := b.sweepOnce(); err != nil {
			return err
		}
	}
	return b.updateAllUncertainty()
}

func (b *Base) sweepOnce() error {
	for _, name := range b.playerOrder {
		if err := b.players[name].newtonStep(); err != nil {
			return err
		}
	}
	return nil
}

func (b *Base) updateAllUncertainty() error {
	for _, name := range b.playerOrder {
		if err := b.players[name].updateUncertainty(); err != nil {
			return err
		}
	}
	return nil
}

// convergenceWindow and convergenceTolerance resolve spec 9's Open
// Question 1: convergence is declared once 10 consecutive sweeps each
// move every (player, day) by less than 1e-3 Elo.
const (
	convergenceWindow    = 10
	convergenceTolerance = 1e-3
)

// IterateUntilConverge sweeps repeatedly until the maximum per-day Elo
// change stays below convergenceTolerance for convergenceWindow
// consecutive sweeps, then updates uncertainty. verbose prints one line
// per sweep with the sweep's max Elo delta.
func (b *Base) IterateUntilConverge(verbose bool) error {
	stableRun := 0
	for stableRun < convergenceWindow {
		before := make(map[string]map[int]float64, len(b.playerOrder))
		for _, name := range b.playerOrder {
			before[name] = b.players[name].eloSnapshot()
		}
		if err := b.sweepOnce(); err != nil {
			return err
		}
		var maxDelta float64
		for _, name := range b.playerOrder {
			if d := b.players[name].maxEloDeltaAgainst(before[name]); d > maxDelta {
				maxDelta = d
			}
		}
		if verbose {
			fmt.Printf("sweep: max elo delta = %.6f\n", maxDelta)
		}
		if maxDelta < convergenceTolerance {
			stableRun++
		} else {
			stableRun = 0
		}
	}
	return b.updateAllUncertainty()
}

// LogLikelihood sums every player's posterior log-likelihood contribution
// (game terms, Wiener prior, virtual-game terms) at the current ratings.
// Each game's term is counted once, so the total is the joint log
// posterior that the Newton sweeps increase.
func (b *Base) LogLikelihood() float64 {
	var ll float64
	for _, name := range b.playerOrder {
		ll += b.players[name].logLikelihoodContribution()
	}
	return ll
}

// RatingRow is one [day, elo, uncertainty] entry of RatingsForPlayer's
// output.
type RatingRow struct {
	Day         int
	Elo         float64
	Uncertainty float64
}

// RatingsForPlayer returns name's days in ascending day order. If name is
// unknown, it returns nil.
func (b *Base) RatingsForPlayer(name string) []RatingRow {
	p, ok := b.players[name]
	if !ok {
		return nil
	}
	rows := make([]RatingRow, len(p.days))
	for i, pd := range p.days {
		rows[i] = RatingRow{Day: pd.Day, Elo: pd.Elo(), Uncertainty: pd.Uncertainty}
	}
	return rows
}

// PlayerRatings pairs a player's name with its RatingsForPlayer output,
// the element type of GetOrderedRatings.
type PlayerRatings struct {
	Name    string
	Ratings []RatingRow
}

// GetOrderedRatings returns every player's ratings, ordered by the
// player's latest-day gamma descending (spec 4.4).
func (b *Base) GetOrderedRatings() []PlayerRatings {
	out := make([]PlayerRatings, 0, len(b.playerOrder))
	for _, name := range b.playerOrder {
		out = append(out, PlayerRatings{Name: name, Ratings: b.RatingsForPlayer(name)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return latestR(b.players[out[i].Name]) > latestR(b.players[out[j].Name])
	})
	return out
}

func latestR(p *Player) float64 {
	if len(p.days) == 0 {
		return math.Inf(-1)
	}
	return p.days[len(p.days)-1].R
}

// Games returns the full, append-only list of games in insertion order.
func (b *Base) Games() []*Game { return b.games }

// PlayerNames returns registered player names in registration order.
func (b *Base) PlayerNames() []string {
	out := make([]string, len(b.playerOrder))
	copy(out, b.playerOrder)
	return out
}
