package whr

import (
	"math"
	"testing"
)

func almostEqual(a, b, tol float64) bool { return math.Abs(a-b) <= tol }

// TestWhiteWinProbability_EvenMatchup covers spec property 1: equal
// ratings and zero handicap must give a 50/50 game.
func TestWhiteWinProbability_EvenMatchup(t *testing.T) {
	b := NewDefaultBase()
	g, err := b.CreateGame("black", "white", "D", 1, 0)
	if err != nil {
		t.Fatalf("create game: %v", err)
	}
	if got := g.WhiteWinProbability(); !almostEqual(got, 0.5, 1e-4) {
		t.Fatalf("white win probability = %v, want ~0.5", got)
	}
}

// TestHandicapMonotonicity covers spec property 2.
func TestHandicapMonotonicity(t *testing.T) {
	mk := func(h float64) float64 {
		b := NewDefaultBase()
		g, err := b.CreateGame("black", "white", "D", 1, h)
		if err != nil {
			t.Fatalf("create game: %v", err)
		}
		return g.BlackWinProbability()
	}
	low, high := mk(0), mk(200)
	if !(high > low) {
		t.Fatalf("black win probability did not increase with handicap: low=%v high=%v", low, high)
	}
}

// TestRatingMonotonicity covers spec property 3: raising white's rating at
// fixed black rating/handicap strictly increases white's win probability.
func TestRatingMonotonicity(t *testing.T) {
	prob := func(whiteElo float64) float64 {
		bpd := &PlayerDay{R: eloToNat(200)}
		wpd := &PlayerDay{R: eloToNat(whiteElo)}
		g := &Game{BlackPD: bpd, WhitePD: wpd, Winner: WinnerWhite, Day: 1}
		return g.WhiteWinProbability()
	}
	low, high := prob(100), prob(300)
	if !(high > low) {
		t.Fatalf("white win probability did not increase with rating: low=%v high=%v", low, high)
	}
}

// TestEloDifferenceTranslationInvariance covers spec property 4: the win
// probability depends only on the rating difference.
func TestEloDifferenceTranslationInvariance(t *testing.T) {
	wwp := func(white, black float64) float64 {
		g := &Game{
			BlackPD: &PlayerDay{R: eloToNat(black)},
			WhitePD: &PlayerDay{R: eloToNat(white)},
			Winner:  WinnerWhite,
		}
		return g.WhiteWinProbability()
	}
	a := wwp(100, 200)
	b := wwp(200, 300)
	if !almostEqual(a, b, 1e-4) {
		t.Fatalf("translation invariance violated: %v vs %v", a, b)
	}
}

// TestClosedFormBaseline covers spec property 5.
func TestClosedFormBaseline(t *testing.T) {
	g := &Game{
		BlackPD: &PlayerDay{R: eloToNat(200)},
		WhitePD: &PlayerDay{R: eloToNat(100)},
		Winner:  WinnerWhite,
	}
	if got, want := g.WhiteWinProbability(), 0.359935; !almostEqual(got, want, 1e-4) {
		t.Fatalf("white win probability = %v, want %v", got, want)
	}
}

// TestComplementIdentity covers spec property 6.
func TestComplementIdentity(t *testing.T) {
	g := &Game{
		BlackPD: &PlayerDay{R: eloToNat(321)},
		WhitePD: &PlayerDay{R: eloToNat(-88)},
		Winner:  WinnerBlack,
	}
	sum := g.WhiteWinProbability() + g.BlackWinProbability()
	if !almostEqual(sum, 1, 1e-9) {
		t.Fatalf("white+black win probability = %v, want 1", sum)
	}
}

// buildScenarioA inserts scenario A's five games into a fresh Base.
func buildScenarioA(t *testing.T) *Base {
	t.Helper()
	b := NewDefaultBase()
	games := []GameRecord{
		{Black: "shusaku", White: "shusai", Winner: "B", Day: 1},
		{Black: "shusaku", White: "shusai", Winner: "W", Day: 2},
		{Black: "shusaku", White: "shusai", Winner: "W", Day: 3},
		{Black: "shusaku", White: "shusai", Winner: "W", Day: 4},
		{Black: "shusaku", White: "shusai", Winner: "W", Day: 4},
	}
	if err := b.CreateGames(games); err != nil {
		t.Fatalf("create games: %v", err)
	}
	return b
}

// TestScenarioA checks the concrete end-to-end numbers from spec 8.
func TestScenarioA(t *testing.T) {
	b := buildScenarioA(t)
	if err := b.Iterate(50); err != nil {
		t.Fatalf("iterate: %v", err)
	}

	wantShusaku := []RatingRow{
		{Day: 1, Elo: -92}, {Day: 2, Elo: -94}, {Day: 3, Elo: -95}, {Day: 4, Elo: -96},
	}
	wantShusai := []RatingRow{
		{Day: 1, Elo: 92}, {Day: 2, Elo: 94}, {Day: 3, Elo: 95}, {Day: 4, Elo: 96},
	}
	checkRows(t, "shusaku", b.RatingsForPlayer("shusaku"), wantShusaku, 147)
	checkRows(t, "shusai", b.RatingsForPlayer("shusai"), wantShusai, 147)
}

func checkRows(t *testing.T, name string, got []RatingRow, want []RatingRow, wantSigma float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%s: got %d days, want %d", name, len(got), len(want))
	}
	for i, w := range want {
		g := got[i]
		if g.Day != w.Day {
			t.Fatalf("%s day %d: got day %d", name, i, g.Day)
		}
		if !almostEqual(math.Round(g.Elo), w.Elo, 1) {
			t.Errorf("%s day %d: elo = %v, want ~%v", name, g.Day, g.Elo, w.Elo)
		}
		if sigma := math.Round(g.Uncertainty); !almostEqual(sigma, wantSigma, 1) {
			t.Errorf("%s day %d: sigma = %v, want ~%v", name, g.Day, sigma, wantSigma)
		}
	}
}

// TestScenarioB_EvalLogLikelihood covers spec scenario B.
func TestScenarioB_EvalLogLikelihood(t *testing.T) {
	b := buildScenarioA(t)
	if err := b.Iterate(50); err != nil {
		t.Fatalf("iterate: %v", err)
	}
	ev := NewEvaluate(b)
	games := []HeldOutGame{
		{Black: "shusaku", White: "shusai", Winner: "B", Day: 1},
		{Black: "shusaku", White: "shusai", Winner: "W", Day: 2},
		{Black: "shusaku", White: "shusai", Winner: "W", Day: 3},
		{Black: "shusaku", White: "shusai", Winner: "W", Day: 4},
		{Black: "shusaku", White: "shusai", Winner: "W", Day: 4},
	}
	ave, err := ev.EvaluateAveLogLikelihoodGames(games, false)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if got, want := math.Round(ave*100000), -50215.0; got != want {
		t.Fatalf("round(ave_log_likelihood*100000) = %v, want %v", got, want)
	}
}

// TestScenarioC_OrderIndependence covers spec property 7 / scenario C.
func TestScenarioC_OrderIndependence(t *testing.T) {
	ascending := []GameRecord{
		{Black: "alice", White: "bob", Winner: "W", Day: 1},
		{Black: "alice", White: "bob", Winner: "B", Day: 2},
		{Black: "alice", White: "bob", Winner: "W", Day: 3},
	}
	descending := []GameRecord{ascending[2], ascending[1], ascending[0]}

	ba := NewDefaultBase()
	if err := ba.CreateGames(ascending); err != nil {
		t.Fatalf("create games (ascending): %v", err)
	}
	if err := ba.Iterate(50); err != nil {
		t.Fatalf("iterate (ascending): %v", err)
	}

	bd := NewDefaultBase()
	if err := bd.CreateGames(descending); err != nil {
		t.Fatalf("create games (descending): %v", err)
	}
	if err := bd.Iterate(50); err != nil {
		t.Fatalf("iterate (descending): %v", err)
	}

	for _, name := range []string{"alice", "bob"} {
		ra, rd := ba.RatingsForPlayer(name), bd.RatingsForPlayer(name)
		if len(ra) != len(rd) {
			t.Fatalf("%s: day count differs between orderings", name)
		}
		for i := range ra {
			if ra[i].Day != rd[i].Day {
				t.Fatalf("%s day %d: day mismatch", name, i)
			}
			if !almostEqual(ra[i].Elo, rd[i].Elo, 1e-3) {
				t.Errorf("%s day %d: elo %v vs %v differ by ordering", name, ra[i].Day, ra[i].Elo, rd[i].Elo)
			}
			if !almostEqual(ra[i].Uncertainty, rd[i].Uncertainty, 1e-3) {
				t.Errorf("%s day %d: uncertainty %v vs %v differ by ordering", name, ra[i].Day, ra[i].Uncertainty, rd[i].Uncertainty)
			}
		}
	}
}

// TestScenarioD_UnstableTrigger covers spec scenario D: an extreme
// handicap on a far-future day must surface UnstableRating rather than
// silently diverging.
func TestScenarioD_UnstableTrigger(t *testing.T) {
	b := NewDefaultBase()
	var recs []GameRecord
	for i := 0; i < 10; i++ {
		recs = append(recs,
			GameRecord{Black: "anchor", White: "player", Winner: "B", Day: 1, Handicap: 0},
			GameRecord{Black: "anchor", White: "player", Winner: "W", Day: 1, Handicap: 0},
		)
	}
	for i := 0; i < 10; i++ {
		recs = append(recs,
			GameRecord{Black: "anchor", White: "player", Winner: "B", Day: 180, Handicap: 600},
			GameRecord{Black: "anchor", White: "player", Winner: "W", Day: 180, Handicap: 600},
		)
	}
	if err := b.CreateGames(recs); err != nil {
		t.Fatalf("create games: %v", err)
	}
	if err := b.Iterate(10); err == nil {
		t.Fatal("expected UnstableRating, got nil")
	} else if _, ok := err.(*UnstableRating); !ok {
		t.Fatalf("expected *UnstableRating, got %T: %v", err, err)
	}
}

// TestScenarioE_SingleGameAnchor covers spec scenario E.
func TestScenarioE_SingleGameAnchor(t *testing.T) {
	b := NewDefaultBase()
	if _, err := b.CreateGame("playerA", "playerB", "D", 0, 0); err != nil {
		t.Fatalf("create game: %v", err)
	}
	if err := b.Iterate(50); err != nil {
		t.Fatalf("iterate: %v", err)
	}
	ra := b.RatingsForPlayer("playerA")
	rb := b.RatingsForPlayer("playerB")
	if len(ra) != 1 || len(rb) != 1 {
		t.Fatalf("expected one day each, got %d and %d", len(ra), len(rb))
	}
	if !almostEqual(ra[0].Elo, rb[0].Elo, 1e-6) {
		t.Fatalf("elo mismatch: %v vs %v", ra[0].Elo, rb[0].Elo)
	}
	if ra[0].Uncertainty <= 0 || rb[0].Uncertainty <= 0 {
		t.Fatalf("expected strictly positive uncertainty, got %v and %v", ra[0].Uncertainty, rb[0].Uncertainty)
	}
	if !almostEqual(ra[0].Uncertainty, rb[0].Uncertainty, 1e-6) {
		t.Fatalf("uncertainty mismatch: %v vs %v", ra[0].Uncertainty, rb[0].Uncertainty)
	}
}

// TestAnchoringRequiresVirtualGames covers spec property 8: without
// virtual games the gauge is unconstrained, so an all-zero start stays
// exactly at zero (the Newton step has no anchor pulling it away).
func TestAnchoringRequiresVirtualGames(t *testing.T) {
	b := NewBase(Config{W2: 300, VirtualGames: 0})
	if err := b.CreateGames([]GameRecord{
		{Black: "x", White: "y", Winner: "D", Day: 1},
	}); err != nil {
		t.Fatalf("create games: %v", err)
	}
	if err := b.Iterate(20); err != nil {
		t.Fatalf("iterate: %v", err)
	}
	for _, name := range []string{"x", "y"} {
		rows := b.RatingsForPlayer(name)
		if !almostEqual(rows[0].Elo, 0, 1e-6) {
			t.Fatalf("%s: expected rating pinned at 0 without virtual games, got %v", name, rows[0].Elo)
		}
	}
}

// TestLogLikelihoodMonotoneNonDecrease covers spec property 9.
func TestLogLikelihoodMonotoneNonDecrease(t *testing.T) {
	b := buildScenarioA(t)
	prev := math.Inf(-1)
	for sweep := 0; sweep < 30; sweep++ {
		if err := b.sweepOnce(); err != nil {
			t.Fatalf("sweep %d: %v", sweep, err)
		}
		ll := b.LogLikelihood()
		if ll < prev-1e-6 {
			t.Fatalf("sweep %d: log-likelihood decreased: %v -> %v", sweep, prev, ll)
		}
		prev = ll
	}
}

func TestInvalidGame_SelfPlay(t *testing.T) {
	b := NewDefaultBase()
	_, err := b.CreateGame("same", "same", "D", 1, 0)
	if err == nil {
		t.Fatal("expected InvalidGame, got nil")
	}
	if _, ok := err.(*InvalidGame); !ok {
		t.Fatalf("expected *InvalidGame, got %T", err)
	}
}

func TestParseWinner_Invalid(t *testing.T) {
	if _, err := ParseWinner("X"); err == nil {
		t.Fatal("expected error for unrecognized winner code")
	}
}

func TestUncertaintyIsNaNBeforeUpdate(t *testing.T) {
	b := NewDefaultBase()
	if _, err := b.CreateGame("a", "b", "D", 1, 0); err != nil {
		t.Fatalf("create game: %v", err)
	}
	rows := b.RatingsForPlayer("a")
	if !math.IsNaN(rows[0].Uncertainty) {
		t.Fatalf("expected NaN sentinel before UpdateUncertainty, got %v", rows[0].Uncertainty)
	}
}

func TestGetRating_Interpolation(t *testing.T) {
	b := buildScenarioA(t)
	if err := b.Iterate(50); err != nil {
		t.Fatalf("iterate: %v", err)
	}
	ev := NewEvaluate(b)
	mid, ok := ev.GetRating("shusaku", 2, false)
	if !ok {
		t.Fatal("expected shusaku to be known")
	}
	rows := b.RatingsForPlayer("shusaku")
	if !almostEqual(mid, rows[1].Elo, 1e-9) {
		t.Fatalf("rating on an exact known day should match fitted value: got %v, want %v", mid, rows[1].Elo)
	}

	before, ok := ev.GetRating("shusaku", -100, false)
	if !ok || !almostEqual(before, rows[0].Elo, 1e-9) {
		t.Fatalf("rating before first day should clamp to first day: got %v, want %v", before, rows[0].Elo)
	}
	after, ok := ev.GetRating("shusaku", 1000, false)
	if !ok || !almostEqual(after, rows[len(rows)-1].Elo, 1e-9) {
		t.Fatalf("rating after last day should clamp to last day: got %v, want %v", after, rows[len(rows)-1].Elo)
	}

	if elo, ok := ev.GetRating("nobody", 1, false); !ok || elo != 0 {
		t.Fatalf("expected unknown player to substitute a zero rating when ignoreNullPlayers is false: got (%v, %v)", elo, ok)
	}
	if _, ok := ev.GetRating("nobody", 1, true); ok {
		t.Fatal("expected unknown player to report not-ok when ignoreNullPlayers is true")
	}
}

func TestExprHandicap(t *testing.T) {
	fn, err := ExprHandicap("handicap + day / 30.0")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	g := &Game{Day: 60, Handicap: 100}
	if got, want := fn(g), 102.0; !almostEqual(got, want, 1e-9) {
		t.Fatalf("handicap = %v, want %v", got, want)
	}
}

func TestExprHandicap_InvalidExpression(t *testing.T) {
	if _, err := ExprHandicap("not a valid ((( expr"); err == nil {
		t.Fatal("expected compile error")
	}
}
