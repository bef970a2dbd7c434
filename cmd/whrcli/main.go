// Command whrcli fits a whole-history rating model against a local game
// feed and prints the resulting ratings.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"whole-history-rating/internal/cache"
	"whole-history-rating/internal/config"
	"whole-history-rating/internal/export"
	"whole-history-rating/internal/feed"
	"whole-history-rating/whr"
)

// OutputFormat selects how buildOutputs' rows are rendered.
type OutputFormat string

const (
	FormatTable OutputFormat = "table"
	FormatJSON  OutputFormat = "json"
	FormatCSV   OutputFormat = "csv"
)

// RatingOutput is one player's latest rating, the JSON/CSV row shape.
type RatingOutput struct {
	Rank        int     `json:"rank"`
	Player      string  `json:"player"`
	Elo         float64 `json:"elo"`
	Uncertainty float64 `json:"uncertainty"`
	Days        int     `json:"days"`
}

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Whole History Rating")
	fmt.Println("=====================")
	fmt.Printf("w2=%.1f virtual_games=%d feed=%s\n\n", cfg.Rating.W2, cfg.Rating.VirtualGames, cfg.FeedSource)

	records, err := fetchRecords(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error fetching games: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Fetched %d games\n", len(records))
	if len(records) == 0 {
		fmt.Println("No games found.")
		os.Exit(0)
	}

	base := whr.NewBase(cfg.Rating)
	epoch := records[0].Date
	for _, r := range records {
		epoch = minTime(epoch, r.Date)
	}
	for _, r := range records {
		day := int(r.Date.Sub(epoch).Hours() / 24)
		if _, err := base.CreateGame(r.Black, r.White, r.Winner, day, r.Handicap); err != nil {
			fmt.Fprintf(os.Stderr, "skipping invalid game: %v\n", err)
		}
	}

	fmt.Println("Fitting ratings via Newton iteration...")
	if err := base.IterateUntilConverge(true); err != nil {
		fmt.Fprintf(os.Stderr, "error fitting ratings: %v\n", err)
		os.Exit(1)
	}

	if cfg.ExportPath != "" {
		if err := export.WriteRatings(cfg.ExportPath, base); err != nil {
			fmt.Fprintf(os.Stderr, "error exporting ratings: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Exported ratings to %s\n", cfg.ExportPath)
	}

	outputs := buildOutputs(base)
	output := render(outputs, FormatTable)
	fmt.Print(output)
}

func minTime(a, b time.Time) time.Time {
	if b.Before(a) {
		return b
	}
	return a
}

func fetchRecords(cfg config.Config) ([]feed.Record, error) {
	c, err := cache.New()
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}

	var source feed.Source
	switch cfg.FeedSource {
	case "http":
		source = feed.NewHTTPSource(cfg.FeedURL)
	default:
		source = feed.NewFileSource(cfg.FeedPath)
	}

	key := cfg.FeedSource + ":" + cfg.FeedPath + cfg.FeedURL
	if records, ok := c.GetStaleOK(key); ok {
		fmt.Printf("Using cached data (%d games)\n", len(records))
		return records, nil
	}

	start := time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Now()
	records, err := source.Fetch(start, end)
	if err != nil {
		return nil, err
	}
	if err := c.Put(key, records); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to cache results: %v\n", err)
	}
	return records, nil
}

func buildOutputs(base *whr.Base) []RatingOutput {
	var outputs []RatingOutput
	for i, pr := range base.GetOrderedRatings() {
		if len(pr.Ratings) == 0 {
			continue
		}
		last := pr.Ratings[len(pr.Ratings)-1]
		outputs = append(outputs, RatingOutput{
			Rank:        i + 1,
			Player:      pr.Name,
			Elo:         last.Elo,
			Uncertainty: last.Uncertainty,
			Days:        len(pr.Ratings),
		})
	}
	return outputs
}

func render(outputs []RatingOutput, format OutputFormat) string {
	switch format {
	case FormatJSON:
		return formatJSON(outputs)
	case FormatCSV:
		return formatCSV(outputs)
	default:
		return formatTable(outputs)
	}
}

var titleCaser = cases.Title(language.English)

func formatTable(outputs []RatingOutput) string {
	var sb strings.Builder
	sb.WriteString("\nWhole History Ratings\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n", time.Now().Format("2006-01-02 15:04:05")))
	sb.WriteString(strings.Repeat("=", 70) + "\n")
	sb.WriteString(fmt.Sprintf("%-4s %-30s %8s %8s %6s\n", "Rank", "Player", "Elo", "Sigma", "Days"))
	sb.WriteString(strings.Repeat("-", 70) + "\n")
	for _, o := range outputs {
		sb.WriteString(fmt.Sprintf("%-4d %-30s %8.1f %8.1f %6d\n",
			o.Rank, titleCaser.String(o.Player), o.Elo, o.Uncertainty, o.Days))
	}
	sb.WriteString(strings.Repeat("=", 70) + "\n")
	return sb.String()
}

func formatJSON(outputs []RatingOutput) string {
	data, _ := json.MarshalIndent(outputs, "", "  ")
	return string(data)
}

func formatCSV(outputs []RatingOutput) string {
	var sb strings.Builder
	sb.WriteString("rank,player,elo,uncertainty,days\n")
	for _, o := range outputs {
		sb.WriteString(fmt.Sprintf("%d,%q,%.1f,%.1f,%d\n", o.Rank, o.Player, o.Elo, o.Uncertainty, o.Days))
	}
	return sb.String()
}
