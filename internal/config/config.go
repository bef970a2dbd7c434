// Package config resolves process configuration from flags, environment
// variables, and an optional .env file, loaded first via godotenv so
// deployed services don't need every value passed on the command line.
package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"whole-history-rating/whr"
)

// Config is the process-level configuration for the whrcli/whrserver
// binaries: the rating engine's tunables plus I/O endpoints.
type Config struct {
	Rating whr.Config

	// FeedSource is "http" or "file".
	FeedSource string
	// FeedURL is the scoreboard API base URL when FeedSource == "http".
	FeedURL string
	// FeedPath is the ndjson file path when FeedSource == "file".
	FeedPath string

	// DatabaseURL is the pgx connection string for internal/store, empty
	// to disable durable persistence.
	DatabaseURL string

	// ListenAddr is whrserver's bind address.
	ListenAddr string

	// ExportPath, if non-empty, tells whrcli to write a Parquet rating
	// snapshot there after fitting.
	ExportPath string
}

// Load reads a .env file (if present; a missing file is not an error),
// then parses a fresh FlagSet against args, with environment variables
// as the flags' defaults so a flag can be left unset in either layer.
func Load(args []string) (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("config: load .env: %w", err)
	}

	fs := flag.NewFlagSet("whr", flag.ContinueOnError)
	w2 := fs.Float64("w2", envFloat("WHR_W2", 300.0), "per-day Wiener prior variance, in elo^2")
	virtualGames := fs.Int("virtual-games", envInt("WHR_VIRTUAL_GAMES", 2), "first-day virtual anchor games")
	feedSource := fs.String("feed", envString("WHR_FEED_SOURCE", "file"), "feed source: 'http' or 'file'")
	feedURL := fs.String("feed-url", envString("WHR_FEED_URL", ""), "scoreboard API base URL (feed=http)")
	feedPath := fs.String("feed-path", envString("WHR_FEED_PATH", "games.ndjson"), "ndjson game file (feed=file)")
	dbURL := fs.String("database-url", envString("WHR_DATABASE_URL", ""), "pgx connection string; empty disables persistence")
	listenAddr := fs.String("listen", envString("WHR_LISTEN_ADDR", ":8080"), "whrserver bind address")
	exportPath := fs.String("export", envString("WHR_EXPORT_PATH", ""), "write a Parquet rating snapshot here after fitting")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg := Config{
		Rating:      whr.Config{W2: *w2, VirtualGames: *virtualGames},
		FeedSource:  *feedSource,
		FeedURL:     *feedURL,
		FeedPath:    *feedPath,
		DatabaseURL: *dbURL,
		ListenAddr:  *listenAddr,
		ExportPath:  *exportPath,
	}
	return cfg, nil
}

func envString(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func envInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
