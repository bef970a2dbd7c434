// Command whrserver runs a long-lived whr.Base behind the httpapi router,
// optionally replaying a Postgres game log into it at startup. Games
// posted over HTTP are not written to that log.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"whole-history-rating/internal/config"
	"whole-history-rating/internal/httpapi"
	"whole-history-rating/internal/store"
	"whole-history-rating/whr"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	base := whr.NewBase(cfg.Rating)

	ctx := context.Background()
	if cfg.DatabaseURL != "" {
		db, err := store.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error connecting to database: %v\n", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := store.Migrate(ctx, db); err != nil {
			fmt.Fprintf(os.Stderr, "error migrating schema: %v\n", err)
			os.Exit(1)
		}
		records, err := db.LoadGames(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error loading game log: %v\n", err)
			os.Exit(1)
		}
		if err := base.CreateGames(records); err != nil {
			fmt.Fprintf(os.Stderr, "error replaying game log: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Replayed %d games from durable log\n", len(records))
	}

	srv := httpapi.NewServer(base)
	fmt.Printf("Listening on %s\n", cfg.ListenAddr)
	if err := http.ListenAndServe(cfg.ListenAddr, srv.Router()); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}
