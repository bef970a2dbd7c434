package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

// HTTPSource fetches one JSON batch of games per calendar day from a
// scoreboard-style HTTP API and normalizes them into Records, fetching
// days concurrently via errgroup.WithContext: the first real fetch error
// cancels every in-flight request instead of being counted and swallowed.
type HTTPSource struct {
	BaseURL     string
	Client      *http.Client
	Concurrency int
}

// NewHTTPSource returns a source hitting baseURL with a sane default
// client timeout and a concurrency of 10 in-flight day fetches.
func NewHTTPSource(baseURL string) *HTTPSource {
	return &HTTPSource{
		BaseURL:     baseURL,
		Client:      &http.Client{Timeout: 30 * time.Second},
		Concurrency: 10,
	}
}

// dayBatch is the JSON shape returned by {BaseURL}/scoreboard?date=YYYYMMDD.
type dayBatch struct {
	Games []struct {
		Black    string  `json:"black"`
		White    string  `json:"white"`
		Winner   string  `json:"winner"`
		Handicap float64 `json:"handicap"`
	} `json:"games"`
}

func (s *HTTPSource) fetchDay(ctx context.Context, day time.Time) ([]Record, error) {
	url := fmt.Sprintf("%s/scoreboard?date=%s", s.BaseURL, day.Format("20060102"))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("feed: build request for %s: %w", url, err)
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feed: fetch %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed: %s returned status %d", url, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("feed: read response from %s: %w", url, err)
	}
	var batch dayBatch
	if err := json.Unmarshal(body, &batch); err != nil {
		return nil, fmt.Errorf("feed: parse response from %s: %w", url, err)
	}
	out := make([]Record, 0, len(batch.Games))
	for _, g := range batch.Games {
		out = append(out, Record{Black: g.Black, White: g.White, Winner: g.Winner, Date: day, Handicap: g.Handicap})
	}
	return out, nil
}

// Fetch pulls every day in [start, end] concurrently, bounded by
// s.Concurrency, and returns the union in chronological order.
func (s *HTTPSource) Fetch(start, end time.Time) ([]Record, error) {
	var days []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}

	results := make([][]Record, len(days))
	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(s.Concurrency)
	for i, day := range days {
		i, day := i, day
		g.Go(func() error {
			recs, err := s.fetchDay(ctx, day)
			if err != nil {
				return err
			}
			results[i] = recs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []Record
	for _, recs := range results {
		all = append(all, recs...)
	}
	return all, nil
}
