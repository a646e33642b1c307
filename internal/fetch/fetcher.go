// Package fetch fans the per-character stats requests out to the API
// under a bounded concurrency limit.
package fetch

import (
	"context"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"example.com/clanstats/internal/domain"
)

// StatsClient exposes the minimal API-client surface needed by the Fetcher.
type StatsClient interface {
	RequestURL(domain.Character) string
	AggregateStats(context.Context, string) (*domain.AggregateStats, error)
}

// Option configures optional behaviour for the Fetcher.
type Option func(*Fetcher)

// WithLogger overrides the logger used to report progress.
func WithLogger(logger *log.Logger) Option {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

// Fetcher attaches aggregate stats to characters, issuing at most limit
// requests at a time across the whole list.
type Fetcher struct {
	client StatsClient
	limit  int
	logger *log.Logger
}

// NewFetcher constructs a Fetcher with the provided client and limit.
func NewFetcher(client StatsClient, limit int, opts ...Option) *Fetcher {
	if limit <= 0 {
		limit = 25
	}
	f := &Fetcher{
		client: client,
		limit:  limit,
		logger: log.New(log.Writer(), "[fetch] ", log.LstdFlags|log.Lshortfile),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// BuildRequests maps each character to its fully-formed request URL.
func (f *Fetcher) BuildRequests(characters []domain.Character) []domain.Character {
	out := make([]domain.Character, len(characters))
	for i, character := range characters {
		character.RequestURL = f.client.RequestURL(character)
		out[i] = character
	}
	return out
}

// Fetch issues one GET per character and returns the characters with
// stats attached. The first error cancels all in-flight requests and
// fails the whole fetch; there is no partial result.
func (f *Fetcher) Fetch(ctx context.Context, characters []domain.Character) ([]domain.Character, error) {
	f.logger.Printf("fetching stats for %d characters (limit=%d)", len(characters), f.limit)
	start := time.Now()

	results := make([]domain.Character, len(characters))
	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(f.limit)

	for i, character := range characters {
		i, character := i, character
		if ctx.Err() != nil {
			break
		}
		group.Go(func() error {
			stats, err := f.client.AggregateStats(ctx, character.RequestURL)
			if err != nil {
				recordFetchError()
				return err
			}
			character.Stats = stats
			results[i] = character
			recordFetched(len(stats.Response.Activities))
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	elapsed := time.Since(start)
	fetchDuration.Observe(elapsed.Seconds())
	f.logger.Printf("fetched %d characters in %.2fs", len(results), elapsed.Seconds())
	return results, nil
}
