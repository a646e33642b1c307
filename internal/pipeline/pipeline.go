// Package pipeline orchestrates one truncate-and-reload run of the
// aggregate activity stats job.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"example.com/clanstats/internal/config"
	"example.com/clanstats/internal/domain"
	"example.com/clanstats/internal/observability"
)

// Store captures the persistence operations the pipeline needs.
type Store interface {
	Characters(context.Context) ([]domain.Character, error)
	LoadRows(context.Context, []domain.ActivityStatRow, int) (int64, error)
	ExecDDL(context.Context, string) error
}

// Fetcher attaches API stats to the working set.
type Fetcher interface {
	BuildRequests([]domain.Character) []domain.Character
	Fetch(context.Context, []domain.Character) ([]domain.Character, error)
}

// Publisher emits the run summary once a run succeeds.
type Publisher interface {
	PublishRunCompleted(context.Context, domain.RunSummary) error
}

// Option configures optional behaviour for the Pipeline.
type Option func(*Pipeline)

// WithLogger overrides the logger used for stage diagnostics.
func WithLogger(logger *log.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithPublisher attaches a run-summary publisher.
func WithPublisher(publisher Publisher) Option {
	return func(p *Pipeline) {
		p.publisher = publisher
	}
}

// Pipeline wires the stages together: truncate, select characters, build
// requests, fetch stats, flatten, bulk load, table maintenance.
type Pipeline struct {
	store     Store
	fetcher   Fetcher
	publisher Publisher
	sql       config.SQLConfig
	chunkSize int
	logger    *log.Logger
}

// New constructs a Pipeline.
func New(store Store, fetcher Fetcher, sql config.SQLConfig, chunkSize int, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:     store,
		fetcher:   fetcher,
		sql:       sql,
		chunkSize: chunkSize,
		logger:    log.New(log.Writer(), "[pipeline] ", log.LstdFlags|log.Lshortfile),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes one complete load. Any stage error aborts the run;
// recovery is rerunning the job, which truncates and reloads the table.
func (p *Pipeline) Run(ctx context.Context) (domain.RunSummary, error) {
	runID := uuid.NewString()
	p.logger.Printf("run %s starting", runID)

	if err := p.execDDL(ctx, "truncate", p.sql.TruncateActivity); err != nil {
		return domain.RunSummary{}, err
	}

	characters, err := p.store.Characters(ctx)
	if err != nil {
		return domain.RunSummary{}, err
	}
	p.logger.Printf("selected %d characters", len(characters))
	observability.RecordCharactersSelected(len(characters))

	characters = p.fetcher.BuildRequests(characters)

	fetchStart := time.Now()
	characters, err = p.fetcher.Fetch(ctx, characters)
	if err != nil {
		return domain.RunSummary{}, fmt.Errorf("fetch stats: %w", err)
	}
	fetchElapsed := time.Since(fetchStart)
	p.logger.Printf("api execution: %.2fs", fetchElapsed.Seconds())

	rows, err := domain.Flatten(characters)
	if err != nil {
		return domain.RunSummary{}, err
	}
	p.logger.Printf("flattened %d rows", len(rows))

	loadStart := time.Now()
	loaded, err := p.store.LoadRows(ctx, rows, p.chunkSize)
	if err != nil {
		return domain.RunSummary{}, fmt.Errorf("bulk load: %w", err)
	}
	loadElapsed := time.Since(loadStart)
	p.logger.Printf("database loading execution: %.2fs (%d rows)", loadElapsed.Seconds(), loaded)
	observability.RecordRowsLoaded(loaded, loadElapsed)

	maintenance := []struct {
		name string
		stmt string
	}{
		{"analyze table", p.sql.AnalyzeActivityTable},
		{"refresh view", p.sql.RefreshActivity},
		{"analyze view", p.sql.AnalyzeActivityView},
	}
	for _, m := range maintenance {
		if m.stmt == "" {
			continue
		}
		if err := p.execDDL(ctx, m.name, m.stmt); err != nil {
			return domain.RunSummary{}, err
		}
	}

	summary := domain.RunSummary{
		RunID:        runID,
		Characters:   len(characters),
		Rows:         loaded,
		FetchElapsed: fetchElapsed,
		LoadElapsed:  loadElapsed,
		CompletedAt:  time.Now().UTC(),
	}
	observability.RecordRunCompleted(summary.CompletedAt)

	// The table is already loaded; a failed summary event is not worth
	// failing the run over.
	if p.publisher != nil {
		if err := p.publisher.PublishRunCompleted(ctx, summary); err != nil {
			p.logger.Printf("run summary publish failed: %v", err)
		}
	}

	p.logger.Printf("run %s completed: %d characters, %d rows", runID, summary.Characters, summary.Rows)
	return summary, nil
}

func (p *Pipeline) execDDL(ctx context.Context, name, stmt string) error {
	start := time.Now()
	if err := p.store.ExecDDL(ctx, stmt); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	p.logger.Printf("%s: %.2fs", name, time.Since(start).Seconds())
	return nil
}
