package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"testing"

	"github.com/stretchr/testify/require"

	"example.com/clanstats/internal/config"
	"example.com/clanstats/internal/domain"
)

var testSQL = config.SQLConfig{
	CharacterSelect:      "SELECT character FROM stats.t_characters",
	TruncateActivity:     "TRUNCATE stats.t_aggregate_activity_stats",
	AnalyzeActivityTable: "ANALYZE stats.t_aggregate_activity_stats",
	RefreshActivity:      "REFRESH MATERIALIZED VIEW stats.v_activity",
	AnalyzeActivityView:  "ANALYZE stats.v_activity",
}

type stubStore struct {
	characters []domain.Character
	ddl        []string
	loaded     []domain.ActivityStatRow
	chunkSize  int
	loadCalls  int
	loadErr    error

	// records the order of operations across the run
	ops []string
}

func (s *stubStore) Characters(context.Context) ([]domain.Character, error) {
	s.ops = append(s.ops, "characters")
	return s.characters, nil
}

func (s *stubStore) LoadRows(_ context.Context, rows []domain.ActivityStatRow, chunkSize int) (int64, error) {
	s.ops = append(s.ops, "load")
	s.loadCalls++
	if s.loadErr != nil {
		return 0, s.loadErr
	}
	s.loaded = rows
	s.chunkSize = chunkSize
	return int64(len(rows)), nil
}

func (s *stubStore) ExecDDL(_ context.Context, stmt string) error {
	s.ops = append(s.ops, "ddl")
	s.ddl = append(s.ddl, stmt)
	return nil
}

type stubFetcher struct {
	err error
}

func (f *stubFetcher) BuildRequests(characters []domain.Character) []domain.Character {
	out := make([]domain.Character, len(characters))
	for i, character := range characters {
		character.RequestURL = "https://api.example/" + character.CharacterID
		out[i] = character
	}
	return out
}

func (f *stubFetcher) Fetch(_ context.Context, characters []domain.Character) ([]domain.Character, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]domain.Character, len(characters))
	for i, character := range characters {
		character.Stats = &domain.AggregateStats{Response: domain.AggregateResponse{Activities: []domain.Activity{{
			ActivityHash: 7,
			Values: map[string]json.RawMessage{
				"kills":  json.RawMessage(`{"statId":"kills"}`),
				"deaths": json.RawMessage(`{"statId":"deaths"}`),
			},
		}}}}
		out[i] = character
	}
	return out, nil
}

type stubPublisher struct {
	published []domain.RunSummary
	err       error
}

func (p *stubPublisher) PublishRunCompleted(_ context.Context, summary domain.RunSummary) error {
	p.published = append(p.published, summary)
	return p.err
}

func testLogger(t *testing.T) *log.Logger {
	return log.New(testWriter{t}, "", 0)
}

func TestRunLoadsFlattenedRows(t *testing.T) {
	store := &stubStore{characters: []domain.Character{
		{GroupID: 1, CharacterID: "a"},
		{GroupID: 1, CharacterID: "b"},
	}}
	publisher := &stubPublisher{}

	p := New(store, &stubFetcher{}, testSQL, 10000,
		WithLogger(testLogger(t)), WithPublisher(publisher))

	summary, err := p.Run(context.Background())
	require.NoError(t, err)

	// 2 characters x 1 activity x 2 stats
	require.Len(t, store.loaded, 4)
	require.Equal(t, int64(4), summary.Rows)
	require.Equal(t, 2, summary.Characters)
	require.Equal(t, 10000, store.chunkSize)
	require.NotEmpty(t, summary.RunID)

	require.Len(t, publisher.published, 1)
	require.Equal(t, summary.RunID, publisher.published[0].RunID)
}

func TestRunTruncatesBeforeLoadAndMaintainsAfter(t *testing.T) {
	store := &stubStore{characters: []domain.Character{{CharacterID: "a"}}}

	p := New(store, &stubFetcher{}, testSQL, 100, WithLogger(testLogger(t)))
	_, err := p.Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, []string{
		testSQL.TruncateActivity,
		testSQL.AnalyzeActivityTable,
		testSQL.RefreshActivity,
		testSQL.AnalyzeActivityView,
	}, store.ddl)
	require.Equal(t, []string{"ddl", "characters", "load", "ddl", "ddl", "ddl"}, store.ops)
}

func TestRunSkipsEmptyMaintenanceStatements(t *testing.T) {
	sql := testSQL
	sql.AnalyzeActivityView = ""
	store := &stubStore{characters: []domain.Character{{CharacterID: "a"}}}

	p := New(store, &stubFetcher{}, sql, 100, WithLogger(testLogger(t)))
	_, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{
		sql.TruncateActivity,
		sql.AnalyzeActivityTable,
		sql.RefreshActivity,
	}, store.ddl)
}

func TestRunAbortsWhenFetchFails(t *testing.T) {
	store := &stubStore{characters: []domain.Character{{CharacterID: "a"}}}

	p := New(store, &stubFetcher{err: errors.New("api down")}, testSQL, 100, WithLogger(testLogger(t)))
	_, err := p.Run(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "fetch stats")
	require.Zero(t, store.loadCalls, "no load after fetch failure")
}

func TestRunAbortsWhenLoadFails(t *testing.T) {
	store := &stubStore{
		characters: []domain.Character{{CharacterID: "a"}},
		loadErr:    errors.New("copy failed"),
	}
	publisher := &stubPublisher{}

	p := New(store, &stubFetcher{}, testSQL, 100,
		WithLogger(testLogger(t)), WithPublisher(publisher))
	_, err := p.Run(context.Background())
	require.Error(t, err)
	// Maintenance never ran; only the initial truncate.
	require.Equal(t, []string{testSQL.TruncateActivity}, store.ddl)
	require.Empty(t, publisher.published)
}

func TestRunSurvivesPublishFailure(t *testing.T) {
	store := &stubStore{characters: []domain.Character{{CharacterID: "a"}}}
	publisher := &stubPublisher{err: errors.New("kafka unreachable")}

	p := New(store, &stubFetcher{}, testSQL, 100,
		WithLogger(testLogger(t)), WithPublisher(publisher))
	_, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, publisher.published, 1)
}

type testWriter struct {
	t *testing.T
}

func (tw testWriter) Write(p []byte) (int, error) {
	tw.t.Log(string(p))
	return len(p), nil
}
