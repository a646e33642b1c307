// Package postgres provides the character source and the bulk loader for
// the reporting table.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/clanstats/internal/config"
	"example.com/clanstats/internal/domain"
)

var statsTable = pgx.Identifier{"stats", "t_aggregate_activity_stats"}

var statsColumns = []string{
	"group_id",
	"clan_id",
	"member_id",
	"character_id",
	"activity_hash",
	"stat_id",
	"stat",
}

// Repository provides Postgres-backed access for the stats pipeline.
type Repository struct {
	pool *pgxpool.Pool
	sql  config.SQLConfig
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool, sql config.SQLConfig) *Repository {
	return &Repository{pool: pool, sql: sql}
}

// Characters runs the configured select and returns the working set for
// this run. Each result row carries the character as a single jsonb value.
func (r *Repository) Characters(ctx context.Context) ([]domain.Character, error) {
	rows, err := r.pool.Query(ctx, r.sql.CharacterSelect)
	if err != nil {
		return nil, fmt.Errorf("character select: %w", err)
	}
	defer rows.Close()

	characters := make([]domain.Character, 0)
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var character domain.Character
		if err := json.Unmarshal(raw, &character); err != nil {
			return nil, fmt.Errorf("decode character row: %w", err)
		}
		characters = append(characters, character)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return characters, nil
}

// LoadRows bulk-copies the flattened rows into the reporting table in
// chunks, one transaction per chunk, and returns the number of rows
// written.
func (r *Repository) LoadRows(ctx context.Context, statRows []domain.ActivityStatRow, chunkSize int) (int64, error) {
	if chunkSize <= 0 {
		chunkSize = 10000
	}

	var total int64
	for start := 0; start < len(statRows); start += chunkSize {
		end := start + chunkSize
		if end > len(statRows) {
			end = len(statRows)
		}

		copied, err := r.copyChunk(ctx, statRows[start:end])
		if err != nil {
			return total, fmt.Errorf("load chunk [%d,%d): %w", start, end, err)
		}
		total += copied
	}
	return total, nil
}

func (r *Repository) copyChunk(ctx context.Context, chunk []domain.ActivityStatRow) (int64, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	copied, err := tx.CopyFrom(ctx, statsTable, statsColumns, pgx.CopyFromSlice(len(chunk), func(i int) ([]any, error) {
		row := chunk[i]
		return []any{
			row.GroupID,
			row.ClanID,
			row.MemberID,
			row.CharacterID,
			row.ActivityHash,
			row.StatID,
			[]byte(row.Stat),
		}, nil
	}))
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return copied, nil
}

// InsertRow writes a single row using the configured statInsert statement.
// The bulk path is the default; this mirrors the row-at-a-time loader and
// stays useful for spot repairs.
func (r *Repository) InsertRow(ctx context.Context, row domain.ActivityStatRow) error {
	_, err := r.pool.Exec(ctx, r.sql.StatInsert,
		row.GroupID,
		row.ClanID,
		row.MemberID,
		row.CharacterID,
		row.ActivityHash,
		row.StatID,
		[]byte(row.Stat),
	)
	return err
}

// ExecDDL runs one maintenance statement. Each statement commits on its
// own; REFRESH MATERIALIZED VIEW cannot share a transaction with the
// ANALYZE statements around it.
func (r *Repository) ExecDDL(ctx context.Context, stmt string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, stmt)
	return err
}
