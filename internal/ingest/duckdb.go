// Cinefacet - Faceted Movie Similarity Recommender
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinefacet

// Package ingest reads the movie and credit CSV files into source records.
//
// Both files are read by DuckDB with every column as text and joined on the
// movie id. The result keeps the order of the movies file, which is the
// order rows are later assigned in.
package ingest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"

	_ "github.com/duckdb/duckdb-go/v2" // registers the "duckdb" driver
	"github.com/rs/zerolog"

	"github.com/tomtom215/cinefacet/internal/document"
)

// ErrMissingFile is returned when an input file does not exist.
var ErrMissingFile = errors.New("input file not found")

// Config names the input files.
type Config struct {
	MoviesPath  string
	CreditsPath string

	// DatabasePath is the DuckDB database used for the join. Empty means an
	// in-memory database.
	DatabasePath string
}

// DuckDBSource loads records with DuckDB.
type DuckDBSource struct {
	cfg    Config
	logger zerolog.Logger
}

// NewDuckDBSource creates a source. Files are checked on every Records call,
// so they may appear after construction.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewDuckDBSource(cfg Config, logger zerolog.Logger) *DuckDBSource {
	return &DuckDBSource{
		cfg:    cfg,
		logger: logger.With().Str("component", "ingest").Logger(),
	}
}

// recordQuery joins movies to credits. %s placeholders are quoted file
// paths; read_csv does not take bound parameters. When a movie has several
// credit rows the first one in file order wins.
const recordQuery = `
WITH movies AS (
	SELECT row_number() OVER () AS ord, *
	FROM read_csv(%s, header = true, all_varchar = true)
),
credits AS (
	SELECT *
	FROM (
		SELECT row_number() OVER () AS ord, *
		FROM read_csv(%s, header = true, all_varchar = true)
	)
	QUALIFY row_number() OVER (PARTITION BY movie_id ORDER BY ord) = 1
)
SELECT
	TRY_CAST(m.id AS BIGINT),
	m.title,
	m.overview,
	m.genres,
	m.keywords,
	c."cast",
	c.crew,
	m.production_companies,
	m.release_date,
	m.budget,
	m.revenue,
	m.runtime,
	m.popularity,
	m.vote_average,
	m.vote_count,
	m.spoken_languages,
	m.status
FROM movies m
LEFT JOIN credits c ON TRY_CAST(c.movie_id AS BIGINT) = TRY_CAST(m.id AS BIGINT)
ORDER BY m.ord`

// Records reads and joins both files.
func (s *DuckDBSource) Records(ctx context.Context) ([]document.Record, error) {
	for _, p := range []string{s.cfg.MoviesPath, s.cfg.CreditsPath} {
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrMissingFile, p)
		}
	}

	db, err := sql.Open("duckdb", s.dsn())
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to close duckdb")
		}
	}()

	query := fmt.Sprintf(recordQuery, quoteLiteral(s.cfg.MoviesPath), quoteLiteral(s.cfg.CreditsPath))
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var records []document.Record
	skipped := 0
	for rows.Next() {
		var id sql.NullInt64
		var cols [16]sql.NullString
		dest := make([]any, 0, 17)
		dest = append(dest, &id)
		for i := range cols {
			dest = append(dest, &cols[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		if !id.Valid {
			skipped++
			continue
		}
		records = append(records, newRecord(id.Int64, cols))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}

	ev := s.logger.Info().Int("records", len(records))
	if skipped > 0 {
		ev = ev.Int("invalid_ids", skipped)
	}
	ev.Str("movies", s.cfg.MoviesPath).Msg("records ingested")
	return records, nil
}

func newRecord(id int64, c [16]sql.NullString) document.Record {
	v := func(i int) string {
		if !c[i].Valid {
			return ""
		}
		return c[i].String
	}
	return document.Record{
		ID:                  id,
		Title:               v(0),
		Overview:            v(1),
		Genres:              v(2),
		Keywords:            v(3),
		Cast:                v(4),
		Crew:                v(5),
		ProductionCompanies: v(6),
		ReleaseDate:         v(7),
		Budget:              v(8),
		Revenue:             v(9),
		Runtime:             v(10),
		Popularity:          v(11),
		VoteAverage:         v(12),
		VoteCount:           v(13),
		SpokenLanguages:     v(14),
		Status:              v(15),
	}
}

func (s *DuckDBSource) dsn() string {
	path := s.cfg.DatabasePath
	if path == "" {
		path = ":memory:"
	}
	return path + "?autoinstall_known_extensions=false&autoload_known_extensions=false"
}

// quoteLiteral returns s as a SQL string literal.
func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
