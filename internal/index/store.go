// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package index loads enrichment output into a SQLite database with a
// full-text index over source titles and snippets, so collected evidence
// can be queried and exported across runs.
package index

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"github.com/pdiddy/evidence-engine/internal/ledger"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

const (
	dbFile            = "evidence.db"
	defaultClaimField = "claim"
	defaultMaxResults = 20
)

// Store manages the evidence SQLite database.
type Store struct {
	db         *sql.DB
	dir        string
	claimField string
	maxResults int
	logger     logrus.FieldLogger
}

// NewStore opens or creates the database at cfg.IndexDir/evidence.db and
// creates the schema if it does not exist.
func NewStore(cfg types.IndexConfig, logger logrus.FieldLogger) (*Store, error) {
	if cfg.IndexDir == "" {
		return nil, fmt.Errorf("index directory is not set")
	}
	if err := os.MkdirAll(cfg.IndexDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	dbPath := filepath.Join(cfg.IndexDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:         db,
		dir:        cfg.IndexDir,
		claimField: cfg.ClaimField,
		maxResults: cfg.MaxResults,
		logger:     logger,
	}
	if s.claimField == "" {
		s.claimField = defaultClaimField
	}
	if s.maxResults <= 0 {
		s.maxResults = defaultMaxResults
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS claims (
			id TEXT PRIMARY KEY,
			text TEXT,
			run_id TEXT,
			enriched_at TEXT,
			record TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS sources (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			claim_id TEXT NOT NULL REFERENCES claims(id) ON DELETE CASCADE,
			bucket TEXT NOT NULL,
			position INTEGER NOT NULL,
			url TEXT NOT NULL,
			title TEXT,
			content TEXT,
			domain TEXT,
			score REAL,
			query TEXT,
			published_date TEXT,
			UNIQUE (claim_id, bucket, url)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sources_claim_id ON sources(claim_id)`,
		`CREATE INDEX IF NOT EXISTS idx_sources_domain ON sources(domain)`,
		`CREATE TABLE IF NOT EXISTS ingest_status (
			path TEXT PRIMARY KEY,
			mod_time TEXT
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='sources_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}
	if ftsExists > 0 {
		return nil
	}

	ftsStatements := []string{
		`CREATE VIRTUAL TABLE sources_fts USING fts5(title, content, content=sources, content_rowid=rowid)`,
		`CREATE TRIGGER sources_ai AFTER INSERT ON sources BEGIN
			INSERT INTO sources_fts(rowid, title, content) VALUES (new.rowid, new.title, new.content);
		END`,
		`CREATE TRIGGER sources_ad AFTER DELETE ON sources BEGIN
			INSERT INTO sources_fts(sources_fts, rowid, title, content) VALUES('delete', old.rowid, old.title, old.content);
		END`,
		`CREATE TRIGGER sources_au AFTER UPDATE ON sources BEGIN
			INSERT INTO sources_fts(sources_fts, rowid, title, content) VALUES('delete', old.rowid, old.title, old.content);
			INSERT INTO sources_fts(rowid, title, content) VALUES (new.rowid, new.title, new.content);
		END`,
	}
	for _, stmt := range ftsStatements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("creating FTS infrastructure: %w", err)
		}
	}
	return nil
}

// IngestSummary holds counts from one Ingest call.
type IngestSummary struct {
	Claims  int
	Sources int

	// Skipped counts torn records at the end of the file.
	Skipped int

	// Unchanged is set when the file was already indexed at its current
	// modification time.
	Unchanged bool
}

// Ingest loads an enrichment JSONL file. Files whose modification time
// matches the last ingest are skipped. Otherwise every claim is upserted
// and its sources replaced, all in one transaction. On success with at
// least one claim it refreshes export.yaml.
func (s *Store) Ingest(ctx context.Context, path string, w io.Writer) (IngestSummary, error) {
	info, err := os.Stat(path)
	if err != nil {
		return IngestSummary{}, fmt.Errorf("reading %s: %w", path, err)
	}
	modTime := info.ModTime().UTC().Format(time.RFC3339Nano)
	key, err := filepath.Abs(path)
	if err != nil {
		key = path
	}

	var stored string
	err = s.db.QueryRowContext(ctx,
		`SELECT mod_time FROM ingest_status WHERE path = ?`, key,
	).Scan(&stored)
	if err == nil && stored == modTime {
		fmt.Fprintf(w, "skipped %s (unchanged)\n", path)
		return IngestSummary{Unchanged: true}, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return IngestSummary{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var summary IngestSummary
	stats, err := ledger.ReadEnriched(path, func(e types.EnrichedClaim) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.ingestClaim(ctx, tx, e); err != nil {
			return fmt.Errorf("claim %s: %w", e.ID, err)
		}
		summary.Claims++
		summary.Sources += len(e.Supporting) + len(e.Opposing)
		return nil
	})
	if err != nil {
		return summary, err
	}
	summary.Skipped = stats.Torn

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO ingest_status (path, mod_time) VALUES (?, ?)
		 ON CONFLICT(path) DO UPDATE SET mod_time=excluded.mod_time`,
		key, modTime,
	); err != nil {
		return summary, fmt.Errorf("updating ingest status: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return summary, fmt.Errorf("committing: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"path":    path,
		"claims":  summary.Claims,
		"sources": summary.Sources,
		"torn":    summary.Skipped,
	}).Info("ingested enrichment output")
	fmt.Fprintf(w, "indexed %s: %d claims, %d sources, %d torn records skipped\n",
		path, summary.Claims, summary.Sources, summary.Skipped)

	if summary.Claims > 0 {
		if _, err := s.ExportYAML(ctx, QueryOptions{}); err != nil {
			fmt.Fprintf(w, "warning: export.yaml write failed: %v\n", err)
		}
	}
	return summary, nil
}

func (s *Store) ingestClaim(ctx context.Context, tx *sql.Tx, e types.EnrichedClaim) error {
	text := e.Text
	if text == "" {
		text, _ = e.Record[s.claimField].(string)
	}
	record, err := json.Marshal(e.Record)
	if err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}
	enrichedAt := ""
	if !e.EnrichedAt.IsZero() {
		enrichedAt = e.EnrichedAt.UTC().Format(time.RFC3339)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO claims (id, text, run_id, enriched_at, record)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			text=excluded.text, run_id=excluded.run_id,
			enriched_at=excluded.enriched_at, record=excluded.record`,
		e.ID, text, e.RunID, enrichedAt, string(record),
	); err != nil {
		return fmt.Errorf("upserting claim: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM sources WHERE claim_id = ?`, e.ID); err != nil {
		return fmt.Errorf("deleting old sources: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO sources
			(claim_id, bucket, position, url, title, content, domain, score, query, published_date)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	buckets := []struct {
		name    types.BucketName
		sources []types.Source
	}{
		{types.BucketSupporting, e.Supporting},
		{types.BucketOpposing, e.Opposing},
	}
	for _, b := range buckets {
		for i, src := range b.sources {
			if _, err := stmt.ExecContext(ctx,
				e.ID, string(b.name), i, src.URL, src.Title, src.Content,
				src.Domain, src.Score, src.Query, src.PublishedDate,
			); err != nil {
				return fmt.Errorf("inserting source %s: %w", src.URL, err)
			}
		}
	}
	return nil
}
