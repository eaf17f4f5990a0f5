// Package sqlite stores export history in a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/nextlevelbuilder/vibetorch/internal/export"
	"github.com/nextlevelbuilder/vibetorch/internal/store"
	"github.com/nextlevelbuilder/vibetorch/pkg/protocol"
)

const defaultCacheSize = 128

var _ store.HistoryStore = (*HistoryStore)(nil)

// HistoryStore implements export history on SQLite with an LRU cache in
// front of Get.
type HistoryStore struct {
	db     *sqlx.DB
	cache  *lru.Cache[string, store.Record]
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a HistoryStore.
type Option func(*HistoryStore)

func WithLogger(l *slog.Logger) Option { return func(s *HistoryStore) { s.logger = l } }

func WithClock(now func() time.Time) Option { return func(s *HistoryStore) { s.now = now } }

type row struct {
	ID        string `db:"id"`
	URL       string `db:"url"`
	Title     string `db:"title"`
	Count     int    `db:"element_count"`
	Tags      string `db:"tags"`
	Source    string `db:"source"`
	Payload   string `db:"payload"`
	CreatedAt int64  `db:"created_at"`
}

func (r row) record() store.Record {
	rec := store.Record{
		ID:        r.ID,
		URL:       r.URL,
		Title:     r.Title,
		Count:     r.Count,
		Source:    r.Source,
		Payload:   json.RawMessage(r.Payload),
		CreatedAt: time.UnixMilli(r.CreatedAt),
	}
	if r.Tags != "" {
		rec.Tags = strings.Split(r.Tags, ",")
	}
	return rec
}

// Open opens (or creates) the database at path. cacheSize <= 0 selects the
// default cache size.
func Open(path string, cacheSize int, opts ...Option) (*HistoryStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	db, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if cacheSize <= 0 {
		cacheSize = defaultCacheSize
	}
	cache, err := lru.New[string, store.Record](cacheSize)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create cache: %w", err)
	}

	s := &HistoryStore{db: db, cache: cache, logger: slog.Default(), now: time.Now}
	for _, o := range opts {
		o(s)
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	s.logger.Debug("history store opened", "path", path)
	return s, nil
}

func (s *HistoryStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS exports (
			id TEXT PRIMARY KEY,
			url TEXT NOT NULL DEFAULT '',
			title TEXT NOT NULL DEFAULT '',
			element_count INTEGER NOT NULL DEFAULT 0,
			tags TEXT NOT NULL DEFAULT '',
			source TEXT NOT NULL DEFAULT '',
			payload TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_exports_created ON exports(created_at)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the database.
func (s *HistoryStore) Close() error {
	return s.db.Close()
}

// Save records sel and returns its id.
func (s *HistoryStore) Save(ctx context.Context, sel protocol.Selection) (string, error) {
	payload, err := json.Marshal(sel)
	if err != nil {
		return "", fmt.Errorf("encode export: %w", err)
	}
	r := row{
		ID:        store.GenNewID().String(),
		URL:       sel.Context.URL,
		Title:     sel.Context.Title,
		Count:     len(sel.Elements),
		Tags:      strings.Join(export.Tags(sel), ","),
		Source:    store.SourceFromContext(ctx),
		Payload:   string(payload),
		CreatedAt: s.now().UnixMilli(),
	}
	_, err = s.db.NamedExecContext(ctx,
		`INSERT INTO exports (id, url, title, element_count, tags, source, payload, created_at)
		 VALUES (:id, :url, :title, :element_count, :tags, :source, :payload, :created_at)`, r)
	if err != nil {
		return "", fmt.Errorf("insert export: %w", err)
	}
	s.cache.Add(r.ID, r.record())
	return r.ID, nil
}

// Get returns one export by id.
func (s *HistoryStore) Get(ctx context.Context, id string) (store.Record, error) {
	if rec, ok := s.cache.Get(id); ok {
		return rec, nil
	}
	var r row
	err := s.db.GetContext(ctx, &r, `SELECT * FROM exports WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Record{}, fmt.Errorf("%w: %s", store.ErrNotFound, id)
	}
	if err != nil {
		return store.Record{}, fmt.Errorf("get export: %w", err)
	}
	rec := r.record()
	s.cache.Add(id, rec)
	return rec, nil
}

// List returns up to limit exports matching filter, newest first. Payloads
// are omitted; use Get for the full record. limit <= 0 means no limit.
func (s *HistoryStore) List(ctx context.Context, limit int, filter *store.Filter) ([]store.Record, error) {
	var rows []row
	err := s.db.SelectContext(ctx, &rows,
		`SELECT id, url, title, element_count, tags, source, '' AS payload, created_at
		 FROM exports ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("list exports: %w", err)
	}
	out := make([]store.Record, 0, len(rows))
	for _, r := range rows {
		rec := r.record()
		rec.Payload = nil
		ok, err := filter.Match(rec)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		out = append(out, rec)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// Delete removes one export.
func (s *HistoryStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM exports WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete export: %w", err)
	}
	s.cache.Remove(id)
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", store.ErrNotFound, id)
	}
	return nil
}

// Prune keeps the newest keep exports and deletes the rest, returning how
// many were removed.
func (s *HistoryStore) Prune(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM exports WHERE id NOT IN (
			SELECT id FROM exports ORDER BY created_at DESC, rowid DESC LIMIT ?
		)`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune exports: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		s.cache.Purge()
		s.logger.Info("history pruned", "removed", n, "kept", keep)
	}
	return n, nil
}
