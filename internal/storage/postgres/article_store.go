// Package postgres provides the Postgres-backed article repository.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/headlines-scraper/internal/article"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

const (
	defaultTable = "articles"
	notesTable   = "notes"
)

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// ArticleStore implements article.Repository on Postgres.
type ArticleStore struct {
	pool  pool
	table string
	idGen article.IDGenerator
}

// NewArticleStore connects a pgx pool using cfg.
func NewArticleStore(ctx context.Context, cfg Config, idGen article.IDGenerator) (*ArticleStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	table, err := tableName(cfg.Table)
	if err != nil {
		return nil, err
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &ArticleStore{pool: p, table: table, idGen: idGen}, nil
}

// NewArticleStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewArticleStoreWithPool(p pool, table string, idGen article.IDGenerator) (*ArticleStore, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	name, err := tableName(table)
	if err != nil {
		return nil, err
	}
	return &ArticleStore{pool: p, table: name, idGen: idGen}, nil
}

func tableName(table string) (string, error) {
	if table == "" {
		return defaultTable, nil
	}
	if !validTableName.MatchString(table) {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	return table, nil
}

// Close releases the underlying pool resources.
func (s *ArticleStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Ping checks connectivity.
func (s *ArticleStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

// EnsureSchema creates the notes and articles tables and the unique link index.
func (s *ArticleStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id    TEXT PRIMARY KEY,
	title TEXT NOT NULL DEFAULT '',
	body  TEXT NOT NULL DEFAULT ''
)`, notesTable),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id          TEXT PRIMARY KEY,
	title       TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	link        TEXT NOT NULL DEFAULT '',
	saved       BOOLEAN NOT NULL DEFAULT FALSE,
	note_id     TEXT REFERENCES %s (id) ON DELETE SET NULL
)`, s.table, notesTable),
		fmt.Sprintf(`CREATE UNIQUE INDEX IF NOT EXISTS %s_link_key ON %s (link) WHERE link <> ''`, s.table, s.table),
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return &article.StoreError{Op: "migrate", Err: err}
		}
	}
	return nil
}

const articleColumns = `id, title, description, link, saved, COALESCE(note_id, '')`

// Create inserts a draft. A conflicting non-empty link inserts nothing and
// returns article.ErrDuplicateLink.
func (s *ArticleStore) Create(ctx context.Context, draft article.Draft) (article.Article, error) {
	id, err := s.idGen.NewID()
	if err != nil {
		return article.Article{}, &article.StoreError{Op: "create", Err: fmt.Errorf("assign id: %w", err)}
	}
	query := fmt.Sprintf(`
INSERT INTO %s (id, title, description, link, saved)
VALUES ($1, $2, $3, $4, FALSE)
ON CONFLICT (link) WHERE link <> '' DO NOTHING
RETURNING %s`, s.table, articleColumns)

	rec, err := scanArticle(s.pool.QueryRow(ctx, query, id, draft.Title, draft.Description, draft.Link))
	if errors.Is(err, pgx.ErrNoRows) {
		return article.Article{}, article.ErrDuplicateLink
	}
	if err != nil {
		return article.Article{}, &article.StoreError{Op: "create", Err: err}
	}
	return rec, nil
}

// FindAll lists articles in table order.
func (s *ArticleStore) FindAll(ctx context.Context, filter article.Filter) ([]article.Article, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s`, articleColumns, s.table)
	if filter == article.FilterSaved {
		query += ` WHERE saved = TRUE`
	}
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, &article.StoreError{Op: "find all", Err: err}
	}
	defer rows.Close()

	out := []article.Article{}
	for rows.Next() {
		rec, err := scanArticle(rows)
		if err != nil {
			return nil, &article.StoreError{Op: "find all", Err: fmt.Errorf("scan article row: %w", err)}
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &article.StoreError{Op: "find all", Err: err}
	}
	return out, nil
}

// FindByID loads one article and joins its note.
func (s *ArticleStore) FindByID(ctx context.Context, id string) (article.Article, error) {
	query := fmt.Sprintf(`
SELECT a.id, a.title, a.description, a.link, a.saved,
	COALESCE(n.id, ''), COALESCE(n.title, ''), COALESCE(n.body, '')
FROM %s a
LEFT JOIN %s n ON n.id = a.note_id
WHERE a.id = $1`, s.table, notesTable)

	var (
		rec  article.Article
		note article.Note
	)
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&rec.ID,
		&rec.Title,
		&rec.Description,
		&rec.Link,
		&rec.Saved,
		&note.ID,
		&note.Title,
		&note.Body,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return article.Article{}, article.ErrNotFound
	}
	if err != nil {
		return article.Article{}, &article.StoreError{Op: "find by id", Err: err}
	}
	if note.ID != "" {
		rec.NoteID = note.ID
		rec.Note = &note
	}
	return rec, nil
}

// MarkSaved sets saved = true and returns the updated row.
func (s *ArticleStore) MarkSaved(ctx context.Context, id string) (article.Article, error) {
	query := fmt.Sprintf(`UPDATE %s SET saved = TRUE WHERE id = $1 RETURNING %s`, s.table, articleColumns)
	return s.returningOne(ctx, "mark saved", query, id)
}

// DeleteByID removes a row and returns it.
func (s *ArticleStore) DeleteByID(ctx context.Context, id string) (article.Article, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1 RETURNING %s`, s.table, articleColumns)
	return s.returningOne(ctx, "delete", query, id)
}

// ClearAll deletes every article.
func (s *ArticleStore) ClearAll(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s`, s.table))
	if err != nil {
		return 0, &article.StoreError{Op: "clear", Err: err}
	}
	return tag.RowsAffected(), nil
}

func (s *ArticleStore) returningOne(ctx context.Context, op, query, id string) (article.Article, error) {
	rec, err := scanArticle(s.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return article.Article{}, article.ErrNotFound
	}
	if err != nil {
		return article.Article{}, &article.StoreError{Op: op, Err: err}
	}
	return rec, nil
}

func scanArticle(row pgx.Row) (article.Article, error) {
	var rec article.Article
	if err := row.Scan(&rec.ID, &rec.Title, &rec.Description, &rec.Link, &rec.Saved, &rec.NoteID); err != nil {
		return article.Article{}, fmt.Errorf("scan article: %w", err)
	}
	return rec, nil
}
