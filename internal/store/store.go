// Package store persists extraction results in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/dgallion1/titlegest/internal/titles"
	"github.com/mattn/go-sqlite3"
)

// timeLayout is fixed-width so created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = errors.New("document not found")

// Document is a row in the documents table.
type Document struct {
	ID          string        `json:"id"`
	Filename    string        `json:"filename"`
	Format      string        `json:"format"`
	ContentHash string        `json:"content_hash"`
	PageCount   int           `json:"page_count"`
	TitleCount  int           `json:"title_count"`
	Config      titles.Config `json:"config"`
	StartPage   int           `json:"start_page,omitempty"` // page range the result covers; 0 is unbounded
	EndPage     int           `json:"end_page,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
}

// Title is a stored title joined with its document's filename.
type Title struct {
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
	Page       int    `json:"page"`
	Position   int    `json:"position"`
	Text       string `json:"text"`
}

// Store wraps the SQLite database.
type Store struct {
	db *sql.DB

	attempts uint
	delay    time.Duration
}

// New opens (or creates) a SQLite database at the given path.
func New(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	return &Store{db: db, attempts: 5, delay: 50 * time.Millisecond}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveDocument writes a document with its pages and titles, replacing any
// previous row with the same ID.
func (s *Store) SaveDocument(ctx context.Context, doc Document, res titles.DocumentResult) error {
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	doc.PageCount = len(res.Pages)
	doc.TitleCount = res.TitleCount()

	return s.withRetry(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, doc.ID); err != nil {
			return fmt.Errorf("delete previous: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO documents (id, filename, format, content_hash, page_count, title_count,
				title_font_size, min_title_length, min_title_distance, start_page, end_page, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			doc.ID, doc.Filename, doc.Format, doc.ContentHash, doc.PageCount, doc.TitleCount,
			doc.Config.TitleFontSize, doc.Config.MinTitleLength, doc.Config.MinTitleDistance,
			doc.StartPage, doc.EndPage, doc.CreatedAt.UTC().Format(timeLayout))
		if err != nil {
			return fmt.Errorf("insert document: %w", err)
		}

		for _, p := range res.Pages {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO pages (document_id, number, text) VALUES (?, ?, ?)`,
				doc.ID, p.Number, p.Text); err != nil {
				return fmt.Errorf("insert page %d: %w", p.Number, err)
			}
			for _, c := range p.Titles {
				if _, err := tx.ExecContext(ctx,
					`INSERT INTO titles (document_id, page, position, text) VALUES (?, ?, ?, ?)`,
					doc.ID, p.Number, c.Position, c.Text); err != nil {
					return fmt.Errorf("insert title: %w", err)
				}
			}
		}
		return tx.Commit()
	})
}

const documentColumns = `id, filename, format, content_hash, page_count, title_count,
	title_font_size, min_title_length, min_title_distance, start_page, end_page, created_at`

// GetDocument returns a document by ID.
func (s *Store) GetDocument(ctx context.Context, id string) (*Document, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = ?`, id)
	return scanDocument(row)
}

// FindByHash returns the most recent document with the given content hash.
func (s *Store) FindByHash(ctx context.Context, hash string) (*Document, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE content_hash = ? ORDER BY created_at DESC LIMIT 1`, hash)
	return scanDocument(row)
}

// ListDocuments returns documents, newest first.
func (s *Store) ListDocuments(ctx context.Context, limit int) ([]Document, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+documentColumns+` FROM documents ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := []Document{}
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *d)
	}
	return docs, rows.Err()
}

// GetResult rebuilds the extraction result of a stored document.
func (s *Store) GetResult(ctx context.Context, id string) (titles.DocumentResult, error) {
	if _, err := s.GetDocument(ctx, id); err != nil {
		return titles.DocumentResult{}, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT number, text FROM pages WHERE document_id = ? ORDER BY number`, id)
	if err != nil {
		return titles.DocumentResult{}, err
	}
	defer rows.Close()

	res := titles.DocumentResult{Pages: []titles.PageResult{}}
	index := make(map[int]int)
	for rows.Next() {
		p := titles.PageResult{Titles: []titles.Candidate{}}
		if err := rows.Scan(&p.Number, &p.Text); err != nil {
			return titles.DocumentResult{}, err
		}
		index[p.Number] = len(res.Pages)
		res.Pages = append(res.Pages, p)
	}
	if err := rows.Err(); err != nil {
		return titles.DocumentResult{}, err
	}

	trows, err := s.db.QueryContext(ctx,
		`SELECT page, position, text FROM titles WHERE document_id = ? ORDER BY page, position, id`, id)
	if err != nil {
		return titles.DocumentResult{}, err
	}
	defer trows.Close()
	for trows.Next() {
		var page int
		var c titles.Candidate
		if err := trows.Scan(&page, &c.Position, &c.Text); err != nil {
			return titles.DocumentResult{}, err
		}
		if i, ok := index[page]; ok {
			res.Pages[i].Titles = append(res.Pages[i].Titles, c)
		}
	}
	return res, trows.Err()
}

// DeleteDocument removes a document with its pages and titles.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	var affected int64
	err := s.withRetry(ctx, func() error {
		res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// SearchTitles returns stored titles containing q, case-insensitively.
func (s *Store) SearchTitles(ctx context.Context, q string, limit int) ([]Title, error) {
	if limit <= 0 {
		limit = 50
	}
	pattern := "%" + escapeLike(q) + "%"
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.document_id, d.filename, t.page, t.position, t.text
		FROM titles t JOIN documents d ON d.id = t.document_id
		WHERE t.text LIKE ? ESCAPE '\'
		ORDER BY d.created_at DESC, t.page, t.position
		LIMIT ?`, pattern, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Title{}
	for rows.Next() {
		var t Title
		if err := rows.Scan(&t.DocumentID, &t.Filename, &t.Page, &t.Position, &t.Text); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (*Document, error) {
	var d Document
	var created string
	err := row.Scan(&d.ID, &d.Filename, &d.Format, &d.ContentHash, &d.PageCount, &d.TitleCount,
		&d.Config.TitleFontSize, &d.Config.MinTitleLength, &d.Config.MinTitleDistance,
		&d.StartPage, &d.EndPage, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if d.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	return &d, nil
}

// withRetry runs a write, retrying while SQLite reports the database busy
// or locked.
func (s *Store) withRetry(ctx context.Context, fn func() error) error {
	return retry.Do(fn,
		retry.Context(ctx),
		retry.Attempts(s.attempts),
		retry.Delay(s.delay),
		retry.RetryIf(isBusy),
		retry.LastErrorOnly(true),
	)
}

func isBusy(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.Code == sqlite3.ErrBusy || se.Code == sqlite3.ErrLocked
	}
	return false
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
