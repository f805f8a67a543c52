//go:build cgo

package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/dgallion1/titlegest/internal/titles"
	"github.com/mattn/go-sqlite3"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleResult() titles.DocumentResult {
	return titles.DocumentResult{Pages: []titles.PageResult{
		{Number: 1, Text: "Introduction Chapter body", Titles: []titles.Candidate{{Text: "Introduction Chapter ", Position: 0}}},
		{Number: 2, Text: "plain page", Titles: []titles.Candidate{}},
		{Number: 3, Text: "x Results_Summary y", Titles: []titles.Candidate{{Text: "Results_Summary ", Position: 2}}},
	}}
}

func sampleDoc(id string) Document {
	return Document{
		ID:          id,
		Filename:    "report.pdf",
		Format:      "pdf",
		ContentHash: id + "ffff",
		Config:      titles.DefaultConfig(),
	}
}

func TestNewCreatesParentDir(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "sub", "dir", "test.db")
	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("creating store in nested dir: %v", err)
	}
	s.Close()
}

func TestSaveAndGetDocument(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveDocument(ctx, sampleDoc("abc"), sampleResult()); err != nil {
		t.Fatalf("save: %v", err)
	}

	doc, err := s.GetDocument(ctx, "abc")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if doc.PageCount != 3 || doc.TitleCount != 2 {
		t.Errorf("expected 3 pages and 2 titles, got %d and %d", doc.PageCount, doc.TitleCount)
	}
	if doc.Config != titles.DefaultConfig() {
		t.Errorf("expected default config, got %+v", doc.Config)
	}
	if doc.CreatedAt.IsZero() {
		t.Error("expected created_at to be set")
	}
	if doc.StartPage != 0 || doc.EndPage != 0 {
		t.Errorf("expected unbounded range, got %d-%d", doc.StartPage, doc.EndPage)
	}

	res, err := s.GetResult(ctx, "abc")
	if err != nil {
		t.Fatalf("get result: %v", err)
	}
	if len(res.Pages) != 3 {
		t.Fatalf("expected 3 pages, got %d", len(res.Pages))
	}
	if res.Pages[1].Titles == nil || len(res.Pages[1].Titles) != 0 {
		t.Errorf("expected empty non-nil titles on page 2, got %v", res.Pages[1].Titles)
	}
	if got := res.Pages[2].Titles[0]; got.Text != "Results_Summary " || got.Position != 2 {
		t.Errorf("unexpected title on page 3: %+v", got)
	}
}

func TestSaveDocument_Replaces(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveDocument(ctx, sampleDoc("abc"), sampleResult()); err != nil {
		t.Fatalf("save: %v", err)
	}
	small := titles.DocumentResult{Pages: []titles.PageResult{{Number: 1, Text: "t", Titles: []titles.Candidate{}}}}
	if err := s.SaveDocument(ctx, sampleDoc("abc"), small); err != nil {
		t.Fatalf("resave: %v", err)
	}

	res, err := s.GetResult(ctx, "abc")
	if err != nil {
		t.Fatalf("get result: %v", err)
	}
	if len(res.Pages) != 1 || res.TitleCount() != 0 {
		t.Errorf("expected replaced result, got %d pages and %d titles", len(res.Pages), res.TitleCount())
	}
}

func TestGetDocument_NotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.GetDocument(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.GetResult(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestFindByHash(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	doc := sampleDoc("abc")
	if err := s.SaveDocument(ctx, doc, sampleResult()); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := s.FindByHash(ctx, doc.ContentHash)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.ID != "abc" {
		t.Errorf("expected abc, got %s", got.ID)
	}
	if _, err := s.FindByHash(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListDocuments_NewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	older := sampleDoc("old")
	older.CreatedAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := sampleDoc("new")
	newer.CreatedAt = time.Date(2024, 1, 1, 0, 0, 0, 500, time.UTC)
	for _, d := range []Document{older, newer} {
		if err := s.SaveDocument(ctx, d, sampleResult()); err != nil {
			t.Fatalf("save %s: %v", d.ID, err)
		}
	}

	docs, err := s.ListDocuments(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(docs) != 2 || docs[0].ID != "new" || docs[1].ID != "old" {
		t.Errorf("expected [new old], got %+v", docs)
	}
}

func TestDeleteDocument(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.SaveDocument(ctx, sampleDoc("abc"), sampleResult()); err != nil {
		t.Fatalf("save: %v", err)
	}

	if err := s.DeleteDocument(ctx, "abc"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetDocument(ctx, "abc"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	hits, err := s.SearchTitles(ctx, "Introduction", 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("expected titles to cascade, got %d", len(hits))
	}
	if err := s.DeleteDocument(ctx, "abc"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestSearchTitles(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.SaveDocument(ctx, sampleDoc("abc"), sampleResult()); err != nil {
		t.Fatalf("save: %v", err)
	}

	tests := []struct {
		q    string
		want int
	}{
		{"introduction", 1},
		{"chapter", 1},
		{"_", 1},
		{"%", 0},
		{"", 2},
		{"absent", 0},
	}
	for _, tt := range tests {
		hits, err := s.SearchTitles(ctx, tt.q, 10)
		if err != nil {
			t.Fatalf("search %q: %v", tt.q, err)
		}
		if len(hits) != tt.want {
			t.Errorf("search %q: expected %d hits, got %d", tt.q, tt.want, len(hits))
		}
	}

	hits, _ := s.SearchTitles(ctx, "results", 10)
	if len(hits) == 1 && (hits[0].Filename != "report.pdf" || hits[0].Page != 3) {
		t.Errorf("unexpected hit: %+v", hits[0])
	}
}

func TestIsBusy(t *testing.T) {
	if !isBusy(sqlite3.Error{Code: sqlite3.ErrBusy}) {
		t.Error("expected busy error to be retryable")
	}
	if !isBusy(errors.Join(errors.New("insert"), sqlite3.Error{Code: sqlite3.ErrLocked})) {
		t.Error("expected wrapped locked error to be retryable")
	}
	if isBusy(sqlite3.Error{Code: sqlite3.ErrConstraint}) {
		t.Error("expected constraint error not to be retryable")
	}
	if isBusy(errors.New("other")) {
		t.Error("expected plain error not to be retryable")
	}
}

func TestWithRetry_StopsOnPermanentError(t *testing.T) {
	s := newTestStore(t)
	s.delay = time.Millisecond

	calls := 0
	err := s.withRetry(context.Background(), func() error {
		calls++
		if calls < 3 {
			return sqlite3.Error{Code: sqlite3.ErrBusy}
		}
		return errors.New("permanent")
	})
	if err == nil || err.Error() != "permanent" {
		t.Errorf("expected permanent error, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestSavePageRange(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	doc := sampleDoc("ranged")
	doc.StartPage, doc.EndPage = 2, 3
	if err := s.SaveDocument(ctx, doc, sampleResult()); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := s.FindByHash(ctx, doc.ContentHash)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.StartPage != 2 || got.EndPage != 3 {
		t.Errorf("expected range 2-3, got %d-%d", got.StartPage, got.EndPage)
	}
}
