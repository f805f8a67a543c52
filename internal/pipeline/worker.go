package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/dgallion1/titlegest/internal/parser"
	"github.com/dgallion1/titlegest/internal/stats"
	"github.com/dgallion1/titlegest/internal/store"
	"github.com/dgallion1/titlegest/internal/titles"
)

// ResultStore persists finished extractions. *store.Store implements it.
type ResultStore interface {
	FindByHash(ctx context.Context, hash string) (*store.Document, error)
	SaveDocument(ctx context.Context, doc store.Document, res titles.DocumentResult) error
}

// Worker processes a single document job.
type Worker struct {
	store ResultStore
	stats *stats.Recorder
	log   *slog.Logger
}

// NewWorker returns a Worker. A nil store keeps results in memory only; a
// nil recorder skips stats.
func NewWorker(st ResultStore, rec *stats.Recorder, log *slog.Logger) *Worker {
	return &Worker{store: st, stats: rec, log: log}
}

// Process runs parse, extract and store for a job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "doc_id", job.DocID, "filename", job.Filename)
	start := time.Now()
	format := strings.ToLower(filepath.Ext(job.Filename))

	fail := func(phase string, err error) {
		log.Error(phase+" failed", "error", err)
		job.AddError(fmt.Sprintf("%s: %s", phase, err))
		w.record(stats.Run{Format: format, Duration: time.Since(start), Failed: true})
		job.SetStatus(StatusFailed, phase)
	}

	// Phase 1: Dedup check
	if !job.Force && w.store != nil {
		existing, err := w.store.FindByHash(ctx, job.ContentHash)
		switch {
		case err == nil && sameExtraction(existing, job):
			log.Info("duplicate document, skipping", "existing_doc_id", existing.ID)
			job.SetDocID(existing.ID)
			job.SetFileData(nil)
			job.SetStatus(StatusDupSkipped, "dedup")
			return
		case err != nil && !errors.Is(err, store.ErrNotFound):
			log.Warn("dedup check failed, proceeding", "error", err)
		}
	}

	// Phase 2: Parse
	job.SetStatus(StatusParsing, "parsing")
	p, err := parser.ForFile(job.Filename, job.Options)
	if err != nil {
		fail("parsing", err)
		return
	}
	src, err := p.Parse(ctx, bytes.NewReader(job.FileData()), job.Filename)
	if err != nil {
		fail("parsing", err)
		return
	}

	// Phase 3: Extract titles page by page
	job.SetStatus(StatusExtracting, "extracting")
	res, err := titles.Extract(src, job.Config,
		titles.WithLogger(log),
		titles.WithPageHook(func(pr titles.PageResult) { job.PageDone(len(pr.Titles)) }),
	)
	if err != nil {
		fail("extracting", err)
		return
	}
	log.Info("extraction complete", "pages", len(res.Pages), "titles", res.TitleCount())

	// Phase 4: Store
	if w.store != nil {
		job.SetStatus(StatusStoring, "storing")
		doc := store.Document{
			ID:          job.DocID,
			Filename:    job.Filename,
			Format:      strings.TrimPrefix(format, "."),
			ContentHash: job.ContentHash,
			Config:      job.Config,
			StartPage:   job.Options.StartPage,
			EndPage:     job.Options.EndPage,
		}
		if err := w.store.SaveDocument(ctx, doc, res); err != nil {
			fail("storing", err)
			return
		}
	}

	w.record(stats.Run{
		Format:   format,
		Duration: time.Since(start),
		Pages:    len(res.Pages),
		Titles:   res.TitleCount(),
	})
	job.SetResult(res)
	job.SetStatus(StatusCompleted, "done")
}

// sameExtraction reports whether a stored document was produced with the
// job's thresholds and page range.
func sameExtraction(doc *store.Document, job *Job) bool {
	return doc.Config == job.Config &&
		doc.StartPage == job.Options.StartPage &&
		doc.EndPage == job.Options.EndPage
}

func (w *Worker) record(run stats.Run) {
	if w.stats != nil {
		w.stats.Record(run)
	}
}
