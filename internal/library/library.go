// Package library owns the loaded study tree. A load pass reads every
// configured source, merges the documents in order and swaps the result in
// whole; readers always see either the old tree or the new one.
package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/ronten/internal/doctree"
	"github.com/dgallion1/ronten/internal/metrics"
)

// ErrNoSources is returned by Reload when no source is configured.
var ErrNoSources = errors.New("library: no content sources configured")

// Diagnostics summarizes the most recent load pass.
type Diagnostics struct {
	FilesLoaded int `json:"files_loaded"`
	doctree.HeadingCounts

	Themes     int `json:"themes"`
	Categories int `json:"categories"`
	Questions  int `json:"questions"`

	TotalBlocks  int `json:"total_blocks"`
	TogglesFound int `json:"toggles_found"`
	Requests     int `json:"requests"`

	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`

	LoadedAt   time.Time `json:"loaded_at"`
	DurationMs int64     `json:"duration_ms"`
}

// Library is the content store.
type Library struct {
	sources []Source
	log     *slog.Logger
	metrics *metrics.Recorder

	mu   sync.RWMutex
	tree *doctree.Tree
	diag Diagnostics
}

func New(sources []Source, log *slog.Logger, rec *metrics.Recorder) *Library {
	if log == nil {
		log = slog.Default()
	}
	return &Library{
		sources: sources,
		log:     log,
		metrics: rec,
		tree:    doctree.New(),
		diag:    Diagnostics{Errors: []string{}, Warnings: []string{}},
	}
}

// Tree returns the current tree. Callers must treat it as read-only.
func (l *Library) Tree() *doctree.Tree {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.tree
}

// Diagnostics returns the diagnostics of the last load pass.
func (l *Library) Diagnostics() Diagnostics {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.diag
}

// Reload rebuilds the tree from every source. Failures of individual
// sources or documents are recorded in the diagnostics and never abort the
// pass; only a cancelled context or a missing source list returns an error.
func (l *Library) Reload(ctx context.Context) (Diagnostics, error) {
	if len(l.sources) == 0 {
		return Diagnostics{}, ErrNoSources
	}

	start := time.Now()
	tree, diag, err := Load(ctx, l.sources, l.log, l.metrics)
	if err != nil {
		return Diagnostics{}, err
	}
	diag.LoadedAt = start
	diag.DurationMs = time.Since(start).Milliseconds()

	l.mu.Lock()
	l.tree = tree
	l.diag = diag
	l.mu.Unlock()

	l.metrics.RecordQuestions(diag.Questions)
	l.log.Info("content loaded",
		"files", diag.FilesLoaded,
		"themes", diag.Themes,
		"categories", diag.Categories,
		"questions", diag.Questions,
		"errors", len(diag.Errors),
		"duration_ms", diag.DurationMs)
	return diag, nil
}

// Load runs one load pass without touching any store.
func Load(ctx context.Context, sources []Source, log *slog.Logger, rec *metrics.Recorder) (*doctree.Tree, Diagnostics, error) {
	tree := doctree.New()
	diag := Diagnostics{Errors: []string{}, Warnings: []string{}}

	for _, src := range sources {
		srcStart := time.Now()
		docs, err := src.Load(ctx)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, Diagnostics{}, ctxErr
		}
		if err != nil {
			rec.RecordLoad(src.Kind(), "error", time.Since(srcStart).Seconds())
			if log != nil {
				log.Error("content source failed", "source", src.Kind(), "error", err)
			}
			diag.Errors = append(diag.Errors, err.Error())
			continue
		}

		status := "ok"
		for _, doc := range docs {
			if doc.Err != nil {
				status = "partial"
				diag.Errors = append(diag.Errors, fmt.Sprintf("%s: %v", doc.Source, doc.Err))
				continue
			}
			diag.FilesLoaded++
			diag.HeadingCounts.Add(doc.Headings)
			if r := doc.Remote; r != nil {
				diag.TotalBlocks += r.TotalBlocks
				diag.TogglesFound += r.TogglesFound
				diag.Requests += r.Requests
				for _, e := range r.Errors {
					diag.Errors = append(diag.Errors, fmt.Sprintf("%s: %s", doc.Source, e))
				}
				if r.Warning != "" {
					diag.Warnings = append(diag.Warnings, fmt.Sprintf("%s: %s", doc.Source, r.Warning))
				}
			}
			tree.Merge(doc.Tree)
		}
		rec.RecordLoad(src.Kind(), status, time.Since(srcStart).Seconds())
	}

	diag.Themes, diag.Categories, diag.Questions = tree.Counts()
	return tree, diag, nil
}
