package library

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dgallion1/ronten/internal/doctree"
	"github.com/dgallion1/ronten/internal/notion"
	"github.com/dgallion1/ronten/internal/parser"
	"golang.org/x/sync/errgroup"
)

// Document is one loaded unit of content. A document that failed to parse
// carries Err and no tree.
type Document struct {
	Source   string
	Tree     *doctree.Tree
	Headings doctree.HeadingCounts
	Remote   *notion.Diagnostics
	Err      error
}

// Source produces documents for a load pass.
type Source interface {
	// Kind labels the source in metrics: "local", "notion" or "demo".
	Kind() string
	// Load returns the source's documents. An error means the source as a
	// whole could not be read.
	Load(ctx context.Context) ([]Document, error)
}

// DirSource reads every supported outline file in a directory.
type DirSource struct {
	Dir         string
	Options     parser.Options
	Concurrency int
	Logger      *slog.Logger
}

func (s *DirSource) Kind() string { return "local" }

// Load parses files in parallel and returns them in filename order.
func (s *DirSource) Load(ctx context.Context) ([]Document, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", s.Dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") || !parser.IsSupportedExtension(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	docs := make([]Document, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(s.Concurrency, 1))
	for i, name := range names {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			docs[i] = s.parseFile(name)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return docs, nil
}

func (s *DirSource) parseFile(name string) Document {
	doc := Document{Source: name}

	p, err := parser.ForFile(name, s.Options)
	if err != nil {
		doc.Err = err
		return doc
	}
	f, err := os.Open(filepath.Join(s.Dir, name))
	if err != nil {
		doc.Err = err
		return doc
	}
	defer f.Close()

	frag, err := p.Parse(f, name)
	if err != nil {
		if s.Logger != nil {
			s.Logger.Warn("parse failed", "file", name, "error", err)
		}
		doc.Err = err
		return doc
	}
	doc.Tree = frag.Tree
	doc.Headings = frag.Headings
	return doc
}

// Fetcher is the remote page loader.
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context) (*doctree.Tree, notion.Diagnostics, error)
}

// RemoteSource loads a page tree from the remote document service.
type RemoteSource struct {
	Fetcher Fetcher
}

func (s *RemoteSource) Kind() string { return "notion" }

func (s *RemoteSource) Load(ctx context.Context) ([]Document, error) {
	tree, diag, err := s.Fetcher.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Fetcher.Name(), err)
	}
	return []Document{{
		Source:   s.Fetcher.Name(),
		Tree:     tree,
		Headings: diag.Headings,
		Remote:   &diag,
	}}, nil
}

//go:embed demo.md
var demoOutline string

// DemoSource serves a built-in sample outline.
type DemoSource struct{}

func (DemoSource) Kind() string { return "demo" }

func (DemoSource) Load(context.Context) ([]Document, error) {
	p := &parser.OutlineParser{}
	frag, err := p.Parse(strings.NewReader(demoOutline), "demo.md")
	if err != nil {
		return nil, err
	}
	return []Document{{Source: "demo", Tree: frag.Tree, Headings: frag.Headings}}, nil
}
