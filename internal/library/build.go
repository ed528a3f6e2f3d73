package library

import (
	"log/slog"

	"github.com/dgallion1/ronten/internal/config"
	"github.com/dgallion1/ronten/internal/metrics"
	"github.com/dgallion1/ronten/internal/notion"
	"github.com/dgallion1/ronten/internal/parser"
)

// SourcesFromConfig builds the configured sources in order. The returned
// client is nil unless the notion source is enabled; callers own Close.
func SourcesFromConfig(cfg config.Config, log *slog.Logger, rec *metrics.Recorder) ([]Source, *notion.Client) {
	var (
		sources []Source
		client  *notion.Client
	)
	for _, kind := range cfg.ContentSources {
		switch kind {
		case config.SourceLocal:
			sources = append(sources, &DirSource{
				Dir:         cfg.DataDir,
				Options:     parser.Options{PDFFallbackPdftotext: cfg.PDFFallbackPdftotext},
				Concurrency: cfg.LoadConcurrency,
				Logger:      log,
			})
		case config.SourceNotion:
			if client == nil {
				client = notion.NewClient(notion.ClientConfig{
					BaseURL: cfg.NotionBaseURL,
					Token:   cfg.NotionToken,
					Version: cfg.NotionVersion,
					Timeout: cfg.NotionTimeout,
					Retries: cfg.NotionRetries,
				}, log, rec)
			}
			limits := notion.Limits{MaxRequests: cfg.NotionMaxRequests, MaxDepth: cfg.NotionMaxDepth}
			sources = append(sources, &RemoteSource{Fetcher: notion.NewSource(client, cfg.NotionPageID, limits, log)})
		case config.SourceDemo:
			sources = append(sources, DemoSource{})
		}
	}
	return sources, client
}
