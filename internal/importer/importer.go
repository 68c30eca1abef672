// Package importer loads review documents exported by older versions of the
// site, from URLs or local files, into a storage.Repository.
package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/bilgisen/fairprice/internal/logger"
	"github.com/bilgisen/fairprice/internal/storage"
)

// Report summarises an import run.
type Report struct {
	Imported []string `json:"imported"`
	Skipped  []string `json:"skipped"`
	Failed   []string `json:"failed"`
}

func (r *Report) merge(o Report) {
	r.Imported = append(r.Imported, o.Imported...)
	r.Skipped = append(r.Skipped, o.Skipped...)
	r.Failed = append(r.Failed, o.Failed...)
}

type Importer struct {
	store     storage.Repository
	fetcher   *Fetcher
	overwrite bool
	now       func() time.Time
	log       zerolog.Logger
}

type Option func(*Importer)

// WithOverwrite replaces documents whose slug already exists instead of skipping them.
func WithOverwrite(overwrite bool) Option {
	return func(i *Importer) { i.overwrite = overwrite }
}

// WithFetcher replaces the default HTTP fetcher.
func WithFetcher(f *Fetcher) Option {
	return func(i *Importer) { i.fetcher = f }
}

func New(store storage.Repository, opts ...Option) *Importer {
	i := &Importer{
		store: store,
		now:   time.Now,
		log:   logger.With("importer"),
	}
	for _, opt := range opts {
		opt(i)
	}
	if i.fetcher == nil {
		i.fetcher = NewFetcher()
	}
	return i
}

// Import reads each source, which may be an http(s) URL, a JSON file or a
// directory of JSON files. Remote sources are fetched concurrently.
func (i *Importer) Import(ctx context.Context, sources ...string) (Report, error) {
	var (
		report Report
		urls   []string
		errs   []error
	)

	for _, src := range sources {
		if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
			urls = append(urls, src)
			continue
		}
		r, err := i.ImportPath(ctx, src)
		report.merge(r)
		if err != nil {
			errs = append(errs, err)
		}
	}

	if len(urls) > 0 {
		docs, fetchErrs := i.fetcher.FetchAll(ctx, urls)
		for url, err := range fetchErrs {
			i.log.Error().Err(err).Str("url", url).Msg("Failed to fetch import source")
			errs = append(errs, err)
		}
		r, err := i.importDocuments(ctx, docs)
		report.merge(r)
		if err != nil {
			errs = append(errs, err)
		}
	}

	return report, errors.Join(errs...)
}

// ImportURL imports the documents served at url.
func (i *Importer) ImportURL(ctx context.Context, url string) (Report, error) {
	docs, err := i.fetcher.Fetch(ctx, url)
	if err != nil {
		return Report{}, err
	}
	return i.importDocuments(ctx, docs)
}

// ImportPath imports a JSON file, or every .json file directly inside a directory.
func (i *Importer) ImportPath(ctx context.Context, path string) (Report, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Report{}, fmt.Errorf("failed to open import source: %w", err)
	}

	files := []string{path}
	if info.IsDir() {
		entries, err := os.ReadDir(path)
		if err != nil {
			return Report{}, fmt.Errorf("failed to read import directory: %w", err)
		}
		files = files[:0]
		for _, e := range entries {
			if e.Type().IsRegular() && strings.EqualFold(filepath.Ext(e.Name()), ".json") && !strings.HasPrefix(e.Name(), ".") {
				files = append(files, filepath.Join(path, e.Name()))
			}
		}
	}

	var (
		docs   []json.RawMessage
		report Report
	)
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			i.log.Error().Err(err).Str("file", file).Msg("Failed to read import file")
			report.Failed = append(report.Failed, file)
			continue
		}
		parsed, err := splitDocuments(data)
		if err != nil {
			i.log.Error().Err(err).Str("file", file).Msg("Failed to parse import file")
			report.Failed = append(report.Failed, file)
			continue
		}
		docs = append(docs, parsed...)
	}

	r, err := i.importDocuments(ctx, docs)
	report.merge(r)
	return report, err
}

func (i *Importer) importDocuments(ctx context.Context, docs []json.RawMessage) (Report, error) {
	report := Report{Imported: []string{}, Skipped: []string{}, Failed: []string{}}
	now := i.now().UTC()

	for n, raw := range docs {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		review, err := Normalize(raw, now)
		if err != nil {
			label := fmt.Sprintf("document #%d", n+1)
			i.log.Warn().Err(err).Str("document", label).Msg("Skipping invalid document")
			report.Failed = append(report.Failed, label)
			continue
		}

		if !i.overwrite {
			_, err := i.store.GetBySlug(ctx, review.Slug)
			switch {
			case err == nil:
				i.log.Debug().Str("slug", review.Slug).Msg("Skipping existing review")
				report.Skipped = append(report.Skipped, review.Slug)
				continue
			case !errors.Is(err, storage.ErrNotFound):
				i.log.Error().Err(err).Str("slug", review.Slug).Msg("Failed to check existing review")
				report.Failed = append(report.Failed, review.Slug)
				continue
			}
		}

		if err := i.store.Save(ctx, review); err != nil {
			i.log.Error().Err(err).Str("slug", review.Slug).Msg("Failed to save imported review")
			report.Failed = append(report.Failed, review.Slug)
			continue
		}
		report.Imported = append(report.Imported, review.Slug)
	}

	i.log.Info().
		Int("imported", len(report.Imported)).
		Int("skipped", len(report.Skipped)).
		Int("failed", len(report.Failed)).
		Msg("Import finished")
	return report, nil
}
