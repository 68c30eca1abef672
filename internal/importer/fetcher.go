package importer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// FetcherConfig tunes the HTTP client used for remote sources.
type FetcherConfig struct {
	Timeout      time.Duration
	RetryCount   int
	RetryWait    time.Duration
	RetryMaxWait time.Duration
}

// DefaultFetcherConfig is used by NewFetcher when no config is given.
var DefaultFetcherConfig = FetcherConfig{
	Timeout:      30 * time.Second,
	RetryCount:   3,
	RetryWait:    2 * time.Second,
	RetryMaxWait: 10 * time.Second,
}

type Fetcher struct {
	client *resty.Client
}

func NewFetcher(config ...FetcherConfig) *Fetcher {
	cfg := DefaultFetcherConfig
	if len(config) > 0 {
		cfg = config[0]
	}

	return &Fetcher{
		client: resty.New().
			SetTimeout(cfg.Timeout).
			SetRetryCount(cfg.RetryCount).
			SetRetryWaitTime(cfg.RetryWait).
			SetRetryMaxWaitTime(cfg.RetryMaxWait).
			AddRetryCondition(func(r *resty.Response, err error) bool {
				return r != nil && r.StatusCode() >= http.StatusInternalServerError
			}),
	}
}

// Fetch retrieves review documents from url. The body may be a JSON array
// of documents or a single document.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]json.RawMessage, error) {
	resp, err := f.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch reviews from %s: %w", url, err)
	}

	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d from %s", resp.StatusCode(), url)
	}

	docs, err := splitDocuments(resp.Body())
	if err != nil {
		return nil, fmt.Errorf("failed to parse response from %s: %w", url, err)
	}
	return docs, nil
}

// FetchAll fetches every url concurrently. Documents from sources that
// failed are omitted and the failures are returned keyed by url.
func (f *Fetcher) FetchAll(ctx context.Context, urls []string) ([]json.RawMessage, map[string]error) {
	type result struct {
		url  string
		docs []json.RawMessage
		err  error
	}

	results := make(chan result, len(urls))
	for _, url := range urls {
		go func(u string) {
			docs, err := f.Fetch(ctx, u)
			results <- result{url: u, docs: docs, err: err}
		}(url)
	}

	var all []json.RawMessage
	errs := make(map[string]error)
	for range urls {
		res := <-results
		if res.err != nil {
			errs[res.url] = res.err
			continue
		}
		all = append(all, res.docs...)
	}
	return all, errs
}

// splitDocuments accepts either a JSON array or a single JSON object.
func splitDocuments(body []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty document")
	}

	if trimmed[0] == '[' {
		var docs []json.RawMessage
		if err := json.Unmarshal(trimmed, &docs); err != nil {
			return nil, err
		}
		return docs, nil
	}

	var single json.RawMessage
	if err := json.Unmarshal(trimmed, &single); err != nil {
		return nil, err
	}
	return []json.RawMessage{single}, nil
}
