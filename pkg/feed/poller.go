// Package feed polls the external JSON feed a board is bound to and
// replaces the document snapshot wholesale on every fetch.
package feed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/tidwall/gjson"

	"github.com/liveboard-dev/liveboard/pkg/document"
)

const (
	// DefaultInterval is the polling cadence.
	DefaultInterval = 10 * time.Second

	// DefaultMaxBodySize caps how much of a feed response is read.
	DefaultMaxBodySize = 4 << 20
)

// Poller fetches a feed URL on a fixed interval. The document is read-only
// from the core's perspective: each successful fetch replaces the store's
// snapshot atomically, and failures leave the previous snapshot in place.
type Poller struct {
	url         string
	interval    time.Duration
	maxBodySize int64
	client      *http.Client
	store       *document.Store
	logger      *slog.Logger
}

// Option configures a Poller.
type Option func(*Poller)

// WithInterval overrides the polling cadence.
func WithInterval(d time.Duration) Option {
	return func(p *Poller) { p.interval = d }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Poller) { p.client = c }
}

// WithMaxBodySize overrides the response size cap.
func WithMaxBodySize(n int64) Option {
	return func(p *Poller) { p.maxBodySize = n }
}

// WithLogger sets the poller logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Poller) { p.logger = logger.With("component", "feed") }
}

// NewPoller creates a poller that writes into store.
func NewPoller(url string, store *document.Store, opts ...Option) *Poller {
	p := &Poller{
		url:         url,
		interval:    DefaultInterval,
		maxBodySize: DefaultMaxBodySize,
		client:      http.DefaultClient,
		store:       store,
		logger:      slog.Default().With("component", "feed"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run fetches immediately, then on every tick until ctx is cancelled.
// Fetch errors are logged and non-fatal.
func (p *Poller) Run(ctx context.Context) {
	if err := p.Fetch(ctx); err != nil {
		p.logger.Warn("feed fetch failed", "url", p.url, "error", err)
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := p.Fetch(ctx); err != nil {
				p.logger.Warn("feed fetch failed", "url", p.url, "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// Fetch performs one fetch and replaces the document snapshot on success.
func (p *Poller) Fetch(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return fmt.Errorf("feed: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("feed: fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("feed: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, p.maxBodySize))
	if err != nil {
		return fmt.Errorf("feed: read body: %w", err)
	}
	if !gjson.ValidBytes(body) {
		return fmt.Errorf("feed: response is not valid JSON")
	}

	p.store.SetDocument(body)
	p.logger.Debug("document replaced", "bytes", len(body))
	return nil
}
