package pagination

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for pagination.
var (
	pagesFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "idp_pages_fetched_total",
		Help: "Total number of list pages fetched",
	})

	recordsFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "idp_records_fetched_total",
		Help: "Total number of records yielded from list pages",
	})

	partialFetchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "idp_partial_fetches_total",
		Help: "Total number of walks that stopped early on a page error and kept partial data",
	})
)

// Page is one response of a list endpoint.
type Page struct {
	// URL the page was fetched from.
	URL string

	// Items holds the elements of the JSON array body in response order.
	Items []json.RawMessage

	// Links maps relation names from the Link header to URLs.
	Links map[string]string
}

// Next returns the URL of the following page, if any.
func (p *Page) Next() (string, bool) {
	next, ok := p.Links[RelNext]
	return next, ok && next != ""
}

// PageGetter fetches a single page. The API client implements it.
type PageGetter interface {
	GetPage(ctx context.Context, url string) (*Page, error)
}

// ErrorPolicy decides what a walk does when a page cannot be fetched.
type ErrorPolicy int

const (
	// FailFast yields the error and ends the walk.
	FailFast ErrorPolicy = iota

	// KeepPartial ends the walk silently, keeping the records already yielded.
	KeepPartial
)

// String returns the policy name.
func (p ErrorPolicy) String() string {
	switch p {
	case FailFast:
		return "fail_fast"
	case KeepPartial:
		return "keep_partial"
	default:
		return fmt.Sprintf("ErrorPolicy(%d)", int(p))
	}
}

// Config holds fetcher configuration.
type Config struct {
	// OnError selects the page failure policy.
	OnError ErrorPolicy

	// MaxPages stops the walk after this many pages; 0 means no limit.
	MaxPages int
}

// DefaultConfig fails fast and follows every page.
func DefaultConfig() Config {
	return Config{
		OnError: FailFast,
	}
}

// Fetcher follows rel="next" links one page at a time.
type Fetcher struct {
	getter PageGetter
	config Config
	logger zerolog.Logger
}

// NewFetcher creates a fetcher over getter.
func NewFetcher(getter PageGetter, config Config) *Fetcher {
	if config.MaxPages < 0 {
		config.MaxPages = 0
	}
	return &Fetcher{
		getter: getter,
		config: config,
		logger: log.With().Str("component", "pagination").Logger(),
	}
}

// All returns a lazy sequence over every record reachable from startURL.
// Pages are requested only as the sequence is consumed. Under FailFast a
// page error is yielded once as the final element; under KeepPartial the
// sequence just ends. Cancellation is yielded under either policy.
func (f *Fetcher) All(ctx context.Context, startURL string) iter.Seq2[json.RawMessage, error] {
	return func(yield func(json.RawMessage, error) bool) {
		visited := make(map[string]struct{})
		url := startURL
		pages := 0
		records := 0

		for url != "" {
			if _, seen := visited[url]; seen {
				f.logger.Warn().Str("url", url).Msg("Next link points to an already fetched page, stopping")
				return
			}
			visited[url] = struct{}{}

			f.logger.Info().Str("url", url).Msg("Fetching")

			page, err := f.getter.GetPage(ctx, url)
			if err != nil {
				if f.config.OnError == KeepPartial && !cancelled(ctx, err) {
					partialFetchesTotal.Inc()
					f.logger.Warn().
						Err(err).
						Str("url", url).
						Int("pages", pages).
						Int("records", records).
						Msg("Page fetch failed, returning records fetched so far")
					return
				}
				yield(nil, fmt.Errorf("fetch page %d: %w", pages+1, err))
				return
			}

			pages++
			pagesFetchedTotal.Inc()

			for _, item := range page.Items {
				records++
				recordsFetchedTotal.Inc()
				if !yield(item, nil) {
					return
				}
			}

			if f.config.MaxPages > 0 && pages >= f.config.MaxPages {
				f.logger.Debug().Int("pages", pages).Msg("Page limit reached")
				return
			}

			next, ok := page.Next()
			if !ok {
				break
			}
			url = next
		}

		f.logger.Debug().
			Str("url", startURL).
			Int("pages", pages).
			Int("records", records).
			Msg("Fetch complete")
	}
}

// Collect drains All into a slice.
func (f *Fetcher) Collect(ctx context.Context, startURL string) ([]json.RawMessage, error) {
	var items []json.RawMessage
	for item, err := range f.All(ctx, startURL) {
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// Decode converts a record sequence into a typed sequence. A record that
// does not decode into T ends the sequence with an error.
func Decode[T any](seq iter.Seq2[json.RawMessage, error]) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		index := 0
		for raw, err := range seq {
			var v T
			if err != nil {
				yield(v, err)
				return
			}
			if err := json.Unmarshal(raw, &v); err != nil {
				yield(v, fmt.Errorf("decode record %d: %w", index, err))
				return
			}
			index++
			if !yield(v, nil) {
				return
			}
		}
	}
}

// CollectAs fetches every record from startURL decoded as T.
func CollectAs[T any](ctx context.Context, f *Fetcher, startURL string) ([]T, error) {
	var out []T
	for v, err := range Decode[T](f.All(ctx, startURL)) {
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// cancelled reports whether err ended the walk because ctx is done.
func cancelled(ctx context.Context, err error) bool {
	return ctx.Err() != nil ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
