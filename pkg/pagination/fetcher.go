package pagination

import (
	"context"
	"net/url"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/ukcensus-tools/census-client/pkg/client"
)

// Config holds paginated fetch configuration.
type Config struct {
	// Limit is the page size sent with every page request.
	Limit int

	// EarlyExitAfterPages stops fetching after this many page requests even
	// when total_count says more pages remain. Zero means unbounded. This is
	// a named request-saving policy inherited from the original pipeline,
	// kept togglable because its intent was never settled.
	EarlyExitAfterPages int
}

// DefaultConfig returns the default fetch configuration.
func DefaultConfig() Config {
	return Config{
		Limit:               100,
		EarlyExitAfterPages: 0,
	}
}

// Fetcher retrieves full result sets from paginated census endpoints.
// Requests are issued strictly sequentially; rate limiting is applied
// transitively through the client before every page request.
type Fetcher struct {
	client *client.Client
	config Config
	logger zerolog.Logger
}

// NewFetcher creates a fetcher on top of a rate-limited client.
func NewFetcher(c *client.Client, config Config) *Fetcher {
	if config.Limit <= 0 {
		config.Limit = 100
	}

	return &Fetcher{
		client: c,
		config: config,
		logger: log.With().Str("component", "pagination").Logger(),
	}
}

// FetchAll retrieves every item of one logical endpoint, merging extra query
// parameters into each page request.
//
// Three response shapes are handled, in priority order:
//  1. A payload with an "observations" field is a complete single-page
//     result (observation endpoints are not paginated).
//  2. A payload with "total_count" and "items" is accumulated page by page
//     until offset reaches total_count. A null "items" field is tolerated.
//  3. A benign empty response (HTTP 400, surfaced by the client as a nil
//     payload) terminates the fetch with the items collected so far.
//
// An empty result is valid and not an error. Any transport failure aborts
// the whole fetch; no partial items are returned in that case.
func (f *Fetcher) FetchAll(ctx context.Context, endpoint string, extra url.Values) ([]map[string]any, error) {
	limit := f.config.Limit
	offset := 0
	totalCount := -1
	pagesFetched := 0

	var results []map[string]any

	for totalCount == -1 || offset < totalCount {
		if f.config.EarlyExitAfterPages > 0 && pagesFetched >= f.config.EarlyExitAfterPages {
			f.logger.Info().
				Str("endpoint", endpoint).
				Int("pages_fetched", pagesFetched).
				Int("total_count", totalCount).
				Msg("Early exit policy reached - stopping fetch")
			break
		}

		params := url.Values{}
		for key, values := range extra {
			params[key] = values
		}
		params.Set("limit", strconv.Itoa(limit))
		params.Set("offset", strconv.Itoa(offset))

		page, err := f.client.GetJSON(ctx, endpoint, params)
		if err != nil {
			return nil, err
		}
		pagesFetched++

		// Benign empty response: return whatever was collected so far.
		if page == nil {
			break
		}

		// Observation endpoints return the full result in one payload.
		if raw, ok := page["observations"]; ok {
			items, err := itemSlice(endpoint, "observations", raw)
			if err != nil {
				return nil, err
			}
			f.logger.Debug().
				Str("endpoint", endpoint).
				Int("items", len(items)).
				Msg("Fetched observations payload")
			return items, nil
		}

		// total_count is read once, from the first page.
		if totalCount == -1 {
			raw, ok := page["total_count"]
			if !ok {
				return nil, &client.MalformedResponseError{Endpoint: endpoint, Field: "total_count"}
			}
			count, ok := raw.(float64)
			if !ok {
				return nil, &client.MalformedResponseError{Endpoint: endpoint, Field: "total_count"}
			}
			totalCount = int(count)
		}

		if raw, ok := page["items"]; ok && raw != nil {
			items, err := itemSlice(endpoint, "items", raw)
			if err != nil {
				return nil, err
			}
			results = append(results, items...)
		}

		offset += limit

		f.logger.Debug().
			Str("endpoint", endpoint).
			Int("offset", offset).
			Int("total_count", totalCount).
			Msg("Fetched page")
	}

	return results, nil
}

// itemSlice normalizes a decoded JSON array of objects.
func itemSlice(endpoint, field string, raw any) ([]map[string]any, error) {
	list, ok := raw.([]any)
	if !ok {
		return nil, &client.MalformedResponseError{Endpoint: endpoint, Field: field}
	}

	items := make([]map[string]any, 0, len(list))
	for _, entry := range list {
		item, ok := entry.(map[string]any)
		if !ok {
			return nil, &client.MalformedResponseError{Endpoint: endpoint, Field: field}
		}
		items = append(items, item)
	}
	return items, nil
}
