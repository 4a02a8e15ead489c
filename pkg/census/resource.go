package census

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ukcensus-tools/census-client/pkg/store"
)

// Prometheus metrics for the cache-aside pipeline.
var (
	stageCacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "census_stage_cache_hits_total",
		Help: "Stage requests answered entirely from the resource store",
	}, []string{"table"})

	stageCacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "census_stage_cache_misses_total",
		Help: "Stage requests that had to fetch from the census API",
	}, []string{"table"})

	stageItemsFetched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "census_stage_items_fetched_total",
		Help: "Items fetched and written to the resource store by table",
	}, []string{"table"})
)

// Item is one decoded resource payload.
type Item map[string]any

// String returns the named payload field as a string.
func (i Item) String(field string) (string, error) {
	raw, ok := i[field]
	if !ok {
		return "", fmt.Errorf("cached item is missing field %q", field)
	}
	value, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("cached item field %q is %T, not a string", field, raw)
	}
	return value, nil
}

// resource describes one fetchable, cacheable unit of work: where its rows
// live, which rows satisfy it, how to fetch them on a miss, and which tag
// fields to stamp onto every fetched item before writing.
type resource struct {
	table     string
	predicate store.Predicate
	fetch     func(ctx context.Context) ([]map[string]any, error)
	tags      map[string]string
}

// ensure is the cache-aside primitive shared by every stage:
// read matching rows; on a miss fetch, tag and persist every item, then
// re-read from the store as the authoritative result.
func (o *Orchestrator) ensure(ctx context.Context, res resource) ([]Item, error) {
	exists, err := o.store.Exists(ctx, res.table, res.predicate)
	if err != nil {
		return nil, fmt.Errorf("check cache for %q: %w", res.table, err)
	}

	if exists {
		stageCacheHits.WithLabelValues(res.table).Inc()
		o.logger.Debug().
			Str("table", res.table).
			Msg("Cache hit - no fetch needed")
		return o.readItems(ctx, res.table, res.predicate)
	}

	stageCacheMisses.WithLabelValues(res.table).Inc()
	o.logger.Info().
		Str("table", res.table).
		Msg("Cache miss - fetching from census API")

	items, err := res.fetch(ctx)
	if err != nil {
		return nil, err
	}

	if err := o.store.EnsureTable(ctx, res.table); err != nil {
		return nil, err
	}

	for _, item := range items {
		for field, value := range res.tags {
			item[field] = value
		}
		payload, err := json.Marshal(item)
		if err != nil {
			return nil, fmt.Errorf("marshal item for %q: %w", res.table, err)
		}
		if err := o.store.Write(ctx, res.table, payload); err != nil {
			return nil, err
		}
	}
	stageItemsFetched.WithLabelValues(res.table).Add(float64(len(items)))

	return o.readItems(ctx, res.table, res.predicate)
}

// readItems reads and decodes all rows matching a predicate.
func (o *Orchestrator) readItems(ctx context.Context, table string, predicate store.Predicate) ([]Item, error) {
	rows, err := o.store.Read(ctx, table, predicate)
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", table, err)
	}

	items := make([]Item, 0, len(rows))
	for _, row := range rows {
		var item Item
		if err := json.Unmarshal(row.Payload, &item); err != nil {
			return nil, fmt.Errorf("decode row %d of %q: %w", row.ID, table, err)
		}
		items = append(items, item)
	}
	return items, nil
}
