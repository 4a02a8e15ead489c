// Package census orchestrates the fetch/cache pipeline across the six
// census resource stages: population types, area types, area infos,
// dimensions, categories and observations.
//
// Every stage runs through the same cache-aside primitive: rows already in
// the resource store satisfy the stage with zero network calls; otherwise
// the paginated fetcher retrieves them (rate-limited per page request),
// each item is tagged with its dependency keys and persisted, and the store
// is re-read as the authoritative result. Stages execute on demand, strictly
// in dependency order, single-threaded.
package census

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ukcensus-tools/census-client/pkg/pagination"
	"github.com/ukcensus-tools/census-client/pkg/store"
)

// Resource table names, one per entity kind.
const (
	TablePopulationTypes = "population-types"
	TableAreaTypes       = "area-types"
	TableAreaInfos       = "area-infos"
	TableDimensions      = "dimensions"
	TableCategories      = "categories"
	TableData            = "data"
)

// Payload tag fields stamped onto fetched items.
const (
	fieldPopulationType = "population-type"
	fieldAreaType       = "area-type"
	fieldAreaCode       = "area-code"
	fieldDimensionID    = "dimension-id"

	// fieldDimensionIDs tags observation rows with the ordered dimension-id
	// set they were fetched for. Deliberately distinct from the payload's
	// own "dimensions" field, which the API populates with objects.
	fieldDimensionIDs = "dimension-ids"
)

// microdataKind is the population type kind downstream stages iterate over
// when no explicit population type is given.
const microdataKind = "microdata"

// Orchestrator resolves the resource dependency graph against the store and
// the rate-limited fetcher.
type Orchestrator struct {
	store   store.Store
	fetcher *pagination.Fetcher
	logger  zerolog.Logger
}

// New creates an orchestrator.
func New(s store.Store, fetcher *pagination.Fetcher) *Orchestrator {
	return &Orchestrator{
		store:   s,
		fetcher: fetcher,
		logger:  log.With().Str("component", "census").Logger(),
	}
}

// PopulationTypes returns all population types, fetching and caching them on
// first use. This is the root of the dependency graph.
func (o *Orchestrator) PopulationTypes(ctx context.Context) ([]Item, error) {
	return o.ensure(ctx, resource{
		table: TablePopulationTypes,
		fetch: func(ctx context.Context) ([]map[string]any, error) {
			return o.fetcher.FetchAll(ctx, "population-types", nil)
		},
	})
}

// populationTypeNames resolves which population types a stage iterates:
// the explicit argument when given, otherwise every microdata population
// type.
func (o *Orchestrator) populationTypeNames(ctx context.Context, populationType string) ([]string, error) {
	if populationType != "" {
		return []string{populationType}, nil
	}

	populations, err := o.PopulationTypes(ctx)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, pop := range populations {
		kind, err := pop.String("type")
		if err != nil {
			continue // population types without a kind are not iterable
		}
		if kind != microdataKind {
			continue
		}
		name, err := pop.String("name")
		if err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, nil
}

// AreaTypes returns the area types of a population type (or of every
// microdata population type when the argument is empty), fetching and
// caching per population type.
func (o *Orchestrator) AreaTypes(ctx context.Context, populationType string) ([]Item, error) {
	names, err := o.populationTypeNames(ctx, populationType)
	if err != nil {
		return nil, err
	}

	var result []Item
	for _, name := range names {
		items, err := o.ensure(ctx, resource{
			table:     TableAreaTypes,
			predicate: store.Predicate{fieldPopulationType: name},
			fetch: func(ctx context.Context) ([]map[string]any, error) {
				return o.fetcher.FetchAll(ctx, fmt.Sprintf("population-types/%s/area-types", name), nil)
			},
			tags: map[string]string{fieldPopulationType: name},
		})
		if err != nil {
			return nil, err
		}
		result = append(result, items...)
	}
	return result, nil
}

// AreaInfos returns the areas of every cached area type of a population
// type. Area types are resolved first, so an area fetch never references an
// area type that is not already cached.
func (o *Orchestrator) AreaInfos(ctx context.Context, populationType string) ([]Item, error) {
	areaTypes, err := o.AreaTypes(ctx, populationType)
	if err != nil {
		return nil, err
	}

	var result []Item
	for _, areaType := range areaTypes {
		id, err := areaType.String("id")
		if err != nil {
			return nil, fmt.Errorf("area type: %w", err)
		}
		name, err := areaType.String(fieldPopulationType)
		if err != nil {
			return nil, fmt.Errorf("area type %q: %w", id, err)
		}

		items, err := o.ensure(ctx, resource{
			table: TableAreaInfos,
			predicate: store.Predicate{
				fieldPopulationType: name,
				fieldAreaType:       id,
			},
			fetch: func(ctx context.Context) ([]map[string]any, error) {
				return o.fetcher.FetchAll(ctx,
					fmt.Sprintf("population-types/%s/area-types/%s/areas", name, id), nil)
			},
			tags: map[string]string{
				fieldPopulationType: name,
				fieldAreaType:       id,
			},
		})
		if err != nil {
			return nil, err
		}
		result = append(result, items...)
	}
	return result, nil
}

// Dimensions returns the dimensions of a population type matching a
// name-substring query. The query is applied server-side on fetch; cached
// rows for the population type satisfy later calls regardless of the query,
// matching the append-only cache discipline.
func (o *Orchestrator) Dimensions(ctx context.Context, populationType, query string) ([]Item, error) {
	names, err := o.populationTypeNames(ctx, populationType)
	if err != nil {
		return nil, err
	}

	var result []Item
	for _, name := range names {
		items, err := o.ensure(ctx, resource{
			table:     TableDimensions,
			predicate: store.Predicate{fieldPopulationType: name},
			fetch: func(ctx context.Context) ([]map[string]any, error) {
				return o.fetcher.FetchAll(ctx,
					fmt.Sprintf("population-types/%s/dimensions", name),
					url.Values{"q": []string{query}})
			},
			tags: map[string]string{fieldPopulationType: name},
		})
		if err != nil {
			return nil, err
		}
		result = append(result, items...)
	}
	return result, nil
}

// FilteredDimensionIDs returns the cached dimension ids of a population
// type whose id contains the given substring. Used to build dimension lists
// for observation requests.
func (o *Orchestrator) FilteredDimensionIDs(ctx context.Context, populationType, substring string) ([]string, error) {
	items, err := o.readItems(ctx, TableDimensions, store.Predicate{fieldPopulationType: populationType})
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, item := range items {
		id, err := item.String("id")
		if err != nil {
			return nil, fmt.Errorf("dimension: %w", err)
		}
		if substring == "" || strings.Contains(id, substring) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// Categories returns the categorisations of every cached dimension of a
// population type.
func (o *Orchestrator) Categories(ctx context.Context, populationType string) ([]Item, error) {
	dimensions, err := o.readItems(ctx, TableDimensions, store.Predicate{fieldPopulationType: populationType})
	if err != nil {
		return nil, err
	}

	var result []Item
	for _, dimension := range dimensions {
		id, err := dimension.String("id")
		if err != nil {
			return nil, fmt.Errorf("dimension: %w", err)
		}
		name, err := dimension.String(fieldPopulationType)
		if err != nil {
			return nil, fmt.Errorf("dimension %q: %w", id, err)
		}

		items, err := o.ensure(ctx, resource{
			table:     TableCategories,
			predicate: store.Predicate{fieldDimensionID: id},
			fetch: func(ctx context.Context) ([]map[string]any, error) {
				return o.fetcher.FetchAll(ctx,
					fmt.Sprintf("population-types/%s/dimensions/%s/categorisations", name, id), nil)
			},
			tags: map[string]string{
				fieldDimensionID:    id,
				fieldPopulationType: name,
			},
		})
		if err != nil {
			return nil, err
		}
		result = append(result, items...)
	}
	return result, nil
}
