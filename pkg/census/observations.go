package census

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/ukcensus-tools/census-client/pkg/store"
	"github.com/ukcensus-tools/census-client/pkg/subset"
)

// ObservationRequest describes one observation fetch: which population type,
// which dimension lists, and how those lists combine into queries.
type ObservationRequest struct {
	PopulationType string
	DimensionLists [][]string
	Mode           subset.Mode
}

// Observations resolves the leaf stage of the dependency graph. For the
// requested dimension combinations it:
//
//  1. reads the distinct dimension-id sets already recorded for the
//     population type,
//  2. asks the subset generator which combinations still need fetching,
//  3. for each remaining combination, fetches observations for every known
//     (area type, area code) pair, skipping empty results silently,
//
// and finally returns the cached rows for every requested combination.
// A combination fully fetched in a previous run is never fetched again.
func (o *Orchestrator) Observations(ctx context.Context, req ObservationRequest) ([]Item, error) {
	if req.PopulationType == "" {
		return nil, &subset.UsageError{Reason: "population type is required for observations"}
	}
	if len(req.DimensionLists) == 0 {
		return nil, &subset.UsageError{Reason: "at least one dimension list is required for observations"}
	}

	// Validate the mode and compute the full candidate set before touching
	// the network or the area dependencies.
	requested, err := subset.Combinations(req.DimensionLists, req.Mode, nil)
	if err != nil {
		return nil, err
	}

	present, err := o.presentDimensionSets(ctx, req.PopulationType)
	if err != nil {
		return nil, err
	}

	missing, err := subset.Combinations(req.DimensionLists, req.Mode, present)
	if err != nil {
		return nil, err
	}

	if len(missing) > 0 {
		// Area types and areas must be cached before observation fetching.
		areas, err := o.AreaInfos(ctx, req.PopulationType)
		if err != nil {
			return nil, err
		}

		for _, combination := range missing {
			if err := o.fetchObservationCombination(ctx, req.PopulationType, combination, areas); err != nil {
				return nil, err
			}
		}
	}

	var result []Item
	for _, combination := range requested {
		items, err := o.DimensionalData(ctx, req.PopulationType, combination)
		if err != nil {
			return nil, err
		}
		result = append(result, items...)
	}
	return result, nil
}

// fetchObservationCombination fetches one dimension combination for every
// known (area type, area code) pair and persists the results.
func (o *Orchestrator) fetchObservationCombination(ctx context.Context, populationType string, combination []string, areas []Item) error {
	endpoint := fmt.Sprintf("population-types/%s/census-observations", populationType)
	dimensionsParam := strings.Join(combination, ",")

	o.logger.Info().
		Str("population_type", populationType).
		Str("dimensions", dimensionsParam).
		Int("area_pairs", len(areas)).
		Msg("Fetching observation combination")

	for _, area := range areas {
		areaType, err := area.String(fieldAreaType)
		if err != nil {
			return fmt.Errorf("area info: %w", err)
		}
		areaCode, err := area.String("id")
		if err != nil {
			return fmt.Errorf("area info: %w", err)
		}

		items, err := o.fetcher.FetchAll(ctx, endpoint, url.Values{
			"area-type":  []string{areaType + "," + areaCode},
			"dimensions": []string{dimensionsParam},
		})
		if err != nil {
			return err
		}

		// No data for this combination/area pair: nothing written,
		// nothing reported.
		if len(items) == 0 {
			continue
		}

		if err := o.store.EnsureTable(ctx, TableData); err != nil {
			return err
		}
		for _, item := range items {
			item[fieldPopulationType] = populationType
			item[fieldDimensionIDs] = combination
			item[fieldAreaType] = areaType
			item[fieldAreaCode] = areaCode

			payload, err := json.Marshal(item)
			if err != nil {
				return fmt.Errorf("marshal observation: %w", err)
			}
			if err := o.store.Write(ctx, TableData, payload); err != nil {
				return err
			}
		}
		stageItemsFetched.WithLabelValues(TableData).Add(float64(len(items)))
	}
	return nil
}

// DimensionalData returns the cached observation rows of a population type
// for one exact dimension-id set. This is the read accessor used by export
// collaborators; it issues no network calls.
//
// The dimension set is matched in memory because the store predicate only
// covers flat field equality; the comparison is order-sensitive, matching
// the dedup discipline of the fetch path.
func (o *Orchestrator) DimensionalData(ctx context.Context, populationType string, dimensionIDs []string) ([]Item, error) {
	items, err := o.readItems(ctx, TableData, store.Predicate{fieldPopulationType: populationType})
	if err != nil {
		return nil, err
	}

	var result []Item
	for _, item := range items {
		ids, err := dimensionIDsOf(item)
		if err != nil {
			return nil, err
		}
		if equalTuples(ids, dimensionIDs) {
			result = append(result, item)
		}
	}
	return result, nil
}

// presentDimensionSets returns the distinct dimension-id sets already
// recorded for a population type, in first-seen order.
func (o *Orchestrator) presentDimensionSets(ctx context.Context, populationType string) ([][]string, error) {
	items, err := o.readItems(ctx, TableData, store.Predicate{fieldPopulationType: populationType})
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var sets [][]string
	for _, item := range items {
		ids, err := dimensionIDsOf(item)
		if err != nil {
			return nil, err
		}
		key := strings.Join(ids, "\x1f")
		if seen[key] {
			continue
		}
		seen[key] = true
		sets = append(sets, ids)
	}
	return sets, nil
}

// dimensionIDsOf extracts the ordered dimension-id set tag of an
// observation row.
func dimensionIDsOf(item Item) ([]string, error) {
	raw, ok := item[fieldDimensionIDs]
	if !ok {
		return nil, fmt.Errorf("observation row is missing field %q", fieldDimensionIDs)
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("observation row field %q is %T, not a list", fieldDimensionIDs, raw)
	}

	ids := make([]string, 0, len(list))
	for _, entry := range list {
		id, ok := entry.(string)
		if !ok {
			return nil, fmt.Errorf("observation row field %q holds %T, not a string", fieldDimensionIDs, entry)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func equalTuples(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
