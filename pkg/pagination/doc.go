// Package pagination retrieves complete result sets from paginated census
// API endpoints.
//
// The census API paginates with limit/offset parameters and reports the full
// result size in a total_count field. Observation endpoints are the
// exception: they return the whole result under an "observations" field in a
// single payload.
//
// Example usage:
//
//	fetcher := pagination.NewFetcher(censusClient, pagination.DefaultConfig())
//	items, err := fetcher.FetchAll(ctx, "population-types", nil)
//
// The fetcher:
//   - Issues page requests sequentially with increasing offset
//   - Reads total_count once, from the first page
//   - Detects observation payloads and short-circuits pagination
//   - Treats benign empty responses (HTTP 400) as empty results
//   - Optionally stops after a fixed number of pages (EarlyExitAfterPages)
//
// Every page request passes through the shared rate limiter inside the
// client, so nested fetch loops stay within the request budget without any
// coordination at this layer.
package pagination
