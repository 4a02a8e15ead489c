package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Key identifies one cached census API response.
type Key struct {
	// Endpoint is the API endpoint path (e.g., "population-types/UR/dimensions")
	Endpoint string

	// Params are the query parameters of the request.
	Params url.Values
}

// String generates a deterministic cache key string.
// Format: census:endpoint:param1=val1:param2=val2
//
// Example:
//
//	census:population-types/UR/dimensions:limit=100:offset=0:q=religion
func (k Key) String() string {
	parts := []string{"census"}

	endpoint := strings.Trim(k.Endpoint, "/")
	if endpoint != "" {
		parts = append(parts, endpoint)
	}

	// Params sorted for determinism.
	if len(k.Params) > 0 {
		keys := make([]string, 0, len(k.Params))
		for key := range k.Params {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		for _, key := range keys {
			parts = append(parts, fmt.Sprintf("%s=%s", key, k.Params.Get(key)))
		}
	}

	return strings.Join(parts, ":")
}
