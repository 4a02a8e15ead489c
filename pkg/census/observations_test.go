package census

import (
	"context"
	"errors"
	"testing"

	"github.com/ukcensus-tools/census-client/internal/testutil"
	"github.com/ukcensus-tools/census-client/pkg/client"
	"github.com/ukcensus-tools/census-client/pkg/subset"
)

func TestObservations_UsageErrors(t *testing.T) {
	mock := testutil.NewMockCensus()
	defer mock.Close()

	o, _ := newTestOrchestrator(t, mock)
	ctx := context.Background()

	tests := []struct {
		name string
		req  ObservationRequest
	}{
		{
			name: "missing population type",
			req: ObservationRequest{
				DimensionLists: [][]string{{"religion_tb"}},
				Mode:           subset.ModeAll,
			},
		},
		{
			name: "missing dimension lists",
			req: ObservationRequest{
				PopulationType: "UR",
				Mode:           subset.ModeAll,
			},
		},
		{
			name: "invalid mode",
			req: ObservationRequest{
				PopulationType: "UR",
				DimensionLists: [][]string{{"religion_tb"}},
				Mode:           "most",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := o.Observations(ctx, tt.req)

			var usageErr *subset.UsageError
			if !errors.As(err, &usageErr) {
				t.Fatalf("Observations() error = %v, want *subset.UsageError", err)
			}
			if got := mock.Requests(); got != 0 {
				t.Errorf("invalid request issued %d network calls, want 0", got)
			}
		})
	}
}

func TestObservations_SkipsPresentCombinations(t *testing.T) {
	mock := testutil.NewMockCensus()
	defer mock.Close()
	setupScenario(mock)

	o, _ := newTestOrchestrator(t, mock)
	ctx := context.Background()

	req := ObservationRequest{
		PopulationType: "UR",
		DimensionLists: [][]string{{"religion_tb"}},
		Mode:           subset.ModeAll,
	}

	first, err := o.Observations(ctx, req)
	if err != nil {
		t.Fatalf("Observations() first call failed: %v", err)
	}
	if len(first) != 1 {
		t.Fatalf("first call returned %d rows, want 1", len(first))
	}

	// The combination is recorded, so a repeat request reads it back without
	// touching the network or the area dependency chain.
	mock.Reset()
	second, err := o.Observations(ctx, req)
	if err != nil {
		t.Fatalf("Observations() second call failed: %v", err)
	}
	if len(second) != 1 {
		t.Errorf("second call returned %d rows, want 1", len(second))
	}
	if got := mock.Requests(); got != 0 {
		t.Errorf("repeat request issued %d network calls, want 0", got)
	}
}

func TestObservations_EmptyResultIsSkipped(t *testing.T) {
	mock := testutil.NewMockCensus()
	defer mock.Close()
	setupScenario(mock)

	// The API answers 400 for this combination/area pair: no data exists.
	mock.SetStatus("/population-types/UR/census-observations", 400)

	o, s := newTestOrchestrator(t, mock)
	ctx := context.Background()

	result, err := o.Observations(ctx, ObservationRequest{
		PopulationType: "UR",
		DimensionLists: [][]string{{"religion_tb"}},
		Mode:           subset.ModeAll,
	})
	if err != nil {
		t.Fatalf("Observations() failed: %v", err)
	}
	if len(result) != 0 {
		t.Errorf("Observations() returned %d rows for an empty combination, want 0", len(result))
	}

	rows, err := s.Read(ctx, TableData, nil)
	if err != nil {
		t.Fatalf("Read(%q) failed: %v", TableData, err)
	}
	if len(rows) != 0 {
		t.Errorf("empty combination wrote %d rows, want 0", len(rows))
	}
}

func TestObservations_TransportErrorIsFatal(t *testing.T) {
	mock := testutil.NewMockCensus()
	defer mock.Close()
	setupScenario(mock)

	mock.SetStatus("/population-types/UR/census-observations", 500)

	o, _ := newTestOrchestrator(t, mock)

	_, err := o.Observations(context.Background(), ObservationRequest{
		PopulationType: "UR",
		DimensionLists: [][]string{{"religion_tb"}},
		Mode:           subset.ModeAll,
	})

	var httpErr *client.HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("Observations() error = %v, want *client.HTTPError", err)
	}
	if httpErr.StatusCode != 500 {
		t.Errorf("StatusCode = %d, want 500", httpErr.StatusCode)
	}
}

func TestDimensionalData_MatchesExactDimensionSet(t *testing.T) {
	mock := testutil.NewMockCensus()
	defer mock.Close()
	setupScenario(mock)
	mock.SetPaginated("/population-types/UR/dimensions", []map[string]any{
		{"id": "religion_tb", "label": "Religion"},
		{"id": "sex", "label": "Sex"},
	})

	o, _ := newTestOrchestrator(t, mock)
	ctx := context.Background()

	// ModeAny over two single-dimension lists records two combinations plus
	// their pairing, each tagged with its own ordered dimension-id set.
	if _, err := o.Observations(ctx, ObservationRequest{
		PopulationType: "UR",
		DimensionLists: [][]string{{"religion_tb"}, {"sex"}},
		Mode:           subset.ModeAny,
	}); err != nil {
		t.Fatalf("Observations() failed: %v", err)
	}

	tests := []struct {
		name string
		ids  []string
		want int
	}{
		{name: "single dimension", ids: []string{"religion_tb"}, want: 1},
		{name: "paired dimensions", ids: []string{"religion_tb", "sex"}, want: 1},
		{name: "order matters", ids: []string{"sex", "religion_tb"}, want: 0},
		{name: "unknown dimension", ids: []string{"age"}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := o.DimensionalData(ctx, "UR", tt.ids)
			if err != nil {
				t.Fatalf("DimensionalData() failed: %v", err)
			}
			if len(items) != tt.want {
				t.Errorf("DimensionalData(%v) returned %d rows, want %d", tt.ids, len(items), tt.want)
			}
		})
	}
}
