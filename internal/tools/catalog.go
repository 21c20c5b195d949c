package tools

import (
	"context"
	"net/url"
	"strconv"
	"time"
)

// Upstream dashboard API paths. The gateway treats these as opaque read-only
// JSON endpoints.
const (
	pathOverview    = "/api/dashboard/overview"
	pathIndicators  = "/api/dashboard/islands/indicators"
	pathMetrics     = "/api/dashboard/metrics"
	pathQuarters    = "/api/dashboard/quarters"
	pathVisitors    = "/api/dashboard/visitors"
	pathExpenditure = "/api/dashboard/expenditure"
	pathOccupancy   = "/api/dashboard/occupancy"
	pathStay        = "/api/dashboard/stay"
)

const (
	minYear = 2000
	maxYear = 2035

	minLimit     = 1
	maxLimit     = 50
	defaultLimit = 20
)

// DefaultIslands is the comparison set used when the caller supplies none.
var DefaultIslands = []string{"Tenerife", "Gran Canaria", "Lanzarote"}

func yearProperty() Property {
	return Property{
		Type:        "integer",
		Description: "Reference year for the data",
		Default:     time.Now().Year(),
		Minimum:     floatPtr(minYear),
		Maximum:     floatPtr(maxYear),
	}
}

// catalog returns the declarative tool table shared by both transports.
func catalog() []Tool {
	return []Tool{
		{
			Definition: Definition{
				Name:        "get_tourism_overview",
				Description: "Annual tourism overview for the whole archipelago: total visitors, total expenditure and year-over-year variation for a given year.",
				Parameters: ParameterSchema{
					Type: "object",
					Properties: map[string]Property{
						"year": yearProperty(),
					},
				},
			},
			Handler: handleOverview,
		},
		{
			Definition: Definition{
				Name:        "get_island_indicators",
				Description: "Tourism indicator set (arrivals, spend per visitor, occupancy, average stay) for one island in a given year.",
				Parameters: ParameterSchema{
					Type: "object",
					Properties: map[string]Property{
						"island": {
							Type:        "string",
							Description: "Island name, e.g. Tenerife or Lanzarote",
							Default:     "Tenerife",
						},
						"year": yearProperty(),
					},
				},
			},
			Handler: handleIslandIndicators,
		},
		{
			Definition: Definition{
				Name:        "get_core_metrics",
				Description: "Core metric rows filtered by metric name and island, capped to a row limit.",
				Parameters: ParameterSchema{
					Type: "object",
					Properties: map[string]Property{
						"metric": {
							Type:        "string",
							Description: "Metric name filter, empty for all metrics",
							Default:     "",
						},
						"island": {
							Type:        "string",
							Description: "Island name filter, empty for all islands",
							Default:     "",
						},
						"limit": {
							Type:        "integer",
							Description: "Maximum number of rows to return",
							Default:     defaultLimit,
							Minimum:     floatPtr(minLimit),
							Maximum:     floatPtr(maxLimit),
						},
					},
				},
			},
			Handler: handleCoreMetrics,
		},
		{
			Definition: Definition{
				Name:        "get_tourism_quarters",
				Description: "Quarterly tourism aggregates (visitors and expenditure per quarter) for a given year.",
				Parameters: ParameterSchema{
					Type: "object",
					Properties: map[string]Property{
						"year": yearProperty(),
					},
				},
			},
			Handler: handleQuarters,
		},
		{
			Definition: Definition{
				Name:        "compare_islands",
				Description: "Side-by-side comparison snapshot of visitors, expenditure, hotel occupancy and average stay for a list of islands in a given year.",
				Parameters: ParameterSchema{
					Type: "object",
					Properties: map[string]Property{
						"islands": {
							Type:        "array",
							Description: "Island names to compare; defaults to Tenerife, Gran Canaria and Lanzarote",
							Items:       &Property{Type: "string"},
							Default:     DefaultIslands,
						},
						"year": yearProperty(),
					},
				},
			},
			Handler: handleCompareIslands,
		},
	}
}

func handleOverview(ctx context.Context, fetcher Fetcher, args map[string]any) (any, error) {
	query := url.Values{}
	query.Set("year", strconv.Itoa(intArg(args, "year")))
	return fetcher.FetchJSON(ctx, pathOverview, query)
}

func handleIslandIndicators(ctx context.Context, fetcher Fetcher, args map[string]any) (any, error) {
	query := url.Values{}
	query.Set("island", stringArg(args, "island"))
	query.Set("year", strconv.Itoa(intArg(args, "year")))
	return fetcher.FetchJSON(ctx, pathIndicators, query)
}

func handleCoreMetrics(ctx context.Context, fetcher Fetcher, args map[string]any) (any, error) {
	query := url.Values{}
	query.Set("metric", stringArg(args, "metric"))
	query.Set("island", stringArg(args, "island"))
	query.Set("limit", strconv.Itoa(intArg(args, "limit")))
	return fetcher.FetchJSON(ctx, pathMetrics, query)
}

func handleQuarters(ctx context.Context, fetcher Fetcher, args map[string]any) (any, error) {
	query := url.Values{}
	query.Set("year", strconv.Itoa(intArg(args, "year")))
	return fetcher.FetchJSON(ctx, pathQuarters, query)
}

// intArg reads a normalized integer argument. Normalization guarantees the
// type, so a miss means a programming error in the catalog; zero is safe.
func intArg(args map[string]any, key string) int {
	if v, ok := args[key].(int); ok {
		return v
	}
	return 0
}

func stringArg(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

func stringsArg(args map[string]any, key string) []string {
	if v, ok := args[key].([]string); ok {
		return v
	}
	return nil
}
