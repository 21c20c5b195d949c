package tools

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"sync"
)

// comparison metrics, one upstream endpoint each; merged by island name.
var compareMetrics = []struct {
	Name string
	Path string
}{
	{Name: "visitors", Path: pathVisitors},
	{Name: "expenditure", Path: pathExpenditure},
	{Name: "occupancy", Path: pathOccupancy},
	{Name: "stay", Path: pathStay},
}

// handleCompareIslands fans out to the four metric endpoints concurrently and
// merges them into one row per requested island. A requested island is never
// dropped: when no endpoint knows it, the row carries all-null metrics and
// found:false. A single failed endpoint degrades its column to null for every
// island instead of failing the tool.
func handleCompareIslands(ctx context.Context, fetcher Fetcher, args map[string]any) (any, error) {
	islands := stringsArg(args, "islands")
	if len(islands) == 0 {
		islands = DefaultIslands
	}
	year := intArg(args, "year")

	query := url.Values{}
	query.Set("year", strconv.Itoa(year))

	type fanoutResult struct {
		payload any
		err     error
	}

	results := make([]fanoutResult, len(compareMetrics))

	var wg sync.WaitGroup
	for i, metric := range compareMetrics {
		wg.Add(1)
		go func(idx int, path string) {
			defer wg.Done()
			payload, err := fetcher.FetchJSON(ctx, path, query)
			results[idx] = fanoutResult{payload: payload, err: err}
		}(i, metric.Path)
	}
	wg.Wait()

	lookups := make([]map[string]any, len(compareMetrics))
	var failures []string
	for i, metric := range compareMetrics {
		if results[i].err != nil {
			failures = append(failures, metric.Name)
			continue
		}
		lookups[i] = valuesByIsland(results[i].payload)
	}

	rows := make([]map[string]any, 0, len(islands))
	for _, island := range islands {
		row := map[string]any{
			"island": island,
			"year":   year,
		}
		found := false
		key := normalizeIslandKey(island)
		for i, metric := range compareMetrics {
			var value any
			if lookups[i] != nil {
				if v, ok := lookups[i][key]; ok {
					value = v
					found = true
				}
			}
			row[metric.Name] = value
		}
		row["found"] = found
		rows = append(rows, row)
	}

	payload := map[string]any{
		"year":    year,
		"islands": rows,
	}
	if len(failures) > 0 {
		payload["unavailable_metrics"] = failures
	}
	return payload, nil
}

// valuesByIsland builds an island -> value lookup from one upstream result
// set. Endpoints return either a bare row array or a {data: [...]} wrapper;
// rows carry "island" plus a "value" field.
func valuesByIsland(payload any) map[string]any {
	rows, ok := payload.([]any)
	if !ok {
		wrapper, isMap := payload.(map[string]any)
		if !isMap {
			return nil
		}
		rows, ok = wrapper["data"].([]any)
		if !ok {
			return nil
		}
	}

	lookup := make(map[string]any, len(rows))
	for _, raw := range rows {
		row, isMap := raw.(map[string]any)
		if !isMap {
			continue
		}
		island, _ := row["island"].(string)
		if island == "" {
			continue
		}
		value, hasValue := row["value"]
		if !hasValue {
			continue
		}
		lookup[normalizeIslandKey(island)] = value
	}
	return lookup
}

func normalizeIslandKey(island string) string {
	return strings.ToLower(strings.TrimSpace(island))
}
