package utils

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseCSV splits a comma-separated string and returns trimmed non-empty values.
// Returns nil for empty/whitespace-only input.
func ParseCSV(s string) []string {
	if s == "" {
		return nil
	}

	var result []string
	for _, v := range strings.Split(s, ",") {
		trimmed := strings.TrimSpace(v)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	if len(result) == 0 {
		return nil
	}

	return result
}

// ParseSeeds parses a comma-separated list of unsigned 64-bit seeds, as used
// for batch runs ("1, 2, 42").
func ParseSeeds(s string) ([]uint64, error) {
	fields := ParseCSV(s)
	if fields == nil {
		return nil, nil
	}

	seeds := make([]uint64, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseUint(f, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid seed %q: %w", f, err)
		}
		seeds = append(seeds, v)
	}
	return seeds, nil
}
