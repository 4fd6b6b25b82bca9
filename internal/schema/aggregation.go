package schema

import (
	apperrors "github.com/graph-import/pkg/errors"
)

// Aggregation is the reduction applied to parallel edges sharing endpoints.
type Aggregation int

const (
	// AggregationNone keeps parallel edges verbatim (multigraph).
	AggregationNone Aggregation = iota
	// AggregationSingle keeps the first edge per endpoint pair.
	AggregationSingle
	// AggregationSum sums property values of parallel edges.
	AggregationSum
	// AggregationMin keeps the minimum property value.
	AggregationMin
	// AggregationMax keeps the maximum property value.
	AggregationMax
	// AggregationCount counts parallel edges; the resulting column is integral.
	AggregationCount
)

// String returns the configuration token for the aggregation.
func (a Aggregation) String() string {
	switch a {
	case AggregationSingle:
		return "SINGLE"
	case AggregationSum:
		return "SUM"
	case AggregationMin:
		return "MIN"
	case AggregationMax:
		return "MAX"
	case AggregationCount:
		return "COUNT"
	default:
		return "NONE"
	}
}

// ParseAggregation parses a configuration token into an Aggregation.
func ParseAggregation(token string) (Aggregation, error) {
	switch token {
	case "", "NONE", "none":
		return AggregationNone, nil
	case "SINGLE", "single":
		return AggregationSingle, nil
	case "SUM", "sum":
		return AggregationSum, nil
	case "MIN", "min":
		return AggregationMin, nil
	case "MAX", "max":
		return AggregationMax, nil
	case "COUNT", "count":
		return AggregationCount, nil
	default:
		return AggregationNone, apperrors.Newf(apperrors.CodeConfigError,
			"unrecognized aggregation %q", token)
	}
}

// Reduces reports whether the aggregation folds parallel edges into one.
func (a Aggregation) Reduces() bool {
	return a != AggregationNone
}

// Apply folds the next property value into the running one.
// For AggregationCount the running value counts edges seen so far.
func (a Aggregation) Apply(running, next float64) float64 {
	switch a {
	case AggregationSum:
		return running + next
	case AggregationMin:
		if next < running {
			return next
		}
		return running
	case AggregationMax:
		if next > running {
			return next
		}
		return running
	case AggregationCount:
		return running + 1
	case AggregationSingle:
		return running
	default:
		return next
	}
}

// InitialValue returns the fold seed for the first edge of a pair.
func (a Aggregation) InitialValue(first float64) float64 {
	if a == AggregationCount {
		return 1
	}
	return first
}
