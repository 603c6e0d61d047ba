package tokenbucket

import (
	"fmt"
	"strconv"
)

// parseStepReply decodes stepScript's {allowed, newTokens, tokensAfter} reply.
func parseStepReply(res interface{}) (Step, error) {
	vals, ok := res.([]interface{})
	if !ok || len(vals) != 3 {
		return Step{}, fmt.Errorf("tokenbucket: unexpected script reply %v", res)
	}

	allowed, err := toInt64(vals[0])
	if err != nil {
		return Step{}, fmt.Errorf("tokenbucket: allowed field: %w", err)
	}
	newTokens, err := strconv.ParseFloat(fmt.Sprint(vals[1]), 64)
	if err != nil {
		return Step{}, fmt.Errorf("tokenbucket: newTokens field: %w", err)
	}
	tokensLeft, err := strconv.ParseFloat(fmt.Sprint(vals[2]), 64)
	if err != nil {
		return Step{}, fmt.Errorf("tokenbucket: tokensAfter field: %w", err)
	}

	return Step{
		Allowed:    allowed == 1,
		NewTokens:  newTokens,
		TokensLeft: tokensLeft,
	}, nil
}

func toInt64(v interface{}) (int64, error) {
	switch t := v.(type) {
	case int64:
		return t, nil
	case string:
		return strconv.ParseInt(t, 10, 64)
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
}
