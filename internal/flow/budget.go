package flow

import (
	"strconv"
	"strings"
)

var budgetNoise = strings.NewReplacer(" ", "", "₴", "", "грн", "")

// ParseBudget reads a price range in one of three forms: "<lo>-<hi>",
// "до<hi>" (lower bound 0) and "<lo>+" (no upper bound). Currency marks and
// spaces are ignored. An explicit range is returned ordered.
func ParseBudget(text string) (lo, hi *int, ok bool) {
	cleaned := budgetNoise.Replace(strings.TrimSpace(text))

	switch {
	case strings.Contains(cleaned, "-"):
		parts := strings.Split(cleaned, "-")
		if len(parts) != 2 {
			return nil, nil, false
		}
		a, okA := parseAmount(parts[0])
		b, okB := parseAmount(parts[1])
		if !okA || !okB {
			return nil, nil, false
		}
		if a > b {
			a, b = b, a
		}
		return &a, &b, true

	case strings.HasPrefix(cleaned, "до"):
		b, ok := parseAmount(strings.TrimPrefix(cleaned, "до"))
		if !ok {
			return nil, nil, false
		}
		zero := 0
		return &zero, &b, true

	case strings.HasSuffix(cleaned, "+"):
		a, ok := parseAmount(strings.TrimSuffix(cleaned, "+"))
		if !ok {
			return nil, nil, false
		}
		return &a, nil, true
	}
	return nil, nil, false
}

func parseAmount(s string) (int, bool) {
	if s == "" || strings.ContainsAny(s, "+-") {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
