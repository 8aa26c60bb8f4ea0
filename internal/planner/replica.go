// Package planner holds the pure replica-count and traffic-weight
// arithmetic used by the strategy handlers (spec.md §4.3, §4.5).
package planner

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// ReplicaCounts is the output of ReplicaPlan: how many stable and how many
// canary pods should exist.
type ReplicaCounts struct {
	Stable int
	Canary int
}

var budgetPattern = regexp.MustCompile(`^\d+%?$`)

// ParseBudget parses a maxSurge/maxUnavailable value ("N" or "N%") into an
// absolute pod count relative to total, rounding percentages up. An empty
// string falls back to def.
func ParseBudget(value, def string, total int) (int, error) {
	v := value
	if v == "" {
		v = def
	}
	if !budgetPattern.MatchString(v) {
		return 0, fmt.Errorf("invalid budget %q: must match ^\\d+%%?$", v)
	}
	if strings.HasSuffix(v, "%") {
		pct, err := strconv.Atoi(strings.TrimSuffix(v, "%"))
		if err != nil {
			return 0, fmt.Errorf("invalid budget percentage %q: %w", v, err)
		}
		return int(math.Ceil(float64(total) * float64(pct) / 100.0)), nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid budget %q: %w", v, err)
	}
	return n, nil
}

// ReplicaPlan implements the replica planner algorithm of spec.md §4.3.
//
// idealCanary is computed from weight, then clamped into the surge/
// unavailable budget: canary is reduced first when over maxTotal, stable is
// topped up first when under minTotal (prefer availability).
func ReplicaPlan(total, weight int, maxSurge, maxUnavailable string) (ReplicaCounts, error) {
	if total < 0 {
		return ReplicaCounts{}, fmt.Errorf("total replicas must be >= 0, got %d", total)
	}
	if weight < 0 || weight > 100 {
		return ReplicaCounts{}, fmt.Errorf("weight must be in [0,100], got %d", weight)
	}

	var idealCanary int
	switch {
	case weight == 0:
		idealCanary = 0
	case weight == 100:
		idealCanary = total
	default:
		idealCanary = int(math.Ceil(float64(total) * float64(weight) / 100.0))
	}
	idealStable := total - idealCanary

	surge, err := ParseBudget(maxSurge, "25%", total)
	if err != nil {
		return ReplicaCounts{}, err
	}
	unavailable, err := ParseBudget(maxUnavailable, "0", total)
	if err != nil {
		return ReplicaCounts{}, err
	}

	// Weight 0/100 are unconditional edge cases: the budget never overrides
	// an all-stable or all-canary target.
	if weight == 0 {
		return ReplicaCounts{Stable: total, Canary: 0}, nil
	}
	if weight == 100 {
		return ReplicaCounts{Stable: 0, Canary: total}, nil
	}

	maxTotal := total + surge
	minTotal := total - unavailable
	if minTotal < 0 {
		minTotal = 0
	}

	stable, canary := idealStable, idealCanary
	if stable+canary > maxTotal {
		over := stable + canary - maxTotal
		reduceCanary := min(over, canary)
		canary -= reduceCanary
		over -= reduceCanary
		if over > 0 {
			reduceStable := min(over, stable)
			stable -= reduceStable
		}
	}
	if stable+canary < minTotal {
		shortfall := minTotal - (stable + canary)
		stable += shortfall
	}
	if stable < 0 {
		stable = 0
	}
	if canary < 0 {
		canary = 0
	}

	return ReplicaCounts{Stable: stable, Canary: canary}, nil
}
