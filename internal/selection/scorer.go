// Package selection implements the best-match ranking used by every
// resolution stage of the pipeline. Templates, rich-content records,
// placeholder values, and channel configs are all ranked with the same
// algorithm: locale match outweighs brand match outweighs any single
// additional-lookup predicate, and predicates are weighted by ascending
// order (order=1 heaviest). A single failed predicate disqualifies the
// candidate outright.
package selection

import (
	"strings"

	"github.com/tidwall/gjson"

	"vehiclenotify/internal/types"
)

// Disqualified is the rank of a candidate rejected by a lookup predicate.
const Disqualified = -1

// vehicleProfilePrefix is the payload path segment that is rewritten before
// evaluation: vehicle attributes live under a nested vehicleAttributes object
// in the payload schema, but lookup properties address them as if they were
// direct children of vehicleProfile.
const vehicleProfilePrefix = "vehicleProfile"

// Rank scores a candidate against the requested brand, locale, and event
// payload. Returns Disqualified (-1) if any additional-lookup predicate's
// resolved value is absent or excluded from its allowed set; remaining
// predicates are not evaluated in that case.
//
// Scoring for a candidate with n predicates:
//
//	satisfied predicate p  ->  2^(n - p.Order)   (clamped to 1 when Order >= n)
//	locale match           ->  2^(n + 1)
//	brand match            ->  2^n
//
// The clamp handles non-contiguous order values that exceed the predicate
// count; such predicates still contribute the minimum weight.
func Rank(c types.Candidate, brand, locale string, payload []byte) int {
	props := c.LookupProperties()
	n := len(props)

	score := 0
	for _, p := range props {
		value := readPath(payload, p.Name)
		if value == "" || !containsValue(p.Values, value) {
			return Disqualified
		}
		score += predicateWeight(n, p.Order)
	}

	if c.CandidateLocale() == locale {
		score += 1 << uint(n+1)
	}
	if c.CandidateBrand() == brand {
		score += 1 << uint(n)
	}
	return score
}

// SelectBest ranks every candidate and returns the one with the strictly
// greatest score. Ties resolve lexicographically by candidate id, which makes
// selection deterministic regardless of store iteration order. Returns false
// when the set is empty or every candidate is disqualified.
func SelectBest[T types.Candidate](candidates []T, brand, locale string, payload []byte) (T, bool) {
	var best T
	bestScore := Disqualified
	bestID := ""

	for _, c := range candidates {
		score := Rank(c, brand, locale, payload)
		if score == Disqualified {
			continue
		}
		if score > bestScore || (score == bestScore && c.CandidateID() < bestID) {
			best = c
			bestScore = score
			bestID = c.CandidateID()
		}
	}

	return best, bestScore > Disqualified
}

// predicateWeight is 2^(n-order), clamped to 1 for out-of-range orders.
func predicateWeight(n, order int) int {
	if order >= n {
		return 1
	}
	return 1 << uint(n-order)
}

// readPath resolves a lookup property path against the payload JSON and
// returns the value as a string, or "" when absent.
func readPath(payload []byte, path string) string {
	if len(payload) == 0 {
		return ""
	}
	return gjson.GetBytes(payload, rewritePath(path)).String()
}

// rewritePath maps a leading vehicleProfile segment to
// vehicleProfile.vehicleAttributes, a namespacing quirk of the payload schema.
func rewritePath(path string) string {
	if path == vehicleProfilePrefix {
		return vehicleProfilePrefix + ".vehicleAttributes"
	}
	if strings.HasPrefix(path, vehicleProfilePrefix+".") {
		return vehicleProfilePrefix + ".vehicleAttributes" + strings.TrimPrefix(path, vehicleProfilePrefix)
	}
	return path
}

func containsValue(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
