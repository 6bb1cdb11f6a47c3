package algebra

import (
	"sort"
	"strings"

	"github.com/Johniel/gorellycore/config"
)

// dedupOrder performs stable, first-wins deduplication (spec.md
// §4.7's dedup(attrs)).
func dedupOrder(attrs []string) []string {
	seen := make(map[string]bool, len(attrs))
	out := make([]string, 0, len(attrs))
	for _, a := range attrs {
		if seen[a] {
			continue
		}
		seen[a] = true
		out = append(out, a)
	}
	return out
}

// Subset reports whether every element of subset appears in set,
// after lexicographic sort of both sides (spec.md §4.7). Duplicates
// in either side are tolerated: the check is purely "does this
// element occur", mirroring original_source's AK_rel_eq_is_subset,
// which sorts both token arrays and walks them rather than building a
// map-based set.
func Subset(set, subset []string) bool {
	s := append([]string(nil), set...)
	sub := append([]string(nil), subset...)
	sort.Strings(s)
	sort.Strings(sub)

	for _, want := range sub {
		found := false
		for _, have := range s {
			if have == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// CollectConditionAttributes returns the set of escape-delimited
// attribute names referenced by a postfix condition (spec.md §4.7).
func CollectConditionAttributes(cond string) []string {
	var out []string
	rest := cond
	for {
		start := strings.Index(rest, config.AttrEscape)
		if start < 0 {
			break
		}
		rest = rest[start+len(config.AttrEscape):]
		end := strings.Index(rest, config.AttrEscape)
		if end < 0 {
			break
		}
		out = append(out, rest[:end])
		rest = rest[end+len(config.AttrEscape):]
	}
	return dedupOrder(out)
}

// Commutes reports whether every attribute referenced by cond is
// present in the projection's attribute set — the commute test used
// to decide whether a selection may be pushed past a projection
// (spec.md §4.7, Rule 1).
func Commutes(projAttrs []string, cond string) bool {
	return Subset(projAttrs, CollectConditionAttributes(cond))
}

// FilterToSchema preserves only those attrs present in schema,
// ordered as schema lists them (spec.md §4.7).
func FilterToSchema(attrs []string, schema []string) []string {
	want := make(map[string]bool, len(attrs))
	for _, a := range attrs {
		want[a] = true
	}
	out := make([]string, 0, len(attrs))
	for _, s := range schema {
		if want[s] {
			out = append(out, s)
		}
	}
	return out
}

// union returns the deduplicated, stable-order concatenation of a and b.
func union(a, b []string) []string {
	return dedupOrder(append(append([]string(nil), a...), b...))
}
