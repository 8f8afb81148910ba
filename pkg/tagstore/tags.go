package tagstore

import "sort"

// Contains reports whether tags holds t (exact, case-sensitive match).
func Contains(tags []string, t string) bool {
	for _, have := range tags {
		if have == t {
			return true
		}
	}
	return false
}

// Append returns tags with t added at the end. It reports false, leaving
// tags unchanged, for an empty tag or a duplicate.
func Append(tags []string, t string) ([]string, bool) {
	if t == "" || Contains(tags, t) {
		return tags, false
	}
	out := make([]string, 0, len(tags)+1)
	out = append(out, tags...)
	return append(out, t), true
}

// Without returns a copy of tags with every occurrence of t removed.
func Without(tags []string, t string) []string {
	out := make([]string, 0, len(tags))
	for _, have := range tags {
		if have != t {
			out = append(out, have)
		}
	}
	return out
}

// Normalize drops empty tags and repeated tags, keeping first occurrences.
func Normalize(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t != "" && !Contains(out, t) {
			out = append(out, t)
		}
	}
	return out
}

// Distinct returns every tag used in m, sorted in byte order.
func Distinct(m Map) []string {
	seen := make(map[string]struct{})
	for _, tags := range m {
		for _, t := range tags {
			seen[t] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Counts returns how many items carry each tag.
func Counts(m Map) map[string]int {
	out := make(map[string]int)
	for _, tags := range m {
		for _, t := range tags {
			out[t]++
		}
	}
	return out
}
