// Package querystring maps URL query parameters to filter input.
//
// Filter keys are carried in bracketed parameters. Every bracket segment
// is one path segment:
//
//	?filter[name]=~ada               -> {"name": "~ada"}
//	?filter[profile][age]=>=18       -> {"profile.age": ">=18"}
//	?filter[profile.0:age]=<18       -> {"profile.0:age": "<18"}
//	?filter[id][]=1&filter[id][]=2   -> {"id": ["1", "2"]}
//
// Relations come from the comma-separated include parameter.
package querystring

import (
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"
)

const (
	// FilterParam is the name of the bracketed filter parameter.
	FilterParam = "filter"

	// IncludeParam is the name of the relation include parameter.
	IncludeParam = "include"
)

// filterPattern matches query parameters like filter[a][b].
var filterPattern = regexp.MustCompile(`^` + FilterParam + `((?:\[[^\[\]]*\])+)$`)

// segmentPattern extracts the content of each bracket pair.
var segmentPattern = regexp.MustCompile(`\[([^\[\]]*)\]`)

// Decode extracts filter input from query values.
//
// A parameter that repeats, or whose last segment is empty ("[]"), becomes
// a list. Parameters with an empty segment elsewhere are ignored.
func Decode(values url.Values) map[string]any {
	result := make(map[string]any)

	params := make([]string, 0, len(values))
	for param := range values {
		params = append(params, param)
	}
	sort.Strings(params)

	for _, param := range params {
		vals := values[param]
		matches := filterPattern.FindStringSubmatch(param)
		if len(matches) != 2 || len(vals) == 0 {
			continue
		}

		var segments []string
		for _, m := range segmentPattern.FindAllStringSubmatch(matches[1], -1) {
			segments = append(segments, m[1])
		}

		list := false
		if segments[len(segments)-1] == "" {
			list = true
			segments = segments[:len(segments)-1]
		}
		if len(segments) == 0 || containsEmpty(segments) {
			continue
		}

		key := strings.Join(segments, ".")
		merge(result, key, vals, list)
	}

	return result
}

func merge(result map[string]any, key string, vals []string, list bool) {
	existing, ok := result[key]
	if !ok {
		if len(vals) == 1 && !list {
			result[key] = vals[0]
			return
		}
		result[key] = toList(vals)
		return
	}

	// filter[a.b] and filter[a][b] address the same key.
	switch prev := existing.(type) {
	case string:
		result[key] = append([]any{prev}, toList(vals)...)
	case []any:
		result[key] = append(prev, toList(vals)...)
	}
}

func toList(vals []string) []any {
	out := make([]any, len(vals))
	for i, v := range vals {
		out[i] = v
	}
	return out
}

func containsEmpty(segments []string) bool {
	for _, s := range segments {
		if s == "" {
			return true
		}
	}
	return false
}

// Relations parses the include parameter into a sorted, de-duplicated
// list of relation paths.
// Example: ?include=profile.address,roles returns ["profile.address", "roles"].
func Relations(values url.Values) []string {
	seen := make(map[string]bool)
	result := []string{}

	for _, include := range values[IncludeParam] {
		for _, part := range strings.Split(include, ",") {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" || seen[trimmed] {
				continue
			}
			seen[trimmed] = true
			result = append(result, trimmed)
		}
	}

	sort.Strings(result)
	return result
}

// FromRequest decodes the filter input and relation list of r.
func FromRequest(r *http.Request) (map[string]any, []string) {
	values := r.URL.Query()
	return Decode(values), Relations(values)
}

// Encode renders flat filter input and relations as query values. Dotted
// keys are split into bracket segments.
func Encode(filter map[string]string, relations []string) url.Values {
	values := url.Values{}
	for key, v := range filter {
		param := FilterParam + "[" + strings.ReplaceAll(key, ".", "][") + "]"
		values.Set(param, v)
	}
	if len(relations) > 0 {
		values.Set(IncludeParam, strings.Join(relations, ","))
	}
	return values
}
