package api

import (
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"
)

// QueryParam is an already-paired query string entry.
type QueryParam struct {
	Key   string
	Value string
}

// BuildQueryString renders a query mapping as "?k1=v1&k2=v2".
//
// Entries with an empty key or a nil value are skipped without consuming a
// separator. Slice and array values expand into repeated key=element pairs
// in element order. Keys are emitted in sorted order. The result is empty
// when no entry qualifies.
func BuildQueryString(queries map[string]any) string {
	if len(queries) == 0 {
		return ""
	}
	keys := make([]string, 0, len(queries))
	for k := range queries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, key := range keys {
		if key == "" {
			continue
		}
		value, ok := derefValue(queries[key])
		if !ok {
			continue
		}
		if elems, isList := listElements(value); isList {
			for _, elem := range elems {
				writePair(&b, key, formatQueryValue(elem))
			}
			continue
		}
		writePair(&b, key, formatQueryValue(value))
	}
	return b.String()
}

// BuildQueryParams renders pre-paired parameters in the order given.
// Entries with an empty key or an empty value are skipped.
func BuildQueryParams(params ...QueryParam) string {
	var b strings.Builder
	for _, p := range params {
		if p.Key == "" || p.Value == "" {
			continue
		}
		writePair(&b, p.Key, p.Value)
	}
	return b.String()
}

// JoinURL joins base and path with a single slash, removing at most one
// trailing slash from base and one leading slash from path.
func JoinURL(base, path string) string {
	base = strings.TrimSuffix(base, "/")
	path = strings.TrimPrefix(path, "/")
	return base + "/" + path
}

// ResolveURL returns target unchanged when it is an absolute http(s) URL and
// joins it to base otherwise.
func ResolveURL(base, target string) string {
	if IsAbsoluteURL(target) {
		return target
	}
	return JoinURL(base, target)
}

// IsAbsoluteURL reports whether target starts with an http or https scheme.
func IsAbsoluteURL(target string) bool {
	lower := strings.ToLower(target)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// appendQuery adds an encoded query ("?a=b") to rawURL, continuing an
// existing query string when rawURL already carries one.
func appendQuery(rawURL, query string) string {
	if query == "" {
		return rawURL
	}
	if strings.Contains(rawURL, "?") {
		return rawURL + "&" + strings.TrimPrefix(query, "?")
	}
	return rawURL + query
}

func writePair(b *strings.Builder, key, value string) {
	if b.Len() == 0 {
		b.WriteByte('?')
	} else {
		b.WriteByte('&')
	}
	b.WriteString(url.QueryEscape(key))
	b.WriteByte('=')
	b.WriteString(url.QueryEscape(value))
}

// derefValue unwraps pointers and interfaces; ok is false for null values.
func derefValue(v any) (any, bool) {
	if v == nil {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}
	if rv.Kind() == reflect.Slice && rv.IsNil() {
		return nil, false
	}
	return rv.Interface(), true
}

func listElements(v any) ([]any, bool) {
	if _, isBytes := v.([]byte); isBytes {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		elem, ok := derefValue(rv.Index(i).Interface())
		if !ok {
			continue
		}
		out = append(out, elem)
	}
	return out, true
}

func formatQueryValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case time.Time:
		return t.Format(time.RFC3339)
	case fmt.Stringer:
		return t.String()
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(rv.Uint(), 10)
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 64)
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool())
	case reflect.String:
		return rv.String()
	}
	return fmt.Sprint(v)
}
