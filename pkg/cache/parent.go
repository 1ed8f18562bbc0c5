package cache

import (
	"net/url"
	"strings"
)

const (
	// TrendingsPath is the paginated resource whose pages share a parent URL.
	TrendingsPath = "/v2/trendings"

	// PageParam is the query parameter selecting a page of TrendingsPath.
	PageParam = "page"
)

// Normalizer derives the parent URL of a paginated request.
type Normalizer struct {
	// PaginatedPath is the only path whose URLs get a distinct parent
	PaginatedPath string

	// PageParam is stripped from the query of PaginatedPath URLs
	PageParam string
}

// DefaultNormalizer returns a Normalizer for the trendings endpoint.
func DefaultNormalizer() Normalizer {
	return Normalizer{
		PaginatedPath: TrendingsPath,
		PageParam:     PageParam,
	}
}

// ParentURL normalizes rawURL with DefaultNormalizer.
func ParentURL(rawURL string) string {
	return DefaultNormalizer().ParentURL(rawURL)
}

// ParentURL returns rawURL without its page parameter.
//
// Only URLs on PaginatedPath with a non-empty query are rewritten; anything
// else, including input that does not parse, is returned unchanged. The
// remaining parameters keep their original encoding. Parameter names keep
// the order of their first occurrence and repeated values of one name are
// grouped together, so the result is stable under repeated normalization.
//
// Example:
//
//	https://api.com/v2/trendings?topic=general&page=2&language=en
//	-> https://api.com/v2/trendings?topic=general&language=en
func (n Normalizer) ParentURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	if u.Path != n.PaginatedPath || strings.TrimSpace(u.RawQuery) == "" {
		return rawURL
	}

	rest, fragment, hasFragment := strings.Cut(rawURL, "#")
	base, _, _ := strings.Cut(rest, "?")

	var b strings.Builder
	b.WriteString(base)
	if query := n.stripPage(u.RawQuery); query != "" {
		b.WriteByte('?')
		b.WriteString(query)
	}
	if hasFragment {
		b.WriteByte('#')
		b.WriteString(fragment)
	}
	return b.String()
}

// stripPage drops every PageParam pair from rawQuery and regroups the rest.
func (n Normalizer) stripPage(rawQuery string) string {
	var names []string
	groups := make(map[string][]string)

	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}
		name := queryName(pair)
		if name == n.PageParam {
			continue
		}
		if _, seen := groups[name]; !seen {
			names = append(names, name)
		}
		groups[name] = append(groups[name], pair)
	}

	pairs := make([]string, 0, len(groups))
	for _, name := range names {
		pairs = append(pairs, groups[name]...)
	}
	return strings.Join(pairs, "&")
}

// queryName returns the decoded name of a raw name=value pair.
func queryName(pair string) string {
	name, _, _ := strings.Cut(pair, "=")
	if decoded, err := url.QueryUnescape(name); err == nil {
		return decoded
	}
	return name
}
