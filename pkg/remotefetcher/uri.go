package remotefetcher

import (
	"net/url"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// Attribute is sent to the configuration server as a query parameter.
// An empty Value means the attribute is unset and it is not sent.
type Attribute struct {
	Name  string
	Value string
}

// Attributes keeps the order in which parameters are appended.
type Attributes []Attribute

// AttributesFromMap converts m into Attributes sorted by name.
func AttributesFromMap(m map[string]string) Attributes {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	attrs := make(Attributes, 0, len(names))
	for _, name := range names {
		attrs = append(attrs, Attribute{Name: name, Value: m[name]})
	}
	return attrs
}

// EffectiveRequestURI appends one query parameter per set attribute to base.
// The query already present on base is kept as is and comes first.
func EffectiveRequestURI(base string, attrs Attributes) (*url.URL, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing url %q", base)
	}

	var query strings.Builder
	for _, attr := range attrs {
		if attr.Name == "" || attr.Value == "" {
			continue
		}
		if query.Len() > 0 {
			query.WriteByte('&')
		}
		query.WriteString(url.QueryEscape(attr.Name))
		query.WriteByte('=')
		query.WriteString(url.QueryEscape(attr.Value))
	}

	if query.Len() == 0 {
		return u, nil
	}
	if u.RawQuery == "" {
		u.RawQuery = query.String()
	} else {
		u.RawQuery = u.RawQuery + "&" + query.String()
	}
	return u, nil
}
