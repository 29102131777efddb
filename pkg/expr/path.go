package expr

import "strings"

// AttributePath is anything that can be broken down into attribute path segments.
type AttributePath interface {
	Segments() []string
}

// Name is a single top-level attribute name.
type Name string

// Segments implements AttributePath.
func (n Name) Segments() []string {
	return []string{string(n)}
}

// Path is an ordered list of segments addressing a nested attribute.
// A segment may carry a list index suffix, e.g. "tags[0]".
type Path []string

// Segments implements AttributePath.
func (p Path) Segments() []string {
	return p
}

// String renders the path in document notation.
func (p Path) String() string {
	return strings.Join(p, ".")
}

// ParsePath splits a document path such as "address.lines[1].city" into segments.
// Empty segments are dropped.
func ParsePath(s string) Path {
	raw := strings.Split(s, ".")
	path := make(Path, 0, len(raw))
	for _, seg := range raw {
		if seg = strings.TrimSpace(seg); seg != "" {
			path = append(path, seg)
		}
	}
	return path
}

// splitIndex separates a segment into its attribute name and list index suffix.
func splitIndex(segment string) (name, index string) {
	if i := strings.IndexByte(segment, '['); i > 0 && strings.HasSuffix(segment, "]") {
		return segment[:i], segment[i:]
	}
	return segment, ""
}

func leaf(path AttributePath) string {
	segments := path.Segments()
	if len(segments) == 0 {
		return ""
	}
	name, _ := splitIndex(segments[len(segments)-1])
	return name
}
