package match

import (
	"regexp"
	"strings"
)

var (
	schemeHostRe      = regexp.MustCompile(`^(?:[A-Za-z][A-Za-z0-9+.\-]*|\{\{[^}]*\}\})://[^/?#]*`)
	placeholderHostRe = regexp.MustCompile(`^\{\{[^}]*\}\}[^/?#]*`)
)

// CleanPath reduces a raw URL to its path: scheme, host (including unresolved
// {{variable}} schemes and hosts), query string, fragment and one trailing
// slash are removed.
// The empty path is normalized to "/".
func CleanPath(raw string) string {
	p := strings.TrimSpace(raw)
	p = schemeHostRe.ReplaceAllString(p, "")
	p = placeholderHostRe.ReplaceAllString(p, "")
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if p != "" && !strings.HasPrefix(p, "/") {
		first, rest, found := strings.Cut(p, "/")
		switch {
		case looksLikeHost(first) && found:
			p = "/" + rest
		case looksLikeHost(first):
			p = ""
		default:
			p = "/" + p
		}
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = p[:len(p)-1]
	}
	if p == "" {
		return "/"
	}
	return p
}

func looksLikeHost(s string) bool {
	return s == "localhost" || strings.ContainsAny(s, ".:") || strings.HasPrefix(s, "{{")
}

func splitSegments(cleaned string) []string {
	trimmed := strings.TrimPrefix(cleaned, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

type segmentKind int

const (
	segLiteral segmentKind = iota
	segParam
	segMixed
)

type segment struct {
	kind    segmentKind
	literal string
	name    string
	re      *regexp.Regexp
}

func (s segment) matches(value string) bool {
	switch s.kind {
	case segParam:
		return value != ""
	case segMixed:
		return s.re.MatchString(value)
	default:
		return s.literal == value
	}
}

// PathTemplate is a declared path compiled into a per-segment matcher.
// It is immutable after CompileTemplate and safe for concurrent use.
type PathTemplate struct {
	raw      string
	segments []segment
	params   []string
}

var paramRe = regexp.MustCompile(`\{[^{}/]+\}`)

// CompileTemplate compiles a path template. Segments of the form {name} (or
// :name) match exactly one non-empty path segment; braces embedded in a
// segment, e.g. {file}.json, are matched by an anchored per-segment pattern.
func CompileTemplate(raw string) *PathTemplate {
	t := &PathTemplate{raw: raw}
	for _, part := range splitSegments(CleanPath(raw)) {
		t.segments = append(t.segments, t.compileSegment(part))
	}
	return t
}

func (t *PathTemplate) compileSegment(part string) segment {
	if strings.HasPrefix(part, ":") && len(part) > 1 {
		t.params = append(t.params, part[1:])
		return segment{kind: segParam, name: part[1:]}
	}
	locs := paramRe.FindAllStringIndex(part, -1)
	if len(locs) == 0 {
		return segment{kind: segLiteral, literal: part}
	}
	if len(locs) == 1 && locs[0][0] == 0 && locs[0][1] == len(part) {
		name := part[1 : len(part)-1]
		t.params = append(t.params, name)
		return segment{kind: segParam, name: name}
	}

	var b strings.Builder
	b.WriteString("^")
	last := 0
	for _, loc := range locs {
		b.WriteString(regexp.QuoteMeta(part[last:loc[0]]))
		b.WriteString(`[^/]+`)
		t.params = append(t.params, part[loc[0]+1:loc[1]-1])
		last = loc[1]
	}
	b.WriteString(regexp.QuoteMeta(part[last:]))
	b.WriteString("$")
	return segment{kind: segMixed, re: regexp.MustCompile(b.String())}
}

// Raw returns the template as declared.
func (t *PathTemplate) Raw() string { return t.raw }

// Params returns placeholder names in declaration order.
func (t *PathTemplate) Params() []string { return t.params }

// Match reports whether the raw URL's path corresponds to the template.
func (t *PathTemplate) Match(rawURL string) bool {
	return t.matchSegments(splitSegments(CleanPath(rawURL)))
}

func (t *PathTemplate) matchSegments(parts []string) bool {
	if len(parts) != len(t.segments) {
		return false
	}
	for i, seg := range t.segments {
		if !seg.matches(parts[i]) {
			return false
		}
	}
	return true
}

// Similarity grades how close rawURL's path is to the template, in [0,1].
// Differing segment counts score 0; an exact Match always scores 1.
func (t *PathTemplate) Similarity(rawURL string) float64 {
	parts := splitSegments(CleanPath(rawURL))
	if t.matchSegments(parts) {
		return 1.0
	}
	if len(parts) != len(t.segments) || len(parts) == 0 {
		return 0
	}

	total := 0.0
	for i, seg := range t.segments {
		switch seg.kind {
		case segLiteral:
			if seg.literal == parts[i] {
				total += 1.0
			}
		default:
			if looksNumeric(parts[i]) {
				total += 0.9
			} else {
				total += 0.8
			}
		}
	}
	return total / float64(len(parts))
}

func looksNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
