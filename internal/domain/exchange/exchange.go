package exchange

import (
	"net/url"
	"strings"
)

// BodyMode is the encoding an exchange body was authored or sent with.
type BodyMode string

const (
	BodyNone       BodyMode = ""
	BodyRaw        BodyMode = "raw"
	BodyURLEncoded BodyMode = "urlencoded"
	BodyFormData   BodyMode = "formdata"
	BodyFile       BodyMode = "file"
)

// Pair is a key/value pair. Keys may repeat.
type Pair struct {
	Key   string
	Value string
}

// Body is a request payload and its declared encoding.
type Body struct {
	Mode        BodyMode
	Raw         string
	ContentType string
	// Language is the authoring tool's hint for raw bodies, e.g. "json".
	Language string
	Form     []Pair
}

// Present reports whether the exchange carries any body at all.
func (b *Body) Present() bool {
	return b != nil && b.Mode != BodyNone
}

// Empty reports whether a present body has no content.
func (b *Body) Empty() bool {
	if b == nil {
		return true
	}
	return strings.TrimSpace(b.Raw) == "" && len(b.Form) == 0
}

// IsForm reports whether the body uses a form encoding.
func (b *Body) IsForm() bool {
	return b != nil && (b.Mode == BodyURLEncoded || b.Mode == BodyFormData)
}

// Assertion is one verification performed against an exchange.
type Assertion struct {
	Name   string
	Passed bool
	Error  string
}

// Response is the evidence captured when an exchange was actually executed.
type Response struct {
	StatusCode   int
	DurationMs   int64
	Assertions   []Assertion
	AllPassed    bool
	ResponseSize int
}

// Exchange is one observed or authored request.
type Exchange struct {
	Name   string
	Method string
	RawURL string
	Query  []Pair
	Body   *Body

	// TestedStatusCodes lists codes this exchange asserted or received.
	TestedStatusCodes []string

	// Script holds verification script text, kept for traceability only.
	Script string

	Executed bool
	Response *Response

	SourceID string
}

// QueryValues returns the exchange's query parameters. When none were
// captured explicitly they are parsed from RawURL; unparseable query strings
// yield whatever pairs could be recovered.
func (e *Exchange) QueryValues() url.Values {
	values := url.Values{}
	if len(e.Query) > 0 {
		for _, p := range e.Query {
			values.Add(p.Key, p.Value)
		}
		return values
	}
	i := strings.IndexByte(e.RawURL, '?')
	if i < 0 {
		return values
	}
	raw := e.RawURL[i+1:]
	if j := strings.IndexByte(raw, '#'); j >= 0 {
		raw = raw[:j]
	}
	parsed, _ := url.ParseQuery(raw)
	for k, vs := range parsed {
		values[k] = vs
	}
	return values
}

// TestsCode reports whether code is among the tested status codes.
func (e *Exchange) TestsCode(code string) bool {
	if code == "" {
		return false
	}
	for _, c := range e.TestedStatusCodes {
		if strings.TrimSpace(c) == code {
			return true
		}
	}
	return false
}

// AddTestedCode appends code unless already present.
func (e *Exchange) AddTestedCode(code string) {
	code = strings.TrimSpace(code)
	if code == "" || e.TestsCode(code) {
		return
	}
	e.TestedStatusCodes = append(e.TestedStatusCodes, code)
}

// DisplayMethod returns the upper-cased method, defaulting to GET.
func (e *Exchange) DisplayMethod() string {
	m := strings.ToUpper(strings.TrimSpace(e.Method))
	if m == "" {
		return "GET"
	}
	return m
}
