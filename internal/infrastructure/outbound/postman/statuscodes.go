package postman

import (
	"regexp"
	"sort"
	"strings"
)

var (
	statusPatterns = []*regexp.Regexp{
		regexp.MustCompile(`pm\.response\.to\.have\.status\(\s*(\d{3})\s*\)`),
		regexp.MustCompile(`pm\.expect\(\s*pm\.response\.code\s*\)[\w.]*\(\s*(\d{3})\s*\)`),
		regexp.MustCompile(`responseCode\.code\s*===?\s*(\d{3})`),
		regexp.MustCompile(`pm\.response\.code\s*===?\s*(\d{3})`),
	}
	oneOfPattern     = regexp.MustCompile(`pm\.response\.code\s*\)[\w.]*oneOf\(\s*\[([^\]]*)\]`)
	codePattern      = regexp.MustCompile(`\d{3}`)
	assertionPattern = regexp.MustCompile(`(?i)status(?:\s+code)?(?:\s+is)?\s*:?\s*(\d{3})\b`)
)

// TestedCodes extracts the status codes a test script asserts, in order of
// appearance and without duplicates.
func TestedCodes(script string) []string {
	type hit struct {
		at   int
		code string
	}
	var hits []hit
	for _, re := range statusPatterns {
		for _, m := range re.FindAllStringSubmatchIndex(script, -1) {
			hits = append(hits, hit{m[2], script[m[2]:m[3]]})
		}
	}
	for _, m := range oneOfPattern.FindAllStringSubmatchIndex(script, -1) {
		list := script[m[2]:m[3]]
		for _, cm := range codePattern.FindAllStringIndex(list, -1) {
			hits = append(hits, hit{m[2] + cm[0], list[cm[0]:cm[1]]})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].at < hits[j].at })

	seen := make(map[string]bool, len(hits))
	var codes []string
	for _, h := range hits {
		if !seen[h.code] {
			seen[h.code] = true
			codes = append(codes, h.code)
		}
	}
	return codes
}

// AssertionCode returns the status code named by an assertion such as
// "Status code is 200", or "".
func AssertionCode(name string) string {
	m := assertionPattern.FindStringSubmatch(strings.TrimSpace(name))
	if m == nil {
		return ""
	}
	return m[1]
}
