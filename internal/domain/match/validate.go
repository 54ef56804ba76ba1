package match

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/url"
	"strings"

	"github.com/sophialabs/apicover/internal/domain/exchange"
)

// CheckQuery applies strict query-parameter rules. Required parameters must
// be present by key; declared value checks run on every present value, and a
// required parameter with only empty values fails when it carries a check.
func CheckQuery(rules []QueryRule, values url.Values) Verdict {
	for _, r := range rules {
		vals, present := values[r.Name]
		if r.Required && !present {
			return Fail(fmt.Sprintf("missing required query parameter %q", r.Name))
		}
		if r.Check == nil {
			continue
		}
		seen := false
		for _, v := range vals {
			if v == "" {
				continue
			}
			seen = true
			if err := r.Check(v); err != nil {
				return Fail(fmt.Sprintf("query parameter %q value %q: %v", r.Name, v, err))
			}
		}
		if !seen && r.Required {
			return Fail(fmt.Sprintf("required query parameter %q has no value", r.Name))
		}
	}
	return Pass
}

// DeclaresJSONBody reports whether application/json is among contentTypes.
func DeclaresJSONBody(contentTypes []string) bool {
	for _, ct := range contentTypes {
		mt, _, err := mime.ParseMediaType(ct)
		if err != nil {
			mt = strings.ToLower(strings.TrimSpace(ct))
		}
		if mt == "application/json" {
			return true
		}
	}
	return false
}

// CheckJSONBody applies strict body rules. Operations that do not declare a
// JSON body always pass.
func CheckJSONBody(contentTypes []string, body *exchange.Body) Verdict {
	if !DeclaresJSONBody(contentTypes) {
		return Pass
	}
	if !body.Present() || body.Empty() {
		return Fail("JSON body required but none sent")
	}
	if body.Mode != exchange.BodyRaw {
		return Fail(fmt.Sprintf("JSON body required but body is %s encoded", body.Mode))
	}
	if !json.Valid([]byte(strings.TrimSpace(body.Raw))) {
		return Fail("body is not well-formed JSON")
	}
	return Pass
}
