package match

import (
	"net/url"
	"strings"

	"github.com/sophialabs/apicover/internal/domain/exchange"
)

// Request is an exchange prepared for repeated evaluation: the cleaned path
// and query values are computed once and reused across every operation.
type Request struct {
	Exchange   *exchange.Exchange
	Method     string
	Path       string
	URLNoQuery string
	Query      url.Values
}

// NewRequest prepares an exchange for evaluation.
func NewRequest(ex *exchange.Exchange) *Request {
	noQuery := ex.RawURL
	if i := strings.IndexByte(noQuery, '?'); i >= 0 {
		noQuery = noQuery[:i]
	}
	return &Request{
		Exchange:   ex,
		Method:     ex.DisplayMethod(),
		Path:       CleanPath(ex.RawURL),
		URLNoQuery: noQuery,
		Query:      ex.QueryValues(),
	}
}

// NewRequests prepares a list of exchanges, preserving order.
func NewRequests(exs []*exchange.Exchange) []*Request {
	out := make([]*Request, 0, len(exs))
	for _, ex := range exs {
		if ex == nil {
			continue
		}
		out = append(out, NewRequest(ex))
	}
	return out
}
