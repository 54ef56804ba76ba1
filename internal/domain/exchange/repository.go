package exchange

import (
	"context"
	"errors"
	"strconv"
)

// ErrUnknownFormat indicates an exchange source whose format could not be detected.
var ErrUnknownFormat = errors.New("unknown exchange format")

// Source points at one collection or run report.
type Source struct {
	Path string
	// Format overrides detection: postman, newman, junit, yaml.
	Format string
}

// Repository is the port for loading observed exchanges.
type Repository interface {
	LoadAll(ctx context.Context) ([]*Exchange, error)
}

// Batch is what one source yields: exchanges, evidence for exchanges
// defined elsewhere, or both.
type Batch struct {
	Exchanges []*Exchange
	Evidence  []Evidence
}

// Evidence is execution data that arrives separately from the request it
// belongs to, keyed by request name (e.g. JUnit run reports).
type Evidence struct {
	RequestName string
	StatusCodes []string
	Assertions  []Assertion
	DurationMs  int64
}

// ApplyEvidence merges evidence onto exchanges sharing the same name and
// returns how many exchanges were updated. Evidence for unknown names is ignored.
func ApplyEvidence(exchanges []*Exchange, evidence []Evidence) int {
	byName := make(map[string][]*Exchange, len(exchanges))
	for _, e := range exchanges {
		byName[e.Name] = append(byName[e.Name], e)
	}

	updated := 0
	for _, ev := range evidence {
		targets := byName[ev.RequestName]
		for _, e := range targets {
			e.Executed = true
			for _, code := range ev.StatusCodes {
				e.AddTestedCode(code)
			}
			if e.Response == nil {
				e.Response = &Response{}
			}
			e.Response.Assertions = append(e.Response.Assertions, ev.Assertions...)
			e.Response.DurationMs += ev.DurationMs
			e.Response.AllPassed = allPassed(e.Response.Assertions)
			if e.Response.StatusCode == 0 && len(ev.StatusCodes) == 1 {
				if n, err := strconv.Atoi(ev.StatusCodes[0]); err == nil {
					e.Response.StatusCode = n
				}
			}
			updated++
		}
	}
	return updated
}

func allPassed(as []Assertion) bool {
	for _, a := range as {
		if !a.Passed {
			return false
		}
	}
	return true
}
