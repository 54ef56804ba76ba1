package coverage

import (
	"strings"

	"github.com/sophialabs/apicover/internal/domain/contract"
	"github.com/sophialabs/apicover/internal/domain/exchange"
	"github.com/sophialabs/apicover/internal/domain/match"
)

// Assignment records how an outcome acquired its exchanges in smart mapping.
type Assignment string

const (
	Unassigned      Assignment = ""
	AssignedPrimary Assignment = "primary"
	AssignedByCode  Assignment = "explicit-code"
)

// MatchedExchange is an exchange attached to a coverage item, carrying the
// fields reports need.
type MatchedExchange struct {
	Name              string   `json:"name"`
	URL               string   `json:"url"`
	Method            string   `json:"method"`
	TestedStatusCodes []string `json:"tested_status_codes"`
	Evidence          string   `json:"evidence,omitempty"`
	Executed          bool     `json:"executed"`
	ResponseCode      int      `json:"response_code,omitempty"`
	Confidence        float64  `json:"confidence,omitempty"`
	Source            string   `json:"source,omitempty"`
}

// NearMiss is an exchange that came close to matching an unmatched item.
type NearMiss struct {
	Name        string  `json:"name"`
	URL         string  `json:"url"`
	Method      string  `json:"method"`
	Similarity  float64 `json:"similarity"`
	FailedStage string  `json:"failed_stage,omitempty"`
	Reason      string  `json:"reason,omitempty"`
}

// Item is the coverage verdict for one declared operation.
type Item struct {
	Operation contract.Operation
	Unmatched bool
	Matches   []MatchedExchange

	// Smart-mapping fields.
	IsPrimaryMatch  bool
	MatchConfidence float64
	Assignment      Assignment

	NearMisses []NearMiss

	compiled *match.CompiledOperation
}

func newMatchedExchange(ex *exchange.Exchange, confidence float64) MatchedExchange {
	me := MatchedExchange{
		Name:              ex.Name,
		URL:               ex.RawURL,
		Method:            ex.DisplayMethod(),
		TestedStatusCodes: append([]string(nil), ex.TestedStatusCodes...),
		Evidence:          evidence(ex),
		Executed:          ex.Executed,
		Confidence:        confidence,
		Source:            ex.SourceID,
	}
	if ex.Response != nil {
		me.ResponseCode = ex.Response.StatusCode
	}
	return me
}

func evidence(ex *exchange.Exchange) string {
	if s := strings.TrimSpace(ex.Script); s != "" {
		return s
	}
	if ex.Response == nil || len(ex.Response.Assertions) == 0 {
		return ""
	}
	lines := make([]string, 0, len(ex.Response.Assertions))
	for _, a := range ex.Response.Assertions {
		mark := "PASS"
		if !a.Passed {
			mark = "FAIL"
		}
		lines = append(lines, mark+" "+a.Name)
	}
	return strings.Join(lines, "\n")
}
