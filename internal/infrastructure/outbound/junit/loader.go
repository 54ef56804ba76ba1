// Package junit reads JUnit XML run reports as execution evidence.
package junit

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"

	"github.com/sophialabs/apicover/internal/domain/exchange"
	"github.com/sophialabs/apicover/internal/infrastructure/outbound/filesystem"
	"github.com/sophialabs/apicover/internal/infrastructure/outbound/postman"
	"github.com/sophialabs/apicover/internal/infrastructure/ports"
)

var _ ports.ExchangeLoader = (*Loader)(nil)

// Loader yields evidence only. Each testsuite names the request it ran and
// each testcase is one assertion against it.
type Loader struct{}

func (Loader) Format() string { return "junit" }

func (Loader) Detect(path string, head []byte) bool {
	return filesystem.HasExt(path, ".xml") && bytes.Contains(head, []byte("<testsuite"))
}

func (Loader) Load(_ context.Context, path string) (*exchange.Batch, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	doc, err := xmlquery.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse JUnit report: %w", err)
	}

	batch := &exchange.Batch{}
	for _, suite := range xmlquery.Find(doc, "//testsuite") {
		name := strings.TrimSpace(suite.SelectAttr("name"))
		if name == "" {
			continue
		}
		ev := exchange.Evidence{RequestName: name, DurationMs: seconds(suite.SelectAttr("time"))}
		for _, tc := range xmlquery.Find(suite, "testcase") {
			a := exchange.Assertion{Name: tc.SelectAttr("name"), Passed: true}
			if fail := failure(tc); fail != nil {
				a.Passed = false
				a.Error = fail.SelectAttr("message")
				if a.Error == "" {
					a.Error = strings.TrimSpace(fail.InnerText())
				}
			}
			if xmlquery.FindOne(tc, "skipped") != nil {
				continue
			}
			ev.Assertions = append(ev.Assertions, a)
			if code := postman.AssertionCode(a.Name); code != "" {
				ev.StatusCodes = append(ev.StatusCodes, code)
			}
		}
		batch.Evidence = append(batch.Evidence, ev)
	}
	return batch, nil
}

func failure(tc *xmlquery.Node) *xmlquery.Node {
	if n := xmlquery.FindOne(tc, "failure"); n != nil {
		return n
	}
	return xmlquery.FindOne(tc, "error")
}

func seconds(s string) int64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return int64(math.Round(f * 1000))
}
