package postman

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/PaesslerAG/jsonpath"

	"github.com/sophialabs/apicover/internal/domain/exchange"
	"github.com/sophialabs/apicover/internal/infrastructure/outbound/filesystem"
	"github.com/sophialabs/apicover/internal/infrastructure/ports"
)

const executionsPath = "$.run.executions"

var _ ports.ExchangeLoader = (*NewmanLoader)(nil)

// NewmanLoader reads Newman JSON run reports. Every execution becomes an
// executed exchange.
type NewmanLoader struct{}

type execution struct {
	Item struct {
		Name string `json:"name"`
	} `json:"item"`
	Request  request `json:"request"`
	Response *struct {
		Code         int   `json:"code"`
		ResponseTime int64 `json:"responseTime"`
		ResponseSize int   `json:"responseSize"`
	} `json:"response"`
	Assertions []struct {
		Assertion string `json:"assertion"`
		Skipped   bool   `json:"skipped"`
		Error     *struct {
			Message string `json:"message"`
		} `json:"error"`
	} `json:"assertions"`
}

func (NewmanLoader) Format() string { return "newman" }

func (NewmanLoader) Detect(path string, head []byte) bool {
	return filesystem.HasExt(path, ".json") && isNewmanReport(head)
}

// isNewmanReport recognizes a report by its top-level collection wrapper; a
// collection export never has that key.
func isNewmanReport(head []byte) bool {
	trimmed := bytes.TrimLeft(head, " \t\r\n{")
	return bytes.HasPrefix(trimmed, []byte(`"collection"`)) ||
		(bytes.Contains(head, []byte(`"run"`)) && bytes.Contains(head, []byte(`"executions"`)))
}

func (NewmanLoader) Load(_ context.Context, path string) (*exchange.Batch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse run report: %w", err)
	}
	found, err := jsonpath.Get(executionsPath, doc)
	if err != nil {
		return nil, fmt.Errorf("run report has no %s: %w", executionsPath, err)
	}
	raw, err := json.Marshal(found)
	if err != nil {
		return nil, err
	}
	var executions []execution
	if err := json.Unmarshal(raw, &executions); err != nil {
		return nil, fmt.Errorf("failed to decode executions: %w", err)
	}

	batch := &exchange.Batch{Exchanges: make([]*exchange.Exchange, 0, len(executions))}
	for _, e := range executions {
		batch.Exchanges = append(batch.Exchanges, fromExecution(e, path))
	}
	return batch, nil
}

func fromExecution(e execution, source string) *exchange.Exchange {
	ex := &exchange.Exchange{
		Name:     e.Item.Name,
		Method:   strings.ToUpper(e.Request.Method),
		Body:     toBody(e.Request.Body),
		Executed: true,
		SourceID: source,
	}
	ex.RawURL, ex.Query = parseURL(e.Request.URL)

	resp := &exchange.Response{AllPassed: true}
	if e.Response != nil {
		resp.StatusCode = e.Response.Code
		resp.DurationMs = e.Response.ResponseTime
		resp.ResponseSize = e.Response.ResponseSize
		if e.Response.Code > 0 {
			ex.AddTestedCode(strconv.Itoa(e.Response.Code))
		}
	}
	for _, a := range e.Assertions {
		if a.Skipped {
			continue
		}
		as := exchange.Assertion{Name: a.Assertion, Passed: a.Error == nil}
		if a.Error != nil {
			as.Error = a.Error.Message
		}
		resp.Assertions = append(resp.Assertions, as)
		resp.AllPassed = resp.AllPassed && as.Passed
		ex.AddTestedCode(AssertionCode(a.Assertion))
	}
	ex.Response = resp
	return ex
}
