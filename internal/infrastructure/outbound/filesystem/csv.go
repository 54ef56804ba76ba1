package filesystem

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sophialabs/apicover/internal/domain/contract"
	"github.com/sophialabs/apicover/internal/infrastructure/ports"
)

var _ ports.ContractLoader = (*CSVContractLoader)(nil)

// CSVContractLoader reads flat contract inventories exported from
// spreadsheets. Columns are matched by header name; only method and path are
// required.
type CSVContractLoader struct{}

func (CSVContractLoader) Format() string { return "csv" }

func (CSVContractLoader) Detect(path string, _ []byte) bool {
	return HasExt(path, ".csv")
}

func (CSVContractLoader) Load(_ context.Context, src contract.Source) ([]contract.Operation, error) {
	f, err := os.Open(src.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{"method", "path"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("missing %q column", required)
		}
	}

	name := strings.TrimSuffix(filepath.Base(src.Path), filepath.Ext(src.Path))
	var ops []contract.Operation
	for line := 2; ; line++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		get := func(col string) string {
			i, ok := cols[col]
			if !ok || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}
		if get("method") == "" && get("path") == "" {
			continue
		}

		yo := yamlOperation{
			Method:    get("method"),
			Path:      get("path"),
			Protocol:  get("protocol"),
			Service:   get("service"),
			RPCMethod: get("rpc_method"),
			Kind:      get("kind"),
			Field:     get("field"),
		}
		base := contract.Base{
			Method:            strings.ToUpper(yo.Method),
			PathTemplate:      yo.Path,
			OutcomeStatusCode: get("status"),
			ContractName:      name,
			SourceID:          src.Path,
		}
		for _, q := range strings.Split(get("required_query"), ";") {
			if q = strings.TrimSpace(q); q != "" {
				base.Parameters = append(base.Parameters, contract.Parameter{Name: q, In: contract.InQuery, Required: true})
			}
		}
		if ok, _ := strconv.ParseBool(get("json_body")); ok {
			base.BodyContentTypes = []string{"application/json"}
		}
		ops = append(ops, toOperation(base, yo))
	}
	return ops, nil
}
