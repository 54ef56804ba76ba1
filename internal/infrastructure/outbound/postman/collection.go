// Package postman loads Postman collections and Newman run reports.
package postman

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/sophialabs/apicover/internal/domain/exchange"
	"github.com/sophialabs/apicover/internal/infrastructure/outbound/filesystem"
	"github.com/sophialabs/apicover/internal/infrastructure/ports"
)

// FolderSeparator joins folder names into a request's display name.
const FolderSeparator = " / "

var _ ports.ExchangeLoader = (*CollectionLoader)(nil)

// CollectionLoader reads Postman collection v2.0/v2.1 exports. Requests are
// authored, not executed: tested codes come from the test scripts.
type CollectionLoader struct{}

func (CollectionLoader) Format() string { return "postman" }

func (CollectionLoader) Detect(path string, head []byte) bool {
	if !filesystem.HasExt(path, ".json") || isNewmanReport(head) {
		return false
	}
	return bytes.Contains(head, []byte("schema.getpostman.com")) ||
		(bytes.Contains(head, []byte(`"info"`)) && bytes.Contains(head, []byte(`"item"`)))
}

func (CollectionLoader) Load(_ context.Context, path string) (*exchange.Batch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c collection
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse collection: %w", err)
	}

	batch := &exchange.Batch{}
	flatten(c.Item, nil, nil, func(ex *exchange.Exchange) {
		ex.SourceID = path
		batch.Exchanges = append(batch.Exchanges, ex)
	})
	return batch, nil
}

// flatten walks folders depth-first. Folder-level test scripts apply to every
// request beneath them.
func flatten(items []item, prefix []string, inherited []string, emit func(*exchange.Exchange)) {
	for _, it := range items {
		scripts := append(append([]string(nil), inherited...), testScripts(it.Event)...)
		if len(it.Item) > 0 || len(it.Request) == 0 {
			flatten(it.Item, append(append([]string(nil), prefix...), it.Name), scripts, emit)
			continue
		}
		ex := toExchange(it.Request)
		ex.Name = strings.Join(append(append([]string(nil), prefix...), it.Name), FolderSeparator)
		ex.Script = strings.Join(scripts, "\n")
		ex.TestedStatusCodes = TestedCodes(ex.Script)
		emit(ex)
	}
}

func testScripts(events []event) []string {
	var out []string
	for _, ev := range events {
		if ev.Listen != "test" {
			continue
		}
		if s := strings.TrimSpace(decodeStrings(ev.Script.Exec, "\n")); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// toExchange converts a request that may be a bare URL string.
func toExchange(raw json.RawMessage) *exchange.Exchange {
	var asURL string
	if err := json.Unmarshal(raw, &asURL); err == nil {
		return &exchange.Exchange{Method: "GET", RawURL: asURL}
	}

	var req request
	_ = json.Unmarshal(raw, &req)
	ex := &exchange.Exchange{Method: strings.ToUpper(req.Method)}
	ex.RawURL, ex.Query = parseURL(req.URL)
	ex.Body = toBody(req.Body)
	return ex
}

func parseURL(raw json.RawMessage) (string, []exchange.Pair) {
	if len(raw) == 0 {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}

	var u urlObject
	if err := json.Unmarshal(raw, &u); err != nil {
		return "", nil
	}
	var query []exchange.Pair
	for _, q := range u.Query {
		if !q.Disabled {
			query = append(query, exchange.Pair{Key: q.Key, Value: q.Value})
		}
	}
	if u.Raw != "" {
		return u.Raw, query
	}

	built := decodeStrings(u.Host, ".")
	if u.Port != "" {
		built += ":" + u.Port
	}
	if u.Protocol != "" {
		built = u.Protocol + "://" + built
	}
	if p := decodeStrings(u.Path, "/"); p != "" {
		built += "/" + strings.TrimPrefix(p, "/")
	}
	return built, query
}

func toBody(b *body) *exchange.Body {
	if b == nil || b.Disabled || b.Mode == "" {
		return nil
	}
	switch b.Mode {
	case "raw":
		out := &exchange.Body{Mode: exchange.BodyRaw, Raw: b.Raw}
		if b.Options != nil {
			out.Language = b.Options.Raw.Language
		}
		return out
	case "urlencoded":
		return &exchange.Body{Mode: exchange.BodyURLEncoded, Form: enabledPairs(b.URLEncoded)}
	case "formdata":
		return &exchange.Body{Mode: exchange.BodyFormData, Form: enabledPairs(b.FormData)}
	case "graphql":
		return graphQLBody(b.GraphQL)
	case "file":
		out := &exchange.Body{Mode: exchange.BodyFile}
		if b.File != nil {
			out.Raw = b.File.Src
		}
		return out
	default:
		return &exchange.Body{Mode: exchange.BodyRaw, Raw: b.Raw}
	}
}

// graphQLBody re-encodes a GraphQL body the way the client sends it on the
// wire: a JSON object with query and variables.
func graphQLBody(g *gqlBody) *exchange.Body {
	payload := map[string]any{"query": ""}
	if g != nil {
		payload["query"] = g.Query
		if v := strings.TrimSpace(g.Variables); v != "" {
			var vars any
			if json.Unmarshal([]byte(v), &vars) == nil {
				payload["variables"] = vars
			}
		}
	}
	raw, _ := json.Marshal(payload)
	return &exchange.Body{
		Mode:        exchange.BodyRaw,
		Raw:         string(raw),
		ContentType: "application/json",
		Language:    "json",
	}
}

func enabledPairs(in []kv) []exchange.Pair {
	var out []exchange.Pair
	for _, p := range in {
		if !p.Disabled {
			out = append(out, exchange.Pair{Key: p.Key, Value: p.Value})
		}
	}
	return out
}
