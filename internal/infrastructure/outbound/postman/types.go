package postman

import (
	"encoding/json"
	"strings"
)

// collection is the subset of the Postman v2.x collection schema we read.
type collection struct {
	Info struct {
		Name   string `json:"name"`
		Schema string `json:"schema"`
	} `json:"info"`
	Item []item `json:"item"`
}

// item is either a folder (Item set) or a request.
type item struct {
	Name    string          `json:"name"`
	Item    []item          `json:"item"`
	Request json.RawMessage `json:"request"`
	Event   []event         `json:"event"`
}

type event struct {
	Listen string `json:"listen"`
	Script struct {
		Exec json.RawMessage `json:"exec"`
	} `json:"script"`
}

type request struct {
	Method string          `json:"method"`
	URL    json.RawMessage `json:"url"`
	Body   *body           `json:"body"`
}

type body struct {
	Mode       string     `json:"mode"`
	Raw        string     `json:"raw"`
	URLEncoded []kv       `json:"urlencoded"`
	FormData   []kv       `json:"formdata"`
	GraphQL    *gqlBody   `json:"graphql"`
	Options    *bodyOpts  `json:"options"`
	Disabled   bool       `json:"disabled"`
	File       *fileValue `json:"file"`
}

type bodyOpts struct {
	Raw struct {
		Language string `json:"language"`
	} `json:"raw"`
}

type gqlBody struct {
	Query     string `json:"query"`
	Variables string `json:"variables"`
}

type fileValue struct {
	Src string `json:"src"`
}

type kv struct {
	Key      string `json:"key"`
	Value    string `json:"value"`
	Disabled bool   `json:"disabled"`
}

// urlObject is the structured form of a request URL.
type urlObject struct {
	Raw      string          `json:"raw"`
	Protocol string          `json:"protocol"`
	Host     json.RawMessage `json:"host"`
	Port     string          `json:"port"`
	Path     json.RawMessage `json:"path"`
	Query    []kv            `json:"query"`
}

// decodeStrings accepts a JSON string or array of strings. Arrays are joined
// with sep.
func decodeStrings(raw json.RawMessage, sep string) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var parts []string
	if err := json.Unmarshal(raw, &parts); err == nil {
		return strings.Join(parts, sep)
	}
	// Path segments may be objects ({"type":"string","value":"x"}) in old exports.
	var objs []struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(raw, &objs); err == nil {
		out := make([]string, len(objs))
		for i, o := range objs {
			out[i] = o.Value
		}
		return strings.Join(out, sep)
	}
	return ""
}
