package services

import (
	"encoding/json"
	"io"
)

// decodeJSON decodes a single JSON document, keeping numbers as json.Number.
func decodeJSON(r io.Reader, v any) error {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	return dec.Decode(v)
}
