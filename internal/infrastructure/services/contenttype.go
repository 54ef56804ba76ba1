package services

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/sophialabs/apicover/internal/domain/exchange"
)

// InferContentType determines a body's content type from the explicit
// header, the collection's raw-language hint, or by sniffing the payload.
func InferContentType(explicit, language string, body []byte) string {
	if explicit != "" {
		return explicit
	}

	switch strings.ToLower(language) {
	case "json":
		return "application/json"
	case "xml":
		return "application/xml"
	case "html":
		return "text/html"
	case "text":
		return "text/plain"
	case "javascript":
		return "application/javascript"
	case "graphql":
		return "application/json"
	}

	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return ""
	}
	if (strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[")) && json.Valid([]byte(trimmed)) {
		return "application/json"
	}
	return http.DetectContentType(body)
}

// NormalizeBodies fills in missing body content types and returns how many
// were inferred.
func NormalizeBodies(exs []*exchange.Exchange) int {
	n := 0
	for _, ex := range exs {
		b := ex.Body
		if !b.Present() || b.ContentType != "" {
			continue
		}
		switch b.Mode {
		case exchange.BodyURLEncoded:
			b.ContentType = "application/x-www-form-urlencoded"
		case exchange.BodyFormData:
			b.ContentType = "multipart/form-data"
		default:
			b.ContentType = InferContentType("", b.Language, []byte(b.Raw))
		}
		if b.ContentType != "" {
			n++
		}
	}
	return n
}
