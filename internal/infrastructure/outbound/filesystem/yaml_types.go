package filesystem

// yamlContract is the deserialization target for native contract files.
type yamlContract struct {
	Name       string          `yaml:"name"`
	Operations []yamlOperation `yaml:"operations"`
}

type yamlOperation struct {
	Method      string `yaml:"method"`
	Path        string `yaml:"path"`
	Protocol    string `yaml:"protocol,omitempty"`
	Status      string `yaml:"status,omitempty"`
	OperationID string `yaml:"operation_id,omitempty"`
	Summary     string `yaml:"summary,omitempty"`

	// Responses expands into one record per listed status code.
	Responses []string `yaml:"responses,omitempty"`

	Parameters       []yamlParameter `yaml:"parameters,omitempty"`
	BodyContentTypes []string        `yaml:"body_content_types,omitempty"`

	Service   string `yaml:"service,omitempty"`
	RPCMethod string `yaml:"rpc_method,omitempty"`
	Kind      string `yaml:"kind,omitempty"`
	Field     string `yaml:"field,omitempty"`
}

type yamlParameter struct {
	Name     string      `yaml:"name"`
	In       string      `yaml:"in"`
	Required bool        `yaml:"required,omitempty"`
	Schema   *yamlSchema `yaml:"schema,omitempty"`
}

type yamlSchema struct {
	Type      string   `yaml:"type,omitempty"`
	Format    string   `yaml:"format,omitempty"`
	Enum      []any    `yaml:"enum,omitempty"`
	Pattern   string   `yaml:"pattern,omitempty"`
	Minimum   *float64 `yaml:"minimum,omitempty"`
	Maximum   *float64 `yaml:"maximum,omitempty"`
	MinLength *int     `yaml:"min_length,omitempty"`
	MaxLength *int     `yaml:"max_length,omitempty"`
}

// yamlExchangeFile is the deserialization target for native exchange files.
type yamlExchangeFile struct {
	Exchanges []yamlExchange `yaml:"exchanges"`
}

type yamlExchange struct {
	Name              string        `yaml:"name"`
	Method            string        `yaml:"method"`
	URL               string        `yaml:"url"`
	Query             []yamlPair    `yaml:"query,omitempty"`
	Body              *yamlBody     `yaml:"body,omitempty"`
	TestedStatusCodes []string      `yaml:"tested_status_codes,omitempty"`
	Script            string        `yaml:"script,omitempty"`
	Executed          bool          `yaml:"executed,omitempty"`
	Response          *yamlResponse `yaml:"response,omitempty"`
}

type yamlPair struct {
	Key   string `yaml:"key"`
	Value string `yaml:"value"`
}

type yamlBody struct {
	Mode        string     `yaml:"mode"`
	Raw         string     `yaml:"raw,omitempty"`
	ContentType string     `yaml:"content_type,omitempty"`
	Language    string     `yaml:"language,omitempty"`
	Form        []yamlPair `yaml:"form,omitempty"`
}

type yamlResponse struct {
	StatusCode int             `yaml:"status_code"`
	DurationMs int64           `yaml:"duration_ms,omitempty"`
	Assertions []yamlAssertion `yaml:"assertions,omitempty"`
}

type yamlAssertion struct {
	Name   string `yaml:"name"`
	Passed bool   `yaml:"passed"`
	Error  string `yaml:"error,omitempty"`
}
