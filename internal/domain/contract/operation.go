package contract

import (
	"strconv"
	"strings"
)

// Protocol selects the matching strategy for an operation.
type Protocol string

const (
	ProtocolREST          Protocol = "rest"
	ProtocolRPC           Protocol = "rpc"
	ProtocolQueryLanguage Protocol = "query-language"
)

// ParseProtocol maps loose protocol tags onto the known set. Unknown or empty
// tags default to REST.
func ParseProtocol(s string) Protocol {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "rpc", "grpc", "connect", "twirp":
		return ProtocolRPC
	case "query-language", "graphql", "gql":
		return ProtocolQueryLanguage
	default:
		return ProtocolREST
	}
}

// OperationKind is the root type of a query-language operation.
type OperationKind string

const (
	KindQuery        OperationKind = "query"
	KindMutation     OperationKind = "mutation"
	KindSubscription OperationKind = "subscription"
)

// ParamLocation is where a declared parameter is carried.
type ParamLocation string

const (
	InQuery  ParamLocation = "query"
	InPath   ParamLocation = "path"
	InBody   ParamLocation = "body"
	InHeader ParamLocation = "header"
)

// ValueSchema constrains the value of a declared parameter.
type ValueSchema struct {
	Type      string
	Format    string
	Enum      []any
	Pattern   string
	Minimum   *float64
	Maximum   *float64
	MinLength *int
	MaxLength *int
}

// IsZero reports whether the schema carries no constraint at all.
func (s *ValueSchema) IsZero() bool {
	if s == nil {
		return true
	}
	return s.Type == "" && s.Format == "" && len(s.Enum) == 0 && s.Pattern == "" &&
		s.Minimum == nil && s.Maximum == nil && s.MinLength == nil && s.MaxLength == nil
}

// Parameter is one declared request parameter.
type Parameter struct {
	Name     string
	In       ParamLocation
	Required bool
	Schema   *ValueSchema
}

// Base holds the fields shared by every operation variant.
type Base struct {
	Method       string
	PathTemplate string

	// OutcomeStatusCode is the status code this record represents. Empty
	// means the contract declared no explicit outcome.
	OutcomeStatusCode string

	// ExpectedStatusCodes aggregates every outcome declared for Method+PathTemplate.
	ExpectedStatusCodes []string

	Parameters       []Parameter
	BodyContentTypes []string

	OperationID string
	Summary     string

	ContractName string
	SourceID     string
}

// Operation is a declared operation. The set of implementations is closed:
// RESTOperation, RPCOperation and QueryLanguageOperation.
type Operation interface {
	Protocol() Protocol
	Common() *Base
	isOperation()
}

// RESTOperation is identified structurally by method, path and status.
type RESTOperation struct {
	Base
}

// RPCOperation is identified by service and method name.
type RPCOperation struct {
	Base
	Service   string
	RPCMethod string

	// FullyQualified overrides the default Service.RPCMethod name when set.
	FullyQualified string
}

// QueryLanguageOperation is identified by the content of the posted document.
type QueryLanguageOperation struct {
	Base
	Kind  OperationKind
	Field string
}

func (o *RESTOperation) Protocol() Protocol          { return ProtocolREST }
func (o *RPCOperation) Protocol() Protocol           { return ProtocolRPC }
func (o *QueryLanguageOperation) Protocol() Protocol { return ProtocolQueryLanguage }

func (o *RESTOperation) Common() *Base          { return &o.Base }
func (o *RPCOperation) Common() *Base           { return &o.Base }
func (o *QueryLanguageOperation) Common() *Base { return &o.Base }

func (*RESTOperation) isOperation()          {}
func (*RPCOperation) isOperation()           {}
func (*QueryLanguageOperation) isOperation() {}

// FullName returns the fully qualified RPC name, e.g. "user.v1.UserService.GetUser".
func (o *RPCOperation) FullName() string {
	if o.FullyQualified != "" {
		return o.FullyQualified
	}
	if o.Service == "" {
		return o.RPCMethod
	}
	return o.Service + "." + o.RPCMethod
}

// DisplayMethod returns the upper-cased method, defaulting to GET.
func (b *Base) DisplayMethod() string {
	m := strings.ToUpper(strings.TrimSpace(b.Method))
	if m == "" {
		return "GET"
	}
	return m
}

// HasOutcome reports whether the record declares an explicit status code.
func (b *Base) HasOutcome() bool {
	return b.OutcomeStatusCode != ""
}

// GroupKey identifies the method+path group the record belongs to.
func (b *Base) GroupKey() string {
	return b.DisplayMethod() + " " + b.PathTemplate
}

// QueryParameters returns the declared parameters carried in the query string.
func (b *Base) QueryParameters() []Parameter {
	var out []Parameter
	for _, p := range b.Parameters {
		if p.In == InQuery {
			out = append(out, p)
		}
	}
	return out
}

// StatusNumber parses a status code. The second result is false for empty or
// non-numeric codes such as "default" or "2XX".
func StatusNumber(code string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(code))
	if err != nil {
		return 0, false
	}
	return n, true
}

// IsSuccess reports whether code is a numeric 2xx status.
func IsSuccess(code string) bool {
	n, ok := StatusNumber(code)
	return ok && n >= 200 && n < 300
}
