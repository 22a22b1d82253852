// Package query implements the Semantic Path Resolver, the Query Compiler,
// and the Query Executor: translating dot-paths into a structured
// intermediate representation and then into relational queries.
package query

// MaxHopDepth bounds the number of relationship hops a dot-path may
// traverse before compilation fails (spec.md §3 invariant).
const MaxHopDepth = 10

// FilterOperator enumerates the supported comparison operators (spec.md §4.B).
type FilterOperator string

const (
	OpEq        FilterOperator = "eq"
	OpNe        FilterOperator = "ne"
	OpGt        FilterOperator = "gt"
	OpGte       FilterOperator = "gte"
	OpLt        FilterOperator = "lt"
	OpLte       FilterOperator = "lte"
	OpIn        FilterOperator = "in"
	OpNotIn     FilterOperator = "not_in"
	OpLike      FilterOperator = "like"
	OpNotLike   FilterOperator = "not_like"
	OpBetween   FilterOperator = "between"
	OpIsNull    FilterOperator = "is_null"
	OpIsNotNull FilterOperator = "is_not_null"
)

var validOperators = map[FilterOperator]struct{}{
	OpEq: {}, OpNe: {}, OpGt: {}, OpGte: {}, OpLt: {}, OpLte: {},
	OpIn: {}, OpNotIn: {}, OpLike: {}, OpNotLike: {}, OpBetween: {},
	OpIsNull: {}, OpIsNotNull: {},
}

// IsValidOperator reports whether op is one of the enumerated IR operators.
func IsValidOperator(op FilterOperator) bool {
	_, ok := validOperators[op]
	return ok
}

// JoinType is INNER or LEFT.
type JoinType string

const (
	JoinInner JoinType = "INNER"
	JoinLeft  JoinType = "LEFT"
)

// SortDirection for an OrderBy clause.
type SortDirection string

const (
	SortAsc  SortDirection = "ASC"
	SortDesc SortDirection = "DESC"
)

// OrderByClause pairs a dot-path with a sort direction.
type OrderByClause struct {
	Path      string
	Direction SortDirection
}

// AggregateFunc enumerates the supported aggregate functions.
type AggregateFunc string

const (
	AggCount AggregateFunc = "count"
	AggSum   AggregateFunc = "sum"
	AggAvg   AggregateFunc = "avg"
	AggMax   AggregateFunc = "max"
	AggMin   AggregateFunc = "min"
)

// AggregateSpec requests a grouped aggregate instead of a flat row list.
type AggregateSpec struct {
	Function AggregateFunc
	Field    string // dot-path of the value being aggregated; ignored for count(*)
	Alias    string
	GroupBy  []string // dot-paths
}

// SemanticFilter is one filter clause expressed against a dot-path.
type SemanticFilter struct {
	Path     string
	Operator FilterOperator
	Value    any // scalar or []any
}

// SemanticQuery is the root-level, still-unresolved query an ExtractedQuery
// or a direct caller builds.
type SemanticQuery struct {
	RootEntity string
	Fields     []string // ordered list of dot-paths
	Filters    []SemanticFilter
	OrderBy    []OrderByClause
	Limit      int
	Offset     int
	Distinct   bool
	Aggregate  *AggregateSpec
}

// PathSegment is one token of a resolved dot-path.
type PathSegment struct {
	Token         string
	IsRelation    bool // true if this segment advanced via a relationship
	SourceEntity  string
	TargetEntity  string // entity reached after this segment
}

// JoinClause is one relational join required to reach a path's target.
type JoinClause struct {
	SourceEntity  string // entity the join starts from
	TargetEntity  string
	RelationAttr  string // relation attribute name on the join's source entity
	ForeignKeyCol string
	Collection    bool // true for one_to_many/many_to_many: existential semantics
	JoinType      JoinType
	PathPrefix    []string // relation attrs traversed so far, used for de-dup
	Filters       map[string]any
}

// Key returns the de-duplication key for this join: (target entity, path prefix).
func (j JoinClause) Key() string {
	key := j.TargetEntity + "|"
	for _, p := range j.PathPrefix {
		key += p + "."
	}
	return key
}

// ResolvedPath is the output of resolving one dot-path against the registry.
type ResolvedPath struct {
	Original    string
	Segments    []PathSegment
	Joins       []JoinClause
	FinalEntity string
	FinalField  string
}

// StructuredQuery is the IR the Query Executor consumes.
type StructuredQuery struct {
	RootEntity string
	Fields     []string // dot-paths, order preserved from SemanticQuery.Fields
	Joins      []JoinClause
	Filters    []SemanticFilter // flattened, dotted form
	OrderBy    []OrderByClause
	Limit      int
	Offset     int
	Distinct   bool
	Aggregate  *AggregateSpec
}
