// Package planner lowers a clause AST (pkg/ast) into an ordered list of
// physical operators, tracking a variable's kind (node, relationship, path,
// or scalar) as it goes and rejecting any lowering that would bind a
// variable to two incompatible kinds.
//
// Planning is pure: it never touches a graph.Engine. The operator list it
// produces is handed to the optimizer for rewriting and then to the
// executor for evaluation.
package planner

import "github.com/corvid-graph/corvid/pkg/ast"

// Operator is implemented by every physical operator kind (spec §4.4).
type Operator interface {
	operatorNode()
}

// Direction is an alias of ast.Direction (the same type, not a copy),
// re-exported with its constants so operator code can name directions
// through the planner package.
type Direction = ast.Direction

const (
	DirOut  = ast.DirOut
	DirIn   = ast.DirIn
	DirBoth = ast.DirBoth
)

type ScanNodes struct {
	Var       string
	Labels    []string
	Predicate ast.Expression
	PathVar   string
}

type OptionalScanNodes struct {
	Var       string
	Labels    []string
	Predicate ast.Expression
	PathVar   string
}

// AggregationHint, when attached to an ExpandEdges (OptionalExpandEdges
// carries no hint), tells the executor to fold the aggregate incrementally during traversal
// rather than materializing one row per edge (spec §4.5 pass 5).
type AggregationHint struct {
	Func           string // COUNT, SUM, MIN, MAX
	Expr           ast.Expression
	GroupByAliases []string
	ResultAlias    string
}

type ExpandEdges struct {
	SrcVar    string
	EdgeVar   string
	DstVar    string
	Types     []string
	Direction Direction
	Predicate ast.Expression
	PathVar   string
	AggHint   *AggregationHint
}

type OptionalExpandEdges struct {
	SrcVar    string
	EdgeVar   string
	DstVar    string
	Types     []string
	Direction Direction
	Predicate ast.Expression
	PathVar   string
}

type ExpandVariableLength struct {
	SrcVar    string
	EdgeVar   string
	DstVar    string
	Types     []string
	Direction Direction
	MinHops   int
	MaxHops   int
	Predicate ast.Expression
	PathVar   string
}

// ExpandMultiHop fuses a chain of fixed-length hops into one operator; used
// only when the chain carries a path variable and no segment is
// variable-length (spec §4.4.1).
type ExpandMultiHop struct {
	SrcVar  string
	Hops    []FixedHop
	PathVar string
}

type FixedHop struct {
	EdgeVar   string
	DstVar    string
	Types     []string
	Direction Direction
	Predicate ast.Expression
}

type Filter struct {
	Predicate ast.Expression
}

// ProjectItem with Wildcard set stands for `*`: the executor expands it to
// every user-visible binding in the row at execution time.
type ProjectItem struct {
	Expr     ast.Expression
	Alias    string
	Wildcard bool
}

type Project struct {
	Items []ProjectItem
}

type With struct {
	Items    []ProjectItem
	Distinct bool
	Where    ast.Expression
	Sort     []SortItem
	Skip     ast.Expression
	Limit    ast.Expression
}

type SortItem struct {
	Expr       ast.Expression
	Descending bool
}

// Sort's ReturnItems, when non-nil, are evaluated into the row context
// before sorting so ORDER BY can reference RETURN aliases (spec §4.7).
// Aggregate-function aliases are excluded; those are resolved by a
// preceding Aggregate operator instead.
type Sort struct {
	Items       []SortItem
	ReturnItems []ProjectItem
}

type Skip struct{ N ast.Expression }
type Limit struct{ N ast.Expression }
type Distinct struct{}

type AggregateExpr struct {
	Func     string
	Arg      ast.Expression // nil for COUNT(*)
	Distinct bool
	Alias    string
}

type Aggregate struct {
	GroupBy     []ProjectItem
	Aggregates  []AggregateExpr
	ReturnItems []ProjectItem
}

type Unwind struct {
	Expr ast.Expression
	Var  string
}

type CreatePattern struct {
	Nodes []CreateNode
	Rels  []CreateRel
}

type CreateNode struct {
	Var        string
	Labels     []string
	Properties map[string]ast.Expression
}

type CreateRel struct {
	Var        string
	SrcVar     string
	DstVar     string
	Type       string
	Direction  Direction
	Properties map[string]ast.Expression
}

type Create struct {
	Patterns []CreatePattern
}

type Merge struct {
	Pattern  CreatePattern
	MatchVar string // the single node/rel variable MERGE probes for, used to decide create-vs-match
	OnCreate []ast.SetItem
	OnMatch  []ast.SetItem
}

type Set struct {
	Items []ast.SetItem
}

type Remove struct {
	Items []ast.RemoveItem
}

type Delete struct {
	Vars   []string
	Detach bool
}

type Union struct {
	Branches [][]Operator
	All      bool
}

type Subquery struct {
	Pipeline       []Operator
	ExpressionType ast.SubqueryKind
	ResultVar      string // synthetic variable the surrounding evaluator reads
}

func (ScanNodes) operatorNode()            {}
func (OptionalScanNodes) operatorNode()    {}
func (ExpandEdges) operatorNode()          {}
func (OptionalExpandEdges) operatorNode()  {}
func (ExpandVariableLength) operatorNode() {}
func (ExpandMultiHop) operatorNode()       {}
func (Filter) operatorNode()               {}
func (Project) operatorNode()              {}
func (With) operatorNode()                 {}
func (Sort) operatorNode()                 {}
func (Skip) operatorNode()                 {}
func (Limit) operatorNode()                {}
func (Distinct) operatorNode()             {}
func (Aggregate) operatorNode()            {}
func (Unwind) operatorNode()               {}
func (Create) operatorNode()               {}
func (Merge) operatorNode()                {}
func (Set) operatorNode()                  {}
func (Remove) operatorNode()               {}
func (Delete) operatorNode()               {}
func (Union) operatorNode()                {}
func (Subquery) operatorNode()             {}
