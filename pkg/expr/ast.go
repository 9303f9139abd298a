// Package expr parses the small JavaScript expression subset that redstone
// templates may embed between {{ and }}, and represents it as an ESTree-shaped
// tree that serializes to the same JSON the browser runtime walks.
package expr

// Expr is a node of the expression tree. The set of implementations is closed.
type Expr interface {
	// Type returns the ESTree node type, e.g. "Identifier".
	Type() string
	isExpr()
}

// ESTree node type names.
const (
	TypeLiteral     = "Literal"
	TypeIdentifier  = "Identifier"
	TypeMember      = "MemberExpression"
	TypeBinary      = "BinaryExpression"
	TypeLogical     = "LogicalExpression"
	TypeConditional = "ConditionalExpression"
	TypeCall        = "CallExpression"
	TypeUnary       = "UnaryExpression"
)

// Literal is a string, number (float64), boolean or null (nil) constant.
type Literal struct {
	Value any
	Raw   string
}

// Identifier is a variable reference. IsInCrumb is set by dependency analysis
// and tells the runtime evaluator the name resolves to a tracked variable.
type Identifier struct {
	Name      string
	IsInCrumb bool
}

// Member is `object.property` or, when Computed, `object[property]`.
type Member struct {
	Object   Expr
	Property Expr
	Computed bool
}

// Binary is an arithmetic, comparison, bitwise or membership operation.
type Binary struct {
	Operator string
	Left     Expr
	Right    Expr
}

// Logical is `&&` or `||`.
type Logical struct {
	Operator string
	Left     Expr
	Right    Expr
}

// Conditional is `test ? consequent : alternate`.
type Conditional struct {
	Test       Expr
	Consequent Expr
	Alternate  Expr
}

// Call is a function or method invocation.
type Call struct {
	Callee    Expr
	Arguments []Expr
}

// Unary is a prefix operation. The parser accepts it so that analysis can
// report it by name; it is not part of the evaluable subset.
type Unary struct {
	Operator string
	Argument Expr
}

func (*Literal) Type() string     { return TypeLiteral }
func (*Identifier) Type() string  { return TypeIdentifier }
func (*Member) Type() string      { return TypeMember }
func (*Binary) Type() string      { return TypeBinary }
func (*Logical) Type() string     { return TypeLogical }
func (*Conditional) Type() string { return TypeConditional }
func (*Call) Type() string        { return TypeCall }
func (*Unary) Type() string       { return TypeUnary }

func (*Literal) isExpr()     {}
func (*Identifier) isExpr()  {}
func (*Member) isExpr()      {}
func (*Binary) isExpr()      {}
func (*Logical) isExpr()     {}
func (*Conditional) isExpr() {}
func (*Call) isExpr()        {}
func (*Unary) isExpr()       {}

// BinaryOperators is the set of operators a Binary node may carry.
var BinaryOperators = map[string]bool{
	"==": true, "===": true, "!=": true, "!==": true,
	"<": true, "<=": true, ">": true, ">=": true,
	"<<": true, ">>": true, ">>>": true,
	"+": true, "-": true, "*": true, "/": true, "%": true,
	"|": true, "^": true, "&": true,
	"in": true, "instanceof": true,
}
