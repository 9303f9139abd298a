package redstone

import "github.com/njreid/redstone/pkg/expr"

// NodeType identifies the type of a redstone node.
type NodeType int

const (
	NodeText NodeType = iota
	NodeTag
	NodeExpression
	NodeIf    // if, unless
	NodeEach  // each, with
)

// Node represents a node in the redstone document tree.
type Node interface {
	Type() NodeType
}

// Text is literal text content.
type Text string

func (Text) Type() NodeType { return NodeText }

// Tag represents an HTML element.
type Tag struct {
	Name       string
	ID         string
	Classes    []string
	Attributes []*Attribute // source order
	Content    []Node
}

func (*Tag) Type() NodeType { return NodeTag }

// Attr returns the attribute with the given name, or nil.
func (t *Tag) Attr(name string) *Attribute {
	for _, a := range t.Attributes {
		if a.Name == name {
			return a
		}
	}
	return nil
}

// Attribute is a name/value pair. Exposed is set when the value is a single
// {{identifier}} bound two-way to a client variable.
type Attribute struct {
	Name    string
	Value   string
	Exposed *ExposedValue
}

// DynamicExpression is a {{...}} occurrence in text content.
type DynamicExpression struct {
	Expression string
	Crumb      *Crumb // nil inside each/with bodies and for comments
	IsComment  bool
	// IsHiddenComment marks a `- ` annotation that renders nothing. A visible
	// `/ ` annotation renders as an HTML comment.
	IsHiddenComment bool
}

func (*DynamicExpression) Type() NodeType { return NodeExpression }

// BlockKind names a dynamic block keyword.
type BlockKind string

const (
	BlockIf     BlockKind = "if"
	BlockUnless BlockKind = "unless"
	BlockEach   BlockKind = "each"
	BlockWith   BlockKind = "with"
)

// IfBlock is an if or unless block with an optional else branch.
type IfBlock struct {
	Kind        BlockKind
	Predicate   string
	Crumb       *Crumb
	TrueBranch  []Node
	FalseBranch []Node
	HasElse     bool
}

func (*IfBlock) Type() NodeType { return NodeIf }

// EachBlock is an each or with block rendered once per item (or once in the
// object's scope for with).
type EachBlock struct {
	Kind   BlockKind
	Object string
	Crumb  *Crumb
	Body   []Node
}

func (*EachBlock) Type() NodeType { return NodeEach }

// Crumb is a dynamic expression site the client runtime recomputes whenever
// one of its variables changes.
type Crumb struct {
	ID            string
	VariableNames []string
	Expr          expr.Expr
}

// ExposedValue is an attribute bound two-way to a client variable.
type ExposedValue struct {
	Crumb     *Crumb
	Attribute *Attribute
}

// VariableName is the name of the bound client variable.
func (e *ExposedValue) VariableName() string {
	if id, ok := e.Crumb.Expr.(*expr.Identifier); ok {
		return id.Name
	}
	return ""
}
