package expr

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dop251/goja/ast"
	"github.com/dop251/goja/file"
	"github.com/dop251/goja/parser"
	"github.com/dop251/goja/token"
)

// ErrSyntax is matched by every error Parse returns.
var ErrSyntax = errors.New("expression syntax error")

// Error is a syntax error at a byte offset of the expression source.
type Error struct {
	Pos int
	Msg string
}

func (e *Error) Error() string { return fmt.Sprintf("offset %d: %s", e.Pos, e.Msg) }

func (e *Error) Unwrap() error { return ErrSyntax }

func errorf(pos int, format string, args ...any) *Error {
	return &Error{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

var unaryOperators = map[string]bool{
	"!": true, "-": true, "+": true, "~": true,
	"typeof": true, "void": true, "delete": true,
}

// Parse parses a single expression. The source is read as a JavaScript
// program that must hold exactly one expression statement, whose tree is then
// narrowed to the node types of this package.
func Parse(src string) (Expr, error) {
	trimmed := strings.TrimSpace(src)
	if trimmed == "" {
		return nil, errorf(0, "empty expression")
	}
	if strings.HasSuffix(trimmed, ";") {
		return nil, errorf(strings.LastIndex(src, ";"), "unexpected \";\" after expression")
	}

	prog, err := parser.ParseFile(nil, "", src, 0)
	if err != nil {
		return nil, syntaxError(src, err)
	}
	if len(prog.Body) != 1 {
		pos := 0
		if len(prog.Body) > 1 {
			pos = offset(prog.Body[1].Idx0())
		}
		return nil, errorf(pos, "expected a single expression")
	}
	stmt, ok := prog.Body[0].(*ast.ExpressionStatement)
	if !ok {
		return nil, errorf(offset(prog.Body[0].Idx0()), "expected an expression, found a statement")
	}
	return convert(stmt.Expression)
}

// MustParse is like Parse but panics on error. Intended for tests and
// package-level fixtures.
func MustParse(src string) Expr {
	e, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return e
}

// offset turns a 1-based file index into a byte offset.
func offset(idx file.Idx) int {
	if idx < 1 {
		return 0
	}
	return int(idx) - 1
}

func syntaxError(src string, err error) error {
	var list parser.ErrorList
	if errors.As(err, &list) && len(list) > 0 {
		first := list[0]
		return errorf(lineColumn(src, first.Position.Line, first.Position.Column), "%s", first.Message)
	}
	return errorf(0, "%v", err)
}

func lineColumn(src string, line, column int) int {
	pos := 0
	for l := 1; l < line; l++ {
		i := strings.IndexByte(src[pos:], '\n')
		if i < 0 {
			break
		}
		pos += i + 1
	}
	if column > 0 {
		pos += column - 1
	}
	return min(pos, len(src))
}

func convert(n ast.Expression) (Expr, error) {
	switch n := n.(type) {
	case *ast.Identifier:
		return &Identifier{Name: string(n.Name)}, nil
	case *ast.StringLiteral:
		return &Literal{Value: string(n.Value), Raw: n.Literal}, nil
	case *ast.NumberLiteral:
		switch v := n.Value.(type) {
		case int64:
			return &Literal{Value: float64(v), Raw: n.Literal}, nil
		case float64:
			return &Literal{Value: v, Raw: n.Literal}, nil
		}
		return nil, errorf(offset(n.Idx0()), "unsupported number %s", n.Literal)
	case *ast.BooleanLiteral:
		return &Literal{Value: n.Value, Raw: n.Literal}, nil
	case *ast.NullLiteral:
		return &Literal{Value: nil, Raw: "null"}, nil
	case *ast.DotExpression:
		obj, err := convert(n.Left)
		if err != nil {
			return nil, err
		}
		return &Member{Object: obj, Property: &Identifier{Name: string(n.Identifier.Name)}}, nil
	case *ast.BracketExpression:
		obj, err := convert(n.Left)
		if err != nil {
			return nil, err
		}
		prop, err := convert(n.Member)
		if err != nil {
			return nil, err
		}
		return &Member{Object: obj, Property: prop, Computed: true}, nil
	case *ast.BinaryExpression:
		left, err := convert(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := convert(n.Right)
		if err != nil {
			return nil, err
		}
		switch op := n.Operator.String(); {
		case n.Operator == token.LOGICAL_AND || n.Operator == token.LOGICAL_OR:
			return &Logical{Operator: op, Left: left, Right: right}, nil
		case BinaryOperators[op]:
			return &Binary{Operator: op, Left: left, Right: right}, nil
		default:
			return nil, errorf(offset(n.Idx0()), "unsupported operator %q", op)
		}
	case *ast.ConditionalExpression:
		test, err := convert(n.Test)
		if err != nil {
			return nil, err
		}
		cons, err := convert(n.Consequent)
		if err != nil {
			return nil, err
		}
		alt, err := convert(n.Alternate)
		if err != nil {
			return nil, err
		}
		return &Conditional{Test: test, Consequent: cons, Alternate: alt}, nil
	case *ast.CallExpression:
		callee, err := convert(n.Callee)
		if err != nil {
			return nil, err
		}
		args := make([]Expr, 0, len(n.ArgumentList))
		for _, a := range n.ArgumentList {
			arg, err := convert(a)
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
		}
		return &Call{Callee: callee, Arguments: args}, nil
	case *ast.UnaryExpression:
		op := n.Operator.String()
		if n.Postfix || !unaryOperators[op] {
			return nil, errorf(offset(n.Idx0()), "unsupported operator %q", op)
		}
		arg, err := convert(n.Operand)
		if err != nil {
			return nil, err
		}
		return &Unary{Operator: op, Argument: arg}, nil
	}
	return nil, errorf(offset(n.Idx0()), "unsupported %s", describe(n))
}

func describe(n ast.Expression) string {
	switch n.(type) {
	case *ast.AssignExpression:
		return "assignment"
	case *ast.FunctionLiteral, *ast.ArrowFunctionLiteral:
		return "function"
	case *ast.ObjectLiteral:
		return "object literal"
	case *ast.ArrayLiteral:
		return "array literal"
	case *ast.TemplateLiteral:
		return "template literal"
	case *ast.RegExpLiteral:
		return "regular expression"
	case *ast.NewExpression:
		return "new expression"
	case *ast.ThisExpression:
		return "keyword \"this\""
	case *ast.SequenceExpression:
		return "comma expression"
	}
	return fmt.Sprintf("expression %T", n)
}
