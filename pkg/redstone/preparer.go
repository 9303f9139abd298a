package redstone

import (
	"fmt"
	"strings"

	"github.com/njreid/redstone/pkg/expr"
)

// Prepare analyzes the parsed tree in place. Dynamic expressions and blocks
// outside each/with bodies and outside head get crumbs, exposed attributes
// get bindings and event attributes become callback installs. Results
// accumulate on ctx.
func Prepare(ctx *Context, nodes []Node) error {
	walkTags(nodes, func(t *Tag) {
		if t.ID != "" {
			ctx.ids.reserve(t.ID)
		}
	})
	pr := &preparer{ctx: ctx}
	return pr.prepareAll(nodes)
}

type preparer struct {
	ctx    *Context
	inLoop bool
	inHead bool
}

// crumbless reports whether nodes here render without a crumb. Head content
// stays outside the template, so its placeholders are left as written.
func (pr *preparer) crumbless(what string) bool {
	if pr.inHead {
		pr.ctx.Logger.Printf("Warning: %s in <head> is not rendered; move it into <body>", what)
		return true
	}
	return pr.inLoop
}

func (pr *preparer) prepareAll(nodes []Node) error {
	for _, n := range nodes {
		if err := pr.prepare(n); err != nil {
			return err
		}
	}
	return nil
}

func (pr *preparer) prepare(node Node) error {
	switch n := node.(type) {
	case Text:
		return nil
	case *Tag:
		return pr.prepareTag(n)
	case *DynamicExpression:
		return pr.prepareExpression(n)
	case *IfBlock:
		if err := pr.prepareAll(n.TrueBranch); err != nil {
			return err
		}
		if err := pr.prepareAll(n.FalseBranch); err != nil {
			return err
		}
		if pr.crumbless(fmt.Sprintf("{{#%s %s}}", n.Kind, n.Predicate)) {
			return nil
		}
		crumb, err := pr.newCrumb(n.Predicate)
		if err != nil {
			return fmt.Errorf("{{#%s %s}}: %w", n.Kind, n.Predicate, err)
		}
		n.Crumb = crumb
		return nil
	case *EachBlock:
		saved := pr.inLoop
		pr.inLoop = true
		err := pr.prepareAll(n.Body)
		pr.inLoop = saved
		if err != nil {
			return err
		}
		if pr.crumbless(fmt.Sprintf("{{#%s %s}}", n.Kind, n.Object)) {
			return nil
		}
		crumb, err := pr.newCrumb(n.Object)
		if err != nil {
			return fmt.Errorf("{{#%s %s}}: %w", n.Kind, n.Object, err)
		}
		n.Crumb = crumb
		return nil
	default:
		return fmt.Errorf("unknown node type: %T", node)
	}
}

func (pr *preparer) prepareExpression(n *DynamicExpression) error {
	switch {
	case strings.HasPrefix(n.Expression, "- "):
		n.IsComment, n.IsHiddenComment = true, true
		n.Expression = strings.TrimPrefix(n.Expression, "- ")
		return nil
	case strings.HasPrefix(n.Expression, "/ "):
		n.IsComment = true
		n.Expression = strings.TrimPrefix(n.Expression, "/ ")
		return nil
	}
	if pr.crumbless("{{" + n.Expression + "}}") {
		return nil
	}
	crumb, err := pr.newCrumb(n.Expression)
	if err != nil {
		return fmt.Errorf("{{%s}}: %w", n.Expression, err)
	}
	n.Crumb = crumb
	return nil
}

func (pr *preparer) prepareTag(t *Tag) error {
	if t.Name == "head" {
		saved := pr.inHead
		pr.inHead = true
		defer func() { pr.inHead = saved }()
	}
	for _, a := range t.Attributes {
		if strings.HasPrefix(a.Name, "@") {
			if err := pr.prepareCallback(t, a); err != nil {
				return err
			}
			continue
		}
		src, ok := exposedExpression(a.Value)
		if !ok || pr.crumbless(fmt.Sprintf("%s[%s]", t.Name, a.Name)) {
			continue
		}
		if err := pr.prepareExposed(a, src); err != nil {
			return fmt.Errorf("%s[%s]: %w", t.Name, a.Name, err)
		}
	}
	return pr.prepareAll(t.Content)
}

func (pr *preparer) prepareCallback(t *Tag, a *Attribute) error {
	event := strings.TrimPrefix(a.Name, "@")
	handler := strings.TrimSpace(a.Value)
	e, err := expr.Parse(handler)
	if err != nil {
		return fmt.Errorf("%s[%s]: %w: %v", t.Name, a.Name, ErrInvalidExpression, err)
	}
	if _, ok := e.(*expr.Identifier); !ok {
		return fmt.Errorf("%s[%s]: %w: handler must be a function name", t.Name, a.Name, ErrNonIdentifierCallTarget)
	}
	if pr.inLoop {
		pr.ctx.Logger.Printf("Warning: %s handler %q on <%s> inside a loop is bound to the first rendered element only", event, handler, t.Name)
	}
	if t.ID == "" {
		t.ID = pr.ctx.ids.next()
	}
	pr.ctx.Callbacks = appendUnique(pr.ctx.Callbacks, handler)
	pr.ctx.JS = append(pr.ctx.JS, fmt.Sprintf("$(%q).%s(REDSTONE.createCallback(%s));", "#"+t.ID, event, handler))
	return nil
}

func (pr *preparer) prepareExposed(a *Attribute, src string) error {
	e, err := expr.Parse(src)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidExpression, err)
	}
	id, ok := e.(*expr.Identifier)
	if !ok {
		return fmt.Errorf("%w: %q", ErrNonIdentifierExposedValue, src)
	}
	id.IsInCrumb = true
	ev := &ExposedValue{
		Crumb: &Crumb{
			ID:            pr.ctx.ids.next(),
			VariableNames: []string{id.Name},
			Expr:          id,
		},
		Attribute: a,
	}
	a.Exposed = ev
	pr.ctx.ExposedValues = append(pr.ctx.ExposedValues, ev)
	return nil
}

// exposedExpression reports whether an attribute value is exactly one
// {{...}} placeholder and returns its inner text.
func exposedExpression(value string) (string, bool) {
	v := strings.TrimSpace(value)
	if len(v) < 4 || !strings.HasPrefix(v, "{{") || !strings.HasSuffix(v, "}}") {
		return "", false
	}
	inner := v[2 : len(v)-2]
	if strings.Contains(inner, "{{") || strings.Contains(inner, "}}") {
		return "", false
	}
	return strings.TrimSpace(inner), true
}

func (pr *preparer) newCrumb(src string) (*Crumb, error) {
	e, err := expr.Parse(src)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidExpression, err)
	}
	vars, funcs, err := FindVarNames(e)
	if err != nil {
		return nil, err
	}
	pr.ctx.FunctionNames = appendUnique(pr.ctx.FunctionNames, funcs...)
	crumb := &Crumb{ID: pr.ctx.ids.next(), VariableNames: vars, Expr: e}
	pr.ctx.Crumbs = append(pr.ctx.Crumbs, crumb)
	return crumb, nil
}

// FindVarNames returns the variables e depends on and the functions it calls
// by bare name, each deduplicated in order of first appearance. Identifiers
// that are dependencies are marked IsInCrumb.
func FindVarNames(e expr.Expr) (vars, funcs []string, err error) {
	vc := &varCollector{}
	if err := vc.walk(e); err != nil {
		return nil, nil, err
	}
	if vc.vars == nil {
		vc.vars = []string{}
	}
	return vc.vars, vc.funcs, nil
}

type varCollector struct {
	vars  []string
	funcs []string
}

func (vc *varCollector) walk(e expr.Expr) error {
	switch n := e.(type) {
	case *expr.Literal:
		return nil
	case *expr.Identifier:
		n.IsInCrumb = true
		vc.vars = appendUnique(vc.vars, n.Name)
		return nil
	case *expr.Member:
		// Only the leftmost object of a chain is a variable; a plain
		// property name never is.
		if err := vc.walk(n.Object); err != nil {
			return err
		}
		if n.Computed {
			return vc.walk(n.Property)
		}
		return nil
	case *expr.Binary:
		return vc.walkAll(n.Left, n.Right)
	case *expr.Logical:
		return vc.walkAll(n.Left, n.Right)
	case *expr.Conditional:
		return vc.walkAll(n.Test, n.Consequent, n.Alternate)
	case *expr.Call:
		switch callee := n.Callee.(type) {
		case *expr.Identifier:
			vc.funcs = appendUnique(vc.funcs, callee.Name)
		case *expr.Member:
			if callee.Computed {
				return ErrComputedMemberCall
			}
			if err := vc.walk(callee.Object); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: %s", ErrNonIdentifierCallTarget, n.Callee.Type())
		}
		return vc.walkAll(n.Arguments...)
	}
	return fmt.Errorf("%w: %s", ErrUnsupportedExpression, e.Type())
}

func (vc *varCollector) walkAll(es ...expr.Expr) error {
	for _, e := range es {
		if err := vc.walk(e); err != nil {
			return err
		}
	}
	return nil
}

// walkTags visits every tag in the tree, including block branches.
func walkTags(nodes []Node, fn func(*Tag)) {
	for _, node := range nodes {
		switch n := node.(type) {
		case *Tag:
			fn(n)
			walkTags(n.Content, fn)
		case *IfBlock:
			walkTags(n.TrueBranch, fn)
			walkTags(n.FalseBranch, fn)
		case *EachBlock:
			walkTags(n.Body, fn)
		}
	}
}
