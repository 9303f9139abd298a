package redstone

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

var voidTags = map[string]bool{
	"img":   true,
	"br":    true,
	"hr":    true,
	"input": true,
	"link":  true,
	"embed": true,
	"meta":  true,
}

// srcContentTags take a single content child as their src attribute.
var srcContentTags = map[string]bool{
	"img":    true,
	"iframe": true,
}

// GenerateHTML renders a prepared tree as an HTML document. Nested content
// is indented with one tab per level.
func GenerateHTML(ctx *Context, nodes []Node) (string, error) {
	g := &generator{selfClosing: ctx.Options.SelfClosingBackslash}
	body, err := g.list(nodes, 0)
	if err != nil {
		return "", err
	}
	return "<!DOCTYPE html>\n<html>\n" + body + "\n</html>", nil
}

type generator struct {
	selfClosing bool
}

func (g *generator) list(nodes []Node, indent int) (string, error) {
	parts := make([]string, 0, len(nodes))
	for _, n := range nodes {
		s, err := g.node(n, indent)
		if err != nil {
			return "", err
		}
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n"), nil
}

func (g *generator) node(node Node, indent int) (string, error) {
	pad := strings.Repeat("\t", indent)
	switch n := node.(type) {
	case Text:
		return pad + string(n), nil
	case *Tag:
		return g.tag(n, indent)
	case *DynamicExpression:
		s := placeholder(n)
		if s == "" {
			return "", nil
		}
		return pad + s, nil
	case *IfBlock:
		return g.block(string(n.Kind), crumbRef(n.Crumb, n.Predicate), n.TrueBranch, n.FalseBranch, n.HasElse, indent)
	case *EachBlock:
		return g.block(string(n.Kind), crumbRef(n.Crumb, n.Object), n.Body, nil, false, indent)
	default:
		return "", fmt.Errorf("unknown node type: %T", node)
	}
}

// placeholder renders a dynamic expression inline.
func placeholder(n *DynamicExpression) string {
	switch {
	case n.IsHiddenComment:
		return ""
	case n.IsComment:
		return "<!-- " + n.Expression + " -->"
	}
	return "{{" + crumbRef(n.Crumb, n.Expression) + "}}"
}

// crumbRef is the crumb id, or the raw expression for crumb-less nodes.
func crumbRef(c *Crumb, raw string) string {
	if c != nil {
		return c.ID
	}
	return strings.TrimSpace(raw)
}

func (g *generator) block(keyword, ref string, body, alt []Node, hasElse bool, indent int) (string, error) {
	pad := strings.Repeat("\t", indent)
	var sb strings.Builder
	sb.WriteString(pad + "{{#" + keyword + " " + ref + "}}")

	inner, err := g.list(body, indent+1)
	if err != nil {
		return "", err
	}
	if inner != "" {
		sb.WriteString("\n" + inner)
	}
	if hasElse {
		sb.WriteString("\n" + pad + "{{else}}")
		inner, err := g.list(alt, indent+1)
		if err != nil {
			return "", err
		}
		if inner != "" {
			sb.WriteString("\n" + inner)
		}
	}
	sb.WriteString("\n" + pad + "{{/" + keyword + "}}")
	return sb.String(), nil
}

func (g *generator) tag(t *Tag, indent int) (string, error) {
	pad := strings.Repeat("\t", indent)
	attrs := t.Attributes
	content := t.Content

	if srcContentTags[t.Name] && len(content) == 1 {
		var src string
		switch c := content[0].(type) {
		case Text:
			src = string(c)
		case *DynamicExpression:
			src = placeholder(c)
		}
		if src != "" {
			if t.Attr("src") != nil {
				return "", fmt.Errorf("%w: <%s> has both a src attribute and content", ErrDuplicateAttribute, t.Name)
			}
			attrs = append(append([]*Attribute{}, attrs...), &Attribute{Name: "src", Value: src})
			content = nil
		}
	}

	var sb strings.Builder
	sb.WriteString(pad + "<" + t.Name)
	if t.ID != "" {
		sb.WriteString(` id="` + html.EscapeString(t.ID) + `"`)
	}
	if len(t.Classes) > 0 {
		sb.WriteString(` class="` + html.EscapeString(strings.Join(t.Classes, " ")) + `"`)
	}
	for _, a := range attrs {
		if strings.HasPrefix(a.Name, "@") {
			continue
		}
		switch {
		case a.Exposed != nil:
			sb.WriteString(" " + a.Name + `="{{` + a.Exposed.Crumb.ID + `}}"`)
		case a.Value == "":
			sb.WriteString(" " + a.Name)
		default:
			sb.WriteString(" " + a.Name + `="` + html.EscapeString(a.Value) + `"`)
		}
	}

	if voidTags[t.Name] {
		if g.selfClosing {
			sb.WriteString(" /")
		}
		sb.WriteString(">")
		return sb.String(), nil
	}
	sb.WriteString(">")

	if len(content) == 1 {
		if text, ok := content[0].(Text); ok {
			sb.WriteString(string(text) + "</" + t.Name + ">")
			return sb.String(), nil
		}
	}
	if len(content) > 0 {
		inner, err := g.list(content, indent+1)
		if err != nil {
			return "", err
		}
		if inner != "" {
			sb.WriteString("\n" + inner + "\n" + pad)
		}
	}
	sb.WriteString("</" + t.Name + ">")
	return sb.String(), nil
}
