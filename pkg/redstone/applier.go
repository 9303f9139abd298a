package redstone

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/njreid/redstone/pkg/tiersplit"
)

// Apply injects the runtime into a prepared tree. The head receives the
// library scripts, the bootstrap tables and the generated client program.
// The body's content moves into the template definition and an empty render
// target takes its place. A missing head or body is synthesized.
func Apply(ctx *Context, nodes []Node, programs *tiersplit.Programs, source string) ([]Node, error) {
	var head, body *Tag
	for _, node := range nodes {
		t, ok := node.(*Tag)
		if !ok {
			return nil, fmt.Errorf("%w: only head and body may appear at the top level, found %s", ErrDisallowedTopLevelTag, describeNode(node))
		}
		switch t.Name {
		case "head":
			if head != nil {
				return nil, ErrDuplicateHead
			}
			head = t
		case "body":
			if body != nil {
				return nil, ErrDuplicateBody
			}
			body = t
		default:
			return nil, fmt.Errorf("%w: <%s>", ErrDisallowedTopLevelTag, t.Name)
		}
	}

	out := nodes
	if head == nil {
		head = &Tag{Name: "head"}
		out = append([]Node{head}, out...)
	}
	if body == nil {
		body = &Tag{Name: "body"}
		out = append(out, body)
	}
	if programs == nil {
		programs = &tiersplit.Programs{}
	}

	if err := applyHead(ctx, head, programs, source); err != nil {
		return nil, err
	}
	applyBody(ctx, body)
	return out, nil
}

func describeNode(n Node) string {
	switch n.(type) {
	case Text:
		return "text"
	case *DynamicExpression:
		return "an expression"
	case *IfBlock, *EachBlock:
		return "a block"
	}
	return fmt.Sprintf("%T", n)
}

func scriptTag(attrs []*Attribute, text string) *Tag {
	t := &Tag{Name: "script", Attributes: attrs}
	if text != "" {
		t.Content = []Node{Text(text)}
	}
	return t
}

func applyHead(ctx *Context, head *Tag, programs *tiersplit.Programs, source string) error {
	libs := ctx.Options.Libraries
	if len(libs) == 0 {
		libs = DefaultLibraries
	}
	for _, src := range libs {
		head.Content = append(head.Content, scriptTag([]*Attribute{{Name: "src", Value: src}}, ""))
	}

	tables, err := bootstrapJS(ctx)
	if err != nil {
		return err
	}
	head.Content = append(head.Content,
		scriptTag(nil, tables),
		scriptTag(nil, clientJS(ctx, programs)),
	)

	if ctx.CSS != "" {
		head.Content = append(head.Content, &Tag{Name: "style", Content: []Node{Text(ctx.CSS)}})
	}
	if ctx.Options.IncludeSource {
		embedded := scriptTag([]*Attribute{{Name: "type", Value: "text/redstone"}}, escapeScriptText(source))
		embedded.ID = "redstone-source"
		head.Content = append(head.Content, embedded)
	}
	return nil
}

// bootstrapJS serializes the tables the client runtime starts from.
func bootstrapJS(ctx *Context) (string, error) {
	b := ctx.Bootstrap()
	server := fmt.Sprintf("http://%s:%d", ctx.Options.ServerHostname, ctx.Options.ServerPort)

	tables := []struct {
		name  string
		value any
	}{
		{"CRUMBS", b.Crumbs},
		{"VARTOCRUMBID", b.VarToCrumbIDs},
		{"EXPOSEDVALUES", b.ExposedValues},
		{"STRICT", b.Strict},
		{"SERVER", server},
	}
	var sb strings.Builder
	for _, t := range tables {
		data, err := json.Marshal(t.value)
		if err != nil {
			return "", fmt.Errorf("serializing %s: %w", t.name, err)
		}
		fmt.Fprintf(&sb, "REDSTONE.%s = %s;\n", t.name, data)
	}
	sb.WriteString("REDSTONE.METHODS = {};\nREDSTONE.UPDATECLIENTVAR = {};\n")
	return sb.String(), nil
}

// clientJS is the client program plus the glue that links it to the
// runtime, run once the document is ready.
func clientJS(ctx *Context, programs *tiersplit.Programs) string {
	var lines []string
	if programs.Client != "" {
		lines = append(lines, programs.Client)
	}
	for _, name := range ctx.FunctionNames {
		lines = append(lines, fmt.Sprintf("if (typeof %s === \"function\") { REDSTONE.METHODS[%q] = %s; }", name, name, name))
	}

	var exposed []string
	for _, ev := range ctx.ExposedValues {
		exposed = appendUnique(exposed, ev.VariableName())
	}
	for _, name := range exposed {
		lines = append(lines, fmt.Sprintf("REDSTONE.UPDATECLIENTVAR[%q] = function (value) { %s = value; };", name, name))
	}

	lines = append(lines, ctx.JS...)
	for _, name := range ctx.VariableNames() {
		lines = append(lines, fmt.Sprintf("if (typeof %s !== \"undefined\") { REDSTONE.updateVariable(%q, %s); }", name, name, name))
	}
	lines = append(lines, "REDSTONE.init();")

	return "$(document).ready(function() {\n// --> Begin generated\n" +
		strings.Join(lines, "\n") +
		"\n// <-- End generated\n});\n"
}

// escapeScriptText keeps text inside a script element from closing it.
func escapeScriptText(s string) string {
	return strings.NewReplacer("</script", `<\/script`, "</SCRIPT", `<\/SCRIPT`).Replace(s)
}

func applyBody(ctx *Context, body *Tag) {
	template := scriptTag([]*Attribute{{Name: "type", Value: "text/ractive"}}, "")
	template.ID = "main-template"
	template.Content = body.Content

	var data []string
	for _, c := range ctx.Crumbs {
		data = append(data, "\t\t"+c.ID+": undefined")
	}
	for _, ev := range ctx.ExposedValues {
		data = append(data, "\t\t"+ev.Crumb.ID+": undefined")
	}
	dataJS := "{}"
	if len(data) > 0 {
		dataJS = "{\n" + strings.Join(data, ",\n") + "\n\t}"
	}
	boot := "var ractive = new Ractive({\n" +
		"\tel: \"#render-target\",\n" +
		"\ttemplate: \"#main-template\",\n" +
		"\tdata: " + dataJS + "\n" +
		"});\n"

	body.Content = []Node{
		&Tag{Name: "div", ID: "render-target"},
		template,
		scriptTag(nil, boot),
	}
}
