package redstone

import (
	"bytes"
	"errors"
	"log"
	"strings"
	"testing"

	"github.com/njreid/redstone/pkg/expr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContext(t *testing.T) (*Context, *bytes.Buffer) {
	t.Helper()
	var logs bytes.Buffer
	opts := DefaultOptions()
	opts.RandomLength = 8
	return NewContext(opts, log.New(&logs, "", 0)), &logs
}

func prepared(t *testing.T, src string) ([]Node, *Context, *bytes.Buffer) {
	t.Helper()
	nodes, err := Parse(src)
	require.NoError(t, err)
	ctx, logs := testContext(t)
	require.NoError(t, Prepare(ctx, nodes))
	return nodes, ctx, logs
}

func TestFindVarNames(t *testing.T) {
	tests := []struct {
		src       string
		wantVars  []string
		wantFuncs []string
	}{
		{"a + b.c", []string{"a", "b"}, nil},
		{"f(x, y)", []string{"x", "y"}, []string{"f"}},
		{"'lit'", []string{}, nil},
		{"a.b.c.d", []string{"a"}, nil},
		{"list[idx].name", []string{"list", "idx"}, nil},
		{"ok ? yes : no", []string{"ok", "yes", "no"}, nil},
		{"user.name.toUpperCase()", []string{"user"}, nil},
		{"a + a * a", []string{"a"}, nil},
		{"fmt(price, fmt(tax))", []string{"price", "tax"}, []string{"fmt"}},
		{"x && y || z", []string{"x", "y", "z"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			vars, funcs, err := FindVarNames(expr.MustParse(tt.src))
			require.NoError(t, err)
			assert.Equal(t, tt.wantVars, vars)
			assert.Equal(t, tt.wantFuncs, funcs)
		})
	}
}

func TestFindVarNamesMarksIdentifiers(t *testing.T) {
	e := expr.MustParse("a.b + c")
	_, _, err := FindVarNames(e)
	require.NoError(t, err)

	bin := e.(*expr.Binary)
	member := bin.Left.(*expr.Member)
	assert.True(t, member.Object.(*expr.Identifier).IsInCrumb)
	assert.False(t, member.Property.(*expr.Identifier).IsInCrumb)
	assert.True(t, bin.Right.(*expr.Identifier).IsInCrumb)
}

func TestFindVarNamesErrors(t *testing.T) {
	tests := []struct {
		src  string
		want error
	}{
		{"obj[key]()", ErrComputedMemberCall},
		{"(a ? f : g)(1)", ErrNonIdentifierCallTarget},
		{"f()()", ErrNonIdentifierCallTarget},
		{"!a", ErrUnsupportedExpression},
		{"-a", ErrUnsupportedExpression},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			_, _, err := FindVarNames(expr.MustParse(tt.src))
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestPrepareAssignsCrumbs(t *testing.T) {
	src := `div
	p Hello {{name}} and {{- hidden}} {{/ shown}}
	{{#if count > 0}}
		p {{count}}
	{{#each items}}
		li {{label}}
		{{#if done}}
			span done`

	nodes, ctx, _ := prepared(t, src)

	div := nodes[0].(*Tag)
	p := div.Content[0].(*Tag)
	name := p.Content[1].(*DynamicExpression)
	require.NotNil(t, name.Crumb)
	assert.Equal(t, []string{"name"}, name.Crumb.VariableNames)

	hidden := p.Content[3].(*DynamicExpression)
	assert.True(t, hidden.IsHiddenComment)
	assert.Equal(t, "hidden", hidden.Expression)
	assert.Nil(t, hidden.Crumb)

	shown := p.Content[5].(*DynamicExpression)
	assert.True(t, shown.IsComment)
	assert.False(t, shown.IsHiddenComment)
	assert.Equal(t, "shown", shown.Expression)

	ifb := div.Content[1].(*IfBlock)
	require.NotNil(t, ifb.Crumb)
	assert.Equal(t, []string{"count"}, ifb.Crumb.VariableNames)
	assert.NotNil(t, ifb.TrueBranch[0].(*Tag).Content[0].(*DynamicExpression).Crumb)

	each := div.Content[2].(*EachBlock)
	require.NotNil(t, each.Crumb)
	li := each.Body[0].(*Tag)
	assert.Nil(t, li.Content[0].(*DynamicExpression).Crumb)
	assert.Nil(t, each.Body[1].(*IfBlock).Crumb)

	// name, count (if), count (p), items
	require.Len(t, ctx.Crumbs, 4)
	seen := map[string]bool{}
	for _, c := range ctx.Crumbs {
		assert.False(t, seen[c.ID], "duplicate crumb id %s", c.ID)
		seen[c.ID] = true
		assert.True(t, strings.HasPrefix(c.ID, "r"))
		assert.Len(t, c.ID, 9)
	}
	assert.Equal(t, []string{"count", "items", "name"}, ctx.VariableNames())
}

func TestPrepareHeadExpressionsGetNoCrumb(t *testing.T) {
	src := `html
	head
		title {{name}}
	body
		p {{name}}`

	nodes, ctx, logs := prepared(t, src)

	root := nodes[0].(*Tag)
	head := root.Content[0].(*Tag)
	title := head.Content[0].(*Tag)
	assert.Nil(t, title.Content[0].(*DynamicExpression).Crumb)

	body := root.Content[1].(*Tag)
	p := body.Content[0].(*Tag)
	assert.NotNil(t, p.Content[0].(*DynamicExpression).Crumb)

	require.Len(t, ctx.Crumbs, 1)
	assert.Contains(t, logs.String(), "{{name}} in <head> is not rendered")
}

func TestPrepareCallbacks(t *testing.T) {
	src := `button#save[@click=onSave] Save
button[@click=onCancel] Cancel
{{#each rows}}
	a[@click=onRow] row`

	nodes, ctx, logs := prepared(t, src)

	assert.Equal(t, []string{"onSave", "onCancel", "onRow"}, ctx.Callbacks)
	require.Len(t, ctx.JS, 3)
	assert.Equal(t, `$("#save").click(REDSTONE.createCallback(onSave));`, ctx.JS[0])

	cancel := nodes[1].(*Tag)
	require.NotEmpty(t, cancel.ID)
	assert.Equal(t, `$("#`+cancel.ID+`").click(REDSTONE.createCallback(onCancel));`, ctx.JS[1])
	assert.Contains(t, logs.String(), "inside a loop")
}

func TestPrepareCallbackErrors(t *testing.T) {
	for _, src := range []string{"a[@click=save()]", "a[@click=a.b]"} {
		nodes, err := Parse(src)
		require.NoError(t, err)
		ctx, _ := testContext(t)
		err = Prepare(ctx, nodes)
		assert.True(t, errors.Is(err, ErrNonIdentifierCallTarget), "%s: %v", src, err)
	}
}

func TestPrepareExposedValues(t *testing.T) {
	nodes, ctx, _ := prepared(t, "input[type=text][value={{ query }}]\np {{query}}")

	require.Len(t, ctx.ExposedValues, 1)
	ev := ctx.ExposedValues[0]
	assert.Equal(t, "query", ev.VariableName())
	assert.Equal(t, "value", ev.Attribute.Name)

	input := nodes[0].(*Tag)
	assert.Same(t, ev, input.Attr("value").Exposed)
	assert.Nil(t, input.Attr("type").Exposed)

	b := ctx.Bootstrap()
	assert.Equal(t, map[string][]string{"query": {ev.Crumb.ID}}, b.ExposedValues)
	assert.Len(t, b.VarToCrumbIDs["query"], 1)
	assert.NotContains(t, b.Crumbs, ev.Crumb.ID)
}

func TestPrepareExposedValueMustBeIdentifier(t *testing.T) {
	nodes, err := Parse("input[value={{a + b}}]")
	require.NoError(t, err)
	ctx, _ := testContext(t)
	err = Prepare(ctx, nodes)
	assert.True(t, errors.Is(err, ErrNonIdentifierExposedValue), "got %v", err)
}

func TestPrepareReservesAuthorIDs(t *testing.T) {
	ctx, _ := testContext(t)
	probe := newIDGenerator(ctx.Options.Seed, ctx.Options.RandomLength)
	first := probe.next()

	nodes, err := Parse("p {{a}}\ndiv#" + first)
	require.NoError(t, err)
	require.NoError(t, Prepare(ctx, nodes))
	assert.NotEqual(t, first, ctx.Crumbs[0].ID)
}

func TestPrepareInvalidExpression(t *testing.T) {
	nodes, err := Parse("p {{a +}}")
	require.NoError(t, err)
	ctx, _ := testContext(t)
	err = Prepare(ctx, nodes)
	assert.True(t, errors.Is(err, ErrInvalidExpression), "got %v", err)
}
