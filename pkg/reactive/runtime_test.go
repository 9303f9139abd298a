package reactive

import (
	"bytes"
	"encoding/json"
	"errors"
	"log"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bootstrapFor(t *testing.T, crumbs map[string]string) *Bootstrap {
	t.Helper()
	b := &Bootstrap{
		Crumbs:        map[string]*Crumb{},
		VarToCrumbIDs: map[string][]string{},
		ExposedValues: map[string][]string{},
		Strict:        true,
	}
	for id, src := range crumbs {
		e := tracked(t, src)
		vars := identifiers(e)
		b.Crumbs[id] = &Crumb{ID: id, VariableNames: vars, Expr: e}
		for _, v := range vars {
			b.VarToCrumbIDs[v] = append(b.VarToCrumbIDs[v], id)
		}
	}
	return b
}

func identifiers(e any) []string {
	data, _ := json.Marshal(e)
	var names []string
	var walk func(v any)
	walk = func(v any) {
		switch x := v.(type) {
		case map[string]any:
			if x["type"] == "Identifier" && x["isInCrumb"] == true {
				name := x["name"].(string)
				for _, n := range names {
					if n == name {
						return
					}
				}
				names = append(names, name)
				return
			}
			for _, k := range []string{"object", "property", "left", "right", "test", "consequent", "alternate", "callee", "arguments", "argument"} {
				walk(x[k])
			}
		case []any:
			for _, e := range x {
				walk(e)
			}
		}
	}
	var tree any
	_ = json.Unmarshal(data, &tree)
	walk(tree)
	return names
}

func TestUpdateBeforeInitIsQueued(t *testing.T) {
	r := NewMemoryRenderer()
	rt := New(bootstrapFor(t, map[string]string{"rSum": "a + b"}), r)

	out, err := rt.UpdateVariable("a", 1.0)
	require.NoError(t, err)
	assert.Equal(t, Queued, out)
	_, err = rt.UpdateVariable("b", 2.0)
	require.NoError(t, err)
	assert.Equal(t, Undefined, r.Get("rSum"))

	require.NoError(t, rt.Init())
	assert.True(t, rt.Loaded())
	assert.Equal(t, 3.0, r.Get("rSum"))
}

func TestUpdatePropagatesToDependents(t *testing.T) {
	r := NewMemoryRenderer()
	rt := New(bootstrapFor(t, map[string]string{
		"rGreeting": "'Hello ' + name",
		"rLength":   "name.length",
		"rOther":    "count * 2",
	}), r)
	require.NoError(t, rt.Init())

	out, err := rt.UpdateVariable("name", "Ada")
	require.NoError(t, err)
	assert.Equal(t, Applied, out)
	assert.Equal(t, "Hello Ada", r.Get("rGreeting"))
	assert.Equal(t, 3.0, r.Get("rLength"))
	assert.Equal(t, Undefined, r.Get("rOther"))

	info, ok := rt.Var("name")
	require.True(t, ok)
	assert.Equal(t, "Ada", info.Value)
	assert.False(t, info.Blocked)
}

func TestInitRendersConstantCrumbs(t *testing.T) {
	r := NewMemoryRenderer()
	rt := New(bootstrapFor(t, map[string]string{"rConst": "'a' + 1"}), r)
	require.NoError(t, rt.Init())
	assert.Equal(t, "a1", r.Get("rConst"))
}

func TestReentrantUpdateCoalesces(t *testing.T) {
	r := NewMemoryRenderer()
	rt := New(bootstrapFor(t, map[string]string{"rEcho": "touch(v)"}), r)

	var seen []any
	var inner Outcome
	rt.RegisterMethod("touch", func(_ any, args []any) (any, error) {
		seen = append(seen, args[0])
		if args[0] == "v1" {
			var err error
			inner, err = rt.UpdateVariable("v", "v2")
			require.NoError(t, err)
		}
		return args[0], nil
	})
	require.NoError(t, rt.Init())

	_, err := rt.UpdateVariable("v", "v1")
	require.NoError(t, err)

	assert.Equal(t, Blocked, inner)
	assert.Equal(t, []any{"v1", "v2"}, seen)
	assert.Equal(t, "v2", r.Get("rEcho"))
	info, _ := rt.Var("v")
	assert.Equal(t, "v2", info.Value)
	assert.False(t, info.Blocked)
}

func TestSettleIsBounded(t *testing.T) {
	r := NewMemoryRenderer()
	rt := New(bootstrapFor(t, map[string]string{"rLoop": "bump(v)"}), r)
	calls := 0
	rt.RegisterMethod("bump", func(_ any, args []any) (any, error) {
		calls++
		_, err := rt.UpdateVariable("v", toNumber(args[0])+1)
		return args[0], err
	})
	require.NoError(t, rt.Init())

	_, err := rt.UpdateVariable("v", 0.0)
	require.NoError(t, err)
	assert.Equal(t, MaxSettlePasses, calls)
	info, _ := rt.Var("v")
	assert.False(t, info.Blocked)
}

func TestObjectMutationRepropagates(t *testing.T) {
	r := NewMemoryRenderer()
	rt := New(bootstrapFor(t, map[string]string{"rCount": "cart.count"}), r)
	require.NoError(t, rt.Init())

	first := NewObject(map[string]any{"count": 1.0})
	_, err := rt.UpdateVariable("cart", first)
	require.NoError(t, err)
	assert.Equal(t, 1.0, r.Get("rCount"))

	first.Set("count", 2.0)
	assert.Equal(t, 2.0, r.Get("rCount"))

	second := NewObject(map[string]any{"count": 10.0})
	_, err = rt.UpdateVariable("cart", second)
	require.NoError(t, err)
	assert.Equal(t, 10.0, r.Get("rCount"))
	assert.Equal(t, 0, first.Watchers())
	assert.Equal(t, 1, second.Watchers())

	first.Set("count", 99.0)
	assert.Equal(t, 10.0, r.Get("rCount"))

	_, err = rt.UpdateVariable("cart", second)
	require.NoError(t, err)
	assert.Equal(t, 1, second.Watchers())

	rt.Close()
	assert.Equal(t, 0, second.Watchers())
}

func TestExposedBindings(t *testing.T) {
	b := bootstrapFor(t, map[string]string{"rShout": "name.toUpperCase()"})
	b.ExposedValues["name"] = []string{"rInput"}
	r := NewMemoryRenderer()
	rt := New(b, r)

	var fromClient []any
	rt.OnClientUpdate("name", func(v any) { fromClient = append(fromClient, v) })
	require.NoError(t, rt.Init())

	_, err := rt.UpdateVariable("name", "ada")
	require.NoError(t, err)
	assert.Equal(t, "ada", r.Get("rInput"))
	assert.Equal(t, "ADA", r.Get("rShout"))
	assert.Empty(t, fromClient)

	// The user types into the bound field.
	r.Set("rInput", "grace")
	assert.Equal(t, []any{"grace"}, fromClient)
	assert.Equal(t, "GRACE", r.Get("rShout"))
	info, _ := rt.Var("name")
	assert.Equal(t, "grace", info.Value)
}

func TestBootstrapRoundTrip(t *testing.T) {
	b := bootstrapFor(t, map[string]string{"rA": "user.name + suffix"})
	b.ExposedValues["suffix"] = []string{"rField"}

	data, err := json.Marshal(b)
	require.NoError(t, err)

	back, err := ParseBootstrap(data)
	require.NoError(t, err)
	require.Contains(t, back.Crumbs, "rA")
	assert.Equal(t, "rA", back.Crumbs["rA"].ID)
	assert.Equal(t, b.Crumbs["rA"].Expr, back.Crumbs["rA"].Expr)
	assert.Equal(t, b.VarToCrumbIDs, back.VarToCrumbIDs)
	assert.Equal(t, b.ExposedValues, back.ExposedValues)

	r := NewMemoryRenderer()
	rt := New(back, r)
	require.NoError(t, rt.Init())
	_, err = rt.UpdateVariable("user", map[string]any{"name": "Ada"})
	require.NoError(t, err)
	_, err = rt.UpdateVariable("suffix", "!")
	require.NoError(t, err)
	assert.Equal(t, "Ada!", r.Get("rA"))
	assert.Equal(t, "!", r.Get("rField"))
}

func TestParseBootstrapRejectsDanglingCrumb(t *testing.T) {
	_, err := ParseBootstrap([]byte(`{"crumbs":{},"varToCrumbIds":{"x":["rMissing"]}}`))
	assert.Error(t, err)
}

func TestObjectWatchRefcount(t *testing.T) {
	o := NewObject(nil)
	calls := 0
	un1 := o.Watch("k", func(string) { calls++ })
	un2 := o.Watch("k", func(string) { calls += 100 })
	assert.Equal(t, 1, o.Watchers())

	o.Set("x", 1.0)
	assert.Equal(t, 1, calls)

	un1()
	un1()
	assert.Equal(t, 1, o.Watchers())
	un2()
	assert.Equal(t, 0, o.Watchers())

	o.Set("x", 2.0)
	assert.Equal(t, 1, calls)
	assert.Equal(t, []string{"x"}, o.Keys())
}

func TestNaNWriteSettlesInOnePass(t *testing.T) {
	var logs bytes.Buffer
	r := NewMemoryRenderer()
	rt := New(bootstrapFor(t, map[string]string{"rCount": "count(v)"}), r, WithLogger(log.New(&logs, "", 0)))
	calls := 0
	rt.RegisterMethod("count", func(_ any, args []any) (any, error) {
		calls++
		return args[0], nil
	})
	require.NoError(t, rt.Init())

	out, err := rt.UpdateVariable("v", math.NaN())
	require.NoError(t, err)
	assert.Equal(t, Applied, out)
	assert.Equal(t, 1, calls)
	assert.NotContains(t, logs.String(), "still changing")
	info, _ := rt.Var("v")
	assert.True(t, math.IsNaN(info.Value.(float64)))
}

func TestReentrantSameValueWriteRepropagates(t *testing.T) {
	r := NewMemoryRenderer()
	rt := New(bootstrapFor(t, map[string]string{"rEcho": "touch(v)"}), r)
	calls := 0
	rt.RegisterMethod("touch", func(_ any, args []any) (any, error) {
		calls++
		if calls == 1 {
			out, err := rt.UpdateVariable("v", args[0])
			require.NoError(t, err)
			assert.Equal(t, Blocked, out)
		}
		return args[0], nil
	})
	require.NoError(t, rt.Init())

	_, err := rt.UpdateVariable("v", "same")
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestInitRetriesAfterConstantCrumbFails(t *testing.T) {
	r := NewMemoryRenderer()
	rt := New(bootstrapFor(t, map[string]string{"rBoot": "boot()", "rV": "v"}), r)
	fail := true
	rt.RegisterMethod("boot", func(any, []any) (any, error) {
		if fail {
			return nil, errors.New("not ready")
		}
		return "ok", nil
	})

	out, err := rt.UpdateVariable("v", "queued")
	require.NoError(t, err)
	assert.Equal(t, Queued, out)

	require.Error(t, rt.Init())
	assert.False(t, rt.Loaded())

	fail = false
	require.NoError(t, rt.Init())
	assert.True(t, rt.Loaded())
	assert.Equal(t, "ok", r.Get("rBoot"))
	assert.Equal(t, "queued", r.Get("rV"))
}

func TestInitReplaysEveryQueuedWrite(t *testing.T) {
	r := NewMemoryRenderer()
	rt := New(bootstrapFor(t, map[string]string{"rA": "a.name", "rB": "b"}), r)
	_, err := rt.UpdateVariable("a", nil)
	require.NoError(t, err)
	_, err = rt.UpdateVariable("b", "later")
	require.NoError(t, err)

	err = rt.Init()
	require.ErrorIs(t, err, ErrTypeError)
	assert.Equal(t, "later", r.Get("rB"))
}

// hookRenderer runs onSet after every write, letting a test re-enter the
// runtime from inside a push.
type hookRenderer struct {
	*MemoryRenderer
	onSet func(keypath string, value any)
}

func (h *hookRenderer) Set(keypath string, value any) {
	h.MemoryRenderer.Set(keypath, value)
	if h.onSet != nil {
		h.onSet(keypath, value)
	}
}

func TestNestedExposedPushKeepsSuppression(t *testing.T) {
	b := bootstrapFor(t, nil)
	b.ExposedValues["name"] = []string{"rFirst", "rSecond"}
	r := &hookRenderer{MemoryRenderer: NewMemoryRenderer()}
	rt := New(b, r)

	var fromClient []any
	rt.OnClientUpdate("name", func(v any) { fromClient = append(fromClient, v) })
	require.NoError(t, rt.Init())

	r.onSet = func(keypath string, value any) {
		if keypath == "rFirst" && value == "outer" {
			_, err := rt.UpdateVariable("name", "inner")
			require.NoError(t, err)
		}
	}
	_, err := rt.UpdateVariable("name", "outer")
	require.NoError(t, err)

	assert.Empty(t, fromClient)
	assert.Equal(t, "outer", r.Get("rSecond"))
	info, _ := rt.Var("name")
	assert.Equal(t, "outer", info.Value)
}
