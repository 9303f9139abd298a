package redstone

import (
	"log"
	"slices"
	"sort"

	"github.com/njreid/redstone/pkg/reactive"
)

// Context is the state of a single compile run. It is created by the compiler
// and handed to every stage explicitly.
type Context struct {
	Options Options
	Logger  *log.Logger

	// JS holds statements emitted by analysis, in order.
	JS []string
	// Callbacks names every event handler referenced by the markup.
	Callbacks []string
	// FunctionNames names every function called from a dynamic expression.
	FunctionNames []string
	Crumbs        []*Crumb
	ExposedValues []*ExposedValue
	CSS           string

	ids *idGenerator
}

// NewContext returns an empty context for opts.
func NewContext(opts Options, logger *log.Logger) *Context {
	if logger == nil {
		logger = log.Default()
	}
	return &Context{
		Options: opts,
		Logger:  logger,
		ids:     newIDGenerator(opts.Seed, opts.RandomLength),
	}
}

func appendUnique(list []string, names ...string) []string {
	for _, n := range names {
		if !slices.Contains(list, n) {
			list = append(list, n)
		}
	}
	return list
}

// VariableNames returns every variable some crumb depends on, sorted.
func (c *Context) VariableNames() []string {
	var names []string
	for _, cr := range c.Crumbs {
		names = appendUnique(names, cr.VariableNames...)
	}
	for _, ev := range c.ExposedValues {
		names = appendUnique(names, ev.Crumb.VariableNames...)
	}
	sort.Strings(names)
	return names
}

// Bootstrap builds the tables the client runtime starts from.
func (c *Context) Bootstrap() *reactive.Bootstrap {
	b := &reactive.Bootstrap{
		Crumbs:        make(map[string]*reactive.Crumb, len(c.Crumbs)),
		VarToCrumbIDs: make(map[string][]string),
		ExposedValues: make(map[string][]string),
		Methods:       append([]string{}, c.FunctionNames...),
		Strict:        c.Options.StrictEval,
	}
	for _, cr := range c.Crumbs {
		b.Crumbs[cr.ID] = &reactive.Crumb{
			ID:            cr.ID,
			VariableNames: append([]string{}, cr.VariableNames...),
			Expr:          cr.Expr,
		}
		for _, v := range cr.VariableNames {
			b.VarToCrumbIDs[v] = append(b.VarToCrumbIDs[v], cr.ID)
		}
	}
	for _, ev := range c.ExposedValues {
		name := ev.VariableName()
		b.ExposedValues[name] = append(b.ExposedValues[name], ev.Crumb.ID)
	}
	return b
}
