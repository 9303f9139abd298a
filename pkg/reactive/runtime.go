// Package reactive is the client-side engine of a compiled redstone page:
// it keeps client variables, recomputes the crumbs that depend on them and
// pushes results into the templating layer. The browser build of the same
// engine ships in package clientjs; this one runs in Go for tooling and tests.
//
// A Runtime is not safe for concurrent use. Like its browser counterpart it
// expects every call to come from one event loop.
package reactive

import (
	"errors"
	"fmt"
	"io"
	"log"
	"sort"
)

// MaxSettlePasses bounds how often one update re-propagates when writes
// arrive while it is in flight.
const MaxSettlePasses = 16

// Outcome reports what UpdateVariable did with a write.
type Outcome int

const (
	// Queued: the runtime is not initialized yet; the write replays on Init.
	Queued Outcome = iota
	// Blocked: an update of the same variable is in flight; the write
	// becomes its final value.
	Blocked
	// Applied: the write was propagated.
	Applied
)

func (o Outcome) String() string {
	switch o {
	case Queued:
		return "queued"
	case Blocked:
		return "blocked"
	}
	return "applied"
}

// VarInfo is the runtime record of one client variable.
type VarInfo struct {
	Value      any
	FinalValue any
	Blocked    bool

	dirty   bool
	watched any
	unwatch func()
}

type pendingUpdate struct {
	name  string
	value any
}

type Runtime struct {
	crumbs        map[string]*Crumb
	varToCrumbIDs map[string][]string
	exposed       map[string][]string
	methods       map[string]Func
	clientSetters map[string]func(any)

	renderer Renderer
	vars     map[string]*VarInfo
	loaded   bool
	queue    []pendingUpdate
	cancel   []func()
	pushing  map[string]int

	strict bool
	logger *log.Logger
}

type Option func(*Runtime)

// WithStrict selects strict evaluation: unsupported expressions and unknown
// methods are errors rather than false.
func WithStrict(strict bool) Option {
	return func(rt *Runtime) { rt.strict = strict }
}

func WithLogger(l *log.Logger) Option {
	return func(rt *Runtime) { rt.logger = l }
}

// WithMethod registers a function expressions may call by name.
func WithMethod(name string, fn Func) Option {
	return func(rt *Runtime) { rt.methods[name] = fn }
}

// New creates a runtime over the tables in b, driving r. Strictness defaults
// to b.Strict.
func New(b *Bootstrap, r Renderer, opts ...Option) *Runtime {
	rt := &Runtime{
		crumbs:        b.Crumbs,
		varToCrumbIDs: b.VarToCrumbIDs,
		exposed:       b.ExposedValues,
		methods:       make(map[string]Func),
		clientSetters: make(map[string]func(any)),
		renderer:      r,
		vars:          make(map[string]*VarInfo),
		pushing:       make(map[string]int),
		strict:        b.Strict,
		logger:        log.New(io.Discard, "", 0),
	}
	if rt.crumbs == nil {
		rt.crumbs = map[string]*Crumb{}
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

// RegisterMethod makes fn callable from expressions as name.
func (rt *Runtime) RegisterMethod(name string, fn Func) { rt.methods[name] = fn }

// OnClientUpdate registers the setter called when the templating layer
// changes an exposed binding of variable name.
func (rt *Runtime) OnClientUpdate(name string, fn func(any)) { rt.clientSetters[name] = fn }

// Loaded reports whether Init has run.
func (rt *Runtime) Loaded() bool { return rt.loaded }

// Var returns a copy of the record for name.
func (rt *Runtime) Var(name string) (VarInfo, bool) {
	info, ok := rt.vars[name]
	if !ok {
		return VarInfo{}, false
	}
	return *info, true
}

// UpdateVariable sets a client variable and recomputes every crumb that
// depends on it. Before Init the write is queued. While an update of the same
// variable is in flight the write is coalesced into it: the in-flight update
// finishes, then propagates again with the latest value.
func (rt *Runtime) UpdateVariable(name string, value any) (Outcome, error) {
	return rt.update(name, value, true)
}

func (rt *Runtime) update(name string, value any, pushExposed bool) (Outcome, error) {
	if !rt.loaded {
		rt.queue = append(rt.queue, pendingUpdate{name, value})
		return Queued, nil
	}
	if pushExposed && len(rt.exposed[name]) > 0 {
		rt.pushing[name]++
		for _, id := range rt.exposed[name] {
			rt.renderer.Set(id, value)
		}
		if rt.pushing[name]--; rt.pushing[name] == 0 {
			delete(rt.pushing, name)
		}
	}

	info := rt.info(name)
	if info.Blocked {
		info.FinalValue = value
		info.dirty = true
		return Blocked, nil
	}
	info.Value, info.FinalValue = value, value
	return Applied, rt.settle(name, info)
}

func (rt *Runtime) info(name string) *VarInfo {
	info, ok := rt.vars[name]
	if !ok {
		info = &VarInfo{Value: Undefined, FinalValue: Undefined}
		rt.vars[name] = info
	}
	return info
}

// settle propagates name until no write arrived during the last pass, then
// watches the settled value if it is an Object.
func (rt *Runtime) settle(name string, info *VarInfo) error {
	info.Blocked = true
	var err error
	for pass := 0; ; pass++ {
		if pass == MaxSettlePasses {
			rt.logger.Printf("redstone: %s still changing after %d passes; keeping %v", name, pass, ToString(info.FinalValue))
			break
		}
		info.dirty = false
		if err = rt.propagate(name); err != nil {
			break
		}
		if !info.dirty {
			break
		}
		info.Value = info.FinalValue
	}
	info.Value = info.FinalValue
	info.Blocked = false
	rt.watch(name, info)
	return err
}

// watch moves the object watcher of name to its current value. A replaced
// object stops notifying.
func (rt *Runtime) watch(name string, info *VarInfo) {
	if info.unwatch != nil {
		if identical(info.watched, info.Value) {
			return
		}
		info.unwatch()
		info.unwatch, info.watched = nil, nil
	}
	if obj, ok := info.Value.(*Object); ok {
		info.unwatch = obj.Watch(name, func(string) { rt.refresh(name) })
		info.watched = obj
	}
}

// refresh re-propagates name after its Object value was mutated in place.
func (rt *Runtime) refresh(name string) {
	info := rt.info(name)
	if info.Blocked {
		info.dirty = true
		return
	}
	if err := rt.settle(name, info); err != nil {
		rt.logger.Printf("redstone: refreshing %s: %v", name, err)
	}
}

func (rt *Runtime) propagate(name string) error {
	for _, id := range rt.varToCrumbIDs[name] {
		if err := rt.evaluateCrumb(id); err != nil {
			return err
		}
	}
	return nil
}

func (rt *Runtime) evaluateCrumb(id string) error {
	crumb, ok := rt.crumbs[id]
	if !ok {
		return nil
	}
	v, err := rt.Eval(crumb.Expr)
	if err != nil {
		return err
	}
	rt.renderer.Set(id, v)
	return nil
}

// Init renders crumbs that depend on no variable, marks the runtime loaded,
// replays queued writes in order and starts observing exposed bindings. If a
// constant crumb fails the runtime stays unloaded and Init may be retried. A
// failed replayed write does not stop the ones after it.
func (rt *Runtime) Init() error {
	if rt.loaded {
		return nil
	}

	ids := make([]string, 0, len(rt.crumbs))
	for id, c := range rt.crumbs {
		if len(c.VariableNames) == 0 {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	for _, id := range ids {
		if err := rt.evaluateCrumb(id); err != nil {
			return err
		}
	}

	rt.loaded = true
	queue := rt.queue
	rt.queue = nil
	var errs []error
	for _, u := range queue {
		if _, err := rt.update(u.name, u.value, true); err != nil {
			errs = append(errs, fmt.Errorf("replaying %s: %w", u.name, err))
		}
	}

	names := make([]string, 0, len(rt.exposed))
	for name := range rt.exposed {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		for _, id := range rt.exposed[name] {
			rt.cancel = append(rt.cancel, rt.renderer.Observe(id, func(newValue, _ any) {
				if rt.pushing[name] > 0 {
					return
				}
				if set := rt.clientSetters[name]; set != nil {
					set(newValue)
				}
				if _, err := rt.update(name, newValue, false); err != nil {
					rt.logger.Printf("redstone: binding %s: %v", name, err)
				}
			}))
		}
	}
	return errors.Join(errs...)
}

// Close stops observing exposed bindings and drops object watchers.
func (rt *Runtime) Close() {
	for _, c := range rt.cancel {
		c()
	}
	rt.cancel = nil
	for _, info := range rt.vars {
		if info.unwatch != nil {
			info.unwatch()
			info.unwatch = nil
		}
	}
}
