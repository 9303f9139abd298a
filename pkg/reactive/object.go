package reactive

import "slices"

// Object is a mutable record whose writes can be observed. It is the value
// to use for client variables whose fields change in place.
type Object struct {
	fields   map[string]any
	keys     []string
	watchers []*watcher
}

type watcher struct {
	key   string
	refs  int
	onSet func(prop string)
}

// NewObject returns an object holding a copy of fields.
func NewObject(fields map[string]any) *Object {
	o := &Object{fields: make(map[string]any, len(fields))}
	for k, v := range fields {
		o.fields[k] = v
		o.keys = append(o.keys, k)
	}
	slices.Sort(o.keys)
	return o
}

// Get returns the value of prop.
func (o *Object) Get(prop string) (any, bool) {
	v, ok := o.fields[prop]
	return v, ok
}

// Has reports whether prop is set.
func (o *Object) Has(prop string) bool {
	_, ok := o.fields[prop]
	return ok
}

// Keys returns the property names: initial ones sorted, later ones in the
// order they were added.
func (o *Object) Keys() []string { return slices.Clone(o.keys) }

// Set writes prop and notifies every watcher.
func (o *Object) Set(prop string, v any) {
	if _, ok := o.fields[prop]; !ok {
		o.keys = append(o.keys, prop)
	}
	o.fields[prop] = v
	for _, w := range slices.Clone(o.watchers) {
		w.onSet(prop)
	}
}

// Watch registers onSet under key. Watching again under a key that is
// already registered adds a reference and keeps the first callback. The
// returned function drops one reference; the watcher goes away when none
// remain.
func (o *Object) Watch(key string, onSet func(prop string)) (unwatch func()) {
	w := o.find(key)
	if w == nil {
		w = &watcher{key: key, onSet: onSet}
		o.watchers = append(o.watchers, w)
	}
	w.refs++

	released := false
	return func() {
		if released {
			return
		}
		released = true
		w.refs--
		if w.refs == 0 {
			o.watchers = slices.DeleteFunc(o.watchers, func(x *watcher) bool { return x == w })
		}
	}
}

// Watchers returns the number of distinct watcher keys.
func (o *Object) Watchers() int { return len(o.watchers) }

func (o *Object) find(key string) *watcher {
	for _, w := range o.watchers {
		if w.key == key {
			return w
		}
	}
	return nil
}
