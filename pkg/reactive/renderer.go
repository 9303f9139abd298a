package reactive

import (
	"slices"
)

// Renderer is the templating layer the runtime drives: crumb results are
// written to it by crumb id, and exposed bindings are observed on it.
type Renderer interface {
	Set(keypath string, value any)
	Observe(keypath string, fn func(newValue, oldValue any)) (cancel func())
}

// MemoryRenderer is a Renderer backed by a map. Observers fire on every Set
// that changes a value.
type MemoryRenderer struct {
	data      map[string]any
	observers map[string][]*observer
}

type observer struct {
	fn func(newValue, oldValue any)
}

func NewMemoryRenderer() *MemoryRenderer {
	return &MemoryRenderer{
		data:      make(map[string]any),
		observers: make(map[string][]*observer),
	}
}

func (m *MemoryRenderer) Set(keypath string, value any) {
	old, had := m.data[keypath]
	m.data[keypath] = value
	if had && identical(old, value) {
		return
	}
	if !had {
		old = Undefined
	}
	for _, o := range slices.Clone(m.observers[keypath]) {
		o.fn(value, old)
	}
}

// Get returns the value stored under keypath, or Undefined.
func (m *MemoryRenderer) Get(keypath string) any {
	if v, ok := m.data[keypath]; ok {
		return v
	}
	return Undefined
}

func (m *MemoryRenderer) Observe(keypath string, fn func(newValue, oldValue any)) func() {
	o := &observer{fn: fn}
	m.observers[keypath] = append(m.observers[keypath], o)
	return func() {
		m.observers[keypath] = slices.DeleteFunc(m.observers[keypath], func(x *observer) bool { return x == o })
	}
}
