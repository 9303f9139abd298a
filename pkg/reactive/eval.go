package reactive

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/njreid/redstone/pkg/expr"
)

var (
	// ErrUnsupported is returned in strict mode for a node, operator or
	// identifier outside the evaluable subset.
	ErrUnsupported = errors.New("unsupported expression")
	// ErrUnknownMethod is returned in strict mode for a call to an
	// unregistered function.
	ErrUnknownMethod = errors.New("unknown method")
	// ErrTypeError is a JavaScript TypeError: reading a property of null or
	// undefined, or calling a value that is not a function.
	ErrTypeError = errors.New("type error")
)

// Eval evaluates e against the current variable values.
func (rt *Runtime) Eval(e expr.Expr) (any, error) {
	switch n := e.(type) {
	case *expr.Literal:
		return n.Value, nil
	case *expr.Identifier:
		if !n.IsInCrumb {
			return rt.unsupported(fmt.Errorf("%w: identifier %q is not a tracked variable", ErrUnsupported, n.Name))
		}
		if info, ok := rt.vars[n.Name]; ok {
			return info.Value, nil
		}
		return Undefined, nil
	case *expr.Member:
		obj, err := rt.Eval(n.Object)
		if err != nil {
			return nil, err
		}
		key, err := rt.propertyKey(n)
		if err != nil {
			return nil, err
		}
		return getProperty(obj, key)
	case *expr.Binary:
		left, err := rt.Eval(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := rt.Eval(n.Right)
		if err != nil {
			return nil, err
		}
		return rt.binary(n.Operator, left, right)
	case *expr.Logical:
		left, err := rt.Eval(n.Left)
		if err != nil {
			return nil, err
		}
		if (n.Operator == "&&") != Truthy(left) {
			return left, nil
		}
		return rt.Eval(n.Right)
	case *expr.Conditional:
		test, err := rt.Eval(n.Test)
		if err != nil {
			return nil, err
		}
		if Truthy(test) {
			return rt.Eval(n.Consequent)
		}
		return rt.Eval(n.Alternate)
	case *expr.Call:
		return rt.call(n)
	case nil:
		return rt.unsupported(fmt.Errorf("%w: empty expression", ErrUnsupported))
	}
	return rt.unsupported(fmt.Errorf("%w: %s", ErrUnsupported, e.Type()))
}

// unsupported fails in strict mode and degrades to false otherwise.
func (rt *Runtime) unsupported(err error) (any, error) {
	if rt.strict {
		return nil, err
	}
	rt.logger.Printf("redstone: %v; evaluating to false", err)
	return false, nil
}

func (rt *Runtime) propertyKey(m *expr.Member) (string, error) {
	if !m.Computed {
		id, ok := m.Property.(*expr.Identifier)
		if !ok {
			return "", fmt.Errorf("%w: property of type %s", ErrUnsupported, m.Property.Type())
		}
		return id.Name, nil
	}
	v, err := rt.Eval(m.Property)
	if err != nil {
		return "", err
	}
	return ToString(v), nil
}

func (rt *Runtime) binary(op string, a, b any) (any, error) {
	switch op {
	case "==":
		return looseEquals(a, b), nil
	case "!=":
		return !looseEquals(a, b), nil
	case "===":
		return strictEquals(a, b), nil
	case "!==":
		return !strictEquals(a, b), nil
	case "<", "<=", ">", ">=":
		return compare(op, a, b), nil
	case "+":
		return add(a, b), nil
	case "-":
		return toNumber(a) - toNumber(b), nil
	case "*":
		return toNumber(a) * toNumber(b), nil
	case "/":
		return toNumber(a) / toNumber(b), nil
	case "%":
		return math.Mod(toNumber(a), toNumber(b)), nil
	case "|":
		return float64(toInt32(a) | toInt32(b)), nil
	case "^":
		return float64(toInt32(a) ^ toInt32(b)), nil
	case "&":
		return float64(toInt32(a) & toInt32(b)), nil
	case "<<":
		return float64(toInt32(a) << (uint32(toInt32(b)) & 31)), nil
	case ">>":
		return float64(toInt32(a) >> (uint32(toInt32(b)) & 31)), nil
	case ">>>":
		return float64(uint32(toInt32(a)) >> (uint32(toInt32(b)) & 31)), nil
	case "in":
		return hasProperty(b, ToString(a))
	}
	return rt.unsupported(fmt.Errorf("%w: operator %q", ErrUnsupported, op))
}

func (rt *Runtime) call(c *expr.Call) (any, error) {
	var (
		fn   Func
		this any
	)
	switch callee := c.Callee.(type) {
	case *expr.Identifier:
		m, ok := rt.methods[callee.Name]
		if !ok {
			return rt.unsupported(fmt.Errorf("%w: %s", ErrUnknownMethod, callee.Name))
		}
		fn = m
	case *expr.Member:
		if callee.Computed {
			return rt.unsupported(fmt.Errorf("%w: computed method call", ErrUnsupported))
		}
		obj, err := rt.Eval(callee.Object)
		if err != nil {
			return nil, err
		}
		key, err := rt.propertyKey(callee)
		if err != nil {
			return nil, err
		}
		m, err := method(obj, key)
		if err != nil {
			return nil, err
		}
		fn, this = m, obj
	default:
		return rt.unsupported(fmt.Errorf("%w: call target %s", ErrUnsupported, c.Callee.Type()))
	}

	args := make([]any, 0, len(c.Arguments))
	for _, a := range c.Arguments {
		v, err := rt.Eval(a)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}
	return fn(this, args)
}

func getProperty(obj any, key string) (any, error) {
	switch o := obj.(type) {
	case nil, UndefinedType:
		return nil, fmt.Errorf("%w: cannot read property %q of %s", ErrTypeError, key, ToString(obj))
	case *Object:
		if v, ok := o.Get(key); ok {
			return v, nil
		}
	case map[string]any:
		if v, ok := o[key]; ok {
			return v, nil
		}
	case []any:
		if key == "length" {
			return float64(len(o)), nil
		}
		if i, ok := indexKey(key); ok && i < len(o) {
			return o[i], nil
		}
	case string:
		if key == "length" {
			return float64(stringLength(o)), nil
		}
		if i, ok := indexKey(key); ok {
			runes := []rune(o)
			if i < len(runes) {
				return string(runes[i]), nil
			}
		}
	}
	return Undefined, nil
}

func hasProperty(obj any, key string) (any, error) {
	switch o := obj.(type) {
	case *Object:
		return o.Has(key), nil
	case map[string]any:
		_, ok := o[key]
		return ok, nil
	case []any:
		if key == "length" {
			return true, nil
		}
		i, ok := indexKey(key)
		return ok && i < len(o), nil
	}
	return nil, fmt.Errorf("%w: cannot use 'in' to search for %q in %s", ErrTypeError, key, ToString(obj))
}

// method resolves obj.key as a callable, falling back to the built-in string,
// array and number methods.
func method(obj any, key string) (Func, error) {
	v, err := getProperty(obj, key)
	if err != nil {
		return nil, err
	}
	if fn, ok := v.(Func); ok {
		return fn, nil
	}
	if fn, ok := builtin(obj, key); ok {
		return fn, nil
	}
	return nil, fmt.Errorf("%w: %s.%s is not a function", ErrTypeError, ToString(obj), key)
}

func builtin(obj any, key string) (Func, bool) {
	switch o := obj.(type) {
	case string:
		switch key {
		case "toUpperCase":
			return func(any, []any) (any, error) { return strings.ToUpper(o), nil }, true
		case "toLowerCase":
			return func(any, []any) (any, error) { return strings.ToLower(o), nil }, true
		case "trim":
			return func(any, []any) (any, error) { return strings.TrimSpace(o), nil }, true
		case "toString":
			return func(any, []any) (any, error) { return o, nil }, true
		case "indexOf":
			return func(_ any, args []any) (any, error) {
				i := strings.Index(o, ToString(arg(args, 0)))
				if i < 0 {
					return -1.0, nil
				}
				return float64(stringLength(o[:i])), nil
			}, true
		case "includes":
			return func(_ any, args []any) (any, error) { return strings.Contains(o, ToString(arg(args, 0))), nil }, true
		case "startsWith":
			return func(_ any, args []any) (any, error) { return strings.HasPrefix(o, ToString(arg(args, 0))), nil }, true
		case "endsWith":
			return func(_ any, args []any) (any, error) { return strings.HasSuffix(o, ToString(arg(args, 0))), nil }, true
		}
	case []any:
		switch key {
		case "join":
			return func(_ any, args []any) (any, error) {
				sep := ","
				if a := arg(args, 0); a != Undefined {
					sep = ToString(a)
				}
				parts := make([]string, len(o))
				for i, e := range o {
					if e != nil && e != Undefined {
						parts[i] = ToString(e)
					}
				}
				return strings.Join(parts, sep), nil
			}, true
		case "indexOf", "includes":
			return func(_ any, args []any) (any, error) {
				needle := arg(args, 0)
				for i, e := range o {
					if strictEquals(e, needle) {
						if key == "includes" {
							return true, nil
						}
						return float64(i), nil
					}
				}
				if key == "includes" {
					return false, nil
				}
				return -1.0, nil
			}, true
		}
	}
	if isNumber(obj) {
		n := toNumber(obj)
		switch key {
		case "toFixed":
			return func(_ any, args []any) (any, error) {
				digits := 0
				if a := arg(args, 0); a != Undefined {
					digits = int(toNumber(a))
				}
				if digits < 0 || digits > 100 {
					return nil, fmt.Errorf("%w: toFixed() digits argument must be between 0 and 100", ErrTypeError)
				}
				return fmt.Sprintf("%.*f", digits, n), nil
			}, true
		case "toString":
			return func(any, []any) (any, error) { return formatNumber(n), nil }, true
		}
	}
	return nil, false
}

func arg(args []any, i int) any {
	if i < len(args) {
		return args[i]
	}
	return Undefined
}
