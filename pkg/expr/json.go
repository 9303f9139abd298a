package expr

import (
	"encoding/json"
	"fmt"
)

func (n *Literal) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type  string `json:"type"`
		Value any    `json:"value"`
		Raw   string `json:"raw"`
	}{TypeLiteral, n.Value, n.Raw})
}

func (n *Identifier) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type      string `json:"type"`
		Name      string `json:"name"`
		IsInCrumb bool   `json:"isInCrumb,omitempty"`
	}{TypeIdentifier, n.Name, n.IsInCrumb})
}

func (n *Member) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type     string `json:"type"`
		Computed bool   `json:"computed"`
		Object   Expr   `json:"object"`
		Property Expr   `json:"property"`
	}{TypeMember, n.Computed, n.Object, n.Property})
}

func (n *Binary) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type     string `json:"type"`
		Operator string `json:"operator"`
		Left     Expr   `json:"left"`
		Right    Expr   `json:"right"`
	}{TypeBinary, n.Operator, n.Left, n.Right})
}

func (n *Logical) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type     string `json:"type"`
		Operator string `json:"operator"`
		Left     Expr   `json:"left"`
		Right    Expr   `json:"right"`
	}{TypeLogical, n.Operator, n.Left, n.Right})
}

func (n *Conditional) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type       string `json:"type"`
		Test       Expr   `json:"test"`
		Consequent Expr   `json:"consequent"`
		Alternate  Expr   `json:"alternate"`
	}{TypeConditional, n.Test, n.Consequent, n.Alternate})
}

func (n *Call) MarshalJSON() ([]byte, error) {
	args := n.Arguments
	if args == nil {
		args = []Expr{}
	}
	return json.Marshal(struct {
		Type      string `json:"type"`
		Callee    Expr   `json:"callee"`
		Arguments []Expr `json:"arguments"`
	}{TypeCall, n.Callee, args})
}

func (n *Unary) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type     string `json:"type"`
		Operator string `json:"operator"`
		Prefix   bool   `json:"prefix"`
		Argument Expr   `json:"argument"`
	}{TypeUnary, n.Operator, true, n.Argument})
}

// rawNode holds every field any supported node may carry.
type rawNode struct {
	Type       string            `json:"type"`
	Name       string            `json:"name"`
	IsInCrumb  bool              `json:"isInCrumb"`
	Value      json.RawMessage   `json:"value"`
	Raw        string            `json:"raw"`
	Operator   string            `json:"operator"`
	Computed   bool              `json:"computed"`
	Object     json.RawMessage   `json:"object"`
	Property   json.RawMessage   `json:"property"`
	Left       json.RawMessage   `json:"left"`
	Right      json.RawMessage   `json:"right"`
	Test       json.RawMessage   `json:"test"`
	Consequent json.RawMessage   `json:"consequent"`
	Alternate  json.RawMessage   `json:"alternate"`
	Callee     json.RawMessage   `json:"callee"`
	Arguments  []json.RawMessage `json:"arguments"`
	Argument   json.RawMessage   `json:"argument"`
	Expression json.RawMessage   `json:"expression"`
	Body       []json.RawMessage `json:"body"`
}

// Unmarshal rebuilds a tree from its ESTree JSON form. A Program wrapping a
// single ExpressionStatement is unwrapped.
func Unmarshal(data []byte) (Expr, error) {
	var n rawNode
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("decode expression node: %w", err)
	}

	switch n.Type {
	case "Program":
		if len(n.Body) != 1 {
			return nil, fmt.Errorf("program must hold exactly one statement, has %d", len(n.Body))
		}
		return Unmarshal(n.Body[0])
	case "ExpressionStatement":
		return Unmarshal(n.Expression)
	case TypeLiteral:
		var v any
		if len(n.Value) > 0 {
			if err := json.Unmarshal(n.Value, &v); err != nil {
				return nil, fmt.Errorf("decode literal value: %w", err)
			}
		}
		return &Literal{Value: v, Raw: n.Raw}, nil
	case TypeIdentifier:
		return &Identifier{Name: n.Name, IsInCrumb: n.IsInCrumb}, nil
	case TypeMember:
		obj, prop, err := unmarshalPair(n.Object, n.Property)
		if err != nil {
			return nil, err
		}
		return &Member{Object: obj, Property: prop, Computed: n.Computed}, nil
	case TypeBinary, TypeLogical:
		left, right, err := unmarshalPair(n.Left, n.Right)
		if err != nil {
			return nil, err
		}
		if n.Type == TypeLogical {
			return &Logical{Operator: n.Operator, Left: left, Right: right}, nil
		}
		return &Binary{Operator: n.Operator, Left: left, Right: right}, nil
	case TypeConditional:
		test, cons, err := unmarshalPair(n.Test, n.Consequent)
		if err != nil {
			return nil, err
		}
		alt, err := Unmarshal(n.Alternate)
		if err != nil {
			return nil, err
		}
		return &Conditional{Test: test, Consequent: cons, Alternate: alt}, nil
	case TypeCall:
		callee, err := Unmarshal(n.Callee)
		if err != nil {
			return nil, err
		}
		args := make([]Expr, 0, len(n.Arguments))
		for _, raw := range n.Arguments {
			arg, err := Unmarshal(raw)
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
		}
		return &Call{Callee: callee, Arguments: args}, nil
	case TypeUnary:
		arg, err := Unmarshal(n.Argument)
		if err != nil {
			return nil, err
		}
		return &Unary{Operator: n.Operator, Argument: arg}, nil
	case "":
		return nil, fmt.Errorf("expression node without type")
	}
	return nil, fmt.Errorf("unknown expression node type %q", n.Type)
}

func unmarshalPair(a, b json.RawMessage) (Expr, Expr, error) {
	x, err := Unmarshal(a)
	if err != nil {
		return nil, nil, err
	}
	y, err := Unmarshal(b)
	if err != nil {
		return nil, nil, err
	}
	return x, y, nil
}
