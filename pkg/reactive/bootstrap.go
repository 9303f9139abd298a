package reactive

import (
	"encoding/json"
	"fmt"

	"github.com/njreid/redstone/pkg/expr"
)

// Crumb is a compiled dynamic expression site.
type Crumb struct {
	ID            string    `json:"-"`
	VariableNames []string  `json:"variableNames"`
	Expr          expr.Expr `json:"parsedExpression"`
}

func (c *Crumb) UnmarshalJSON(data []byte) error {
	var raw struct {
		VariableNames    []string        `json:"variableNames"`
		ParsedExpression json.RawMessage `json:"parsedExpression"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	e, err := expr.Unmarshal(raw.ParsedExpression)
	if err != nil {
		return err
	}
	c.VariableNames = raw.VariableNames
	c.Expr = e
	return nil
}

// Bootstrap is the set of tables a compiled page hands its runtime.
type Bootstrap struct {
	// Crumbs maps a crumb id to its expression.
	Crumbs map[string]*Crumb `json:"crumbs"`
	// VarToCrumbIDs lists, per variable, the crumbs that depend on it.
	VarToCrumbIDs map[string][]string `json:"varToCrumbIds"`
	// ExposedValues lists, per variable, the template keys bound to it.
	ExposedValues map[string][]string `json:"exposedValues"`
	// Methods names the functions expressions may call.
	Methods []string `json:"methods"`
	Strict  bool     `json:"strict"`
}

// ParseBootstrap decodes a Bootstrap from JSON.
func ParseBootstrap(data []byte) (*Bootstrap, error) {
	var b Bootstrap
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("decode bootstrap: %w", err)
	}
	for id, c := range b.Crumbs {
		if c == nil {
			return nil, fmt.Errorf("decode bootstrap: crumb %q is null", id)
		}
		c.ID = id
	}
	for v, ids := range b.VarToCrumbIDs {
		for _, id := range ids {
			if _, ok := b.Crumbs[id]; !ok {
				return nil, fmt.Errorf("decode bootstrap: variable %q refers to unknown crumb %q", v, id)
			}
		}
	}
	return &b, nil
}
