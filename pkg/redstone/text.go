package redstone

import "strings"

// ParseText splits a text fragment into literal Text and DynamicExpression
// nodes around {{ and }}. Empty literal fragments are omitted.
func ParseText(s string) ([]Node, error) {
	var nodes []Node
	for s != "" {
		open := strings.Index(s, "{{")
		closeAt := strings.Index(s, "}}")
		if open < 0 {
			if closeAt >= 0 {
				return nil, syntaxErr(0, ErrBraceMismatch, "%q closed without being opened", "}}")
			}
			nodes = append(nodes, Text(s))
			break
		}
		if closeAt >= 0 && closeAt < open {
			return nil, syntaxErr(0, ErrBraceMismatch, "%q closed before %q", "}}", "{{")
		}

		if open > 0 {
			nodes = append(nodes, Text(s[:open]))
		}
		rest := s[open+2:]
		end := strings.Index(rest, "}}")
		if end < 0 {
			return nil, syntaxErr(0, ErrBraceMismatch, "unclosed %q", "{{")
		}
		if nested := strings.Index(rest[:end], "{{"); nested >= 0 {
			return nil, syntaxErr(0, ErrBraceMismatch, "nested %q", "{{")
		}
		nodes = append(nodes, &DynamicExpression{Expression: rest[:end]})
		s = rest[end+2:]
	}
	return nodes, nil
}
