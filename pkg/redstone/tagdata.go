package redstone

import (
	"strings"
)

// blockMode selects how the lines nested under a tag are read.
type blockMode int

const (
	modeBlock        blockMode = iota // nested tags
	modeText                          // `tag.`: lines are text
	modeExtendedText                  // `tag..`: lines are text, relative indentation kept
)

// parseTagline splits a line into tag data and inline content at the first
// space outside an attribute bracket. Without inline content a trailing `.`
// or `..` selects text mode for the nested lines.
func parseTagline(data string) (header, content string, mode blockMode) {
	depth := 0
	for i := 0; i < len(data); i++ {
		switch data[i] {
		case '[':
			depth++
		case ']':
			if depth > 0 {
				depth--
			}
		case ' ':
			if depth == 0 {
				return data[:i], data[i+1:], modeBlock
			}
		}
	}
	switch {
	case strings.HasSuffix(data, ".."):
		return strings.TrimSuffix(data, ".."), "", modeExtendedText
	case strings.HasSuffix(data, "."):
		return strings.TrimSuffix(data, "."), "", modeText
	}
	return data, "", modeBlock
}

type tagTokenKind int

const (
	tokName tagTokenKind = iota
	tokSeparator
	tokAttribute
)

type tagToken struct {
	kind  tagTokenKind
	text  string // name text, or the separator character
	value string // attribute value
}

// tokenizeTagData breaks `tag#id.class[name=value]` into names, separators
// and attributes.
func tokenizeTagData(data string) ([]tagToken, error) {
	var (
		toks     []tagToken
		buf      strings.Builder
		inAttr   bool
		hasValue bool
		name     strings.Builder
		value    strings.Builder
	)

	flush := func() {
		if buf.Len() > 0 {
			toks = append(toks, tagToken{kind: tokName, text: buf.String()})
			buf.Reset()
		}
	}

	for i := 0; i < len(data); i++ {
		c := data[i]

		if inAttr {
			switch {
			case c == ']':
				if name.Len() == 0 {
					return nil, syntaxErr(0, ErrUnknownCharacter, "attribute without a name in %q", data)
				}
				toks = append(toks, tagToken{kind: tokAttribute, text: name.String(), value: value.String()})
				inAttr = false
			case hasValue:
				value.WriteByte(c)
			case c == '=':
				hasValue = true
			case name.Len() == 0 && isDigit(c):
				return nil, syntaxErr(0, ErrUnknownCharacter, "attribute name cannot start with %q", c)
			default:
				name.WriteByte(c)
			}
			continue
		}

		switch {
		case isLetter(c):
			buf.WriteByte(c)
		case isDigit(c) || c == '-' || c == '_':
			if buf.Len() == 0 {
				return nil, syntaxErr(0, ErrUnknownCharacter, "name cannot start with %q", c)
			}
			buf.WriteByte(c)
		case c == '.' || c == '#':
			flush()
			toks = append(toks, tagToken{kind: tokSeparator, text: string(c)})
		case c == '[':
			flush()
			inAttr, hasValue = true, false
			name.Reset()
			value.Reset()
		default:
			return nil, syntaxErr(0, ErrUnknownCharacter, "%q in %q", c, data)
		}
	}

	if inAttr {
		return nil, syntaxErr(0, ErrUnterminatedAttribute, "%q", data)
	}
	flush()
	return toks, nil
}

// parseTagData builds a Tag from its header. `[id=...]` and `[class=...]`
// attributes fold into the id and class list.
func parseTagData(data string) (*Tag, error) {
	toks, err := tokenizeTagData(data)
	if err != nil {
		return nil, err
	}
	if len(toks) == 0 || toks[0].kind != tokName {
		return nil, syntaxErr(0, ErrMissingTagName, "%q", data)
	}

	tag := &Tag{Name: toks[0].text}
	setID := func(id string) error {
		if tag.ID != "" {
			return syntaxErr(0, ErrDuplicateID, "%q and %q", tag.ID, id)
		}
		tag.ID = id
		return nil
	}

	for i := 1; i < len(toks); i++ {
		tok := toks[i]
		switch tok.kind {
		case tokSeparator:
			if i+1 >= len(toks) || toks[i+1].kind != tokName {
				return nil, syntaxErr(0, ErrTokenOverflow, "%q must be followed by a name in %q", tok.text, data)
			}
			i++
			if tok.text == "#" {
				if err := setID(toks[i].text); err != nil {
					return nil, err
				}
			} else {
				tag.Classes = append(tag.Classes, toks[i].text)
			}
		case tokAttribute:
			switch tok.text {
			case "id":
				if err := setID(tok.value); err != nil {
					return nil, err
				}
			case "class":
				tag.Classes = append(tag.Classes, strings.Fields(tok.value)...)
			default:
				if tag.Attr(tok.text) != nil {
					return nil, syntaxErr(0, ErrDuplicateAttribute, "%q", tok.text)
				}
				tag.Attributes = append(tag.Attributes, &Attribute{Name: tok.text, Value: tok.value})
			}
		default:
			return nil, syntaxErr(0, ErrTokenOverflow, "unexpected name %q in %q", tok.text, data)
		}
	}
	return tag, nil
}

func isLetter(c byte) bool { return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') }

func isDigit(c byte) bool { return '0' <= c && c <= '9' }
