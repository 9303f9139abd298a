package redstone

import (
	"strings"
)

// Parse parses the UI section of a document into its top-level nodes.
func Parse(src string) ([]Node, error) {
	p := &parser{lines: SplitLines(src)}
	return p.parseChildren(-1)
}

type parser struct {
	lines []Line
	pos   int
}

func (p *parser) more(parentIndent int) bool {
	return p.pos < len(p.lines) && p.lines[p.pos].Indent > parentIndent
}

// parseChildren parses every line nested deeper than parentIndent.
func (p *parser) parseChildren(parentIndent int) ([]Node, error) {
	var nodes []Node
	for p.more(parentIndent) {
		n, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

// parseBlock parses the line at p.pos and everything nested under it.
func (p *parser) parseBlock() (Node, error) {
	line := p.lines[p.pos]
	switch {
	case strings.HasPrefix(line.Data, "{{#"):
		return p.parseDynamicBlock()
	case strings.HasPrefix(line.Data, "{{/"):
		return nil, syntaxErr(line.Number, ErrUnexpectedBlockClose, "%s", line.Data)
	}

	header, content, mode := parseTagline(line.Data)
	tag, err := parseTagData(header)
	if err != nil {
		return nil, atLine(line.Number, err)
	}
	p.pos++

	if content != "" {
		nodes, err := ParseText(content)
		if err != nil {
			return nil, atLine(line.Number, err)
		}
		tag.Content = append(tag.Content, nodes...)
	}

	switch mode {
	case modeText:
		err = p.parseTextBlock(tag, line.Indent)
	case modeExtendedText:
		err = p.parseExtendedTextBlock(tag, line.Indent)
	default:
		var children []Node
		children, err = p.parseChildren(line.Indent)
		tag.Content = append(tag.Content, children...)
	}
	if err != nil {
		return nil, err
	}
	return tag, nil
}

// textBuffer accumulates consecutive text lines of a text block.
type textBuffer struct {
	lines []string
	first int
}

func (b *textBuffer) add(line Line, text string) {
	if len(b.lines) == 0 {
		b.first = line.Number
	}
	b.lines = append(b.lines, text)
}

func (b *textBuffer) flushInto(tag *Tag) error {
	if len(b.lines) == 0 {
		return nil
	}
	nodes, err := ParseText(strings.Join(b.lines, "\n"))
	if err != nil {
		return atLine(b.first, err)
	}
	tag.Content = append(tag.Content, nodes...)
	b.lines = b.lines[:0]
	return nil
}

// parseTextBlock reads nested lines as text while they share the indentation
// of the first one. A line at any other depth is parsed as a block.
func (p *parser) parseTextBlock(tag *Tag, indent int) error {
	var buf textBuffer
	textIndent := -1
	for p.more(indent) {
		line := p.lines[p.pos]
		if textIndent < 0 {
			textIndent = line.Indent
		}
		if line.Indent == textIndent {
			buf.add(line, line.Data)
			p.pos++
			continue
		}
		if err := buf.flushInto(tag); err != nil {
			return err
		}
		n, err := p.parseBlock()
		if err != nil {
			return err
		}
		tag.Content = append(tag.Content, n)
	}
	return buf.flushInto(tag)
}

// parseExtendedTextBlock reads every nested line as text. Tabs beyond the
// block's base level are kept.
func (p *parser) parseExtendedTextBlock(tag *Tag, indent int) error {
	var buf textBuffer
	base := indent + 1
	for p.more(indent) {
		line := p.lines[p.pos]
		buf.add(line, strings.TrimRight(line.Raw[base:], " \t"))
		p.pos++
	}
	return buf.flushInto(tag)
}

// blockTag splits `{{#keyword argument}}` or `{{/keyword}}`. ok is false when
// data is not a block tag line.
func blockTag(data string) (sigil byte, keyword, arg string, ok bool) {
	if len(data) < 4 || !strings.HasPrefix(data, "{{") || (data[2] != '#' && data[2] != '/') {
		return 0, "", "", false
	}
	if !strings.HasSuffix(data, "}}") {
		return 0, "", "", false
	}
	inner := strings.TrimSpace(data[3 : len(data)-2])
	keyword, arg, _ = strings.Cut(inner, " ")
	return data[2], keyword, strings.TrimSpace(arg), true
}

func (p *parser) parseDynamicBlock() (Node, error) {
	line := p.lines[p.pos]
	_, keyword, arg, ok := blockTag(line.Data)
	if !ok {
		return nil, syntaxErr(line.Number, ErrBraceMismatch, "block tag must end with %q: %s", "}}", line.Data)
	}

	kind := BlockKind(keyword)
	switch kind {
	case BlockIf, BlockUnless, BlockEach, BlockWith:
	case "else":
		return nil, syntaxErr(line.Number, ErrStandaloneElse, "")
	default:
		return nil, syntaxErr(line.Number, ErrUnknownBlockKeyword, "%q", keyword)
	}
	if arg == "" {
		return nil, syntaxErr(line.Number, ErrInvalidExpression, "%s requires an expression", keyword)
	}
	p.pos++

	if kind == BlockEach || kind == BlockWith {
		body, err := p.parseChildren(line.Indent)
		if err != nil {
			return nil, err
		}
		p.consumeClose(line.Indent, kind)
		return &EachBlock{Kind: kind, Object: arg, Body: body}, nil
	}

	blk := &IfBlock{Kind: kind, Predicate: arg}
	var err error
	if blk.TrueBranch, err = p.parseChildren(line.Indent); err != nil {
		return nil, err
	}
	for p.pos < len(p.lines) && p.lines[p.pos].Indent == line.Indent {
		next := p.lines[p.pos]
		sigil, kw, rest, ok := blockTag(next.Data)
		if !ok || sigil != '#' || kw != "else" {
			break
		}
		if blk.HasElse {
			return nil, syntaxErr(next.Number, ErrDuplicateElse, "")
		}
		if rest != "" {
			return nil, syntaxErr(next.Number, ErrElseArguments, "%q", rest)
		}
		p.pos++
		blk.HasElse = true
		if blk.FalseBranch, err = p.parseChildren(line.Indent); err != nil {
			return nil, err
		}
	}
	p.consumeClose(line.Indent, kind)
	return blk, nil
}

// consumeClose skips an optional `{{/kind}}` at the block's own indentation.
func (p *parser) consumeClose(indent int, kind BlockKind) {
	if p.pos >= len(p.lines) || p.lines[p.pos].Indent != indent {
		return
	}
	sigil, kw, _, ok := blockTag(p.lines[p.pos].Data)
	if ok && sigil == '/' && BlockKind(kw) == kind {
		p.pos++
	}
}
