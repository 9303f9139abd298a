package redstone

import "strings"

// Line is one non-blank source line of the UI section.
type Line struct {
	Number int    // 1-based position in the UI source
	Indent int    // leading tab count
	Data   string // content after the leading tabs, right-trimmed
	Raw    string // the line as written
}

// SplitLines splits src into lines, measures tab indentation and drops lines
// that are empty or whitespace-only.
func SplitLines(src string) []Line {
	var out []Line
	for i, raw := range strings.Split(src, "\n") {
		raw = strings.TrimSuffix(raw, "\r")
		if strings.TrimSpace(raw) == "" {
			continue
		}
		indent := 0
		for indent < len(raw) && raw[indent] == '\t' {
			indent++
		}
		out = append(out, Line{
			Number: i + 1,
			Indent: indent,
			Data:   strings.TrimRight(raw[indent:], " \t"),
			Raw:    raw,
		})
	}
	return out
}
