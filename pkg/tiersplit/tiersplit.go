// Package tiersplit divides a document's script sources into the program that
// runs in the browser and the program that runs on the server, and generates
// the glue that lets the browser call server functions.
package tiersplit

import (
	"fmt"
	"regexp"
	"slices"
	"sort"
	"strings"
)

// Input is the script source of a document, grouped by the tier its author
// assigned it to.
type Input struct {
	Client []string
	Server []string
}

// Hints tells the partitioner which names the markup refers to.
type Hints struct {
	// Callbacks are event handlers installed on elements.
	Callbacks []string
	// FunctionNames are functions called from dynamic expressions.
	FunctionNames []string
	// Variables are client variables read by dynamic expressions.
	Variables []string
}

// Programs is the result of partitioning.
type Programs struct {
	Client string
	Server string
	// Remote names the server functions the client reaches through stubs.
	Remote []string
}

// Partitioner splits a document's scripts into client and server programs.
type Partitioner interface {
	Partition(in Input, hints Hints) (*Programs, error)
}

// Annotations partitions by the /* @client */ and /* @server */ markers the
// author wrote. Functions declared only on the server that the client needs
// are reached through REDSTONE.rpc stubs and exported by the server program.
type Annotations struct{}

var (
	functionDecl = regexp.MustCompile(`(?m)^[ \t]*(?:async[ \t]+)?function[ \t]*\*?[ \t]*([A-Za-z_$][\w$]*)[ \t]*\(`)
	identRef     = regexp.MustCompile(`[A-Za-z_$][\w$]*`)
)

func (Annotations) Partition(in Input, hints Hints) (*Programs, error) {
	client := joinChunks(in.Client)
	server := joinChunks(in.Server)

	clientFuncs := declaredFunctions(client)
	serverFuncs := declaredFunctions(server)

	for _, name := range serverFuncs {
		if slices.Contains(clientFuncs, name) {
			return nil, fmt.Errorf("function %q is declared on both client and server", name)
		}
	}

	needed := make(map[string]bool)
	for _, name := range hints.Callbacks {
		needed[name] = true
	}
	for _, name := range hints.FunctionNames {
		needed[name] = true
	}
	for _, name := range referencedNames(client) {
		needed[name] = true
	}

	var remote []string
	for _, name := range serverFuncs {
		if needed[name] {
			remote = append(remote, name)
		}
	}
	sort.Strings(remote)

	var cb strings.Builder
	cb.WriteString(client)
	for _, name := range remote {
		if cb.Len() > 0 {
			cb.WriteString("\n")
		}
		fmt.Fprintf(&cb, "function %s() {\n\treturn REDSTONE.rpc(%q, Array.prototype.slice.call(arguments));\n}", name, name)
	}

	var sb strings.Builder
	sb.WriteString(server)
	if len(remote) > 0 {
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("module.exports = {\n")
		for i, name := range remote {
			sep := ","
			if i == len(remote)-1 {
				sep = ""
			}
			fmt.Fprintf(&sb, "\t%q: %s%s\n", name, name, sep)
		}
		sb.WriteString("};")
	}

	return &Programs{Client: cb.String(), Server: sb.String(), Remote: remote}, nil
}

func joinChunks(chunks []string) string {
	var parts []string
	for _, c := range chunks {
		if c = strings.TrimSpace(c); c != "" {
			parts = append(parts, c)
		}
	}
	return strings.Join(parts, "\n")
}

// declaredFunctions returns the names of function declarations that start a
// line, in source order.
func declaredFunctions(src string) []string {
	var names []string
	for _, m := range functionDecl.FindAllStringSubmatch(src, -1) {
		if !slices.Contains(names, m[1]) {
			names = append(names, m[1])
		}
	}
	return names
}

// referencedNames returns every identifier-looking word in src outside
// string literals and comments.
func referencedNames(src string) []string {
	return identRef.FindAllString(stripLiterals(src), -1)
}

// stripLiterals blanks out string literals and comments.
func stripLiterals(src string) string {
	out := []byte(src)
	for i := 0; i < len(out); i++ {
		switch c := out[i]; {
		case c == '"' || c == '\'' || c == '`':
			j := i + 1
			for j < len(out) && out[j] != c {
				if out[j] == '\\' {
					j++
				}
				j++
			}
			for k := i; k < len(out) && k <= j; k++ {
				out[k] = ' '
			}
			i = j
		case c == '/' && i+1 < len(out) && out[i+1] == '/':
			for i < len(out) && out[i] != '\n' {
				out[i] = ' '
				i++
			}
		case c == '/' && i+1 < len(out) && out[i+1] == '*':
			j := i + 2
			for j+1 < len(out) && !(out[j] == '*' && out[j+1] == '/') {
				j++
			}
			for k := i; k < len(out) && k <= j+1; k++ {
				out[k] = ' '
			}
			i = j + 1
		}
	}
	return string(out)
}
