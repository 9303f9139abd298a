package redstone

import (
	"fmt"
	"log"
	"strings"

	"github.com/njreid/redstone/pkg/tiersplit"
)

// Result holds the artifacts of one compile run.
type Result struct {
	// Client is the HTML document served to the browser.
	Client string
	// Server is the server program, runnable on its own.
	Server string
	// Context is the analysis state the artifacts were built from.
	Context *Context
}

// Compiler turns a combined source file into client and server artifacts.
// The zero value is not usable; start from NewCompiler.
type Compiler struct {
	// Options are the base options. Settings chunks in a document override
	// them for that document only.
	Options     Options
	Partitioner tiersplit.Partitioner
	Logger      *log.Logger
	// Verbose logs each stage.
	Verbose bool
}

// NewCompiler returns a compiler with default options that partitions by
// annotations and logs to the standard logger.
func NewCompiler() *Compiler {
	return &Compiler{
		Options:     DefaultOptions(),
		Partitioner: tiersplit.Annotations{},
		Logger:      log.Default(),
	}
}

// Generate compiles src with a default compiler.
func Generate(src string) (*Result, error) {
	return NewCompiler().Generate(src)
}

func (c *Compiler) tracef(format string, args ...any) {
	if c.Verbose {
		c.Logger.Printf(format, args...)
	}
}

// Generate runs every stage over src. It fails on the first error and
// returns no partial output.
func (c *Compiler) Generate(src string) (*Result, error) {
	logger := c.Logger
	if logger == nil {
		logger = log.Default()
	}
	partitioner := c.Partitioner
	if partitioner == nil {
		partitioner = tiersplit.Annotations{}
	}

	chunks := Split(src)
	for _, text := range chunks.Unknown {
		logger.Printf("Warning: ignoring %d bytes before the first chunk marker", len(strings.TrimSpace(text)))
	}
	c.tracef("split: %d ui, %d client, %d server, %d css, %d settings chunks",
		len(chunks.UI), len(chunks.Client), len(chunks.Server), len(chunks.CSS), len(chunks.Settings))

	opts := c.Options
	opts.Libraries = append([]string(nil), opts.Libraries...)
	if err := opts.ApplySettings(chunks.Settings); err != nil {
		return nil, err
	}

	ctx := NewContext(opts, logger)
	ctx.CSS = chunks.CSSSource()

	nodes, err := Parse(chunks.UISource())
	if err != nil {
		return nil, err
	}
	c.tracef("parse: %d top-level nodes", len(nodes))

	if err := Prepare(ctx, nodes); err != nil {
		return nil, err
	}
	c.tracef("prepare: %d crumbs, %d exposed values, %d callbacks", len(ctx.Crumbs), len(ctx.ExposedValues), len(ctx.Callbacks))

	programs, err := partitioner.Partition(
		tiersplit.Input{Client: chunks.Client, Server: chunks.Server},
		tiersplit.Hints{
			Callbacks:     ctx.Callbacks,
			FunctionNames: ctx.FunctionNames,
			Variables:     ctx.VariableNames(),
		},
	)
	if err != nil {
		return nil, fmt.Errorf("partitioning scripts: %w", err)
	}
	c.tracef("partition: %d remote functions", len(programs.Remote))

	nodes, err = Apply(ctx, nodes, programs, src)
	if err != nil {
		return nil, err
	}

	client, err := GenerateHTML(ctx, nodes)
	if err != nil {
		return nil, err
	}
	server := programs.Server

	if opts.Minify {
		if client, err = MinifyHTML(client); err != nil {
			return nil, err
		}
		if server, err = MinifyJS(server); err != nil {
			return nil, err
		}
		c.tracef("minify: client %d bytes, server %d bytes", len(client), len(server))
	}

	return &Result{Client: client, Server: server, Context: ctx}, nil
}
