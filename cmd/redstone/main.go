// redstone compiles a .redstone document into a client page and a server
// program.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/njreid/redstone/pkg/clientjs"
	"github.com/njreid/redstone/pkg/redstone"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("redstone", flag.ContinueOnError)
	fs.SetOutput(stderr)
	clientPath := fs.String("client", filepath.Join("client_env", "index.html"), "where to write the client page")
	serverPath := fs.String("server", filepath.Join("server_env", "server.js"), "where to write the server program")
	assets := fs.Bool("assets", true, "write the runtime scripts next to the client page")
	minify := fs.Bool("minify", false, "minify the client page and server program")
	verbose := fs.Bool("v", false, "log each compile stage")
	serveAddr := fs.String("serve", "", "serve the page on this address and recompile on change")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: redstone [options] <input.redstone>\n\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(stderr, "No input file given.")
		fs.Usage()
		return 1
	}
	input := fs.Arg(0)

	src, err := os.ReadFile(input)
	if err != nil {
		fmt.Fprintf(stderr, "Could not read file %s: %v\n", input, err)
		return 1
	}

	c := redstone.NewCompiler()
	c.Logger = log.New(stderr, "", log.LstdFlags)
	c.Options.Minify = *minify
	c.Verbose = *verbose

	if *serveAddr != "" {
		return serve(*serveAddr, newDevServer(c, input, c.Logger), stdout)
	}

	res, err := c.Generate(string(src))
	if err != nil {
		fmt.Fprintf(stderr, "Compile failed: %s: %v\n", input, err)
		return 1
	}

	outputs := []struct {
		path, data string
	}{
		{*serverPath, res.Server},
		{*clientPath, res.Client},
	}
	for _, o := range outputs {
		if err := writeFile(o.path, o.data); err != nil {
			fmt.Fprintf(stderr, "Error writing %s: %v\n", o.path, err)
			return 1
		}
	}
	if *assets {
		if err := clientjs.WriteTo(filepath.Dir(*clientPath)); err != nil {
			fmt.Fprintf(stderr, "Error writing runtime scripts: %v\n", err)
			return 1
		}
	}

	fmt.Fprintf(stdout, "Wrote %s and %s\n", *clientPath, *serverPath)
	return 0
}

func writeFile(path, data string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(data), 0644)
}
