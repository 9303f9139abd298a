// redstone-analyzer answers editor queries about redstone documents.
// It runs as a long-lived process communicating via JSON-RPC over stdin/stdout.
package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"slices"

	"github.com/njreid/redstone/pkg/expr"
	"github.com/njreid/redstone/pkg/reactive"
	"github.com/njreid/redstone/pkg/redstone"
)

// JSON-RPC request/response types
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

type Response struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      int       `json:"id"`
	Result  any       `json:"result,omitempty"`
	Error   *RPCError `json:"error,omitempty"`
}

type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

const (
	codeParseError     = -32700
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeServerError    = -32000
)

// Request params
type AnalyzeExprParams struct {
	Expression string `json:"expression"` // e.g., "user.name + suffix"
}

type CompileParams struct {
	Source string `json:"source"`
	Minify bool   `json:"minify"`
}

type EvaluateParams struct {
	Expression string         `json:"expression"`
	Variables  map[string]any `json:"variables"`
	Strict     bool           `json:"strict"`
}

// Response results
type AnalyzeExprResult struct {
	Valid     bool            `json:"valid"`
	Variables []string        `json:"variables,omitempty"`
	Functions []string        `json:"functions,omitempty"`
	AST       json.RawMessage `json:"ast,omitempty"`
	Error     string          `json:"error,omitempty"`
}

type CompileResult struct {
	OK     bool   `json:"ok"`
	Client string `json:"client,omitempty"`
	Server string `json:"server,omitempty"`
	Error  string `json:"error,omitempty"`
	Line   int    `json:"line,omitempty"`
}

type EvaluateResult struct {
	Value   any    `json:"value"`
	Display string `json:"display"`
}

func main() {
	if err := serve(os.Stdin, os.Stdout); err != nil {
		log.Fatal(err)
	}
}

// serve handles one request per input line until shutdown or end of input.
func serve(in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	// Documents arrive inline, so allow large requests.
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	encoder := json.NewEncoder(out)

	for scanner.Scan() {
		var req Request
		if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
			if err := encoder.Encode(Response{
				JSONRPC: "2.0",
				Error:   &RPCError{Code: codeParseError, Message: fmt.Sprintf("Parse error: %v", err)},
			}); err != nil {
				return err
			}
			continue
		}

		result, rpcErr := dispatch(req)
		if err := encoder.Encode(Response{JSONRPC: "2.0", ID: req.ID, Result: result, Error: rpcErr}); err != nil {
			return err
		}
		if req.Method == "shutdown" {
			return nil
		}
	}
	return scanner.Err()
}

func dispatch(req Request) (any, *RPCError) {
	switch req.Method {
	case "analyzeExpression":
		var params AnalyzeExprParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return nil, invalidParams(err)
		}
		return analyzeExpression(params.Expression), nil

	case "compile":
		var params CompileParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return nil, invalidParams(err)
		}
		return compile(params), nil

	case "evaluate":
		var params EvaluateParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return nil, invalidParams(err)
		}
		res, err := evaluate(params)
		if err != nil {
			return nil, &RPCError{Code: codeServerError, Message: err.Error()}
		}
		return res, nil

	case "shutdown":
		return map[string]bool{"shutdown": true}, nil
	}
	return nil, &RPCError{Code: codeMethodNotFound, Message: fmt.Sprintf("Method not found: %s", req.Method)}
}

func invalidParams(err error) *RPCError {
	return &RPCError{Code: codeInvalidParams, Message: fmt.Sprintf("Invalid params: %v", err)}
}

func analyzeExpression(src string) AnalyzeExprResult {
	e, err := expr.Parse(src)
	if err != nil {
		return AnalyzeExprResult{Error: err.Error()}
	}
	vars, funcs, err := redstone.FindVarNames(e)
	if err != nil {
		return AnalyzeExprResult{Error: err.Error()}
	}
	ast, err := json.Marshal(e)
	if err != nil {
		return AnalyzeExprResult{Error: err.Error()}
	}
	return AnalyzeExprResult{Valid: true, Variables: vars, Functions: funcs, AST: ast}
}

func compile(params CompileParams) CompileResult {
	c := redstone.NewCompiler()
	c.Logger = log.New(io.Discard, "", 0)
	c.Options.Minify = params.Minify

	res, err := c.Generate(params.Source)
	if err != nil {
		out := CompileResult{Error: err.Error()}
		var serr *redstone.SyntaxError
		if errors.As(err, &serr) {
			out.Line = serr.Line
		}
		return out
	}
	return CompileResult{OK: true, Client: res.Client, Server: res.Server}
}

// evaluate runs one expression through the client runtime with the given
// variable values.
func evaluate(params EvaluateParams) (*EvaluateResult, error) {
	e, err := expr.Parse(params.Expression)
	if err != nil {
		return nil, err
	}
	if _, _, err := redstone.FindVarNames(e); err != nil {
		return nil, err
	}

	rt := reactive.New(&reactive.Bootstrap{}, reactive.NewMemoryRenderer(), reactive.WithStrict(params.Strict))
	defer rt.Close()
	if err := rt.Init(); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(params.Variables))
	for name := range params.Variables {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		if _, err := rt.UpdateVariable(name, params.Variables[name]); err != nil {
			return nil, err
		}
	}

	v, err := rt.Eval(e)
	if err != nil {
		return nil, err
	}
	res := &EvaluateResult{Display: reactive.ToString(v)}
	switch v.(type) {
	case nil, bool, float64, string, []any, map[string]any:
		res.Value = v
	}
	return res, nil
}
