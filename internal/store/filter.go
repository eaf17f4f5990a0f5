package store

import (
	"fmt"

	"github.com/google/cel-go/cel"
)

// Filter is a compiled CEL boolean expression over a record's url, title,
// count, tags and source, e.g. `count > 1 && "button" in tags`.
type Filter struct {
	expr string
	prg  cel.Program
}

var filterEnv, filterEnvErr = cel.NewEnv(
	cel.Variable("url", cel.StringType),
	cel.Variable("title", cel.StringType),
	cel.Variable("count", cel.IntType),
	cel.Variable("tags", cel.ListType(cel.StringType)),
	cel.Variable("source", cel.StringType),
)

// CompileFilter parses and type-checks expr. An empty expression yields a
// nil filter, which matches everything.
func CompileFilter(expr string) (*Filter, error) {
	if expr == "" {
		return nil, nil
	}
	if filterEnvErr != nil {
		return nil, fmt.Errorf("filter env: %w", filterEnvErr)
	}
	ast, iss := filterEnv.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("compile filter %q: %w", expr, iss.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("filter %q must evaluate to bool, got %s", expr, ast.OutputType())
	}
	prg, err := filterEnv.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program filter %q: %w", expr, err)
	}
	return &Filter{expr: expr, prg: prg}, nil
}

// String returns the source expression.
func (f *Filter) String() string {
	if f == nil {
		return ""
	}
	return f.expr
}

// Match evaluates the filter against r.
func (f *Filter) Match(r Record) (bool, error) {
	if f == nil {
		return true, nil
	}
	tags := r.Tags
	if tags == nil {
		tags = []string{}
	}
	out, _, err := f.prg.Eval(map[string]any{
		"url":    r.URL,
		"title":  r.Title,
		"count":  int64(r.Count),
		"tags":   tags,
		"source": r.Source,
	})
	if err != nil {
		return false, fmt.Errorf("eval filter %q: %w", f.expr, err)
	}
	b, ok := out.Value().(bool)
	return ok && b, nil
}
