package segment

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/cel-go/cel"
)

// ErrInvalidFilter is returned for expressions that do not compile.
var ErrInvalidFilter = errors.New("invalid segment filter")

// Filter wraps a compiled CEL program evaluated against segment handles. The
// zero value accepts everything.
type Filter struct {
	prog    cel.Program
	enabled bool
}

// NewFilter compiles expr. Available variables: from_ms, count,
// last_block_offset, size (int), position, key (string) and now_ms (int).
func NewFilter(expr string) (Filter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return Filter{}, nil
	}
	env, err := cel.NewEnv(
		cel.Variable("from_ms", cel.IntType),
		cel.Variable("count", cel.IntType),
		cel.Variable("last_block_offset", cel.IntType),
		cel.Variable("size", cel.IntType),
		cel.Variable("position", cel.StringType),
		cel.Variable("key", cel.StringType),
		cel.Variable("now_ms", cel.IntType),
	)
	if err != nil {
		return Filter{}, err
	}
	ast, iss := env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return Filter{}, fmt.Errorf("%w: %w", ErrInvalidFilter, iss.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return Filter{}, fmt.Errorf("%w: %q yields %s, not bool", ErrInvalidFilter, expr, ast.OutputType())
	}
	prog, err := env.Program(ast)
	if err != nil {
		return Filter{}, fmt.Errorf("%w: %w", ErrInvalidFilter, err)
	}
	return Filter{prog: prog, enabled: true}, nil
}

// Eval reports whether h matches. Evaluation errors reject.
func (f Filter) Eval(h *Handle) bool {
	if !f.enabled {
		return true
	}
	out, _, err := f.prog.Eval(map[string]any{
		"from_ms":           h.name.FromMs,
		"count":             h.name.Count,
		"last_block_offset": h.name.LastBlockOffset,
		"size":              h.size,
		"position":          h.name.FirstPosition,
		"key":               h.key,
		"now_ms":            time.Now().UnixMilli(),
	})
	if err != nil {
		return false
	}
	b, ok := out.Value().(bool)
	return ok && b
}
