package expression

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

type CompiledExpression struct {
	Program *vm.Program
	Text    string
}

// Compile compiles each non-empty expression against the file environment. Every expression
// must evaluate to a bool.
func Compile(texts []string) ([]CompiledExpression, error) {
	var out []CompiledExpression
	for _, text := range texts {
		if text == "" {
			continue
		}

		program, err := expr.Compile(text, expr.Env(&evalContext{}), expr.AsBool())
		if err != nil {
			return nil, fmt.Errorf("compile expression %q: %w", text, err)
		}

		out = append(out, CompiledExpression{Program: program, Text: text})
	}

	return out, nil
}
