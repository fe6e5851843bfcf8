package expression

import (
	"context"
	"fmt"

	"github.com/expr-lang/expr"
)

// CheckFileSingleMatchWithReason reports whether any expression holds and returns the first that did.
func CheckFileSingleMatchWithReason(ctx context.Context, f *File, expressions []CompiledExpression) (bool, string, error) {
	env := &evalContext{File: f}

	for _, expression := range expressions {
		if err := ctx.Err(); err != nil {
			return false, "", err
		}

		result, err := expr.Run(expression.Program, env)
		if err != nil {
			return false, "", fmt.Errorf("check expression: %w", err)
		}

		expResult, ok := result.(bool)
		if !ok {
			return false, "", fmt.Errorf("type assert expression result: %T", result)
		}

		if expResult {
			return true, expression.Text, nil
		}
	}

	return false, "", nil
}

// CheckFileAllMatchWithReason reports whether every expression holds and returns those that did not.
func CheckFileAllMatchWithReason(ctx context.Context, f *File, expressions []CompiledExpression) (bool, []string, error) {
	env := &evalContext{File: f}
	var failedExpressions []string

	for _, expression := range expressions {
		if err := ctx.Err(); err != nil {
			return false, nil, err
		}

		result, err := expr.Run(expression.Program, env)
		if err != nil {
			return false, nil, fmt.Errorf("check expression: %w", err)
		}

		expResult, ok := result.(bool)
		if !ok {
			return false, nil, fmt.Errorf("type assert expression result: %T", result)
		}

		if !expResult {
			failedExpressions = append(failedExpressions, expression.Text)
		}
	}

	if len(failedExpressions) > 0 {
		return false, failedExpressions, nil
	}

	return true, nil, nil
}
