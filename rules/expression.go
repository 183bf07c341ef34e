package rules

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/liamcoop/lacvalidate/dataset"
)

// expressionCostLimit bounds the work one row evaluation may do.
const expressionCostLimit = 1000000

// ExpressionSpec describes a row-level rule written as a CEL expression.
// The expression sees two variables:
//
//	row   the current row as map(string, dyn)
//	meta  collection_start, collection_end (timestamps) and authority
//
// Rows for which the expression evaluates to true are flagged.
type ExpressionSpec struct {
	Code           string
	Message        string
	Table          string
	Expression     string
	AffectedFields []string
}

var (
	exprEnv     *cel.Env
	exprEnvErr  error
	exprEnvOnce sync.Once
)

func expressionEnv() (*cel.Env, error) {
	exprEnvOnce.Do(func() {
		exprEnv, exprEnvErr = cel.NewEnv(
			cel.Variable("row", cel.MapType(cel.StringType, cel.DynType)),
			cel.Variable("meta", cel.MapType(cel.StringType, cel.DynType)),
		)
	})
	return exprEnv, exprEnvErr
}

// CompileExpression compiles a CEL expression against the row environment.
// Expressions that are not boolean are rejected.
func CompileExpression(expression string) (cel.Program, error) {
	env, err := expressionEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile error: %w", issues.Err())
	}
	if out := ast.OutputType(); !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("expression must be boolean, got %s", out)
	}

	prog, err := env.Program(ast, cel.CostLimit(expressionCostLimit))
	if err != nil {
		return nil, fmt.Errorf("program creation error: %w", err)
	}
	return prog, nil
}

// NewExpressionRule compiles spec into a RuleDefinition. Compilation errors
// are reported as InvalidRuleDefinitionError.
func NewExpressionRule(spec ExpressionSpec) (RuleDefinition, error) {
	if spec.Table == "" {
		return RuleDefinition{}, &InvalidRuleDefinitionError{Code: spec.Code, Reason: "table is empty"}
	}
	prog, err := CompileExpression(spec.Expression)
	if err != nil {
		return RuleDefinition{}, &InvalidRuleDefinitionError{Code: spec.Code, Reason: "expression does not compile", Err: err}
	}

	d := RuleDefinition{
		Code:             spec.Code,
		Message:          spec.Message,
		AffectedFields:   spec.AffectedFields,
		ApplicableTables: []string{spec.Table},
		Predicate:        rowPredicate(spec.Table, prog),
	}
	if err := d.Validate(); err != nil {
		return RuleDefinition{}, err
	}
	return d, nil
}

func rowPredicate(table string, prog cel.Program) Predicate {
	return func(ctx context.Context, b *dataset.Bundle) (Outcome, error) {
		t, ok := b.Table(table)
		if !ok {
			return nil, NotApplicable("table %s not supplied", table)
		}

		meta := b.Metadata()
		metaVars := map[string]any{
			"collection_start": meta.CollectionStart,
			"collection_end":   meta.CollectionEnd,
			"authority":        meta.Authority,
		}

		var flagged []int
		for i := 0; i < t.Len(); i++ {
			if i%256 == 0 {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
			}
			out, _, err := prog.Eval(map[string]any{
				"row":  t.Row(i),
				"meta": metaVars,
			})
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", i, err)
			}
			if matched, ok := out.Value().(bool); ok && matched {
				flagged = append(flagged, i)
			}
		}

		if len(flagged) == 0 {
			return Outcome{}, nil
		}
		return Outcome{table: flagged}, nil
	}
}
