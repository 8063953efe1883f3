package lang

import (
	"log/slog"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// compileCond compiles conditional expression source to a reusable program.
// Attribute names resolve at evaluation time, so undefined variables are
// permitted here.
func compileCond(source string) (*vm.Program, error) {
	program, err := expr.Compile(source, expr.AllowUndefinedVariables())
	if err != nil {
		return nil, ErrCondCompile.Wrap(err).
			With(slog.String("condition", source))
	}

	return program, nil
}

// evalCond runs a compiled condition against the attributes visible in
// scope and reduces the result to a boolean.
func evalCond(cond *Cond, scope *Scope) (bool, error) {
	env := condEnv(scope)

	result, err := expr.Run(cond.Program, env)
	if err != nil {
		return false, ErrCondEvaluate.Wrap(err).
			With(slog.String("condition", cond.Source))
	}

	return truthy(result), nil
}

// condEnv builds the evaluation environment: the built-in names overlaid
// with every visible attribute, converted to its native representation.
// Attributes shadow built-ins of the same name.
func condEnv(scope *Scope) map[string]any {
	env := makeEnvCache()

	for _, name := range scope.Names() {
		env[name] = native(scope.Resolve(name))
	}

	return env
}

// truthy reduces an arbitrary condition result to a boolean: nil and empty
// collections are false, booleans are themselves, zero numbers are false,
// and everything else present is true.
func truthy(result any) bool {
	switch v := result.(type) {
	case nil:
		return false

	case bool:
		return v

	case string:
		return v != ""

	case int:
		return v != 0

	case int64:
		return v != 0

	case uint64:
		return v != 0

	case float64:
		return v != 0

	case []any:
		return len(v) > 0

	case map[string]any:
		return len(v) > 0

	default:
		return true
	}
}
