// Package eval is the default expression collaborator, built on
// expr-lang/expr. Flow expressions see conversation memories and run-locals
// as top-level names, the inbound event as `event` and caller metadata as
// `_metadata`.
package eval

import (
	"fmt"
	"regexp"

	"github.com/expr-lang/expr"

	"github.com/SINHASantos/csml-engine/pkg/domain"
)

// Expr evaluates expressions with expr-lang. The zero value is ready to use.
type Expr struct{}

// New returns an expr-lang backed evaluator.
func New() *Expr { return &Expr{} }

var unknownName = regexp.MustCompile(`unknown name ([A-Za-z_][A-Za-z0-9_]*)`)

// Eval compiles and runs one expression against env. A reference to a name
// missing from env comes back as *domain.NotRememberedError, which the
// interpreter treats as recoverable.
func (e *Expr) Eval(code string, env map[string]any) (any, error) {
	program, err := expr.Compile(code, expr.Env(env))
	if err != nil {
		if m := unknownName.FindStringSubmatch(err.Error()); m != nil {
			return nil, &domain.NotRememberedError{Name: m[1]}
		}
		return nil, fmt.Errorf("compiling %q: %w", code, err)
	}
	out, err := expr.Run(program, env)
	if err != nil {
		return nil, fmt.Errorf("evaluating %q: %w", code, err)
	}
	return out, nil
}
