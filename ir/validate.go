// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package ir

import (
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// Validate checks structural well-formedness of a closed expression
// (typically a *Function): every variable is bound exactly once, every read
// is in scope, and every Call matches its operator's arity. Shape and dtype
// correctness is not checked here, that is the external type-inference
// pass's job.
//
// All violations found are returned, combined into a single error.
func Validate(e Expr) error {
	v := &validator{
		bound:   make(map[*Var]bool),
		inScope: make(map[*Var]int),
	}
	v.visit(e)
	return v.err
}

type validator struct {
	err error

	// bound records every variable that had a binding site anywhere.
	bound map[*Var]bool

	// inScope counts active binding sites per variable; >1 means rebinding.
	inScope map[*Var]int
}

func (v *validator) reportf(format string, args ...any) {
	v.err = multierr.Append(v.err, errors.Errorf(format, args...))
}

func (v *validator) bind(owner string, variable *Var) {
	if variable == nil {
		v.reportf("%s binds a nil variable", owner)
		return
	}
	if v.bound[variable] {
		v.reportf("variable %s is bound more than once (last by %s), breaking single-assignment",
			variable, owner)
	}
	v.bound[variable] = true
	v.inScope[variable]++
}

func (v *validator) unbind(variable *Var) {
	if variable != nil {
		v.inScope[variable]--
	}
}

func (v *validator) visit(e Expr) {
	switch node := e.(type) {
	case *Var:
		if v.inScope[node] <= 0 {
			v.reportf("variable %s is read but not in scope", node)
		}

	case *Const:
		switch node.Value.(type) {
		case int, float64:
		default:
			v.reportf("constant holds unsupported value type %T", node.Value)
		}

	case *Call:
		if arity := node.Op.NumInputs(); arity < 0 {
			v.reportf("call to invalid operator %q", node.Op)
		} else if len(node.Args) != arity {
			v.reportf("operator %q takes %d argument(s), call has %d", node.Op, arity, len(node.Args))
		}
		for _, arg := range node.Args {
			v.visit(arg)
		}

	case *Tuple:
		for _, elem := range node.Elements {
			v.visit(elem)
		}

	case *Let:
		v.visit(node.Value)
		v.bind("let", node.Bound)
		v.visit(node.Body)
		v.unbind(node.Bound)

	case *Function:
		for _, param := range node.Params {
			v.bind("function parameter list", param)
		}
		v.visit(node.Body)
		for _, param := range node.Params {
			v.unbind(param)
		}

	default:
		v.reportf("unknown expression node %T", e)
	}
}
