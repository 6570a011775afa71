// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package pass implements the IR-to-IR compiler passes: reverse-mode
// automatic differentiation (Differentiate) and the data-parallel rewrite
// that inserts cross-replica gradient synchronization (InsertGradientSync).
//
// Both passes run synchronously at model-compile time, operate on immutable
// IR and only allocate new nodes, so the same traced function can be
// compiled concurrently into several variants. Errors are compile-time:
// either a pass fully succeeds or it returns an error and no output.
package pass

import (
	"fmt"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/tapir/grad"
	"github.com/gomlx/tapir/ir"
	"github.com/gomlx/tapir/ir/ops"
	"k8s.io/klog/v2"
)

// Differentiate applies reverse-mode automatic differentiation to a forward
// function whose body is a straight-line chain of operator-call bindings.
//
// The returned function takes the same parameters and returns a 2-tuple
// (forward output, backward closure). The backward closure takes a single
// parameter -- the upstream gradient of the forward output -- and returns a
// tuple with the gradient of each forward parameter, in parameter
// declaration order. Parameters that don't influence the output (or are
// masked out) get no entry.
//
// requiresGrad optionally masks which parameters get gradients: empty means
// all of them, otherwise it must have one entry per parameter.
//
// It fails if a call's operator has no registered gradient rule (the error
// names the operator) or if the body is not a straight-line call chain.
func Differentiate(fn *ir.Function, requiresGrad ...bool) (diff *ir.Function, err error) {
	err = exceptions.TryCatch[error](func() {
		diff = differentiate(fn, requiresGrad)
	})
	if err != nil {
		return nil, err
	}
	return diff, nil
}

func differentiate(fn *ir.Function, requiresGrad []bool) *ir.Function {
	if fn == nil {
		exceptions.Panicf("Differentiate: function is nil")
	}
	if len(requiresGrad) != 0 && len(requiresGrad) != len(fn.Params) {
		exceptions.Panicf("Differentiate: requiresGrad mask has %d entries for %d parameters",
			len(requiresGrad), len(fn.Params))
	}
	klog.V(1).Infof("pass.Differentiate: %d parameters", len(fn.Params))

	bindings, result := ir.Chain(fn.Body)

	// A bare call as final expression is normalized into a final binding.
	outVar, isVar := result.(*ir.Var)
	if !isVar {
		call, isCall := result.(*ir.Call)
		if !isCall {
			exceptions.Panicf("Differentiate: function body must end in a variable reference or an operator call, got %s",
				nodeDescription(result))
		}
		outVar = ir.NewVar("out")
		bindings = append(bindings, ir.Binding{Var: outVar, Value: call})
	}
	for _, binding := range bindings {
		if _, isCall := binding.Value.(*ir.Call); !isCall {
			exceptions.Panicf("Differentiate: binding of %s is %s; only straight-line chains of operator calls are supported (no branches, loops or nested functions)",
				binding.Var, nodeDescription(binding.Value))
		}
	}

	paramIndex := make(map[*ir.Var]int, len(fn.Params))
	for i, param := range fn.Params {
		paramIndex[param] = i
	}
	wantsGrad := func(v *ir.Var) bool {
		idx, isParam := paramIndex[v]
		if !isParam {
			return true // Intermediate values always propagate gradients.
		}
		return len(requiresGrad) == 0 || requiresGrad[idx]
	}

	// Accumulator of partial gradients ("adjoints") per variable: one entry
	// per consumer that back-propagated into it so far.
	adjoints := make(map[*ir.Var][]ir.Expr)

	// dy seeds the output's accumulator: it is the upstream gradient
	// supplied by the caller of the backward closure.
	dy := ir.NewVar("dy")
	adjoints[outVar] = []ir.Expr{dy}

	backward := &ir.LetList{}
	freshCount := 0
	fresh := func() string {
		freshCount++
		return fmt.Sprintf("x%d", freshCount)
	}

	// finalize combines all accumulated contributions of v into a single
	// gradient expression, folding multiple entries with elementwise Add.
	// It returns nil when no gradient flowed into v.
	finalize := func(v *ir.Var) ir.Expr {
		entries := adjoints[v]
		if len(entries) == 0 {
			return nil
		}
		combined := entries[0]
		for _, entry := range entries[1:] {
			combined = backward.Push(fresh(), ir.NewCall(ops.OpTypeAdd, combined, entry))
		}
		return combined
	}

	// The chain is topologically sorted by construction, so visiting the
	// bindings in reverse order guarantees every consumer of a variable has
	// already deposited its contribution by the time the variable's own
	// producer is processed.
	for i := len(bindings) - 1; i >= 0; i-- {
		boundVar := bindings[i].Var
		call := bindings[i].Value.(*ir.Call)
		outputGrad := finalize(boundVar)
		if outputGrad == nil {
			klog.V(2).Infof("pass.Differentiate: no gradient flows into %s, skipped", boundVar)
			continue
		}
		rule := grad.MustLookup(call.Op)
		partials := rule(call.Args, boundVar, outputGrad)
		if len(partials) != len(call.Args) {
			exceptions.Panicf("Differentiate: gradient rule for %q returned %d expression(s) for %d input(s)",
				call.Op, len(partials), len(call.Args))
		}
		for argIdx, arg := range call.Args {
			partial := partials[argIdx]
			if partial == nil {
				continue // Structurally non-differentiable input.
			}
			argVar, isArgVar := arg.(*ir.Var)
			if !isArgVar || !wantsGrad(argVar) {
				continue
			}
			// Partials that are already a bound variable (e.g. Add passes
			// the upstream gradient through) need no extra binding.
			if partialVar, alreadyVar := partial.(*ir.Var); alreadyVar {
				adjoints[argVar] = append(adjoints[argVar], partialVar)
				continue
			}
			partialVar := backward.Push(fresh(), partial)
			adjoints[argVar] = append(adjoints[argVar], partialVar)
			klog.V(2).Infof("pass.Differentiate: %s <- d%s/d(input #%d)", partialVar, boundVar, argIdx)
		}
	}

	// Gradients of the parameters, in declaration order.
	var paramGrads []ir.Expr
	for i, param := range fn.Params {
		if len(requiresGrad) != 0 && !requiresGrad[i] {
			continue
		}
		if gradExpr := finalize(param); gradExpr != nil {
			paramGrads = append(paramGrads, gradExpr)
		}
	}
	gradsVar := backward.Push(fresh(), ir.NewTuple(paramGrads...))
	closure := ir.NewFunction([]*ir.Var{dy}, backward.Done(gradsVar))

	// The forward chain is re-emitted unchanged, now returning the pair
	// (forward output, backward closure).
	forward := &ir.LetList{}
	for _, binding := range bindings {
		forward.PushVar(binding.Var, binding.Value)
	}
	closureVar := forward.Push("closure", closure)
	retVar := forward.Push("ret", ir.NewTuple(outVar, closureVar))
	return ir.NewFunction(fn.Params, forward.Done(retVar))
}

// nodeDescription names an IR node kind for error messages.
func nodeDescription(e ir.Expr) string {
	switch node := e.(type) {
	case *ir.Var:
		return fmt.Sprintf("variable %s", node)
	case *ir.Const:
		return fmt.Sprintf("constant %v", node.Value)
	case *ir.Call:
		return fmt.Sprintf("call to %q", node.Op)
	case *ir.Tuple:
		return fmt.Sprintf("%d-tuple", len(node.Elements))
	case *ir.Let:
		return "let-binding"
	case *ir.Function:
		return "function"
	}
	return fmt.Sprintf("%T", e)
}
