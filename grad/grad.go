// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package grad holds the gradient rule registry: for each differentiable
// primitive operator, the rule that maps the upstream gradient of the
// operator's output to gradient expressions for each of its inputs.
//
// The standard rules are registered explicitly from this package's init, so
// there is no hidden dependency on module-load-time side effects. After
// initialization the registry is read-only and safe for concurrent lookups.
package grad

import (
	"github.com/gomlx/exceptions"
	"github.com/gomlx/tapir/ir"
	"github.com/gomlx/tapir/ir/ops"
)

// Rule builds the gradient expressions of one operator call.
//
// Args:
//
//	args: the ordered arguments of the forward Call.
//	output: an expression for the call's forward result (the variable the
//	  call was bound to). Rules like Exp reuse it instead of recomputing.
//	outputGrad: the accumulated upstream gradient of the output.
//
// It returns one gradient expression per positional input, in the same
// order. A nil entry means the input is structurally non-differentiable
// (integer/shape arguments, indices) and receives no gradient.
type Rule func(args []ir.Expr, output ir.Expr, outputGrad ir.Expr) []ir.Expr

// registry maps operator to rule. Written only during package
// initialization (and by tests via Register before use), read-only after.
var registry = make(map[ops.OpType]Rule)

// Register associates a rule with an operator. It must be called during
// process initialization, before any pass runs; it panics on duplicate or
// nil registration.
func Register(op ops.OpType, rule Rule) {
	if rule == nil {
		exceptions.Panicf("grad.Register(%s): nil rule", op)
	}
	if op.NumInputs() < 0 {
		exceptions.Panicf("grad.Register: invalid operator %q", op)
	}
	if _, found := registry[op]; found {
		exceptions.Panicf("grad.Register(%s): rule already registered", op)
	}
	registry[op] = rule
}

// Lookup returns the rule registered for the operator, if any. Safe for
// concurrent use after initialization.
func Lookup(op ops.OpType) (Rule, bool) {
	rule, found := registry[op]
	return rule, found
}

// MustLookup returns the rule registered for the operator and panics with
// the operator name if there is none. The autodiff pass uses this so a
// missing rule surfaces as a compile-time error naming the operator.
func MustLookup(op ops.OpType) Rule {
	rule, found := registry[op]
	if !found {
		exceptions.Panicf("operator %q has no registered gradient rule, cannot differentiate", op)
	}
	return rule
}
