// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package pass

import (
	"fmt"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/tapir/distributed"
	"github.com/gomlx/tapir/ir"
	"github.com/gomlx/tapir/ir/ops"
	"k8s.io/klog/v2"
)

// InsertGradientSync rewrites the backward closure of a differentiated
// function so every gradient flowing into the final gradient tuple is
// synchronized across replicas before it escapes the closure.
//
// For each distinct gradient in the final tuple it inserts, immediately
// after the binding that computes the gradient, an all-reduce over a
// singleton tuple of it. After the last all-reduce it inserts a single
// stream-sync on the last synchronized gradient, carrying the config's
// integer stream tag, and rewrites the final tuple to reference the
// synchronized variables. Everything else -- the forward chain, the
// non-gradient backward bindings, the tuple arity and order -- is preserved.
//
// When cfg is nil or cfg.EnableDataParallel is false the function is
// returned unchanged. It fails if fn does not have the
// (forward output, backward closure) shape produced by Differentiate.
func InsertGradientSync(fn *ir.Function, cfg *distributed.Config) (out *ir.Function, err error) {
	if cfg == nil || !cfg.EnableDataParallel {
		return fn, nil
	}
	err = exceptions.TryCatch[error](func() {
		out = insertGradientSync(fn, cfg)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func insertGradientSync(fn *ir.Function, cfg *distributed.Config) *ir.Function {
	if fn == nil {
		exceptions.Panicf("InsertGradientSync: function is nil")
	}
	bindings, result := ir.Chain(fn.Body)

	// The outer function must end in `let ret = (out, closure); ret` with
	// the closure bound earlier in the chain, as Differentiate emits it.
	badShape := func(detail string) {
		exceptions.Panicf("InsertGradientSync: function does not have the (forward output, backward closure) shape produced by autodiff (%s); run Differentiate first", detail)
	}
	resultVar, isVar := result.(*ir.Var)
	if !isVar || len(bindings) == 0 {
		badShape(fmt.Sprintf("body ends in %s", nodeDescription(result)))
	}
	last := bindings[len(bindings)-1]
	if last.Var != resultVar {
		badShape(fmt.Sprintf("result %s is not the last bound variable", resultVar))
	}
	retTuple, isTuple := last.Value.(*ir.Tuple)
	if !isTuple || len(retTuple.Elements) != 2 {
		badShape(fmt.Sprintf("%s is bound to %s, want a 2-tuple", resultVar, nodeDescription(last.Value)))
	}
	closureVar, isClosureVar := retTuple.Elements[1].(*ir.Var)
	if !isClosureVar {
		badShape(fmt.Sprintf("second tuple element is %s, want a closure variable", nodeDescription(retTuple.Elements[1])))
	}
	var closure *ir.Function
	for _, binding := range bindings {
		if binding.Var == closureVar {
			closure, _ = binding.Value.(*ir.Function)
			break
		}
	}
	if closure == nil {
		badShape(fmt.Sprintf("%s is not bound to a function", closureVar))
	}
	if len(closure.Params) != 1 {
		badShape(fmt.Sprintf("backward closure takes %d parameters, want 1", len(closure.Params)))
	}

	tag := cfg.StreamTag
	if tag == 0 {
		tag = distributed.DefaultStreamTag
	}
	newClosure := syncBackwardGradients(closure, tag)

	rebuilt := &ir.LetList{}
	for _, binding := range bindings {
		if binding.Var == closureVar {
			rebuilt.PushVar(binding.Var, newClosure)
		} else {
			rebuilt.PushVar(binding.Var, binding.Value)
		}
	}
	return ir.NewFunction(fn.Params, rebuilt.Done(resultVar))
}

// syncBackwardGradients rewrites one backward closure: all-reduce every
// distinct variable referenced by its final gradient tuple, stream-sync once
// after the last all-reduce, and point the tuple at the synchronized
// variables.
func syncBackwardGradients(closure *ir.Function, streamTag int) *ir.Function {
	bindings, result := ir.Chain(closure.Body)
	resultVar, isVar := result.(*ir.Var)
	if !isVar || len(bindings) == 0 {
		exceptions.Panicf("InsertGradientSync: backward closure must end in a bound gradient tuple, got %s",
			nodeDescription(result))
	}
	last := bindings[len(bindings)-1]
	gradTuple, isTuple := last.Value.(*ir.Tuple)
	if last.Var != resultVar || !isTuple {
		exceptions.Panicf("InsertGradientSync: backward closure must end in a bound gradient tuple, got %s bound to %s",
			resultVar, nodeDescription(last.Value))
	}

	// The set of variables that leave the closure and therefore must be
	// identical on every replica.
	escaping := make(map[*ir.Var]bool, len(gradTuple.Elements))
	for _, elem := range gradTuple.Elements {
		v, isElemVar := elem.(*ir.Var)
		if !isElemVar {
			exceptions.Panicf("InsertGradientSync: gradient tuple element %s is not a variable reference",
				nodeDescription(elem))
		}
		escaping[v] = true
	}

	rebuilt := &ir.LetList{}
	synced := make(map[*ir.Var]*ir.Var, len(escaping)) // raw gradient -> all-reduced variable
	replace := make(map[*ir.Var]ir.Expr, len(escaping))
	var lastSynced *ir.Var
	syncName := func() string {
		if len(synced) == 0 {
			return "g"
		}
		return fmt.Sprintf("g%d", len(synced))
	}
	sync := func(v *ir.Var) {
		allReduced := rebuilt.Push(syncName(), ir.NewCall(ops.OpTypeAllReduce, ir.NewTuple(v)))
		synced[v] = allReduced
		replace[v] = allReduced
		lastSynced = allReduced
	}

	// A gradient may be the closure's own parameter (the upstream gradient
	// passed straight through); it is available from the start.
	for _, elem := range gradTuple.Elements {
		if v := elem.(*ir.Var); v == closure.Params[0] && synced[v] == nil {
			sync(v)
		}
	}

	for _, binding := range bindings[:len(bindings)-1] {
		// Later bindings that consume a synchronized gradient read the
		// all-reduced value instead of the raw one.
		rebuilt.PushVar(binding.Var, ir.Substitute(binding.Value, replace))
		if escaping[binding.Var] {
			sync(binding.Var)
		}
	}

	if lastSynced != nil {
		rebuilt.Push("null", ir.NewCall(ops.OpTypeStreamSync, lastSynced, ir.NewIntConst(streamTag)))
	}

	elements := make([]ir.Expr, len(gradTuple.Elements))
	for i, elem := range gradTuple.Elements {
		v := elem.(*ir.Var)
		allReduced, found := synced[v]
		if !found {
			exceptions.Panicf("InsertGradientSync: gradient %s in the final tuple is not bound inside the backward closure", v)
		}
		elements[i] = allReduced
	}
	rebuilt.PushVar(resultVar, ir.NewTuple(elements...))
	klog.V(1).Infof("pass.InsertGradientSync: %d all-reduce(s) inserted, stream tag %d", len(synced), streamTag)
	return ir.NewFunction(closure.Params, rebuilt.Done(resultVar))
}
