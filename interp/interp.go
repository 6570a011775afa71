// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package interp is a reference interpreter for the IR: it evaluates
// functions on host tensors, one operator at a time.
//
// It exists to pin down the semantics the external executor must implement
// and to let tests check the compiler passes numerically (e.g. comparing
// autodiff gradients against finite differences). It is not a fast runtime:
// no fusion, no device buffers, everything float64.
//
// Collectives are simulated for a single process: all-reduce of a value that
// is identical on every replica is the value times the replica count, and
// stream-sync is a no-op that evaluates to the unit value.
package interp

import (
	"fmt"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/tapir/distributed"
	"github.com/gomlx/tapir/ir"
	"github.com/gomlx/tapir/types/tensors"
)

// Value is a runtime value: a tensor, a tuple, a closure or the unit value.
type Value interface {
	fmt.Stringer

	// valueNode limits implementations to this package.
	valueNode()
}

// TensorValue wraps a host tensor.
type TensorValue struct {
	Tensor *tensors.Tensor
}

// NewTensorValue wraps a tensor as a Value.
func NewTensorValue(t *tensors.Tensor) *TensorValue { return &TensorValue{Tensor: t} }

// NewScalarValue wraps a scalar as a rank-0 tensor Value.
func NewScalarValue(v float64) *TensorValue { return NewTensorValue(tensors.FromScalar(v)) }

// TupleValue is a fixed-arity aggregate of values.
type TupleValue struct {
	Elements []Value
}

// ClosureValue is a function value closed over the environment it was
// defined in.
type ClosureValue struct {
	Fn  *ir.Function
	env *scope
}

// UnitValue is the result of effect-only operators (stream-sync).
type UnitValue struct{}

func (v *TensorValue) valueNode()  {}
func (v *TupleValue) valueNode()   {}
func (v *ClosureValue) valueNode() {}
func (v UnitValue) valueNode()     {}

// String implements fmt.Stringer.
func (v *TensorValue) String() string { return v.Tensor.String() }

// String implements fmt.Stringer.
func (v *TupleValue) String() string {
	parts := make([]string, len(v.Elements))
	for i, elem := range v.Elements {
		parts[i] = elem.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// String implements fmt.Stringer.
func (v *ClosureValue) String() string { return v.Fn.String() }

// String implements fmt.Stringer.
func (v UnitValue) String() string { return "()" }

// scope is a lexical environment: bindings plus the enclosing scope.
// Variables are globally unique, so lookups never shadow.
type scope struct {
	parent *scope
	vars   map[*ir.Var]Value
}

func newScope(parent *scope) *scope {
	return &scope{parent: parent, vars: make(map[*ir.Var]Value)}
}

func (s *scope) lookup(v *ir.Var) (Value, bool) {
	for current := s; current != nil; current = current.parent {
		if value, found := current.vars[v]; found {
			return value, true
		}
	}
	return nil, false
}

// Interpreter evaluates IR on host tensors. The zero value (or a nil config)
// behaves as a single replica.
//
// An Interpreter is stateless between calls and safe for concurrent use.
type Interpreter struct {
	cfg *distributed.Config
}

// New creates an Interpreter. cfg may be nil for single-replica semantics.
func New(cfg *distributed.Config) *Interpreter {
	return &Interpreter{cfg: cfg}
}

// numReplicas the collectives are simulated over.
func (it *Interpreter) numReplicas() int {
	if it.cfg == nil || it.cfg.NumReplicas < 1 {
		return 1
	}
	return it.cfg.NumReplicas
}

// Call evaluates a top-level function on the given arguments.
func (it *Interpreter) Call(fn *ir.Function, args ...Value) (result Value, err error) {
	err = exceptions.TryCatch[error](func() {
		result = it.apply(&ClosureValue{Fn: fn}, args)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Apply evaluates a closure value -- e.g. the backward closure returned by a
// differentiated function -- on the given arguments.
func (it *Interpreter) Apply(closure Value, args ...Value) (result Value, err error) {
	err = exceptions.TryCatch[error](func() {
		closureValue, isClosure := closure.(*ClosureValue)
		if !isClosure {
			exceptions.Panicf("interp.Apply: value %s is not a closure", closure)
		}
		result = it.apply(closureValue, args)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (it *Interpreter) apply(closure *ClosureValue, args []Value) Value {
	fn := closure.Fn
	if fn == nil {
		exceptions.Panicf("interp: closure has nil function")
	}
	if len(args) != len(fn.Params) {
		exceptions.Panicf("interp: function takes %d parameter(s), called with %d", len(fn.Params), len(args))
	}
	frame := newScope(closure.env)
	for i, param := range fn.Params {
		if args[i] == nil {
			exceptions.Panicf("interp: argument #%d (%s) is nil", i, param)
		}
		frame.vars[param] = args[i]
	}
	return it.eval(frame, fn.Body)
}

func (it *Interpreter) eval(env *scope, e ir.Expr) Value {
	switch node := e.(type) {
	case *ir.Var:
		value, found := env.lookup(node)
		if !found {
			exceptions.Panicf("interp: variable %s is not bound", node)
		}
		return value

	case *ir.Const:
		switch v := node.Value.(type) {
		case int:
			return NewScalarValue(float64(v))
		case float64:
			return NewScalarValue(v)
		}
		exceptions.Panicf("interp: constant holds unsupported value type %T", node.Value)

	case *ir.Call:
		args := make([]Value, len(node.Args))
		for i, arg := range node.Args {
			args[i] = it.eval(env, arg)
		}
		return it.evalCall(node, args)

	case *ir.Tuple:
		elements := make([]Value, len(node.Elements))
		for i, elem := range node.Elements {
			elements[i] = it.eval(env, elem)
		}
		return &TupleValue{Elements: elements}

	case *ir.Let:
		env.vars[node.Bound] = it.eval(env, node.Value)
		return it.eval(env, node.Body)

	case *ir.Function:
		return &ClosureValue{Fn: node, env: env}
	}
	exceptions.Panicf("interp: unknown expression node %T", e)
	return nil
}
