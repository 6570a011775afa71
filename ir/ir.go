// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package ir defines the functional intermediate representation that traced
// models are compiled into, and the tools the compiler passes use to
// transform it.
//
// A program is an expression tree over a small, closed set of node kinds:
//
//   - Var: a unique variable. Using a *Var inside another expression is a
//     read of that variable; the variable is bound by exactly one Let or
//     function parameter (single-assignment discipline).
//   - Const: a scalar literal (an integer or a float).
//   - Call: invocation of a primitive operator (see package ir/ops).
//   - Tuple: a fixed-arity aggregate.
//   - Let: binds a variable to the value of an expression, scoped over a
//     body. Chains of Let nodes form the straight-line dataflow ("let-chain")
//     the passes operate on.
//   - Function: a closure. It owns its body; variables captured from the
//     enclosing scope are referenced, not owned.
//
// All nodes are immutable once constructed. A pass that needs to "change" a
// node builds a replacement (see LetList and Substitute) and rewires the
// referencing nodes, leaving the original IR usable independently -- this is
// what allows caching multiple compiled variants of the same traced model.
//
// Sharing is expressed by referring to the same *Var from several places:
// the dataflow is a DAG, never a cycle, since expressions only reference
// nodes that existed before them.
package ir

import (
	"fmt"
	"sync/atomic"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/tapir/ir/ops"
	"github.com/gomlx/tapir/types/shapes"
)

// Expr is an expression node of the IR. The implementations are *Var,
// *Const, *Call, *Tuple, *Let and *Function -- a closed set.
type Expr interface {
	fmt.Stringer

	// exprNode limits implementations to this package.
	exprNode()
}

// VarID is the unique id of a Var. Ids are assigned from a process-wide
// counter, so variables created by different passes never collide.
type VarID int64

var varIDCounter atomic.Int64

// Var is a variable: a unique identity with an optional name hint and an
// optional shape annotation.
//
// A *Var used as an Expr is a read (reference) of the variable. The same
// *Var pointer is the binding site identity: two variables with the same
// name hint are still different variables.
type Var struct {
	id    VarID
	name  string
	shape shapes.Shape
}

// NewVar creates a new variable with a fresh unique id. The name is a hint
// used for printing only, it may be empty.
func NewVar(name string) *Var {
	return &Var{id: VarID(varIDCounter.Add(1)), name: name}
}

// NewAnnotatedVar creates a new variable carrying a shape annotation.
func NewAnnotatedVar(name string, shape shapes.Shape) *Var {
	v := NewVar(name)
	v.shape = shape
	return v
}

// ID returns the unique id of the variable.
func (v *Var) ID() VarID { return v.id }

// Name returns the name hint of the variable. It may be empty and is not
// necessarily unique.
func (v *Var) Name() string { return v.name }

// Shape returns the shape annotation of the variable. It returns an invalid
// shape (shapes.Invalid()) if the variable is not annotated.
func (v *Var) Shape() shapes.Shape { return v.shape }

// Const is a scalar literal. Value is either an int or a float64 -- see
// NewIntConst and NewFloatConst.
type Const struct {
	Value any
}

// NewIntConst creates an integer literal. Used e.g. for the stream-tag
// argument of the stream-sync operator.
func NewIntConst(value int) *Const { return &Const{Value: value} }

// NewFloatConst creates a float literal.
func NewFloatConst(value float64) *Const { return &Const{Value: value} }

// Call is the invocation of a primitive operator with ordered arguments.
type Call struct {
	Op   ops.OpType
	Args []Expr
}

// NewCall creates a Call node. It panics if the operator is invalid or the
// number of arguments doesn't match the operator's arity.
func NewCall(op ops.OpType, args ...Expr) *Call {
	arity := op.NumInputs()
	if arity < 0 {
		exceptions.Panicf("ir.NewCall: invalid operator %q", op)
	}
	if len(args) != arity {
		exceptions.Panicf("ir.NewCall: operator %q takes %d argument(s), got %d", op, arity, len(args))
	}
	for i, arg := range args {
		if arg == nil {
			exceptions.Panicf("ir.NewCall(%s): argument #%d is nil", op, i)
		}
	}
	return &Call{Op: op, Args: args}
}

// Tuple is a fixed-arity aggregate of expressions.
type Tuple struct {
	Elements []Expr
}

// NewTuple creates a Tuple node.
func NewTuple(elements ...Expr) *Tuple {
	for i, elem := range elements {
		if elem == nil {
			exceptions.Panicf("ir.NewTuple: element #%d is nil", i)
		}
	}
	return &Tuple{Elements: elements}
}

// Let binds Bound to the result of Value, scoped over Body.
type Let struct {
	Bound *Var
	Value Expr
	Body  Expr
}

// NewLet creates a Let node.
func NewLet(bound *Var, value, body Expr) *Let {
	if bound == nil || value == nil || body == nil {
		exceptions.Panicf("ir.NewLet: bound variable, value and body must all be non-nil")
	}
	return &Let{Bound: bound, Value: value, Body: body}
}

// Function is a closure: ordered parameters and a body. Free variables of
// the body that are not parameters are captured from the enclosing scope.
type Function struct {
	Params []*Var
	Body   Expr
}

// NewFunction creates a Function node.
func NewFunction(params []*Var, body Expr) *Function {
	if body == nil {
		exceptions.Panicf("ir.NewFunction: body must be non-nil")
	}
	seen := make(map[*Var]bool, len(params))
	for i, param := range params {
		if param == nil {
			exceptions.Panicf("ir.NewFunction: parameter #%d is nil", i)
		}
		if seen[param] {
			exceptions.Panicf("ir.NewFunction: parameter %s repeated", param)
		}
		seen[param] = true
	}
	return &Function{Params: params, Body: body}
}

func (v *Var) exprNode()      {}
func (c *Const) exprNode()    {}
func (c *Call) exprNode()     {}
func (t *Tuple) exprNode()    {}
func (l *Let) exprNode()      {}
func (f *Function) exprNode() {}
