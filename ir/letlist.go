// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package ir

import (
	"github.com/gomlx/exceptions"
)

// Binding is one step of a let-chain: a variable and the expression it is
// bound to.
type Binding struct {
	Var   *Var
	Value Expr
}

// Chain decomposes a let-chain into its ordered bindings and the final
// result expression. A bare (non-Let) expression decomposes into zero
// bindings and itself as result.
func Chain(e Expr) (bindings []Binding, result Expr) {
	for {
		let, ok := e.(*Let)
		if !ok {
			return bindings, e
		}
		bindings = append(bindings, Binding{Var: let.Bound, Value: let.Value})
		e = let.Body
	}
}

// LetList accumulates bindings in execution order and folds them into a
// let-chain at the end. It is how the passes build new chains: append each
// computation step with Push, then call Done with the final result.
type LetList struct {
	bindings []Binding
	done     bool
}

// Push binds value to a fresh variable with the given name hint and returns
// the variable.
func (ll *LetList) Push(name string, value Expr) *Var {
	return ll.PushVar(NewVar(name), value)
}

// PushVar binds value to the given (not yet bound) variable and returns it.
func (ll *LetList) PushVar(v *Var, value Expr) *Var {
	if ll.done {
		exceptions.Panicf("LetList: Push after Done")
	}
	if v == nil || value == nil {
		exceptions.Panicf("LetList: variable and value must be non-nil")
	}
	ll.bindings = append(ll.bindings, Binding{Var: v, Value: value})
	return v
}

// Len returns the number of bindings pushed so far.
func (ll *LetList) Len() int { return len(ll.bindings) }

// Done folds the accumulated bindings around the result expression,
// innermost last, and returns the chain. The LetList cannot be used
// afterwards.
func (ll *LetList) Done(result Expr) Expr {
	if ll.done {
		exceptions.Panicf("LetList: Done called twice")
	}
	ll.done = true
	e := result
	for i := len(ll.bindings) - 1; i >= 0; i-- {
		e = NewLet(ll.bindings[i].Var, ll.bindings[i].Value, e)
	}
	return e
}
