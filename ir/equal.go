// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package ir

// Equal reports structural equality of two expressions up to renaming of
// bound variables (alpha-equivalence). Free variables must be the same *Var
// on both sides; names and shape annotations of bound variables are ignored.
//
// This is how tests compare a transformed function against a hand-built
// expected one.
func Equal(a, b Expr) bool {
	return alphaEqual(a, b, make(map[*Var]*Var))
}

// alphaEqual compares a and b with env mapping each bound variable of a to
// its counterpart in b.
func alphaEqual(a, b Expr, env map[*Var]*Var) bool {
	switch nodeA := a.(type) {
	case *Var:
		nodeB, ok := b.(*Var)
		if !ok {
			return false
		}
		if mapped, bound := env[nodeA]; bound {
			return mapped == nodeB
		}
		// Free variable: must be the same identity.
		return nodeA == nodeB

	case *Const:
		nodeB, ok := b.(*Const)
		return ok && nodeA.Value == nodeB.Value

	case *Call:
		nodeB, ok := b.(*Call)
		if !ok || nodeA.Op != nodeB.Op || len(nodeA.Args) != len(nodeB.Args) {
			return false
		}
		for i, argA := range nodeA.Args {
			if !alphaEqual(argA, nodeB.Args[i], env) {
				return false
			}
		}
		return true

	case *Tuple:
		nodeB, ok := b.(*Tuple)
		if !ok || len(nodeA.Elements) != len(nodeB.Elements) {
			return false
		}
		for i, elemA := range nodeA.Elements {
			if !alphaEqual(elemA, nodeB.Elements[i], env) {
				return false
			}
		}
		return true

	case *Let:
		nodeB, ok := b.(*Let)
		if !ok || !alphaEqual(nodeA.Value, nodeB.Value, env) {
			return false
		}
		previous, hadPrevious := env[nodeA.Bound]
		env[nodeA.Bound] = nodeB.Bound
		equal := alphaEqual(nodeA.Body, nodeB.Body, env)
		if hadPrevious {
			env[nodeA.Bound] = previous
		} else {
			delete(env, nodeA.Bound)
		}
		return equal

	case *Function:
		nodeB, ok := b.(*Function)
		if !ok || len(nodeA.Params) != len(nodeB.Params) {
			return false
		}
		previous := make(map[*Var]*Var, len(nodeA.Params))
		hadPrevious := make(map[*Var]bool, len(nodeA.Params))
		for i, paramA := range nodeA.Params {
			previous[paramA], hadPrevious[paramA] = env[paramA], false
			if _, found := env[paramA]; found {
				hadPrevious[paramA] = true
			}
			env[paramA] = nodeB.Params[i]
		}
		equal := alphaEqual(nodeA.Body, nodeB.Body, env)
		for _, paramA := range nodeA.Params {
			if hadPrevious[paramA] {
				env[paramA] = previous[paramA]
			} else {
				delete(env, paramA)
			}
		}
		return equal
	}
	return false
}
