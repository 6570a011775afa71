// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package ir

// Substitute returns e with every free occurrence of the keys of sub
// replaced by the mapped expressions. Binding occurrences (Let-bound
// variables, function parameters) shadow the substitution within their
// scope. The input is never mutated; sub-trees without substitutions are
// shared with the input.
func Substitute(e Expr, sub map[*Var]Expr) Expr {
	if len(sub) == 0 {
		return e
	}
	return substitute(e, sub)
}

func substitute(e Expr, sub map[*Var]Expr) Expr {
	switch node := e.(type) {
	case *Var:
		if replacement, found := sub[node]; found {
			return replacement
		}
		return node

	case *Const:
		return node

	case *Call:
		args, changed := substituteSlice(node.Args, sub)
		if !changed {
			return node
		}
		return &Call{Op: node.Op, Args: args}

	case *Tuple:
		elements, changed := substituteSlice(node.Elements, sub)
		if !changed {
			return node
		}
		return &Tuple{Elements: elements}

	case *Let:
		value := substitute(node.Value, sub)
		body := node.Body
		if _, shadowed := sub[node.Bound]; shadowed {
			sub = withoutVar(sub, node.Bound)
		}
		body = Substitute(body, sub)
		if value == node.Value && body == node.Body {
			return node
		}
		return &Let{Bound: node.Bound, Value: value, Body: body}

	case *Function:
		bodySub := sub
		for _, param := range node.Params {
			if _, shadowed := bodySub[param]; shadowed {
				bodySub = withoutVar(bodySub, param)
			}
		}
		body := Substitute(node.Body, bodySub)
		if body == node.Body {
			return node
		}
		return &Function{Params: node.Params, Body: body}
	}
	return e
}

func substituteSlice(exprs []Expr, sub map[*Var]Expr) (result []Expr, changed bool) {
	result = exprs
	for i, e := range exprs {
		newE := substitute(e, sub)
		if newE == e {
			continue
		}
		if !changed {
			changed = true
			result = make([]Expr, len(exprs))
			copy(result, exprs)
		}
		result[i] = newE
	}
	return
}

// withoutVar copies sub minus one key. Substitution maps are tiny (one or
// two entries in the passes), so the copy is cheap.
func withoutVar(sub map[*Var]Expr, v *Var) map[*Var]Expr {
	smaller := make(map[*Var]Expr, len(sub)-1)
	for key, value := range sub {
		if key != v {
			smaller[key] = value
		}
	}
	return smaller
}

// FreeVars returns the variables read by e but not bound within it, in
// first-use order.
func FreeVars(e Expr) []*Var {
	var free []*Var
	seen := make(map[*Var]bool)
	bound := make(map[*Var]bool)
	var visit func(Expr)
	visit = func(e Expr) {
		switch node := e.(type) {
		case *Var:
			if !bound[node] && !seen[node] {
				seen[node] = true
				free = append(free, node)
			}
		case *Const:
		case *Call:
			for _, arg := range node.Args {
				visit(arg)
			}
		case *Tuple:
			for _, elem := range node.Elements {
				visit(elem)
			}
		case *Let:
			visit(node.Value)
			alreadyBound := bound[node.Bound]
			bound[node.Bound] = true
			visit(node.Body)
			bound[node.Bound] = alreadyBound
		case *Function:
			previous := make([]bool, len(node.Params))
			for i, param := range node.Params {
				previous[i] = bound[param]
				bound[param] = true
			}
			visit(node.Body)
			for i, param := range node.Params {
				bound[param] = previous[i]
			}
		}
	}
	visit(e)
	return free
}
