// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package ir

import (
	"fmt"
	"strings"
)

// String renders the expression as readable text, e.g.:
//
//	fn (%x, %c) {
//	  let %a1 = mat_mul(%x, %c)
//	  %a1
//	}
//
// Variables print as %<name-hint>; variables without a hint, or whose hint
// collides with an already printed variable, print as %<hint>.<id> so the
// output is unambiguous.
func String(e Expr) string {
	p := &printer{names: make(map[*Var]string), used: make(map[string]bool)}
	p.print(e, 0)
	return p.sb.String()
}

func (v *Var) String() string      { return String(v) }
func (c *Const) String() string    { return String(c) }
func (c *Call) String() string     { return String(c) }
func (t *Tuple) String() string    { return String(t) }
func (l *Let) String() string      { return String(l) }
func (f *Function) String() string { return String(f) }

type printer struct {
	sb    strings.Builder
	names map[*Var]string
	used  map[string]bool
}

func (p *printer) nameOf(v *Var) string {
	if name, found := p.names[v]; found {
		return name
	}
	name := v.name
	if name == "" {
		name = fmt.Sprintf("v%d", v.id)
	}
	if p.used[name] {
		name = fmt.Sprintf("%s.%d", name, v.id)
	}
	p.used[name] = true
	p.names[v] = name
	return name
}

func (p *printer) indent(level int) {
	for range level {
		p.sb.WriteString("  ")
	}
}

// print writes e. Let and Function nodes are multi-line, everything else is
// printed inline.
func (p *printer) print(e Expr, level int) {
	switch node := e.(type) {
	case *Var:
		p.sb.WriteString("%")
		p.sb.WriteString(p.nameOf(node))

	case *Const:
		fmt.Fprintf(&p.sb, "%v", node.Value)

	case *Call:
		p.sb.WriteString(node.Op.String())
		p.sb.WriteString("(")
		for i, arg := range node.Args {
			if i > 0 {
				p.sb.WriteString(", ")
			}
			p.print(arg, level)
		}
		p.sb.WriteString(")")

	case *Tuple:
		p.sb.WriteString("(")
		for i, elem := range node.Elements {
			if i > 0 {
				p.sb.WriteString(", ")
			}
			p.print(elem, level)
		}
		p.sb.WriteString(")")

	case *Let:
		bindings, result := Chain(node)
		for _, binding := range bindings {
			p.indent(level)
			fmt.Fprintf(&p.sb, "let %%%s = ", p.nameOf(binding.Var))
			p.print(binding.Value, level)
			p.sb.WriteString("\n")
		}
		p.indent(level)
		p.print(result, level)
		p.sb.WriteString("\n")

	case *Function:
		p.sb.WriteString("fn (")
		for i, param := range node.Params {
			if i > 0 {
				p.sb.WriteString(", ")
			}
			fmt.Fprintf(&p.sb, "%%%s", p.nameOf(param))
			if param.shape.Ok() {
				fmt.Fprintf(&p.sb, ": %s", param.shape)
			}
		}
		p.sb.WriteString(") {\n")
		if _, isChain := node.Body.(*Let); isChain {
			p.print(node.Body, level+1)
		} else {
			p.indent(level + 1)
			p.print(node.Body, level+1)
			p.sb.WriteString("\n")
		}
		p.indent(level)
		p.sb.WriteString("}")
	}
}
