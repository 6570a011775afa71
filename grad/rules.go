// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package grad

import (
	"github.com/gomlx/tapir/ir"
	"github.com/gomlx/tapir/ir/ops"
)

func init() {
	registerStandardRules()
}

// registerStandardRules enumerates every differentiable operator. The
// gradient operators themselves (NLLLossDTrue, NLLLossDPred), OnesLike and
// the collectives have no rules: they only ever appear in backward chains,
// and higher-order differentiation is out of scope.
func registerStandardRules() {
	Register(ops.OpTypeAdd, addRule)
	Register(ops.OpTypeSub, subRule)
	Register(ops.OpTypeMul, mulRule)
	Register(ops.OpTypeDiv, divRule)
	Register(ops.OpTypeNeg, negRule)
	Register(ops.OpTypeExp, expRule)
	Register(ops.OpTypeLog, logRule)
	Register(ops.OpTypeTanh, tanhRule)
	Register(ops.OpTypeLogistic, logisticRule)
	Register(ops.OpTypeSum, sumRule)
	Register(ops.OpTypeMatMul, matMulRule)
	Register(ops.OpTypeMatMulNT, matMulNTRule)
	Register(ops.OpTypeMatMulTN, matMulTNRule)
	Register(ops.OpTypeNLLLoss, nllLossRule)
}

// Short constructors to keep the rules readable.

func sub(a, b ir.Expr) ir.Expr { return ir.NewCall(ops.OpTypeSub, a, b) }
func mul(a, b ir.Expr) ir.Expr { return ir.NewCall(ops.OpTypeMul, a, b) }
func div(a, b ir.Expr) ir.Expr { return ir.NewCall(ops.OpTypeDiv, a, b) }
func neg(a ir.Expr) ir.Expr    { return ir.NewCall(ops.OpTypeNeg, a) }
func one() ir.Expr             { return ir.NewFloatConst(1) }

// F(a,b) = a+b -> dF/da = g ; dF/db = g
func addRule(args []ir.Expr, _ ir.Expr, g ir.Expr) []ir.Expr {
	_ = args
	return []ir.Expr{g, g}
}

// F(a,b) = a-b -> dF/da = g ; dF/db = -g
func subRule(args []ir.Expr, _ ir.Expr, g ir.Expr) []ir.Expr {
	_ = args
	return []ir.Expr{g, neg(g)}
}

// F(a,b) = a*b -> dF/da = g*b ; dF/db = g*a
func mulRule(args []ir.Expr, _ ir.Expr, g ir.Expr) []ir.Expr {
	return []ir.Expr{mul(g, args[1]), mul(g, args[0])}
}

// F(a,b) = a/b -> dF/da = g/b ; dF/db = -g*a/b^2
func divRule(args []ir.Expr, _ ir.Expr, g ir.Expr) []ir.Expr {
	a, b := args[0], args[1]
	return []ir.Expr{
		div(g, b),
		neg(div(mul(g, a), mul(b, b))),
	}
}

func negRule(_ []ir.Expr, _ ir.Expr, g ir.Expr) []ir.Expr {
	return []ir.Expr{neg(g)}
}

// d(e^a)/da = e^a, which is the forward output itself.
func expRule(_ []ir.Expr, output ir.Expr, g ir.Expr) []ir.Expr {
	return []ir.Expr{mul(g, output)}
}

func logRule(args []ir.Expr, _ ir.Expr, g ir.Expr) []ir.Expr {
	return []ir.Expr{div(g, args[0])}
}

// d(tanh(a))/da = 1 - tanh(a)^2, reusing the forward output.
func tanhRule(_ []ir.Expr, output ir.Expr, g ir.Expr) []ir.Expr {
	return []ir.Expr{mul(g, sub(one(), mul(output, output)))}
}

// d(sigma(a))/da = sigma(a) * (1 - sigma(a)), reusing the forward output.
func logisticRule(_ []ir.Expr, output ir.Expr, g ir.Expr) []ir.Expr {
	return []ir.Expr{mul(g, mul(output, sub(one(), output)))}
}

// Sum reduces all axes to a scalar, so the gradient broadcasts g back over
// the input: ones_like(a) * g.
func sumRule(args []ir.Expr, _ ir.Expr, g ir.Expr) []ir.Expr {
	return []ir.Expr{mul(ir.NewCall(ops.OpTypeOnesLike, args[0]), g)}
}

// F(a,b) = a@b -> dF/da = g@b^T = mat_mul_nt(g, b) ; dF/db = a^T@g = mat_mul_tn(a, g)
func matMulRule(args []ir.Expr, _ ir.Expr, g ir.Expr) []ir.Expr {
	return []ir.Expr{
		ir.NewCall(ops.OpTypeMatMulNT, g, args[1]),
		ir.NewCall(ops.OpTypeMatMulTN, args[0], g),
	}
}

// F(a,b) = a@b^T -> dF/da = g@b ; dF/db = g^T@a = mat_mul_tn(g, a)
func matMulNTRule(args []ir.Expr, _ ir.Expr, g ir.Expr) []ir.Expr {
	return []ir.Expr{
		ir.NewCall(ops.OpTypeMatMul, g, args[1]),
		ir.NewCall(ops.OpTypeMatMulTN, g, args[0]),
	}
}

// F(a,b) = a^T@b -> dF/da = b@g^T = mat_mul_nt(b, g) ; dF/db = a@g
func matMulTNRule(args []ir.Expr, _ ir.Expr, g ir.Expr) []ir.Expr {
	return []ir.Expr{
		ir.NewCall(ops.OpTypeMatMulNT, args[1], g),
		ir.NewCall(ops.OpTypeMatMul, args[0], g),
	}
}

// NLLLoss has dedicated gradient operators taking the same (y_true, y_pred)
// inputs. The loss is the scalar root of the backward chain, so the upstream
// gradient is the seed and is not threaded through -- matching the executor's
// nll_loss_dtrue/nll_loss_dpred kernels.
func nllLossRule(args []ir.Expr, _ ir.Expr, _ ir.Expr) []ir.Expr {
	yTrue, yPred := args[0], args[1]
	return []ir.Expr{
		ir.NewCall(ops.OpTypeNLLLossDTrue, yTrue, yPred),
		ir.NewCall(ops.OpTypeNLLLossDPred, yTrue, yPred),
	}
}
