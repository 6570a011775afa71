// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package interp

import (
	"math"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/tapir/ir"
	"github.com/gomlx/tapir/ir/ops"
	"github.com/gomlx/tapir/types/tensors"
)

// evalCall dispatches one operator call on already-evaluated arguments.
func (it *Interpreter) evalCall(call *ir.Call, args []Value) Value {
	op := call.Op
	switch op {
	case ops.OpTypeAdd:
		return binaryOp(op, args, func(a, b float64) float64 { return a + b })
	case ops.OpTypeSub:
		return binaryOp(op, args, func(a, b float64) float64 { return a - b })
	case ops.OpTypeMul:
		return binaryOp(op, args, func(a, b float64) float64 { return a * b })
	case ops.OpTypeDiv:
		return binaryOp(op, args, func(a, b float64) float64 { return a / b })
	case ops.OpTypeNeg:
		return unaryOp(op, args, func(a float64) float64 { return -a })
	case ops.OpTypeExp:
		return unaryOp(op, args, math.Exp)
	case ops.OpTypeLog:
		return unaryOp(op, args, math.Log)
	case ops.OpTypeTanh:
		return unaryOp(op, args, math.Tanh)
	case ops.OpTypeLogistic:
		return unaryOp(op, args, func(a float64) float64 { return 1 / (1 + math.Exp(-a)) })
	case ops.OpTypeOnesLike:
		return NewTensorValue(tensors.Ones(asTensor(op, 0, args[0]).Shape()))
	case ops.OpTypeSum:
		return sumKernel(asTensor(op, 0, args[0]))
	case ops.OpTypeMatMul:
		return matMulKernel(op, asTensor(op, 0, args[0]), asTensor(op, 1, args[1]), false, false)
	case ops.OpTypeMatMulNT:
		return matMulKernel(op, asTensor(op, 0, args[0]), asTensor(op, 1, args[1]), false, true)
	case ops.OpTypeMatMulTN:
		return matMulKernel(op, asTensor(op, 0, args[0]), asTensor(op, 1, args[1]), true, false)
	case ops.OpTypeNLLLoss:
		return nllLossKernel(op, asTensor(op, 0, args[0]), asTensor(op, 1, args[1]))
	case ops.OpTypeNLLLossDTrue:
		// d(nll_loss)/d(y_true) = -y_pred / batch
		return nllLossGradKernel(op, asTensor(op, 0, args[0]), asTensor(op, 1, args[1]), 1)
	case ops.OpTypeNLLLossDPred:
		// d(nll_loss)/d(y_pred) = -y_true / batch
		return nllLossGradKernel(op, asTensor(op, 0, args[0]), asTensor(op, 1, args[1]), 0)
	case ops.OpTypeAllReduce:
		return it.allReduceKernel(op, args[0])
	case ops.OpTypeStreamSync:
		return UnitValue{}
	}
	exceptions.Panicf("interp: operator %q has no kernel", op)
	return nil
}

func asTensor(op ops.OpType, argIdx int, v Value) *tensors.Tensor {
	tv, isTensor := v.(*TensorValue)
	if !isTensor {
		exceptions.Panicf("interp: operator %q wants a tensor for argument #%d, got %s", op, argIdx, v)
	}
	return tv.Tensor
}

// binaryOp applies f elementwise. The operands must have the same shape,
// except that a scalar operand broadcasts against the other side.
func binaryOp(op ops.OpType, args []Value, f func(a, b float64) float64) Value {
	lhs, rhs := asTensor(op, 0, args[0]), asTensor(op, 1, args[1])
	switch {
	case lhs.Shape().Equal(rhs.Shape()):
		out := tensors.FromShape(lhs.Shape())
		lhsFlat, rhsFlat, outFlat := lhs.Flat(), rhs.Flat(), out.Flat()
		for i := range outFlat {
			outFlat[i] = f(lhsFlat[i], rhsFlat[i])
		}
		return NewTensorValue(out)
	case lhs.IsScalar():
		a := lhs.Scalar()
		out := tensors.FromShape(rhs.Shape())
		rhsFlat, outFlat := rhs.Flat(), out.Flat()
		for i := range outFlat {
			outFlat[i] = f(a, rhsFlat[i])
		}
		return NewTensorValue(out)
	case rhs.IsScalar():
		b := rhs.Scalar()
		out := tensors.FromShape(lhs.Shape())
		lhsFlat, outFlat := lhs.Flat(), out.Flat()
		for i := range outFlat {
			outFlat[i] = f(lhsFlat[i], b)
		}
		return NewTensorValue(out)
	}
	exceptions.Panicf("interp: operator %q on incompatible shapes %s and %s", op, lhs.Shape(), rhs.Shape())
	return nil
}

func unaryOp(op ops.OpType, args []Value, f func(a float64) float64) Value {
	in := asTensor(op, 0, args[0])
	out := tensors.FromShape(in.Shape())
	inFlat, outFlat := in.Flat(), out.Flat()
	for i := range outFlat {
		outFlat[i] = f(inFlat[i])
	}
	return NewTensorValue(out)
}

// sumKernel reduces all axes to a scalar.
func sumKernel(in *tensors.Tensor) Value {
	total := 0.0
	for _, v := range in.Flat() {
		total += v
	}
	return NewScalarValue(total)
}

// matMulKernel multiplies two rank-2 tensors, optionally transposing either
// operand (without materializing the transpose).
func matMulKernel(op ops.OpType, lhs, rhs *tensors.Tensor, transposeLHS, transposeRHS bool) Value {
	if lhs.Rank() != 2 || rhs.Rank() != 2 {
		exceptions.Panicf("interp: operator %q wants rank-2 operands, got %s and %s",
			op, lhs.Shape(), rhs.Shape())
	}
	lhsAt := func(i, k int) float64 { return lhs.At(i, k) }
	if transposeLHS {
		lhsAt = func(i, k int) float64 { return lhs.At(k, i) }
	}
	rhsAt := func(k, j int) float64 { return rhs.At(k, j) }
	if transposeRHS {
		rhsAt = func(k, j int) float64 { return rhs.At(j, k) }
	}
	rows, lhsInner := lhs.Shape().Dim(0), lhs.Shape().Dim(1)
	if transposeLHS {
		rows, lhsInner = lhsInner, rows
	}
	rhsInner, cols := rhs.Shape().Dim(0), rhs.Shape().Dim(1)
	if transposeRHS {
		rhsInner, cols = cols, rhsInner
	}
	if lhsInner != rhsInner {
		exceptions.Panicf("interp: operator %q contracting dimensions mismatch: %s and %s",
			op, lhs.Shape(), rhs.Shape())
	}
	out := tensors.FromFlatDataAndDimensions(make([]float64, rows*cols), rows, cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			acc := 0.0
			for k := 0; k < lhsInner; k++ {
				acc += lhsAt(i, k) * rhsAt(k, j)
			}
			out.Set(acc, i, j)
		}
	}
	return NewTensorValue(out)
}

// batchSize is the leading dimension the negative log-likelihood loss
// averages over; scalars and vectors count as a single example.
func batchSize(t *tensors.Tensor) float64 {
	if t.Rank() < 2 {
		return 1
	}
	return float64(t.Shape().Dim(0))
}

// nllLossKernel computes -sum(y_true * y_pred) / batch, with y_pred holding
// log-probabilities and y_true the (one-hot or soft) target distribution.
func nllLossKernel(op ops.OpType, yTrue, yPred *tensors.Tensor) Value {
	if !yTrue.Shape().Equal(yPred.Shape()) {
		exceptions.Panicf("interp: operator %q wants equal shapes, got %s and %s",
			op, yTrue.Shape(), yPred.Shape())
	}
	total := 0.0
	yTrueFlat, yPredFlat := yTrue.Flat(), yPred.Flat()
	for i := range yTrueFlat {
		total += yTrueFlat[i] * yPredFlat[i]
	}
	return NewScalarValue(-total / batchSize(yPred))
}

// nllLossGradKernel computes -args[source] / batch: source selects which
// operand the gradient flows from (y_pred for d/d(y_true), y_true for
// d/d(y_pred)).
func nllLossGradKernel(op ops.OpType, yTrue, yPred *tensors.Tensor, source int) Value {
	if !yTrue.Shape().Equal(yPred.Shape()) {
		exceptions.Panicf("interp: operator %q wants equal shapes, got %s and %s",
			op, yTrue.Shape(), yPred.Shape())
	}
	from := yTrue
	if source == 1 {
		from = yPred
	}
	batch := batchSize(yPred)
	out := tensors.FromShape(from.Shape())
	fromFlat, outFlat := from.Flat(), out.Flat()
	for i := range outFlat {
		outFlat[i] = -fromFlat[i] / batch
	}
	return NewTensorValue(out)
}

// allReduceKernel simulates a sum all-reduce over replicas that all hold the
// same value: each tensor in the tuple is scaled by the replica count. A
// singleton tuple reduces to its single synchronized tensor.
func (it *Interpreter) allReduceKernel(op ops.OpType, arg Value) Value {
	tuple, isTuple := arg.(*TupleValue)
	if !isTuple {
		exceptions.Panicf("interp: operator %q wants a tuple of tensors, got %s", op, arg)
	}
	factor := float64(it.numReplicas())
	reduced := make([]Value, len(tuple.Elements))
	for i, elem := range tuple.Elements {
		in := asTensor(op, i, elem)
		out := tensors.FromShape(in.Shape())
		inFlat, outFlat := in.Flat(), out.Flat()
		for j := range outFlat {
			outFlat[j] = factor * inFlat[j]
		}
		reduced[i] = NewTensorValue(out)
	}
	if len(reduced) == 1 {
		return reduced[0]
	}
	return &TupleValue{Elements: reduced}
}
