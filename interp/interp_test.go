// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package interp_test

import (
	"math"
	"testing"

	"github.com/gomlx/tapir/distributed"
	. "github.com/gomlx/tapir/interp"
	"github.com/gomlx/tapir/ir"
	"github.com/gomlx/tapir/ir/ops"
	"github.com/gomlx/tapir/types/tensors"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// callUnary builds fn(a) { op(a) } and evaluates it on in.
func callUnary(t *testing.T, op ops.OpType, in *tensors.Tensor) *tensors.Tensor {
	a := ir.NewVar("a")
	fn := ir.NewFunction([]*ir.Var{a}, ir.NewCall(op, a))
	result, err := New(nil).Call(fn, NewTensorValue(in))
	require.NoError(t, err)
	return result.(*TensorValue).Tensor
}

// callBinary builds fn(a, b) { op(a, b) } and evaluates it.
func callBinary(t *testing.T, op ops.OpType, lhs, rhs *tensors.Tensor) *tensors.Tensor {
	a, b := ir.NewVar("a"), ir.NewVar("b")
	fn := ir.NewFunction([]*ir.Var{a, b}, ir.NewCall(op, a, b))
	result, err := New(nil).Call(fn, NewTensorValue(lhs), NewTensorValue(rhs))
	require.NoError(t, err)
	return result.(*TensorValue).Tensor
}

func TestElementwiseKernels(t *testing.T) {
	x := tensors.FromFlatDataAndDimensions([]float64{1, 2, 3}, 3)
	y := tensors.FromFlatDataAndDimensions([]float64{10, 20, 30}, 3)

	assert.Equal(t, []float64{11, 22, 33}, callBinary(t, ops.OpTypeAdd, x, y).Flat())
	assert.Equal(t, []float64{-9, -18, -27}, callBinary(t, ops.OpTypeSub, x, y).Flat())
	assert.Equal(t, []float64{10, 40, 90}, callBinary(t, ops.OpTypeMul, x, y).Flat())
	assert.Equal(t, []float64{0.1, 0.1, 0.1}, callBinary(t, ops.OpTypeDiv, x, y).Flat())
	assert.Equal(t, []float64{-1, -2, -3}, callUnary(t, ops.OpTypeNeg, x).Flat())
	assert.Equal(t, []float64{1, 1, 1}, callUnary(t, ops.OpTypeOnesLike, y).Flat())

	got := callUnary(t, ops.OpTypeExp, x).Flat()
	want := []float64{math.Exp(1), math.Exp(2), math.Exp(3)}
	assert.Empty(t, cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-12)))

	got = callUnary(t, ops.OpTypeLog, callUnary(t, ops.OpTypeExp, x)).Flat()
	assert.Empty(t, cmp.Diff([]float64{1, 2, 3}, got, cmpopts.EquateApprox(0, 1e-12)))

	assert.InDelta(t, math.Tanh(2), callUnary(t, ops.OpTypeTanh, tensors.FromScalar(2)).Scalar(), 1e-12)
	assert.InDelta(t, 0.5, callUnary(t, ops.OpTypeLogistic, tensors.FromScalar(0)).Scalar(), 1e-12)
}

func TestScalarBroadcast(t *testing.T) {
	x := tensors.FromFlatDataAndDimensions([]float64{1, 2, 3}, 3)
	s := tensors.FromScalar(10)

	assert.Equal(t, []float64{11, 12, 13}, callBinary(t, ops.OpTypeAdd, x, s).Flat())
	assert.Equal(t, []float64{9, 8, 7}, callBinary(t, ops.OpTypeSub, s, x).Flat())
	assert.Equal(t, []float64{10, 5, 10.0 / 3}, callBinary(t, ops.OpTypeDiv, s, x).Flat())

	// Mismatched non-scalar shapes are an evaluation error.
	a := ir.NewVar("a")
	b := ir.NewVar("b")
	fn := ir.NewFunction([]*ir.Var{a, b}, ir.NewCall(ops.OpTypeAdd, a, b))
	_, err := New(nil).Call(fn,
		NewTensorValue(tensors.FromFlatDataAndDimensions([]float64{1, 2}, 2)),
		NewTensorValue(x))
	require.ErrorContains(t, err, "incompatible shapes")
}

func TestSumKernel(t *testing.T) {
	x := tensors.FromFlatDataAndDimensions([]float64{1, 2, 3, 4}, 2, 2)
	got := callUnary(t, ops.OpTypeSum, x)
	assert.True(t, got.IsScalar())
	assert.Equal(t, 10.0, got.Scalar())
}

func TestMatMulKernels(t *testing.T) {
	// a is 2x3, b is 3x2.
	a := tensors.FromFlatDataAndDimensions([]float64{1, 2, 3, 4, 5, 6}, 2, 3)
	b := tensors.FromFlatDataAndDimensions([]float64{7, 8, 9, 10, 11, 12}, 3, 2)

	got := callBinary(t, ops.OpTypeMatMul, a, b)
	assert.Equal(t, []int{2, 2}, got.Shape().Dimensions)
	assert.Equal(t, []float64{58, 64, 139, 154}, got.Flat())

	// mat_mul_nt(a, c) = a @ c^T with c 2x3.
	c := tensors.FromFlatDataAndDimensions([]float64{7, 9, 11, 8, 10, 12}, 2, 3)
	gotNT := callBinary(t, ops.OpTypeMatMulNT, a, c)
	assert.Equal(t, got.Flat(), gotNT.Flat())

	// mat_mul_tn(d, b) = d^T @ b with d 3x2.
	d := tensors.FromFlatDataAndDimensions([]float64{1, 4, 2, 5, 3, 6}, 3, 2)
	gotTN := callBinary(t, ops.OpTypeMatMulTN, d, b)
	assert.Equal(t, got.Flat(), gotTN.Flat())

	// Contracting dimension mismatch.
	v := ir.NewVar("v")
	w := ir.NewVar("w")
	fn := ir.NewFunction([]*ir.Var{v, w}, ir.NewCall(ops.OpTypeMatMul, v, w))
	_, err := New(nil).Call(fn, NewTensorValue(a), NewTensorValue(c))
	require.ErrorContains(t, err, "contracting dimensions mismatch")
}

func TestNLLLossKernels(t *testing.T) {
	// Two examples, three classes; y_pred holds log-probabilities.
	yTrue := tensors.FromFlatDataAndDimensions([]float64{1, 0, 0, 0, 0, 1}, 2, 3)
	yPred := tensors.FromFlatDataAndDimensions([]float64{-0.1, -2, -3, -4, -5, -0.2}, 2, 3)

	loss := callBinary(t, ops.OpTypeNLLLoss, yTrue, yPred)
	assert.InDelta(t, -(-0.1-0.2)/2, loss.Scalar(), 1e-12)

	dTrue := callBinary(t, ops.OpTypeNLLLossDTrue, yTrue, yPred)
	assert.Empty(t, cmp.Diff(
		[]float64{0.05, 1, 1.5, 2, 2.5, 0.1}, dTrue.Flat(),
		cmpopts.EquateApprox(0, 1e-12)))

	dPred := callBinary(t, ops.OpTypeNLLLossDPred, yTrue, yPred)
	assert.Equal(t, []float64{-0.5, 0, 0, 0, 0, -0.5}, dPred.Flat())
}

func TestLetChainEvaluation(t *testing.T) {
	x := ir.NewVar("x")
	ll := &ir.LetList{}
	double := ll.Push("double", ir.NewCall(ops.OpTypeAdd, x, x))
	squared := ll.Push("squared", ir.NewCall(ops.OpTypeMul, double, double))
	fn := ir.NewFunction([]*ir.Var{x}, ll.Done(squared))

	result, err := New(nil).Call(fn, NewScalarValue(3))
	require.NoError(t, err)
	assert.Equal(t, 36.0, result.(*TensorValue).Tensor.Scalar())
}

func TestClosuresCaptureEnvironment(t *testing.T) {
	// fn(a) { let f = fn(b) { add(a, b) }; let pair = (a, f); pair }
	a, b := ir.NewVar("a"), ir.NewVar("b")
	inner := ir.NewFunction([]*ir.Var{b}, ir.NewCall(ops.OpTypeAdd, a, b))
	ll := &ir.LetList{}
	f := ll.Push("f", inner)
	pair := ll.Push("pair", ir.NewTuple(a, f))
	fn := ir.NewFunction([]*ir.Var{a}, ll.Done(pair))

	interpreter := New(nil)
	result, err := interpreter.Call(fn, NewScalarValue(10))
	require.NoError(t, err)
	tuple, isTuple := result.(*TupleValue)
	require.True(t, isTuple)
	require.Len(t, tuple.Elements, 2)

	sum, err := interpreter.Apply(tuple.Elements[1], NewScalarValue(5))
	require.NoError(t, err)
	assert.Equal(t, 15.0, sum.(*TensorValue).Tensor.Scalar(), "closure captured a=10")

	_, err = interpreter.Apply(tuple.Elements[0], NewScalarValue(1))
	require.ErrorContains(t, err, "not a closure")
}

func TestCollectiveSimulation(t *testing.T) {
	// fn(a) { let g = all_reduce((a,)); let null = stream_sync(g, 5); let out = (g, null); out }
	a := ir.NewVar("a")
	ll := &ir.LetList{}
	g := ll.Push("g", ir.NewCall(ops.OpTypeAllReduce, ir.NewTuple(a)))
	null := ll.Push("null", ir.NewCall(ops.OpTypeStreamSync, g, ir.NewIntConst(5)))
	out := ll.Push("out", ir.NewTuple(g, null))
	fn := ir.NewFunction([]*ir.Var{a}, ll.Done(out))

	cfg := distributed.NewConfig(3, 0)
	result, err := New(cfg).Call(fn, NewTensorValue(tensors.FromFlatDataAndDimensions([]float64{1, 2}, 2)))
	require.NoError(t, err)
	tuple := result.(*TupleValue)
	require.Len(t, tuple.Elements, 2)
	assert.Equal(t, []float64{3, 6}, tuple.Elements[0].(*TensorValue).Tensor.Flat(),
		"all-reduce of identical replicas sums to replicas * value")
	assert.IsType(t, UnitValue{}, tuple.Elements[1])

	// A nil config behaves as a single replica.
	result, err = New(nil).Call(fn, NewTensorValue(tensors.FromScalar(7)))
	require.NoError(t, err)
	tuple = result.(*TupleValue)
	assert.Equal(t, 7.0, tuple.Elements[0].(*TensorValue).Tensor.Scalar())
}

func TestCallErrors(t *testing.T) {
	a := ir.NewVar("a")
	fn := ir.NewFunction([]*ir.Var{a}, ir.NewCall(ops.OpTypeNeg, a))
	interpreter := New(nil)

	_, err := interpreter.Call(fn)
	require.ErrorContains(t, err, "takes 1 parameter(s)")

	_, err = interpreter.Call(fn, NewScalarValue(1), NewScalarValue(2))
	require.Error(t, err)

	// Reading a variable that was never bound.
	loose := ir.NewVar("loose")
	broken := ir.NewFunction([]*ir.Var{a}, ir.NewCall(ops.OpTypeAdd, a, loose))
	_, err = interpreter.Call(broken, NewScalarValue(1))
	require.ErrorContains(t, err, "not bound")
}
