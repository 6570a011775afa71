// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package grad_test

import (
	"testing"

	"github.com/gomlx/exceptions"
	. "github.com/gomlx/tapir/grad"
	"github.com/gomlx/tapir/ir"
	"github.com/gomlx/tapir/ir/ops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandardRulesRegistered(t *testing.T) {
	differentiable := []ops.OpType{
		ops.OpTypeAdd, ops.OpTypeSub, ops.OpTypeMul, ops.OpTypeDiv,
		ops.OpTypeNeg, ops.OpTypeExp, ops.OpTypeLog, ops.OpTypeTanh,
		ops.OpTypeLogistic, ops.OpTypeSum,
		ops.OpTypeMatMul, ops.OpTypeMatMulNT, ops.OpTypeMatMulTN,
		ops.OpTypeNLLLoss,
	}
	for _, op := range differentiable {
		rule, found := Lookup(op)
		assert.True(t, found, "operator %s must have a rule", op)
		assert.NotNil(t, rule)
	}

	// Backward-only and collective operators have none.
	for _, op := range []ops.OpType{
		ops.OpTypeOnesLike, ops.OpTypeNLLLossDTrue, ops.OpTypeNLLLossDPred,
		ops.OpTypeAllReduce, ops.OpTypeStreamSync,
	} {
		_, found := Lookup(op)
		assert.False(t, found, "operator %s must not have a rule", op)
	}
}

func TestMustLookupNamesOperator(t *testing.T) {
	err := exceptions.TryCatch[error](func() { MustLookup(ops.OpTypeAllReduce) })
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"all_reduce"`)
	assert.Contains(t, err.Error(), "no registered gradient rule")

	require.NotPanics(t, func() { MustLookup(ops.OpTypeAdd) })
}

func TestRegisterRejections(t *testing.T) {
	noop := func(args []ir.Expr, output, outputGrad ir.Expr) []ir.Expr { return nil }
	require.Panics(t, func() { Register(ops.OpTypeAdd, noop) }, "duplicate registration")
	require.Panics(t, func() { Register(ops.OpTypeStreamSync, nil) }, "nil rule")
	require.Panics(t, func() { Register(ops.OpTypeInvalid, noop) })
	require.Panics(t, func() { Register(ops.OpTypeLast, noop) })
}

func TestMatMulRuleStructure(t *testing.T) {
	rule, found := Lookup(ops.OpTypeMatMul)
	require.True(t, found)

	a, b, g := ir.NewVar("a"), ir.NewVar("b"), ir.NewVar("g")
	output := ir.NewVar("out")
	partials := rule([]ir.Expr{a, b}, output, g)
	require.Len(t, partials, 2)
	assert.True(t, ir.Equal(ir.NewCall(ops.OpTypeMatMulNT, g, b), partials[0]))
	assert.True(t, ir.Equal(ir.NewCall(ops.OpTypeMatMulTN, a, g), partials[1]))
}

func TestNLLLossRuleStructure(t *testing.T) {
	rule, found := Lookup(ops.OpTypeNLLLoss)
	require.True(t, found)

	yTrue, yPred := ir.NewVar("y_true"), ir.NewVar("y_pred")
	partials := rule([]ir.Expr{yTrue, yPred}, ir.NewVar("loss"), ir.NewVar("dy"))
	require.Len(t, partials, 2)
	assert.True(t, ir.Equal(ir.NewCall(ops.OpTypeNLLLossDTrue, yTrue, yPred), partials[0]))
	assert.True(t, ir.Equal(ir.NewCall(ops.OpTypeNLLLossDPred, yTrue, yPred), partials[1]))
}

func TestAddRulePassesGradientThrough(t *testing.T) {
	rule, found := Lookup(ops.OpTypeAdd)
	require.True(t, found)

	a, b, g := ir.NewVar("a"), ir.NewVar("b"), ir.NewVar("g")
	partials := rule([]ir.Expr{a, b}, ir.NewVar("out"), g)
	require.Len(t, partials, 2)
	assert.Same(t, ir.Expr(g), partials[0])
	assert.Same(t, ir.Expr(g), partials[1])
}
