// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package ops enumerates the primitive operators that can appear in a Call
// node of the IR.
//
// The set is closed on purpose: gradient rules (package grad), the
// data-parallel rewrite (package pass) and the reference interpreter
// (package interp) all dispatch on OpType, and a closed enum avoids any
// dependency on registration order at module-load time.
package ops

//go:generate go tool enumer -type=OpType -trimprefix=OpType -transform=snake -output=gen_optype_enumer.go optype.go

// OpType is an enum of the primitive operators of the IR.
type OpType int

const (
	OpTypeInvalid OpType = iota

	// Elementwise operators. Binary ones broadcast a scalar operand against
	// the other operand.

	OpTypeAdd
	OpTypeSub
	OpTypeMul
	OpTypeDiv
	OpTypeNeg
	OpTypeExp
	OpTypeLog
	OpTypeTanh
	OpTypeLogistic
	OpTypeOnesLike

	// Reductions and contractions.

	OpTypeSum
	OpTypeMatMul
	OpTypeMatMulNT
	OpTypeMatMulTN

	// Losses. NLLLossDTrue and NLLLossDPred are the gradient operators of
	// NLLLoss with respect to its first and second input.

	OpTypeNLLLoss
	OpTypeNLLLossDTrue
	OpTypeNLLLossDPred

	// Collective (distributed across replicas) operators, realized by the
	// external executor.

	OpTypeAllReduce
	OpTypeStreamSync

	// OpTypeLast should always be kept the last, it is used as a counter/marker for OpType.
	OpTypeLast
)

// opTypeNumInputs is the fixed arity of each operator.
var opTypeNumInputs = [OpTypeLast]int{
	OpTypeAdd:          2,
	OpTypeSub:          2,
	OpTypeMul:          2,
	OpTypeDiv:          2,
	OpTypeNeg:          1,
	OpTypeExp:          1,
	OpTypeLog:          1,
	OpTypeTanh:         1,
	OpTypeLogistic:     1,
	OpTypeOnesLike:     1,
	OpTypeSum:          1,
	OpTypeMatMul:       2,
	OpTypeMatMulNT:     2,
	OpTypeMatMulTN:     2,
	OpTypeNLLLoss:      2,
	OpTypeNLLLossDTrue: 2,
	OpTypeNLLLossDPred: 2,
	OpTypeAllReduce:    1,
	OpTypeStreamSync:   2,
}

// NumInputs returns the fixed arity of the operator, or -1 if op is not a
// valid operator.
func (op OpType) NumInputs() int {
	if op <= OpTypeInvalid || op >= OpTypeLast {
		return -1
	}
	return opTypeNumInputs[op]
}

// IsCollective returns whether the operator describes asynchronous
// cross-replica (device-side) behavior.
func (op OpType) IsCollective() bool {
	return op == OpTypeAllReduce || op == OpTypeStreamSync
}
