// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package tensors implements a minimal dense host tensor.
//
// It is what the reference interpreter (package interp) computes on, and what
// the numeric tests feed into compiled IR. Device buffers, dtype conversions
// and host<->device marshalling are the job of the external executor; here
// everything is float64.
package tensors

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/tapir/types/shapes"
)

// Tensor is a dense float64 tensor on the host.
//
// Tensors are mutated only through Flat, and the passes never touch them:
// they exist for the interpreter and for tests.
type Tensor struct {
	shape shapes.Shape
	flat  []float64
}

// FromFlatDataAndDimensions creates a Tensor with the given flat data
// (row-major) and dimensions. It panics if the sizes don't match.
func FromFlatDataAndDimensions(data []float64, dimensions ...int) *Tensor {
	shape := shapes.Make(dtypes.Float64, dimensions...)
	if len(data) != shape.Size() {
		exceptions.Panicf("tensors.FromFlatDataAndDimensions: shape %s requires %d values, got %d",
			shape, shape.Size(), len(data))
	}
	return &Tensor{shape: shape, flat: slices.Clone(data)}
}

// FromScalar creates a rank-0 Tensor holding the given value.
func FromScalar(value float64) *Tensor {
	return &Tensor{shape: shapes.Scalar(dtypes.Float64), flat: []float64{value}}
}

// FromShape creates a zero-initialized Tensor of the given shape.
func FromShape(shape shapes.Shape) *Tensor {
	if !shape.Ok() {
		exceptions.Panicf("tensors.FromShape: invalid shape")
	}
	return &Tensor{shape: shape.Clone(), flat: make([]float64, shape.Size())}
}

// Ones creates a Tensor of the given shape filled with 1.
func Ones(shape shapes.Shape) *Tensor {
	t := FromShape(shape)
	for i := range t.flat {
		t.flat[i] = 1
	}
	return t
}

// Shape of the tensor.
func (t *Tensor) Shape() shapes.Shape { return t.shape }

// Rank is a shortcut for t.Shape().Rank().
func (t *Tensor) Rank() int { return t.shape.Rank() }

// IsScalar is a shortcut for t.Shape().IsScalar().
func (t *Tensor) IsScalar() bool { return t.shape.IsScalar() }

// Size is the number of elements stored.
func (t *Tensor) Size() int { return t.shape.Size() }

// Flat returns the underlying row-major data. The slice is shared with the
// tensor, not a copy.
func (t *Tensor) Flat() []float64 { return t.flat }

// Scalar returns the single value of a rank-0 tensor.
func (t *Tensor) Scalar() float64 {
	if !t.IsScalar() {
		exceptions.Panicf("Tensor.Scalar called on non-scalar tensor of shape %s", t.shape)
	}
	return t.flat[0]
}

// At returns the value at the given indices, one per axis.
func (t *Tensor) At(indices ...int) float64 {
	return t.flat[t.flatIndex(indices)]
}

// Set assigns the value at the given indices, one per axis.
func (t *Tensor) Set(value float64, indices ...int) {
	t.flat[t.flatIndex(indices)] = value
}

func (t *Tensor) flatIndex(indices []int) int {
	if len(indices) != t.Rank() {
		exceptions.Panicf("tensor of rank %d indexed with %d indices", t.Rank(), len(indices))
	}
	flatIdx := 0
	for axis, idx := range indices {
		dim := t.shape.Dimensions[axis]
		if idx < 0 || idx >= dim {
			exceptions.Panicf("index %d out-of-bounds for axis %d with dimension %d", idx, axis, dim)
		}
		flatIdx = flatIdx*dim + idx
	}
	return flatIdx
}

// Clone returns a deep copy of the tensor.
func (t *Tensor) Clone() *Tensor {
	return &Tensor{shape: t.shape.Clone(), flat: slices.Clone(t.flat)}
}

// Equal returns whether the two tensors have the same shape and exactly the
// same values.
func (t *Tensor) Equal(other *Tensor) bool {
	return t.shape.Equal(other.shape) && slices.Equal(t.flat, other.flat)
}

// String prints the shape and values, abbreviating large tensors.
func (t *Tensor) String() string {
	const maxValues = 16
	var sb strings.Builder
	sb.WriteString(t.shape.String())
	sb.WriteString(": [")
	for i, v := range t.flat {
		if i > 0 {
			sb.WriteString(", ")
		}
		if i == maxValues {
			fmt.Fprintf(&sb, "... (%d values)", len(t.flat))
			break
		}
		fmt.Fprintf(&sb, "%g", v)
	}
	sb.WriteString("]")
	return sb.String()
}
