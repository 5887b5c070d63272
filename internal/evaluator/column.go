// Package evaluator implements section 4.5 of the specification: executing a
// Plan (package planner) against a Dataset (package dataset), in both batch
// (vectorized, whole-history) and incremental (per-event, stateful) modes,
// with the guarantee that replaying the same history through either mode
// produces identical results.
package evaluator

import "github.com/smilemakc/ta-engine/internal/kernel"

// Column is the evaluator's in-memory materialization of one node output: a
// timestamp-aligned, availability-masked value sequence, or a broadcastable
// scalar for Literal nodes that never establish their own timeline.
type Column struct {
	Scalar     bool
	ScalarVal  kernel.Value
	Timestamps []int64
	Nums       []float64
	Bools      []bool
	IsBool     bool
	Mask       []bool
}

func scalarColumn(v kernel.Value) *Column {
	return &Column{Scalar: true, ScalarVal: v, IsBool: v.IsBool}
}

func newNumColumn(timestamps []int64, nums []float64, mask []bool) *Column {
	return &Column{Timestamps: timestamps, Nums: nums, Mask: mask}
}

func newBoolColumn(timestamps []int64, bools []bool, mask []bool) *Column {
	return &Column{Timestamps: timestamps, Bools: bools, Mask: mask, IsBool: true}
}

// Len reports the number of rows, 0 for a scalar column.
func (c *Column) Len() int {
	if c.Scalar {
		return 0
	}
	return len(c.Timestamps)
}

// At returns the kernel.Value at local index i.
func (c *Column) At(i int) kernel.Value {
	if c.IsBool {
		return kernel.Value{Bool: c.Bools[i], IsBool: true, Available: c.Mask[i]}
	}
	return kernel.Value{Num: c.Nums[i], Available: c.Mask[i]}
}

// timeline merges the distinct, sorted timestamp sets of every non-scalar
// column in cols via a k-way intersection (inner-join alignment, section 4.4
// step 5 -- ffill is never selected by any call site, so only "inner" is
// implemented). When every column is scalar there is no timeline to
// establish and timeline returns nil; callers then produce an empty output
// column.
func timeline(cols []*Column) []int64 {
	var nonScalar []*Column
	for _, c := range cols {
		if !c.Scalar {
			nonScalar = append(nonScalar, c)
		}
	}
	if len(nonScalar) == 0 {
		return nil
	}
	common := append([]int64(nil), nonScalar[0].Timestamps...)
	for _, c := range nonScalar[1:] {
		common = intersect(common, c.Timestamps)
		if len(common) == 0 {
			break
		}
	}
	return common
}

func intersect(a, b []int64) []int64 {
	out := make([]int64, 0, min(len(a), len(b)))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			out = append(out, a[i])
			i++
			j++
		case a[i] < b[j]:
			i++
		default:
			j++
		}
	}
	return out
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// indexOf returns the index of ts in the strictly increasing ts slice via
// binary search, or -1.
func indexOf(timestamps []int64, ts int64) int {
	lo, hi := 0, len(timestamps)
	for lo < hi {
		mid := (lo + hi) / 2
		switch {
		case timestamps[mid] == ts:
			return mid
		case timestamps[mid] < ts:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return -1
}

// valueAt reads a column's value aligned to the merged timeline at row i: a
// scalar column broadcasts its single value at every row; otherwise ts is
// looked up by binary search against the column's own timestamps.
func valueAt(c *Column, ts []int64, i int) kernel.Value {
	if c.Scalar {
		return c.ScalarVal
	}
	idx := indexOf(c.Timestamps, ts[i])
	if idx < 0 {
		return kernel.Unavailable(c.IsBool)
	}
	return c.At(idx)
}
