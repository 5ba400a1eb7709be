// Copyright 2024 The Erigon Authors
// This file is part of Erigon.
//
// Erigon is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Erigon is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Erigon. If not, see <http://www.gnu.org/licenses/>.

// Package histogram computes percentile buckets over sorted samples, in
// 5-point steps from p0 to p100. No other package in this repository
// imports it. Every function here is a
// pure, allocation-only computation: no I/O, no locking.
package histogram

import "fmt"

// Point pairs a priority (e.g. a prioritization fee) with the value
// measured at that priority (e.g. compute units consumed).
type Point struct {
	Priority float64
	Value    float64
}

// Percentiles holds the p0..p100 buckets (step 5) computed over a
// sorted sample set, V[i] is the sample value at percentile P[i].
type Percentiles struct {
	V []float64
	P []float32
}

// String renders the buckets as "(p0,10.00)(p0.05,12.00)(p0.1,...)".
func (p Percentiles) String() string {
	s := ""
	for i := range p.V {
		s += fmt.Sprintf("(p%v,%.2f)", p.P[i], p.V[i])
	}
	return s
}

// BucketValue returns the sample value at the given percentile, if that
// exact bucket exists.
func (p Percentiles) BucketValue(percentile float32) (float64, bool) {
	for i, pct := range p.P {
		if pct == percentile {
			return p.V[i], true
		}
	}
	return 0, false
}

// Calculate computes p0..p100 (step 5) over sorted, a caller-sorted
// ascending slice of samples. It panics if sorted is not non-decreasing
// - a programmer-invariant violation (spec.md §7), not a runtime
// condition to recover from.
func Calculate(sorted []float64) Percentiles {
	if len(sorted) == 0 {
		return Percentiles{}
	}
	assertMonotonic(sorted)

	const step = 5
	n := (100/step + 1)
	values := make([]float64, 0, n)
	percentiles := make([]float32, 0, n)
	for p := 0; p <= 100; p += step {
		idx := len(sorted) * p / 100
		if idx > len(sorted)-1 {
			idx = len(sorted) - 1
		}
		values = append(values, sorted[idx])
		percentiles = append(percentiles, float32(p)/100.0)
	}
	return Percentiles{V: values, P: percentiles}
}

// PercentilesCumulative is Calculate's counterpart for weighted
// cumulative distributions: "what priority do I need to beat to be in
// the top X% of value".
type PercentilesCumulative struct {
	BucketValues []float64
	Percentiles  []float32
}

// BucketValue returns the bucket value at the given percentile, if that
// exact bucket exists.
func (p PercentilesCumulative) BucketValue(percentile float32) (float64, bool) {
	for i, pct := range p.Percentiles {
		if pct == percentile {
			return p.BucketValues[i], true
		}
	}
	return 0, false
}

// CalculateCumulative computes, for each 5-point percentile step, the
// lowest Priority whose cumulative Value share reaches that percentile
// of the total. points must be sorted ascending by Priority.
func CalculateCumulative(points []Point) PercentilesCumulative {
	if len(points) == 0 {
		return PercentilesCumulative{}
	}
	assertMonotonicPoints(points)

	var total float64
	for _, pt := range points {
		total += pt.Value
	}

	agg := points[0].Value
	index := 0
	const step = 5

	values := make([]float64, 0, 100/step+1)
	percentiles := make([]float32, 0, 100/step+1)
	for p := 0; p <= 100; p += step {
		target := total * float64(p) / 100.0
		for agg < target && index < len(points)-1 {
			index++
			agg += points[index].Value
		}
		values = append(values, points[index].Priority)
		percentiles = append(percentiles, float32(p)/100.0)
	}
	return PercentilesCumulative{BucketValues: values, Percentiles: percentiles}
}

func assertMonotonic(sorted []float64) {
	for i := 1; i < len(sorted); i++ {
		if sorted[i-1] > sorted[i] {
			panic("histogram: input must be sorted ascending")
		}
	}
}

func assertMonotonicPoints(points []Point) {
	for i := 1; i < len(points); i++ {
		if points[i-1].Priority > points[i].Priority {
			panic("histogram: points must be sorted ascending by priority")
		}
	}
}
