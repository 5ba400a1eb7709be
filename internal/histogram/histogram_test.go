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

package histogram

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCalculateBasic(t *testing.T) {
	values := []float64{2.0, 4.0, 5.0, 3.0, 1.0}
	sort.Float64s(values)

	v := Calculate(values).V
	require.Equal(t, 1.0, v[0])
	require.Equal(t, 3.0, v[10])
	require.Equal(t, 4.0, v[15])
	require.Equal(t, 5.0, v[18])
	require.Equal(t, 5.0, v[20])
}

func TestCalculateCumulativeBasic(t *testing.T) {
	points := []Point{{Priority: 100.0, Value: 10000.0}, {Priority: 200.0, Value: 10000.0}}
	dist := CalculateCumulative(points)

	require.Equal(t, float32(0.5), dist.Percentiles[10])
	require.Equal(t, 100.0, dist.BucketValues[10])
	require.Equal(t, 200.0, dist.BucketValues[11])
	require.Equal(t, 200.0, dist.BucketValues[20])
}

func TestCalculateEmpty(t *testing.T) {
	require.Empty(t, Calculate(nil).V)
}

func TestCalculateCumulativeZeros(t *testing.T) {
	points := []Point{{Priority: 0, Value: 0}, {Priority: 0, Value: 0}}
	dist := CalculateCumulative(points)
	require.Equal(t, 0.0, dist.BucketValues[0])
}

func TestStatisticsHowToBoundary(t *testing.T) {
	values := []float64{30, 33, 43, 53, 56, 67, 68, 72}
	p := Calculate(values)
	require.Equal(t, 43.0, p.V[5])
	require.Equal(t, float32(0.25), p.P[5])
	got, ok := p.BucketValue(0.25)
	require.True(t, ok)
	require.Equal(t, 43.0, got)

	points := []Point{
		{30, 1}, {33, 2}, {43, 3}, {53, 4}, {56, 5}, {67, 6}, {68, 7}, {72, 8},
	}
	dist := CalculateCumulative(points)
	require.Equal(t, float32(1.0), dist.Percentiles[20])
	require.Equal(t, 72.0, dist.BucketValues[20])
}

func TestNonIntegerIndex(t *testing.T) {
	values := []float64{3, 5, 5, 6, 7, 7, 8, 10, 10}
	p := Calculate(values)
	require.Equal(t, float32(0.20), p.P[4])
	require.Equal(t, 5.0, p.V[5])
}

func TestLargeList(t *testing.T) {
	values := make([]float64, 1000)
	for i := range values {
		values[i] = float64(i)
	}
	p := Calculate(values)
	require.Equal(t, 950.0, p.V[19])
	require.Equal(t, float32(0.95), p.P[19])
}

func TestCalculatePanicsOnUnsortedInput(t *testing.T) {
	require.Panics(t, func() {
		Calculate([]float64{5, 1, 3})
	})
}
