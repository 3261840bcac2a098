package utils

import (
	"math"
	"sync/atomic"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestPartitionMap(t *testing.T) {
	{ // Test PartitionMap
		getHisto := func(K, Np int) (histo map[int]int) {
			pm := NewPartitionMap(Np, K)
			histo = make(map[int]int)
			for np := 0; np < pm.ParallelDegree; np++ {
				maxK := pm.GetBucketDimension(np)
				histo[maxK]++
			}
			return
		}
		getTotal := func(histo map[int]int) (total int) {
			for key, count := range histo {
				total += key * count
			}
			return
		}
		assert.Equal(t, map[int]int{0: 30, 1: 2}, getHisto(2, 32))
		assert.Equal(t, map[int]int{1: 32}, getHisto(32, 32))
		assert.Equal(t, map[int]int{8: 32}, getHisto(256, 32))
		assert.Equal(t, map[int]int{8: 1, 9: 31}, getHisto(287, 32))
		assert.Equal(t, 287, getTotal(getHisto(287, 32)))
		for n := 64; n < 2000; n++ {
			var (
				keys   [2]float64
				keyNum int
			)
			histo := getHisto(n, 32)
			for key := range histo {
				keys[keyNum] = float64(key)
				keyNum++
			}
			if keyNum == 2 {
				assert.Equal(t, 1., math.Abs(keys[0]-keys[1])) // Maximum imbalance of 1
			}
			assert.Equal(t, n, getTotal(histo))
		}
	}
}

func TestCommunicator(t *testing.T) {
	{ // Reductions cover every index exactly once
		comm := NewCommunicator(4)
		count := comm.AllReduceSum(103, func(lo, hi int) float64 {
			return float64(hi - lo)
		})
		assert.Equal(t, 103., count)
		// The partition map is reused for the same length
		assert.Same(t, comm.PartitionMap(103), comm.PartitionMap(103))
		assert.Equal(t, 10, comm.PartitionMap(10).MaxIndex)
	}
	{ // ForEach visits every rank and returns the first error
		var (
			comm    = NewCommunicator(3)
			visited int32
		)
		err := comm.ForEach(9, func(np, lo, hi int) error {
			atomic.AddInt32(&visited, 1)
			assert.Equal(t, 3, hi-lo)
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, int32(3), visited)
		err = comm.ForEach(9, func(np, lo, hi int) error {
			if np == 1 {
				return errors.New("rank failed")
			}
			return nil
		})
		assert.EqualError(t, err, "rank failed")
	}
	{ // Ranks without indices are skipped
		var (
			comm    = NewCommunicator(8)
			visited int32
		)
		assert.NoError(t, comm.ForEach(3, func(np, lo, hi int) error {
			atomic.AddInt32(&visited, 1)
			assert.Equal(t, 1, hi-lo)
			return nil
		}))
		assert.Equal(t, int32(3), visited)
		assert.Equal(t, 3., comm.AllReduceSum(3, func(lo, hi int) float64 {
			assert.Equal(t, 1, hi-lo)
			return float64(hi - lo)
		}))
	}
	assert.Panics(t, func() { NewCommunicator(0) })
}
