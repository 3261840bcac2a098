package utils

import (
	"sync"

	"golang.org/x/sync/errgroup"
)

// Communicator stands in for the process group of a distributed run. Each of
// the NP ranks owns one bucket of a PartitionMap over the vector index space.
// Every rank must make the same sequence of collective calls.
type Communicator struct {
	NP int
	mu sync.Mutex
	pm *PartitionMap
}

func NewCommunicator(NP int) (c *Communicator) {
	if NP < 1 {
		panic("communicator needs at least one rank")
	}
	c = &Communicator{NP: NP}
	return
}

func (c *Communicator) PartitionMap(maxIndex int) (pm *PartitionMap) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pm == nil || c.pm.MaxIndex != maxIndex {
		c.pm = NewPartitionMap(c.NP, maxIndex)
	}
	return c.pm
}

// AllReduceSum evaluates partial on each rank's [lo,hi) range concurrently.
// The partials are summed in rank order so the result does not depend on
// goroutine scheduling.
func (c *Communicator) AllReduceSum(maxIndex int,
	partial func(lo, hi int) float64) (sum float64) {
	var (
		pm       = c.PartitionMap(maxIndex)
		partials = make([]float64, c.NP)
		g        errgroup.Group
	)
	for np := 0; np < c.NP; np++ {
		if pm.GetBucketDimension(np) == 0 {
			continue
		}
		np := np // per-iteration copy, go 1.21 loop semantics
		lo, hi := pm.GetBucketRange(np)
		g.Go(func() error {
			partials[np] = partial(lo, hi)
			return nil
		})
	}
	_ = g.Wait()
	for _, p := range partials {
		sum += p
	}
	return
}

// ForEach runs fn over each non empty rank range and waits for all of them.
func (c *Communicator) ForEach(maxIndex int, fn func(np, lo, hi int) error) error {
	var (
		pm = c.PartitionMap(maxIndex)
		g  errgroup.Group
	)
	for np := 0; np < c.NP; np++ {
		if pm.GetBucketDimension(np) == 0 {
			continue
		}
		np := np // per-iteration copy, go 1.21 loop semantics
		lo, hi := pm.GetBucketRange(np)
		g.Go(func() error {
			return fn(np, lo, hi)
		})
	}
	return g.Wait()
}

type PartitionMap struct {
	MaxIndex       int // MaxIndex is partitioned into ParallelDegree partitions
	ParallelDegree int
	Partitions     [][2]int // Beginning and end index of partitions
}

func NewPartitionMap(ParallelDegree, maxIndex int) (pm *PartitionMap) {
	pm = &PartitionMap{
		MaxIndex:       maxIndex,
		ParallelDegree: ParallelDegree,
		Partitions:     make([][2]int, ParallelDegree),
	}
	for n := 0; n < ParallelDegree; n++ {
		pm.Partitions[n] = pm.Split1D(n)
	}
	return
}

func (pm *PartitionMap) GetBucketRange(bucketNum int) (kMin, kMax int) {
	kMin, kMax = pm.Partitions[bucketNum][0], pm.Partitions[bucketNum][1]
	return
}

func (pm *PartitionMap) GetBucketDimension(bn int) (kMax int) {
	var (
		k1, k2 = pm.GetBucketRange(bn)
	)
	kMax = k2 - k1
	return
}

func (pm *PartitionMap) Split1D(threadNum int) (bucket [2]int) {
	// Splits one dimension into ParallelDegree pieces, with a maximum imbalance of one item
	var (
		Npart            = pm.MaxIndex / (pm.ParallelDegree)
		startAdd, endAdd int
		remainder        int
	)
	remainder = pm.MaxIndex % pm.ParallelDegree
	if remainder != 0 { // spread the remainder over the first chunks evenly
		if threadNum+1 > remainder {
			startAdd = remainder
			endAdd = 0
		} else {
			startAdd = threadNum
			endAdd = 1
		}
	}
	bucket[0] = threadNum*Npart + startAdd
	bucket[1] = bucket[0] + Npart + endAdd
	return
}
