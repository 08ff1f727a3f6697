package seeder

import (
	"hash/fnv"
	"math/rand/v2"
	"sort"
)

const golden = 0x9e3779b97f4a7c15

func splitmix(x uint64) uint64 {
	x += golden
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

// sourceFactory derives the random source of every row of one table from
// the run seed. A row's source depends only on (seed, table, index), so rows
// can be drafted in any order or in parallel.
type sourceFactory struct {
	stream uint64
}

func newSourceFactory(seed int64, table string) sourceFactory {
	h := fnv.New64a()
	h.Write([]byte(table))
	return sourceFactory{stream: splitmix(uint64(seed) ^ h.Sum64())}
}

func (f sourceFactory) row(index int) *rand.Rand {
	return rand.New(rand.NewPCG(f.stream, splitmix(f.stream^uint64(index))))
}

// choice picks an index into a finite set, uniformly or by weight.
type choice struct {
	n   int
	cum []float64
}

func newChoice(n int, weights []float64) choice {
	c := choice{n: n}
	if len(weights) != n {
		return c
	}
	c.cum = make([]float64, n)
	var total float64
	for i, w := range weights {
		total += w
		c.cum[i] = total
	}
	if total <= 0 {
		c.cum = nil
	}
	return c
}

// index consumes exactly one draw from r.
func (c choice) index(r *rand.Rand) int {
	if c.cum == nil {
		return r.IntN(c.n)
	}
	x := r.Float64() * c.cum[c.n-1]
	i := sort.Search(c.n, func(i int) bool { return c.cum[i] > x })
	if i == c.n {
		i = c.n - 1
	}
	return i
}
