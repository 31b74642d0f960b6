package sampler_test

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hedisam/assetd/server/internal/sampler"
)

func population(n int) []string {
	items := make([]string, 0, n)
	for i := range n {
		items = append(items, fmt.Sprintf("key-%d", i))
	}
	return items
}

func TestSampleSize(t *testing.T) {
	s := sampler.New(rand.NewPCG(1, 2))

	for n := range 8 {
		for k := range 10 {
			t.Run(fmt.Sprintf("n=%d,k=%d", n, k), func(t *testing.T) {
				items := population(n)
				got := sampler.Sample(s, items, k)

				require.NotNil(t, got)
				assert.Len(t, got, min(k, n))

				seen := make(map[string]struct{}, len(got))
				for _, item := range got {
					assert.Contains(t, items, item, "no phantom keys")
					seen[item] = struct{}{}
				}
				assert.Len(t, seen, len(got), "no duplicates")
			})
		}
	}
}

func TestSampleDoesNotMutateInput(t *testing.T) {
	items := population(10)
	before := append([]string(nil), items...)

	_ = sampler.Sample(sampler.New(nil), items, 3)
	assert.Equal(t, before, items)
}

func TestSampleWholePopulation(t *testing.T) {
	items := population(3)
	got := sampler.Sample(sampler.New(nil), items, 3)
	assert.Equal(t, items, got)

	got[0] = "changed"
	assert.Equal(t, "key-0", items[0], "returned slice must not alias the input")
}

func TestSampleUniformity(t *testing.T) {
	s := sampler.New(rand.NewPCG(42, 7))
	items := population(4)

	const trials, k = 1000, 3
	counts := make(map[string]int, len(items))
	for range trials {
		for _, item := range sampler.Sample(s, items, k) {
			counts[item]++
		}
	}

	// each key is expected trials*k/n = 750 times with a standard deviation of ~13.7
	expected := float64(trials*k) / float64(len(items))
	for _, item := range items {
		assert.InDelta(t, expected, counts[item], 75, "key %s drawn %d times", item, counts[item])
	}
}

func TestSampleSubsetUniformity(t *testing.T) {
	s := sampler.New(rand.NewPCG(3, 9))
	items := population(5)

	// C(5,2) = 10 subsets, each expected 1000 times out of 10000
	const trials = 10000
	counts := make(map[string]int)
	for range trials {
		got := sampler.Sample(s, items, 2)
		a, b := got[0], got[1]
		if a > b {
			a, b = b, a
		}
		counts[a+"|"+b]++
	}

	require.Len(t, counts, 10)
	for subset, c := range counts {
		assert.InDelta(t, 1000, c, 150, "subset %s drawn %d times", subset, c)
	}
}
