package ids

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratorUniqueAndIncreasing(t *testing.T) {
	g := NewGenerator(7)
	var last int64
	for i := 0; i < 10000; i++ {
		id := g.Next()
		require.Greater(t, id, last)
		last = id
	}
	assert.Equal(t, int64(7), NodeOf(last))
}

func TestGeneratorConcurrent(t *testing.T) {
	g := NewGenerator(3)
	const workers, each = 8, 2000

	var (
		mu   sync.Mutex
		seen = make(map[int64]struct{}, workers*each)
		wg   sync.WaitGroup
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]int64, 0, each)
			for i := 0; i < each; i++ {
				local = append(local, g.Next())
			}
			mu.Lock()
			for _, id := range local {
				seen[id] = struct{}{}
			}
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Len(t, seen, workers*each)
}

func TestInvalidNode(t *testing.T) {
	g := NewGenerator(5000)
	assert.Equal(t, int64(1), NodeOf(g.Next()))
	assert.NotEmpty(t, GenerateString())
}
