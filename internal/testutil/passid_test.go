package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFixedPassIDGenerator(t *testing.T) {
	gen := NewFixedPassIDGenerator("pass-1")
	assert.Equal(t, "pass-1", gen.Generate())
	assert.Equal(t, "pass-1", gen.Generate())
}

func TestFixedPassIDGeneratorDefault(t *testing.T) {
	assert.Equal(t, "test-pass-default", NewFixedPassIDGenerator("").Generate())
}

func TestFixedPassIDGeneratorConcurrent(t *testing.T) {
	gen := NewFixedPassIDGenerator("pass-1")
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, "pass-1", gen.Generate())
		}()
	}
	wg.Wait()
}
