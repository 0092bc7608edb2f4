package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name string
		in   string
		size int
		want []string
	}{
		{"exact multiple", "abcdef", 2, []string{"ab", "cd", "ef"}},
		{"trailing remainder dropped", "abcde", 2, []string{"ab", "cd"}},
		{"shorter than size", "a", 2, []string{}},
		{"empty", "", 3, []string{}},
		{"size one", "xyz", 1, []string{"x", "y", "z"}},
		{"zero size", "abc", 0, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Split(tt.in, tt.size))
		})
	}
}

func TestChunkCountAndConcatenation(t *testing.T) {
	s := "0123456789abcdef0123456789abcdef0"
	for k := 1; k <= 7; k++ {
		chunks := Split(s, k)
		n := len(s) / k
		require.Len(t, chunks, n, "size %d", k)
		for _, c := range chunks {
			assert.Len(t, c, k)
		}
		assert.Equal(t, s[:k*n], strings.Join(chunks, ""))
	}
}

func TestNextAfterExhaustion(t *testing.T) {
	c := New("abcd", 2)
	assert.Equal(t, 2, c.Remaining())

	first, ok := c.Next()
	require.True(t, ok)
	assert.Equal(t, "ab", first)

	second, ok := c.Next()
	require.True(t, ok)
	assert.Equal(t, "cd", second)

	for i := 0; i < 3; i++ {
		chunk, ok := c.Next()
		assert.False(t, ok)
		assert.Empty(t, chunk)
	}
	assert.Equal(t, 0, c.Remaining())
}
