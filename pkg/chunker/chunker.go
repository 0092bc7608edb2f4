// Package chunker splits fixed-length strings, typically hex digests, into
// equal-size groups used as nested shard directory names.
package chunker

// Chunker yields successive substrings of length size from s, left to right.
//
// A trailing remainder shorter than size is dropped: "abcde" with size 2
// yields "ab" and "cd" only. The object store relies on this when it asks
// for a fixed number of shard levels. A Chunker cannot be rewound; once
// exhausted every call to Next reports false.
type Chunker struct {
	s    string
	size int
	pos  int
}

// New returns a Chunker over s. A non-positive size yields nothing.
func New(s string, size int) *Chunker {
	return &Chunker{s: s, size: size}
}

// Next returns the next chunk and true, or "" and false when no complete
// chunk remains.
func (c *Chunker) Next() (string, bool) {
	if c.size <= 0 || c.pos+c.size > len(c.s) {
		c.pos = len(c.s)
		return "", false
	}
	chunk := c.s[c.pos : c.pos+c.size]
	c.pos += c.size
	return chunk, true
}

// Remaining reports how many complete chunks are left.
func (c *Chunker) Remaining() int {
	if c.size <= 0 {
		return 0
	}
	return (len(c.s) - c.pos) / c.size
}

// Split is a convenience wrapper returning every complete chunk at once.
func Split(s string, size int) []string {
	c := New(s, size)
	out := make([]string, 0, c.Remaining())
	for {
		chunk, ok := c.Next()
		if !ok {
			return out
		}
		out = append(out, chunk)
	}
}
