// Package buffer holds fixed-size windows over the most recent outcomes of a
// chain.
package buffer

// CircularBool is a circular buffer of accept/reject outcomes with the
// ability to iterate over the first and second halves of the outcomes
// collected in the order that they were appended.
type CircularBool struct {
	buffer    []bool // actual storage
	pos       int    // Current position in buffer
	BufSize   int    // BufSize is the fixed number of outcomes maintained in memory
	Count     int    // Count is the number of outcomes in memory. Will always be <= BufSize
	TotalSeen int64  // TotalSeen is the total number of times Add has been called
	TotalTrue int64  // TotalTrue is the number of true outcomes ever added
}

// NewCircularBool creates a new circular buffer of totalSize. If totalSize is
// not a multiple of 2, it will be adjusted.
func NewCircularBool(totalSize int) *CircularBool {
	// Fix odd number situations
	half := totalSize / 2
	if half < 1 {
		half = 1
	}
	total := half + half

	return &CircularBool{
		buffer:  make([]bool, total),
		pos:     0,
		BufSize: total,
		Count:   0,
	}
}

// Internal: return the next array position
func (c *CircularBool) nextPos() int {
	return (c.pos + 1) % c.BufSize
}

// Add appends the given outcome to the buffer, overwriting the oldest entry
func (c *CircularBool) Add(b bool) {
	c.TotalSeen++
	if b {
		c.TotalTrue++
	}

	c.buffer[c.pos] = b
	c.pos = c.nextPos()

	c.Count++
	if c.Count > c.BufSize {
		c.Count = c.BufSize // max out
	}
}

// Rate is the fraction of true outcomes currently in the window, or 0 for an
// empty window
func (c *CircularBool) Rate() float64 {
	if c.Count < 1 {
		return 0
	}

	hits := 0
	start := (c.pos - c.Count + c.BufSize) % c.BufSize
	for i := 0; i < c.Count; i++ {
		if c.buffer[(start+i)%c.BufSize] {
			hits++
		}
	}
	return float64(hits) / float64(c.Count)
}

// HalfRates returns the true fraction of the first (oldest) and second
// (newest) halves of a full window. ok is false until Add has been called at
// least BufSize times.
func (c *CircularBool) HalfRates() (first, second float64, ok bool) {
	if c.Count < c.BufSize {
		return 0, 0, false
	}
	return rate(c.FirstHalf()), rate(c.SecondHalf()), true
}

func rate(iter *CircularBoolIterator) float64 {
	n, hits := 0, 0
	for iter.Next() {
		n++
		if iter.Value() {
			hits++
		}
	}
	return float64(hits) / float64(n)
}

// FirstHalf returns an iterator over the first (oldest) half of the stored
// values. Will not return a valid iterator until Add has been called at least
// BufSize times
func (c *CircularBool) FirstHalf() *CircularBoolIterator {
	if c.Count < c.BufSize {
		return nil
	}

	return &CircularBoolIterator{
		buf:    c,
		curr:   c.pos, // Oldest is the one we're about to write
		remain: c.BufSize / 2,
	}
}

// SecondHalf returns an iterator over the second (most recent) half of the
// stored values. Will not return a valid iterator until Add has been called at
// least BufSize times
func (c *CircularBool) SecondHalf() *CircularBoolIterator {
	if c.Count < c.BufSize {
		return nil
	}

	half := c.BufSize / 2
	pos := (c.pos + half) % c.BufSize

	return &CircularBoolIterator{
		buf:    c,
		curr:   pos,
		remain: half,
	}
}

// CircularBoolIterator provides an iterator over a CircularBool buffer
type CircularBoolIterator struct {
	buf    *CircularBool
	curr   int
	remain int
}

// Next returns True when there are more values to read via Value
func (i *CircularBoolIterator) Next() bool {
	return i.remain > 0
}

// Value return the next outcome to be read. Should only be called if Next()
// is True
func (i *CircularBoolIterator) Value() bool {
	v := i.buf.buffer[i.curr]
	i.curr = (i.curr + 1) % i.buf.BufSize
	i.remain--
	return v
}
