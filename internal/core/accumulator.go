package core

// DefaultBatchSize is the number of rows per batch when none is configured.
const DefaultBatchSize = 1000

// Accumulator buffers rows into batches of at most size rows. Each emitted
// batch is a fresh slice, so a worker may keep it while the accumulator
// keeps filling the next one.
type Accumulator struct {
	size int
	buf  []RawRow
}

// NewAccumulator creates an accumulator with the given maximum batch size.
func NewAccumulator(size int) *Accumulator {
	if size <= 0 {
		size = DefaultBatchSize
	}
	return &Accumulator{size: size, buf: make([]RawRow, 0, size)}
}

// Add appends a row. When the batch reaches its maximum size it is returned
// with full == true and the accumulator starts a new one.
func (a *Accumulator) Add(row RawRow) (batch []RawRow, full bool) {
	a.buf = append(a.buf, row)
	if len(a.buf) < a.size {
		return nil, false
	}
	batch = a.buf
	a.buf = make([]RawRow, 0, a.size)
	return batch, true
}

// Flush returns the partial trailing batch, or nil if it is empty.
func (a *Accumulator) Flush() []RawRow {
	if len(a.buf) == 0 {
		return nil
	}
	batch := a.buf
	a.buf = make([]RawRow, 0, a.size)
	return batch
}

// Pending returns the number of buffered rows.
func (a *Accumulator) Pending() int { return len(a.buf) }
