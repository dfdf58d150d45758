package result

import "math"

const (
	// MaxOutputs caps the retained set regardless of what the user asked
	// for. Large libraries would otherwise make the final artifact, and the
	// buffer holding it, arbitrarily big.
	MaxOutputs = 1000

	// DefaultSlack is how far past capacity the buffer may grow before it
	// is compacted. Sorting every insert would be O(N log N) over the whole
	// stream; sorting every slack-th insert amortizes it away.
	DefaultSlack = 50
)

// Sentinel is the admit-everything threshold used until the buffer has
// accumulated enough evidence to produce a real cutoff.
func Sentinel() float64 {
	return math.Inf(1)
}

// Buffer is a bounded best-K set of records. It is not safe for concurrent
// use: the aggregator owns it exclusively and all access is serialized
// through its run loop.
type Buffer struct {
	k         int
	slack     int
	records   []Record
	threshold float64
}

// NewBuffer returns a buffer retaining the best k records, clamped to
// MaxOutputs. A non-positive slack falls back to DefaultSlack.
func NewBuffer(k, slack int) *Buffer {
	if k > MaxOutputs {
		k = MaxOutputs
	}
	if k < 1 {
		k = 1
	}
	if slack <= 0 {
		slack = DefaultSlack
	}

	return &Buffer{
		k:         k,
		slack:     slack,
		records:   make([]Record, 0, k+slack),
		threshold: Sentinel(),
	}
}

// Capacity returns the effective K after clamping.
func (b *Buffer) Capacity() int {
	return b.k
}

// Len returns the number of records currently held, compacted or not.
func (b *Buffer) Len() int {
	return len(b.records)
}

// Add appends records and compacts once the buffer reaches K plus slack.
// It reports whether a compaction happened, so the caller knows when the
// threshold may have tightened.
func (b *Buffer) Add(records []Record) bool {
	b.records = append(b.records, records...)
	if len(b.records) < b.k+b.slack {
		return false
	}

	b.Compact()

	return true
}

// Compact dedupes, sorts ascending and truncates to K, then refreshes the
// threshold. This is the only place the buffer is ever sorted.
func (b *Buffer) Compact() {
	b.records = Dedupe(b.records)
	Sort(b.records)
	if len(b.records) > b.k {
		b.records = b.records[:b.k]
	}

	if len(b.records) == b.k {
		if t := b.records[b.k-1].Score; t < b.threshold {
			b.threshold = t
		}
	}
}

// Threshold returns the current admission cutoff: the score of the K-th
// retained record once the buffer has filled, the sentinel before that.
// It never loosens over the lifetime of the buffer.
func (b *Buffer) Threshold() float64 {
	return b.threshold
}

// Final compacts fully and returns the retained records. Calling it again
// returns the same set in the same order; the buffer never holds more than
// K records afterwards.
func (b *Buffer) Final() []Record {
	b.Compact()

	out := make([]Record, len(b.records))
	copy(out, b.records)

	return out
}
