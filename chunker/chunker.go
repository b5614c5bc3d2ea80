// ABOUTME: Deterministic partitioning of a file into fixed-size byte ranges for chunked upload.
// ABOUTME: Pure functions over (size, chunkSize); the final range may be shorter than the chunk size.
package chunker

// DefaultChunkSize is the chunk size used when the caller does not specify one.
const DefaultChunkSize = 1 << 20 // 1 MiB

// Range is one contiguous byte range [Start, End) of the source file together
// with its position in the upload sequence.
type Range struct {
	Index int
	Start int64
	End   int64
}

// Len returns the number of bytes covered by the range.
func (r Range) Len() int64 {
	return r.End - r.Start
}

// Count returns the number of chunks a file of the given size splits into:
// ceil(size / chunkSize). Zero-length files produce zero chunks. A
// non-positive chunkSize returns 0.
func Count(size, chunkSize int64) int {
	if size <= 0 || chunkSize <= 0 {
		return 0
	}
	return int((size + chunkSize - 1) / chunkSize)
}

// Plan partitions [0, size) into Count(size, chunkSize) ranges in ascending
// index order. The ranges are contiguous and non-overlapping, and identical
// inputs always yield the identical partition. A zero-length file yields an
// empty (non-nil) slice; a non-positive chunkSize yields nil.
func Plan(size, chunkSize int64) []Range {
	if chunkSize <= 0 {
		return nil
	}
	n := Count(size, chunkSize)
	ranges := make([]Range, 0, n)
	for i := 0; i < n; i++ {
		start := int64(i) * chunkSize
		end := start + chunkSize
		if end > size {
			end = size
		}
		ranges = append(ranges, Range{Index: i, Start: start, End: end})
	}
	return ranges
}
