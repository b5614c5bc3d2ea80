// ABOUTME: Tests for the chunk planner covering coverage, determinism, and edge sizes.
// ABOUTME: Verifies ranges are contiguous, non-overlapping, and count matches ceil division.
package chunker

import "testing"

func TestPlanCoversFileExactly(t *testing.T) {
	cases := []struct {
		name      string
		size      int64
		chunkSize int64
		want      int
	}{
		{"empty file", 0, DefaultChunkSize, 0},
		{"single byte", 1, DefaultChunkSize, 1},
		{"exact multiple", 4 << 20, 1 << 20, 4},
		{"one byte over", (4 << 20) + 1, 1 << 20, 5},
		{"one byte under", (4 << 20) - 1, 1 << 20, 4},
		{"smaller than chunk", 100, 1 << 20, 1},
		{"two and a half MiB", 5 << 19, 1 << 20, 3},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ranges := Plan(tc.size, tc.chunkSize)
			if len(ranges) != tc.want {
				t.Fatalf("expected %d ranges, got %d", tc.want, len(ranges))
			}
			if got := Count(tc.size, tc.chunkSize); got != tc.want {
				t.Fatalf("Count = %d, want %d", got, tc.want)
			}

			// Ranges must tile [0, size) in order with no gaps or overlaps.
			var cursor int64
			for i, r := range ranges {
				if r.Index != i {
					t.Fatalf("range %d has index %d", i, r.Index)
				}
				if r.Start != cursor {
					t.Fatalf("range %d starts at %d, want %d", i, r.Start, cursor)
				}
				if r.Len() <= 0 || r.Len() > tc.chunkSize {
					t.Fatalf("range %d has length %d with chunk size %d", i, r.Len(), tc.chunkSize)
				}
				cursor = r.End
			}
			if cursor != tc.size && tc.size > 0 {
				t.Fatalf("ranges cover [0, %d), want [0, %d)", cursor, tc.size)
			}
		})
	}
}

func TestPlanFinalChunkMayBeShort(t *testing.T) {
	ranges := Plan(5<<19, 1<<20) // 2.5 MiB in 1 MiB chunks
	if len(ranges) != 3 {
		t.Fatalf("expected 3 ranges, got %d", len(ranges))
	}
	if ranges[0].Len() != 1<<20 || ranges[1].Len() != 1<<20 {
		t.Fatalf("full chunks have lengths %d, %d", ranges[0].Len(), ranges[1].Len())
	}
	if ranges[2].Len() != 1<<19 {
		t.Fatalf("final chunk length = %d, want %d", ranges[2].Len(), int64(1<<19))
	}
}

func TestPlanDeterministic(t *testing.T) {
	a := Plan(7_654_321, 65536)
	b := Plan(7_654_321, 65536)
	if len(a) != len(b) {
		t.Fatalf("lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("range %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestPlanZeroLengthFile(t *testing.T) {
	ranges := Plan(0, DefaultChunkSize)
	if ranges == nil {
		t.Fatal("expected empty non-nil slice for zero-length file")
	}
	if len(ranges) != 0 {
		t.Fatalf("expected 0 ranges, got %d", len(ranges))
	}
}

func TestPlanInvalidChunkSize(t *testing.T) {
	if got := Plan(100, 0); got != nil {
		t.Fatalf("expected nil for zero chunk size, got %v", got)
	}
	if got := Plan(100, -1); got != nil {
		t.Fatalf("expected nil for negative chunk size, got %v", got)
	}
	if got := Count(100, 0); got != 0 {
		t.Fatalf("Count with zero chunk size = %d, want 0", got)
	}
}
