package utils

import "testing"

func TestNextFreeID(t *testing.T) {
	tests := []struct {
		name string
		used []int64
		want int64
	}{
		{"empty set", nil, 1},
		{"gap in the middle", []int64{1, 2, 4}, 3},
		{"contiguous", []int64{1, 2, 3}, 4},
		{"gap at the start", []int64{2, 3}, 1},
		{"unsorted input", []int64{3, 1, 5, 2}, 4},
		{"duplicates ignored", []int64{1, 1, 2, 2, 3}, 4},
		{"non-positive ignored", []int64{-1, 0, 1}, 2},
		{"single high id", []int64{10}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NextFreeID(tt.used); got != tt.want {
				t.Errorf("NextFreeID(%v) = %d, want %d", tt.used, got, tt.want)
			}
		})
	}
}

func TestNextFreeIDDoesNotMutateInput(t *testing.T) {
	used := []int64{3, 1, 2}
	NextFreeID(used)

	if used[0] != 3 || used[1] != 1 || used[2] != 2 {
		t.Errorf("NextFreeID() reordered its input: %v", used)
	}
}

func TestNextFreeIDIsSmallestMissing(t *testing.T) {
	for size := 0; size < 20; size++ {
		for hole := int64(1); hole <= int64(size)+1; hole++ {
			used := make([]int64, 0, size)
			for id := int64(1); id <= int64(size)+1; id++ {
				if id != hole {
					used = append(used, id)
				}
			}

			if got := NextFreeID(used); got != hole {
				t.Fatalf("NextFreeID(%v) = %d, want %d", used, got, hole)
			}
		}
	}
}
