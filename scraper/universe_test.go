package scraper

import (
	"reflect"
	"testing"
)

func TestRemainingSetDifference(t *testing.T) {
	tests := []struct {
		name    string
		known   []int64
		fetched []int64
		failed  []int64
		want    []int64
	}{
		{
			name:    "basic difference",
			known:   []int64{1, 2, 3, 4, 5, 6},
			fetched: []int64{2, 4},
			failed:  []int64{5},
			want:    []int64{1, 3, 6},
		},
		{
			name:  "unsorted known with duplicates",
			known: []int64{9, 1, 9, 5, 1},
			want:  []int64{1, 5, 9},
		},
		{
			name:    "everything accounted for",
			known:   []int64{1, 2},
			fetched: []int64{1},
			failed:  []int64{2},
			want:    nil,
		},
		{
			name: "empty known",
			want: nil,
		},
		{
			name:    "fetched and failed overlap",
			known:   []int64{1, 2, 3},
			fetched: []int64{2},
			failed:  []int64{2, 3},
			want:    []int64{1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Remaining(tt.known, tt.fetched, tt.failed)
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Remaining = %v, want %v", got, tt.want)
			}
		})
	}
}

func BenchmarkRemaining(b *testing.B) {
	known := idRange(1, 200000)
	fetched := idRange(1, 120000)
	failed := idRange(150000, 160000)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if got := Remaining(known, fetched, failed); len(got) == 0 {
			b.Fatalf("unexpected empty remainder")
		}
	}
}

func TestRemainingIsDeterministic(t *testing.T) {
	known := []int64{42, 7, 13, 7, 99}
	first := Remaining(known, []int64{13}, nil)
	second := Remaining(known, []int64{13}, nil)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("Remaining not stable: %v vs %v", first, second)
	}
	for i := 1; i < len(first); i++ {
		if first[i-1] >= first[i] {
			t.Fatalf("Remaining not strictly ascending: %v", first)
		}
	}
}
