package scraper

import "testing"

func idRange(start, end int64) []int64 {
	out := make([]int64, 0, end-start+1)
	for id := start; id <= end; id++ {
		out = append(out, id)
	}
	return out
}

func TestBatchesPartitionExactly(t *testing.T) {
	tests := []struct {
		name      string
		n         int64
		target    int
		size      int
		wantCount int
		wantTotal int
	}{
		{name: "even split", n: 9, target: 0, size: 3, wantCount: 3, wantTotal: 9},
		{name: "remainder batch", n: 10, target: 0, size: 3, wantCount: 4, wantTotal: 10},
		{name: "target caps input", n: 10, target: 4, size: 3, wantCount: 2, wantTotal: 4},
		{name: "target beyond input", n: 5, target: 100, size: 2, wantCount: 3, wantTotal: 5},
		{name: "size zero means one batch", n: 7, target: 0, size: 0, wantCount: 1, wantTotal: 7},
		{name: "size zero with target", n: 7, target: 5, size: 0, wantCount: 1, wantTotal: 5},
		{name: "size larger than input", n: 3, target: 0, size: 50, wantCount: 1, wantTotal: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ids := idRange(1, tt.n)
			batches := Batches(ids, tt.target, tt.size)
			if len(batches) != tt.wantCount {
				t.Fatalf("len(batches) = %d, want %d", len(batches), tt.wantCount)
			}

			total := 0
			next := int64(1)
			for _, batch := range batches {
				total += len(batch)
				for _, id := range batch {
					if id != next {
						t.Fatalf("batches out of order: got id %d, want %d", id, next)
					}
					next++
				}
			}
			if total != tt.wantTotal {
				t.Fatalf("total ids batched = %d, want %d", total, tt.wantTotal)
			}
		})
	}
}

func TestBatchesEmptyInput(t *testing.T) {
	if batches := Batches(nil, 0, 100); batches != nil {
		t.Fatalf("Batches(nil) = %v, want nil", batches)
	}
}
