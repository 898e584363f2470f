package scraper

// Batches splits ids into ordered chunks covering exactly min(target,
// len(ids)) ids. target 0 means all of them; size 0 means a single batch
// holding everything requested. An empty input yields no batches.
func Batches(ids []int64, target, size int) [][]int64 {
	if len(ids) == 0 {
		return nil
	}
	if target == 0 || target > len(ids) {
		target = len(ids)
	}
	if size == 0 || size > target {
		size = target
	}

	batches := make([][]int64, 0, target/size+1)
	for start := 0; start < target; start += size {
		end := start + size
		if end > target {
			end = target
		}
		batches = append(batches, ids[start:end])
	}
	return batches
}
