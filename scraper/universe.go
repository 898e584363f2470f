package scraper

import "sort"

// Remaining computes known − fetched − failed as a sorted, duplicate-free
// id list. The result is deterministic for a given set of inputs, which
// keeps batch membership reproducible across interrupted runs.
func Remaining(known, fetched, failed []int64) []int64 {
	if len(known) == 0 {
		return nil
	}

	exclude := make(map[int64]struct{}, len(fetched)+len(failed))
	for _, id := range fetched {
		exclude[id] = struct{}{}
	}
	for _, id := range failed {
		exclude[id] = struct{}{}
	}

	seen := make(map[int64]struct{}, len(known))
	remaining := make([]int64, 0, len(known))
	for _, id := range known {
		if _, ok := exclude[id]; ok {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		remaining = append(remaining, id)
	}
	sort.Slice(remaining, func(i, j int) bool { return remaining[i] < remaining[j] })
	return remaining
}
