package batching

import (
	"fmt"
	"sort"
	"time"
)

// Schedule lays the selected records out into dated batches, one
// independent sequence per provider.
//
// Each provider's leads are stably sorted by priority score and cut into
// chunks of opts.DailyCapacity(). Chunk i (0-based) becomes batch i+1 and is
// sent on StartDate + (i mod BatchDurationDays) days, so dates cycle inside
// the batch window rather than growing without bound.
func Schedule(records []Record, selected []int, opts Options) []Record {
	out := make([]Record, len(records))
	copy(out, records)

	capacity := opts.DailyCapacity()
	if capacity <= 0 || opts.BatchDurationDays <= 0 {
		return out
	}

	byProvider := make(map[string][]int)
	for _, i := range selected {
		p := out[i].Provider
		byProvider[p] = append(byProvider[p], i)
	}
	providers := make([]string, 0, len(byProvider))
	for p := range byProvider {
		providers = append(providers, p)
	}
	sort.Strings(providers)

	start := dateOnly(opts)
	for _, provider := range providers {
		queue := byProvider[provider]
		sort.SliceStable(queue, func(a, b int) bool {
			return out[queue[a]].PriorityScore > out[queue[b]].PriorityScore
		})

		for chunk := 0; chunk*capacity < len(queue); chunk++ {
			lo := chunk * capacity
			hi := min(lo+capacity, len(queue))
			batch := Batch{
				Number:   chunk + 1,
				SendDate: start.AddDate(0, 0, chunk%opts.BatchDurationDays),
				Name:     fmt.Sprintf("%s batch-%d", provider, chunk+1),
			}
			for _, i := range queue[lo:hi] {
				rec := &out[i]
				rec.Status = StatusSelected
				b := batch
				rec.Batch = &b
				rec.Reason = fmt.Sprintf("%s → Assigned to %s", rec.Reason, batch.Name)
			}
		}
	}
	return out
}

func dateOnly(opts Options) time.Time {
	y, m, d := opts.StartDate.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, opts.StartDate.Location())
}
