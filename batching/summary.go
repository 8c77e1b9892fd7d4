package batching

import "sort"

// Count pairs a label with how many records carry it.
type Count struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Summary is a roll-up of one run, used for logs and API responses.
type Summary struct {
	Total       int     `json:"total"`
	Batched     int     `json:"batched"`
	Future      int     `json:"future"`
	Unbatchable int     `json:"unbatchable"`
	Batches     []Count `json:"batches"`
	TopReasons  []Count `json:"top_reasons"`
}

const topReasons = 10

// Summarize counts statuses, leads per batch name (sorted by name) and the
// most frequent reasons (ties broken by reason text).
func Summarize(records []Record) Summary {
	s := Summary{Total: len(records)}
	batches := map[string]int{}
	reasons := map[string]int{}
	for _, rec := range records {
		switch rec.Status {
		case StatusFuture:
			s.Future++
		case StatusUnbatchable:
			s.Unbatchable++
		}
		if rec.Batch != nil {
			s.Batched++
			batches[rec.Batch.Name]++
		}
		reasons[rec.Reason]++
	}

	s.Batches = sortedCounts(batches, func(a, b Count) bool { return a.Label < b.Label })
	s.TopReasons = sortedCounts(reasons, func(a, b Count) bool {
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Label < b.Label
	})
	if len(s.TopReasons) > topReasons {
		s.TopReasons = s.TopReasons[:topReasons]
	}
	return s
}

func sortedCounts(m map[string]int, less func(a, b Count) bool) []Count {
	out := make([]Count, 0, len(m))
	for label, n := range m {
		out = append(out, Count{Label: label, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}
