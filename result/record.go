package result

import "sort"

// Record is a single scored ligand. Lower scores are better: docking scores
// are binding free energies, so the screen is a minimization.
type Record struct {
	ItemID string  `json:"item_id"`
	Score  float64 `json:"score"`
}

// Less orders records ascending by score, ties broken by item ID so that
// a full sort of the same set always yields the same sequence.
func Less(a, b Record) bool {
	if a.Score != b.Score {
		return a.Score < b.Score
	}

	return a.ItemID < b.ItemID
}

// Sort sorts records in place, ascending by score with item-ID tie-break.
func Sort(records []Record) {
	sort.Slice(records, func(i, j int) bool {
		return Less(records[i], records[j])
	})
}

// Dedupe collapses duplicate item IDs, keeping the lowest score seen for
// each. Workers may report the same ligand more than once when a unit is
// partially re-scored; only the best instance matters.
func Dedupe(records []Record) []Record {
	if len(records) < 2 {
		return records
	}

	best := make(map[string]float64, len(records))
	for _, r := range records {
		if s, ok := best[r.ItemID]; !ok || r.Score < s {
			best[r.ItemID] = r.Score
		}
	}

	out := records[:0]
	seen := make(map[string]bool, len(best))
	for _, r := range records {
		if seen[r.ItemID] {
			continue
		}
		seen[r.ItemID] = true
		out = append(out, Record{ItemID: r.ItemID, Score: best[r.ItemID]})
	}

	return out
}

// Merge combines record sets, dedupes and sorts the union.
func Merge(sets ...[]Record) []Record {
	var total int
	for _, s := range sets {
		total += len(s)
	}

	merged := make([]Record, 0, total)
	for _, s := range sets {
		merged = append(merged, s...)
	}

	merged = Dedupe(merged)
	Sort(merged)

	return merged
}
