package lfas

// scoreHeap is a bounded min-heap of ScoredDoc, used to keep the top-K
// results of Round 2 without sorting the full candidate set. The root
// is always the current worst-scoring (lowest score, highest doc_id on
// ties) result, so it is the one evicted when a better candidate
// arrives.
type scoreHeap struct {
	items []ScoredDoc
}

func (h *scoreHeap) Len() int { return len(h.items) }

func (h *scoreHeap) Less(i, j int) bool {
	if h.items[i].Score != h.items[j].Score {
		return h.items[i].Score < h.items[j].Score
	}
	return h.items[i].DocID > h.items[j].DocID
}

func (h *scoreHeap) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }

func (h *scoreHeap) Push(x any) { h.items = append(h.items, x.(ScoredDoc)) }

func (h *scoreHeap) Pop() any {
	n := len(h.items)
	item := h.items[n-1]
	h.items = h.items[:n-1]
	return item
}
