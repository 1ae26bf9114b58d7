// Package navigation turns a contracts.ApplyResult into contiguous change
// blocks and implements wrap-around next/prev stepping over them, for UI
// consumption. Like contracts, diffparser, and applier, it performs no I/O
// and holds no shared state beyond the block list it derives.
package navigation

import (
	"sort"

	"github.com/hunkwright/hunkwright/internal/contracts"
)

// BlockKind tags whether a Block came from added_lines or
// removed_original_indices.
type BlockKind int

const (
	Added BlockKind = iota
	Removed
)

func (k BlockKind) String() string {
	if k == Added {
		return "added"
	}
	return "removed"
}

// Block is a contiguous run of indices of a single kind: [Start, End]
// inclusive, 0-based.
type Block struct {
	Start int
	End   int
	Kind  BlockKind
}

// Analyzer holds the block list derived from one ApplyResult and answers
// next/prev queries against it. It owns no other state.
type Analyzer struct {
	blocks []Block
}

// Analyze collapses result.AddedLines and result.RemovedOriginalIndices into
// contiguous blocks, merges them by Start (added before removed on a tie),
// and returns an Analyzer ready for NextChange/PrevChange.
func Analyze(result contracts.ApplyResult) *Analyzer {
	added := collapse(result.AddedLines, Added)
	removed := collapse(result.RemovedOriginalIndices, Removed)

	merged := make([]Block, 0, len(added)+len(removed))
	merged = append(merged, added...)
	merged = append(merged, removed...)
	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].Start != merged[j].Start {
			return merged[i].Start < merged[j].Start
		}
		return merged[i].Kind < merged[j].Kind
	})

	return &Analyzer{blocks: merged}
}

// Blocks returns the derived block list in sorted order.
func (a *Analyzer) Blocks() []Block {
	return append([]Block(nil), a.blocks...)
}

// collapse sorts a copy of indices and folds runs of consecutive integers
// into inclusive [start, end] blocks tagged kind.
func collapse(indices []int, kind BlockKind) []Block {
	if len(indices) == 0 {
		return nil
	}
	sorted := append([]int(nil), indices...)
	sort.Ints(sorted)

	var blocks []Block
	start := sorted[0]
	prev := sorted[0]
	for _, idx := range sorted[1:] {
		if idx == prev {
			continue // defensive de-dup, input should already be unique
		}
		if idx == prev+1 {
			prev = idx
			continue
		}
		blocks = append(blocks, Block{Start: start, End: prev, Kind: kind})
		start = idx
		prev = idx
	}
	blocks = append(blocks, Block{Start: start, End: prev, Kind: kind})
	return blocks
}

// NextChange returns the start of the first block whose Start > cur. If no
// such block exists, it wraps to the first block. If there are no blocks at
// all, cur is returned unchanged. Negative cur is a *contracts.ValidationError.
func (a *Analyzer) NextChange(cur int) (int, error) {
	if cur < 0 {
		return 0, &contracts.ValidationError{Field: "cur", Message: "must be non-negative"}
	}
	if len(a.blocks) == 0 {
		return cur, nil
	}
	for _, b := range a.blocks {
		if b.Start > cur {
			return b.Start, nil
		}
	}
	return a.blocks[0].Start, nil
}

// PrevChange returns the start of the last block whose Start < cur. If no
// such block exists, it wraps to the last block. If there are no blocks at
// all, cur is returned unchanged. Negative cur is a *contracts.ValidationError.
func (a *Analyzer) PrevChange(cur int) (int, error) {
	if cur < 0 {
		return 0, &contracts.ValidationError{Field: "cur", Message: "must be non-negative"}
	}
	if len(a.blocks) == 0 {
		return cur, nil
	}
	for i := len(a.blocks) - 1; i >= 0; i-- {
		if a.blocks[i].Start < cur {
			return a.blocks[i].Start, nil
		}
	}
	return a.blocks[len(a.blocks)-1].Start, nil
}
