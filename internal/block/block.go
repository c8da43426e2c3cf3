// Package block groups contiguous document lines into UI-stable blocks.
//
// A maximal run of consecutive markdown lines is one markdown block; a
// calculation line is always its own single-line block, so consecutive
// calculation lines become separate blocks and each gutter result lines
// up with exactly one block. Blocks partition the document's lines
// exactly, in order, with no gaps or overlaps.
//
// Blocks are views: they mirror line data but do not own it, and the
// block list is rebuilt on every re-segmentation. Identity is what makes
// them useful: reconciliation carries a block's id forward whenever its
// content is unchanged, so the focused block keeps its identity and
// input focus across re-evaluation.
package block

import (
	"strings"

	"github.com/google/uuid"

	"github.com/dshills/calcdown/internal/engine"
)

// Block is a UI-facing grouping of one or more lines.
type Block struct {
	// ID is stable across re-segmentation while the block's content is
	// unchanged.
	ID string

	// Kind is markdown or calculation.
	Kind engine.LineKind

	// LineStart and LineEnd are inclusive canonical line indices.
	LineStart int
	LineEnd   int

	// Content is the concatenated raw text of the block's line range,
	// used for identity matching during reconciliation.
	Content string
}

// LineCount returns the number of lines the block spans.
func (b Block) LineCount() int {
	return b.LineEnd - b.LineStart + 1
}

// Segment produces the ordered block sequence for the given lines and
// classifications. An empty document yields exactly one empty markdown
// block. Lines beyond the classification list default to markdown.
func Segment(contents []string, kinds []engine.LineKind) []Block {
	if len(contents) == 0 {
		contents = []string{""}
	}

	kindAt := func(i int) engine.LineKind {
		if i < len(kinds) {
			return kinds[i]
		}
		return engine.LineMarkdown
	}

	var blocks []Block
	i := 0
	for i < len(contents) {
		start := i
		kind := kindAt(i)

		if kind == engine.LineCalculation {
			// Calculation blocks span exactly one line.
			i++
		} else {
			for i < len(contents) && kindAt(i) == engine.LineMarkdown {
				i++
			}
		}

		blocks = append(blocks, Block{
			ID:        uuid.NewString(),
			Kind:      kind,
			LineStart: start,
			LineEnd:   i - 1,
			Content:   strings.Join(contents[start:i], "\n"),
		})
	}
	return blocks
}

// Reconcile carries ids forward from old blocks to newly segmented ones.
//
// Old blocks are consumed greedily in order: a new block whose content
// exactly matches an unconsumed old block takes that block's id,
// otherwise it keeps its fresh id. Blocks whose text did not change keep
// their identity even when blocks before or after them were added,
// removed, or resized.
func Reconcile(old, fresh []Block) []Block {
	oldIdx := 0
	for i := range fresh {
		for j := oldIdx; j < len(old); j++ {
			if old[j].Content == fresh[i].Content && old[j].Kind == fresh[i].Kind {
				fresh[i].ID = old[j].ID
				oldIdx = j + 1
				break
			}
		}
	}
	return fresh
}
