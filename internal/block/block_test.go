package block

import (
	"testing"

	"github.com/dshills/calcdown/internal/engine"
)

func kinds(ks ...engine.LineKind) []engine.LineKind { return ks }

const (
	md   = engine.LineMarkdown
	calc = engine.LineCalculation
)

func TestSegmentEmptyDocument(t *testing.T) {
	blocks := Segment([]string{""}, kinds(md))

	if len(blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(blocks))
	}
	b := blocks[0]
	if b.Kind != md {
		t.Errorf("expected markdown block, got %v", b.Kind)
	}
	if b.LineStart != 0 || b.LineEnd != 0 {
		t.Errorf("expected span [0,0], got [%d,%d]", b.LineStart, b.LineEnd)
	}
	if b.Content != "" {
		t.Errorf("expected empty content, got %q", b.Content)
	}
}

func TestSegmentMarkdownRun(t *testing.T) {
	blocks := Segment([]string{"# Title", "some prose", "more prose"}, kinds(md, md, md))

	if len(blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(blocks))
	}
	if blocks[0].LineStart != 0 || blocks[0].LineEnd != 2 {
		t.Errorf("expected span [0,2], got [%d,%d]", blocks[0].LineStart, blocks[0].LineEnd)
	}
	if blocks[0].Content != "# Title\nsome prose\nmore prose" {
		t.Errorf("unexpected content %q", blocks[0].Content)
	}
}

func TestSegmentConsecutiveCalculationsSplit(t *testing.T) {
	blocks := Segment([]string{"a = 1", "b = 2", "c = 3"}, kinds(calc, calc, calc))

	if len(blocks) != 3 {
		t.Fatalf("calculation blocks are single-line; expected 3 blocks, got %d", len(blocks))
	}
	for i, b := range blocks {
		if b.Kind != calc {
			t.Errorf("block %d kind = %v, want calculation", i, b.Kind)
		}
		if b.LineStart != i || b.LineEnd != i {
			t.Errorf("block %d span = [%d,%d], want [%d,%d]", i, b.LineStart, b.LineEnd, i, i)
		}
	}
}

func TestSegmentMixed(t *testing.T) {
	blocks := Segment(
		[]string{"# Budget", "intro", "a = 1", "b = 2", "outro"},
		kinds(md, md, calc, calc, md),
	)

	if len(blocks) != 4 {
		t.Fatalf("expected 4 blocks, got %d: %+v", len(blocks), blocks)
	}

	wantSpans := [][2]int{{0, 1}, {2, 2}, {3, 3}, {4, 4}}
	wantKinds := []engine.LineKind{md, calc, calc, md}
	for i, b := range blocks {
		if b.LineStart != wantSpans[i][0] || b.LineEnd != wantSpans[i][1] {
			t.Errorf("block %d span = [%d,%d], want %v", i, b.LineStart, b.LineEnd, wantSpans[i])
		}
		if b.Kind != wantKinds[i] {
			t.Errorf("block %d kind = %v, want %v", i, b.Kind, wantKinds[i])
		}
	}
}

func TestSegmentPartitionsAllLines(t *testing.T) {
	contents := []string{"a", "b = 1", "c", "d", "e = 2"}
	blocks := Segment(contents, kinds(md, calc, md, md, calc))

	next := 0
	for _, b := range blocks {
		if b.LineStart != next {
			t.Errorf("gap or overlap before block at line %d (expected start %d)", b.LineStart, next)
		}
		next = b.LineEnd + 1
	}
	if next != len(contents) {
		t.Errorf("blocks cover %d lines, want %d", next, len(contents))
	}
}

func TestSegmentUnclassifiedLinesDefaultToMarkdown(t *testing.T) {
	blocks := Segment([]string{"one", "two"}, nil)
	if len(blocks) != 1 {
		t.Fatalf("expected a single markdown block, got %d", len(blocks))
	}
}

func TestReconcileEditedCalculationKeepsID(t *testing.T) {
	old := Segment([]string{"# Title", "calc = 1"}, kinds(md, calc))

	// Editing the calculation changes its content: fresh id. The
	// markdown block is untouched: same id.
	fresh := Segment([]string{"# Title", "calc = 2"}, kinds(md, calc))
	merged := Reconcile(old, fresh)

	if merged[0].ID != old[0].ID {
		t.Error("unchanged markdown block should keep its id")
	}
	if merged[1].ID == old[1].ID {
		t.Error("edited calculation block should get a fresh id")
	}
}

func TestReconcileUnchangedCalculationKeepsIDAcrossCountChange(t *testing.T) {
	old := Segment([]string{"# Title", "calc = 1"}, kinds(md, calc))

	// Same line count, only the calculation changed.
	fresh := Segment([]string{"# Title", "calc = 1"}, kinds(md, calc))
	merged := Reconcile(old, fresh)

	if merged[1].ID != old[1].ID {
		t.Error("unchanged calculation block should keep its id")
	}
}

func TestReconcileInsertionPreservesLaterIDs(t *testing.T) {
	old := Segment([]string{"calc = 1", "# Notes"}, kinds(calc, md))

	fresh := Segment([]string{"new = 9", "calc = 1", "# Notes"}, kinds(calc, calc, md))
	merged := Reconcile(old, fresh)

	if merged[0].ID == old[0].ID {
		t.Error("inserted block must not steal an existing id")
	}
	if merged[1].ID != old[0].ID {
		t.Error("unchanged calculation should keep its id after insertion above it")
	}
	if merged[2].ID != old[1].ID {
		t.Error("unchanged markdown block should keep its id after insertion above it")
	}
}

func TestReconcileKindChangeGetsFreshID(t *testing.T) {
	old := Segment([]string{"total"}, kinds(md))
	fresh := Segment([]string{"total"}, kinds(calc))
	merged := Reconcile(old, fresh)

	if merged[0].ID == old[0].ID {
		t.Error("a block that changed kind must not keep its id")
	}
}

func TestReconcileDeletionConsumesInOrder(t *testing.T) {
	old := Segment([]string{"a = 1", "b = 2", "c = 3"}, kinds(calc, calc, calc))
	fresh := Segment([]string{"a = 1", "c = 3"}, kinds(calc, calc))
	merged := Reconcile(old, fresh)

	if merged[0].ID != old[0].ID {
		t.Error("first block should keep its id")
	}
	if merged[1].ID != old[2].ID {
		t.Error("surviving block should match the old block past the deletion")
	}
}
