package align

import "testing"

func TestNormalizeCollapsesPunctuationAndCase(t *testing.T) {
	got := Normalize("  Héllo,   WORLD!! ")
	if got.Text != "héllo world" {
		t.Fatalf("normalized text = %q, want %q", got.Text, "héllo world")
	}
	if got.Len() != len([]rune("héllo world")) {
		t.Fatalf("normalized length = %d, want %d", got.Len(), len([]rune("héllo world")))
	}
}

func TestNormalizeIndexMapRecoversOriginalOffsets(t *testing.T) {
	n := Normalize("  Héllo,   WORLD!! ")

	// 'h' is the first normalized rune and sits at original rune offset 2.
	if idx := n.OriginalIndex(0); idx != 2 {
		t.Fatalf("OriginalIndex(0) = %d, want 2", idx)
	}
	// 'w' is normalized rune 6; the original 'W' is rune 11.
	if idx := n.OriginalIndex(6); idx != 11 {
		t.Fatalf("OriginalIndex(6) = %d, want 11", idx)
	}
	// One past the end maps one past the last contributing original rune.
	last := n.OriginalIndex(n.Len())
	if prev := n.OriginalIndex(n.Len() - 1); last != prev+1 {
		t.Fatalf("OriginalIndex(end) = %d, want %d", last, prev+1)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	first := Normalize("The QUICK brown\tfox... jumps!")
	second := Normalize(first.Text)
	if second.Text != first.Text {
		t.Fatalf("second pass changed text: %q vs %q", second.Text, first.Text)
	}
}

func TestNormalizeCompatibilityForms(t *testing.T) {
	// NFKC folds full-width digits into ASCII digits.
	got := Normalize("ｔａｋｅ ４２")
	if got.Text != "take 42" {
		t.Fatalf("normalized text = %q, want %q", got.Text, "take 42")
	}
}

func TestNormalizeEmpty(t *testing.T) {
	got := Normalize("...  !?")
	if got.Text != "" || got.Len() != 0 {
		t.Fatalf("punctuation-only input should normalize empty, got %q", got.Text)
	}
	if idx := got.OriginalIndex(3); idx != 0 {
		t.Fatalf("OriginalIndex on empty = %d, want 0", idx)
	}
}
