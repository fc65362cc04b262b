package pipeline

import (
	"strings"
	"testing"
)

func TestSplitSentences(t *testing.T) {
	got := splitSentences("First one. Second here! Third, yes? Fourth.")
	want := []string{"First one.", "Second here!", "Third, yes?", "Fourth."}
	if len(got) != len(want) {
		t.Fatalf("got %d sentences %v, want %d", len(got), got, len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sentence %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSplitSentencesKeepsAbbreviatedDots(t *testing.T) {
	// A period not followed by spacing does not end a sentence.
	got := splitSentences("Visit example.com today. Then rest.")
	if len(got) != 2 {
		t.Fatalf("got %v, want 2 sentences", got)
	}
	if got[0] != "Visit example.com today." {
		t.Fatalf("first sentence = %q", got[0])
	}
}

func TestSplitSentencesCJKPunctuation(t *testing.T) {
	got := splitSentences("你好。 再见！ 什么？ 结束")
	if len(got) != 4 {
		t.Fatalf("got %v, want 4 sentences", got)
	}
}

func TestSplitSentencesNewlineFallback(t *testing.T) {
	got := splitSentences("line one\nline two\nline three")
	if len(got) != 3 {
		t.Fatalf("got %v, want 3 lines", got)
	}
	if got[1] != "line two" {
		t.Fatalf("second line = %q", got[1])
	}
}

func TestSplitSegmentsFewerSentencesThanScenes(t *testing.T) {
	got := splitSegments("One. Two.", 5)
	if len(got) != 2 {
		t.Fatalf("got %d segments %v, want 2", len(got), got)
	}
}

func TestSplitSegmentsGroupsByShare(t *testing.T) {
	text := "Aaaa aaaa. Bbbb bbbb. Cccc cccc. Dddd dddd."
	got := splitSegments(text, 2)
	if len(got) != 2 {
		t.Fatalf("got %d segments %v, want 2", len(got), got)
	}
	if got[0] != "Aaaa aaaa. Bbbb bbbb." {
		t.Fatalf("first segment = %q", got[0])
	}
	if got[1] != "Cccc cccc. Dddd dddd." {
		t.Fatalf("second segment = %q", got[1])
	}
}

func TestSplitSegmentsNeverStarvesBuckets(t *testing.T) {
	// One long sentence up front must not swallow the sentences the later
	// buckets need.
	text := strings.Repeat("word ", 40) + "end. Short one. Short two."
	got := splitSegments(text, 3)
	if len(got) != 3 {
		t.Fatalf("got %d segments %v, want 3", len(got), got)
	}
	if got[1] != "Short one." || got[2] != "Short two." {
		t.Fatalf("tail segments = %q, %q", got[1], got[2])
	}
}

func TestSplitSegmentsEmpty(t *testing.T) {
	if got := splitSegments("", 3); got != nil {
		t.Fatalf("empty text should yield nil, got %v", got)
	}
	if got := splitSegments("Hello there.", 0); got != nil {
		t.Fatalf("zero scenes should yield nil, got %v", got)
	}
}
