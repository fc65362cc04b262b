package captions

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseSRT(t *testing.T) {
	content := "1\r\n00:00:00,000 --> 00:00:02,500\r\nHello there.\r\n\r\n" +
		"2\r\n00:00:02,500 --> 00:00:05,000\r\nSecond line\r\nstill second\r\n"
	spans, err := ParseSRT(content)
	if err != nil {
		t.Fatalf("ParseSRT: %v", err)
	}
	if len(spans) != 2 {
		t.Fatalf("got %d spans, want 2", len(spans))
	}
	if spans[0].Text != "Hello there." {
		t.Fatalf("span 0 text = %q", spans[0].Text)
	}
	if spans[0].Start != 0 || spans[0].End != 2.5 {
		t.Fatalf("span 0 timing = [%v, %v]", spans[0].Start, spans[0].End)
	}
	if spans[1].Text != "Second line\nstill second" {
		t.Fatalf("span 1 text = %q", spans[1].Text)
	}
}

func TestParseSRTWithoutIndicesAndBOM(t *testing.T) {
	content := "\uFEFF00:00:01,000 --> 00:00:03,000\nno index here\n"
	spans, err := ParseSRT(content)
	if err != nil {
		t.Fatalf("ParseSRT: %v", err)
	}
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Start != 1 || spans[0].End != 3 {
		t.Fatalf("timing = [%v, %v]", spans[0].Start, spans[0].End)
	}
}

func TestParseSRTSkipsMalformedBlocks(t *testing.T) {
	content := "1\nnot a timing line\ntext\n\n" +
		"2\n00:00:00,000 --> 00:00:01,000\ngood\n"
	spans, err := ParseSRT(content)
	if err != nil {
		t.Fatalf("ParseSRT: %v", err)
	}
	if len(spans) != 1 || spans[0].Text != "good" {
		t.Fatalf("spans = %+v, want the single well-formed block", spans)
	}
}

func TestParseSRTTimestamp(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"00:00:00,000", 0},
		{"00:01:02,345", 62.345},
		{"01:00:00.500", 3600.5},
	}
	for _, tc := range cases {
		got, err := ParseSRTTimestamp(tc.in)
		if err != nil {
			t.Fatalf("ParseSRTTimestamp(%q): %v", tc.in, err)
		}
		if math.Abs(got-tc.want) > 1e-9 {
			t.Fatalf("ParseSRTTimestamp(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
	for _, bad := range []string{"", "12,345", "a:b:c,d"} {
		if _, err := ParseSRTTimestamp(bad); err == nil {
			t.Fatalf("ParseSRTTimestamp(%q) should fail", bad)
		}
	}
}

func TestParseASS(t *testing.T) {
	content := strings.Join([]string{
		"[Script Info]",
		"Title: sample",
		"",
		"[Events]",
		"Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text",
		`Dialogue: 0,0:00:00.00,0:00:02.40,Default,,0,0,0,,{\b1}Bold{\b0} opening\Nline`,
		"Dialogue: 0,0:00:02.40,0:00:04.00,Default,,0,0,0,,second, with comma",
	}, "\n")

	spans, err := ParseASS(content)
	if err != nil {
		t.Fatalf("ParseASS: %v", err)
	}
	if len(spans) != 2 {
		t.Fatalf("got %d spans, want 2", len(spans))
	}
	if spans[0].Text != "Bold opening line" {
		t.Fatalf("span 0 text = %q", spans[0].Text)
	}
	if math.Abs(spans[0].End-2.4) > 1e-9 {
		t.Fatalf("span 0 end = %v, want 2.4", spans[0].End)
	}
	if spans[1].Text != "second, with comma" {
		t.Fatalf("span 1 text = %q", spans[1].Text)
	}
}

func TestParseFileDispatch(t *testing.T) {
	dir := t.TempDir()

	srtPath := filepath.Join(dir, "narration.srt")
	if err := os.WriteFile(srtPath, []byte("1\n00:00:00,000 --> 00:00:01,000\nsrt text\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	spans, err := ParseFile(srtPath)
	if err != nil || len(spans) != 1 || spans[0].Text != "srt text" {
		t.Fatalf("srt dispatch: spans=%+v err=%v", spans, err)
	}

	assPath := filepath.Join(dir, "narration.ass")
	assContent := "[Events]\nFormat: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\nDialogue: 0,0:00:00.00,0:00:01.00,Default,,0,0,0,,ass text\n"
	if err := os.WriteFile(assPath, []byte(assContent), 0o644); err != nil {
		t.Fatal(err)
	}
	spans, err = ParseFile(assPath)
	if err != nil || len(spans) != 1 || spans[0].Text != "ass text" {
		t.Fatalf("ass dispatch: spans=%+v err=%v", spans, err)
	}
}

func TestWriteSRTRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.srt")
	in := []Span{
		{Start: 0, End: 1.5, Text: "first"},
		{Start: 1.5, End: 3.25, Text: "second"},
	}
	if err := WriteSRT(path, in); err != nil {
		t.Fatalf("WriteSRT: %v", err)
	}
	out, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("got %d spans, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i].Text != in[i].Text {
			t.Fatalf("span %d text = %q, want %q", i, out[i].Text, in[i].Text)
		}
		if math.Abs(out[i].Start-in[i].Start) > 0.001 || math.Abs(out[i].End-in[i].End) > 0.001 {
			t.Fatalf("span %d timing = [%v, %v], want [%v, %v]", i, out[i].Start, out[i].End, in[i].Start, in[i].End)
		}
	}
}

func TestFormatSRTTimestamp(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{0, "00:00:00,000"},
		{62.345, "00:01:02,345"},
		{1.9996, "00:00:02,000"},
		{-1, "00:00:00,000"},
	}
	for _, tc := range cases {
		if got := FormatSRTTimestamp(tc.in); got != tc.want {
			t.Fatalf("FormatSRTTimestamp(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestTotalDuration(t *testing.T) {
	if d := TotalDuration(nil); d != 0 {
		t.Fatalf("empty = %v, want 0", d)
	}
	spans := []Span{{Start: 0, End: 2}, {Start: 2, End: 5.5}}
	if d := TotalDuration(spans); d != 5.5 {
		t.Fatalf("total = %v, want 5.5", d)
	}
}
