package render

import (
	"math"
	"testing"
)

func TestParseProgressLine(t *testing.T) {
	cases := []struct {
		line string
		want float64
		ok   bool
	}{
		{"out_time=00:00:12.500000", 12.5, true},
		{"out_time=01:02:03.000000", 3723, true},
		{"out_time_us=12500000", 0, false},
		{"frame=  300 fps= 30 time=00:00:10.00 bitrate=1000k", 10, true},
		{"out_time=N/A", 0, false},
		{"speed=1.02x", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, ok := ParseProgressLine(tc.line)
		if ok != tc.ok {
			t.Fatalf("ParseProgressLine(%q) ok = %v, want %v", tc.line, ok, tc.ok)
		}
		if ok && math.Abs(got-tc.want) > 1e-6 {
			t.Fatalf("ParseProgressLine(%q) = %v, want %v", tc.line, got, tc.want)
		}
	}
}

func TestIsProgressEnd(t *testing.T) {
	if !IsProgressEnd("progress=end") || !IsProgressEnd("  progress=end\n") {
		t.Fatal("end marker not recognized")
	}
	if IsProgressEnd("progress=continue") {
		t.Fatal("continue marker misread as end")
	}
}

func TestParseClock(t *testing.T) {
	got, err := parseClock("90.25")
	if err != nil || math.Abs(got-90.25) > 1e-9 {
		t.Fatalf("plain seconds = %v, %v", got, err)
	}
	got, err = parseClock("00:01:30.5")
	if err != nil || math.Abs(got-90.5) > 1e-9 {
		t.Fatalf("clock = %v, %v", got, err)
	}
	if _, err := parseClock("aa:bb"); err == nil {
		t.Fatal("expected error for garbage clock")
	}
}
