package timecode

import "testing"

func TestFormat_Table(t *testing.T) {
	tests := []struct {
		ms   int64
		want string
	}{
		{0, "00:00:00.000"},
		{3661234, "01:01:01.234"},
		{5000, "00:00:05.000"},
		{65000, "00:01:05.000"},
		{999, "00:00:00.999"},
		{100 * msPerHour, "100:00:00.000"},
		{-5, "00:00:00.000"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := Format(tt.ms); got != tt.want {
				t.Fatalf("Format(%d) = %q, want %q", tt.ms, got, tt.want)
			}
		})
	}
}

func TestParse_RoundTrip(t *testing.T) {
	for _, ms := range []int64{0, 1, 10, 999, 1000, 59999, 60000, 3599999, 3661234, 86400000, 123*msPerHour + 7} {
		got, err := Parse(Format(ms))
		if err != nil {
			t.Fatalf("Parse(Format(%d)): %v", ms, err)
		}
		if got != ms {
			t.Fatalf("Parse(Format(%d)) = %d", ms, got)
		}
	}
}

func TestParse_ShortFraction(t *testing.T) {
	got, err := Parse("00:01:23.45")
	if err != nil {
		t.Fatal(err)
	}
	if got != 83450 {
		t.Fatalf("got %d, want 83450", got)
	}
	got, err = Parse("00:00:02")
	if err != nil {
		t.Fatal(err)
	}
	if got != 2000 {
		t.Fatalf("got %d, want 2000", got)
	}
}

func TestParse_Invalid(t *testing.T) {
	for _, in := range []string{"", "1:2", "00:60:00.000", "00:00:61.000", "aa:00:00.000", "00:00:00.1234", "00:00:00.", "-1:00:00.000"} {
		t.Run(in, func(t *testing.T) {
			if _, err := Parse(in); err == nil {
				t.Fatalf("expected error for %q", in)
			}
		})
	}
}

func TestParseProgressMarker_Table(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		want   int64
		wantOK bool
	}{
		{"typical", "frame=120 time=00:01:23.45 bitrate=1200kbits/s", 83450, true},
		{"padded", "frame=  42 fps=0.0 q=28.0 size=     256kB time=01:00:00.07 bitrate= 0.5kbits/s speed=2x", msPerHour + 70, true},
		{"last wins", "frame=1 time=00:00:01.00 x frame=2 time=00:00:02.50", 2500, true},
		{"no frame prefix", "time=00:00:01.00", 0, false},
		{"not available", "frame=0 fps=0.0 time=N/A bitrate=N/A", 0, false},
		{"negative", "frame=0 time=-00:00:00.02", 0, false},
		{"empty", "", 0, false},
		{"overflow", "frame=1 time=99999999999999999999:00:00.00", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseProgressMarker(tt.line)
			if ok != tt.wantOK || got != tt.want {
				t.Fatalf("ParseProgressMarker(%q) = (%d, %v), want (%d, %v)", tt.line, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestParseProgressMarker_CentisecondPrecision(t *testing.T) {
	for _, ms := range []int64{0, 9, 10, 1234, 3661239, 59999} {
		rendered := Format(ms)
		marker := "frame=1 time=" + rendered[:len(rendered)-1]
		got, ok := ParseProgressMarker(marker)
		if !ok {
			t.Fatalf("marker %q not recognized", marker)
		}
		if want := ms / 10 * 10; got != want {
			t.Fatalf("marker %q = %d, want %d", marker, got, want)
		}
	}
}
