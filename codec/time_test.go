package codec_test

import (
	"testing"
	"time"

	"github.com/godm-io/godm/codec"
)

func TestParseTime_Variants(t *testing.T) {
	cases := []string{
		"2024-07-01T10:30:00Z",
		"2024-07-01T10:30:00.5Z",
		"2024-07-01T10:30:00+09:00",
		"2024-07-01T10:30:00.123456789Z",
	}
	for _, s := range cases {
		if _, err := codec.ParseTime(s); err != nil {
			t.Fatalf("ParseTime(%q) err: %v", s, err)
		}
	}

	if _, err := codec.ParseTime("July 1st 2024"); err == nil {
		t.Fatalf("expected error for non-RFC3339 input")
	}
}

func TestFormatTime_Canonical(t *testing.T) {
	loc := time.FixedZone("JST", 9*3600)
	in := time.Date(2024, 7, 1, 19, 30, 0, 0, loc)

	s := codec.FormatTime(in)
	if s != "2024-07-01T10:30:00Z" {
		t.Fatalf("expected UTC canonical form, got %q", s)
	}

	// round-trip
	back, err := codec.ParseTime(s)
	if err != nil {
		t.Fatalf("round-trip parse err: %v", err)
	}
	if !back.Equal(in) {
		t.Fatalf("round-trip mismatch: %v vs %v", back, in)
	}
}
