package util

import (
	"strconv"
	"testing"
	"time"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "2024-10-10T10:10:10Z"
	got, ok := ParseTime(s)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.UTC().Format(time.RFC3339) != s {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeUnix(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10))
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Unix() != ts {
		t.Fatalf("unexpected unix %v", got.Unix())
	}
}

func TestParseDuration(t *testing.T) {
	cases := map[string]time.Duration{
		"24h": 24 * time.Hour,
		"7d":  7 * 24 * time.Hour,
		"90m": 90 * time.Minute,
	}
	for in, want := range cases {
		got, ok := ParseDuration(in)
		if !ok || got != want {
			t.Fatalf("ParseDuration(%q) = %v, %v; want %v", in, got, ok, want)
		}
	}
	for _, bad := range []string{"", "0d", "-1h", "abc", "xd"} {
		if _, ok := ParseDuration(bad); ok {
			t.Fatalf("ParseDuration(%q) should fail", bad)
		}
	}
}

func TestUniqueTickers(t *testing.T) {
	got := UniqueTickers([]string{" gme", "AMC", "gme", "", "nvda "})
	want := []string{"GME", "AMC", "NVDA"}
	if len(got) != len(want) {
		t.Fatalf("unexpected %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("index %d: got %s want %s", i, got[i], want[i])
		}
	}
}
