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

func TestParseTimeDate(t *testing.T) {
	got, ok := ParseTime("2021-12-24")
	if !ok {
		t.Fatalf("expected ok")
	}
	if !got.Equal(time.Date(2021, 12, 24, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected date %v", got)
	}
}

func TestParseTimeDefault(t *testing.T) {
	def := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC)
	got := ParseTimeDefault("", def)
	if !got.Equal(def) {
		t.Fatalf("expected default")
	}
}

func TestParseDates(t *testing.T) {
	got, err := ParseDates([]string{"2021-12-24", "2021-12-31"})
	if err != nil || len(got) != 2 {
		t.Fatalf("unexpected %v %v", got, err)
	}
	if _, err := ParseDates([]string{"2021-12-24", "xmas"}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestParseBoolDefault(t *testing.T) {
	cases := map[string]bool{"": true, "1": true, "false": false, "off": false, "YES": true, "maybe": true}
	for in, want := range cases {
		if got := ParseBoolDefault(in, true); got != want {
			t.Fatalf("ParseBoolDefault(%q) = %v", in, got)
		}
	}
	if got := SplitList(" a, ,b "); len(got) != 2 || got[1] != "b" {
		t.Fatalf("unexpected split %v", got)
	}
}
