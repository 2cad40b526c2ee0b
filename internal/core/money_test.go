package core

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true},
		{" 2.50 ", 250, true},
		{"1 500,75", 150075, true},
		{"-1", -100, true},
		{"-12,5", -1250, true},
		{"0", 0, true},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("%q expected validation error, got %v", tc.in, err)
			}
		}
	}
}

func TestMoneyJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		A Money `json:"a"`
	}{Money{Cents: 123456}})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"a":1234.56}` {
		t.Fatalf("unexpected json %s", b)
	}

	for in, want := range map[string]int64{
		`12.5`:    1250,
		`"12.50"`: 1250,
		`0`:       0,
		`7`:       700,
	} {
		var m Money
		if err := json.Unmarshal([]byte(in), &m); err != nil {
			t.Fatalf("%s: %v", in, err)
		}
		if m.Cents != want {
			t.Fatalf("%s: expected %d, got %d", in, want, m.Cents)
		}
	}

	var m Money
	if err := json.Unmarshal([]byte(`"abc"`), &m); err == nil {
		t.Fatalf("expected error for non numeric amount")
	}
}

func TestPercent(t *testing.T) {
	cases := []struct {
		part, whole int64
		want        float64
	}{
		{0, 0, 0},
		{100, 0, 0},
		{50, 100, 50},
		{1, 3, 33.3},
		{2, 3, 66.7},
		{150, 100, 150},
	}
	for _, tc := range cases {
		got := Percent(Money{Cents: tc.part}, Money{Cents: tc.whole})
		if got != tc.want {
			t.Fatalf("Percent(%d,%d) = %v, want %v", tc.part, tc.whole, got, tc.want)
		}
	}
}
