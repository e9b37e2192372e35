package ui

import "testing"

func TestTruncate(t *testing.T) {
	cases := []struct {
		in    string
		limit int
		want  string
	}{
		{"  short  ", 10, "short"},
		{"abcdefghij", 10, "abcdefghij"},
		{"abcdefghijk", 10, "abcdefg..."},
		{"abcd", 2, "ab"},
		{"Crème brûlée", 8, "Crème..."},
	}
	for _, tc := range cases {
		if got := truncate(tc.in, tc.limit); got != tc.want {
			t.Fatalf("truncate(%q, %d) = %q, want %q", tc.in, tc.limit, got, tc.want)
		}
	}
}

func TestWindowKeepsSelectionVisible(t *testing.T) {
	cases := []struct {
		sel, n, rows int
		start, end   int
	}{
		{0, 5, 10, 0, 5},
		{0, 20, 5, 0, 5},
		{4, 20, 5, 0, 5},
		{5, 20, 5, 1, 6},
		{19, 20, 5, 15, 20},
	}
	for _, tc := range cases {
		start, end := window(tc.sel, tc.n, tc.rows)
		if start != tc.start || end != tc.end {
			t.Fatalf("window(%d, %d, %d) = [%d,%d), want [%d,%d)", tc.sel, tc.n, tc.rows, start, end, tc.start, tc.end)
		}
	}
}

func TestClamp(t *testing.T) {
	if got := clamp(5, 0, -1); got != 0 {
		t.Fatalf("clamp on empty range = %d, want 0", got)
	}
	if got := clamp(-3, 0, 4); got != 0 {
		t.Fatalf("clamp low = %d", got)
	}
	if got := clamp(9, 0, 4); got != 4 {
		t.Fatalf("clamp high = %d", got)
	}
}
