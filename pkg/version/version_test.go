package version

import (
	"errors"
	"sort"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Info
	}{
		{"1.2.3.4-rc1", Info{1, 2, 3, 4, 1}},
		{"1.2.3.4-rc12", Info{1, 2, 3, 4, 12}},
		{"1.2.3.4", Info{1, 2, 3, 4, 1}},
		{"0.0.0.0", Info{0, 0, 0, 0, 1}},
		{"12.345.6.7-rc2", Info{12, 345, 6, 7, 2}},
	}

	for _, tc := range tests {
		got, err := Parse(tc.in)
		if err != nil {
			t.Fatalf("Parse(%q) returned error: %v", tc.in, err)
		}
		if got != tc.want {
			t.Errorf("Parse(%q) = %+v, want %+v", tc.in, got, tc.want)
		}
	}
}

func TestParseMalformed(t *testing.T) {
	for _, in := range []string{"", "1.2.3", "1.2.3.4.5", "a.b.c.d", "1.2.3.4-rc", "1.2.3.4rc1", "v1.2.3.4"} {
		if _, err := Parse(in); !errors.Is(err, ErrMalformedVersion) {
			t.Errorf("Parse(%q) error = %v, want ErrMalformedVersion", in, err)
		}
	}
}

func TestParseOverflowingComponent(t *testing.T) {
	// A digit run larger than int must be rejected, not panic.
	for _, in := range []string{
		"99999999999999999999.1.2.3",
		"1.2.3.99999999999999999999",
		"1.2.3.4-rc99999999999999999999",
	} {
		if _, err := Parse(in); !errors.Is(err, ErrMalformedVersion) {
			t.Errorf("Parse(%q) error = %v, want ErrMalformedVersion", in, err)
		}
	}
}

func TestStringRoundTrip(t *testing.T) {
	// Formatting always emits the rc suffix, defaulting to 1.
	v, err := Parse("1.2.3.4")
	if err != nil {
		t.Fatal(err)
	}
	if got := v.String(); got != "1.2.3.4-rc1" {
		t.Errorf("String() = %q, want %q", got, "1.2.3.4-rc1")
	}
	if got := v.BaseString(); got != "1.2.3.4" {
		t.Errorf("BaseString() = %q, want %q", got, "1.2.3.4")
	}
	if got := v.DirPrefix(); got != "1.2" {
		t.Errorf("DirPrefix() = %q, want %q", got, "1.2")
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1.2.3.4-rc1", "1.2.3.4-rc2", -1},
		{"1.2.3.4-rc1", "1.2.3.5-rc1", -1},
		{"1.2.3.4-rc1", "1.2.3.4-rc1", 0},
		{"1.2.3.4", "1.2.3.4-rc1", 0},
		{"2.0.0.0-rc1", "1.9.9.9-rc9", 1},
		{"1.2.3.4-rc10", "1.2.3.4-rc9", 1},
		{"1.3.0.0-rc1", "1.2.9.9-rc1", 1},
	}

	for _, tc := range tests {
		got, err := CompareStrings(tc.a, tc.b)
		if err != nil {
			t.Fatalf("CompareStrings(%q, %q) returned error: %v", tc.a, tc.b, err)
		}
		if got != tc.want {
			t.Errorf("CompareStrings(%q, %q) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
		// Strict total order: the reverse comparison must be the negation.
		rev, _ := CompareStrings(tc.b, tc.a)
		if rev != -tc.want {
			t.Errorf("CompareStrings(%q, %q) = %d, want %d", tc.b, tc.a, rev, -tc.want)
		}
	}
}

func TestCompareSorts(t *testing.T) {
	in := []string{"1.2.3.4-rc3", "1.2.3.5-rc1", "1.2.3.4-rc1", "1.2.3.4-rc2"}
	want := []string{"1.2.3.4-rc1", "1.2.3.4-rc2", "1.2.3.4-rc3", "1.2.3.5-rc1"}

	sort.Slice(in, func(i, j int) bool {
		c, err := CompareStrings(in[i], in[j])
		if err != nil {
			t.Fatal(err)
		}
		return c < 0
	})

	for i := range want {
		if in[i] != want[i] {
			t.Fatalf("sorted = %v, want %v", in, want)
		}
	}
}

func TestIncrementRevision(t *testing.T) {
	v, err := Parse("1.2.3.4-rc2")
	if err != nil {
		t.Fatal(err)
	}

	next := v.IncrementRevision()
	if next.Revision != 3 {
		t.Errorf("incremented revision = %d, want 3", next.Revision)
	}
	if v.Revision != 2 {
		t.Errorf("receiver mutated: revision = %d, want 2", v.Revision)
	}
	if next.BaseString() != v.BaseString() {
		t.Errorf("base changed: %q != %q", next.BaseString(), v.BaseString())
	}
}
