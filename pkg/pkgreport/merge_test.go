package pkgreport

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

const (
	colVerX86 = "Current x86 Version"
	colVerARM = "Current arm Version"
)

var testColumns = []string{ColPackage, ColSlot, ColOverlay, colVerX86, colVerARM, ColTarget}

func row0() Row {
	return Row{
		ColPackage: "lib/foo",
		ColSlot:    "0",
		ColOverlay: "portage",
		colVerX86:  "1.2.3",
		colVerARM:  "1.2.3",
		ColTarget:  "platform platform-dev hard-host-depends",
	}
}

func row1() Row {
	return Row{
		ColPackage: "dev/bar",
		ColSlot:    "0",
		ColOverlay: "main-overlay",
		colVerX86:  "1.2.3",
		colVerARM:  "1.2.3-r1",
		ColTarget:  "platform",
	}
}

func row2() Row {
	return Row{
		ColPackage: "lib/foo",
		ColSlot:    "1",
		ColOverlay: "portage",
		colVerX86:  "1.2.3",
		colVerARM:  "",
		ColTarget:  "platform platform-dev world",
	}
}

func testTable() *Table {
	t := NewTable(testColumns...)
	t.AppendRow(row0())
	t.AppendRow(row1())
	t.AppendRow(row2())
	return t
}

func writeTmpCSV(t *testing.T, table *Table) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "report.csv")
	if err := table.WriteFile(path); err != nil {
		t.Fatal(err)
	}
	return path
}

func assertRowEqual(t *testing.T, got, want Row) {
	t.Helper()
	cols := make(map[string]bool)
	for c := range got {
		cols[c] = true
	}
	for c := range want {
		cols[c] = true
	}
	for c := range cols {
		if got[c] != want[c] {
			t.Errorf("column %q = %q, want %q", c, got[c], want[c])
		}
	}
}

func TestTargetRank(t *testing.T) {
	base := targetRank("platform")
	dev := targetRank("platform-dev")
	test := targetRank("platform-test")

	if base == 0 || dev == 0 || test == 0 {
		t.Fatal("platform targets must have non-zero ranks")
	}
	if targetRank("foobar") != 0 {
		t.Error("host targets must rank 0")
	}
	if !(base < dev && dev < test) {
		t.Errorf("ranks out of order: %d, %d, %d", base, dev, test)
	}
}

func TestProcessTargets(t *testing.T) {
	tests := []struct {
		in          []string
		want        []string
		wantReverse []string
	}{
		{
			[]string{"platform", "platform-dev"},
			[]string{"platform-dev"},
			[]string{"platform"},
		},
		{
			[]string{"world", "platform", "platform-dev", "platform-test"},
			[]string{"platform-test", "world"},
			[]string{"platform", "world"},
		},
		{
			[]string{"world", "hard-host-depends", "platform-dev", "platform-test"},
			[]string{"platform-test", "hard-host-depends", "world"},
			[]string{"platform-dev", "hard-host-depends", "world"},
		},
	}

	for _, tc := range tests {
		if got := processTargets(tc.in, false); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("processTargets(%v, false) = %v, want %v", tc.in, got, tc.want)
		}
		if got := processTargets(tc.in, true); !reflect.DeepEqual(got, tc.wantReverse) {
			t.Errorf("processTargets(%v, true) = %v, want %v", tc.in, got, tc.wantReverse)
		}
	}
}

func TestLoadTableNormalizesTargets(t *testing.T) {
	path := writeTmpCSV(t, testTable())

	loaded, err := LoadTable(path)
	if err != nil {
		t.Fatalf("LoadTable failed: %v", err)
	}

	want0 := row0()
	want0[ColTarget] = "platform-dev hard-host-depends"
	want1 := row1()
	want2 := row2()
	want2[ColTarget] = "platform-dev world"

	for i, want := range []Row{want0, want1, want2} {
		assertRowEqual(t, loaded.Rows[i], want)
	}
}

func TestLoadTablesMergesBySlot(t *testing.T) {
	first := testTable()
	// The second report only covers arm and has partial overlap.
	second := NewTable(ColPackage, ColSlot, ColOverlay, colVerARM, ColTarget)
	second.AppendRow(Row{
		ColPackage: "lib/foo", ColSlot: "1", ColOverlay: "portage",
		colVerARM: "1.2.4", ColTarget: "platform platform-dev world",
	})
	second.AppendRow(Row{
		ColPackage: "dev/bar", ColSlot: "0", ColOverlay: "main-overlay",
		colVerARM: "1.2.3-r1", ColTarget: "platform platform-dev platform-test",
	})
	second.AppendRow(Row{
		ColPackage: "dev/newby", ColSlot: "2", ColOverlay: "main-overlay",
		colVerARM: "3.2.1", ColTarget: "platform hard-host-depends",
	})

	first.Rows[2][colVerARM] = "1.2.4"

	combined, err := LoadTables([]string{writeTmpCSV(t, first), writeTmpCSV(t, second)})
	if err != nil {
		t.Fatalf("LoadTables failed: %v", err)
	}

	want := []Row{
		{
			ColPackage: "dev/bar", ColSlot: "0", ColOverlay: "main-overlay",
			colVerX86: "1.2.3", colVerARM: "1.2.3-r1", ColTarget: "platform",
		},
		{
			ColPackage: "dev/newby", ColSlot: "2", ColOverlay: "main-overlay",
			colVerX86: "", colVerARM: "3.2.1", ColTarget: "platform hard-host-depends",
		},
		{
			ColPackage: "lib/foo", ColSlot: "0", ColOverlay: "portage",
			colVerX86: "1.2.3", colVerARM: "1.2.3", ColTarget: "platform-dev hard-host-depends",
		},
		{
			ColPackage: "lib/foo", ColSlot: "1", ColOverlay: "portage",
			colVerX86: "1.2.3", colVerARM: "1.2.4", ColTarget: "platform-dev world",
		},
	}

	if len(combined.Rows) != len(want) {
		t.Fatalf("merged %d rows, want %d", len(combined.Rows), len(want))
	}
	for i, w := range want {
		assertRowEqual(t, combined.Rows[i], w)
	}
}

func TestFinalizeTable(t *testing.T) {
	table := testTable()
	if len(table.Columns) != len(testColumns) {
		t.Fatalf("columns = %d, want %d", len(table.Columns), len(testColumns))
	}

	FinalizeTable(table)

	if got, want := len(table.Columns), len(testColumns)+3; got != want {
		t.Fatalf("columns after finalize = %d, want %d", got, want)
	}

	compareCol := CompareColumn("arm", "x86")

	want0 := row0()
	want0[ColPackage] = "lib/foo:0"
	want0[ColPlatformTarget] = "platform platform-dev"
	want0[ColHostTarget] = "hard-host-depends"
	want0[compareCol] = "same"

	want1 := row1()
	want1[ColPlatformTarget] = "platform"
	want1[ColHostTarget] = ""
	want1[compareCol] = "different"

	want2 := row2()
	want2[ColPackage] = "lib/foo:1"
	want2[ColPlatformTarget] = "platform platform-dev"
	want2[ColHostTarget] = "world"
	want2[compareCol] = ""

	for i, want := range []Row{want0, want1, want2} {
		assertRowEqual(t, table.Rows[i], want)
	}
}

func TestWriteCSVRoundTrip(t *testing.T) {
	table := testTable()
	path := writeTmpCSV(t, table)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) == 0 {
		t.Fatal("empty CSV output")
	}

	loaded, err := LoadTable(path)
	if err != nil {
		t.Fatalf("LoadTable failed: %v", err)
	}
	if len(loaded.Rows) != len(table.Rows) {
		t.Errorf("rows = %d, want %d", len(loaded.Rows), len(table.Rows))
	}
	if !reflect.DeepEqual(loaded.Columns, table.Columns) {
		t.Errorf("columns = %v, want %v", loaded.Columns, table.Columns)
	}
}
