// Package pkgreport merges per-architecture package status reports into a
// single CSV table. Each builder produces a report of the package versions it
// built; the merged table unions them by package and slot so the fleet's
// package state can be reviewed in one place.
package pkgreport

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"regexp"
)

// Well-known column names shared by all reports.
const (
	ColPackage = "Package"
	ColSlot    = "Slot"
	ColOverlay = "Overlay"
	ColTarget  = "Root Target"

	// Columns added by FinalizeTable.
	ColPlatformTarget = "Platform Root Target"
	ColHostTarget     = "Host Root Target"
)

// versionColRE matches per-architecture version columns, e.g.
// "Current x86 Version".
var versionColRE = regexp.MustCompile(`^Current (\S+) Version$`)

// VersionColumn returns the version column name for an architecture.
func VersionColumn(arch string) string {
	return fmt.Sprintf("Current %s Version", arch)
}

// CompareColumn returns the comparison column name for two architectures.
func CompareColumn(archA, archB string) string {
	return fmt.Sprintf("Comparing %s vs %s Versions", archA, archB)
}

// Row maps column names to values. Missing columns read as empty.
type Row map[string]string

// Table is an ordered set of rows over an ordered set of columns.
type Table struct {
	Columns []string
	Rows    []Row
}

// NewTable creates an empty table with the given columns.
func NewTable(columns ...string) *Table {
	return &Table{Columns: append([]string(nil), columns...)}
}

// AppendRow adds a row; values for unknown columns are dropped on write.
func (t *Table) AppendRow(row Row) {
	t.Rows = append(t.Rows, row)
}

// HasColumn reports whether the table has the named column.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// AddColumn appends a column if it is not already present.
func (t *Table) AddColumn(name string) {
	if !t.HasColumn(name) {
		t.Columns = append(t.Columns, name)
	}
}

// versionColumns returns the architectures with version columns, in column
// order.
func (t *Table) versionColumns() []string {
	var arches []string
	for _, c := range t.Columns {
		if m := versionColRE.FindStringSubmatch(c); m != nil {
			arches = append(arches, m[1])
		}
	}
	return arches
}

// LoadTable reads one CSV report and normalizes its target column.
func LoadTable(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open report %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse report %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("report %s is empty", path)
	}

	t := NewTable(records[0]...)
	for _, record := range records[1:] {
		row := make(Row, len(t.Columns))
		for i, col := range t.Columns {
			if i < len(record) {
				row[col] = record[i]
			}
		}
		normalizeRowTargets(row)
		t.AppendRow(row)
	}
	return t, nil
}

// WriteCSV writes the table with its full column superset.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return err
	}
	record := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		for i, col := range t.Columns {
			record[i] = row[col]
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile writes the table as CSV to path.
func (t *Table) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output %s: %w", path, err)
	}
	defer f.Close()

	if err := t.WriteCSV(f); err != nil {
		return fmt.Errorf("failed to write output %s: %w", path, err)
	}
	return f.Close()
}
