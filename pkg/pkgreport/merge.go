package pkgreport

import (
	"sort"
	"strings"
)

// Platform root targets in rank order. Lower index means more fundamental:
// every later target implies the earlier ones.
var platformTargets = []string{"platform", "platform-dev", "platform-test"}

// targetRank returns the 1-based rank of a platform target, 0 for host
// targets.
func targetRank(target string) int {
	for i, t := range platformTargets {
		if t == target {
			return i + 1
		}
	}
	return 0
}

// processTargets collapses a target list: among platform targets only the
// highest-ranked is kept (the lowest when reverse is set, which matters when
// merging reports that disagree); host targets are kept sorted after it.
func processTargets(targets []string, reverse bool) []string {
	var platform []string
	var host []string
	for _, t := range targets {
		if targetRank(t) > 0 {
			platform = append(platform, t)
		} else {
			host = append(host, t)
		}
	}

	var out []string
	if len(platform) > 0 {
		keep := platform[0]
		for _, t := range platform[1:] {
			if reverse == (targetRank(t) < targetRank(keep)) {
				keep = t
			}
		}
		out = append(out, keep)
	}
	sort.Strings(host)
	return append(out, host...)
}

// normalizeRowTargets rewrites the row's target column in collapsed form.
func normalizeRowTargets(row Row) {
	raw := strings.Fields(row[ColTarget])
	if len(raw) == 0 {
		return
	}
	row[ColTarget] = strings.Join(processTargets(raw, false), " ")
}

// mergeKey identifies a row across reports.
type mergeKey struct {
	pkg  string
	slot string
}

// LoadTables loads every report and merges them into one table. Rows are
// joined on (package, slot) with a union of columns; conflicting target lists
// are merged conservatively, keeping the lowest-ranked platform target both
// reports agree implies. Rows come out sorted by package then slot.
func LoadTables(paths []string) (*Table, error) {
	merged := NewTable()
	byKey := make(map[mergeKey]Row)
	var order []mergeKey

	for _, path := range paths {
		t, err := LoadTable(path)
		if err != nil {
			return nil, err
		}
		for _, col := range t.Columns {
			merged.AddColumn(col)
		}

		for _, row := range t.Rows {
			key := mergeKey{pkg: row[ColPackage], slot: row[ColSlot]}
			existing, ok := byKey[key]
			if !ok {
				byKey[key] = row
				order = append(order, key)
				continue
			}
			mergeRow(existing, row)
		}
	}

	sort.Slice(order, func(i, j int) bool {
		if order[i].pkg != order[j].pkg {
			return order[i].pkg < order[j].pkg
		}
		return order[i].slot < order[j].slot
	})
	for _, key := range order {
		merged.AppendRow(byKey[key])
	}
	return merged, nil
}

// mergeRow folds src into dst. Non-target values already present win; the
// target lists are unioned and re-collapsed keeping the lowest platform rank.
func mergeRow(dst, src Row) {
	for col, val := range src {
		if col == ColTarget {
			continue
		}
		if dst[col] == "" {
			dst[col] = val
		}
	}

	union := strings.Fields(dst[ColTarget])
	seen := make(map[string]bool, len(union))
	for _, t := range union {
		seen[t] = true
	}
	for _, t := range strings.Fields(src[ColTarget]) {
		if !seen[t] {
			union = append(union, t)
			seen[t] = true
		}
	}
	if len(union) > 0 {
		dst[ColTarget] = strings.Join(processTargets(union, true), " ")
	}
}

// FinalizeTable prepares a merged table for publication:
//   - packages appearing with more than one slot are disambiguated as
//     "package:slot";
//   - the target list is split into a platform column (expanded to every
//     implied rank) and a host column;
//   - when exactly two architecture version columns exist, a comparison
//     column is added with "same", "different" or empty when either side is
//     missing.
func FinalizeTable(t *Table) {
	t.AddColumn(ColPlatformTarget)
	t.AddColumn(ColHostTarget)

	arches := t.versionColumns()
	var compareCol string
	if len(arches) == 2 {
		compareCol = CompareColumn(arches[1], arches[0])
		t.AddColumn(compareCol)
	}

	slotsPerPackage := make(map[string]map[string]bool)
	for _, row := range t.Rows {
		pkg := row[ColPackage]
		if slotsPerPackage[pkg] == nil {
			slotsPerPackage[pkg] = make(map[string]bool)
		}
		slotsPerPackage[pkg][row[ColSlot]] = true
	}

	for _, row := range t.Rows {
		if len(slotsPerPackage[row[ColPackage]]) > 1 {
			row[ColPackage] = row[ColPackage] + ":" + row[ColSlot]
		}

		platform, host := splitTargets(strings.Fields(row[ColTarget]))
		row[ColPlatformTarget] = strings.Join(platform, " ")
		row[ColHostTarget] = strings.Join(host, " ")

		if compareCol != "" {
			a := row[VersionColumn(arches[0])]
			b := row[VersionColumn(arches[1])]
			switch {
			case a == "" || b == "":
				row[compareCol] = ""
			case a == b:
				row[compareCol] = "same"
			default:
				row[compareCol] = "different"
			}
		}
	}
}

// splitTargets expands the highest platform target present into every implied
// rank and separates out host targets.
func splitTargets(targets []string) (platform, host []string) {
	maxRank := 0
	for _, t := range targets {
		if r := targetRank(t); r > maxRank {
			maxRank = r
		} else if r == 0 {
			host = append(host, t)
		}
	}
	if maxRank > 0 {
		platform = append(platform, platformTargets[:maxRank]...)
	}
	sort.Strings(host)
	return platform, host
}
