// Package version parses, formats and orders LKGM candidate version
// identifiers of the form "major.minor.sp.patch-rcN".
package version

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

// ErrMalformedVersion is returned when a version string does not match the
// candidate pattern. It is a permanent error and must never be retried.
var ErrMalformedVersion = errors.New("malformed candidate version")

var candidateRE = regexp.MustCompile(`^(\d+)\.(\d+)\.(\d+)\.(\d+)(?:-rc(\d+))?$`)

// Info is a candidate version: an ordered 5-tuple of major, minor,
// service-pack, patch and revision. The zero revision is normalized to 1.
type Info struct {
	Major       int
	Minor       int
	ServicePack int
	Patch       int
	Revision    int
}

// Parse parses a candidate version string. The "-rcN" suffix is optional;
// when absent the revision defaults to 1.
func Parse(text string) (Info, error) {
	m := candidateRE.FindStringSubmatch(text)
	if m == nil {
		return Info{}, fmt.Errorf("%w: %q", ErrMalformedVersion, text)
	}

	// The regexp only admits digit runs, but a run can still overflow int.
	components := make([]int, 0, 5)
	for _, part := range m[1:] {
		if part == "" {
			components = append(components, 1) // missing rc suffix
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return Info{}, fmt.Errorf("%w: %q: component %q out of range", ErrMalformedVersion, text, part)
		}
		components = append(components, n)
	}
	return Info{
		Major:       components[0],
		Minor:       components[1],
		ServicePack: components[2],
		Patch:       components[3],
		Revision:    components[4],
	}, nil
}

// String formats the full candidate version, always including the rc suffix.
func (v Info) String() string {
	rev := v.Revision
	if rev == 0 {
		rev = 1
	}
	return fmt.Sprintf("%d.%d.%d.%d-rc%d", v.Major, v.Minor, v.ServicePack, v.Patch, rev)
}

// BaseString formats the four-part version without the rc suffix. Candidates
// derived from the same baseline share this prefix.
func (v Info) BaseString() string {
	return fmt.Sprintf("%d.%d.%d.%d", v.Major, v.Minor, v.ServicePack, v.Patch)
}

// DirPrefix returns the grouping key used to shard builder marker files on
// disk. Candidates on the same major.minor line share a prefix directory.
func (v Info) DirPrefix() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// IncrementRevision returns a copy of v with the revision bumped by one.
// The receiver is not modified.
func (v Info) IncrementRevision() Info {
	next := v
	if next.Revision == 0 {
		next.Revision = 1
	}
	next.Revision++
	return next
}

// Compare orders two versions lexicographically over the 5-tuple.
// It returns -1 if a < b, 0 if equal, and 1 if a > b.
func Compare(a, b Info) int {
	pairs := [][2]int{
		{a.Major, b.Major},
		{a.Minor, b.Minor},
		{a.ServicePack, b.ServicePack},
		{a.Patch, b.Patch},
		{normRev(a.Revision), normRev(b.Revision)},
	}
	for _, p := range pairs {
		switch {
		case p[0] < p[1]:
			return -1
		case p[0] > p[1]:
			return 1
		}
	}
	return 0
}

func normRev(r int) int {
	if r == 0 {
		return 1
	}
	return r
}

// CompareStrings parses both version strings and orders them. Malformed input
// surfaces as ErrMalformedVersion.
func CompareStrings(a, b string) (int, error) {
	va, err := Parse(a)
	if err != nil {
		return 0, err
	}
	vb, err := Parse(b)
	if err != nil {
		return 0, err
	}
	return Compare(va, vb), nil
}
