package specstore

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"regexp"
	"strconv"

	"github.com/openlkgm/openlkgm/pkg/lkgm"
	"github.com/openlkgm/openlkgm/pkg/version"
)

// versionKeyRE matches shell-style version descriptor assignments like
// "CHROMEOS_VERSION_MAJOR=12" or "export VERSION_PATCH=4".
var versionKeyRE = regexp.MustCompile(`^\s*(?:export\s+)?\w*VERSION_(MAJOR|MINOR|SP|PATCH)=(\d+)\s*$`)

// FileSource resolves the baseline version from a shell-style version
// descriptor file maintained in the source tree.
type FileSource struct {
	// Path is the version descriptor file location.
	Path string
}

var _ lkgm.VersionSource = (*FileSource)(nil)

// NewFileSource creates a version source backed by a descriptor file.
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

// CurrentVersion parses the descriptor into a baseline version. All four
// components must be present; the revision defaults to 1.
func (f *FileSource) CurrentVersion(_ context.Context) (version.Info, error) {
	file, err := os.Open(f.Path)
	if err != nil {
		return version.Info{}, lkgm.NewPermanentError("failed to open version descriptor", err)
	}
	defer file.Close()

	parts := make(map[string]int, 4)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		m := versionKeyRE.FindStringSubmatch(scanner.Text())
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		parts[m[1]] = n
	}
	if err := scanner.Err(); err != nil {
		return version.Info{}, lkgm.NewTransientError("failed to read version descriptor", err)
	}

	for _, key := range []string{"MAJOR", "MINOR", "SP", "PATCH"} {
		if _, ok := parts[key]; !ok {
			return version.Info{}, lkgm.NewPermanentError(
				fmt.Sprintf("version descriptor %s is missing VERSION_%s", f.Path, key), nil)
		}
	}

	return version.Info{
		Major:       parts["MAJOR"],
		Minor:       parts["MINOR"],
		ServicePack: parts["SP"],
		Patch:       parts["PATCH"],
		Revision:    1,
	}, nil
}

// StaticSource returns a fixed baseline version, mainly for tests and for
// callers that already resolved the version elsewhere.
type StaticSource struct {
	Version version.Info
}

var _ lkgm.VersionSource = (*StaticSource)(nil)

// CurrentVersion returns the fixed version.
func (s *StaticSource) CurrentVersion(_ context.Context) (version.Info, error) {
	return s.Version, nil
}
