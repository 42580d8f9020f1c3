package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/openlkgm/openlkgm/pkg/lkgm"
)

// printCandidate writes a claimed candidate to stdout, honoring --json.
func printCandidate(cand *lkgm.Candidate) error {
	if jsonOutput {
		return printJSON(map[string]string{
			"version":       cand.Version.String(),
			"manifest_path": cand.ManifestPath,
		})
	}
	fmt.Printf("Candidate: %s\n", cand.Version)
	fmt.Printf("Manifest:  %s\n", cand.ManifestPath)
	return nil
}

// printStatuses writes the builder status map to stdout, honoring --json.
func printStatuses(statuses map[string]lkgm.Status) error {
	if jsonOutput {
		return printJSON(statuses)
	}

	builders := make([]string, 0, len(statuses))
	for b := range statuses {
		builders = append(builders, b)
	}
	sort.Strings(builders)

	for _, b := range builders {
		fmt.Printf("%-40s %s\n", b, statuses[b])
	}
	return nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// allPassed reports whether every builder reached pass.
func allPassed(statuses map[string]lkgm.Status) bool {
	for _, s := range statuses {
		if s != lkgm.StatusPass {
			return false
		}
	}
	return len(statuses) > 0
}
