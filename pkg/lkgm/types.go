package lkgm

import (
	"context"
	"fmt"

	"github.com/openlkgm/openlkgm/pkg/version"
)

// Status is a builder's self-reported state for a candidate, observed through
// marker files in the shared store.
type Status string

const (
	// StatusUnset means the builder has not written any marker yet.
	StatusUnset Status = "unset"

	// StatusInflight means the builder has started testing the candidate.
	StatusInflight Status = "inflight"

	// StatusPass means the builder finished successfully. Terminal.
	StatusPass Status = "pass"

	// StatusFail means the builder finished unsuccessfully. Terminal.
	StatusFail Status = "fail"
)

// IsTerminal reports whether the status is a final outcome. Terminal entries
// are never downgraded by later polls.
func (s Status) IsTerminal() bool {
	return s == StatusPass || s == StatusFail
}

// Validate checks that the status is one of the known values.
func (s Status) Validate() error {
	switch s {
	case StatusUnset, StatusInflight, StatusPass, StatusFail:
		return nil
	default:
		return fmt.Errorf("invalid builder status: %s", s)
	}
}

// Candidate is a version under test together with the local path of its
// manifest in the shared store checkout. It is created by the candidate
// manager, observed read-only by status aggregation, and consumed exactly
// once by promotion.
type Candidate struct {
	Version      version.Info
	ManifestPath string
}

// String returns the candidate's formatted version.
func (c *Candidate) String() string {
	return c.Version.String()
}

// Store is the version-controlled build-spec storage the candidate manager
// builds on. Implementations keep a local checkout of the shared manifest
// repository; a rejected push must surface as a conflict-class error so the
// caller can resync and retry, never blind-overwrite.
type Store interface {
	// Root returns the absolute path of the local manifests checkout.
	Root() string

	// Resync brings the local checkout to the remote branch tip
	// (fetch + rebase). Used both to prepare changes and between status
	// polls.
	Resync(ctx context.Context) error

	// LoadCandidates returns the formatted version strings of all known
	// candidates in the given subdir of the checkout.
	LoadCandidates(ctx context.Context, subdir string) ([]string, error)

	// LatestUnprocessed returns the newest candidate version in subdir that
	// the named build has not yet marked pass, fail or inflight. Empty
	// string means nothing new to build.
	LatestUnprocessed(ctx context.Context, subdir, buildName string) (string, error)

	// CreateBuildSpec materializes the build spec for the candidate,
	// deciding whether a genuinely new revision is needed or an existing
	// unprocessed spec is reused. It returns the version to build, or empty
	// if there is nothing to do.
	CreateBuildSpec(ctx context.Context, subdir, buildName string, v version.Info) (string, error)

	// SetInFlight commits the in-flight marker for the version with the
	// given message and pushes it to the shared store.
	SetInFlight(ctx context.Context, subdir, buildName, ver, message string) error

	// ReplaceCanonicalPointer points the canonical LKGM reference at the
	// candidate manifest, replacing any previous target.
	ReplaceCanonicalPointer(candidatePath string) error

	// StageCanonicalPointer stages the pointer change in the checkout.
	StageCanonicalPointer(ctx context.Context) error

	// PushChanges commits staged changes with the message and pushes them.
	PushChanges(ctx context.Context, message string) error

	// LocalManifestPath returns the path of a candidate manifest inside the
	// checkout. It does not require the file to exist.
	LocalManifestPath(subdir, ver string) string
}

// VersionSource resolves the current baseline version for a branch, typically
// from a version descriptor file maintained outside this tool.
type VersionSource interface {
	CurrentVersion(ctx context.Context) (version.Info, error)
}
