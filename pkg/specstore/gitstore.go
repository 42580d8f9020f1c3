// Package specstore implements the version-controlled build-spec storage the
// candidate manager builds on. The shared store is a git repository of
// manifests; a local checkout is the working view and push accept/reject is
// the only synchronization primitive.
package specstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/openlkgm/openlkgm/pkg/gitcmd"
	"github.com/openlkgm/openlkgm/pkg/lkgm"
	"github.com/openlkgm/openlkgm/pkg/version"
)

// CanonicalPointerPath is the path, relative to the checkout root, of the
// symbolic reference to the promoted LKGM manifest.
const CanonicalPointerPath = "LKGM/lkgm.xml"

// Config configures a GitStore.
type Config struct {
	// Root is the local checkout of the shared manifest repository.
	Root string

	// Branch is the remote branch candidates are coordinated on.
	Branch string

	// Remote names the git remote, default "origin".
	Remote string

	// SourceManifest is the manifest snapshot used to materialize new build
	// specs.
	SourceManifest string
}

// GitStore is the git-backed lkgm.Store. All remote interaction goes through
// the injected runner so the store can be tested without a repository.
type GitStore struct {
	cfg    Config
	runner gitcmd.Runner
	logger zerolog.Logger
}

var _ lkgm.Store = (*GitStore)(nil)

// NewGitStore creates a store over an existing local checkout.
func NewGitStore(cfg Config, runner gitcmd.Runner, logger zerolog.Logger) (*GitStore, error) {
	if cfg.Root == "" {
		return nil, lkgm.NewPermanentError("manifest checkout root is required", nil)
	}
	if cfg.Branch == "" {
		cfg.Branch = "master"
	}
	if cfg.Remote == "" {
		cfg.Remote = "origin"
	}
	return &GitStore{
		cfg:    cfg,
		runner: runner,
		logger: logger.With().Str("component", "specstore").Logger(),
	}, nil
}

// Root returns the local checkout path.
func (s *GitStore) Root() string {
	return s.cfg.Root
}

// Resync brings the checkout to the remote branch tip.
func (s *GitStore) Resync(ctx context.Context) error {
	if _, err := s.runner.Run(ctx, s.cfg.Root, "remote", "update"); err != nil {
		return lkgm.NewTransientError("failed to update remotes", err).WithOperation("resync")
	}
	ref := s.cfg.Remote + "/" + s.cfg.Branch
	if _, err := s.runner.Run(ctx, s.cfg.Root, "rebase", ref); err != nil {
		return lkgm.NewConflictError("failed to rebase onto "+ref, err).WithOperation("resync")
	}
	return nil
}

// LoadCandidates resyncs and returns the formatted versions of every
// candidate spec in subdir, sorted ascending.
func (s *GitStore) LoadCandidates(ctx context.Context, subdir string) ([]string, error) {
	if err := s.Resync(ctx); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(filepath.Join(s.cfg.Root, subdir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, lkgm.NewTransientError("failed to read candidates dir", err).WithOperation("load-candidates")
	}

	var candidates []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".xml") {
			continue
		}
		ver := strings.TrimSuffix(e.Name(), ".xml")
		if _, err := version.Parse(ver); err != nil {
			continue
		}
		candidates = append(candidates, ver)
	}

	sort.Slice(candidates, func(i, j int) bool {
		c, err := version.CompareStrings(candidates[i], candidates[j])
		return err == nil && c < 0
	})
	return candidates, nil
}

// LatestUnprocessed resyncs and returns the newest candidate the build has
// not yet marked. An older unprocessed candidate is never returned: a builder
// must not regress to a candidate older than one it has seen.
func (s *GitStore) LatestUnprocessed(ctx context.Context, subdir, buildName string) (string, error) {
	candidates, err := s.LoadCandidates(ctx, subdir)
	if err != nil {
		return "", err
	}
	if len(candidates) == 0 {
		return "", nil
	}

	latest := candidates[len(candidates)-1]
	if s.processed(subdir, buildName, latest) {
		return "", nil
	}
	return latest, nil
}

// CreateBuildSpec materializes the spec for the working candidate. An
// existing spec the build has not yet processed is reused; an existing
// processed spec forces a revision bump before a new spec is created,
// committed and pushed.
func (s *GitStore) CreateBuildSpec(ctx context.Context, subdir, buildName string, work version.Info) (string, error) {
	ver := work
	if s.specExists(subdir, ver.String()) {
		if !s.processed(subdir, buildName, ver.String()) {
			s.logger.Debug().Str("candidate", ver.String()).Msg("reusing unprocessed build spec")
			return ver.String(), nil
		}
		ver = ver.IncrementRevision()
	}

	specPath := s.LocalManifestPath(subdir, ver.String())
	if err := copyFile(s.cfg.SourceManifest, specPath); err != nil {
		return "", lkgm.NewTransientError("failed to materialize build spec", err).WithOperation("create-spec")
	}

	rel, err := filepath.Rel(s.cfg.Root, specPath)
	if err != nil {
		return "", lkgm.NewPermanentError("spec path escapes checkout root", err)
	}
	if _, err := s.runner.Run(ctx, s.cfg.Root, "add", rel); err != nil {
		return "", lkgm.NewTransientError("failed to stage build spec", err).WithOperation("create-spec")
	}
	message := fmt.Sprintf("Automatic: Add spec %s", ver)
	if err := s.commitAndPush(ctx, message); err != nil {
		return "", err
	}

	s.logger.Info().Str("candidate", ver.String()).Msg("created build spec")
	return ver.String(), nil
}

// SetInFlight commits and pushes the in-flight marker for the candidate.
func (s *GitStore) SetInFlight(ctx context.Context, subdir, buildName, ver, message string) error {
	if err := s.Resync(ctx); err != nil {
		return err
	}

	marker := s.markerPath(subdir, buildName, "inflight", ver)
	if err := s.linkMarker(subdir, ver, marker); err != nil {
		return lkgm.NewTransientError("failed to create inflight marker", err).WithOperation("set-inflight")
	}

	rel, err := filepath.Rel(s.cfg.Root, marker)
	if err != nil {
		return lkgm.NewPermanentError("marker path escapes checkout root", err)
	}
	if _, err := s.runner.Run(ctx, s.cfg.Root, "add", rel); err != nil {
		return lkgm.NewTransientError("failed to stage inflight marker", err).WithOperation("set-inflight")
	}
	return s.commitAndPush(ctx, message)
}

// ReplaceCanonicalPointer points LKGM/lkgm.xml at the candidate manifest.
// The previous pointer, if any, is replaced.
func (s *GitStore) ReplaceCanonicalPointer(candidatePath string) error {
	pointer := filepath.Join(s.cfg.Root, CanonicalPointerPath)
	if err := os.MkdirAll(filepath.Dir(pointer), 0755); err != nil {
		return lkgm.NewTransientError("failed to create pointer dir", err).WithOperation("promote")
	}

	target, err := filepath.Rel(filepath.Dir(pointer), candidatePath)
	if err != nil {
		return lkgm.NewPermanentError("candidate path escapes checkout root", err)
	}

	if err := os.Remove(pointer); err != nil && !os.IsNotExist(err) {
		return lkgm.NewTransientError("failed to remove previous pointer", err).WithOperation("promote")
	}
	if err := os.Symlink(target, pointer); err != nil {
		return lkgm.NewTransientError("failed to create pointer symlink", err).WithOperation("promote")
	}
	return nil
}

// StageCanonicalPointer stages the pointer change.
func (s *GitStore) StageCanonicalPointer(ctx context.Context) error {
	if _, err := s.runner.Run(ctx, s.cfg.Root, "add", CanonicalPointerPath); err != nil {
		return lkgm.NewTransientError("failed to stage canonical pointer", err).WithOperation("promote")
	}
	return nil
}

// PushChanges commits staged changes and pushes them to the branch tip. A
// rejected push surfaces as a conflict-class error.
func (s *GitStore) PushChanges(ctx context.Context, message string) error {
	return s.commitAndPush(ctx, message)
}

// LocalManifestPath returns the checkout path of a candidate manifest.
func (s *GitStore) LocalManifestPath(subdir, ver string) string {
	return filepath.Join(s.cfg.Root, subdir, ver+".xml")
}

func (s *GitStore) commitAndPush(ctx context.Context, message string) error {
	if _, err := s.runner.Run(ctx, s.cfg.Root, "commit", "-m", message); err != nil {
		return lkgm.NewTransientError("failed to commit", err).WithOperation("push")
	}
	refspec := "HEAD:" + s.cfg.Branch
	if _, err := s.runner.Run(ctx, s.cfg.Root, "push", s.cfg.Remote, refspec); err != nil {
		return lkgm.NewConflictError("push rejected", err).WithOperation("push")
	}
	return nil
}

// markerPath builds a builder marker path:
// <subdir>/build-name/<builder>/<state>/<dir-prefix>/<version>.xml
func (s *GitStore) markerPath(subdir, buildName, state, ver string) string {
	v, err := version.Parse(ver)
	if err != nil {
		// Callers pass versions the store itself produced.
		return filepath.Join(s.cfg.Root, subdir, "build-name", buildName, state, ver+".xml")
	}
	return filepath.Join(s.cfg.Root, subdir, "build-name", buildName, state, v.DirPrefix(), ver+".xml")
}

// linkMarker creates the marker as a relative symlink to the candidate spec.
func (s *GitStore) linkMarker(subdir, ver, marker string) error {
	if err := os.MkdirAll(filepath.Dir(marker), 0755); err != nil {
		return err
	}
	target, err := filepath.Rel(filepath.Dir(marker), s.LocalManifestPath(subdir, ver))
	if err != nil {
		return err
	}
	if err := os.Remove(marker); err != nil && !os.IsNotExist(err) {
		return err
	}
	return os.Symlink(target, marker)
}

// processed reports whether the build has any marker for the candidate.
func (s *GitStore) processed(subdir, buildName, ver string) bool {
	for _, state := range []string{"pass", "fail", "inflight"} {
		if lexists(s.markerPath(subdir, buildName, state, ver)) {
			return true
		}
	}
	return false
}

func (s *GitStore) specExists(subdir, ver string) bool {
	return lexists(s.LocalManifestPath(subdir, ver))
}

func lexists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
