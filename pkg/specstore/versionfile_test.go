package specstore

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/openlkgm/openlkgm/pkg/lkgm"
	"github.com/openlkgm/openlkgm/pkg/version"
)

func writeVersionFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "platform_version.sh")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFileSourceCurrentVersion(t *testing.T) {
	path := writeVersionFile(t, `#!/bin/sh
# Platform version descriptor.
PLATFORM_VERSION_MAJOR=12
export PLATFORM_VERSION_MINOR=4
VERSION_SP=0
  VERSION_PATCH=7
UNRELATED=99
`)

	got, err := NewFileSource(path).CurrentVersion(context.Background())
	if err != nil {
		t.Fatalf("CurrentVersion failed: %v", err)
	}
	want := version.Info{Major: 12, Minor: 4, ServicePack: 0, Patch: 7, Revision: 1}
	if got != want {
		t.Errorf("version = %+v, want %+v", got, want)
	}
	if got.String() != "12.4.0.7-rc1" {
		t.Errorf("formatted = %q, want 12.4.0.7-rc1", got.String())
	}
}

func TestFileSourceMissingComponent(t *testing.T) {
	path := writeVersionFile(t, `VERSION_MAJOR=1
VERSION_MINOR=2
VERSION_PATCH=4
`)

	_, err := NewFileSource(path).CurrentVersion(context.Background())
	if !lkgm.IsPermanent(err) {
		t.Fatalf("error = %v, want permanent", err)
	}
	if !strings.Contains(err.Error(), "VERSION_SP") {
		t.Errorf("error does not name the missing component: %v", err)
	}
}

func TestFileSourceMissingFile(t *testing.T) {
	src := NewFileSource(filepath.Join(t.TempDir(), "absent.sh"))
	if _, err := src.CurrentVersion(context.Background()); !lkgm.IsPermanent(err) {
		t.Fatalf("error = %v, want permanent", err)
	}
}

func TestStaticSource(t *testing.T) {
	want := version.Info{Major: 1, Minor: 2, ServicePack: 3, Patch: 4, Revision: 2}
	got, err := (&StaticSource{Version: want}).CurrentVersion(context.Background())
	if err != nil {
		t.Fatalf("CurrentVersion failed: %v", err)
	}
	if got != want {
		t.Errorf("version = %+v, want %+v", got, want)
	}
}
