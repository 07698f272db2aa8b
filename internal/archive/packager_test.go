package archive

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/gbredz1/gbforge/internal/platform"
	"github.com/gbredz1/gbforge/internal/toolchain"
)

func fakeBuildOutput(t *testing.T, targetName string, binaries ...string) toolchain.BuildOutput {
	t.Helper()
	target, ok := platform.Lookup(targetName)
	if !ok {
		t.Fatalf("unknown target %s", targetName)
	}
	dir := t.TempDir()
	out := toolchain.BuildOutput{Target: target, Binaries: map[string]string{}}
	for _, bin := range binaries {
		path := filepath.Join(dir, bin+target.ExeSuffix)
		if err := os.WriteFile(path, []byte("binary "+bin), 0o755); err != nil {
			t.Fatal(err)
		}
		out.Binaries[bin] = path
	}
	return out
}

func TestPackageLinuxProducesTarGz(t *testing.T) {
	dist := t.TempDir()
	packager := New(dist)
	output := fakeBuildOutput(t, "linux-x86_64-gnu", "gbemu-desktop", "gbemu-term")

	artifact, err := packager.Package(output, "gbemu", "nightly-20240115")
	if err != nil {
		t.Fatalf("package: %v", err)
	}
	if artifact.Name != "gbemu-nightly-20240115-linux-x86_64-gnu.tar.gz" {
		t.Fatalf("artifact name = %q", artifact.Name)
	}

	file, err := os.Open(artifact.Path)
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer file.Close()
	gz, err := gzip.NewReader(file)
	if err != nil {
		t.Fatalf("gzip: %v", err)
	}
	tr := tar.NewReader(gz)
	entries := map[string]bool{}
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("tar next: %v", err)
		}
		entries[header.Name] = true
	}
	for _, want := range []string{
		"gbemu-nightly-20240115-linux-x86_64-gnu/gbemu-desktop",
		"gbemu-nightly-20240115-linux-x86_64-gnu/gbemu-term",
	} {
		if !entries[want] {
			t.Errorf("archive missing entry %s, have %v", want, entries)
		}
	}
}

func TestPackageWindowsProducesZipWithExeSuffix(t *testing.T) {
	dist := t.TempDir()
	packager := New(dist)
	output := fakeBuildOutput(t, "windows-x86_64-msvc", "gbemu-desktop", "gbemu-term")

	artifact, err := packager.Package(output, "gbemu", "v0.3.0")
	if err != nil {
		t.Fatalf("package: %v", err)
	}
	if artifact.Name != "gbemu-v0.3.0-windows-x86_64-msvc.zip" {
		t.Fatalf("artifact name = %q", artifact.Name)
	}

	zr, err := zip.OpenReader(artifact.Path)
	if err != nil {
		t.Fatalf("open zip: %v", err)
	}
	defer zr.Close()
	names := map[string]bool{}
	for _, entry := range zr.File {
		names[entry.Name] = true
	}
	for _, want := range []string{
		"gbemu-v0.3.0-windows-x86_64-msvc/gbemu-desktop.exe",
		"gbemu-v0.3.0-windows-x86_64-msvc/gbemu-term.exe",
	} {
		if !names[want] {
			t.Errorf("zip missing entry %s, have %v", want, names)
		}
	}
}

func TestPackageFailsOnMissingBinary(t *testing.T) {
	dist := t.TempDir()
	packager := New(dist)
	target, _ := platform.Lookup("linux-x86_64-gnu")
	output := toolchain.BuildOutput{
		Target:   target,
		Binaries: map[string]string{"gbemu-desktop": filepath.Join(dist, "does-not-exist")},
	}
	if _, err := packager.Package(output, "gbemu", "v0.3.0"); err == nil {
		t.Fatal("expected error for missing binary")
	}
}

func TestPackageFailsWithNoBinaries(t *testing.T) {
	packager := New(t.TempDir())
	target, _ := platform.Lookup("macos-x86_64")
	if _, err := packager.Package(toolchain.BuildOutput{Target: target}, "gbemu", "v1"); err == nil {
		t.Fatal("expected error for empty build output")
	}
}
