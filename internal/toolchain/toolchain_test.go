package toolchain

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gbredz1/gbforge/internal/platform"
)

func TestMetadataVersionParsesFirstPackage(t *testing.T) {
	cargo := NewCargo(".", "cargo")
	cargo.run = func(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
		if args[0] != "metadata" {
			t.Fatalf("unexpected args %v", args)
		}
		return []byte(`{"packages":[{"name":"gbemu","version":"0.3.1"}]}`), nil
	}
	version, err := cargo.MetadataVersion(context.Background())
	if err != nil {
		t.Fatalf("metadata version: %v", err)
	}
	if version != "0.3.1" {
		t.Fatalf("version = %q, want 0.3.1", version)
	}
}

func TestMetadataVersionRejectsEmptyWorkspace(t *testing.T) {
	cargo := NewCargo(".", "cargo")
	cargo.run = func(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
		return []byte(`{"packages":[]}`), nil
	}
	if _, err := cargo.MetadataVersion(context.Background()); err == nil {
		t.Fatal("expected error for empty package list")
	}
}

func TestBuildResolvesBinaryPathsWithSuffix(t *testing.T) {
	dir := t.TempDir()
	target, _ := platform.Lookup("windows-x86_64-msvc")
	release := filepath.Join(dir, "target", target.Triple, "release")
	if err := os.MkdirAll(release, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, bin := range []string{"gbemu-desktop.exe", "gbemu-term.exe"} {
		if err := os.WriteFile(filepath.Join(release, bin), []byte("mz"), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	cargo := NewCargo(dir, "cargo")
	var gotArgs []string
	cargo.run = func(ctx context.Context, cmdDir, name string, args ...string) ([]byte, error) {
		gotArgs = args
		return nil, nil
	}
	out, err := cargo.Build(context.Background(), target, []string{"gbemu-desktop", "gbemu-term"})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	joined := strings.Join(gotArgs, " ")
	if !strings.Contains(joined, "--target x86_64-pc-windows-msvc") {
		t.Fatalf("build args %q missing target triple", joined)
	}
	if !strings.HasSuffix(out.Binaries["gbemu-desktop"], "gbemu-desktop.exe") {
		t.Fatalf("gui path = %q", out.Binaries["gbemu-desktop"])
	}
}

func TestBuildFailsWhenBinaryMissing(t *testing.T) {
	dir := t.TempDir()
	target, _ := platform.Lookup("linux-x86_64-gnu")
	cargo := NewCargo(dir, "cargo")
	cargo.run = func(ctx context.Context, cmdDir, name string, args ...string) ([]byte, error) {
		return nil, nil // build "succeeds" but produces nothing
	}
	if _, err := cargo.Build(context.Background(), target, []string{"gbemu-desktop"}); err == nil {
		t.Fatal("expected error for missing build output")
	}
}
