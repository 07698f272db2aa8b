package archive

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gbredz1/gbforge/internal/platform"
	"github.com/gbredz1/gbforge/internal/toolchain"
)

// Packager turns one target's build output into a named, compressed archive.
type Packager struct {
	// DistDir is where staging directories and finished archives land.
	DistDir string
}

// New builds a packager writing under distDir.
func New(distDir string) *Packager {
	return &Packager{DistDir: distDir}
}

// Package stages both binaries under a directory named after the artifact
// basename, compresses it in the target's format, and returns the artifact.
// A missing binary is a hard failure for this target only.
func (p *Packager) Package(output toolchain.BuildOutput, app, version string) (platform.Artifact, error) {
	target := output.Target
	basename := target.ArtifactBasename(app, version)
	staging := filepath.Join(p.DistDir, basename)
	if err := os.MkdirAll(staging, 0o755); err != nil {
		return platform.Artifact{}, fmt.Errorf("archive: create staging dir: %w", err)
	}

	if len(output.Binaries) == 0 {
		return platform.Artifact{}, fmt.Errorf("archive: no binaries to package for %s", target.Name)
	}
	for name, src := range output.Binaries {
		dest := filepath.Join(staging, name+target.ExeSuffix)
		if err := copyExecutable(src, dest); err != nil {
			return platform.Artifact{}, fmt.Errorf("archive: stage %s for %s: %w", name, target.Name, err)
		}
	}

	archivePath := filepath.Join(p.DistDir, basename+target.Format.Extension())
	var err error
	switch target.Format {
	case platform.FormatTarGz:
		err = writeTarGz(archivePath, staging, basename)
	case platform.FormatZip:
		err = writeZip(archivePath, staging, basename)
	default:
		err = fmt.Errorf("archive: unknown format %q", target.Format)
	}
	if err != nil {
		return platform.Artifact{}, err
	}

	return platform.Artifact{
		Name:   basename + target.Format.Extension(),
		Path:   archivePath,
		Target: target.Name,
	}, nil
}

func copyExecutable(src, dest string) error {
	info, err := os.Stat(src)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("binary %s missing: %w", src, err)
		}
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("binary %s is a directory", src)
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o755)
	if err != nil {
		return err
	}
	defer out.Close()
	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return nil
}
