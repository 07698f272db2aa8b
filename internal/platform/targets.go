package platform

import "fmt"

// ArchiveFormat selects how a target's binaries are compressed.
type ArchiveFormat string

const (
	FormatTarGz ArchiveFormat = "tar.gz"
	FormatZip   ArchiveFormat = "zip"
)

// Extension returns the file suffix including the leading dot.
func (f ArchiveFormat) Extension() string {
	return "." + string(f)
}

// Target is one OS/architecture build configuration. Every derived field is
// precomputed here so call sites never re-derive behavior from name matching.
type Target struct {
	// Name identifies the target in artifact names, e.g. "linux-x86_64-gnu".
	Name string
	// Runner is the host class the build unit must run on.
	Runner string
	// Triple is the toolchain target triple handed to the compiler.
	Triple string
	// ExeSuffix is appended to binary names, ".exe" on Windows.
	ExeSuffix string
	// Format is the archive format for this target's artifact.
	Format ArchiveFormat
}

// Validate ensures the target is fully populated.
func (t Target) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("platform: target name is required")
	}
	if t.Runner == "" {
		return fmt.Errorf("platform: runner is required for %s", t.Name)
	}
	if t.Triple == "" {
		return fmt.Errorf("platform: triple is required for %s", t.Name)
	}
	switch t.Format {
	case FormatTarGz, FormatZip:
	default:
		return fmt.Errorf("platform: unknown archive format %q for %s", t.Format, t.Name)
	}
	return nil
}

// ArtifactBasename computes the archive name stem for an app and version.
func (t Target) ArtifactBasename(app, version string) string {
	return fmt.Sprintf("%s-%s-%s", app, version, t.Name)
}

// ArtifactName computes the full archive file name.
func (t Target) ArtifactName(app, version string) string {
	return t.ArtifactBasename(app, version) + t.Format.Extension()
}

// Artifact is a packaged, compressed set of binaries for one target and
// version. Immutable once produced.
type Artifact struct {
	Name   string `json:"name"`
	Path   string `json:"path"`
	Target string `json:"target"`
}

// Targets returns the fixed release matrix in declaration order.
func Targets() []Target {
	return []Target{
		{
			Name:   "linux-x86_64-gnu",
			Runner: "ubuntu-latest",
			Triple: "x86_64-unknown-linux-gnu",
			Format: FormatTarGz,
		},
		{
			Name:      "windows-x86_64-msvc",
			Runner:    "windows-latest",
			Triple:    "x86_64-pc-windows-msvc",
			ExeSuffix: ".exe",
			Format:    FormatZip,
		},
		{
			Name:   "macos-x86_64",
			Runner: "macos-13",
			Triple: "x86_64-apple-darwin",
			Format: FormatZip,
		},
		{
			Name:   "macos-aarch64",
			Runner: "macos-latest",
			Triple: "aarch64-apple-darwin",
			Format: FormatZip,
		},
	}
}

// Lookup finds a target by name.
func Lookup(name string) (Target, bool) {
	for _, target := range Targets() {
		if target.Name == name {
			return target, true
		}
	}
	return Target{}, false
}
