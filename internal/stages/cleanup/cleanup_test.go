package cleanup

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/gbredz1/gbforge/internal/config"
	"github.com/gbredz1/gbforge/internal/forge"
	"github.com/gbredz1/gbforge/internal/stage"
)

type stubForge struct {
	releases    []forge.Release
	releasesErr error
	tagErrs     map[string]error

	deletedReleases []string
	deletedTags     []string
}

func (f *stubForge) Releases(_ context.Context, prefix string) ([]forge.Release, error) {
	if f.releasesErr != nil {
		return nil, f.releasesErr
	}
	var out []forge.Release
	for _, rel := range f.releases {
		if strings.HasPrefix(rel.Tag, prefix) {
			out = append(out, rel)
		}
	}
	return out, nil
}

func (f *stubForge) DeleteRelease(_ context.Context, tag string) error {
	f.deletedReleases = append(f.deletedReleases, tag)
	return nil
}

func (f *stubForge) DeleteTag(_ context.Context, tag string) error {
	f.deletedTags = append(f.deletedTags, tag)
	return f.tagErrs[tag]
}

func (f *stubForge) CreateRelease(context.Context, forge.Release, []string) error {
	return errors.New("unexpected create")
}

func (f *stubForge) UploadAssets(context.Context, string, []string) error {
	return errors.New("unexpected upload")
}

func (f *stubForge) DownloadArtifacts(context.Context, string, string, string) ([]string, error) {
	return nil, errors.New("unexpected download")
}

func testContext(client *stubForge) *stage.Context {
	return &stage.Context{
		Ctx:   context.Background(),
		Kind:  stage.KindNightly,
		Forge: client,
		Config: &config.Config{
			Project: config.ProjectConfig{
				Release: config.ReleaseConfig{NightlyPrefix: "nightly-"},
			},
		},
	}
}

func TestDeletesEveryNightlyRelease(t *testing.T) {
	client := &stubForge{releases: []forge.Release{
		{Tag: "nightly-20240114", Prerelease: true},
		{Tag: "nightly-20240115", Prerelease: true},
		{Tag: "0.3.1"},
	}}
	st, _ := New(nil)
	result, err := st.Run(testContext(client))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Status != stage.StatusCompleted {
		t.Fatalf("status = %s, want %s", result.Status, stage.StatusCompleted)
	}
	if len(client.deletedReleases) != 2 {
		t.Fatalf("deleted releases %v, want the two nightlies", client.deletedReleases)
	}
	for _, tag := range client.deletedReleases {
		if !strings.HasPrefix(tag, "nightly-") {
			t.Fatalf("deleted non-nightly release %s", tag)
		}
	}
}

func TestTagDeletionFailureIsSwallowed(t *testing.T) {
	client := &stubForge{
		releases: []forge.Release{
			{Tag: "nightly-20240113", Prerelease: true},
			{Tag: "nightly-20240114", Prerelease: true},
		},
		tagErrs: map[string]error{"nightly-20240113": errors.New("ref locked")},
	}
	st, _ := New(nil)
	result, err := st.Run(testContext(client))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Status != stage.StatusCompleted {
		t.Fatalf("status = %s, want %s", result.Status, stage.StatusCompleted)
	}
	if len(client.deletedTags) != 2 {
		t.Fatalf("attempted tag deletions %v, want both tags tried", client.deletedTags)
	}
}

func TestNoPriorNightlyIsNoOp(t *testing.T) {
	client := &stubForge{releases: []forge.Release{{Tag: "0.3.1"}}}
	st, _ := New(nil)
	result, err := st.Run(testContext(client))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Status != stage.StatusNoOp {
		t.Fatalf("status = %s, want %s", result.Status, stage.StatusNoOp)
	}
}

func TestReleaseListingErrorFails(t *testing.T) {
	client := &stubForge{releasesErr: errors.New("api down")}
	st, _ := New(nil)
	result, err := st.Run(testContext(client))
	if err == nil {
		t.Fatal("expected error")
	}
	if result.Status != stage.StatusFailed {
		t.Fatalf("status = %s, want %s", result.Status, stage.StatusFailed)
	}
}
