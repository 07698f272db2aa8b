package changes

import (
	"context"
	"errors"
	"testing"

	"github.com/gbredz1/gbforge/internal/config"
	"github.com/gbredz1/gbforge/internal/stage"
)

type stubRepo struct {
	tags     []string
	tagsErr  error
	counts   map[string]int
	countErr error

	countedRef string
}

func (r *stubRepo) TagsWithPrefix(_ context.Context, prefix string) ([]string, error) {
	return r.tags, r.tagsErr
}

func (r *stubRepo) CommitsSince(_ context.Context, ref string) (int, error) {
	r.countedRef = ref
	return r.counts[ref], r.countErr
}

func testContext(repo *stubRepo) *stage.Context {
	return &stage.Context{
		Ctx:  context.Background(),
		Kind: stage.KindNightly,
		Repo: repo,
		Config: &config.Config{
			Project: config.ProjectConfig{
				Release: config.ReleaseConfig{NightlyPrefix: "nightly-"},
			},
		},
	}
}

func TestBootstrapWithoutPriorNightly(t *testing.T) {
	st, _ := New(nil)
	result, err := st.Run(testContext(&stubRepo{}))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Status != stage.StatusCompleted {
		t.Fatalf("status = %s, want %s", result.Status, stage.StatusCompleted)
	}
	if result.Outputs.HasChanges == nil || !*result.Outputs.HasChanges {
		t.Fatal("expected hasChanges=true for bootstrap")
	}
}

func TestNoCommitsSinceLatestNightlySkips(t *testing.T) {
	repo := &stubRepo{
		tags:   []string{"nightly-20240115", "nightly-20240114"},
		counts: map[string]int{"nightly-20240115": 0},
	}
	st, _ := New(nil)
	result, err := st.Run(testContext(repo))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Status != stage.StatusSkipped {
		t.Fatalf("status = %s, want %s", result.Status, stage.StatusSkipped)
	}
	if result.Outputs.HasChanges == nil || *result.Outputs.HasChanges {
		t.Fatal("expected hasChanges=false")
	}
	if repo.countedRef != "nightly-20240115" {
		t.Fatalf("counted commits since %q, want the most recent tag", repo.countedRef)
	}
}

func TestCommitsSinceLatestNightlyBuilds(t *testing.T) {
	repo := &stubRepo{
		tags:   []string{"nightly-20240115"},
		counts: map[string]int{"nightly-20240115": 7},
	}
	st, _ := New(nil)
	result, err := st.Run(testContext(repo))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Status != stage.StatusCompleted {
		t.Fatalf("status = %s, want %s", result.Status, stage.StatusCompleted)
	}
	if result.Outputs.HasChanges == nil || !*result.Outputs.HasChanges {
		t.Fatal("expected hasChanges=true")
	}
}

func TestTagListingErrorFails(t *testing.T) {
	repo := &stubRepo{tagsErr: errors.New("git unavailable")}
	st, _ := New(nil)
	result, err := st.Run(testContext(repo))
	if err == nil {
		t.Fatal("expected error")
	}
	if result.Status != stage.StatusFailed {
		t.Fatalf("status = %s, want %s", result.Status, stage.StatusFailed)
	}
}
