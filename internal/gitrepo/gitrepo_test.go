package gitrepo

import (
	"context"
	"testing"
)

func TestTagsWithPrefixSortsDescending(t *testing.T) {
	cli := NewCLI(".", "git")
	cli.run = func(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
		if name != "git" || args[0] != "tag" {
			t.Fatalf("unexpected command %s %v", name, args)
		}
		return []byte("nightly-20240101\nnightly-20240312\n\nnightly-20231224\n"), nil
	}
	tags, err := cli.TagsWithPrefix(context.Background(), "nightly-")
	if err != nil {
		t.Fatalf("tags: %v", err)
	}
	want := []string{"nightly-20240312", "nightly-20240101", "nightly-20231224"}
	if len(tags) != len(want) {
		t.Fatalf("tags = %v, want %v", tags, want)
	}
	for i := range want {
		if tags[i] != want[i] {
			t.Fatalf("tags[%d] = %s, want %s", i, tags[i], want[i])
		}
	}
}

func TestTagsWithPrefixEmptyRepository(t *testing.T) {
	cli := NewCLI(".", "git")
	cli.run = func(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
		return []byte("\n"), nil
	}
	tags, err := cli.TagsWithPrefix(context.Background(), "nightly-")
	if err != nil {
		t.Fatalf("tags: %v", err)
	}
	if len(tags) != 0 {
		t.Fatalf("expected no tags, got %v", tags)
	}
}

func TestCommitsSinceParsesCount(t *testing.T) {
	cli := NewCLI(".", "git")
	cli.run = func(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
		if args[0] != "rev-list" || args[2] != "nightly-20240312..HEAD" {
			t.Fatalf("unexpected args %v", args)
		}
		return []byte(" 17\n"), nil
	}
	count, err := cli.CommitsSince(context.Background(), "nightly-20240312")
	if err != nil {
		t.Fatalf("commits since: %v", err)
	}
	if count != 17 {
		t.Fatalf("count = %d, want 17", count)
	}
}

func TestCommitsSinceRejectsGarbage(t *testing.T) {
	cli := NewCLI(".", "git")
	cli.run = func(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
		return []byte("not-a-number"), nil
	}
	if _, err := cli.CommitsSince(context.Background(), "ref"); err == nil {
		t.Fatal("expected parse error")
	}
}
