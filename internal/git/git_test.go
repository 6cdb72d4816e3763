package git

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
}

func runGit(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=test", "GIT_AUTHOR_EMAIL=test@example.com",
		"GIT_COMMITTER_NAME=test", "GIT_COMMITTER_EMAIL=test@example.com",
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git %v failed: %v\n%s", args, err, out)
	}
}

func TestCheckStorageDir_NotARepo(t *testing.T) {
	requireGit(t)
	dir := t.TempDir()
	if IsGitRepo(dir) {
		t.Skip("temp dir is inside a git work tree")
	}

	status, err := CheckStorageDir(dir, []string{"token.enc"})
	if err != nil {
		t.Fatalf("CheckStorageDir failed: %v", err)
	}
	if status.IsRepo {
		t.Error("Temp dir should not be a repo")
	}
	if out := FormatGitStatus(status); out != "" {
		t.Errorf("Expected no output outside a repo, got %q", out)
	}
}

func TestCheckStorageDir_TrackedRecord(t *testing.T) {
	requireGit(t)
	dir := t.TempDir()
	runGit(t, dir, "init", "-q")

	storage := filepath.Join(dir, "secure_storage")
	if err := os.MkdirAll(storage, 0700); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	for _, name := range []string{"tracked.enc", "ignored.enc"} {
		if err := os.WriteFile(filepath.Join(storage, name), []byte("{}"), 0600); err != nil {
			t.Fatalf("write failed: %v", err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte("secure_storage/ignored.enc\n"), 0644); err != nil {
		t.Fatalf("write .gitignore failed: %v", err)
	}
	runGit(t, dir, "add", "secure_storage/tracked.enc")

	status, err := CheckStorageDir(storage, []string{"tracked.enc", "ignored.enc"})
	if err != nil {
		t.Fatalf("CheckStorageDir failed: %v", err)
	}
	if !status.IsRepo {
		t.Fatal("Should detect the repo")
	}
	if len(status.TrackedRecords) != 1 || status.TrackedRecords[0] != "tracked.enc" {
		t.Errorf("TrackedRecords mismatch: %v", status.TrackedRecords)
	}
	if len(status.IgnoredRecords) != 1 || status.IgnoredRecords[0] != "ignored.enc" {
		t.Errorf("IgnoredRecords mismatch: %v", status.IgnoredRecords)
	}

	out := FormatGitStatus(status)
	if !strings.Contains(out, "git rm --cached tracked.enc") {
		t.Errorf("Output should suggest untracking: %s", out)
	}
}
