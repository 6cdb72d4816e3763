package git

import (
	"fmt"
	"os/exec"
	"strings"
)

// GitStatus describes how the storage directory relates to a git work tree
type GitStatus struct {
	IsRepo           bool
	TrackedRecords   []string // Record files tracked by git (bad)
	UnignoredRecords []string // Record files not covered by .gitignore (warning)
	IgnoredRecords   []string // Record files in .gitignore (good)
}

// IsGitRepo checks if the working directory is inside a git repository
func IsGitRepo(workDir string) bool {
	cmd := exec.Command("git", "rev-parse", "--is-inside-work-tree")
	cmd.Dir = workDir
	err := cmd.Run()
	return err == nil
}

// IsTracked checks if a file is tracked by git
func IsTracked(workDir, path string) bool {
	cmd := exec.Command("git", "ls-files", "--", path)
	cmd.Dir = workDir
	output, err := cmd.Output()

	if err != nil {
		return false
	}

	return len(strings.TrimSpace(string(output))) > 0
}

// IsIgnored checks if a file is ignored by git (handles all .gitignore files)
func IsIgnored(workDir, path string) bool {
	cmd := exec.Command("git", "check-ignore", "-q", "--", path)
	cmd.Dir = workDir
	err := cmd.Run()

	// git check-ignore returns exit code 0 if file is ignored
	return err == nil
}

// CheckStorageDir checks record files in storageDir against git.
// Records are only as secret as the machine identity, so they should never
// be committed anywhere.
func CheckStorageDir(storageDir string, recordFiles []string) (*GitStatus, error) {
	status := &GitStatus{}

	if _, err := exec.LookPath("git"); err != nil {
		return status, nil
	}

	status.IsRepo = IsGitRepo(storageDir)
	if !status.IsRepo {
		return status, nil
	}

	for _, file := range recordFiles {
		if IsTracked(storageDir, file) {
			status.TrackedRecords = append(status.TrackedRecords, file)
		}
		if IsIgnored(storageDir, file) {
			status.IgnoredRecords = append(status.IgnoredRecords, file)
		} else {
			status.UnignoredRecords = append(status.UnignoredRecords, file)
		}
	}

	return status, nil
}

// FormatGitStatus formats git status for display
func FormatGitStatus(status *GitStatus) string {
	if !status.IsRepo {
		return ""
	}

	var result strings.Builder
	result.WriteString("\nGit Integration:\n")
	result.WriteString("   warning: storage directory is inside a git work tree\n")

	if len(status.TrackedRecords) > 0 {
		result.WriteString(fmt.Sprintf("   error: %d record file(s) tracked by git:\n", len(status.TrackedRecords)))
		for _, file := range status.TrackedRecords {
			result.WriteString(fmt.Sprintf("      - %s (run: git rm --cached %s)\n", file, file))
		}
	}

	if len(status.UnignoredRecords) > 0 {
		result.WriteString(fmt.Sprintf("   warning: %d record file(s) not in .gitignore\n", len(status.UnignoredRecords)))
	} else if len(status.IgnoredRecords) > 0 {
		result.WriteString(fmt.Sprintf("   ok: %d record file(s) in .gitignore\n", len(status.IgnoredRecords)))
	}

	return result.String()
}
