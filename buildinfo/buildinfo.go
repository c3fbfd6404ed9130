package buildinfo

import "fmt"

var (
	// GitCommit is set by govvv at build time.
	GitCommit = "default-git-commit"
	// GitBranch  is set by govvv at build time.
	GitBranch = "default-git-branch"
	// GitState  is set by govvv at build time.
	GitState = "default-git-state"
	// GitSummary is set by govvv at build time.
	GitSummary = "default-git-summary"
	// BuildDate  is set by govvv at build time.
	BuildDate = "default-build-date"
	// Version  is set by govvv at build time.
	Version = "default-version"
)

// Info describes a marketgate build.
type Info struct {
	Version    string `json:"version"`
	BuildDate  string `json:"build_date"`
	GitSummary string `json:"git_summary"`
	GitBranch  string `json:"git_branch"`
	GitCommit  string `json:"git_commit"`
	GitState   string `json:"git_state"`
}

// Get returns the build info of the running binary.
func Get() Info {
	return Info{
		Version:    Version,
		BuildDate:  BuildDate,
		GitSummary: GitSummary,
		GitBranch:  GitBranch,
		GitCommit:  GitCommit,
		GitState:   GitState,
	}
}

// Summary prints a summary of all build info.
func Summary() string {
	i := Get()
	return fmt.Sprintf(
		"\tversion:\t%s\n\tbuild date:\t%s\n\tgit summary:\t%s\n\tgit branch:\t%s\n\tgit commit:\t%s\n\tgit state:\t%s",
		i.Version,
		i.BuildDate,
		i.GitSummary,
		i.GitBranch,
		i.GitCommit,
		i.GitState,
	)
}
