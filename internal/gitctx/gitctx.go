package gitctx

import (
	"errors"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	git "github.com/go-git/go-git/v5"
)

// Provenance captures the repository state a service's assets were built from.
type Provenance struct {
	GitSHA        string   `json:"git_sha,omitempty"`
	Branch        string   `json:"branch,omitempty"`
	Dirty         bool     `json:"dirty"`
	ModifiedFiles []string `json:"modified_files,omitempty"`
}

// Short returns the abbreviated commit hash.
func (p *Provenance) Short() string {
	return shortSHA(p.GitSHA)
}

// Resolver answers provenance questions for files in any number of repositories,
// opening each repository once.
type Resolver struct {
	mu    sync.Mutex
	repos map[string]*git.Repository
}

// NewResolver returns an empty resolver.
func NewResolver() *Resolver {
	return &Resolver{repos: make(map[string]*git.Repository)}
}

var errNotRepo = errors.New("not a git repository")

func (r *Resolver) open(dir string) (*git.Repository, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if repo, ok := r.repos[dir]; ok {
		if repo == nil {
			return nil, errNotRepo
		}
		return repo, nil
	}
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		r.repos[dir] = nil
		return nil, errNotRepo
	}
	r.repos[dir] = repo
	return repo, nil
}

// Status reports HEAD and worktree state of the repository containing repoPath.
// Returns nil if repoPath is not inside a repository.
func (r *Resolver) Status(repoPath string) (*Provenance, error) {
	repo, err := r.open(repoPath)
	if err != nil {
		return statusCLI(repoPath), nil
	}
	head, err := repo.Head()
	if err != nil {
		// unborn branch
		return nil, nil
	}
	p := &Provenance{GitSHA: head.Hash().String(), Branch: head.Name().Short()}

	wt, err := repo.Worktree()
	if err != nil {
		return p, nil
	}
	st, err := wt.Status()
	if err != nil {
		return nil, err
	}
	for path, s := range st {
		// Consider both staged and unstaged changes
		if s.Staging != git.Unmodified || s.Worktree != git.Unmodified {
			p.ModifiedFiles = append(p.ModifiedFiles, filepath.ToSlash(path))
		}
	}
	sort.Strings(p.ModifiedFiles)
	p.Dirty = len(p.ModifiedFiles) > 0
	return p, nil
}

// LastCommit returns the hash of the most recent commit touching absPath, or "" when
// the file is untracked or not inside a repository.
func (r *Resolver) LastCommit(absPath string) (string, error) {
	repo, err := r.open(filepath.Dir(absPath))
	if err != nil {
		return lastCommitCLI(absPath), nil
	}
	wt, err := repo.Worktree()
	if err != nil {
		return "", nil
	}
	rel, err := filepath.Rel(wt.Filesystem.Root(), absPath)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", nil
	}
	rel = filepath.ToSlash(rel)

	head, err := repo.Head()
	if err != nil {
		return "", nil
	}
	iter, err := repo.Log(&git.LogOptions{From: head.Hash(), FileName: &rel})
	if err != nil {
		return "", err
	}
	defer iter.Close()

	c, err := iter.Next()
	if err != nil {
		// io.EOF: no commit touches the file
		return "", nil
	}
	return c.Hash.String(), nil
}

// CLI fallbacks cover layouts go-git cannot open, such as linked worktrees.

func statusCLI(dir string) *Provenance {
	if _, err := exec.LookPath("git"); err != nil {
		return nil
	}
	if runGit(dir, "rev-parse", "--is-inside-work-tree") != "true" {
		return nil
	}
	p := &Provenance{
		GitSHA: runGit(dir, "rev-parse", "HEAD"),
		Branch: runGit(dir, "rev-parse", "--abbrev-ref", "HEAD"),
	}
	for _, line := range strings.Split(runGit(dir, "status", "--porcelain"), "\n") {
		if len(line) > 3 {
			p.ModifiedFiles = append(p.ModifiedFiles, filepath.ToSlash(strings.TrimSpace(line[3:])))
		}
	}
	sort.Strings(p.ModifiedFiles)
	p.Dirty = len(p.ModifiedFiles) > 0
	return p
}

func lastCommitCLI(absPath string) string {
	if _, err := exec.LookPath("git"); err != nil {
		return ""
	}
	return runGit(filepath.Dir(absPath), "log", "-1", "--format=%H", "--", filepath.Base(absPath))
}

func runGit(dir string, args ...string) string {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, _ := cmd.Output()
	return strings.TrimSpace(string(out))
}

func shortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}

// ShortSHA abbreviates a commit hash to seven characters.
func ShortSHA(sha string) string { return shortSHA(sha) }
