package git

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// Repo gives read access to repository metadata without spawning git
type Repo struct {
	repo *gogit.Repository
	root string
}

// Open finds the repository containing path, walking up to the .git directory
func Open(path string) (*Repo, error) {
	repo, err := gogit.PlainOpenWithOptions(path, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("opening repository at %s: %w", path, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("opening worktree: %w", err)
	}
	root, err := filepath.Abs(wt.Filesystem.Root())
	if err != nil {
		return nil, err
	}
	return &Repo{repo: repo, root: root}, nil
}

// Root returns the top-level directory of the worktree
func (r *Repo) Root() string { return r.root }

// CurrentBranch returns the short name of the checked-out branch. It works on
// an unborn branch and returns "" on a detached HEAD.
func (r *Repo) CurrentBranch() (string, error) {
	head, err := r.repo.Reference(plumbing.HEAD, false)
	if err != nil {
		return "", fmt.Errorf("reading HEAD: %w", err)
	}
	if head.Type() == plumbing.SymbolicReference && head.Target().IsBranch() {
		return head.Target().Short(), nil
	}
	return "", nil
}

// HeadMessage returns the full message of the HEAD commit
func (r *Repo) HeadMessage() (string, error) {
	head, err := r.repo.Head()
	if err != nil {
		return "", fmt.Errorf("resolving HEAD: %w", err)
	}
	commit, err := r.repo.CommitObject(head.Hash())
	if err != nil {
		return "", fmt.Errorf("reading commit %s: %w", head.Hash(), err)
	}
	return commit.Message, nil
}

// RemoteURL returns the first URL of the named remote
func (r *Repo) RemoteURL(name string) (string, error) {
	remote, err := r.repo.Remote(name)
	if err != nil {
		return "", fmt.Errorf("remote %q: %w", name, err)
	}
	urls := remote.Config().URLs
	if len(urls) == 0 {
		return "", fmt.Errorf("remote %q has no url", name)
	}
	return urls[0], nil
}

// DefaultBranch returns the default branch of remote as "<remote>/<branch>".
// It follows refs/remotes/<remote>/HEAD and falls back to main or master.
func (r *Repo) DefaultBranch(remote string) (string, error) {
	headName := plumbing.NewRemoteHEADReferenceName(remote)
	if ref, err := r.repo.Reference(headName, false); err == nil && ref.Type() == plumbing.SymbolicReference {
		return ref.Target().Short(), nil
	}
	for _, branch := range []string{"main", "master"} {
		name := plumbing.NewRemoteReferenceName(remote, branch)
		if _, err := r.repo.Reference(name, false); err == nil {
			return remote + "/" + branch, nil
		}
	}
	return "", fmt.Errorf("cannot determine the default branch of %q", remote)
}

// HasCommits reports whether HEAD points at a commit
func (r *Repo) HasCommits() bool {
	_, err := r.repo.Head()
	return err == nil
}

// IsNotRepository reports whether err comes from opening a directory outside any repository
func IsNotRepository(err error) bool {
	return errors.Is(err, gogit.ErrRepositoryNotExists)
}

// BranchSlug lowercases name and keeps it usable as a ref name
func BranchSlug(name string) string {
	name = strings.TrimSpace(strings.Trim(strings.TrimSpace(name), "`\"'"))
	if i := strings.IndexByte(name, '\n'); i >= 0 {
		name = name[:i]
	}
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '/', r == '.', r == '_':
			b.WriteRune(r)
			dash = false
		default:
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	return strings.Trim(b.String(), "-/.")
}
