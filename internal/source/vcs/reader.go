package vcs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

// ErrNoOrigin is returned when a repository has no origin remote.
var ErrNoOrigin = errors.New("no origin remote")

// Reader opens working copies.
type Reader struct{}

// NewReader returns a Reader backed by go-git.
func NewReader() *Reader {
	return &Reader{}
}

// Handle is an opened repository.
type Handle struct {
	repo   *git.Repository
	gitDir string
}

// Open opens the working copy at dir.
func (r *Reader) Open(dir string) (*Handle, error) {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return nil, fmt.Errorf("opening repository %s: %w", dir, err)
	}
	return &Handle{repo: repo, gitDir: filepath.Join(dir, git.GitDirName)}, nil
}

// Origin returns the first URL of the origin remote.
func (h *Handle) Origin() (string, error) {
	remote, err := h.repo.Remote(git.DefaultRemoteName)
	if err != nil {
		if errors.Is(err, git.ErrRemoteNotFound) {
			return "", ErrNoOrigin
		}
		return "", fmt.Errorf("reading origin: %w", err)
	}
	urls := remote.Config().URLs
	if len(urls) == 0 || urls[0] == "" {
		return "", ErrNoOrigin
	}
	return urls[0], nil
}

// References returns HEAD followed by every local and remote-tracking branch.
func (h *Handle) References() ([]string, error) {
	names := []string{string(plumbing.HEAD)}

	iter, err := h.repo.References()
	if err != nil {
		return names, fmt.Errorf("listing references: %w", err)
	}
	defer iter.Close()

	err = iter.ForEach(func(ref *plumbing.Reference) error {
		name := ref.Name()
		if name.IsBranch() || name.IsRemote() {
			names = append(names, name.String())
		}
		return nil
	})
	if err != nil && !errors.Is(err, storer.ErrStop) {
		return names, fmt.Errorf("listing references: %w", err)
	}
	return names, nil
}

// Reflog reads the reference log of ref. A ref without a log has no entries.
func (h *Handle) Reflog(ref string) ([]ReflogEntry, error) {
	f, err := os.Open(filepath.Join(h.gitDir, "logs", filepath.FromSlash(ref)))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening reflog %s: %w", ref, err)
	}
	defer f.Close()
	return ParseReflog(f)
}

// CommitMessage returns the full message of a commit, or "" when the commit
// is not in the object store.
func (h *Handle) CommitMessage(hash string) string {
	if len(hash) != 40 {
		return ""
	}
	commit, err := h.repo.CommitObject(plumbing.NewHash(hash))
	if err != nil {
		return ""
	}
	return commit.Message
}
